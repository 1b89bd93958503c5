package authoring

import (
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/lawnchairsociety/cardcrawl/internal/config"
	"github.com/lawnchairsociety/cardcrawl/internal/logger"
)

// ConnLimiter tracks and limits editor sessions per IP and in total.
type ConnLimiter struct {
	mu         sync.Mutex
	ipCounts   map[string]int
	totalCount int
	maxPerIP   int
	maxTotal   int
	proxies    []*net.IPNet
}

// NewConnLimiter creates a limiter from the authoring settings. Unparseable
// proxy entries are skipped; Config.Validate reports them.
func NewConnLimiter(cfg config.AuthoringConfig) *ConnLimiter {
	proxies, err := cfg.ProxyNetworks()
	if err != nil {
		logger.Warning("Ignoring trusted proxies", "error", err)
		proxies = nil
	}
	return &ConnLimiter{
		ipCounts: make(map[string]int),
		maxPerIP: cfg.MaxPerIP,
		maxTotal: cfg.MaxConnections,
		proxies:  proxies,
	}
}

// TryAcquire attempts to acquire a slot for ip.
// Returns false if the session would exceed either limit.
func (c *ConnLimiter) TryAcquire(ip string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxTotal > 0 && c.totalCount >= c.maxTotal {
		return false
	}
	if c.maxPerIP > 0 && c.ipCounts[ip] >= c.maxPerIP {
		return false
	}

	c.ipCounts[ip]++
	c.totalCount++
	return true
}

// Release frees a slot for ip.
func (c *ConnLimiter) Release(ip string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ipCounts[ip] > 0 {
		c.ipCounts[ip]--
		if c.ipCounts[ip] == 0 {
			delete(c.ipCounts, ip)
		}
	}
	if c.totalCount > 0 {
		c.totalCount--
	}
}

// Stats returns the open session count and the number of distinct IPs.
func (c *ConnLimiter) Stats() (total int, ips int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalCount, len(c.ipCounts)
}

// ClientIP is the address a request is counted against. Forwarding headers
// are only read when the peer is a trusted proxy.
func (c *ConnLimiter) ClientIP(r *http.Request) string {
	peer := extractIP(r.RemoteAddr)
	if !c.trusts(peer) {
		return peer
	}
	// "client, proxy1, proxy2"
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	return peer
}

func (c *ConnLimiter) trusts(peer string) bool {
	ip := net.ParseIP(peer)
	if ip == nil {
		return false
	}
	for _, n := range c.proxies {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// extractIP extracts the IP address from an ip:port string.
func extractIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
