// Package config loads cardcrawl settings from YAML with CRAWL_*
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds every tunable the tools read.
type Config struct {
	Economy   EconomyConfig   `yaml:"economy"`
	Analyzer  AnalyzerConfig  `yaml:"analyzer"`
	Combat    CombatConfig    `yaml:"combat"`
	Database  DatabaseConfig  `yaml:"database"`
	Authoring AuthoringConfig `yaml:"authoring"`
}

// EconomyConfig holds settlement settings.
type EconomyConfig struct {
	// ConversionRate is the share of earned dungeon gold a clear converts
	// into persistent gold.
	ConversionRate float64 `yaml:"conversion_rate" env:"CRAWL_CONVERSION_RATE"`
}

// AnalyzerConfig holds clear-rate calibration settings.
type AnalyzerConfig struct {
	MinSamples         int     `yaml:"min_samples" env:"CRAWL_ANALYZER_MIN_SAMPLES"`
	MaxEmpiricalWeight float64 `yaml:"max_empirical_weight" env:"CRAWL_ANALYZER_MAX_EMPIRICAL_WEIGHT"`
	Confidence         float64 `yaml:"confidence" env:"CRAWL_ANALYZER_CONFIDENCE"`
}

// CombatConfig holds presentational timing.
type CombatConfig struct {
	// EnemyTurnDelayMS pauses before each enemy turn. 0 disables it.
	EnemyTurnDelayMS int `yaml:"enemy_turn_delay_ms" env:"CRAWL_ENEMY_TURN_DELAY_MS"`

	// JudgeTimeoutMS bounds an external trap or event judgement.
	JudgeTimeoutMS int `yaml:"judge_timeout_ms" env:"CRAWL_JUDGE_TIMEOUT_MS"`
}

// EnemyTurnDelay returns the delay as a duration.
func (c CombatConfig) EnemyTurnDelay() time.Duration {
	return time.Duration(c.EnemyTurnDelayMS) * time.Millisecond
}

// JudgeTimeout returns the timeout as a duration.
func (c CombatConfig) JudgeTimeout() time.Duration {
	return time.Duration(c.JudgeTimeoutMS) * time.Millisecond
}

// DatabaseConfig selects and addresses the store.
type DatabaseConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver     string `yaml:"driver" env:"CRAWL_DB_DRIVER"`
	SQLitePath string `yaml:"sqlite_path" env:"CRAWL_DB_SQLITE_PATH"`

	PostgresHost     string `yaml:"postgres_host" env:"CRAWL_DB_POSTGRES_HOST"`
	PostgresPort     int    `yaml:"postgres_port" env:"CRAWL_DB_POSTGRES_PORT"`
	PostgresUser     string `yaml:"postgres_user" env:"CRAWL_DB_POSTGRES_USER"`
	PostgresPassword string `yaml:"postgres_password" env:"CRAWL_DB_POSTGRES_PASSWORD"`
	PostgresDatabase string `yaml:"postgres_database" env:"CRAWL_DB_POSTGRES_DATABASE"`
	PostgresSSLMode  string `yaml:"postgres_sslmode" env:"CRAWL_DB_POSTGRES_SSLMODE"`
}

// AuthoringConfig holds the live analyzer server settings.
type AuthoringConfig struct {
	ListenAddr string `yaml:"listen_addr" env:"CRAWL_AUTHORING_ADDR"`

	// AllowedOrigins is a list of origins allowed to connect via WebSocket.
	// Empty list enforces same-origin policy.
	// Use "*" to allow all origins (not recommended for production).
	AllowedOrigins []string `yaml:"allowed_origins" env:"CRAWL_AUTHORING_ALLOWED_ORIGINS" envSeparator:","`

	// MaxMessageSize is the largest layout message accepted, in bytes.
	MaxMessageSize int64 `yaml:"max_message_size" env:"CRAWL_AUTHORING_MAX_MESSAGE_SIZE"`

	// MaxConnections caps concurrent editor sessions. 0 means unlimited.
	MaxConnections int `yaml:"max_connections" env:"CRAWL_AUTHORING_MAX_CONNECTIONS"`

	// MaxPerIP caps concurrent sessions from one address. 0 means unlimited.
	MaxPerIP int `yaml:"max_per_ip" env:"CRAWL_AUTHORING_MAX_PER_IP"`

	// RateLimit is how many analyses one session may request per
	// RateWindowMS. 0 means unlimited.
	RateLimit    int `yaml:"rate_limit" env:"CRAWL_AUTHORING_RATE_LIMIT"`
	RateWindowMS int `yaml:"rate_window_ms" env:"CRAWL_AUTHORING_RATE_WINDOW_MS"`

	// TrustedProxies lists reverse proxy addresses or CIDRs whose
	// X-Forwarded-For and X-Real-IP headers are believed. Empty means the
	// headers are ignored and the peer address is the client.
	TrustedProxies []string `yaml:"trusted_proxies" env:"CRAWL_AUTHORING_TRUSTED_PROXIES" envSeparator:","`
}

// ProxyNetworks parses TrustedProxies. A bare address is a single-host
// network.
func (c AuthoringConfig) ProxyNetworks() ([]*net.IPNet, error) {
	var out []*net.IPNet
	for _, entry := range c.TrustedProxies {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if _, n, err := net.ParseCIDR(entry); err == nil {
			out = append(out, n)
			continue
		}
		ip := net.ParseIP(entry)
		if ip == nil {
			return nil, fmt.Errorf("authoring.trusted_proxies entry %q is not an address or CIDR", entry)
		}
		bits := 8 * net.IPv6len
		if v4 := ip.To4(); v4 != nil {
			ip, bits = v4, 8*net.IPv4len
		}
		out = append(out, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
	}
	return out, nil
}

// RateWindow returns the throttle window as a duration.
func (c AuthoringConfig) RateWindow() time.Duration {
	return time.Duration(c.RateWindowMS) * time.Millisecond
}

// DefaultConfig returns a Config with the stock tuning.
func DefaultConfig() *Config {
	return &Config{
		Economy: EconomyConfig{ConversionRate: 0.5},
		Analyzer: AnalyzerConfig{
			MinSamples:         10,
			MaxEmpiricalWeight: 0.65,
			Confidence:         20,
		},
		Combat: CombatConfig{
			EnemyTurnDelayMS: 0,
			JudgeTimeoutMS:   3000,
		},
		Database: DatabaseConfig{
			Driver:           "sqlite",
			SQLitePath:       "data/cardcrawl.db",
			PostgresHost:     "localhost",
			PostgresPort:     5432,
			PostgresUser:     "cardcrawl",
			PostgresDatabase: "cardcrawl",
			PostgresSSLMode:  "disable",
		},
		Authoring: AuthoringConfig{
			ListenAddr:     "127.0.0.1:8070",
			AllowedOrigins: []string{}, // Same-origin only by default
			MaxMessageSize: 256 << 10,
			MaxConnections: 32,
			MaxPerIP:       4,
			RateLimit:      20,
			RateWindowMS:   1000,
		},
	}
}

// LoadConfig loads configuration from a YAML file over the defaults.
// A missing file yields the defaults; a file that cannot be parsed yields
// the defaults and the error.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return config, err
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return DefaultConfig(), fmt.Errorf("parse config %s: %w", path, err)
	}
	return config, nil
}

// ApplyEnv overrides fields from CRAWL_* environment variables.
func ApplyEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load is LoadConfig followed by ApplyEnv and Validate.
func Load(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return cfg, err
	}
	if err := ApplyEnv(cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Validate reports every setting outside its usable range.
func (c *Config) Validate() error {
	var errs []error
	if r := c.Economy.ConversionRate; r < 0 || r > 1 {
		errs = append(errs, fmt.Errorf("economy.conversion_rate %v not in [0,1]", r))
	}
	if c.Analyzer.MinSamples < 0 {
		errs = append(errs, fmt.Errorf("analyzer.min_samples %d is negative", c.Analyzer.MinSamples))
	}
	if w := c.Analyzer.MaxEmpiricalWeight; w < 0 || w > 1 {
		errs = append(errs, fmt.Errorf("analyzer.max_empirical_weight %v not in [0,1]", w))
	}
	if c.Analyzer.Confidence <= 0 {
		errs = append(errs, fmt.Errorf("analyzer.confidence %v must be positive", c.Analyzer.Confidence))
	}
	if c.Combat.EnemyTurnDelayMS < 0 || c.Combat.JudgeTimeoutMS < 0 {
		errs = append(errs, errors.New("combat timings must not be negative"))
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("database.driver %q is not sqlite or postgres", c.Database.Driver))
	}
	if c.Authoring.RateLimit < 0 || (c.Authoring.RateLimit > 0 && c.Authoring.RateWindowMS <= 0) {
		errs = append(errs, errors.New("authoring.rate_limit needs a positive rate_window_ms"))
	}
	if _, err := c.Authoring.ProxyNetworks(); err != nil {
		errs = append(errs, err)
	}
	if c.Authoring.MaxMessageSize <= 0 {
		errs = append(errs, fmt.Errorf("authoring.max_message_size %d must be positive", c.Authoring.MaxMessageSize))
	}
	return errors.Join(errs...)
}

// IsOriginAllowed checks if the given origin is allowed based on the config.
// Returns true if:
// - AllowedOrigins contains "*" (allow all)
// - AllowedOrigins contains the exact origin
// - AllowedOrigins is empty and origin matches the request host (same-origin)
func (c *AuthoringConfig) IsOriginAllowed(origin, requestHost string) bool {
	if len(c.AllowedOrigins) == 0 {
		return isSameOrigin(origin, requestHost)
	}

	for _, allowed := range c.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// isSameOrigin checks if the origin matches the request host (same-origin policy).
func isSameOrigin(origin, requestHost string) bool {
	if origin == "" {
		return true // No origin header means same-origin (e.g., non-browser client)
	}

	// "http://localhost:3000" -> "localhost:3000"
	originHost := origin
	if idx := strings.Index(origin, "://"); idx != -1 {
		originHost = origin[idx+3:]
	}
	originHost = strings.TrimSuffix(originHost, "/")

	return strings.EqualFold(originHost, requestHost)
}
