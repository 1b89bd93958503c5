// Package authoring serves the live layout analyzer to dungeon editors over
// WebSocket.
package authoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"

	"github.com/lawnchairsociety/cardcrawl/internal/analyzer"
	"github.com/lawnchairsociety/cardcrawl/internal/config"
	"github.com/lawnchairsociety/cardcrawl/internal/dungeon"
	"github.com/lawnchairsociety/cardcrawl/internal/logger"
	"github.com/lawnchairsociety/cardcrawl/internal/run"
)

// AnalyzePath is the WebSocket endpoint.
const AnalyzePath = "/ws/analyze"

const (
	writeTimeout     = 10 * time.Second
	aggregateTimeout = 2 * time.Second
	shutdownTimeout  = 5 * time.Second
)

// AggregateSource supplies recorded telemetry for a dungeon id.
type AggregateSource interface {
	LoadAggregate(ctx context.Context, dungeonID string) (*run.Aggregate, error)
}

// ErrorReply is sent instead of an analysis when a message cannot be used.
type ErrorReply struct {
	Error        string `json:"error"`
	RetryAfterMS int64  `json:"retry_after_ms,omitempty"`
}

// Server answers each layout message with its analysis.
type Server struct {
	cfg      config.AuthoringConfig
	analysis analyzer.Config
	source   AggregateSource
	limiter  *ConnLimiter
	upgrader websocket.Upgrader
}

// New creates a Server. source may be nil, in which case analyses are
// never calibrated.
func New(cfg config.AuthoringConfig, analysis analyzer.Config, source AggregateSource) *Server {
	s := &Server{
		cfg:      cfg,
		analysis: analysis,
		source:   source,
		limiter:  NewConnLimiter(cfg),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			allowed := s.cfg.IsOriginAllowed(origin, r.Host)
			if !allowed {
				logger.Warning("Editor connection rejected - origin not allowed",
					"origin", origin,
					"host", r.Host,
					"remote_addr", r.RemoteAddr)
			}
			return allowed
		},
	}
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(AnalyzePath, s.handleUpgrade)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

// ListenAndServe serves on the configured address until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Authoring server listening", "address", s.cfg.ListenAddr, "path", AnalyzePath)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown authoring server: %w", err)
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	total, ips := s.limiter.Stats()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"sessions": total, "clients": ips})
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	ip := s.limiter.ClientIP(r)

	if !s.limiter.TryAcquire(ip) {
		logger.Warning("Editor connection rejected - limit exceeded",
			"remote_addr", r.RemoteAddr,
			"client_ip", ip)
		http.Error(w, "Too many connections. Please try again later.", http.StatusTooManyRequests)
		return
	}
	defer s.limiter.Release(ip)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debug("Editor upgrade failed", "client_ip", ip, "error", err)
		return
	}
	defer conn.Close()

	logger.Info("Editor connected", "client_ip", ip)
	s.serve(r.Context(), conn, ip)
	logger.Info("Editor disconnected", "client_ip", ip)
}

func (s *Server) serve(ctx context.Context, conn *websocket.Conn, ip string) {
	conn.SetReadLimit(s.cfg.MaxMessageSize)
	throttle := NewThrottle(s.cfg.RateLimit, s.cfg.RateWindow())

	for {
		kind, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("Editor read failed", "client_ip", ip, "error", err)
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}

		var reply []byte
		if ok, wait := throttle.Allow(); ok {
			reply, err = s.Reply(ctx, msg)
		} else {
			logger.Debug("Editor throttled", "client_ip", ip, "wait", wait)
			reply, err = json.Marshal(ErrorReply{
				Error:        "too many analyses, slow down",
				RetryAfterMS: max(1, wait.Milliseconds()),
			})
		}
		if err != nil {
			logger.Error("Failed to encode analysis", "client_ip", ip, "error", err)
			return
		}
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, reply); err != nil {
			logger.Debug("Editor write failed", "client_ip", ip, "error", err)
			return
		}
	}
}

// Reply encodes the answer to one layout message: the analysis, or an
// ErrorReply when the layout cannot be read.
func (s *Server) Reply(ctx context.Context, msg []byte) ([]byte, error) {
	res, err := s.Analyze(ctx, msg)
	if err != nil {
		return json.Marshal(ErrorReply{Error: err.Error()})
	}
	return json.Marshal(res)
}

// Analyze parses a layout document and scores it, calibrating against the
// source's telemetry when the document names a dungeon id.
func (s *Server) Analyze(ctx context.Context, msg []byte) (analyzer.Result, error) {
	if !gjson.ValidBytes(msg) {
		return analyzer.Result{}, errors.New("layout is not valid JSON")
	}
	doc, err := dungeon.ParseDocument(msg)
	if err != nil {
		return analyzer.Result{}, err
	}
	agg := s.aggregate(ctx, gjson.GetBytes(msg, "id").String())
	return analyzer.Analyze(analyzer.LayoutFromDocument(doc), agg, s.analysis), nil
}

func (s *Server) aggregate(ctx context.Context, id string) *run.Aggregate {
	if s.source == nil || id == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, aggregateTimeout)
	defer cancel()
	agg, err := s.source.LoadAggregate(ctx, id)
	if err != nil {
		logger.Warning("Telemetry unavailable, analysis uncalibrated", "dungeon_id", id, "error", err)
		return nil
	}
	return agg
}
