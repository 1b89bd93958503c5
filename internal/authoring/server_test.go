package authoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lawnchairsociety/cardcrawl/internal/analyzer"
	"github.com/lawnchairsociety/cardcrawl/internal/config"
	"github.com/lawnchairsociety/cardcrawl/internal/dungeon"
	"github.com/lawnchairsociety/cardcrawl/internal/run"
)

const cryptLayout = `{
	"id": "crypt",
	"name": "The Crypt",
	"difficulty": "HARD",
	"room_count": 4,
	"steps": [
		{"type": "SINGLE", "rooms": [{"category": "ENEMY_SINGLE", "name": "Ghoul", "description": "Hungry."}]},
		{"type": "FORK", "rooms": [
			{"category": "SHRINE", "name": "Altar", "description": "Old."},
			{"category": "TRAP_ROOM", "name": "Pit", "description": "Deep."}
		]},
		{"type": "SINGLE", "rooms": [{"category": "ENEMY_BOSS", "name": "Lich", "description": "Cold."}]}
	]
}`

type fakeSource struct {
	aggs map[string]*run.Aggregate
	err  error
}

func (f *fakeSource) LoadAggregate(ctx context.Context, id string) (*run.Aggregate, error) {
	if f.err != nil {
		return nil, f.err
	}
	if a, ok := f.aggs[id]; ok {
		return a, nil
	}
	return &run.Aggregate{}, nil
}

func testConfig() config.AuthoringConfig {
	cfg := config.DefaultConfig().Authoring
	cfg.AllowedOrigins = []string{"*"}
	return cfg
}

func startServer(t *testing.T, s *Server) string {
	t.Helper()
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + AnalyzePath
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, msg string) []byte {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatalf("write: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, reply, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return reply
}

func TestAnalyzeMatchesInProcess(t *testing.T) {
	agg := &run.Aggregate{Runs: 40, Clears: 10, Deaths: 30, Seconds: 4000}
	source := &fakeSource{aggs: map[string]*run.Aggregate{"crypt": agg}}
	cfg := analyzer.DefaultConfig()
	conn := dial(t, startServer(t, New(testConfig(), cfg, source)))

	reply := roundTrip(t, conn, cryptLayout)

	doc, err := dungeon.ParseDocument([]byte(cryptLayout))
	if err != nil {
		t.Fatal(err)
	}
	want, err := json.Marshal(analyzer.Analyze(analyzer.LayoutFromDocument(doc), agg, cfg))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(reply, want) {
		t.Errorf("reply differs from in-process analysis\n got: %s\nwant: %s", reply, want)
	}

	var res analyzer.Result
	if err := json.Unmarshal(reply, &res); err != nil {
		t.Fatal(err)
	}
	if res.Summary.Samples != 40 || len(res.Heatmap) != 3 {
		t.Errorf("summary = %+v heatmap = %v", res.Summary, res.Heatmap)
	}
}

func TestSessionSurvivesBadMessage(t *testing.T) {
	conn := dial(t, startServer(t, New(testConfig(), analyzer.DefaultConfig(), nil)))

	var bad ErrorReply
	if err := json.Unmarshal(roundTrip(t, conn, "not json"), &bad); err != nil || bad.Error == "" {
		t.Fatalf("expected error reply, got %+v (%v)", bad, err)
	}
	if err := json.Unmarshal(roundTrip(t, conn, `{"steps": 7}`), &bad); err != nil || bad.Error == "" {
		t.Fatalf("expected error reply for wrong shape, got %+v (%v)", bad, err)
	}

	var res analyzer.Result
	if err := json.Unmarshal(roundTrip(t, conn, cryptLayout), &res); err != nil {
		t.Fatal(err)
	}
	if res.Summary.Samples != 0 {
		t.Errorf("analysis without a source should be uncalibrated, got %d samples", res.Summary.Samples)
	}
}

func TestUnavailableTelemetryIsUncalibrated(t *testing.T) {
	s := New(testConfig(), analyzer.DefaultConfig(), &fakeSource{err: errors.New("db down")})

	res, err := s.Analyze(context.Background(), []byte(cryptLayout))
	if err != nil {
		t.Fatal(err)
	}
	if res.Summary.CalibratedClearRate != res.Summary.EstimatedClearRate {
		t.Errorf("calibrated %v, estimated %v", res.Summary.CalibratedClearRate, res.Summary.EstimatedClearRate)
	}
}

func TestOriginRejected(t *testing.T) {
	cfg := testConfig()
	cfg.AllowedOrigins = []string{"https://editor.example"}
	url := startServer(t, New(cfg, analyzer.DefaultConfig(), nil))

	header := http.Header{"Origin": []string{"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err == nil {
		t.Fatal("expected handshake to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403, got %v", resp)
	}

	header.Set("Origin", "https://editor.example")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("allowed origin rejected: %v", err)
	}
	conn.Close()
}

func TestConnectionLimit(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConnections = 1
	url := startServer(t, New(cfg, analyzer.DefaultConfig(), nil))

	first := dial(t, url)
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("second session should be refused")
	}
	if resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %v", resp)
	}

	first.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	first.Close()

	// The slot frees once the server notices the close.
	deadline := time.Now().Add(2 * time.Second)
	for {
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err == nil {
			conn.Close()
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("slot never released: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestOversizedMessageClosesSession(t *testing.T) {
	cfg := testConfig()
	cfg.MaxMessageSize = 64
	conn := dial(t, startServer(t, New(cfg, analyzer.DefaultConfig(), nil)))

	if err := conn.WriteMessage(websocket.TextMessage, []byte(cryptLayout)); err != nil {
		t.Fatalf("write: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseMessageTooBig) {
		t.Errorf("expected close 1009, got %v", err)
	}
}

func TestHealth(t *testing.T) {
	s := New(testConfig(), analyzer.DefaultConfig(), nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	var body map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["sessions"] != 0 {
		t.Errorf("health = %v", body)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		proxies []string
		header  map[string]string
		remote  string
		want    string
	}{
		{"remote only", nil, nil, "10.0.0.1:5555", "10.0.0.1"},
		{"untrusted forwarded", nil, map[string]string{"X-Forwarded-For": "1.2.3.4"}, "10.0.0.1:5555", "10.0.0.1"},
		{"untrusted real ip", nil, map[string]string{"X-Real-IP": "5.6.7.8"}, "10.0.0.1:5555", "10.0.0.1"},
		{"forwarded chain", []string{"10.0.0.0/8"}, map[string]string{"X-Forwarded-For": "1.2.3.4, 10.0.0.2"}, "10.0.0.1:5555", "1.2.3.4"},
		{"real ip", []string{"10.0.0.1"}, map[string]string{"X-Real-IP": " 5.6.7.8 "}, "10.0.0.1:5555", "5.6.7.8"},
		{"peer outside proxies", []string{"10.0.0.0/24"}, map[string]string{"X-Forwarded-For": "1.2.3.4"}, "192.168.1.9:5555", "192.168.1.9"},
		{"trusted without headers", []string{"10.0.0.1"}, nil, "10.0.0.1:5555", "10.0.0.1"},
		{"unsplittable", []string{"10.0.0.0/8"}, map[string]string{"X-Forwarded-For": "1.2.3.4"}, "pipe", "pipe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.TrustedProxies = tt.proxies
			limiter := NewConnLimiter(cfg)
			r := httptest.NewRequest(http.MethodGet, AnalyzePath, nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.header {
				r.Header.Set(k, v)
			}
			if got := limiter.ClientIP(r); got != tt.want {
				t.Errorf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSpoofedForwardingSharesPeerLimit(t *testing.T) {
	cfg := testConfig()
	cfg.MaxPerIP = 1
	limiter := NewConnLimiter(cfg)
	for i, fake := range []string{"1.1.1.1", "2.2.2.2"} {
		r := httptest.NewRequest(http.MethodGet, AnalyzePath, nil)
		r.RemoteAddr = "203.0.113.7:4000"
		r.Header.Set("X-Forwarded-For", fake)
		ok := limiter.TryAcquire(limiter.ClientIP(r))
		if ok != (i == 0) {
			t.Errorf("acquire %d with forwarded %s = %v", i, fake, ok)
		}
	}
}

func TestSessionThrottled(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = 1
	cfg.RateWindowMS = 60_000
	conn := dial(t, startServer(t, New(cfg, analyzer.DefaultConfig(), nil)))

	var res analyzer.Result
	if err := json.Unmarshal(roundTrip(t, conn, cryptLayout), &res); err != nil || len(res.Heatmap) == 0 {
		t.Fatalf("first analysis = %+v, %v", res, err)
	}

	var throttled ErrorReply
	if err := json.Unmarshal(roundTrip(t, conn, cryptLayout), &throttled); err != nil {
		t.Fatal(err)
	}
	if throttled.Error == "" || throttled.RetryAfterMS <= 0 {
		t.Errorf("expected throttle reply, got %+v", throttled)
	}
}
