package config

import (
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg == nil {
		t.Fatal("DefaultConfig returned nil")
	}

	if len(cfg.Authoring.AllowedOrigins) != 0 {
		t.Errorf("expected empty allowed origins by default, got %v", cfg.Authoring.AllowedOrigins)
	}
	if cfg.Economy.ConversionRate != 0.5 {
		t.Errorf("expected conversion rate 0.5, got %v", cfg.Economy.ConversionRate)
	}
	if cfg.Analyzer.MinSamples != 10 || cfg.Analyzer.MaxEmpiricalWeight != 0.65 || cfg.Analyzer.Confidence != 20 {
		t.Errorf("unexpected analyzer defaults %+v", cfg.Analyzer)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("expected sqlite driver, got %s", cfg.Database.Driver)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadConfig_FileNotExists(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.yaml")

	if err != nil {
		t.Errorf("expected no error for missing file, got %v", err)
	}

	if cfg == nil {
		t.Fatal("expected default config for missing file, got nil")
	}

	if cfg.Authoring.MaxMessageSize != DefaultConfig().Authoring.MaxMessageSize {
		t.Errorf("expected default max message size")
	}
}

func TestLoadConfig_ValidFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "crawl.yaml")

	content := `
economy:
  conversion_rate: 0.25
combat:
  enemy_turn_delay_ms: 400
authoring:
  allowed_origins:
    - "https://example.com"
    - "http://localhost:3000"
  max_message_size: 8192
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(cfg.Authoring.AllowedOrigins) != 2 {
		t.Errorf("expected 2 allowed origins, got %d", len(cfg.Authoring.AllowedOrigins))
	}
	if cfg.Authoring.AllowedOrigins[0] != "https://example.com" {
		t.Errorf("expected first origin 'https://example.com', got %s", cfg.Authoring.AllowedOrigins[0])
	}
	if cfg.Authoring.MaxMessageSize != 8192 {
		t.Errorf("expected max message size 8192, got %d", cfg.Authoring.MaxMessageSize)
	}
	if cfg.Economy.ConversionRate != 0.25 {
		t.Errorf("expected conversion rate 0.25, got %v", cfg.Economy.ConversionRate)
	}
	if cfg.Combat.EnemyTurnDelay() != 400*time.Millisecond {
		t.Errorf("expected 400ms delay, got %v", cfg.Combat.EnemyTurnDelay())
	}

	// Unset sections keep their defaults.
	if cfg.Analyzer.MinSamples != 10 || cfg.Database.SQLitePath != "data/cardcrawl.db" {
		t.Errorf("defaults lost: %+v %+v", cfg.Analyzer, cfg.Database)
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(configPath, []byte("economy: [not, a, map"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(configPath)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), "bad.yaml") {
		t.Errorf("error should name the file: %v", err)
	}
	if cfg == nil || cfg.Economy.ConversionRate != 0.5 {
		t.Errorf("expected defaults alongside the error, got %+v", cfg)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("CRAWL_CONVERSION_RATE", "0.8")
	t.Setenv("CRAWL_ANALYZER_MIN_SAMPLES", "3")
	t.Setenv("CRAWL_DB_DRIVER", "postgres")
	t.Setenv("CRAWL_DB_POSTGRES_PORT", "6543")
	t.Setenv("CRAWL_AUTHORING_ALLOWED_ORIGINS", "https://a.test,https://b.test")

	cfg := DefaultConfig()
	if err := ApplyEnv(cfg); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}

	if cfg.Economy.ConversionRate != 0.8 {
		t.Errorf("conversion rate = %v", cfg.Economy.ConversionRate)
	}
	if cfg.Analyzer.MinSamples != 3 {
		t.Errorf("min samples = %d", cfg.Analyzer.MinSamples)
	}
	if cfg.Database.Driver != "postgres" || cfg.Database.PostgresPort != 6543 {
		t.Errorf("database = %+v", cfg.Database)
	}
	if len(cfg.Authoring.AllowedOrigins) != 2 || cfg.Authoring.AllowedOrigins[1] != "https://b.test" {
		t.Errorf("origins = %v", cfg.Authoring.AllowedOrigins)
	}

	// Untouched variables keep the existing value.
	if cfg.Analyzer.Confidence != 20 {
		t.Errorf("confidence = %v", cfg.Analyzer.Confidence)
	}
}

func TestApplyEnv_BadValue(t *testing.T) {
	t.Setenv("CRAWL_ANALYZER_MIN_SAMPLES", "many")

	err := ApplyEnv(DefaultConfig())
	if err == nil || !strings.Contains(err.Error(), "parse env") {
		t.Errorf("expected wrapped env error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"conversion rate above one", func(c *Config) { c.Economy.ConversionRate = 1.5 }, "conversion_rate"},
		{"negative samples", func(c *Config) { c.Analyzer.MinSamples = -1 }, "min_samples"},
		{"weight above one", func(c *Config) { c.Analyzer.MaxEmpiricalWeight = 2 }, "max_empirical_weight"},
		{"zero confidence", func(c *Config) { c.Analyzer.Confidence = 0 }, "confidence"},
		{"negative delay", func(c *Config) { c.Combat.EnemyTurnDelayMS = -5 }, "combat"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, "mysql"},
		{"zero message size", func(c *Config) { c.Authoring.MaxMessageSize = 0 }, "max_message_size"},
		{"rate without window", func(c *Config) { c.Authoring.RateWindowMS = 0 }, "rate_window_ms"},
		{"bad trusted proxy", func(c *Config) { c.Authoring.TrustedProxies = []string{"proxy.local"} }, "trusted_proxies"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestProxyNetworks(t *testing.T) {
	cfg := AuthoringConfig{TrustedProxies: []string{"10.0.0.0/8", " 192.168.1.5 ", "", "::1"}}
	nets, err := cfg.ProxyNetworks()
	if err != nil {
		t.Fatalf("ProxyNetworks: %v", err)
	}
	if len(nets) != 3 {
		t.Fatalf("got %d networks, want 3", len(nets))
	}
	tests := []struct {
		ip   string
		want bool
	}{
		{"10.20.30.40", true},
		{"192.168.1.5", true},
		{"192.168.1.6", false},
		{"::1", true},
		{"11.0.0.1", false},
	}
	for _, tt := range tests {
		got := false
		for _, n := range nets {
			if n.Contains(net.ParseIP(tt.ip)) {
				got = true
			}
		}
		if got != tt.want {
			t.Errorf("%s trusted = %v, want %v", tt.ip, got, tt.want)
		}
	}

	if nets, err := (AuthoringConfig{}).ProxyNetworks(); err != nil || len(nets) != 0 {
		t.Errorf("empty list = %v, %v", nets, err)
	}
}

func TestTrustedProxiesFromEnv(t *testing.T) {
	t.Setenv("CRAWL_AUTHORING_TRUSTED_PROXIES", "10.0.0.1,10.0.1.0/24")
	cfg := DefaultConfig()
	if err := ApplyEnv(cfg); err != nil {
		t.Fatal(err)
	}
	if len(cfg.Authoring.TrustedProxies) != 2 || cfg.Authoring.TrustedProxies[1] != "10.0.1.0/24" {
		t.Errorf("trusted proxies = %v", cfg.Authoring.TrustedProxies)
	}
}

func TestLoad(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "crawl.yaml")
	if err := os.WriteFile(configPath, []byte("economy:\n  conversion_rate: 0.3\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CRAWL_CONVERSION_RATE", "0.4")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Economy.ConversionRate != 0.4 {
		t.Errorf("environment should win over file, got %v", cfg.Economy.ConversionRate)
	}

	t.Setenv("CRAWL_CONVERSION_RATE", "7")
	if _, err := Load(configPath); err == nil {
		t.Error("expected validation error")
	}
}

func TestIsOriginAllowed_EmptyList_SameOrigin(t *testing.T) {
	cfg := AuthoringConfig{
		AllowedOrigins: []string{},
	}

	// Same origin (no Origin header)
	if !cfg.IsOriginAllowed("", "localhost:8070") {
		t.Error("expected empty origin to be allowed (same-origin)")
	}

	// Same origin (matching host)
	if !cfg.IsOriginAllowed("http://localhost:8070", "localhost:8070") {
		t.Error("expected matching origin to be allowed (same-origin)")
	}

	// Different origin should be rejected
	if cfg.IsOriginAllowed("http://evil.com", "localhost:8070") {
		t.Error("expected different origin to be rejected (same-origin policy)")
	}
}

func TestIsOriginAllowed_Wildcard(t *testing.T) {
	cfg := AuthoringConfig{
		AllowedOrigins: []string{"*"},
	}

	if !cfg.IsOriginAllowed("http://anything.com", "localhost:8070") {
		t.Error("expected wildcard to allow any origin")
	}

	if !cfg.IsOriginAllowed("", "localhost:8070") {
		t.Error("expected wildcard to allow empty origin")
	}
}

func TestIsOriginAllowed_ExactMatch(t *testing.T) {
	cfg := AuthoringConfig{
		AllowedOrigins: []string{
			"https://example.com",
			"http://localhost:3000",
		},
	}

	if !cfg.IsOriginAllowed("https://example.com", "localhost:8070") {
		t.Error("expected exact match to be allowed")
	}

	if !cfg.IsOriginAllowed("http://localhost:3000", "localhost:8070") {
		t.Error("expected exact match to be allowed")
	}

	if cfg.IsOriginAllowed("http://evil.com", "localhost:8070") {
		t.Error("expected non-matching origin to be rejected")
	}

	// Partial match should not work
	if cfg.IsOriginAllowed("https://example.com:8080", "localhost:8070") {
		t.Error("expected partial match to be rejected")
	}
}

func TestIsSameOrigin(t *testing.T) {
	tests := []struct {
		origin      string
		requestHost string
		expected    bool
	}{
		{"", "localhost:8070", true},
		{"http://localhost:8070", "localhost:8070", true},
		{"https://localhost:8070", "localhost:8070", true},
		{"http://localhost:8070/", "localhost:8070", true},
		{"http://LOCALHOST:8070", "localhost:8070", true},
		{"http://example.com", "localhost:8070", false},
		{"http://localhost:3000", "localhost:8070", false},
		{"ws://localhost:8070", "localhost:8070", true},
	}

	for _, tt := range tests {
		result := isSameOrigin(tt.origin, tt.requestHost)
		if result != tt.expected {
			t.Errorf("isSameOrigin(%q, %q) = %v, want %v",
				tt.origin, tt.requestHost, result, tt.expected)
		}
	}
}
