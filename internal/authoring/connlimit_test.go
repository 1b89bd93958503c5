package authoring

import (
	"testing"

	"github.com/lawnchairsociety/cardcrawl/internal/config"
)

func TestConnLimiter_PerIPLimit(t *testing.T) {
	limiter := NewConnLimiter(config.AuthoringConfig{MaxPerIP: 2, MaxConnections: 100})

	if !limiter.TryAcquire("192.168.1.1") || !limiter.TryAcquire("192.168.1.1") {
		t.Fatal("first two sessions should be allowed")
	}
	if limiter.TryAcquire("192.168.1.1") {
		t.Error("third session from same IP should be rejected")
	}
	if !limiter.TryAcquire("192.168.1.2") {
		t.Error("session from different IP should be allowed")
	}

	limiter.Release("192.168.1.1")
	if !limiter.TryAcquire("192.168.1.1") {
		t.Error("session should be allowed after release")
	}
}

func TestConnLimiter_TotalLimit(t *testing.T) {
	limiter := NewConnLimiter(config.AuthoringConfig{MaxPerIP: 10, MaxConnections: 2})

	limiter.TryAcquire("a")
	limiter.TryAcquire("b")
	if limiter.TryAcquire("c") {
		t.Error("total limit should reject a third session")
	}
	if total, ips := limiter.Stats(); total != 2 || ips != 2 {
		t.Errorf("stats = %d, %d", total, ips)
	}
}

func TestConnLimiter_Unlimited(t *testing.T) {
	limiter := NewConnLimiter(config.AuthoringConfig{})
	for i := 0; i < 50; i++ {
		if !limiter.TryAcquire("a") {
			t.Fatalf("session %d rejected with no limits", i)
		}
	}
}

func TestConnLimiter_ReleaseUnknown(t *testing.T) {
	limiter := NewConnLimiter(config.AuthoringConfig{MaxConnections: 1})
	limiter.Release("nobody")
	if total, _ := limiter.Stats(); total != 0 {
		t.Errorf("release of unknown IP changed count to %d", total)
	}
	if !limiter.TryAcquire("a") {
		t.Error("slot should still be free")
	}
}
