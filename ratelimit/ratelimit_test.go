package ratelimit

import (
	"fmt"
	"testing"
	"time"
)

func TestMemoryLimiter(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("PerIdentityCap", func(t *testing.T) {
		l := NewMemoryLimiter(DefaultConfig())
		for i := 0; i < 3; i++ {
			if err := l.Allow("alice", "10.0.0.1", base); err != nil {
				t.Fatalf("attempt %d should be allowed: %v", i+1, err)
			}
		}
		if err := l.Allow("alice", "10.0.0.1", base); err != ErrLimited {
			t.Errorf("Expected ErrLimited on fourth attempt, got %v", err)
		}

		// Other identities from the same origin are unaffected.
		if err := l.Allow("bob", "10.0.0.1", base); err != nil {
			t.Errorf("bob should be allowed: %v", err)
		}
	})

	t.Run("PerOriginCap", func(t *testing.T) {
		l := NewMemoryLimiter(DefaultConfig())
		for i := 0; i < 12; i++ {
			identity := fmt.Sprintf("member%d", i)
			if err := l.Allow(identity, "10.0.0.9", base); err != nil {
				t.Fatalf("attempt %d should be allowed: %v", i+1, err)
			}
		}
		if err := l.Allow("fresh", "10.0.0.9", base); err != ErrLimited {
			t.Errorf("Expected ErrLimited after origin cap, got %v", err)
		}
		if err := l.Allow("fresh", "10.0.0.10", base); err != nil {
			t.Errorf("different origin should be allowed: %v", err)
		}
	})

	t.Run("WindowSlides", func(t *testing.T) {
		l := NewMemoryLimiter(Config{PerIdentity: 1, PerOrigin: 10, Window: time.Hour})
		if err := l.Allow("alice", "10.0.0.1", base); err != nil {
			t.Fatalf("first attempt should be allowed: %v", err)
		}
		if err := l.Allow("alice", "10.0.0.1", base.Add(30*time.Minute)); err != ErrLimited {
			t.Errorf("Expected ErrLimited inside window, got %v", err)
		}
		if err := l.Allow("alice", "10.0.0.1", base.Add(61*time.Minute)); err != nil {
			t.Errorf("attempt after window should be allowed: %v", err)
		}
	})

	t.Run("DeniedAttemptsNotCounted", func(t *testing.T) {
		l := NewMemoryLimiter(Config{PerIdentity: 2, PerOrigin: 100, Window: time.Hour})
		l.Allow("alice", "o", base)
		l.Allow("alice", "o", base)

		// Hammering while limited must not extend the lockout.
		for i := 0; i < 50; i++ {
			if err := l.Allow("alice", "o", base.Add(time.Duration(i)*time.Minute)); err != ErrLimited {
				t.Fatalf("attempt at +%dm should be limited, got %v", i, err)
			}
		}
		if err := l.Allow("alice", "o", base.Add(61*time.Minute)); err != nil {
			t.Errorf("attempt after original window should be allowed: %v", err)
		}
	})

	t.Run("Sweep", func(t *testing.T) {
		l := NewMemoryLimiter(DefaultConfig())
		l.Allow("alice", "10.0.0.1", base)
		l.Sweep(base.Add(2 * time.Hour))
		if len(l.byIdentity) != 0 || len(l.byOrigin) != 0 {
			t.Errorf("Sweep should drop aged-out entries: %d identities, %d origins",
				len(l.byIdentity), len(l.byOrigin))
		}
	})
}
