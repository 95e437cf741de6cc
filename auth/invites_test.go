package auth

import (
	"testing"
	"time"
)

func TestMemoryInviteStore(t *testing.T) {
	t.Run("SingleUse", func(t *testing.T) {
		s := NewMemoryInviteStore()
		token, err := s.Create("", DefaultInviteTTL)
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		if !s.Redeem(token, "newcomer") {
			t.Fatal("fresh token should redeem")
		}
		if s.Redeem(token, "newcomer") {
			t.Error("token must be single-use")
		}
	})

	t.Run("BoundIdentity", func(t *testing.T) {
		s := NewMemoryInviteStore()
		token, _ := s.Create("dana", DefaultInviteTTL)

		if s.Redeem(token, "mallory") {
			t.Error("token bound to dana must not redeem for mallory")
		}
		if !s.Redeem(token, "dana") {
			t.Error("token should still redeem for its bound identity")
		}
	})

	t.Run("Expired", func(t *testing.T) {
		s := NewMemoryInviteStore()
		token, _ := s.Create("", -time.Minute)
		if s.Redeem(token, "late") {
			t.Error("expired token must not redeem")
		}
	})

	t.Run("UnknownToken", func(t *testing.T) {
		s := NewMemoryInviteStore()
		if s.Redeem("no-such-token", "anyone") {
			t.Error("unknown token must not redeem")
		}
	})
}
