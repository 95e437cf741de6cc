package auth

import (
	"bytes"
	"testing"
	"time"

	"github.com/narthex/vouch/store/memory"
)

func TestSealedSessionStore(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		st := memory.New()
		sealed, err := NewSealedSessionStore(st, "operator-secret")
		if err != nil {
			t.Fatalf("NewSealedSessionStore failed: %v", err)
		}
		defer sealed.Close()

		session := Session{
			ID:                 "s1",
			Identity:           "alice",
			Device:             "laptop",
			ExpiresAt:          time.Now().Add(time.Hour),
			FullyAuthenticated: true,
		}
		sealed.Put(session)

		got, ok := sealed.Get("s1")
		if !ok {
			t.Fatal("Get should find the session")
		}
		if got.Identity != "alice" || !got.FullyAuthenticated {
			t.Errorf("Get returned wrong session: %+v", got)
		}
	})

	t.Run("CiphertextAtRest", func(t *testing.T) {
		st := memory.New()
		sealed, err := NewSealedSessionStore(st, "operator-secret")
		if err != nil {
			t.Fatalf("NewSealedSessionStore failed: %v", err)
		}
		defer sealed.Close()

		sealed.Put(Session{ID: "s1", Identity: "alice", ExpiresAt: time.Now().Add(time.Hour)})

		rec, err := st.Get("SESSION", "s1")
		if err != nil {
			t.Fatalf("raw record missing: %v", err)
		}
		if bytes.Contains(rec.Data, []byte("alice")) {
			t.Error("session plaintext must not appear in the stored record")
		}
	})

	t.Run("SurvivesReopen", func(t *testing.T) {
		st := memory.New()
		first, err := NewSealedSessionStore(st, "operator-secret")
		if err != nil {
			t.Fatalf("NewSealedSessionStore failed: %v", err)
		}
		first.Put(Session{ID: "s1", Identity: "alice", ExpiresAt: time.Now().Add(time.Hour)})
		first.Close()

		second, err := NewSealedSessionStore(st, "operator-secret")
		if err != nil {
			t.Fatalf("reopen failed: %v", err)
		}
		defer second.Close()

		if _, ok := second.Get("s1"); !ok {
			t.Error("session should survive a reopen with the same secret")
		}
	})

	t.Run("RotatedSecretDropsSessions", func(t *testing.T) {
		st := memory.New()
		first, err := NewSealedSessionStore(st, "old-secret")
		if err != nil {
			t.Fatalf("NewSealedSessionStore failed: %v", err)
		}
		first.Put(Session{ID: "s1", Identity: "alice", ExpiresAt: time.Now().Add(time.Hour)})
		first.Close()

		second, err := NewSealedSessionStore(st, "new-secret")
		if err != nil {
			t.Fatalf("reopen with rotated secret failed: %v", err)
		}
		defer second.Close()

		if _, ok := second.Get("s1"); ok {
			t.Error("sessions sealed under the old secret must be unreadable")
		}
	})

	t.Run("ExpiredNotReturned", func(t *testing.T) {
		st := memory.New()
		sealed, err := NewSealedSessionStore(st, "operator-secret")
		if err != nil {
			t.Fatalf("NewSealedSessionStore failed: %v", err)
		}
		defer sealed.Close()

		sealed.Put(Session{ID: "s1", Identity: "alice", ExpiresAt: time.Now().Add(-time.Minute)})
		if _, ok := sealed.Get("s1"); ok {
			t.Error("expired session should not be returned")
		}
		if len(sealed.All()) != 0 {
			t.Error("expired session should not be listed")
		}
	})
}
