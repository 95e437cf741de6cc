package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/narthex/vouch/auth"
)

func TestAuditWebhook(t *testing.T) {
	t.Run("DeliversEvents", func(t *testing.T) {
		var mu sync.Mutex
		var received []webhookEvent
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var evt webhookEvent
			if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
				t.Errorf("bad payload: %v", err)
			}
			mu.Lock()
			received = append(received, evt)
			mu.Unlock()
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		hook := newAuditWebhook(srv.URL, "")
		hook.enqueue(webhookEventFromEntry(auth.AuditEntry{
			Action:    auth.ActionRequestApproved,
			Actor:     "root",
			RequestID: "r1",
			CreatedAt: time.Now(),
		}))
		hook.close()

		mu.Lock()
		defer mu.Unlock()
		if len(received) != 1 {
			t.Fatalf("expected 1 delivery, got %d", len(received))
		}
		if received[0].Event != string(auth.ActionRequestApproved) || received[0].Actor != "root" {
			t.Errorf("wrong payload: %+v", received[0])
		}
	})

	t.Run("AuthHeader", func(t *testing.T) {
		var got string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = r.Header.Get("Authorization")
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		hook := newAuditWebhook(srv.URL, "Authorization: Bearer sekrit")
		hook.enqueue(webhookEvent{Event: "vote_cast"})
		hook.close()

		if got != "Bearer sekrit" {
			t.Errorf("expected auth header to be set, got %q", got)
		}
	})

	t.Run("RetriesOn5xx", func(t *testing.T) {
		var mu sync.Mutex
		attempts := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			attempts++
			n := attempts
			mu.Unlock()
			if n == 1 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		hook := newAuditWebhook(srv.URL, "")
		hook.enqueue(webhookEvent{Event: "vote_cast"})
		hook.close()

		mu.Lock()
		defer mu.Unlock()
		if attempts != 2 {
			t.Errorf("expected 2 attempts, got %d", attempts)
		}
	})
}
