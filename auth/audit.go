package auth

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/narthex/vouch/internal/uuid"
	"github.com/narthex/vouch/store"
)

const collectionAudit = "AUDIT"

// SystemActor is recorded when a transition was not caused by a person,
// such as the expiry sweep.
const SystemActor = "system"

// Action identifies the kind of state transition being recorded.
type Action string

const (
	ActionRequestCreated  Action = "request_created"
	ActionRequestApproved Action = "request_approved"
	ActionRequestRejected Action = "request_rejected"
	ActionRequestExpired  Action = "request_expired"
	ActionVoteCast        Action = "vote_cast"
	ActionRateLimited     Action = "rate_limited"
	ActionMemberJoined    Action = "member_joined"
	ActionBootstrapAdmin  Action = "bootstrap_admin"
	ActionLogout          Action = "logout"
)

// AuditEntry is an immutable fact about one state transition.
// Entries are appended, never mutated or deleted.
type AuditEntry struct {
	ID        string    `json:"id"`
	Action    Action    `json:"action"`
	Actor     string    `json:"actor"`
	RequestID string    `json:"request_id,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Origin    string    `json:"origin,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Trail is the append-only audit log: a durable collection plus a
// structured log mirror. The durable write happens after the state
// mutation it describes and is retried once independently of it, so a
// transient store hiccup cannot leave an audit entry for a mutation
// that never happened.
type Trail struct {
	store  store.Store
	logger *slog.Logger
	now    func() time.Time
	// observer, when set, receives every appended entry. The HTTP
	// layer hooks its anomaly collector and webhook dispatcher here.
	observer func(AuditEntry)
}

// NewTrail creates an audit trail writing to the given store and logger.
func NewTrail(st store.Store, logger *slog.Logger) *Trail {
	return &Trail{
		store:  st,
		logger: logger.With("component", "audit"),
		now:    time.Now,
	}
}

// SetObserver registers a callback invoked for every appended entry.
func (t *Trail) SetObserver(fn func(AuditEntry)) {
	t.observer = fn
}

// Append records one state transition. The verification code is never
// part of an entry; the durable trail is admin-readable.
func (t *Trail) Append(action Action, actor, requestID, detail, origin string) error {
	entry := AuditEntry{
		ID:        uuid.New(),
		Action:    action,
		Actor:     actor,
		RequestID: requestID,
		Detail:    detail,
		Origin:    origin,
		CreatedAt: t.now().UTC(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	rec := &store.Record{Data: data, Version: 1}
	if err := t.store.Put(collectionAudit, entry.ID, rec); err != nil {
		// One independent retry; the caller's mutation already stuck.
		if err2 := t.store.Put(collectionAudit, entry.ID, rec); err2 != nil {
			t.logger.Error("audit append failed", "action", string(action), "request_id", requestID, "error", err2)
			return fmt.Errorf("appending audit entry: %w", err2)
		}
	}

	t.logger.Info("audit",
		"action", string(action),
		"actor", actor,
		"request_id", requestID,
		"origin", origin,
	)
	if t.observer != nil {
		t.observer(entry)
	}
	return nil
}

// List returns audit entries, newest first, optionally filtered by the
// subject request id.
func (t *Trail) List(requestID string) ([]AuditEntry, error) {
	ids, err := t.store.List(collectionAudit)
	if err != nil {
		return nil, err
	}
	entries := make([]AuditEntry, 0, len(ids))
	for _, id := range ids {
		rec, err := t.store.Get(collectionAudit, id)
		if err != nil {
			continue
		}
		var entry AuditEntry
		if err := json.Unmarshal(rec.Data, &entry); err != nil {
			continue
		}
		if requestID != "" && entry.RequestID != requestID {
			continue
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	return entries, nil
}
