package auth

import (
	"time"

	"github.com/narthex/vouch/internal/uuid"
)

// DefaultSessionTTL bounds how long a session cookie stays valid.
const DefaultSessionTTL = 30 * 24 * time.Hour

// SessionManager is the only component that mints or changes the trust
// level consumed by the rest of the application. No other component
// mutates FullyAuthenticated.
type SessionManager struct {
	store SessionStore
	ttl   time.Duration
	now   func() time.Time
}

// NewSessionManager creates a session manager over the given store.
// A ttl of 0 selects DefaultSessionTTL.
func NewSessionManager(store SessionStore, ttl time.Duration) *SessionManager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionManager{store: store, ttl: ttl, now: time.Now}
}

// CreateProvisional mints a session that is not yet trusted; it waits
// on the given authentication request.
func (m *SessionManager) CreateProvisional(identity, device, requestID string) Session {
	return m.create(identity, device, requestID, false)
}

// CreateFull mints a fully-authenticated session. Used for invited
// first-time joiners and admin bootstrap, where no approval applies.
func (m *SessionManager) CreateFull(identity, device string) Session {
	return m.create(identity, device, "", true)
}

func (m *SessionManager) create(identity, device, requestID string, full bool) Session {
	now := m.now()
	session := Session{
		ID:                 uuid.New(),
		Identity:           identity,
		Device:             device,
		CreatedAt:          now.UTC(),
		ExpiresAt:          now.Add(m.ttl).UTC(),
		LastAccessedAt:     now.UTC(),
		FullyAuthenticated: full,
		RequestID:          requestID,
	}
	m.store.Put(session)
	return session
}

// Get returns a live session by its opaque token.
func (m *SessionManager) Get(id string) (Session, bool) {
	return m.store.Get(id)
}

// Touch updates the last-accessed timestamp.
func (m *SessionManager) Touch(session Session) {
	session.LastAccessedAt = m.now().UTC()
	m.store.Put(session)
}

// Escalate flips every live session waiting on the given request to
// fully authenticated. The change is durable before Escalate returns,
// so the next poll from any of those devices sees full trust.
func (m *SessionManager) Escalate(requestID string) int {
	n := 0
	for _, session := range m.store.All() {
		if session.RequestID != requestID || session.FullyAuthenticated {
			continue
		}
		session.FullyAuthenticated = true
		m.store.Put(session)
		n++
	}
	return n
}

// Invalidate terminates a session immediately.
func (m *SessionManager) Invalidate(id string) {
	m.store.Delete(id)
}

// HasLiveSession reports whether the identity currently owns any live
// session. Used for first-admin bootstrap detection.
func (m *SessionManager) HasLiveSession(identity string) bool {
	for _, session := range m.store.All() {
		if session.Identity == identity {
			return true
		}
	}
	return false
}
