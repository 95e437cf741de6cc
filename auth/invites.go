package auth

import (
	"encoding/base64"
	"sync"
	"time"

	"github.com/narthex/vouch/internal/util"
)

const (
	inviteTokenBytes = 32
	// DefaultInviteTTL bounds how long an issued invite stays redeemable.
	DefaultInviteTTL = 72 * time.Hour
)

// InviteVerifier is the external collaborator that vouches for a
// first-time joiner's claimed identity. Invite issuance itself lives
// outside this subsystem; the core only needs a yes/no answer that
// consumes the token.
type InviteVerifier interface {
	// Redeem consumes the token for the given identity. Returns false
	// for unknown, expired, or already-redeemed tokens.
	Redeem(token, identity string) bool
}

type inviteState struct {
	Token     string
	Identity  string // empty means the invite is open to any new name
	ExpiresAt time.Time
	Redeemed  bool
}

// MemoryInviteStore is a thread-safe in-memory InviteVerifier with an
// issuing side for the surrounding application. Invites do not survive
// server restarts.
type MemoryInviteStore struct {
	mu      sync.Mutex
	invites map[string]*inviteState
}

var _ InviteVerifier = (*MemoryInviteStore)(nil)

// NewMemoryInviteStore creates an empty invite store.
func NewMemoryInviteStore() *MemoryInviteStore {
	return &MemoryInviteStore{invites: make(map[string]*inviteState)}
}

// Create issues a single-use invite token. identity may be empty to
// leave the invited name open.
func (s *MemoryInviteStore) Create(identity string, ttl time.Duration) (string, error) {
	raw, err := util.RandomBytes(inviteTokenBytes)
	if err != nil {
		return "", err
	}
	token := base64.RawURLEncoding.EncodeToString(raw)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanupLocked()
	s.invites[token] = &inviteState{
		Token:     token,
		Identity:  identity,
		ExpiresAt: time.Now().Add(ttl),
	}
	return token, nil
}

func (s *MemoryInviteStore) Redeem(token, identity string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invites[token]
	if !ok || inv.Redeemed || time.Now().After(inv.ExpiresAt) {
		return false
	}
	if inv.Identity != "" && inv.Identity != identity {
		return false
	}
	inv.Redeemed = true
	return true
}

// cleanupLocked removes expired or redeemed invites. Must be called with mu held.
func (s *MemoryInviteStore) cleanupLocked() {
	now := time.Now()
	for token, inv := range s.invites {
		if inv.Redeemed || now.After(inv.ExpiresAt) {
			delete(s.invites, token)
		}
	}
}
