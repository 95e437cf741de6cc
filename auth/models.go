// Package auth implements the peer-approval authentication core: the
// request lifecycle state machine, the approval ledger and threshold
// policy, session management, and the durable audit trail.
package auth

import (
	"time"

	"golang.org/x/text/unicode/norm"
)

// Status is the lifecycle state of an authentication request.
// Transitions are one-directional: pending is the only non-terminal
// state.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusExpired  Status = "expired"
)

// Terminal reports whether the status is a sink state.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusExpired
}

// Role is the capacity in which an approver acts, resolved at the time
// of the vote.
type Role string

const (
	// RoleAdmin approvers resolve a request with a single vote.
	RoleAdmin Role = "admin"
	// RoleSelf is the requested identity approving from another,
	// fully-authenticated device of its own.
	RoleSelf Role = "self"
	// RolePeer is any other fully-authenticated community member;
	// peers approve by quorum and cannot reject.
	RolePeer Role = "peer"
)

// Request is one attempt to prove an identity on a new device.
// Device and Origin are untrusted free text supplied by the client.
type Request struct {
	ID         string     `json:"id"`
	Identity   string     `json:"identity"`
	Device     string     `json:"device"`
	Origin     string     `json:"origin"`
	Code       string     `json:"code"`
	Status     Status     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// Approval is one vote cast against a request. At most one exists per
// (request, approver) pair; the ledger's insert-if-absent enforces it.
type Approval struct {
	RequestID string    `json:"request_id"`
	Approver  string    `json:"approver"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is a live login context bound to one identity and one device.
// The ID doubles as the opaque cookie token; it carries no trust claims
// of its own.
type Session struct {
	ID                 string    `json:"id"`
	Identity           string    `json:"identity"`
	Device             string    `json:"device"`
	CreatedAt          time.Time `json:"created_at"`
	ExpiresAt          time.Time `json:"expires_at"`
	LastAccessedAt     time.Time `json:"last_accessed_at"`
	FullyAuthenticated bool      `json:"fully_authenticated"`
	// RequestID names the authentication request this session is
	// waiting on. Empty for sessions that were born fully trusted.
	RequestID string `json:"request_id,omitempty"`
}

// Identity is a community member. No password is ever stored.
type Identity struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// NormalizeIdentity applies NFC normalisation so that visually
// identical Unicode names collide (and therefore go through approval)
// instead of silently coexisting. Comparison stays case-sensitive.
func NormalizeIdentity(name string) string {
	return norm.NFC.String(name)
}
