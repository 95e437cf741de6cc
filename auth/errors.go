package auth

import "errors"

// Recoverable, caller-visible outcomes. Store connectivity failures are
// the only category propagated as plain infrastructure errors.
var (
	// ErrRateLimited is returned when request creation exceeds the
	// configured per-identity or per-origin caps.
	ErrRateLimited = errors.New("too many authentication requests")
	// ErrExpired is returned when acting on a request whose expiry has
	// passed; the request transitions to expired as a side effect.
	ErrExpired = errors.New("authentication request expired")
	// ErrAlreadyResolved is returned when approving or rejecting a
	// request that is no longer pending.
	ErrAlreadyResolved = errors.New("authentication request already resolved")
	// ErrNotFound is returned for an unknown request id.
	ErrNotFound = errors.New("authentication request not found")
	// ErrForbidden is returned when the actor's role or session trust
	// level is insufficient for the operation.
	ErrForbidden = errors.New("operation not permitted")
	// ErrUnknownIdentity is returned when a claim names an identity
	// that does not exist and no invite was presented.
	ErrUnknownIdentity = errors.New("unknown identity")
)
