package auth

import (
	"log/slog"
	"time"

	"github.com/narthex/vouch/ratelimit"
)

// DefaultRequestTTL is how long an authentication request stays
// approvable. Fixed at creation; never extended.
const DefaultRequestTTL = 24 * time.Hour

// Option configures a Service.
type Option func(*Service)

// WithRequestTTL sets the authentication request lifetime.
func WithRequestTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithPeerThreshold sets the distinct-peer quorum T.
func WithPeerThreshold(t int) Option {
	return func(s *Service) {
		if t > 0 {
			s.threshold = t
		}
	}
}

// WithAdmins designates the admin identities. Admin status is injected
// configuration resolved per call, not runtime state.
func WithAdmins(names ...string) Option {
	return func(s *Service) {
		for _, name := range names {
			s.admins[NormalizeIdentity(name)] = struct{}{}
		}
	}
}

// WithRateLimiter replaces the default in-memory limiter.
func WithRateLimiter(l ratelimit.Limiter) Option {
	return func(s *Service) {
		s.limiter = l
	}
}

// WithInviteVerifier sets the external invite collaborator consulted
// for first-time joiners.
func WithInviteVerifier(v InviteVerifier) Option {
	return func(s *Service) {
		s.invites = v
	}
}

// WithLogger sets the structured logger used by the audit trail.
// If not set, a default JSON logger writing to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}
