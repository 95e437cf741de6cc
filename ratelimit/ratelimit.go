// Package ratelimit caps authentication-request creation per identity
// and per origin address. The limiter is a pure guard: a denial mutates
// no counters beyond the attempt that was just observed, and any
// backend failure denies rather than allows — request creation is a
// security-critical path and fails closed.
package ratelimit

import (
	"errors"
	"sync"
	"time"
)

// ErrLimited is returned when the identity or origin has exceeded its
// request-creation budget for the current window.
var ErrLimited = errors.New("rate limit exceeded")

// Limiter decides whether a request creation may proceed. Allow
// records the attempt when it is admitted; denied attempts are not
// counted against the caller.
type Limiter interface {
	Allow(identity, origin string, now time.Time) error
}

// Config holds the sliding-window caps. Origin limits are coarser than
// identity limits because many members may share one address.
type Config struct {
	// PerIdentity is the max request creations per identity per Window.
	PerIdentity int
	// PerOrigin is the max request creations per origin per Window.
	PerOrigin int
	// Window is the sliding window duration.
	Window time.Duration
}

// DefaultConfig mirrors the production defaults: three attempts per
// identity per hour, a dozen per origin address.
func DefaultConfig() Config {
	return Config{
		PerIdentity: 3,
		PerOrigin:   12,
		Window:      time.Hour,
	}
}

// MemoryLimiter is a thread-safe in-memory Limiter. Counters are kept
// per process; multi-instance deployments should use RedisLimiter.
type MemoryLimiter struct {
	cfg Config

	mu         sync.Mutex
	byIdentity map[string][]time.Time
	byOrigin   map[string][]time.Time
}

var _ Limiter = (*MemoryLimiter)(nil)

// NewMemoryLimiter creates an in-memory limiter with the given config.
func NewMemoryLimiter(cfg Config) *MemoryLimiter {
	return &MemoryLimiter{
		cfg:        cfg,
		byIdentity: make(map[string][]time.Time),
		byOrigin:   make(map[string][]time.Time),
	}
}

func (l *MemoryLimiter) Allow(identity, origin string, now time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	idAttempts := trimWindow(l.byIdentity[identity], now, l.cfg.Window)
	originAttempts := trimWindow(l.byOrigin[origin], now, l.cfg.Window)
	l.byIdentity[identity] = idAttempts
	l.byOrigin[origin] = originAttempts

	if len(idAttempts) >= l.cfg.PerIdentity || len(originAttempts) >= l.cfg.PerOrigin {
		return ErrLimited
	}

	l.byIdentity[identity] = append(idAttempts, now)
	l.byOrigin[origin] = append(originAttempts, now)
	return nil
}

// Sweep drops identities and origins whose attempts have all aged out.
// Call periodically from a background goroutine.
func (l *MemoryLimiter) Sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, attempts := range l.byIdentity {
		if len(trimWindow(attempts, now, l.cfg.Window)) == 0 {
			delete(l.byIdentity, key)
		}
	}
	for key, attempts := range l.byOrigin {
		if len(trimWindow(attempts, now, l.cfg.Window)) == 0 {
			delete(l.byOrigin, key)
		}
	}
}

// trimWindow removes entries older than (now - window) from the sorted slice.
func trimWindow(times []time.Time, now time.Time, window time.Duration) []time.Time {
	cutoff := now.Add(-window)
	start := 0
	for start < len(times) && times[start].Before(cutoff) {
		start++
	}
	return times[start:]
}
