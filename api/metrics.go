package api

import (
	"sync"
	"time"

	"github.com/narthex/vouch/auth"
)

// AlertType identifies the kind of anomaly detected.
type AlertType string

const (
	// AlertDenialSpike fires when rate-limit denials accumulate fast
	// enough to suggest a scripted identity-claim attack.
	AlertDenialSpike AlertType = "denial_spike"
	// AlertRejectionSpike fires when many requests are rejected in a
	// short window, which usually means someone is probing identities.
	AlertRejectionSpike AlertType = "rejection_spike"
)

// AlertEvent describes an anomaly that triggered an alert.
type AlertEvent struct {
	Type      AlertType `json:"type"`
	Message   string    `json:"message"`
	Count     int       `json:"count"`
	Threshold int       `json:"threshold"`
	Timestamp time.Time `json:"timestamp"`
}

// AlertFunc is the callback invoked when an anomaly is detected.
type AlertFunc func(AlertEvent)

// metricsCollector tracks sliding window counters over audit entries
// for anomaly detection.
type metricsCollector struct {
	mu sync.Mutex

	denials         []time.Time
	denialWindow    time.Duration
	denialThreshold int
	rejects         []time.Time
	rejectWindow    time.Duration
	rejectThreshold int

	alertFn AlertFunc
}

const (
	defaultDenialWindow    = 5 * time.Minute
	defaultDenialThreshold = 20
	defaultRejectWindow    = 10 * time.Minute
	defaultRejectThreshold = 10
)

func newMetricsCollector(alertFn AlertFunc) *metricsCollector {
	return &metricsCollector{
		denialWindow:    defaultDenialWindow,
		denialThreshold: defaultDenialThreshold,
		rejectWindow:    defaultRejectWindow,
		rejectThreshold: defaultRejectThreshold,
		alertFn:         alertFn,
	}
}

// recordEntry inspects an audit entry and updates the relevant counters.
func (m *metricsCollector) recordEntry(entry auth.AuditEntry) {
	if m == nil || m.alertFn == nil {
		return
	}
	switch entry.Action {
	case auth.ActionRateLimited:
		m.recordDenial()
	case auth.ActionRequestRejected:
		m.recordRejection()
	}
}

func (m *metricsCollector) recordDenial() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.denials = append(m.denials, now)
	m.denials = trimWindow(m.denials, now, m.denialWindow)

	if len(m.denials) >= m.denialThreshold {
		m.alertFn(AlertEvent{
			Type:      AlertDenialSpike,
			Message:   "rate-limit denial rate exceeds threshold",
			Count:     len(m.denials),
			Threshold: m.denialThreshold,
			Timestamp: now,
		})
		// Reset to avoid repeated alerts within the same spike.
		m.denials = m.denials[:0]
	}
}

func (m *metricsCollector) recordRejection() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.rejects = append(m.rejects, now)
	m.rejects = trimWindow(m.rejects, now, m.rejectWindow)

	if len(m.rejects) >= m.rejectThreshold {
		m.alertFn(AlertEvent{
			Type:      AlertRejectionSpike,
			Message:   "request rejection rate exceeds threshold",
			Count:     len(m.rejects),
			Threshold: m.rejectThreshold,
			Timestamp: now,
		})
		m.rejects = m.rejects[:0]
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
