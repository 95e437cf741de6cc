package api

import (
	"testing"

	"github.com/narthex/vouch/auth"
)

func TestMetricsCollector(t *testing.T) {
	t.Run("DenialSpike", func(t *testing.T) {
		var alerts []AlertEvent
		m := newMetricsCollector(func(e AlertEvent) { alerts = append(alerts, e) })
		m.denialThreshold = 3

		for i := 0; i < 3; i++ {
			m.recordEntry(auth.AuditEntry{Action: auth.ActionRateLimited})
		}
		if len(alerts) != 1 {
			t.Fatalf("expected 1 alert, got %d", len(alerts))
		}
		if alerts[0].Type != AlertDenialSpike {
			t.Errorf("expected denial spike alert, got %s", alerts[0].Type)
		}
		if alerts[0].Count != 3 {
			t.Errorf("expected count 3, got %d", alerts[0].Count)
		}

		// Counter resets after alerting; the next denial alone does not
		// fire again.
		m.recordEntry(auth.AuditEntry{Action: auth.ActionRateLimited})
		if len(alerts) != 1 {
			t.Errorf("expected no repeat alert, got %d", len(alerts))
		}
	})

	t.Run("RejectionSpike", func(t *testing.T) {
		var alerts []AlertEvent
		m := newMetricsCollector(func(e AlertEvent) { alerts = append(alerts, e) })
		m.rejectThreshold = 2

		m.recordEntry(auth.AuditEntry{Action: auth.ActionRequestRejected})
		m.recordEntry(auth.AuditEntry{Action: auth.ActionRequestRejected})
		if len(alerts) != 1 || alerts[0].Type != AlertRejectionSpike {
			t.Fatalf("expected rejection spike alert, got %+v", alerts)
		}
	})

	t.Run("IgnoresOtherActions", func(t *testing.T) {
		var alerts []AlertEvent
		m := newMetricsCollector(func(e AlertEvent) { alerts = append(alerts, e) })
		m.denialThreshold = 1

		m.recordEntry(auth.AuditEntry{Action: auth.ActionVoteCast})
		m.recordEntry(auth.AuditEntry{Action: auth.ActionRequestCreated})
		if len(alerts) != 0 {
			t.Errorf("unrelated actions must not alert, got %+v", alerts)
		}
	})

	t.Run("NilCollectorIsSafe", func(t *testing.T) {
		var m *metricsCollector
		m.recordEntry(auth.AuditEntry{Action: auth.ActionRateLimited})
	})
}
