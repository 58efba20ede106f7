// Package alertthrottle decides whether an adverse event should emit an alert
// and advances the per-monitor throttle watermark when it does.
package alertthrottle

import (
	"log"

	"github.com/watchtower/controlplane/internal/model"
	"github.com/watchtower/controlplane/internal/store"
)

// Manager enqueues alerts and updates the lastAlertSentAt watermark.
type Manager struct {
	store store.Store
}

// NewManager creates a new throttle manager.
func NewManager(st store.Store) *Manager {
	return &Manager{store: st}
}

// ShouldAlert reports whether a monitor is due for an alert at now (unix
// millis): a null lastAlertSentAt always alerts, otherwise the alertFrequency
// window (minutes) must have elapsed since the last one.
func ShouldAlert(m *model.Monitor, now int64) bool {
	if m.LastAlertSentAt == 0 {
		return true
	}
	window := int64(m.AlertFrequency) * 60 * 1000
	return now-m.LastAlertSentAt >= window
}

// Fire enqueues an Alert for the monitor and advances its watermark. Skipped
// entirely if the monitor has no owning user — there is nobody to notify.
func (mgr *Manager) Fire(m *model.Monitor, now int64) error {
	if !m.HasOwner() {
		return nil
	}
	if !ShouldAlert(m, now) {
		return nil
	}

	a := &model.Alert{
		UserID:    m.UserID,
		MonitorID: m.ID,
		URL:       m.URL,
		MaxTries:  3,
		CreatedAt: now,
	}
	insertErr := mgr.store.InsertAlert(a)

	// The watermark advances regardless of the insert's outcome: a failed
	// insert must still throttle the next tick, or a races-with-itself
	// control plane would queue the same alert repeatedly instead of once.
	if err := mgr.store.SetLastAlertSentAt(m.ID, now); err != nil {
		return err
	}
	m.LastAlertSentAt = now

	if insertErr != nil {
		return insertErr
	}

	log.Printf("[alertthrottle] queued alert %d for monitor %s", a.ID, m.ID)
	return nil
}
