// Package store defines the persistence interface for the control plane and
// provides two implementations: SQLite (single-node/dev) and PostgreSQL
// (multi-instance). C3–C8 depend only on the Store interface, never on a
// concrete backend.
package store

import (
	"time"

	"github.com/watchtower/controlplane/internal/model"
)

// Store is the persistence interface the pipeline reads and writes.
type Store interface {
	// Monitor operations (monitors are owned by the REST collaborator; the
	// pipeline only reads them and bumps UpdatedAt/LastAlertSentAt).
	CreateMonitor(m *model.Monitor) error
	GetMonitor(id string) (*model.Monitor, error)
	ListMonitors(userID string) ([]model.Monitor, error)
	UpdateMonitor(m *model.Monitor) error
	DeleteMonitor(id string) error

	// DueMonitors returns monitors in bucket whose UpdatedAt is older than
	// now-window, paged at offset/limit. isPaused monitors are excluded.
	DueMonitors(bucket int, window time.Duration, now int64, limit, offset int) ([]model.Monitor, error)

	// TouchMonitor unconditionally bumps UpdatedAt after a completed worker run.
	TouchMonitor(monitorID string, updatedAt int64) error

	// SetLastAlertSentAt records the throttle watermark for a monitor.
	SetLastAlertSentAt(monitorID string, at int64) error

	// Event operations.
	LatestEvent(monitorID string) (*model.UptimeEvent, error)
	AppendEvent(e *model.UptimeEvent) error
	CloseEvent(id int64, endTime int64) error
	EventsSince(monitorID string, since int64) ([]model.UptimeEvent, error)
	EventsPaged(monitorID string, before int64, limit int) ([]model.UptimeEvent, error)
	LatestDowntime(userID string) (*model.UptimeEvent, error)

	// Alert operations.
	InsertAlert(a *model.Alert) error
	UndeliveredAlerts(limit int) ([]model.Alert, error)
	IncrementAlertTries(id int64) error

	// MonitorAgent operations.
	ListMonitorAgents(agentType model.AgentType) ([]model.MonitorAgent, error)
	CreateMonitorAgent(a *model.MonitorAgent) error
	DeleteMonitorAgent(id string) error

	// GetUser is read-only access to the REST collaborator's User table. The
	// alerting path checks ownership with Monitor.HasOwner and does not call it.
	GetUser(id string) (*model.User, error)

	Close() error
}
