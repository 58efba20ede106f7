// Package model defines the data contracts shared by every component of the
// control plane: the monitors users register, the agents that probe them,
// and the event/alert records the pipeline produces.
package model

// MonitorKind is the check mode of a monitor.
type MonitorKind string

const (
	KindWeb  MonitorKind = "web"
	KindPing MonitorKind = "ping"
	KindPort MonitorKind = "port"
)

// Availability is the authoritative result field for web monitors.
type Availability string

const (
	Up      Availability = "Up"
	Down    Availability = "Down"
	Unknown Availability = "Unknown" // sentinel used when no prior event exists
)

// PingState is the authoritative result field for ping monitors.
type PingState string

const (
	Reachable   PingState = "Reachable"
	Unreachable PingState = "Unreachable"
)

// PortState is the authoritative result field for port monitors.
type PortState string

const (
	Open   PortState = "Open"
	Closed PortState = "Closed"
)

// FrequencyBuckets enumerates the only valid monitor.Frequency values, in minutes.
var FrequencyBuckets = []int{1, 5, 10, 30, 60}

// AlertFrequencies enumerates the only valid monitor.AlertFrequency values, in minutes.
var AlertFrequencies = []int{1, 5, 10, 20, 30, 60, 1440}

// ValidFrequency reports whether m is one of FrequencyBuckets.
func ValidFrequency(m int) bool {
	for _, b := range FrequencyBuckets {
		if b == m {
			return true
		}
	}
	return false
}

// ValidAlertFrequency reports whether m is one of AlertFrequencies.
func ValidAlertFrequency(m int) bool {
	for _, b := range AlertFrequencies {
		if b == m {
			return true
		}
	}
	return false
}

// Monitor is a single endpoint to be probed on a fixed cadence.
type Monitor struct {
	ID              string      `json:"id"`
	UserID          string      `json:"user_id"`
	Name            string      `json:"name"`
	Kind            MonitorKind `json:"kind"`
	URL             string      `json:"url"`
	Port            int         `json:"port"`
	Frequency       int         `json:"frequency"`        // minutes, one of FrequencyBuckets
	AlertFrequency  int         `json:"alert_frequency"`   // minutes, one of AlertFrequencies
	IsPaused        bool        `json:"is_paused"`
	LastAlertSentAt int64       `json:"last_alert_sent_at,omitempty"` // 0 means null
	UpdatedAt       int64       `json:"updated_at"`
	CreatedAt       int64       `json:"created_at"`
	ContactIDs      []string    `json:"contact_ids,omitempty"`
}

// HasOwner reports whether the monitor has an owning user (required for alerting).
func (m *Monitor) HasOwner() bool {
	return m.UserID != ""
}

// DefaultPort returns the effective port for the monitor, defaulting to 443.
func (m *Monitor) DefaultPort() int {
	if m.Port == 0 {
		return 443
	}
	return m.Port
}

// UptimeEvent is one append-only record of an observed state transition.
type UptimeEvent struct {
	ID               int64       `json:"id,omitempty"`
	MonitorID        string      `json:"monitor_id"`
	UserID           string      `json:"user_id"`
	Kind             MonitorKind `json:"kind"`
	Timestamp        int64       `json:"timestamp"`
	EndTime          int64       `json:"end_time,omitempty"` // 0 means open / not yet closed
	Availability     Availability `json:"availability"`
	Ping             PingState   `json:"ping"`
	Port             PortState   `json:"port"`
	ResponseTime     int64       `json:"response_time_ms"`
	ConfirmedByAgent string      `json:"confirmed_by_agent"`
	Reason           string      `json:"reason,omitempty"`
}

// Authoritative returns the result value for the field corresponding to kind.
func (e *UptimeEvent) Authoritative(kind MonitorKind) string {
	switch kind {
	case KindWeb:
		return string(e.Availability)
	case KindPing:
		return string(e.Ping)
	case KindPort:
		return string(e.Port)
	default:
		return string(Unknown)
	}
}

// IsAdverse reports whether the event's authoritative field for kind is negative.
func (e *UptimeEvent) IsAdverse(kind MonitorKind) bool {
	switch kind {
	case KindWeb:
		return e.Availability != Up
	case KindPing:
		return e.Ping != Reachable
	case KindPort:
		return e.Port != Open
	default:
		return true
	}
}

// Alert is an intent-to-notify record; a durable queue for an external delivery worker.
type Alert struct {
	ID        int64  `json:"id,omitempty"`
	UserID    string `json:"user_id"`
	MonitorID string `json:"monitor_id"`
	URL       string `json:"url"`
	Tries     int    `json:"tries"`
	MaxTries  int    `json:"max_tries"`
	CreatedAt int64  `json:"created_at"`
}

// AgentType distinguishes monitor-probing agents from alert-delivery agents.
type AgentType string

const (
	AgentTypeMonitor AgentType = "monitorAgents"
	AgentTypeAlert   AgentType = "alertAgents"
)

// MonitorAgent is a registered external probe service.
type MonitorAgent struct {
	ID     string    `json:"id"`
	Type   AgentType `json:"type"`
	Region string    `json:"region"`
	URL    string    `json:"url"`
}

// User is a minimal, read-only projection of the account entity owned by the
// REST collaborator. The pipeline never writes users; it only reads the
// owning-user check for alert emission (see Monitor.HasOwner).
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Contact is a notification destination owned by the REST collaborator.
type Contact struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Label  string `json:"label"`
	Target string `json:"target"`
}

// MessageTemplate is a notification body template owned by the REST collaborator.
type MessageTemplate struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Body   string `json:"body"`
}

// MonitoringStats summarizes monitor states for C8's status endpoint.
type MonitoringStats struct {
	Up     int `json:"up"`
	Down   int `json:"down"`
	Paused int `json:"paused"`
}

// UptimeReport is the result of the rolling uptime-percent computation.
type UptimeReport struct {
	MonitorID string  `json:"monitor_id"`
	Days      float64 `json:"days"`
	UptimePct float64 `json:"uptime_pct"`
}
