// Package detector implements the pure state-change comparison that decides
// whether a fresh probe result warrants a new uptime event.
package detector

import "github.com/watchtower/controlplane/internal/model"

// ShouldAppend reports whether fresh represents a state change from last and
// therefore needs its own UptimeEvent. A nil last is treated as the "Unknown"
// sentinel, so the very first observed result for a monitor always appends.
func ShouldAppend(kind model.MonitorKind, fresh *model.UptimeEvent, last *model.UptimeEvent) bool {
	lastState := string(model.Unknown)
	if last != nil {
		lastState = last.Authoritative(kind)
	}
	return fresh.Authoritative(kind) != lastState
}
