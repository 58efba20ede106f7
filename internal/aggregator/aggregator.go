// Package aggregator computes the read-side projections C8 describes:
// fleet/monitor stats, rolling uptime percentage, latest downtime, and paged
// event history. All of it is derived from the store; none of it is
// authoritative state.
package aggregator

import (
	"math"
	"time"

	"github.com/watchtower/controlplane/internal/model"
	"github.com/watchtower/controlplane/internal/store"
)

const dayMillis = 86400000

// Aggregator computes read-side projections over the store.
type Aggregator struct {
	store store.Store
}

// New constructs an Aggregator.
func New(st store.Store) *Aggregator {
	return &Aggregator{store: st}
}

// Stats returns Up/Down/Paused counts across a user's monitors, or fleet-wide
// when userID is empty.
func (a *Aggregator) Stats(userID string) (*model.MonitoringStats, error) {
	monitors, err := a.store.ListMonitors(userID)
	if err != nil {
		return nil, err
	}

	stats := &model.MonitoringStats{}
	for _, m := range monitors {
		if m.IsPaused {
			stats.Paused++
			continue
		}
		last, err := a.store.LatestEvent(m.ID)
		if err != nil {
			return nil, err
		}
		if last == nil {
			continue
		}
		if last.IsAdverse(m.Kind) {
			stats.Down++
		} else {
			stats.Up++
		}
	}
	return stats, nil
}

// Uptime computes the rolling uptime percentage over the last D days, using
// the exact interval-attribution rule §4.8 specifies: each interval between
// consecutive events is attributed to the *later* event's authoritative
// state, not the state that actually held during that interval. This is a
// known quirk of the source algorithm, preserved here rather than corrected.
func (a *Aggregator) Uptime(monitorID string, days float64) (*model.UptimeReport, error) {
	return a.uptimeAt(monitorID, days, time.Now().UnixMilli())
}

// uptimeAt is Uptime with an injectable "now", so the windowing arithmetic is
// testable without wall-clock flakiness.
func (a *Aggregator) uptimeAt(monitorID string, days float64, now int64) (*model.UptimeReport, error) {
	m, err := a.store.GetMonitor(monitorID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return &model.UptimeReport{MonitorID: monitorID, Days: days, UptimePct: 100}, nil
	}

	window := int64(days * dayMillis)
	t0 := now - window

	events, err := a.store.EventsSince(monitorID, t0)
	if err != nil {
		return nil, err
	}

	var upTime int64
	cursor := t0
	for i := range events {
		e := &events[i]
		if !e.IsAdverse(m.Kind) {
			upTime += e.Timestamp - cursor
		}
		cursor = e.Timestamp
	}
	if len(events) > 0 && !events[len(events)-1].IsAdverse(m.Kind) {
		upTime += now - cursor
	} else if len(events) == 0 {
		// No events at all in the window: §4.8 treats this as fully up.
		upTime = window
	}

	pct := float64(upTime) / float64(window) * 100
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	pct = math.Round(pct*100) / 100

	return &model.UptimeReport{MonitorID: monitorID, Days: days, UptimePct: pct}, nil
}

// History returns a descending page of events for a monitor, page size 10.
func (a *Aggregator) History(monitorID string, before int64) ([]model.UptimeEvent, error) {
	return a.store.EventsPaged(monitorID, before, 10)
}

// LatestDowntime returns the most recent downtime event visible to userID.
func (a *Aggregator) LatestDowntime(userID string) (*model.UptimeEvent, error) {
	return a.store.LatestDowntime(userID)
}
