// Package storetest provides an in-memory store.Store for unit tests that
// need a collaborator but aren't exercising the store implementations
// themselves.
package storetest

import (
	"sort"
	"sync"
	"time"

	"github.com/watchtower/controlplane/internal/model"
)

// Fake is a minimal in-memory implementation of store.Store.
type Fake struct {
	mu       sync.Mutex
	monitors map[string]model.Monitor
	events   map[string][]model.UptimeEvent
	alerts   []model.Alert
	agents   []model.MonitorAgent
	users    map[string]model.User
	nextID   int64
}

// New returns an empty Fake store.
func New() *Fake {
	return &Fake{
		monitors: make(map[string]model.Monitor),
		events:   make(map[string][]model.UptimeEvent),
		users:    make(map[string]model.User),
	}
}

func (f *Fake) CreateMonitor(m *model.Monitor) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.monitors[m.ID] = *m
	return nil
}

func (f *Fake) GetMonitor(id string) (*model.Monitor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.monitors[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (f *Fake) ListMonitors(userID string) ([]model.Monitor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Monitor
	for _, m := range f.monitors {
		if userID == "" || m.UserID == userID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *Fake) UpdateMonitor(m *model.Monitor) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.monitors[m.ID] = *m
	return nil
}

func (f *Fake) DeleteMonitor(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.monitors, id)
	return nil
}

func (f *Fake) DueMonitors(bucket int, window time.Duration, now int64, limit, offset int) ([]model.Monitor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cutoff := now - window.Milliseconds()
	var due []model.Monitor
	for _, m := range f.monitors {
		if m.Frequency == bucket && !m.IsPaused && m.UpdatedAt <= cutoff {
			due = append(due, m)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ID < due[j].ID })
	if offset >= len(due) {
		return nil, nil
	}
	end := offset + limit
	if end > len(due) {
		end = len(due)
	}
	page := due[offset:end]
	for _, m := range page {
		entry := f.monitors[m.ID]
		entry.UpdatedAt = now
		f.monitors[m.ID] = entry
	}
	return page, nil
}

func (f *Fake) TouchMonitor(monitorID string, updatedAt int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.monitors[monitorID]
	if !ok {
		return nil
	}
	m.UpdatedAt = updatedAt
	f.monitors[monitorID] = m
	return nil
}

func (f *Fake) SetLastAlertSentAt(monitorID string, at int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.monitors[monitorID]
	if !ok {
		return nil
	}
	m.LastAlertSentAt = at
	f.monitors[monitorID] = m
	return nil
}

func (f *Fake) LatestEvent(monitorID string) (*model.UptimeEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	evts := f.events[monitorID]
	if len(evts) == 0 {
		return nil, nil
	}
	e := evts[len(evts)-1]
	return &e, nil
}

func (f *Fake) AppendEvent(e *model.UptimeEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	e.ID = f.nextID
	f.events[e.MonitorID] = append(f.events[e.MonitorID], *e)
	return nil
}

func (f *Fake) CloseEvent(id int64, endTime int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for monitorID, evts := range f.events {
		for i := range evts {
			if evts[i].ID == id {
				evts[i].EndTime = endTime
				f.events[monitorID] = evts
				return nil
			}
		}
	}
	return nil
}

func (f *Fake) EventsSince(monitorID string, since int64) ([]model.UptimeEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.UptimeEvent
	for _, e := range f.events[monitorID] {
		if e.Timestamp >= since {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *Fake) EventsPaged(monitorID string, before int64, limit int) ([]model.UptimeEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	evts := f.events[monitorID]
	var out []model.UptimeEvent
	for i := len(evts) - 1; i >= 0; i-- {
		if before == 0 || evts[i].Timestamp < before {
			out = append(out, evts[i])
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *Fake) LatestDowntime(userID string) (*model.UptimeEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *model.UptimeEvent
	for monitorID, evts := range f.events {
		m := f.monitors[monitorID]
		if userID != "" && m.UserID != userID {
			continue
		}
		for i := range evts {
			e := evts[i]
			if !e.IsAdverse(m.Kind) {
				continue
			}
			if latest == nil || e.Timestamp > latest.Timestamp {
				latest = &e
			}
		}
	}
	return latest, nil
}

func (f *Fake) InsertAlert(a *model.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	a.ID = f.nextID
	f.alerts = append(f.alerts, *a)
	return nil
}

func (f *Fake) UndeliveredAlerts(limit int) ([]model.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Alert
	for _, a := range f.alerts {
		if a.Tries < a.MaxTries {
			out = append(out, a)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *Fake) IncrementAlertTries(id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.alerts {
		if f.alerts[i].ID == id {
			f.alerts[i].Tries++
		}
	}
	return nil
}

func (f *Fake) ListMonitorAgents(agentType model.AgentType) ([]model.MonitorAgent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.MonitorAgent
	for _, a := range f.agents {
		if a.Type == agentType {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *Fake) CreateMonitorAgent(a *model.MonitorAgent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.agents = append(f.agents, *a)
	return nil
}

func (f *Fake) DeleteMonitorAgent(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, a := range f.agents {
		if a.ID == id {
			f.agents = append(f.agents[:i], f.agents[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *Fake) GetUser(id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// PutUser seeds a user for ownership checks.
func (f *Fake) PutUser(u model.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.ID] = u
}

func (f *Fake) Close() error { return nil }
