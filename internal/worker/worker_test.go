package worker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchtower/controlplane/internal/agentpool"
	"github.com/watchtower/controlplane/internal/alertthrottle"
	"github.com/watchtower/controlplane/internal/model"
	"github.com/watchtower/controlplane/internal/probeclient"
	"github.com/watchtower/controlplane/internal/storetest"
)

// agentStub serves a fixed probe response, matching the agent RPC contract.
func agentStub(t *testing.T, availability string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"availability": availability,
			"ping":         "Reachable",
			"port":         "Open",
			"data":         map[string]any{"status": 500},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func timeoutStub(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.WriteHeader(http.StatusGatewayTimeout)
	}))
}

func newTestWorker(t *testing.T, st *storetest.Fake, a1URL, a2URL string) *Worker {
	t.Helper()
	require.NoError(t, st.CreateMonitorAgent(&model.MonitorAgent{ID: "a1", Type: model.AgentTypeMonitor, URL: a1URL}))
	require.NoError(t, st.CreateMonitorAgent(&model.MonitorAgent{ID: "a2", Type: model.AgentTypeMonitor, URL: a2URL}))

	pool := agentpool.New()
	require.NoError(t, pool.Refresh(st))

	probe := probeclient.New("test-token", time.Second)
	throttle := alertthrottle.NewManager(st)

	return New(st, pool, probe, throttle, nil)
}

// TestRunWebDownVerified exercises S1: a Down primary probe, verified Down
// by the alternate agent, appends exactly one Down event and one alert.
func TestRunWebDownVerified(t *testing.T) {
	a1 := agentStub(t, "Down")
	defer a1.Close()
	a2 := agentStub(t, "Down")
	defer a2.Close()

	st := storetest.New()
	w := newTestWorker(t, st, a1.URL, a2.URL)

	now := int64(1_000_000)
	m := &model.Monitor{ID: "m1", UserID: "u1", Kind: model.KindWeb, URL: "http://ex.com", Frequency: 1, AlertFrequency: 1}
	require.NoError(t, st.CreateMonitor(m))
	require.NoError(t, st.AppendEvent(&model.UptimeEvent{
		MonitorID: "m1", Kind: model.KindWeb, Availability: model.Up, Timestamp: now - 60_000,
	}))

	require.NoError(t, w.Run(context.Background(), m, now))

	events, err := st.EventsPaged("m1", 0, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	latest := events[0]
	assert.Equal(t, model.Down, latest.Availability)
	assert.Equal(t, now, latest.Timestamp)

	alerts, err := st.UndeliveredAlerts(10)
	require.NoError(t, err)
	assert.Len(t, alerts, 1)
}

// TestRunVerificationOverturnsPrimary exercises S2: primary reports Down,
// verifier reports Up; the appended event (if any) trusts the verifier. The
// pool's first Next() lands on the second registered agent (a2), so a2 is the
// Down primary and a1 the Up verifier.
func TestRunVerificationOverturnsPrimary(t *testing.T) {
	a1 := agentStub(t, "Up")
	defer a1.Close()
	a2 := agentStub(t, "Down")
	defer a2.Close()

	st := storetest.New()
	w := newTestWorker(t, st, a1.URL, a2.URL)

	now := int64(1_000_000)
	m := &model.Monitor{ID: "m1", UserID: "u1", Kind: model.KindWeb, URL: "http://ex.com", Frequency: 1, AlertFrequency: 1}
	require.NoError(t, st.CreateMonitor(m))
	require.NoError(t, st.AppendEvent(&model.UptimeEvent{
		MonitorID: "m1", Kind: model.KindWeb, Availability: model.Up, Timestamp: now - 60_000,
	}))

	require.NoError(t, w.Run(context.Background(), m, now))

	events, err := st.EventsPaged("m1", 0, 10)
	require.NoError(t, err)
	require.Len(t, events, 1) // no new event: still Up, matches prior state

	alerts, err := st.UndeliveredAlerts(10)
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

// TestRunBothAgentsFail exercises S3: transport failure on both agents
// leaves the monitor untouched for a retry on the next tick.
func TestRunBothAgentsFail(t *testing.T) {
	a1 := timeoutStub(t)
	defer a1.Close()
	a2 := timeoutStub(t)
	defer a2.Close()

	st := storetest.New()
	require.NoError(t, st.CreateMonitorAgent(&model.MonitorAgent{ID: "a1", Type: model.AgentTypeMonitor, URL: a1.URL}))
	require.NoError(t, st.CreateMonitorAgent(&model.MonitorAgent{ID: "a2", Type: model.AgentTypeMonitor, URL: a2.URL}))

	pool := agentpool.New()
	require.NoError(t, pool.Refresh(st))
	probe := probeclient.New("test-token", 10*time.Millisecond)
	throttle := alertthrottle.NewManager(st)
	w := New(st, pool, probe, throttle, nil)

	now := int64(1_000_000)
	m := &model.Monitor{ID: "m1", UserID: "u1", Kind: model.KindWeb, URL: "http://ex.com", Frequency: 1, UpdatedAt: now - 60_000}
	require.NoError(t, st.CreateMonitor(m))

	require.NoError(t, w.Run(context.Background(), m, now))

	events, err := st.EventsPaged("m1", 0, 10)
	require.NoError(t, err)
	assert.Empty(t, events)

	updated, err := st.GetMonitor("m1")
	require.NoError(t, err)
	assert.Equal(t, now-60_000, updated.UpdatedAt)
}

// TestRunReAlertsOnContinuedOutageWithoutNewEvent exercises S4: a monitor
// that is already Down and stays Down across a tick (no state transition, so
// no new event is appended) must still be re-consulted for alerting once its
// alertFrequency window has elapsed.
func TestRunReAlertsOnContinuedOutageWithoutNewEvent(t *testing.T) {
	a1 := agentStub(t, "Down")
	defer a1.Close()
	a2 := agentStub(t, "Down")
	defer a2.Close()

	st := storetest.New()
	w := newTestWorker(t, st, a1.URL, a2.URL)

	now := int64(1_000_000)
	m := &model.Monitor{
		ID: "m1", UserID: "u1", Kind: model.KindWeb, URL: "http://ex.com",
		Frequency: 1, AlertFrequency: 1, LastAlertSentAt: now - 2*60*1000,
	}
	require.NoError(t, st.CreateMonitor(m))
	require.NoError(t, st.AppendEvent(&model.UptimeEvent{
		MonitorID: "m1", Kind: model.KindWeb, Availability: model.Down, Timestamp: now - 60_000,
	}))

	require.NoError(t, w.Run(context.Background(), m, now))

	events, err := st.EventsPaged("m1", 0, 10)
	require.NoError(t, err)
	require.Len(t, events, 1) // no new event: still Down, matches prior state

	alerts, err := st.UndeliveredAlerts(10)
	require.NoError(t, err)
	assert.Len(t, alerts, 1) // but the outage re-alerts on its own cadence
}
