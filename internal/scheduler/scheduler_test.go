package scheduler

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
	"github.com/watchtower/controlplane/internal/worker"
)

func TestEpsilonIsLargerForHourBucket(t *testing.T) {
	assert.Equal(t, 3*time.Second, epsilon(1))
	assert.Equal(t, 3*time.Second, epsilon(30))
	assert.Equal(t, 10*time.Second, epsilon(60))
}

func agentStub(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"availability": "Up",
			"ping":         "Reachable",
			"port":         "Open",
		})
	}))
}

func TestTickClaimsAndRunsOnlyDueMonitorsInBucket(t *testing.T) {
	a1 := agentStub(t)
	defer a1.Close()
	a2 := agentStub(t)
	defer a2.Close()

	st := storetest.New()
	require.NoError(t, st.CreateMonitorAgent(&model.MonitorAgent{ID: "a1", Type: model.AgentTypeMonitor, URL: a1.URL}))
	require.NoError(t, st.CreateMonitorAgent(&model.MonitorAgent{ID: "a2", Type: model.AgentTypeMonitor, URL: a2.URL}))

	pool := agentpool.New()
	require.NoError(t, pool.Refresh(st))
	probe := probeclient.New("tok", time.Second)
	throttle := alertthrottle.NewManager(st)
	w := worker.New(st, pool, probe, throttle, nil)

	now := time.Now().UnixMilli()
	due := &model.Monitor{ID: "due", UserID: "u1", Kind: model.KindWeb, URL: "http://ex.com", Frequency: 1, UpdatedAt: now - 2*time.Minute.Milliseconds()}
	notDue := &model.Monitor{ID: "fresh", UserID: "u1", Kind: model.KindWeb, URL: "http://ex.com", Frequency: 1, UpdatedAt: now}
	otherBucket := &model.Monitor{ID: "other-bucket", UserID: "u1", Kind: model.KindWeb, URL: "http://ex.com", Frequency: 5, UpdatedAt: now - 10*time.Minute.Milliseconds()}
	paused := &model.Monitor{ID: "paused", UserID: "u1", Kind: model.KindWeb, URL: "http://ex.com", Frequency: 1, IsPaused: true, UpdatedAt: now - 2*time.Minute.Milliseconds()}

	for _, m := range []*model.Monitor{due, notDue, otherBucket, paused} {
		require.NoError(t, st.CreateMonitor(m))
	}

	s := New(st, w)
	s.tick(context.Background(), 1)

	updatedDue, err := st.GetMonitor("due")
	require.NoError(t, err)
	assert.Greater(t, updatedDue.UpdatedAt, due.UpdatedAt)

	updatedFresh, err := st.GetMonitor("fresh")
	require.NoError(t, err)
	assert.Equal(t, notDue.UpdatedAt, updatedFresh.UpdatedAt)

	updatedOther, err := st.GetMonitor("other-bucket")
	require.NoError(t, err)
	assert.Equal(t, otherBucket.UpdatedAt, updatedOther.UpdatedAt)

	updatedPaused, err := st.GetMonitor("paused")
	require.NoError(t, err)
	assert.Equal(t, paused.UpdatedAt, updatedPaused.UpdatedAt)
}

func TestBucketLabelKnownAndUnknown(t *testing.T) {
	assert.Equal(t, "1m", bucketLabel(1))
	assert.Equal(t, "60m", bucketLabel(60))
	assert.Equal(t, "other", bucketLabel(7))
}
