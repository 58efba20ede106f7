package agentpool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchtower/controlplane/internal/model"
	"github.com/watchtower/controlplane/internal/storetest"
)

func seeded(t *testing.T) *Pool {
	t.Helper()
	st := storetest.New()
	for _, id := range []string{"a1", "a2", "a3"} {
		require.NoError(t, st.CreateMonitorAgent(&model.MonitorAgent{ID: id, Type: model.AgentTypeMonitor, URL: "http://" + id}))
	}
	p := New()
	require.NoError(t, p.Refresh(st))
	return p
}

func TestNextRotatesThroughAllAgents(t *testing.T) {
	p := seeded(t)

	seen := make(map[string]bool)
	for i := 0; i < len(p.agents)*2; i++ {
		a, err := p.Next()
		require.NoError(t, err)
		seen[a.ID] = true
	}
	assert.Len(t, seen, 3)
}

func TestOtherNeverReturnsExcludedAgent(t *testing.T) {
	p := seeded(t)

	for i := 0; i < 10; i++ {
		a, err := p.Other("a1")
		require.NoError(t, err)
		assert.NotEqual(t, "a1", a.ID)
	}
}

func TestOtherWithSingleAgentReturnsErrIfExcluded(t *testing.T) {
	st := storetest.New()
	require.NoError(t, st.CreateMonitorAgent(&model.MonitorAgent{ID: "solo", Type: model.AgentTypeMonitor, URL: "http://solo"}))
	p := New()
	require.NoError(t, p.Refresh(st))

	_, err := p.Other("solo")
	assert.ErrorIs(t, err, ErrNoAgents)
}

func TestNextOnEmptyPoolReturnsErrNoAgents(t *testing.T) {
	p := New()
	_, err := p.Next()
	assert.ErrorIs(t, err, ErrNoAgents)
}
