package alertthrottle

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchtower/controlplane/internal/model"
	"github.com/watchtower/controlplane/internal/store"
	"github.com/watchtower/controlplane/internal/storetest"
)

// insertFailingStore wraps a real store.Store and fails every InsertAlert,
// so Fire's watermark-before-error behavior can be exercised directly.
type insertFailingStore struct {
	store.Store
}

func (s insertFailingStore) InsertAlert(a *model.Alert) error {
	return errors.New("insert boom")
}

func TestShouldAlert(t *testing.T) {
	tests := []struct {
		name string
		m    *model.Monitor
		now  int64
		want bool
	}{
		{
			name: "never alerted",
			m:    &model.Monitor{AlertFrequency: 5},
			now:  1_000_000,
			want: true,
		},
		{
			name: "too soon",
			m:    &model.Monitor{AlertFrequency: 5, LastAlertSentAt: 1_000_000},
			now:  1_000_000 + 2*60*1000,
			want: false,
		},
		{
			name: "exactly at threshold",
			m:    &model.Monitor{AlertFrequency: 5, LastAlertSentAt: 1_000_000},
			now:  1_000_000 + 5*60*1000,
			want: true,
		},
		{
			name: "past threshold",
			m:    &model.Monitor{AlertFrequency: 5, LastAlertSentAt: 1_000_000},
			now:  1_000_000 + 6*60*1000,
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldAlert(tt.m, tt.now))
		})
	}
}

func TestFireSkipsUnownedMonitor(t *testing.T) {
	st := storetest.New()
	mgr := NewManager(st)

	m := &model.Monitor{ID: "m1", AlertFrequency: 5}
	require.NoError(t, st.CreateMonitor(m))

	require.NoError(t, mgr.Fire(m, 1000))

	alerts, err := st.UndeliveredAlerts(10)
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestFireQueuesAlertAndSetsWatermark(t *testing.T) {
	st := storetest.New()
	mgr := NewManager(st)

	m := &model.Monitor{ID: "m1", UserID: "u1", URL: "http://ex.com", AlertFrequency: 5}
	require.NoError(t, st.CreateMonitor(m))

	require.NoError(t, mgr.Fire(m, 1000))
	assert.Equal(t, int64(1000), m.LastAlertSentAt)

	alerts, err := st.UndeliveredAlerts(10)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "m1", alerts[0].MonitorID)
	assert.Equal(t, "http://ex.com", alerts[0].URL)
	assert.Equal(t, 3, alerts[0].MaxTries)

	// A second Fire before the throttle window elapses queues nothing more.
	require.NoError(t, mgr.Fire(m, 1000+60*1000))
	alerts, err = st.UndeliveredAlerts(10)
	require.NoError(t, err)
	assert.Len(t, alerts, 1)
}

// TestFireAdvancesWatermarkEvenWhenInsertAlertFails exercises the case where
// the alert insert races and fails: the monitor's watermark must still move,
// or the next tick would re-attempt (and re-fail, or worse, duplicate) the
// same alert instead of being throttled.
func TestFireAdvancesWatermarkEvenWhenInsertAlertFails(t *testing.T) {
	st := storetest.New()
	mgr := NewManager(insertFailingStore{Store: st})

	m := &model.Monitor{ID: "m1", UserID: "u1", URL: "http://ex.com", AlertFrequency: 5}
	require.NoError(t, st.CreateMonitor(m))

	err := mgr.Fire(m, 1000)
	require.Error(t, err)
	assert.Equal(t, int64(1000), m.LastAlertSentAt)

	stored, getErr := st.GetMonitor("m1")
	require.NoError(t, getErr)
	assert.Equal(t, int64(1000), stored.LastAlertSentAt)
}
