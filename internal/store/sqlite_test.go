package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchtower/controlplane/internal/model"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDueMonitorsClaimsAndBumpsUpdatedAt(t *testing.T) {
	s := openTestStore(t)
	now := time.Now().UnixMilli()

	due := &model.Monitor{ID: "m1", UserID: "u1", Kind: model.KindWeb, URL: "http://ex.com", Frequency: 1, UpdatedAt: now - 2*time.Minute.Milliseconds()}
	require.NoError(t, s.CreateMonitor(due))

	fresh := &model.Monitor{ID: "m2", UserID: "u1", Kind: model.KindWeb, URL: "http://ex.com", Frequency: 1, UpdatedAt: now}
	require.NoError(t, s.CreateMonitor(fresh))

	got, err := s.DueMonitors(1, 30*time.Second, now, 100, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "m1", got[0].ID)

	// The claim is atomic: a second call with the same window sees nothing
	// left due, because the first call already bumped updated_at to now.
	got2, err := s.DueMonitors(1, 30*time.Second, now, 100, 0)
	require.NoError(t, err)
	assert.Empty(t, got2)

	reloaded, err := s.GetMonitor("m1")
	require.NoError(t, err)
	assert.Equal(t, now, reloaded.UpdatedAt)
}

func TestDueMonitorsExcludesPausedAndOtherBuckets(t *testing.T) {
	s := openTestStore(t)
	now := time.Now().UnixMilli()
	past := now - 2*time.Minute.Milliseconds()

	paused := &model.Monitor{ID: "paused", UserID: "u1", Kind: model.KindWeb, URL: "http://ex.com", Frequency: 1, IsPaused: true, UpdatedAt: past}
	otherBucket := &model.Monitor{ID: "other", UserID: "u1", Kind: model.KindWeb, URL: "http://ex.com", Frequency: 5, UpdatedAt: past}
	require.NoError(t, s.CreateMonitor(paused))
	require.NoError(t, s.CreateMonitor(otherBucket))

	got, err := s.DueMonitors(1, 30*time.Second, now, 100, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAppendEventAndCloseEvent(t *testing.T) {
	s := openTestStore(t)
	m := &model.Monitor{ID: "m1", UserID: "u1", Kind: model.KindWeb, URL: "http://ex.com", Frequency: 1}
	require.NoError(t, s.CreateMonitor(m))

	e := &model.UptimeEvent{MonitorID: "m1", UserID: "u1", Kind: model.KindWeb, Availability: model.Up, Timestamp: 1000}
	require.NoError(t, s.AppendEvent(e))
	require.NotZero(t, e.ID)

	require.NoError(t, s.CloseEvent(e.ID, 2000))

	last, err := s.LatestEvent("m1")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, int64(2000), last.EndTime)
}

func TestAlertLifecycle(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.CreateMonitor(&model.Monitor{ID: "m1", UserID: "u1", Kind: model.KindWeb, URL: "http://ex.com", Frequency: 1}))
	a := &model.Alert{UserID: "u1", MonitorID: "m1", URL: "http://ex.com", MaxTries: 3, CreatedAt: 1000}
	require.NoError(t, s.InsertAlert(a))
	require.NotZero(t, a.ID)

	undelivered, err := s.UndeliveredAlerts(10)
	require.NoError(t, err)
	require.Len(t, undelivered, 1)

	require.NoError(t, s.IncrementAlertTries(a.ID))
	require.NoError(t, s.IncrementAlertTries(a.ID))
	require.NoError(t, s.IncrementAlertTries(a.ID))

	remaining, err := s.UndeliveredAlerts(10)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestEventsPagedOrdersDescendingAndRespectsBefore(t *testing.T) {
	s := openTestStore(t)
	m := &model.Monitor{ID: "m1", UserID: "u1", Kind: model.KindWeb, URL: "http://ex.com", Frequency: 1}
	require.NoError(t, s.CreateMonitor(m))

	for i, ts := range []int64{1000, 2000, 3000} {
		require.NoError(t, s.AppendEvent(&model.UptimeEvent{
			MonitorID: "m1", UserID: "u1", Kind: model.KindWeb,
			Availability: model.Up, Timestamp: ts,
		}))
		_ = i
	}

	events, err := s.EventsPaged("m1", 0, 10)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, int64(3000), events[0].Timestamp)

	page, err := s.EventsPaged("m1", 3000, 10)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, int64(2000), page[0].Timestamp)
}
