package aggregator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchtower/controlplane/internal/model"
	"github.com/watchtower/controlplane/internal/storetest"
)

const dayMS = 24 * 60 * 60 * 1000

// TestUptimeSparseDownEvent mirrors the spec's sparse-event scenario: a
// single Down event halfway through the window, no events before or after.
// Per the documented (deliberately unfixed) attribution rule, the entire
// preceding interval is credited to that event's own state, so one Down
// event with nothing after it yields 0% rather than 50%.
func TestUptimeSparseDownEvent(t *testing.T) {
	st := storetest.New()
	agg := New(st)

	now := int64(100 * dayMS) // arbitrary anchor far from epoch
	m := &model.Monitor{ID: "m1", Kind: model.KindWeb}
	require.NoError(t, st.CreateMonitor(m))
	require.NoError(t, st.AppendEvent(&model.UptimeEvent{
		MonitorID:    "m1",
		Kind:         model.KindWeb,
		Timestamp:    now - 12*60*60*1000,
		Availability: model.Down,
	}))

	report, err := agg.uptimeAt(m.ID, 1, now)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, report.UptimePct, 0.001)
}

// TestUptimeNoEvents covers the documented zero-events failure mode: with no
// events at all in the window, the whole window counts as up.
func TestUptimeNoEvents(t *testing.T) {
	st := storetest.New()
	agg := New(st)

	now := int64(100 * dayMS)
	m := &model.Monitor{ID: "m1", Kind: model.KindWeb}
	require.NoError(t, st.CreateMonitor(m))

	report, err := agg.uptimeAt(m.ID, 1, now)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, report.UptimePct, 0.001)
}

// TestUptimeTrailingUpEvent checks the tail-segment addition: an Up event
// partway through the window with nothing after it credits the remainder of
// the window (from that event to now) as up. Under the later-event
// attribution rule the 18h before the event are credited to it as well, so
// the whole window counts as up.
func TestUptimeTrailingUpEvent(t *testing.T) {
	st := storetest.New()
	agg := New(st)

	now := int64(100 * dayMS)
	m := &model.Monitor{ID: "m1", Kind: model.KindWeb}
	require.NoError(t, st.CreateMonitor(m))
	require.NoError(t, st.AppendEvent(&model.UptimeEvent{
		MonitorID:    "m1",
		Kind:         model.KindWeb,
		Timestamp:    now - 6*60*60*1000,
		Availability: model.Up,
	}))

	report, err := agg.uptimeAt(m.ID, 1, now)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, report.UptimePct, 0.001) // 18h before + 6h after, of 24h
}

func TestStatsCountsUpDownPaused(t *testing.T) {
	st := storetest.New()
	agg := New(st)

	require.NoError(t, st.CreateMonitor(&model.Monitor{ID: "up", UserID: "u1", Kind: model.KindWeb}))
	require.NoError(t, st.AppendEvent(&model.UptimeEvent{MonitorID: "up", Kind: model.KindWeb, Availability: model.Up, Timestamp: 1}))

	require.NoError(t, st.CreateMonitor(&model.Monitor{ID: "down", UserID: "u1", Kind: model.KindWeb}))
	require.NoError(t, st.AppendEvent(&model.UptimeEvent{MonitorID: "down", Kind: model.KindWeb, Availability: model.Down, Timestamp: 1}))

	require.NoError(t, st.CreateMonitor(&model.Monitor{ID: "paused", UserID: "u1", Kind: model.KindWeb, IsPaused: true}))

	stats, err := agg.Stats("u1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Up)
	assert.Equal(t, 1, stats.Down)
	assert.Equal(t, 1, stats.Paused)
}
