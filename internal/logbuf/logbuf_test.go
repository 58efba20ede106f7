package logbuf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteParsesBracketedComponentPrefix(t *testing.T) {
	b := New()
	_, err := b.Write([]byte("[scheduler] bucket 1m: ran 3 monitors\n"))
	require.NoError(t, err)

	entries := b.Last(10, "")
	require.Len(t, entries, 1)
	assert.Equal(t, "scheduler", entries[0].Component)
	assert.Equal(t, "bucket 1m: ran 3 monitors", entries[0].Message)
}

func TestWriteWithoutBracketPrefixLeavesComponentEmpty(t *testing.T) {
	b := New()
	_, err := b.Write([]byte("plain log line with no tag\n"))
	require.NoError(t, err)

	entries := b.Last(10, "")
	require.Len(t, entries, 1)
	assert.Empty(t, entries[0].Component)
	assert.Equal(t, "plain log line with no tag", entries[0].Message)
}

func TestLastFiltersByComponent(t *testing.T) {
	b := New()
	b.Write([]byte("[scheduler] tick 1\n"))
	b.Write([]byte("[worker] monitor m1 probed\n"))
	b.Write([]byte("[scheduler] tick 2\n"))

	entries := b.Last(10, "scheduler")
	require.Len(t, entries, 2)
	assert.Equal(t, "tick 1", entries[0].Message)
	assert.Equal(t, "tick 2", entries[1].Message)
}

func TestLastLimitsCountAfterFiltering(t *testing.T) {
	b := New()
	for i := 0; i < 5; i++ {
		b.Write([]byte("[worker] probe\n"))
	}

	entries := b.Last(2, "worker")
	assert.Len(t, entries, 2)
}

func TestLastOnEmptyBufferReturnsEmpty(t *testing.T) {
	b := New()
	assert.Empty(t, b.Last(10, ""))
}

func TestWriteWrapsAroundRingCorrectly(t *testing.T) {
	b := &Buffer{entries: make([]Entry, 3)}
	for i := 0; i < 5; i++ {
		b.Write([]byte("[x] line\n"))
	}

	entries := b.Last(10, "")
	assert.Len(t, entries, 3) // capacity-bounded, oldest two dropped
}
