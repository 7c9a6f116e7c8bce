package fieldtable

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAssignsSequentialIDs(t *testing.T) {
	tb := New()

	id0 := tb.Append("u", FileOffset{Offset: 0, Checksum: "aaa"})
	id1 := tb.Append("u", FileOffset{Offset: 16, Checksum: "bbb"})
	id2 := tb.Append("u", FileOffset{Offset: 32, Checksum: "ccc"})

	assert.Equal(t, 0, id0)
	assert.Equal(t, 1, id1)
	assert.Equal(t, 2, id2)

	entries, ok := tb.Lookup("u")
	require.True(t, ok)
	require.Len(t, entries, 3)
	assert.Equal(t, uint64(16), entries[1].Offset)
}

func TestLookupUnknownField(t *testing.T) {
	tb := New()
	_, ok := tb.Lookup("missing")
	assert.False(t, ok)
}

func TestReplaceUpdatesExistingEntry(t *testing.T) {
	tb := New()
	tb.Append("u", FileOffset{Offset: 0, Checksum: "old"})

	err := tb.Replace("u", 0, FileOffset{Offset: 0, Checksum: "new"})
	require.NoError(t, err)

	entries, _ := tb.Lookup("u")
	assert.Equal(t, "new", entries[0].Checksum)
}

func TestReplaceInvalidID(t *testing.T) {
	tb := New()
	tb.Append("u", FileOffset{Offset: 0, Checksum: "old"})

	err := tb.Replace("u", 1, FileOffset{Offset: 0, Checksum: "new"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidID))

	err = tb.Replace("unknown", 0, FileOffset{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidID))
}

func TestNamesSortedDeterministically(t *testing.T) {
	tb := New()
	tb.Append("zeta", FileOffset{})
	tb.Append("alpha", FileOffset{})
	tb.Append("mu", FileOffset{})

	assert.Equal(t, []string{"alpha", "mu", "zeta"}, tb.Names())
}

func TestResetClearsTable(t *testing.T) {
	tb := New()
	tb.Append("u", FileOffset{})
	tb.Reset()

	_, ok := tb.Lookup("u")
	assert.False(t, ok)
	assert.Empty(t, tb.Names())
}
