package fragment

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyDistinguishesAbsentFromZero(t *testing.T) {
	ids := []Identity{
		Text(0, 1),
		Group(0, 1, 0),
		Cell(0, 1, 0, 0),
		GroupCell(0, 1, 0, 0, 0),
		Cell(0, 1, 1, 0),
		Cell(0, 1, 0, 1),
		Text(1, 0),
		Text(10, 1),
		Text(1, 1),
	}
	seen := map[string]Identity{}
	for _, id := range ids {
		k := id.Key()
		prev, dup := seen[k]
		require.False(t, dup, "key %q shared by %v and %v", k, prev, id)
		seen[k] = id
	}

	assert.Equal(t, "0:1", Text(0, 1).Key())
	assert.Equal(t, "0:1:g0", Group(0, 1, 0).Key())
	assert.Equal(t, "0:1:r0c0", Cell(0, 1, 0, 0).Key())
	assert.Equal(t, "0:1:g2:r1c0", GroupCell(0, 1, 2, 1, 0).Key())
}

func TestIdentityIsComparable(t *testing.T) {
	m := map[Identity]string{Cell(0, 2, 0, 0): "header"}
	_, ok := m[Cell(0, 2, 0, 0)]
	assert.True(t, ok)
	_, ok = m[Text(0, 2)]
	assert.False(t, ok)
}

func TestParseKeyRoundTrip(t *testing.T) {
	for _, id := range []Identity{
		Text(3, 7),
		Group(0, 4, 12),
		Cell(2, 0, 5, 3),
		GroupCell(9, 1, 0, 0, 2),
	} {
		got, err := ParseKey(id.Key())
		require.NoError(t, err)
		assert.Equal(t, id, got)
	}
}

func TestParseKeyErrors(t *testing.T) {
	for _, key := range []string{
		"",
		"1",
		"a:1",
		"1:-2",
		"1:2:x3",
		"1:2:r1",
		"1:2:g1:r1c1:extra",
		"1:2:r1c1:g0",
	} {
		_, err := ParseKey(key)
		assert.Error(t, err, key)
	}
}

func TestLessOrdering(t *testing.T) {
	ids := []Identity{
		Cell(0, 2, 1, 0),
		Text(1, 0),
		Cell(0, 2, 0, 1),
		Group(0, 2, 0),
		Text(0, 2),
		Cell(0, 2, 0, 0),
		Text(0, 0),
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
	assert.Equal(t, []Identity{
		Text(0, 0),
		Text(0, 2),
		Cell(0, 2, 0, 0),
		Cell(0, 2, 0, 1),
		Cell(0, 2, 1, 0),
		Group(0, 2, 0),
		Text(1, 0),
	}, ids)
}

func TestHeaderRow(t *testing.T) {
	assert.True(t, Cell(0, 0, 0, 3).IsHeaderRow())
	assert.False(t, Cell(0, 0, 1, 0).IsHeaderRow())
	assert.False(t, Text(0, 0).IsHeaderRow())
	assert.True(t, GroupCell(0, 0, 1, 0, 0).IsTableCell())
}
