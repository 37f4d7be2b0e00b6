package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSet(t *testing.T) {
	s := NewSet("a", "b")
	s.Add("a")
	require.Equal(t, 2, s.Len())
	require.True(t, s.Contains("b"))
	require.False(t, s.Contains("c"))
}

func TestAssertf(t *testing.T) {
	require.NotPanics(t, func() { Assertf(true, "fine") })
	require.PanicsWithValue(t, "bad value 3", func() { Assertf(false, "bad value %d", 3) })
}

func TestSortedKeysAndTern(t *testing.T) {
	require.Equal(t, []string{"a", "b", "c"}, SortedKeys(map[string]int{"c": 1, "a": 2, "b": 3}))
	require.Equal(t, "yes", Tern(true, "yes", "no"))
	require.Equal(t, "no", Tern(false, "yes", "no"))
}
