package windows

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func direct(id string) Conversation {
	return Conversation{ID: id, Kind: Direct, DisplayName: "user " + id}
}

func ids(open []Conversation) []string {
	out := make([]string, len(open))
	for i, c := range open {
		out[i] = c.ID
	}
	return out
}

func TestSelect_RaisesExistingWindow(t *testing.T) {
	t.Parallel()

	m := NewManager(4)
	for _, id := range []string{"A", "B", "C", "D"} {
		m.Select(direct(id))
	}
	m.Select(direct("B"))

	require.Equal(t, []string{"A", "C", "D", "B"}, ids(m.Open()))
	require.Equal(t, "B", m.Active())
}

func TestSelect_EvictsLeastRecentlyActivated(t *testing.T) {
	t.Parallel()

	var evicted []string
	m := NewManager(4, WithEvictionHook(func(c Conversation) {
		evicted = append(evicted, c.ID)
	}))
	for _, id := range []string{"A", "B", "C", "D"} {
		m.Select(direct(id))
	}
	m.Select(direct("B"))
	m.Select(direct("E"))

	require.Equal(t, []string{"C", "D", "B", "E"}, ids(m.Open()))
	require.Equal(t, []string{"A"}, evicted)
	require.Equal(t, "E", m.Active())
}

func TestSelect_RaiseDoesNotEvict(t *testing.T) {
	t.Parallel()

	var evictions int
	m := NewManager(2, WithEvictionHook(func(Conversation) { evictions++ }))
	m.Select(direct("A"))
	m.Select(direct("B"))
	m.Select(direct("A"))

	require.Equal(t, []string{"B", "A"}, ids(m.Open()))
	require.Zero(t, evictions)
}

func TestSetMax_ShrinkTruncatesOldestFirst(t *testing.T) {
	t.Parallel()

	var evicted []string
	m := NewManager(4, WithEvictionHook(func(c Conversation) {
		evicted = append(evicted, c.ID)
	}))
	for _, id := range []string{"C", "D", "B", "E"} {
		m.Select(direct(id))
	}

	m.SetMax(2)

	require.Equal(t, []string{"B", "E"}, ids(m.Open()))
	require.Equal(t, []string{"C", "D"}, evicted)
	require.Equal(t, 2, m.Max())
}

func TestSetMax_GrowKeepsWindows(t *testing.T) {
	t.Parallel()

	m := NewManager(2)
	m.Select(direct("A"))
	m.Select(direct("B"))

	m.SetMax(5)

	require.Equal(t, []string{"A", "B"}, ids(m.Open()))
}

func TestClose_ActiveWindowClearsSelection(t *testing.T) {
	t.Parallel()

	m := NewManager(4)
	m.Select(direct("A"))
	m.Select(direct("B"))

	m.Close("B")

	require.Equal(t, []string{"A"}, ids(m.Open()))
	require.Empty(t, m.Active())
}

func TestClose_InactiveWindowKeepsSelection(t *testing.T) {
	t.Parallel()

	m := NewManager(4)
	m.Select(direct("A"))
	m.Select(direct("B"))

	m.Close("A")

	require.Equal(t, []string{"B"}, ids(m.Open()))
	require.Equal(t, "B", m.Active())
}

func TestClose_UnknownIDIsNoOp(t *testing.T) {
	t.Parallel()

	m := NewManager(4)
	m.Select(direct("A"))

	m.Close("Z")

	require.Equal(t, []string{"A"}, ids(m.Open()))
}

func TestEviction_WhenActiveWindowEvicted(t *testing.T) {
	t.Parallel()

	m := NewManager(3)
	m.Select(direct("A"))
	m.Select(direct("B"))
	m.SetActive("A")

	m.SetMax(1)

	require.Equal(t, []string{"B"}, ids(m.Open()))
	require.Empty(t, m.Active())
}

func TestSetActive_RequiresOpenWindow(t *testing.T) {
	t.Parallel()

	m := NewManager(4)
	m.Select(direct("A"))

	m.SetActive("Z")
	require.Empty(t, m.Active())

	m.SetActive("A")
	require.Equal(t, "A", m.Active())
}

func TestNewManager_ClampsBoundToOne(t *testing.T) {
	t.Parallel()

	m := NewManager(0)
	require.Equal(t, 1, m.Max())

	m.SetMax(-3)
	require.Equal(t, 1, m.Max())
}
