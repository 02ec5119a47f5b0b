package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etas-sim/etas-sim/sim/internal/testutil"
)

func TestCatalog_AllocatesSequentialIDs(t *testing.T) {
	cat := NewCatalog()
	roots := cat.AppendRoots([]Event{{Time: testutil.Days(1)}, {Time: testutil.Days(2)}})
	assert.Equal(t, []EventID{1, 2}, roots)

	root, ok := cat.Get(2)
	require.True(t, ok)
	assert.Equal(t, EventID(2), root.LineageID)
	assert.True(t, root.IsRoot())

	kids, err := cat.AppendOffspring([]Event{{ParentID: 2, Generation: 1, LineageID: 2, Time: testutil.Days(3)}})
	require.NoError(t, err)
	assert.Equal(t, []EventID{3}, kids)
	assert.Equal(t, 3, cat.Len())
	assert.Equal(t, 1, cat.MaxGeneration())
}

func TestCatalog_RejectsOrphans(t *testing.T) {
	cat := NewCatalog()
	_, err := cat.AppendOffspring([]Event{{ParentID: 42}})
	assert.Error(t, err)
	assert.Equal(t, 0, cat.Len())
	assert.Equal(t, -1, cat.MaxGeneration())
}

func TestCatalog_FilterDoesNotMutate(t *testing.T) {
	cat := NewCatalog()
	cat.AppendRoots([]Event{{Magnitude: 2}, {Magnitude: 5}, {Magnitude: 3}})

	big := cat.Filter(func(e *Event) bool { return e.Magnitude >= 3 })
	assert.Len(t, big, 2)
	assert.Equal(t, 3, cat.Len())

	events := cat.Events()
	events[0].Magnitude = 99
	e, _ := cat.Get(1)
	assert.Equal(t, 2.0, e.Magnitude, "Events must return a copy")
}
