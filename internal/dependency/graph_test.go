package dependency

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roster/internal/api"
	"roster/internal/entity"
	"roster/internal/store/memory"
)

func seedGraphTask(t *testing.T, st *memory.Store, title string) *entity.Task {
	t.Helper()
	task := &entity.Task{
		ID:       entity.NewID(),
		Title:    title,
		Status:   "pending",
		Priority: entity.PriorityMedium,
	}
	require.NoError(t, st.CreateTask(context.Background(), task))
	return task
}

func seedEdge(t *testing.T, st *memory.Store, from, to string, typ entity.DependencyType) {
	t.Helper()
	require.NoError(t, st.CreateDependency(context.Background(), &entity.Dependency{
		ID:         entity.NewID(),
		FromItemID: from,
		ToItemID:   to,
		Type:       typ,
	}))
}

func TestCheckAcyclicAllowsForwardEdge(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	a := seedGraphTask(t, st, "a")
	b := seedGraphTask(t, st, "b")
	c := seedGraphTask(t, st, "c")
	seedEdge(t, st, a.ID, b.ID, entity.DependencyBlocks)
	seedEdge(t, st, b.ID, c.ID, entity.DependencyBlocks)

	// a already blocks c transitively; a direct shortcut is still acyclic.
	err := CheckAcyclic(ctx, st, &entity.Dependency{
		FromItemID: a.ID,
		ToItemID:   c.ID,
		Type:       entity.DependencyBlocks,
	})
	assert.NoError(t, err)
}

func TestCheckAcyclicRejectsDirectCycle(t *testing.T) {
	st := memory.New()
	a := seedGraphTask(t, st, "a")
	b := seedGraphTask(t, st, "b")
	seedEdge(t, st, a.ID, b.ID, entity.DependencyBlocks)

	err := CheckAcyclic(context.Background(), st, &entity.Dependency{
		FromItemID: b.ID,
		ToItemID:   a.ID,
		Type:       entity.DependencyBlocks,
	})
	require.Error(t, err)
	assert.True(t, api.IsCycle(err))

	var cycleErr *api.CycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.Equal(t, []string{b.ID, a.ID, b.ID}, cycleErr.Path)
}

func TestCheckAcyclicRejectsTransitiveCycle(t *testing.T) {
	st := memory.New()
	t1 := seedGraphTask(t, st, "t1")
	t2 := seedGraphTask(t, st, "t2")
	t3 := seedGraphTask(t, st, "t3")
	seedEdge(t, st, t1.ID, t2.ID, entity.DependencyBlocks)
	seedEdge(t, st, t2.ID, t3.ID, entity.DependencyBlocks)

	err := CheckAcyclic(context.Background(), st, &entity.Dependency{
		FromItemID: t3.ID,
		ToItemID:   t1.ID,
		Type:       entity.DependencyBlocks,
	})
	require.Error(t, err)

	var cycleErr *api.CycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.Equal(t, []string{t3.ID, t1.ID, t2.ID, t3.ID}, cycleErr.Path)
}

func TestCheckAcyclicRejectsSelfEdge(t *testing.T) {
	st := memory.New()
	a := seedGraphTask(t, st, "a")

	err := CheckAcyclic(context.Background(), st, &entity.Dependency{
		FromItemID: a.ID,
		ToItemID:   a.ID,
		Type:       entity.DependencyBlocks,
	})
	require.Error(t, err)
	assert.True(t, api.IsCycle(err))
}

func TestCheckAcyclicNormalizesIsBlockedBy(t *testing.T) {
	st := memory.New()
	a := seedGraphTask(t, st, "a")
	b := seedGraphTask(t, st, "b")
	seedEdge(t, st, a.ID, b.ID, entity.DependencyBlocks)

	// "a is blocked by b" puts b on the blocking end, closing the loop.
	err := CheckAcyclic(context.Background(), st, &entity.Dependency{
		FromItemID: a.ID,
		ToItemID:   b.ID,
		Type:       entity.DependencyIsBlockedBy,
	})
	require.Error(t, err)
	assert.True(t, api.IsCycle(err))
}

func TestCheckAcyclicIgnoresRelatesTo(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	a := seedGraphTask(t, st, "a")
	b := seedGraphTask(t, st, "b")
	seedEdge(t, st, a.ID, b.ID, entity.DependencyBlocks)

	// A RELATES_TO edge in the reverse direction carries no blocking
	// semantics and is always accepted.
	err := CheckAcyclic(ctx, st, &entity.Dependency{
		FromItemID: b.ID,
		ToItemID:   a.ID,
		Type:       entity.DependencyRelatesTo,
	})
	assert.NoError(t, err)

	// Nor does an existing RELATES_TO edge extend the walk.
	seedEdge(t, st, b.ID, a.ID, entity.DependencyRelatesTo)
	err = CheckAcyclic(ctx, st, &entity.Dependency{
		FromItemID: a.ID,
		ToItemID:   b.ID,
		Type:       entity.DependencyBlocks,
	})
	assert.NoError(t, err)
}
