package dependency

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roster/internal/config"
	"roster/internal/entity"
	"roster/internal/flow"
	"roster/internal/store/memory"
)

func newService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	st := memory.New()
	return New(st, flow.New(config.Default())), st
}

func seedServiceTask(t *testing.T, st *memory.Store, title, status string, priority entity.Priority, complexity *int) *entity.Task {
	t.Helper()
	task := &entity.Task{
		ID:         entity.NewID(),
		Title:      title,
		Status:     status,
		Priority:   priority,
		Complexity: complexity,
	}
	require.NoError(t, st.CreateTask(context.Background(), task))
	return task
}

func cx(n int) *int { return &n }

func TestBlockedListsUnsatisfiedBlockers(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	blocker := seedServiceTask(t, st, "schema migration", "pending", entity.PriorityHigh, nil)
	blocked := seedServiceTask(t, st, "api endpoint", "pending", entity.PriorityMedium, nil)
	seedEdge(t, st, blocker.ID, blocked.ID, entity.DependencyBlocks)

	out, err := svc.Blocked(ctx, Filter{}, false)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, blocked.ID, out[0].TaskID)
	assert.Equal(t, "api endpoint", out[0].Title)
	require.Len(t, out[0].Blockers, 1)
	assert.Equal(t, blocker.ID, out[0].Blockers[0].TaskID)
	assert.Equal(t, "pending", out[0].Blockers[0].Status)
	assert.Empty(t, out[0].Blockers[0].Threshold)

	out, err = svc.Blocked(ctx, Filter{}, true)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, entity.RoleTerminal, out[0].Blockers[0].Threshold)
	assert.Equal(t, entity.RoleQueue, out[0].Blockers[0].Role)
}

func TestBlockedSatisfiedEdgeDropsOut(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	blocker := seedServiceTask(t, st, "blocker", "completed", entity.PriorityMedium, nil)
	seedServiceTask(t, st, "free", "pending", entity.PriorityMedium, nil)
	blocked := seedServiceTask(t, st, "blocked", "pending", entity.PriorityMedium, nil)
	seedEdge(t, st, blocker.ID, blocked.ID, entity.DependencyBlocks)

	out, err := svc.Blocked(ctx, Filter{}, false)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestBlockedHonorsReviewThreshold(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	// testing maps to the review role in the default flow.
	blocker := seedServiceTask(t, st, "blocker", "testing", entity.PriorityMedium, nil)
	blocked := seedServiceTask(t, st, "blocked", "pending", entity.PriorityMedium, nil)
	review := entity.RoleReview
	require.NoError(t, st.CreateDependency(ctx, &entity.Dependency{
		ID:         entity.NewID(),
		FromItemID: blocker.ID,
		ToItemID:   blocked.ID,
		Type:       entity.DependencyBlocks,
		UnblockAt:  &review,
	}))

	out, err := svc.Blocked(ctx, Filter{}, false)
	require.NoError(t, err)
	assert.Empty(t, out, "review-role blocker satisfies a review threshold")

	// The same edge with the default terminal threshold still blocks.
	other := seedServiceTask(t, st, "strict", "pending", entity.PriorityMedium, nil)
	seedEdge(t, st, blocker.ID, other.ID, entity.DependencyBlocks)
	out, err = svc.Blocked(ctx, Filter{}, false)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, other.ID, out[0].TaskID)
}

func TestBlockedSkipsTerminalCandidates(t *testing.T) {
	svc, st := newService(t)
	blocker := seedServiceTask(t, st, "blocker", "pending", entity.PriorityMedium, nil)
	cancelled := seedServiceTask(t, st, "cancelled", "cancelled", entity.PriorityMedium, nil)
	seedEdge(t, st, blocker.ID, cancelled.ID, entity.DependencyBlocks)

	out, err := svc.Blocked(context.Background(), Filter{}, false)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestBlockedIsBlockedByDirection(t *testing.T) {
	svc, st := newService(t)
	blocker := seedServiceTask(t, st, "blocker", "in-progress", entity.PriorityMedium, nil)
	blocked := seedServiceTask(t, st, "blocked", "pending", entity.PriorityMedium, nil)
	seedEdge(t, st, blocked.ID, blocker.ID, entity.DependencyIsBlockedBy)

	out, err := svc.Blocked(context.Background(), Filter{}, false)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, blocked.ID, out[0].TaskID)
	require.Len(t, out[0].Blockers, 1)
	assert.Equal(t, blocker.ID, out[0].Blockers[0].TaskID)
}

func TestBlockedRelatesToIgnored(t *testing.T) {
	svc, st := newService(t)
	a := seedServiceTask(t, st, "a", "pending", entity.PriorityMedium, nil)
	b := seedServiceTask(t, st, "b", "pending", entity.PriorityMedium, nil)
	seedEdge(t, st, a.ID, b.ID, entity.DependencyRelatesTo)

	out, err := svc.Blocked(context.Background(), Filter{}, false)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestBlockedFeatureFilter(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	feature := &entity.Feature{ID: entity.NewID(), Name: "checkout", Status: "planning", Priority: entity.PriorityMedium}
	require.NoError(t, st.CreateFeature(ctx, feature))

	blocker := seedServiceTask(t, st, "blocker", "pending", entity.PriorityMedium, nil)
	inFeature := &entity.Task{
		ID:        entity.NewID(),
		FeatureID: &feature.ID,
		Title:     "in feature",
		Status:    "pending",
		Priority:  entity.PriorityMedium,
	}
	require.NoError(t, st.CreateTask(ctx, inFeature))
	outside := seedServiceTask(t, st, "outside", "pending", entity.PriorityMedium, nil)
	seedEdge(t, st, blocker.ID, inFeature.ID, entity.DependencyBlocks)
	seedEdge(t, st, blocker.ID, outside.ID, entity.DependencyBlocks)

	out, err := svc.Blocked(ctx, Filter{FeatureID: &feature.ID}, false)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, inFeature.ID, out[0].TaskID)
}

func TestNewlyUnblocked(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	done := seedServiceTask(t, st, "done", "completed", entity.PriorityMedium, nil)
	freed := seedServiceTask(t, st, "freed", "pending", entity.PriorityMedium, nil)
	stillBlocked := seedServiceTask(t, st, "still blocked", "pending", entity.PriorityMedium, nil)
	otherBlocker := seedServiceTask(t, st, "other blocker", "pending", entity.PriorityMedium, nil)
	alreadyDone := seedServiceTask(t, st, "already done", "completed", entity.PriorityMedium, nil)

	seedEdge(t, st, done.ID, freed.ID, entity.DependencyBlocks)
	seedEdge(t, st, done.ID, stillBlocked.ID, entity.DependencyBlocks)
	seedEdge(t, st, otherBlocker.ID, stillBlocked.ID, entity.DependencyBlocks)
	seedEdge(t, st, done.ID, alreadyDone.ID, entity.DependencyBlocks)

	out, err := svc.NewlyUnblocked(ctx, done.ID)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, freed.ID, out[0].ID)
}

func TestNewlyUnblockedDeduplicatesParallelEdges(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	done := seedServiceTask(t, st, "done", "completed", entity.PriorityMedium, nil)
	freed := seedServiceTask(t, st, "freed", "pending", entity.PriorityMedium, nil)
	// Both rows express "done blocks freed".
	seedEdge(t, st, done.ID, freed.ID, entity.DependencyBlocks)
	seedEdge(t, st, freed.ID, done.ID, entity.DependencyIsBlockedBy)

	out, err := svc.NewlyUnblocked(ctx, done.ID)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, freed.ID, out[0].ID)
}

func TestNextOrdersByPriorityThenComplexityThenAge(t *testing.T) {
	svc, st := newService(t)
	lowEasy := seedServiceTask(t, st, "low easy", "pending", entity.PriorityLow, cx(1))
	highHard := seedServiceTask(t, st, "high hard", "pending", entity.PriorityHigh, cx(8))
	highDefault := seedServiceTask(t, st, "high default", "pending", entity.PriorityHigh, nil)
	highEasy := seedServiceTask(t, st, "high easy", "pending", entity.PriorityHigh, cx(3))
	mediumFirst := seedServiceTask(t, st, "medium first", "pending", entity.PriorityMedium, cx(2))
	mediumSecond := seedServiceTask(t, st, "medium second", "pending", entity.PriorityMedium, cx(2))

	rec, err := svc.Next(context.Background(), Filter{}, 10, false)
	require.NoError(t, err)
	assert.Equal(t, 6, rec.TotalCandidates)

	var order []string
	for _, task := range rec.Tasks {
		order = append(order, task.TaskID)
	}
	// High before medium before low; within high, complexity 3 < nil (5) < 8;
	// equal medium entries keep creation order.
	assert.Equal(t, []string{
		highEasy.ID, highDefault.ID, highHard.ID,
		mediumFirst.ID, mediumSecond.ID,
		lowEasy.ID,
	}, order)
}

func TestNextSkipsBlockedAndNonQueueTasks(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	ready := seedServiceTask(t, st, "ready", "pending", entity.PriorityMedium, nil)
	seedServiceTask(t, st, "started", "in-progress", entity.PriorityHigh, nil)
	seedServiceTask(t, st, "finished", "completed", entity.PriorityHigh, nil)
	seedServiceTask(t, st, "parked", "on-hold", entity.PriorityHigh, nil)
	blocker := seedServiceTask(t, st, "blocker", "pending", entity.PriorityLow, nil)
	gated := seedServiceTask(t, st, "gated", "pending", entity.PriorityHigh, nil)
	seedEdge(t, st, blocker.ID, gated.ID, entity.DependencyBlocks)

	rec, err := svc.Next(ctx, Filter{}, 10, false)
	require.NoError(t, err)
	assert.Equal(t, 2, rec.TotalCandidates)
	require.Len(t, rec.Tasks, 2)
	assert.Equal(t, ready.ID, rec.Tasks[0].TaskID)
	assert.Equal(t, blocker.ID, rec.Tasks[1].TaskID)
}

func TestNextLimitTruncatesButCountsFrontier(t *testing.T) {
	svc, st := newService(t)
	first := seedServiceTask(t, st, "first", "pending", entity.PriorityHigh, cx(1))
	seedServiceTask(t, st, "second", "pending", entity.PriorityMedium, nil)
	seedServiceTask(t, st, "third", "pending", entity.PriorityLow, nil)

	rec, err := svc.Next(context.Background(), Filter{}, 1, false)
	require.NoError(t, err)
	require.Len(t, rec.Tasks, 1)
	assert.Equal(t, first.ID, rec.Tasks[0].TaskID)
	assert.Equal(t, 3, rec.TotalCandidates)
}

func TestNextDetailFields(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	feature := &entity.Feature{ID: entity.NewID(), Name: "search", Status: "planning", Priority: entity.PriorityMedium}
	require.NoError(t, st.CreateFeature(ctx, feature))
	task := &entity.Task{
		ID:        entity.NewID(),
		FeatureID: &feature.ID,
		Title:     "tune ranking",
		Status:    "pending",
		Priority:  entity.PriorityHigh,
		Summary:   "partial notes",
		Tags:      []string{"search", "perf"},
	}
	require.NoError(t, st.CreateTask(ctx, task))

	rec, err := svc.Next(ctx, Filter{}, 1, false)
	require.NoError(t, err)
	require.Len(t, rec.Tasks, 1)
	assert.Empty(t, rec.Tasks[0].Summary)
	assert.Nil(t, rec.Tasks[0].FeatureID)

	rec, err = svc.Next(ctx, Filter{}, 1, true)
	require.NoError(t, err)
	require.Len(t, rec.Tasks, 1)
	assert.Equal(t, "partial notes", rec.Tasks[0].Summary)
	assert.Equal(t, []string{"search", "perf"}, rec.Tasks[0].Tags)
	require.NotNil(t, rec.Tasks[0].FeatureID)
	assert.Equal(t, feature.ID, *rec.Tasks[0].FeatureID)
}

func TestIsBlocked(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	blocker := seedServiceTask(t, st, "blocker", "pending", entity.PriorityMedium, nil)
	blocked := seedServiceTask(t, st, "blocked", "pending", entity.PriorityMedium, nil)
	seedEdge(t, st, blocker.ID, blocked.ID, entity.DependencyBlocks)

	got, err := svc.IsBlocked(ctx, blocked.ID)
	require.NoError(t, err)
	assert.True(t, got)

	got, err = svc.IsBlocked(ctx, blocker.ID)
	require.NoError(t, err)
	assert.False(t, got)
}
