package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roster/internal/api"
	"roster/internal/entity"
	"roster/internal/store"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "roster.db"))
	require.NoError(t, err)
	return s
}

func seedTask(t *testing.T, s *Store, title string) *entity.Task {
	t.Helper()
	task := &entity.Task{
		ID:       entity.NewID(),
		Title:    title,
		Status:   "pending",
		Priority: entity.PriorityMedium,
	}
	require.NoError(t, s.CreateTask(context.Background(), task))
	return task
}

func TestOpenAndRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "roster.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)

	complexity := 3
	task := &entity.Task{
		ID:         entity.NewID(),
		Title:      "wire persistence",
		Summary:    "store survives restarts",
		Status:     "pending",
		Priority:   entity.PriorityHigh,
		Complexity: &complexity,
		Tags:       []string{"storage", "sqlite"},
	}
	require.NoError(t, s.CreateTask(ctx, task))
	assert.False(t, task.CreatedAt.IsZero(), "create stamps CreatedAt")

	// A fresh handle over the same file sees the row.
	reopened, err := Open(path)
	require.NoError(t, err)
	loaded, err := reopened.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "wire persistence", loaded.Title)
	assert.Equal(t, entity.PriorityHigh, loaded.Priority)
	require.NotNil(t, loaded.Complexity)
	assert.Equal(t, 3, *loaded.Complexity)
	assert.Equal(t, []string{"storage", "sqlite"}, loaded.Tags)
}

func TestUpdatePreservesCreatedAt(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	task := seedTask(t, s, "first pass")
	created := task.CreatedAt

	task.Title = "second pass"
	require.NoError(t, s.UpdateTask(ctx, task))

	loaded, err := s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "second pass", loaded.Title)
	assert.Equal(t, created, loaded.CreatedAt)
	assert.False(t, loaded.ModifiedAt.Before(created))
}

func TestUnknownIDsReturnNotFound(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.GetProject(ctx, "nope")
	assert.True(t, api.IsNotFound(err))
	_, err = s.GetFeature(ctx, "nope")
	assert.True(t, api.IsNotFound(err))
	_, err = s.GetTask(ctx, "nope")
	assert.True(t, api.IsNotFound(err))
	_, err = s.GetDependency(ctx, "nope")
	assert.True(t, api.IsNotFound(err))
	assert.True(t, api.IsNotFound(s.DeleteTask(ctx, "nope")))
}

func TestParentMustExist(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	missing := "no-such-parent"
	err := s.CreateFeature(ctx, &entity.Feature{
		ID:        entity.NewID(),
		ProjectID: &missing,
		Name:      "orphan",
		Status:    "planning",
		Priority:  entity.PriorityMedium,
	})
	assert.True(t, api.IsNotFound(err))

	err = s.CreateTask(ctx, &entity.Task{
		ID:        entity.NewID(),
		FeatureID: &missing,
		Title:     "orphan",
		Status:    "pending",
		Priority:  entity.PriorityMedium,
	})
	assert.True(t, api.IsNotFound(err))
}

func TestProjectDeleteCascades(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	project := &entity.Project{ID: entity.NewID(), Name: "platform", Status: "planning"}
	require.NoError(t, s.CreateProject(ctx, project))
	feature := &entity.Feature{
		ID:        entity.NewID(),
		ProjectID: &project.ID,
		Name:      "auth",
		Status:    "planning",
		Priority:  entity.PriorityMedium,
	}
	require.NoError(t, s.CreateFeature(ctx, feature))
	task := &entity.Task{
		ID:        entity.NewID(),
		FeatureID: &feature.ID,
		Title:     "login flow",
		Status:    "pending",
		Priority:  entity.PriorityMedium,
	}
	require.NoError(t, s.CreateTask(ctx, task))
	other := seedTask(t, s, "standalone")
	require.NoError(t, s.CreateDependency(ctx, &entity.Dependency{
		ID:         entity.NewID(),
		FromItemID: task.ID,
		ToItemID:   other.ID,
		Type:       entity.DependencyBlocks,
	}))
	require.NoError(t, s.SetSectionCount(ctx, task.ID, 2))

	require.NoError(t, s.DeleteProject(ctx, project.ID))

	_, err := s.GetFeature(ctx, feature.ID)
	assert.True(t, api.IsNotFound(err))
	_, err = s.GetTask(ctx, task.ID)
	assert.True(t, api.IsNotFound(err))
	edges, err := s.ListDependencies(ctx, other.ID, store.DirectionBoth)
	require.NoError(t, err)
	assert.Empty(t, edges, "edges vanish with either endpoint")
	n, err := s.CountSections(ctx, task.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	// The unrelated task survives.
	_, err = s.GetTask(ctx, other.ID)
	assert.NoError(t, err)
}

func TestDependencyUniqueness(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a := seedTask(t, s, "a")
	b := seedTask(t, s, "b")

	require.NoError(t, s.CreateDependency(ctx, &entity.Dependency{
		ID: entity.NewID(), FromItemID: a.ID, ToItemID: b.ID, Type: entity.DependencyBlocks,
	}))
	err := s.CreateDependency(ctx, &entity.Dependency{
		ID: entity.NewID(), FromItemID: a.ID, ToItemID: b.ID, Type: entity.DependencyBlocks,
	})
	assert.True(t, api.IsValidation(err), "duplicate (from, to, type) rejected")

	// Same endpoints under a different type is a distinct edge.
	assert.NoError(t, s.CreateDependency(ctx, &entity.Dependency{
		ID: entity.NewID(), FromItemID: a.ID, ToItemID: b.ID, Type: entity.DependencyRelatesTo,
	}))
}

func TestBlockingEdgesExcludeRelatesTo(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a := seedTask(t, s, "a")
	b := seedTask(t, s, "b")
	role := entity.RoleWork
	require.NoError(t, s.CreateDependency(ctx, &entity.Dependency{
		ID: entity.NewID(), FromItemID: a.ID, ToItemID: b.ID,
		Type: entity.DependencyBlocks, UnblockAt: &role,
	}))
	require.NoError(t, s.CreateDependency(ctx, &entity.Dependency{
		ID: entity.NewID(), FromItemID: a.ID, ToItemID: b.ID, Type: entity.DependencyRelatesTo,
	}))

	blocking, err := s.FindBlockingEdges(ctx, b.ID, store.DirectionIncoming)
	require.NoError(t, err)
	require.Len(t, blocking, 1)
	assert.Equal(t, entity.DependencyBlocks, blocking[0].Type)
	require.NotNil(t, blocking[0].UnblockAt, "unblock threshold survives the round trip")
	assert.Equal(t, entity.RoleWork, *blocking[0].UnblockAt)

	all, err := s.ListDependencies(ctx, b.ID, store.DirectionBoth)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestListFilters(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	done := seedTask(t, s, "Ship the parser")
	done.Status = "completed"
	done.Tags = []string{"Parser"}
	require.NoError(t, s.UpdateTask(ctx, done))
	seedTask(t, s, "unrelated chore")

	byStatus, err := s.ListTasks(ctx, store.TaskFilter{Statuses: []string{"COMPLETED"}})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, done.ID, byStatus[0].ID)

	byTitle, err := s.ListTasks(ctx, store.TaskFilter{TitleContains: "PARSER"})
	require.NoError(t, err)
	require.Len(t, byTitle, 1)
	assert.Equal(t, done.ID, byTitle[0].ID)

	byTag, err := s.ListTasks(ctx, store.TaskFilter{Tags: []string{"parser"}})
	require.NoError(t, err)
	require.Len(t, byTag, 1)
	assert.Equal(t, done.ID, byTag[0].ID)
}

func TestProjectScopedTaskList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	project := &entity.Project{ID: entity.NewID(), Name: "platform", Status: "planning"}
	require.NoError(t, s.CreateProject(ctx, project))
	feature := &entity.Feature{
		ID: entity.NewID(), ProjectID: &project.ID, Name: "auth",
		Status: "planning", Priority: entity.PriorityMedium,
	}
	require.NoError(t, s.CreateFeature(ctx, feature))
	inside := &entity.Task{
		ID: entity.NewID(), FeatureID: &feature.ID, Title: "login",
		Status: "pending", Priority: entity.PriorityMedium,
	}
	require.NoError(t, s.CreateTask(ctx, inside))
	seedTask(t, s, "outside")

	scoped, err := s.ListTasks(ctx, store.TaskFilter{ProjectID: &project.ID})
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, inside.ID, scoped[0].ID)
}

func TestTransactionRollback(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	var insideID string
	err := s.RunInTransaction(ctx, func(tx store.Store) error {
		task := &entity.Task{
			ID: entity.NewID(), Title: "doomed",
			Status: "pending", Priority: entity.PriorityMedium,
		}
		if err := tx.CreateTask(ctx, task); err != nil {
			return err
		}
		insideID = task.ID
		if _, err := tx.GetTask(ctx, task.ID); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.GetTask(ctx, insideID)
	assert.True(t, api.IsNotFound(err), "rollback discards the insert")
}

func TestTransactionCommitAndNestedJoin(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var taskID string
	err := s.RunInTransaction(ctx, func(tx store.Store) error {
		return tx.RunInTransaction(ctx, func(inner store.Store) error {
			task := &entity.Task{
				ID: entity.NewID(), Title: "kept",
				Status: "pending", Priority: entity.PriorityMedium,
			}
			taskID = task.ID
			return inner.CreateTask(ctx, task)
		})
	})
	require.NoError(t, err)

	loaded, err := s.GetTask(ctx, taskID)
	require.NoError(t, err)
	assert.Equal(t, "kept", loaded.Title)
}

func TestRoleTransitionsOldestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	task := seedTask(t, s, "tracked")
	first := &entity.RoleTransition{
		EntityID:   task.ID,
		EntityType: entity.ContainerTask,
		FromRole:   entity.RoleQueue,
		ToRole:     entity.RoleWork,
		FromStatus: "pending",
		ToStatus:   "in-progress",
		Trigger:    "manual",
	}
	require.NoError(t, s.AppendRoleTransition(ctx, first))
	assert.NotEmpty(t, first.ID, "append backfills the record id")
	second := &entity.RoleTransition{
		EntityID:   task.ID,
		EntityType: entity.ContainerTask,
		FromRole:   entity.RoleWork,
		ToRole:     entity.RoleTerminal,
		FromStatus: "in-progress",
		ToStatus:   "completed",
		Trigger:    "manual",
		CreatedAt:  first.CreatedAt.Add(time.Second),
	}
	require.NoError(t, s.AppendRoleTransition(ctx, second))

	records, err := s.ListRoleTransitions(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, entity.RoleWork, records[0].ToRole)
	assert.Equal(t, entity.RoleTerminal, records[1].ToRole)
}
