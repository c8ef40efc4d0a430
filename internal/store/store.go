// Package store defines the entity persistence contract the orchestration
// core programs against. Implementations live in the memory and sqlite
// subpackages; the core never sees a concrete backend.
package store

import (
	"context"

	"roster/internal/entity"
)

// Direction selects which dependency edges of a task a query returns,
// relative to that task.
type Direction string

const (
	// DirectionIncoming returns edges whose to-item is the task.
	DirectionIncoming Direction = "incoming"
	// DirectionOutgoing returns edges whose from-item is the task.
	DirectionOutgoing Direction = "outgoing"
	// DirectionBoth returns edges touching the task on either end.
	DirectionBoth Direction = "both"
)

// ProjectFilter narrows ListProjects.
type ProjectFilter struct {
	// NameContains matches case-insensitively against the project name.
	NameContains string
	// Statuses keeps only projects whose status is in the set.
	Statuses []string
	// Tags keeps only projects carrying at least one of the tags.
	Tags []string
}

// FeatureFilter narrows ListFeatures.
type FeatureFilter struct {
	// ProjectID keeps only features parented by the project.
	ProjectID *string
	// NameContains matches case-insensitively against the feature name.
	NameContains string
	// Statuses keeps only features whose status is in the set.
	Statuses []string
	// Tags keeps only features carrying at least one of the tags.
	Tags []string
	// Priority keeps only features with the given priority.
	Priority *entity.Priority
}

// TaskFilter narrows ListTasks. ProjectID resolves through the feature
// parent chain.
type TaskFilter struct {
	ProjectID *string
	FeatureID *string
	// TitleContains matches case-insensitively against the task title.
	TitleContains string
	// Statuses keeps only tasks whose status is in the set.
	Statuses []string
	// Tags keeps only tasks carrying at least one of the tags.
	Tags []string
	// Priority keeps only tasks with the given priority.
	Priority *entity.Priority
}

// Store is the typed read/write surface over projects, features, tasks,
// dependencies, and role transitions.
//
// Semantics shared by all implementations:
//
//   - Get* returns api.NotFoundError (via errors.As) for unknown ids.
//   - Create* stamps CreatedAt/ModifiedAt (UTC) and requires a caller-set id.
//   - Update* refreshes ModifiedAt and replaces the stored entity wholesale.
//   - Delete cascades ownership: project -> features -> tasks ->
//     dependencies/sections/transitions; deleting either endpoint task
//     removes the edge.
//   - CreateDependency enforces the (from, to, type) uniqueness constraint.
//   - List results are ordered by CreatedAt ascending, then id, so callers
//     get a stable creation-order tiebreak for free.
//   - Returned entities are private copies; mutating them does not alter the
//     store.
type Store interface {
	CreateProject(ctx context.Context, project *entity.Project) error
	GetProject(ctx context.Context, id string) (*entity.Project, error)
	ListProjects(ctx context.Context, filter ProjectFilter) ([]*entity.Project, error)
	UpdateProject(ctx context.Context, project *entity.Project) error
	DeleteProject(ctx context.Context, id string) error

	CreateFeature(ctx context.Context, feature *entity.Feature) error
	GetFeature(ctx context.Context, id string) (*entity.Feature, error)
	ListFeatures(ctx context.Context, filter FeatureFilter) ([]*entity.Feature, error)
	UpdateFeature(ctx context.Context, feature *entity.Feature) error
	DeleteFeature(ctx context.Context, id string) error

	CreateTask(ctx context.Context, task *entity.Task) error
	GetTask(ctx context.Context, id string) (*entity.Task, error)
	ListTasks(ctx context.Context, filter TaskFilter) ([]*entity.Task, error)
	UpdateTask(ctx context.Context, task *entity.Task) error
	DeleteTask(ctx context.Context, id string) error

	CreateDependency(ctx context.Context, dep *entity.Dependency) error
	GetDependency(ctx context.Context, id string) (*entity.Dependency, error)
	DeleteDependency(ctx context.Context, id string) error

	// ListDependencies returns edges of every type touching the task in the
	// given direction.
	ListDependencies(ctx context.Context, taskID string, direction Direction) ([]*entity.Dependency, error)

	// FindBlockingEdges returns only BLOCKS / IS_BLOCKED_BY edges touching
	// the task in the given direction. RELATES_TO never appears here.
	FindBlockingEdges(ctx context.Context, taskID string, direction Direction) ([]*entity.Dependency, error)

	// AppendRoleTransition records a role crossing. An empty record ID and a
	// zero CreatedAt are filled in by the store.
	AppendRoleTransition(ctx context.Context, record *entity.RoleTransition) error
	// ListRoleTransitions returns the audit records for an entity, oldest
	// first.
	ListRoleTransitions(ctx context.Context, entityID string) ([]*entity.RoleTransition, error)

	// CountSections reports how many content sections are attached to a
	// task. The cascade cleanup uses it to tell user-authored tasks from
	// empty scaffolding; content authoring itself is outside this interface.
	CountSections(ctx context.Context, taskID string) (int, error)

	// RunInTransaction executes fn with all-or-nothing semantics. The handle
	// passed to fn implements Store; nested calls join the enclosing
	// transaction. Returning an error (or a cancelled context) rolls back
	// every write made through the handle.
	RunInTransaction(ctx context.Context, fn func(tx Store) error) error
}
