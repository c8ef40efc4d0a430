// Package entity defines the data model shared by the orchestration core:
// projects, features, tasks, dependency edges, and role-transition audit
// records, together with the enumerations (roles, priorities, dependency
// types) the components operate on.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// NewID returns a fresh UUID string for a new entity.
func NewID() string {
	return uuid.NewString()
}

// Project is the top-level container. Its status comes from the project flow.
type Project struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Summary    string    `json:"summary,omitempty"`
	Status     string    `json:"status"`
	Tags       []string  `json:"tags,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// Clone returns a deep copy.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	out := *p
	out.Tags = append([]string(nil), p.Tags...)
	return &out
}

// Feature is the mid-level container, optionally parented by a Project.
// RequiresVerification prevents automatic cascade into a terminal status;
// only an explicit user-triggered completion may terminate such a feature.
type Feature struct {
	ID                   string    `json:"id"`
	ProjectID            *string   `json:"projectId,omitempty"`
	Name                 string    `json:"name"`
	Summary              string    `json:"summary,omitempty"`
	Description          string    `json:"description,omitempty"`
	Status               string    `json:"status"`
	Priority             Priority  `json:"priority"`
	Tags                 []string  `json:"tags,omitempty"`
	RequiresVerification bool      `json:"requiresVerification"`
	CreatedAt            time.Time `json:"createdAt"`
	ModifiedAt           time.Time `json:"modifiedAt"`
}

// Clone returns a deep copy.
func (f *Feature) Clone() *Feature {
	if f == nil {
		return nil
	}
	out := *f
	if f.ProjectID != nil {
		id := *f.ProjectID
		out.ProjectID = &id
	}
	out.Tags = append([]string(nil), f.Tags...)
	return &out
}

// Task is the leaf unit of work, optionally parented by a Feature. Summary is
// free text; completion enforces a length of 300 to 500 characters.
// Complexity is 1..10 and may be unset.
type Task struct {
	ID          string    `json:"id"`
	FeatureID   *string   `json:"featureId,omitempty"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary,omitempty"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	Priority    Priority  `json:"priority"`
	Complexity  *int      `json:"complexity,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	ModifiedAt  time.Time `json:"modifiedAt"`
}

// Clone returns a deep copy.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	out := *t
	if t.FeatureID != nil {
		id := *t.FeatureID
		out.FeatureID = &id
	}
	if t.Complexity != nil {
		c := *t.Complexity
		out.Complexity = &c
	}
	out.Tags = append([]string(nil), t.Tags...)
	return &out
}

// ComplexityOrDefault returns the task complexity, or DefaultComplexity when
// unset. The recommender sorts on this value.
func (t *Task) ComplexityOrDefault() int {
	if t.Complexity == nil {
		return DefaultComplexity
	}
	return *t.Complexity
}

// DefaultComplexity is assumed for tasks without an explicit complexity.
const DefaultComplexity = 5

// Dependency is a directed edge between two tasks. Only BLOCKS and
// IS_BLOCKED_BY edges participate in blocking; RELATES_TO is informational.
// UnblockAt is the minimum role the blocker must reach before the blocked
// task is released; nil means terminal.
type Dependency struct {
	ID         string         `json:"id"`
	FromItemID string         `json:"fromItem"`
	ToItemID   string         `json:"toItem"`
	Type       DependencyType `json:"type"`
	UnblockAt  *Role          `json:"unblockAt,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// Threshold returns the effective unblock threshold of the edge.
func (d *Dependency) Threshold() Role {
	if d.UnblockAt == nil {
		return RoleTerminal
	}
	return *d.UnblockAt
}

// BlockerOf returns the task that blocks taskID through this edge, or false
// when the edge does not put taskID on the receiving end. Only blocking edge
// types ever yield a blocker.
func (d *Dependency) BlockerOf(taskID string) (string, bool) {
	switch {
	case d.Type == DependencyBlocks && d.ToItemID == taskID:
		return d.FromItemID, true
	case d.Type == DependencyIsBlockedBy && d.FromItemID == taskID:
		return d.ToItemID, true
	default:
		return "", false
	}
}

// BlockedByTask returns the task that taskID blocks through this edge, or
// false when taskID is not the blocking endpoint. This is the downstream
// direction used by unblock detection and the cycle walk.
func (d *Dependency) BlockedByTask(taskID string) (string, bool) {
	switch {
	case d.Type == DependencyBlocks && d.FromItemID == taskID:
		return d.ToItemID, true
	case d.Type == DependencyIsBlockedBy && d.ToItemID == taskID:
		return d.FromItemID, true
	default:
		return "", false
	}
}

// Clone returns a deep copy.
func (d *Dependency) Clone() *Dependency {
	if d == nil {
		return nil
	}
	out := *d
	if d.UnblockAt != nil {
		r := *d.UnblockAt
		out.UnblockAt = &r
	}
	return &out
}

// RoleTransition is an append-only audit record of a role boundary crossing.
type RoleTransition struct {
	ID         string        `json:"id"`
	EntityID   string        `json:"entityId"`
	EntityType ContainerType `json:"entityType"`
	FromRole   Role          `json:"fromRole"`
	ToRole     Role          `json:"toRole"`
	FromStatus string        `json:"fromStatus"`
	ToStatus   string        `json:"toStatus"`
	Trigger    string        `json:"trigger,omitempty"`
	Summary    string        `json:"summary,omitempty"`
	CreatedAt  time.Time     `json:"createdAt"`
}

// Clone returns a copy.
func (r *RoleTransition) Clone() *RoleTransition {
	if r == nil {
		return nil
	}
	out := *r
	return &out
}
