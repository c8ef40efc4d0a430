package dependency

import (
	"context"
	"sort"

	"roster/internal/entity"
	"roster/internal/flow"
	"roster/internal/store"
)

// Filter narrows the candidate tasks of the blocked and next-item queries to
// one project or one feature. Both nil means every task.
type Filter struct {
	ProjectID *string
	FeatureID *string
}

func (f Filter) taskFilter() store.TaskFilter {
	return store.TaskFilter{ProjectID: f.ProjectID, FeatureID: f.FeatureID}
}

// Blocker describes one unsatisfied blocking edge of a blocked task.
// Threshold and Role are only populated in detail mode.
type Blocker struct {
	TaskID    string          `json:"taskId"`
	Title     string          `json:"title"`
	Status    string          `json:"status"`
	Priority  entity.Priority `json:"priority"`
	Threshold entity.Role     `json:"threshold,omitempty"`
	Role      entity.Role     `json:"role,omitempty"`
}

// BlockedTask is one entry of the blocked-set query result.
type BlockedTask struct {
	TaskID   string          `json:"taskId"`
	Title    string          `json:"title"`
	Status   string          `json:"status"`
	Priority entity.Priority `json:"priority"`
	Blockers []Blocker       `json:"blockers"`
}

// RecommendedTask is one entry of the next-item recommendation. Summary,
// Tags, and FeatureID are only populated in detail mode.
type RecommendedTask struct {
	TaskID     string          `json:"taskId"`
	Title      string          `json:"title"`
	Status     string          `json:"status"`
	Priority   entity.Priority `json:"priority"`
	Complexity *int            `json:"complexity,omitempty"`
	Summary    string          `json:"summary,omitempty"`
	Tags       []string        `json:"tags,omitempty"`
	FeatureID  *string         `json:"featureId,omitempty"`
}

// Recommendation is the next-item result: the top tasks plus the size of the
// unblocked frontier they were drawn from.
type Recommendation struct {
	Tasks           []RecommendedTask `json:"tasks"`
	TotalCandidates int               `json:"totalCandidates"`
}

// Service answers dependency-graph queries: which tasks are blocked, which
// became unblocked by a completion, and which task to pick up next. It reads
// through whatever store handle it was built over, so cascade passes can run
// it inside their transaction.
type Service struct {
	store    store.Store
	resolver *flow.Resolver
}

// New creates a dependency service over a store handle and a config snapshot.
func New(st store.Store, resolver *flow.Resolver) *Service {
	return &Service{store: st, resolver: resolver}
}

// Blocked returns the non-terminal tasks matching the filter that have at
// least one unsatisfied blocking edge, each with its list of unsatisfied
// blockers. RELATES_TO edges never contribute.
func (s *Service) Blocked(ctx context.Context, filter Filter, detail bool) ([]BlockedTask, error) {
	tasks, err := s.store.ListTasks(ctx, filter.taskFilter())
	if err != nil {
		return nil, err
	}

	var out []BlockedTask
	for _, task := range tasks {
		if s.roleOf(task) == entity.RoleTerminal {
			continue
		}
		blockers, err := s.unsatisfiedBlockers(ctx, task.ID, detail)
		if err != nil {
			return nil, err
		}
		if len(blockers) == 0 {
			continue
		}
		out = append(out, BlockedTask{
			TaskID:   task.ID,
			Title:    task.Title,
			Status:   task.Status,
			Priority: task.Priority,
			Blockers: blockers,
		})
	}
	return out, nil
}

// IsBlocked reports whether a single task has any unsatisfied blocking edge.
func (s *Service) IsBlocked(ctx context.Context, taskID string) (bool, error) {
	blockers, err := s.unsatisfiedBlockers(ctx, taskID, false)
	if err != nil {
		return false, err
	}
	return len(blockers) > 0, nil
}

// unsatisfiedBlockers resolves every blocking edge the task is on the
// receiving end of and keeps those whose blocker has not reached the edge
// threshold.
func (s *Service) unsatisfiedBlockers(ctx context.Context, taskID string, detail bool) ([]Blocker, error) {
	edges, err := s.store.FindBlockingEdges(ctx, taskID, store.DirectionBoth)
	if err != nil {
		return nil, err
	}
	var out []Blocker
	for _, edge := range edges {
		blockerID, ok := edge.BlockerOf(taskID)
		if !ok {
			continue
		}
		blocker, err := s.store.GetTask(ctx, blockerID)
		if err != nil {
			return nil, err
		}
		role := s.roleOf(blocker)
		threshold := edge.Threshold()
		if role.AtLeast(threshold) {
			continue
		}
		entry := Blocker{
			TaskID:   blocker.ID,
			Title:    blocker.Title,
			Status:   blocker.Status,
			Priority: blocker.Priority,
		}
		if detail {
			entry.Threshold = threshold
			entry.Role = role
		}
		out = append(out, entry)
	}
	return out, nil
}

// NewlyUnblocked returns the downstream tasks of a completed task whose
// entire blocker set is now satisfied and which are themselves still
// non-terminal. Call it after the task has reached a terminal role.
func (s *Service) NewlyUnblocked(ctx context.Context, completedTaskID string) ([]*entity.Task, error) {
	edges, err := s.store.FindBlockingEdges(ctx, completedTaskID, store.DirectionBoth)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var out []*entity.Task
	for _, edge := range edges {
		downstreamID, ok := edge.BlockedByTask(completedTaskID)
		if !ok || seen[downstreamID] {
			continue
		}
		seen[downstreamID] = true

		downstream, err := s.store.GetTask(ctx, downstreamID)
		if err != nil {
			return nil, err
		}
		if s.roleOf(downstream) == entity.RoleTerminal {
			continue
		}
		remaining, err := s.unsatisfiedBlockers(ctx, downstreamID, false)
		if err != nil {
			return nil, err
		}
		if len(remaining) == 0 {
			out = append(out, downstream)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Next recommends up to limit tasks from the unblocked queue-role frontier.
// Candidates are tasks still in a queue role (an in-progress blocker is work,
// not a candidate), minus blocked ones; the sort is priority first, then
// complexity ascending so quick wins surface, then creation order.
func (s *Service) Next(ctx context.Context, filter Filter, limit int, detail bool) (Recommendation, error) {
	tasks, err := s.store.ListTasks(ctx, filter.taskFilter())
	if err != nil {
		return Recommendation{}, err
	}

	var candidates []*entity.Task
	for _, task := range tasks {
		if s.roleOf(task) != entity.RoleQueue {
			continue
		}
		blocked, err := s.IsBlocked(ctx, task.ID)
		if err != nil {
			return Recommendation{}, err
		}
		if blocked {
			continue
		}
		candidates = append(candidates, task)
	}

	// ListTasks already yields creation order, so the stable sort keeps it
	// as the final tiebreak.
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Priority.Rank() != candidates[j].Priority.Rank() {
			return candidates[i].Priority.Rank() < candidates[j].Priority.Rank()
		}
		return candidates[i].ComplexityOrDefault() < candidates[j].ComplexityOrDefault()
	})

	rec := Recommendation{TotalCandidates: len(candidates)}
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	for _, task := range candidates {
		item := RecommendedTask{
			TaskID:     task.ID,
			Title:      task.Title,
			Status:     task.Status,
			Priority:   task.Priority,
			Complexity: task.Complexity,
		}
		if detail {
			item.Summary = task.Summary
			item.Tags = task.Tags
			item.FeatureID = task.FeatureID
		}
		rec.Tasks = append(rec.Tasks, item)
	}
	return rec, nil
}

func (s *Service) roleOf(task *entity.Task) entity.Role {
	return s.resolver.RoleOf(entity.ContainerTask, task.Tags, task.Status)
}
