package cascade

import (
	"context"

	"roster/internal/entity"
	"roster/internal/store"
)

// completionCleanup removes the untouched open tasks of a feature that just
// reached a terminal status. A task is untouched when it has no summary, no
// recorded role transitions, and no content sections; anything with
// user-authored content is retained and reported. Returns nil when the
// cleanup is disabled or there was nothing to do.
func (p *pass) completionCleanup(ctx context.Context, featureID string) (*CleanupResult, error) {
	if !p.cfg.AutoCascade.CompletionCleanup.Enabled {
		return nil, nil
	}
	tasks, err := p.store.ListTasks(ctx, store.TaskFilter{FeatureID: &featureID})
	if err != nil {
		return nil, err
	}

	result := &CleanupResult{}
	for _, task := range tasks {
		if p.resolver.RoleOf(entity.ContainerTask, task.Tags, task.Status) == entity.RoleTerminal {
			continue
		}
		reason, err := p.retentionReason(ctx, task)
		if err != nil {
			return nil, err
		}
		if reason != "" {
			result.Retained = append(result.Retained, RetainedTask{
				TaskID: task.ID,
				Title:  task.Title,
				Reason: reason,
			})
			continue
		}
		// DeleteTask cascades to the task's dependencies and sections.
		if err := p.store.DeleteTask(ctx, task.ID); err != nil {
			return nil, err
		}
		result.Deleted = append(result.Deleted, task.ID)
	}
	if len(result.Deleted) == 0 && len(result.Retained) == 0 {
		return nil, nil
	}
	return result, nil
}

// retentionReason returns why the task must be kept, or "" when it is
// eligible for removal.
func (p *pass) retentionReason(ctx context.Context, task *entity.Task) (string, error) {
	if task.Summary != "" {
		return "has a summary", nil
	}
	transitions, err := p.store.ListRoleTransitions(ctx, task.ID)
	if err != nil {
		return "", err
	}
	if len(transitions) > 0 {
		return "has recorded role transitions", nil
	}
	sections, err := p.store.CountSections(ctx, task.ID)
	if err != nil {
		return "", err
	}
	if sections > 0 {
		return "has content sections", nil
	}
	return "", nil
}
