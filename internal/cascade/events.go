package cascade

import (
	"context"

	"roster/internal/api"
	"roster/internal/entity"
	"roster/internal/flow"
	"roster/internal/store"
)

// event is one candidate cascade detected for a changed entity. The
// proposed status is fixed at detection time; applyEvent skips the event
// when the target has already reached it.
type event struct {
	name       string
	targetType entity.ContainerType
	targetID   string
	proposed   string
	// verificationGuard withholds the advance when it would terminate a
	// feature that requires manual verification.
	verificationGuard bool
}

// detect computes the candidate events for the entity whose status just
// changed. Projects are top-level and never cascade upward.
func (p *pass) detect(ctx context.Context, entityID string, containerType entity.ContainerType) ([]event, error) {
	switch containerType {
	case entity.ContainerTask:
		return p.detectTaskEvents(ctx, entityID)
	case entity.ContainerFeature:
		return p.detectFeatureEvents(ctx, entityID)
	default:
		return nil, nil
	}
}

// detectTaskEvents maps a task change onto its parent feature: entering
// work may start the feature, entering review may advance it one review
// step, and entering terminal may advance it once all siblings are done.
func (p *pass) detectTaskEvents(ctx context.Context, taskID string) ([]event, error) {
	task, err := p.store.GetTask(ctx, taskID)
	if err != nil {
		if api.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if task.FeatureID == nil {
		return nil, nil
	}
	feature, err := p.store.GetFeature(ctx, *task.FeatureID)
	if err != nil {
		if api.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	taskRole := p.resolver.RoleOf(entity.ContainerTask, task.Tags, task.Status)
	featureRole := p.resolver.RoleOf(entity.ContainerFeature, feature.Tags, feature.Status)

	switch taskRole {
	case entity.RoleWork:
		if featureRole != entity.RoleQueue || !p.cfg.AutoCascade.StartCascade.Enabled {
			return nil, nil
		}
		proposed, ok := p.proposedAdvance(entity.ContainerFeature, feature.Tags, feature.Status)
		if !ok {
			return nil, nil
		}
		return []event{{
			name:       EventFirstChildStarted,
			targetType: entity.ContainerFeature,
			targetID:   feature.ID,
			proposed:   proposed,
		}}, nil

	case entity.RoleReview:
		if featureRole != entity.RoleWork {
			return nil, nil
		}
		all, _, err := p.childTasksAtLeast(ctx, feature.ID, entity.RoleReview)
		if err != nil || !all {
			return nil, err
		}
		proposed, ok := p.proposedAdvance(entity.ContainerFeature, feature.Tags, feature.Status)
		if !ok {
			return nil, nil
		}
		// Terminal advancement is reserved for the completion event.
		if p.resolver.RoleOf(entity.ContainerFeature, feature.Tags, proposed) != entity.RoleReview {
			return nil, nil
		}
		return []event{{
			name:       EventAllChildrenInReview,
			targetType: entity.ContainerFeature,
			targetID:   feature.ID,
			proposed:   proposed,
		}}, nil

	case entity.RoleTerminal:
		all, total, err := p.childTasksAtLeast(ctx, feature.ID, entity.RoleTerminal)
		if err != nil {
			return nil, err
		}
		if !all || total == 0 {
			return nil, nil
		}
		proposed, ok := p.proposedAdvance(entity.ContainerFeature, feature.Tags, feature.Status)
		if !ok {
			return nil, nil
		}
		return []event{{
			name:              EventAllTasksComplete,
			targetType:        entity.ContainerFeature,
			targetID:          feature.ID,
			proposed:          proposed,
			verificationGuard: true,
		}}, nil
	}
	return nil, nil
}

// detectFeatureEvents maps a feature change onto the feature itself and its
// parent project: a non-terminal feature with nothing left to do keeps
// advancing, a terminal feature may complete its project, and a feature
// entering work may start it.
func (p *pass) detectFeatureEvents(ctx context.Context, featureID string) ([]event, error) {
	feature, err := p.store.GetFeature(ctx, featureID)
	if err != nil {
		if api.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	featureRole := p.resolver.RoleOf(entity.ContainerFeature, feature.Tags, feature.Status)

	var events []event
	if featureRole != entity.RoleTerminal {
		all, total, err := p.childTasksAtLeast(ctx, feature.ID, entity.RoleTerminal)
		if err != nil {
			return nil, err
		}
		if all && total > 0 {
			if proposed, ok := p.proposedAdvance(entity.ContainerFeature, feature.Tags, feature.Status); ok {
				events = append(events, event{
					name:              EventFeatureSelfAdvance,
					targetType:        entity.ContainerFeature,
					targetID:          feature.ID,
					proposed:          proposed,
					verificationGuard: true,
				})
			}
		}
	}

	if feature.ProjectID == nil {
		return events, nil
	}
	project, err := p.store.GetProject(ctx, *feature.ProjectID)
	if err != nil {
		if api.IsNotFound(err) {
			return events, nil
		}
		return nil, err
	}
	projectRole := p.resolver.RoleOf(entity.ContainerProject, project.Tags, project.Status)

	if featureRole == entity.RoleTerminal && projectRole != entity.RoleTerminal {
		all, total, err := p.siblingFeaturesTerminal(ctx, project.ID)
		if err != nil {
			return nil, err
		}
		if all && total > 0 {
			if proposed, ok := p.proposedAdvance(entity.ContainerProject, project.Tags, project.Status); ok {
				events = append(events, event{
					name:       EventAllFeaturesComplete,
					targetType: entity.ContainerProject,
					targetID:   project.ID,
					proposed:   proposed,
				})
			}
		}
	}

	if featureRole == entity.RoleWork && projectRole == entity.RoleQueue && p.cfg.AutoCascade.StartCascade.Enabled {
		if proposed, ok := p.proposedAdvance(entity.ContainerProject, project.Tags, project.Status); ok {
			events = append(events, event{
				name:       EventFirstChildStarted,
				targetType: entity.ContainerProject,
				targetID:   project.ID,
				proposed:   proposed,
			})
		}
	}
	return events, nil
}

// proposedAdvance returns the next status in the entity's active flow, or
// false when the current status is terminal, off-flow, or already at the
// end.
func (p *pass) proposedAdvance(containerType entity.ContainerType, tags []string, status string) (string, bool) {
	if p.resolver.IsTerminal(containerType, status) {
		return "", false
	}
	selection := p.resolver.ActiveFlow(containerType, tags)
	pos := flow.Position(selection.Sequence, status)
	if pos < 0 || pos+1 >= len(selection.Sequence) {
		return "", false
	}
	return selection.Sequence[pos+1], true
}

// childTasksAtLeast reports whether every task of the feature has a role at
// or above the threshold, together with the task count. Blocked tasks rank
// below every threshold and hold the feature back.
func (p *pass) childTasksAtLeast(ctx context.Context, featureID string, threshold entity.Role) (bool, int, error) {
	tasks, err := p.store.ListTasks(ctx, store.TaskFilter{FeatureID: &featureID})
	if err != nil {
		return false, 0, err
	}
	for _, task := range tasks {
		role := p.resolver.RoleOf(entity.ContainerTask, task.Tags, task.Status)
		if !role.AtLeast(threshold) {
			return false, len(tasks), nil
		}
	}
	return true, len(tasks), nil
}

// siblingFeaturesTerminal reports whether every feature of the project is
// terminal, together with the feature count.
func (p *pass) siblingFeaturesTerminal(ctx context.Context, projectID string) (bool, int, error) {
	features, err := p.store.ListFeatures(ctx, store.FeatureFilter{ProjectID: &projectID})
	if err != nil {
		return false, 0, err
	}
	for _, feature := range features {
		role := p.resolver.RoleOf(entity.ContainerFeature, feature.Tags, feature.Status)
		if role != entity.RoleTerminal {
			return false, len(features), nil
		}
	}
	return true, len(features), nil
}
