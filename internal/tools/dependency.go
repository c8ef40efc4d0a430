package tools

import (
	"context"
	"fmt"

	"roster/internal/api"
	"roster/internal/dependency"
	"roster/internal/entity"
	"roster/internal/flow"
	"roster/internal/store"
)

// handleManageDependency dispatches the dependency write path.
func (p *Provider) handleManageDependency(ctx context.Context, args map[string]interface{}) (*api.CallToolResult, error) {
	op, err := requireString(args, "operation")
	if err != nil {
		return errorResult(err), nil
	}
	switch op {
	case "create":
		return p.createDependency(ctx, args)
	case "delete":
		return p.deleteDependency(ctx, args)
	case "list":
		return p.listDependencies(ctx, args)
	default:
		return errorResult(api.NewValidationError("operation",
			"unknown operation %q (expected create, delete, or list)", op)), nil
	}
}

// createDependency inserts one edge. The cycle check runs in the same
// transaction as the insert, so a concurrent insert cannot slip a cycle
// past it.
func (p *Provider) createDependency(ctx context.Context, args map[string]interface{}) (*api.CallToolResult, error) {
	from, err := requireID(args, "from")
	if err != nil {
		return errorResult(err), nil
	}
	to, err := requireID(args, "to")
	if err != nil {
		return errorResult(err), nil
	}
	depType, err := dependencyTypeArg(args, entity.DependencyBlocks)
	if err != nil {
		return errorResult(err), nil
	}
	unblockAt, err := unblockAtArg(args)
	if err != nil {
		return errorResult(err), nil
	}

	dep := &entity.Dependency{
		ID:         entity.NewID(),
		FromItemID: from,
		ToItemID:   to,
		Type:       depType,
		UnblockAt:  unblockAt,
	}
	err = p.store.RunInTransaction(ctx, func(tx store.Store) error {
		if _, err := tx.GetTask(ctx, from); err != nil {
			return err
		}
		if _, err := tx.GetTask(ctx, to); err != nil {
			return err
		}
		if err := dependency.CheckAcyclic(ctx, tx, dep); err != nil {
			return err
		}
		return tx.CreateDependency(ctx, dep)
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult("dependency created", dep), nil
}

func (p *Provider) deleteDependency(ctx context.Context, args map[string]interface{}) (*api.CallToolResult, error) {
	id, err := optionalID(args, "id")
	if err != nil {
		return errorResult(err), nil
	}
	if id != nil {
		if err := p.store.DeleteDependency(ctx, *id); err != nil {
			return errorResult(err), nil
		}
		return successResult("dependency deleted", map[string]interface{}{"id": *id}), nil
	}

	from, err := requireID(args, "from")
	if err != nil {
		return errorResult(err), nil
	}
	to, err := requireID(args, "to")
	if err != nil {
		return errorResult(err), nil
	}
	depType, err := dependencyTypeArg(args, entity.DependencyBlocks)
	if err != nil {
		return errorResult(err), nil
	}

	var deleted *entity.Dependency
	err = p.store.RunInTransaction(ctx, func(tx store.Store) error {
		edges, err := tx.ListDependencies(ctx, from, store.DirectionBoth)
		if err != nil {
			return err
		}
		for _, edge := range edges {
			if edge.FromItemID == from && edge.ToItemID == to && edge.Type == depType {
				deleted = edge
				return tx.DeleteDependency(ctx, edge.ID)
			}
		}
		return api.NewNotFoundError("dependency", fmt.Sprintf("%s %s %s", from, depType, to))
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult("dependency deleted", deleted), nil
}

func (p *Provider) listDependencies(ctx context.Context, args map[string]interface{}) (*api.CallToolResult, error) {
	taskID, err := requireID(args, "task_id")
	if err != nil {
		return errorResult(err), nil
	}
	direction, err := directionArg(args)
	if err != nil {
		return errorResult(err), nil
	}
	if _, err := p.store.GetTask(ctx, taskID); err != nil {
		return errorResult(err), nil
	}
	edges, err := p.store.ListDependencies(ctx, taskID, direction)
	if err != nil {
		return errorResult(err), nil
	}
	data := map[string]interface{}{
		"taskId":       taskID,
		"direction":    direction,
		"dependencies": edges,
		"count":        len(edges),
	}
	return successResult(fmt.Sprintf("found %s", plural(len(edges), "dependency", "dependencies")), data), nil
}

// dependencyView decorates an edge with its endpoint tasks for
// include_task_info.
type dependencyView struct {
	*entity.Dependency
	FromTask *taskRef `json:"fromTask,omitempty"`
	ToTask   *taskRef `json:"toTask,omitempty"`
}

// taskRef is the minimal endpoint projection attached to an edge.
type taskRef struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

func newTaskRef(task *entity.Task) *taskRef {
	return &taskRef{ID: task.ID, Title: task.Title, Status: task.Status}
}

func (p *Provider) handleQueryDependencies(ctx context.Context, args map[string]interface{}) (*api.CallToolResult, error) {
	taskID, err := requireID(args, "task_id")
	if err != nil {
		return errorResult(err), nil
	}
	direction, err := directionArg(args)
	if err != nil {
		return errorResult(err), nil
	}
	includeTaskInfo, err := boolArg(args, "include_task_info", false)
	if err != nil {
		return errorResult(err), nil
	}

	if _, err := p.store.GetTask(ctx, taskID); err != nil {
		return errorResult(err), nil
	}
	edges, err := p.store.ListDependencies(ctx, taskID, direction)
	if err != nil {
		return errorResult(err), nil
	}

	views := make([]dependencyView, 0, len(edges))
	for _, edge := range edges {
		view := dependencyView{Dependency: edge}
		if includeTaskInfo {
			from, err := p.store.GetTask(ctx, edge.FromItemID)
			if err != nil {
				return errorResult(err), nil
			}
			to, err := p.store.GetTask(ctx, edge.ToItemID)
			if err != nil {
				return errorResult(err), nil
			}
			view.FromTask = newTaskRef(from)
			view.ToTask = newTaskRef(to)
		}
		views = append(views, view)
	}

	data := map[string]interface{}{
		"taskId":       taskID,
		"direction":    direction,
		"dependencies": views,
		"count":        len(views),
	}
	return successResult(fmt.Sprintf("found %s", plural(len(views), "dependency", "dependencies")), data), nil
}

// scopeFilter reads the optional project_id/feature_id scoping shared by
// get_next_item and get_blocked.
func scopeFilter(args map[string]interface{}) (dependency.Filter, error) {
	projectID, err := optionalID(args, "project_id")
	if err != nil {
		return dependency.Filter{}, err
	}
	featureID, err := optionalID(args, "feature_id")
	if err != nil {
		return dependency.Filter{}, err
	}
	return dependency.Filter{ProjectID: projectID, FeatureID: featureID}, nil
}

func (p *Provider) handleGetNextItem(ctx context.Context, args map[string]interface{}) (*api.CallToolResult, error) {
	filter, err := scopeFilter(args)
	if err != nil {
		return errorResult(err), nil
	}
	limit, err := limitArg(args)
	if err != nil {
		return errorResult(err), nil
	}
	detail, err := boolArg(args, "detail", false)
	if err != nil {
		return errorResult(err), nil
	}

	svc := dependency.New(p.store, flow.New(p.config()))
	rec, err := svc.Next(ctx, filter, limit, detail)
	if err != nil {
		return errorResult(err), nil
	}
	message := fmt.Sprintf("%s recommended", plural(len(rec.Tasks), "task", "tasks"))
	if len(rec.Tasks) == 0 {
		message = "no startable tasks"
	}
	return successResult(message, rec), nil
}

func (p *Provider) handleGetBlocked(ctx context.Context, args map[string]interface{}) (*api.CallToolResult, error) {
	filter, err := scopeFilter(args)
	if err != nil {
		return errorResult(err), nil
	}
	detail, err := boolArg(args, "detail", false)
	if err != nil {
		return errorResult(err), nil
	}

	svc := dependency.New(p.store, flow.New(p.config()))
	blocked, err := svc.Blocked(ctx, filter, detail)
	if err != nil {
		return errorResult(err), nil
	}
	data := map[string]interface{}{
		"blockedTasks": blocked,
		"count":        len(blocked),
	}
	message := fmt.Sprintf("%s blocked", plural(len(blocked), "task", "tasks"))
	if len(blocked) == 0 {
		message = "no blocked tasks"
	}
	return successResult(message, data), nil
}
