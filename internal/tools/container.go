package tools

import (
	"context"
	"fmt"
	"strings"

	"roster/internal/api"
	"roster/internal/cascade"
	"roster/internal/config"
	"roster/internal/entity"
	"roster/internal/flow"
	"roster/internal/store"
	"roster/internal/validation"
	"roster/pkg/logging"
)

// handleManageContainer dispatches the container write path.
func (p *Provider) handleManageContainer(ctx context.Context, args map[string]interface{}) (*api.CallToolResult, error) {
	op, err := requireString(args, "operation")
	if err != nil {
		return errorResult(err), nil
	}
	ct, err := containerTypeArg(args)
	if err != nil {
		return errorResult(err), nil
	}
	switch op {
	case "create":
		return p.createContainer(ctx, ct, args)
	case "get":
		return p.getContainer(ctx, ct, args)
	case "update":
		return p.updateContainer(ctx, ct, args)
	case "set_status":
		return p.setContainerStatus(ctx, ct, args)
	case "delete":
		return p.deleteContainer(ctx, ct, args)
	default:
		return errorResult(api.NewValidationError("operation",
			"unknown operation %q (expected create, get, update, set_status, or delete)", op)), nil
	}
}

// handleQueryContainer dispatches the container read path.
func (p *Provider) handleQueryContainer(ctx context.Context, args map[string]interface{}) (*api.CallToolResult, error) {
	op, err := requireString(args, "operation")
	if err != nil {
		return errorResult(err), nil
	}
	ct, err := containerTypeArg(args)
	if err != nil {
		return errorResult(err), nil
	}
	switch op {
	case "get":
		return p.getContainer(ctx, ct, args)
	case "search":
		return p.searchContainers(ctx, ct, args)
	case "overview":
		return p.containerOverview(ctx, ct, args)
	default:
		return errorResult(api.NewValidationError("operation",
			"unknown operation %q (expected get, search, or overview)", op)), nil
	}
}

// initialStatus resolves the status a new container starts in: an explicit
// known status when given, otherwise the first status of the active flow.
func initialStatus(resolver *flow.Resolver, ct entity.ContainerType, tags []string, args map[string]interface{}) (string, error) {
	explicit, err := optionalString(args, "status")
	if err != nil {
		return "", err
	}
	if explicit != nil && strings.TrimSpace(*explicit) != "" {
		canonical := config.CanonicalStatus(*explicit)
		if !resolver.KnownStatus(ct, canonical) {
			return "", api.NewValidationError("status", "unknown status %q for %s containers", canonical, ct)
		}
		return canonical, nil
	}
	selection := resolver.ActiveFlow(ct, tags)
	if len(selection.Sequence) == 0 {
		return "", api.NewValidationError("status", "flow %q has no statuses; provide an explicit status", selection.Name)
	}
	return selection.Sequence[0], nil
}

func (p *Provider) createContainer(ctx context.Context, ct entity.ContainerType, args map[string]interface{}) (*api.CallToolResult, error) {
	resolver := flow.New(p.config())
	tags, err := stringSlice(args, "tags")
	if err != nil {
		return errorResult(err), nil
	}
	status, err := initialStatus(resolver, ct, tags, args)
	if err != nil {
		return errorResult(err), nil
	}
	summary, err := optionalString(args, "summary")
	if err != nil {
		return errorResult(err), nil
	}
	description, err := optionalString(args, "description")
	if err != nil {
		return errorResult(err), nil
	}

	switch ct {
	case entity.ContainerProject:
		name, err := requireString(args, "name")
		if err != nil {
			return errorResult(err), nil
		}
		project := &entity.Project{
			ID:     entity.NewID(),
			Name:   name,
			Status: status,
			Tags:   tags,
		}
		if summary != nil {
			project.Summary = *summary
		}
		if err := p.store.CreateProject(ctx, project); err != nil {
			return errorResult(err), nil
		}
		return successResult("project created", project), nil

	case entity.ContainerFeature:
		name, err := requireString(args, "name")
		if err != nil {
			return errorResult(err), nil
		}
		_, projectID, err := parentArg(args, "project_id")
		if err != nil {
			return errorResult(err), nil
		}
		priority, _, err := priorityArg(args)
		if err != nil {
			return errorResult(err), nil
		}
		requiresVerification, err := boolArg(args, "requires_verification", false)
		if err != nil {
			return errorResult(err), nil
		}
		feature := &entity.Feature{
			ID:                   entity.NewID(),
			ProjectID:            projectID,
			Name:                 name,
			Status:               status,
			Priority:             priority,
			Tags:                 tags,
			RequiresVerification: requiresVerification,
		}
		if summary != nil {
			feature.Summary = *summary
		}
		if description != nil {
			feature.Description = *description
		}
		// The store rejects a dangling ProjectID itself.
		if err := p.store.CreateFeature(ctx, feature); err != nil {
			return errorResult(err), nil
		}
		return successResult("feature created", feature), nil

	default:
		title, err := requireString(args, "title")
		if err != nil {
			return errorResult(err), nil
		}
		_, featureID, err := parentArg(args, "feature_id")
		if err != nil {
			return errorResult(err), nil
		}
		priority, _, err := priorityArg(args)
		if err != nil {
			return errorResult(err), nil
		}
		complexity, err := complexityArg(args)
		if err != nil {
			return errorResult(err), nil
		}
		task := &entity.Task{
			ID:         entity.NewID(),
			FeatureID:  featureID,
			Title:      title,
			Status:     status,
			Priority:   priority,
			Complexity: complexity,
			Tags:       tags,
		}
		if summary != nil {
			task.Summary = *summary
		}
		if description != nil {
			task.Description = *description
		}
		if err := p.store.CreateTask(ctx, task); err != nil {
			return errorResult(err), nil
		}
		return successResult("task created", task), nil
	}
}

func (p *Provider) getContainer(ctx context.Context, ct entity.ContainerType, args map[string]interface{}) (*api.CallToolResult, error) {
	id, err := requireID(args, "id")
	if err != nil {
		return errorResult(err), nil
	}
	var view interface{}
	switch ct {
	case entity.ContainerProject:
		view, err = p.store.GetProject(ctx, id)
	case entity.ContainerFeature:
		view, err = p.store.GetFeature(ctx, id)
	default:
		view, err = p.store.GetTask(ctx, id)
	}
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(fmt.Sprintf("%s retrieved", ct), view), nil
}

func (p *Provider) updateContainer(ctx context.Context, ct entity.ContainerType, args map[string]interface{}) (*api.CallToolResult, error) {
	id, err := requireID(args, "id")
	if err != nil {
		return errorResult(err), nil
	}
	// Status changes go through set_status so they cannot bypass the
	// transition gate.
	if status, err := optionalString(args, "status"); err != nil {
		return errorResult(err), nil
	} else if status != nil {
		return errorResult(api.NewValidationError("status",
			"status cannot be changed through update; use the set_status operation")), nil
	}

	var view interface{}
	switch ct {
	case entity.ContainerProject:
		var project *entity.Project
		err = p.store.RunInTransaction(ctx, func(tx store.Store) error {
			var err error
			project, err = tx.GetProject(ctx, id)
			if err != nil {
				return err
			}
			if err := patchProject(project, args); err != nil {
				return err
			}
			return tx.UpdateProject(ctx, project)
		})
		view = project
	case entity.ContainerFeature:
		var feature *entity.Feature
		err = p.store.RunInTransaction(ctx, func(tx store.Store) error {
			var err error
			feature, err = tx.GetFeature(ctx, id)
			if err != nil {
				return err
			}
			if err := patchFeature(ctx, tx, feature, args); err != nil {
				return err
			}
			return tx.UpdateFeature(ctx, feature)
		})
		view = feature
	default:
		var task *entity.Task
		err = p.store.RunInTransaction(ctx, func(tx store.Store) error {
			var err error
			task, err = tx.GetTask(ctx, id)
			if err != nil {
				return err
			}
			if err := patchTask(ctx, tx, task, args); err != nil {
				return err
			}
			return tx.UpdateTask(ctx, task)
		})
		view = task
	}
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(fmt.Sprintf("%s updated", ct), view), nil
}

func patchProject(project *entity.Project, args map[string]interface{}) error {
	name, err := optionalString(args, "name")
	if err != nil {
		return err
	}
	if name != nil {
		if strings.TrimSpace(*name) == "" {
			return api.NewValidationError("name", "name must not be empty")
		}
		project.Name = *name
	}
	summary, err := optionalString(args, "summary")
	if err != nil {
		return err
	}
	if summary != nil {
		project.Summary = *summary
	}
	tags, err := stringSlice(args, "tags")
	if err != nil {
		return err
	}
	if tags != nil {
		project.Tags = tags
	}
	return nil
}

func patchFeature(ctx context.Context, tx store.Store, feature *entity.Feature, args map[string]interface{}) error {
	name, err := optionalString(args, "name")
	if err != nil {
		return err
	}
	if name != nil {
		if strings.TrimSpace(*name) == "" {
			return api.NewValidationError("name", "name must not be empty")
		}
		feature.Name = *name
	}
	summary, err := optionalString(args, "summary")
	if err != nil {
		return err
	}
	if summary != nil {
		feature.Summary = *summary
	}
	description, err := optionalString(args, "description")
	if err != nil {
		return err
	}
	if description != nil {
		feature.Description = *description
	}
	priority, prioritySet, err := priorityArg(args)
	if err != nil {
		return err
	}
	if prioritySet {
		feature.Priority = priority
	}
	tags, err := stringSlice(args, "tags")
	if err != nil {
		return err
	}
	if tags != nil {
		feature.Tags = tags
	}
	requiresVerification, err := optionalBool(args, "requires_verification")
	if err != nil {
		return err
	}
	if requiresVerification != nil {
		feature.RequiresVerification = *requiresVerification
	}
	present, projectID, err := parentArg(args, "project_id")
	if err != nil {
		return err
	}
	if present {
		if projectID != nil {
			if _, err := tx.GetProject(ctx, *projectID); err != nil {
				return err
			}
		}
		feature.ProjectID = projectID
	}
	return nil
}

func patchTask(ctx context.Context, tx store.Store, task *entity.Task, args map[string]interface{}) error {
	title, err := optionalString(args, "title")
	if err != nil {
		return err
	}
	if title != nil {
		if strings.TrimSpace(*title) == "" {
			return api.NewValidationError("title", "title must not be empty")
		}
		task.Title = *title
	}
	summary, err := optionalString(args, "summary")
	if err != nil {
		return err
	}
	if summary != nil {
		task.Summary = *summary
	}
	description, err := optionalString(args, "description")
	if err != nil {
		return err
	}
	if description != nil {
		task.Description = *description
	}
	priority, prioritySet, err := priorityArg(args)
	if err != nil {
		return err
	}
	if prioritySet {
		task.Priority = priority
	}
	complexity, err := complexityArg(args)
	if err != nil {
		return err
	}
	if complexity != nil {
		task.Complexity = complexity
	}
	tags, err := stringSlice(args, "tags")
	if err != nil {
		return err
	}
	if tags != nil {
		task.Tags = tags
	}
	present, featureID, err := parentArg(args, "feature_id")
	if err != nil {
		return err
	}
	if present {
		if featureID != nil {
			if _, err := tx.GetFeature(ctx, *featureID); err != nil {
				return err
			}
		}
		task.FeatureID = featureID
	}
	return nil
}

// statusTarget abstracts the three container kinds for set_status: read
// status and tags, then persist the validated transition.
type statusTarget struct {
	status     string
	tags       []string
	setSummary func(string)
	persist    func(ctx context.Context, status string) error
	view       func() interface{}
}

func fetchStatusTarget(ctx context.Context, tx store.Store, ct entity.ContainerType, id string) (*statusTarget, error) {
	switch ct {
	case entity.ContainerProject:
		project, err := tx.GetProject(ctx, id)
		if err != nil {
			return nil, err
		}
		return &statusTarget{
			status:     project.Status,
			tags:       project.Tags,
			setSummary: func(s string) { project.Summary = s },
			persist: func(ctx context.Context, status string) error {
				project.Status = status
				return tx.UpdateProject(ctx, project)
			},
			view: func() interface{} { return project },
		}, nil
	case entity.ContainerFeature:
		feature, err := tx.GetFeature(ctx, id)
		if err != nil {
			return nil, err
		}
		return &statusTarget{
			status:     feature.Status,
			tags:       feature.Tags,
			setSummary: func(s string) { feature.Summary = s },
			persist: func(ctx context.Context, status string) error {
				feature.Status = status
				return tx.UpdateFeature(ctx, feature)
			},
			view: func() interface{} { return feature },
		}, nil
	default:
		task, err := tx.GetTask(ctx, id)
		if err != nil {
			return nil, err
		}
		return &statusTarget{
			status:     task.Status,
			tags:       task.Tags,
			setSummary: func(s string) { task.Summary = s },
			persist: func(ctx context.Context, status string) error {
				task.Status = status
				return tx.UpdateTask(ctx, task)
			},
			view: func() interface{} { return task },
		}, nil
	}
}

// setContainerStatus is the only status write path. Transaction one
// validates and persists the user's transition plus its audit record;
// transaction two runs the cascade engine. A cascade failure therefore
// never rolls back the user's own change.
func (p *Provider) setContainerStatus(ctx context.Context, ct entity.ContainerType, args map[string]interface{}) (*api.CallToolResult, error) {
	id, err := requireID(args, "id")
	if err != nil {
		return errorResult(err), nil
	}
	next, err := requireString(args, "status")
	if err != nil {
		return errorResult(err), nil
	}
	summary, err := optionalString(args, "summary")
	if err != nil {
		return errorResult(err), nil
	}

	cfg := p.config()
	resolver := flow.New(cfg)
	proposed := config.CanonicalStatus(next)
	if !resolver.KnownStatus(ct, proposed) {
		return errorResult(api.NewValidationError("status",
			"unknown status %q for %s containers", proposed, ct)), nil
	}

	var view interface{}
	var advisoryText string
	err = p.store.RunInTransaction(ctx, func(tx store.Store) error {
		tgt, err := fetchStatusTarget(ctx, tx, ct, id)
		if err != nil {
			return err
		}
		current := config.CanonicalStatus(tgt.status)

		validator := validation.New(tx, resolver)
		res, err := validator.Validate(ctx, validation.Request{
			Current:       current,
			Next:          proposed,
			ContainerType: ct,
			EntityID:      id,
			Tags:          tgt.tags,
			Summary:       summary,
			ManualTrigger: true,
		})
		if err != nil {
			return err
		}
		if !res.Allowed() {
			return api.NewPrerequisiteError(res.Reason, res.Suggestions...)
		}
		advisoryText = res.Advisory

		if summary != nil {
			tgt.setSummary(*summary)
		}
		if err := tgt.persist(ctx, proposed); err != nil {
			return err
		}
		view = tgt.view()

		prevRole := resolver.RoleOf(ct, tgt.tags, current)
		newRole := resolver.RoleOf(ct, tgt.tags, proposed)
		if prevRole == newRole {
			return nil
		}
		transition := &entity.RoleTransition{
			ID:         entity.NewID(),
			EntityID:   id,
			EntityType: ct,
			FromRole:   prevRole,
			ToRole:     newRole,
			FromStatus: current,
			ToStatus:   proposed,
			Trigger:    "set_status",
		}
		if summary != nil {
			transition.Summary = *summary
		}
		return tx.AppendRoleTransition(ctx, transition)
	})
	if err != nil {
		return errorResult(err), nil
	}

	data := map[string]interface{}{
		string(ct): view,
	}
	if advisoryText != "" {
		data["advisory"] = advisoryText
	}

	engine := cascade.New(p.store, cfg)
	res, err := engine.Run(ctx, id, ct)
	if err != nil {
		logging.Error("Tools", err, "cascade after %s %s -> %s failed", ct, id, proposed)
		return api.NewErrorEnvelope(api.CodeInternalError,
			fmt.Sprintf("status change to %q committed, but cascade processing failed: %v", proposed, err),
			nil).ToCallToolResult(), nil
	}
	if len(res.Cascades) > 0 {
		data["cascades"] = res.Cascades
	}
	if res.TriggerCleanup != nil {
		data["cleanup"] = res.TriggerCleanup
	}
	if len(res.TriggerUnblocked) > 0 {
		data["unblockedTasks"] = res.TriggerUnblocked
	}
	return successResult(fmt.Sprintf("%s status set to %s", ct, proposed), data), nil
}

func (p *Provider) deleteContainer(ctx context.Context, ct entity.ContainerType, args map[string]interface{}) (*api.CallToolResult, error) {
	id, err := requireID(args, "id")
	if err != nil {
		return errorResult(err), nil
	}
	switch ct {
	case entity.ContainerProject:
		err = p.store.DeleteProject(ctx, id)
	case entity.ContainerFeature:
		err = p.store.DeleteFeature(ctx, id)
	default:
		err = p.store.DeleteTask(ctx, id)
	}
	if err != nil {
		return errorResult(err), nil
	}
	data := map[string]interface{}{"id": id, "containerType": ct}
	return successResult(fmt.Sprintf("%s deleted", ct), data), nil
}

func (p *Provider) searchContainers(ctx context.Context, ct entity.ContainerType, args map[string]interface{}) (*api.CallToolResult, error) {
	nameContains, err := optionalString(args, "name_contains")
	if err != nil {
		return errorResult(err), nil
	}
	statuses, err := stringSlice(args, "statuses")
	if err != nil {
		return errorResult(err), nil
	}
	for i := range statuses {
		statuses[i] = config.CanonicalStatus(statuses[i])
	}
	tags, err := stringSlice(args, "tags")
	if err != nil {
		return errorResult(err), nil
	}
	priority, prioritySet, err := priorityArg(args)
	if err != nil {
		return errorResult(err), nil
	}
	projectID, err := optionalID(args, "project_id")
	if err != nil {
		return errorResult(err), nil
	}
	featureID, err := optionalID(args, "feature_id")
	if err != nil {
		return errorResult(err), nil
	}

	switch ct {
	case entity.ContainerProject:
		filter := store.ProjectFilter{Statuses: statuses, Tags: tags}
		if nameContains != nil {
			filter.NameContains = *nameContains
		}
		projects, err := p.store.ListProjects(ctx, filter)
		if err != nil {
			return errorResult(err), nil
		}
		data := map[string]interface{}{"projects": projects, "count": len(projects)}
		return successResult(fmt.Sprintf("found %s", plural(len(projects), "project", "projects")), data), nil

	case entity.ContainerFeature:
		filter := store.FeatureFilter{ProjectID: projectID, Statuses: statuses, Tags: tags}
		if nameContains != nil {
			filter.NameContains = *nameContains
		}
		if prioritySet {
			filter.Priority = &priority
		}
		features, err := p.store.ListFeatures(ctx, filter)
		if err != nil {
			return errorResult(err), nil
		}
		data := map[string]interface{}{"features": features, "count": len(features)}
		return successResult(fmt.Sprintf("found %s", plural(len(features), "feature", "features")), data), nil

	default:
		filter := store.TaskFilter{ProjectID: projectID, FeatureID: featureID, Statuses: statuses, Tags: tags}
		if nameContains != nil {
			filter.TitleContains = *nameContains
		}
		if prioritySet {
			filter.Priority = &priority
		}
		tasks, err := p.store.ListTasks(ctx, filter)
		if err != nil {
			return errorResult(err), nil
		}
		data := map[string]interface{}{"tasks": tasks, "count": len(tasks)}
		return successResult(fmt.Sprintf("found %s", plural(len(tasks), "task", "tasks")), data), nil
	}
}

// containerOverview returns per-status counts only, for callers that want
// the shape of the backlog without the entities themselves.
func (p *Provider) containerOverview(ctx context.Context, ct entity.ContainerType, args map[string]interface{}) (*api.CallToolResult, error) {
	projectID, err := optionalID(args, "project_id")
	if err != nil {
		return errorResult(err), nil
	}
	featureID, err := optionalID(args, "feature_id")
	if err != nil {
		return errorResult(err), nil
	}

	counts := map[string]int{}
	total := 0
	switch ct {
	case entity.ContainerProject:
		projects, err := p.store.ListProjects(ctx, store.ProjectFilter{})
		if err != nil {
			return errorResult(err), nil
		}
		for _, project := range projects {
			counts[config.CanonicalStatus(project.Status)]++
		}
		total = len(projects)
	case entity.ContainerFeature:
		features, err := p.store.ListFeatures(ctx, store.FeatureFilter{ProjectID: projectID})
		if err != nil {
			return errorResult(err), nil
		}
		for _, feature := range features {
			counts[config.CanonicalStatus(feature.Status)]++
		}
		total = len(features)
	default:
		tasks, err := p.store.ListTasks(ctx, store.TaskFilter{ProjectID: projectID, FeatureID: featureID})
		if err != nil {
			return errorResult(err), nil
		}
		for _, task := range tasks {
			counts[config.CanonicalStatus(task.Status)]++
		}
		total = len(tasks)
	}

	data := map[string]interface{}{
		"containerType": ct,
		"total":         total,
		"statusCounts":  counts,
	}
	return successResult(fmt.Sprintf("%s overview", ct), data), nil
}

func plural(n int, singular, pluralForm string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, singular)
	}
	return fmt.Sprintf("%d %s", n, pluralForm)
}
