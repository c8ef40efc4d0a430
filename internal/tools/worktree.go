package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"roster/internal/api"
	"roster/internal/dependency"
	"roster/internal/entity"
	"roster/internal/flow"
	"roster/internal/store"
)

// handleCreateWorkTree creates a project, a feature, tasks, and their
// dependency edges in one transaction. Dependency endpoints may name a task
// from the same call by its ref or title, or an existing task by id. Any
// failure, including a cycle among the proposed edges, rolls back the whole
// tree.
func (p *Provider) handleCreateWorkTree(ctx context.Context, args map[string]interface{}) (*api.CallToolResult, error) {
	projectObj, err := objectArg(args, "project")
	if err != nil {
		return errorResult(err), nil
	}
	featureObj, err := objectArg(args, "feature")
	if err != nil {
		return errorResult(err), nil
	}
	taskObjs, err := objectSlice(args, "tasks")
	if err != nil {
		return errorResult(err), nil
	}
	depObjs, err := objectSlice(args, "dependencies")
	if err != nil {
		return errorResult(err), nil
	}
	if projectObj == nil && featureObj == nil && len(taskObjs) == 0 {
		return errorResult(api.NewValidationError("tasks",
			"a work tree needs a project, a feature, or at least one task")), nil
	}

	resolver := flow.New(p.config())

	var project *entity.Project
	if projectObj != nil {
		project, err = parseTreeProject(resolver, projectObj)
		if err != nil {
			return errorResult(prefixValidation(err, "project")), nil
		}
	}

	var feature *entity.Feature
	if featureObj != nil {
		var defaultProject *string
		if project != nil {
			defaultProject = &project.ID
		}
		feature, err = parseTreeFeature(resolver, featureObj, defaultProject)
		if err != nil {
			return errorResult(prefixValidation(err, "feature")), nil
		}
	}

	refs := map[string]string{}
	titles := map[string][]string{}
	tasks := make([]*entity.Task, 0, len(taskObjs))
	for i, obj := range taskObjs {
		var defaultFeature *string
		if feature != nil {
			defaultFeature = &feature.ID
		}
		task, ref, err := parseTreeTask(resolver, obj, defaultFeature)
		if err != nil {
			return errorResult(prefixValidation(err, fmt.Sprintf("tasks[%d]", i))), nil
		}
		if ref != "" {
			if _, dup := refs[ref]; dup {
				return errorResult(api.NewValidationError("tasks", "duplicate task ref %q", ref)), nil
			}
			refs[ref] = task.ID
		}
		titles[task.Title] = append(titles[task.Title], task.ID)
		tasks = append(tasks, task)
	}

	deps := make([]*entity.Dependency, 0, len(depObjs))
	for i, obj := range depObjs {
		dep, err := parseTreeDependency(obj, refs, titles)
		if err != nil {
			return errorResult(prefixValidation(err, fmt.Sprintf("dependencies[%d]", i))), nil
		}
		deps = append(deps, dep)
	}

	err = p.store.RunInTransaction(ctx, func(tx store.Store) error {
		if project != nil {
			if err := tx.CreateProject(ctx, project); err != nil {
				return err
			}
		}
		if feature != nil {
			if err := tx.CreateFeature(ctx, feature); err != nil {
				return err
			}
		}
		for _, task := range tasks {
			if err := tx.CreateTask(ctx, task); err != nil {
				return err
			}
		}
		for _, dep := range deps {
			// Each check sees the edges inserted before it, so a cycle
			// closed by any edge of this call aborts the transaction.
			if err := dependency.CheckAcyclic(ctx, tx, dep); err != nil {
				return err
			}
			if err := tx.CreateDependency(ctx, dep); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errorResult(err), nil
	}

	data := map[string]interface{}{}
	parts := []string{}
	if project != nil {
		data["project"] = project
		parts = append(parts, "1 project")
	}
	if feature != nil {
		data["feature"] = feature
		parts = append(parts, "1 feature")
	}
	if len(tasks) > 0 {
		data["tasks"] = tasks
		parts = append(parts, plural(len(tasks), "task", "tasks"))
	}
	if len(deps) > 0 {
		data["dependencies"] = deps
		parts = append(parts, plural(len(deps), "dependency", "dependencies"))
	}
	return successResult("work tree created: "+strings.Join(parts, ", "), data), nil
}

func parseTreeProject(resolver *flow.Resolver, obj map[string]interface{}) (*entity.Project, error) {
	name, err := requireString(obj, "name")
	if err != nil {
		return nil, err
	}
	tags, err := stringSlice(obj, "tags")
	if err != nil {
		return nil, err
	}
	status, err := initialStatus(resolver, entity.ContainerProject, tags, obj)
	if err != nil {
		return nil, err
	}
	project := &entity.Project{ID: entity.NewID(), Name: name, Status: status, Tags: tags}
	summary, err := optionalString(obj, "summary")
	if err != nil {
		return nil, err
	}
	if summary != nil {
		project.Summary = *summary
	}
	return project, nil
}

func parseTreeFeature(resolver *flow.Resolver, obj map[string]interface{}, defaultProject *string) (*entity.Feature, error) {
	name, err := requireString(obj, "name")
	if err != nil {
		return nil, err
	}
	tags, err := stringSlice(obj, "tags")
	if err != nil {
		return nil, err
	}
	status, err := initialStatus(resolver, entity.ContainerFeature, tags, obj)
	if err != nil {
		return nil, err
	}
	priority, _, err := priorityArg(obj)
	if err != nil {
		return nil, err
	}
	requiresVerification, err := boolArg(obj, "requires_verification", false)
	if err != nil {
		return nil, err
	}
	present, projectID, err := parentArg(obj, "project_id")
	if err != nil {
		return nil, err
	}
	if !present {
		projectID = defaultProject
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
	summary, err := optionalString(obj, "summary")
	if err != nil {
		return nil, err
	}
	if summary != nil {
		feature.Summary = *summary
	}
	description, err := optionalString(obj, "description")
	if err != nil {
		return nil, err
	}
	if description != nil {
		feature.Description = *description
	}
	return feature, nil
}

func parseTreeTask(resolver *flow.Resolver, obj map[string]interface{}, defaultFeature *string) (*entity.Task, string, error) {
	title, err := requireString(obj, "title")
	if err != nil {
		return nil, "", err
	}
	ref := ""
	refPtr, err := optionalString(obj, "ref")
	if err != nil {
		return nil, "", err
	}
	if refPtr != nil {
		ref = *refPtr
	}
	tags, err := stringSlice(obj, "tags")
	if err != nil {
		return nil, "", err
	}
	status, err := initialStatus(resolver, entity.ContainerTask, tags, obj)
	if err != nil {
		return nil, "", err
	}
	priority, _, err := priorityArg(obj)
	if err != nil {
		return nil, "", err
	}
	complexity, err := complexityArg(obj)
	if err != nil {
		return nil, "", err
	}
	present, featureID, err := parentArg(obj, "feature_id")
	if err != nil {
		return nil, "", err
	}
	if !present {
		featureID = defaultFeature
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
	summary, err := optionalString(obj, "summary")
	if err != nil {
		return nil, "", err
	}
	if summary != nil {
		task.Summary = *summary
	}
	description, err := optionalString(obj, "description")
	if err != nil {
		return nil, "", err
	}
	if description != nil {
		task.Description = *description
	}
	return task, ref, nil
}

func parseTreeDependency(obj map[string]interface{}, refs map[string]string, titles map[string][]string) (*entity.Dependency, error) {
	from, err := requireString(obj, "from")
	if err != nil {
		return nil, err
	}
	to, err := requireString(obj, "to")
	if err != nil {
		return nil, err
	}
	depType, err := dependencyTypeArg(obj, entity.DependencyBlocks)
	if err != nil {
		return nil, err
	}
	unblockAt, err := unblockAtArg(obj)
	if err != nil {
		return nil, err
	}
	fromID, err := resolveEndpoint("from", from, refs, titles)
	if err != nil {
		return nil, err
	}
	toID, err := resolveEndpoint("to", to, refs, titles)
	if err != nil {
		return nil, err
	}
	return &entity.Dependency{
		ID:         entity.NewID(),
		FromItemID: fromID,
		ToItemID:   toID,
		Type:       depType,
		UnblockAt:  unblockAt,
	}, nil
}

// resolveEndpoint maps a dependency endpoint to a task id: a ref from this
// call first, then a unique title from this call, then an existing task id.
func resolveEndpoint(field, value string, refs map[string]string, titles map[string][]string) (string, error) {
	if id, ok := refs[value]; ok {
		return id, nil
	}
	switch ids := titles[value]; len(ids) {
	case 0:
	case 1:
		return ids[0], nil
	default:
		return "", api.NewValidationError(field, "task title %q is ambiguous; give the tasks refs", value)
	}
	if _, err := uuid.Parse(value); err != nil {
		return "", api.NewValidationError(field, "%q does not name a task ref, title, or id", value)
	}
	return value, nil
}

// prefixValidation qualifies a validation error's field with the nested
// object it came from, e.g. "tasks[2].title".
func prefixValidation(err error, prefix string) error {
	var v *api.ValidationError
	if errors.As(err, &v) {
		field := prefix
		if v.Field != "" {
			field = prefix + "." + v.Field
		}
		return api.NewValidationError(field, "%s", v.Message)
	}
	return err
}
