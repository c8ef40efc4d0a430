package tools

import (
	"context"
	"fmt"
	"strings"

	"roster/internal/api"
	"roster/internal/config"
	"roster/internal/entity"
	"roster/internal/flow"
	"roster/internal/progression"
)

// handleGetProgression answers "what next" for a container: the recommended
// next status, or the readiness of an explicit target. With an entity_id
// the current status and tags come from the store; without one the caller
// supplies them for a hypothetical query.
func (p *Provider) handleGetProgression(ctx context.Context, args map[string]interface{}) (*api.CallToolResult, error) {
	ct, err := containerTypeArg(args)
	if err != nil {
		return errorResult(err), nil
	}
	entityID, err := optionalID(args, "entity_id")
	if err != nil {
		return errorResult(err), nil
	}
	currentArg, err := optionalString(args, "current_status")
	if err != nil {
		return errorResult(err), nil
	}
	targetArg, err := optionalString(args, "target_status")
	if err != nil {
		return errorResult(err), nil
	}
	tags, err := stringSlice(args, "tags")
	if err != nil {
		return errorResult(err), nil
	}

	resolver := flow.New(p.config())

	var current, id string
	if entityID != nil {
		id = *entityID
		stored, storedTags, err := p.containerStatus(ctx, ct, id)
		if err != nil {
			return errorResult(err), nil
		}
		current = stored
		if tags == nil {
			tags = storedTags
		}
	}
	if currentArg != nil && strings.TrimSpace(*currentArg) != "" {
		current = config.CanonicalStatus(*currentArg)
		if !resolver.KnownStatus(ct, current) {
			return errorResult(api.NewValidationError("current_status",
				"unknown status %q for %s containers", current, ct)), nil
		}
	}
	if current == "" {
		return errorResult(api.NewValidationError("current_status",
			"current_status is required when entity_id is not given")), nil
	}

	svc := progression.New(p.store, resolver)
	var rec progression.Recommendation
	if targetArg != nil && strings.TrimSpace(*targetArg) != "" {
		target := config.CanonicalStatus(*targetArg)
		if !resolver.KnownStatus(ct, target) {
			return errorResult(api.NewValidationError("target_status",
				"unknown status %q for %s containers", target, ct)), nil
		}
		rec, err = svc.Readiness(ctx, current, target, ct, tags, id)
	} else {
		rec, err = svc.NextStatus(ctx, current, ct, tags, id)
	}
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(fmt.Sprintf("progression is %s", rec.State), rec), nil
}

// containerStatus reads the stored status and tags of a container.
func (p *Provider) containerStatus(ctx context.Context, ct entity.ContainerType, id string) (string, []string, error) {
	switch ct {
	case entity.ContainerProject:
		project, err := p.store.GetProject(ctx, id)
		if err != nil {
			return "", nil, err
		}
		return project.Status, project.Tags, nil
	case entity.ContainerFeature:
		feature, err := p.store.GetFeature(ctx, id)
		if err != nil {
			return "", nil, err
		}
		return feature.Status, feature.Tags, nil
	default:
		task, err := p.store.GetTask(ctx, id)
		if err != nil {
			return "", nil, err
		}
		return task.Status, task.Tags, nil
	}
}

// handleGetFlowPath projects the active flow for a container type and tag
// set. Pure config; the store is never read.
func (p *Provider) handleGetFlowPath(ctx context.Context, args map[string]interface{}) (*api.CallToolResult, error) {
	ct, err := containerTypeArg(args)
	if err != nil {
		return errorResult(err), nil
	}
	tags, err := stringSlice(args, "tags")
	if err != nil {
		return errorResult(err), nil
	}
	currentArg, err := optionalString(args, "current_status")
	if err != nil {
		return errorResult(err), nil
	}

	resolver := flow.New(p.config())
	current := ""
	if currentArg != nil && strings.TrimSpace(*currentArg) != "" {
		current = config.CanonicalStatus(*currentArg)
		if !resolver.KnownStatus(ct, current) {
			return errorResult(api.NewValidationError("current_status",
				"unknown status %q for %s containers", current, ct)), nil
		}
	}

	svc := progression.New(p.store, resolver)
	path := svc.FlowPath(ct, tags, current)
	return successResult(fmt.Sprintf("flow %s", path.FlowName), path), nil
}
