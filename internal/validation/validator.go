// Package validation is the authoritative write-time gate for status
// transitions. Every status write, manual or cascade-driven, passes through
// Validate before it is persisted.
//
// Domain rejections are data, not errors: Validate returns a tagged Result
// and reserves its error return for store failures.
package validation

import (
	"context"
	"fmt"
	"strings"

	"roster/internal/config"
	"roster/internal/entity"
	"roster/internal/flow"
	"roster/internal/store"
	pkgstrings "roster/pkg/strings"
)

const (
	// SummaryMinLen and SummaryMaxLen bound the completion summary of a
	// task, counted in characters.
	SummaryMinLen = 300
	SummaryMaxLen = 500
)

// State classifies a validation outcome.
type State string

const (
	// StateValid allows the transition.
	StateValid State = "valid"
	// StateValidWithAdvisory allows the transition and carries a non-fatal
	// warning for the caller to surface.
	StateValidWithAdvisory State = "valid_with_advisory"
	// StateInvalid rejects the transition.
	StateInvalid State = "invalid"
)

// Result is the outcome of a transition check.
type Result struct {
	State       State
	Advisory    string
	Reason      string
	Suggestions []string
}

// Allowed reports whether the transition may proceed.
func (r Result) Allowed() bool {
	return r.State != StateInvalid
}

func valid() Result {
	return Result{State: StateValid}
}

func advisory(format string, args ...interface{}) Result {
	return Result{State: StateValidWithAdvisory, Advisory: fmt.Sprintf(format, args...)}
}

func invalid(reason string, suggestions ...string) Result {
	return Result{State: StateInvalid, Reason: reason, Suggestions: suggestions}
}

// Request describes a proposed status transition.
type Request struct {
	Current       string
	Next          string
	ContainerType entity.ContainerType
	// EntityID identifies the entity being moved. When empty the
	// entity-specific checks are skipped and only the flow-structural ones
	// run (hypothetical transitions).
	EntityID string
	Tags     []string
	// Summary is the candidate summary accompanying the transition; nil
	// keeps the stored one. Task completion validates against this value.
	Summary *string
	// ManualTrigger marks user-initiated transitions. Features with
	// requiresVerification refuse automatic entry into terminal statuses.
	ManualTrigger bool
}

// Validator checks transitions against the active flow and the entity
// graph. It is cheap to construct; build one per operation over the store
// handle of that operation so cascade passes validate inside their own
// transaction.
type Validator struct {
	store    store.Store
	resolver *flow.Resolver
}

// New creates a validator over a store handle and a config snapshot.
func New(st store.Store, resolver *flow.Resolver) *Validator {
	return &Validator{store: st, resolver: resolver}
}

// Validate runs the transition checks in order: structural membership,
// terminal gate, direction, then the feature- and task-specific
// prerequisites. Emergency targets short-circuit after the terminal gate;
// they are escape hatches and carry no structural prerequisites.
func (v *Validator) Validate(ctx context.Context, req Request) (Result, error) {
	current := config.CanonicalStatus(req.Current)
	next := config.CanonicalStatus(req.Next)
	selection := v.resolver.ActiveFlow(req.ContainerType, req.Tags)

	nextPos := flow.Position(selection.Sequence, next)
	isEmergency := v.resolver.IsEmergency(req.ContainerType, next)

	if nextPos < 0 && !isEmergency {
		return invalid(
			fmt.Sprintf("status %q is not part of flow %q for %ss", next, selection.Name, req.ContainerType),
			fmt.Sprintf("valid statuses: %s", strings.Join(selection.Sequence, ", ")),
		), nil
	}

	if v.resolver.IsTerminal(req.ContainerType, current) && !isEmergency {
		return invalid(
			fmt.Sprintf("status %q is terminal; only emergency transitions may leave it", current),
		), nil
	}

	if isEmergency {
		return valid(), nil
	}

	if curPos := flow.Position(selection.Sequence, current); curPos >= 0 && nextPos < curPos {
		if !v.resolver.BackwardAllowed(req.ContainerType, selection.Name) {
			return invalid(
				fmt.Sprintf("backward transition %q -> %q is not allowed in flow %q", current, next, selection.Name),
				"flows listed under allow_backward may move backward",
				"emergency transitions may be entered from any status",
			), nil
		}
	}

	if req.EntityID == "" {
		return valid(), nil
	}

	switch req.ContainerType {
	case entity.ContainerFeature:
		return v.validateFeature(ctx, req, selection, current, next, nextPos)
	case entity.ContainerTask:
		return v.validateTask(ctx, req, current, next)
	default:
		return valid(), nil
	}
}

// validateFeature enforces the child-task prerequisites: a feature cannot
// start empty, cannot run more than one role step ahead of its slowest
// active task, and cannot finish before every task has.
func (v *Validator) validateFeature(ctx context.Context, req Request, selection flow.Selection, current, next string, nextPos int) (Result, error) {
	tasks, err := v.store.ListTasks(ctx, store.TaskFilter{FeatureID: &req.EntityID})
	if err != nil {
		return Result{}, err
	}

	curPos := flow.Position(selection.Sequence, current)
	if curPos == 0 && next != current && len(tasks) == 0 {
		return invalid(
			"feature has no tasks; create at least one task before advancing it",
			"add tasks to the feature, then start one of them",
		), nil
	}

	nextRole := v.resolver.RoleOf(entity.ContainerFeature, req.Tags, next)

	if nextRole == entity.RoleTerminal {
		return v.validateFeatureCompletion(ctx, req, tasks)
	}

	// A feature may run at most one step ahead of its slowest active task:
	// entering sequence[p] requires every non-blocked, non-terminal task to
	// have at least the role of sequence[p-1]. Review entries are exempt;
	// those are gated by the all_children_in_review cascade instead.
	if nextPos >= 1 && nextRole != entity.RoleReview {
		floor := v.resolver.RoleOf(entity.ContainerFeature, req.Tags, selection.Sequence[nextPos-1])
		var lagging []string
		started := 0
		for _, task := range tasks {
			role := v.resolver.RoleOf(entity.ContainerTask, task.Tags, task.Status)
			if role.AtLeast(entity.RoleWork) {
				started++
			}
			if role == entity.RoleBlocked || role == entity.RoleTerminal {
				continue
			}
			if !role.AtLeast(floor) {
				lagging = append(lagging, fmt.Sprintf("%s (%s)", task.Title, task.Status))
			}
		}
		if len(lagging) > 0 {
			return invalid(
				fmt.Sprintf("feature cannot leapfrog its tasks: %d task(s) have not reached role %q yet", len(lagging), floor),
				lagging...,
			), nil
		}
		if len(tasks) > 0 && started == 0 {
			return advisory("no tasks of this feature have started yet"), nil
		}
	}
	return valid(), nil
}

func (v *Validator) validateFeatureCompletion(ctx context.Context, req Request, tasks []*entity.Task) (Result, error) {
	open := 0
	for _, task := range tasks {
		if v.resolver.RoleOf(entity.ContainerTask, task.Tags, task.Status) != entity.RoleTerminal {
			open++
		}
	}
	if open > 0 {
		return invalid(
			fmt.Sprintf("%d of %d tasks are not finished", open, len(tasks)),
			"complete or cancel the remaining tasks first",
		), nil
	}

	feature, err := v.store.GetFeature(ctx, req.EntityID)
	if err != nil {
		return Result{}, err
	}
	if feature.RequiresVerification && !req.ManualTrigger {
		return invalid(
			"feature requires manual verification before completion",
			"complete the feature explicitly once it has been verified",
		), nil
	}
	return valid(), nil
}

// validateTask enforces the summary length on completion and the blocking
// edges on start.
func (v *Validator) validateTask(ctx context.Context, req Request, current, next string) (Result, error) {
	currentRole := v.resolver.RoleOf(entity.ContainerTask, req.Tags, current)
	nextRole := v.resolver.RoleOf(entity.ContainerTask, req.Tags, next)

	if nextRole == entity.RoleTerminal {
		summary := ""
		if req.Summary != nil {
			summary = *req.Summary
		} else {
			task, err := v.store.GetTask(ctx, req.EntityID)
			if err != nil {
				return Result{}, err
			}
			summary = task.Summary
		}
		if length := pkgstrings.Length(summary); length < SummaryMinLen || length > SummaryMaxLen {
			return invalid(
				fmt.Sprintf("task summary must be %d-%d characters; got %d", SummaryMinLen, SummaryMaxLen, length),
				"describe what was done, how it was verified, and anything left open",
			), nil
		}
	}

	if nextRole == entity.RoleWork && !currentRole.AtLeast(entity.RoleWork) {
		unsatisfied, err := v.unsatisfiedBlockers(ctx, req.EntityID)
		if err != nil {
			return Result{}, err
		}
		if len(unsatisfied) > 0 {
			return invalid(
				fmt.Sprintf("task is blocked by %d unsatisfied dependenc%s", len(unsatisfied), pluralY(len(unsatisfied))),
				unsatisfied...,
			), nil
		}
	}
	return valid(), nil
}

// unsatisfiedBlockers lists the blocking edges of a task whose blocker has
// not reached the edge's unblock threshold. The task is on the receiving
// end of incoming BLOCKS and outgoing IS_BLOCKED_BY edges.
func (v *Validator) unsatisfiedBlockers(ctx context.Context, taskID string) ([]string, error) {
	edges, err := v.store.FindBlockingEdges(ctx, taskID, store.DirectionBoth)
	if err != nil {
		return nil, err
	}
	var unsatisfied []string
	for _, edge := range edges {
		blockerID, ok := edge.BlockerOf(taskID)
		if !ok {
			continue
		}
		blocker, err := v.store.GetTask(ctx, blockerID)
		if err != nil {
			return nil, err
		}
		role := v.resolver.RoleOf(entity.ContainerTask, blocker.Tags, blocker.Status)
		threshold := edge.Threshold()
		if !role.AtLeast(threshold) {
			unsatisfied = append(unsatisfied,
				fmt.Sprintf("%s (%s) must reach role %q", blocker.Title, blocker.Status, threshold))
		}
	}
	return unsatisfied, nil
}

func pluralY(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}
