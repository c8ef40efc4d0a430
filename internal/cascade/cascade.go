// Package cascade propagates status changes through the container
// hierarchy: task writes advance their feature, feature writes advance
// their project. Each successful status write triggers one cascade pass;
// the pass detects candidate events, validates and applies the proposed
// advances, and recurses on every entity it moved.
package cascade

import (
	"context"

	"roster/internal/api"
	"roster/internal/config"
	"roster/internal/dependency"
	"roster/internal/entity"
	"roster/internal/flow"
	"roster/internal/store"
	"roster/internal/validation"
	"roster/pkg/logging"
)

// Cascade event names, recorded on result nodes and role transitions.
const (
	EventFirstChildStarted   = "first_child_started"
	EventAllChildrenInReview = "all_children_in_review"
	EventAllTasksComplete    = "all_tasks_complete"
	EventFeatureSelfAdvance  = "feature_self_advancement"
	EventAllFeaturesComplete = "all_features_complete"
)

// Cascade is one node of the result tree a pass returns. Applied nodes
// carry the advance that was persisted plus whatever it triggered in turn;
// rejected nodes carry the reason the advance was withheld.
type Cascade struct {
	Event          string               `json:"event"`
	TargetType     entity.ContainerType `json:"targetType"`
	TargetID       string               `json:"targetId"`
	PreviousStatus string               `json:"previousStatus"`
	NewStatus      string               `json:"newStatus"`
	Applied        bool                 `json:"applied"`
	Reason         string               `json:"reason,omitempty"`
	Error          string               `json:"error,omitempty"`
	Cleanup        *CleanupResult       `json:"cleanup,omitempty"`
	UnblockedTasks []UnblockedTask      `json:"unblockedTasks,omitempty"`
	ChildCascades  []Cascade            `json:"childCascades,omitempty"`
}

// CleanupResult reports what completion cleanup did when a feature entered
// a terminal status.
type CleanupResult struct {
	Deleted  []string       `json:"deleted,omitempty"`
	Retained []RetainedTask `json:"retained,omitempty"`
}

// RetainedTask is an open task cleanup left alone, with the content that
// protected it.
type RetainedTask struct {
	TaskID string `json:"taskId"`
	Title  string `json:"title"`
	Reason string `json:"reason"`
}

// UnblockedTask identifies a downstream task a completion released.
type UnblockedTask struct {
	TaskID string `json:"taskId"`
	Title  string `json:"title"`
}

// Result is the outcome of one cascade pass. Beyond the event tree it
// carries the direct consequences of the triggering write itself: the
// cleanup of a manually terminated feature and the tasks a manually
// completed task released. Cascade-applied terminals report these on their
// own tree nodes instead.
type Result struct {
	Cascades         []Cascade       `json:"cascades,omitempty"`
	TriggerCleanup   *CleanupResult  `json:"cleanup,omitempty"`
	TriggerUnblocked []UnblockedTask `json:"unblockedTasks,omitempty"`
}

// Engine runs cascade passes. It owns no state beyond its wiring; every
// pass opens its own transaction on the injected store.
type Engine struct {
	store    store.Store
	cfg      *config.Config
	resolver *flow.Resolver
}

// New creates an engine over a store and a config snapshot.
func New(st store.Store, cfg *config.Config) *Engine {
	return &Engine{store: st, cfg: cfg, resolver: flow.New(cfg)}
}

// Run executes one cascade pass for the entity whose status just changed.
// The triggering write must already be committed; the pass runs in its own
// transaction and rolls back wholesale on failure, leaving the trigger in
// place. A disabled auto_cascade turns Run into a no-op.
func (e *Engine) Run(ctx context.Context, entityID string, containerType entity.ContainerType) (*Result, error) {
	if !e.cfg.AutoCascade.Enabled {
		return &Result{}, nil
	}
	out := &Result{}
	err := e.store.RunInTransaction(ctx, func(tx store.Store) error {
		p := &pass{
			store:     tx,
			cfg:       e.cfg,
			resolver:  e.resolver,
			validator: validation.New(tx, e.resolver),
			deps:      dependency.New(tx, e.resolver),
		}
		if err := p.triggerConsequences(ctx, entityID, containerType, out); err != nil {
			return err
		}
		cascades, err := p.apply(ctx, entityID, containerType, 0)
		if err != nil {
			return err
		}
		out.Cascades = cascades
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// triggerConsequences handles the terminal side effects of the triggering
// write itself. Cascade-applied advances get theirs in applyEvent; a manual
// write needs them here or an emergency cancellation would never sweep its
// scaffolding and a manual completion would never report what it unblocked.
func (p *pass) triggerConsequences(ctx context.Context, entityID string, containerType entity.ContainerType, out *Result) error {
	switch containerType {
	case entity.ContainerFeature:
		feature, err := p.store.GetFeature(ctx, entityID)
		if err != nil {
			if api.IsNotFound(err) {
				return nil
			}
			return err
		}
		if p.resolver.RoleOf(entity.ContainerFeature, feature.Tags, feature.Status) != entity.RoleTerminal {
			return nil
		}
		cleanup, err := p.completionCleanup(ctx, entityID)
		if err != nil {
			return err
		}
		out.TriggerCleanup = cleanup
	case entity.ContainerTask:
		task, err := p.store.GetTask(ctx, entityID)
		if err != nil {
			if api.IsNotFound(err) {
				return nil
			}
			return err
		}
		if p.resolver.RoleOf(entity.ContainerTask, task.Tags, task.Status) != entity.RoleTerminal {
			return nil
		}
		unblocked, err := p.deps.NewlyUnblocked(ctx, entityID)
		if err != nil {
			return err
		}
		for _, t := range unblocked {
			out.TriggerUnblocked = append(out.TriggerUnblocked, UnblockedTask{TaskID: t.ID, Title: t.Title})
		}
	}
	return nil
}

// pass carries the per-transaction wiring of one cascade pass.
type pass struct {
	store     store.Store
	cfg       *config.Config
	resolver  *flow.Resolver
	validator *validation.Validator
	deps      *dependency.Service
}

// apply detects and applies the cascade events for one entity. Depth counts
// applied generations; past the configured cap the pass logs and stops
// without failing.
func (p *pass) apply(ctx context.Context, entityID string, containerType entity.ContainerType, depth int) ([]Cascade, error) {
	if depth >= p.cfg.AutoCascade.MaxDepth {
		logging.Warn("Cascade", "depth cap %d reached at %s %s, truncating pass",
			p.cfg.AutoCascade.MaxDepth, containerType, entityID)
		return nil, nil
	}
	events, err := p.detect(ctx, entityID, containerType)
	if err != nil {
		return nil, err
	}
	var out []Cascade
	for _, ev := range events {
		record, err := p.applyEvent(ctx, ev, depth)
		if err != nil {
			return nil, err
		}
		if record != nil {
			out = append(out, *record)
		}
	}
	return out, nil
}

// target is the re-fetched state of an event's cascade target, independent
// of its concrete entity type.
type target struct {
	status               string
	tags                 []string
	requiresVerification bool
	persist              func(ctx context.Context, status string) error
}

func (p *pass) fetchTarget(ctx context.Context, ev event) (*target, error) {
	switch ev.targetType {
	case entity.ContainerFeature:
		feature, err := p.store.GetFeature(ctx, ev.targetID)
		if err != nil {
			return nil, err
		}
		return &target{
			status:               feature.Status,
			tags:                 feature.Tags,
			requiresVerification: feature.RequiresVerification,
			persist: func(ctx context.Context, status string) error {
				feature.Status = status
				return p.store.UpdateFeature(ctx, feature)
			},
		}, nil
	case entity.ContainerProject:
		project, err := p.store.GetProject(ctx, ev.targetID)
		if err != nil {
			return nil, err
		}
		return &target{
			status: project.Status,
			tags:   project.Tags,
			persist: func(ctx context.Context, status string) error {
				project.Status = status
				return p.store.UpdateProject(ctx, project)
			},
		}, nil
	default:
		task, err := p.store.GetTask(ctx, ev.targetID)
		if err != nil {
			return nil, err
		}
		return &target{
			status: task.Status,
			tags:   task.Tags,
			persist: func(ctx context.Context, status string) error {
				task.Status = status
				return p.store.UpdateTask(ctx, task)
			},
		}, nil
	}
}

// applyEvent processes one candidate event: re-fetch, skip when an earlier
// cascade already landed the advance, suppress unverified completions,
// validate, persist, record the role crossing, run the terminal side
// effects, recurse.
func (p *pass) applyEvent(ctx context.Context, ev event, depth int) (*Cascade, error) {
	tgt, err := p.fetchTarget(ctx, ev)
	if err != nil {
		if api.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	current := config.CanonicalStatus(tgt.status)
	if current == ev.proposed {
		// An earlier cascade in this pass already moved the target here.
		return nil, nil
	}

	record := &Cascade{
		Event:          ev.name,
		TargetType:     ev.targetType,
		TargetID:       ev.targetID,
		PreviousStatus: current,
		NewStatus:      ev.proposed,
	}

	if ev.verificationGuard && tgt.requiresVerification &&
		p.resolver.RoleOf(ev.targetType, tgt.tags, ev.proposed) == entity.RoleTerminal {
		record.Reason = "feature requires verification; completion must be triggered manually"
		return record, nil
	}

	res, err := p.validator.Validate(ctx, validation.Request{
		Current:       current,
		Next:          ev.proposed,
		ContainerType: ev.targetType,
		EntityID:      ev.targetID,
		Tags:          tgt.tags,
	})
	if err != nil {
		record.Error = err.Error()
		return record, nil
	}
	if !res.Allowed() {
		record.Reason = res.Reason
		return record, nil
	}

	prevRole := p.resolver.RoleOf(ev.targetType, tgt.tags, current)
	newRole := p.resolver.RoleOf(ev.targetType, tgt.tags, ev.proposed)

	if err := tgt.persist(ctx, ev.proposed); err != nil {
		return nil, err
	}
	record.Applied = true
	record.Reason = res.Advisory

	if prevRole != newRole {
		err := p.store.AppendRoleTransition(ctx, &entity.RoleTransition{
			ID:         entity.NewID(),
			EntityID:   ev.targetID,
			EntityType: ev.targetType,
			FromRole:   prevRole,
			ToRole:     newRole,
			FromStatus: current,
			ToStatus:   ev.proposed,
			Trigger:    ev.name,
		})
		if err != nil {
			return nil, err
		}
	}

	if newRole == entity.RoleTerminal {
		switch ev.targetType {
		case entity.ContainerFeature:
			cleanup, err := p.completionCleanup(ctx, ev.targetID)
			if err != nil {
				return nil, err
			}
			record.Cleanup = cleanup
		case entity.ContainerTask:
			unblocked, err := p.deps.NewlyUnblocked(ctx, ev.targetID)
			if err != nil {
				return nil, err
			}
			for _, task := range unblocked {
				record.UnblockedTasks = append(record.UnblockedTasks, UnblockedTask{TaskID: task.ID, Title: task.Title})
			}
		}
	}

	children, err := p.apply(ctx, ev.targetID, ev.targetType, depth+1)
	if err != nil {
		return nil, err
	}
	record.ChildCascades = children
	return record, nil
}
