// Package flow resolves which status flow applies to an entity and what
// each status means: its position in the flow, whether it is terminal, and
// which coarse role it occupies.
package flow

import (
	"strings"

	"roster/internal/config"
	"roster/internal/entity"
)

// Resolver answers flow questions against one config snapshot. Construct a
// fresh resolver per operation so every decision inside the operation sees
// the same configuration.
type Resolver struct {
	cfg *config.Config
}

// New creates a resolver over the given config snapshot.
func New(cfg *config.Config) *Resolver {
	return &Resolver{cfg: cfg}
}

// Selection is the outcome of resolving an entity's active flow.
type Selection struct {
	// Name is the flow name, config.DefaultFlowName when no mapping matched.
	Name string
	// Sequence is the ordered status list of the flow.
	Sequence []string
	// MatchedTags are the entity tags that selected the flow, in their
	// original spelling. Diagnostics only.
	MatchedTags []string
}

func (r *Resolver) section(containerType entity.ContainerType) config.ContainerFlows {
	return r.cfg.Progression(string(containerType))
}

// ActiveFlow picks the flow for an entity. Flow mappings are evaluated in
// declaration order and the first whose tag set intersects the entity tags
// (case-insensitively) wins; otherwise the default flow applies.
func (r *Resolver) ActiveFlow(containerType entity.ContainerType, tags []string) Selection {
	section := r.section(containerType)
	for _, mapping := range section.FlowMappings {
		matched := matchTags(tags, mapping.Tags)
		if len(matched) == 0 {
			continue
		}
		sequence, ok := section.Flow(mapping.Flow)
		if !ok {
			// Validation rejects dangling references at load time; an
			// unknown flow here means a hand-built config, skip it.
			continue
		}
		return Selection{Name: mapping.Flow, Sequence: sequence, MatchedTags: matched}
	}
	return Selection{Name: config.DefaultFlowName, Sequence: section.DefaultFlow}
}

// matchTags returns the entity tags present in the mapping tag set,
// preserving their original case.
func matchTags(entityTags, mappingTags []string) []string {
	var matched []string
	for _, tag := range entityTags {
		lowered := strings.ToLower(strings.TrimSpace(tag))
		for _, mapped := range mappingTags {
			if lowered == mapped {
				matched = append(matched, tag)
				break
			}
		}
	}
	return matched
}

// Position returns the index of status in the sequence, comparing canonical
// forms, or -1 when the status is not part of the flow.
func Position(sequence []string, status string) int {
	canonical := config.CanonicalStatus(status)
	for i, s := range sequence {
		if s == canonical {
			return i
		}
	}
	return -1
}

// TerminalSet returns the terminal statuses configured for the type.
func (r *Resolver) TerminalSet(containerType entity.ContainerType) []string {
	return r.section(containerType).TerminalStatuses
}

// IsTerminal reports whether the status is terminal for the type,
// regardless of which flow references it.
func (r *Resolver) IsTerminal(containerType entity.ContainerType, status string) bool {
	return statusIn(status, r.section(containerType).TerminalStatuses)
}

// IsEmergency reports whether the status may be entered from anywhere,
// including from terminal statuses.
func (r *Resolver) IsEmergency(containerType entity.ContainerType, status string) bool {
	return statusIn(status, r.section(containerType).EmergencyTransitions)
}

// KnownStatus reports whether the status appears anywhere in the type's
// configuration: any flow, the terminal set, or the emergency set.
func (r *Resolver) KnownStatus(containerType entity.ContainerType, status string) bool {
	section := r.section(containerType)
	if statusIn(status, section.DefaultFlow) ||
		statusIn(status, section.TerminalStatuses) ||
		statusIn(status, section.EmergencyTransitions) {
		return true
	}
	for _, sequence := range section.Flows {
		if statusIn(status, sequence) {
			return true
		}
	}
	return false
}

// BackwardAllowed reports whether the named flow of the type opted in to
// backward transitions.
func (r *Resolver) BackwardAllowed(containerType entity.ContainerType, flowName string) bool {
	return r.section(containerType).BackwardAllowed(flowName)
}

// roleKeywords maps status-name fragments to roles. Groups are checked in
// order, so "pending-review" lands in review before the pending fragment
// can pull it into queue.
var roleKeywords = []struct {
	role      entity.Role
	fragments []string
}{
	{entity.RoleReview, []string{"review", "testing", "validat", "qa"}},
	{entity.RoleWork, []string{"progress", "development", "implement", "investigat", "active", "doing"}},
	{entity.RoleBlocked, []string{"block", "hold", "wait"}},
	{entity.RoleTerminal, []string{"complet", "done", "cancel", "archiv", "closed"}},
	{entity.RoleQueue, []string{"pending", "backlog", "planning", "queue", "todo", "draft"}},
}

// RoleOf derives the role of a status for an entity. Precedence: explicit
// config override, terminal-set membership, keyword inference on the status
// name, position in the active flow, and finally queue for anything still
// unresolved.
func (r *Resolver) RoleOf(containerType entity.ContainerType, tags []string, status string) entity.Role {
	section := r.section(containerType)
	canonical := config.CanonicalStatus(status)

	if override, ok := section.Roles[canonical]; ok {
		if role, err := entity.ParseRole(override); err == nil {
			return role
		}
	}
	if statusIn(canonical, section.TerminalStatuses) {
		return entity.RoleTerminal
	}
	for _, group := range roleKeywords {
		for _, fragment := range group.fragments {
			if strings.Contains(canonical, fragment) {
				return group.role
			}
		}
	}
	selection := r.ActiveFlow(containerType, tags)
	switch pos := Position(selection.Sequence, canonical); {
	case pos == 0:
		return entity.RoleQueue
	case pos > 0 && pos == len(selection.Sequence)-1:
		return entity.RoleReview
	case pos > 0:
		return entity.RoleWork
	}
	return entity.RoleQueue
}

func statusIn(status string, set []string) bool {
	canonical := config.CanonicalStatus(status)
	for _, s := range set {
		if s == canonical {
			return true
		}
	}
	return false
}
