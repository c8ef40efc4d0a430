// Package progression recommends the next status for an entity and answers
// readiness queries. It is a read-only layer over the flow resolver and the
// validation gate; nothing here writes.
package progression

import (
	"context"
	"fmt"

	"roster/internal/config"
	"roster/internal/entity"
	"roster/internal/flow"
	"roster/internal/store"
	"roster/internal/validation"
)

// State classifies a progression answer.
type State string

const (
	// StateReady means the recommended transition would pass validation.
	StateReady State = "ready"
	// StateBlocked means the next step exists but validation rejects it.
	StateBlocked State = "blocked"
	// StateTerminal means there is no next step.
	StateTerminal State = "terminal"
)

// Recommendation is the outcome of NextStatus or Readiness.
type Recommendation struct {
	State       State    `json:"state"`
	Current     string   `json:"current"`
	Recommended string   `json:"recommended,omitempty"`
	FlowName    string   `json:"flowName"`
	Sequence    []string `json:"sequence"`
	Position    int      `json:"position"`
	MatchedTags []string `json:"matchedTags,omitempty"`
	Reason      string   `json:"reason,omitempty"`
	Blockers    []string `json:"blockers,omitempty"`
	Advisory    string   `json:"advisory,omitempty"`
}

// Path is the pure flow projection returned by FlowPath. Position is nil
// when the current status is not part of the active flow.
type Path struct {
	FlowName    string   `json:"flowName"`
	Sequence    []string `json:"sequence"`
	Current     string   `json:"current,omitempty"`
	Position    *int     `json:"position"`
	MatchedTags []string `json:"matchedTags,omitempty"`
	Terminal    bool     `json:"terminal"`
}

// Service answers progression queries against one config snapshot and one
// store handle.
type Service struct {
	validator *validation.Validator
	resolver  *flow.Resolver
}

// New creates a progression service.
func New(st store.Store, resolver *flow.Resolver) *Service {
	return &Service{
		validator: validation.New(st, resolver),
		resolver:  resolver,
	}
}

// NextStatus proposes the next step in the entity's active flow and checks
// it against the validation gate. A rejected step is reported as blocked,
// not as an error.
func (s *Service) NextStatus(ctx context.Context, current string, containerType entity.ContainerType, tags []string, entityID string) (Recommendation, error) {
	canonical := config.CanonicalStatus(current)
	selection := s.resolver.ActiveFlow(containerType, tags)
	position := flow.Position(selection.Sequence, canonical)

	rec := Recommendation{
		Current:     canonical,
		FlowName:    selection.Name,
		Sequence:    selection.Sequence,
		Position:    position,
		MatchedTags: selection.MatchedTags,
	}

	if s.resolver.IsTerminal(containerType, canonical) {
		rec.State = StateTerminal
		rec.Reason = fmt.Sprintf("status %q is terminal", canonical)
		return rec, nil
	}
	if position >= 0 && position == len(selection.Sequence)-1 {
		rec.State = StateTerminal
		rec.Reason = fmt.Sprintf("status %q is the end of flow %q", canonical, selection.Name)
		return rec, nil
	}

	var proposed string
	if position < 0 {
		// Off-flow statuses (emergency parkings like on-hold) re-enter at
		// the start of the flow.
		proposed = selection.Sequence[0]
		rec.Reason = fmt.Sprintf("status %q is not part of flow %q; recommending its first status", canonical, selection.Name)
	} else {
		proposed = selection.Sequence[position+1]
	}

	result, err := s.validator.Validate(ctx, validation.Request{
		Current:       canonical,
		Next:          proposed,
		ContainerType: containerType,
		EntityID:      entityID,
		Tags:          tags,
	})
	if err != nil {
		return Recommendation{}, err
	}
	if !result.Allowed() {
		rec.State = StateBlocked
		rec.Reason = result.Reason
		rec.Blockers = append([]string{result.Reason}, result.Suggestions...)
		return rec, nil
	}

	rec.State = StateReady
	rec.Recommended = proposed
	rec.Advisory = result.Advisory
	if rec.Reason == "" {
		rec.Reason = fmt.Sprintf("next step in flow %q", selection.Name)
	}
	return rec, nil
}

// Readiness checks a user-supplied target instead of computing one.
// Readiness is a manual-action probe, so verification-gated completions
// count as ready here.
func (s *Service) Readiness(ctx context.Context, current, target string, containerType entity.ContainerType, tags []string, entityID string) (Recommendation, error) {
	canonical := config.CanonicalStatus(current)
	targetCanonical := config.CanonicalStatus(target)
	selection := s.resolver.ActiveFlow(containerType, tags)

	rec := Recommendation{
		Current:     canonical,
		FlowName:    selection.Name,
		Sequence:    selection.Sequence,
		Position:    flow.Position(selection.Sequence, canonical),
		MatchedTags: selection.MatchedTags,
	}

	result, err := s.validator.Validate(ctx, validation.Request{
		Current:       canonical,
		Next:          targetCanonical,
		ContainerType: containerType,
		EntityID:      entityID,
		Tags:          tags,
		ManualTrigger: true,
	})
	if err != nil {
		return Recommendation{}, err
	}
	if !result.Allowed() {
		rec.State = StateBlocked
		rec.Reason = result.Reason
		rec.Blockers = append([]string{result.Reason}, result.Suggestions...)
		return rec, nil
	}

	rec.State = StateReady
	rec.Recommended = targetCanonical
	rec.Advisory = result.Advisory
	return rec, nil
}

// FlowPath projects the active flow for rendering. No store access.
func (s *Service) FlowPath(containerType entity.ContainerType, tags []string, current string) Path {
	selection := s.resolver.ActiveFlow(containerType, tags)
	path := Path{
		FlowName:    selection.Name,
		Sequence:    selection.Sequence,
		MatchedTags: selection.MatchedTags,
	}
	if current == "" {
		return path
	}
	canonical := config.CanonicalStatus(current)
	path.Current = canonical
	path.Terminal = s.resolver.IsTerminal(containerType, canonical)
	if position := flow.Position(selection.Sequence, canonical); position >= 0 {
		path.Position = &position
	}
	return path
}
