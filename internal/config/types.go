package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultMaxDepth bounds cascade recursion when the YAML does not set
	// auto_cascade.max_depth.
	DefaultMaxDepth = 10

	// DefaultFlowName is the flow used when no flow mapping matches an
	// entity's tags.
	DefaultFlowName = "default_flow"
)

// Config is the in-memory projection of the workflow YAML. Loaded configs
// are shared between callers and must be treated as read-only.
type Config struct {
	AutoCascade       AutoCascade       `yaml:"auto_cascade"`
	StatusProgression StatusProgression `yaml:"status_progression"`
}

// AutoCascade toggles the automatic parent/child status propagation.
type AutoCascade struct {
	Enabled           bool              `yaml:"enabled"`
	MaxDepth          int               `yaml:"max_depth"`
	StartCascade      StartCascade      `yaml:"start_cascade"`
	CompletionCleanup CompletionCleanup `yaml:"completion_cleanup"`
}

// StartCascade gates the first_child_started event separately from the
// completion-driven cascades.
type StartCascade struct {
	Enabled bool `yaml:"enabled"`
}

// CompletionCleanup gates the deletion of untouched open tasks when their
// feature reaches a terminal status.
type CompletionCleanup struct {
	Enabled bool `yaml:"enabled"`
}

// StatusProgression holds one flow section per container type.
type StatusProgression struct {
	Tasks    ContainerFlows `yaml:"tasks"`
	Features ContainerFlows `yaml:"features"`
	Projects ContainerFlows `yaml:"projects"`
}

// FlowMapping routes entities carrying one of Tags to the named flow.
type FlowMapping struct {
	Tags []string `yaml:"tags"`
	Flow string   `yaml:"flow"`
}

// ContainerFlows is the per-container-type flow section. Alternate flows
// appear in the YAML as sibling keys next to the reserved ones, so the type
// carries a custom unmarshaller. A section present in a user config replaces
// the embedded default for that container type wholesale.
type ContainerFlows struct {
	// DefaultFlow is the ordered status sequence used when no mapping
	// matches.
	DefaultFlow []string
	// Flows holds the named alternate flows.
	Flows map[string][]string
	// FlowMappings routes tags to alternate flows, first match wins.
	FlowMappings []FlowMapping
	// TerminalStatuses are terminal for the container type regardless of
	// which flow references them.
	TerminalStatuses []string
	// EmergencyTransitions may be entered from any status, including
	// terminal ones.
	EmergencyTransitions []string
	// Roles overrides the derived role for individual statuses.
	Roles map[string]string
	// AllowBackward lists flows in which backward transitions are allowed.
	AllowBackward []string
}

// reserved section keys; everything else is an alternate flow definition.
const (
	keyDefaultFlow          = "default_flow"
	keyFlowMappings         = "flow_mappings"
	keyTerminalStatuses     = "terminal_statuses"
	keyEmergencyTransitions = "emergency_transitions"
	keyRoles                = "roles"
	keyAllowBackward        = "allow_backward"
)

// UnmarshalYAML decodes a flow section. Reserved keys fill the struct
// fields; any other key must map to a status list and becomes a named flow.
func (c *ContainerFlows) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("status progression section must be a mapping")
	}
	*c = ContainerFlows{Flows: make(map[string][]string)}
	for i := 0; i+1 < len(value.Content); i += 2 {
		keyNode := value.Content[i]
		valNode := value.Content[i+1]
		switch keyNode.Value {
		case keyDefaultFlow:
			if err := valNode.Decode(&c.DefaultFlow); err != nil {
				return fmt.Errorf("%s must be a list of statuses: %w", keyDefaultFlow, err)
			}
		case keyFlowMappings:
			if err := valNode.Decode(&c.FlowMappings); err != nil {
				return fmt.Errorf("%s must be a list of {tags, flow} entries: %w", keyFlowMappings, err)
			}
		case keyTerminalStatuses:
			if err := valNode.Decode(&c.TerminalStatuses); err != nil {
				return fmt.Errorf("%s must be a list of statuses: %w", keyTerminalStatuses, err)
			}
		case keyEmergencyTransitions:
			if err := valNode.Decode(&c.EmergencyTransitions); err != nil {
				return fmt.Errorf("%s must be a list of statuses: %w", keyEmergencyTransitions, err)
			}
		case keyRoles:
			if err := valNode.Decode(&c.Roles); err != nil {
				return fmt.Errorf("%s must map statuses to roles: %w", keyRoles, err)
			}
		case keyAllowBackward:
			if err := valNode.Decode(&c.AllowBackward); err != nil {
				return fmt.Errorf("%s must be a list of flow names: %w", keyAllowBackward, err)
			}
		default:
			var statuses []string
			if err := valNode.Decode(&statuses); err != nil {
				return fmt.Errorf("flow %q must be a list of statuses: %w", keyNode.Value, err)
			}
			c.Flows[keyNode.Value] = statuses
		}
	}
	return nil
}

// Progression returns the flow section for a container type name. Singular
// and plural spellings are accepted.
func (c *Config) Progression(containerType string) ContainerFlows {
	switch strings.TrimSuffix(strings.ToLower(containerType), "s") {
	case "project":
		return c.StatusProgression.Projects
	case "feature":
		return c.StatusProgression.Features
	default:
		return c.StatusProgression.Tasks
	}
}

// Flow returns the named flow, resolving DefaultFlowName to the default
// sequence.
func (c ContainerFlows) Flow(name string) ([]string, bool) {
	if name == DefaultFlowName {
		return c.DefaultFlow, true
	}
	statuses, ok := c.Flows[name]
	return statuses, ok
}

// BackwardAllowed reports whether the named flow opted in to backward
// transitions.
func (c ContainerFlows) BackwardAllowed(flowName string) bool {
	for _, name := range c.AllowBackward {
		if name == flowName {
			return true
		}
	}
	return false
}

// Clone deep-copies the config. User files unmarshal over a clone of the
// embedded default so absent sections inherit it without aliasing its
// slices.
func (c *Config) Clone() *Config {
	out := &Config{AutoCascade: c.AutoCascade}
	out.StatusProgression.Tasks = c.StatusProgression.Tasks.clone()
	out.StatusProgression.Features = c.StatusProgression.Features.clone()
	out.StatusProgression.Projects = c.StatusProgression.Projects.clone()
	return out
}

func (c ContainerFlows) clone() ContainerFlows {
	out := ContainerFlows{
		DefaultFlow:          append([]string(nil), c.DefaultFlow...),
		TerminalStatuses:     append([]string(nil), c.TerminalStatuses...),
		EmergencyTransitions: append([]string(nil), c.EmergencyTransitions...),
		AllowBackward:        append([]string(nil), c.AllowBackward...),
	}
	if c.Flows != nil {
		out.Flows = make(map[string][]string, len(c.Flows))
		for name, statuses := range c.Flows {
			out.Flows[name] = append([]string(nil), statuses...)
		}
	}
	if c.FlowMappings != nil {
		out.FlowMappings = make([]FlowMapping, len(c.FlowMappings))
		for i, mapping := range c.FlowMappings {
			out.FlowMappings[i] = FlowMapping{
				Tags: append([]string(nil), mapping.Tags...),
				Flow: mapping.Flow,
			}
		}
	}
	if c.Roles != nil {
		out.Roles = make(map[string]string, len(c.Roles))
		for status, role := range c.Roles {
			out.Roles[status] = role
		}
	}
	return out
}

// CanonicalStatus lowercases a status and folds underscores to hyphens.
// Every status comparison in the progression engine happens on canonical
// strings.
func CanonicalStatus(status string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(status)), "_", "-")
}

// normalize rewrites every status, tag, and role reference into canonical
// form. Flow names are YAML keys, not statuses, and stay as written.
func (c *Config) normalize() {
	if c.AutoCascade.MaxDepth <= 0 {
		c.AutoCascade.MaxDepth = DefaultMaxDepth
	}
	for _, section := range []*ContainerFlows{
		&c.StatusProgression.Tasks,
		&c.StatusProgression.Features,
		&c.StatusProgression.Projects,
	} {
		section.normalize()
	}
}

func (c *ContainerFlows) normalize() {
	canonicalAll(c.DefaultFlow)
	for _, statuses := range c.Flows {
		canonicalAll(statuses)
	}
	canonicalAll(c.TerminalStatuses)
	canonicalAll(c.EmergencyTransitions)
	for i := range c.FlowMappings {
		for j, tag := range c.FlowMappings[i].Tags {
			c.FlowMappings[i].Tags[j] = strings.ToLower(strings.TrimSpace(tag))
		}
	}
	if len(c.Roles) > 0 {
		roles := make(map[string]string, len(c.Roles))
		for status, role := range c.Roles {
			roles[CanonicalStatus(status)] = strings.ToLower(strings.TrimSpace(role))
		}
		c.Roles = roles
	}
}

func canonicalAll(statuses []string) {
	for i, s := range statuses {
		statuses[i] = CanonicalStatus(s)
	}
}

// Validate enforces the mandatory floor: non-empty default flows and no
// dangling flow references. A config that fails here is discarded in favor
// of the embedded default.
func (c *Config) Validate() error {
	sections := []struct {
		name    string
		section ContainerFlows
	}{
		{"tasks", c.StatusProgression.Tasks},
		{"features", c.StatusProgression.Features},
		{"projects", c.StatusProgression.Projects},
	}
	for _, entry := range sections {
		name, section := entry.name, entry.section
		if len(section.DefaultFlow) == 0 {
			return fmt.Errorf("status_progression.%s.default_flow must not be empty", name)
		}
		for _, mapping := range section.FlowMappings {
			if _, ok := section.Flow(mapping.Flow); !ok {
				return fmt.Errorf("status_progression.%s: flow mapping references unknown flow %q", name, mapping.Flow)
			}
			if len(mapping.Tags) == 0 {
				return fmt.Errorf("status_progression.%s: flow mapping for %q has no tags", name, mapping.Flow)
			}
		}
		for _, flowName := range section.AllowBackward {
			if _, ok := section.Flow(flowName); !ok {
				return fmt.Errorf("status_progression.%s: allow_backward references unknown flow %q", name, flowName)
			}
		}
		for status, role := range section.Roles {
			switch role {
			case "queue", "work", "review", "blocked", "terminal":
			default:
				return fmt.Errorf("status_progression.%s: status %q maps to unknown role %q", name, status, role)
			}
		}
	}
	return nil
}
