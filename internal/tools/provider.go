package tools

import (
	"context"
	"fmt"

	"roster/internal/api"
	"roster/internal/config"
	"roster/internal/store"
	"roster/pkg/logging"
)

// ConfigSource yields the current workflow configuration. The application
// wires the config loader's Load here so tool calls observe edits to the
// workflow YAML without a restart; tests pass config.Default.
type ConfigSource func() *config.Config

// Provider implements api.ToolProvider for the orchestration tools. It is
// stateless between calls: each handler takes a fresh config snapshot and
// builds the core services it needs over the shared store, so a config
// reload between two calls never mixes flow definitions within one call.
type Provider struct {
	store  store.Store
	config ConfigSource
}

// New creates the tool provider. A nil config source falls back to the
// built-in default workflow.
func New(st store.Store, cfg ConfigSource) *Provider {
	if cfg == nil {
		cfg = config.Default
	}
	return &Provider{store: st, config: cfg}
}

// GetTools returns metadata for all orchestration tools. The descriptions
// are written for the AI assistant on the other end of the MCP session;
// they carry the enum values and defaults the assistant needs to call the
// tool without further discovery.
func (p *Provider) GetTools() []api.ToolMetadata {
	return []api.ToolMetadata{
		{
			Name: "manage_container",
			Description: "Create, read, update, or delete a project, feature, or task, " +
				"or change its status. Status changes are validated against the container's " +
				"workflow and may trigger automatic cascade advancement of parent containers.",
			Args: []api.ArgMetadata{
				{Name: "operation", Type: "string", Required: true, Description: "One of: create, get, update, set_status, delete"},
				{Name: "container_type", Type: "string", Required: true, Description: "One of: project, feature, task"},
				{Name: "id", Type: "string", Required: false, Description: "Container id (required for get, update, set_status, delete)"},
				{Name: "name", Type: "string", Required: false, Description: "Project or feature name (create/update)"},
				{Name: "title", Type: "string", Required: false, Description: "Task title (create/update)"},
				{Name: "summary", Type: "string", Required: false, Description: "Free-text summary. Completing a task requires a 300-500 character summary, supplied here or stored beforehand"},
				{Name: "description", Type: "string", Required: false, Description: "Longer description (feature/task)"},
				{Name: "status", Type: "string", Required: false, Description: "Target status for set_status; optional initial status for create (defaults to the first status of the active flow)"},
				{Name: "priority", Type: "string", Required: false, Description: "HIGH, MEDIUM, or LOW (default MEDIUM)"},
				{Name: "complexity", Type: "number", Required: false, Description: "Task complexity, 1-10"},
				{Name: "tags", Type: "array", Required: false, Description: "Tags; they also select the container's workflow via flow mappings"},
				{Name: "project_id", Type: "string", Required: false, Description: "Parent project id (feature create/update; empty string detaches)"},
				{Name: "feature_id", Type: "string", Required: false, Description: "Parent feature id (task create/update; empty string detaches)"},
				{Name: "requires_verification", Type: "boolean", Required: false, Description: "Feature flag: when true, only a manual set_status may complete the feature"},
			},
		},
		{
			Name: "query_container",
			Description: "Read projections over projects, features, and tasks: fetch one by id, " +
				"search by filters, or get a low-token overview of per-status counts.",
			Args: []api.ArgMetadata{
				{Name: "operation", Type: "string", Required: true, Description: "One of: get, search, overview"},
				{Name: "container_type", Type: "string", Required: true, Description: "One of: project, feature, task"},
				{Name: "id", Type: "string", Required: false, Description: "Container id (required for get)"},
				{Name: "name_contains", Type: "string", Required: false, Description: "Case-insensitive substring match on name/title (search)"},
				{Name: "statuses", Type: "array", Required: false, Description: "Keep only containers in one of these statuses (search)"},
				{Name: "tags", Type: "array", Required: false, Description: "Keep only containers carrying at least one of these tags (search)"},
				{Name: "priority", Type: "string", Required: false, Description: "Keep only containers with this priority (search; features and tasks)"},
				{Name: "project_id", Type: "string", Required: false, Description: "Scope to a project (features and tasks)"},
				{Name: "feature_id", Type: "string", Required: false, Description: "Scope to a feature (tasks)"},
			},
		},
		{
			Name: "manage_dependency",
			Description: "Create, delete, or list dependency edges between tasks. BLOCKS and " +
				"IS_BLOCKED_BY edges gate task startability; RELATES_TO is informational. " +
				"Creation rejects any edge that would close a blocking cycle.",
			Args: []api.ArgMetadata{
				{Name: "operation", Type: "string", Required: true, Description: "One of: create, delete, list"},
				{Name: "from", Type: "string", Required: false, Description: "Source task id (create/delete)"},
				{Name: "to", Type: "string", Required: false, Description: "Target task id (create/delete)"},
				{Name: "type", Type: "string", Required: false, Description: "BLOCKS, IS_BLOCKED_BY, or RELATES_TO (create/delete; default BLOCKS)"},
				{Name: "unblock_at", Type: "string", Required: false, Description: "Minimum role the blocker must reach to release the blocked task: queue, work, review, or terminal (default terminal)"},
				{Name: "id", Type: "string", Required: false, Description: "Dependency id (delete; alternative to from/to/type)"},
				{Name: "task_id", Type: "string", Required: false, Description: "Task whose edges to list (list)"},
				{Name: "direction", Type: "string", Required: false, Description: "incoming, outgoing, or both (list; default both)"},
			},
		},
		{
			Name: "query_dependencies",
			Description: "List the dependency edges touching a task, optionally resolving the " +
				"endpoint tasks' titles and statuses.",
			Args: []api.ArgMetadata{
				{Name: "task_id", Type: "string", Required: true, Description: "Task whose edges to return"},
				{Name: "direction", Type: "string", Required: false, Description: "incoming, outgoing, or both (default both)"},
				{Name: "include_task_info", Type: "boolean", Required: false, Description: "Attach id/title/status of both endpoint tasks to each edge (default false)", Default: false},
			},
		},
		{
			Name: "get_next_item",
			Description: "Recommend the next tasks to start: unstarted, unblocked tasks ordered " +
				"by priority, then complexity (easiest first), then creation order.",
			Args: []api.ArgMetadata{
				{Name: "project_id", Type: "string", Required: false, Description: "Limit candidates to one project"},
				{Name: "feature_id", Type: "string", Required: false, Description: "Limit candidates to one feature"},
				{Name: "limit", Type: "number", Required: false, Description: "How many tasks to return, 1-20 (default 1)", Default: 1},
				{Name: "detail", Type: "boolean", Required: false, Description: "Include summary, tags, and parent feature id per task (default false)", Default: false},
			},
		},
		{
			Name: "get_blocked",
			Description: "List tasks that cannot start because at least one blocking dependency " +
				"is unsatisfied, with the blockers that hold each one back.",
			Args: []api.ArgMetadata{
				{Name: "project_id", Type: "string", Required: false, Description: "Limit to one project"},
				{Name: "feature_id", Type: "string", Required: false, Description: "Limit to one feature"},
				{Name: "detail", Type: "boolean", Required: false, Description: "Include each blocker's unblock threshold and current role (default false)", Default: false},
			},
		},
		{
			Name: "get_progression",
			Description: "Recommend the next status for a container, or check the readiness of a " +
				"specific target status. Read-only: reports ready, blocked (with reasons), or terminal.",
			Args: []api.ArgMetadata{
				{Name: "entity_id", Type: "string", Required: false, Description: "Container id; when given, status and tags are read from the store"},
				{Name: "container_type", Type: "string", Required: true, Description: "One of: project, feature, task"},
				{Name: "tags", Type: "array", Required: false, Description: "Tags for hypothetical queries without an entity_id"},
				{Name: "current_status", Type: "string", Required: false, Description: "Current status for hypothetical queries (required without entity_id)"},
				{Name: "target_status", Type: "string", Required: false, Description: "Check readiness of this status instead of recommending the next one"},
			},
		},
		{
			Name: "get_flow_path",
			Description: "Project the active workflow for a container type and tag set: the flow " +
				"name, its status sequence, and where a given status sits in it.",
			Args: []api.ArgMetadata{
				{Name: "container_type", Type: "string", Required: true, Description: "One of: project, feature, task"},
				{Name: "tags", Type: "array", Required: false, Description: "Tags that select the flow via flow mappings"},
				{Name: "current_status", Type: "string", Required: false, Description: "Mark this status's position in the flow"},
			},
		},
		{
			Name: "create_work_tree",
			Description: "Atomically create a project, a feature, tasks, and the dependencies " +
				"between them in one call. Dependencies may reference tasks from the same call " +
				"by ref or title. If any part fails (including a dependency cycle), nothing is created.",
			Args: []api.ArgMetadata{
				{Name: "project", Type: "object", Required: false, Description: "Project to create: {name, summary?, status?, tags?}"},
				{Name: "feature", Type: "object", Required: false, Description: "Feature to create: {name, summary?, description?, status?, priority?, tags?, requires_verification?, project_id?}. Defaults to the project created in this call"},
				{Name: "tasks", Type: "array", Required: false, Description: "Tasks to create: [{title, ref?, summary?, description?, status?, priority?, complexity?, tags?, feature_id?}]. Default parent is the feature created in this call"},
				{Name: "dependencies", Type: "array", Required: false, Description: "Edges to create: [{from, to, type?, unblock_at?}]. from/to are a task ref or title from this call, or an existing task id"},
			},
		},
	}
}

// ExecuteTool dispatches a tool call by name. Unknown names are a transport
// error (the server never routes them here); everything else comes back as
// an envelope, including domain failures.
func (p *Provider) ExecuteTool(ctx context.Context, toolName string, args map[string]interface{}) (*api.CallToolResult, error) {
	logging.Debug("Tools", "Executing %s", toolName)

	switch toolName {
	case "manage_container":
		return p.handleManageContainer(ctx, args)
	case "query_container":
		return p.handleQueryContainer(ctx, args)
	case "manage_dependency":
		return p.handleManageDependency(ctx, args)
	case "query_dependencies":
		return p.handleQueryDependencies(ctx, args)
	case "get_next_item":
		return p.handleGetNextItem(ctx, args)
	case "get_blocked":
		return p.handleGetBlocked(ctx, args)
	case "get_progression":
		return p.handleGetProgression(ctx, args)
	case "get_flow_path":
		return p.handleGetFlowPath(ctx, args)
	case "create_work_tree":
		return p.handleCreateWorkTree(ctx, args)
	default:
		return nil, fmt.Errorf("unknown tool: %s", toolName)
	}
}

// successResult wraps a payload in a success envelope.
func successResult(message string, data interface{}) *api.CallToolResult {
	return api.NewSuccessEnvelope(message, data).ToCallToolResult()
}

// errorResult maps a typed error to a failure envelope.
func errorResult(err error) *api.CallToolResult {
	return api.EnvelopeFromError(err).ToCallToolResult()
}
