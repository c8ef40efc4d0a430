package api

import (
	"context"
)

// CallToolResult represents the result of a tool call as handed to the
// transport layer.
type CallToolResult struct {
	Content []interface{} `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

// ToolMetadata describes a tool that can be exposed over the MCP transport.
type ToolMetadata struct {
	Name        string // e.g., "manage_container", "get_next_item"
	Description string
	Args        []ArgMetadata
}

// ArgMetadata describes a tool argument.
type ArgMetadata struct {
	Name        string
	Type        string // "string", "number", "boolean", "array", "object"
	Required    bool
	Description string
	Default     interface{}
}

// ToolProvider is implemented by the tool packages. The server adapts each
// provided tool into an MCP tool handler.
type ToolProvider interface {
	// GetTools returns all tools this provider offers.
	GetTools() []ToolMetadata

	// ExecuteTool executes a tool by name.
	ExecuteTool(ctx context.Context, toolName string, args map[string]interface{}) (*CallToolResult, error)
}
