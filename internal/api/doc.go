// Package api defines the contracts shared between the orchestration core and
// the transport layer: the tool-provider interface, the response envelope, and
// the typed error taxonomy.
//
// # Tool Providers
//
// Tool packages implement ToolProvider; the MCP server adapts every provided
// tool into a transport handler:
//
//  1. **ToolMetadata** - Name, description, and argument schema for each tool
//
//  2. **ExecuteTool** - Name-dispatched execution returning a CallToolResult
//
// Providers are constructed with their collaborators (store, services)
// injected; the api package itself holds no registry and imports no other
// internal package, which keeps the dependency graph acyclic.
//
// # Response Envelope
//
// Every tool response is one Envelope serialized as JSON text content:
//
//	{success, message, data, error: {code, details}, metadata: {timestamp, version}}
//
// Error codes are stable strings (VALIDATION_ERROR, RESOURCE_NOT_FOUND,
// PREREQUISITE_NOT_MET, CYCLE_DETECTED, INTERNAL_ERROR). EnvelopeFromError is
// the single mapping from typed errors to codes; nothing else decides wire
// codes.
//
// # Error Taxonomy
//
// Typed errors model the failure kinds that cross package boundaries:
//
//   - **NotFoundError**: an entity id resolved to nothing
//   - **ValidationError**: malformed input, caught at the tool boundary only
//   - **PrerequisiteError**: a transition rejected by the validator, with
//     optional suggestions
//   - **CycleError**: a dependency write that would close a blocking cycle
//
// Each has a constructor and an errors.As-based IsX helper so callers branch
// on kinds without type assertions. Domain outcomes (validation results,
// progression recommendations, cascade records) are returned as plain tagged
// structs, not errors; only genuinely exceptional conditions travel the error
// path.
package api
