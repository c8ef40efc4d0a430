// Package tools implements the MCP tool surface of the orchestration
// server: container management, dependency management, progression and flow
// queries, the next-task recommender, and bulk work-tree creation.
//
// The package is a thin adapter. Input validation (argument presence, UUID
// shape, enum membership, limit bounds) happens here and nowhere deeper;
// everything else is delegated to the core services (validation,
// progression, cascade, dependency). Every handler returns the uniform
// response envelope serialized as the tool result's text content, with
// domain failures mapped to stable error codes by internal/api.
//
// Transaction boundaries live here too: set_status validates and persists
// in one transaction and runs the cascade engine in a second, so a cascade
// failure never rolls back the user's own status change. Work-tree creation
// is a single transaction; a cycle among its proposed dependencies rolls
// back every entity of the tree.
package tools
