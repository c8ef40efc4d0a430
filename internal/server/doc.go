// Package server exposes the roster tool surface over the Model Context
// Protocol. It owns the MCP server instance, registers every tool a
// provider advertises, and runs the configured transport (stdio, SSE, or
// streamable-http) until stopped.
package server
