// Package app bootstraps the roster server: it initializes logging, wires
// the workflow config loader, the entity store, and the tool provider, and
// runs the MCP server until the process is signaled to stop.
package app
