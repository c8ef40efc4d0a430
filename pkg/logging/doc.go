// Package logging provides a structured logging system for roster with unified
// log handling and flexible output formatting.
//
// This package implements a logging system built on Go's standard slog package,
// providing consistent logging behavior with structured output and level filtering.
//
// # Architecture
//
// The logging system is built around these core concepts:
//
// ## Log Levels
//   - **Debug**: Detailed information for debugging and development
//   - **Info**: General informational messages about application operation
//   - **Warn**: Warning messages that indicate potential issues
//   - **Error**: Error messages for failures and exceptional conditions
//
// ## Structured Logging
// All log entries include:
//   - Timestamp with nanosecond precision
//   - Log level (Debug, Info, Warn, Error)
//   - Subsystem identifier for categorization
//   - Message content with optional formatting
//   - Optional error information
//
// # Usage Examples
//
// ## Initialization
//
//	import "roster/pkg/logging"
//
//	// Initialize with Info level text logging to stderr
//	logging.Init(logging.LevelInfo, logging.FormatText, os.Stderr)
//
//	// Log messages
//	logging.Info("App", "Application starting up")
//	logging.Debug("Config", "Loaded workflow config from %s", configDir)
//	logging.Warn("Cascade", "Cascade depth cap reached for %s", entityID)
//	logging.Error("Store", err, "Failed to open database")
//
// ## JSON Output
//
//	// Server mode with machine-readable output
//	logging.Init(logging.LevelDebug, logging.FormatJSON, os.Stderr)
//
// # Subsystem Organization
//
// Logs are organized by subsystem to enable filtering and categorization:
//
//   - **App**: Application initialization and startup
//   - **Config**: Workflow configuration loading and caching
//   - **Store**: Entity persistence operations
//   - **Validation**: Transition prerequisite checks
//   - **Cascade**: Cross-entity status propagation
//   - **Dependency**: Blocked-set and recommendation queries
//   - **Server**: MCP server and transport lifecycle
//   - **Client**: MCP client operations from CLI commands
//
// # Integration with slog
//
// The logging system integrates with Go's standard slog package:
//   - Uses slog.Handler implementations for output formatting
//   - Converts custom LogLevel to slog.Level for compatibility
//   - Registers its logger as the slog default for stray slog calls
//
// # Thread Safety
//
// The logging system is fully thread-safe:
//   - Safe concurrent logging from multiple goroutines
//   - Level filtering happens at the handler before formatting
//   - No data races in configuration
package logging
