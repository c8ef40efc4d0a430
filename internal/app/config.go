package app

import (
	"roster/internal/server"
)

// Store backends selectable via --store.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Config holds the process configuration assembled from CLI flags.
type Config struct {
	// ConfigDir is the directory holding workflow.yaml. Empty means the
	// user default (~/.config/roster).
	ConfigDir string

	// WatchConfig reloads the workflow config when the file changes.
	WatchConfig bool

	// Host, Port, and Transport describe the MCP endpoint.
	Host      string
	Port      int
	Transport string

	// Store selects the backend; DBPath overrides the sqlite file location.
	Store  string
	DBPath string

	Debug     bool
	Silent    bool
	LogFormat string

	Version string
}

// normalize fills the zero-value fields with defaults.
func (c *Config) normalize() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 8090
	}
	if c.Transport == "" {
		c.Transport = server.TransportStreamableHTTP
	}
	if c.Store == "" {
		c.Store = StoreMemory
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
}
