package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "embed"

	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"roster/pkg/logging"
)

//go:embed default_workflow.yaml
var defaultWorkflowYAML []byte

const (
	userConfigDir    = ".config/roster"
	workflowFileName = "workflow.yaml"

	// DefaultCacheTTL is how long a loaded config is served before the
	// loader re-reads the directory.
	DefaultCacheTTL = 60 * time.Second
)

// GetDefaultConfigPathOrPanic returns ~/.config/roster.
func GetDefaultConfigPathOrPanic() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		panic(fmt.Errorf("could not determine user config directory: %w", err))
	}
	return filepath.Join(homeDir, userConfigDir)
}

var (
	defaultOnce   sync.Once
	defaultConfig *Config
)

// Default returns the embedded default configuration. The result is shared;
// treat it as read-only.
func Default() *Config {
	defaultOnce.Do(func() {
		var cfg Config
		if err := yaml.Unmarshal(defaultWorkflowYAML, &cfg); err != nil {
			panic(fmt.Errorf("embedded default workflow config is malformed: %w", err))
		}
		cfg.normalize()
		if err := cfg.Validate(); err != nil {
			panic(fmt.Errorf("embedded default workflow config is invalid: %w", err))
		}
		defaultConfig = &cfg
	})
	return defaultConfig
}

// Loader reads workflow.yaml from a directory, caches the parsed result for
// a TTL, and falls back to the embedded default whenever the file is absent
// or unusable. Load never fails.
type Loader struct {
	dir string
	ttl time.Duration
	now func() time.Time

	group singleflight.Group

	mu     sync.Mutex
	cached *Config
	expiry time.Time
}

// NewLoader creates a loader for the given config directory.
func NewLoader(dir string) *Loader {
	return &Loader{
		dir: dir,
		ttl: DefaultCacheTTL,
		now: time.Now,
	}
}

// Dir returns the directory this loader reads from.
func (l *Loader) Dir() string {
	return l.dir
}

// Load returns the current configuration. Concurrent cache misses collapse
// into a single disk read.
func (l *Loader) Load() *Config {
	l.mu.Lock()
	if l.cached != nil && l.now().Before(l.expiry) {
		cfg := l.cached
		l.mu.Unlock()
		return cfg
	}
	l.mu.Unlock()

	result, _, _ := l.group.Do(l.dir, func() (interface{}, error) {
		cfg := l.loadFromDisk()
		l.mu.Lock()
		l.cached = cfg
		l.expiry = l.now().Add(l.ttl)
		l.mu.Unlock()
		return cfg, nil
	})
	return result.(*Config)
}

func (l *Loader) loadFromDisk() *Config {
	path := filepath.Join(l.dir, workflowFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Debug("Config", "No %s at %s, using embedded defaults", workflowFileName, l.dir)
		} else {
			logging.Warn("Config", "Could not read %s, using embedded defaults: %v", path, err)
		}
		return Default()
	}
	cfg := Default().Clone()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		logging.Error("Config", err, "Malformed workflow config at %s, using embedded defaults", path)
		return Default()
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		logging.Error("Config", err, "Invalid workflow config at %s, using embedded defaults", path)
		return Default()
	}
	logging.Info("Config", "Loaded workflow configuration from %s", path)
	return cfg
}

// Reload drops the cached config so the next Load re-reads the directory.
func (l *Loader) Reload() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cached = nil
	l.expiry = time.Time{}
}
