package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"roster/internal/api"
	"roster/internal/config"
	"roster/internal/server"
	"roster/internal/store"
	"roster/internal/store/memory"
	"roster/internal/store/sqlite"
	"roster/internal/tools"
	"roster/pkg/logging"
)

// Application is a fully wired roster server process.
type Application struct {
	config *Config
	loader *config.Loader
	store  store.Store
	server *server.Server
}

// NewApplication bootstraps the application: logging, config loader, store,
// tool provider, server. It does not start anything.
func NewApplication(cfg *Config) (*Application, error) {
	cfg.normalize()

	appLogLevel := logging.LevelInfo
	if cfg.Debug {
		appLogLevel = logging.LevelDebug
	}
	var logOutput io.Writer = os.Stdout
	if cfg.Transport == server.TransportStdio {
		// Stdout carries the MCP wire on stdio; logs go to stderr.
		logOutput = os.Stderr
	}
	if cfg.Silent {
		logOutput = io.Discard
	}
	logging.Init(appLogLevel, cfg.LogFormat, logOutput)
	api.SetEnvelopeVersion(cfg.Version)

	configDir := cfg.ConfigDir
	if configDir == "" {
		configDir = config.GetDefaultConfigPathOrPanic()
	}
	loader := config.NewLoader(configDir)
	logging.Info("App", "Workflow configuration from %s", configDir)

	st, err := openStore(cfg, configDir)
	if err != nil {
		logging.Error("App", err, "Failed to open %s store", cfg.Store)
		return nil, err
	}

	provider := tools.New(st, loader.Load)

	srv := server.New(server.Config{
		Host:      cfg.Host,
		Port:      cfg.Port,
		Transport: cfg.Transport,
		Version:   cfg.Version,
	}, provider)

	return &Application{
		config: cfg,
		loader: loader,
		store:  st,
		server: srv,
	}, nil
}

// openStore constructs the configured store backend.
func openStore(cfg *Config, configDir string) (store.Store, error) {
	switch cfg.Store {
	case StoreMemory:
		return memory.New(), nil
	case StoreSQLite:
		path := cfg.DBPath
		if path == "" {
			path = filepath.Join(configDir, "roster.db")
		}
		logging.Info("App", "SQLite database at %s", path)
		return sqlite.Open(path)
	default:
		return nil, fmt.Errorf("unknown store backend %q (want %s or %s)", cfg.Store, StoreMemory, StoreSQLite)
	}
}

// Endpoint returns the URL clients should use to reach the server.
func (a *Application) Endpoint() string {
	return a.server.Endpoint()
}

// Run starts the server and blocks until the context is canceled or the
// process receives SIGINT or SIGTERM, then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.config.WatchConfig {
		go func() {
			if err := a.loader.Watch(runCtx); err != nil {
				logging.Warn("App", "Config watcher stopped: %v", err)
			}
		}()
	}

	if err := a.server.Start(runCtx); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	logging.Info("App", "Serving on %s", a.server.Endpoint())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-runCtx.Done():
	case sig := <-sigChan:
		logging.Info("App", "Received %s, shutting down", sig)
	}

	return a.server.Stop(context.Background())
}
