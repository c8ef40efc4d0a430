package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roster/internal/server"
)

func TestConfigNormalize(t *testing.T) {
	cfg := &Config{}
	cfg.normalize()

	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 8090, cfg.Port)
	assert.Equal(t, server.TransportStreamableHTTP, cfg.Transport)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestConfigNormalizeKeepsExplicitValues(t *testing.T) {
	cfg := &Config{Host: "0.0.0.0", Port: 9000, Transport: server.TransportSSE, Store: StoreSQLite}
	cfg.normalize()

	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, server.TransportSSE, cfg.Transport)
	assert.Equal(t, StoreSQLite, cfg.Store)
}

func TestNewApplicationMemoryStore(t *testing.T) {
	app, err := NewApplication(&Config{
		ConfigDir: t.TempDir(),
		Silent:    true,
	})
	require.NoError(t, err)
	require.NotNil(t, app)
	assert.Equal(t, "http://localhost:8090/mcp", app.Endpoint())
}

func TestNewApplicationSQLiteStore(t *testing.T) {
	dir := t.TempDir()
	app, err := NewApplication(&Config{
		ConfigDir: dir,
		Store:     StoreSQLite,
		DBPath:    filepath.Join(dir, "test.db"),
		Silent:    true,
	})
	require.NoError(t, err)
	require.NotNil(t, app)
}

func TestNewApplicationUnknownStore(t *testing.T) {
	_, err := NewApplication(&Config{
		ConfigDir: t.TempDir(),
		Store:     "postgres",
		Silent:    true,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store backend")
}

func TestRunStopsOnContextCancel(t *testing.T) {
	// Stdio binds no port, so the test cannot collide with anything.
	app, err := NewApplication(&Config{
		ConfigDir: t.TempDir(),
		Transport: server.TransportStdio,
		Silent:    true,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	// Give the transport a moment to come up, then cancel.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}
