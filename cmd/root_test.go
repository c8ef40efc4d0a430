package cmd

import (
	"testing"

	"github.com/spf13/cobra"
)

func TestSetVersion(t *testing.T) {
	originalVersion := rootCmd.Version
	defer func() { rootCmd.Version = originalVersion }()

	SetVersion("1.2.3-test")

	if rootCmd.Version != "1.2.3-test" {
		t.Errorf("Expected version to be 1.2.3-test, got %s", rootCmd.Version)
	}
	if GetVersion() != "1.2.3-test" {
		t.Errorf("Expected GetVersion to return 1.2.3-test, got %s", GetVersion())
	}
}

func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "roster" {
		t.Errorf("Expected Use to be 'roster', got %s", rootCmd.Use)
	}
	if rootCmd.Short == "" {
		t.Error("Expected Short description to be set")
	}
	if rootCmd.Long == "" {
		t.Error("Expected Long description to be set")
	}
	if !rootCmd.SilenceUsage {
		t.Error("Expected SilenceUsage to be true")
	}
}

func TestSubcommandsRegistered(t *testing.T) {
	expected := map[string]bool{
		"serve":   false,
		"flows":   false,
		"next":    false,
		"blocked": false,
		"version": false,
	}
	for _, sub := range rootCmd.Commands() {
		if _, ok := expected[sub.Name()]; ok {
			expected[sub.Name()] = true
		}
	}
	for name, found := range expected {
		if !found {
			t.Errorf("Expected subcommand %q to be registered", name)
		}
	}
}

func TestServeCommandFlags(t *testing.T) {
	flags := []struct {
		name string
		def  string
	}{
		{"config-path", ""},
		{"host", "localhost"},
		{"port", "8090"},
		{"transport", "streamable-http"},
		{"store", "memory"},
		{"db-path", ""},
		{"log-format", "text"},
	}
	for _, f := range flags {
		flag := serveCmd.Flags().Lookup(f.name)
		if flag == nil {
			t.Errorf("Expected serve flag %q to exist", f.name)
			continue
		}
		if flag.DefValue != f.def {
			t.Errorf("Expected serve flag %q default %q, got %q", f.name, f.def, flag.DefValue)
		}
	}
}

func TestQueryCommandFlags(t *testing.T) {
	for _, tc := range []struct {
		target *cobra.Command
		flags  []string
	}{
		{nextCmd, []string{"endpoint", "transport", "project", "feature", "limit", "detail", "output", "quiet"}},
		{blockedCmd, []string{"endpoint", "transport", "project", "feature", "detail", "output", "quiet"}},
		{flowsCmd, []string{"config-path", "type", "tags", "current", "output", "quiet"}},
	} {
		for _, name := range tc.flags {
			if tc.target.Flags().Lookup(name) == nil {
				t.Errorf("Expected %s flag %q to exist", tc.target.Name(), name)
			}
		}
	}
}
