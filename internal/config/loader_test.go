package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeWorkflow(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, workflowFileName), []byte(content), 0644))
}

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	assert.True(t, cfg.AutoCascade.Enabled)
	assert.Equal(t, DefaultMaxDepth, cfg.AutoCascade.MaxDepth)
	assert.True(t, cfg.AutoCascade.StartCascade.Enabled)
	assert.True(t, cfg.AutoCascade.CompletionCleanup.Enabled)

	tasks := cfg.StatusProgression.Tasks
	assert.Equal(t, []string{"pending", "in-progress", "testing", "completed"}, tasks.DefaultFlow)
	assert.Contains(t, tasks.Flows, "bug_fix_flow")
	assert.Contains(t, tasks.Flows, "rapid_prototype_flow")
	assert.Equal(t, []string{"completed", "cancelled"}, tasks.TerminalStatuses)
	assert.Equal(t, "blocked", tasks.Roles["on-hold"])

	features := cfg.StatusProgression.Features
	assert.Contains(t, features.Flows, "with_review_flow")
	assert.Equal(t, []string{"completed", "cancelled", "archived"}, features.TerminalStatuses)

	projects := cfg.StatusProgression.Projects
	assert.Equal(t, []string{"planning", "in-progress", "completed"}, projects.DefaultFlow)
	assert.Empty(t, projects.FlowMappings)
}

func TestLoadMissingFileFallsBack(t *testing.T) {
	l := NewLoader(t.TempDir())
	cfg := l.Load()
	assert.Equal(t, Default().StatusProgression.Tasks.DefaultFlow, cfg.StatusProgression.Tasks.DefaultFlow)
}

func TestLoadUserConfigOverridesSection(t *testing.T) {
	dir := t.TempDir()
	writeWorkflow(t, dir, `
status_progression:
  tasks:
    default_flow: [todo, doing, done]
    terminal_statuses: [done]
`)
	cfg := NewLoader(dir).Load()

	assert.Equal(t, []string{"todo", "doing", "done"}, cfg.StatusProgression.Tasks.DefaultFlow)
	assert.Equal(t, []string{"done"}, cfg.StatusProgression.Tasks.TerminalStatuses)
	// A present section replaces the default wholesale.
	assert.Empty(t, cfg.StatusProgression.Tasks.Flows)
	// Untouched sections keep their embedded defaults.
	assert.Equal(t, Default().StatusProgression.Features.DefaultFlow, cfg.StatusProgression.Features.DefaultFlow)
	assert.True(t, cfg.AutoCascade.Enabled)
}

func TestLoadNormalizesStatuses(t *testing.T) {
	dir := t.TempDir()
	writeWorkflow(t, dir, `
status_progression:
  tasks:
    default_flow: [Pending, In_Progress, COMPLETED]
    terminal_statuses: [Completed]
`)
	cfg := NewLoader(dir).Load()
	assert.Equal(t, []string{"pending", "in-progress", "completed"}, cfg.StatusProgression.Tasks.DefaultFlow)
	assert.Equal(t, []string{"completed"}, cfg.StatusProgression.Tasks.TerminalStatuses)
}

func TestMalformedConfigFallsBack(t *testing.T) {
	dir := t.TempDir()
	writeWorkflow(t, dir, "status_progression: [this is not a mapping")
	cfg := NewLoader(dir).Load()
	assert.Equal(t, Default().StatusProgression.Tasks.DefaultFlow, cfg.StatusProgression.Tasks.DefaultFlow)
}

func TestDanglingFlowReferenceFallsBack(t *testing.T) {
	dir := t.TempDir()
	writeWorkflow(t, dir, `
status_progression:
  tasks:
    default_flow: [pending, completed]
    flow_mappings:
      - tags: [bug]
        flow: no_such_flow
`)
	cfg := NewLoader(dir).Load()
	assert.Equal(t, Default().StatusProgression.Tasks.DefaultFlow, cfg.StatusProgression.Tasks.DefaultFlow)
}

func TestCacheHonorsTTL(t *testing.T) {
	dir := t.TempDir()
	writeWorkflow(t, dir, `
status_progression:
  tasks:
    default_flow: [first]
`)
	current := time.Now()
	l := NewLoader(dir)
	l.now = func() time.Time { return current }

	assert.Equal(t, []string{"first"}, l.Load().StatusProgression.Tasks.DefaultFlow)

	writeWorkflow(t, dir, `
status_progression:
  tasks:
    default_flow: [second]
`)
	// Within the TTL the cached config is served.
	current = current.Add(30 * time.Second)
	assert.Equal(t, []string{"first"}, l.Load().StatusProgression.Tasks.DefaultFlow)

	current = current.Add(31 * time.Second)
	assert.Equal(t, []string{"second"}, l.Load().StatusProgression.Tasks.DefaultFlow)
}

func TestReloadForcesReread(t *testing.T) {
	dir := t.TempDir()
	writeWorkflow(t, dir, `
status_progression:
  tasks:
    default_flow: [first]
`)
	l := NewLoader(dir)
	assert.Equal(t, []string{"first"}, l.Load().StatusProgression.Tasks.DefaultFlow)

	writeWorkflow(t, dir, `
status_progression:
  tasks:
    default_flow: [second]
`)
	l.Reload()
	assert.Equal(t, []string{"second"}, l.Load().StatusProgression.Tasks.DefaultFlow)
}

func TestSiblingFlowKeys(t *testing.T) {
	dir := t.TempDir()
	writeWorkflow(t, dir, `
status_progression:
  tasks:
    default_flow: [pending, completed]
    fast_lane: [pending, shipped]
    flow_mappings:
      - tags: [urgent]
        flow: fast_lane
`)
	cfg := NewLoader(dir).Load()
	tasks := cfg.StatusProgression.Tasks

	statuses, ok := tasks.Flow("fast_lane")
	require.True(t, ok)
	assert.Equal(t, []string{"pending", "shipped"}, statuses)

	statuses, ok = tasks.Flow(DefaultFlowName)
	require.True(t, ok)
	assert.Equal(t, []string{"pending", "completed"}, statuses)

	_, ok = tasks.Flow("missing")
	assert.False(t, ok)
}

func TestBackwardAllowed(t *testing.T) {
	dir := t.TempDir()
	writeWorkflow(t, dir, `
status_progression:
  tasks:
    default_flow: [pending, completed]
    scratch_flow: [pending, done]
    allow_backward: [scratch_flow]
`)
	tasks := NewLoader(dir).Load().StatusProgression.Tasks
	assert.True(t, tasks.BackwardAllowed("scratch_flow"))
	assert.False(t, tasks.BackwardAllowed(DefaultFlowName))
}

func TestCanonicalStatus(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"In_Progress", "in-progress"},
		{"  PENDING ", "pending"},
		{"pending-review", "pending-review"},
		{"", ""},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, CanonicalStatus(tc.in))
	}
}

func TestProgressionAccessor(t *testing.T) {
	cfg := Default()
	assert.Equal(t, cfg.StatusProgression.Projects.DefaultFlow, cfg.Progression("project").DefaultFlow)
	assert.Equal(t, cfg.StatusProgression.Features.DefaultFlow, cfg.Progression("features").DefaultFlow)
	assert.Equal(t, cfg.StatusProgression.Tasks.DefaultFlow, cfg.Progression("task").DefaultFlow)
}

func TestCloneIsIndependent(t *testing.T) {
	clone := Default().Clone()
	clone.StatusProgression.Tasks.DefaultFlow[0] = "mutated"
	clone.StatusProgression.Tasks.Roles["on-hold"] = "work"

	fresh := Default()
	assert.Equal(t, "pending", fresh.StatusProgression.Tasks.DefaultFlow[0])
	assert.Equal(t, "blocked", fresh.StatusProgression.Tasks.Roles["on-hold"])
}
