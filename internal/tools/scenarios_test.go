package tools

// End-to-end walkthroughs over the full tool surface: seed through the
// tools, drive status changes, and check what the recommender, the blocked
// query, and the cascade reports say at each step.

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collectCascadeEvents flattens the event names of a cascade tree in
// depth-first order.
func collectCascadeEvents(raw interface{}) []string {
	records, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	var out []string
	for _, r := range records {
		record := r.(map[string]interface{})
		out = append(out, record["event"].(string))
		out = append(out, collectCascadeEvents(record["childCascades"])...)
	}
	return out
}

func TestParallelTasksRecommendedInCreationOrder(t *testing.T) {
	p, _ := newProvider(t)
	featureID := toolCreateFeature(t, p, "", "parallel", nil)
	var want []string
	for _, title := range []string{"t1", "t2", "t3", "t4"} {
		want = append(want, toolCreateTask(t, p, featureID, title, map[string]interface{}{
			"complexity": float64(5),
		}))
	}

	data := requireSuccess(t, callTool(t, p, "get_next_item", map[string]interface{}{
		"feature_id": featureID,
		"limit":      float64(4),
	}))
	assert.EqualValues(t, 4, data["totalCandidates"])
	assert.Equal(t, want, recommendedIDs(t, data), "equal priority and complexity fall back to creation order")
}

func TestLinearChainUnblocksOneByOne(t *testing.T) {
	p, _ := newProvider(t)

	var chain []string
	for _, title := range []string{"t1", "t2", "t3", "t4"} {
		chain = append(chain, toolCreateTask(t, p, "", title, nil))
	}
	for i := 0; i < len(chain)-1; i++ {
		toolLink(t, p, chain[i], chain[i+1], nil)
	}

	data := requireSuccess(t, callTool(t, p, "get_next_item", map[string]interface{}{
		"limit": float64(4),
	}))
	assert.Equal(t, []string{chain[0]}, recommendedIDs(t, data), "only the head of the chain is startable")
	assert.EqualValues(t, 1, data["totalCandidates"])

	for i, id := range chain {
		result := toolSetStatus(t, p, "task", id, "completed", summaryOfLength(400))

		if i < len(chain)-1 {
			unblocked := result["unblockedTasks"].([]interface{})
			require.Len(t, unblocked, 1)
			assert.Equal(t, chain[i+1], unblocked[0].(map[string]interface{})["taskId"])

			next := requireSuccess(t, callTool(t, p, "get_next_item", nil))
			assert.Equal(t, []string{chain[i+1]}, recommendedIDs(t, next))
		} else {
			assert.NotContains(t, result, "unblockedTasks")
		}
	}

	env := callTool(t, p, "get_next_item", nil)
	data = requireSuccess(t, env)
	assert.Equal(t, "no startable tasks", env.Message)
	assert.EqualValues(t, 0, data["totalCandidates"])
}

func TestWorkThresholdReleasesBeforeCompletion(t *testing.T) {
	p, _ := newProvider(t)
	t1 := toolCreateTask(t, p, "", "t1", nil)
	t2 := toolCreateTask(t, p, "", "t2", nil)
	t3 := toolCreateTask(t, p, "", "t3", nil)
	toolLink(t, p, t1, t2, map[string]interface{}{"unblock_at": "work"})
	toolLink(t, p, t1, t3, nil)

	data := toolSetStatus(t, p, "task", t1, "in-progress", "")
	assert.NotContains(t, data, "unblockedTasks",
		"unblock reporting happens on terminal transitions only; queries see the release immediately")

	// t1 is work-role now: no longer a candidate itself, but it satisfies
	// the work threshold on t2. t3 still waits for terminal.
	next := requireSuccess(t, callTool(t, p, "get_next_item", map[string]interface{}{
		"limit": float64(10),
	}))
	assert.Equal(t, []string{t2}, recommendedIDs(t, next))
	assert.EqualValues(t, 1, next["totalCandidates"])

	blocked := requireSuccess(t, callTool(t, p, "get_blocked", nil))
	assert.EqualValues(t, 1, blocked["count"])
	entry := blocked["blockedTasks"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, t3, entry["taskId"])

	// Completing t1 releases t3 as well.
	toolSetStatus(t, p, "task", t1, "completed", summaryOfLength(400))
	blocked = requireSuccess(t, callTool(t, p, "get_blocked", nil))
	assert.EqualValues(t, 0, blocked["count"])
}

func TestCompletingAllTasksDrivesParentsTerminal(t *testing.T) {
	p, st := newProvider(t)
	ctx := context.Background()
	projectID := toolCreateProject(t, p, "atlas")
	featureID := toolCreateFeature(t, p, projectID, "ingestion", nil)
	t1 := toolCreateTask(t, p, featureID, "t1", nil)
	t2 := toolCreateTask(t, p, featureID, "t2", nil)

	// First start ripples upward.
	data := toolSetStatus(t, p, "task", t1, "in-progress", "")
	events := collectCascadeEvents(data["cascades"])
	assert.Equal(t, []string{"first_child_started", "first_child_started"}, events)

	// Completing only one of two tasks cascades nothing.
	data = toolSetStatus(t, p, "task", t1, "completed", summaryOfLength(400))
	assert.NotContains(t, data, "cascades")

	// The last completion walks the feature through its remaining statuses
	// and completes the project.
	data = toolSetStatus(t, p, "task", t2, "completed", summaryOfLength(400))
	events = collectCascadeEvents(data["cascades"])
	assert.Equal(t, []string{
		"all_tasks_complete",
		"feature_self_advancement",
		"feature_self_advancement",
		"all_features_complete",
	}, events)

	feature, err := st.GetFeature(ctx, featureID)
	require.NoError(t, err)
	assert.Equal(t, "completed", feature.Status)
	project, err := st.GetProject(ctx, projectID)
	require.NoError(t, err)
	assert.Equal(t, "completed", project.Status)
}

func TestVerificationHoldsFeatureShortOfTerminal(t *testing.T) {
	p, st := newProvider(t)
	ctx := context.Background()
	projectID := toolCreateProject(t, p, "atlas")
	featureID := toolCreateFeature(t, p, projectID, "audited", map[string]interface{}{
		"requires_verification": true,
	})
	t1 := toolCreateTask(t, p, featureID, "t1", nil)
	toolSetStatus(t, p, "task", t1, "in-progress", "")

	data := toolSetStatus(t, p, "task", t1, "completed", summaryOfLength(400))

	// The cascade stops one step short: the final record reports the held
	// completion instead of applying it.
	feature, err := st.GetFeature(ctx, featureID)
	require.NoError(t, err)
	assert.Equal(t, "validating", feature.Status)
	project, err := st.GetProject(ctx, projectID)
	require.NoError(t, err)
	assert.Equal(t, "in-progress", project.Status)

	var held map[string]interface{}
	records := data["cascades"].([]interface{})
	for len(records) > 0 {
		record := records[0].(map[string]interface{})
		held = record
		records, _ = record["childCascades"].([]interface{})
	}
	require.NotNil(t, held)
	assert.Equal(t, false, held["applied"])
	assert.Contains(t, held["reason"], "verification")

	// Manual completion takes the held step and finishes the project.
	data = toolSetStatus(t, p, "feature", featureID, "completed", "")
	events := collectCascadeEvents(data["cascades"])
	assert.Contains(t, events, "all_features_complete")

	project, err = st.GetProject(ctx, projectID)
	require.NoError(t, err)
	assert.Equal(t, "completed", project.Status)
}

func TestPrototypeFlowShortCircuitsToTerminal(t *testing.T) {
	p, st := newProvider(t)
	ctx := context.Background()
	featureID := toolCreateFeature(t, p, "", "throwaway", map[string]interface{}{
		"tags": []interface{}{"prototype"},
	})
	taskID := toolCreateTask(t, p, featureID, "spike it", map[string]interface{}{
		"tags": []interface{}{"prototype"},
	})

	data := toolSetStatus(t, p, "task", taskID, "completed", summaryOfLength(400))
	events := collectCascadeEvents(data["cascades"])
	assert.Equal(t, []string{"all_tasks_complete", "feature_self_advancement"}, events)

	// The rapid flow has no review stages, so two hops reach terminal.
	feature, err := st.GetFeature(ctx, featureID)
	require.NoError(t, err)
	assert.Equal(t, "completed", feature.Status)

	transitions, err := st.ListRoleTransitions(ctx, featureID)
	require.NoError(t, err)
	statuses := make([]string, 0, len(transitions))
	for _, tr := range transitions {
		statuses = append(statuses, tr.ToStatus)
	}
	assert.Equal(t, []string{"in-development", "completed"}, statuses)
}
