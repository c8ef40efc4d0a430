package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roster/internal/config"
	"roster/internal/store/memory"
)

func newProvider(t *testing.T) (*Provider, *memory.Store) {
	t.Helper()
	st := memory.New()
	return New(st, config.Default), st
}

// envelope mirrors the wire shape of tool responses for decoding in tests.
type envelope struct {
	Success  bool                   `json:"success"`
	Message  string                 `json:"message"`
	Data     map[string]interface{} `json:"data"`
	Error    *envelopeError         `json:"error"`
	Metadata envelopeMeta           `json:"metadata"`
}

type envelopeError struct {
	Code    string      `json:"code"`
	Details interface{} `json:"details"`
}

type envelopeMeta struct {
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// callTool executes a tool and decodes the envelope from its text content.
func callTool(t *testing.T, p *Provider, name string, args map[string]interface{}) envelope {
	t.Helper()
	result, err := p.ExecuteTool(context.Background(), name, args)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(string)
	require.True(t, ok, "tool content should be serialized text")

	var env envelope
	require.NoError(t, json.Unmarshal([]byte(text), &env))
	assert.Equal(t, !env.Success, result.IsError)
	return env
}

func requireSuccess(t *testing.T, env envelope) map[string]interface{} {
	t.Helper()
	require.True(t, env.Success, "expected success, got %q (%+v)", env.Message, env.Error)
	require.Nil(t, env.Error)
	return env.Data
}

func requireErrorCode(t *testing.T, env envelope, code string) *envelopeError {
	t.Helper()
	require.False(t, env.Success, "expected failure, got %q", env.Message)
	require.NotNil(t, env.Error)
	assert.Equal(t, code, env.Error.Code)
	return env.Error
}

// The seed helpers below go through the tool surface on purpose: the tests
// exercise the same write path an agent does.

func toolCreateProject(t *testing.T, p *Provider, name string) string {
	t.Helper()
	data := requireSuccess(t, callTool(t, p, "manage_container", map[string]interface{}{
		"operation":      "create",
		"container_type": "project",
		"name":           name,
	}))
	return data["id"].(string)
}

func toolCreateFeature(t *testing.T, p *Provider, projectID, name string, extra map[string]interface{}) string {
	t.Helper()
	args := map[string]interface{}{
		"operation":      "create",
		"container_type": "feature",
		"name":           name,
	}
	if projectID != "" {
		args["project_id"] = projectID
	}
	for k, v := range extra {
		args[k] = v
	}
	data := requireSuccess(t, callTool(t, p, "manage_container", args))
	return data["id"].(string)
}

func toolCreateTask(t *testing.T, p *Provider, featureID, title string, extra map[string]interface{}) string {
	t.Helper()
	args := map[string]interface{}{
		"operation":      "create",
		"container_type": "task",
		"title":          title,
	}
	if featureID != "" {
		args["feature_id"] = featureID
	}
	for k, v := range extra {
		args[k] = v
	}
	data := requireSuccess(t, callTool(t, p, "manage_container", args))
	return data["id"].(string)
}

func toolSetStatus(t *testing.T, p *Provider, containerType, id, status, summary string) map[string]interface{} {
	t.Helper()
	args := map[string]interface{}{
		"operation":      "set_status",
		"container_type": containerType,
		"id":             id,
		"status":         status,
	}
	if summary != "" {
		args["summary"] = summary
	}
	return requireSuccess(t, callTool(t, p, "manage_container", args))
}

func toolLink(t *testing.T, p *Provider, from, to string, extra map[string]interface{}) map[string]interface{} {
	t.Helper()
	args := map[string]interface{}{
		"operation": "create",
		"from":      from,
		"to":        to,
	}
	for k, v := range extra {
		args[k] = v
	}
	return requireSuccess(t, callTool(t, p, "manage_dependency", args))
}

// completionSummary is long enough to pass the task completion gate.
func completionSummary() string {
	return strings.Repeat("Implemented, reviewed, and verified against the acceptance checks. ", 6)
}

func summaryOfLength(n int) string {
	return strings.Repeat("x", n)
}

// recommendedIDs extracts taskId from a get_next_item data payload.
func recommendedIDs(t *testing.T, data map[string]interface{}) []string {
	t.Helper()
	raw, ok := data["tasks"].([]interface{})
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(raw))
	for _, item := range raw {
		ids = append(ids, item.(map[string]interface{})["taskId"].(string))
	}
	return ids
}
