package cmd

import (
	"encoding/json"
	"fmt"

	"roster/internal/api"
)

// decodeEnvelope parses the JSON envelope every roster tool returns as its
// text content.
func decodeEnvelope(text string) (map[string]interface{}, error) {
	var env map[string]interface{}
	if err := json.Unmarshal([]byte(text), &env); err != nil {
		return nil, fmt.Errorf("malformed tool response: %w", err)
	}
	return env, nil
}

// envelopeFailure returns an error carrying the envelope's message when the
// call did not succeed, nil otherwise.
func envelopeFailure(env map[string]interface{}) error {
	if success, _ := env["success"].(bool); success {
		return nil
	}
	if message, _ := env["message"].(string); message != "" {
		return fmt.Errorf("%s", message)
	}
	return fmt.Errorf("tool call failed")
}

// envelopeData extracts the data payload of a successful envelope.
func envelopeData(env map[string]interface{}) map[string]interface{} {
	data, _ := env["data"].(map[string]interface{})
	if data == nil {
		data = map[string]interface{}{}
	}
	return data
}

// localText extracts the text content of a locally executed tool result.
func localText(result *api.CallToolResult) string {
	for _, content := range result.Content {
		if text, ok := content.(string); ok {
			return text
		}
	}
	return ""
}
