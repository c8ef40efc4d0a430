package cmd

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"roster/internal/client"
)

// dialServer connects an MCP client to a running roster server.
func dialServer(ctx context.Context, endpoint, transportName string) (*client.Client, error) {
	c := client.New(endpoint, client.TransportType(transportName))
	if err := c.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", endpoint, err)
	}
	return c, nil
}

// callServerTool executes a tool on the server and decodes its envelope.
func callServerTool(ctx context.Context, c *client.Client, name string, args map[string]interface{}) (map[string]interface{}, error) {
	result, err := c.CallTool(ctx, name, args)
	if err != nil {
		return nil, err
	}

	var text string
	for _, content := range result.Content {
		if textContent, ok := mcp.AsTextContent(content); ok {
			text = textContent.Text
			break
		}
	}
	if text == "" {
		return nil, fmt.Errorf("empty response from %s", name)
	}
	return decodeEnvelope(text)
}
