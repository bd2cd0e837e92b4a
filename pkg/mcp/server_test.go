package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRailcarServer(t *testing.T) {
	s := NewRailcarServer(RailcarServerDeps{})
	require.NotNil(t, s)
	assert.NotNil(t, s.mcpServer)
	assert.NotNil(t, s.logger)
}

func TestToolRegistration(t *testing.T) {
	s := NewRailcarServer(RailcarServerDeps{})

	tools := s.mcpServer.ListTools()
	require.Len(t, tools, 4)

	expectedTools := []string{
		"railcar.run",
		"railcar.workflows",
		"railcar.describe",
		"railcar.runs",
	}
	for _, name := range expectedTools {
		tool := s.mcpServer.GetTool(name)
		assert.NotNil(t, tool, "tool %s should be registered", name)
	}
}

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		name        string
		toolName    string
		description string
	}{
		{"run", "railcar.run", "Execute a workflow by name and return its result"},
		{"workflows", "railcar.workflows", "List the available workflow definitions"},
		{"describe", "railcar.describe", "Return the full definition of one workflow"},
		{"runs", "railcar.runs", "Query run history: past runs with their outcomes, or one run with its full event log"},
	}

	s := NewRailcarServer(RailcarServerDeps{})

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tool := s.mcpServer.GetTool(tc.toolName)
			require.NotNil(t, tool)
			assert.Equal(t, tc.description, tool.Tool.Description)
		})
	}
}
