package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/railcar-dev/railcar/internal/store"
	"github.com/railcar-dev/railcar/internal/streaming"
	"github.com/railcar-dev/railcar/pkg/schema"
)

// handleRun loads a workflow definition and executes it. The run result
// is returned whole, including per-step outcomes, even when steps failed.
func (s *RailcarServer) handleRun(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("workflow")
	if err != nil {
		return mcp.NewToolResultError("workflow is required"), nil
	}

	def, loadErr := s.catalog.Load(name)
	if loadErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("workflow lookup failed: %v", loadErr)), nil
	}

	// Progress goes back to the session that asked for the run, unless
	// it opted out or arrived over a transport with no session.
	var sink streaming.ProgressSink = streaming.NopSink{}
	if req.GetString("notify", "true") != "false" {
		if session := server.ClientSessionFromContext(ctx); session != nil {
			sink = NewProgressNotifier(s.mcpServer, session.SessionID(), def.Name)
		}
	}

	result, runErr := s.runner.Run(ctx, *def, sink)
	if runErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("run could not start: %v", runErr)), nil
	}

	return marshalResult(result)
}

// handleWorkflows lists the catalog of loadable workflow definitions.
func (s *RailcarServer) handleWorkflows(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	summaries, err := s.catalog.List()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
	}
	return marshalResult(map[string]any{"workflows": summaries})
}

// handleDescribe returns one workflow definition in full.
func (s *RailcarServer) handleDescribe(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("workflow")
	if err != nil {
		return mcp.NewToolResultError("workflow is required"), nil
	}

	def, loadErr := s.catalog.Load(name)
	if loadErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("workflow lookup failed: %v", loadErr)), nil
	}
	return marshalResult(def)
}

// handleRuns queries persisted run history.
func (s *RailcarServer) handleRuns(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.history == nil {
		return mcp.NewToolResultError("run history is not configured"), nil
	}

	if runID := req.GetString("run_id", ""); runID != "" {
		return s.queryRun(ctx, runID)
	}
	return s.queryRuns(ctx, mcp.ParseStringMap(req, "filter", nil))
}

// --- Query helpers ---

func (s *RailcarServer) queryRun(ctx context.Context, runID string) (*mcp.CallToolResult, error) {
	run, err := s.history.GetRun(ctx, runID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("run lookup failed: %v", err)), nil
	}
	events, err := s.history.GetEvents(ctx, runID, 0)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("event query failed: %v", err)), nil
	}
	return marshalResult(map[string]any{"run": run, "events": events})
}

func (s *RailcarServer) queryRuns(ctx context.Context, filter map[string]any) (*mcp.CallToolResult, error) {
	rf := store.RunFilter{
		Limit: extractInt(filter, "limit", 50),
	}
	if workflow, ok := filter["workflow"].(string); ok {
		rf.Workflow = workflow
	}
	if status, ok := filter["status"].(string); ok && status != "" {
		rs := schema.RunStatus(status)
		rf.Status = &rs
	}
	if since, ok := filter["since"].(string); ok && since != "" {
		if t, err := time.Parse(time.RFC3339, since); err == nil {
			rf.Since = &t
		}
	}

	runs, err := s.history.ListRuns(ctx, rf)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
	}
	return marshalResult(map[string]any{"runs": runs})
}

// --- Internal helpers ---

// extractInt safely extracts an integer from a filter map.
func extractInt(filter map[string]any, key string, defaultVal int) int {
	if filter == nil {
		return defaultVal
	}
	v, ok := filter[key]
	if !ok {
		return defaultVal
	}
	switch val := v.(type) {
	case float64:
		return int(val)
	case int:
		return val
	case string:
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

// marshalResult converts a value to a JSON text tool result.
func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultJSON(json.RawMessage(data))
}
