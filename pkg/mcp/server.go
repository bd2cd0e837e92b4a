// Package mcp exposes railcar over the Model Context Protocol: an MCP
// client can list workflow definitions, inspect them, execute runs, and
// query run history through four tools.
package mcp

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/railcar-dev/railcar/internal/definitions"
	"github.com/railcar-dev/railcar/internal/store"
	"github.com/railcar-dev/railcar/internal/streaming"
	"github.com/railcar-dev/railcar/pkg/schema"
)

// Catalog is the workflow-definition lookup the server needs.
// Satisfied by *definitions.Loader.
type Catalog interface {
	List() ([]definitions.Summary, error)
	Load(name string) (*schema.WorkflowDefinition, error)
}

// Runner executes a workflow definition. Satisfied by *engine.Engine.
type Runner interface {
	Run(ctx context.Context, def schema.WorkflowDefinition, sink streaming.ProgressSink) (*schema.RunResult, error)
}

// RailcarServerDeps holds the dependencies for creating a RailcarServer.
// History may be nil, in which case railcar.runs reports that run history
// is not configured.
type RailcarServerDeps struct {
	Catalog Catalog
	Runner  Runner
	History store.Store
	Logger  *slog.Logger
}

// RailcarServer wraps an MCP server with railcar tool handlers.
type RailcarServer struct {
	catalog   Catalog
	runner    Runner
	history   store.Store
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewRailcarServer creates a new RailcarServer with all 4 tools registered.
func NewRailcarServer(deps RailcarServerDeps) *RailcarServer {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	s := &RailcarServer{
		catalog: deps.Catalog,
		runner:  deps.Runner,
		history: deps.History,
		logger:  logger,
	}

	mcpSrv := server.NewMCPServer(
		"railcar",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions("Railcar executes declarative workflows: ordered steps of agent reviews, prompt transforms, and shell commands. Use railcar.run to execute a workflow by name, railcar.workflows to list the available definitions, railcar.describe to inspect one definition, and railcar.runs to query run history."),
	)

	mcpSrv.AddTools(s.tools()...)
	s.mcpServer = mcpSrv
	return s
}

// Serve starts the stdio transport and blocks until ctx is cancelled or stdin closes.
func (s *RailcarServer) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// MCPServer returns the underlying MCPServer for testing or custom transports.
func (s *RailcarServer) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// tools returns the 4 registered MCP tools as ServerTool entries.
func (s *RailcarServer) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: runTool(), Handler: s.handleRun},
		{Tool: workflowsTool(), Handler: s.handleWorkflows},
		{Tool: describeTool(), Handler: s.handleDescribe},
		{Tool: runsTool(), Handler: s.handleRuns},
	}
}

// --- Tool definitions ---

func runTool() mcp.Tool {
	return mcp.NewTool("railcar.run",
		mcp.WithDescription("Execute a workflow by name and return its result"),
		mcp.WithString("workflow", mcp.Required(), mcp.Description("Name of the workflow to execute")),
		mcp.WithString("notify", mcp.Description("Push progress notifications to this session during the run (default: true)")),
	)
}

func workflowsTool() mcp.Tool {
	return mcp.NewTool("railcar.workflows",
		mcp.WithDescription("List the available workflow definitions"),
	)
}

func describeTool() mcp.Tool {
	return mcp.NewTool("railcar.describe",
		mcp.WithDescription("Return the full definition of one workflow"),
		mcp.WithString("workflow", mcp.Required(), mcp.Description("Name of the workflow to describe")),
	)
}

func runsTool() mcp.Tool {
	return mcp.NewTool("railcar.runs",
		mcp.WithDescription("Query run history: past runs with their outcomes, or one run with its full event log"),
		mcp.WithString("run_id", mcp.Description("Return a single run with its event log")),
		mcp.WithObject("filter", mcp.Description("Filter criteria for listing runs (workflow, status, since, limit)")),
	)
}
