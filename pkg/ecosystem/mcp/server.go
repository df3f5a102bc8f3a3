package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewServer creates a new MCP server with the flowgraph tools registered.
func NewServer(version string) *server.MCPServer {
	s := server.NewMCPServer(
		"flowgraph",
		version,
		server.WithToolCapabilities(true),
	)

	s.AddTool(
		mcp.NewTool("flowgraph/validate",
			mcp.WithDescription("Validate an execution trace (JSONL stream or YAML/JSON document) and the graph built from it"),
			mcp.WithString("path", mcp.Required(), mcp.Description("Path to the trace file")),
		),
		HandleValidate,
	)

	s.AddTool(
		mcp.NewTool("flowgraph/nodes",
			mcp.WithDescription("List the stages and parallel branches of a run with status and timing"),
			mcp.WithString("path", mcp.Required(), mcp.Description("Path to the trace file")),
			mcp.WithString("where", mcp.Description(`Filter expression, e.g. type == "STAGE" && result == "FAILURE"`)),
			mcp.WithString("future", mcp.Description("Trace of a completed run whose remaining stages are shown as placeholders")),
		),
		HandleNodes,
	)

	s.AddTool(
		mcp.NewTool("flowgraph/steps",
			mcp.WithDescription("List the steps of a stage or branch, or of the whole run when node is omitted"),
			mcp.WithString("path", mcp.Required(), mcp.Description("Path to the trace file")),
			mcp.WithString("node", mcp.Description("Stage or branch id")),
		),
		HandleSteps,
	)

	s.AddTool(
		mcp.NewTool("flowgraph/union",
			mcp.WithDescription("Merge the graph of a run with a graph returned earlier, keeping nodes the current scan has not reached"),
			mcp.WithString("current", mcp.Required(), mcp.Description("Path to the current trace")),
			mcp.WithString("previous", mcp.Required(), mcp.Description("Path to the earlier trace")),
		),
		HandleUnion,
	)

	s.AddTool(
		mcp.NewTool("flowgraph/schema",
			mcp.WithDescription("Export the JSON Schema of flowgraph/v0 trace documents"),
		),
		HandleSchema,
	)

	return s
}
