// Package mcp exposes flowgraph to AI agents as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ormasoftchile/flowgraph/pkg/kernel/eval"
	"github.com/ormasoftchile/flowgraph/pkg/kernel/flow"
	"github.com/ormasoftchile/flowgraph/pkg/kernel/graph"
	"github.com/ormasoftchile/flowgraph/pkg/kernel/trace"
	"github.com/ormasoftchile/flowgraph/pkg/present"
)

// GraphOptions are applied to every scan. Tests pin the clock through it.
var GraphOptions []graph.Option

// HandleValidate implements the flowgraph/validate MCP tool.
func HandleValidate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, _ := req.GetArguments()["path"].(string)
	if path == "" {
		return errorResult("path argument is required"), nil
	}
	exec, errs := trace.ValidateFile(path)
	if flow.HasErrors(errs) {
		return errorResult(formatErrors(errs)), nil
	}
	g := graph.Build(exec, GraphOptions...).Graph()
	if err := graph.Validate(g); err != nil {
		return errorResult(fmt.Sprintf("[graph] %s", err)), nil
	}
	return textResult(fmt.Sprintf("✓ %s is valid (%d nodes, %d stages and branches)", exec.ID, len(exec.Nodes), g.Len())), nil
}

// HandleNodes implements the flowgraph/nodes MCP tool.
func HandleNodes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	path, _ := args["path"].(string)
	if path == "" {
		return errorResult("path argument is required"), nil
	}
	where, _ := args["where"].(string)
	filter, err := eval.Compile(where)
	if err != nil {
		return errorResult(err.Error()), nil
	}

	b, err := load(path)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	g := b.Graph()
	if future, _ := args["future"].(string); future != "" {
		last, err := load(future)
		if err != nil {
			return errorResult(fmt.Sprintf("future: %s", err)), nil
		}
		g = graph.Union(g, graph.Placeholders(last.Graph()))
	}
	nodes, err := filter.Apply(g.Nodes())
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return jsonResult(present.Nodes(paths(b), g, nodes))
}

// HandleSteps implements the flowgraph/steps MCP tool.
func HandleSteps(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	path, _ := args["path"].(string)
	if path == "" {
		return errorResult("path argument is required"), nil
	}
	b, err := load(path)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	node, _ := args["node"].(string)
	if node == "" {
		return jsonResult(present.Steps(paths(b), b.AllSteps()))
	}
	if b.NodeByID(node) == nil {
		return errorResult(fmt.Sprintf("node %s: %s", node, flow.ErrNodeNotFound)), nil
	}
	return jsonResult(present.Steps(paths(b), b.Steps(node)))
}

// HandleUnion implements the flowgraph/union MCP tool.
func HandleUnion(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	current, _ := args["current"].(string)
	previous, _ := args["previous"].(string)
	if current == "" || previous == "" {
		return errorResult("current and previous arguments are required"), nil
	}
	cur, err := load(current)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	prev, err := load(previous)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	g := cur.Union(prev.Graph())
	return jsonResult(present.Nodes(paths(cur), g, g.Nodes()))
}

// HandleSchema implements the flowgraph/schema MCP tool.
func HandleSchema(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := flow.GenerateJSONSchema()
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return textResult(string(data)), nil
}

func load(path string) (*graph.Builder, error) {
	exec, err := trace.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return graph.Build(exec, GraphOptions...), nil
}

func paths(b *graph.Builder) present.Paths {
	return present.Paths{Base: "/runs/" + b.Execution().ID}
}

func formatErrors(errs []*flow.ValidationError) string {
	var msgs []string
	for _, e := range errs {
		if e.Severity == "error" {
			msgs = append(msgs, fmt.Sprintf("[%s] %s", e.Phase, e.Message))
		}
	}
	return strings.Join(msgs, "; ")
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return textResult(string(data)), nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(msg),
		},
		IsError: true,
	}
}
