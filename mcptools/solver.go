package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"taskweave/schema"
	"taskweave/workflow"
)

// fallbackArg receives the task input when a tool schema names no better
// target.
const fallbackArg = "input"

// Solvers lists the server's tools and wraps each as a solver.
func (t *Toolbox) Solvers(ctx context.Context) ([]workflow.Solver, error) {
	res, err := t.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("list tools of %s: %w", t.name, err)
	}
	out := make([]workflow.Solver, 0, len(res.Tools))
	for _, tool := range res.Tools {
		out = append(out, &ToolSolver{box: t, tool: tool, input: convertSchema(tool.InputSchema)})
	}
	t.logger.Debug("tools loaded", "count", len(out))
	return out, nil
}

// ToolSolver runs one MCP tool.
type ToolSolver struct {
	box   *Toolbox
	tool  mcp.Tool
	input schema.Schema
}

var resultSchema = schema.Object(schema.PropertyMap{
	workflow.OutputResult: {Type: schema.TypeString, Description: "Text returned by the tool"},
}, workflow.OutputResult)

func (s *ToolSolver) Name() string                { return s.tool.Name }
func (s *ToolSolver) Description() string         { return s.tool.Description }
func (s *ToolSolver) Version() string             { return s.box.version }
func (s *ToolSolver) InputSchema() schema.Schema  { return s.input }
func (s *ToolSolver) OutputSchema() schema.Schema { return resultSchema }

func (s *ToolSolver) Solve(ctx context.Context, state *workflow.State, task *workflow.Task) workflow.SolveStep {
	started := time.Now()
	inputs := state.InputsFor(task)
	if len(task.Inputs) == 0 {
		inputs = []workflow.Var{{Name: "task", Description: task.Name, Value: task.Label()}}
	}

	parts := make([]string, 0, len(inputs))
	for _, v := range inputs {
		parts = append(parts, v.Text())
	}
	args := Arguments(s.input, strings.Join(parts, "\n"))

	req := mcp.CallToolRequest{}
	req.Params.Name = s.tool.Name
	req.Params.Arguments = args

	s.box.logger.Debug("calling tool", "tool", s.tool.Name, "task", task.ID)
	res, err := s.box.client.CallTool(ctx, req)
	if err != nil {
		return workflow.Failed(task, s.tool.Name, started, inputs, fmt.Errorf("call %s: %w", s.tool.Name, err))
	}
	text := resultText(res)
	if res.IsError {
		return workflow.Failed(task, s.tool.Name, started, inputs, fmt.Errorf("%s: %s", s.tool.Name, text))
	}
	outputs := []workflow.Var{{Name: workflow.OutputResult, Description: s.tool.Description, Value: text}}
	return workflow.Succeeded(task, s.tool.Name, started, inputs, outputs)
}

// Arguments maps the joined task input onto a tool's arguments. A JSON
// object is passed through. Otherwise the text goes to the single required
// property, the single property, or "input".
func Arguments(in schema.Schema, input string) map[string]any {
	trimmed := strings.TrimSpace(input)
	if strings.HasPrefix(trimmed, "{") {
		var obj map[string]any
		if err := json.Unmarshal([]byte(trimmed), &obj); err == nil {
			return obj
		}
	}

	target := fallbackArg
	switch {
	case len(in.Required) == 1:
		target = in.Required[0]
	case len(in.Properties) == 1:
		target = in.Names()[0]
	}
	return map[string]any{target: input}
}

func resultText(res *mcp.CallToolResult) string {
	var parts []string
	for _, c := range res.Content {
		switch tc := c.(type) {
		case mcp.TextContent:
			parts = append(parts, tc.Text)
		case *mcp.TextContent:
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func convertSchema(in mcp.ToolInputSchema) schema.Schema {
	props := make(schema.PropertyMap, len(in.Properties))
	for name, raw := range in.Properties {
		props[name] = convertProperty(raw)
	}
	return schema.Object(props, in.Required...)
}

func convertProperty(raw any) schema.Property {
	m, ok := raw.(map[string]any)
	if !ok {
		return schema.Property{Type: schema.TypeString}
	}
	p := schema.Property{Type: schema.TypeString}
	if t, ok := m["type"].(string); ok {
		p.Type = schema.PropertyType(t)
	}
	if d, ok := m["description"].(string); ok {
		p.Description = d
	}
	if items, ok := m["items"]; ok && p.Type == schema.TypeArray {
		item := convertProperty(items)
		p.Items = &item
	}
	return p
}
