package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

func newMCPServer(s *Server, version string) *mcpserver.MCPServer {
	m := mcpserver.NewMCPServer("taskweave", version, mcpserver.WithToolCapabilities(true))
	m.AddTool(
		mcp.NewTool(
			"solve",
			mcp.WithDescription("Decompose a request into solver calls, run them and return the validated answer"),
			mcp.WithString("request", mcp.Required(), mcp.Description("The request to answer")),
		),
		s.handleSolve,
	)
	m.AddTool(
		mcp.NewTool(
			"get_run",
			mcp.WithDescription("Fetch a stored run with its steps"),
			mcp.WithString("id", mcp.Required(), mcp.Description("The run id")),
		),
		s.handleGetRun,
	)
	return m
}

// MCP exposes the tool server, mostly for tests.
func (s *Server) MCP() *mcpserver.MCPServer {
	return s.mcp
}

func (s *Server) handleSolve(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := request.RequireString("request")
	if err != nil || req == "" {
		return mcp.NewToolResultError("Missing required parameter: request"), nil
	}

	id, state, runErr := s.runner.Run(ctx, req, nil)
	if runErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("run %s failed: %v", id, runErr)), nil
	}
	if v, ok := state.Validation(); ok && !v.Answered {
		return mcp.NewToolResultError(fmt.Sprintf("run %s was rejected: %s", id, v.Rationale)), nil
	}
	final, _ := state.FinalResult()
	return mcp.NewToolResultText(final), nil
}

func (s *Server) handleGetRun(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("Missing required parameter: id"), nil
	}
	run, err := s.runs.GetRun(id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	steps, err := s.runs.GetSteps(id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	jsonBytes, _ := json.Marshal(RunDetail{Run: run, Steps: steps})
	return mcp.NewToolResultText(string(jsonBytes)), nil
}
