// Package mcptools exposes the tools of an MCP server as workflow solvers.
package mcptools

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"
	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const clientVersion = "1.0.0"

// Toolbox is an initialized connection to one MCP server.
type Toolbox struct {
	name    string
	version string
	client  mcpclient.MCPClient
	logger  hclog.Logger
}

// Connect performs the MCP handshake on an already started client.
func Connect(ctx context.Context, name string, c mcpclient.MCPClient, logger hclog.Logger) (*Toolbox, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	req := mcp.InitializeRequest{}
	req.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcp.Implementation{Name: "taskweave", Version: clientVersion}

	res, err := c.Initialize(ctx, req)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("initialize mcp server %s: %w", name, err)
	}
	logger = logger.Named("mcp").With("server", name)
	logger.Debug("connected", "remote", res.ServerInfo.Name, "version", res.ServerInfo.Version)
	return &Toolbox{name: name, version: res.ServerInfo.Version, client: c, logger: logger}, nil
}

// DialStdio launches command and talks MCP over its stdin and stdout.
func DialStdio(ctx context.Context, name, command string, env, args []string, logger hclog.Logger) (*Toolbox, error) {
	c, err := mcpclient.NewStdioMCPClient(command, env, args...)
	if err != nil {
		return nil, fmt.Errorf("start mcp server %s: %w", name, err)
	}
	return Connect(ctx, name, c, logger)
}

// DialSSE connects to an MCP server over server-sent events.
func DialSSE(ctx context.Context, name, url string, logger hclog.Logger) (*Toolbox, error) {
	c, err := mcpclient.NewSSEMCPClient(url)
	if err != nil {
		return nil, fmt.Errorf("create mcp client %s: %w", name, err)
	}
	if err := c.Start(ctx); err != nil {
		return nil, fmt.Errorf("connect mcp server %s: %w", name, err)
	}
	return Connect(ctx, name, c, logger)
}

// InProcess connects to a server running in this process.
func InProcess(ctx context.Context, name string, srv *server.MCPServer, logger hclog.Logger) (*Toolbox, error) {
	c, err := mcpclient.NewInProcessClient(srv)
	if err != nil {
		return nil, fmt.Errorf("create mcp client %s: %w", name, err)
	}
	if err := c.Start(ctx); err != nil {
		return nil, fmt.Errorf("start mcp client %s: %w", name, err)
	}
	return Connect(ctx, name, c, logger)
}

// Name is the configured server name.
func (t *Toolbox) Name() string {
	return t.name
}

// Close shuts the connection and any child process.
func (t *Toolbox) Close() error {
	return t.client.Close()
}
