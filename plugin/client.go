// Package plugin loads solvers from external binaries over go-plugin.
package plugin

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/hashicorp/go-hclog"
	goplugin "github.com/hashicorp/go-plugin"

	"taskweave/solvers"
	"taskweave/workflow"
)

// PluginClient owns a running plugin process.
type PluginClient struct {
	client   *goplugin.Client
	provider SolverProvider
	name     string
}

// LoadPlugin starts the binary at path, dispenses its provider and applies
// settings.
func LoadPlugin(name, path string, settings map[string]string, logger hclog.Logger) (*PluginClient, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("plugin %s not found at %s: %w", name, path, err)
	}
	if logger == nil {
		logger = hclog.New(&hclog.LoggerOptions{
			Name:   "plugin",
			Output: os.Stderr,
			Level:  hclog.Error,
		})
	}

	client := goplugin.NewClient(&goplugin.ClientConfig{
		HandshakeConfig:  Handshake,
		Plugins:          PluginMap,
		Cmd:              exec.Command(path),
		Logger:           logger.Named(name),
		AllowedProtocols: []goplugin.Protocol{goplugin.ProtocolNetRPC},
	})

	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("failed to connect to plugin %s: %w", name, err)
	}

	raw, err := rpcClient.Dispense(pluginKey)
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("failed to dispense plugin %s: %w", name, err)
	}

	provider, ok := raw.(SolverProvider)
	if !ok {
		client.Kill()
		return nil, fmt.Errorf("plugin %s does not implement SolverProvider", name)
	}

	if len(settings) > 0 {
		if err := provider.Configure(settings); err != nil {
			client.Kill()
			return nil, fmt.Errorf("configure plugin %s: %w", name, err)
		}
	}

	return &PluginClient{client: client, provider: provider, name: name}, nil
}

// Name returns the configured plugin name.
func (p *PluginClient) Name() string {
	return p.name
}

// Solvers wraps every solver the plugin lists.
func (p *PluginClient) Solvers() ([]workflow.Solver, error) {
	return ProviderSolvers(p.provider)
}

// List returns what the plugin reports about its solvers.
func (p *PluginClient) List() ([]SolverInfo, error) {
	return p.provider.ListSolvers()
}

// Solve calls one solver of the plugin directly.
func (p *PluginClient) Solve(name, input string) (string, error) {
	return p.provider.Solve(name, input)
}

// Close kills the plugin process.
func (p *PluginClient) Close() {
	if p.client != nil {
		p.client.Kill()
	}
}

// ProviderSolvers adapts each solver a provider lists to workflow.Solver.
func ProviderSolvers(provider SolverProvider) ([]workflow.Solver, error) {
	infos, err := provider.ListSolvers()
	if err != nil {
		return nil, fmt.Errorf("list solvers: %w", err)
	}
	out := make([]workflow.Solver, 0, len(infos))
	for _, info := range infos {
		name := info.Name
		s := solvers.NewFuncSolver(name, info.Description, func(_ context.Context, input string) (string, error) {
			return provider.Solve(name, input)
		}).WithVersion(info.Version)
		if info.Input.Type != "" {
			s = s.WithInputSchema(info.Input)
		}
		out = append(out, s)
	}
	return out, nil
}
