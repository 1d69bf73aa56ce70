package config

import (
	"fmt"
	"sort"
)

// MCPConfig is an MCP server whose tools become solvers. Set command to
// launch it over stdio, or url for a server-sent events endpoint.
type MCPConfig struct {
	Name    string            `hcl:"name,label"`
	Command string            `hcl:"command,optional"`
	Args    []string          `hcl:"args,optional"`
	Env     map[string]string `hcl:"env,optional"`
	URL     string            `hcl:"url,optional"`
}

func (m *MCPConfig) Validate() error {
	if (m.Command == "") == (m.URL == "") {
		return fmt.Errorf("exactly one of command or url is required")
	}
	return nil
}

// Environ renders env as KEY=VALUE pairs in key order.
func (m *MCPConfig) Environ() []string {
	keys := make([]string, 0, len(m.Env))
	for k := range m.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+m.Env[k])
	}
	return out
}
