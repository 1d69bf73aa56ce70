package plugin

import (
	goplugin "github.com/hashicorp/go-plugin"

	"taskweave/schema"
)

// pluginKey is the name a plugin binary registers its provider under.
const pluginKey = "solver"

// Handshake is shared by the host and every solver plugin. A binary started
// without the cookie exits with a hint instead of serving.
var Handshake = goplugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "TASKWEAVE_PLUGIN",
	MagicCookieValue: "solver",
}

// PluginMap is the set of plugins the host can dispense.
var PluginMap = map[string]goplugin.Plugin{
	pluginKey: &SolverPlugin{},
}

// SolverInfo describes one solver a plugin provides.
type SolverInfo struct {
	Name        string
	Description string
	Version     string
	Input       schema.Schema
}

// SolverProvider is implemented by plugin binaries.
type SolverProvider interface {
	// Configure passes settings from the config file to the plugin
	Configure(settings map[string]string) error

	// Solve runs the named solver on the joined task input
	Solve(name string, input string) (string, error)

	// ListSolvers returns every solver this plugin provides
	ListSolvers() ([]SolverInfo, error)
}
