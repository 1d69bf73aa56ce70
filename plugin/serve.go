package plugin

import (
	goplugin "github.com/hashicorp/go-plugin"
)

// Serve is called from a plugin binary's main. It blocks until the host
// disconnects.
func Serve(impl SolverProvider) {
	goplugin.Serve(&goplugin.ServeConfig{
		HandshakeConfig: Handshake,
		Plugins: map[string]goplugin.Plugin{
			pluginKey: &SolverPlugin{Impl: impl},
		},
	})
}
