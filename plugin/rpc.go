package plugin

import (
	"net/rpc"

	goplugin "github.com/hashicorp/go-plugin"
)

// SolverPlugin carries a SolverProvider over go-plugin's net/rpc transport.
type SolverPlugin struct {
	Impl SolverProvider
}

func (p *SolverPlugin) Server(*goplugin.MuxBroker) (interface{}, error) {
	return &RPCServer{Impl: p.Impl}, nil
}

func (p *SolverPlugin) Client(_ *goplugin.MuxBroker, c *rpc.Client) (interface{}, error) {
	return NewRPCClient(c), nil
}

// SolveArgs is the request of a Solve call.
type SolveArgs struct {
	Name  string
	Input string
}

// RPCServer runs inside the plugin process.
type RPCServer struct {
	Impl SolverProvider
}

func (s *RPCServer) Configure(settings map[string]string, resp *bool) error {
	if err := s.Impl.Configure(settings); err != nil {
		return err
	}
	*resp = true
	return nil
}

func (s *RPCServer) Solve(args SolveArgs, resp *string) error {
	out, err := s.Impl.Solve(args.Name, args.Input)
	if err != nil {
		return err
	}
	*resp = out
	return nil
}

func (s *RPCServer) ListSolvers(_ interface{}, resp *[]SolverInfo) error {
	infos, err := s.Impl.ListSolvers()
	if err != nil {
		return err
	}
	*resp = infos
	return nil
}

// RPCClient is the host side of a plugin connection.
type RPCClient struct {
	client *rpc.Client
}

// NewRPCClient wraps a connected rpc client. go-plugin registers the server
// under the name "Plugin".
func NewRPCClient(c *rpc.Client) *RPCClient {
	return &RPCClient{client: c}
}

func (c *RPCClient) Configure(settings map[string]string) error {
	var ok bool
	return c.client.Call("Plugin.Configure", settings, &ok)
}

func (c *RPCClient) Solve(name, input string) (string, error) {
	var out string
	err := c.client.Call("Plugin.Solve", SolveArgs{Name: name, Input: input}, &out)
	return out, err
}

func (c *RPCClient) ListSolvers() ([]SolverInfo, error) {
	var infos []SolverInfo
	err := c.client.Call("Plugin.ListSolvers", new(interface{}), &infos)
	return infos, err
}
