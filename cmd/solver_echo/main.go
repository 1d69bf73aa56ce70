// Command solver_echo is a sample solver plugin. Point a plugin block at the
// built binary to try it.
package main

import (
	"fmt"
	"strings"

	"taskweave/plugin"
	"taskweave/schema"
)

var inputSchema = schema.Object(schema.PropertyMap{
	"input": {Type: schema.TypeString, Description: "Text to transform"},
})

var solvers = map[string]plugin.SolverInfo{
	"echo": {
		Name:        "echo",
		Description: "Returns its input unchanged",
		Version:     "0.1.0",
		Input:       inputSchema,
	},
	"shout": {
		Name:        "shout",
		Description: "Returns its input in upper case",
		Version:     "0.1.0",
		Input:       inputSchema,
	},
	"reverse": {
		Name:        "reverse",
		Description: "Returns its input with the characters reversed",
		Version:     "0.1.0",
		Input:       inputSchema,
	},
}

// EchoPlugin implements plugin.SolverProvider
type EchoPlugin struct {
	prefix string
}

// Configure accepts an optional "prefix" prepended to every answer
func (p *EchoPlugin) Configure(settings map[string]string) error {
	p.prefix = settings["prefix"]
	return nil
}

func (p *EchoPlugin) Solve(name string, input string) (string, error) {
	var out string
	switch name {
	case "echo":
		out = input
	case "shout":
		out = strings.ToUpper(input)
	case "reverse":
		r := []rune(input)
		for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
			r[i], r[j] = r[j], r[i]
		}
		out = string(r)
	default:
		return "", fmt.Errorf("unknown solver: %s", name)
	}
	return p.prefix + out, nil
}

func (p *EchoPlugin) ListSolvers() ([]plugin.SolverInfo, error) {
	result := make([]plugin.SolverInfo, 0, len(solvers))
	for _, name := range []string{"echo", "reverse", "shout"} {
		result = append(result, solvers[name])
	}
	return result, nil
}

func main() {
	plugin.Serve(&EchoPlugin{})
}
