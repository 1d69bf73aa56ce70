package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"taskweave/schema"
)

var solversCmd = &cobra.Command{
	Use:   "solvers",
	Short: "List the registered solvers",
	Long:  `List every solver from the config, plugins and MCP servers with its input and output fields.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(context.Background(), appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		out := cmd.OutOrStdout()
		for _, s := range a.solvers {
			fmt.Fprintf(out, "%s (v%s)\n", s.Name(), s.Version())
			if s.Description() != "" {
				fmt.Fprintf(out, "  %s\n", s.Description())
			}
			fmt.Fprintf(out, "  inputs:  %s\n", describeSchema(s.InputSchema()))
			fmt.Fprintf(out, "  outputs: %s\n", describeSchema(s.OutputSchema()))
		}
		return nil
	},
}

func describeSchema(s schema.Schema) string {
	names := s.Names()
	if len(names) == 0 {
		return "-"
	}
	fields := make([]string, 0, len(names))
	for _, name := range names {
		f := name + ":" + string(s.Properties[name].Type)
		if s.IsRequired(name) {
			f += "*"
		}
		fields = append(fields, f)
	}
	return strings.Join(fields, ", ")
}

func init() {
	rootCmd.AddCommand(solversCmd)
}
