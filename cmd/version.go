package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("{{.Version}}\n")
	rootCmd.Long = fmt.Sprintf(`Taskweave %s

Answers a request by planning it into a tree of subtasks, running each
subtask with a solver, aggregating the results and validating the answer.

Models, solvers, plugins and MCP servers are declared in HCL.

Get started:
  taskweave verify <path>      Validate your configuration
  taskweave solvers            List the solvers the planner can use
  taskweave run "<request>"    Answer a request
  taskweave history            Show stored runs`, Version)
}
