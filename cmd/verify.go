package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"taskweave/config"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [path]",
	Short: "Verify that the configuration is valid",
	Long:  `Verify parses and validates the HCL configuration files. Path can be a file or directory.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := viper.GetString("config")
		if len(args) == 1 {
			path = args[0]
		}
		cfg, err := config.LoadAndValidate(path)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		var warnings []string
		fmt.Fprintf(out, "Configuration is valid!\n")
		fmt.Fprintf(out, "Found %d model(s)\n", len(cfg.Models))
		for _, m := range cfg.Models {
			fmt.Fprintf(out, "  - %s (provider: %s, models: %v)\n", m.Name, m.Provider, m.AllowedModels)
		}
		fmt.Fprintf(out, "Found %d variable(s)\n", len(cfg.Variables))
		for _, v := range cfg.Variables {
			resolved := cfg.ResolvedVars[v.Name].AsString()
			switch {
			case v.Secret && resolved != "":
				fmt.Fprintf(out, "  - %s (secret, set)\n", v.Name)
			case v.Secret:
				fmt.Fprintf(out, "  - %s (secret, not set)\n", v.Name)
			default:
				fmt.Fprintf(out, "  - %s = %q\n", v.Name, resolved)
			}
			if resolved == "" {
				warnings = append(warnings, fmt.Sprintf("variable '%s' has no default and no value set", v.Name))
			}
		}

		exec := cfg.Executor
		fmt.Fprintf(out, "Executor: model %s, max %d steps\n", exec.Model, exec.MaxSteps)

		fmt.Fprintf(out, "Found %d solver(s)\n", len(cfg.Solvers))
		for _, s := range cfg.Solvers {
			fmt.Fprintf(out, "  - %s (%s)\n", s.Name, s.Type)
		}
		fmt.Fprintf(out, "Found %d plugin(s)\n", len(cfg.Plugins))
		for _, p := range cfg.Plugins {
			path, _ := p.BinaryPath()
			fmt.Fprintf(out, "  - %s (%s)\n", p.Name, path)
		}
		fmt.Fprintf(out, "Found %d MCP server(s)\n", len(cfg.MCP))
		for _, m := range cfg.MCP {
			target := m.URL
			if target == "" {
				target = m.Command
			}
			fmt.Fprintf(out, "  - %s (%s)\n", m.Name, target)
		}
		if len(cfg.Prompts) > 0 || cfg.PromptLibrary != "" {
			fmt.Fprintf(out, "Prompt overrides: %d", len(cfg.Prompts))
			if cfg.PromptLibrary != "" {
				fmt.Fprintf(out, " (library: %s)", cfg.PromptLibrary)
			}
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "Storage: %s\n", cfg.StorageOrDefault().Backend)

		if len(warnings) > 0 {
			fmt.Fprintf(out, "\nWarnings:\n")
			for _, w := range warnings {
				fmt.Fprintf(out, "  - %s\n", w)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
