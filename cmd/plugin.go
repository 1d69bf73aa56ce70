package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"

	"taskweave/config"
	"taskweave/plugin"
)

var pluginCmd = &cobra.Command{
	Use:   "plugin",
	Short: "Plugin management commands",
	Long: `Commands for building and testing solver plugins. A plugin is named
by the path of its binary or by a name installed under ~/.taskweave/plugins.`,
}

// resolvePlugin turns a path or an installed name into a binary path.
func resolvePlugin(cmd *cobra.Command, ref string) (string, string, error) {
	if info, err := os.Stat(ref); err == nil && !info.IsDir() {
		return filepath.Base(ref), ref, nil
	}
	version, _ := cmd.Flags().GetString("version")
	p := config.Plugin{Name: ref, Version: version}
	path, err := p.BinaryPath()
	return ref, path, err
}

func openPlugin(cmd *cobra.Command, ref string) (*plugin.PluginClient, error) {
	name, path, err := resolvePlugin(cmd, ref)
	if err != nil {
		return nil, err
	}
	p, err := plugin.LoadPlugin(name, path, nil, newLogger().Named("plugin"))
	if err != nil {
		return nil, fmt.Errorf("failed to load plugin: %w", err)
	}
	return p, nil
}

var pluginCallCmd = &cobra.Command{
	Use:   "call <plugin> <solver> [input]",
	Short: "Call a solver on a plugin",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := ""
		if len(args) > 2 {
			input = args[2]
		}

		p, err := openPlugin(cmd, args[0])
		if err != nil {
			return err
		}
		defer p.Close()

		result, err := p.Solve(args[1], input)
		if err != nil {
			return fmt.Errorf("plugin call failed: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), result)
		return nil
	},
}

var pluginSolversCmd = &cobra.Command{
	Use:   "solvers <plugin>",
	Short: "List the solvers a plugin provides",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openPlugin(cmd, args[0])
		if err != nil {
			return err
		}
		defer p.Close()

		infos, err := p.List()
		if err != nil {
			return fmt.Errorf("failed to list solvers: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Solvers of plugin '%s':\n", p.Name())
		for _, info := range infos {
			fmt.Fprintf(out, "  - %s: %s\n", info.Name, info.Description)
			if info.Input.Type != "" {
				fmt.Fprintf(out, "    inputs: %s\n", describeSchema(info.Input))
			}
		}
		return nil
	},
}

var pluginBuildCmd = &cobra.Command{
	Use:   "build <plugin-name> <source-path>",
	Short: "Build a plugin from source",
	Long:  `Build a plugin from a Go source directory and install it to ~/.taskweave/plugins/<name>/<version>/plugin`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		pluginName := args[0]
		version, _ := cmd.Flags().GetString("version")

		absSourcePath, err := filepath.Abs(args[1])
		if err != nil {
			return fmt.Errorf("failed to resolve source path: %w", err)
		}
		if _, err := os.Stat(absSourcePath); os.IsNotExist(err) {
			return fmt.Errorf("source path does not exist: %s", absSourcePath)
		}

		p := config.Plugin{Name: pluginName, Version: version}
		if err := p.Validate(); err != nil {
			return err
		}
		outputPath, err := p.BinaryPath()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
			return fmt.Errorf("failed to create plugin directory: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Building plugin '%s' (version: %s)...\n", pluginName, version)
		fmt.Fprintf(out, "  Source: %s\n", absSourcePath)
		fmt.Fprintf(out, "  Output: %s\n", outputPath)

		buildCmd := exec.Command("go", "build", "-o", outputPath, absSourcePath)
		buildCmd.Stdout = os.Stdout
		buildCmd.Stderr = os.Stderr
		if err := buildCmd.Run(); err != nil {
			return fmt.Errorf("build failed: %w", err)
		}

		fmt.Fprintf(out, "Plugin '%s' built successfully!\n", pluginName)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pluginCmd)
	pluginCmd.AddCommand(pluginCallCmd)
	pluginCmd.AddCommand(pluginSolversCmd)
	pluginCmd.AddCommand(pluginBuildCmd)

	pluginCallCmd.Flags().StringP("version", "v", "local", "Installed plugin version to use")
	pluginSolversCmd.Flags().StringP("version", "v", "local", "Installed plugin version to use")
	pluginBuildCmd.Flags().StringP("version", "v", "local", "Plugin version to install as")
}
