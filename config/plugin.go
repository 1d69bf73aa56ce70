package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// Plugin is an external solver binary. Either path points at the binary, or
// version selects an installed copy under the plugins directory.
type Plugin struct {
	Name     string            `hcl:"name,label"`
	Path     string            `hcl:"path,optional"`
	Version  string            `hcl:"version,optional"`
	Settings map[string]string `hcl:"settings,optional"`
}

// semverRegex matches versions like v1.0.0 or 0.1.0-beta, plus "local".
var semverRegex = regexp.MustCompile(`^(local|v?\d+\.\d+\.\d+(-[a-zA-Z0-9.-]+)?(\+[a-zA-Z0-9.-]+)?)$`)

func (p *Plugin) Validate() error {
	if p.Path == "" && p.Version == "" {
		return fmt.Errorf("one of path or version is required")
	}
	if p.Path != "" && p.Version != "" {
		return fmt.Errorf("path and version are mutually exclusive")
	}
	if p.Version != "" && !semverRegex.MatchString(p.Version) {
		return fmt.Errorf("invalid version '%s': must be 'local' or semantic version (e.g., v1.0.0)", p.Version)
	}
	return nil
}

// BinaryPath is where the plugin executable is expected.
func (p *Plugin) BinaryPath() (string, error) {
	if p.Path != "" {
		return p.Path, nil
	}
	home, err := homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "plugins", p.Name, p.Version, "plugin"), nil
}

// homeDir is ~/.taskweave unless TASKWEAVE_HOME overrides it.
func homeDir() (string, error) {
	if dir := os.Getenv("TASKWEAVE_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".taskweave"), nil
}
