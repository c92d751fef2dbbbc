// Package deps derives package install steps from an MCP-style aux config so
// that a worker starts with its tool servers already installed.
package deps

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"keepwarm/internal/errors"
	"keepwarm/internal/validation"
)

// AuxConfig is the subset of the aux config file that dependency planning reads
type AuxConfig struct {
	MCPServers map[string]MCPServer `json:"mcpServers"`
}

// MCPServer describes how the worker launches one tool server
type MCPServer struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// LoadAuxConfig reads and parses the aux config at path
func LoadAuxConfig(path string) (*AuxConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.InvalidInput("aux-config", fmt.Sprintf("cannot read %s: %v", path, err))
	}

	var cfg AuxConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, errors.InvalidInput("aux-config", fmt.Sprintf("%s is not valid JSON: %v", path, err))
	}
	return &cfg, nil
}

// Steps returns the shell install steps for every npx or uvx server, in
// server name order, with duplicate packages installed once.
func (c *AuxConfig) Steps() []string {
	names := make([]string, 0, len(c.MCPServers))
	for name := range c.MCPServers {
		names = append(names, name)
	}
	sort.Strings(names)

	seen := make(map[string]bool)
	var steps []string
	for _, name := range names {
		step := installStep(c.MCPServers[name])
		if step == "" || seen[step] {
			continue
		}
		seen[step] = true
		steps = append(steps, step)
	}
	return steps
}

// Plan loads the aux config at path and returns its install steps
func Plan(path string) ([]string, error) {
	cfg, err := LoadAuxConfig(path)
	if err != nil {
		return nil, err
	}
	return cfg.Steps(), nil
}

func installStep(server MCPServer) string {
	pkg := firstPackage(server.Args)
	if pkg == "" {
		return ""
	}
	switch commandName(server.Command) {
	case "npx":
		return "npm install -g " + validation.ShellEscape(pkg)
	case "uvx":
		return "uv tool install " + validation.ShellEscape(pkg)
	default:
		return ""
	}
}

// firstPackage returns the package named by --from, --package or -p, else the
// first non-flag argument.
func firstPackage(args []string) string {
	for i, arg := range args {
		if arg == "--from" || arg == "--package" || arg == "-p" {
			if i+1 < len(args) {
				return args[i+1]
			}
			return ""
		}
		if v, ok := strings.CutPrefix(arg, "--package="); ok {
			return v
		}
	}
	for _, arg := range args {
		if !strings.HasPrefix(arg, "-") {
			return arg
		}
	}
	return ""
}

func commandName(command string) string {
	if i := strings.LastIndex(command, "/"); i >= 0 {
		return command[i+1:]
	}
	return command
}

// WrapCommand runs steps in a shell before exec'ing argv. With no steps argv
// is returned unchanged.
func WrapCommand(steps []string, argv []string) []string {
	if len(steps) == 0 {
		return argv
	}
	script := strings.Join(steps, " && ") + ` && exec "$@"`
	wrapped := []string{"sh", "-c", script, "sh"}
	return append(wrapped, argv...)
}
