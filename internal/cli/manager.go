package cli

import (
	"context"

	"keepwarm/internal/cli/commands"

	"github.com/spf13/cobra"
)

// Manager handles CLI operations
type Manager struct {
	services commands.Services
	globals  *commands.Globals
	rootCmd  *cobra.Command
}

// New creates a CLI manager. Persistent flags are parsed into globals, which
// svc may read when it lazily builds its components.
func New(svc commands.Services, globals *commands.Globals) *Manager {
	if globals == nil {
		globals = &commands.Globals{}
	}
	m := &Manager{
		services: svc,
		globals:  globals,
		rootCmd:  createRootCommand(globals),
	}
	m.setupCommands()
	return m
}

// Root returns the root command
func (m *Manager) Root() *cobra.Command {
	return m.rootCmd
}

// Execute executes the CLI with the given arguments
func (m *Manager) Execute(args []string) error {
	return m.ExecuteWithContext(context.Background(), args)
}

// ExecuteWithContext executes the CLI with the given arguments and context
func (m *Manager) ExecuteWithContext(ctx context.Context, args []string) error {
	m.rootCmd.SetArgs(args)
	return m.rootCmd.ExecuteContext(ctx)
}

// setupCommands sets up all CLI commands
func (m *Manager) setupCommands() {
	for _, cmd := range commands.InstanceCommands(m.services) {
		m.rootCmd.AddCommand(cmd)
	}
	for _, cmd := range commands.HistoryCommands(m.services) {
		m.rootCmd.AddCommand(cmd)
	}
	for _, cmd := range commands.ServerCommands(m.services) {
		m.rootCmd.AddCommand(cmd)
	}

	configCmd := &cobra.Command{
		Use:     "config",
		Short:   "Configuration management commands",
		Aliases: []string{"cfg"},
	}
	for _, cmd := range commands.ConfigCommands(m.globals) {
		configCmd.AddCommand(cmd)
	}
	m.rootCmd.AddCommand(configCmd)
}
