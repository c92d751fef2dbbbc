package cli

import (
	"keepwarm/internal/cli/commands"
	"keepwarm/internal/logger"

	"github.com/spf13/cobra"
)

// createRootCommand creates the root command with global flags bound to globals
func createRootCommand(globals *commands.Globals) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "keepwarm",
		Short: "Keep AI coding workers warm in containers",
		Long: `keepwarm starts a long-lived worker server inside an isolated container,
records it under a name and lets clients reconnect to the same warm instance.
It supports Docker, Podman and Apple's container CLI.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if globals.Verbose {
				logger.SetLevel("debug")
			}
			cmd.SetContext(logger.NewOperationContext(cmd.Context()))
			logger.WithContext(cmd.Context()).WithField("command", cmd.CommandPath()).Debug("Running command")
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// Default to showing help if no subcommand
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&globals.Verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&globals.Runtime, "runtime", "", "Container runtime: auto, docker, podman or apple")
	rootCmd.PersistentFlags().StringVar(&globals.ConfigPath, "config", "", "Path to config.toml")

	return rootCmd
}
