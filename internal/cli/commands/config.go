package commands

import (
	"fmt"
	"os"

	"keepwarm/internal/config"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
)

// ConfigCommands creates configuration management commands
func ConfigCommands(globals *Globals) []*cobra.Command {
	commands := []*cobra.Command{}

	// keepwarm config path
	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := globals.ResolveConfigPath()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	commands = append(commands, pathCmd)

	// keepwarm config init
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with the defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")
			path, err := globals.ResolveConfigPath()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("configuration already exists at %s (use --force to overwrite)", path)
			}
			if err := config.DefaultGlobalConfig().Save(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolP("force", "f", false, "Overwrite an existing configuration file")
	commands = append(commands, initCmd)

	// keepwarm config show
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Long:  `Show the configuration after defaults and KEEPWARM_* environment overrides are applied.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")
			path, err := globals.ResolveConfigPath()
			if err != nil {
				return err
			}
			cfg, err := config.LoadGlobalConfigFrom(path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if output == "" || output == "toml" {
				data, err := toml.Marshal(cfg)
				if err != nil {
					return fmt.Errorf("failed to encode TOML: %w", err)
				}
				_, err = out.Write(data)
				return err
			}
			format, err := ParseOutputFormat(output)
			if err != nil {
				return err
			}
			if format == OutputTable {
				return fmt.Errorf("config show supports toml, json or yaml output")
			}
			return writeStructured(out, format, cfg)
		},
	}
	showCmd.Flags().StringP("output", "o", "toml", "Output format: toml, json or yaml")
	commands = append(commands, showCmd)

	// keepwarm config validate [config-file]
	validateCmd := &cobra.Command{
		Use:   "validate [config-file]",
		Short: "Validate a configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := globals.ResolveConfigPath()
			if err != nil {
				return err
			}
			if len(args) > 0 {
				path = args[0]
			}
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("cannot read configuration: %w", err)
			}
			if _, err := config.LoadGlobalConfigFrom(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\n", path)
			return nil
		},
	}
	commands = append(commands, validateCmd)

	return commands
}
