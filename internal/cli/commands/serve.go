package commands

import (
	"github.com/spf13/cobra"
)

// ServerCommands creates the API server command
func ServerCommands(svc Services) []*cobra.Command {
	commands := []*cobra.Command{}

	// keepwarm serve [--host H] [--port P]
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the keepwarm HTTP API server",
		Long: `Run the keepwarm HTTP API in the foreground. The API exposes the same
instance operations as the CLI plus a websocket log stream. Host and port
default to the [server] section of config.toml.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := svc.Config()
			if err != nil {
				return err
			}
			host, port := cfg.Server.Host, cfg.Server.Port
			if cmd.Flags().Changed("host") {
				host, _ = cmd.Flags().GetString("host")
			}
			if cmd.Flags().Changed("port") {
				port, _ = cmd.Flags().GetInt("port")
			}
			return svc.Serve(cmd.Context(), host, port)
		},
	}
	serveCmd.Flags().String("host", "", "Interface to listen on")
	serveCmd.Flags().IntP("port", "p", 0, "Port to listen on")
	commands = append(commands, serveCmd)

	return commands
}
