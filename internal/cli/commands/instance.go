package commands

import (
	"fmt"
	"os"

	"keepwarm/internal/constants"
	"keepwarm/internal/container"
	"keepwarm/internal/errors"
	"keepwarm/internal/lifecycle"

	"github.com/spf13/cobra"
)

// InstanceCommands creates the instance lifecycle commands
func InstanceCommands(svc Services) []*cobra.Command {
	commands := []*cobra.Command{}

	// keepwarm start --name N
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start a named worker instance",
		Long: `Start a worker container for the current workspace and record it under a name.
Without --port the worker is launched once to discover the port it picks,
then relaunched with that port published on the host.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			opts := lifecycle.StartOptions{}
			opts.Port, _ = cmd.Flags().GetInt("port")
			opts.Model, _ = cmd.Flags().GetString("model")
			opts.LogLevel, _ = cmd.Flags().GetString("log-level")
			opts.AuxConfigPath, _ = cmd.Flags().GetString("aux-config")
			opts.SkipDeps, _ = cmd.Flags().GetBool("skip-deps")

			mgr, err := svc.Instances(cmd.Context())
			if err != nil {
				return err
			}
			res, err := mgr.Start(cmd.Context(), name, opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			rec := res.Record
			how := "requested"
			if res.Discovered {
				how = "discovered"
			}
			fmt.Fprintf(out, "Started instance '%s' on port %d (%s)\n", rec.InstanceName, rec.Port, how)
			fmt.Fprintf(out, "  Container: %s (%s)\n", rec.ContainerLabel, shortHandle(rec.ContainerHandle))
			if res.Branch != "" {
				fmt.Fprintf(out, "  Workspace: %s [%s]\n", rec.WorkspacePath, res.Branch)
			} else {
				fmt.Fprintf(out, "  Workspace: %s\n", rec.WorkspacePath)
			}
			fmt.Fprintf(out, "\nConnect with '%s connect --name %s'\n", constants.AppName, rec.InstanceName)
			return nil
		},
	}
	startCmd.Flags().StringP("name", "n", "", "Instance name")
	startCmd.Flags().IntP("port", "p", 0, "Port to serve on (discovered when omitted)")
	startCmd.Flags().StringP("model", "m", "", "Model the worker should use")
	startCmd.Flags().String("log-level", "", "Worker log level")
	startCmd.Flags().String("aux-config", "", "MCP server config to mount into the worker")
	startCmd.Flags().Bool("skip-deps", false, "Do not pre-install the aux config's MCP servers")
	_ = startCmd.MarkFlagRequired("name")
	commands = append(commands, startCmd)

	// keepwarm stop --name N
	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop a named instance and forget it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			mgr, err := svc.Instances(cmd.Context())
			if err != nil {
				return err
			}
			rec, err := mgr.Stop(cmd.Context(), name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stopped instance '%s' (port %d)\n", rec.InstanceName, rec.Port)
			return nil
		},
	}
	stopCmd.Flags().StringP("name", "n", "", "Instance name")
	_ = stopCmd.MarkFlagRequired("name")
	commands = append(commands, stopCmd)

	// keepwarm list
	listCmd := &cobra.Command{
		Use:     "list",
		Short:   "List recorded instances",
		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")
			format, err := ParseOutputFormat(output)
			if err != nil {
				return err
			}
			mgr, err := svc.Instances(cmd.Context())
			if err != nil {
				return err
			}
			instances, err := mgr.List(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if format != OutputTable {
				if instances == nil {
					instances = []*lifecycle.InstanceInfo{}
				}
				return writeStructured(out, format, instances)
			}
			if len(instances) == 0 {
				fmt.Fprintf(out, "No instances. Start one with '%s start --name <name>'\n", constants.AppName)
				return nil
			}
			if err := printInstanceTable(out, instances); err != nil {
				return err
			}
			for _, info := range instances {
				if !info.Running() {
					fmt.Fprintf(out, "\nStopped instances keep their record; remove them with '%s prune'\n", constants.AppName)
					break
				}
			}
			return nil
		},
	}
	listCmd.Flags().StringP("output", "o", string(OutputTable), "Output format: table, json or yaml")
	commands = append(commands, listCmd)

	// keepwarm status --name N
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show one instance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			output, _ := cmd.Flags().GetString("output")
			format, err := ParseOutputFormat(output)
			if err != nil {
				return err
			}
			mgr, err := svc.Instances(cmd.Context())
			if err != nil {
				return err
			}
			info, err := mgr.Status(cmd.Context(), name)
			if err != nil {
				return err
			}
			if format != OutputTable {
				return writeStructured(cmd.OutOrStdout(), format, info)
			}
			return printInstanceDetail(cmd.OutOrStdout(), info)
		},
	}
	statusCmd.Flags().StringP("name", "n", "", "Instance name")
	statusCmd.Flags().StringP("output", "o", string(OutputTable), "Output format: table, json or yaml")
	_ = statusCmd.MarkFlagRequired("name")
	commands = append(commands, statusCmd)

	// keepwarm connect --name N [prompt...]
	connectCmd := &cobra.Command{
		Use:   "connect [prompt...]",
		Short: "Run the worker's client against an instance",
		Long: `Run the worker's client inside the instance's container.
By default the terminal is attached and any arguments are passed to the client.
With --no-tty the arguments are sent as a single prompt and the reply is printed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			noTTY, _ := cmd.Flags().GetBool("no-tty")
			if noTTY && len(args) == 0 {
				return errors.InvalidInput("prompt", "--no-tty needs a prompt").
					WithHint("pass the prompt after the flags: '%s connect --name %s --no-tty \"hello\"'", constants.AppName, name)
			}

			mgr, err := svc.Instances(cmd.Context())
			if err != nil {
				return err
			}
			opts := lifecycle.ConnectOptions{
				Interactive: !noTTY,
				TTY:         !noTTY && isTerminal(os.Stdin) && isTerminal(os.Stdout),
				Args:        args,
				Stdio: container.Stdio{
					In:  cmd.InOrStdin(),
					Out: cmd.OutOrStdout(),
					Err: cmd.ErrOrStderr(),
				},
			}
			_, err = mgr.Connect(cmd.Context(), name, opts)
			return err
		},
	}
	connectCmd.Flags().StringP("name", "n", "", "Instance name")
	connectCmd.Flags().Bool("no-tty", false, "Send the arguments as one prompt without attaching a terminal")
	_ = connectCmd.MarkFlagRequired("name")
	commands = append(commands, connectCmd)

	// keepwarm logs --name N
	logsCmd := &cobra.Command{
		Use:   "logs",
		Short: "Show an instance's worker logs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			tail, _ := cmd.Flags().GetInt("tail")
			follow, _ := cmd.Flags().GetBool("follow")
			if tail < 0 {
				return errors.InvalidInput("tail", "must not be negative")
			}

			mgr, err := svc.Instances(cmd.Context())
			if err != nil {
				return err
			}
			err = mgr.Logs(cmd.Context(), name, lifecycle.LogsOptions{Tail: tail, Follow: follow}, cmd.OutOrStdout())
			// Interrupting a follow is the normal way to end it
			if follow && cmd.Context().Err() != nil {
				return nil
			}
			return err
		},
	}
	logsCmd.Flags().StringP("name", "n", "", "Instance name")
	logsCmd.Flags().Int("tail", constants.DefaultLogTailLines, "Number of lines to show from the end (0 for all)")
	logsCmd.Flags().BoolP("follow", "f", false, "Stream new log lines until interrupted")
	_ = logsCmd.MarkFlagRequired("name")
	commands = append(commands, logsCmd)

	// keepwarm prune
	pruneCmd := &cobra.Command{
		Use:   "prune",
		Short: "Forget instances whose container is no longer running",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := svc.Instances(cmd.Context())
			if err != nil {
				return err
			}
			pruned, err := mgr.Prune(cmd.Context())
			for _, name := range pruned {
				fmt.Fprintf(cmd.OutOrStdout(), "Removed record of '%s'\n", name)
			}
			if err != nil {
				return err
			}
			if len(pruned) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to prune")
			}
			return nil
		},
	}
	commands = append(commands, pruneCmd)

	// keepwarm runtime
	runtimeCmd := &cobra.Command{
		Use:   "runtime",
		Short: "Show the selected container runtime",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := svc.Instances(cmd.Context())
			if err != nil {
				return err
			}
			rt := mgr.Runtime()
			version, err := rt.Version(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", rt.GetType(), version)
			return nil
		},
	}
	commands = append(commands, runtimeCmd)

	return commands
}
