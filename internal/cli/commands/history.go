package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"keepwarm/internal/constants"
	"keepwarm/internal/db"
	"keepwarm/internal/errors"

	"github.com/spf13/cobra"
)

// HistoryCommands creates the lifecycle journal commands
func HistoryCommands(svc Services) []*cobra.Command {
	commands := []*cobra.Command{}

	// keepwarm history [--name N] [--limit K]
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent instance lifecycle events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			limit, _ := cmd.Flags().GetInt("limit")
			output, _ := cmd.Flags().GetString("output")
			format, err := ParseOutputFormat(output)
			if err != nil {
				return err
			}

			filter := db.HistoryFilter{
				InstanceName:      name,
				PaginationOptions: db.PaginationOptions{Page: 1, PageSize: limit},
			}
			if err := filter.Validate(); err != nil {
				return errors.InvalidInput("limit", "must be between 1 and 500")
			}

			history, err := svc.History(cmd.Context())
			if err != nil {
				return err
			}
			events, total, err := history.List(cmd.Context(), filter)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if format != OutputTable {
				return writeStructured(out, format, db.NewPaginatedResponse(events, filter.PaginationOptions, total))
			}
			if len(events) == 0 {
				fmt.Fprintln(out, "No events recorded")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tINSTANCE\tEVENT\tPORT\tCONTAINER\tDETAIL")
			for _, ev := range events {
				port := "-"
				if ev.Port > 0 {
					port = fmt.Sprint(ev.Port)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					ev.CreatedAt.Local().Format(time.DateTime),
					ev.InstanceName,
					ev.Event,
					port,
					orDash(shortHandle(ev.ContainerID)),
					orDash(truncate(ev.Detail, constants.MaxOutputLength)),
				)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if total > len(events) {
				fmt.Fprintf(out, "\nShowing %d of %d events\n", len(events), total)
			}
			return nil
		},
	}
	historyCmd.Flags().StringP("name", "n", "", "Only show events of this instance")
	historyCmd.Flags().IntP("limit", "l", constants.DefaultHistoryLimit, "Maximum number of events to show")
	historyCmd.Flags().StringP("output", "o", string(OutputTable), "Output format: table, json or yaml")
	commands = append(commands, historyCmd)

	return commands
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
