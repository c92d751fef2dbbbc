package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"keepwarm/internal/errors"
	"keepwarm/internal/lifecycle"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// OutputFormat selects how query commands render their result
type OutputFormat string

const (
	OutputTable OutputFormat = "table"
	OutputJSON  OutputFormat = "json"
	OutputYAML  OutputFormat = "yaml"
)

// ParseOutputFormat validates an --output value
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "", OutputTable:
		return OutputTable, nil
	case OutputJSON, OutputYAML:
		return f, nil
	}
	return "", errors.InvalidInput("output", fmt.Sprintf("unknown format %q, expected table, json or yaml", s)).
		WithHint("Use --output table, --output json or --output yaml")
}

// writeStructured encodes v as JSON or YAML
func writeStructured(w io.Writer, format OutputFormat, v interface{}) error {
	switch format {
	case OutputJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case OutputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		return enc.Close()
	}
	return fmt.Errorf("unsupported structured format %q", format)
}

// statusStyler colors instance states when w is a color capable terminal
type statusStyler struct {
	running lipgloss.Style
	stopped lipgloss.Style
}

func newStatusStyler(w io.Writer) statusStyler {
	r := lipgloss.NewRenderer(w)
	return statusStyler{
		running: r.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		stopped: r.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

func (s statusStyler) render(status lifecycle.InstanceStatus) string {
	if status == lifecycle.StatusRunning {
		return s.running.Render(string(status))
	}
	return s.stopped.Render(string(status))
}

// printInstanceTable writes one row per instance. STATUS is the last column
// so color escapes never skew the tabwriter alignment.
func printInstanceTable(w io.Writer, instances []*lifecycle.InstanceInfo) error {
	styler := newStatusStyler(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tPORT\tUPTIME\tCONTAINER\tWORKSPACE\tSTATUS")
	for _, info := range instances {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\n",
			info.Name,
			info.Port,
			formatUptime(info),
			shortHandle(info.ContainerHandle),
			info.WorkspacePath,
			styler.render(info.Status),
		)
	}
	return tw.Flush()
}

// printInstanceDetail writes a single instance as aligned key/value lines
func printInstanceDetail(w io.Writer, info *lifecycle.InstanceInfo) error {
	styler := newStatusStyler(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Name:\t%s\n", info.Name)
	fmt.Fprintf(tw, "Status:\t%s\n", styler.render(info.Status))
	fmt.Fprintf(tw, "Port:\t%d\n", info.Port)
	fmt.Fprintf(tw, "Uptime:\t%s\n", formatUptime(info))
	fmt.Fprintf(tw, "Container:\t%s (%s)\n", info.ContainerLabel, shortHandle(info.ContainerHandle))
	if info.Model != "" {
		fmt.Fprintf(tw, "Model:\t%s\n", info.Model)
	}
	fmt.Fprintf(tw, "Log level:\t%s\n", info.LogLevel)
	fmt.Fprintf(tw, "Started:\t%s\n", info.StartedAt.Local().Format(time.RFC3339))
	fmt.Fprintf(tw, "Workspace:\t%s\n", info.WorkspacePath)
	if info.AuxConfigPath != "" {
		fmt.Fprintf(tw, "Aux config:\t%s\n", info.AuxConfigPath)
	}
	return tw.Flush()
}

// formatUptime renders "-" for instances that are not live
func formatUptime(info *lifecycle.InstanceInfo) string {
	if !info.Running() {
		return "-"
	}
	return info.Uptime().Truncate(time.Second).String()
}

func shortHandle(handle string) string {
	if len(handle) > 12 {
		return handle[:12]
	}
	return handle
}

// isTerminal reports whether f is attached to a terminal
func isTerminal(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}
