package lifecycle

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"keepwarm/internal/constants"
	"keepwarm/internal/container"
	"keepwarm/internal/errors"
	"keepwarm/internal/logger"
)

// ConnectOptions controls how a client is run inside an instance
type ConnectOptions struct {
	Interactive bool // hand the terminal to the client
	TTY         bool // allocate a pseudo terminal (interactive only)
	Args        []string
	Stdio       container.Stdio
}

// ConnectResult is the client's outcome. Output is only captured in
// non-interactive mode.
type ConnectResult struct {
	ExitCode int
	Output   []byte
}

// ExitError carries a client's non-zero exit status back to the caller
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("client exited with status %d", e.Code)
}

// Connect runs the worker's client against a live instance. Interactive mode
// passes Args through verbatim; otherwise they are joined into one prompt and
// the combined output is written to Stdio.Out once the client exits.
func (m *Manager) Connect(ctx context.Context, name string, opts ConnectOptions) (*ConnectResult, error) {
	rec, err := m.lookup(ctx, name)
	if err != nil {
		return nil, err
	}

	running, err := m.runtime.IsRunning(ctx, rec.ContainerHandle)
	if err != nil {
		return nil, err
	}
	if !running {
		return nil, errors.NotRunning(name, rec.ContainerHandle)
	}

	command := append([]string(nil), m.worker.ConnectCommand...)
	if m.worker.PortFlag != "" {
		command = append(command, m.worker.PortFlag, strconv.Itoa(rec.Port))
	}

	log := logger.WithContext(ctx).WithFields(logger.Fields{
		"instance":    name,
		"interactive": opts.Interactive,
	})

	if opts.Interactive {
		command = append(command, opts.Args...)
		cfg := &container.ExecConfig{Command: command, WorkingDir: m.worker.WorkDir, TTY: opts.TTY}
		log.Debug("Attaching to instance")

		code, err := m.runtime.ExecInteractive(ctx, rec.ContainerHandle, cfg, opts.Stdio)
		if err != nil {
			return nil, errors.ExecFailed(name, command, err)
		}
		result := &ConnectResult{ExitCode: code}
		// An interrupt the client handled itself is not a failure
		if code != 0 && code != constants.ExitInterrupted {
			return result, &ExitError{Code: code}
		}
		return result, nil
	}

	if len(opts.Args) > 0 {
		if m.worker.PromptFlag != "" {
			command = append(command, m.worker.PromptFlag)
		}
		command = append(command, strings.Join(opts.Args, " "))
	}
	cfg := &container.ExecConfig{Command: command, WorkingDir: m.worker.WorkDir}
	log.Debug("Running client in instance")

	res, err := m.runtime.Exec(ctx, rec.ContainerHandle, cfg)
	if err != nil {
		return nil, errors.ExecFailed(name, command, err)
	}
	if opts.Stdio.Out != nil && len(res.Output) > 0 {
		if _, err := opts.Stdio.Out.Write(res.Output); err != nil {
			return nil, errors.ExecFailed(name, command, err)
		}
	}

	result := &ConnectResult{ExitCode: res.ExitCode, Output: res.Output}
	if res.ExitCode != 0 {
		return result, &ExitError{Code: res.ExitCode}
	}
	return result, nil
}
