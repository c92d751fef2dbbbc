package container

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"sync"

	"keepwarm/internal/validation"
)

// cliRuntime holds what every runtime CLI backend shares: the binary,
// the executor used to spawn it, and the docker-style run/exec/stop syntax
// all three CLIs accept.
type cliRuntime struct {
	kind     RuntimeType
	binary   string
	executor CommandExecutor
}

func newCLIRuntime(kind RuntimeType, binary string, executor CommandExecutor) cliRuntime {
	if executor == nil {
		executor = &DefaultCommandExecutor{}
	}
	return cliRuntime{kind: kind, binary: binary, executor: executor}
}

// GetType returns the runtime type
func (r *cliRuntime) GetType() RuntimeType {
	return r.kind
}

// IsAvailable checks if the runtime CLI can be executed
func (r *cliRuntime) IsAvailable(ctx context.Context) bool {
	cmd := r.executor.CommandContext(ctx, r.binary, "--version")
	return cmd.Run() == nil
}

// Version returns the runtime CLI version string
func (r *cliRuntime) Version(ctx context.Context) (string, error) {
	cmd := r.executor.CommandContext(ctx, r.binary, "--version")
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", newCommandError(r.kind, "version", "", "failed to query runtime version", output, err)
	}
	return strings.TrimSpace(string(output)), nil
}

// Run starts a container. Detached runs return the handle printed by the
// runtime; attached runs block until the container exits and return its name.
func (r *cliRuntime) Run(ctx context.Context, config *RunConfig) (string, error) {
	args, err := r.runArgs(config)
	if err != nil {
		return "", err
	}

	var stdout, stderr bytes.Buffer
	cmd := r.executor.CommandContext(ctx, r.binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		output := append(stderr.Bytes(), stdout.Bytes()...)
		return "", newCommandError(r.kind, "run", config.Name, "failed to start container", output, err)
	}

	if !config.Detached {
		return config.Name, nil
	}

	// Pull progress may precede the handle; it is always the last line
	handle := lastLine(stdout.String())
	if handle == "" {
		handle = config.Name
	}
	return handle, nil
}

func (r *cliRuntime) runArgs(config *RunConfig) ([]string, error) {
	if config.Name == "" {
		return nil, &ContainerError{
			Type:      ErrorTypeConfigError,
			Runtime:   r.kind,
			Operation: "run",
			Message:   "container name is required",
		}
	}
	if config.Image == "" {
		return nil, &ContainerError{
			Type:      ErrorTypeConfigError,
			Runtime:   r.kind,
			Operation: "run",
			Message:   "container image is required",
		}
	}
	if err := validation.ContainerID(config.Name); err != nil {
		return nil, err
	}

	args := []string{"run"}
	if config.Detached {
		args = append(args, "-d")
	}
	if config.RemoveOnExit {
		args = append(args, "--rm")
	}
	args = append(args, "--name", config.Name)

	// Sorted so the command line is deterministic
	keys := make([]string, 0, len(config.Labels))
	for k := range config.Labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "--label", fmt.Sprintf("%s=%s", k, config.Labels[k]))
	}

	if config.WorkingDir != "" {
		args = append(args, "-w", config.WorkingDir)
	}

	for _, env := range config.EnvVars {
		if err := validation.EnvironmentVariable(env); err != nil {
			return nil, err
		}
		args = append(args, "-e", env)
	}

	for _, volume := range config.Volumes {
		args = append(args, "-v", volume)
	}

	for _, port := range config.Ports {
		if err := validation.PortMapping(port); err != nil {
			return nil, err
		}
		args = append(args, "-p", port)
	}

	args = append(args, config.Image)
	args = append(args, config.Command...)
	return args, nil
}

// Exec executes a command in a container and captures combined output
func (r *cliRuntime) Exec(ctx context.Context, containerID string, config *ExecConfig) (*ExecResult, error) {
	if err := validation.ContainerID(containerID); err != nil {
		return nil, err
	}

	args := append([]string{"exec"}, execFlags(config)...)
	args = append(args, containerID)
	args = append(args, config.Command...)

	cmd := r.executor.CommandContext(ctx, r.binary, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if stderrors.As(err, &exitErr) && ctx.Err() == nil {
			return &ExecResult{ExitCode: exitErr.ExitCode(), Output: output}, nil
		}
		return nil, newCommandError(r.kind, "exec", containerID, "failed to exec in container", output, err)
	}
	return &ExecResult{ExitCode: 0, Output: output}, nil
}

// ExecInteractive runs a command with stdio attached.
// The command is not tied to ctx cancellation: an interrupt reaches the child
// through the terminal and the child decides how to exit.
func (r *cliRuntime) ExecInteractive(ctx context.Context, containerID string, config *ExecConfig, stdio Stdio) (int, error) {
	if err := validation.ContainerID(containerID); err != nil {
		return 0, err
	}

	args := []string{"exec", "-i"}
	if config.TTY {
		args = append(args, "-t")
	}
	args = append(args, execFlags(config)...)
	args = append(args, containerID)
	args = append(args, config.Command...)

	cmd := r.executor.CommandContext(context.WithoutCancel(ctx), r.binary, args...)
	cmd.Stdin = stdio.In
	cmd.Stdout = stdio.Out
	cmd.Stderr = stdio.Err

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if stderrors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return 0, newCommandError(r.kind, "exec", containerID, "failed to attach to container", nil, err)
	}
	return 0, nil
}

// Stop stops a container
func (r *cliRuntime) Stop(ctx context.Context, containerID string) error {
	if err := validation.ContainerID(containerID); err != nil {
		return err
	}
	cmd := r.executor.CommandContext(ctx, r.binary, "stop", containerID)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return newCommandError(r.kind, "stop", containerID, "failed to stop container", output, err)
	}
	return nil
}

// streamLogs runs a logs command with its output copied to w
func (r *cliRuntime) streamLogs(ctx context.Context, containerID string, args []string, w io.Writer) error {
	if err := validation.ContainerID(containerID); err != nil {
		return err
	}

	// exec copies stdout and stderr on separate goroutines
	sw := &syncWriter{w: w}
	var stderr bytes.Buffer
	cmd := r.executor.CommandContext(ctx, r.binary, args...)
	cmd.Stdout = sw
	cmd.Stderr = io.MultiWriter(sw, &stderr)
	if err := cmd.Run(); err != nil {
		// A cancelled follow is the normal way to end streaming
		if ctx.Err() != nil {
			return nil
		}
		return newCommandError(r.kind, "logs", containerID, "failed to get container logs", stderr.Bytes(), err)
	}
	return nil
}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func execFlags(config *ExecConfig) []string {
	var args []string
	if config.WorkingDir != "" {
		args = append(args, "-w", config.WorkingDir)
	}
	for _, env := range config.EnvVars {
		args = append(args, "-e", env)
	}
	return args
}

func tailArg(tail int) string {
	return strconv.Itoa(tail)
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
