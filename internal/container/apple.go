package container

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"os/exec"
	"strings"

	"keepwarm/internal/validation"
)

// AppleRuntime implements Runtime for Apple's container CLI
type AppleRuntime struct {
	cliRuntime
}

// NewAppleRuntime creates a new Apple container runtime. binary defaults to "container".
func NewAppleRuntime(executor CommandExecutor, binary string) *AppleRuntime {
	if binary == "" {
		binary = "container"
	}
	return &AppleRuntime{cliRuntime: newCLIRuntime(RuntimeTypeApple, binary, executor)}
}

// appleInspect is the subset of `container inspect` output we read
type appleInspect struct {
	Status string `json:"status"`
}

// Logs writes container logs to w
func (r *AppleRuntime) Logs(ctx context.Context, containerID string, opts LogOptions, w io.Writer) error {
	args := []string{"logs"}
	if opts.Tail > 0 {
		args = append(args, "-n", tailArg(opts.Tail))
	}
	if opts.Follow {
		args = append(args, "--follow")
	}
	args = append(args, containerID)
	return r.streamLogs(ctx, containerID, args, w)
}

// Remove force-removes a container
func (r *AppleRuntime) Remove(ctx context.Context, containerID string) error {
	if err := validation.ContainerID(containerID); err != nil {
		return err
	}
	cmd := r.executor.CommandContext(ctx, r.binary, "delete", "--force", containerID)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return newCommandError(r.kind, "remove", containerID, "failed to remove container", output, err)
	}
	return nil
}

// IsRunning reports whether the container exists and is running
func (r *AppleRuntime) IsRunning(ctx context.Context, containerID string) (bool, error) {
	if err := validation.ContainerID(containerID); err != nil {
		return false, err
	}
	cmd := r.executor.CommandContext(ctx, r.binary, "inspect", containerID)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if stderrors.As(err, &exitErr) {
			output = append(output, exitErr.Stderr...)
		}
		cerr := newCommandError(r.kind, "inspect", containerID, "failed to inspect container", output, err)
		if cerr.Type == ErrorTypeContainerNotFound {
			return false, nil
		}
		return false, cerr
	}

	var containers []appleInspect
	if err := json.Unmarshal(output, &containers); err != nil {
		return false, newCommandError(r.kind, "inspect", containerID, "failed to parse container info", output, err)
	}
	if len(containers) == 0 {
		return false, nil
	}
	return strings.EqualFold(containers[0].Status, "running"), nil
}
