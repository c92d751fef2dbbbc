package container

import (
	"context"
	"io"
	"strings"

	"keepwarm/internal/validation"
)

// DockerRuntime implements Runtime for Docker
type DockerRuntime struct {
	cliRuntime
}

// NewDockerRuntime creates a new Docker runtime. binary defaults to "docker".
func NewDockerRuntime(executor CommandExecutor, binary string) *DockerRuntime {
	if binary == "" {
		binary = "docker"
	}
	return &DockerRuntime{cliRuntime: newCLIRuntime(RuntimeTypeDocker, binary, executor)}
}

// Logs writes container logs to w
func (r *DockerRuntime) Logs(ctx context.Context, containerID string, opts LogOptions, w io.Writer) error {
	args := []string{"logs"}
	if opts.Tail > 0 {
		args = append(args, "--tail", tailArg(opts.Tail))
	}
	if opts.Follow {
		args = append(args, "-f")
	}
	args = append(args, containerID)
	return r.streamLogs(ctx, containerID, args, w)
}

// Remove force-removes a container
func (r *DockerRuntime) Remove(ctx context.Context, containerID string) error {
	if err := validation.ContainerID(containerID); err != nil {
		return err
	}
	cmd := r.executor.CommandContext(ctx, r.binary, "rm", "-f", containerID)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return newCommandError(r.kind, "remove", containerID, "failed to remove container", output, err)
	}
	return nil
}

// IsRunning reports whether the container exists and is running
func (r *DockerRuntime) IsRunning(ctx context.Context, containerID string) (bool, error) {
	if err := validation.ContainerID(containerID); err != nil {
		return false, err
	}
	cmd := r.executor.CommandContext(ctx, r.binary, "inspect", "--format", "{{.State.Running}}", containerID)
	output, err := cmd.CombinedOutput()
	if err != nil {
		cerr := newCommandError(r.kind, "inspect", containerID, "failed to inspect container", output, err)
		if cerr.Type == ErrorTypeContainerNotFound {
			return false, nil
		}
		return false, cerr
	}
	return strings.TrimSpace(string(output)) == "true", nil
}

// PodmanRuntime implements Runtime for Podman, whose CLI mirrors Docker's
type PodmanRuntime struct {
	DockerRuntime
}

// NewPodmanRuntime creates a new Podman runtime. binary defaults to "podman".
func NewPodmanRuntime(executor CommandExecutor, binary string) *PodmanRuntime {
	if binary == "" {
		binary = "podman"
	}
	return &PodmanRuntime{DockerRuntime{cliRuntime: newCLIRuntime(RuntimeTypePodman, binary, executor)}}
}
