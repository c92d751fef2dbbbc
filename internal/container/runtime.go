package container

import (
	"context"
	"io"
	"os/exec"
	"runtime"

	"keepwarm/internal/errors"
	"keepwarm/internal/logger"
)

// RuntimeType represents the type of container runtime
type RuntimeType string

const (
	// RuntimeTypeAuto selects the first available runtime
	RuntimeTypeAuto RuntimeType = "auto"
	// RuntimeTypeDocker represents Docker runtime
	RuntimeTypeDocker RuntimeType = "docker"
	// RuntimeTypePodman represents Podman runtime
	RuntimeTypePodman RuntimeType = "podman"
	// RuntimeTypeApple represents Apple's container CLI
	RuntimeTypeApple RuntimeType = "apple"
)

// Runtime defines the interface for container operations.
// Every method queries the runtime afresh; nothing is cached between calls.
type Runtime interface {
	// GetType returns the runtime type
	GetType() RuntimeType

	// IsAvailable checks if the runtime is available on the system
	IsAvailable(ctx context.Context) bool

	// Version returns the runtime CLI version string
	Version(ctx context.Context) (string, error)

	// Run starts a container and returns its handle
	Run(ctx context.Context, config *RunConfig) (string, error)

	// Exec runs a command inside a running container and captures combined output.
	// A non-zero exit of the command is reported in ExecResult, not as an error.
	Exec(ctx context.Context, containerID string, config *ExecConfig) (*ExecResult, error)

	// ExecInteractive runs a command with the given stdio attached and returns its exit code
	ExecInteractive(ctx context.Context, containerID string, config *ExecConfig, stdio Stdio) (int, error)

	// Logs writes container logs to w. With Follow set it streams until ctx is done.
	Logs(ctx context.Context, containerID string, opts LogOptions, w io.Writer) error

	// Stop stops a container by ID
	Stop(ctx context.Context, containerID string) error

	// Remove removes a container by ID
	Remove(ctx context.Context, containerID string) error

	// IsRunning reports whether the container exists and is running
	IsRunning(ctx context.Context, containerID string) (bool, error)
}

// RunConfig holds configuration for starting a container
type RunConfig struct {
	Name         string
	Image        string
	Labels       map[string]string
	WorkingDir   string
	EnvVars      []string // Environment variables in KEY=VALUE format
	Volumes      []string // Volume mounts in HOST:CONTAINER[:ro] format
	Ports        []string // Port mappings in HOST:CONTAINER format
	Command      []string // Overrides the image command
	Detached     bool     // Run in the background and return immediately
	RemoveOnExit bool     // Remove the container once it stops
}

// ExecConfig holds configuration for running a command in a container
type ExecConfig struct {
	Command    []string
	WorkingDir string
	EnvVars    []string
	TTY        bool // Allocate a pseudo terminal (interactive exec only)
}

// ExecResult is the outcome of a non-interactive exec
type ExecResult struct {
	ExitCode int
	Output   []byte
}

// LogOptions selects which logs to fetch
type LogOptions struct {
	Tail   int // 0 returns everything
	Follow bool
}

// Stdio is the terminal handed to an interactive exec
type Stdio struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// CommandExecutor creates commands; tests substitute it to script runtime CLI output
type CommandExecutor interface {
	CommandContext(ctx context.Context, name string, args ...string) *exec.Cmd
}

// DefaultCommandExecutor implements CommandExecutor using standard exec
type DefaultCommandExecutor struct{}

func (e *DefaultCommandExecutor) CommandContext(ctx context.Context, name string, args ...string) *exec.Cmd {
	return exec.CommandContext(ctx, name, args...)
}

// RuntimeFactory creates runtimes for a given type
type RuntimeFactory struct {
	executor CommandExecutor
	binary   string
}

// NewRuntimeFactory creates a new runtime factory.
// binary overrides the runtime CLI path when non-empty.
func NewRuntimeFactory(executor CommandExecutor, binary string) *RuntimeFactory {
	if executor == nil {
		executor = &DefaultCommandExecutor{}
	}
	return &RuntimeFactory{
		executor: executor,
		binary:   binary,
	}
}

// New returns the runtime for runtimeType without checking availability
func (f *RuntimeFactory) New(runtimeType RuntimeType) (Runtime, error) {
	switch runtimeType {
	case RuntimeTypeDocker:
		return NewDockerRuntime(f.executor, f.binary), nil
	case RuntimeTypePodman:
		return NewPodmanRuntime(f.executor, f.binary), nil
	case RuntimeTypeApple:
		return NewAppleRuntime(f.executor, f.binary), nil
	default:
		return nil, errors.InvalidInput("runtime", "must be auto, docker, podman or apple, got "+string(runtimeType))
	}
}

// CreateForType creates a runtime of the given type and checks it is available
func (f *RuntimeFactory) CreateForType(ctx context.Context, runtimeType RuntimeType) (Runtime, error) {
	rt, err := f.New(runtimeType)
	if err != nil {
		return nil, err
	}
	if !rt.IsAvailable(ctx) {
		return nil, errors.RuntimeUnavailable(string(runtimeType), nil)
	}
	return rt, nil
}

// Select resolves the runtime once for an invocation.
// RuntimeTypeAuto (or empty) picks the first available backend in DetectionOrder.
func (f *RuntimeFactory) Select(ctx context.Context, runtimeType RuntimeType) (Runtime, error) {
	if runtimeType != "" && runtimeType != RuntimeTypeAuto {
		return f.CreateForType(ctx, runtimeType)
	}

	for _, candidate := range DetectionOrder() {
		rt, err := f.New(candidate)
		if err != nil {
			return nil, err
		}
		if rt.IsAvailable(ctx) {
			logger.WithContext(ctx).WithField("runtime", candidate).Debug("Selected container runtime")
			return rt, nil
		}
	}
	return nil, errors.RuntimeUnavailable("", nil)
}

// DetectionOrder is the order auto selection probes runtimes in
func DetectionOrder() []RuntimeType {
	if runtime.GOOS == "darwin" {
		return []RuntimeType{RuntimeTypeApple, RuntimeTypeDocker, RuntimeTypePodman}
	}
	return []RuntimeType{RuntimeTypeDocker, RuntimeTypePodman}
}
