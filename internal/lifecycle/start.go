package lifecycle

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"keepwarm/internal/constants"
	"keepwarm/internal/container"
	"keepwarm/internal/deps"
	"keepwarm/internal/discovery"
	"keepwarm/internal/errors"
	"keepwarm/internal/logger"
	"keepwarm/internal/state"
	"keepwarm/internal/validation"
)

// StartOptions are the caller's choices for a new instance
type StartOptions struct {
	Port          int // 0 discovers the port the worker picks
	Model         string
	LogLevel      string
	AuxConfigPath string
	SkipDeps      bool
}

// StartResult describes a started instance
type StartResult struct {
	Record     *state.Record
	Discovered bool // the port came from port discovery
	Branch     string
}

// launchSpec is everything both launches of a Start share
type launchSpec struct {
	name      string
	label     string
	env       []string
	volumes   []string
	model     string
	logLevel  string
	installs  []string
	workspace string
	auxConfig string
}

// Start launches a worker for name and records it.
//
// Without an explicit port the worker is first launched with nothing
// published, its port is discovered from its logs, and it is relaunched with
// that port published on the same host port.
func (m *Manager) Start(ctx context.Context, name string, opts StartOptions) (*StartResult, error) {
	if err := validation.InstanceName(name); err != nil {
		return nil, err
	}
	if opts.Port != 0 {
		if err := validation.PortNumber(opts.Port); err != nil {
			return nil, err
		}
	}
	log := logger.WithContext(ctx).WithField("instance", name)

	previous, err := m.store.Get(name)
	if err != nil {
		if !errors.HasCode(err, errors.ErrStateCorrupt) {
			return nil, err
		}
		log.WithError(err).Warn("Replacing unreadable instance record")
		previous = nil
	}
	previousHandle := ""
	if previous != nil {
		running, err := m.runtime.IsRunning(ctx, previous.ContainerHandle)
		if err != nil {
			return nil, err
		}
		if running {
			return nil, errors.AlreadyRunning(name, previous.Port, previous.ContainerHandle)
		}
		previousHandle = previous.ContainerHandle
		log.WithField("container_id", previousHandle).Debug("Replacing stale instance record")
		if err := m.runtime.Remove(ctx, previousHandle); err != nil && !container.IsNotFound(err) {
			container.LogContainerWarning(ctx, err, "remove stale container")
		}
	}

	spec, branch, err := m.prepareLaunch(ctx, name, opts)
	if err != nil {
		return nil, err
	}

	port := opts.Port
	discovered := false
	if port == 0 {
		port, err = m.discoverPort(ctx, spec)
		if err != nil {
			return nil, err
		}
		discovered = true
		log.WithField("port", port).Info("Discovered worker port")
	}

	handle, err := m.launch(ctx, spec, port)
	if err != nil {
		m.recordEvent(ctx, name, EventStartFailed, "", port, err.Error())
		return nil, err
	}

	// Two Starts for the same name can race past the liveness check; the last
	// write wins and the earlier container is left unrecorded.
	if current, err := m.store.Get(name); err == nil && current != nil && current.ContainerHandle != previousHandle {
		log.WithFields(logger.Fields{
			"overwritten_container": current.ContainerHandle,
			"container_id":          handle,
		}).Warn("Another start wrote this instance concurrently; overwriting its record")
	}

	rec := &state.Record{
		InstanceName:    name,
		ContainerHandle: handle,
		ContainerLabel:  spec.label,
		Port:            port,
		Model:           spec.model,
		LogLevel:        spec.logLevel,
		StartedAt:       m.now().UTC(),
		WorkspacePath:   spec.workspace,
		AuxConfigPath:   spec.auxConfig,
	}
	if err := m.store.Put(rec); err != nil {
		if stopErr := m.runtime.Stop(context.WithoutCancel(ctx), handle); stopErr != nil && !container.IsNotFound(stopErr) {
			container.LogContainerWarning(ctx, stopErr, "stop unrecorded container")
		}
		m.recordEvent(ctx, name, EventStartFailed, handle, port, err.Error())
		return nil, err
	}

	detail := "explicit port"
	if discovered {
		detail = "discovered port"
	}
	m.recordEvent(ctx, name, EventStarted, handle, port, detail)
	log.WithFields(logger.Fields{"port": port, "container_id": handle}).Info("Instance started")

	return &StartResult{Record: rec, Discovered: discovered, Branch: branch}, nil
}

// prepareLaunch resolves everything external a launch needs
func (m *Manager) prepareLaunch(ctx context.Context, name string, opts StartOptions) (*launchSpec, string, error) {
	var env []string
	if m.credentials != nil {
		creds, err := m.credentials.Resolve(ctx)
		if err != nil {
			return nil, "", err
		}
		env = append(env, creds...)
	}

	ws, err := m.workspace.Resolve()
	if err != nil {
		return nil, "", errors.CredentialUnavailable("failed to resolve workspace", err)
	}

	spec := &launchSpec{
		name:      name,
		label:     state.ContainerLabel(m.worker.ContainerPrefix, name),
		model:     opts.Model,
		logLevel:  opts.LogLevel,
		workspace: ws.Path,
	}
	if spec.logLevel == "" {
		spec.logLevel = m.worker.DefaultLogLevel
	}

	workDir := m.worker.WorkDir
	if workDir == "" {
		workDir = "/workspace"
	}
	spec.volumes = []string{ws.Path + ":" + workDir}

	if opts.AuxConfigPath != "" {
		auxPath, err := filepath.Abs(opts.AuxConfigPath)
		if err != nil {
			return nil, "", errors.InvalidInput("aux-config", err.Error())
		}
		if info, err := os.Stat(auxPath); err != nil || info.IsDir() {
			return nil, "", errors.InvalidInput("aux-config", fmt.Sprintf("%s is not a readable file", auxPath))
		}
		spec.auxConfig = auxPath
		if m.worker.AuxConfigTarget != "" {
			spec.volumes = append(spec.volumes, auxPath+":"+m.worker.AuxConfigTarget+":ro")
		}
		if !opts.SkipDeps {
			steps, err := m.deps(auxPath)
			if err != nil {
				return nil, "", err
			}
			spec.installs = steps
		}
	}

	env = append(env, m.worker.Env...)
	env = append(env, "KEEPWARM_INSTANCE="+name)
	spec.env = env

	return spec, ws.Branch, nil
}

// workerCommand builds the worker's argv; port 0 leaves the port to the worker
func (m *Manager) workerCommand(spec *launchSpec, port int) []string {
	argv := append([]string(nil), m.worker.Command...)
	if m.worker.HostFlag != "" && m.worker.Host != "" {
		argv = append(argv, m.worker.HostFlag, m.worker.Host)
	}
	if m.worker.ModelFlag != "" && spec.model != "" {
		argv = append(argv, m.worker.ModelFlag, spec.model)
	}
	if m.worker.LogLevelFlag != "" && spec.logLevel != "" {
		argv = append(argv, m.worker.LogLevelFlag, spec.logLevel)
	}
	if port > 0 {
		argv = append(argv, m.worker.PortFlag, strconv.Itoa(port))
	}
	return deps.WrapCommand(spec.installs, argv)
}

func (m *Manager) runConfig(spec *launchSpec, containerName, phase string, port int) *container.RunConfig {
	cfg := &container.RunConfig{
		Name:  containerName,
		Image: m.worker.Image,
		Labels: map[string]string{
			constants.LabelManaged:  "true",
			constants.LabelInstance: spec.name,
			constants.LabelPhase:    phase,
		},
		WorkingDir: m.worker.WorkDir,
		EnvVars:    spec.env,
		Volumes:    spec.volumes,
		Command:    m.workerCommand(spec, port),
		Detached:   true,
	}
	if port > 0 {
		cfg.Ports = []string{fmt.Sprintf("%d:%d", port, port)}
	}
	return cfg
}

// discoverPort runs the throwaway probe container and returns the port its
// worker announced. The probe is always stopped and removed before returning.
func (m *Manager) discoverPort(ctx context.Context, spec *launchSpec) (int, error) {
	probeName := spec.label + "-" + constants.PhaseProbe
	handle, err := m.runtime.Run(ctx, m.runConfig(spec, probeName, constants.PhaseProbe, 0))
	if err != nil {
		m.recordEvent(ctx, spec.name, EventStartFailed, "", 0, err.Error())
		return 0, errors.LaunchFailed(spec.name, err)
	}
	defer m.removeProbe(ctx, handle)

	engine := discovery.New(m.discovery,
		func(ctx context.Context) (bool, error) {
			return m.runtime.IsRunning(ctx, handle)
		},
		func(ctx context.Context) (string, error) {
			var buf bytes.Buffer
			err := m.runtime.Logs(ctx, handle, container.LogOptions{Tail: constants.DiscoveryLogTail}, &buf)
			return buf.String(), err
		},
	)

	result := engine.Run(ctx)
	if !result.Succeeded() {
		m.recordEvent(ctx, spec.name, EventStartFailed, handle, 0, result.Reason)
		return 0, errors.PortDiscoveryFailed(spec.name, result.Reason, result.Logs)
	}
	return result.Port, nil
}

// removeProbe is best effort; failures are logged and never replace the
// error that ended discovery.
func (m *Manager) removeProbe(ctx context.Context, handle string) {
	ctx = context.WithoutCancel(ctx)
	if err := m.runtime.Stop(ctx, handle); err != nil && !container.IsNotFound(err) {
		container.LogContainerWarning(ctx, err, "stop probe container")
	}
	if err := m.runtime.Remove(ctx, handle); err != nil && !container.IsNotFound(err) {
		container.LogContainerWarning(ctx, err, "remove probe container")
	}
}

// launch starts the serving container with port published and confirms it
// is still running.
func (m *Manager) launch(ctx context.Context, spec *launchSpec, port int) (string, error) {
	cfg := m.runConfig(spec, spec.label, constants.PhaseServe, port)
	cfg.RemoveOnExit = true

	handle, err := m.runtime.Run(ctx, cfg)
	if err != nil {
		return "", errors.LaunchFailed(spec.name, err)
	}

	running, err := m.runtime.IsRunning(ctx, handle)
	if err == nil && running {
		return handle, nil
	}

	launchErr := errors.LaunchFailed(spec.name, err)
	if err == nil {
		var buf bytes.Buffer
		_ = m.runtime.Logs(ctx, handle, container.LogOptions{Tail: constants.DiscoveryLogTail}, &buf)
		launchErr = errors.LaunchFailed(spec.name, fmt.Errorf("container exited right after launch: %s", lastLines(buf.String(), 5)))
		if logs := strings.TrimSpace(buf.String()); logs != "" {
			launchErr.WithContext(errors.ContextLogs, logs)
		}
	}
	if rmErr := m.runtime.Remove(context.WithoutCancel(ctx), handle); rmErr != nil && !container.IsNotFound(rmErr) {
		container.LogContainerWarning(ctx, rmErr, "remove failed container")
	}
	return "", launchErr
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	out := strings.TrimSpace(strings.Join(lines, "\n"))
	if out == "" {
		return "no output"
	}
	return out
}
