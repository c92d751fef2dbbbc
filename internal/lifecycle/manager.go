// Package lifecycle starts, tracks, inspects and stops named worker instances.
//
// A Manager composes a container runtime, the per-instance record store and
// the port discovery engine. It holds no state of its own between calls; every
// liveness answer comes from a fresh runtime query.
package lifecycle

import (
	"context"
	"time"

	"keepwarm/internal/config"
	"keepwarm/internal/container"
	"keepwarm/internal/credentials"
	"keepwarm/internal/deps"
	"keepwarm/internal/discovery"
	"keepwarm/internal/errors"
	"keepwarm/internal/logger"
	"keepwarm/internal/state"
	"keepwarm/internal/workspace"
)

// Journal event kinds
const (
	EventStarted     = "started"
	EventStopped     = "stopped"
	EventStartFailed = "start_failed"
	EventStopFailed  = "stop_failed"
)

// Store persists instance records keyed by name
type Store interface {
	Get(name string) (*state.Record, error)
	Put(rec *state.Record) error
	Delete(name string) error
	List() ([]*state.Record, error)
}

// Journal records lifecycle transitions. Failures are logged and never fail
// the operation that produced the event.
type Journal interface {
	RecordEvent(ctx context.Context, instance, event, containerID string, port int, detail string) error
}

// WorkspaceResolver picks the host directory mounted into a worker
type WorkspaceResolver interface {
	Resolve() (*workspace.Workspace, error)
}

// DependencyPlanner derives install steps from an aux config file
type DependencyPlanner func(path string) ([]string, error)

// Options wires a Manager to its collaborators
type Options struct {
	Runtime     container.Runtime
	Store       Store
	Credentials credentials.Provider
	Workspace   WorkspaceResolver
	Deps        DependencyPlanner // defaults to deps.Plan
	Journal     Journal           // optional
	Worker      config.WorkerConfig
	Discovery   discovery.Config
	Now         func() time.Time
}

// Manager implements the instance lifecycle operations
type Manager struct {
	runtime     container.Runtime
	store       Store
	credentials credentials.Provider
	workspace   WorkspaceResolver
	deps        DependencyPlanner
	journal     Journal
	worker      config.WorkerConfig
	discovery   discovery.Config
	now         func() time.Time
}

// New creates a Manager. The runtime is fixed for the Manager's lifetime.
func New(opts Options) (*Manager, error) {
	if opts.Runtime == nil {
		return nil, errors.RuntimeUnavailable("", nil)
	}
	if opts.Store == nil {
		return nil, errors.New(errors.ErrInternal, "lifecycle manager requires a state store")
	}
	if opts.Workspace == nil {
		opts.Workspace = workspace.NewResolver("")
	}
	if opts.Deps == nil {
		opts.Deps = deps.Plan
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Worker.ContainerPrefix == "" {
		opts.Worker.ContainerPrefix = config.DefaultGlobalConfig().Worker.ContainerPrefix
	}

	return &Manager{
		runtime:     opts.Runtime,
		store:       opts.Store,
		credentials: opts.Credentials,
		workspace:   opts.Workspace,
		deps:        opts.Deps,
		journal:     opts.Journal,
		worker:      opts.Worker,
		discovery:   opts.Discovery,
		now:         opts.Now,
	}, nil
}

// Runtime returns the container runtime this manager drives
func (m *Manager) Runtime() container.Runtime {
	return m.runtime
}

// lookup loads the record for a read path. An unreadable record is reported
// as not found and left on disk.
func (m *Manager) lookup(ctx context.Context, name string) (*state.Record, error) {
	rec, err := m.store.Get(name)
	if err != nil {
		if errors.HasCode(err, errors.ErrStateCorrupt) {
			logger.WithContext(ctx).WithError(err).WithField("instance", name).
				Warn("Ignoring unreadable instance record")
			return nil, errors.InstanceNotFound(name)
		}
		return nil, err
	}
	if rec == nil {
		return nil, errors.InstanceNotFound(name)
	}
	return rec, nil
}

func (m *Manager) recordEvent(ctx context.Context, name, event, handle string, port int, detail string) {
	if m.journal == nil {
		return
	}
	if err := m.journal.RecordEvent(ctx, name, event, handle, port, detail); err != nil {
		logger.WithContext(ctx).WithError(err).WithFields(logger.Fields{
			"instance": name,
			"event":    event,
		}).Warn("Failed to record lifecycle event")
	}
}
