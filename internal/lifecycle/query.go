package lifecycle

import (
	"context"
	"io"
	"time"

	"keepwarm/internal/container"
	"keepwarm/internal/state"
)

// InstanceStatus is the observed state of an instance's container
type InstanceStatus string

const (
	StatusRunning InstanceStatus = "Running"
	StatusStopped InstanceStatus = "Stopped"
)

// InstanceInfo is one instance as observed right now
type InstanceInfo struct {
	Name            string         `json:"name" yaml:"name"`
	Status          InstanceStatus `json:"status" yaml:"status"`
	Port            int            `json:"port" yaml:"port"`
	ContainerHandle string         `json:"containerHandle" yaml:"containerHandle"`
	ContainerLabel  string         `json:"containerLabel" yaml:"containerLabel"`
	Model           string         `json:"model,omitempty" yaml:"model,omitempty"`
	LogLevel        string         `json:"logLevel" yaml:"logLevel"`
	StartedAt       time.Time      `json:"startedAt" yaml:"startedAt"`
	UptimeSeconds   int64          `json:"uptimeSeconds,omitempty" yaml:"uptimeSeconds,omitempty"`
	WorkspacePath   string         `json:"workspacePath" yaml:"workspacePath"`
	AuxConfigPath   string         `json:"auxConfigPath,omitempty" yaml:"auxConfigPath,omitempty"`
}

// Running reports whether the container was live when observed
func (i *InstanceInfo) Running() bool {
	return i.Status == StatusRunning
}

// Uptime is zero unless the instance is running
func (i *InstanceInfo) Uptime() time.Duration {
	return time.Duration(i.UptimeSeconds) * time.Second
}

// LogsOptions selects which logs Logs writes
type LogsOptions struct {
	Tail   int
	Follow bool
}

// List returns every recorded instance sorted by name, each with a fresh
// liveness check. Records whose container is gone are listed as stopped.
func (m *Manager) List(ctx context.Context) ([]*InstanceInfo, error) {
	records, err := m.store.List()
	if err != nil {
		return nil, err
	}

	infos := make([]*InstanceInfo, 0, len(records))
	for _, rec := range records {
		info, err := m.observe(ctx, rec)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Status returns one instance with a fresh liveness check
func (m *Manager) Status(ctx context.Context, name string) (*InstanceInfo, error) {
	rec, err := m.lookup(ctx, name)
	if err != nil {
		return nil, err
	}
	return m.observe(ctx, rec)
}

// Logs writes the instance's container logs to w. With Follow set it streams
// until ctx is cancelled.
func (m *Manager) Logs(ctx context.Context, name string, opts LogsOptions, w io.Writer) error {
	rec, err := m.lookup(ctx, name)
	if err != nil {
		return err
	}
	return m.runtime.Logs(ctx, rec.ContainerHandle, container.LogOptions{Tail: opts.Tail, Follow: opts.Follow}, w)
}

func (m *Manager) observe(ctx context.Context, rec *state.Record) (*InstanceInfo, error) {
	running, err := m.runtime.IsRunning(ctx, rec.ContainerHandle)
	if err != nil {
		return nil, err
	}

	info := &InstanceInfo{
		Name:            rec.InstanceName,
		Status:          StatusStopped,
		Port:            rec.Port,
		ContainerHandle: rec.ContainerHandle,
		ContainerLabel:  rec.ContainerLabel,
		Model:           rec.Model,
		LogLevel:        rec.LogLevel,
		StartedAt:       rec.StartedAt,
		WorkspacePath:   rec.WorkspacePath,
		AuxConfigPath:   rec.AuxConfigPath,
	}
	if running {
		info.Status = StatusRunning
		if up := m.now().Sub(rec.StartedAt); up > 0 {
			info.UptimeSeconds = int64(up / time.Second)
		}
	}
	return info, nil
}
