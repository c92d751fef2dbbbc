package commands

import (
	"context"
	"io"

	"keepwarm/internal/config"
	"keepwarm/internal/container"
	"keepwarm/internal/db"
	"keepwarm/internal/lifecycle"
	"keepwarm/internal/state"
)

// InstanceManager is the lifecycle surface the instance commands drive
type InstanceManager interface {
	Start(ctx context.Context, name string, opts lifecycle.StartOptions) (*lifecycle.StartResult, error)
	Stop(ctx context.Context, name string) (*state.Record, error)
	List(ctx context.Context) ([]*lifecycle.InstanceInfo, error)
	Status(ctx context.Context, name string) (*lifecycle.InstanceInfo, error)
	Connect(ctx context.Context, name string, opts lifecycle.ConnectOptions) (*lifecycle.ConnectResult, error)
	Logs(ctx context.Context, name string, opts lifecycle.LogsOptions, w io.Writer) error
	Prune(ctx context.Context) ([]string, error)
	Runtime() container.Runtime
}

// HistoryLister reads the lifecycle journal
type HistoryLister interface {
	List(ctx context.Context, filter db.HistoryFilter) ([]*db.Event, int, error)
}

// Services builds the components a command needs. Construction is lazy so
// that commands which never touch the runtime do not probe for one.
type Services interface {
	Config() (*config.GlobalConfig, error)
	Instances(ctx context.Context) (InstanceManager, error)
	History(ctx context.Context) (HistoryLister, error)
	Serve(ctx context.Context, host string, port int) error
}

// Globals holds the persistent flags shared by every command
type Globals struct {
	Verbose    bool
	Runtime    string
	ConfigPath string
}

// ResolveConfigPath returns the --config override or the XDG default
func (g *Globals) ResolveConfigPath() (string, error) {
	if g != nil && g.ConfigPath != "" {
		return g.ConfigPath, nil
	}
	return config.GetConfigPath()
}
