// Package app wires configuration, the container runtime, the state store and
// the history journal into the CLI.
package app

import (
	"context"
	"fmt"

	"keepwarm/internal/cli"
	"keepwarm/internal/cli/commands"
	"keepwarm/internal/config"
	"keepwarm/internal/container"
	"keepwarm/internal/credentials"
	"keepwarm/internal/db"
	"keepwarm/internal/discovery"
	"keepwarm/internal/errors"
	"keepwarm/internal/lazy"
	"keepwarm/internal/lifecycle"
	"keepwarm/internal/logger"
	"keepwarm/internal/server"
	"keepwarm/internal/state"
	"keepwarm/internal/validation"
	"keepwarm/internal/workspace"
)

// RuntimeSelector picks the container runtime for one invocation
type RuntimeSelector func(ctx context.Context, cfg *config.GlobalConfig, runtimeType string) (container.Runtime, error)

// App represents the main application. It implements commands.Services and
// builds each component the first time a command asks for it.
type App struct {
	Globals       *commands.Globals
	CLI           *cli.Manager
	SelectRuntime RuntimeSelector

	cfg      *lazy.Value[*config.GlobalConfig]
	manager  *lazy.Value[*lifecycle.Manager]
	database *lazy.Value[*db.DB]
}

// New creates a new application instance
func New() *App {
	a := &App{
		Globals:       &commands.Globals{},
		SelectRuntime: selectRuntime,
	}
	a.cfg = lazy.New(a.loadConfig)
	a.manager = lazy.New(a.buildLifecycle)
	a.database = lazy.New(a.openDatabase)
	a.CLI = cli.New(a, a.Globals)
	return a
}

// Run starts the application
func (a *App) Run(args []string) error {
	return a.RunWithContext(context.Background(), args)
}

// RunWithContext executes one CLI invocation and releases what it opened
func (a *App) RunWithContext(ctx context.Context, args []string) error {
	defer a.Close()
	return a.CLI.ExecuteWithContext(ctx, args)
}

// Close releases the history database if one was opened
func (a *App) Close() error {
	if database, ok := a.database.Reset(); ok {
		return database.Close()
	}
	return nil
}

// Config loads config.toml once per invocation
func (a *App) Config() (*config.GlobalConfig, error) {
	return a.cfg.Get(context.Background())
}

func (a *App) loadConfig(ctx context.Context) (*config.GlobalConfig, error) {
	path, err := a.Globals.ResolveConfigPath()
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadGlobalConfigFrom(path)
	if err != nil {
		return nil, err
	}
	if !a.Globals.Verbose {
		logger.SetLevel(cfg.LogLevel)
	}
	logger.WithContext(ctx).WithField("path", path).Debug("Loaded configuration")
	return cfg, nil
}

// Instances builds the lifecycle manager on the selected runtime
func (a *App) Instances(ctx context.Context) (commands.InstanceManager, error) {
	mgr, err := a.manager.Get(ctx)
	if err != nil {
		return nil, err
	}
	return mgr, nil
}

func (a *App) buildLifecycle(ctx context.Context) (*lifecycle.Manager, error) {
	cfg, err := a.cfg.Get(ctx)
	if err != nil {
		return nil, err
	}

	runtimeType := cfg.Runtime.Type
	if a.Globals.Runtime != "" {
		runtimeType = a.Globals.Runtime
	}
	rt, err := a.SelectRuntime(ctx, cfg, runtimeType)
	if err != nil {
		return nil, err
	}

	store, err := state.NewFileStore(cfg.State.Dir)
	if err != nil {
		return nil, err
	}

	patterns, err := discovery.CompilePatterns(cfg.Discovery.Patterns)
	if err != nil {
		return nil, errors.ConfigInvalid(err.Error())
	}

	opts := lifecycle.Options{
		Runtime:     rt,
		Store:       store,
		Credentials: credentials.NewEnvProvider(cfg.Credentials.Env, cfg.Credentials.File),
		Workspace:   workspace.NewResolver(""),
		Worker:      cfg.Worker,
		Discovery: discovery.Config{
			Timeout:  cfg.Discovery.Timeout(),
			Interval: cfg.Discovery.Interval(),
			Patterns: patterns,
		},
	}

	// The journal is best effort: an unusable database never blocks a start
	if cfg.History.Enabled {
		if database, err := a.database.Get(ctx); err != nil {
			logger.WithContext(ctx).WithError(err).Warn("History journal unavailable; continuing without it")
		} else {
			opts.Journal = db.NewHistoryRepository(database, string(rt.GetType()))
		}
	}

	return lifecycle.New(opts)
}

// History opens the lifecycle journal for reading
func (a *App) History(ctx context.Context) (commands.HistoryLister, error) {
	cfg, err := a.cfg.Get(ctx)
	if err != nil {
		return nil, err
	}
	if !cfg.History.Enabled {
		return nil, errors.ConfigInvalid("the history journal is disabled").
			WithHint("set enabled = true in the [history] section of config.toml")
	}
	database, err := a.database.Get(ctx)
	if err != nil {
		return nil, err
	}
	return db.NewHistoryRepository(database, ""), nil
}

func (a *App) openDatabase(ctx context.Context) (*db.DB, error) {
	cfg, err := a.cfg.Get(ctx)
	if err != nil {
		return nil, err
	}
	dbConfig := db.DefaultConfig()
	dbConfig.DSN = cfg.History.Path
	return db.Open(dbConfig)
}

// Serve runs the HTTP API until ctx is cancelled
func (a *App) Serve(ctx context.Context, host string, port int) error {
	if err := validation.PortNumber(port); err != nil {
		return err
	}
	mgr, err := a.manager.Get(ctx)
	if err != nil {
		return err
	}
	runtimeName := string(mgr.Runtime().GetType())

	// Leave both nil rather than typed nil pointers when the journal is off
	var (
		history  server.HistoryLister
		database server.Database
	)
	if opened, ok := a.database.Loaded(); ok {
		history = db.NewHistoryRepository(opened, runtimeName)
		database = opened
	}

	srvConfig := server.DefaultConfig()
	srvConfig.Host = host
	srvConfig.Port = port

	srv := server.New(srvConfig, mgr, history, database, runtimeName)
	fmt.Printf("keepwarm API listening on http://%s:%d (swagger at /swagger/index.html)\n", host, port)
	return srv.Start(ctx)
}

// selectRuntime resolves the runtime from the real CLI backends
func selectRuntime(ctx context.Context, cfg *config.GlobalConfig, runtimeType string) (container.Runtime, error) {
	factory := container.NewRuntimeFactory(&container.DefaultCommandExecutor{}, cfg.Runtime.Binary)
	return factory.Select(ctx, container.RuntimeType(runtimeType))
}
