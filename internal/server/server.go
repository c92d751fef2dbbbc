package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"keepwarm/internal/constants"
	"keepwarm/internal/db"
	"keepwarm/internal/lifecycle"
	"keepwarm/internal/logger"
	"keepwarm/internal/state"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Config holds the server configuration
type Config struct {
	Host            string        `toml:"host"`
	Port            int           `toml:"port"`
	ReadTimeout     time.Duration `toml:"read_timeout"`
	WriteTimeout    time.Duration `toml:"write_timeout"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`

	// CORS settings
	AllowOrigins []string `toml:"allow_origins"`
	AllowHeaders []string `toml:"allow_headers"`
}

// DefaultConfig returns the default server configuration
func DefaultConfig() *Config {
	return &Config{
		Host:            "localhost",
		Port:            constants.DefaultServerPort,
		ReadTimeout:     constants.DefaultServerReadTimeout,
		WriteTimeout:    constants.DefaultServerWriteTimeout,
		ShutdownTimeout: constants.DefaultServerShutdownTimeout,
		AllowOrigins:    []string{"http://localhost", "http://127.0.0.1"},
		AllowHeaders:    []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}
}

// InstanceManager is the lifecycle surface the API exposes
type InstanceManager interface {
	Start(ctx context.Context, name string, opts lifecycle.StartOptions) (*lifecycle.StartResult, error)
	Stop(ctx context.Context, name string) (*state.Record, error)
	List(ctx context.Context) ([]*lifecycle.InstanceInfo, error)
	Status(ctx context.Context, name string) (*lifecycle.InstanceInfo, error)
	Logs(ctx context.Context, name string, opts lifecycle.LogsOptions, w io.Writer) error
}

// HistoryLister reads the lifecycle journal
type HistoryLister interface {
	List(ctx context.Context, filter db.HistoryFilter) ([]*db.Event, int, error)
}

// Database is the subset of the history database the health check reads
type Database interface {
	HealthCheck(ctx context.Context) error
	GetCurrentVersion(ctx context.Context) (*db.MigrationInfo, error)
}

// Server represents the main HTTP server
type Server struct {
	config    *Config
	echo      *echo.Echo
	manager   InstanceManager
	history   HistoryLister
	database  Database
	runtime   string
	startTime time.Time
	routed    bool
}

// New creates a server for manager. history and database may be nil when the
// journal is disabled.
func New(cfg *Config, manager InstanceManager, history HistoryLister, database Database, runtime string) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler

	return &Server{
		config:    cfg,
		echo:      e,
		manager:   manager,
		history:   history,
		database:  database,
		runtime:   runtime,
		startTime: time.Now(),
	}
}

// Echo returns the Echo instance
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	s.setup()
	return s.echo
}

func (s *Server) setup() {
	if s.routed {
		return
	}
	s.routed = true
	s.setupMiddleware()
	s.setupRoutes()
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	s.setup()

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.echo,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("failed to start server: %w", err)
		}
	}()
	logger.WithField("addr", addr).Info("API server listening")

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Logger.Info("Shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	logger.Logger.Info("Server stopped gracefully")
	return nil
}

// setupMiddleware configures all middleware
func (s *Server) setupMiddleware() {
	s.echo.Use(logger.RequestLogger())
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: s.config.AllowOrigins,
		AllowHeaders: s.config.AllowHeaders,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
	}))
}
