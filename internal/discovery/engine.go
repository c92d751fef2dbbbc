// Package discovery finds the port a freshly started worker bound to by
// polling its logs for an announcement line.
package discovery

import (
	"context"
	"regexp"
	"sync"
	"time"

	"keepwarm/internal/constants"
	"keepwarm/internal/errors"
	"keepwarm/internal/logger"
)

// State is the engine's position in its state machine
type State string

const (
	StatePolling   State = "polling"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// LivenessFunc reports whether the probed container is still running
type LivenessFunc func(ctx context.Context) (bool, error)

// LogFetchFunc returns the probed container's logs so far
type LogFetchFunc func(ctx context.Context) (string, error)

// Config controls how long and how often the engine polls
type Config struct {
	Timeout  time.Duration
	Interval time.Duration
	Patterns []*regexp.Regexp
}

// DefaultConfig polls every 500ms for up to 30s using the built-in patterns
func DefaultConfig() Config {
	return Config{
		Timeout:  constants.DefaultDiscoveryTimeout,
		Interval: constants.DefaultDiscoveryInterval,
		Patterns: BuiltinPatterns(),
	}
}

// Result is the terminal outcome of a discovery run
type Result struct {
	State    State
	Port     int
	Reason   string // errors.ReasonTimeout, ReasonContainerExited or ReasonCancelled
	Logs     string // last logs fetched, kept for diagnostics
	Attempts int
	Elapsed  time.Duration
}

// Succeeded reports whether a port was found
func (r Result) Succeeded() bool {
	return r.State == StateSucceeded
}

// Engine polls one container. It is single use.
type Engine struct {
	config    Config
	isRunning LivenessFunc
	fetchLogs LogFetchFunc

	mu    sync.Mutex
	state State
}

// New creates an engine. Zero config fields fall back to DefaultConfig.
func New(config Config, isRunning LivenessFunc, fetchLogs LogFetchFunc) *Engine {
	defaults := DefaultConfig()
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if len(config.Patterns) == 0 {
		config.Patterns = defaults.Patterns
	}
	return &Engine{
		config:    config,
		isRunning: isRunning,
		fetchLogs: fetchLogs,
		state:     StatePolling,
	}
}

// State returns the current state
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) finish(result Result, started time.Time) Result {
	e.mu.Lock()
	e.state = result.State
	e.mu.Unlock()
	result.Elapsed = time.Since(started)
	return result
}

// Run polls until the port is announced, the container exits, the timeout
// elapses or ctx is cancelled. The first poll happens immediately.
func (e *Engine) Run(ctx context.Context) Result {
	started := time.Now()
	log := logger.WithContext(ctx).WithField("component", "discovery")

	pollCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	ticker := time.NewTicker(e.config.Interval)
	defer ticker.Stop()

	var lastLogs string
	attempts := 0
	for {
		attempts++

		running, err := e.isRunning(pollCtx)
		if err != nil {
			log.WithError(err).Debug("Liveness check failed, retrying")
		} else if !running {
			if logs, ferr := e.fetchLogs(pollCtx); ferr == nil && logs != "" {
				lastLogs = logs
			}
			return e.finish(Result{
				State:    StateFailed,
				Reason:   errors.ReasonContainerExited,
				Logs:     lastLogs,
				Attempts: attempts,
			}, started)
		}

		if err == nil {
			logs, ferr := e.fetchLogs(pollCtx)
			switch {
			case ferr != nil:
				log.WithError(ferr).Debug("Log fetch failed, retrying")
			case logs != "":
				lastLogs = logs
				if port, ok := ExtractPort(logs, e.config.Patterns); ok {
					log.WithFields(logger.Fields{"port": port, "attempts": attempts}).Debug("Discovered port")
					return e.finish(Result{
						State:    StateSucceeded,
						Port:     port,
						Logs:     lastLogs,
						Attempts: attempts,
					}, started)
				}
			}
		}

		select {
		case <-pollCtx.Done():
			reason := errors.ReasonTimeout
			if ctx.Err() != nil {
				reason = errors.ReasonCancelled
			}
			return e.finish(Result{
				State:    StateFailed,
				Reason:   reason,
				Logs:     lastLogs,
				Attempts: attempts,
			}, started)
		case <-ticker.C:
		}
	}
}
