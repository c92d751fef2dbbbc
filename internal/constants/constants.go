// Package constants defines application-wide constants to avoid magic numbers
package constants

import "time"

// AppName is the binary name used in hints and suggested commands
const AppName = "keepwarm"

// Network and Port Constants
const (
	// DefaultServerPort is the default port for the keepwarm API server
	DefaultServerPort = 8377

	// MinPortNumber is the minimum valid TCP port number
	MinPortNumber = 1

	// MaxPortNumber is the maximum valid TCP port number
	MaxPortNumber = 65535
)

// File System Permissions
const (
	// DirPermissions is the standard directory permissions for keepwarm directories
	DirPermissions = 0755

	// FilePermissions is the standard file permissions for keepwarm config files
	FilePermissions = 0644

	// SecureDirPermissions is used for directories containing instance state
	SecureDirPermissions = 0700

	// SecureFilePermissions is used for files containing instance state
	SecureFilePermissions = 0600
)

// Database Configuration
const (
	DefaultMaxOpenConnections = 1
	DefaultMaxIdleConnections = 1
	DefaultConnectionTimeout  = 5 * time.Minute
	DefaultIdleTimeout        = 1 * time.Minute
)

// HTTP Configuration
const (
	// DefaultServerReadTimeout is the default server read timeout
	DefaultServerReadTimeout = 10 * time.Second

	// DefaultServerWriteTimeout is the default server write timeout.
	// Zero keeps long-lived websocket log streams open.
	DefaultServerWriteTimeout = 0

	// DefaultServerShutdownTimeout is the default server graceful shutdown timeout
	DefaultServerShutdownTimeout = 10 * time.Second
)

// Port discovery
const (
	// DefaultDiscoveryTimeout bounds how long a probe container is polled for its port
	DefaultDiscoveryTimeout = 30 * time.Second

	// DefaultDiscoveryInterval is the delay between two log polls
	DefaultDiscoveryInterval = 500 * time.Millisecond

	// DiscoveryLogTail is how many log lines are fetched on each poll
	DiscoveryLogTail = 200
)

// Logging and Output Limits
const (
	// DefaultLogTailLines is the default number of log lines to display
	DefaultLogTailLines = 100

	// DefaultHistoryLimit is the default number of history rows to display
	DefaultHistoryLimit = 50

	// MaxOutputLength is the maximum length for command output before truncation
	MaxOutputLength = 200

	// MaxDiagnosticLogLength bounds the worker logs attached to a discovery failure
	MaxDiagnosticLogLength = 2000
)

// Container labels
const (
	LabelManaged  = "keepwarm.managed"
	LabelInstance = "keepwarm.instance"
	LabelPhase    = "keepwarm.phase"

	PhaseProbe = "probe"
	PhaseServe = "serve"
)

// Exit codes
const (
	ExitGeneral            = 1
	ExitNotFound           = 2
	ExitRuntimeUnavailable = 127
	// ExitInterrupted is what a child process reports after handling SIGINT itself
	ExitInterrupted = 130
)
