package errors

import (
	"fmt"
	"strings"

	"keepwarm/internal/constants"
)

// Discovery failure reasons
const (
	ReasonTimeout         = "timeout"
	ReasonContainerExited = "container_exited"
	ReasonCancelled       = "cancelled"
)

// Instance Errors
func AlreadyRunning(name string, port int, handle string) *KeepwarmError {
	return NewWithDetails(ErrAlreadyRunning, fmt.Sprintf("Instance '%s' is already running", name),
		fmt.Sprintf("Port: %d, Container: %s", port, shortHandle(handle))).
		WithContext(ContextInstance, name).
		WithHint("stop it first with '%s stop --name %s'", constants.AppName, name)
}

func InstanceNotFound(name string) *KeepwarmError {
	return New(ErrNotFound, fmt.Sprintf("No instance named '%s'", name)).
		WithContext(ContextInstance, name).
		WithHint("start it with '%s start --name %s'", constants.AppName, name)
}

func NotRunning(name, handle string) *KeepwarmError {
	return NewWithDetails(ErrNotRunning, fmt.Sprintf("Instance '%s' is recorded but its container is not running", name),
		fmt.Sprintf("Container: %s", shortHandle(handle))).
		WithContext(ContextInstance, name).
		WithHint("clean it up with '%s stop --name %s' and start it again with '%s start --name %s'",
			constants.AppName, name, constants.AppName, name)
}

func LaunchFailed(name string, cause error) *KeepwarmError {
	return WrapWithDetails(ErrLaunchFailed, fmt.Sprintf("Failed to launch instance '%s'", name), "", cause).
		WithContext(ContextInstance, name)
}

// PortDiscoveryFailed reports a bring-up that never announced a port.
// logs holds the worker output captured so far and is attached as diagnostics.
func PortDiscoveryFailed(name, reason, logs string) *KeepwarmError {
	e := NewWithDetails(ErrPortDiscoveryFailed, fmt.Sprintf("Could not discover the port of instance '%s'", name),
		fmt.Sprintf("Reason: %s", reason)).
		WithContext(ContextInstance, name).
		WithContext(ContextReason, reason)
	if logs = strings.TrimSpace(logs); logs != "" {
		e.WithContext(ContextLogs, truncateTail(logs, constants.MaxDiagnosticLogLength))
	}
	switch reason {
	case ReasonTimeout:
		e.WithHint("pass an explicit port with '%s start --name %s --port <port>'", constants.AppName, name)
	case ReasonContainerExited:
		e.WithHint("the worker exited during startup; check the logs above and your credentials")
	}
	return e
}

func StopFailed(name, handle string, cause error) *KeepwarmError {
	return WrapWithDetails(ErrStopFailed, fmt.Sprintf("Failed to stop instance '%s'", name),
		fmt.Sprintf("Container: %s", shortHandle(handle)), cause).
		WithContext(ContextInstance, name).
		WithHint("the record was kept; retry with '%s stop --name %s'", constants.AppName, name)
}

func ExecFailed(name string, command []string, cause error) *KeepwarmError {
	return WrapWithDetails(ErrExecFailed, fmt.Sprintf("Failed to run a command in instance '%s'", name),
		fmt.Sprintf("Command: %s", strings.Join(command, " ")), cause).
		WithContext(ContextInstance, name)
}

// Environment Errors
func CredentialUnavailable(reason string, cause error) *KeepwarmError {
	return WrapWithDetails(ErrCredentialUnavailable, "Credentials are not available", reason, cause).
		WithHint("export the API key in your shell or set [credentials] file in config.toml")
}

func RuntimeUnavailable(runtime string, cause error) *KeepwarmError {
	details := "No supported container runtime was found"
	if runtime != "" {
		details = fmt.Sprintf("Runtime: %s", runtime)
	}
	return WrapWithDetails(ErrRuntimeUnavailable, "Container runtime is not available", details, cause).
		WithHint("install and start Docker, Podman or Apple container, or choose one with --runtime")
}

// State Errors
func StateCorrupt(path string, cause error) *KeepwarmError {
	return WrapWithDetails(ErrStateCorrupt, "Instance record is unreadable",
		fmt.Sprintf("Path: %s", path), cause).
		WithHint("inspect or remove %s", path)
}

func StateIO(operation, path string, cause error) *KeepwarmError {
	return WrapWithDetails(ErrStateIO, fmt.Sprintf("Failed to %s instance record", operation),
		fmt.Sprintf("Path: %s", path), cause)
}

// Configuration Errors
func ConfigInvalid(reason string) *KeepwarmError {
	return NewWithDetails(ErrConfigInvalid, "Invalid configuration", reason)
}

func ConfigParseError(path string, cause error) *KeepwarmError {
	return WrapWithDetails(ErrConfigParse, "Failed to parse configuration", fmt.Sprintf("Path: %s", path), cause)
}

// Validation Errors
func InvalidInput(field, reason string) *KeepwarmError {
	return NewWithDetails(ErrInvalidInput, fmt.Sprintf("Invalid %s", field), reason)
}

func InvalidPort(port int) *KeepwarmError {
	return NewWithDetails(ErrInvalidPort, "Invalid port",
		fmt.Sprintf("Port %d is outside %d-%d", port, constants.MinPortNumber, constants.MaxPortNumber))
}

// Database Errors
func DatabaseError(operation string, cause error) *KeepwarmError {
	return Wrap(ErrDatabase, fmt.Sprintf("Database %s failed", operation), cause)
}

func shortHandle(handle string) string {
	if len(handle) > 12 {
		return handle[:12]
	}
	return handle
}

func truncateTail(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return "..." + s[len(s)-max:]
}
