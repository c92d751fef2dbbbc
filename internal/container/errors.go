package container

import (
	stderrors "errors"
	"fmt"
	"strings"

	"keepwarm/internal/constants"
)

// ErrorType represents the type of container error
type ErrorType string

const (
	// ErrorTypeRuntimeNotFound indicates the container runtime is not available
	ErrorTypeRuntimeNotFound ErrorType = "runtime_not_found"
	// ErrorTypeContainerNotFound indicates the container was not found
	ErrorTypeContainerNotFound ErrorType = "container_not_found"
	// ErrorTypeImageNotFound indicates the container image was not found
	ErrorTypeImageNotFound ErrorType = "image_not_found"
	// ErrorTypeNameConflict indicates the container name is already in use
	ErrorTypeNameConflict ErrorType = "name_conflict"
	// ErrorTypePermissionDenied indicates a permission error
	ErrorTypePermissionDenied ErrorType = "permission_denied"
	// ErrorTypeNetworkError indicates a network-related error
	ErrorTypeNetworkError ErrorType = "network_error"
	// ErrorTypeVolumeError indicates a volume-related error
	ErrorTypeVolumeError ErrorType = "volume_error"
	// ErrorTypeConfigError indicates a configuration error
	ErrorTypeConfigError ErrorType = "config_error"
	// ErrorTypeExecError indicates an error during command execution
	ErrorTypeExecError ErrorType = "exec_error"
	// ErrorTypeUnknown indicates an unknown error
	ErrorTypeUnknown ErrorType = "unknown"
)

// ContainerError represents a detailed container operation error
type ContainerError struct {
	Type        ErrorType
	Runtime     RuntimeType
	Operation   string
	ContainerID string
	Message     string
	Underlying  error
	Output      string // stdout/stderr from the command
}

// Error implements the error interface
func (e *ContainerError) Error() string {
	parts := []string{e.Message}

	if e.ContainerID != "" {
		parts = append(parts, fmt.Sprintf("container=%s", e.ContainerID))
	}

	if e.Operation != "" {
		parts = append(parts, fmt.Sprintf("operation=%s", e.Operation))
	}

	if e.Output != "" {
		output := strings.TrimSpace(e.Output)
		if len(output) > constants.MaxOutputLength {
			output = output[:constants.MaxOutputLength] + "..."
		}
		parts = append(parts, fmt.Sprintf("output=%s", output))
	}

	if e.Underlying != nil {
		parts = append(parts, fmt.Sprintf("cause=%v", e.Underlying))
	}

	return strings.Join(parts, ", ")
}

// Unwrap returns the underlying error
func (e *ContainerError) Unwrap() error {
	return e.Underlying
}

// IsRetryable returns true if the error might be resolved by retrying
func (e *ContainerError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeNetworkError, ErrorTypeVolumeError:
		return true
	default:
		return false
	}
}

// IsNotFound reports whether err says the container does not exist
func IsNotFound(err error) bool {
	var ce *ContainerError
	return stderrors.As(err, &ce) && ce.Type == ErrorTypeContainerNotFound
}

// newCommandError classifies a failed runtime CLI call
func newCommandError(rt RuntimeType, operation, containerID, message string, output []byte, err error) *ContainerError {
	return &ContainerError{
		Type:        parseRuntimeError(string(output), err),
		Runtime:     rt,
		Operation:   operation,
		ContainerID: containerID,
		Message:     message,
		Underlying:  err,
		Output:      string(output),
	}
}

// parseRuntimeError attempts to determine the error type from runtime CLI output
func parseRuntimeError(output string, err error) ErrorType {
	outputLower := strings.ToLower(output)
	errStr := ""
	if err != nil {
		errStr = strings.ToLower(err.Error())
	}

	combined := outputLower + " " + errStr

	switch {
	case strings.Contains(combined, "executable file not found") ||
		strings.Contains(combined, "command not found") ||
		strings.Contains(combined, "cannot connect to the docker daemon") ||
		strings.Contains(combined, "is the docker daemon running") ||
		strings.Contains(combined, "cannot connect to podman"):
		return ErrorTypeRuntimeNotFound
	case strings.Contains(combined, "no such container") ||
		strings.Contains(combined, "no such object") ||
		strings.Contains(combined, "no container with name or id") ||
		(strings.Contains(combined, "container") && strings.Contains(combined, "not found")):
		return ErrorTypeContainerNotFound
	case strings.Contains(combined, "no such image") ||
		strings.Contains(combined, "pull access denied") ||
		strings.Contains(combined, "manifest unknown") ||
		strings.Contains(combined, "repository does not exist"):
		return ErrorTypeImageNotFound
	case strings.Contains(combined, "already in use"):
		return ErrorTypeNameConflict
	case strings.Contains(combined, "permission denied") || strings.Contains(combined, "access denied"):
		return ErrorTypePermissionDenied
	case strings.Contains(combined, "port is already allocated") ||
		strings.Contains(combined, "address already in use") ||
		strings.Contains(combined, "network"):
		return ErrorTypeNetworkError
	case strings.Contains(combined, "volume") || strings.Contains(combined, "mount"):
		return ErrorTypeVolumeError
	default:
		return ErrorTypeUnknown
	}
}
