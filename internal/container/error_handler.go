package container

import (
	stderrors "errors"
	"strings"
)

// ErrorHandler provides user-friendly error messages and recovery suggestions
type ErrorHandler struct{}

// NewErrorHandler creates a new error handler
func NewErrorHandler() *ErrorHandler {
	return &ErrorHandler{}
}

// GetUserMessage returns a user-friendly error message with recovery suggestions
func (h *ErrorHandler) GetUserMessage(err error) string {
	var containerErr *ContainerError
	if !stderrors.As(err, &containerErr) {
		return err.Error()
	}

	binary := runtimeBinary(containerErr.Runtime)

	var message strings.Builder
	message.WriteString(containerErr.Message)

	switch containerErr.Type {
	case ErrorTypeRuntimeNotFound:
		message.WriteString("\n\nPossible solutions:")
		message.WriteString("\n• Ensure " + binary + " is installed and on PATH")
		message.WriteString("\n• Check the runtime is running: '" + binary + " ps'")
		message.WriteString("\n• Choose another runtime with --runtime")

	case ErrorTypeImageNotFound:
		message.WriteString("\n\nPossible solutions:")
		message.WriteString("\n• Check [worker] image in config.toml")
		message.WriteString("\n• Try pulling the image manually: '" + binary + " pull <image>'")
		message.WriteString("\n• Verify you have access to the registry")

	case ErrorTypeNameConflict:
		message.WriteString("\n\nA container with this name already exists. Possible solutions:")
		message.WriteString("\n• Remove it: '" + binary + " rm -f <name>'")
		message.WriteString("\n• Clean up stale records with 'keepwarm prune'")

	case ErrorTypePermissionDenied:
		message.WriteString("\n\nPossible solutions:")
		message.WriteString("\n• Add your user to the docker group: 'sudo usermod -aG docker $USER'")
		message.WriteString("\n• Log out and back in for group changes to take effect")

	case ErrorTypeNetworkError:
		if strings.Contains(containerErr.Output, "already allocated") || strings.Contains(containerErr.Output, "address already in use") {
			message.WriteString("\n\nPort conflict detected. Possible solutions:")
			message.WriteString("\n• Stop whatever holds the port: 'keepwarm list' or '" + binary + " ps'")
			message.WriteString("\n• Pick a different port with --port")
		} else {
			message.WriteString("\n\nNetwork issue detected. Possible solutions:")
			message.WriteString("\n• Check your network connectivity")
			message.WriteString("\n• Try restarting the container runtime")
		}

	case ErrorTypeVolumeError:
		message.WriteString("\n\nVolume issue detected. Possible solutions:")
		message.WriteString("\n• Check the workspace and aux config paths exist")
		message.WriteString("\n• Verify the runtime is allowed to share those paths")

	case ErrorTypeContainerNotFound:
		message.WriteString("\n\nContainer not found. Possible solutions:")
		message.WriteString("\n• The container may have been removed outside keepwarm")
		message.WriteString("\n• Clean up stale records with 'keepwarm prune'")
	}

	if containerErr.Output != "" && containerErr.Type != ErrorTypeUnknown {
		cleaned := strings.TrimSpace(containerErr.Output)
		if len(cleaned) > 0 && len(cleaned) < 500 {
			message.WriteString("\n\nRuntime output:\n")
			message.WriteString(cleaned)
		}
	}

	return message.String()
}

// IsRecoverable returns true if the error might be resolved by user action
func (h *ErrorHandler) IsRecoverable(err error) bool {
	var containerErr *ContainerError
	if !stderrors.As(err, &containerErr) {
		return false
	}

	switch containerErr.Type {
	case ErrorTypeRuntimeNotFound, ErrorTypeImageNotFound, ErrorTypeNameConflict,
		ErrorTypePermissionDenied, ErrorTypeNetworkError, ErrorTypeVolumeError:
		return true
	default:
		return false
	}
}

func runtimeBinary(rt RuntimeType) string {
	switch rt {
	case RuntimeTypePodman:
		return "podman"
	case RuntimeTypeApple:
		return "container"
	default:
		return "docker"
	}
}
