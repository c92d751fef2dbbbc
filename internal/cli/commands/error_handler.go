package commands

import (
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"keepwarm/internal/container"
	"keepwarm/internal/errors"
	"keepwarm/internal/lifecycle"
	"keepwarm/internal/logger"
)

// Process exit codes
const (
	ExitOK               = 0
	ExitFailure          = 1
	ExitNotFound         = 2
	ExitPermissionDenied = 126
	ExitRuntimeNotFound  = 127
)

// HandleError renders err for a terminal: the message, any captured worker
// output and the next command to try.
func HandleError(err error) string {
	if err == nil {
		return ""
	}

	var exitErr *lifecycle.ExitError
	if stderrors.As(err, &exitErr) {
		return exitErr.Error()
	}

	var containerErr *container.ContainerError
	hasContainerErr := stderrors.As(err, &containerErr)

	kwErr, ok := errors.As(err)
	if !ok {
		if hasContainerErr {
			logger.WithError(err).Debug("Container operation failed")
			return container.NewErrorHandler().GetUserMessage(containerErr)
		}
		return withTip(err)
	}

	var msg strings.Builder
	msg.WriteString(kwErr.UserMessage())
	if logs, ok := kwErr.Context[errors.ContextLogs].(string); ok && logs != "" {
		msg.WriteString("\n\nWorker output:\n")
		msg.WriteString(logs)
	}
	if hasContainerErr {
		guidance := strings.TrimPrefix(container.NewErrorHandler().GetUserMessage(containerErr), containerErr.Message)
		if guidance = strings.TrimSpace(guidance); guidance != "" {
			msg.WriteString("\n\n")
			msg.WriteString(guidance)
		}
	}
	return msg.String()
}

// withTip adds a hint to errors that did not come with one
func withTip(err error) string {
	errStr := err.Error()
	switch {
	case strings.Contains(errStr, "permission denied"):
		return errStr + "\n\nTip: You may need elevated permissions. Check the permissions of the keepwarm state directory."
	case strings.Contains(errStr, "no such file or directory"):
		return errStr + "\n\nTip: Check if the path exists and is accessible."
	case strings.Contains(errStr, "unknown flag"), strings.Contains(errStr, "required flag"):
		return errStr + "\n\nTip: Run the command with --help to see its flags."
	default:
		return errStr
	}
}

// ExitCode maps err to the process exit status
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var exitErr *lifecycle.ExitError
	if stderrors.As(err, &exitErr) && exitErr.Code > 0 {
		return exitErr.Code
	}

	switch errors.GetCode(err) {
	case errors.ErrNotFound:
		return ExitNotFound
	case errors.ErrRuntimeUnavailable:
		return ExitRuntimeNotFound
	}

	var containerErr *container.ContainerError
	if stderrors.As(err, &containerErr) {
		switch containerErr.Type {
		case container.ErrorTypeRuntimeNotFound:
			return ExitRuntimeNotFound
		case container.ErrorTypePermissionDenied:
			return ExitPermissionDenied
		case container.ErrorTypeContainerNotFound, container.ErrorTypeImageNotFound:
			return ExitNotFound
		}
	}
	return ExitFailure
}

// ReportError prints err to w and returns the exit code to use
func ReportError(w io.Writer, err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *lifecycle.ExitError
	if !stderrors.As(err, &exitErr) {
		fmt.Fprintf(w, "Error: %s\n", HandleError(err))
	}
	return ExitCode(err)
}
