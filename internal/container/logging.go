package container

import (
	"context"
	stderrors "errors"

	"keepwarm/internal/constants"
	"keepwarm/internal/logger"
)

// LogContainerWarning logs a container error that does not fail the operation,
// such as a cleanup step after port discovery gave up.
func LogContainerWarning(ctx context.Context, err error, operation string) {
	if err == nil {
		return
	}

	fields := logger.Fields{
		"operation": operation,
	}

	var containerErr *ContainerError
	if stderrors.As(err, &containerErr) {
		fields["error_type"] = string(containerErr.Type)
		if containerErr.ContainerID != "" {
			fields["container_id"] = containerErr.ContainerID
		}
		if containerErr.Output != "" && len(containerErr.Output) < 5*constants.MaxOutputLength {
			fields["runtime_output"] = containerErr.Output
		}
		if containerErr.IsRetryable() {
			fields["retryable"] = true
		}
	}

	logger.WithContext(ctx).WithFields(fields).WithError(err).Warn("Container operation failed")
}
