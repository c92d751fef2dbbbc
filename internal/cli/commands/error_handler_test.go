package commands

import (
	"bytes"
	"fmt"
	"testing"

	"keepwarm/internal/container"
	"keepwarm/internal/errors"
	"keepwarm/internal/lifecycle"

	"github.com/stretchr/testify/assert"
)

func TestHandleError(t *testing.T) {
	imageErr := &container.ContainerError{
		Type:    container.ErrorTypeImageNotFound,
		Runtime: container.RuntimeTypeDocker,
		Message: "failed to run container",
		Output:  "Unable to find image 'worker:latest' locally",
	}

	tests := []struct {
		name     string
		err      error
		contains []string
	}{
		{
			name:     "keepwarm error with hint",
			err:      errors.InstanceNotFound("alpha"),
			contains: []string{"No instance named 'alpha'", "Tip: start it with 'keepwarm start --name alpha'"},
		},
		{
			name:     "discovery failure carries worker output",
			err:      errors.PortDiscoveryFailed("alpha", errors.ReasonContainerExited, "boot\nfatal: missing key"),
			contains: []string{"Reason: container_exited", "Worker output:", "fatal: missing key"},
		},
		{
			name:     "bare container error",
			err:      imageErr,
			contains: []string{"failed to run container", "Possible solutions", "docker pull"},
		},
		{
			name:     "wrapped container error",
			err:      errors.LaunchFailed("alpha", imageErr),
			contains: []string{"Failed to launch instance 'alpha'", "Possible solutions"},
		},
		{
			name:     "plain error with tip",
			err:      fmt.Errorf("open /state: permission denied"),
			contains: []string{"permission denied", "Tip:"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := HandleError(tt.err)
			for _, want := range tt.contains {
				assert.Contains(t, msg, want)
			}
		})
	}

	assert.Empty(t, HandleError(nil))
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"nil", nil, ExitOK},
		{"not found", errors.InstanceNotFound("alpha"), ExitNotFound},
		{"runtime unavailable", errors.RuntimeUnavailable("docker", nil), ExitRuntimeNotFound},
		{"client exit status", &lifecycle.ExitError{Code: 7}, 7},
		{"permission denied", &container.ContainerError{Type: container.ErrorTypePermissionDenied}, ExitPermissionDenied},
		{"missing runtime binary", &container.ContainerError{Type: container.ErrorTypeRuntimeNotFound}, ExitRuntimeNotFound},
		{"already running", errors.AlreadyRunning("alpha", 41777, "c1"), ExitFailure},
		{"plain", fmt.Errorf("boom"), ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, ExitCode(tt.err))
		})
	}
}

func TestReportError(t *testing.T) {
	var buf bytes.Buffer
	assert.Equal(t, ExitNotFound, ReportError(&buf, errors.InstanceNotFound("alpha")))
	assert.Contains(t, buf.String(), "Error: No instance named 'alpha'")

	// The client already printed its own failure
	buf.Reset()
	assert.Equal(t, 5, ReportError(&buf, &lifecycle.ExitError{Code: 5}))
	assert.Empty(t, buf.String())

	buf.Reset()
	assert.Equal(t, ExitOK, ReportError(&buf, nil))
	assert.Empty(t, buf.String())
}
