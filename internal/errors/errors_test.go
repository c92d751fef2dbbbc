package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeepwarmError_Error(t *testing.T) {
	err := NewWithDetails(ErrInvalidInput, "Invalid name", "must not be empty")
	assert.Equal(t, "[INVALID_INPUT] Invalid name: must not be empty", err.Error())

	wrapped := Wrap(ErrLaunchFailed, "Failed to launch", fmt.Errorf("boom"))
	assert.Equal(t, "[LAUNCH_FAILED] Failed to launch: boom", wrapped.Error())
}

func TestGetCode_FollowsWrapChain(t *testing.T) {
	base := InstanceNotFound("alpha")
	wrapped := fmt.Errorf("status: %w", base)

	assert.Equal(t, ErrNotFound, GetCode(wrapped))
	assert.True(t, HasCode(wrapped, ErrNotFound))
	assert.True(t, IsKeepwarmError(wrapped))
	assert.Equal(t, ErrorCode(""), GetCode(fmt.Errorf("plain")))
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("disk full")
	err := StateIO("write", "/tmp/x.json", cause)
	assert.True(t, stderrors.Is(err, cause))
}

func TestIs_MatchesByCode(t *testing.T) {
	err := fmt.Errorf("stop: %w", InstanceNotFound("alpha"))
	assert.True(t, stderrors.Is(err, New(ErrNotFound, "")))
	assert.False(t, stderrors.Is(err, New(ErrNotRunning, "")))
}

func TestAlreadyRunning_ReportsPortAndHint(t *testing.T) {
	err := AlreadyRunning("alpha", 41777, "0123456789abcdef0123")

	assert.Contains(t, err.Details, "41777")
	assert.Contains(t, err.Details, "0123456789ab")
	assert.NotContains(t, err.Details, "0123456789abcdef")
	assert.Contains(t, err.Hint, "keepwarm stop --name alpha")
	assert.Equal(t, http.StatusConflict, err.GetHTTPStatus())
}

func TestPortDiscoveryFailed(t *testing.T) {
	t.Run("timeout suggests explicit port", func(t *testing.T) {
		err := PortDiscoveryFailed("alpha", ReasonTimeout, "started\n")
		assert.Equal(t, ReasonTimeout, Reason(err))
		assert.Contains(t, err.Hint, "--port")
		assert.Equal(t, "started", err.Context[ContextLogs])
	})

	t.Run("exited attaches truncated logs", func(t *testing.T) {
		logs := strings.Repeat("x", 5000) + "fatal: bad key"
		err := PortDiscoveryFailed("alpha", ReasonContainerExited, logs)
		assert.Equal(t, ReasonContainerExited, Reason(fmt.Errorf("wrapped: %w", err)))

		attached, ok := err.Context[ContextLogs].(string)
		require.True(t, ok)
		assert.True(t, strings.HasSuffix(attached, "fatal: bad key"))
		assert.LessOrEqual(t, len(attached), 2003)
	})

	t.Run("no logs leaves context empty", func(t *testing.T) {
		err := PortDiscoveryFailed("alpha", ReasonTimeout, "  ")
		_, ok := err.Context[ContextLogs]
		assert.False(t, ok)
	})
}

func TestUserMessage(t *testing.T) {
	err := StopFailed("alpha", "abc", fmt.Errorf("daemon down"))
	msg := err.UserMessage()

	assert.True(t, strings.HasPrefix(msg, "Failed to stop instance 'alpha'"))
	assert.Contains(t, msg, "cause: daemon down")
	assert.Contains(t, msg, "Tip: the record was kept")
}

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		err      error
		expected int
	}{
		{InstanceNotFound("a"), http.StatusNotFound},
		{InvalidPort(70000), http.StatusBadRequest},
		{NotRunning("a", "h"), http.StatusConflict},
		{RuntimeUnavailable("", nil), http.StatusServiceUnavailable},
		{PortDiscoveryFailed("a", ReasonTimeout, ""), http.StatusGatewayTimeout},
		{StopFailed("a", "h", nil), http.StatusInternalServerError},
		{fmt.Errorf("plain"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.err))
		})
	}
}

func TestToHTTPError(t *testing.T) {
	err := ToHTTPError(InstanceNotFound("alpha"))

	var httpErr *echo.HTTPError
	require.True(t, stderrors.As(err, &httpErr))
	assert.Equal(t, http.StatusNotFound, httpErr.Code)

	body, ok := httpErr.Message.(HTTPErrorResponse)
	require.True(t, ok)
	assert.Equal(t, ErrNotFound, body.Error.Code)
	assert.Equal(t, "alpha", body.Context[ContextInstance])
}
