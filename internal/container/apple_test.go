package container

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppleRuntime_IsRunning(t *testing.T) {
	tests := []struct {
		name     string
		resp     scriptedResponse
		expected bool
	}{
		{"running", scriptedResponse{stdout: `[{"status":"running","configuration":{"id":"keepwarm-alpha"}}]`}, true},
		{"stopped", scriptedResponse{stdout: `[{"status":"stopped"}]`}, false},
		{"empty result", scriptedResponse{stdout: `[]`}, false},
		{"not found", scriptedResponse{stderr: `Error: notFound: "container keepwarm-alpha not found"`, exit: 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			executor := newScriptedExecutor(tt.resp)
			runtime := NewAppleRuntime(executor, "")

			running, err := runtime.IsRunning(context.Background(), "keepwarm-alpha")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, running)
			assert.Equal(t, []string{"container", "inspect", "keepwarm-alpha"}, executor.lastCall())
		})
	}
}

func TestAppleRuntime_IsRunningUnparsable(t *testing.T) {
	runtime := NewAppleRuntime(newScriptedExecutor(scriptedResponse{stdout: "not json"}), "")

	_, err := runtime.IsRunning(context.Background(), "keepwarm-alpha")
	var cerr *ContainerError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, RuntimeTypeApple, cerr.Runtime)
}

func TestAppleRuntime_LogsAndRemove(t *testing.T) {
	executor := newScriptedExecutor(scriptedResponse{stdout: "ready\n"}, scriptedResponse{})
	runtime := NewAppleRuntime(executor, "")

	var buf bytes.Buffer
	require.NoError(t, runtime.Logs(context.Background(), "keepwarm-alpha", LogOptions{Tail: 20, Follow: true}, &buf))
	assert.Equal(t, "ready\n", buf.String())
	assert.Equal(t, []string{"container", "logs", "-n", "20", "--follow", "keepwarm-alpha"}, executor.lastCall())

	require.NoError(t, runtime.Remove(context.Background(), "keepwarm-alpha"))
	assert.Equal(t, []string{"container", "delete", "--force", "keepwarm-alpha"}, executor.lastCall())
}
