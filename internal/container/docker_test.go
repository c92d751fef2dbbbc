package container

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"keepwarm/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDockerRuntime_Run(t *testing.T) {
	tests := []struct {
		name         string
		config       *RunConfig
		stdout       string
		expectedArgs []string
		expectedID   string
	}{
		{
			name: "detached probe without ports",
			config: &RunConfig{
				Name:       "keepwarm-alpha-probe",
				Image:      "worker:latest",
				Labels:     map[string]string{"keepwarm.phase": "probe", "keepwarm.instance": "alpha"},
				WorkingDir: "/workspace",
				EnvVars:    []string{"ANTHROPIC_API_KEY=sk-test"},
				Volumes:    []string{"/home/u/repo:/workspace"},
				Command:    []string{"worker", "serve", "--host", "0.0.0.0"},
				Detached:   true,
			},
			stdout: "abc123def456\n",
			expectedArgs: []string{
				"docker", "run", "-d", "--name", "keepwarm-alpha-probe",
				"--label", "keepwarm.instance=alpha", "--label", "keepwarm.phase=probe",
				"-w", "/workspace", "-e", "ANTHROPIC_API_KEY=sk-test",
				"-v", "/home/u/repo:/workspace",
				"worker:latest", "worker", "serve", "--host", "0.0.0.0",
			},
			expectedID: "abc123def456",
		},
		{
			name: "published port removed on exit",
			config: &RunConfig{
				Name:         "keepwarm-beta",
				Image:        "worker:latest",
				Ports:        []string{"9001:9001"},
				Detached:     true,
				RemoveOnExit: true,
			},
			stdout: "Unable to find image locally\nffff0000\n",
			expectedArgs: []string{
				"docker", "run", "-d", "--rm", "--name", "keepwarm-beta",
				"-p", "9001:9001", "worker:latest",
			},
			expectedID: "ffff0000",
		},
		{
			name: "attached run returns the name",
			config: &RunConfig{
				Name:  "keepwarm-once",
				Image: "worker:latest",
			},
			stdout:       "done\n",
			expectedArgs: []string{"docker", "run", "--name", "keepwarm-once", "worker:latest"},
			expectedID:   "keepwarm-once",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			executor := newScriptedExecutor(scriptedResponse{stdout: tt.stdout})
			runtime := NewDockerRuntime(executor, "")

			id, err := runtime.Run(context.Background(), tt.config)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedID, id)
			assert.Equal(t, tt.expectedArgs, executor.lastCall())
		})
	}
}

func TestDockerRuntime_RunValidation(t *testing.T) {
	runtime := NewDockerRuntime(newScriptedExecutor(), "")

	_, err := runtime.Run(context.Background(), &RunConfig{Image: "worker"})
	var cerr *ContainerError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, ErrorTypeConfigError, cerr.Type)

	_, err = runtime.Run(context.Background(), &RunConfig{Name: "x", Image: "worker", Ports: []string{"70000:1"}})
	assert.True(t, errors.HasCode(err, errors.ErrInvalidPort))

	_, err = runtime.Run(context.Background(), &RunConfig{Name: "x", Image: "worker", EnvVars: []string{"NOPE"}})
	assert.True(t, errors.HasCode(err, errors.ErrInvalidInput))
}

func TestDockerRuntime_RunFailureIsClassified(t *testing.T) {
	executor := newScriptedExecutor(scriptedResponse{
		stderr: "docker: Error response from daemon: pull access denied for nope, repository does not exist",
		exit:   125,
	})
	runtime := NewDockerRuntime(executor, "")

	_, err := runtime.Run(context.Background(), &RunConfig{Name: "x", Image: "nope", Detached: true})
	var cerr *ContainerError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, ErrorTypeImageNotFound, cerr.Type)
	assert.Equal(t, "run", cerr.Operation)
	assert.Contains(t, NewErrorHandler().GetUserMessage(err), "docker pull <image>")
}

func TestDockerRuntime_IsRunning(t *testing.T) {
	tests := []struct {
		name     string
		resp     scriptedResponse
		expected bool
		wantErr  bool
	}{
		{"running", scriptedResponse{stdout: "true\n"}, true, false},
		{"exited", scriptedResponse{stdout: "false\n"}, false, false},
		{"gone", scriptedResponse{stderr: "Error: No such object: abc", exit: 1}, false, false},
		{"daemon down", scriptedResponse{stderr: "Cannot connect to the Docker daemon at unix:///var/run/docker.sock. Is the docker daemon running?", exit: 1}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			executor := newScriptedExecutor(tt.resp)
			runtime := NewDockerRuntime(executor, "")

			running, err := runtime.IsRunning(context.Background(), "abc")
			if tt.wantErr {
				var cerr *ContainerError
				require.ErrorAs(t, err, &cerr)
				assert.Equal(t, ErrorTypeRuntimeNotFound, cerr.Type)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, running)
			assert.Equal(t, []string{"docker", "inspect", "--format", "{{.State.Running}}", "abc"}, executor.lastCall())
		})
	}
}

func TestDockerRuntime_Exec(t *testing.T) {
	t.Run("captures output and exit code", func(t *testing.T) {
		executor := newScriptedExecutor(scriptedResponse{stdout: "partial answer", exit: 3})
		runtime := NewDockerRuntime(executor, "")

		result, err := runtime.Exec(context.Background(), "abc", &ExecConfig{
			Command:    []string{"worker", "connect", "--port", "41777"},
			WorkingDir: "/workspace",
		})
		require.NoError(t, err)
		assert.Equal(t, 3, result.ExitCode)
		assert.Equal(t, "partial answer", string(result.Output))
		assert.Equal(t, []string{"docker", "exec", "-w", "/workspace", "abc", "worker", "connect", "--port", "41777"}, executor.lastCall())
	})

	t.Run("rejects invalid container id", func(t *testing.T) {
		runtime := NewDockerRuntime(newScriptedExecutor(), "")
		_, err := runtime.Exec(context.Background(), "bad id", &ExecConfig{Command: []string{"ls"}})
		assert.True(t, errors.HasCode(err, errors.ErrInvalidInput))
	})
}

func TestDockerRuntime_ExecInteractive(t *testing.T) {
	executor := newScriptedExecutor(scriptedResponse{stdout: "hello", exit: 130})
	runtime := NewDockerRuntime(executor, "")

	var out bytes.Buffer
	code, err := runtime.ExecInteractive(context.Background(), "abc",
		&ExecConfig{Command: []string{"worker", "connect"}, TTY: true},
		Stdio{In: strings.NewReader(""), Out: &out, Err: &out})
	require.NoError(t, err)
	assert.Equal(t, 130, code)
	assert.Equal(t, "hello", out.String())
	assert.Equal(t, []string{"docker", "exec", "-i", "-t", "abc", "worker", "connect"}, executor.lastCall())
}

func TestDockerRuntime_Logs(t *testing.T) {
	executor := newScriptedExecutor(scriptedResponse{stdout: "line one\n", stderr: "Server listening on 0.0.0.0:41777\n"})
	runtime := NewDockerRuntime(executor, "")

	var buf bytes.Buffer
	err := runtime.Logs(context.Background(), "abc", LogOptions{Tail: 50}, &buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "line one")
	assert.Contains(t, buf.String(), "Server listening on 0.0.0.0:41777")
	assert.Equal(t, []string{"docker", "logs", "--tail", "50", "abc"}, executor.lastCall())

	executor = newScriptedExecutor(scriptedResponse{})
	runtime = NewDockerRuntime(executor, "")
	require.NoError(t, runtime.Logs(context.Background(), "abc", LogOptions{Follow: true}, &buf))
	assert.Equal(t, []string{"docker", "logs", "-f", "abc"}, executor.lastCall())
}

func TestDockerRuntime_StopAndRemove(t *testing.T) {
	executor := newScriptedExecutor(
		scriptedResponse{stdout: "abc\n"},
		scriptedResponse{stderr: "Error response from daemon: No such container: abc", exit: 1},
	)
	runtime := NewDockerRuntime(executor, "")

	require.NoError(t, runtime.Stop(context.Background(), "abc"))
	assert.Equal(t, []string{"docker", "stop", "abc"}, executor.lastCall())

	err := runtime.Remove(context.Background(), "abc")
	assert.True(t, IsNotFound(err))
	assert.Equal(t, []string{"docker", "rm", "-f", "abc"}, executor.lastCall())
}

func TestDockerRuntime_Version(t *testing.T) {
	executor := newScriptedExecutor(scriptedResponse{stdout: "Docker version 27.1.1, build 6312585\n"})
	runtime := NewDockerRuntime(executor, "/usr/local/bin/docker")

	version, err := runtime.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Docker version 27.1.1, build 6312585", version)
	assert.Equal(t, []string{"/usr/local/bin/docker", "--version"}, executor.lastCall())
}

func TestPodmanRuntime_UsesPodmanBinary(t *testing.T) {
	executor := newScriptedExecutor(scriptedResponse{stdout: "true"})
	runtime := NewPodmanRuntime(executor, "")

	assert.Equal(t, RuntimeTypePodman, runtime.GetType())
	running, err := runtime.IsRunning(context.Background(), "abc")
	require.NoError(t, err)
	assert.True(t, running)
	assert.Equal(t, "podman", executor.lastCall()[0])
}
