package app

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"keepwarm/internal/config"
	"keepwarm/internal/container"
	"keepwarm/internal/errors"
	"keepwarm/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T, mutate func(*config.GlobalConfig)) (*App, *testutil.FakeRuntime, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()

	cfg := config.DefaultGlobalConfig()
	cfg.State.Dir = filepath.Join(dir, "instances")
	cfg.History.Path = filepath.Join(dir, "history.db")
	if mutate != nil {
		mutate(cfg)
	}
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, cfg.Save(path))

	rt := testutil.NewFakeRuntime()
	a := New()
	a.Globals.ConfigPath = path
	a.SelectRuntime = func(ctx context.Context, cfg *config.GlobalConfig, runtimeType string) (container.Runtime, error) {
		if runtimeType == "podman" {
			return nil, errors.RuntimeUnavailable(runtimeType, nil)
		}
		return rt, nil
	}

	var out bytes.Buffer
	a.CLI.Root().SetOut(&out)
	return a, rt, &out
}

func TestRun_ListEmpty(t *testing.T) {
	a, _, out := newTestApp(t, nil)

	require.NoError(t, a.RunWithContext(context.Background(), []string{"list", "--output", "json"}))
	assert.Equal(t, "[]\n", out.String())
}

func TestRun_RuntimeFlagOverridesConfig(t *testing.T) {
	a, _, _ := newTestApp(t, nil)

	err := a.RunWithContext(context.Background(), []string{"--runtime", "podman", "list"})
	assert.True(t, errors.HasCode(err, errors.ErrRuntimeUnavailable))
}

func TestRun_RuntimeCommand(t *testing.T) {
	a, _, out := newTestApp(t, nil)

	require.NoError(t, a.RunWithContext(context.Background(), []string{"runtime"}))
	assert.Contains(t, out.String(), "docker")
}

func TestInstances_IsBuiltOnce(t *testing.T) {
	a, rt, _ := newTestApp(t, nil)
	defer a.Close()

	first, err := a.Instances(context.Background())
	require.NoError(t, err)
	second, err := a.Instances(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, rt, first.Runtime())
}

func TestHistory(t *testing.T) {
	a, _, out := newTestApp(t, nil)

	require.NoError(t, a.RunWithContext(context.Background(), []string{"history"}))
	assert.Contains(t, out.String(), "No events recorded")
}

func TestHistory_Disabled(t *testing.T) {
	a, _, _ := newTestApp(t, func(cfg *config.GlobalConfig) {
		cfg.History.Enabled = false
	})

	err := a.RunWithContext(context.Background(), []string{"history"})
	assert.True(t, errors.HasCode(err, errors.ErrConfigInvalid))

	// Instance commands still work without the journal
	a, _, _ = newTestApp(t, func(cfg *config.GlobalConfig) {
		cfg.History.Enabled = false
	})
	require.NoError(t, a.RunWithContext(context.Background(), []string{"prune"}))
}

func TestConfig_InvalidFile(t *testing.T) {
	a, _, _ := newTestApp(t, func(cfg *config.GlobalConfig) {
		cfg.Discovery.IntervalMS = cfg.Discovery.TimeoutMS + 1
	})

	err := a.RunWithContext(context.Background(), []string{"list"})
	assert.True(t, errors.HasCode(err, errors.ErrConfigInvalid))
}

func TestServe_RejectsInvalidPort(t *testing.T) {
	a, _, _ := newTestApp(t, nil)
	defer a.Close()

	err := a.Serve(context.Background(), "localhost", 70000)
	assert.Error(t, err)
}
