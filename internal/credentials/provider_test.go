package credentials

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"keepwarm/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeEnv(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestEnvProvider_FromEnvironment(t *testing.T) {
	p := NewEnvProvider([]string{"ANTHROPIC_API_KEY", "OTHER_KEY"}, "")
	p.lookupEnv = fakeEnv(map[string]string{"ANTHROPIC_API_KEY": "sk-env"})

	env, err := p.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"ANTHROPIC_API_KEY=sk-env"}, env)
}

func TestEnvProvider_FallsBackToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials")
	content := "# keepwarm credentials\nexport ANTHROPIC_API_KEY=\"sk-file\"\n\nOTHER_KEY='x=y'\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	p := NewEnvProvider([]string{"ANTHROPIC_API_KEY", "OTHER_KEY"}, path)
	p.lookupEnv = fakeEnv(map[string]string{"OTHER_KEY": "from-env"})

	env, err := p.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"ANTHROPIC_API_KEY=sk-file", "OTHER_KEY=from-env"}, env)
}

func TestEnvProvider_Missing(t *testing.T) {
	p := NewEnvProvider([]string{"ANTHROPIC_API_KEY"}, "")
	p.lookupEnv = fakeEnv(map[string]string{"ANTHROPIC_API_KEY": ""})

	_, err := p.Resolve(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCredentialUnavailable))
	assert.Contains(t, err.Error(), "ANTHROPIC_API_KEY")
}

func TestEnvProvider_UnreadableFile(t *testing.T) {
	p := NewEnvProvider([]string{"ANTHROPIC_API_KEY"}, filepath.Join(t.TempDir(), "absent"))
	p.lookupEnv = fakeEnv(nil)

	_, err := p.Resolve(context.Background())
	assert.True(t, errors.HasCode(err, errors.ErrCredentialUnavailable))
}

func TestEnvProvider_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials")
	require.NoError(t, os.WriteFile(path, []byte("JUST_A_KEY\n"), 0600))

	p := NewEnvProvider([]string{"ANTHROPIC_API_KEY"}, path)
	p.lookupEnv = fakeEnv(nil)

	_, err := p.Resolve(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")
}

func TestEnvProvider_NoKeysConfigured(t *testing.T) {
	env, err := NewEnvProvider(nil, "").Resolve(context.Background())
	require.NoError(t, err)
	assert.Empty(t, env)
}
