package validation

import (
	"testing"

	"keepwarm/internal/errors"

	"github.com/stretchr/testify/assert"
)

func TestInstanceName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		valid bool
	}{
		{"simple", "alpha", true},
		{"with digits and dashes", "team-2_dev", true},
		{"empty", "", false},
		{"uppercase", "Alpha", false},
		{"leading dash", "-alpha", false},
		{"path separator", "../alpha", false},
		{"space", "al pha", false},
		{"too long", "a123456789012345678901234567890123456789012345678901234567890123", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := InstanceName(tt.input)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.HasCode(err, errors.ErrInvalidInput), "got %v", err)
			}
		})
	}
}

func TestPortNumber(t *testing.T) {
	assert.NoError(t, PortNumber(1))
	assert.NoError(t, PortNumber(65535))
	assert.True(t, errors.HasCode(PortNumber(0), errors.ErrInvalidPort))
	assert.True(t, errors.HasCode(PortNumber(65536), errors.ErrInvalidPort))
}

func TestPortMapping(t *testing.T) {
	assert.NoError(t, PortMapping("9001:9001"))
	assert.Error(t, PortMapping("9001"))
	assert.Error(t, PortMapping("0:80"))
	assert.Error(t, PortMapping("80:99999"))
}

func TestEnvironmentVariable(t *testing.T) {
	assert.NoError(t, EnvironmentVariable("ANTHROPIC_API_KEY=sk-123=="))
	assert.NoError(t, EnvironmentVariable("EMPTY="))
	assert.Error(t, EnvironmentVariable("NOVALUE"))
	assert.Error(t, EnvironmentVariable("=value"))
	assert.Error(t, EnvironmentVariable("BAD-KEY=1"))
}

func TestContainerID(t *testing.T) {
	assert.NoError(t, ContainerID("keepwarm-alpha"))
	assert.NoError(t, ContainerID("3f4e5d6c7b8a"))
	assert.Error(t, ContainerID(""))
	assert.Error(t, ContainerID("name;rm -rf /"))
}

func TestShellEscape(t *testing.T) {
	assert.Equal(t, "@scope/pkg@1.2.3", ShellEscape("@scope/pkg@1.2.3"))
	assert.Equal(t, "'two words'", ShellEscape("two words"))
	assert.Equal(t, `'it'"'"'s'`, ShellEscape("it's"))
}
