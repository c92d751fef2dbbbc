package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPort(t *testing.T) {
	tests := []struct {
		name  string
		logs  string
		port  int
		found bool
	}{
		{"listening on wildcard", "Server listening on 0.0.0.0:41777", 41777, true},
		{"listening on bare port", "listening on :8080", 8080, true},
		{"listening on ipv6", "listening on [::]:8123", 8123, true},
		{"started at url", "MCP server started at http://localhost:3000/mcp", 3000, true},
		{"bare loopback url", "open http://127.0.0.1:9999 in a browser", 9999, true},
		{"generic port", "using port 6000", 6000, true},
		{"generic port with equals", "config: port=6001 workers=4", 6001, true},
		{"no port", "started\nready\n", 0, false},
		{"empty", "", 0, false},
		{"out of range", "listening on 0.0.0.0:99999", 0, false},
		{"zero port skipped", "port 0\nport 4000", 4000, true},
		{"word containing port", "report 12 items", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			port, found := ExtractPort(tt.logs, BuiltinPatterns())
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.port, port)
		})
	}
}

func TestExtractPort_SpecificPatternBeatsEarlierGenericLine(t *testing.T) {
	logs := "default port 8080 overridden\nServer listening on 0.0.0.0:41777\n"

	port, found := ExtractPort(logs, BuiltinPatterns())
	require.True(t, found)
	assert.Equal(t, 41777, port)
}

func TestCompilePatterns(t *testing.T) {
	patterns, err := CompilePatterns([]string{`bound to :(\d+)`})
	require.NoError(t, err)
	assert.Len(t, patterns, len(builtinPatterns)+1)

	port, found := ExtractPort("bound to :4321\nport 80", patterns)
	require.True(t, found)
	assert.Equal(t, 4321, port)

	_, err = CompilePatterns([]string{`no group \d+`})
	assert.Error(t, err)

	_, err = CompilePatterns([]string{`(unclosed`})
	assert.Error(t, err)
}
