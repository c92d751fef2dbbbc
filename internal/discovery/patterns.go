package discovery

import (
	"bufio"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"keepwarm/internal/validation"
)

// builtinPatterns recognize a worker announcing its bound port, most specific first.
// Each captures the port in its first group.
var builtinPatterns = []*regexp.Regexp{
	// Server listening on 0.0.0.0:41777, listening on :8080
	regexp.MustCompile(`(?i)\blistening on (?:https?://)?(?:\[[0-9a-f:]*\]|[\w.-]+)?:(\d{1,5})\b`),
	// Server started at http://localhost:41777
	regexp.MustCompile(`(?i)\b(?:started|running|ready|serving)\b.*?\b(?:on|at)\s+(?:https?://)?(?:\[[0-9a-f:]*\]|[\w.-]+):(\d{1,5})\b`),
	// any loopback or wildcard URL
	regexp.MustCompile(`(?i)\bhttps?://(?:localhost|127\.0\.0\.1|0\.0\.0\.0|\[::1?\]):(\d{1,5})\b`),
	// generic "port 41777" / "port=41777" / "port: 41777"
	regexp.MustCompile(`(?i)\bport[\s:=]+(\d{1,5})\b`),
}

// CompilePatterns compiles extra patterns and places them ahead of the built-ins
func CompilePatterns(extra []string) ([]*regexp.Regexp, error) {
	patterns := make([]*regexp.Regexp, 0, len(extra)+len(builtinPatterns))
	for _, p := range extra {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid discovery pattern %q: %w", p, err)
		}
		if re.NumSubexp() < 1 {
			return nil, fmt.Errorf("discovery pattern %q has no capture group", p)
		}
		patterns = append(patterns, re)
	}
	return append(patterns, builtinPatterns...), nil
}

// BuiltinPatterns returns a copy of the built-in announcement patterns
func BuiltinPatterns() []*regexp.Regexp {
	return append([]*regexp.Regexp(nil), builtinPatterns...)
}

// ExtractPort scans logs for a port announcement. Patterns are tried in
// order and, for each, lines are scanned top to bottom; the first capture
// that is a valid TCP port wins.
func ExtractPort(logs string, patterns []*regexp.Regexp) (int, bool) {
	if strings.TrimSpace(logs) == "" {
		return 0, false
	}

	lines := splitLines(logs)
	for _, re := range patterns {
		for _, line := range lines {
			m := re.FindStringSubmatch(line)
			if len(m) < 2 {
				continue
			}
			port, err := strconv.Atoi(m[1])
			if err != nil || validation.PortNumber(port) != nil {
				continue
			}
			return port, true
		}
	}
	return 0, false
}

func splitLines(s string) []string {
	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(s))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}
