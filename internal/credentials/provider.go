// Package credentials resolves the secrets a worker container needs.
package credentials

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"keepwarm/internal/errors"
	"keepwarm/internal/logger"
)

// Provider yields KEY=VALUE entries injected into the worker's environment
type Provider interface {
	Resolve(ctx context.Context) ([]string, error)
}

// EnvProvider reads the configured keys from the process environment and
// falls back to a KEY=VALUE credentials file for keys that are unset.
type EnvProvider struct {
	Keys []string
	File string

	lookupEnv func(string) (string, bool)
}

// NewEnvProvider creates a provider for keys with an optional fallback file
func NewEnvProvider(keys []string, file string) *EnvProvider {
	return &EnvProvider{Keys: keys, File: file, lookupEnv: os.LookupEnv}
}

// Resolve returns every key that has a value. It fails only when keys are
// configured and none of them resolves.
func (p *EnvProvider) Resolve(ctx context.Context) ([]string, error) {
	if len(p.Keys) == 0 {
		return nil, nil
	}

	lookup := p.lookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}

	found := make(map[string]string, len(p.Keys))
	var missing []string
	for _, key := range p.Keys {
		if v, ok := lookup(key); ok && v != "" {
			found[key] = v
			continue
		}
		missing = append(missing, key)
	}

	if len(missing) > 0 && p.File != "" {
		fileValues, err := readCredentialsFile(p.File)
		if err != nil {
			return nil, errors.CredentialUnavailable(fmt.Sprintf("cannot read credentials file %s", p.File), err)
		}
		for _, key := range missing {
			if v, ok := fileValues[key]; ok && v != "" {
				found[key] = v
			}
		}
	}

	if len(found) == 0 {
		return nil, errors.CredentialUnavailable(
			fmt.Sprintf("none of %s is set", strings.Join(p.Keys, ", ")), nil)
	}

	env := make([]string, 0, len(found))
	for _, key := range p.Keys {
		if v, ok := found[key]; ok {
			env = append(env, key+"="+v)
		}
	}
	logger.WithContext(ctx).WithField("keys", len(env)).Debug("Resolved credentials")
	return env, nil
}

// readCredentialsFile parses KEY=VALUE lines, ignoring blanks, comments and a
// leading "export ". Values may be wrapped in single or double quotes.
func readCredentialsFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("line %d: expected KEY=VALUE", lineNo)
		}
		values[strings.TrimSpace(key)] = unquote(strings.TrimSpace(value))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return values, nil
}

func unquote(v string) string {
	if len(v) >= 2 {
		if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
			return v[1 : len(v)-1]
		}
	}
	return v
}
