package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"keepwarm/internal/constants"
	"keepwarm/internal/errors"
)

// MaxInstanceNameLength keeps "<prefix>-<name>-probe" within runtime name limits
const MaxInstanceNameLength = 63

var (
	// containerIDRegex validates container IDs and names
	containerIDRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)

	// instanceNameRegex validates instance names, which become file and container names
	instanceNameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

	// portRegex validates port mappings in HOST:CONTAINER format
	portRegex = regexp.MustCompile(`^\d{1,5}:\d{1,5}$`)

	// envVarKeyRegex validates environment variable keys
	envVarKeyRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

	// safeStringRegex matches strings that are safe for shell use without escaping
	safeStringRegex = regexp.MustCompile(`^[a-zA-Z0-9_\-./=@:+]+$`)
)

// InstanceName validates a user-chosen instance name
func InstanceName(name string) error {
	if name == "" {
		return errors.InvalidInput("instance name", "cannot be empty")
	}
	if len(name) > MaxInstanceNameLength {
		return errors.InvalidInput("instance name", fmt.Sprintf("too long (max %d characters)", MaxInstanceNameLength))
	}
	if !instanceNameRegex.MatchString(name) {
		return errors.InvalidInput("instance name",
			fmt.Sprintf("%q must start with a lowercase letter or digit and contain only lowercase letters, digits, '-' and '_'", name))
	}
	return nil
}

// ContainerID validates a container ID or name to prevent injection
func ContainerID(id string) error {
	if id == "" {
		return errors.InvalidInput("container id", "cannot be empty")
	}

	if len(id) > 255 {
		return errors.InvalidInput("container id", "too long (max 255 characters)")
	}

	if !containerIDRegex.MatchString(id) {
		return errors.InvalidInput("container id", fmt.Sprintf("%q contains invalid characters", id))
	}

	return nil
}

// EnvironmentVariable validates environment variable format (KEY=VALUE)
func EnvironmentVariable(envVar string) error {
	parts := strings.SplitN(envVar, "=", 2)
	if len(parts) != 2 {
		return errors.InvalidInput("environment variable", "must be in KEY=VALUE format")
	}

	key := parts[0]
	if key == "" {
		return errors.InvalidInput("environment variable", "key cannot be empty")
	}

	if !envVarKeyRegex.MatchString(key) {
		return errors.InvalidInput("environment variable", fmt.Sprintf("key %q must contain only letters, numbers, and underscores", key))
	}

	return nil
}

// PortMapping validates port mapping format (HOST:CONTAINER)
func PortMapping(port string) error {
	if !portRegex.MatchString(port) {
		return errors.InvalidInput("port mapping", fmt.Sprintf("%q must be in HOST:CONTAINER format", port))
	}

	for _, p := range strings.Split(port, ":") {
		portNum, err := strconv.Atoi(p)
		if err != nil {
			return errors.InvalidInput("port mapping", fmt.Sprintf("%q is not a number", p))
		}
		if err := PortNumber(portNum); err != nil {
			return err
		}
	}

	return nil
}

// PortNumber validates a single port number
func PortNumber(port int) error {
	if port < constants.MinPortNumber || port > constants.MaxPortNumber {
		return errors.InvalidPort(port)
	}
	return nil
}

// ShellEscape escapes a string for safe use in shell commands
func ShellEscape(s string) string {
	if safeStringRegex.MatchString(s) {
		return s
	}

	// Otherwise, wrap in single quotes and escape any single quotes
	return "'" + strings.ReplaceAll(s, "'", "'\"'\"'") + "'"
}
