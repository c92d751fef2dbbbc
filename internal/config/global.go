package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"keepwarm/internal/constants"
	"keepwarm/internal/errors"
	"keepwarm/internal/xdg"

	"github.com/pelletier/go-toml/v2"
)

// ConfigFileName is the name of the global configuration file
const ConfigFileName = "config.toml"

// GlobalConfig represents the global keepwarm configuration
type GlobalConfig struct {
	LogLevel    string            `toml:"log_level" json:"log_level" yaml:"log_level"`
	Runtime     RuntimeConfig     `toml:"runtime" json:"runtime" yaml:"runtime"`
	Worker      WorkerConfig      `toml:"worker" json:"worker" yaml:"worker"`
	Discovery   DiscoveryConfig   `toml:"discovery" json:"discovery" yaml:"discovery"`
	Credentials CredentialsConfig `toml:"credentials" json:"credentials" yaml:"credentials"`
	State       StateConfig       `toml:"state" json:"state" yaml:"state"`
	History     HistoryConfig     `toml:"history" json:"history" yaml:"history"`
	Server      ServerConfig      `toml:"server" json:"server" yaml:"server"`
}

type RuntimeConfig struct {
	Type   string `toml:"type" json:"type" yaml:"type"`       // auto, docker, podman or apple
	Binary string `toml:"binary" json:"binary" yaml:"binary"` // Override the runtime CLI path
}

// WorkerConfig describes the containerized worker and how it is driven
type WorkerConfig struct {
	Image           string   `toml:"image" json:"image" yaml:"image"`
	Command         []string `toml:"command" json:"command" yaml:"command"`
	ConnectCommand  []string `toml:"connect_command" json:"connect_command" yaml:"connect_command"`
	PromptFlag      string   `toml:"prompt_flag" json:"prompt_flag" yaml:"prompt_flag"`
	PortFlag        string   `toml:"port_flag" json:"port_flag" yaml:"port_flag"`
	ModelFlag       string   `toml:"model_flag" json:"model_flag" yaml:"model_flag"`
	LogLevelFlag    string   `toml:"log_level_flag" json:"log_level_flag" yaml:"log_level_flag"`
	HostFlag        string   `toml:"host_flag" json:"host_flag" yaml:"host_flag"`
	Host            string   `toml:"host" json:"host" yaml:"host"`
	WorkDir         string   `toml:"workdir" json:"workdir" yaml:"workdir"`
	ContainerPrefix string   `toml:"container_prefix" json:"container_prefix" yaml:"container_prefix"`
	DefaultLogLevel string   `toml:"default_log_level" json:"default_log_level" yaml:"default_log_level"`
	AuxConfigTarget string   `toml:"aux_config_target" json:"aux_config_target" yaml:"aux_config_target"`
	Env             []string `toml:"env" json:"env" yaml:"env"`
}

type DiscoveryConfig struct {
	TimeoutMS  int      `toml:"timeout_ms" json:"timeout_ms" yaml:"timeout_ms"`
	IntervalMS int      `toml:"interval_ms" json:"interval_ms" yaml:"interval_ms"`
	Patterns   []string `toml:"patterns" json:"patterns" yaml:"patterns"` // Tried before the built-in patterns
}

type CredentialsConfig struct {
	Env  []string `toml:"env" json:"env" yaml:"env"`
	File string   `toml:"file" json:"file" yaml:"file"`
}

type StateConfig struct {
	Dir string `toml:"dir" json:"dir" yaml:"dir"`
}

type HistoryConfig struct {
	Enabled bool   `toml:"enabled" json:"enabled" yaml:"enabled"`
	Path    string `toml:"path" json:"path" yaml:"path"`
}

type ServerConfig struct {
	Host string `toml:"host" json:"host" yaml:"host"`
	Port int    `toml:"port" json:"port" yaml:"port"`
}

// Timeout returns the discovery timeout as a duration
func (d DiscoveryConfig) Timeout() time.Duration {
	return time.Duration(d.TimeoutMS) * time.Millisecond
}

// Interval returns the discovery poll interval as a duration
func (d DiscoveryConfig) Interval() time.Duration {
	return time.Duration(d.IntervalMS) * time.Millisecond
}

// DefaultGlobalConfig returns the default global configuration
func DefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		LogLevel: "warn",
		Runtime: RuntimeConfig{
			Type: "auto",
		},
		Worker: WorkerConfig{
			Image:           "ghcr.io/keepwarm/worker:latest",
			Command:         []string{"worker", "serve"},
			ConnectCommand:  []string{"worker", "connect"},
			PromptFlag:      "--prompt",
			PortFlag:        "--port",
			ModelFlag:       "--model",
			LogLevelFlag:    "--log-level",
			HostFlag:        "--host",
			Host:            "0.0.0.0",
			WorkDir:         "/workspace",
			ContainerPrefix: "keepwarm",
			DefaultLogLevel: "info",
			AuxConfigTarget: "/etc/keepwarm/mcp.json",
		},
		Discovery: DiscoveryConfig{
			TimeoutMS:  int(constants.DefaultDiscoveryTimeout / time.Millisecond),
			IntervalMS: int(constants.DefaultDiscoveryInterval / time.Millisecond),
		},
		Credentials: CredentialsConfig{
			Env: []string{"ANTHROPIC_API_KEY"},
		},
		History: HistoryConfig{
			Enabled: true,
		},
		Server: ServerConfig{
			Host: "localhost",
			Port: constants.DefaultServerPort,
		},
	}
}

// GetConfigDir returns the XDG config directory for keepwarm
func GetConfigDir() (string, error) {
	return xdg.ConfigDir()
}

// GetConfigPath returns the path of the global configuration file
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, ConfigFileName), nil
}

// LoadGlobalConfig loads the global configuration from XDG config directory
func LoadGlobalConfig() (*GlobalConfig, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadGlobalConfigFrom(configPath)
}

// LoadGlobalConfigFrom loads configuration from path. A missing file yields defaults.
func LoadGlobalConfigFrom(configPath string) (*GlobalConfig, error) {
	config := DefaultGlobalConfig()

	data, err := os.ReadFile(configPath)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, err
	default:
		// history.enabled defaults to true, so decode over the defaults
		// and then refill only the zero values a partial file leaves behind
		loaded := GlobalConfig{History: HistoryConfig{Enabled: true}}
		if err := toml.Unmarshal(data, &loaded); err != nil {
			return nil, errors.ConfigParseError(configPath, err)
		}
		applyDefaults(&loaded, config)
		config = &loaded
	}

	applyEnvOverrides(config)

	if err := resolvePaths(config); err != nil {
		return nil, err
	}
	if err := ValidateGlobalConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

// SaveGlobalConfig saves the global configuration to XDG config directory
func SaveGlobalConfig(config *GlobalConfig) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}
	return config.Save(configPath)
}

// Save saves the global configuration to the specified path
func (g *GlobalConfig) Save(path string) error {
	data, err := toml.Marshal(g)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), constants.DirPermissions); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return os.WriteFile(path, data, constants.FilePermissions)
}

// ValidateGlobalConfig validates the global configuration
func ValidateGlobalConfig(config *GlobalConfig) error {
	if config == nil {
		return errors.ConfigInvalid("config cannot be nil")
	}

	switch config.Runtime.Type {
	case "auto", "docker", "podman", "apple":
	default:
		return errors.ConfigInvalid(fmt.Sprintf("runtime.type must be auto, docker, podman or apple, got %q", config.Runtime.Type))
	}

	if config.Worker.Image == "" {
		return errors.ConfigInvalid("worker.image cannot be empty")
	}
	if len(config.Worker.Command) == 0 {
		return errors.ConfigInvalid("worker.command cannot be empty")
	}
	if config.Worker.PortFlag == "" {
		return errors.ConfigInvalid("worker.port_flag cannot be empty")
	}

	if config.Discovery.TimeoutMS <= 0 || config.Discovery.IntervalMS <= 0 {
		return errors.ConfigInvalid("discovery timeout_ms and interval_ms must be positive")
	}
	if config.Discovery.IntervalMS > config.Discovery.TimeoutMS {
		return errors.ConfigInvalid("discovery.interval_ms cannot exceed discovery.timeout_ms")
	}
	for _, p := range config.Discovery.Patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return errors.ConfigInvalid(fmt.Sprintf("discovery pattern %q: %v", p, err))
		}
		if re.NumSubexp() < 1 {
			return errors.ConfigInvalid(fmt.Sprintf("discovery pattern %q must capture the port in a group", p))
		}
	}

	if config.Server.Port < constants.MinPortNumber || config.Server.Port > constants.MaxPortNumber {
		return errors.ConfigInvalid(fmt.Sprintf("invalid server port: %d", config.Server.Port))
	}

	return nil
}

func applyDefaults(config, defaults *GlobalConfig) {
	if config.LogLevel == "" {
		config.LogLevel = defaults.LogLevel
	}
	if config.Runtime.Type == "" {
		config.Runtime.Type = defaults.Runtime.Type
	}

	w, dw := &config.Worker, defaults.Worker
	fillString(&w.Image, dw.Image)
	fillString(&w.PromptFlag, dw.PromptFlag)
	fillString(&w.PortFlag, dw.PortFlag)
	fillString(&w.ModelFlag, dw.ModelFlag)
	fillString(&w.LogLevelFlag, dw.LogLevelFlag)
	fillString(&w.HostFlag, dw.HostFlag)
	fillString(&w.Host, dw.Host)
	fillString(&w.WorkDir, dw.WorkDir)
	fillString(&w.ContainerPrefix, dw.ContainerPrefix)
	fillString(&w.DefaultLogLevel, dw.DefaultLogLevel)
	fillString(&w.AuxConfigTarget, dw.AuxConfigTarget)
	if len(w.Command) == 0 {
		w.Command = dw.Command
	}
	if len(w.ConnectCommand) == 0 {
		w.ConnectCommand = dw.ConnectCommand
	}

	if config.Discovery.TimeoutMS == 0 {
		config.Discovery.TimeoutMS = defaults.Discovery.TimeoutMS
	}
	if config.Discovery.IntervalMS == 0 {
		config.Discovery.IntervalMS = defaults.Discovery.IntervalMS
	}
	if config.Credentials.Env == nil {
		config.Credentials.Env = defaults.Credentials.Env
	}
	fillString(&config.Server.Host, defaults.Server.Host)
	if config.Server.Port == 0 {
		config.Server.Port = defaults.Server.Port
	}
}

func applyEnvOverrides(config *GlobalConfig) {
	if v := os.Getenv("KEEPWARM_RUNTIME"); v != "" {
		config.Runtime.Type = v
	}
	if v := os.Getenv("KEEPWARM_IMAGE"); v != "" {
		config.Worker.Image = v
	}
	if v := os.Getenv("KEEPWARM_STATE_DIR"); v != "" {
		config.State.Dir = v
	}
}

// resolvePaths expands tilde paths and fills XDG defaults for empty ones
func resolvePaths(config *GlobalConfig) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	for _, p := range []*string{&config.State.Dir, &config.History.Path, &config.Credentials.File} {
		if strings.HasPrefix(*p, "~/") {
			*p = filepath.Join(homeDir, (*p)[2:])
		}
	}

	if config.State.Dir == "" {
		if config.State.Dir, err = xdg.InstancesDir(); err != nil {
			return err
		}
	}
	if config.History.Path == "" {
		if config.History.Path, err = xdg.HistoryDBPath(); err != nil {
			return err
		}
	}
	return nil
}

func fillString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}
