// Package xdg provides XDG Base Directory Specification compliant paths
package xdg

import (
	"os"
	"path/filepath"
)

// AppName is the directory name used under every XDG base directory
const AppName = "keepwarm"

// ConfigDir returns the XDG config directory for keepwarm
// Priority: XDG_CONFIG_HOME > ~/.config/keepwarm
func ConfigDir() (string, error) {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, AppName), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", AppName), nil
}

// DataDir returns the XDG data directory for keepwarm
// Priority: XDG_DATA_HOME > ~/.local/share/keepwarm
func DataDir() (string, error) {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, AppName), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".local", "share", AppName), nil
}

// StateDir returns the XDG state directory for keepwarm
// Priority: XDG_STATE_HOME > ~/.local/state/keepwarm
func StateDir() (string, error) {
	if xdgState := os.Getenv("XDG_STATE_HOME"); xdgState != "" {
		return filepath.Join(xdgState, AppName), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".local", "state", AppName), nil
}

// InstancesDir returns the directory holding one record file per instance
func InstancesDir() (string, error) {
	stateDir, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(stateDir, "instances"), nil
}

// HistoryDBPath returns the default path of the lifecycle history database
func HistoryDBPath() (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "history.db"), nil
}
