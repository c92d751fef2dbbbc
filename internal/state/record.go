// Package state persists one instance record per file under a per-user directory.
package state

import (
	"time"
)

// Record is the persisted description of one named instance
type Record struct {
	InstanceName    string    `json:"instanceName" yaml:"instanceName"`
	ContainerHandle string    `json:"containerHandle" yaml:"containerHandle"`
	ContainerLabel  string    `json:"containerLabel" yaml:"containerLabel"`
	Port            int       `json:"port" yaml:"port"`
	Model           string    `json:"model,omitempty" yaml:"model,omitempty"`
	LogLevel        string    `json:"logLevel" yaml:"logLevel"`
	StartedAt       time.Time `json:"startedAt" yaml:"startedAt"`
	WorkspacePath   string    `json:"workspacePath" yaml:"workspacePath"`
	AuxConfigPath   string    `json:"auxConfigPath,omitempty" yaml:"auxConfigPath,omitempty"`
}

// ContainerLabel derives the container label of an instance
func ContainerLabel(prefix, name string) string {
	return prefix + "-" + name
}
