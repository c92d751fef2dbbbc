package server

import (
	"keepwarm/internal/lifecycle"
	"keepwarm/internal/state"
)

// HealthResponse reports server and dependency health
type HealthResponse struct {
	Status        string `json:"status" example:"healthy"`
	Uptime        string `json:"uptime" example:"2h30m15s"`
	Runtime       string `json:"runtime" example:"docker"`
	Database      string `json:"database,omitempty" example:"healthy"`
	SchemaVersion uint   `json:"schema_version,omitempty" example:"1"`
}

// InstancesResponse is a list of observed instances
type InstancesResponse struct {
	Instances []*lifecycle.InstanceInfo `json:"instances"`
	Total     int                       `json:"total" example:"2"`
}

// StartInstanceRequest asks for a new instance
type StartInstanceRequest struct {
	Name          string `json:"name" validate:"required" example:"alpha"`
	Port          int    `json:"port,omitempty" example:"9001"`
	Model         string `json:"model,omitempty"`
	LogLevel      string `json:"log_level,omitempty" example:"info"`
	AuxConfigPath string `json:"aux_config_path,omitempty"`
	SkipDeps      bool   `json:"skip_deps,omitempty"`
}

// StartInstanceResponse describes a started instance
type StartInstanceResponse struct {
	Instance   *state.Record `json:"instance"`
	Discovered bool          `json:"discovered"`
}

// StopInstanceResponse describes a stopped instance
type StopInstanceResponse struct {
	Name            string `json:"name" example:"alpha"`
	ContainerHandle string `json:"containerHandle"`
	Message         string `json:"message" example:"Instance stopped"`
}

// LogsResponse holds a bounded tail of an instance's logs
type LogsResponse struct {
	Name  string   `json:"name" example:"alpha"`
	Tail  int      `json:"tail" example:"100"`
	Lines []string `json:"lines"`
}

// LogMessage is one websocket frame of a followed log stream
type LogMessage struct {
	Type string `json:"type"` // 'log', 'error'
	Data string `json:"data,omitempty"`
}
