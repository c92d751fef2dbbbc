package db

import "time"

// EventKind is a lifecycle transition recorded in the journal
type EventKind string

const (
	EventStarted     EventKind = "started"
	EventStopped     EventKind = "stopped"
	EventStartFailed EventKind = "start_failed"
	EventStopFailed  EventKind = "stop_failed"
)

// Valid reports whether k is a known event kind
func (k EventKind) Valid() bool {
	switch k {
	case EventStarted, EventStopped, EventStartFailed, EventStopFailed:
		return true
	}
	return false
}

// Event is one row of the lifecycle history
type Event struct {
	ID           string    `json:"id" yaml:"id" db:"id"`
	InstanceName string    `json:"instanceName" yaml:"instanceName" db:"instance_name"`
	Event        EventKind `json:"event" yaml:"event" db:"event"`
	ContainerID  string    `json:"containerId,omitempty" yaml:"containerId,omitempty" db:"container_id"`
	Port         int       `json:"port,omitempty" yaml:"port,omitempty" db:"port"`
	Runtime      string    `json:"runtime,omitempty" yaml:"runtime,omitempty" db:"runtime"`
	Detail       string    `json:"detail,omitempty" yaml:"detail,omitempty" db:"detail"`
	CreatedAt    time.Time `json:"createdAt" yaml:"createdAt" db:"created_at"`
}

// TableName returns the table name for Event
func (Event) TableName() string {
	return "instance_events"
}
