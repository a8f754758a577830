package models

import "time"

// CommandStatus is the lifecycle state of a command.
type CommandStatus string

const (
	CommandPending      CommandStatus = "pending"
	CommandAcknowledged CommandStatus = "acknowledged"
	CommandCompleted    CommandStatus = "completed"
)

// Valid reports whether s is a known status.
func (s CommandStatus) Valid() bool {
	switch s {
	case CommandPending, CommandAcknowledged, CommandCompleted:
		return true
	}
	return false
}

// Command is a unit of work queued for a device channel.
type Command struct {
	CommandID      string                 `json:"commandId"`
	DeviceID       string                 `json:"deviceId"`
	Channel        Channel                `json:"target"`
	Type           string                 `json:"type"`
	Payload        map[string]interface{} `json:"payload"`
	Status         CommandStatus          `json:"status"`
	CreatedAt      time.Time              `json:"createdAt"`
	AcknowledgedAt *time.Time             `json:"acknowledgedAt,omitempty"`
	CompletedAt    *time.Time             `json:"completedAt,omitempty"`
}

// CreateCommandRequest is the body for creating a command.
type CreateCommandRequest struct {
	DeviceID string                 `json:"deviceId" validate:"required"`
	Channel  Channel                `json:"target" validate:"required,oneof=client service"`
	Type     string                 `json:"type" validate:"required"`
	Payload  map[string]interface{} `json:"payload"`
}

// ClaimRequest asks for the newest pending command of a channel.
type ClaimRequest struct {
	DeviceID string  `json:"deviceId" validate:"required"`
	Channel  Channel `json:"target" validate:"required,oneof=client service"`
}

// CommandFilter narrows command listings.
type CommandFilter struct {
	DeviceID string
	Status   CommandStatus
	From     *time.Time
	To       *time.Time
	Limit    int
	Skip     int
}
