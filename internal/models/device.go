package models

import "time"

// Channel is one of the two independent heartbeat/command paths of a device.
type Channel string

const (
	ChannelClient  Channel = "client"
	ChannelService Channel = "service"
)

// Valid reports whether c is a known channel.
func (c Channel) Valid() bool {
	return c == ChannelClient || c == ChannelService
}

// Device is a registered endpoint. Presence is never stored on it.
type Device struct {
	DeviceID               string     `json:"deviceId"`
	UserID                 *string    `json:"userId,omitempty"`
	Username               *string    `json:"username,omitempty"`
	DisplayName            *string    `json:"displayName,omitempty"`
	ProfileURL             *string    `json:"profileURL,omitempty"`
	Designation            *string    `json:"designation,omitempty"`
	CheckInTime            *time.Time `json:"checkInTime,omitempty"`
	LastClientHeartbeatAt  *time.Time `json:"lastClientHeartbeatAt,omitempty"`
	LastServiceHeartbeatAt *time.Time `json:"lastServiceHeartbeatAt,omitempty"`
	LastSeenAt             *time.Time `json:"lastSeenAt,omitempty"`
	CreatedAt              time.Time  `json:"createdAt"`
	UpdatedAt              time.Time  `json:"updatedAt"`
}

// HeartbeatAt returns the last heartbeat recorded on the given channel.
func (d *Device) HeartbeatAt(ch Channel) *time.Time {
	if ch == ChannelService {
		return d.LastServiceHeartbeatAt
	}
	return d.LastClientHeartbeatAt
}

// AssignmentUpdate is a partial update of the device assignment. Nil fields
// are left untouched.
type AssignmentUpdate struct {
	UserID      *string    `json:"userId,omitempty"`
	Username    *string    `json:"username,omitempty"`
	DisplayName *string    `json:"name,omitempty"`
	ProfileURL  *string    `json:"profileURL,omitempty"`
	Designation *string    `json:"designation,omitempty"`
	CheckInTime *time.Time `json:"checkInTime,omitempty"`
}

// HeartbeatRequest is posted by the client app or the service agent.
type HeartbeatRequest struct {
	DeviceID string  `json:"deviceId" validate:"required"`
	Channel  Channel `json:"type" validate:"required,oneof=client service"`
	Claim    bool    `json:"claim"`
}

// PresenceStatus is the derived liveness of one channel.
type PresenceStatus string

const (
	PresenceOnline  PresenceStatus = "online"
	PresenceOffline PresenceStatus = "offline"
)

// Presence is derived at read time from heartbeat timestamps.
type Presence struct {
	ClientStatus  PresenceStatus `json:"clientStatus"`
	ServiceStatus PresenceStatus `json:"serviceStatus"`
	LastSeen      *time.Time     `json:"lastSeen"`
}

// DeviceView is a device with its derived presence.
type DeviceView struct {
	Device
	Presence
}

// HeartbeatResponse is returned to the polling device.
type HeartbeatResponse struct {
	Device   DeviceView `json:"device"`
	Commands []Command  `json:"commands"`
	Claimed  *Command   `json:"claimed,omitempty"`
}

// CommandSummary condenses the command history of one device.
type CommandSummary struct {
	LastPending *Command              `json:"lastPending"`
	LastAck     *Command              `json:"lastAck"`
	Totals      map[CommandStatus]int `json:"totals"`
}

// DeviceOverview combines presence, commands and today's activity.
type DeviceOverview struct {
	DeviceView
	CommandsSummary CommandSummary `json:"commandsSummary"`
	ActivityToday   *TodaySnapshot `json:"activityToday"`
}
