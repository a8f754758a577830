package models

import "time"

// TrackingSettings is the configuration snapshot handed to the ingestion,
// aggregation and presence components.
type TrackingSettings struct {
	ChunkDurationSeconds            int       `json:"chunkDurationSeconds"`
	IdleThresholdSeconds            int       `json:"idleThresholdSeconds"`
	ClientHeartbeatIntervalSeconds  int       `json:"clientHeartbeatIntervalSeconds"`
	ServiceHeartbeatIntervalSeconds int       `json:"serviceHeartbeatIntervalSeconds"`
	Version                         int       `json:"configVersion"`
	UpdatedAt                       time.Time `json:"updatedAt,omitempty"`
}

// Defaults used whenever no settings are stored or the store is unavailable.
const (
	DefaultChunkDurationSeconds            = 300
	DefaultIdleThresholdSeconds            = 60
	DefaultClientHeartbeatIntervalSeconds  = 60
	DefaultServiceHeartbeatIntervalSeconds = 120
	DefaultConfigVersion                   = 1
)

// DefaultTrackingSettings returns the documented fallback snapshot.
func DefaultTrackingSettings() TrackingSettings {
	return TrackingSettings{
		ChunkDurationSeconds:            DefaultChunkDurationSeconds,
		IdleThresholdSeconds:            DefaultIdleThresholdSeconds,
		ClientHeartbeatIntervalSeconds:  DefaultClientHeartbeatIntervalSeconds,
		ServiceHeartbeatIntervalSeconds: DefaultServiceHeartbeatIntervalSeconds,
		Version:                         DefaultConfigVersion,
	}
}

// ChunkDuration returns the chunk length as a duration.
func (s TrackingSettings) ChunkDuration() time.Duration {
	return time.Duration(s.ChunkDurationSeconds) * time.Second
}

// FreshnessWindow is how old the newest chunk may be before the device is
// assumed idle.
func (s TrackingSettings) FreshnessWindow() time.Duration {
	return time.Duration(s.ChunkDurationSeconds+s.IdleThresholdSeconds) * time.Second
}

// HeartbeatInterval returns the expected heartbeat cadence of a channel.
func (s TrackingSettings) HeartbeatInterval(ch Channel) time.Duration {
	if ch == ChannelService {
		return time.Duration(s.ServiceHeartbeatIntervalSeconds) * time.Second
	}
	return time.Duration(s.ClientHeartbeatIntervalSeconds) * time.Second
}

// Snapshot returns the subset stamped on ingested chunks.
func (s TrackingSettings) Snapshot() ConfigSnapshot {
	return ConfigSnapshot{
		ChunkDurationSeconds: s.ChunkDurationSeconds,
		IdleThresholdSeconds: s.IdleThresholdSeconds,
		Version:              s.Version,
	}
}

// SettingsUpdate is a partial update of the stored settings.
type SettingsUpdate struct {
	ChunkDurationSeconds            *int `json:"chunkDurationSeconds,omitempty" validate:"omitempty,gt=0"`
	IdleThresholdSeconds            *int `json:"idleThresholdSeconds,omitempty" validate:"omitempty,gt=0"`
	ClientHeartbeatIntervalSeconds  *int `json:"clientHeartbeatIntervalSeconds,omitempty" validate:"omitempty,gt=0"`
	ServiceHeartbeatIntervalSeconds *int `json:"serviceHeartbeatIntervalSeconds,omitempty" validate:"omitempty,gt=0"`
}
