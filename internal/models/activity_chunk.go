package models

import "time"

// Totals holds the counters measured over one chunk window.
type Totals struct {
	ActiveSeconds float64 `json:"activeSeconds"`
	IdleSeconds   float64 `json:"idleSeconds"`
	PointerMoves  int64   `json:"pointerMoves"`
	ScrollEvents  int64   `json:"scrollEvents"`
	Clicks        int64   `json:"clicks"`
	KeyPresses    int64   `json:"keyPresses"`
}

// Add accumulates other into t.
func (t *Totals) Add(other Totals) {
	t.ActiveSeconds += other.ActiveSeconds
	t.IdleSeconds += other.IdleSeconds
	t.PointerMoves += other.PointerMoves
	t.ScrollEvents += other.ScrollEvents
	t.Clicks += other.Clicks
	t.KeyPresses += other.KeyPresses
}

// AppDetail is the per-application breakdown inside a chunk.
type AppDetail struct {
	ProcessName   string  `json:"processName"`
	AppName       string  `json:"appName"`
	Title         string  `json:"title"`
	ActiveSeconds float64 `json:"activeSeconds"`
	IdleSeconds   float64 `json:"idleSeconds"`
	PointerMoves  int64   `json:"pointerMoves"`
	ScrollEvents  int64   `json:"scrollEvents"`
	Clicks        int64   `json:"clicks"`
	KeyPresses    int64   `json:"keyPresses"`
}

// UserRef is the device assignment captured when the chunk was ingested.
type UserRef struct {
	UserID   *string `json:"userId"`
	Username *string `json:"username"`
}

// ClientClock is the device-reported time. Diagnostics only.
type ClientClock struct {
	ClientEpochMs         int64 `json:"clientEpochMs"`
	IsClockUnreliable     bool  `json:"isClockUnreliable"`
	ClientTzOffsetMinutes int   `json:"clientTzOffsetMinutes"`
}

// ConfigSnapshot records the tracking settings in effect at ingestion time.
type ConfigSnapshot struct {
	ChunkDurationSeconds int `json:"chunkDurationSeconds"`
	IdleThresholdSeconds int `json:"idleThresholdSeconds"`
	Version              int `json:"version"`
}

// ActivityChunk is one fixed-duration measurement window for one device.
// (DeviceID, WindowEnd) identifies it.
type ActivityChunk struct {
	DeviceID            string         `json:"deviceId"`
	WindowStart         time.Time      `json:"windowStart"`
	WindowEnd           time.Time      `json:"windowEnd"`
	UserRef             UserRef        `json:"userRef"`
	ClientClock         ClientClock    `json:"clientClock"`
	ServerReceivedAt    time.Time      `json:"serverReceivedAt"`
	ServerClientDriftMs int64          `json:"serverClientDriftMs"`
	Totals              Totals         `json:"totals"`
	Details             []AppDetail    `json:"perAppDetails"`
	ConfigSnapshot      ConfigSnapshot `json:"configSnapshot"`
	Revision            int            `json:"revision"`
	UpdatedAt           time.Time      `json:"updatedAt"`
}
