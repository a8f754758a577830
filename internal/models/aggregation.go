package models

import "time"

// ActivityState is the coarse current state inferred from recent chunks.
type ActivityState string

const (
	StateActive ActivityState = "active"
	StateIdle   ActivityState = "idle"
)

// TimeRange is a half-open [From, To) interval over chunk window ends.
type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Summary sums all totals over a range.
type Summary struct {
	Totals
	Chunks int `json:"chunks"`
}

// AppUsage is one row of the top applications rollup.
type AppUsage struct {
	AppName       string  `json:"appName"`
	ActiveSeconds float64 `json:"activeSeconds"`
	IdleSeconds   float64 `json:"idleSeconds"`
	Clicks        int64   `json:"clicks"`
	KeyPresses    int64   `json:"keyPresses"`
}

// TitleUsage is one row of the per-title rollup of a single application.
type TitleUsage struct {
	AppName     string `json:"appName"`
	Title       string `json:"title"`
	ProcessName string `json:"processName"`
	Totals
	Chunks int `json:"count"`
}

// TodaySnapshot is the activity of the current calendar day. A device
// without chunks today has no snapshot at all.
type TodaySnapshot struct {
	DeviceID       string        `json:"deviceId"`
	Window         TimeRange     `json:"window"`
	Totals         Totals        `json:"totals"`
	Chunks         int           `json:"chunks"`
	FirstWindowEnd time.Time     `json:"firstWindowEnd"`
	LastWindowEnd  time.Time     `json:"lastWindowEnd"`
	ActivityState  ActivityState `json:"activityState"`
	Fresh          bool          `json:"fresh"`
}

// ChunkPage is a page of chunks with the total match count.
type ChunkPage struct {
	Chunks []ActivityChunk `json:"chunks"`
	Total  int             `json:"total"`
	Limit  int             `json:"limit"`
	Skip   int             `json:"skip"`
}
