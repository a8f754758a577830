package models

// IngestRequest is the batch body posted by agents.
type IngestRequest struct {
	Chunks []ChunkInput `json:"chunks" validate:"required,min=1,dive"`
}

// ChunkInput is one chunk as reported by the agent.
type ChunkInput struct {
	DeviceID   string        `json:"deviceId" validate:"required,min=1"`
	LogClock   ClockInput    `json:"logClock"`
	LogTotals  TotalsInput   `json:"logTotals"`
	LogDetails []DetailInput `json:"logDetails" validate:"dive"`
}

// ClockInput carries the client end-of-window time in epoch milliseconds.
type ClockInput struct {
	ClientSideTimeEpochMs *int64 `json:"clientSideTimeEpochMs" validate:"required,gte=0,lte=253402300799999"`
	IsTimeDirty           bool   `json:"isTimeDirty"`
	ClientTzOffsetMin     *int   `json:"clientTzOffsetMin" validate:"omitempty,gte=-840,lte=840"`
}

// TotalsInput accepts the legacy "mouseScolls" spelling as an alias.
type TotalsInput struct {
	ActiveTime     *float64 `json:"activeTime" validate:"required,gte=0"`
	IdleTime       *float64 `json:"idleTime" validate:"required,gte=0"`
	MouseMovements *int64   `json:"mouseMovements" validate:"required,gte=0"`
	MouseScrolls   *int64   `json:"mouseScrolls" validate:"omitempty,gte=0"`
	MouseScolls    *int64   `json:"mouseScolls" validate:"omitempty,gte=0"`
	MouseClicks    *int64   `json:"mouseClicks" validate:"required,gte=0"`
	KeysPressed    *int64   `json:"keysPressed" validate:"required,gte=0"`
}

// DetailInput is one per-application record inside a chunk.
type DetailInput struct {
	ProcessName    string   `json:"processName" validate:"required,min=1"`
	AppName        string   `json:"appName"`
	Title          string   `json:"title"`
	ActiveTime     *float64 `json:"activeTime" validate:"required,gte=0"`
	IdleTime       *float64 `json:"idleTime" validate:"required,gte=0"`
	MouseMovements *int64   `json:"mouseMovements" validate:"required,gte=0"`
	MouseScrolls   *int64   `json:"mouseScrolls" validate:"omitempty,gte=0"`
	MouseScolls    *int64   `json:"mouseScolls" validate:"omitempty,gte=0"`
	MouseClicks    *int64   `json:"mouseClicks" validate:"required,gte=0"`
	KeysPressed    *int64   `json:"keysPressed" validate:"required,gte=0"`
}

// OutcomeStatus is the client-visible result for one submitted chunk.
type OutcomeStatus string

const (
	OutcomePending   OutcomeStatus = "pending"
	OutcomeInserted  OutcomeStatus = "inserted"
	OutcomeUpdated   OutcomeStatus = "updated"
	OutcomeDuplicate OutcomeStatus = "duplicate"
	OutcomeFailed    OutcomeStatus = "failed"
)

// Error codes reported on failed outcomes.
const (
	ErrCodePrepare    = "prepare_error"
	ErrCodeValidation = "validation_error"
	ErrCodeWrite      = "write_error"
	ErrCodeBulkWrite  = "bulk_write_failed"
)

// ChunkOutcome reports what happened to one chunk of a batch.
type ChunkOutcome struct {
	DeviceID     string        `json:"deviceId"`
	EndAtEpochMs int64         `json:"endAtEpochMs"`
	Status       OutcomeStatus `json:"status"`
	Error        string        `json:"error,omitempty"`
}

// IngestCounters aggregates outcomes of a batch.
type IngestCounters struct {
	Inserted   int `json:"inserted"`
	Updated    int `json:"updated"`
	Duplicates int `json:"duplicates"`
	Failed     int `json:"failed"`
}

// IngestResult parallels the submitted batch one-to-one.
type IngestResult struct {
	Results  []ChunkOutcome `json:"results"`
	Counters IngestCounters `json:"counters"`
}

// CountOutcomes recomputes the counters from the per-chunk results.
func (r *IngestResult) CountOutcomes() {
	r.Counters = IngestCounters{}
	for _, res := range r.Results {
		switch res.Status {
		case OutcomeInserted:
			r.Counters.Inserted++
		case OutcomeUpdated:
			r.Counters.Updated++
		case OutcomeDuplicate:
			r.Counters.Duplicates++
		default:
			r.Counters.Failed++
		}
	}
}
