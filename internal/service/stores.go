package service

import (
	"context"
	"time"

	"Mansoor88-6/activity-hub/internal/models"
	"Mansoor88-6/activity-hub/internal/repository"
)

// ChunkStore is the persistence the ingestion and aggregation services need.
type ChunkStore interface {
	UpsertBatch(ctx context.Context, chunks []models.ActivityChunk) (*repository.BulkWriteResult, error)
	List(ctx context.Context, deviceID string, rng models.TimeRange, limit, skip int) ([]models.ActivityChunk, int, error)
	WindowEnds(ctx context.Context, deviceID string, rng models.TimeRange) ([]int64, error)
	Summary(ctx context.Context, deviceID string, rng models.TimeRange) (models.Summary, error)
	TopApps(ctx context.Context, deviceID string, rng models.TimeRange, limit int) ([]models.AppUsage, error)
	TopTitles(ctx context.Context, deviceID, appName string, rng models.TimeRange, limit int) ([]models.TitleUsage, error)
	DayStats(ctx context.Context, deviceID string, rng models.TimeRange) (*repository.DayStats, error)
	PurgeAll(ctx context.Context) (int64, error)
}

// AssignmentLookup resolves the user assigned to a device.
type AssignmentLookup interface {
	LookupAssignment(ctx context.Context, deviceID string) (models.UserRef, error)
}

// DeviceStore is the device persistence used by ingestion and device
// management.
type DeviceStore interface {
	AssignmentLookup
	RecordHeartbeat(ctx context.Context, deviceID string, ch models.Channel, at time.Time) (*models.Device, error)
	Get(ctx context.Context, deviceID string) (*models.Device, error)
	Exists(ctx context.Context, deviceID string) (bool, error)
	List(ctx context.Context) ([]models.Device, error)
	UpdateAssignment(ctx context.Context, deviceID string, update models.AssignmentUpdate, at time.Time) (*models.Device, error)
	TouchSeen(ctx context.Context, deviceIDs []string, at time.Time) error
}

// CommandStore is the command queue.
type CommandStore interface {
	Create(ctx context.Context, cmd models.Command) (*models.Command, error)
	ClaimNewest(ctx context.Context, deviceID string, ch models.Channel, at time.Time) (*models.Command, error)
	ListPending(ctx context.Context, deviceID string, ch models.Channel) ([]models.Command, error)
	Get(ctx context.Context, commandID string) (*models.Command, error)
	Acknowledge(ctx context.Context, commandID string, at time.Time) (*models.Command, error)
	Complete(ctx context.Context, commandID string, at time.Time) (*models.Command, error)
	List(ctx context.Context, filter models.CommandFilter) ([]models.Command, int, error)
	Summary(ctx context.Context, deviceID string) (models.CommandSummary, error)
	PurgeCompleted(ctx context.Context, cutoff time.Time) (int64, error)
}

type DeviceErrorStore interface {
	Create(ctx context.Context, req models.CreateDeviceErrorRequest, at time.Time) (*models.DeviceError, error)
	List(ctx context.Context, filter models.DeviceErrorFilter) ([]models.DeviceError, int, error)
}

type SettingsStore interface {
	Load(ctx context.Context) (*models.TrackingSettings, error)
	Save(ctx context.Context, s models.TrackingSettings) error
}

// SettingsProvider hands out the current tracking settings. It never fails;
// implementations fall back to defaults.
type SettingsProvider interface {
	Current(ctx context.Context) models.TrackingSettings
}
