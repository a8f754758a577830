package service

import (
	"path/filepath"
	"testing"
	"time"

	"Mansoor88-6/activity-hub/internal/database"
	"Mansoor88-6/activity-hub/internal/metrics"
	"Mansoor88-6/activity-hub/internal/models"
	"Mansoor88-6/activity-hub/internal/queue"
	"Mansoor88-6/activity-hub/internal/repository"
	"Mansoor88-6/activity-hub/internal/validation"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	at time.Time

	chunks   *repository.ChunkRepository
	devices  *repository.DeviceRepository
	commands *queue.CommandQueue
	metrics  *metrics.Metrics

	settings    *SettingsService
	ingest      *IngestService
	aggregation *AggregationService
	commandSvc  *CommandService
	deviceSvc   *DeviceService
	errorSvc    *DeviceErrorService
}

func newTestEnv(t *testing.T, at time.Time) *testEnv {
	t.Helper()
	db, err := database.New(database.Options{Path: filepath.Join(t.TempDir(), "svc.db")}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := zap.NewNop()
	v := validation.New()
	env := &testEnv{
		at:       at,
		chunks:   repository.NewChunkRepository(db.DB, logger),
		devices:  repository.NewDeviceRepository(db.DB, logger),
		commands: queue.NewCommandQueue(db.DB, logger),
		metrics:  metrics.New(prometheus.NewRegistry()),
	}
	clock := func() time.Time { return env.at }

	env.settings = NewSettingsService(repository.NewSettingsRepository(db.DB, logger), models.DefaultTrackingSettings(), v, logger)
	env.settings.now = clock
	env.ingest = NewIngestService(env.chunks, env.devices, env.settings, v, env.metrics, logger)
	env.ingest.now = clock
	env.aggregation = NewAggregationService(env.chunks, env.settings, 0, logger)
	env.aggregation.now = clock
	env.commandSvc = NewCommandService(env.commands, env.devices, v, env.metrics, logger)
	env.commandSvc.now = clock
	env.deviceSvc = NewDeviceService(env.devices, env.commands, env.aggregation, env.settings, v, env.metrics, logger)
	env.deviceSvc.now = clock
	env.errorSvc = NewDeviceErrorService(repository.NewDeviceErrorRepository(db.DB, logger), v, logger)
	env.errorSvc.now = clock
	return env
}

func i64(v int64) *int64     { return &v }
func f64(v float64) *float64 { return &v }
func str(v string) *string   { return &v }
func ms(t time.Time) *int64  { return i64(t.UnixMilli()) }

func chunkInput(deviceID string, end time.Time, active, idle float64, details ...models.DetailInput) models.ChunkInput {
	return models.ChunkInput{
		DeviceID: deviceID,
		LogClock: models.ClockInput{ClientSideTimeEpochMs: ms(end)},
		LogTotals: models.TotalsInput{
			ActiveTime:     f64(active),
			IdleTime:       f64(idle),
			MouseMovements: i64(10),
			MouseScrolls:   i64(2),
			MouseClicks:    i64(3),
			KeysPressed:    i64(40),
		},
		LogDetails: details,
	}
}

func detailInput(process, title string, active float64) models.DetailInput {
	return models.DetailInput{
		ProcessName:    process,
		Title:          title,
		ActiveTime:     f64(active),
		IdleTime:       f64(0),
		MouseMovements: i64(1),
		MouseClicks:    i64(1),
		KeysPressed:    i64(5),
	}
}
