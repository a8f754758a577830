package repository

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"Mansoor88-6/activity-hub/internal/database"
	"Mansoor88-6/activity-hub/internal/models"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.New(database.Options{Path: filepath.Join(t.TempDir(), "test.db")}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db.DB
}

var baseTime = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func testChunk(deviceID string, end time.Time, active, idle float64, details ...models.AppDetail) models.ActivityChunk {
	return models.ActivityChunk{
		DeviceID:         deviceID,
		WindowStart:      end.Add(-5 * time.Minute),
		WindowEnd:        end,
		ClientClock:      models.ClientClock{ClientEpochMs: end.UnixMilli()},
		ServerReceivedAt: end.Add(2 * time.Second),
		Totals:           models.Totals{ActiveSeconds: active, IdleSeconds: idle},
		Details:          details,
		ConfigSnapshot:   models.ConfigSnapshot{ChunkDurationSeconds: 300, IdleThresholdSeconds: 60, Version: 1},
	}
}
