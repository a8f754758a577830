package repository

import (
	"context"
	"database/sql"

	"Mansoor88-6/activity-hub/internal/apperror"
	"Mansoor88-6/activity-hub/internal/models"

	"go.uber.org/zap"
)

// SettingsRepository persists the single runtime settings row.
type SettingsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewSettingsRepository(db *sql.DB, logger *zap.Logger) *SettingsRepository {
	return &SettingsRepository{db: db, logger: logger}
}

// Load returns the stored settings, or nil when none were ever saved.
func (r *SettingsRepository) Load(ctx context.Context) (*models.TrackingSettings, error) {
	var (
		s         models.TrackingSettings
		updatedAt int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT chunk_duration_seconds, idle_threshold_seconds,
			client_heartbeat_interval_seconds, service_heartbeat_interval_seconds,
			version, updated_at
		FROM server_settings WHERE id = 1`,
	).Scan(&s.ChunkDurationSeconds, &s.IdleThresholdSeconds,
		&s.ClientHeartbeatIntervalSeconds, &s.ServiceHeartbeatIntervalSeconds,
		&s.Version, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperror.Store("load settings", err)
	}
	s.UpdatedAt = fromMillis(updatedAt)
	return &s, nil
}

// Save replaces the settings row.
func (r *SettingsRepository) Save(ctx context.Context, s models.TrackingSettings) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO server_settings (
			id, chunk_duration_seconds, idle_threshold_seconds,
			client_heartbeat_interval_seconds, service_heartbeat_interval_seconds,
			version, updated_at
		) VALUES (1, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			chunk_duration_seconds = excluded.chunk_duration_seconds,
			idle_threshold_seconds = excluded.idle_threshold_seconds,
			client_heartbeat_interval_seconds = excluded.client_heartbeat_interval_seconds,
			service_heartbeat_interval_seconds = excluded.service_heartbeat_interval_seconds,
			version = excluded.version,
			updated_at = excluded.updated_at`,
		s.ChunkDurationSeconds, s.IdleThresholdSeconds,
		s.ClientHeartbeatIntervalSeconds, s.ServiceHeartbeatIntervalSeconds,
		s.Version, s.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return apperror.Store("save settings", err)
	}
	return nil
}
