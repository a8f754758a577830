package service

import (
	"context"
	"time"

	"Mansoor88-6/activity-hub/internal/models"
	"Mansoor88-6/activity-hub/internal/validation"

	"go.uber.org/zap"
)

// SettingsService serves the runtime tracking settings, falling back to the
// configured defaults when nothing is stored or the store is unavailable.
type SettingsService struct {
	store     SettingsStore
	defaults  models.TrackingSettings
	validator *validation.Validator
	logger    *zap.Logger
	now       func() time.Time
}

func NewSettingsService(store SettingsStore, defaults models.TrackingSettings, v *validation.Validator, logger *zap.Logger) *SettingsService {
	return &SettingsService{
		store:     store,
		defaults:  defaults,
		validator: v,
		logger:    logger,
		now:       time.Now,
	}
}

// Current implements SettingsProvider.
func (s *SettingsService) Current(ctx context.Context) models.TrackingSettings {
	stored, err := s.store.Load(ctx)
	if err != nil {
		s.logger.Warn("Settings unavailable, using defaults", zap.Error(err))
		return s.defaults
	}
	if stored == nil {
		return s.defaults
	}
	return *stored
}

// Update applies a partial update and bumps the version.
func (s *SettingsService) Update(ctx context.Context, update models.SettingsUpdate) (models.TrackingSettings, error) {
	if err := s.validator.Struct(update); err != nil {
		return models.TrackingSettings{}, err
	}

	stored, err := s.store.Load(ctx)
	if err != nil {
		return models.TrackingSettings{}, err
	}
	next := s.defaults
	if stored != nil {
		next = *stored
	}

	if update.ChunkDurationSeconds != nil {
		next.ChunkDurationSeconds = *update.ChunkDurationSeconds
	}
	if update.IdleThresholdSeconds != nil {
		next.IdleThresholdSeconds = *update.IdleThresholdSeconds
	}
	if update.ClientHeartbeatIntervalSeconds != nil {
		next.ClientHeartbeatIntervalSeconds = *update.ClientHeartbeatIntervalSeconds
	}
	if update.ServiceHeartbeatIntervalSeconds != nil {
		next.ServiceHeartbeatIntervalSeconds = *update.ServiceHeartbeatIntervalSeconds
	}
	next.Version++
	next.UpdatedAt = time.UnixMilli(s.now().UnixMilli()).UTC()

	if err := s.store.Save(ctx, next); err != nil {
		return models.TrackingSettings{}, err
	}

	s.logger.Info("Tracking settings updated",
		zap.Int("version", next.Version),
		zap.Int("chunk_duration_seconds", next.ChunkDurationSeconds),
		zap.Int("idle_threshold_seconds", next.IdleThresholdSeconds),
	)
	return next, nil
}
