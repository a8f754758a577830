package service

import (
	"context"
	"time"

	"Mansoor88-6/activity-hub/internal/apperror"
	"Mansoor88-6/activity-hub/internal/models"
	"Mansoor88-6/activity-hub/internal/repository"
	"Mansoor88-6/activity-hub/internal/timewindow"

	"go.uber.org/zap"
)

const (
	DefaultTopN       = 20
	MaxTopN           = 200
	DefaultChunkLimit = 50
	MaxChunkLimit     = 500
	DefaultRange      = 24 * time.Hour
)

// RangeQuery is an optional [From, To) filter. Missing bounds default to the
// trailing 24 hours.
type RangeQuery struct {
	From *time.Time
	To   *time.Time
}

// AggregationService answers read queries over stored chunks.
type AggregationService struct {
	chunks           ChunkStore
	settings         SettingsProvider
	dayOffsetMinutes int
	logger           *zap.Logger
	now              func() time.Time
}

func NewAggregationService(chunks ChunkStore, settings SettingsProvider, dayUTCOffsetMinutes int, logger *zap.Logger) *AggregationService {
	return &AggregationService{
		chunks:           chunks,
		settings:         settings,
		dayOffsetMinutes: dayUTCOffsetMinutes,
		logger:           logger,
		now:              time.Now,
	}
}

// Location is the fixed zone calendar days are computed in.
func (s *AggregationService) Location() *time.Location {
	return timewindow.Zone(s.dayOffsetMinutes)
}

func (s *AggregationService) resolveRange(q RangeQuery) (models.TimeRange, error) {
	to := s.now().UTC()
	if q.To != nil {
		to = q.To.UTC()
	}
	from := to.Add(-DefaultRange)
	if q.From != nil {
		from = q.From.UTC()
	}
	if !from.Before(to) {
		return models.TimeRange{}, apperror.Validation("invalid range",
			apperror.Issue{Path: "from", Message: "must be before to", Code: "range"})
	}
	return models.TimeRange{From: from, To: to}, nil
}

func requireDevice(deviceID string) error {
	if deviceID == "" {
		return apperror.Validation("deviceId is required",
			apperror.Issue{Path: "deviceId", Message: "is required", Code: "required"})
	}
	return nil
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

// ListChunks returns a page of chunks, newest first.
func (s *AggregationService) ListChunks(ctx context.Context, deviceID string, q RangeQuery, limit, skip int) (*models.ChunkPage, error) {
	if err := requireDevice(deviceID); err != nil {
		return nil, err
	}
	rng, err := s.resolveRange(q)
	if err != nil {
		return nil, err
	}
	limit = clampLimit(limit, DefaultChunkLimit, MaxChunkLimit)
	if skip < 0 {
		skip = 0
	}

	chunks, total, err := s.chunks.List(ctx, deviceID, rng, limit, skip)
	if err != nil {
		return nil, err
	}
	return &models.ChunkPage{Chunks: chunks, Total: total, Limit: limit, Skip: skip}, nil
}

// ExistingWindowEnds lists stored window ends so an agent can re-send gaps.
func (s *AggregationService) ExistingWindowEnds(ctx context.Context, deviceID string, q RangeQuery) ([]int64, error) {
	if err := requireDevice(deviceID); err != nil {
		return nil, err
	}
	rng, err := s.resolveRange(q)
	if err != nil {
		return nil, err
	}
	return s.chunks.WindowEnds(ctx, deviceID, rng)
}

// Summary sums totals over the range. No chunks is a zero summary.
func (s *AggregationService) Summary(ctx context.Context, deviceID string, q RangeQuery) (models.Summary, error) {
	if err := requireDevice(deviceID); err != nil {
		return models.Summary{}, err
	}
	rng, err := s.resolveRange(q)
	if err != nil {
		return models.Summary{}, err
	}
	return s.chunks.Summary(ctx, deviceID, rng)
}

// TopApps ranks applications by active time.
func (s *AggregationService) TopApps(ctx context.Context, deviceID string, q RangeQuery, top int) ([]models.AppUsage, error) {
	if err := requireDevice(deviceID); err != nil {
		return nil, err
	}
	rng, err := s.resolveRange(q)
	if err != nil {
		return nil, err
	}
	return s.chunks.TopApps(ctx, deviceID, rng, clampLimit(top, DefaultTopN, MaxTopN))
}

// TopTitles ranks the window titles of one application.
func (s *AggregationService) TopTitles(ctx context.Context, deviceID, appName string, q RangeQuery, top int) ([]models.TitleUsage, error) {
	if err := requireDevice(deviceID); err != nil {
		return nil, err
	}
	if appName == "" {
		return nil, apperror.Validation("appName is required",
			apperror.Issue{Path: "appName", Message: "is required", Code: "required"})
	}
	rng, err := s.resolveRange(q)
	if err != nil {
		return nil, err
	}
	return s.chunks.TopTitles(ctx, deviceID, appName, rng, clampLimit(top, DefaultTopN, MaxTopN))
}

// Today returns the activity of the calendar day containing date (today when
// nil) in the configured offset. It returns nil when the day has no chunks.
func (s *AggregationService) Today(ctx context.Context, deviceID string, date *time.Time) (*models.TodaySnapshot, error) {
	if err := requireDevice(deviceID); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	window := timewindow.DayBounds(s.dayOffsetMinutes, date, now)

	stats, err := s.chunks.DayStats(ctx, deviceID, window)
	if err != nil {
		return nil, err
	}
	if stats == nil {
		return nil, nil
	}

	state, fresh := InferState(stats, s.settings.Current(ctx), now)
	return &models.TodaySnapshot{
		DeviceID:       deviceID,
		Window:         window,
		Totals:         stats.Totals,
		Chunks:         stats.Chunks,
		FirstWindowEnd: stats.FirstWindowEnd,
		LastWindowEnd:  stats.LastWindowEnd,
		ActivityState:  state,
		Fresh:          fresh,
	}, nil
}

// InferState derives the current state from the newest chunk. A chunk older
// than chunkDuration+idleThreshold is stale and always reads as idle.
func InferState(stats *repository.DayStats, settings models.TrackingSettings, now time.Time) (models.ActivityState, bool) {
	fresh := now.Sub(stats.LastWindowEnd) <= settings.FreshnessWindow()
	if fresh && stats.LastActiveSeconds > stats.LastIdleSeconds {
		return models.StateActive, true
	}
	return models.StateIdle, fresh
}
