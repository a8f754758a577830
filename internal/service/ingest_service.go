package service

import (
	"context"
	"strings"
	"time"

	"Mansoor88-6/activity-hub/internal/metrics"
	"Mansoor88-6/activity-hub/internal/models"
	"Mansoor88-6/activity-hub/internal/repository"
	"Mansoor88-6/activity-hub/internal/validation"

	"go.uber.org/zap"
)

// IngestService validates, normalizes and idempotently stores chunk batches.
type IngestService struct {
	chunks    ChunkStore
	devices   DeviceStore
	settings  SettingsProvider
	validator *validation.Validator
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

func NewIngestService(
	chunks ChunkStore,
	devices DeviceStore,
	settings SettingsProvider,
	v *validation.Validator,
	m *metrics.Metrics,
	logger *zap.Logger,
) *IngestService {
	return &IngestService{
		chunks:    chunks,
		devices:   devices,
		settings:  settings,
		validator: v,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

type chunkKey struct {
	deviceID string
	endMs    int64
}

type assignment struct {
	ref models.UserRef
	err error
}

// Ingest stores a batch and reports one outcome per submitted chunk, in
// submission order. The result is returned even when err is non-nil: a
// validation error rejects the whole batch before anything is written, a
// store error marks every chunk that had not already failed as failed.
func (s *IngestService) Ingest(ctx context.Context, req *models.IngestRequest) (*models.IngestResult, error) {
	if err := s.validator.IngestBatch(req); err != nil {
		return s.Reject(req, err), err
	}

	settings := s.settings.Current(ctx)
	now := s.now().UTC()

	result := &models.IngestResult{Results: make([]models.ChunkOutcome, len(req.Chunks))}
	chunks := make([]models.ActivityChunk, 0, len(req.Chunks))
	pending := make([]int, 0, len(req.Chunks))
	seen := make(map[chunkKey]bool, len(req.Chunks))
	assignments := make(map[string]assignment)
	var touched []string

	for i, in := range req.Chunks {
		endMs := *in.LogClock.ClientSideTimeEpochMs
		result.Results[i] = models.ChunkOutcome{
			DeviceID:     in.DeviceID,
			EndAtEpochMs: endMs,
			Status:       models.OutcomePending,
		}

		key := chunkKey{deviceID: in.DeviceID, endMs: endMs}
		if seen[key] {
			result.Results[i].Status = models.OutcomeDuplicate
			continue
		}
		seen[key] = true

		a, ok := assignments[in.DeviceID]
		if !ok {
			a.ref, a.err = s.devices.LookupAssignment(ctx, in.DeviceID)
			assignments[in.DeviceID] = a
			if a.err != nil {
				s.logger.Error("Failed to resolve device assignment",
					zap.String("device_id", in.DeviceID),
					zap.Error(a.err),
				)
			} else {
				touched = append(touched, in.DeviceID)
			}
		}
		if a.err != nil {
			result.Results[i].Status = models.OutcomeFailed
			result.Results[i].Error = models.ErrCodePrepare
			continue
		}

		chunks = append(chunks, buildChunk(in, a.ref, settings, now))
		pending = append(pending, i)
	}

	if len(chunks) == 0 {
		result.CountOutcomes()
		s.metrics.ObserveIngest(result.Counters)
		return result, nil
	}

	written, err := s.chunks.UpsertBatch(ctx, chunks)
	if err != nil {
		for _, idx := range pending {
			result.Results[idx].Status = models.OutcomeFailed
			result.Results[idx].Error = models.ErrCodeBulkWrite
		}
		result.CountOutcomes()
		s.metrics.ObserveIngest(result.Counters)
		s.logger.Error("Chunk batch write failed",
			zap.Int("chunks", len(chunks)),
			zap.Error(err),
		)
		return result, err
	}

	attributeOutcomes(result.Results, pending, written)

	if err := s.devices.TouchSeen(ctx, touched, now); err != nil {
		s.logger.Warn("Failed to update device last seen",
			zap.Strings("device_ids", touched),
			zap.Error(err),
		)
	}

	result.CountOutcomes()
	s.metrics.ObserveIngest(result.Counters)
	s.logger.Info("Chunks ingested",
		zap.Int("submitted", len(req.Chunks)),
		zap.Int("inserted", result.Counters.Inserted),
		zap.Int("updated", result.Counters.Updated),
		zap.Int("duplicates", result.Counters.Duplicates),
		zap.Int("failed", result.Counters.Failed),
	)
	return result, nil
}

// PurgeAll deletes every stored chunk.
func (s *IngestService) PurgeAll(ctx context.Context) (int64, error) {
	return s.chunks.PurgeAll(ctx)
}

// attributeOutcomes resolves the pending entries of results. pending lists
// the indexes of results that were submitted to the store, in write order.
// Per-item store outcomes are used when available; otherwise the aggregate
// counts are handed out first-pending-first: inserts, then updates, and any
// remainder is a duplicate.
func attributeOutcomes(results []models.ChunkOutcome, pending []int, written *repository.BulkWriteResult) {
	if len(written.Items) == len(pending) {
		for n, idx := range pending {
			item := written.Items[n]
			results[idx].Status = item.Status
			if item.Status == models.OutcomeFailed {
				results[idx].Error = models.ErrCodeWrite
			}
		}
		return
	}

	inserted, updated := written.Inserted, written.Updated
	for _, idx := range pending {
		switch {
		case inserted > 0:
			results[idx].Status = models.OutcomeInserted
			inserted--
		case updated > 0:
			results[idx].Status = models.OutcomeUpdated
			updated--
		default:
			results[idx].Status = models.OutcomeDuplicate
		}
	}
}

// Reject reports every chunk of req as failed validation without writing
// anything. req may be partially decoded or nil.
func (s *IngestService) Reject(req *models.IngestRequest, err error) *models.IngestResult {
	result := rejectedResult(req)
	s.metrics.BatchesRejected.Inc()
	s.logger.Warn("Ingest batch rejected",
		zap.Int("chunk_count", len(result.Results)),
		zap.Error(err),
	)
	return result
}

func rejectedResult(req *models.IngestRequest) *models.IngestResult {
	result := &models.IngestResult{Results: []models.ChunkOutcome{}}
	if req == nil {
		return result
	}
	for _, in := range req.Chunks {
		out := models.ChunkOutcome{
			DeviceID: in.DeviceID,
			Status:   models.OutcomeFailed,
			Error:    models.ErrCodeValidation,
		}
		if in.LogClock.ClientSideTimeEpochMs != nil {
			out.EndAtEpochMs = *in.LogClock.ClientSideTimeEpochMs
		}
		result.Results = append(result.Results, out)
	}
	result.CountOutcomes()
	return result
}

// buildChunk normalizes one validated input. windowEnd comes from the client
// clock; everything about provenance comes from the server.
func buildChunk(in models.ChunkInput, ref models.UserRef, settings models.TrackingSettings, now time.Time) models.ActivityChunk {
	end := time.UnixMilli(*in.LogClock.ClientSideTimeEpochMs).UTC()

	clock := models.ClientClock{
		ClientEpochMs:     *in.LogClock.ClientSideTimeEpochMs,
		IsClockUnreliable: in.LogClock.IsTimeDirty,
	}
	if in.LogClock.ClientTzOffsetMin != nil {
		clock.ClientTzOffsetMinutes = *in.LogClock.ClientTzOffsetMin
	}

	details := make([]models.AppDetail, 0, len(in.LogDetails))
	for _, d := range in.LogDetails {
		appName := strings.TrimSpace(d.AppName)
		if appName == "" {
			appName = ClassifyApp(d.ProcessName, d.Title)
		}
		details = append(details, models.AppDetail{
			ProcessName:   d.ProcessName,
			AppName:       appName,
			Title:         d.Title,
			ActiveSeconds: derefFloat(d.ActiveTime),
			IdleSeconds:   derefFloat(d.IdleTime),
			PointerMoves:  derefInt(d.MouseMovements),
			ScrollEvents:  scrollCount(d.MouseScrolls, d.MouseScolls),
			Clicks:        derefInt(d.MouseClicks),
			KeyPresses:    derefInt(d.KeysPressed),
		})
	}

	return models.ActivityChunk{
		DeviceID:            in.DeviceID,
		WindowStart:         end.Add(-settings.ChunkDuration()),
		WindowEnd:           end,
		UserRef:             ref,
		ClientClock:         clock,
		ServerReceivedAt:    now,
		ServerClientDriftMs: now.Sub(end).Milliseconds(),
		Totals: models.Totals{
			ActiveSeconds: derefFloat(in.LogTotals.ActiveTime),
			IdleSeconds:   derefFloat(in.LogTotals.IdleTime),
			PointerMoves:  derefInt(in.LogTotals.MouseMovements),
			ScrollEvents:  scrollCount(in.LogTotals.MouseScrolls, in.LogTotals.MouseScolls),
			Clicks:        derefInt(in.LogTotals.MouseClicks),
			KeyPresses:    derefInt(in.LogTotals.KeysPressed),
		},
		Details:        details,
		ConfigSnapshot: settings.Snapshot(),
	}
}

// scrollCount prefers the canonical field over the legacy misspelling.
func scrollCount(canonical, legacy *int64) int64 {
	if canonical != nil {
		return *canonical
	}
	return derefInt(legacy)
}

func derefFloat(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func derefInt(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
