package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"Mansoor88-6/activity-hub/internal/apperror"
	"Mansoor88-6/activity-hub/internal/models"
	"Mansoor88-6/activity-hub/internal/repository"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ingestNow = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func TestIngest_RetryIsIdempotent(t *testing.T) {
	env := newTestEnv(t, ingestNow)
	ctx := context.Background()
	end := ingestNow.Add(-time.Minute)

	req := &models.IngestRequest{Chunks: []models.ChunkInput{chunkInput("dev-1", end, 200, 100)}}
	result, err := env.ingest.Ingest(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeInserted, result.Results[0].Status)
	assert.Equal(t, models.IngestCounters{Inserted: 1}, result.Counters)

	env.at = ingestNow.Add(10 * time.Minute)
	result, err = env.ingest.Ingest(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeUpdated, result.Results[0].Status)
	assert.Equal(t, models.IngestCounters{Updated: 1}, result.Counters)

	stored, err := env.chunks.Get(ctx, "dev-1", end)
	require.NoError(t, err)
	assert.True(t, ingestNow.Equal(stored.ServerReceivedAt), "first receipt time is kept")
	assert.Equal(t, (11 * time.Minute).Milliseconds(), stored.ServerClientDriftMs, "drift reflects the latest receipt")

	page, err := env.aggregation.ListChunks(ctx, "dev-1", RangeQuery{}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
}

func TestIngest_NormalizesChunk(t *testing.T) {
	env := newTestEnv(t, ingestNow)
	ctx := context.Background()

	_, err := env.devices.RecordHeartbeat(ctx, "dev-1", models.ChannelClient, ingestNow)
	require.NoError(t, err)
	_, err = env.devices.UpdateAssignment(ctx, "dev-1", models.AssignmentUpdate{UserID: str("u-7"), Username: str("alice")}, ingestNow)
	require.NoError(t, err)

	end := ingestNow.Add(-30 * time.Second)
	in := chunkInput("dev-1", end, 250, 50,
		detailInput("Code.exe", "main.go - hub", 200),
		models.DetailInput{
			ProcessName: "tool.exe", AppName: "Custom Tool", Title: "x",
			ActiveTime: f64(50), IdleTime: f64(50), MouseMovements: i64(0),
			MouseScolls: i64(9), MouseClicks: i64(0), KeysPressed: i64(0),
		},
	)
	in.LogTotals.MouseScrolls = nil
	in.LogTotals.MouseScolls = i64(7)
	in.LogClock.IsTimeDirty = true
	in.LogClock.ClientTzOffsetMin = func() *int { v := 330; return &v }()

	_, err = env.ingest.Ingest(ctx, &models.IngestRequest{Chunks: []models.ChunkInput{in}})
	require.NoError(t, err)

	stored, err := env.chunks.Get(ctx, "dev-1", end)
	require.NoError(t, err)
	assert.True(t, end.Add(-300*time.Second).Equal(stored.WindowStart))
	assert.Equal(t, "u-7", *stored.UserRef.UserID)
	assert.Equal(t, "alice", *stored.UserRef.Username)
	assert.Equal(t, int64(7), stored.Totals.ScrollEvents)
	assert.True(t, stored.ClientClock.IsClockUnreliable)
	assert.Equal(t, 330, stored.ClientClock.ClientTzOffsetMinutes)
	assert.Equal(t, models.ConfigSnapshot{ChunkDurationSeconds: 300, IdleThresholdSeconds: 60, Version: 1}, stored.ConfigSnapshot)
	require.Len(t, stored.Details, 2)
	assert.Equal(t, "Visual Studio Code", stored.Details[0].AppName)
	assert.Equal(t, "Custom Tool", stored.Details[1].AppName)
	assert.Equal(t, int64(9), stored.Details[1].ScrollEvents)

	device, err := env.devices.Get(ctx, "dev-1")
	require.NoError(t, err)
	assert.True(t, ingestNow.Equal(*device.LastSeenAt))
}

func TestIngest_AssignmentIsNotRetroactive(t *testing.T) {
	env := newTestEnv(t, ingestNow)
	ctx := context.Background()
	end := ingestNow.Add(-time.Minute)

	_, err := env.ingest.Ingest(ctx, &models.IngestRequest{Chunks: []models.ChunkInput{chunkInput("dev-1", end, 1, 1)}})
	require.NoError(t, err)
	_, err = env.devices.UpdateAssignment(ctx, "dev-1", models.AssignmentUpdate{UserID: str("u-1")}, ingestNow)
	require.NoError(t, err)

	stored, err := env.chunks.Get(ctx, "dev-1", end)
	require.NoError(t, err)
	assert.Nil(t, stored.UserRef.UserID)
}

func TestIngest_OutcomesCoverEveryChunk(t *testing.T) {
	env := newTestEnv(t, ingestNow)
	ctx := context.Background()
	a := ingestNow.Add(-10 * time.Minute)
	b := ingestNow.Add(-5 * time.Minute)

	_, err := env.ingest.Ingest(ctx, &models.IngestRequest{Chunks: []models.ChunkInput{chunkInput("dev-1", a, 1, 1)}})
	require.NoError(t, err)

	result, err := env.ingest.Ingest(ctx, &models.IngestRequest{Chunks: []models.ChunkInput{
		chunkInput("dev-1", a, 2, 2),
		chunkInput("dev-1", b, 3, 3),
		chunkInput("dev-1", b, 4, 4),
		chunkInput("dev-2", b, 5, 5),
	}})
	require.NoError(t, err)
	require.Len(t, result.Results, 4)

	statuses := []models.OutcomeStatus{}
	for _, r := range result.Results {
		statuses = append(statuses, r.Status)
	}
	assert.Equal(t, []models.OutcomeStatus{
		models.OutcomeUpdated, models.OutcomeInserted, models.OutcomeDuplicate, models.OutcomeInserted,
	}, statuses)

	c := result.Counters
	assert.Equal(t, 4, c.Inserted+c.Updated+c.Duplicates+c.Failed)
	assert.Equal(t, models.IngestCounters{Inserted: 2, Updated: 1, Duplicates: 1}, c)
	assert.Equal(t, b.UnixMilli(), result.Results[1].EndAtEpochMs)

	stored, err := env.chunks.Get(ctx, "dev-1", b)
	require.NoError(t, err)
	assert.Equal(t, 3.0, stored.Totals.ActiveSeconds, "first occurrence in a batch wins")

	assert.Equal(t, 3.0, testutil.ToFloat64(env.metrics.ChunksIngested.WithLabelValues("inserted")))
}

func TestIngest_ValidationRejectsWholeBatch(t *testing.T) {
	env := newTestEnv(t, ingestNow)
	ctx := context.Background()

	bad := chunkInput("dev-1", ingestNow.Add(-5*time.Minute), 10, 10)
	bad.LogTotals.IdleTime = f64(-1)

	result, err := env.ingest.Ingest(ctx, &models.IngestRequest{Chunks: []models.ChunkInput{
		chunkInput("dev-1", ingestNow.Add(-10*time.Minute), 10, 10),
		bad,
	}})
	require.Error(t, err)

	var verr *apperror.ValidationError
	require.True(t, errors.As(err, &verr))
	require.NotEmpty(t, verr.Issues)
	assert.Equal(t, "chunks[1].logTotals.idleTime", verr.Issues[0].Path)

	require.Len(t, result.Results, 2)
	for _, r := range result.Results {
		assert.Equal(t, models.OutcomeFailed, r.Status)
		assert.Equal(t, models.ErrCodeValidation, r.Error)
	}
	assert.Equal(t, 2, result.Counters.Failed)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.BatchesRejected))

	summary, err := env.aggregation.Summary(ctx, "dev-1", RangeQuery{})
	require.NoError(t, err)
	assert.Zero(t, summary.Chunks, "nothing written")
}

func TestIngest_RejectsEmptyAndOversizedBatches(t *testing.T) {
	env := newTestEnv(t, ingestNow)
	ctx := context.Background()

	result, err := env.ingest.Ingest(ctx, &models.IngestRequest{})
	assert.True(t, apperror.IsValidation(err))
	assert.Empty(t, result.Results)

	_, err = env.ingest.Ingest(ctx, nil)
	assert.True(t, apperror.IsValidation(err))

	big := &models.IngestRequest{}
	for i := 0; i < 501; i++ {
		big.Chunks = append(big.Chunks, chunkInput("dev-1", ingestNow.Add(-time.Duration(i)*time.Minute), 1, 1))
	}
	result, err = env.ingest.Ingest(ctx, big)
	assert.True(t, apperror.IsValidation(err))
	assert.Len(t, result.Results, 501)
}

type failingChunkStore struct {
	ChunkStore
}

func (failingChunkStore) UpsertBatch(context.Context, []models.ActivityChunk) (*repository.BulkWriteResult, error) {
	return nil, apperror.Store("commit chunk batch", errors.New("database is locked"))
}

type flakyAssignments struct {
	DeviceStore
	failFor string
	calls   map[string]int
}

func (f *flakyAssignments) LookupAssignment(ctx context.Context, deviceID string) (models.UserRef, error) {
	f.calls[deviceID]++
	if deviceID == f.failFor {
		return models.UserRef{}, errors.New("lookup failed")
	}
	return f.DeviceStore.LookupAssignment(ctx, deviceID)
}

func TestIngest_StoreFailureMarksPendingFailed(t *testing.T) {
	env := newTestEnv(t, ingestNow)
	env.ingest.chunks = failingChunkStore{ChunkStore: env.chunks}

	result, err := env.ingest.Ingest(context.Background(), &models.IngestRequest{Chunks: []models.ChunkInput{
		chunkInput("dev-1", ingestNow.Add(-5*time.Minute), 1, 1),
		chunkInput("dev-1", ingestNow.Add(-5*time.Minute), 1, 1),
	}})
	assert.True(t, apperror.IsStore(err))
	require.Len(t, result.Results, 2)
	assert.Equal(t, models.OutcomeFailed, result.Results[0].Status)
	assert.Equal(t, models.ErrCodeBulkWrite, result.Results[0].Error)
	assert.Equal(t, models.OutcomeDuplicate, result.Results[1].Status)
	assert.Equal(t, models.IngestCounters{Duplicates: 1, Failed: 1}, result.Counters)
}

func TestIngest_AssignmentFailureIsPerDevice(t *testing.T) {
	env := newTestEnv(t, ingestNow)
	flaky := &flakyAssignments{DeviceStore: env.devices, failFor: "dev-bad", calls: map[string]int{}}
	env.ingest.devices = flaky

	result, err := env.ingest.Ingest(context.Background(), &models.IngestRequest{Chunks: []models.ChunkInput{
		chunkInput("dev-bad", ingestNow.Add(-10*time.Minute), 1, 1),
		chunkInput("dev-ok", ingestNow.Add(-10*time.Minute), 1, 1),
		chunkInput("dev-bad", ingestNow.Add(-5*time.Minute), 1, 1),
		chunkInput("dev-ok", ingestNow.Add(-5*time.Minute), 1, 1),
	}})
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeFailed, result.Results[0].Status)
	assert.Equal(t, models.ErrCodePrepare, result.Results[0].Error)
	assert.Equal(t, models.OutcomeInserted, result.Results[1].Status)
	assert.Equal(t, models.OutcomeFailed, result.Results[2].Status)
	assert.Equal(t, models.OutcomeInserted, result.Results[3].Status)
	assert.Equal(t, 1, flaky.calls["dev-bad"], "looked up once per batch")
	assert.Equal(t, 1, flaky.calls["dev-ok"])

	_, err = env.devices.Get(context.Background(), "dev-bad")
	assert.True(t, apperror.IsNotFound(err))
}

func TestAttributeOutcomes_CountFallback(t *testing.T) {
	results := []models.ChunkOutcome{
		{Status: models.OutcomePending},
		{Status: models.OutcomeFailed, Error: models.ErrCodePrepare},
		{Status: models.OutcomePending},
		{Status: models.OutcomePending},
		{Status: models.OutcomePending},
	}

	attributeOutcomes(results, []int{0, 2, 3, 4}, &repository.BulkWriteResult{Inserted: 2, Updated: 1})

	assert.Equal(t, models.OutcomeInserted, results[0].Status)
	assert.Equal(t, models.OutcomeFailed, results[1].Status)
	assert.Equal(t, models.OutcomeInserted, results[2].Status)
	assert.Equal(t, models.OutcomeUpdated, results[3].Status)
	assert.Equal(t, models.OutcomeDuplicate, results[4].Status)
}

func TestAttributeOutcomes_PerItem(t *testing.T) {
	results := []models.ChunkOutcome{{Status: models.OutcomePending}, {Status: models.OutcomePending}}

	attributeOutcomes(results, []int{0, 1}, &repository.BulkWriteResult{
		Updated: 1,
		Items: []repository.ItemResult{
			{Status: models.OutcomeFailed, Err: errors.New("boom")},
			{Status: models.OutcomeUpdated},
		},
	})

	assert.Equal(t, models.OutcomeFailed, results[0].Status)
	assert.Equal(t, models.ErrCodeWrite, results[0].Error)
	assert.Equal(t, models.OutcomeUpdated, results[1].Status)
}

func TestReject_ReportsPartiallyDecodedChunks(t *testing.T) {
	env := newTestEnv(t, ingestNow)

	undated := chunkInput("dev-2", ingestNow, 10, 10)
	undated.LogClock.ClientSideTimeEpochMs = nil
	req := &models.IngestRequest{Chunks: []models.ChunkInput{
		chunkInput("dev-1", ingestNow, 10, 10),
		undated,
	}}

	result := env.ingest.Reject(req, apperror.Validation("invalid payload"))
	require.Len(t, result.Results, 2)
	assert.Equal(t, ingestNow.UnixMilli(), result.Results[0].EndAtEpochMs)
	assert.Equal(t, "dev-2", result.Results[1].DeviceID)
	assert.Zero(t, result.Results[1].EndAtEpochMs)
	assert.Equal(t, 2, result.Counters.Failed)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.BatchesRejected))

	assert.Empty(t, env.ingest.Reject(nil, apperror.Validation("invalid payload")).Results)
}
