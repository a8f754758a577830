package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"Mansoor88-6/activity-hub/internal/apperror"
	"Mansoor88-6/activity-hub/internal/models"

	"go.uber.org/zap"
)

// ItemResult is the store-reported outcome of one upsert in a batch.
type ItemResult struct {
	Status models.OutcomeStatus
	Err    error
}

// BulkWriteResult reports a batch upsert. Items is either nil (the store only
// knows aggregate counts) or parallel to the submitted chunks.
type BulkWriteResult struct {
	Inserted int
	Updated  int
	Items    []ItemResult
}

// DayStats is the raw material for a "today" snapshot.
type DayStats struct {
	Chunks            int
	Totals            models.Totals
	FirstWindowEnd    time.Time
	LastWindowEnd     time.Time
	LastActiveSeconds float64
	LastIdleSeconds   float64
}

// ChunkRepository persists activity chunks keyed by (device_id, window_end).
type ChunkRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewChunkRepository(db *sql.DB, logger *zap.Logger) *ChunkRepository {
	return &ChunkRepository{db: db, logger: logger}
}

// Insert-only columns appear only in VALUES; everything in the DO UPDATE
// list is overwritten on re-ingest. revision starts at 1 and tells the
// caller whether the row was created or replaced.
const upsertChunkSQL = `
	INSERT INTO activity_chunks (
		device_id, window_start, window_end, server_received_at,
		user_id, username, client_epoch_ms, is_clock_unreliable, client_tz_offset_min,
		server_client_drift_ms, active_seconds, idle_seconds, pointer_moves, scroll_events,
		clicks, key_presses, details, config_chunk_seconds, config_idle_seconds, config_version,
		revision, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?)
	ON CONFLICT (device_id, window_end) DO UPDATE SET
		user_id = excluded.user_id,
		username = excluded.username,
		client_epoch_ms = excluded.client_epoch_ms,
		is_clock_unreliable = excluded.is_clock_unreliable,
		client_tz_offset_min = excluded.client_tz_offset_min,
		server_client_drift_ms = excluded.server_client_drift_ms,
		active_seconds = excluded.active_seconds,
		idle_seconds = excluded.idle_seconds,
		pointer_moves = excluded.pointer_moves,
		scroll_events = excluded.scroll_events,
		clicks = excluded.clicks,
		key_presses = excluded.key_presses,
		details = excluded.details,
		config_chunk_seconds = excluded.config_chunk_seconds,
		config_idle_seconds = excluded.config_idle_seconds,
		config_version = excluded.config_version,
		revision = activity_chunks.revision + 1,
		updated_at = excluded.updated_at
	RETURNING revision
`

// UpsertBatch writes all chunks in one transaction. A failing row is reported
// in Items without aborting its siblings; an error return means the batch as
// a whole could not be committed.
func (r *ChunkRepository) UpsertBatch(ctx context.Context, chunks []models.ActivityChunk) (*BulkWriteResult, error) {
	result := &BulkWriteResult{Items: make([]ItemResult, len(chunks))}
	if len(chunks) == 0 {
		return result, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperror.Store("begin chunk batch", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertChunkSQL)
	if err != nil {
		return nil, apperror.Store("prepare chunk upsert", err)
	}
	defer stmt.Close()

	for i := range chunks {
		c := &chunks[i]
		details, err := json.Marshal(nonNilDetails(c.Details))
		if err != nil {
			result.Items[i] = ItemResult{Status: models.OutcomeFailed, Err: fmt.Errorf("failed to encode details: %w", err)}
			continue
		}

		var revision int
		err = stmt.QueryRowContext(ctx,
			c.DeviceID,
			c.WindowStart.UnixMilli(),
			c.WindowEnd.UnixMilli(),
			c.ServerReceivedAt.UnixMilli(),
			c.UserRef.UserID,
			c.UserRef.Username,
			c.ClientClock.ClientEpochMs,
			c.ClientClock.IsClockUnreliable,
			c.ClientClock.ClientTzOffsetMinutes,
			c.ServerClientDriftMs,
			c.Totals.ActiveSeconds,
			c.Totals.IdleSeconds,
			c.Totals.PointerMoves,
			c.Totals.ScrollEvents,
			c.Totals.Clicks,
			c.Totals.KeyPresses,
			string(details),
			c.ConfigSnapshot.ChunkDurationSeconds,
			c.ConfigSnapshot.IdleThresholdSeconds,
			c.ConfigSnapshot.Version,
			c.ServerReceivedAt.UnixMilli(),
		).Scan(&revision)
		if err != nil {
			r.logger.Warn("Chunk upsert failed",
				zap.String("device_id", c.DeviceID),
				zap.Time("window_end", c.WindowEnd),
				zap.Error(err),
			)
			result.Items[i] = ItemResult{Status: models.OutcomeFailed, Err: apperror.Store("upsert chunk", err)}
			continue
		}

		if revision == 1 {
			result.Items[i] = ItemResult{Status: models.OutcomeInserted}
			result.Inserted++
		} else {
			result.Items[i] = ItemResult{Status: models.OutcomeUpdated}
			result.Updated++
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, apperror.Store("commit chunk batch", err)
	}

	return result, nil
}

func nonNilDetails(details []models.AppDetail) []models.AppDetail {
	if details == nil {
		return []models.AppDetail{}
	}
	return details
}

const chunkColumns = `
	device_id, window_start, window_end, server_received_at, user_id, username,
	client_epoch_ms, is_clock_unreliable, client_tz_offset_min, server_client_drift_ms,
	active_seconds, idle_seconds, pointer_moves, scroll_events, clicks, key_presses,
	details, config_chunk_seconds, config_idle_seconds, config_version, revision, updated_at
`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanChunk(row rowScanner) (*models.ActivityChunk, error) {
	var (
		c                                        models.ActivityChunk
		windowStart, windowEnd, received, update int64
		userID, username                         sql.NullString
		details                                  string
	)
	err := row.Scan(
		&c.DeviceID, &windowStart, &windowEnd, &received, &userID, &username,
		&c.ClientClock.ClientEpochMs, &c.ClientClock.IsClockUnreliable, &c.ClientClock.ClientTzOffsetMinutes,
		&c.ServerClientDriftMs,
		&c.Totals.ActiveSeconds, &c.Totals.IdleSeconds, &c.Totals.PointerMoves, &c.Totals.ScrollEvents,
		&c.Totals.Clicks, &c.Totals.KeyPresses,
		&details, &c.ConfigSnapshot.ChunkDurationSeconds, &c.ConfigSnapshot.IdleThresholdSeconds,
		&c.ConfigSnapshot.Version, &c.Revision, &update,
	)
	if err != nil {
		return nil, err
	}

	c.WindowStart = fromMillis(windowStart)
	c.WindowEnd = fromMillis(windowEnd)
	c.ServerReceivedAt = fromMillis(received)
	c.UpdatedAt = fromMillis(update)
	c.UserRef = models.UserRef{UserID: nullString(userID), Username: nullString(username)}
	if err := json.Unmarshal([]byte(details), &c.Details); err != nil {
		return nil, fmt.Errorf("failed to decode details: %w", err)
	}
	return &c, nil
}

// Get returns one chunk or a NotFoundError.
func (r *ChunkRepository) Get(ctx context.Context, deviceID string, windowEnd time.Time) (*models.ActivityChunk, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+chunkColumns+` FROM activity_chunks WHERE device_id = ? AND window_end = ?`,
		deviceID, windowEnd.UnixMilli(),
	)
	c, err := scanChunk(row)
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("chunk", fmt.Sprintf("%s@%d", deviceID, windowEnd.UnixMilli()))
	}
	if err != nil {
		return nil, apperror.Store("get chunk", err)
	}
	return c, nil
}

// List returns chunks newest first together with the total match count.
func (r *ChunkRepository) List(ctx context.Context, deviceID string, rng models.TimeRange, limit, skip int) ([]models.ActivityChunk, int, error) {
	from, to := rng.From.UnixMilli(), rng.To.UnixMilli()

	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM activity_chunks WHERE device_id = ? AND window_end >= ? AND window_end < ?`,
		deviceID, from, to,
	).Scan(&total)
	if err != nil {
		return nil, 0, apperror.Store("count chunks", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+chunkColumns+` FROM activity_chunks
		WHERE device_id = ? AND window_end >= ? AND window_end < ?
		ORDER BY window_end DESC
		LIMIT ? OFFSET ?`,
		deviceID, from, to, limit, skip,
	)
	if err != nil {
		return nil, 0, apperror.Store("query chunks", err)
	}
	defer rows.Close()

	chunks := make([]models.ActivityChunk, 0)
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, 0, apperror.Store("scan chunk", err)
		}
		chunks = append(chunks, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperror.Store("iterate chunks", err)
	}
	return chunks, total, nil
}

// WindowEnds lists the stored window ends (epoch ms) in ascending order so an
// agent can find gaps and re-upload them.
func (r *ChunkRepository) WindowEnds(ctx context.Context, deviceID string, rng models.TimeRange) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT window_end FROM activity_chunks
		WHERE device_id = ? AND window_end >= ? AND window_end < ?
		ORDER BY window_end ASC`,
		deviceID, rng.From.UnixMilli(), rng.To.UnixMilli(),
	)
	if err != nil {
		return nil, apperror.Store("query window ends", err)
	}
	defer rows.Close()

	ends := make([]int64, 0)
	for rows.Next() {
		var end int64
		if err := rows.Scan(&end); err != nil {
			return nil, apperror.Store("scan window end", err)
		}
		ends = append(ends, end)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Store("iterate window ends", err)
	}
	return ends, nil
}

// Summary sums totals of all chunks in range.
func (r *ChunkRepository) Summary(ctx context.Context, deviceID string, rng models.TimeRange) (models.Summary, error) {
	var s models.Summary
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(active_seconds), 0), COALESCE(SUM(idle_seconds), 0),
			COALESCE(SUM(pointer_moves), 0), COALESCE(SUM(scroll_events), 0),
			COALESCE(SUM(clicks), 0), COALESCE(SUM(key_presses), 0)
		FROM activity_chunks
		WHERE device_id = ? AND window_end >= ? AND window_end < ?`,
		deviceID, rng.From.UnixMilli(), rng.To.UnixMilli(),
	).Scan(&s.Chunks,
		&s.ActiveSeconds, &s.IdleSeconds, &s.PointerMoves, &s.ScrollEvents, &s.Clicks, &s.KeyPresses,
	)
	if err != nil {
		return models.Summary{}, apperror.Store("summarize chunks", err)
	}
	return s, nil
}

// TopApps groups detail records by application, most active first.
func (r *ChunkRepository) TopApps(ctx context.Context, deviceID string, rng models.TimeRange, limit int) ([]models.AppUsage, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT COALESCE(json_extract(d.value, '$.appName'), '') AS app_name,
			COALESCE(SUM(json_extract(d.value, '$.activeSeconds')), 0) AS active,
			COALESCE(SUM(json_extract(d.value, '$.idleSeconds')), 0),
			COALESCE(SUM(json_extract(d.value, '$.clicks')), 0),
			COALESCE(SUM(json_extract(d.value, '$.keyPresses')), 0)
		FROM activity_chunks c, json_each(c.details) d
		WHERE c.device_id = ? AND c.window_end >= ? AND c.window_end < ?
		GROUP BY app_name
		ORDER BY active DESC, app_name ASC
		LIMIT ?`,
		deviceID, rng.From.UnixMilli(), rng.To.UnixMilli(), limit,
	)
	if err != nil {
		return nil, apperror.Store("aggregate apps", err)
	}
	defer rows.Close()

	apps := make([]models.AppUsage, 0)
	for rows.Next() {
		var a models.AppUsage
		if err := rows.Scan(&a.AppName, &a.ActiveSeconds, &a.IdleSeconds, &a.Clicks, &a.KeyPresses); err != nil {
			return nil, apperror.Store("scan app usage", err)
		}
		apps = append(apps, a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Store("iterate app usage", err)
	}
	return apps, nil
}

// TopTitles groups one application's detail records by (title, process).
func (r *ChunkRepository) TopTitles(ctx context.Context, deviceID, appName string, rng models.TimeRange, limit int) ([]models.TitleUsage, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT COALESCE(json_extract(d.value, '$.title'), '') AS title,
			COALESCE(json_extract(d.value, '$.processName'), '') AS process_name,
			COALESCE(SUM(json_extract(d.value, '$.activeSeconds')), 0) AS active,
			COALESCE(SUM(json_extract(d.value, '$.idleSeconds')), 0),
			COALESCE(SUM(json_extract(d.value, '$.pointerMoves')), 0),
			COALESCE(SUM(json_extract(d.value, '$.scrollEvents')), 0),
			COALESCE(SUM(json_extract(d.value, '$.clicks')), 0),
			COALESCE(SUM(json_extract(d.value, '$.keyPresses')), 0),
			COUNT(DISTINCT c.window_end)
		FROM activity_chunks c, json_each(c.details) d
		WHERE c.device_id = ? AND c.window_end >= ? AND c.window_end < ?
			AND json_extract(d.value, '$.appName') = ?
		GROUP BY title, process_name
		ORDER BY active DESC, title ASC, process_name ASC
		LIMIT ?`,
		deviceID, rng.From.UnixMilli(), rng.To.UnixMilli(), appName, limit,
	)
	if err != nil {
		return nil, apperror.Store("aggregate titles", err)
	}
	defer rows.Close()

	titles := make([]models.TitleUsage, 0)
	for rows.Next() {
		t := models.TitleUsage{AppName: appName}
		if err := rows.Scan(&t.Title, &t.ProcessName,
			&t.ActiveSeconds, &t.IdleSeconds, &t.PointerMoves, &t.ScrollEvents, &t.Clicks, &t.KeyPresses,
			&t.Chunks,
		); err != nil {
			return nil, apperror.Store("scan title usage", err)
		}
		titles = append(titles, t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Store("iterate title usage", err)
	}
	return titles, nil
}

// DayStats reads totals, first/last window ends and the newest chunk's
// active/idle split in a single statement so the values are consistent with
// each other. It returns nil when no chunk falls in range.
func (r *ChunkRepository) DayStats(ctx context.Context, deviceID string, rng models.TimeRange) (*DayStats, error) {
	from, to := rng.From.UnixMilli(), rng.To.UnixMilli()

	var (
		s                    DayStats
		first, last          sql.NullInt64
		lastActive, lastIdle sql.NullFloat64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(active_seconds), 0), COALESCE(SUM(idle_seconds), 0),
			COALESCE(SUM(pointer_moves), 0), COALESCE(SUM(scroll_events), 0),
			COALESCE(SUM(clicks), 0), COALESCE(SUM(key_presses), 0),
			MIN(window_end), MAX(window_end),
			(SELECT l.active_seconds FROM activity_chunks l
				WHERE l.device_id = ? AND l.window_end >= ? AND l.window_end < ?
				ORDER BY l.window_end DESC LIMIT 1),
			(SELECT l.idle_seconds FROM activity_chunks l
				WHERE l.device_id = ? AND l.window_end >= ? AND l.window_end < ?
				ORDER BY l.window_end DESC LIMIT 1)
		FROM activity_chunks
		WHERE device_id = ? AND window_end >= ? AND window_end < ?`,
		deviceID, from, to,
		deviceID, from, to,
		deviceID, from, to,
	).Scan(&s.Chunks,
		&s.Totals.ActiveSeconds, &s.Totals.IdleSeconds, &s.Totals.PointerMoves, &s.Totals.ScrollEvents,
		&s.Totals.Clicks, &s.Totals.KeyPresses,
		&first, &last, &lastActive, &lastIdle,
	)
	if err != nil {
		return nil, apperror.Store("read day stats", err)
	}
	if s.Chunks == 0 {
		return nil, nil
	}

	s.FirstWindowEnd = fromMillis(first.Int64)
	s.LastWindowEnd = fromMillis(last.Int64)
	s.LastActiveSeconds = lastActive.Float64
	s.LastIdleSeconds = lastIdle.Float64
	return &s, nil
}

// PurgeAll deletes every stored chunk.
func (r *ChunkRepository) PurgeAll(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM activity_chunks`)
	if err != nil {
		return 0, apperror.Store("purge chunks", err)
	}
	n, _ := result.RowsAffected()
	r.logger.Info("Purged activity chunks", zap.Int64("count", n))
	return n, nil
}
