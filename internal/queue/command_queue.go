package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"Mansoor88-6/activity-hub/internal/apperror"
	"Mansoor88-6/activity-hub/internal/models"

	"go.uber.org/zap"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// CommandQueue is the per-device command queue. A partial unique index keeps
// at most one pending command per (device, channel, type).
type CommandQueue struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCommandQueue creates a new command queue
func NewCommandQueue(db *sql.DB, logger *zap.Logger) *CommandQueue {
	return &CommandQueue{
		db:     db,
		logger: logger,
	}
}

const commandColumns = `command_id, device_id, channel, type, payload, status, created_at, acknowledged_at, completed_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCommand(row rowScanner) (*models.Command, error) {
	var (
		c                      models.Command
		payload                string
		createdAt              int64
		acknowledgedAt, doneAt sql.NullInt64
	)
	if err := row.Scan(&c.CommandID, &c.DeviceID, &c.Channel, &c.Type, &payload, &c.Status,
		&createdAt, &acknowledgedAt, &doneAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(payload), &c.Payload); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	c.CreatedAt = time.UnixMilli(createdAt).UTC()
	c.AcknowledgedAt = optionalTime(acknowledgedAt)
	c.CompletedAt = optionalTime(doneAt)
	return &c, nil
}

func optionalTime(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64).UTC()
	return &t
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	if se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return true
	}
	return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(se.Error(), "UNIQUE")
}

// Create inserts a pending command. A second pending command for the same
// (device, channel, type) is rejected with a ConflictError by the database
// itself, so concurrent creates cannot both succeed.
func (q *CommandQueue) Create(ctx context.Context, cmd models.Command) (*models.Command, error) {
	payload := cmd.Payload
	if payload == nil {
		payload = map[string]interface{}{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, apperror.Validation("payload is not serializable",
			apperror.Issue{Path: "payload", Message: err.Error(), Code: "json"})
	}

	cmd.Payload = payload
	cmd.Status = models.CommandPending
	cmd.CreatedAt = time.UnixMilli(cmd.CreatedAt.UnixMilli()).UTC()

	_, err = q.db.ExecContext(ctx, `
		INSERT INTO commands (command_id, device_id, channel, type, payload, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		cmd.CommandID, cmd.DeviceID, string(cmd.Channel), cmd.Type, string(raw),
		string(models.CommandPending), cmd.CreatedAt.UnixMilli(),
	)
	if isUniqueViolation(err) {
		return nil, apperror.Conflict("a pending %q command already exists for device %s (%s)",
			cmd.Type, cmd.DeviceID, cmd.Channel)
	}
	if err != nil {
		return nil, apperror.Store("create command", err)
	}

	q.logger.Debug("Command queued",
		zap.String("command_id", cmd.CommandID),
		zap.String("device_id", cmd.DeviceID),
		zap.String("channel", string(cmd.Channel)),
		zap.String("type", cmd.Type),
	)
	return &cmd, nil
}

// ClaimNewest acknowledges the newest pending command of a channel in one
// statement and returns it. Two concurrent pollers can never both win.
// It returns nil, nil when nothing is pending.
func (q *CommandQueue) ClaimNewest(ctx context.Context, deviceID string, ch models.Channel, at time.Time) (*models.Command, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE commands
		SET status = 'acknowledged', acknowledged_at = ?
		WHERE command_id = (
			SELECT command_id FROM commands
			WHERE device_id = ? AND channel = ? AND status = 'pending'
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		) AND status = 'pending'
		RETURNING `+commandColumns,
		at.UnixMilli(), deviceID, string(ch),
	)
	c, err := scanCommand(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperror.Store("claim command", err)
	}

	q.logger.Debug("Command claimed",
		zap.String("command_id", c.CommandID),
		zap.String("device_id", deviceID),
		zap.String("channel", string(ch)),
	)
	return c, nil
}

// ListPending returns pending commands oldest first without changing them.
// An empty channel lists both channels.
func (q *CommandQueue) ListPending(ctx context.Context, deviceID string, ch models.Channel) ([]models.Command, error) {
	query := `SELECT ` + commandColumns + ` FROM commands WHERE device_id = ? AND status = 'pending'`
	args := []interface{}{deviceID}
	if ch != "" {
		query += ` AND channel = ?`
		args = append(args, string(ch))
	}
	query += ` ORDER BY created_at ASC, id ASC`

	return q.query(ctx, "list pending commands", query, args...)
}

func (q *CommandQueue) query(ctx context.Context, op, query string, args ...interface{}) ([]models.Command, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperror.Store(op, err)
	}
	defer rows.Close()

	commands := make([]models.Command, 0)
	for rows.Next() {
		c, err := scanCommand(rows)
		if err != nil {
			return nil, apperror.Store(op, err)
		}
		commands = append(commands, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Store(op, err)
	}
	return commands, nil
}

func (q *CommandQueue) Get(ctx context.Context, commandID string) (*models.Command, error) {
	c, err := scanCommand(q.db.QueryRowContext(ctx,
		`SELECT `+commandColumns+` FROM commands WHERE command_id = ?`, commandID,
	))
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("command", commandID)
	}
	if err != nil {
		return nil, apperror.Store("get command", err)
	}
	return c, nil
}

// Acknowledge moves a pending command to acknowledged.
func (q *CommandQueue) Acknowledge(ctx context.Context, commandID string, at time.Time) (*models.Command, error) {
	return q.transition(ctx, commandID, models.CommandPending, models.CommandAcknowledged, "acknowledged_at", at)
}

// Complete moves an acknowledged command to completed.
func (q *CommandQueue) Complete(ctx context.Context, commandID string, at time.Time) (*models.Command, error) {
	return q.transition(ctx, commandID, models.CommandAcknowledged, models.CommandCompleted, "completed_at", at)
}

func (q *CommandQueue) transition(ctx context.Context, commandID string, from, to models.CommandStatus, column string, at time.Time) (*models.Command, error) {
	row := q.db.QueryRowContext(ctx, fmt.Sprintf(`
		UPDATE commands SET status = ?, %s = ?
		WHERE command_id = ? AND status = ?
		RETURNING %s`, column, commandColumns),
		string(to), at.UnixMilli(), commandID, string(from),
	)
	c, err := scanCommand(row)
	if err == nil {
		return c, nil
	}
	if err != sql.ErrNoRows {
		return nil, apperror.Store("transition command", err)
	}

	current, err := q.Get(ctx, commandID)
	if err != nil {
		return nil, err
	}
	return nil, apperror.Conflict("command %s is %s, expected %s", commandID, current.Status, from)
}

// List returns commands newest first with the total match count.
func (q *CommandQueue) List(ctx context.Context, filter models.CommandFilter) ([]models.Command, int, error) {
	var where []string
	var args []interface{}
	if filter.DeviceID != "" {
		where = append(where, "device_id = ?")
		args = append(args, filter.DeviceID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.From != nil {
		where = append(where, "created_at >= ?")
		args = append(args, filter.From.UnixMilli())
	}
	if filter.To != nil {
		where = append(where, "created_at < ?")
		args = append(args, filter.To.UnixMilli())
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM commands`+clause, args...).Scan(&total); err != nil {
		return nil, 0, apperror.Store("count commands", err)
	}

	commands, err := q.query(ctx, "list commands",
		`SELECT `+commandColumns+` FROM commands`+clause+` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		append(args, filter.Limit, filter.Skip)...,
	)
	if err != nil {
		return nil, 0, err
	}
	return commands, total, nil
}

// Summary returns the newest pending and newest acknowledged command of a
// device together with counts per status.
func (q *CommandQueue) Summary(ctx context.Context, deviceID string) (models.CommandSummary, error) {
	summary := models.CommandSummary{Totals: map[models.CommandStatus]int{
		models.CommandPending:      0,
		models.CommandAcknowledged: 0,
		models.CommandCompleted:    0,
	}}

	rows, err := q.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM commands WHERE device_id = ? GROUP BY status`, deviceID)
	if err != nil {
		return summary, apperror.Store("count commands by status", err)
	}
	for rows.Next() {
		var status models.CommandStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			rows.Close()
			return summary, apperror.Store("scan command totals", err)
		}
		summary.Totals[status] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return summary, apperror.Store("iterate command totals", err)
	}

	if summary.LastPending, err = q.newest(ctx, deviceID, models.CommandPending, "created_at"); err != nil {
		return summary, err
	}
	if summary.LastAck, err = q.newest(ctx, deviceID, models.CommandAcknowledged, "acknowledged_at"); err != nil {
		return summary, err
	}
	return summary, nil
}

func (q *CommandQueue) newest(ctx context.Context, deviceID string, status models.CommandStatus, orderBy string) (*models.Command, error) {
	c, err := scanCommand(q.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s FROM commands
		WHERE device_id = ? AND status = ?
		ORDER BY %s DESC, id DESC
		LIMIT 1`, commandColumns, orderBy),
		deviceID, string(status),
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperror.Store("get newest command", err)
	}
	return c, nil
}

// PurgeCompleted removes completed commands finished before cutoff.
func (q *CommandQueue) PurgeCompleted(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := q.db.ExecContext(ctx,
		`DELETE FROM commands WHERE status = 'completed' AND completed_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, apperror.Store("purge completed commands", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected > 0 {
		q.logger.Info("Purged completed commands",
			zap.Int64("count", rowsAffected),
		)
	}
	return rowsAffected, nil
}
