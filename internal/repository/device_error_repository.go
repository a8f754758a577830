package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"Mansoor88-6/activity-hub/internal/apperror"
	"Mansoor88-6/activity-hub/internal/models"

	"go.uber.org/zap"
)

type DeviceErrorRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewDeviceErrorRepository(db *sql.DB, logger *zap.Logger) *DeviceErrorRepository {
	return &DeviceErrorRepository{db: db, logger: logger}
}

func (r *DeviceErrorRepository) Create(ctx context.Context, req models.CreateDeviceErrorRequest, at time.Time) (*models.DeviceError, error) {
	var contextJSON interface{}
	if req.Context != nil {
		raw, err := json.Marshal(req.Context)
		if err != nil {
			return nil, apperror.Validation("context is not serializable",
				apperror.Issue{Path: "context", Message: err.Error(), Code: "json"})
		}
		contextJSON = string(raw)
	}

	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO device_errors (device_id, error_type, message, stack, context, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`,
		req.DeviceID, req.ErrorType, req.Message, req.Stack, contextJSON, at.UnixMilli(),
	).Scan(&id)
	if err != nil {
		return nil, apperror.Store("create device error", err)
	}

	return &models.DeviceError{
		ID:        id,
		DeviceID:  req.DeviceID,
		ErrorType: req.ErrorType,
		Message:   req.Message,
		Stack:     req.Stack,
		Context:   req.Context,
		CreatedAt: fromMillis(at.UnixMilli()),
	}, nil
}

// List returns one page of error reports, newest first, and the total count.
func (r *DeviceErrorRepository) List(ctx context.Context, filter models.DeviceErrorFilter) ([]models.DeviceError, int, error) {
	var where []string
	var args []interface{}
	if filter.DeviceID != "" {
		where = append(where, "device_id = ?")
		args = append(args, filter.DeviceID)
	}
	if filter.ErrorType != "" {
		where = append(where, "error_type = ?")
		args = append(args, filter.ErrorType)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM device_errors`+clause, args...).Scan(&total); err != nil {
		return nil, 0, apperror.Store("count device errors", err)
	}

	offset := (filter.Page - 1) * filter.Limit
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, device_id, error_type, message, stack, context, created_at FROM device_errors`+clause+
			` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		append(args, filter.Limit, offset)...,
	)
	if err != nil {
		return nil, 0, apperror.Store("query device errors", err)
	}
	defer rows.Close()

	reports := make([]models.DeviceError, 0)
	for rows.Next() {
		var (
			e              models.DeviceError
			stack, ctxJSON sql.NullString
			createdAt      int64
		)
		if err := rows.Scan(&e.ID, &e.DeviceID, &e.ErrorType, &e.Message, &stack, &ctxJSON, &createdAt); err != nil {
			return nil, 0, apperror.Store("scan device error", err)
		}
		e.Stack = nullString(stack)
		e.CreatedAt = fromMillis(createdAt)
		if ctxJSON.Valid {
			if err := json.Unmarshal([]byte(ctxJSON.String), &e.Context); err != nil {
				r.logger.Warn("Stored error context is not valid JSON",
					zap.Int64("id", e.ID),
					zap.Error(err),
				)
			}
		}
		reports = append(reports, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperror.Store("iterate device errors", err)
	}
	return reports, total, nil
}
