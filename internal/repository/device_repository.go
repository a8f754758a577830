package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"Mansoor88-6/activity-hub/internal/apperror"
	"Mansoor88-6/activity-hub/internal/models"

	"go.uber.org/zap"
)

// DeviceRepository stores registered devices and their heartbeat timestamps.
type DeviceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewDeviceRepository(db *sql.DB, logger *zap.Logger) *DeviceRepository {
	return &DeviceRepository{db: db, logger: logger}
}

const deviceColumns = `
	device_id, user_id, username, display_name, profile_url, designation,
	check_in_time, last_client_heartbeat_at, last_service_heartbeat_at, last_seen_at,
	created_at, updated_at
`

func scanDevice(row rowScanner) (*models.Device, error) {
	var (
		d                                          models.Device
		userID, username, name, profile, title     sql.NullString
		checkIn, clientBeat, serviceBeat, lastSeen sql.NullInt64
		createdAt, updatedAt                       int64
	)
	err := row.Scan(
		&d.DeviceID, &userID, &username, &name, &profile, &title,
		&checkIn, &clientBeat, &serviceBeat, &lastSeen,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	d.UserID = nullString(userID)
	d.Username = nullString(username)
	d.DisplayName = nullString(name)
	d.ProfileURL = nullString(profile)
	d.Designation = nullString(title)
	d.CheckInTime = nullTime(checkIn)
	d.LastClientHeartbeatAt = nullTime(clientBeat)
	d.LastServiceHeartbeatAt = nullTime(serviceBeat)
	d.LastSeenAt = nullTime(lastSeen)
	d.CreatedAt = fromMillis(createdAt)
	d.UpdatedAt = fromMillis(updatedAt)
	return &d, nil
}

func heartbeatColumn(ch models.Channel) (string, error) {
	switch ch {
	case models.ChannelClient:
		return "last_client_heartbeat_at", nil
	case models.ChannelService:
		return "last_service_heartbeat_at", nil
	}
	return "", apperror.Validation("invalid channel", apperror.Issue{Path: "type", Message: "must be client or service", Code: "oneof"})
}

// RecordHeartbeat creates the device on first contact and stamps the
// channel's heartbeat time. lastSeenAt never moves backwards.
func (r *DeviceRepository) RecordHeartbeat(ctx context.Context, deviceID string, ch models.Channel, at time.Time) (*models.Device, error) {
	column, err := heartbeatColumn(ch)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		INSERT INTO devices (device_id, %[1]s, last_seen_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (device_id) DO UPDATE SET
			%[1]s = excluded.%[1]s,
			last_seen_at = MAX(COALESCE(devices.last_seen_at, 0), excluded.last_seen_at),
			updated_at = excluded.updated_at
		RETURNING %[2]s
	`, column, deviceColumns)

	ms := at.UnixMilli()
	d, err := scanDevice(r.db.QueryRowContext(ctx, query, deviceID, ms, ms, ms, ms))
	if err != nil {
		return nil, apperror.Store("record heartbeat", err)
	}
	return d, nil
}

func (r *DeviceRepository) Get(ctx context.Context, deviceID string) (*models.Device, error) {
	d, err := scanDevice(r.db.QueryRowContext(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE device_id = ?`, deviceID,
	))
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("device", deviceID)
	}
	if err != nil {
		return nil, apperror.Store("get device", err)
	}
	return d, nil
}

func (r *DeviceRepository) Exists(ctx context.Context, deviceID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM devices WHERE device_id = ?`, deviceID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, apperror.Store("check device", err)
	}
	return true, nil
}

// List returns every device ordered by id.
func (r *DeviceRepository) List(ctx context.Context) ([]models.Device, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+deviceColumns+` FROM devices ORDER BY device_id ASC`)
	if err != nil {
		return nil, apperror.Store("query devices", err)
	}
	defer rows.Close()

	devices := make([]models.Device, 0)
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, apperror.Store("scan device", err)
		}
		devices = append(devices, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Store("iterate devices", err)
	}
	return devices, nil
}

// UpdateAssignment applies the non-nil fields of update to a known device.
func (r *DeviceRepository) UpdateAssignment(ctx context.Context, deviceID string, update models.AssignmentUpdate, at time.Time) (*models.Device, error) {
	setParts := []string{"updated_at = ?"}
	args := []interface{}{at.UnixMilli()}

	if update.UserID != nil {
		setParts = append(setParts, "user_id = ?")
		args = append(args, *update.UserID)
	}
	if update.Username != nil {
		setParts = append(setParts, "username = ?")
		args = append(args, *update.Username)
	}
	if update.DisplayName != nil {
		setParts = append(setParts, "display_name = ?")
		args = append(args, *update.DisplayName)
	}
	if update.ProfileURL != nil {
		setParts = append(setParts, "profile_url = ?")
		args = append(args, *update.ProfileURL)
	}
	if update.Designation != nil {
		setParts = append(setParts, "designation = ?")
		args = append(args, *update.Designation)
	}
	if update.CheckInTime != nil {
		setParts = append(setParts, "check_in_time = ?")
		args = append(args, update.CheckInTime.UnixMilli())
	}

	query := fmt.Sprintf(`
		UPDATE devices
		SET %s
		WHERE device_id = ?
		RETURNING %s
	`, strings.Join(setParts, ", "), deviceColumns)
	args = append(args, deviceID)

	d, err := scanDevice(r.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("device", deviceID)
	}
	if err != nil {
		return nil, apperror.Store("update device assignment", err)
	}
	return d, nil
}

// LookupAssignment resolves the user currently assigned to a device. An
// unknown or unassigned device yields an empty reference.
func (r *DeviceRepository) LookupAssignment(ctx context.Context, deviceID string) (models.UserRef, error) {
	var userID, username sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, username FROM devices WHERE device_id = ?`, deviceID,
	).Scan(&userID, &username)
	if err == sql.ErrNoRows {
		return models.UserRef{}, nil
	}
	if err != nil {
		return models.UserRef{}, apperror.Store("lookup device assignment", err)
	}
	return models.UserRef{UserID: nullString(userID), Username: nullString(username)}, nil
}

// TouchSeen advances lastSeenAt for devices that uploaded data. Devices that
// were never registered are created so their chunks show up in listings.
func (r *DeviceRepository) TouchSeen(ctx context.Context, deviceIDs []string, at time.Time) error {
	if len(deviceIDs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return apperror.Store("begin touch", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO devices (device_id, last_seen_at, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (device_id) DO UPDATE SET
			last_seen_at = MAX(COALESCE(devices.last_seen_at, 0), excluded.last_seen_at)
	`)
	if err != nil {
		return apperror.Store("prepare touch", err)
	}
	defer stmt.Close()

	ms := at.UnixMilli()
	for _, id := range deviceIDs {
		if _, err := stmt.ExecContext(ctx, id, ms, ms, ms); err != nil {
			return apperror.Store("touch device", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperror.Store("commit touch", err)
	}
	return nil
}
