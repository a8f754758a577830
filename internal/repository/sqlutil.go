package repository

import (
	"database/sql"
	"time"
)

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullTime(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMillis(v.Int64)
	return &t
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
