package handler

import (
	"net/http"
	"strconv"
	"time"

	"Mansoor88-6/activity-hub/internal/apperror"
	"Mansoor88-6/activity-hub/internal/service"
)

// timeParam reads an optional instant given as epoch milliseconds or RFC3339.
func timeParam(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	if msec, err := strconv.ParseInt(raw, 10, 64); err == nil {
		t := time.UnixMilli(msec).UTC()
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, apperror.Validation("invalid query parameter", apperror.Issue{
			Path:    name,
			Message: "must be epoch milliseconds or RFC3339",
			Code:    "time",
		})
	}
	t = t.UTC()
	return &t, nil
}

// dateParam reads an optional calendar date (YYYY-MM-DD, read in loc) or
// an instant inside the wanted day.
func dateParam(r *http.Request, name string, loc *time.Location) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", raw, loc); err == nil {
		return &t, nil
	}
	return timeParam(r, name)
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.Validation("invalid query parameter", apperror.Issue{
			Path:    name,
			Message: "must be an integer",
			Code:    "int",
		})
	}
	return n, nil
}

func rangeParams(r *http.Request) (service.RangeQuery, error) {
	from, err := timeParam(r, "from")
	if err != nil {
		return service.RangeQuery{}, err
	}
	to, err := timeParam(r, "to")
	if err != nil {
		return service.RangeQuery{}, err
	}
	return service.RangeQuery{From: from, To: to}, nil
}
