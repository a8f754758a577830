package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"Mansoor88-6/activity-hub/internal/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrFrom(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", apperror.Validation("bad input"), http.StatusBadRequest, "validation_error"},
		{"not found", apperror.NotFound("device", "dev-1"), http.StatusNotFound, "not_found"},
		{"conflict", apperror.Conflict("already pending"), http.StatusConflict, "conflict"},
		{"store", apperror.Store("list devices", errors.New("disk I/O error")), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := errFrom(tt.err)
			assert.Equal(t, tt.status, res.HTTPStatusCode)
			assert.Equal(t, tt.code, res.ErrorCode)
		})
	}

	// Backend details never leak to clients.
	res := errFrom(errors.New("database is locked"))
	assert.NotContains(t, res.Message, "locked")
}

func TestTimeParam(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?a=1772445600000&b=2026-03-02T10:00:00Z&c=noon", nil)

	a, err := timeParam(r, "a")
	require.NoError(t, err)
	b, err := timeParam(r, "b")
	require.NoError(t, err)
	assert.True(t, a.Equal(*b))

	_, err = timeParam(r, "c")
	assert.True(t, apperror.IsValidation(err))

	missing, err := timeParam(r, "d")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDateParam(t *testing.T) {
	loc := time.FixedZone("", 5*3600)
	r := httptest.NewRequest(http.MethodGet, "/?date=2026-03-02", nil)

	d, err := dateParam(r, "date", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC), d.UTC())
}

func TestIntParam(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?limit=7&skip=x", nil)

	n, err := intParam(r, "limit", 50)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	n, err = intParam(r, "top", 20)
	require.NoError(t, err)
	assert.Equal(t, 20, n)

	_, err = intParam(r, "skip", 0)
	assert.True(t, apperror.IsValidation(err))
}
