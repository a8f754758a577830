package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"Mansoor88-6/activity-hub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newStub(t *testing.T, handler http.HandlerFunc) *APIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewAPIClient(srv.URL+"/", 2*time.Second, zap.NewNop())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestSendChunks(t *testing.T) {
	end := int64(1772445600000)
	c := newStub(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/logs/ingest", r.URL.Path)
		var req models.IngestRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Chunks, 1)

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"ok": true,
			"data": map[string]interface{}{"results": []models.ChunkOutcome{
				{DeviceID: "dev-1", EndAtEpochMs: end, Status: models.OutcomeUpdated},
			}},
		})
	})

	res, err := c.SendChunks(context.Background(), []models.ChunkInput{{
		DeviceID: "dev-1",
		LogClock: models.ClockInput{ClientSideTimeEpochMs: &end},
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Counters.Updated)

	_, err = c.SendChunks(context.Background(), nil)
	assert.Error(t, err)
}

func TestSendChunksRejected(t *testing.T) {
	c := newStub(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"ok":      false,
			"error":   "validation_error",
			"message": "invalid chunk batch",
			"details": map[string]interface{}{"results": []models.ChunkOutcome{
				{DeviceID: "dev-1", Status: models.OutcomeFailed, Error: models.ErrCodeValidation},
			}},
		})
	})

	res, err := c.SendChunks(context.Background(), []models.ChunkInput{{DeviceID: "dev-1"}})
	var bad *BadRequestError
	require.True(t, errors.As(err, &bad))
	assert.Equal(t, "validation_error", bad.Code)
	require.NotNil(t, res)
	assert.Equal(t, 1, res.Counters.Failed)
}

func TestClaimCommand(t *testing.T) {
	pending := true
	c := newStub(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/commands/claim", r.URL.Path)
		if !pending {
			writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "data": nil})
			return
		}
		pending = false
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "data": models.Command{
			CommandID: "c-1", DeviceID: "dev-1", Channel: models.ChannelClient,
			Type: "ping", Status: models.CommandAcknowledged,
		}})
	})

	cmd, err := c.ClaimCommand(context.Background(), "dev-1", models.ChannelClient)
	require.NoError(t, err)
	require.NotNil(t, cmd)
	assert.Equal(t, "c-1", cmd.CommandID)

	cmd, err = c.ClaimCommand(context.Background(), "dev-1", models.ChannelClient)
	require.NoError(t, err)
	assert.Nil(t, cmd)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		status int
		check  func(error) bool
	}{
		{http.StatusNotFound, func(err error) bool { var e *NotFoundError; return errors.As(err, &e) }},
		{http.StatusConflict, func(err error) bool { var e *ConflictError; return errors.As(err, &e) }},
		{http.StatusInternalServerError, func(err error) bool { var e *BackendError; return errors.As(err, &e) }},
	}
	for _, tt := range tests {
		c := newStub(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, tt.status, map[string]interface{}{"ok": false, "error": "x", "message": "nope"})
		})
		_, err := c.CompleteCommand(context.Background(), "c-1")
		assert.True(t, tt.check(err), "status %d", tt.status)
	}
}

func TestHealthCheck(t *testing.T) {
	c := newStub(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	assert.NoError(t, c.HealthCheck(context.Background()))
}
