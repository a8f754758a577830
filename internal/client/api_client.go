package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"Mansoor88-6/activity-hub/internal/models"

	"go.uber.org/zap"
)

// APIClient talks to the activity hub on behalf of a device agent.
type APIClient struct {
	baseURL    string
	apiPrefix  string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewAPIClient creates a client for the hub at baseURL.
func NewAPIClient(baseURL string, timeout time.Duration, logger *zap.Logger) *APIClient {
	return &APIClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiPrefix: "/api/v1",
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

type envelope struct {
	OK      bool            `json:"ok"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Details json.RawMessage `json:"details"`
}

// SendChunks uploads a batch of chunks. On a rejected or partially failed
// batch the per-chunk outcomes are still returned together with the error.
func (c *APIClient) SendChunks(ctx context.Context, chunks []models.ChunkInput) (*models.IngestResult, error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("cannot send empty batch")
	}

	startTime := time.Now()
	env, err := c.do(ctx, http.MethodPost, "/logs/ingest", models.IngestRequest{Chunks: chunks})
	duration := time.Since(startTime)

	result := &models.IngestResult{}
	if env != nil {
		src := env.Data
		if !env.OK {
			src = env.Details
		}
		if len(src) > 0 {
			if uerr := json.Unmarshal(src, result); uerr != nil {
				c.logger.Warn("Failed to decode ingest outcomes", zap.Error(uerr))
			}
			result.CountOutcomes()
		}
	}

	if err != nil {
		c.logger.Error("Failed to send batch",
			zap.Error(err),
			zap.Int("chunk_count", len(chunks)),
			zap.Duration("duration", duration),
		)
		return result, err
	}

	c.logger.Info("Batch sent successfully",
		zap.Int("chunk_count", len(chunks)),
		zap.Int("inserted", result.Counters.Inserted),
		zap.Int("updated", result.Counters.Updated),
		zap.Duration("duration", duration),
	)
	return result, nil
}

// Heartbeat reports liveness on one channel, optionally claiming the newest
// pending command.
func (c *APIClient) Heartbeat(ctx context.Context, req models.HeartbeatRequest) (*models.HeartbeatResponse, error) {
	env, err := c.do(ctx, http.MethodPost, "/devices/heartbeat", req)
	if err != nil {
		return nil, err
	}
	var resp models.HeartbeatResponse
	if err := json.Unmarshal(env.Data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse heartbeat response: %w", err)
	}
	return &resp, nil
}

// ClaimCommand acknowledges and returns the newest pending command, or nil
// when there is none.
func (c *APIClient) ClaimCommand(ctx context.Context, deviceID string, ch models.Channel) (*models.Command, error) {
	env, err := c.do(ctx, http.MethodPost, "/commands/claim", models.ClaimRequest{DeviceID: deviceID, Channel: ch})
	if err != nil {
		return nil, err
	}
	return decodeCommand(env.Data)
}

// CompleteCommand marks an acknowledged command as executed.
func (c *APIClient) CompleteCommand(ctx context.Context, commandID string) (*models.Command, error) {
	env, err := c.do(ctx, http.MethodPatch, "/commands/"+url.PathEscape(commandID)+"/complete", nil)
	if err != nil {
		return nil, err
	}
	return decodeCommand(env.Data)
}

// ReportError sends an agent-side failure report.
func (c *APIClient) ReportError(ctx context.Context, req models.CreateDeviceErrorRequest) error {
	_, err := c.do(ctx, http.MethodPost, "/errors", req)
	return err
}

// Settings fetches the tracking settings the agent should run with.
func (c *APIClient) Settings(ctx context.Context) (*models.TrackingSettings, error) {
	env, err := c.do(ctx, http.MethodGet, "/settings", nil)
	if err != nil {
		return nil, err
	}
	var s models.TrackingSettings
	if err := json.Unmarshal(env.Data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}
	return &s, nil
}

// HealthCheck checks if the hub is reachable
func (c *APIClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

func decodeCommand(data json.RawMessage) (*models.Command, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var cmd models.Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return nil, fmt.Errorf("failed to parse command: %w", err)
	}
	return &cmd, nil
}

// do sends body as JSON and decodes the response envelope. The envelope is
// returned alongside status errors when it could be decoded.
func (c *APIClient) do(ctx context.Context, method, path string, body interface{}) (*envelope, error) {
	var rdr io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		rdr = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+c.apiPrefix+path, rdr)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if decodeErr != nil {
			return nil, fmt.Errorf("failed to parse response: %w", decodeErr)
		}
		return &env, nil
	}

	errMsg := fmt.Sprintf("hub returned status %d: %s", resp.StatusCode, string(raw))
	if decodeErr == nil && env.Message != "" {
		errMsg = fmt.Sprintf("hub returned status %d: %s", resp.StatusCode, env.Message)
	}
	var envPtr *envelope
	if decodeErr == nil {
		envPtr = &env
	}

	switch resp.StatusCode {
	case http.StatusBadRequest:
		c.logger.Warn("Invalid request",
			zap.String("path", path),
			zap.String("response", string(raw)),
		)
		return envPtr, &BadRequestError{Message: errMsg, StatusCode: resp.StatusCode, Code: env.Error}
	case http.StatusNotFound:
		return envPtr, &NotFoundError{Message: errMsg, StatusCode: resp.StatusCode}
	case http.StatusConflict:
		return envPtr, &ConflictError{Message: errMsg, StatusCode: resp.StatusCode}
	default:
		c.logger.Error("Hub error",
			zap.String("path", path),
			zap.Int("status_code", resp.StatusCode),
			zap.String("response", string(raw)),
		)
		return envPtr, &BackendError{Message: errMsg, StatusCode: resp.StatusCode, Code: env.Error}
	}
}

// Error types

type BadRequestError struct {
	Message    string
	StatusCode int
	Code       string
}

func (e *BadRequestError) Error() string {
	return e.Message
}

type NotFoundError struct {
	Message    string
	StatusCode int
}

func (e *NotFoundError) Error() string {
	return e.Message
}

type ConflictError struct {
	Message    string
	StatusCode int
}

func (e *ConflictError) Error() string {
	return e.Message
}

type BackendError struct {
	Message    string
	StatusCode int
	Code       string
}

func (e *BackendError) Error() string {
	return e.Message
}
