package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"Mansoor88-6/activity-hub/internal/apperror"
	"Mansoor88-6/activity-hub/internal/models"

	"github.com/go-chi/render"
)

// decodeIngestRequest decodes the batch one chunk at a time so a field of
// the wrong JSON type rejects the batch as a validation failure instead of a
// malformed body. On a validation error the returned request holds every
// chunk, decoded as far as possible, so each can be reported back.
// Non-validation errors mean the body is not JSON at all.
func decodeIngestRequest(body io.Reader) (*models.IngestRequest, error) {
	var raw struct {
		Chunks []json.RawMessage `json:"chunks"`
	}
	if err := render.DecodeJSON(body, &raw); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, apperror.Validation("invalid payload", typeIssue("", typeErr))
		}
		return nil, err
	}
	if raw.Chunks == nil {
		return nil, nil
	}

	req := &models.IngestRequest{Chunks: make([]models.ChunkInput, len(raw.Chunks))}
	var issues []apperror.Issue
	for i, chunk := range raw.Chunks {
		// Unmarshal keeps filling the remaining fields after a type mismatch.
		err := json.Unmarshal(chunk, &req.Chunks[i])
		if err == nil {
			continue
		}
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) {
			return nil, err
		}
		issues = append(issues, typeIssue(fmt.Sprintf("chunks[%d]", i), typeErr))
	}
	if len(issues) > 0 {
		return req, apperror.Validation("invalid payload", issues...)
	}
	return req, nil
}

func typeIssue(prefix string, typeErr *json.UnmarshalTypeError) apperror.Issue {
	path := typeErr.Field
	switch {
	case prefix == "":
	case path == "":
		path = prefix
	default:
		path = prefix + "." + path
	}
	return apperror.Issue{
		Path:    path,
		Message: fmt.Sprintf("expected %s, got %s", typeErr.Type.String(), typeErr.Value),
		Code:    "invalid_type",
	}
}
