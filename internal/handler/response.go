package handler

import (
	"errors"
	"net/http"

	"Mansoor88-6/activity-hub/internal/apperror"

	"github.com/go-chi/render"
	"go.uber.org/zap"
)

// Response is the success envelope of every endpoint.
type Response struct {
	OK      bool        `json:"ok"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data"`
	Meta    interface{} `json:"meta,omitempty"`

	status int
}

func (res *Response) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, res.status)
	return nil
}

// ErrResponse is the error envelope of every endpoint.
type ErrResponse struct {
	Err            error       `json:"-"`
	HTTPStatusCode int         `json:"-"`
	OK             bool        `json:"ok"`
	ErrorCode      string      `json:"error"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

func ok(w http.ResponseWriter, r *http.Request, status int, message string, data, meta interface{}) {
	render.Render(w, r, &Response{OK: true, Message: message, Data: data, Meta: meta, status: status})
}

func errInvalidRequest(err error) *ErrResponse {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusBadRequest,
		ErrorCode:      "invalid_request",
		Message:        err.Error(),
	}
}

// errFrom maps the apperror taxonomy onto HTTP statuses.
func errFrom(err error) *ErrResponse {
	var (
		verr *apperror.ValidationError
		nerr *apperror.NotFoundError
		cerr *apperror.ConflictError
	)
	switch {
	case errors.As(err, &verr):
		return &ErrResponse{
			Err:            err,
			HTTPStatusCode: http.StatusBadRequest,
			ErrorCode:      "validation_error",
			Message:        verr.Message,
			Details:        map[string]interface{}{"errors": verr.Issues},
		}
	case errors.As(err, &nerr):
		return &ErrResponse{
			Err:            err,
			HTTPStatusCode: http.StatusNotFound,
			ErrorCode:      "not_found",
			Message:        err.Error(),
		}
	case errors.As(err, &cerr):
		return &ErrResponse{
			Err:            err,
			HTTPStatusCode: http.StatusConflict,
			ErrorCode:      "conflict",
			Message:        err.Error(),
		}
	default:
		return &ErrResponse{
			Err:            err,
			HTTPStatusCode: http.StatusInternalServerError,
			ErrorCode:      "internal_error",
			Message:        "Failed to get data from backend",
		}
	}
}

// fail renders err and logs server-side failures.
func fail(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	res := errFrom(err)
	if res.HTTPStatusCode >= http.StatusInternalServerError {
		logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	render.Render(w, r, res)
}
