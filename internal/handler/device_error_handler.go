package handler

import (
	"net/http"

	"Mansoor88-6/activity-hub/internal/models"
	"Mansoor88-6/activity-hub/internal/service"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"go.uber.org/zap"
)

type DeviceErrorHandler struct {
	errors *service.DeviceErrorService
	logger *zap.Logger
}

func NewDeviceErrorHandler(errors *service.DeviceErrorService, logger *zap.Logger) *DeviceErrorHandler {
	return &DeviceErrorHandler{errors: errors, logger: logger}
}

func (h *DeviceErrorHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Create)
	r.Get("/", h.List)
	return r
}

func (h *DeviceErrorHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateDeviceErrorRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Render(w, r, errInvalidRequest(err))
		return
	}

	report, err := h.errors.LogError(r.Context(), req)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	ok(w, r, http.StatusCreated, "Error logged", report, nil)
}

func (h *DeviceErrorHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := intParam(r, "page", 1)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	limit, err := intParam(r, "limit", service.DefaultErrorPageSize)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}

	filter := models.DeviceErrorFilter{
		DeviceID:  r.URL.Query().Get("deviceId"),
		ErrorType: r.URL.Query().Get("errorType"),
		Page:      page,
		Limit:     limit,
	}
	reports, total, err := h.errors.ListErrors(r.Context(), filter)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	ok(w, r, http.StatusOK, "", reports, map[string]int{"total": total, "page": filter.Page, "limit": filter.Limit})
}
