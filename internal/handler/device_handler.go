package handler

import (
	"net/http"

	"Mansoor88-6/activity-hub/internal/models"
	"Mansoor88-6/activity-hub/internal/service"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"go.uber.org/zap"
)

type DeviceHandler struct {
	devices *service.DeviceService
	logger  *zap.Logger
}

func NewDeviceHandler(devices *service.DeviceService, logger *zap.Logger) *DeviceHandler {
	return &DeviceHandler{devices: devices, logger: logger}
}

func (h *DeviceHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/heartbeat", h.Heartbeat)
	r.Get("/", h.List)
	r.Get("/overview", h.Overview)
	r.Get("/{deviceId}", h.Get)
	r.Patch("/{deviceId}", h.Assign)
	return r
}

func (h *DeviceHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	var req models.HeartbeatRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Render(w, r, errInvalidRequest(err))
		return
	}

	resp, err := h.devices.Heartbeat(r.Context(), req)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	ok(w, r, http.StatusOK, "Heartbeat recorded", resp, nil)
}

func (h *DeviceHandler) List(w http.ResponseWriter, r *http.Request) {
	devices, err := h.devices.List(r.Context())
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	ok(w, r, http.StatusOK, "", devices, map[string]int{"total": len(devices)})
}

func (h *DeviceHandler) Overview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.devices.Overview(r.Context())
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	ok(w, r, http.StatusOK, "", overview, map[string]int{"total": len(overview)})
}

func (h *DeviceHandler) Get(w http.ResponseWriter, r *http.Request) {
	device, err := h.devices.Get(r.Context(), chi.URLParam(r, "deviceId"))
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	ok(w, r, http.StatusOK, "", device, nil)
}

func (h *DeviceHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var update models.AssignmentUpdate
	if err := render.DecodeJSON(r.Body, &update); err != nil {
		render.Render(w, r, errInvalidRequest(err))
		return
	}

	device, err := h.devices.Assign(r.Context(), chi.URLParam(r, "deviceId"), update)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	ok(w, r, http.StatusOK, "Device updated", device, nil)
}
