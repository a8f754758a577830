package handler

import (
	"net/http"

	"Mansoor88-6/activity-hub/internal/models"
	"Mansoor88-6/activity-hub/internal/service"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"go.uber.org/zap"
)

type SettingsHandler struct {
	settings *service.SettingsService
	logger   *zap.Logger
}

func NewSettingsHandler(settings *service.SettingsService, logger *zap.Logger) *SettingsHandler {
	return &SettingsHandler{settings: settings, logger: logger}
}

func (h *SettingsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Get)
	r.Put("/", h.Update)
	return r
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	ok(w, r, http.StatusOK, "", h.settings.Current(r.Context()), nil)
}

func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var update models.SettingsUpdate
	if err := render.DecodeJSON(r.Body, &update); err != nil {
		render.Render(w, r, errInvalidRequest(err))
		return
	}

	settings, err := h.settings.Update(r.Context(), update)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	ok(w, r, http.StatusOK, "Settings updated", settings, nil)
}
