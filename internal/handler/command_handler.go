package handler

import (
	"net/http"

	"Mansoor88-6/activity-hub/internal/models"
	"Mansoor88-6/activity-hub/internal/service"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"go.uber.org/zap"
)

type CommandHandler struct {
	commands *service.CommandService
	logger   *zap.Logger
}

func NewCommandHandler(commands *service.CommandService, logger *zap.Logger) *CommandHandler {
	return &CommandHandler{commands: commands, logger: logger}
}

func (h *CommandHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/pending/{deviceId}", h.Pending)
	r.Post("/claim", h.Claim)
	r.Patch("/{commandId}/acknowledge", h.Acknowledge)
	r.Patch("/{commandId}/complete", h.Complete)
	return r
}

func (h *CommandHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateCommandRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Render(w, r, errInvalidRequest(err))
		return
	}

	cmd, err := h.commands.Create(r.Context(), req)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	ok(w, r, http.StatusCreated, "Command created", cmd, nil)
}

func (h *CommandHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.CommandFilter{
		DeviceID: q.Get("deviceId"),
		Status:   models.CommandStatus(q.Get("status")),
	}

	var err error
	if filter.From, err = timeParam(r, "from"); err != nil {
		fail(w, r, h.logger, err)
		return
	}
	if filter.To, err = timeParam(r, "to"); err != nil {
		fail(w, r, h.logger, err)
		return
	}
	if filter.Limit, err = intParam(r, "limit", service.DefaultChunkLimit); err != nil {
		fail(w, r, h.logger, err)
		return
	}
	if filter.Skip, err = intParam(r, "skip", 0); err != nil {
		fail(w, r, h.logger, err)
		return
	}

	commands, total, err := h.commands.List(r.Context(), filter)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	ok(w, r, http.StatusOK, "", commands, map[string]int{"total": total})
}

// Pending lists without claiming. The optional target query narrows it to
// one channel.
func (h *CommandHandler) Pending(w http.ResponseWriter, r *http.Request) {
	commands, err := h.commands.ListPending(r.Context(),
		chi.URLParam(r, "deviceId"), models.Channel(r.URL.Query().Get("target")))
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	ok(w, r, http.StatusOK, "", commands, map[string]int{"total": len(commands)})
}

// Claim answers with data=null when nothing is pending.
func (h *CommandHandler) Claim(w http.ResponseWriter, r *http.Request) {
	var req models.ClaimRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Render(w, r, errInvalidRequest(err))
		return
	}

	cmd, err := h.commands.Claim(r.Context(), req)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	if cmd == nil {
		ok(w, r, http.StatusOK, "No pending command", nil, nil)
		return
	}
	ok(w, r, http.StatusOK, "Command claimed", cmd, nil)
}

func (h *CommandHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	cmd, err := h.commands.Acknowledge(r.Context(), chi.URLParam(r, "commandId"))
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	ok(w, r, http.StatusOK, "Command acknowledged", cmd, nil)
}

func (h *CommandHandler) Complete(w http.ResponseWriter, r *http.Request) {
	cmd, err := h.commands.Complete(r.Context(), chi.URLParam(r, "commandId"))
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	ok(w, r, http.StatusOK, "Command completed", cmd, nil)
}
