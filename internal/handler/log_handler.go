package handler

import (
	"net/http"

	"Mansoor88-6/activity-hub/internal/apperror"
	"Mansoor88-6/activity-hub/internal/models"
	"Mansoor88-6/activity-hub/internal/service"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"go.uber.org/zap"
)

// LogHandler serves chunk ingestion and the aggregation queries.
type LogHandler struct {
	ingest      *service.IngestService
	aggregation *service.AggregationService
	logger      *zap.Logger
}

func NewLogHandler(ingest *service.IngestService, aggregation *service.AggregationService, logger *zap.Logger) *LogHandler {
	return &LogHandler{
		ingest:      ingest,
		aggregation: aggregation,
		logger:      logger,
	}
}

func (h *LogHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/ingest", h.Ingest)
	r.Get("/", h.List)
	r.Delete("/", h.DeleteAll)
	r.Get("/missing", h.Missing)
	r.Route("/aggregate", func(r chi.Router) {
		r.Get("/summary", h.Summary)
		r.Get("/apps", h.Apps)
		r.Get("/titles", h.Titles)
		r.Get("/today", h.Today)
	})
	return r
}

// Ingest always answers with one outcome per submitted chunk, also on
// failure.
func (h *LogHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	req, err := decodeIngestRequest(r.Body)
	if err != nil {
		if !apperror.IsValidation(err) {
			h.logger.Warn("Failed to decode ingest request", zap.Error(err))
			render.Render(w, r, errInvalidRequest(err))
			return
		}
		h.rejected(w, r, err, h.ingest.Reject(req, err))
		return
	}

	result, err := h.ingest.Ingest(r.Context(), req)
	switch {
	case err == nil:
		ok(w, r, http.StatusOK, "Ingest complete",
			map[string]interface{}{"results": result.Results}, result.Counters)
	case apperror.IsValidation(err):
		h.rejected(w, r, err, result)
	default:
		h.logger.Error("Ingest failed", zap.Error(err))
		render.Render(w, r, &ErrResponse{
			Err:            err,
			HTTPStatusCode: http.StatusInternalServerError,
			ErrorCode:      models.ErrCodeBulkWrite,
			Message:        "Ingest failed",
			Details: map[string]interface{}{
				"results":  result.Results,
				"counters": result.Counters,
			},
		})
	}
}

// rejected renders a validation failure together with the per-chunk
// outcomes.
func (h *LogHandler) rejected(w http.ResponseWriter, r *http.Request, err error, result *models.IngestResult) {
	res := errFrom(err)
	res.Details.(map[string]interface{})["results"] = result.Results
	render.Render(w, r, res)
}

func (h *LogHandler) List(w http.ResponseWriter, r *http.Request) {
	rng, err := rangeParams(r)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	limit, err := intParam(r, "limit", service.DefaultChunkLimit)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	skip, err := intParam(r, "skip", 0)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}

	page, err := h.aggregation.ListChunks(r.Context(), r.URL.Query().Get("deviceId"), rng, limit, skip)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	ok(w, r, http.StatusOK, "", page.Chunks, map[string]int{
		"total": page.Total,
		"limit": page.Limit,
		"skip":  page.Skip,
	})
}

// Missing lists the window ends already stored so the agent can re-send the
// ones it still holds.
func (h *LogHandler) Missing(w http.ResponseWriter, r *http.Request) {
	rng, err := rangeParams(r)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	ends, err := h.aggregation.ExistingWindowEnds(r.Context(), r.URL.Query().Get("deviceId"), rng)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	ok(w, r, http.StatusOK, "", map[string]interface{}{"existingEndAtEpochMs": ends}, nil)
}

func (h *LogHandler) Summary(w http.ResponseWriter, r *http.Request) {
	rng, err := rangeParams(r)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	summary, err := h.aggregation.Summary(r.Context(), r.URL.Query().Get("deviceId"), rng)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	ok(w, r, http.StatusOK, "", summary, nil)
}

func (h *LogHandler) Apps(w http.ResponseWriter, r *http.Request) {
	rng, err := rangeParams(r)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	top, err := intParam(r, "top", service.DefaultTopN)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	apps, err := h.aggregation.TopApps(r.Context(), r.URL.Query().Get("deviceId"), rng, top)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	ok(w, r, http.StatusOK, "", apps, nil)
}

func (h *LogHandler) Titles(w http.ResponseWriter, r *http.Request) {
	rng, err := rangeParams(r)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	top, err := intParam(r, "top", service.DefaultTopN)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	q := r.URL.Query()
	titles, err := h.aggregation.TopTitles(r.Context(), q.Get("deviceId"), q.Get("appName"), rng, top)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	ok(w, r, http.StatusOK, "", titles, nil)
}

// Today answers with data=null when the device has no chunks today.
func (h *LogHandler) Today(w http.ResponseWriter, r *http.Request) {
	date, err := dateParam(r, "date", h.aggregation.Location())
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	snapshot, err := h.aggregation.Today(r.Context(), r.URL.Query().Get("deviceId"), date)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	ok(w, r, http.StatusOK, "", snapshot, nil)
}

func (h *LogHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	n, err := h.ingest.PurgeAll(r.Context())
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	ok(w, r, http.StatusOK, "All logs deleted", map[string]int64{"deleted": n}, nil)
}
