package router

import (
	"net/http"
	"time"

	"Mansoor88-6/activity-hub/internal/handler"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Handlers groups the API handlers mounted under the API prefix.
type Handlers struct {
	Logs     *handler.LogHandler
	Devices  *handler.DeviceHandler
	Commands *handler.CommandHandler
	Errors   *handler.DeviceErrorHandler
	Settings *handler.SettingsHandler
}

type Options struct {
	APIPrefix      string
	RequestTimeout time.Duration
	// MetricsPath is left empty to disable the scrape endpoint.
	MetricsPath string
	Gatherer    prometheus.Gatherer
}

func New(h Handlers, opts Options, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	if opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(opts.RequestTimeout))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"status": "ok"})
	})

	if opts.MetricsPath != "" && opts.Gatherer != nil {
		r.Method(http.MethodGet, opts.MetricsPath, promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	prefix := opts.APIPrefix
	if prefix == "" {
		prefix = "/api/v1"
	}
	r.Route(prefix, func(r chi.Router) {
		r.Mount("/logs", h.Logs.Routes())
		r.Mount("/devices", h.Devices.Routes())
		r.Mount("/commands", h.Commands.Routes())
		r.Mount("/errors", h.Errors.Routes())
		r.Mount("/settings", h.Settings.Routes())
	})

	return r
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("HTTP request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("remote_addr", r.RemoteAddr),
					zap.String("request_id", middleware.GetReqID(r.Context())),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
