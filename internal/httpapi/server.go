// Package httpapi exposes job lifecycle over HTTP: start, status, SSE progress,
// SSE screenshots, input forwarding and exports.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"shopreviews/internal/adapters/export"
	"shopreviews/internal/core/domain"
	"shopreviews/internal/service"
)

// Options configures the server.
type Options struct {
	Driver          string
	ProxyConfigured bool
	StreamInterval  time.Duration
	FrameInterval   time.Duration
}

// Server serves the job API.
type Server struct {
	jobs   *service.Manager
	opts   Options
	logger zerolog.Logger
}

// New creates a new Server.
func New(jobs *service.Manager, opts Options, logger zerolog.Logger) *Server {
	if opts.StreamInterval <= 0 {
		opts.StreamInterval = 500 * time.Millisecond
	}
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = 300 * time.Millisecond
	}
	return &Server{jobs: jobs, opts: opts, logger: logger}
}

// Router returns the HTTP handler with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(s.logger))
	r.Use(cors)

	r.Get("/health", s.health)
	r.Post("/start", s.start)
	r.Get("/status/{id}", s.status)
	r.Get("/stream/{id}", s.stream)
	r.Get("/browser-stream/{id}", s.browserStream)
	r.Post("/browser-event/{id}", s.browserEvent)
	r.Get("/export/{id}", s.export)
	return r
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":           "ok",
		"proxy_configured": s.opts.ProxyConfigured,
		"driver":           s.opts.Driver,
	})
}

type startRequest struct {
	URL      string `json:"url"`
	MaxPages int    `json:"max_pages"`
}

func (s *Server) start(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.URL == "" {
		writeErr(w, http.StatusBadRequest, errors.New("URL is required"))
		return
	}
	job, err := s.jobs.Start(req.URL, req.MaxPages)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidURL) {
			writeErr(w, http.StatusBadRequest, err)
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"job_id": job.ID, "product_id": job.ProductID})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	snap, err := s.jobs.Status(chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) browserEvent(w http.ResponseWriter, r *http.Request) {
	var ev domain.InputEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	err := s.jobs.Input(chi.URLParam(r, "id"), ev)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	case errors.Is(err, domain.ErrJobNotFound):
		writeErr(w, http.StatusNotFound, err)
	case errors.Is(err, domain.ErrInvalidInput):
		writeErr(w, http.StatusBadRequest, err)
	case errors.Is(err, domain.ErrNotInteractive),
		errors.Is(err, domain.ErrInputRateLimited),
		errors.Is(err, domain.ErrInputQueueFull):
		writeErr(w, http.StatusConflict, err)
	default:
		writeErr(w, http.StatusInternalServerError, err)
	}
}

func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, http.StatusNotFound, err)
		return
	}
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	if job.Status() != domain.StatusComplete {
		writeErr(w, http.StatusConflict, errors.New("job is not complete"))
		return
	}
	body, err := export.Render(format, job.Reviews())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="reviews_%s.%s"`, job.ProductID, format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// accessLog logs one line per request through zerolog.
func accessLog(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info().
					Str("request_id", middleware.GetReqID(r.Context())).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Str("remote", r.RemoteAddr).
					Int("status", ww.Status()).
					Int("bytes", ww.BytesWritten()).
					Dur("elapsed", time.Since(start)).
					Msg("http request")
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]any{"error": err.Error()})
}
