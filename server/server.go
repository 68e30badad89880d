// Package server is the HTTP backend of the rig log viewer. Each browser
// session uploads its own rig log and reads statistics and charts for its
// current table and head selection.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/subtlepseudonym/forcelog"
	"github.com/subtlepseudonym/forcelog/session"
)

const (
	SessionCookie         = "forcelog_session"
	DefaultMaxUploadBytes = 32 << 20
)

type contextKey string

const sessionKey contextKey = "session_id"

type Options struct {
	Pipeline       *forcelog.Pipeline
	Store          *session.Store
	Metrics        *Metrics
	Logger         *slog.Logger
	MaxUploadBytes int64
}

type Server struct {
	pipeline       *forcelog.Pipeline
	store          *session.Store
	metrics        *Metrics
	logger         *slog.Logger
	maxUploadBytes int64
}

func New(opts Options) *Server {
	s := &Server{
		pipeline:       opts.Pipeline,
		store:          opts.Store,
		metrics:        opts.Metrics,
		logger:         opts.Logger,
		maxUploadBytes: opts.MaxUploadBytes,
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With(slog.String("component", "server"))
	if s.pipeline == nil {
		s.pipeline = forcelog.DefaultPipeline()
	}
	if s.store == nil {
		s.store = session.NewStore(session.DefaultTTL, opts.Logger)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics()
	}
	if s.maxUploadBytes <= 0 {
		s.maxUploadBytes = DefaultMaxUploadBytes
	}

	return s
}

// Routes returns the viewer router
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.Health)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(s.sessions)
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Post("/upload", s.Upload)
		r.Get("/tables", s.Tables)
		r.Get("/tables/{table}/heads", s.Heads)
		r.Put("/selection", s.Select)
		r.Get("/statistics", s.Statistics)
		r.Get("/charts/scatter/{head}", s.ScatterChart)
		r.Get("/charts/box", s.BoxChart)
		r.Get("/export.xlsx", s.ExportWorkbook)
	})

	return r
}

// Sweep expires idle sessions and refreshes the session gauge
func (s *Server) Sweep(now time.Time) int {
	removed := s.store.Sweep(now)
	s.metrics.Sessions.Set(float64(s.store.Len()))
	return removed
}

// sessions attaches a session to every request, creating one and setting the
// session cookie when the request carries none or an expired one
func (s *Server) sessions(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if cookie, err := r.Cookie(SessionCookie); err == nil {
			if sess, err := s.store.Get(cookie.Value); err == nil {
				id = sess.ID
			}
		}

		if id == "" {
			id = s.store.Create().ID
			s.metrics.Sessions.Set(float64(s.store.Len()))
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := context.WithValue(r.Context(), sessionKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionID(r *http.Request) string {
	id, _ := r.Context().Value(sessionKey).(string)
	return id
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Debug("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Int("bytes", ww.BytesWritten()),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := apiError(err)
	if apiErr.StatusCode >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
	render.Render(w, r, apiErr)
}
