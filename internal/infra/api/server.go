package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"drobe-backend/internal/domain/ports/adapter"
	"drobe-backend/internal/infra/logging"
	"drobe-backend/internal/usecase"
)

// rateLimiter is the slice of the Redis limiter the API needs.
type rateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// ScreenshotLimit configures the per-session screenshot-assist budget.
type ScreenshotLimit struct {
	Limit  int
	Window time.Duration
}

// Server exposes the REST surface and mounts the websocket relay.
type Server struct {
	sessions    usecase.SessionUseCase
	curricula   usecase.CurriculumUseCase
	screenshots usecase.ScreenshotUseCase
	media       adapter.MediaStore
	limiter     rateLimiter
	ssLimit     ScreenshotLimit
	relay       http.Handler
	mediaRoot   string
	log         *zerolog.Logger
}

func NewServer(
	sessions usecase.SessionUseCase,
	curricula usecase.CurriculumUseCase,
	screenshots usecase.ScreenshotUseCase,
	media adapter.MediaStore,
	limiter rateLimiter,
	ssLimit ScreenshotLimit,
	relay http.Handler,
	mediaRoot string,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "api.Server").Logger()
	return &Server{
		sessions:    sessions,
		curricula:   curricula,
		screenshots: screenshots,
		media:       media,
		limiter:     limiter,
		ssLimit:     ssLimit,
		relay:       relay,
		mediaRoot:   mediaRoot,
		log:         &l,
	}
}

func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.accessLog)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	if s.mediaRoot != "" {
		r.Handle("/media/*", http.StripPrefix("/media/", http.FileServer(http.Dir(s.mediaRoot))))
	}
	if s.relay != nil {
		r.Get("/ws/chat/{session_id}", s.relay.ServeHTTP)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.createSession)
			r.Get("/", s.listSessions)
			r.Get("/{id}", s.getSession)
			r.Post("/{id}/end", s.endSession)
			r.Get("/{id}/messages", s.listMessages)
			r.Post("/{id}/screenshot", s.screenshotAssist)
		})

		r.Route("/curricula", func(r chi.Router) {
			r.Post("/", s.createCurriculum)
			r.Get("/", s.listCurricula)
			r.Get("/countries", s.listCountries)
			r.Get("/{id}", s.getCurriculum)
			r.Put("/{id}", s.updateCurriculum)
			r.Delete("/{id}", s.deleteCurriculum)
			r.Get("/{id}/tree", s.curriculumTree)
			r.Get("/{id}/labels", s.listLabels)
			r.Get("/{id}/topics", s.listTopicsByCurriculum)
		})
		r.Route("/labels", func(r chi.Router) {
			r.Post("/", s.createLabel)
			r.Put("/{id}", s.updateLabel)
			r.Delete("/{id}", s.deleteLabel)
			r.Get("/{id}/topics", s.listTopicsByLabel)
		})
		r.Post("/media", s.uploadMedia)

		r.Route("/topics", func(r chi.Router) {
			r.Post("/", s.createTopic)
			r.Get("/{id}", s.getTopic)
			r.Put("/{id}", s.updateTopic)
			r.Delete("/{id}", s.deleteTopic)
		})
	})

	return r
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := logging.WithTraceID(r.Context(), uuid.NewString())
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))
		logging.With(ctx, s.log).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}
