// internal/api/server.go
package api

import (
	"context"
	"net/http"
	"time"

	"lead-intake/internal/common/logger"
	"lead-intake/internal/integrations/location"
	"lead-intake/internal/models"
	"lead-intake/internal/wizard"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Config struct {
	AllowedOrigins []string
	// RateLimit is requests per minute per client IP. Zero disables it.
	RateLimit      int
	MaxUploadBytes int64
	MaxChunkBytes  int64
}

// LocationService is satisfied by *location.Handler.
type LocationService interface {
	Lookup(ctx context.Context, identifier string) (location.LocationInfo, error)
}

// Checker is a dependency probed by /ready.
type Checker interface {
	Ping(ctx context.Context) error
}

// Sessions is the part of *wizard.Manager the handlers drive.
type Sessions interface {
	Create(ctx context.Context) (models.WizardSession, string, error)
	With(ctx context.Context, id string, fn func(*wizard.Machine) (models.WizardSession, error)) (models.WizardSession, error)
	StartVoice(ctx context.Context, id, mimeType string) error
	AppendVoice(id string, chunk []byte) error
	StopVoice(ctx context.Context, id string) (models.WizardSession, []string, error)
}

var _ Sessions = (*wizard.Manager)(nil)

type Server struct {
	config   Config
	sessions Sessions
	location LocationService
	checkers map[string]Checker
	logger   logger.Logger
}

func NewServer(config Config, sessions Sessions, loc LocationService, checkers map[string]Checker, log logger.Logger) *Server {
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = 10 << 20
	}
	if config.MaxChunkBytes <= 0 {
		config.MaxChunkBytes = 1 << 20
	}
	return &Server{
		config:   config,
		sessions: sessions,
		location: loc,
		checkers: checkers,
		logger:   log.WithFields(map[string]interface{}{"component": "http-api"}),
	}
}

// Routes builds the HTTP handler for the whole service.
func (s *Server) Routes() http.Handler {
	mux := chi.NewMux()

	mux.Use(chimiddleware.RequestID)
	mux.Use(chimiddleware.RealIP)
	mux.Use(s.recoverer)
	mux.Use(s.instrument)
	mux.Use(corsMiddleware(s.config.AllowedOrigins))

	mux.Get("/health", s.health)
	mux.Get("/ready", s.ready)
	mux.Handle("/metrics", promhttp.Handler())

	mux.Route("/v1", func(r chi.Router) {
		if s.config.RateLimit > 0 {
			r.Use(httprate.LimitByIP(s.config.RateLimit, time.Minute))
		}

		r.Post("/sessions", s.createSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.getSession)
			r.Patch("/profile", s.updateProfile)
			r.Put("/document", s.attachDocument)
			r.Delete("/document", s.removeDocument)
			r.Post("/next", s.transition(func(ctx context.Context, m *wizard.Machine) (models.WizardSession, error) { return m.Next(ctx) }))
			r.Post("/back", s.transition(func(ctx context.Context, m *wizard.Machine) (models.WizardSession, error) { return m.Back(ctx) }))
			r.Post("/submit", s.transition(func(ctx context.Context, m *wizard.Machine) (models.WizardSession, error) { return m.Submit(ctx) }))
			r.Post("/restart", s.transition(func(ctx context.Context, m *wizard.Machine) (models.WizardSession, error) { return m.Restart(ctx) }))

			r.Post("/voice/start", s.startVoice)
			r.Post("/voice/chunk", s.appendVoice)
			r.Post("/voice/stop", s.stopVoice)
		})

		r.Get("/location", s.lookupLocation)
	})

	return mux
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := make(map[string]string, len(s.checkers))
	status := http.StatusOK
	for name, c := range s.checkers {
		if err := c.Ping(ctx); err != nil {
			s.logger.Warn("readiness check failed", map[string]interface{}{"dependency": name, "error": err.Error()})
			checks[name] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	body := map[string]interface{}{"status": "ready", "checks": checks}
	if status != http.StatusOK {
		body["status"] = "not ready"
	}
	writeJSON(w, status, body)
}
