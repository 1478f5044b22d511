package httpapi

import (
	"net/http"
	"time"

	"github.com/erauner12/finsync-api/internal/auth"
	"github.com/erauner12/finsync-api/internal/syncengine"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// DefaultMaxBodyBytes caps a push body when Server.MaxBodyBytes is unset
const DefaultMaxBodyBytes = 10 << 20

// Server holds dependencies for HTTP handlers
type Server struct {
	Engine *syncengine.Engine
	Users  auth.SubjectResolver

	// Metrics serves /metrics when set
	Metrics http.Handler

	Version        string
	MaxBodyBytes   int64
	RequestTimeout time.Duration
}

// Routes creates the HTTP router with all sync endpoints
func (s *Server) Routes(jwt auth.JWTCfg) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(CorrelationMiddleware)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	if s.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.RequestTimeout))
	}

	// Health check (unauthenticated)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if s.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.Metrics)
	}

	// Capability discovery (unauthenticated)
	r.Get("/v1/sync/info", s.Info)

	// All sync endpoints require authentication
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(s.Users, jwt))

		r.Post("/v1/sync/push", s.Push)
		r.Get("/v1/sync/pull", s.Pull)
		r.Get("/v1/sync/status", s.Status)
	})

	log.Info().Msg("HTTP routes registered")
	return r
}
