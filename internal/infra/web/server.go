package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"gds-ingestion/internal/usecase"
)

type Server struct {
	ingestor usecase.Ingestor
	auth     *AuthManager
	log      *zerolog.Logger
}

func NewServer(ingestor usecase.Ingestor, auth *AuthManager, logger *zerolog.Logger) *Server {
	srvLog := logger.With().Str("component", "WebServer").Logger()
	return &Server{
		ingestor: ingestor,
		auth:     auth,
		log:      &srvLog,
	}
}

// Router builds the full HTTP surface: unauthenticated health and
// metrics, JWT-protected ingestion API.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/ingestion", func(api chi.Router) {
		api.Use(s.authMiddleware)
		api.Post("/batches", batchCreateHandler(s.ingestor))
		api.Get("/status", statusHandler(s.ingestor))
		api.Post("/cooldown", cooldownHandler(s.ingestor))
	})

	return r
}

// authMiddleware requires a valid operator JWT on every API route.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(s.auth.cfg.HMACSecret) == 0 {
			s.log.Error().Msg("JWT secret is not configured")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		if _, err := s.auth.ParseFromRequest(r); err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
