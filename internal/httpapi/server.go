package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/erauner12/shopnow-proxy/internal/proxy"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
)

// Forwarder abstracts the request proxy for testing
type Forwarder interface {
	Forward(ctx context.Context, req proxy.Request) (*proxy.Response, error)
}

// Server serves the browser-facing API
type Server struct {
	Proxy          Forwarder
	AllowedOrigins []string

	// Now is used for health timestamps; defaults to time.Now
	Now func() time.Time
}

// Routes builds the HTTP handler
func (s *Server) Routes() http.Handler {
	if s.Now == nil {
		s.Now = time.Now
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(CorrelationMiddleware)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(s.cors().Handler)

	r.Get("/health", s.Health)

	duplicates := chi.NewRouter()
	duplicates.Get("/pending", s.PendingDuplicates)
	duplicates.Post("/{id}/resolve", s.ResolveDuplicate)

	// The browser client historically used the /api prefix
	r.Mount("/duplicates", duplicates)
	r.Mount("/api/duplicates", duplicates)

	return r
}

func (s *Server) cors() *cors.Cors {
	origins := s.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", CorrelationHeader},
		ExposedHeaders: []string{CorrelationHeader, offlineHeader},
	})
}
