// Package api provides the HTTP surface of the Hearth hub. It creates a chi
// router, enforces cross-cutting concerns (panic recovery, request IDs,
// structured request logging, the optional API password) and exposes the
// entity state and door command endpoints.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"hearth/internal/hub"
	"hearth/internal/types"
)

// HistoryProvider reads recorded state transitions. The recorder implements
// it; a nil provider leaves the history endpoint unmounted.
type HistoryProvider interface {
	History(ctx context.Context, entityID string, limit int) ([]types.StateChange, error)
}

// Server bundles the API's dependencies so tests can inject their own hub
// and logger.
type Server struct {
	Hub     *hub.Hub
	History HistoryProvider
	Logger  *slog.Logger

	// passwordHash is a bcrypt hash of the API password. Empty disables
	// authentication (trusted-network mode).
	passwordHash types.SecretString

	router *chi.Mux
}

// NewServer builds the server and mounts its routes.
func NewServer(h *hub.Hub, history HistoryProvider, passwordHash types.SecretString, logger *slog.Logger) *Server {
	s := &Server{
		Hub:          h,
		History:      history,
		Logger:       logger,
		passwordHash: passwordHash,
		router:       chi.NewRouter(),
	}
	s.mountRoutes()
	return s
}

// Handler returns the router as an http.Handler for http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// mountRoutes registers the middleware chain and all endpoints. Recoverer is
// outermost so every panic is caught; the request ID must exist before the
// logger runs; auth guards only the /api subtree, never /health.
func (s *Server) mountRoutes() {
	s.router.Use(s.Recoverer)
	s.router.Use(RequestIDMiddleware)
	s.router.Use(RequestLogger(s.Logger))

	s.router.Get("/health", s.HandleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(s.AuthMiddleware)

		r.Get("/states", s.HandleStates)
		r.Get("/states/{entityID}", s.HandleState)
		r.Post("/doors/{entityID}/open", s.HandleDoorOpen)
		r.Post("/doors/{entityID}/close", s.HandleDoorClose)

		if s.History != nil {
			r.Get("/history/{entityID}", s.HandleHistory)
		}
	})
}
