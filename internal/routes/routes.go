package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"plateserver/internal/handler"
	"plateserver/internal/logger"
	"plateserver/internal/metrics"
	"plateserver/internal/middleware"
)

// SetupRoutes registers the API endpoints and wraps them with request
// logging, metrics and panic recovery.
func SetupRoutes(h *handler.Handler, m *metrics.Metrics, logger *logger.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(
		chimiddleware.RequestID,
		chimiddleware.Recoverer,
		middleware.RequestLogger(logger, m),
	)

	// Detections
	r.Get("/plates", h.ListPlates)
	r.Post("/plates", h.CreatePlate)
	r.Get("/plates/{track_id}", h.GetPlatesByTrackID)
	r.Delete("/number-plates", h.ClearPlates)

	// Allow-list
	r.Get("/authorized-plates", h.ListAuthorizedPlates)
	r.Post("/authorized-plates", h.CreateAuthorizedPlate)
	r.Delete("/authorized-plates", h.ClearAuthorizedPlates)

	r.Get("/matching-plates", h.ListMatchingPlates)

	r.Get("/ws/plates", h.LiveFeed)
	r.Get("/healthz", h.Health)
	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	return r
}
