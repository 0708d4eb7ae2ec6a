package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"tutorui/internal/gateway/handler"
	"tutorui/internal/gateway/middleware"
)

// Page composition waits on the model, so its deadline is generous.
const requestTimeout = 90 * time.Second

func NewRouter(h *handler.Handler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.CORS)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)

	r.Get("/healthz", h.Health)

	r.Route("/v1", func(r chi.Router) {
		// The websocket outlives any request timeout.
		r.Get("/events/ws", h.InteractionWS)

		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(requestTimeout))
			r.Post("/pages", h.ComposePage)
			r.Get("/pages/archive/*", h.ArchivedPage)
			r.Post("/events", h.PostEvent)
			r.Get("/schema", h.Schema)
			r.Get("/catalog", h.Catalog)
		})
	})
	return r
}
