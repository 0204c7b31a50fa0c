package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Routes configures and returns the chi router
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)

	r.Get("/healthz", h.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		// Public reads
		r.Get("/tokens/{id}", h.handleGetToken)
		r.Get("/tokens/{id}/purchases/{identity}", h.handlePurchaseStatus)
		r.Get("/owners/{identity}/tokens", h.handleTokensOfOwner)
		r.Get("/stats", h.handleStats)
		r.Get("/events", h.handleEvents)

		// Caller identity comes from the bearer token
		r.Group(func(r chi.Router) {
			r.Use(h.AuthMiddleware)

			r.Get("/me/balance", h.handleBalance)

			r.With(h.RateLimitMiddleware).Post("/tokens", h.handleMint)
			r.With(h.RateLimitMiddleware).Post("/tokens/{id}/purchase", h.handleBuyAccess)
			r.With(h.RateLimitMiddleware).Post("/tokens/{id}/transfer", h.handleTransfer)
		})
	})

	return r
}
