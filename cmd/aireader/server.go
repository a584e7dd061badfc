package main

import (
	"net/http"

	"github.com/af-corp/aireader-gateway/internal/gateway"
	"github.com/af-corp/aireader-gateway/internal/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func newRouter(h *gateway.Handler, rateLimit func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(httputil.RequestID)

	r.Get("/aireader/v1/health", healthHandler)
	r.Get("/v1/models", h.ListModels)
	r.Get("/v1/routing", h.Routing)

	// Only generation spends provider quota.
	r.Group(func(r chi.Router) {
		r.Use(rateLimit)
		r.Post("/v1/generate/text", h.GenerateText)
		r.Post("/v1/generate/image", h.GenerateImage)
	})
	return r
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": version,
	})
}
