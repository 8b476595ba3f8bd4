package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// GetRouter initialises a new http router and applies all routes
func GetRouter(h *Handler, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	return applyRoutes(r, h, gatherer)
}

func applyRoutes(r chi.Router, h *Handler, gatherer prometheus.Gatherer) chi.Router {
	r.Route("/", func(r chi.Router) {
		r.Get("/", h.getIndex)
		r.Get("/healthz", h.getHealth)
	})
	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	return r
}
