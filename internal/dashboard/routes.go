package dashboard

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(instrument)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(noCache)
		r.Get("/", s.handleIndex)

		r.Route("/soundmap", func(r chi.Router) {
			r.Get("/", s.handleSoundMap)
			r.Get("/view.json", s.handleSoundMapView)
			r.Get("/feature.json", s.handleFeatureJSON)
			r.Get("/feature.svg", s.handleFeatureSVG)
			r.Get("/filtered.csv", s.handleFilteredCSV)
			r.Post("/reload", s.handleReload)
		})

		r.Route("/sparql", func(r chi.Router) {
			r.Get("/", s.handleSPARQL)
			r.Get("/query.json", s.handleSPARQLJSON)
			r.Get("/docs", s.handleSPARQLDocs)
		})
	})

	return r
}
