package apiserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gamebrain/shoplens/internal/apiserver/handler"
	"github.com/gamebrain/shoplens/internal/config"
	"github.com/gamebrain/shoplens/internal/recommend"
	"github.com/gamebrain/shoplens/internal/table"
	"github.com/gamebrain/shoplens/pkg/insight"
)

// NewRouter creates the API router with all endpoints.
func NewRouter(cfg *config.Config, provider *table.Provider, gate *insight.Gate) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	questionHandler := handler.NewQuestionHandler(provider, gate, cfg.Analytics)
	recommendHandler := handler.NewRecommendHandler(recommend.NewEngine())
	statusHandler := handler.NewStatusHandler(provider)

	r.Route("/api/v1", func(r chi.Router) {
		// Questions (literal route before parameterized)
		r.Get("/questions", questionHandler.List)
		r.Get("/questions/{id}", questionHandler.Get)

		// Recommendations
		r.Post("/recommend", recommendHandler.Recommend)
	})

	r.Get("/healthz", statusHandler.Health)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
