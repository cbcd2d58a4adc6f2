package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/dukapos/dukapos/internal/catalog"
	"github.com/dukapos/dukapos/internal/intake"
	"github.com/dukapos/dukapos/internal/observability"
	"github.com/dukapos/dukapos/internal/orders"
	"github.com/dukapos/dukapos/internal/sales"
	"github.com/dukapos/dukapos/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	CatalogHandler *catalog.Handler
	SalesHandler   *sales.Handler
	OrdersHandler  *orders.Handler
	IntakeHandler  *intake.Handler
	JobHandler     *jobs.Handler
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router with service defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.CatalogHandler != nil {
		params.CatalogHandler.MountRoutes(r)
	}
	if params.SalesHandler != nil {
		params.SalesHandler.MountRoutes(r)
	}
	if params.OrdersHandler != nil {
		params.OrdersHandler.MountRoutes(r)
	}
	if params.IntakeHandler != nil {
		// The webhook gets its own rate limit; provider redelivery storms
		// must not starve the till endpoints.
		r.Group(func(r chi.Router) {
			r.Use(WebhookRateLimiter(params.Config))
			params.IntakeHandler.MountRoutes(r)
		})
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
