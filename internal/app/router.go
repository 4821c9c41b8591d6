package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/shoplite/shoplite/internal/catalog"
	"github.com/shoplite/shoplite/internal/ledger"
	"github.com/shoplite/shoplite/internal/reports"
	"github.com/shoplite/shoplite/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	CatalogHandler *catalog.Handler
	LedgerHandler  *ledger.Handler
	ReportHandler  *reports.Handler
	JobHandler     *jobs.Handler
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/products", func(r chi.Router) {
		params.CatalogHandler.MountRoutes(r)
		// Product removal cascades into the sales ledger, so the ledger
		// handler owns it.
		r.Delete("/{id}", params.LedgerHandler.DeleteProduct)
	})
	r.Route("/sales", params.LedgerHandler.MountRoutes)
	r.Route("/reports", params.ReportHandler.MountRoutes)
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	return r
}
