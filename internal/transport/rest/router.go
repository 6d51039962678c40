package rest

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/frahmantamala/household-ledger/api"
	"github.com/frahmantamala/household-ledger/internal/auth"
	"github.com/frahmantamala/household-ledger/internal/category"
	"github.com/frahmantamala/household-ledger/internal/core/metrics"
	"github.com/frahmantamala/household-ledger/internal/expense"
	"github.com/frahmantamala/household-ledger/internal/report"
	"github.com/frahmantamala/household-ledger/internal/settings"
	"github.com/frahmantamala/household-ledger/internal/transport/middleware"
	"github.com/frahmantamala/household-ledger/internal/transport/swagger"
)

type Handlers struct {
	Auth     *auth.Handler
	Expense  *expense.Handler
	Category *category.Handler
	Settings *settings.Handler
	Report   *report.Handler
}

type Options struct {
	AllowedOrigins  string
	ValidateRequest bool
	Metrics         *metrics.Metrics
	MetricsPath     string
	HealthChecks    map[string]Checker
}

func RegisterAllRoutes(router *chi.Mux, h Handlers, opts Options, logger *slog.Logger) error {
	healthHandler := NewHealthHandler(opts.HealthChecks)

	// Apply global middleware
	router.Use(middleware.CORS(opts.AllowedOrigins))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))
	if opts.Metrics != nil {
		router.Use(opts.Metrics.Middleware)
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.Handle(path, opts.Metrics.Handler())
	}

	// Serve OpenAPI spec at root (outside API prefix)
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		w.Write(api.OpenAPI)
	})
	// Swagger UI route at root
	router.Handle("/swagger/*", swagger.Handler())

	var validate func(http.Handler) http.Handler
	if opts.ValidateRequest {
		v, err := middleware.OpenAPIValidator(api.OpenAPI, logger)
		if err != nil {
			return err
		}
		validate = v
	}

	// Mount API under /api/v1 to match OpenAPI basePath
	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)
			if validate != nil {
				pr.Use(validate)
			}

			pr.Get("/me", h.Auth.Me)

			pr.Route("/expenses", func(er chi.Router) {
				er.Get("/", h.Expense.ListExpenses)
				er.Post("/", h.Expense.CreateExpense)
				er.Get("/all", h.Expense.ListAllExpenses)
				er.Get("/stream", h.Expense.StreamExpenses)
				er.Post("/quick", h.Expense.QuickAddExpense)
				er.Put("/order", h.Expense.ReorderExpenses)
				er.Get("/{id}", h.Expense.GetExpense)
				er.Patch("/{id}", h.Expense.UpdateExpense)
				er.Delete("/{id}", h.Expense.DeleteExpense)
			})

			pr.Post("/templates/apply", h.Expense.ApplyTemplate)
			pr.Delete("/months/{year}/{month}", h.Expense.ClearMonth)

			pr.Route("/cards", func(cr chi.Router) {
				cr.Delete("/links", h.Expense.UnlinkFromCard)
				cr.Post("/{cardId}/links", h.Expense.LinkToCard)
				cr.Get("/{cardId}/reconciliation", h.Expense.Reconcile)
			})

			pr.Route("/categories", func(cr chi.Router) {
				cr.Get("/", h.Category.GetCategories)
				cr.Post("/", h.Category.CreateCategory)
				cr.Get("/stream", h.Category.StreamCategories)
				cr.Put("/order", h.Category.ReorderCategories)
				cr.Get("/orphans", h.Category.GetOrphans)
				cr.Delete("/orphans", h.Category.CleanupOrphans)
				cr.Delete("/{id}", h.Category.DeleteCategory)
				cr.Put("/{id}/name", h.Category.RenameCategory)
				cr.Put("/{id}/colors", h.Category.UpdateColors)
				cr.Put("/{id}/icon", h.Category.UpdateIcon)
				cr.Post("/{id}/include-in-totals", h.Category.ToggleIncludeInTotals)
			})

			pr.Route("/settings/status-colors", func(sr chi.Router) {
				sr.Get("/", h.Settings.GetStatusColors)
				sr.Put("/", h.Settings.SaveStatusColors)
				sr.Delete("/", h.Settings.ResetStatusColors)
				sr.Get("/stream", h.Settings.StreamStatusColors)
			})

			pr.Get("/reports/monthly", h.Report.GetMonthlyTotals)
			pr.Get("/reports/monthly/{year}/{month}", h.Report.GetMonthTotals)
		})
	})
	return nil
}
