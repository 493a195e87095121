package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/limpio-app/limpio/internal/auth"
	"github.com/limpio-app/limpio/internal/calendar"
	"github.com/limpio-app/limpio/internal/clients"
	"github.com/limpio-app/limpio/internal/credentials"
	"github.com/limpio-app/limpio/internal/expenses"
	"github.com/limpio-app/limpio/internal/export"
	"github.com/limpio-app/limpio/internal/invoices"
	"github.com/limpio-app/limpio/internal/observability"
	"github.com/limpio-app/limpio/internal/quotes"
	"github.com/limpio-app/limpio/internal/scheduling"
	"github.com/limpio-app/limpio/internal/shared"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	Metrics        *observability.Metrics

	AuthHandler        *auth.Handler
	ClientsHandler     *clients.Handler
	QuotesHandler      *quotes.Handler
	InvoicesHandler    *invoices.Handler
	JobsHandler        *scheduling.Handler
	ExpensesHandler    *expenses.Handler
	CalendarHandler    *calendar.Handler
	CredentialsHandler *credentials.Handler
	ExportHandler      *export.Handler
}

// NewRouter constructs the chi.Router with Limpio defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/auth", params.AuthHandler.MountRoutes)

	// Provider notifications arrive without a session.
	r.Route("/calendar", func(r chi.Router) {
		params.CalendarHandler.MountWebhook(r)

		r.Group(func(r chi.Router) {
			r.Use(RequireAccount)
			params.CalendarHandler.MountRoutes(r)
			r.Route("/oauth", params.CredentialsHandler.MountRoutes)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(RequireAccount)

		r.Route("/clients", params.ClientsHandler.MountRoutes)
		r.Route("/quotes", params.QuotesHandler.MountRoutes)
		r.Route("/invoices", params.InvoicesHandler.MountRoutes)
		r.Route("/jobs", params.JobsHandler.MountRoutes)
		r.Route("/expenses", params.ExpensesHandler.MountRoutes)
		r.Route("/export", params.ExportHandler.MountRoutes)
	})

	return r
}
