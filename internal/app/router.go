package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/meridian-bi/meridian/internal/analytics"
	"github.com/meridian-bi/meridian/internal/assistant"
	"github.com/meridian-bi/meridian/internal/auth"
	"github.com/meridian-bi/meridian/internal/catalog"
	"github.com/meridian-bi/meridian/internal/demo"
	"github.com/meridian-bi/meridian/internal/export"
	"github.com/meridian-bi/meridian/internal/ingest"
	"github.com/meridian-bi/meridian/internal/observability"
	"github.com/meridian-bi/meridian/internal/receivables"
	"github.com/meridian-bi/meridian/internal/sales"
	"github.com/meridian-bi/meridian/internal/shared"
	"github.com/meridian-bi/meridian/internal/tenancy"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config

	AuthHandler        *auth.Handler
	TenancyHandler     *tenancy.Handler
	CatalogHandler     *catalog.Handler
	SalesHandler       *sales.Handler
	ReceivablesHandler *receivables.Handler
	AnalyticsHandler   *analytics.Handler
	IngestHandler      *ingest.Handler
	AssistantHandler   *assistant.Handler
	ExportHandler      *export.Handler
	DemoHandler        *demo.Handler

	Authenticator *auth.Middleware
	Metrics       *observability.Metrics
}

// NewRouter constructs the chi.Router with Meridian defaults.
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

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", params.AuthHandler.MountRoutes)

		// Signup and invitation acceptance happen before a token exists.
		r.Post("/companies", params.TenancyHandler.CreateCompany)
		r.Post("/invitations/{token}/accept", params.TenancyHandler.AcceptInvitation)

		// Everything below requires a bearer token.
		r.Group(func(r chi.Router) {
			r.Use(params.Authenticator.RequireAuth)

			r.Route("/companies", params.TenancyHandler.MountCompanyRoutes)
			r.Route("/products", params.CatalogHandler.MountRoutes)
			r.Route("/customers", params.SalesHandler.MountCustomerRoutes)
			r.Route("/sales", params.SalesHandler.MountSaleRoutes)
			r.Route("/collections", params.ReceivablesHandler.MountRoutes)
			r.Route("/inventory", params.AnalyticsHandler.MountInventoryRoutes)
			r.Route("/analytics", params.AnalyticsHandler.MountRoutes)
			r.Get("/data-statistics", params.AnalyticsHandler.DataStatistics)
			r.Route("/import", params.IngestHandler.MountRoutes)
			r.Route("/export", params.ExportHandler.MountRoutes)
			r.Route("/chat", params.AssistantHandler.MountChatRoutes)
			r.Route("/ai", params.AssistantHandler.MountAIRoutes)
			r.With(params.Authenticator.RequireRole(shared.RoleAdmin)).
				Post("/generate-test-data", params.DemoHandler.Generate)
		})
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
