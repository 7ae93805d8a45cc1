package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	mw "github.com/kiranshivaraju/listingscope/internal/api/middleware"
	"github.com/kiranshivaraju/listingscope/internal/api/response"
	"github.com/kiranshivaraju/listingscope/internal/apikey"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit
	// PublicLimit throttles share views per IP.
	PublicLimit *mw.IPLimit
	// IngestLimit throttles engine callbacks per IP, separately from PublicLimit.
	IngestLimit *mw.IPLimit

	HealthHandler http.HandlerFunc

	CreateProject  http.HandlerFunc
	ListProjects   http.HandlerFunc
	GetProject     http.HandlerFunc
	UpdateProject  http.HandlerFunc
	DeleteProject  http.HandlerFunc
	TriggerHandler http.HandlerFunc
	AnalyzeProject http.HandlerFunc
	CreateShare    http.HandlerFunc

	IngestHandler http.HandlerFunc
	ResolveShare  http.HandlerFunc

	ScreenshotHandler http.HandlerFunc
	AnalyzeHandler    http.HandlerFunc

	CreateKeyHandler http.HandlerFunc
	ListKeysHandler  http.HandlerFunc
	RevokeKeyHandler http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(mw.Tracing("listingscope"))
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	// Public health check
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	// Public routes authorized by a capability in the request
	r.Group(func(r chi.Router) {
		if deps.IngestLimit != nil {
			r.Use(deps.IngestLimit.Limit)
		}
		r.Post("/api/v1/ingest", orNotImplemented(deps.IngestHandler))
	})
	r.Group(func(r chi.Router) {
		if deps.PublicLimit != nil {
			r.Use(deps.PublicLimit.Limit)
		}
		r.Get("/api/v1/share/{token}", orNotImplemented(deps.ResolveShare))
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Post("/api/v1/projects", orNotImplemented(deps.CreateProject))
		r.Get("/api/v1/projects", orNotImplemented(deps.ListProjects))
		r.Get("/api/v1/projects/{projectID}", orNotImplemented(deps.GetProject))
		r.Patch("/api/v1/projects/{projectID}", orNotImplemented(deps.UpdateProject))
		r.Delete("/api/v1/projects/{projectID}", orNotImplemented(deps.DeleteProject))
		r.Post("/api/v1/projects/{projectID}/analyze", orNotImplemented(deps.AnalyzeProject))
		r.Post("/api/v1/projects/{projectID}/share", orNotImplemented(deps.CreateShare))

		r.Post("/api/v1/trigger", orNotImplemented(deps.TriggerHandler))

		r.Post("/api/v1/screenshot", orNotImplemented(deps.ScreenshotHandler))
		r.Post("/api/v1/analyze", orNotImplemented(deps.AnalyzeHandler))

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireScope(apikey.ScopeAdmin))

			r.Post("/api/v1/admin/keys", orNotImplemented(deps.CreateKeyHandler))
			r.Get("/api/v1/admin/keys", orNotImplemented(deps.ListKeysHandler))
			r.Delete("/api/v1/admin/keys/{keyID}", orNotImplemented(deps.RevokeKeyHandler))
		})
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
