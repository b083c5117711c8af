package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/wavefleet/wavefleet/internal/approval"
	"github.com/wavefleet/wavefleet/internal/audit"
	"github.com/wavefleet/wavefleet/internal/authorize"
	"github.com/wavefleet/wavefleet/internal/identity"
	"github.com/wavefleet/wavefleet/internal/membership"
	"github.com/wavefleet/wavefleet/internal/tenant"
	"github.com/wavefleet/wavefleet/internal/tenantaccess"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Handler holds HTTP handlers and dependencies
type Handler struct {
	identityService   *identity.Service
	tenantService     *tenant.Service
	membershipService *membership.Service
	accessResolver    *tenantaccess.Resolver
	gate              *authorize.Gate
	approvalService   *approval.Service
	auditLogger       audit.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	identityService *identity.Service,
	tenantService *tenant.Service,
	membershipService *membership.Service,
	accessResolver *tenantaccess.Resolver,
	gate *authorize.Gate,
	approvalService *approval.Service,
	auditLogger audit.Logger,
) *Handler {
	return &Handler{
		identityService:   identityService,
		tenantService:     tenantService,
		membershipService: membershipService,
		accessResolver:    accessResolver,
		gate:              gate,
		approvalService:   approvalService,
		auditLogger:       auditLogger,
	}
}

// NewRouter creates a new HTTP router
func NewRouter(h *Handler, rateLimiter *RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RateLimitMiddleware(rateLimiter))
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check
	r.Get("/healthz", h.HealthCheck)

	// API routes. Everything below requires a gateway-verified bearer token.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(h.AuthMiddleware)

		r.Get("/me/tenants", h.ListMyTenants)
		r.Post("/authorize", h.Authorize)

		r.Route("/approvals/{approvalID}", func(r chi.Router) {
			r.Get("/", h.GetApproval)
			r.Post("/resolve", h.ResolveApproval)
		})

		r.Route("/tenants", func(r chi.Router) {
			// Tenant lifecycle is a platform-level concern.
			r.With(RequirePlatformAdmin).Post("/", h.CreateTenant)
			r.With(RequirePlatformAdmin).Get("/", h.ListTenants)

			r.Route("/{tenantID}", func(r chi.Router) {
				r.Get("/", h.GetTenant)
				r.With(RequirePlatformAdmin).Delete("/", h.DeactivateTenant)

				r.Get("/approvals", h.ListTenantApprovals)

				// Membership administration is gated through the
				// authorization gate itself.
				r.Route("/members", func(r chi.Router) {
					r.Get("/", h.ListMembers)
					r.Post("/", h.GrantMembership)
					r.Route("/{principalID}", func(r chi.Router) {
						r.Put("/roles", h.UpdateMemberRoles)
						r.Delete("/", h.RevokeMembership)
					})
				})
			})
		})
	})

	return r
}

// HealthCheck returns the health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "wavefleet-authz",
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

func getIPAddress(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
