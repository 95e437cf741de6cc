// Package api exposes the peer-approval authentication service over
// REST. Handlers stay thin: request decoding, session resolution, and
// error mapping live here; every decision about requests, votes, and
// trust levels belongs to the auth package.
package api

import (
	_ "embed"
	"log/slog"
	"net/http"
	"net/netip"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-openapi/runtime/middleware"

	"github.com/narthex/vouch/auth"
)

// API holds the dependencies needed by the REST handlers.
type API struct {
	svc            *auth.Service
	logger         *slog.Logger
	trustedProxies []netip.Prefix
	metrics        *metricsCollector
	webhook        *auditWebhook
}

//go:embed openapi.yaml
var openapiSpec []byte

// Option configures the API instance.
type Option func(*API)

// WithLogger sets the structured logger for the HTTP layer.
// If not set, a default JSON logger writing to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) {
		a.logger = logger
	}
}

// WithTrustedProxies sets the CIDR ranges whose proxy headers are
// honored for client address extraction. Empty means headers are never
// trusted and the TCP peer address is used as-is.
func WithTrustedProxies(prefixes []netip.Prefix) Option {
	return func(a *API) {
		a.trustedProxies = prefixes
	}
}

// WithAlertFunc enables the anomaly collector and registers the
// callback invoked when a denial or rejection spike is detected.
func WithAlertFunc(fn AlertFunc) Option {
	return func(a *API) {
		a.metrics = newMetricsCollector(fn)
	}
}

// WithAuditWebhook forwards every audit entry to an external HTTP
// endpoint. authHeader uses "Header: Value" format and may be empty.
func WithAuditWebhook(url, authHeader string) Option {
	return func(a *API) {
		a.webhook = newAuditWebhook(url, authHeader)
	}
}

// New creates a new API instance over the authentication service.
func New(svc *auth.Service, opts ...Option) *API {
	a := &API{svc: svc}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}

	if a.metrics != nil || a.webhook != nil {
		svc.Trail().SetObserver(func(entry auth.AuditEntry) {
			a.metrics.recordEntry(entry)
			if a.webhook != nil {
				a.webhook.enqueue(webhookEventFromEntry(entry))
			}
		})
	}
	return a
}

// Close releases background resources (the webhook dispatcher).
func (a *API) Close() {
	if a.webhook != nil {
		a.webhook.close()
	}
}

// Router returns a chi.Router with all API routes mounted.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(SecurityHeaders)
	r.Use(a.CSRFMiddleware)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(openapiSpec)
	})

	r.Handle("/docs*", middleware.SwaggerUI(middleware.SwaggerUIOpts{
		SpecURL: "/api/v1/openapi.yaml",
		Path:    "api/v1/docs",
	}, nil))

	r.Handle("/redoc*", middleware.Redoc(middleware.RedocOpts{
		SpecURL: "/api/v1/openapi.yaml",
		Path:    "api/v1/redoc",
	}, nil))

	r.Get("/health", a.Health)
	r.Post("/login", a.Login)
	r.Post("/logout", a.Logout)

	r.Route("/auth", func(r chi.Router) {
		r.Use(a.SessionMiddleware)
		r.Get("/status-check", a.StatusCheck)
		r.Get("/requests", a.ListPending)
		r.Post("/approve/{requestID}", a.Approve)
		r.Post("/reject/{requestID}", a.Reject)
		r.Post("/bulk-approve", a.BulkApprove)
	})

	r.With(a.SessionMiddleware).Get("/audit", a.ListAudit)

	return r
}
