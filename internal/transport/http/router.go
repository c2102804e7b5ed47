package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/worklink-api/internal/application/distribution"
	"github.com/worklink-api/internal/application/identity"
	"github.com/worklink-api/internal/application/notification"
	"github.com/worklink-api/internal/application/verification"
	"github.com/worklink-api/internal/config"
	"github.com/worklink-api/internal/domain"
	"github.com/worklink-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/worklink-api/internal/infrastructure/jwt"
	s3infra "github.com/worklink-api/internal/infrastructure/s3"
	"github.com/worklink-api/internal/infrastructure/smtp"
	"github.com/worklink-api/internal/infrastructure/sns"
	"github.com/worklink-api/internal/transport/http/handler"
	appmiddleware "github.com/worklink-api/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	IdentityRepo     *dynamo.IdentityRepo
	VerificationRepo *dynamo.VerificationRepo
	ContentRepo      *dynamo.ContentItemRepo
	NotificationRepo *dynamo.NotificationRepo
	DocumentStore    *s3infra.Store
	Mailer           smtp.Mailer
	Publisher        sns.Publisher
	JWTProvider      *jwtinfra.Provider
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authMw := appmiddleware.Auth(deps.JWTProvider, deps.IdentityRepo)

	// 5 requests/second, burst of 10 — applied to sensitive public endpoints
	// and to verification submission.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	identitySvc := identity.NewService(identity.ServiceDeps{
		IdentityRepo: deps.IdentityRepo,
		JWTProvider:  deps.JWTProvider,
		Timeout:      cfg.StorageTimeout,
	})
	workflowSvc := verification.NewService(verification.ServiceDeps{
		RequestRepo:      deps.VerificationRepo,
		IdentityRepo:     deps.IdentityRepo,
		DocumentStore:    deps.DocumentStore,
		NotificationRepo: deps.NotificationRepo,
		Mailer:           deps.Mailer,
		SMSSender:        deps.Publisher,
		Timeout:          cfg.StorageTimeout,
	})
	coordSvc := distribution.NewService(distribution.ServiceDeps{
		ContentRepo: deps.ContentRepo,
		Workflow:    workflowSvc,
		Fanout:      deps.Publisher,
		Timeout:     cfg.StorageTimeout,
	})
	notifSvc := notification.NewService(deps.NotificationRepo)

	healthH := handler.NewHealthHandler()
	accountH := handler.NewAccountHandler(identitySvc)
	verificationH := handler.NewVerificationHandler(workflowSvc, coordSvc)
	contentH := handler.NewContentHandler(coordSvc)
	notifH := handler.NewNotificationHandler(notifSvc)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/accounts", accountH.Register)
		r.With(sensitiveRL.Limit).Post("/sessions/login", accountH.Login)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/identities/{key}", accountH.Get)
			r.With(sensitiveRL.Limit).Post("/verification-requests", verificationH.Submit)
			r.Get("/broadcasts/active", contentH.ActiveBroadcasts)
			r.Get("/content-items/active", contentH.ActiveJobListings)
			r.Get("/notifications", notifH.ListUnread)
			r.Put("/notifications/{id}", notifH.MarkAsRead)

			// Contractor publishing; the guard also requires a verified caller.
			r.Post("/job-listings", contentH.PublishJobListing)
			r.Delete("/job-listings/{id}", contentH.Deactivate)

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleAdmin))

				r.Get("/verification-requests", verificationH.List)
				r.Get("/verification-requests/{id}", verificationH.Get)
				r.Patch("/verification-requests/{id}", verificationH.Decide)
				r.Post("/broadcasts", contentH.PublishBroadcast)
				r.Get("/broadcasts", contentH.ListAllBroadcasts)
				r.Delete("/broadcasts/{id}", contentH.Deactivate)
				r.Delete("/accounts/{key}", accountH.Delete)
			})
		})
	})

	return r
}
