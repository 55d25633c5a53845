package router

import (
	"net/http"

	"github.com/Wateiyo/Nyumbanii-sub003/internal/auth"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/config"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/domain"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/http/handler"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/http/middleware"
	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	_ "github.com/Wateiyo/Nyumbanii-sub003/docs" // registers the swagger spec
)

// Handlers groups the HTTP handlers mounted by the router
type Handlers struct {
	Maintenance  *handler.MaintenanceHandler
	Messages     *handler.MessageHandler
	Notification *handler.NotificationHandler
	Dashboard    *handler.DashboardHandler
	Stream       *handler.StreamHandler
	Health       *handler.HealthHandler
}

type Router struct {
	cfg            *config.Config
	logger         *zap.Logger
	authMiddleware *auth.Middleware
	rateLimiter    *middleware.RateLimiter
	handlers       Handlers
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	authMiddleware *auth.Middleware,
	rateLimiter *middleware.RateLimiter,
	handlers Handlers,
) *Router {
	return &Router{
		cfg:            cfg,
		logger:         logger,
		authMiddleware: authMiddleware,
		rateLimiter:    rateLimiter,
		handlers:       handlers,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()
	h := rt.handlers

	// Global middleware
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(rt.rateLimiter.LimitByIP) // Apply IP-based rate limiting globally

	// Health checks
	r.Get("/health", h.Health.Live)
	r.Get("/health/db", h.Health.Database)
	r.Get("/health/ready", h.Health.Ready)

	// Swagger documentation
	if rt.cfg.Server.EnableSwagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	staff := rt.authMiddleware.RequireRole(domain.RoleMaintenanceStaff, domain.RolePropertyManager)
	landlord := rt.authMiddleware.RequireRole(domain.RoleLandlord)
	landlordOrSystem := rt.authMiddleware.RequireRole(domain.RoleLandlord, domain.RoleSystem)

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(rt.authMiddleware.Authenticate)
			r.Use(rt.rateLimiter.Limit)

			// Maintenance requests
			r.Route("/maintenance", func(r chi.Router) {
				r.Get("/", h.Maintenance.List)
				r.Post("/", h.Maintenance.Create)
				r.Get("/search", h.Maintenance.Search)
				r.Get("/{id}", h.Maintenance.GetByID)
				r.With(staff).Post("/{id}/assign", h.Maintenance.SelfAssign)
				r.Put("/{id}/status", h.Maintenance.UpdateStatus)
				r.Post("/{id}/estimate", h.Maintenance.SubmitEstimate)
				r.Get("/{id}/quotes", h.Maintenance.ListQuotes)
				r.Post("/{id}/quotes", h.Maintenance.SubmitQuote)
				r.Get("/{id}/quotes/{quoteId}/document", h.Maintenance.DownloadQuoteDocument)
				r.With(landlordOrSystem).Post("/{id}/approve", h.Maintenance.Approve)
				r.Post("/{id}/complete", h.Maintenance.Complete)
			})

			// Conversations
			r.Route("/conversations", func(r chi.Router) {
				r.Get("/", h.Messages.ListConversations)
				r.Post("/messages", h.Messages.Send)
				r.Get("/{id}/messages", h.Messages.Transcript)
				r.Post("/{id}/open", h.Messages.Open)
				r.Delete("/{id}", h.Messages.Delete)
			})

			// Notifications
			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", h.Notification.List)
				r.Get("/count", h.Notification.GetUnreadCount)
				r.Put("/read-all", h.Notification.MarkAllAsRead)
				r.Put("/{id}/read", h.Notification.MarkAsRead)
				r.Post("/{id}/open", h.Notification.Open)
			})

			// Dashboard
			r.Get("/budget", h.Dashboard.GetBudget)
			r.Get("/team", h.Dashboard.ListTeam)
			r.With(landlord).Post("/team", h.Dashboard.AddTeamMember)
			r.Get("/dashboard/state", h.Dashboard.GetState)
			r.Put("/dashboard/state", h.Dashboard.UpdateState)

			// Realtime
			r.Get("/stream", h.Stream.Events)
			r.Get("/stream/ws", h.Stream.WebSocket)
		})
	})

	return r
}
