package routes

import (
	"time"

	"github.com/exampartner/backend/internal/config"
	"github.com/exampartner/backend/internal/handlers"
	"github.com/exampartner/backend/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	healthHandler *handlers.HealthHandler,
	paymentHandler *handlers.PaymentHandler,
	adminHandler *handlers.AdminHandler,
	questionHandler *handlers.QuestionHandler,
) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", healthHandler.Health)
	api.Get("/founding/status", authHandler.FoundingStatus)

	// Auth-specific rate limit: 10 req/min per IP (stricter)
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)

	api.Get("/me", middleware.BearerAuth(cfg), authHandler.Me)
	api.Post("/me/email", middleware.BearerAuth(cfg), authHandler.UpdateEmail)

	// Content. Anonymous callers get the free preview, so auth is optional.
	api.Get("/filters", middleware.OptionalBearer(cfg), questionHandler.Filters)
	questions := api.Group("/questions", middleware.OptionalBearer(cfg))
	questions.Get("/objective", questionHandler.Objective)
	questions.Get("/theory", questionHandler.Theory)
	api.Get("/question/:id", middleware.OptionalBearer(cfg), questionHandler.Get)

	pay := api.Group("/payments")
	pay.Get("/public-key", paymentHandler.PublicKey)
	pay.Post("/verify", paymentHandler.Verify)
	// The webhook authenticates by signature, never by bearer token.
	pay.Post("/webhook", paymentHandler.Webhook)
	pay.Get("/history", middleware.BearerAuth(cfg), paymentHandler.History)

	admin := pay.Group("/admin", middleware.AdminRequired(cfg))
	admin.Post("/reconcile/:reference", adminHandler.Reconcile)
	admin.Post("/refund", adminHandler.Refund)
	admin.Post("/mark-paid", adminHandler.MarkPaid)
	admin.Get("/audit", adminHandler.AuditLog)

	// Diagram images referenced by question payloads.
	app.Static("/static/diagrams", cfg.DiagramsDir)
}
