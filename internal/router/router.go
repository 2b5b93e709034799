package router

import (
	"log"
	"time"

	"paybridge/config"
	"paybridge/internal/audit"
	"paybridge/internal/handler"
	"paybridge/internal/middleware"
	"paybridge/internal/registry"
	"paybridge/internal/service"
	"paybridge/pkg/mailer"
	"paybridge/pkg/shopify"
	"paybridge/pkg/stripepay"

	"github.com/gin-gonic/gin"
)

func Setup(cfg *config.Config) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RateLimit(middleware.NewInMemoryRateLimiter(100, 60*time.Second)))

	if cfg.Shopify.WebhookSecret == "" && !cfg.Shopify.AllowUnsigned {
		log.Printf("[Router] SHOPIFY_WEBHOOK_SECRET is not set: order webhooks will be rejected (set WEBHOOK_ALLOW_UNSIGNED=true only for local testing)")
	}
	if cfg.Stripe.WebhookSecret == "" {
		log.Printf("[Router] STRIPE_WEBHOOK_SECRET is not set: completion webhooks will fail with 500")
	}

	// External clients
	shopifyClient := shopify.NewClient(
		cfg.Shopify.BaseURL, cfg.Shopify.AccessToken, cfg.Shopify.APIVersion,
		cfg.Payment.GatewayLabel, cfg.Payment.Currency, cfg.Shopify.Timeout,
	)
	stripeClient := stripepay.NewClient(
		cfg.Stripe.BaseURL, cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret,
		cfg.Stripe.SuccessURL, cfg.Payment.Currency, cfg.Stripe.Timeout,
	)
	smtpMailer := mailer.New(cfg.SMTP)
	if !smtpMailer.Enabled() {
		log.Printf("[Router] SMTP not configured: payment link emails disabled")
	}

	// Core state
	linkRegistry := registry.New()
	trail := audit.NewTrail(256)

	// Services
	linkSvc := service.NewLinkService(
		shopifyClient, stripeClient, shopifyClient, smtpMailer,
		linkRegistry, trail, cfg.Payment.GatewayName, cfg.Payment.Currency,
	)

	// Handlers
	orderWebhookHandler := handler.NewOrderWebhookHandler(linkSvc, &cfg.Shopify)
	stripeWebhookHandler := handler.NewStripeWebhookHandler(linkSvc, stripeClient)
	payHandler := handler.NewPayHandler(linkSvc)
	adminHandler := handler.NewAdminHandler(linkSvc, trail, &cfg.Admin)

	r.GET("/health", handler.Health)
	r.GET("/pay", payHandler.Redirect)
	r.POST("/order-events", orderWebhookHandler.Handle)
	r.POST("/payment-events", stripeWebhookHandler.Handle)

	admin := r.Group("/admin")
	{
		admin.POST("/login", adminHandler.Login)
		authMw := middleware.AuthRequired(&cfg.Admin)
		admin.GET("/links", authMw, adminHandler.ListLinks)
		admin.GET("/links/:order_id", authMw, adminHandler.GetLink)
		admin.POST("/links/:order_id/resend", authMw, adminHandler.ResendLink)
		admin.GET("/events", authMw, adminHandler.ListEvents)
	}

	return r
}
