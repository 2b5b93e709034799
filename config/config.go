package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server  ServerConfig
	Shopify ShopifyConfig
	Stripe  StripeConfig
	Payment PaymentConfig
	SMTP    SMTPConfig
	Admin   AdminConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type ShopifyConfig struct {
	// BaseURL is the full admin URL, e.g. https://your-store.myshopify.com.
	BaseURL     string
	AccessToken string
	APIVersion  string
	// WebhookSecret signs order webhooks (X-Shopify-Hmac-Sha256, base64).
	WebhookSecret string
	// AllowUnsigned skips webhook verification when no secret is configured.
	// Off by default: an empty secret rejects every order webhook.
	AllowUnsigned bool
	Timeout       time.Duration
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	BaseURL       string
	SuccessURL    string
	Timeout       time.Duration
}

type PaymentConfig struct {
	// GatewayName is the payment_gateway_names entry that selects orders for
	// link creation, as configured for the store's manual payment method.
	GatewayName string
	// GatewayLabel is recorded on the order transaction when marking paid.
	GatewayLabel string
	Currency     string
}

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

type AdminConfig struct {
	Username string
	// PasswordHash is a bcrypt hash of the operator password. Empty disables login.
	PasswordHash string
	JWTSecret    string
	TokenExpiry  time.Duration
	Issuer       string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         envOr("PORT", "8099"),
			Env:          envOr("APP_ENV", "development"),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Shopify: ShopifyConfig{
			BaseURL:       envOr("SHOPIFY_STORE_URL", ""),
			AccessToken:   envOr("SHOPIFY_API_TOKEN", ""),
			APIVersion:    envOr("SHOPIFY_API_VERSION", "2024-07"),
			WebhookSecret: envOr("SHOPIFY_WEBHOOK_SECRET", ""),
			AllowUnsigned: envBool("WEBHOOK_ALLOW_UNSIGNED", false),
			Timeout:       15 * time.Second,
		},
		Stripe: StripeConfig{
			SecretKey:     envOr("STRIPE_SECRET_KEY", ""),
			WebhookSecret: envOr("STRIPE_WEBHOOK_SECRET", ""),
			BaseURL:       envOr("STRIPE_API_BASE_URL", "https://api.stripe.com"),
			SuccessURL:    envOr("PAYMENT_SUCCESS_URL", ""),
			Timeout:       20 * time.Second,
		},
		Payment: PaymentConfig{
			GatewayName:  envOr("MANUAL_GATEWAY_NAME", "Bank Deposit"),
			GatewayLabel: envOr("PAID_GATEWAY_LABEL", "paybridge-ach"),
			Currency:     "USD",
		},
		SMTP: SMTPConfig{
			Host:     envOr("SMTP_HOST", ""),
			Port:     envOr("SMTP_PORT", "587"),
			Username: envOr("SMTP_USERNAME", ""),
			Password: envOr("SMTP_PASSWORD", ""),
			From:     envOr("SMTP_FROM", "payments@example.com"),
		},
		Admin: AdminConfig{
			Username:     envOr("ADMIN_USERNAME", "admin"),
			PasswordHash: envOr("ADMIN_PASSWORD_HASH", ""),
			JWTSecret:    envOr("ADMIN_JWT_SECRET", "change-me-in-production"),
			TokenExpiry:  12 * time.Hour,
			Issuer:       "paybridge",
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
