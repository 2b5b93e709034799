package models

import "time"

// PaymentLink is the artifact the processor hosts for a single order. Core
// fields are immutable once created; only PaidAt is set later, exactly once.
type PaymentLink struct {
	OrderID       int64      `json:"order_id"`
	ProviderID    string     `json:"provider_id"`
	URL           string     `json:"url"`
	AmountCents   int64      `json:"amount_cents"`
	Currency      string     `json:"currency"`
	CustomerEmail string     `json:"customer_email,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
}
