package stripepay

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"paybridge/internal/models"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// ProcessorError separates what the customer may see from the diagnostic that
// belongs in the logs.
type ProcessorError struct {
	Code        string
	UserMessage string
	Detail      string
}

func (e *ProcessorError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("stripe: %s (%s)", e.Detail, e.Code)
	}
	return "stripe: " + e.UserMessage
}

// Client creates payment links and verifies completion webhooks. API calls go
// over the form-encoded REST surface; stripe-go supplies the pinned API
// version and the webhook signature scheme.
type Client struct {
	baseURL       string
	secretKey     string
	webhookSecret string
	successURL    string
	currency      string
	client        *http.Client
}

func NewClient(baseURL, secretKey, webhookSecret, successURL, currency string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "https://api.stripe.com"
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		baseURL:       strings.TrimSuffix(baseURL, "/"),
		secretKey:     secretKey,
		webhookSecret: webhookSecret,
		successURL:    successURL,
		currency:      strings.ToLower(currency),
		client:        &http.Client{Timeout: timeout},
	}
}

// MetadataOrderKey carries the order reference on the link so the completion
// event can be routed back without re-querying state.
const MetadataOrderKey = "shopify_order_id"

type paymentLinkResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreatePaymentLink creates a hosted payment link for the exact order amount:
// one line item, bank-transfer rail only, order id attached as metadata. The
// Idempotency-Key is derived from the order id so a racing duplicate request
// cannot mint a second link on the processor side either.
func (c *Client) CreatePaymentLink(ctx context.Context, orderID, amountCents int64) (*models.PaymentLink, error) {
	form := url.Values{}
	form.Set("line_items[0][price_data][currency]", c.currency)
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(amountCents, 10))
	form.Set("line_items[0][price_data][product_data][name]", fmt.Sprintf("Order #%d", orderID))
	form.Set("line_items[0][price_data][product_data][description]", "ACH payment for e-commerce purchase")
	form.Set("line_items[0][quantity]", "1")
	form.Add("payment_method_types[]", "us_bank_account")
	form.Set("metadata["+MetadataOrderKey+"]", strconv.FormatInt(orderID, 10))
	if c.successURL != "" {
		form.Set("after_completion[type]", "redirect")
		form.Set("after_completion[redirect][url]", c.successURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/payment_links", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &ProcessorError{UserMessage: "Payment processing is unavailable.", Detail: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Stripe-Version", stripe.APIVersion)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Idempotency-Key", fmt.Sprintf("order-link-%d", orderID))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &ProcessorError{UserMessage: "Payment processing is unavailable.", Detail: err.Error()}
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var stripeErr errorResponse
		_ = json.Unmarshal(body, &stripeErr)
		msg := stripeErr.Error.Message
		if msg == "" {
			msg = "Payment processing failed."
		}
		return nil, &ProcessorError{
			Code:        stripeErr.Error.Code,
			UserMessage: msg,
			Detail:      fmt.Sprintf("create payment link for order %d: status %d", orderID, resp.StatusCode),
		}
	}
	var out paymentLinkResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &ProcessorError{UserMessage: "Payment processing failed.", Detail: "decode payment link response: " + err.Error()}
	}
	if out.URL == "" {
		return nil, &ProcessorError{UserMessage: "Payment processing failed.", Detail: "payment link response missing url"}
	}
	return &models.PaymentLink{
		OrderID:     orderID,
		ProviderID:  out.ID,
		URL:         out.URL,
		AmountCents: amountCents,
		Currency:    strings.ToUpper(c.currency),
		CreatedAt:   time.Now(),
	}, nil
}

// VerifyEvent authenticates an inbound completion webhook against the signing
// secret using the processor's own signature scheme and returns the parsed
// event envelope. The payload must be the exact raw request body.
func (c *Client) VerifyEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	return webhook.ConstructEvent(payload, sigHeader, c.webhookSecret)
}

// WebhookConfigured reports whether completion webhooks can be verified.
func (c *Client) WebhookConfigured() bool {
	return c.webhookSecret != ""
}

// CompletedSession is the slice of the checkout session object the
// reconciliation path needs.
type CompletedSession struct {
	OrderID     int64
	AmountCents int64
	Email       string
}

// ParseCompletedSession extracts the correlation id and settled amount from a
// checkout.session.completed event. Returns (nil, nil) for sessions that are
// not paid yet (async bank debits fire a later completion event).
func ParseCompletedSession(event stripe.Event) (*CompletedSession, error) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}
	if session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		return nil, nil
	}
	raw, ok := session.Metadata[MetadataOrderKey]
	if !ok || raw == "" {
		return nil, fmt.Errorf("session %s has no %s metadata", session.ID, MetadataOrderKey)
	}
	orderID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("session %s metadata %s=%q not an order id", session.ID, MetadataOrderKey, raw)
	}
	out := &CompletedSession{OrderID: orderID, AmountCents: session.AmountTotal}
	if session.CustomerDetails != nil {
		out.Email = session.CustomerDetails.Email
	}
	return out, nil
}
