package handler

import (
	"io"
	"log"
	"net/http"

	"paybridge/internal/service"
	"paybridge/pkg/stripepay"

	"github.com/gin-gonic/gin"
	stripe "github.com/stripe/stripe-go/v82"
)

type StripeWebhookHandler struct {
	svc    *service.LinkService
	stripe *stripepay.Client
}

func NewStripeWebhookHandler(svc *service.LinkService, stripeClient *stripepay.Client) *StripeWebhookHandler {
	return &StripeWebhookHandler{svc: svc, stripe: stripeClient}
}

// Handle processes processor completion webhooks. A missing server-side
// signing secret is an operator misconfiguration (500); a bad signature is
// the sender's problem (400); everything else acknowledges receipt so the
// processor does not redeliver events we have already absorbed.
func (h *StripeWebhookHandler) Handle(c *gin.Context) {
	if !h.stripe.WebhookConfigured() {
		log.Printf("[StripeWebhook] STRIPE_WEBHOOK_SECRET is not configured, rejecting event")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "webhook secret not configured"})
		return
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	event, err := h.stripe.VerifyEvent(body, c.GetHeader("Stripe-Signature"))
	if err != nil {
		log.Printf("[StripeWebhook] signature verification failed: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	}

	if event.Type != stripe.EventTypeCheckoutSessionCompleted {
		c.JSON(http.StatusOK, gin.H{"received": true, "status": "ignored_event"})
		return
	}

	session, err := stripepay.ParseCompletedSession(event)
	if err != nil {
		// Missing correlation metadata is unrecoverable for this event;
		// redelivery carries the same payload, so acknowledge and log.
		log.Printf("[StripeWebhook] event %s: %v", event.ID, err)
		c.JSON(http.StatusOK, gin.H{"received": true, "status": "missing_correlation"})
		return
	}
	if session == nil {
		// Session completed but not yet paid; ACH settles asynchronously.
		c.JSON(http.StatusOK, gin.H{"received": true, "status": "awaiting_settlement"})
		return
	}

	log.Printf("[StripeWebhook] order %d settled for %d cents", session.OrderID, session.AmountCents)
	h.svc.ProcessCompletion(c.Request.Context(), session.OrderID, session.AmountCents)
	c.JSON(http.StatusOK, gin.H{"received": true, "status": "reconciled"})
}
