package handler

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"paybridge/config"
	"paybridge/internal/service"
	"paybridge/internal/signature"

	"github.com/gin-gonic/gin"
)

const orderCreatedTopic = "orders/create"

// orderEventPayload is the slice of the order webhook body this service needs:
// the order id, the customer contact and the payment method selection.
type orderEventPayload struct {
	ID                  int64    `json:"id"`
	Email               string   `json:"email"`
	PaymentGatewayNames []string `json:"payment_gateway_names"`
}

type OrderWebhookHandler struct {
	svc *service.LinkService
	cfg *config.ShopifyConfig
}

func NewOrderWebhookHandler(svc *service.LinkService, cfg *config.ShopifyConfig) *OrderWebhookHandler {
	return &OrderWebhookHandler{svc: svc, cfg: cfg}
}

// Handle processes order-created webhooks. Signature verification runs over
// the exact raw body before anything else; everything after authentication
// resolves to a 200 so the order system never retries conditions that cannot
// improve on redelivery.
func (h *OrderWebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	sig := c.GetHeader("X-Shopify-Hmac-Sha256")
	switch {
	case h.cfg.WebhookSecret != "":
		if !signature.Verify(body, sig, h.cfg.WebhookSecret) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}
	case h.cfg.AllowUnsigned:
		log.Printf("[OrderWebhook] WARNING: accepting unsigned webhook (WEBHOOK_ALLOW_UNSIGNED is set)")
	default:
		c.JSON(http.StatusUnauthorized, gin.H{"error": "webhook secret not configured"})
		return
	}

	topic := c.GetHeader("X-Shopify-Topic")
	if topic != orderCreatedTopic {
		c.JSON(http.StatusOK, gin.H{"received": true, "status": "ignored_topic"})
		return
	}

	var payload orderEventPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if payload.ID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "order id required"})
		return
	}
	gateway := ""
	if len(payload.PaymentGatewayNames) > 0 {
		gateway = payload.PaymentGatewayNames[0]
	}

	res := h.svc.ProcessOrderCreated(c.Request.Context(), service.OrderCreatedEvent{
		OrderID: payload.ID,
		Gateway: gateway,
		Email:   payload.Email,
	})

	resp := gin.H{"received": true, "status": string(res.Status)}
	if res.Link != nil {
		resp["payment_link"] = res.Link.URL
	}
	if res.Message != "" {
		resp["message"] = res.Message
	}
	c.JSON(http.StatusOK, resp)
}
