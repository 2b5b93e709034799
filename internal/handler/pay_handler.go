package handler

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"paybridge/internal/service"
	"paybridge/pkg/shopify"
	"paybridge/pkg/stripepay"

	"github.com/gin-gonic/gin"
)

type PayHandler struct {
	svc *service.LinkService
}

func NewPayHandler(svc *service.LinkService) *PayHandler {
	return &PayHandler{svc: svc}
}

// Redirect resolves the order's payment link (reusing an existing one) and
// sends the customer straight to it. This is the manual fallback path when
// the webhook-driven email never reached them.
func (h *PayHandler) Redirect(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Query("order_id"), 10, 64)
	if err != nil || orderID <= 0 {
		c.String(http.StatusBadRequest, "order_id must be a positive integer")
		return
	}

	link, _, err := h.svc.EnsureLink(c.Request.Context(), orderID, "")
	if err != nil {
		var procErr *stripepay.ProcessorError
		switch {
		case errors.As(err, &procErr):
			log.Printf("[Pay] order %d: %v", orderID, err)
			c.String(http.StatusInternalServerError, "Payment processing failed: %s", procErr.UserMessage)
		case errors.Is(err, service.ErrNoAmount), errors.Is(err, shopify.ErrOrderNotFound):
			c.String(http.StatusNotFound, fmt.Sprintf("Order %d not found or has no payable amount.", orderID))
		default:
			log.Printf("[Pay] order %d: %v", orderID, err)
			c.String(http.StatusInternalServerError, "An unexpected server error occurred.")
		}
		return
	}
	c.Redirect(http.StatusSeeOther, link.URL)
}
