package handler

import (
	"net/http"
	"strconv"

	"paybridge/config"
	"paybridge/internal/audit"
	"paybridge/internal/auth"
	"paybridge/internal/service"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

type AdminHandler struct {
	svc   *service.LinkService
	trail *audit.Trail
	cfg   *config.AdminConfig
}

func NewAdminHandler(svc *service.LinkService, trail *audit.Trail, cfg *config.AdminConfig) *AdminHandler {
	return &AdminHandler{svc: svc, trail: trail, cfg: cfg}
}

// Login exchanges the operator credentials for a bearer token.
func (h *AdminHandler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password required"})
		return
	}
	if h.cfg.PasswordHash == "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin login disabled"})
		return
	}
	if req.Username != h.cfg.Username ||
		bcrypt.CompareHashAndPassword([]byte(h.cfg.PasswordHash), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	token, err := auth.GenerateToken(h.cfg, req.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// ListLinks returns the registry snapshot, newest first.
func (h *AdminHandler) ListLinks(c *gin.Context) {
	links := h.svc.Registry().Snapshot()
	c.JSON(http.StatusOK, gin.H{"count": len(links), "links": links})
}

// GetLink returns one registry entry.
func (h *AdminHandler) GetLink(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("order_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}
	link, ok := h.svc.Registry().Get(orderID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no payment link for order"})
		return
	}
	c.JSON(http.StatusOK, link)
}

// ResendLink re-sends the payment link email for an order.
func (h *AdminHandler) ResendLink(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("order_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}
	if err := h.svc.ResendLink(orderID); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"resent": true})
}

// ListEvents returns the recent audit trail, newest first.
func (h *AdminHandler) ListEvents(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	events := h.trail.Recent(limit)
	c.JSON(http.StatusOK, gin.H{"count": len(events), "events": events})
}
