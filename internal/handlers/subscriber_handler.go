package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/promoloop/campaigns-backend/internal/services"
)

// SubscriberHandler handles roster requests from the channel side
type SubscriberHandler struct {
	subscriberService *services.SubscriberService
}

// NewSubscriberHandler creates a new SubscriberHandler
func NewSubscriberHandler(subscriberService *services.SubscriberService) *SubscriberHandler {
	return &SubscriberHandler{subscriberService: subscriberService}
}

type registerRequest struct {
	ChatRef     string `json:"chatRef" binding:"required"`
	DisplayName string `json:"displayName"`
}

// Register handles POST /subscribers
func (h *SubscriberHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sub, err := h.subscriberService.Register(c.Request.Context(), req.ChatRef, req.DisplayName)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

// Unsubscribe handles POST /subscribers/:chatRef/unsubscribe
func (h *SubscriberHandler) Unsubscribe(c *gin.Context) {
	if err := h.subscriberService.Unsubscribe(c.Request.Context(), c.Param("chatRef")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "unsubscribed"})
}

// Count handles GET /subscribers/count
func (h *SubscriberHandler) Count(c *gin.Context) {
	count, err := h.subscriberService.Count(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}
