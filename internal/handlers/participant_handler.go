package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/promoloop/campaigns-backend/internal/models"
	"github.com/promoloop/campaigns-backend/internal/services"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ParticipantHandler handles channel-side participation requests and
// operator decisions on answered attempts
type ParticipantHandler struct {
	participationService *services.ParticipationService
	drawGameService      *services.DrawGameService
}

// NewParticipantHandler creates a new ParticipantHandler
func NewParticipantHandler(participationService *services.ParticipationService, drawGameService *services.DrawGameService) *ParticipantHandler {
	return &ParticipantHandler{
		participationService: participationService,
		drawGameService:      drawGameService,
	}
}

type engageRequest struct {
	ChatRef string `json:"chatRef" binding:"required"`
}

type answerRequest struct {
	ChatRef string `json:"chatRef" binding:"required"`
	Answer  string `json:"answer" binding:"required"`
}

type guessRequest struct {
	ChatRef string `json:"chatRef" binding:"required"`
	Guess   int    `json:"guess" binding:"required"`
}

// Engage handles POST /campaigns/:kind/:instanceKey/engage
func (h *ParticipantHandler) Engage(c *gin.Context) {
	kind, ok := campaignKindParam(c)
	if !ok {
		return
	}
	var req engageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := h.participationService.Engage(c.Request.Context(), kind, c.Param("instanceKey"), req.ChatRef)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// Answer handles POST /campaigns/:kind/:instanceKey/answer
func (h *ParticipantHandler) Answer(c *gin.Context) {
	kind, ok := campaignKindParam(c)
	if !ok {
		return
	}
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec, err := h.participationService.SubmitAnswer(c.Request.Context(), kind, c.Param("instanceKey"), req.ChatRef, req.Answer)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Guess handles POST /campaigns/:kind/:instanceKey/guess
func (h *ParticipantHandler) Guess(c *gin.Context) {
	kind, ok := campaignKindParam(c)
	if !ok {
		return
	}
	if kind != models.KindDrawGame {
		c.JSON(http.StatusBadRequest, gin.H{"error": "guessing is only available for draw games"})
		return
	}
	var req guessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.drawGameService.Guess(c.Request.Context(), c.Param("instanceKey"), req.ChatRef, req.Guess)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func participantIDParam(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid participant ID format"})
		return primitive.NilObjectID, false
	}
	return id, true
}

// Approve handles POST /participants/:id/approve
func (h *ParticipantHandler) Approve(c *gin.Context) {
	id, ok := participantIDParam(c)
	if !ok {
		return
	}
	ticket, err := h.participationService.Approve(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "approved", "ticket": ticket})
}

// Deny handles POST /participants/:id/deny
func (h *ParticipantHandler) Deny(c *gin.Context) {
	id, ok := participantIDParam(c)
	if !ok {
		return
	}
	if err := h.participationService.Deny(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "denied"})
}

// RemoveTicket handles DELETE /participants/:id/ticket
func (h *ParticipantHandler) RemoveTicket(c *gin.Context) {
	id, ok := participantIDParam(c)
	if !ok {
		return
	}
	if err := h.participationService.RemoveTicket(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ticket removed"})
}
