package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/promoloop/campaigns-backend/internal/services"
)

// respondError maps service errors to deterministic HTTP responses so the
// channel side can branch on them
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrDefinitionNotFound),
		errors.Is(err, services.ErrCampaignNotFound),
		errors.Is(err, services.ErrSubscriberNotFound),
		errors.Is(err, services.ErrParticipantNotFound),
		errors.Is(err, services.ErrNoTicket):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrCampaignInactive),
		errors.Is(err, services.ErrNotInvited),
		errors.Is(err, services.ErrWindowClosed),
		errors.Is(err, services.ErrAlreadyEngaged),
		errors.Is(err, services.ErrNotEngaged),
		errors.Is(err, services.ErrAnswerDeadline),
		errors.Is(err, services.ErrAlreadyAnswered),
		errors.Is(err, services.ErrNotAnswered),
		errors.Is(err, services.ErrAlreadyResolved),
		errors.Is(err, services.ErrRollInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidGuess):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
