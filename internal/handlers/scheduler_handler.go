package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/promoloop/campaigns-backend/internal/services"
)

// SchedulerHandler exposes scheduler and ticket-ledger diagnostics
type SchedulerHandler struct {
	schedulerService *services.SchedulerService
	ticketService    *services.TicketService
}

// NewSchedulerHandler creates a new SchedulerHandler
func NewSchedulerHandler(schedulerService *services.SchedulerService, ticketService *services.TicketService) *SchedulerHandler {
	return &SchedulerHandler{
		schedulerService: schedulerService,
		ticketService:    ticketService,
	}
}

// Jobs handles GET /scheduler/jobs
func (h *SchedulerHandler) Jobs(c *gin.Context) {
	c.JSON(http.StatusOK, h.schedulerService.Jobs())
}

// AuditTickets handles POST /tickets/audit
func (h *SchedulerHandler) AuditTickets(c *gin.Context) {
	duplicates, err := h.ticketService.AuditDuplicates(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"duplicates": duplicates})
}
