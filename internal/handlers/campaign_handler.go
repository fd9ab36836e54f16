package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/promoloop/campaigns-backend/internal/models"
	"github.com/promoloop/campaigns-backend/internal/services"
)

// CampaignHandler handles operator actions on campaign instances
type CampaignHandler struct {
	participationService *services.ParticipationService
	schedulerService     *services.SchedulerService
}

// NewCampaignHandler creates a new CampaignHandler
func NewCampaignHandler(participationService *services.ParticipationService, schedulerService *services.SchedulerService) *CampaignHandler {
	return &CampaignHandler{
		participationService: participationService,
		schedulerService:     schedulerService,
	}
}

func campaignKindParam(c *gin.Context) (models.CampaignKind, bool) {
	kind, err := models.ParseCampaignKind(c.Param("kind"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	}
	return kind, true
}

// List handles GET /campaigns
func (h *CampaignHandler) List(c *gin.Context) {
	instances, err := h.participationService.Instances(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, instances)
}

// Stop handles POST /campaigns/:kind/:instanceKey/stop
func (h *CampaignHandler) Stop(c *gin.Context) {
	kind, ok := campaignKindParam(c)
	if !ok {
		return
	}
	if err := h.participationService.Close(c.Request.Context(), kind, c.Param("instanceKey")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "stopped"})
}

// Reopen handles POST /campaigns/:kind/:instanceKey/reopen
func (h *CampaignHandler) Reopen(c *gin.Context) {
	kind, ok := campaignKindParam(c)
	if !ok {
		return
	}
	if err := h.participationService.StopAndReopen(c.Request.Context(), kind, c.Param("instanceKey")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reopened"})
}

// RunJob handles POST /campaigns/:kind/:instanceKey/run/:jobKind
func (h *CampaignHandler) RunJob(c *gin.Context) {
	kind, ok := campaignKindParam(c)
	if !ok {
		return
	}
	job, err := models.ParseJobKind(c.Param("jobKind"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.schedulerService.RunNow(c.Request.Context(), kind, c.Param("instanceKey"), job); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ran", "job": job})
}

// Outstanding handles GET /campaigns/:kind/:instanceKey/outstanding
func (h *CampaignHandler) Outstanding(c *gin.Context) {
	kind, ok := campaignKindParam(c)
	if !ok {
		return
	}
	records, err := h.participationService.Outstanding(c.Request.Context(), kind, c.Param("instanceKey"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// Stats handles GET /campaigns/:kind/:instanceKey/stats
func (h *CampaignHandler) Stats(c *gin.Context) {
	kind, ok := campaignKindParam(c)
	if !ok {
		return
	}
	stats, err := h.participationService.Stats(c.Request.Context(), kind, c.Param("instanceKey"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
