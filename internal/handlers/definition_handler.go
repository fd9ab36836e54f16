package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/promoloop/campaigns-backend/internal/clock"
	"github.com/promoloop/campaigns-backend/internal/models"
	"github.com/promoloop/campaigns-backend/internal/repositories"
	"github.com/promoloop/campaigns-backend/internal/services"
)

// DefinitionHandler handles campaign definition management. Every create or
// edit re-materializes the instance's scheduled jobs.
type DefinitionHandler struct {
	definitions repositories.DefinitionRepository
	scheduler   *services.SchedulerService
	clk         *clock.Resolver
}

// NewDefinitionHandler creates a new DefinitionHandler
func NewDefinitionHandler(definitions repositories.DefinitionRepository, scheduler *services.SchedulerService, clk *clock.Resolver) *DefinitionHandler {
	return &DefinitionHandler{definitions: definitions, scheduler: scheduler, clk: clk}
}

type upsertDefinitionRequest struct {
	Kind        string               `json:"kind" binding:"required"`
	InstanceKey string               `json:"instanceKey" binding:"required"`
	StartLocal  string               `json:"startLocal" binding:"required"`
	Title       string               `json:"title" binding:"required"`
	Content     []models.ContentItem `json:"content"`
}

func (h *DefinitionHandler) validate(req *upsertDefinitionRequest) (models.CampaignKind, error) {
	kind, err := models.ParseCampaignKind(req.Kind)
	if err != nil {
		return "", err
	}
	if _, err := h.clk.ResolveLocal(req.StartLocal); err != nil {
		return "", fmt.Errorf("invalid startLocal %q: expected %s", req.StartLocal, clock.LocalTimeLayout)
	}
	if len(req.Content) == 0 {
		return "", fmt.Errorf("definition needs at least one content item")
	}
	for i, item := range req.Content {
		if item.ContentID == "" || item.Prompt == "" {
			return "", fmt.Errorf("content item %d needs contentId and prompt", i)
		}
		if len(item.Options) > 0 && (item.CorrectOption < 0 || item.CorrectOption >= len(item.Options)) {
			return "", fmt.Errorf("content item %d has correctOption out of range", i)
		}
	}
	return kind, nil
}

// Upsert handles POST /definitions
func (h *DefinitionHandler) Upsert(c *gin.Context) {
	var req upsertDefinitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	kind, err := h.validate(&req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	def := &models.CampaignDefinition{
		Kind:        kind,
		InstanceKey: req.InstanceKey,
		StartLocal:  req.StartLocal,
		Title:       req.Title,
		Content:     req.Content,
	}
	if err := h.definitions.Upsert(c.Request.Context(), def); err != nil {
		respondError(c, err)
		return
	}
	if err := h.scheduler.Rematerialize(c.Request.Context(), kind, req.InstanceKey); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, def)
}

// Get handles GET /definitions/:kind/:instanceKey
func (h *DefinitionHandler) Get(c *gin.Context) {
	kind, err := models.ParseCampaignKind(c.Param("kind"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	def, err := h.definitions.FindByKindAndKey(c.Request.Context(), kind, c.Param("instanceKey"))
	if err != nil {
		respondError(c, err)
		return
	}
	if def == nil {
		respondError(c, services.ErrDefinitionNotFound)
		return
	}
	c.JSON(http.StatusOK, def)
}

// List handles GET /definitions
func (h *DefinitionHandler) List(c *gin.Context) {
	defs, err := h.definitions.FindAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, defs)
}
