package handlers

import (
	"net/http"

	apierrors "github.com/dwelora/api/internal/errors"
	"github.com/dwelora/api/internal/middleware"
	"github.com/dwelora/api/internal/models"
	"github.com/dwelora/api/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// LeadHandler handles agent-lead HTTP requests.
type LeadHandler struct {
	service services.LeadService
}

// NewLeadHandler creates a new LeadHandler instance.
func NewLeadHandler(service services.LeadService) *LeadHandler {
	return &LeadHandler{
		service: service,
	}
}

// LeadListResponse represents the response for the lead list endpoint.
type LeadListResponse struct {
	Leads []models.AgentLead `json:"leads"`
	Count int                `json:"count"`
}

// List handles GET /api/v1/leads.
// Agents see the leads offered to them; an admin may pass ?agent_id= to
// inspect another agent's queue.
func (h *LeadHandler) List(c *gin.Context) {
	actor := middleware.GetActor(c)

	agentID := actor.ID
	if raw := c.Query("agent_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			apierrors.BadRequest(c, "Invalid agent id", nil)
			return
		}
		agentID = parsed
	}

	leads, err := h.service.ListLeadsForAgent(c.Request.Context(), actor, agentID)
	if err != nil {
		respondServiceError(c, err, "Lead not found")
		return
	}

	c.JSON(http.StatusOK, LeadListResponse{
		Leads: leads,
		Count: len(leads),
	})
}

// Claim handles POST /api/v1/leads/:id/claim.
// Exactly one of any set of concurrent claims succeeds; the losers get a
// 409 and should refresh their lead list.
func (h *LeadHandler) Claim(c *gin.Context) {
	log := middleware.GetLogger(c)
	actor := middleware.GetActor(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apierrors.BadRequest(c, "Invalid lead id", nil)
		return
	}

	if log != nil {
		log.Info("Processing lead claim", map[string]interface{}{
			"lead_id":  id.String(),
			"agent_id": actor.ID.String(),
		})
	}

	lead, err := h.service.ClaimLead(c.Request.Context(), actor, id)
	if err != nil {
		respondServiceError(c, err, "Lead not found")
		return
	}

	c.JSON(http.StatusOK, lead)
}
