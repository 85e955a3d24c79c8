package handlers

import (
	"net/http"
	"time"

	apierrors "github.com/dwelora/api/internal/errors"
	"github.com/dwelora/api/internal/middleware"
	"github.com/dwelora/api/internal/models"
	"github.com/dwelora/api/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// ViewingHandler handles viewing-request HTTP requests.
type ViewingHandler struct {
	service services.ViewingService
}

// NewViewingHandler creates a new ViewingHandler instance.
func NewViewingHandler(service services.ViewingService) *ViewingHandler {
	return &ViewingHandler{
		service: service,
	}
}

// CreateViewingRequest represents the request body for requesting a viewing.
type CreateViewingRequest struct {
	PropertyID     string    `json:"propertyId" binding:"required,uuid"`
	RequestedStart time.Time `json:"requestedStart" binding:"required"`
	RequestedEnd   time.Time `json:"requestedEnd" binding:"required"`
	BuyerAgentID   string    `json:"buyerAgentId" binding:"omitempty,uuid"`
	// Override cancels the buyer's earlier open requests for the property
	// before creating this one.
	Override bool `json:"override"`
}

// DecideViewingRequest represents the request body for a top-level decision.
type DecideViewingRequest struct {
	Status         string     `json:"status" binding:"required,oneof=accepted rejected rescheduled completed"`
	ConfirmedStart *time.Time `json:"confirmedStart"`
	ConfirmedEnd   *time.Time `json:"confirmedEnd"`
}

// ApproveViewingRequest represents the request body for an agent slot approval.
type ApproveViewingRequest struct {
	Slot     string `json:"slot" binding:"required,oneof=seller_agent buyer_agent"`
	Decision string `json:"decision" binding:"required,oneof=approved rejected"`
	Source   string `json:"source" binding:"required"`
}

// CancelViewingRequest represents the request body for a cancellation.
type CancelViewingRequest struct {
	Reason string `json:"reason"`
}

// ViewingListResponse represents the response for the per-property list.
type ViewingListResponse struct {
	Viewings []models.ViewingRequest `json:"viewings"`
	Count    int                     `json:"count"`
}

// Create handles POST /api/v1/viewings.
func (h *ViewingHandler) Create(c *gin.Context) {
	log := middleware.GetLogger(c)
	actor := middleware.GetActor(c)

	var req CreateViewingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			apierrors.ValidationError(c, validationErrors)
			return
		}
		apierrors.BadRequest(c, "Invalid request body", nil)
		return
	}

	propertyID, err := uuid.Parse(req.PropertyID)
	if err != nil {
		apierrors.BadRequest(c, "Invalid property id", nil)
		return
	}

	input := services.CreateViewingInput{
		PropertyID:     propertyID,
		RequestedStart: req.RequestedStart,
		RequestedEnd:   req.RequestedEnd,
		Override:       req.Override,
	}
	if req.BuyerAgentID != "" {
		agentID, err := uuid.Parse(req.BuyerAgentID)
		if err != nil {
			apierrors.BadRequest(c, "Invalid buyer agent id", nil)
			return
		}
		input.BuyerAgentID = &agentID
	}

	if log != nil {
		log.Info("Processing viewing request", map[string]interface{}{
			"property_id": propertyID.String(),
			"buyer_id":    actor.ID.String(),
			"override":    req.Override,
		})
	}

	viewing, err := h.service.Create(c.Request.Context(), actor, input)
	if err != nil {
		respondServiceError(c, err, "Property not found")
		return
	}

	c.JSON(http.StatusCreated, viewing)
}

// Decide handles POST /api/v1/viewings/:id/decision.
func (h *ViewingHandler) Decide(c *gin.Context) {
	actor := middleware.GetActor(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apierrors.BadRequest(c, "Invalid viewing id", nil)
		return
	}

	var req DecideViewingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			apierrors.ValidationError(c, validationErrors)
			return
		}
		apierrors.BadRequest(c, "Invalid request body", nil)
		return
	}

	viewing, err := h.service.Decide(c.Request.Context(), actor, id,
		models.ViewingStatus(req.Status), req.ConfirmedStart, req.ConfirmedEnd)
	if err != nil {
		respondServiceError(c, err, "Viewing request not found")
		return
	}

	c.JSON(http.StatusOK, viewing)
}

// Approve handles POST /api/v1/viewings/:id/approval.
func (h *ViewingHandler) Approve(c *gin.Context) {
	actor := middleware.GetActor(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apierrors.BadRequest(c, "Invalid viewing id", nil)
		return
	}

	var req ApproveViewingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			apierrors.ValidationError(c, validationErrors)
			return
		}
		apierrors.BadRequest(c, "Invalid request body", nil)
		return
	}

	viewing, err := h.service.Approve(c.Request.Context(), actor, id,
		services.ApprovalSlot(req.Slot), models.ApprovalStatus(req.Decision), req.Source)
	if err != nil {
		respondServiceError(c, err, "Viewing request not found")
		return
	}

	c.JSON(http.StatusOK, viewing)
}

// Cancel handles POST /api/v1/viewings/:id/cancel.
func (h *ViewingHandler) Cancel(c *gin.Context) {
	actor := middleware.GetActor(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apierrors.BadRequest(c, "Invalid viewing id", nil)
		return
	}

	var req CancelViewingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body", nil)
		return
	}

	viewing, err := h.service.Cancel(c.Request.Context(), actor, id, req.Reason)
	if err != nil {
		respondServiceError(c, err, "Viewing request not found")
		return
	}

	c.JSON(http.StatusOK, viewing)
}

// ListForProperty handles GET /api/v1/properties/:id/viewings.
func (h *ViewingHandler) ListForProperty(c *gin.Context) {
	actor := middleware.GetActor(c)

	propertyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apierrors.BadRequest(c, "Invalid property id", nil)
		return
	}

	viewings, err := h.service.ListForProperty(c.Request.Context(), actor, propertyID)
	if err != nil {
		respondServiceError(c, err, "Property not found")
		return
	}

	c.JSON(http.StatusOK, ViewingListResponse{
		Viewings: viewings,
		Count:    len(viewings),
	})
}
