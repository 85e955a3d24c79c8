package handlers

import (
	"net/http"

	apierrors "github.com/dwelora/api/internal/errors"
	"github.com/dwelora/api/internal/middleware"
	"github.com/dwelora/api/internal/models"
	"github.com/dwelora/api/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// PropertyHandler handles property-related HTTP requests.
type PropertyHandler struct {
	service services.PropertyService
}

// NewPropertyHandler creates a new PropertyHandler instance.
func NewPropertyHandler(service services.PropertyService) *PropertyHandler {
	return &PropertyHandler{
		service: service,
	}
}

// CreatePropertyRequest represents the request body for creating a property.
// Either a structured address or a raw free-text input must be present; the
// service fills missing fields from the raw input when it can.
type CreatePropertyRequest struct {
	Street   string `json:"street"`
	City     string `json:"city"`
	State    string `json:"state"`
	Zip      string `json:"zip"`
	RawInput string `json:"rawInput"`
	SellerID string `json:"sellerId" binding:"omitempty,uuid"`
}

// UpdatePropertyStatusRequest represents the request body for a status change.
type UpdatePropertyStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=active pending sold withdrawn"`
}

// ReassignAgentRequest represents the request body for replacing the agent.
type ReassignAgentRequest struct {
	AgentID string `json:"agentId" binding:"required,uuid"`
}

// PropertyListResponse represents the response for the list endpoint.
type PropertyListResponse struct {
	Properties []models.Property `json:"properties"`
	Count      int               `json:"count"`
}

// Create handles POST /api/v1/properties.
func (h *PropertyHandler) Create(c *gin.Context) {
	log := middleware.GetLogger(c)
	actor := middleware.GetActor(c)

	var req CreatePropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			apierrors.ValidationError(c, validationErrors)
			return
		}
		apierrors.BadRequest(c, "Invalid request body", nil)
		return
	}

	input := services.CreatePropertyInput{
		Street:   req.Street,
		City:     req.City,
		State:    req.State,
		Zip:      req.Zip,
		RawInput: req.RawInput,
	}
	if req.SellerID != "" {
		sellerID, err := uuid.Parse(req.SellerID)
		if err != nil {
			apierrors.BadRequest(c, "Invalid seller id", nil)
			return
		}
		input.SellerID = &sellerID
	}

	if log != nil {
		log.Info("Processing property creation", map[string]interface{}{
			"actor_id":  actor.ID.String(),
			"has_raw":   req.RawInput != "",
			"has_street": req.Street != "",
		})
	}

	property, err := h.service.Create(c.Request.Context(), actor, input)
	if err != nil {
		respondServiceError(c, err, "Property not found")
		return
	}

	c.JSON(http.StatusCreated, property)
}

// Get handles GET /api/v1/properties/:id.
func (h *PropertyHandler) Get(c *gin.Context) {
	actor := middleware.GetActor(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apierrors.BadRequest(c, "Invalid property id", nil)
		return
	}

	property, err := h.service.Get(c.Request.Context(), actor, id)
	if err != nil {
		respondServiceError(c, err, "Property not found")
		return
	}

	c.JSON(http.StatusOK, property)
}

// List handles GET /api/v1/properties.
func (h *PropertyHandler) List(c *gin.Context) {
	actor := middleware.GetActor(c)

	properties, err := h.service.ListForActor(c.Request.Context(), actor)
	if err != nil {
		respondServiceError(c, err, "Property not found")
		return
	}

	c.JSON(http.StatusOK, PropertyListResponse{
		Properties: properties,
		Count:      len(properties),
	})
}

// UpdateStatus handles PATCH /api/v1/properties/:id/status.
func (h *PropertyHandler) UpdateStatus(c *gin.Context) {
	actor := middleware.GetActor(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apierrors.BadRequest(c, "Invalid property id", nil)
		return
	}

	var req UpdatePropertyStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			apierrors.ValidationError(c, validationErrors)
			return
		}
		apierrors.BadRequest(c, "Invalid request body", nil)
		return
	}

	property, err := h.service.UpdateStatus(c.Request.Context(), actor, id, models.PropertyStatus(req.Status))
	if err != nil {
		respondServiceError(c, err, "Property not found")
		return
	}

	c.JSON(http.StatusOK, property)
}

// ReassignAgent handles PUT /api/v1/properties/:id/agent.
func (h *PropertyHandler) ReassignAgent(c *gin.Context) {
	actor := middleware.GetActor(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apierrors.BadRequest(c, "Invalid property id", nil)
		return
	}

	var req ReassignAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			apierrors.ValidationError(c, validationErrors)
			return
		}
		apierrors.BadRequest(c, "Invalid request body", nil)
		return
	}

	agentID, err := uuid.Parse(req.AgentID)
	if err != nil {
		apierrors.BadRequest(c, "Invalid agent id", nil)
		return
	}

	property, err := h.service.ReassignAgent(c.Request.Context(), actor, id, agentID)
	if err != nil {
		respondServiceError(c, err, "Property not found")
		return
	}

	c.JSON(http.StatusOK, property)
}

// Delete handles DELETE /api/v1/properties/:id.
func (h *PropertyHandler) Delete(c *gin.Context) {
	actor := middleware.GetActor(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apierrors.BadRequest(c, "Invalid property id", nil)
		return
	}

	if err := h.service.Delete(c.Request.Context(), actor, id); err != nil {
		respondServiceError(c, err, "Property not found")
		return
	}

	c.Status(http.StatusNoContent)
}
