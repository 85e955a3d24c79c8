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

// AgreementHandler handles agreement HTTP requests.
type AgreementHandler struct {
	service services.AgreementService
}

// NewAgreementHandler creates a new AgreementHandler instance.
func NewAgreementHandler(service services.AgreementService) *AgreementHandler {
	return &AgreementHandler{
		service: service,
	}
}

// SignDisclosureRequest represents the request body for signing the agency
// disclosure of a property.
type SignDisclosureRequest struct {
	PropertyID     string `json:"propertyId" binding:"required,uuid"`
	Signature      string `json:"signature" binding:"required"`
	EditedDocument []byte `json:"editedDocument"`
}

// CreateStandardRequest represents the request body for originating a
// standard buyer-representation agreement on a property.
type CreateStandardRequest struct {
	PropertyID string `json:"propertyId" binding:"required,uuid"`
}

// SignRequest represents the request body for signing an existing agreement.
type SignRequest struct {
	Signature string `json:"signature" binding:"required"`
}

// SignBRBCRequest represents the request body for the global
// buyer-representation agreement between a buyer and an agent.
type SignBRBCRequest struct {
	CounterpartyID string `json:"counterpartyId" binding:"required,uuid"`
	Signature      string `json:"signature" binding:"required"`
}

// OverrideStatusRequest represents the admin-only status override body.
type OverrideStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// AgreementResponse wraps an agreement plus a non-fatal render failure. The
// signature is committed even when document materialization failed.
type AgreementResponse struct {
	Agreement   *models.Agreement `json:"agreement"`
	RenderError string            `json:"renderError,omitempty"`
}

// AgreementListResponse represents the response for the list endpoint.
type AgreementListResponse struct {
	Agreements []models.Agreement `json:"agreements"`
	Count      int                `json:"count"`
}

func signResultResponse(result *services.SignResult) AgreementResponse {
	resp := AgreementResponse{Agreement: result.Agreement}
	if result.RenderErr != nil {
		resp.RenderError = result.RenderErr.Error()
	}
	return resp
}

// SignDisclosure handles POST /api/v1/agreements/disclosure/sign.
func (h *AgreementHandler) SignDisclosure(c *gin.Context) {
	log := middleware.GetLogger(c)
	actor := middleware.GetActor(c)

	var req SignDisclosureRequest
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

	if log != nil {
		log.Info("Processing disclosure signature", map[string]interface{}{
			"property_id": propertyID.String(),
			"actor_id":    actor.ID.String(),
			"actor_role":  string(actor.Role),
		})
	}

	result, err := h.service.SignDisclosure(c.Request.Context(), actor, propertyID, req.Signature, req.EditedDocument)
	if err != nil {
		respondServiceError(c, err, "Property not found")
		return
	}

	c.JSON(http.StatusOK, signResultResponse(result))
}

// CreateStandard handles POST /api/v1/agreements/standard.
func (h *AgreementHandler) CreateStandard(c *gin.Context) {
	actor := middleware.GetActor(c)

	var req CreateStandardRequest
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

	agreement, err := h.service.CreateStandard(c.Request.Context(), actor, propertyID)
	if err != nil {
		respondServiceError(c, err, "Property not found")
		return
	}

	c.JSON(http.StatusCreated, agreement)
}

// SignStandard handles POST /api/v1/agreements/:id/sign.
func (h *AgreementHandler) SignStandard(c *gin.Context) {
	actor := middleware.GetActor(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apierrors.BadRequest(c, "Invalid agreement id", nil)
		return
	}

	var req SignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			apierrors.ValidationError(c, validationErrors)
			return
		}
		apierrors.BadRequest(c, "Invalid request body", nil)
		return
	}

	result, err := h.service.SignStandard(c.Request.Context(), actor, id, req.Signature)
	if err != nil {
		respondServiceError(c, err, "Agreement not found")
		return
	}

	c.JSON(http.StatusOK, signResultResponse(result))
}

// SignGlobalBRBC handles POST /api/v1/agreements/brbc/sign.
// A buyer names the agent as counterparty; the agent names the buyer.
func (h *AgreementHandler) SignGlobalBRBC(c *gin.Context) {
	actor := middleware.GetActor(c)

	var req SignBRBCRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			apierrors.ValidationError(c, validationErrors)
			return
		}
		apierrors.BadRequest(c, "Invalid request body", nil)
		return
	}

	counterpartyID, err := uuid.Parse(req.CounterpartyID)
	if err != nil {
		apierrors.BadRequest(c, "Invalid counterparty id", nil)
		return
	}

	result, err := h.service.SignGlobalBRBC(c.Request.Context(), actor, counterpartyID, req.Signature)
	if err != nil {
		respondServiceError(c, err, "Agreement not found")
		return
	}

	c.JSON(http.StatusOK, signResultResponse(result))
}

// CreateReferral handles POST /api/v1/agreements/referral.
func (h *AgreementHandler) CreateReferral(c *gin.Context) {
	actor := middleware.GetActor(c)

	var req SignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			apierrors.ValidationError(c, validationErrors)
			return
		}
		apierrors.BadRequest(c, "Invalid request body", nil)
		return
	}

	result, err := h.service.CreateReferral(c.Request.Context(), actor, req.Signature)
	if err != nil {
		respondServiceError(c, err, "Agreement not found")
		return
	}

	c.JSON(http.StatusOK, signResultResponse(result))
}

// OverrideStatus handles PUT /api/v1/agreements/:id/status.
func (h *AgreementHandler) OverrideStatus(c *gin.Context) {
	actor := middleware.GetActor(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apierrors.BadRequest(c, "Invalid agreement id", nil)
		return
	}

	var req OverrideStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			apierrors.ValidationError(c, validationErrors)
			return
		}
		apierrors.BadRequest(c, "Invalid request body", nil)
		return
	}

	agreement, err := h.service.OverrideStatus(c.Request.Context(), actor, id, models.AgreementStatus(req.Status))
	if err != nil {
		respondServiceError(c, err, "Agreement not found")
		return
	}

	c.JSON(http.StatusOK, agreement)
}

// Get handles GET /api/v1/agreements/:id.
func (h *AgreementHandler) Get(c *gin.Context) {
	actor := middleware.GetActor(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apierrors.BadRequest(c, "Invalid agreement id", nil)
		return
	}

	agreement, err := h.service.Get(c.Request.Context(), actor, id)
	if err != nil {
		respondServiceError(c, err, "Agreement not found")
		return
	}

	c.JSON(http.StatusOK, agreement)
}

// List handles GET /api/v1/agreements.
func (h *AgreementHandler) List(c *gin.Context) {
	actor := middleware.GetActor(c)

	agreements, err := h.service.ListForActor(c.Request.Context(), actor)
	if err != nil {
		respondServiceError(c, err, "Agreement not found")
		return
	}

	c.JSON(http.StatusOK, AgreementListResponse{
		Agreements: agreements,
		Count:      len(agreements),
	})
}
