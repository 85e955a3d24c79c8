package handlers

import (
	"net/http"

	apierrors "github.com/dwelora/api/internal/errors"
	"github.com/dwelora/api/internal/middleware"
	"github.com/dwelora/api/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// VerificationHandler handles identity verification HTTP requests.
type VerificationHandler struct {
	service services.VerificationService
}

// NewVerificationHandler creates a new VerificationHandler instance.
func NewVerificationHandler(service services.VerificationService) *VerificationHandler {
	return &VerificationHandler{
		service: service,
	}
}

// StartVerificationResponse represents the response when opening a session.
type StartVerificationResponse struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// SyncVerificationRequest represents the request body for polling a session.
type SyncVerificationRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
}

// SyncVerificationResponse represents the response for a session poll.
type SyncVerificationResponse struct {
	Status string `json:"status"`
}

// Start handles POST /api/v1/verification/start.
func (h *VerificationHandler) Start(c *gin.Context) {
	actor := middleware.GetActor(c)

	session, err := h.service.Start(c.Request.Context(), actor.ID)
	if err != nil {
		respondServiceError(c, err, "User not found")
		return
	}

	c.JSON(http.StatusOK, StartVerificationResponse{
		SessionID: session.SessionID,
		URL:       session.URL,
	})
}

// Sync handles POST /api/v1/verification/sync.
// An approved outcome marks the actor verified; for agents it also re-runs
// lead matching against unassigned properties.
func (h *VerificationHandler) Sync(c *gin.Context) {
	actor := middleware.GetActor(c)

	var req SyncVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			apierrors.ValidationError(c, validationErrors)
			return
		}
		apierrors.BadRequest(c, "Invalid request body", nil)
		return
	}

	status, err := h.service.Sync(c.Request.Context(), actor.ID, req.SessionID)
	if err != nil {
		respondServiceError(c, err, "User not found")
		return
	}

	c.JSON(http.StatusOK, SyncVerificationResponse{
		Status: string(status),
	})
}
