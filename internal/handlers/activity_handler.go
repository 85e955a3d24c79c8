package handlers

import (
	"net/http"

	apierrors "github.com/dwelora/api/internal/errors"
	"github.com/dwelora/api/internal/middleware"
	"github.com/dwelora/api/internal/models"
	"github.com/dwelora/api/internal/repository"
	"github.com/dwelora/api/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ActivityHandler serves the per-property activity feed.
type ActivityHandler struct {
	properties services.PropertyService
	activity   repository.ActivityRepository
}

// NewActivityHandler creates a new ActivityHandler instance.
func NewActivityHandler(properties services.PropertyService, activity repository.ActivityRepository) *ActivityHandler {
	return &ActivityHandler{
		properties: properties,
		activity:   activity,
	}
}

// ActivityFeedResponse represents the response for the activity feed.
type ActivityFeedResponse struct {
	Entries []models.ActivityLogEntry `json:"entries"`
	Count   int                       `json:"count"`
}

// ListForProperty handles GET /api/v1/properties/:id/activity.
// Visibility follows the property itself: whoever may read the property may
// read its feed. Entries are written asynchronously, so a just-performed
// action may not appear immediately.
func (h *ActivityHandler) ListForProperty(c *gin.Context) {
	actor := middleware.GetActor(c)

	propertyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apierrors.BadRequest(c, "Invalid property id", nil)
		return
	}

	// The property service enforces party visibility.
	if _, err := h.properties.Get(c.Request.Context(), actor, propertyID); err != nil {
		respondServiceError(c, err, "Property not found")
		return
	}

	entries, err := h.activity.ListByProperty(c.Request.Context(), propertyID)
	if err != nil {
		apierrors.InternalServerError(c, "Failed to load activity feed", err)
		return
	}

	c.JSON(http.StatusOK, ActivityFeedResponse{
		Entries: entries,
		Count:   len(entries),
	})
}
