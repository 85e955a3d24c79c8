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

// UserHandler handles participant provisioning requests.
type UserHandler struct {
	service services.UserService
}

// NewUserHandler creates a new UserHandler instance.
func NewUserHandler(service services.UserService) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

// RegisterUserRequest represents the request body for provisioning a user.
type RegisterUserRequest struct {
	Role      string  `json:"role" binding:"required,oneof=buyer seller agent admin"`
	Email     string  `json:"email" binding:"required,email"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	State     *string `json:"state"`
}

// Register handles POST /api/v1/users.
func (h *UserHandler) Register(c *gin.Context) {
	actor := middleware.GetActor(c)

	var req RegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			apierrors.ValidationError(c, validationErrors)
			return
		}
		apierrors.BadRequest(c, "Invalid request body", nil)
		return
	}

	user, err := h.service.Register(c.Request.Context(), actor, services.RegisterUserInput{
		Role:      models.Role(req.Role),
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		State:     req.State,
	})
	if err != nil {
		respondServiceError(c, err, "User not found")
		return
	}

	c.JSON(http.StatusCreated, user)
}

// Get handles GET /api/v1/users/:id.
func (h *UserHandler) Get(c *gin.Context) {
	actor := middleware.GetActor(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apierrors.BadRequest(c, "Invalid user id", nil)
		return
	}

	user, err := h.service.Get(c.Request.Context(), actor, id)
	if err != nil {
		respondServiceError(c, err, "User not found")
		return
	}

	c.JSON(http.StatusOK, user)
}
