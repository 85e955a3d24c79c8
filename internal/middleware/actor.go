package middleware

import (
	"net/http"

	"github.com/dwelora/api/internal/models"
	"github.com/dwelora/api/internal/repository"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	actorHeaderID   = "X-Actor-ID"
	actorHeaderRole = "X-Actor-Role"
	actorContextKey = "actor"
)

// Actor resolves the acting user from the X-Actor-ID header and stores it in
// the request context. Requests without a parseable actor are rejected before
// reaching handlers. The X-Actor-Role header is only a hint and must match the
// stored role; a mismatch is treated as an unauthenticated request.
func Actor(users repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(actorHeaderID)
		if raw == "" {
			rejectActor(c, "missing "+actorHeaderID+" header")
			return
		}

		actorID, err := uuid.Parse(raw)
		if err != nil {
			rejectActor(c, "invalid actor id")
			return
		}

		user, err := users.GetByID(c.Request.Context(), actorID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": gin.H{
					"code":      "INTERNAL_ERROR",
					"message":   "failed to resolve actor",
					"requestId": GetRequestID(c),
				},
			})
			c.Abort()
			return
		}
		if user == nil {
			rejectActor(c, "unknown actor")
			return
		}

		if hinted := c.GetHeader(actorHeaderRole); hinted != "" && hinted != string(user.Role) {
			rejectActor(c, "role does not match actor")
			return
		}

		c.Set(actorContextKey, user)
		c.Next()
	}
}

func rejectActor(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":      "UNAUTHENTICATED",
			"message":   message,
			"requestId": GetRequestID(c),
		},
	})
	c.Abort()
}

// GetActor retrieves the resolved actor from the Gin context.
// Returns nil if the Actor middleware did not run.
func GetActor(c *gin.Context) *models.User {
	if v, exists := c.Get(actorContextKey); exists {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}
