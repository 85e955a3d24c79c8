package handlers

import (
	"errors"

	apierrors "github.com/dwelora/api/internal/errors"
	"github.com/dwelora/api/internal/services"
	"github.com/gin-gonic/gin"
)

// respondServiceError maps a service-layer error onto the JSON error
// envelope. The sentinel checks run after the typed BRBC errors so a
// wrapped conflict still produces its richer detail.
func respondServiceError(c *gin.Context, err error, notFoundMessage string) {
	var requiresBRBC *services.RequiresBRBCError
	if errors.As(err, &requiresBRBC) {
		apierrors.RequiresBRBC(c, requiresBRBC.AgentID)
		return
	}

	var brbcCompleted *services.BRBCCompletedError
	if errors.As(err, &brbcCompleted) {
		apierrors.Conflict(c, brbcCompleted.Error(), map[string]interface{}{
			"agreement_id": brbcCompleted.AgreementID.String(),
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrNotFound):
		apierrors.NotFound(c, notFoundMessage)
	case errors.Is(err, services.ErrForbidden):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrStateConflict):
		apierrors.Conflict(c, err.Error(), nil)
	case errors.Is(err, services.ErrInvalidInput):
		apierrors.BadRequest(c, err.Error(), nil)
	case errors.Is(err, services.ErrExternalService):
		apierrors.UpstreamError(c, err.Error(), err)
	default:
		apierrors.InternalServerError(c, "Request failed", err)
	}
}
