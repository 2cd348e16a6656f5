package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mesafacil/backoffice/models"
	"github.com/mesafacil/backoffice/utils"
)

var ErrNoPermission = errors.New("you do not have permission for this action")

// respondServiceError maps the domain error taxonomy onto HTTP responses.
// State-machine rejections return the current state so the client can
// reconcile its UI before retrying.
func respondServiceError(c *gin.Context, err error) {
	var (
		validationErr *models.ValidationError
		itemErr       *models.ItemUnavailableError
		totalErr      *models.TotalMismatchError
		transitionErr *models.InvalidTransitionError
		stateErr      *models.InvalidStateError
	)

	switch {
	case errors.As(err, &validationErr), errors.As(err, &itemErr), errors.As(err, &totalErr):
		utils.RespondError(c, http.StatusBadRequest, err)
	case errors.As(err, &transitionErr):
		utils.RespondErrorData(c, http.StatusConflict, err, gin.H{"current_status": transitionErr.From})
	case errors.As(err, &stateErr):
		utils.RespondErrorData(c, http.StatusConflict, err, gin.H{"current_status": stateErr.Current})
	case errors.Is(err, models.ErrNotFound):
		utils.RespondError(c, http.StatusNotFound, err)
	case errors.Is(err, models.ErrForbidden):
		utils.RespondError(c, http.StatusForbidden, err)
	default:
		utils.ErrorLogger.Printf("internal error: %v", err)
		utils.RespondError(c, http.StatusInternalServerError, err)
	}
}

// restaurantFromContext reads the restaurant scope set by the auth
// middleware. Scoping is always explicit, never ambient state.
func restaurantFromContext(c *gin.Context) (uint, bool) {
	v, exists := c.Get("restaurant_id")
	if !exists {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}
