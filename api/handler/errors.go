package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/purify-render/models"
)

// asRenderError unwraps err into a *models.RenderError, wrapping anything
// else as INTERNAL_ERROR.
func asRenderError(err error) *models.RenderError {
	var re *models.RenderError
	if errors.As(err, &re) {
		return re
	}
	return models.NewRenderError(models.ErrCodeInternal, err.Error(), err)
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.RenderError) int {
	switch e.Code {
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeBackendUnavailable:
		return http.StatusServiceUnavailable // 503
	case models.ErrCodeNavigation, models.ErrCodeFetchFailed, models.ErrCodeSourceRetrieval:
		return http.StatusBadGateway // 502
	case models.ErrCodeInvalidInput, models.ErrCodeInvalidURL:
		return http.StatusBadRequest // 400
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}

// invalidInput writes a 400 with the binding error message.
func invalidInput(c *gin.Context, err error, body func(*models.ErrorDetail) any) {
	c.JSON(http.StatusBadRequest, body(&models.ErrorDetail{
		Code:    models.ErrCodeInvalidInput,
		Message: err.Error(),
	}))
}
