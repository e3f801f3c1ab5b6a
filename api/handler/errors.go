package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/autologin/models"
)

// respondError maps a LoginError to the correct HTTP status code and writes
// a structured JSON error response. Errors without a code are reported as
// internal without their text.
func respondError(c *gin.Context, err error) {
	var loginErr *models.LoginError
	if !errors.As(err, &loginErr) {
		slog.Error("unhandled error", "path", c.FullPath(), "error", err)
		loginErr = models.NewLoginError(models.ErrCodeInternal, "internal error", err)
	}

	c.JSON(mapErrorToStatus(loginErr), models.ErrorResponse{
		Success: false,
		Error:   loginErr.ToDetail(),
	})
}

// badRequest reports a request that failed binding or validation.
func badRequest(c *gin.Context, err error) {
	var loginErr *models.LoginError
	if errors.As(err, &loginErr) {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusBadRequest, models.NewErrorResponse(models.ErrCodeInvalidInput, err.Error()))
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.LoginError) int {
	switch e.Code {
	case models.ErrCodeInvalidURL, models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	case models.ErrCodeNotFound:
		return http.StatusNotFound // 404
	case models.ErrCodeParse:
		return http.StatusUnprocessableEntity // 422
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeNetwork:
		return http.StatusBadGateway // 502
	default:
		return http.StatusInternalServerError // 500
	}
}
