package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"carpool/internal/lifecycle"
	"carpool/internal/middleware"
	"carpool/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	status, code := mapErrorToHTTPStatus(err)
	if status == http.StatusInternalServerError || status == http.StatusServiceUnavailable || code == "contention" {
		middleware.MarkTransient(c)
	}
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service and engine errors to an HTTP status and a stable code.
func mapErrorToHTTPStatus(err error) (int, string) {
	var rule *lifecycle.RuleError

	switch {
	case errors.Is(err, service.ErrRideNotFound):
		return http.StatusNotFound, "not_found"

	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, "validation"

	case errors.As(err, &rule):
		return http.StatusConflict, rule.Code

	case errors.Is(err, service.ErrContention):
		return http.StatusConflict, "contention"

	case errors.Is(err, service.ErrNotRideDriver):
		return http.StatusForbidden, "not_ride_driver"

	case errors.Is(err, service.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "store_unavailable"

	default:
		return http.StatusInternalServerError, "internal"
	}
}
