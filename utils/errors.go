package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"wavecrest-planner/internal/compliance"
	"wavecrest-planner/internal/lifecycle"
	"wavecrest-planner/internal/store"
	"wavecrest-planner/services"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	ErrorCode string      `json:"error_code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}

// RespondWithError sends a standardized error response
func RespondWithError(c *gin.Context, statusCode int, errorCode, message string, details interface{}) {
	c.JSON(statusCode, ErrorResponse{
		ErrorCode: errorCode,
		Message:   message,
		Details:   details,
	})
}

// RespondWithBadRequest sends a 400 Bad Request error
func RespondWithBadRequest(c *gin.Context, message string, details interface{}) {
	RespondWithError(c, http.StatusBadRequest, "bad_request", message, details)
}

// RespondWithNotFound sends a 404 Not Found error
func RespondWithNotFound(c *gin.Context, message string) {
	RespondWithError(c, http.StatusNotFound, "not_found", message, nil)
}

// RespondWithInternalError sends a 500 Internal Server Error
func RespondWithInternalError(c *gin.Context, message string, details interface{}) {
	RespondWithError(c, http.StatusInternalServerError, "internal_error", message, details)
}

// DomainStatus maps a planner error onto an HTTP status and error code.
func DomainStatus(err error) (int, string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict, "conflict_detected"
	case errors.Is(err, services.ErrPublishedImmutable):
		return http.StatusConflict, "published_immutable"
	case errors.Is(err, compliance.ErrInvalidTargetMix):
		return http.StatusUnprocessableEntity, "invalid_target_mix"
	case errors.Is(err, services.ErrValidation), errors.Is(err, compliance.ErrInvalidConfig):
		return http.StatusBadRequest, "bad_request"
	}
	return http.StatusInternalServerError, "internal_error"
}

// RespondWithDomainError writes err in the standard envelope. Internal
// errors hide their message.
func RespondWithDomainError(c *gin.Context, err error) {
	status, code := DomainStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "Internal server error"
	}
	RespondWithError(c, status, code, msg, nil)
}
