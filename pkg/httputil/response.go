package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/telehealth-api/pkg/errors"
)

// Response wraps all API responses
type Response struct {
	Success       bool         `json:"success"`
	Message       string       `json:"message,omitempty"`
	Data          interface{}  `json:"data,omitempty"`
	ErrorMessages []FieldError `json:"errorMessages,omitempty"`
}

// FieldError carries a machine-readable validation failure
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// RespondWithError sends an error response, translating AppError codes to
// HTTP statuses. Internal detail is suppressed from the caller.
func RespondWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"

	if appErr, ok := err.(*errors.AppError); ok {
		status = statusForCode(appErr.Code)
		message = appErr.Message
		if appErr.Code == errors.ErrInternal {
			message = "internal server error"
		}
	}

	_ = c.Error(err)

	c.JSON(status, Response{
		Success: false,
		Message: message,
		ErrorMessages: []FieldError{
			{Path: c.Request.URL.Path, Message: message},
		},
	})
}

// RespondWithValidationError reports field-level binding failures
func RespondWithValidationError(c *gin.Context, fieldErrors []FieldError) {
	c.JSON(http.StatusBadRequest, Response{
		Success:       false,
		Message:       "validation failed",
		ErrorMessages: fieldErrors,
	})
}

func statusForCode(code errors.ErrorCode) int {
	switch code {
	case errors.ErrNotFound:
		return http.StatusNotFound
	case errors.ErrBadRequest:
		return http.StatusBadRequest
	case errors.ErrUnauthorized:
		return http.StatusUnauthorized
	case errors.ErrForbidden:
		return http.StatusForbidden
	case errors.ErrConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
