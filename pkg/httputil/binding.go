package httputil

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// RespondWithBindingError turns a gin binding failure into the validation
// error envelope, with one entry per failed field.
func RespondWithBindingError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fieldErrors := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fieldErrors = append(fieldErrors, FieldError{
				Path:    strings.ToLower(fe.Field()),
				Message: messageForTag(fe),
			})
		}
		RespondWithValidationError(c, fieldErrors)
		return
	}

	RespondWithValidationError(c, []FieldError{
		{Path: c.Request.URL.Path, Message: "malformed request body"},
	})
}

func messageForTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "is too short"
	case "max":
		return "is too long"
	case "gt", "gte":
		return "must be a positive number"
	case "datetime":
		return "must be a date in YYYY-MM-DD format"
	case "hhmm":
		return "must be a time in HH:MM format"
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "is invalid"
	}
}
