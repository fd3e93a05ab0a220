package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/skillforge-api/internal/api/shared"
	"github.com/phrazzld/skillforge-api/internal/domain"
	"github.com/phrazzld/skillforge-api/internal/service"
	"github.com/phrazzld/skillforge-api/internal/service/auth"
	"github.com/phrazzld/skillforge-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrWrongTokenType):
		return http.StatusUnauthorized

	// Not found errors
	case errors.Is(err, service.ErrNotFound),
		store.IsNotFoundError(err):
		return http.StatusNotFound

	// The request was well formed but selects nobody
	case errors.Is(err, service.ErrEmptyGroup):
		return http.StatusUnprocessableEntity

	// Bad request errors
	case errors.Is(err, service.ErrInvalidParameters),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, shared.ErrEmptyBody):
		return http.StatusBadRequest

	case errors.Is(err, service.ErrGeneratorFailure):
		return http.StatusBadGateway

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrWrongTokenType):
		return "Invalid token"
	case errors.Is(err, auth.ErrMissingToken):
		return "Authorization header required"

	case errors.Is(err, store.ErrJobNotFound):
		return "Generation job not found"
	case errors.Is(err, store.ErrContentNotFound):
		return "Content not found"
	case errors.Is(err, store.ErrCourseNotFound):
		return "Course not found"
	case errors.Is(err, store.ErrEmployeeNotFound):
		return "Employee not found"
	case errors.Is(err, service.ErrNotFound):
		return "Resource not found"

	case errors.Is(err, service.ErrEmptyGroup):
		return "No active employees match the selected group"

	case errors.Is(err, service.ErrInvalidParameters):
		return invalidParametersMessage(err)
	case errors.Is(err, shared.ErrEmptyBody):
		return "Request body is required"
	case errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID):
		return "Invalid request data"

	case errors.Is(err, service.ErrGeneratorFailure):
		return "Content generation is unavailable"

	default:
		return "An unexpected error occurred"
	}
}

// invalidParametersMessage surfaces the validation detail the service wrote
// after the sentinel. Service validation messages name request fields only.
func invalidParametersMessage(err error) string {
	msg := err.Error()
	prefix := service.ErrInvalidParameters.Error() + ": "
	if i := strings.LastIndex(msg, prefix); i >= 0 {
		detail := msg[i+len(prefix):]
		if detail != "" && !strings.Contains(detail, ":") {
			return "Invalid parameters: " + detail
		}
	}
	return "Invalid parameters"
}

// HandleAPIError maps err to a status code and safe message and writes the
// error response. A non-empty fallback replaces the generic message for 500s.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && fallback != "" {
		message = fallback
	}

	opts := []shared.ResponseOption{}
	if status == http.StatusUnauthorized {
		opts = append(opts, shared.WithElevatedLogLevel())
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err, opts...)
}

// SanitizeValidationError turns validator errors into a client-facing message
// naming the first failing field.
func SanitizeValidationError(err error) string {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		fe := validationErrs[0]
		return fmt.Sprintf("Invalid %s: %s", lowerFirst(fe.Field()), getValidationTagMessage(fe.Tag()))
	}
	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	case "uuid", "uuid4":
		return "invalid UUID"
	case "gte", "lte":
		return "out of range"
	case "dive":
		return "invalid element"
	default:
		return "validation failed"
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
