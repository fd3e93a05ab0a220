package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/skillforge-api/internal/store"
)

// Common service errors - sentinel errors used across service implementations.
// Callers check for them with errors.Is().
//
// Error handling principles:
// 1. Service methods return sentinel errors for expected error conditions
// 2. Unexpected errors are wrapped in ServiceError with the failing operation
// 3. The API layer maps service errors to appropriate HTTP status codes
var (
	// ErrInvalidParameters indicates a request that cannot be processed as submitted.
	// API layer should map this to HTTP 400 Bad Request.
	ErrInvalidParameters = errors.New("invalid parameters")

	// ErrEmptyGroup indicates the employee selection resolved to nobody.
	// No job is created. API layer should map this to HTTP 422 Unprocessable Entity.
	ErrEmptyGroup = errors.New("employee group is empty")

	// ErrNotFound indicates that a referenced job, content record, course or
	// employee does not exist. API layer should map this to HTTP 404 Not Found.
	ErrNotFound = errors.New("not found")

	// ErrGeneratorFailure indicates the content generator could not produce a course.
	// It is recorded on tasks rather than returned to API callers.
	ErrGeneratorFailure = errors.New("content generation failed")

	// ErrPersistenceFailure indicates a storage error.
	// API layer should map this to HTTP 500 Internal Server Error.
	ErrPersistenceFailure = errors.New("persistence failure")
)

// ServiceError wraps errors from service operations with context.
type ServiceError struct {
	// Service is the service that failed (e.g., "job", "status")
	Service string
	// Op is the operation that failed (e.g., "create", "get_status")
	Op string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s service %s operation failed: %v", e.Service, e.Op, e.Err)
	}
	return fmt.Sprintf("%s service %s operation failed", e.Service, e.Op)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
func NewServiceError(service, op string, err error) *ServiceError {
	return &ServiceError{
		Service: service,
		Op:      op,
		Err:     err,
	}
}

// wrapStoreError classifies a store error under the matching service sentinel
// while keeping the store error in the chain.
func wrapStoreError(service, op string, err error) error {
	if err == nil {
		return nil
	}

	var kind error
	switch {
	case store.IsNotFoundError(err):
		kind = ErrNotFound
	case errors.Is(err, store.ErrInvalidEntity), store.IsDuplicateError(err):
		kind = ErrInvalidParameters
	default:
		kind = ErrPersistenceFailure
	}
	return NewServiceError(service, op, fmt.Errorf("%w: %w", kind, err))
}

// invalidParameters builds an ErrInvalidParameters error naming the problem.
func invalidParameters(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidParameters, fmt.Sprintf(format, args...))
}
