package custom_error

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrTooManyAttempts    = errors.New("too many failed login attempts, try again later")
)

// ValidationError reports malformed input tied to a request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// InsufficientStockError is returned when a decrement would drive the
// quantity at (item, location) below zero.
type InsufficientStockError struct {
	ItemID     int
	LocationID int
	Requested  int
	Available  int
}

func (e *InsufficientStockError) Error() string {
	if e.ItemID == 0 {
		return "insufficient stock"
	}
	return fmt.Sprintf(
		"insufficient stock for item %d at location %d: requested %d, available %d",
		e.ItemID, e.LocationID, e.Requested, e.Available,
	)
}

type NotFoundError struct {
	Resource string
	ID       any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Resource, e.ID)
}

func NewNotFoundError(resource string, id any) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// HTTPStatus maps the taxonomy onto a response status and the offending
// field, if the error carries one.
func HTTPStatus(err error) (int, string) {
	var (
		validationErr *ValidationError
		conflictErr   *UniqueViolationError
		stockErr      *InsufficientStockError
		fkErr         *ForeignKeyViolationError
		notFoundErr   *NotFoundError
	)

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, validationErr.Field
	case errors.As(err, &conflictErr):
		return http.StatusConflict, conflictErr.Field
	case errors.As(err, &stockErr):
		return http.StatusConflict, "quantity"
	case errors.As(err, &fkErr):
		return http.StatusConflict, fkErr.Field
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound, ""
	case errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized, ""
	case errors.Is(err, ErrTooManyAttempts):
		return http.StatusTooManyRequests, ""
	default:
		return http.StatusInternalServerError, ""
	}
}

// Code is a stable machine-readable name for the error kind.
func Code(err error) string {
	var (
		validationErr *ValidationError
		conflictErr   *UniqueViolationError
		stockErr      *InsufficientStockError
		fkErr         *ForeignKeyViolationError
		notFoundErr   *NotFoundError
	)

	switch {
	case errors.As(err, &validationErr):
		return "validation_error"
	case errors.As(err, &conflictErr):
		return "conflict"
	case errors.As(err, &stockErr):
		return "insufficient_stock"
	case errors.As(err, &fkErr):
		return "referential_integrity"
	case errors.As(err, &notFoundErr):
		return "not_found"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrTooManyAttempts):
		return "too_many_attempts"
	default:
		return "internal_error"
	}
}
