package custom_error

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgStringTooLong       = "22001"
	pgNumericOutOfRange   = "22003"

	constraintQuantityNonNegative = "quantity_non_negative"
)

type CustomError interface {
	Error() string
}

// UniqueViolationError is the ConflictError of the taxonomy: a duplicate
// location name or username.
type UniqueViolationError struct {
	message string
	code    string // PostgreSQL error code (e.g., "23505")
	Field   string
}

// ForeignKeyViolationError is the ReferentialIntegrityError of the taxonomy.
type ForeignKeyViolationError struct {
	message string
	code    string // PostgreSQL error code (e.g., "23503")
	Field   string
}

func (f *ForeignKeyViolationError) Error() string {
	if f.code == "" {
		return f.message
	}
	return fmt.Sprintf("%s (code: %s)", f.message, f.code)
}

func (e *UniqueViolationError) Error() string {
	if e.code == "" {
		return e.message
	}
	return fmt.Sprintf("%s (code: %s)", e.message, e.code)
}

func NewConflictError(field, message string) *UniqueViolationError {
	return &UniqueViolationError{message: message, code: pgUniqueViolation, Field: field}
}

func NewReferentialIntegrityError(field, message string) *ForeignKeyViolationError {
	return &ForeignKeyViolationError{message: message, Field: field}
}

// WrapDBError translates a driver error into the error taxonomy. Errors that
// are not *pq.Error, or carry a code we do not classify, are wrapped as-is.
func WrapDBError(message string, err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return fmt.Errorf("%s: %w", message, err)
	}

	switch string(pqErr.Code) {
	case pgUniqueViolation:
		return &UniqueViolationError{
			message: message,
			code:    pgUniqueViolation,
			Field:   pqErr.Column,
		}
	case pgForeignKeyViolation:
		return &ForeignKeyViolationError{
			message: "Value is referenced by or references other resources: " + message,
			code:    pgForeignKeyViolation,
			Field:   pqErr.Column,
		}
	case pgCheckViolation:
		if pqErr.Constraint == constraintQuantityNonNegative {
			return &InsufficientStockError{}
		}
		return &ValidationError{Field: pqErr.Constraint, Message: message}
	case pgStringTooLong:
		return &ValidationError{Field: pqErr.Column, Message: "value is too long: " + message}
	case pgNumericOutOfRange:
		return &ValidationError{Field: pqErr.Column, Message: "value is out of range: " + message}
	default:
		return fmt.Errorf("uncategorized error occurred with code %s: %s: %w", pqErr.Code, message, err)
	}
}
