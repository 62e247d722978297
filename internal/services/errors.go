package services

import (
	"errors"
	"fmt"
	"net/http"

	"kalam-backend/internal/permissions"
	"kalam-backend/internal/repositories"
)

const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeEmptyCart         = "EMPTY_CART"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeAlreadyCancelled  = "ALREADY_CANCELLED"
	CodeCannotCancelPaid  = "CANNOT_CANCEL_PAID"
	CodeInvalidCallback   = "INVALID_CALLBACK"
	CodeInvalidCreds      = "INVALID_CREDENTIALS"
	CodeInvalidToken      = "INVALID_OR_EXPIRED_TOKEN"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeNotFound          = "NOT_FOUND"
	CodeDuplicateEmail    = "DUPLICATE_EMAIL"
	CodeDuplicatePhone    = "DUPLICATE_PHONE"
	CodeConflict          = "CONFLICT"
	CodeAlreadyRegistered = "ALREADY_REGISTERED"
	CodeInternal          = "INTERNAL"
)

var statusByCode = map[string]int{
	CodeValidation:        http.StatusBadRequest,
	CodeEmptyCart:         http.StatusBadRequest,
	CodeInvalidTransition: http.StatusBadRequest,
	CodeAlreadyCancelled:  http.StatusBadRequest,
	CodeCannotCancelPaid:  http.StatusBadRequest,
	CodeInvalidCallback:   http.StatusBadRequest,
	CodeInvalidCreds:      http.StatusUnauthorized,
	CodeInvalidToken:      http.StatusUnauthorized,
	CodeUnauthorized:      http.StatusUnauthorized,
	CodeForbidden:         http.StatusForbidden,
	CodeNotFound:          http.StatusNotFound,
	CodeDuplicateEmail:    http.StatusConflict,
	CodeDuplicatePhone:    http.StatusConflict,
	CodeConflict:          http.StatusConflict,
	CodeAlreadyRegistered: http.StatusConflict,
	CodeInternal:          http.StatusInternalServerError,
}

// Error is the one error type services hand to the HTTP layer. Err keeps the
// underlying cause for logs and is never shown to callers.
type Error struct {
	Code    string
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) HTTPStatus() int {
	if status, ok := statusByCode[e.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func newError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func validationError(field, message string) *Error {
	return &Error{
		Code:    CodeValidation,
		Message: "Validation failed",
		Fields:  map[string]string{field: message},
	}
}

func internalError(err error) *Error {
	return &Error{Code: CodeInternal, Message: "Internal server error", Err: err}
}

// fromRepo classifies a repository error. what names the entity for the
// not-found and conflict messages.
func fromRepo(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrNotFound):
		return &Error{Code: CodeNotFound, Message: what + " not found", Err: err}
	case errors.Is(err, repositories.ErrDuplicate):
		return &Error{Code: CodeConflict, Message: what + " already exists", Err: err}
	case errors.Is(err, permissions.ErrForbidden):
		return &Error{Code: CodeForbidden, Message: "You do not have permission to perform this action", Err: err}
	default:
		var svcErr *Error
		if errors.As(err, &svcErr) {
			return svcErr
		}
		return internalError(err)
	}
}

// ErrorCode returns the code of a service error, or CodeInternal for any
// other error.
func ErrorCode(err error) string {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Code
	}
	return CodeInternal
}
