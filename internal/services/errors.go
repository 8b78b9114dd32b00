package services

import (
	"errors"
	"fmt"

	"github.com/highspring-tester/hat/internal/validator"
)

var (
	ErrValidationFailed = errors.New("validation failed")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")

	ErrAlreadyAttempted = errors.New("assessment already attempted")
	ErrAlreadySubmitted = errors.New("assessment already submitted")

	ErrBankNotFound      = errors.New("question bank not found")
	ErrQuestionNotFound  = errors.New("question not found")
	ErrCandidateNotFound = errors.New("candidate not found")

	ErrConflict    = errors.New("resource already exists")
	ErrSSODisabled = errors.New("single sign-on is not configured")
)

// validationError wraps field errors so callers can match ErrValidationFailed
// and still extract validator.ValidationErrors.
func validationError(err error) error {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return fmt.Errorf("%w: %w", ErrValidationFailed, ve)
	}
	return fmt.Errorf("%w: %v", ErrValidationFailed, err)
}

func fieldError(field, message string) error {
	return validationError(validator.ValidationErrors{{Field: field, Message: message}})
}
