package services

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

type ErrorCode string

const (
	ErrorInvalid   ErrorCode = "invalid"
	ErrorNotFound  ErrorCode = "not_found"
	ErrorConflict  ErrorCode = "conflict"
	ErrorForbidden ErrorCode = "forbidden"
)

// ServiceError carries a client-facing code and message. Err, when set, is
// the sentinel the error wraps so callers can use errors.Is.
type ServiceError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *ServiceError) Error() string { return e.Message }

func (e *ServiceError) Unwrap() error { return e.Err }

func NewInvalidError(msg string) error   { return &ServiceError{Code: ErrorInvalid, Message: msg} }
func NewNotFoundError(msg string) error  { return &ServiceError{Code: ErrorNotFound, Message: msg} }
func NewConflictError(msg string) error  { return &ServiceError{Code: ErrorConflict, Message: msg} }
func NewForbiddenError(msg string) error { return &ServiceError{Code: ErrorForbidden, Message: msg} }

func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

var (
	// ErrDistributionNotFound is returned for an unknown distribution id or token.
	ErrDistributionNotFound = errors.New("distribution not found")
	// ErrDistributionInactive is returned when a closed distribution is used by a respondent.
	ErrDistributionInactive = errors.New("distribution is not active")
	// ErrInvalidRespondentToken flags a respondent token that fails verification.
	ErrInvalidRespondentToken = errors.New("invalid respondent token")
)

func distributionNotFound() error {
	return &ServiceError{Code: ErrorNotFound, Message: ErrDistributionNotFound.Error(), Err: ErrDistributionNotFound}
}

func distributionInactive() error {
	return &ServiceError{Code: ErrorNotFound, Message: ErrDistributionInactive.Error(), Err: ErrDistributionInactive}
}

func shortID(n int) string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:n]
}
