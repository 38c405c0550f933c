package apperror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"ledger-reconciliation-backend/internal/models"
)

type ErrorCode string

const (
	ErrCodeNotFound         ErrorCode = "NOT_FOUND"
	ErrCodeConflict         ErrorCode = "CONFLICT"
	ErrCodeInvalidInput     ErrorCode = "INVALID_INPUT"
	ErrCodePartialApply     ErrorCode = "PARTIAL_APPLY"
	ErrCodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	ErrCodeCancelled        ErrorCode = "REQUEST_CANCELLED"
	ErrCodeInternalServer   ErrorCode = "INTERNAL_SERVER_ERROR"
)

var (
	ErrNotFound         = errors.New("record not found")
	ErrStoreUnavailable = errors.New("transaction store unavailable")
	ErrScopeBusy        = errors.New("a reconciliation is already running for this scope")
	ErrInvalidScope     = errors.New("invalid scope")
)

type APIError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (e APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewAPIError(code ErrorCode, message string, details interface{}) APIError {
	return APIError{Code: code, Message: message, Details: details}
}

// PartialApplyError is returned together with a complete report when some
// match links could not be written.
type PartialApplyError struct {
	Failed []models.FailedUpdate
}

func (e *PartialApplyError) Error() string {
	ids := make([]string, 0, len(e.Failed))
	for _, f := range e.Failed {
		ids = append(ids, f.CustomerTransactionID.String())
	}
	return fmt.Sprintf("%d match link update(s) failed: %s", len(e.Failed), strings.Join(ids, ", "))
}

type StoreUnavailableError struct {
	Op  string
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrStoreUnavailable, e.Op, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error {
	return e.Err
}

func (e *StoreUnavailableError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

func StoreUnavailable(op string, err error) error {
	return &StoreUnavailableError{Op: op, Err: err}
}

// FromError converts any error returned by the services into the API shape.
func FromError(err error) APIError {
	var (
		apiErr     APIError
		partialErr *PartialApplyError
	)
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.As(err, &partialErr):
		return NewAPIError(ErrCodePartialApply, partialErr.Error(), partialErr.Failed)
	case errors.Is(err, ErrInvalidScope):
		return NewAPIError(ErrCodeInvalidInput, err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		return NewAPIError(ErrCodeNotFound, err.Error(), nil)
	case errors.Is(err, ErrScopeBusy):
		return NewAPIError(ErrCodeConflict, err.Error(), nil)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return NewAPIError(ErrCodeCancelled, err.Error(), nil)
	case errors.Is(err, ErrStoreUnavailable):
		return NewAPIError(ErrCodeStoreUnavailable, err.Error(), nil)
	}
	return NewAPIError(ErrCodeInternalServer, err.Error(), nil)
}

func MapErrorToHTTPStatus(err error) int {
	switch FromError(err).Code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeInvalidInput:
		return http.StatusBadRequest
	case ErrCodePartialApply:
		return http.StatusMultiStatus
	case ErrCodeStoreUnavailable:
		return http.StatusServiceUnavailable
	case ErrCodeCancelled:
		return http.StatusRequestTimeout
	}
	return http.StatusInternalServerError
}
