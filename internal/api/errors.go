package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/hs-platform/revintel/internal/database"
	"github.com/hs-platform/revintel/internal/orchestrator"
)

// ErrorCode classifies API failures for clients.
type ErrorCode string

const (
	ErrCodeValidation      ErrorCode = "validation_error"
	ErrCodeAuth            ErrorCode = "authentication_error"
	ErrCodeForbidden       ErrorCode = "forbidden"
	ErrCodeNotFound        ErrorCode = "not_found"
	ErrCodeRateLimit       ErrorCode = "rate_limit_exceeded"
	ErrCodeExternalService ErrorCode = "external_service_error"
	ErrCodeDatabase        ErrorCode = "database_error"
	ErrCodeInternal        ErrorCode = "internal_error"
)

// APIError is an error with a client-facing classification.
type APIError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	RetryAfter time.Duration          `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// HTTPStatus maps the error code to its response status.
func (e *APIError) HTTPStatus() int {
	switch e.Code {
	case ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeAuth:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeRateLimit:
		return http.StatusTooManyRequests
	case ErrCodeExternalService:
		return http.StatusBadGateway
	case ErrCodeDatabase:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// NewValidationError reports a rejected request payload.
func NewValidationError(message string) *APIError {
	return &APIError{Code: ErrCodeValidation, Message: message}
}

// NewAuthError reports missing or invalid credentials.
func NewAuthError(message string) *APIError {
	return &APIError{Code: ErrCodeAuth, Message: message}
}

// NewForbiddenError reports insufficient permissions.
func NewForbiddenError(message string) *APIError {
	return &APIError{Code: ErrCodeForbidden, Message: message}
}

// NewNotFoundError reports a missing resource.
func NewNotFoundError(resource, id string) *APIError {
	return &APIError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// NewRateLimitError reports throttling with a retry hint.
func NewRateLimitError(retryAfter time.Duration) *APIError {
	return &APIError{
		Code:       ErrCodeRateLimit,
		Message:    "rate limit exceeded",
		RetryAfter: retryAfter,
	}
}

// classify wraps an arbitrary error into an APIError. Known sentinel and
// typed errors keep their classification; everything else is internal.
func classify(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	if errors.Is(err, database.ErrNotFound) {
		return &APIError{Code: ErrCodeNotFound, Message: "resource not found"}
	}
	if errors.Is(err, database.ErrUnavailable) {
		return &APIError{Code: ErrCodeDatabase, Message: "database unavailable"}
	}
	if errors.Is(err, orchestrator.ErrUnknownAgent) {
		return &APIError{Code: ErrCodeNotFound, Message: err.Error()}
	}
	if errors.Is(err, orchestrator.ErrUnknownOperation) {
		return &APIError{Code: ErrCodeValidation, Message: err.Error()}
	}

	var cooldownErr *orchestrator.CooldownError
	if errors.As(err, &cooldownErr) {
		return &APIError{
			Code:       ErrCodeRateLimit,
			Message:    cooldownErr.Error(),
			RetryAfter: cooldownErr.RetryAfter,
		}
	}

	return &APIError{Code: ErrCodeInternal, Message: err.Error()}
}

// writeError writes the standard error envelope. Rate limit errors carry a
// Retry-After header in whole seconds, rounded up.
func writeError(w http.ResponseWriter, err error) {
	apiErr := classify(err)

	w.Header().Set("Content-Type", "application/json")
	if apiErr.Code == ErrCodeRateLimit && apiErr.RetryAfter > 0 {
		seconds := int(apiErr.RetryAfter.Seconds())
		if apiErr.RetryAfter%time.Second != 0 {
			seconds++
		}
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}
	w.WriteHeader(apiErr.HTTPStatus())

	envelope := map[string]interface{}{"error": apiErr}
	if err := json.NewEncoder(w).Encode(envelope); err != nil {
		// Headers are already out, nothing left to do.
		return
	}
}
