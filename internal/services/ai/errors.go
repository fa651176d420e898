// File: internal/services/ai/errors.go
package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

type ErrorType string

const (
	ErrTypeConfig    ErrorType = "CONFIG"
	ErrTypeNetwork   ErrorType = "NETWORK"
	ErrTypeAuth      ErrorType = "AUTH"
	ErrTypeProvider  ErrorType = "PROVIDER"
	ErrTypeRateLimit ErrorType = "RATE_LIMIT"
	ErrTypeEmpty     ErrorType = "EMPTY"
	ErrTypeCanceled  ErrorType = "CANCELED"
)

type AIError struct {
	Type      ErrorType
	Code      int
	Message   string
	Model     string
	Operation string
	Cause     error
}

func (e *AIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("AI %s error in %s: %s (caused by: %v)",
			e.Type, e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("AI %s error in %s: %s", e.Type, e.Operation, e.Message)
}

func (e *AIError) Unwrap() error {
	return e.Cause
}

func NewConfigError(msg string) *AIError {
	return &AIError{Type: ErrTypeConfig, Message: msg, Operation: "config"}
}

// NewProviderError classifies cause by the upstream status code when there is one.
func NewProviderError(operation, msg string, cause error) *AIError {
	e := &AIError{Type: ErrTypeProvider, Operation: operation, Message: msg, Cause: cause}

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.Is(cause, context.Canceled), errors.Is(cause, context.DeadlineExceeded):
		e.Type = ErrTypeCanceled
	case errors.As(cause, &apiErr):
		e.Code = apiErr.HTTPStatusCode
		e.Type = typeForStatus(apiErr.HTTPStatusCode)
	case errors.As(cause, &reqErr):
		e.Code = reqErr.HTTPStatusCode
		e.Type = typeForStatus(reqErr.HTTPStatusCode)
	}
	return e
}

func NewEmptyResponseError(operation, model string) *AIError {
	return &AIError{Type: ErrTypeEmpty, Operation: operation, Model: model, Message: "empty completion response"}
}

func typeForStatus(code int) ErrorType {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ErrTypeAuth
	case code == http.StatusTooManyRequests:
		return ErrTypeRateLimit
	case code >= 500:
		return ErrTypeNetwork
	default:
		return ErrTypeProvider
	}
}
