package client

import (
	"context"
	"errors"
	"strings"

	"github.com/kjstillabower/weather-prediction-demo/internal/circuitbreaker"
)

// ErrorCategory is a stable label for error classification in metrics and logs.
type ErrorCategory string

const (
	ErrorCategoryTimeout      ErrorCategory = "timeout"
	ErrorCategoryCancelled    ErrorCategory = "cancelled"
	ErrorCategoryNetwork      ErrorCategory = "network"
	ErrorCategoryBadRequest   ErrorCategory = "bad_request"
	ErrorCategoryNotFound     ErrorCategory = "not_found"
	ErrorCategoryRateLimited  ErrorCategory = "rate_limited"
	ErrorCategoryUpstream5xx  ErrorCategory = "upstream_5xx"
	ErrorCategoryParsing      ErrorCategory = "parsing"
	ErrorCategoryMissingField ErrorCategory = "missing_field"
	ErrorCategoryCircuitOpen  ErrorCategory = "circuit_open"
	ErrorCategoryCache        ErrorCategory = "cache"
	ErrorCategoryUnknown      ErrorCategory = "unknown"
)

// CategorizeError maps an error to a stable ErrorCategory. Nil maps to "".
func CategorizeError(err error) ErrorCategory {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, context.Canceled):
		return ErrorCategoryCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorCategoryTimeout
	case errors.Is(err, circuitbreaker.ErrOpen):
		return ErrorCategoryCircuitOpen
	case errors.Is(err, ErrRateLimited):
		return ErrorCategoryRateLimited
	case errors.Is(err, ErrNotFound):
		return ErrorCategoryNotFound
	case errors.Is(err, ErrBadRequest):
		return ErrorCategoryBadRequest
	case errors.Is(err, ErrUpstreamFailure):
		return ErrorCategoryUpstream5xx
	case errors.Is(err, ErrMissingField):
		return ErrorCategoryMissingField
	case errors.Is(err, ErrMalformedBody):
		return ErrorCategoryParsing
	case errors.Is(err, ErrUnreachable):
		return ErrorCategoryNetwork
	}

	// Errors from cache backends and the network stack arrive unwrapped.
	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded"):
		return ErrorCategoryTimeout
	case strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "no such host") || strings.Contains(errStr, "network"):
		return ErrorCategoryNetwork
	case strings.Contains(errStr, "cache"):
		return ErrorCategoryCache
	case strings.Contains(errStr, "unmarshal") || strings.Contains(errStr, "parse") ||
		strings.Contains(errStr, "invalid character"):
		return ErrorCategoryParsing
	}
	return ErrorCategoryUnknown
}
