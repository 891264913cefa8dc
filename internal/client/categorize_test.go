package client

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/kjstillabower/weather-prediction-demo/internal/circuitbreaker"
)

// TestCategorizeError verifies that CategorizeError maps errors to the correct ErrorCategory
// for metrics labeling, including sentinel errors, wrapped errors, and message-based heuristics.
func TestCategorizeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCategory
	}{
		{"nil", nil, ""},
		{"deadline", context.DeadlineExceeded, ErrorCategoryTimeout},
		{"canceled", context.Canceled, ErrorCategoryCancelled},
		{"wrapped request timeout", fmt.Errorf("request timeout: %w", context.DeadlineExceeded), ErrorCategoryTimeout},
		{"breaker open", fmt.Errorf("rain-prediction: %w", circuitbreaker.ErrOpen), ErrorCategoryCircuitOpen},
		{"rate limited", ErrRateLimited, ErrorCategoryRateLimited},
		{"not found", fmt.Errorf("%w: HTTP 404", ErrNotFound), ErrorCategoryNotFound},
		{"bad request", fmt.Errorf("%w: HTTP 400: humidity: not a number", ErrBadRequest), ErrorCategoryBadRequest},
		{"upstream failure", fmt.Errorf("%w: HTTP 503", ErrUpstreamFailure), ErrorCategoryUpstream5xx},
		{"missing field", fmt.Errorf("%w: cluster", ErrMissingField), ErrorCategoryMissingField},
		{"malformed body", fmt.Errorf("%w: unexpected EOF", ErrMalformedBody), ErrorCategoryParsing},
		{"unreachable", fmt.Errorf("%w: dial tcp", ErrUnreachable), ErrorCategoryNetwork},
		{"io timeout in message", errors.New("read tcp 127.0.0.1:11211: i/o timeout"), ErrorCategoryTimeout},
		{"connection refused in message", errors.New("dial tcp 127.0.0.1:6379: connect: connection refused"), ErrorCategoryNetwork},
		{"cache in message", errors.New("memcache: cache get failed"), ErrorCategoryCache},
		{"invalid json in message", errors.New("invalid character 'x' looking for beginning of value"), ErrorCategoryParsing},
		{"unknown", errors.New("something else"), ErrorCategoryUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CategorizeError(tt.err)
			if got != tt.want {
				t.Errorf("CategorizeError() = %v, want %v", got, tt.want)
			}
		})
	}
}
