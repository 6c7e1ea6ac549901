package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/genai"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Category
	}{
		{name: "nil", err: nil, want: CategoryOther},
		{name: "429 in message", err: errors.New("googleapi: Error 429: too many requests"), want: CategoryRateLimit},
		{name: "resource exhausted", err: errors.New("RESOURCE_EXHAUSTED: try later"), want: CategoryRateLimit},
		{name: "quota", err: errors.New("You exceeded your current quota"), want: CategoryRateLimit},
		{name: "rate limit phrase", err: errors.New("Rate limit reached for model"), want: CategoryRateLimit},
		{name: "genai api error code", err: genai.APIError{Code: 429, Message: "slow down"}, want: CategoryRateLimit},
		{name: "genai api error status", err: fmt.Errorf("call: %w", genai.APIError{Code: 400, Status: "RESOURCE_EXHAUSTED"}), want: CategoryRateLimit},
		{name: "genai server error", err: genai.APIError{Code: 503, Message: "overloaded"}, want: CategoryTransient},
		{name: "http error 500", err: fmt.Errorf("poll: %w", &HTTPError{StatusCode: 500}), want: CategoryTransient},
		{name: "http error 429", err: &HTTPError{StatusCode: 429}, want: CategoryRateLimit},
		{name: "503 in message", err: errors.New("upstream returned 503"), want: CategoryTransient},
		{name: "typed empty response", err: New(CodeEmptyResponse, "no text"), want: CategoryEmptyResponse},
		{name: "typed rate limit", err: New(CodeRateLimited, "busy"), want: CategoryRateLimit},
		{name: "validation", err: Validation("style is required"), want: CategoryOther},
		{name: "plain failure", err: errors.New("boom"), want: CategoryOther},
		{name: "number inside word is not a status", err: errors.New("model v4290 failed"), want: CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestErrorIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", Wrap(CodeTimeout, "video generation timed out", context.DeadlineExceeded))

	assert.True(t, errors.Is(err, ErrTimeout))
	assert.False(t, errors.Is(err, ErrValidation))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, "outer: video generation timed out", err.Error())
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "validation", err: Validation("missing field"), want: http.StatusBadRequest},
		{name: "invalid phase", err: New(CodeInvalidPhase, "not playing"), want: http.StatusBadRequest},
		{name: "not found", err: New(CodeNotFound, "no session"), want: http.StatusNotFound},
		{name: "timeout", err: New(CodeTimeout, "too slow"), want: http.StatusGatewayTimeout},
		{name: "deadline", err: fmt.Errorf("image: %w", context.DeadlineExceeded), want: http.StatusGatewayTimeout},
		{name: "quota", err: errors.New("quota exceeded"), want: http.StatusTooManyRequests},
		{name: "generation wrapping quota", err: Wrap(CodeGeneration, "failed after 3 attempts: 429", nil), want: http.StatusTooManyRequests},
		{name: "extraction", err: New(CodeExtraction, "no array"), want: http.StatusBadGateway},
		{name: "upstream unavailable", err: New(CodeTransient, "overloaded"), want: http.StatusBadGateway},
		{name: "generic", err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}
