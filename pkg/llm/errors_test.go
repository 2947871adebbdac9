package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vvil1568/lct-hackathone/pkg/retry"
)

func TestError_Error(t *testing.T) {
	err := &Error{Type: ErrorTypeEndpoint, Message: "server error", StatusCode: 503, Model: "gpt-4o", Cause: errors.New("boom")}
	assert.Equal(t, "endpoint HTTP 503 model=gpt-4o server error: boom", err.Error())

	minimal := NewError(ErrorTypeUnknown, "llm error", false, nil)
	assert.Equal(t, "unknown llm error", minimal.Error())
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantType  ErrorType
		retryable bool
		status    int
	}{
		{"unauthorized", errors.New("status 401 unauthorized"), ErrorTypeAuth, false, 401},
		{"model missing", errors.New("model qwen3 does not exist"), ErrorTypeModel, false, 0},
		{"not found", errors.New("HTTP 404 page not found"), ErrorTypeEndpoint, false, 404},
		{"rate limited", errors.New("HTTP 429 Too Many Requests"), ErrorTypeRateLimited, true, 429},
		{"rate limit text", errors.New("rate limit exceeded"), ErrorTypeRateLimited, true, 0},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), ErrorTypeEndpoint, true, 0},
		{"cancelled", fmt.Errorf("call: %w", context.Canceled), ErrorTypeEndpoint, false, 0},
		{"connection refused", errors.New("dial tcp: connection refused"), ErrorTypeEndpoint, true, 0},
		{"gpu", errors.New("CUDA error: out of memory"), ErrorTypeEndpoint, true, 0},
		{"server error", errors.New("status: 502 bad gateway"), ErrorTypeEndpoint, true, 502},
		{"unknown", errors.New("something odd"), ErrorTypeUnknown, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyError(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantType, got.Type)
			assert.Equal(t, tt.retryable, got.Retryable)
			assert.Equal(t, tt.status, got.StatusCode)
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestClassifyError_Nil(t *testing.T) {
	assert.Nil(t, ClassifyError(nil))
}

func TestClassifyError_PreservesExistingError(t *testing.T) {
	original := NewError(ErrorTypeAuth, "custom", false, nil)
	wrapped := fmt.Errorf("outer: %w", original)
	assert.Same(t, original, ClassifyError(wrapped))
}

func TestError_SatisfiesRetryPackage(t *testing.T) {
	assert.True(t, retry.IsRetryable(NewError(ErrorTypeRateLimited, "rate limited", true, nil)))
	assert.False(t, retry.IsRetryable(NewError(ErrorTypeAuth, "auth", false, nil)))
	assert.True(t, IsRetryable(fmt.Errorf("x: %w", NewError(ErrorTypeEndpoint, "t", true, nil))))
	assert.Equal(t, ErrorTypeAuth, GetErrorType(NewError(ErrorTypeAuth, "auth", false, nil)))
	assert.Equal(t, ErrorTypeUnknown, GetErrorType(errors.New("plain")))
}

func TestExtractStatusCode_Precision(t *testing.T) {
	tests := []struct {
		errStr string
		want   int
	}{
		{"HTTP 503 Service Unavailable", 503},
		{"status 429 rate limited", 429},
		{"status: 500", 500},
		{"code 502 bad gateway", 502},
		{"Status: 404 Not Found", 404},
		{"processed 503 records", 0},
		{"port 5432 connection failed", 0},
		{"error after 429 seconds", 0},
	}

	for _, tt := range tests {
		t.Run(tt.errStr, func(t *testing.T) {
			assert.Equal(t, tt.want, extractStatusCode(tt.errStr))
		})
	}
}
