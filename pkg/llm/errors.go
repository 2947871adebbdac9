package llm

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrorType classifies oracle failures.
type ErrorType string

const (
	ErrorTypeEndpoint    ErrorType = "endpoint"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeModel       ErrorType = "model"
	ErrorTypeRateLimited ErrorType = "rate_limited"
	ErrorTypeResponse    ErrorType = "response" // reply was not a usable remediation
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error represents a structured LLM error with classification.
type Error struct {
	Type       ErrorType
	Message    string
	Retryable  bool
	Cause      error
	StatusCode int // HTTP status code if applicable
	Model      string
	Endpoint   string
	// RetryAfter is the provider's back-off hint on rate limiting, 0 when none was sent.
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	var parts []string
	parts = append(parts, string(e.Type))

	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("HTTP %d", e.StatusCode))
	}
	if e.Model != "" {
		parts = append(parts, fmt.Sprintf("model=%s", e.Model))
	}

	parts = append(parts, e.Message)

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", strings.Join(parts, " "), e.Cause)
	}
	return strings.Join(parts, " ")
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// IsRetryable implements retry.RetryableError.
func (e *Error) IsRetryable() bool {
	return e.Retryable
}

// NewError creates a new structured LLM error.
func NewError(errType ErrorType, message string, retryable bool, cause error) *Error {
	return &Error{
		Type:      errType,
		Message:   message,
		Retryable: retryable,
		Cause:     cause,
	}
}

// statusCodePattern only accepts codes introduced by HTTP, status or code,
// so "processed 503 records" or "port 5432" do not match.
var statusCodePattern = regexp.MustCompile(`(?i)\b(?:http|status|code)[:\s]+([1-5]\d{2})\b`)

func extractStatusCode(s string) int {
	m := statusCodePattern.FindStringSubmatch(s)
	if len(m) < 2 {
		return 0
	}
	code, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return code
}

// classifyStatus maps an HTTP status to an Error.
func classifyStatus(code int, cause error) *Error {
	var llmErr *Error
	switch {
	case code == 401 || code == 403:
		llmErr = NewError(ErrorTypeAuth, "authentication failed", false, cause)
	case code == 404:
		llmErr = NewError(ErrorTypeEndpoint, "endpoint not found", false, cause)
	case code == 429:
		llmErr = NewError(ErrorTypeRateLimited, "rate limited", true, cause)
	case code >= 500:
		llmErr = NewError(ErrorTypeEndpoint, "server error", true, cause)
	default:
		llmErr = NewError(ErrorTypeUnknown, "llm error", false, cause)
	}
	llmErr.StatusCode = code
	return llmErr
}

// ClassifyError categorizes an error and returns a structured Error.
func ClassifyError(err error) *Error {
	if err == nil {
		return nil
	}

	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr
	}

	errStr := err.Error()
	lower := strings.ToLower(errStr)
	statusCode := extractStatusCode(errStr)

	var result *Error
	switch {
	case statusCode == 401 || strings.Contains(lower, "unauthorized") || strings.Contains(lower, "invalid api key"):
		result = NewError(ErrorTypeAuth, "authentication failed", false, err)
	case strings.Contains(lower, "model") && (strings.Contains(lower, "not found") || strings.Contains(lower, "does not exist")):
		result = NewError(ErrorTypeModel, "model not found", false, err)
	case statusCode == 404:
		result = NewError(ErrorTypeEndpoint, "endpoint not found", false, err)
	case statusCode == 429 || strings.Contains(lower, "rate limit") || strings.Contains(lower, "too many requests"):
		result = NewError(ErrorTypeRateLimited, "rate limited", true, err)
	case errors.Is(err, context.Canceled) || strings.Contains(lower, "context canceled"):
		result = NewError(ErrorTypeEndpoint, "request cancelled", false, err)
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline exceeded"):
		result = NewError(ErrorTypeEndpoint, "request timeout", true, err)
	case strings.Contains(lower, "connection refused") || strings.Contains(lower, "no such host") ||
		strings.Contains(lower, "connection reset"):
		result = NewError(ErrorTypeEndpoint, "connection failed", true, err)
	case strings.Contains(lower, "cuda error") || strings.Contains(lower, "gpu error") ||
		strings.Contains(lower, "out of memory"):
		result = NewError(ErrorTypeEndpoint, "GPU error", true, err)
	case statusCode >= 500:
		result = NewError(ErrorTypeEndpoint, "server error", true, err)
	default:
		result = NewError(ErrorTypeUnknown, "llm error", false, err)
	}
	result.StatusCode = statusCode
	return result
}

// IsRetryable returns true if the error is a retryable *Error.
func IsRetryable(err error) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Retryable
	}
	return false
}

// GetErrorType extracts the ErrorType from an error.
func GetErrorType(err error) ErrorType {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type
	}
	return ErrorTypeUnknown
}
