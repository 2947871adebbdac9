package llm

import (
	"time"
)

// CompletionStatus is the outcome class of one provider call.
type CompletionStatus int

const (
	CompletionSuccess CompletionStatus = iota
	CompletionRateLimited
	CompletionFatal
)

func (s CompletionStatus) String() string {
	switch s {
	case CompletionSuccess:
		return "success"
	case CompletionRateLimited:
		return "rate_limited"
	default:
		return "fatal"
	}
}

// Completion is the result of one provider call as a value.
// Content is set on success, RetryAfter on rate limiting (0 when the
// provider gave no hint), Err otherwise.
type Completion struct {
	Status     CompletionStatus
	Content    string
	RetryAfter time.Duration
	Err        error
	Truncated  bool
}

// NewCompletion converts a client response into a Completion.
func NewCompletion(result *GenerateResponseResult, err error) Completion {
	if err != nil {
		llmErr := ClassifyError(err)
		if llmErr.Type == ErrorTypeRateLimited {
			return Completion{Status: CompletionRateLimited, Err: llmErr, RetryAfter: llmErr.RetryAfter}
		}
		return Completion{Status: CompletionFatal, Err: llmErr}
	}
	if result == nil {
		return Completion{Status: CompletionFatal, Err: NewError(ErrorTypeResponse, "empty response", false, nil)}
	}
	return Completion{Status: CompletionSuccess, Content: result.Content, Truncated: result.Truncated}
}
