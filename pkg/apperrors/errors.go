package apperrors

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrConfiguration     = errors.New("invalid configuration")
	ErrEngineUnavailable = errors.New("query engine unavailable")
	ErrMissingTemplate   = errors.New("no solution template for detector")
	ErrNoRemediation     = errors.New("no valid remediation produced")
	ErrJobNotFinished    = errors.New("job has not finished")
)
