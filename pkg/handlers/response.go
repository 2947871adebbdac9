package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Vvil1568/lct-hackathone/pkg/apperrors"
)

// ErrorBody is the error payload of every endpoint. Error carries the
// message, matching the batch output's {"error": ...} shape.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(ErrorBody{Error: message, Code: errorCode})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// statusFor maps application errors to HTTP status and error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, apperrors.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperrors.ErrJobNotFinished):
		return http.StatusConflict, "not_finished"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// WriteError writes err with the status its sentinel maps to.
func WriteError(w http.ResponseWriter, err error) error {
	status, code := statusFor(err)
	return ErrorResponse(w, status, code, err.Error())
}
