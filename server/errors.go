package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"ncmbridge/logger"
)

// apiError carries an HTTP status alongside a human-readable message. Every
// other failure reaching writeError surfaces as 502 with the error text;
// stack traces never leave the process.
type apiError struct {
	status  int
	message string
}

func (e *apiError) Error() string {
	return e.message
}

func badRequest(message string) *apiError {
	return &apiError{status: http.StatusBadRequest, message: message}
}

func unauthorized(message string) *apiError {
	return &apiError{status: http.StatusUnauthorized, message: message}
}

func notFound(message string) *apiError {
	return &apiError{status: http.StatusNotFound, message: message}
}

// writeError is the single error-to-HTTP translation point.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	var ae *apiError
	if errors.As(err, &ae) {
		status = ae.status
	}
	logger.Error("request failed",
		logger.Int("status", status),
		logger.ErrorField(err))
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", logger.ErrorField(err))
	}
}
