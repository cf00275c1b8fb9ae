package httpapi

import (
	"encoding/json"
	"net/http"

	"intentd/internal/session"
	"intentd/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

// writeServiceError maps well-known session errors to HTTP status codes and
// returns the status it wrote.
func writeServiceError(w http.ResponseWriter, err error) int {
	status := http.StatusInternalServerError
	switch {
	case session.IsModelNotFound(err):
		status = http.StatusNotFound
	case session.IsBusy(err):
		IncrementBackpressure("generation_in_flight")
		status = http.StatusTooManyRequests
	case session.IsNotReady(err):
		status = http.StatusConflict
	case session.IsIncompatible(err), session.IsBridgeUnavailable(err):
		status = http.StatusServiceUnavailable
	default:
		if he, ok := err.(HTTPError); ok {
			status = he.StatusCode()
		}
	}
	writeJSONError(w, status, err.Error())
	return status
}
