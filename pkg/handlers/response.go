package handlers

import (
	"encoding/json"
	"net/http"
	"time"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error     string         `json:"error"`
	Status    string         `json:"status"`
	ErrorCode string         `json:"error_code,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	return ErrorResponseWithDetails(w, statusCode, errorCode, message, nil)
}

// ErrorResponseWithDetails writes a JSON error response carrying extra detail fields.
func ErrorResponseWithDetails(w http.ResponseWriter, statusCode int, errorCode, message string, details map[string]any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(ErrorBody{
		Error:     message,
		Status:    "ERROR",
		ErrorCode: errorCode,
		Details:   details,
		Timestamp: time.Now().UTC(),
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}
