package response

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse defines the structure for JSON error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// JSON sends a standard JSON response. The returned error comes from encoding the
// body, after the header has already been written.
func JSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response.
func Error(w http.ResponseWriter, statusCode int, message string) {
	_ = JSON(w, statusCode, ErrorResponse{Error: message})
}
