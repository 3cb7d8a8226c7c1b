package httpapi

import (
	"encoding/json"
	"net/http"
)

type errorResponse struct {
	Success bool          `json:"success"`
	Error   responseError `json:"error"`
}

type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type rateLimitedResponse struct {
	Success    bool          `json:"success"`
	Error      responseError `json:"error"`
	RetryAfter int           `json:"retryAfter"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: responseError{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}
