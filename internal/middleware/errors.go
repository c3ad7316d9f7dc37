package middleware

import (
	"encoding/json"
	"net/http"
)

// errorBody mirrors the handler error shape so every JSON error looks alike.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// WriteJSONError writes {"error": message, "code": code} with status.
func WriteJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: message, Code: code})
}
