// Package httputil writes the JSON envelope every endpoint responds with:
// {"success": true, "data": ...} or {"success": false, "error": {code, message}}.
package httputil

import (
	"encoding/json"
	"net/http"
)

// Stable error codes surfaced to clients. Handlers pick from this set so the
// frontend can switch on code rather than parse messages.
const (
	CodeValidationError     = "VALIDATION_ERROR"
	CodeEmailExists         = "EMAIL_EXISTS"
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeAccountLocked       = "ACCOUNT_LOCKED"
	CodeInvalidRefreshToken = "INVALID_REFRESH_TOKEN"
	CodeRefreshTokenExpired = "REFRESH_TOKEN_EXPIRED"
	CodeInvalidToken        = "INVALID_TOKEN"
	CodeTokenUsed           = "TOKEN_USED"
	CodeTokenExpired        = "TOKEN_EXPIRED"
	CodeInvalidPassword     = "INVALID_PASSWORD"
	CodeInvalidOperation    = "INVALID_OPERATION"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeNotFound            = "NOT_FOUND"
	CodeRateLimited         = "RATE_LIMITED"
	CodeInternalError       = "INTERNAL_ERROR"
)

type errorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *errorBody  `json:"error,omitempty"`
}

// WriteJSON writes a success envelope with the given payload.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

// WriteError writes a failure envelope with a stable code.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Success: false, Error: &errorBody{Code: code, Message: message}})
}

// WriteErrorDetails is WriteError plus a structured details payload
// (e.g. remaining attempts, unlock timestamp).
func WriteErrorDetails(w http.ResponseWriter, status int, code, message string, details interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Success: false, Error: &errorBody{Code: code, Message: message, Details: details}})
}

// WriteValidationError writes a 400 VALIDATION_ERROR with per-field detail.
func WriteValidationError(w http.ResponseWriter, fields map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(envelope{Success: false, Error: &errorBody{
		Code:    CodeValidationError,
		Message: "validation failed",
		Details: fields,
	}})
}

// WriteInternalError logs nothing itself; callers log the cause and the client
// only ever sees the generic message.
func WriteInternalError(w http.ResponseWriter) {
	WriteError(w, http.StatusInternalServerError, CodeInternalError, "internal server error")
}
