package apierror

import (
	"encoding/json"
	"fmt"
	"net/http"
)

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("[%d] %s: %s", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

func New(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

func WithDetail(code int, message, detail string) *Error {
	return &Error{Code: code, Message: message, Detail: detail}
}

func NotFound(resource string) *Error {
	return New(404, fmt.Sprintf("%s not found", resource))
}

func BadRequest(message string) *Error {
	return New(400, message)
}

func Internal(message string) *Error {
	return New(500, message)
}

func Unauthorized(message string) *Error {
	return New(401, message)
}

func Forbidden(message string) *Error {
	return New(403, message)
}

func TooLarge(message string) *Error {
	return New(413, message)
}

func TooManyRequests(message string) *Error {
	return New(429, message)
}

func GatewayTimeout(message string) *Error {
	return New(504, message)
}

// Write renders e as the JSON response body with e.Code as the status.
func Write(w http.ResponseWriter, e *Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   e,
	})
}
