package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Error is a structured error returned by the gateway with a non-2xx status.
// Message, type and code are surfaced verbatim to the caller.
type Error struct {
	StatusCode int    `json:"-"`
	Message    string `json:"message"`
	Type       string `json:"type,omitempty"`
	Code       string `json:"code,omitempty"`
}

func (e *Error) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("gateway error (%s): %s", e.Type, e.Message)
	}
	return fmt.Sprintf("gateway error: %s", e.Message)
}

// errorEnvelope is the OpenAI-style error body wrapper.
type errorEnvelope struct {
	Error *Error `json:"error"`
}

// ParseErrorBody maps a non-2xx response body to an *Error. Bodies that are
// not the standard envelope are surfaced raw so the caller still sees what
// the gateway said.
func ParseErrorBody(statusCode int, body []byte) *Error {
	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil && envelope.Error.Message != "" {
		envelope.Error.StatusCode = statusCode
		return envelope.Error
	}
	message := strings.TrimSpace(string(body))
	if message == "" {
		message = http.StatusText(statusCode)
	}
	return &Error{
		StatusCode: statusCode,
		Message:    message,
	}
}
