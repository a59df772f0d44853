package livechat

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
)

const defaultErrorMessage = "Request failed"

var (
	ErrNotFound       = errors.New("livechat: key not found")
	ErrInvalidRating  = errors.New("livechat: rating must be 0 or 1")
	ErrUnknownMessage = errors.New("livechat: no rateable message at that index")
	ErrEmptyMessage   = errors.New("livechat: message text is empty")
	ErrClosed         = errors.New("livechat: conversation is closed")
	ErrStarted        = errors.New("livechat: conversation already started")
)

// APIError is the single error shape every API call is normalized to before
// it reaches UI-facing code.
type APIError struct {
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// normalizeError picks the most useful human-readable message: the response
// body message, then the HTTP status text, then the underlying error, then a
// generic fallback.
func normalizeError(status int, body []byte, err error) *APIError {
	msg := messageFromBody(body)
	if msg == "" && status >= http.StatusBadRequest {
		msg = http.StatusText(status)
	}
	if msg == "" && err != nil {
		msg = err.Error()
	}
	if msg == "" {
		msg = defaultErrorMessage
	}
	return &APIError{Status: status, Message: msg, Err: err}
}

func messageFromBody(body []byte) string {
	if len(bytes.TrimSpace(body)) == 0 {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}
