package backend

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

// HTTPError is returned for any non-2xx response.
type HTTPError struct {
	Method     string
	Path       string
	StatusCode int
	// Detail is the backend's error message when the body carried one.
	Detail string
	Body   string
}

// maxBodyRunes bounds how much of an unstructured error body is shown.
const maxBodyRunes = 200

func newHTTPError(method, path string, status int, body []byte) *HTTPError {
	e := &HTTPError{Method: method, Path: path, StatusCode: status, Body: string(body)}
	if gjson.ValidBytes(body) {
		for _, key := range []string{"detail", "error", "message"} {
			if v := gjson.GetBytes(body, key); v.Type == gjson.String && v.Str != "" {
				e.Detail = v.Str
				break
			}
		}
	}
	return e
}

func (e *HTTPError) Error() string {
	msg := e.Detail
	if msg == "" {
		msg = strings.TrimSpace(e.Body)
		if utf8.RuneCountInString(msg) > maxBodyRunes {
			msg = string([]rune(msg)[:maxBodyRunes]) + "..."
		}
	}
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%s %s: backend returned status %d: %s", e.Method, e.Path, e.StatusCode, msg)
}

// MutationError is returned when a mutation endpoint answers success=false.
type MutationError struct {
	Action   string
	Message  string
	Warnings []string
}

func (e *MutationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s rejected by backend", e.Action)
	}
	return fmt.Sprintf("%s rejected by backend: %s", e.Action, e.Message)
}

// SchemaError is returned when a response does not match its schema.
type SchemaError struct {
	Endpoint string
	Err      error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("invalid response from %s: %v", e.Endpoint, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.StatusCode
	}
	return 0
}
