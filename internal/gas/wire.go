// Package gas speaks the wire protocol of the Google Apps Script endpoint
// that stores complaint desk data: a single POST of {path, action, data}
// answered by {success, data, error, count}.
package gas

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

type Action string

const (
	ActionGet    Action = "get"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Actions maps HTTP verbs to the remote action. The mapping is part of the
// endpoint contract.
var Actions = map[string]Action{
	http.MethodGet:    ActionGet,
	http.MethodPost:   ActionCreate,
	http.MethodPut:    ActionUpdate,
	http.MethodDelete: ActionDelete,
}

// ActionFor returns the remote action for method.
func ActionFor(method string) (Action, bool) {
	a, ok := Actions[strings.ToUpper(method)]
	return a, ok
}

type Request struct {
	Path   string `json:"path"`
	Action Action `json:"action"`
	Data   any    `json:"data"`
}

type Response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Count   *int            `json:"count,omitempty"`
}

const excerptLen = 200

// excerpt keeps at most excerptLen bytes of b, cut on a rune boundary.
func excerpt(b []byte) string {
	if len(b) <= excerptLen {
		return string(b)
	}
	cut := excerptLen
	for cut > 0 && !utf8.RuneStart(b[cut]) {
		cut--
	}
	return string(b[:cut]) + "..."
}

// StatusError is a non-2xx answer from the endpoint.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.Code)
}

// HTTPStatus lets the retry controller classify the failure.
func (e *StatusError) HTTPStatus() int {
	return e.Code
}

// ParseError is a 2xx answer whose body is not the expected JSON.
type ParseError struct {
	Excerpt string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid JSON response: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// TooLargeError is a body over the read limit. Retrying returns the same body.
type TooLargeError struct {
	Limit int64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("response too large: exceeds %d bytes", e.Limit)
}

// Permanent marks the failure as not worth another attempt.
func (e *TooLargeError) Permanent() bool {
	return true
}
