package api

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FieldError is a single field-level validation failure reported by the
// backend.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the normalized shape of every non-2xx backend response. Detail
// holds the human-readable message; Fields holds per-field validation
// failures when the backend reports them. RequestID echoes the tracing
// header attached to the failed request.
type Error struct {
	Status    int
	Detail    string
	Fields    []FieldError
	RequestID string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api: %d %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("api: unexpected status %d", e.Status)
}

// Unauthorized reports whether the error is the expired-session status.
func (e *Error) Unauthorized() bool {
	return e.Status == statusUnauthorized
}

// Unwrap lets errors.Is match 401 responses against [ErrUnauthorized].
func (e *Error) Unwrap() error {
	if e.Status == statusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

const statusUnauthorized = 401

// errorBody covers the backend's error envelope. Detail is either a plain
// string or a list of located validation messages; both decode through
// json.RawMessage.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

type validationItem struct {
	Loc []json.RawMessage `json:"loc"`
	Msg string            `json:"msg"`
}

// decodeError builds a normalized *Error from a raw response body. Bodies
// that are not the expected envelope still yield a usable error carrying the
// status and the raw text.
func decodeError(status int, requestID string, body []byte) *Error {
	out := &Error{Status: status, RequestID: requestID}

	var envelope errorBody
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		out.Detail = strings.TrimSpace(string(body))
		return out
	}

	var detail string
	if err := json.Unmarshal(envelope.Detail, &detail); err == nil {
		out.Detail = detail
		return out
	}

	var items []validationItem
	if err := json.Unmarshal(envelope.Detail, &items); err == nil {
		for _, item := range items {
			out.Fields = append(out.Fields, FieldError{
				Field:   locField(item.Loc),
				Message: item.Msg,
			})
		}
		if len(out.Fields) > 0 {
			out.Detail = out.Fields[0].Message
		}
		return out
	}

	out.Detail = strings.TrimSpace(string(envelope.Detail))
	return out
}

// locField extracts the field name from a validation location path, skipping
// the leading source segment ("body", "query") when present.
func locField(loc []json.RawMessage) string {
	var parts []string
	for _, raw := range loc {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			parts = append(parts, s)
			continue
		}
		var n int
		if err := json.Unmarshal(raw, &n); err == nil {
			parts = append(parts, fmt.Sprintf("%d", n))
		}
	}
	if len(parts) > 1 && (parts[0] == "body" || parts[0] == "query" || parts[0] == "path") {
		parts = parts[1:]
	}
	return strings.Join(parts, ".")
}
