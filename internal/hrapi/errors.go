package hrapi

import (
	"encoding/json"
	"errors"
	"sort"
	"strings"
)

const (
	defaultErrorMessage      = "An error occurred"
	defaultUnexpectedMessage = "An unexpected error occurred"
)

// Kind classifies where a failure came from.
type Kind int

const (
	// KindRejected: the backend answered and refused the request, either with
	// a non-2xx status or with a success=false envelope.
	KindRejected Kind = iota + 1
	// KindUnreachable: the request went out and no response came back.
	KindUnreachable
	// KindUnexpected: a local failure before or after the round trip.
	KindUnexpected
)

func (k Kind) String() string {
	switch k {
	case KindRejected:
		return "rejected"
	case KindUnreachable:
		return "unreachable"
	case KindUnexpected:
		return "unexpected"
	default:
		return "unknown"
	}
}

// Error is the single shape every failed call is reported as.
type Error struct {
	Kind    Kind
	Message string
	// Status is the HTTP status of a non-2xx or truncated response, 0 otherwise.
	Status int
	Errors FieldErrors
	Err    error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// FieldErrors holds field-level validation messages keyed by field name.
type FieldErrors map[string][]string

// Flatten joins every message with ", ", ordered by field name.
func (f FieldErrors) Flatten() string {
	if len(f) == 0 {
		return ""
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		for _, msg := range f[k] {
			if msg = strings.TrimSpace(msg); msg != "" {
				parts = append(parts, msg)
			}
		}
	}
	return strings.Join(parts, ", ")
}

// AsError extracts an *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

func KindOf(err error) Kind {
	if apiErr, ok := AsError(err); ok {
		return apiErr.Kind
	}
	return 0
}

// Message picks the text a page should show for err: the backend message,
// then the flattened field errors, then the error text, then fallback.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}
	if apiErr, ok := AsError(err); ok {
		if msg := strings.TrimSpace(apiErr.Message); msg != "" {
			return msg
		}
		if flat := apiErr.Errors.Flatten(); flat != "" {
			return flat
		}
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return fallback
}

// IsAlreadyExists reports whether the backend refused a duplicate record.
func IsAlreadyExists(err error) bool {
	apiErr, ok := AsError(err)
	if !ok || apiErr.Kind != KindRejected {
		return false
	}
	return strings.Contains(apiErr.Message, "already exists") ||
		strings.Contains(apiErr.Errors.Flatten(), "already exists")
}

func rejected(status int, message string, fields FieldErrors) *Error {
	if strings.TrimSpace(message) == "" {
		message = defaultErrorMessage
	}
	return &Error{Kind: KindRejected, Status: status, Message: message, Errors: fields}
}

func unreachable(baseURL string, cause error) *Error {
	return &Error{
		Kind:    KindUnreachable,
		Message: "Cannot connect to server. Please check if backend is running at " + baseURL,
		Err:     cause,
	}
}

func unexpected(cause error) *Error {
	message := defaultUnexpectedMessage
	if cause != nil && strings.TrimSpace(cause.Error()) != "" {
		message = cause.Error()
	}
	return &Error{Kind: KindUnexpected, Message: message, Err: cause}
}

// parseFieldErrors accepts the shapes backends use for "errors": an object of
// strings or string lists (possibly nested), a list, or a bare string.
func parseFieldErrors(raw json.RawMessage) FieldErrors {
	if isNull(raw) {
		return nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil {
		out := FieldErrors{}
		for key, value := range obj {
			if msgs := collectMessages(value); len(msgs) > 0 {
				out[key] = msgs
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	}
	if msgs := collectMessages(raw); len(msgs) > 0 {
		return FieldErrors{"": msgs}
	}
	return nil
}

func collectMessages(raw json.RawMessage) []string {
	if isNull(raw) {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s = strings.TrimSpace(s); s != "" {
			return []string{s}
		}
		return nil
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		var out []string
		for _, item := range list {
			out = append(out, collectMessages(item)...)
		}
		return out
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil {
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var out []string
		for _, k := range keys {
			out = append(out, collectMessages(obj[k])...)
		}
		return out
	}
	return []string{strings.TrimSpace(string(raw))}
}

func isNull(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed == "" || trimmed == "null"
}
