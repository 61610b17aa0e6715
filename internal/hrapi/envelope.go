package hrapi

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// normalize turns a received response into the unwrapped payload or a
// KindRejected error. Bodies without a "success" key pass through unchanged.
func normalize(status int, body []byte) (json.RawMessage, error) {
	if status < 200 || status > 299 {
		return nil, rejectedFromStatus(status, body)
	}

	obj, ok := asObject(body)
	if !ok {
		return json.RawMessage(body), nil
	}
	success, ok := obj["success"]
	if !ok {
		return json.RawMessage(body), nil
	}
	if truthy(success) {
		data, ok := obj["data"]
		if !ok {
			return json.RawMessage("null"), nil
		}
		return data, nil
	}
	return nil, rejected(0, stringValue(obj["message"]), parseFieldErrors(obj["errors"]))
}

func rejectedFromStatus(status int, body []byte) *Error {
	transportMessage := "Request failed with status code " + strconv.Itoa(status)

	obj, ok := asObject(body)
	if !ok {
		return rejected(status, transportMessage, nil)
	}
	fields := parseFieldErrors(obj["errors"])
	message := stringValue(obj["message"])
	if message == "" {
		message = fields.Flatten()
	}
	if message == "" {
		message = transportMessage
	}
	return rejected(status, message, fields)
}

func asObject(body []byte) (map[string]json.RawMessage, bool) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, false
	}
	return obj, true
}

// stringValue returns raw as text when it is a JSON string, or the flattened
// messages of any other non-null value.
func stringValue(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return strings.Join(collectMessages(raw), ", ")
}

// truthy mirrors JavaScript truthiness for a decoded JSON value.
func truthy(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	switch trimmed {
	case "", "null", "false", `""`:
		return false
	case "true":
		return true
	}
	switch trimmed[0] {
	case '{', '[':
		return true
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return false
		}
		return s != ""
	}
	n, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return false
	}
	return n != 0
}
