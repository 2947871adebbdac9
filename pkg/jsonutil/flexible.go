package jsonutil

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FlexibleStringValue converts a json.RawMessage to a string, handling cases where
// the oracle returns numbers or booleans instead of strings. Returns empty string for null/empty.
func FlexibleStringValue(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var strVal string
	if err := json.Unmarshal(raw, &strVal); err == nil {
		return strVal
	}

	var numVal float64
	if err := json.Unmarshal(raw, &numVal); err == nil {
		if numVal == float64(int64(numVal)) {
			return fmt.Sprintf("%d", int64(numVal))
		}
		return fmt.Sprintf("%g", numVal)
	}

	var boolVal bool
	if err := json.Unmarshal(raw, &boolVal); err == nil {
		return fmt.Sprintf("%t", boolVal)
	}

	return string(raw)
}

// FlexibleString is a string field that also accepts JSON numbers and booleans.
// Query ids come back from the oracle as either 3 or "3".
type FlexibleString string

func (f *FlexibleString) UnmarshalJSON(data []byte) error {
	*f = FlexibleString(FlexibleStringValue(data))
	return nil
}

// StatementText extracts SQL text from an element that is either a bare string
// or an object carrying the text under one of the given keys.
func StatementText(raw json.RawMessage, keys ...string) (string, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return "", nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", fmt.Errorf("expected string or object, got %s", TruncateRaw(raw, 40))
	}
	if v, ok := Field(obj, keys...); ok {
		return FlexibleStringValue(v), nil
	}
	return "", fmt.Errorf("object has none of the keys %v", keys)
}

// Field returns the value of the first key present in obj, matched case-insensitively.
func Field(obj map[string]json.RawMessage, keys ...string) (json.RawMessage, bool) {
	for _, k := range keys {
		for objKey, v := range obj {
			if strings.EqualFold(objKey, k) {
				return v, true
			}
		}
	}
	return nil, false
}

// TruncateRaw renders at most n bytes of a raw JSON value for error messages.
func TruncateRaw(raw json.RawMessage, n int) string {
	if len(raw) <= n {
		return string(raw)
	}
	return string(raw[:n]) + "..."
}
