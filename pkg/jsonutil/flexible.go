package jsonutil

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FlexibleStringValue converts a json.RawMessage to a string, handling cases where
// LLMs return numbers or booleans instead of strings. Returns empty string for null/empty.
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

	// Objects and arrays keep their compact JSON text
	return string(raw)
}

// FlexibleFloat decodes a number that a model may send as a number, a numeric
// string, or a percentage string ("85%"). Set is false when the field was
// absent, null or unparsable, so callers can apply their own default.
type FlexibleFloat struct {
	Value float64
	Set   bool
}

// UnmarshalJSON implements json.Unmarshaler. It never fails on odd values.
func (f *FlexibleFloat) UnmarshalJSON(raw []byte) error {
	f.Value, f.Set = 0, false

	s := strings.TrimSpace(FlexibleStringValue(raw))
	s = strings.TrimSuffix(s, "%")
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil
	}
	f.Value, f.Set = v, true
	return nil
}

// Or returns the decoded value, or def when nothing usable was decoded.
func (f FlexibleFloat) Or(def float64) float64 {
	if f.Set {
		return f.Value
	}
	return def
}

// FlexibleStrings decodes a list of strings from an array of mixed scalars
// and objects, or from a single string.
type FlexibleStrings []string

// UnmarshalJSON implements json.Unmarshaler.
func (s *FlexibleStrings) UnmarshalJSON(raw []byte) error {
	*s = nil
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil
	}

	if strings.HasPrefix(trimmed, "[") {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return err
		}
		out := make([]string, 0, len(items))
		for _, item := range items {
			if v := FlexibleStringValue(item); v != "" {
				out = append(out, v)
			}
		}
		*s = out
		return nil
	}

	if v := FlexibleStringValue(raw); v != "" {
		*s = FlexibleStrings{v}
	}
	return nil
}

// FlexibleStringMap decodes an object whose values may be any JSON type into
// string values. Non-object input decodes to an empty map.
type FlexibleStringMap map[string]string

// UnmarshalJSON implements json.Unmarshaler.
func (m *FlexibleStringMap) UnmarshalJSON(raw []byte) error {
	*m = nil
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil
	}
	out := make(FlexibleStringMap, len(obj))
	for k, v := range obj {
		out[k] = FlexibleStringValue(v)
	}
	*m = out
	return nil
}
