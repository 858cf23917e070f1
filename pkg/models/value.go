package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ============================================================================
// Cell Values
// ============================================================================

// ValueKind tags the dynamic type carried by a Value.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindNumber
	KindText
	KindBool
	KindDate
	// KindNested holds a JSON object or array that arrived inside a cell.
	// Only the JSON input path produces it; tabular files never do.
	KindNested
)

// String returns the lowercase name of the kind.
func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindBool:
		return "boolean"
	case KindDate:
		return "date"
	case KindNested:
		return "nested"
	default:
		return "unknown"
	}
}

// Value is a single dataset cell. The zero value is null.
type Value struct {
	kind   ValueKind
	num    float64
	text   string
	b      bool
	t      time.Time
	nested any
}

// Null returns a null cell.
func Null() Value { return Value{} }

// Number returns a numeric cell. NaN and infinities become null so the
// value always survives JSON encoding.
func Number(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}
	}
	return Value{kind: KindNumber, num: f}
}

// Text returns a text cell.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Bool returns a boolean cell.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Date returns a date cell.
func Date(t time.Time) Value { return Value{kind: KindDate, t: t} }

// Nested returns a cell holding a decoded JSON object or array.
func Nested(v any) Value { return Value{kind: KindNested, nested: v} }

// Kind returns the tag of the value.
func (v Value) Kind() ValueKind { return v.kind }

// IsNull reports whether the cell is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Float returns the numeric payload.
func (v Value) Float() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.num, true
}

// TextValue returns the text payload.
func (v Value) TextValue() (string, bool) {
	if v.kind != KindText {
		return "", false
	}
	return v.text, true
}

// BoolValue returns the boolean payload.
func (v Value) BoolValue() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// Time returns the date payload.
func (v Value) Time() (time.Time, bool) {
	if v.kind != KindDate {
		return time.Time{}, false
	}
	return v.t, true
}

// LooksNumeric reports whether the cell is a number or text that parses as one.
// Booleans, dates and nested values are never numeric.
func (v Value) LooksNumeric() bool {
	switch v.kind {
	case KindNumber:
		return true
	case KindText:
		_, err := strconv.ParseFloat(strings.TrimSpace(v.text), 64)
		return err == nil
	default:
		return false
	}
}

// String renders the cell the way it would appear in a text column.
// Null renders as the empty string.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return FormatNumber(v.num)
	case KindText:
		return v.text
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindDate:
		if v.t.Hour() == 0 && v.t.Minute() == 0 && v.t.Second() == 0 && v.t.Nanosecond() == 0 {
			return v.t.Format("2006-01-02")
		}
		return v.t.Format(time.RFC3339)
	case KindNested:
		raw, err := json.Marshal(v.nested)
		if err != nil {
			return fmt.Sprint(v.nested)
		}
		return string(raw)
	default:
		return ""
	}
}

// Equal reports whether two cells carry the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindNumber:
		return v.num == o.num
	case KindText:
		return v.text == o.text
	case KindBool:
		return v.b == o.b
	case KindDate:
		return v.t.Equal(o.t)
	default:
		return v.String() == o.String()
	}
}

// Interface converts the cell to a plain Go value suitable for encoding/json.
func (v Value) Interface() any {
	switch v.kind {
	case KindNumber:
		return v.num
	case KindText:
		return v.text
	case KindBool:
		return v.b
	case KindDate:
		return v.String()
	case KindNested:
		return v.nested
	default:
		return nil
	}
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// FormatNumber renders integral floats without a decimal part.
func FormatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ValueFromAny converts a decoded JSON value into a cell.
func ValueFromAny(raw any) Value {
	switch t := raw.(type) {
	case nil:
		return Null()
	case float64:
		return Number(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Text(t.String())
		}
		return Number(f)
	case int:
		return Number(float64(t))
	case int64:
		return Number(float64(t))
	case string:
		return Text(t)
	case bool:
		return Bool(t)
	case time.Time:
		return Date(t)
	case Value:
		return t
	default:
		return Nested(t)
	}
}
