package jsonutil

import (
	"encoding/json"
	"testing"
)

func TestFlexibleStringValue(t *testing.T) {
	tests := []struct {
		name  string
		input json.RawMessage
		want  string
	}{
		{
			name:  "string value",
			input: json.RawMessage(`"hello"`),
			want:  "hello",
		},
		{
			name:  "integer value",
			input: json.RawMessage(`42`),
			want:  "42",
		},
		{
			name:  "float value",
			input: json.RawMessage(`3.14`),
			want:  "3.14",
		},
		{
			name:  "boolean true",
			input: json.RawMessage(`true`),
			want:  "true",
		},
		{
			name:  "boolean false",
			input: json.RawMessage(`false`),
			want:  "false",
		},
		{
			name:  "null value",
			input: json.RawMessage(`null`),
			want:  "",
		},
		{
			name:  "empty raw message",
			input: json.RawMessage{},
			want:  "",
		},
		{
			name:  "nil raw message",
			input: nil,
			want:  "",
		},
		{
			name:  "large integer preserves precision",
			input: json.RawMessage(`9007199254740992`),
			want:  "9007199254740992",
		},
		{
			name:  "nested object falls back to raw string",
			input: json.RawMessage(`{"key":"value"}`),
			want:  `{"key":"value"}`,
		},
		{
			name:  "array falls back to raw string",
			input: json.RawMessage(`[1,2,3]`),
			want:  `[1,2,3]`,
		},
		{
			name:  "negative integer",
			input: json.RawMessage(`-7`),
			want:  "-7",
		},
		{
			name:  "zero",
			input: json.RawMessage(`0`),
			want:  "0",
		},
		{
			name:  "empty string",
			input: json.RawMessage(`""`),
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FlexibleStringValue(tt.input)
			if got != tt.want {
				t.Errorf("FlexibleStringValue(%s) = %q, want %q", string(tt.input), got, tt.want)
			}
		})
	}
}

func TestFlexibleFloat(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantSet bool
		want    float64
	}{
		{"number", `85`, true, 85},
		{"decimal", `92.5`, true, 92.5},
		{"numeric string", `"70"`, true, 70},
		{"percentage string", `"85%"`, true, 85},
		{"padded string", `" 60 "`, true, 60},
		{"null", `null`, false, 0},
		{"word", `"high"`, false, 0},
		{"boolean", `true`, false, 0},
		{"object", `{"value": 1}`, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var payload struct {
				Confidence FlexibleFloat `json:"confidence"`
			}
			if err := json.Unmarshal([]byte(`{"confidence": `+tt.input+`}`), &payload); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if payload.Confidence.Set != tt.wantSet {
				t.Errorf("Set = %v, want %v", payload.Confidence.Set, tt.wantSet)
			}
			if payload.Confidence.Value != tt.want {
				t.Errorf("Value = %v, want %v", payload.Confidence.Value, tt.want)
			}
		})
	}
}

func TestFlexibleFloat_MissingUsesDefault(t *testing.T) {
	var payload struct {
		Confidence FlexibleFloat `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(`{}`), &payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := payload.Confidence.Or(85); got != 85 {
		t.Errorf("Or(85) = %v, want 85", got)
	}
}

func TestFlexibleStrings(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"string array", `["a", "b"]`, []string{"a", "b"}},
		{"mixed scalars", `["a", 2, true]`, []string{"a", "2", "true"}},
		{"objects stringified", `[{"step": "trim"}]`, []string{`{"step": "trim"}`}},
		{"empty entries dropped", `["a", "", null]`, []string{"a"}},
		{"single string", `"only one"`, []string{"only one"}},
		{"null", `null`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var payload struct {
				Items FlexibleStrings `json:"items"`
			}
			if err := json.Unmarshal([]byte(`{"items": `+tt.input+`}`), &payload); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(payload.Items) != len(tt.want) {
				t.Fatalf("got %v, want %v", payload.Items, tt.want)
			}
			for i := range tt.want {
				if payload.Items[i] != tt.want[i] {
					t.Errorf("item %d = %q, want %q", i, payload.Items[i], tt.want[i])
				}
			}
		})
	}
}

func TestFlexibleStringMap(t *testing.T) {
	var payload struct {
		Mapping FlexibleStringMap `json:"mapping"`
	}
	if err := json.Unmarshal([]byte(`{"mapping": {"Amount": "amount", "qty": 3, "skip": null}}`), &payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload.Mapping["Amount"] != "amount" || payload.Mapping["qty"] != "3" || payload.Mapping["skip"] != "" {
		t.Errorf("unexpected mapping %v", payload.Mapping)
	}

	var bad struct {
		Mapping FlexibleStringMap `json:"mapping"`
	}
	if err := json.Unmarshal([]byte(`{"mapping": "not an object"}`), &bad); err != nil {
		t.Fatalf("non-object mapping must not fail decoding: %v", err)
	}
	if len(bad.Mapping) != 0 {
		t.Errorf("expected empty mapping, got %v", bad.Mapping)
	}
}
