package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNoJSON is returned when a response has no {...} span at all.
var ErrNoJSON = errors.New("no JSON object found in response")

// thinkTagPattern matches <think>...</think> tags that may appear at the start of LLM responses.
var thinkTagPattern = regexp.MustCompile(`(?s)^[\s]*<think>.*?</think>[\s]*`)

// ExtractJSON returns the span from the first '{' to the last '}' of an LLM
// response, after stripping a leading <think> block. Prose and markdown
// fences around the object are tolerated. The span is not validated.
func ExtractJSON(response string) (string, error) {
	cleaned := thinkTagPattern.ReplaceAllString(response, "")

	start := strings.IndexByte(cleaned, '{')
	end := strings.LastIndexByte(cleaned, '}')
	if start < 0 || end <= start {
		return "", ErrNoJSON
	}
	return cleaned[start : end+1], nil
}

// ParseJSONResponse extracts the JSON object from a response and unmarshals it into the target.
// It returns ErrNoJSON when there is no object span, or a wrapped decode error.
func ParseJSONResponse[T any](response string) (T, error) {
	var result T

	jsonStr, err := ExtractJSON(response)
	if err != nil {
		return result, err
	}

	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return result, fmt.Errorf("unmarshal JSON: %w", err)
	}

	return result, nil
}
