package tabular

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jotabap/web-conversor/pkg/models"
)

var dateLayouts = []string{
	"2006-01-02",
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// ParseCell types a text cell the way a spreadsheet import would: the empty
// string is null, then boolean, number, ISO date and finally text.
//
// Null-like tokens such as "N/A" or "null" stay text so the issue detector
// can report them. Invalid UTF-8 is replaced with U+FFFD for the same reason.
func ParseCell(raw string) models.Value {
	if raw == "" {
		return models.Null()
	}
	if !utf8.ValidString(raw) {
		raw = strings.ToValidUTF8(raw, "\uFFFD")
	}

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return models.Text(raw)
	}

	switch strings.ToLower(trimmed) {
	case "true":
		return models.Bool(true)
	case "false":
		return models.Bool(false)
	}

	if looksLikeNumber(trimmed) {
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return models.Number(f)
		}
	}

	if t, ok := parseISOTime(trimmed); ok {
		return models.Date(t)
	}
	return models.Text(raw)
}

// looksLikeNumber rejects inputs ParseFloat accepts but a spreadsheet would
// keep as text: hex floats, "Inf", underscores.
func looksLikeNumber(s string) bool {
	lower := strings.ToLower(s)
	switch strings.TrimLeft(lower, "+-") {
	case "nan", "inf", "infinity":
		return false
	}
	for _, r := range lower {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-', r == '+', r == 'e':
		default:
			return false
		}
	}
	return true
}

// parseISOTime accepts dates and whole-second timestamps. Timestamps with
// fractional seconds stay text: the issue detector reports them as malformed.
func parseISOTime(s string) (time.Time, bool) {
	if len(s) < len("2006-01-02") || s[4] != '-' || strings.Contains(s, ".") {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
