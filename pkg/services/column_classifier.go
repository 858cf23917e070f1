package services

import (
	"regexp"

	"github.com/jotabap/web-conversor/pkg/models"
)

const (
	// classifierSample is how many non-null values pattern checks inspect.
	classifierSample = 10
	// classifierMatchPercent is the share of the sample a pattern must match.
	classifierMatchPercent = 70
)

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	urlPattern   = regexp.MustCompile(`^https?://`)
	phonePattern = regexp.MustCompile(`^\+?[1-9]\d{3,14}$`)
)

// semanticPatterns are tried in order; the first match wins. Email runs
// before phone so numeric-looking local parts are not read as phones.
var semanticPatterns = []struct {
	semantic models.SemanticType
	pattern  *regexp.Regexp
}{
	{models.SemanticEmail, emailPattern},
	{models.SemanticURL, urlPattern},
	{models.SemanticPhone, phonePattern},
}

// ClassifyColumn infers the semantic type of column c. Columns stored as
// numbers, dates or booleans map directly; other columns are matched against
// the email, URL and phone patterns.
func ClassifyColumn(ds *models.Dataset, c int) models.SemanticType {
	switch ds.ColumnKind(c) {
	case models.KindNumber:
		return models.SemanticNumeric
	case models.KindDate:
		return models.SemanticDatetime
	case models.KindBool:
		return models.SemanticBoolean
	}

	sample := ds.NonNull(c, classifierSample)
	if len(sample) == 0 {
		return models.SemanticText
	}
	for _, sp := range semanticPatterns {
		if matchesShare(sample, sp.pattern) {
			return sp.semantic
		}
	}
	return models.SemanticText
}

// ClassifyColumns classifies every column by name. With duplicate names the
// last column wins.
func ClassifyColumns(ds *models.Dataset) map[string]models.SemanticType {
	out := make(map[string]models.SemanticType, ds.Width())
	for c, name := range ds.Columns() {
		out[name] = ClassifyColumn(ds, c)
	}
	return out
}

// matchesShare reports whether at least classifierMatchPercent of the sample
// are text values matching pattern. Non-text values never match.
func matchesShare(sample []models.Value, pattern *regexp.Regexp) bool {
	matches := 0
	for _, v := range sample {
		if text, ok := v.TextValue(); ok && pattern.MatchString(text) {
			matches++
		}
	}
	return matches*100 >= len(sample)*classifierMatchPercent
}
