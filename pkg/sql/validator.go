// Package sql generates and checks the SQL text produced by the Excel-to-SQL
// conversion.
package sql

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMultipleStatements indicates the text contains more than one SQL statement.
	ErrMultipleStatements = errors.New("multiple SQL statements not allowed; only single statements are permitted")

	// ErrEmptyStatement indicates the text is blank after normalisation.
	ErrEmptyStatement = errors.New("empty SQL statement")

	// ErrWrongStatementKind indicates a template that does not start with the
	// expected verb (INSERT for insert templates, UPDATE for update templates).
	ErrWrongStatementKind = errors.New("statement kind does not match the requested SQL type")
)

// ValidationResult contains the normalized SQL and any validation errors.
type ValidationResult struct {
	NormalizedSQL string
	Error         error
}

// ValidateAndNormalize checks SQL for multiple statements and strips the trailing semicolon.
//
// The validation order is:
// 1. Strip trailing semicolon and whitespace (normalize)
// 2. Check for multiple statements (any remaining semicolons outside string literals)
func ValidateAndNormalize(sqlQuery string) ValidationResult {
	sqlQuery = strings.TrimSpace(sqlQuery)
	if sqlQuery == "" {
		return ValidationResult{NormalizedSQL: sqlQuery}
	}

	normalized := stripTrailingSemicolon(sqlQuery)
	if hasSemicolonOutsideStrings(normalized) {
		return ValidationResult{Error: ErrMultipleStatements}
	}
	return ValidationResult{NormalizedSQL: normalized}
}

// ValidateTemplate accepts a statement template returned by the AI provider
// only when it is a single statement of the expected kind ("insert" or
// "update"). Markdown code fences around the statement are removed.
// The returned template carries a trailing semicolon.
func ValidateTemplate(template, sqlType string) (string, error) {
	template = stripCodeFence(template)

	result := ValidateAndNormalize(template)
	if result.Error != nil {
		return "", result.Error
	}
	if result.NormalizedSQL == "" {
		return "", ErrEmptyStatement
	}

	verb := strings.ToUpper(strings.TrimSpace(sqlType))
	fields := strings.Fields(result.NormalizedSQL)
	if !strings.EqualFold(fields[0], verb) {
		return "", fmt.Errorf("%w: expected %s, got %s", ErrWrongStatementKind, verb, strings.ToUpper(fields[0]))
	}
	return result.NormalizedSQL + ";", nil
}

// stripCodeFence removes a surrounding ```sql ... ``` block.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(strings.TrimPrefix(s, "sql"), "SQL")
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

// hasSemicolonOutsideStrings returns true if the SQL contains any semicolon
// outside of string literals and quoted identifiers.
func hasSemicolonOutsideStrings(sqlQuery string) bool {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
		stateBracket
	)

	state := stateNormal
	prevChar := rune(0)

	for _, char := range sqlQuery {
		switch state {
		case stateNormal:
			switch char {
			case ';':
				return true
			case '\'':
				state = stateSingleQuote
			case '"':
				state = stateDoubleQuote
			case '[':
				state = stateBracket
			}
		case stateSingleQuote:
			// A doubled quote ('') exits and immediately re-enters the literal
			if char == '\'' && prevChar != '\\' {
				state = stateNormal
			}
		case stateDoubleQuote:
			if char == '"' && prevChar != '\\' {
				state = stateNormal
			}
		case stateBracket:
			if char == ']' {
				state = stateNormal
			}
		}
		prevChar = char
	}

	return false
}

// stripTrailingSemicolon removes a trailing semicolon and any whitespace after it.
func stripTrailingSemicolon(sqlQuery string) string {
	sqlQuery = strings.TrimRight(sqlQuery, " \t\n\r")
	if strings.HasSuffix(sqlQuery, ";") {
		sqlQuery = strings.TrimSuffix(sqlQuery, ";")
		sqlQuery = strings.TrimRight(sqlQuery, " \t\n\r")
	}
	return sqlQuery
}
