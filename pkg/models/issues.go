package models

import (
	"strings"
)

// ============================================================================
// Issue Tags
// ============================================================================

// IssueTag names one detected data-quality problem. Tags are stable strings:
// usage categorisation matches on substrings, so renaming one changes the
// trigger reason reported to users.
type IssueTag string

const (
	IssueEmptyDataset           IssueTag = "empty_dataframe"
	IssueDuplicateColumnNames   IssueTag = "duplicate_column_names"
	IssueEncoding               IssueTag = "encoding_issues"
	IssueProblematicColumnNames IssueTag = "problematic_column_names"
	IssueExceedsExcelRowLimit   IssueTag = "exceeds_excel_row_limit"
	IssueExceedsExcelColLimit   IssueTag = "exceeds_excel_column_limit"
)

// Tag prefixes for per-column issues.
const (
	prefixMixedTypes      = "mixed_types_in_column_"
	prefixHighMissing     = "high_missing_data_in_columns_"
	prefixMalformed       = "malformed_data_in_column_"
	prefixNested          = "nested_data_in_column_"
	prefixLongText        = "long_text_values_in_column_"
	prefixSQLInjection    = "sql_injection_risk_in_column_"
	prefixSQLIdentifier   = "sql_syntax_invalid_identifier_"
	prefixAnalysisError   = "analysis_error_"
	prefixAIError         = "ai_error_"
	prefixOptimizeFailure = "optimization_error_"
)

// MixedTypesIssue tags a column mixing numeric and non-numeric values.
func MixedTypesIssue(column string) IssueTag { return IssueTag(prefixMixedTypes + column) }

// HighMissingIssue tags every column whose missing ratio exceeds the threshold.
func HighMissingIssue(columns []string) IssueTag {
	return IssueTag(prefixHighMissing + strings.Join(columns, ","))
}

// MalformedIssue tags a text column dense with malformed markers.
func MalformedIssue(column string) IssueTag { return IssueTag(prefixMalformed + column) }

// NestedDataIssue tags a column holding objects or arrays.
func NestedDataIssue(column string) IssueTag { return IssueTag(prefixNested + column) }

// LongTextIssue tags a column with text longer than a spreadsheet cell allows.
func LongTextIssue(column string) IssueTag { return IssueTag(prefixLongText + column) }

// SQLInjectionIssue tags a column whose values look like SQL injection payloads.
func SQLInjectionIssue(column string) IssueTag { return IssueTag(prefixSQLInjection + column) }

// SQLIdentifierIssue tags a column name that is not a safe SQL identifier.
func SQLIdentifierIssue(column string) IssueTag { return IssueTag(prefixSQLIdentifier + column) }

// AnalysisErrorIssue is the synthetic tag recorded when detection itself failed.
func AnalysisErrorIssue(message string) IssueTag { return IssueTag(prefixAnalysisError + message) }

// AIErrorIssue is the synthetic tag recorded when the remote AI call failed.
func AIErrorIssue(message string) IssueTag { return IssueTag(prefixAIError + message) }

// OptimizationErrorIssue records a transform step that failed and was reverted.
func OptimizationErrorIssue(message string) IssueTag {
	return IssueTag(prefixOptimizeFailure + message)
}

// String returns the tag text.
func (t IssueTag) String() string { return string(t) }

// Contains reports whether the tag contains any of the keywords.
func (t IssueTag) Contains(keywords ...string) bool {
	for _, k := range keywords {
		if strings.Contains(string(t), k) {
			return true
		}
	}
	return false
}

// IsSynthetic reports whether the tag records an internal failure rather
// than a property of the data.
func (t IssueTag) IsSynthetic() bool {
	s := string(t)
	return strings.HasPrefix(s, prefixAnalysisError) ||
		strings.HasPrefix(s, prefixAIError) ||
		strings.HasPrefix(s, prefixOptimizeFailure)
}

// TagStrings converts tags to plain strings.
func TagStrings(tags []IssueTag) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = string(t)
	}
	return out
}
