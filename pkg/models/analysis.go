package models

// ============================================================================
// Semantic Column Types
// ============================================================================

// SemanticType is the inferred meaning of a column.
type SemanticType string

const (
	SemanticNumeric  SemanticType = "numeric"
	SemanticDatetime SemanticType = "datetime"
	SemanticBoolean  SemanticType = "boolean"
	SemanticEmail    SemanticType = "email"
	SemanticURL      SemanticType = "url"
	SemanticPhone    SemanticType = "phone"
	SemanticText     SemanticType = "text"
)

// ============================================================================
// Analysis Result
// ============================================================================

// AnalysisType describes how an AnalysisResult was produced.
type AnalysisType string

const (
	AnalysisDeterministic        AnalysisType = "deterministic"
	AnalysisAIAssisted           AnalysisType = "ai_assisted"
	AnalysisAzureOpenAI          AnalysisType = "azure_openai"
	AnalysisError                AnalysisType = "error"
	AnalysisBasicOptimization    AnalysisType = "basic_optimization"
	AnalysisAIOptimization       AnalysisType = "ai_optimization"
	AnalysisFallbackOptimization AnalysisType = "fallback_optimization"
)

// AnalysisResult is the user-facing summary of one dataset inspection.
// Confidence is a percentage in [0, 100].
type AnalysisResult struct {
	Confidence       float64                 `json:"confidence"`
	AnalysisType     AnalysisType            `json:"analysis_type"`
	DetectedPatterns []IssueTag              `json:"detected_patterns"`
	ColumnTypes      map[string]SemanticType `json:"column_types"`
	Recommendations  []string                `json:"recommendations"`
}

// ClampConfidence bounds a confidence percentage to [0, 100].
func ClampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}

// ============================================================================
// Usage Info
// ============================================================================

// ProcessingMode is the terminal state of the AI usage decision.
type ProcessingMode string

const (
	ModeDeterministic        ProcessingMode = "deterministic"
	ModeAIAssisted           ProcessingMode = "ai_assisted"
	ModeFallbackOptimization ProcessingMode = "fallback_optimization"
	ModeErrorFallback        ProcessingMode = "error_fallback"
)

// TriggerReason explains why AI assistance was used.
type TriggerReason string

const (
	TriggerSQLGenerationErrors     TriggerReason = "sql_generation_errors"
	TriggerDataStructureComplexity TriggerReason = "data_structure_complexity"
	TriggerDataQualityIssues       TriggerReason = "data_quality_issues"
	TriggerGeneralOptimization     TriggerReason = "general_optimization"
	TriggerOptimizationRequest     TriggerReason = "optimization_request"
)

// UsageInfo tells the caller whether AI was involved and why.
// TriggerReason is set if and only if AIUsed is true.
type UsageInfo struct {
	AIUsed                  bool           `json:"ai_used"`
	ProcessingMode          ProcessingMode `json:"processing_mode"`
	TriggerReason           *TriggerReason `json:"trigger_reason"`
	IssuesDetected          []IssueTag     `json:"issues_detected"`
	AIImprovements          []string       `json:"ai_improvements"`
	UserFriendlyExplanation string         `json:"user_friendly_explanation"`
	TechnicalDetails        map[string]any `json:"technical_details,omitempty"`
}
