package models

// OptimizationMode selects which transform set a pipeline run applies.
type OptimizationMode string

const (
	OptimizeBasic OptimizationMode = "basic"
	OptimizeAI    OptimizationMode = "ai"
)

// Target type names accepted in an AI type-conversion map.
const (
	ConvertToNumeric  = "numeric"
	ConvertToDatetime = "datetime"
	ConvertToText     = "text"
)

// OptimizationPlan carries the AI-recommended changes applied on top of the
// basic transforms. Column keys refer to names after basic transforms ran.
type OptimizationPlan struct {
	ColumnMapping   map[string]string `json:"column_mapping,omitempty"`
	TypeConversions map[string]string `json:"type_conversions,omitempty"`
	// Reorder groups columns by role (identifier, label, date, numeric, other).
	Reorder bool `json:"reorder,omitempty"`
}

// OptimizationReport records what a pipeline run changed.
type OptimizationReport struct {
	Mode                 OptimizationMode  `json:"mode"`
	OptimizationsApplied []string          `json:"optimizations_applied"`
	ColumnOptimizations  map[string]string `json:"column_optimizations,omitempty"`
	Recommendations      []string          `json:"recommendations"`
	Failures             []IssueTag        `json:"failures,omitempty"`
}

// ExcelOptimization is the analysis returned with a JSON-to-Excel conversion.
type ExcelOptimization struct {
	Confidence           float64           `json:"confidence"`
	AnalysisType         AnalysisType      `json:"analysis_type"`
	OptimizationsApplied []string          `json:"optimizations_applied"`
	ColumnOptimizations  map[string]string `json:"column_optimizations,omitempty"`
	Recommendations      []string          `json:"recommendations"`
}
