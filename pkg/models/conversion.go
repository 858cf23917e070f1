package models

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jotabap/web-conversor/pkg/apperrors"
)

// ============================================================================
// Requests
// ============================================================================

// ConversionRequest carries the options for a tabular-to-JSON conversion.
type ConversionRequest struct {
	UseAI         bool    `json:"use_ai"`
	MinConfidence float64 `json:"min_confidence"`
	SheetName     string  `json:"sheet_name,omitempty"`
	SkipRows      int     `json:"skip_rows"`
	MaxRows       int     `json:"max_rows,omitempty"` // 0 means no limit
}

// DefaultConversionRequest mirrors the defaults of the public API.
// minConfidence is the configured default confidence threshold.
func DefaultConversionRequest(minConfidence float64) ConversionRequest {
	return ConversionRequest{UseAI: true, MinConfidence: minConfidence}
}

// Validate checks field ranges.
func (r *ConversionRequest) Validate() error {
	if r.MinConfidence < 0 || r.MinConfidence > 1 {
		return fmt.Errorf("%w: min_confidence must be between 0 and 1", apperrors.ErrInvalidRequest)
	}
	if r.SkipRows < 0 {
		return fmt.Errorf("%w: skip_rows must be >= 0", apperrors.ErrInvalidRequest)
	}
	if r.MaxRows < 0 {
		return fmt.Errorf("%w: max_rows must be > 0", apperrors.ErrInvalidRequest)
	}
	return nil
}

// JSONToExcelRequest carries the options for a JSON-to-Excel conversion.
type JSONToExcelRequest struct {
	JSONData        json.RawMessage `json:"json_data"`
	UseAI           bool            `json:"use_ai"`
	SheetName       string          `json:"sheet_name"`
	MinConfidence   float64         `json:"min_confidence"`
	ApplyFormatting bool            `json:"apply_formatting"`
	OptimizeLayout  bool            `json:"optimize_layout"`
}

// DefaultJSONToExcelRequest returns a request with API defaults and no data.
func DefaultJSONToExcelRequest(minConfidence float64) JSONToExcelRequest {
	return JSONToExcelRequest{
		SheetName:       "Sheet1",
		MinConfidence:   minConfidence,
		ApplyFormatting: true,
	}
}

// Validate rejects configuration misuse before any data is decoded.
func (r *JSONToExcelRequest) Validate() error {
	if r.OptimizeLayout && !r.UseAI {
		return apperrors.ErrAIRequired
	}
	if r.MinConfidence < 0 || r.MinConfidence > 1 {
		return fmt.Errorf("%w: min_confidence must be between 0 and 1", apperrors.ErrInvalidRequest)
	}
	if len(r.JSONData) == 0 || strings.TrimSpace(string(r.JSONData)) == "null" {
		return fmt.Errorf("%w: json_data is required", apperrors.ErrInvalidRequest)
	}
	if strings.TrimSpace(r.SheetName) == "" {
		r.SheetName = "Sheet1"
	}
	return nil
}

// SQL statement kinds.
const (
	SQLTypeInsert = "insert"
	SQLTypeUpdate = "update"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLGenerationRequest carries the options for SQL generation.
type SQLGenerationRequest struct {
	TableName           string   `json:"table_name"`
	SQLType             string   `json:"sql_type"`
	UseAI               bool     `json:"use_ai"`
	BatchSize           int      `json:"batch_size"`
	KeyColumns          []string `json:"key_columns,omitempty"`
	IncludeCreateTable  bool     `json:"include_create_table"`
	OptimizePerformance bool     `json:"optimize_performance"`
	Dialect             string   `json:"dialect,omitempty"`
}

// DefaultSQLGenerationRequest mirrors the defaults of the public API.
func DefaultSQLGenerationRequest() SQLGenerationRequest {
	return SQLGenerationRequest{
		TableName:           "data_table",
		SQLType:             SQLTypeInsert,
		UseAI:               true,
		BatchSize:           100,
		IncludeCreateTable:  true,
		OptimizePerformance: true,
	}
}

// Validate checks field ranges and normalises the SQL type.
func (r *SQLGenerationRequest) Validate() error {
	r.SQLType = strings.ToLower(strings.TrimSpace(r.SQLType))
	if r.SQLType != SQLTypeInsert && r.SQLType != SQLTypeUpdate {
		return fmt.Errorf("%w: sql_type must be insert or update", apperrors.ErrInvalidRequest)
	}
	if r.BatchSize < 1 || r.BatchSize > 1000 {
		return fmt.Errorf("%w: batch_size must be between 1 and 1000", apperrors.ErrInvalidRequest)
	}
	if !tableNamePattern.MatchString(r.TableName) {
		return fmt.Errorf("%w: table_name %q is not a valid identifier", apperrors.ErrInvalidRequest, r.TableName)
	}
	return nil
}

// ============================================================================
// Responses
// ============================================================================

// FileInfo describes the uploaded source file.
type FileInfo struct {
	Filename     string  `json:"filename"`
	OriginalRows int     `json:"original_rows"`
	FileSizeMB   float64 `json:"file_size_mb"`
	SheetName    string  `json:"sheet_name,omitempty"`
}

// ConversionMetadata accompanies converted records.
type ConversionMetadata struct {
	RequestID      string         `json:"request_id"`
	RecordCount    int            `json:"record_count"`
	Columns        []string       `json:"columns"`
	AIAnalysis     AnalysisResult `json:"ai_analysis"`
	AIUsage        UsageInfo      `json:"ai_usage"`
	Confidence     float64        `json:"confidence"`
	ProcessingTime string         `json:"processing_time"`
	FileInfo       *FileInfo      `json:"file_info,omitempty"`
}

// ConversionResponse is the result of a tabular-to-JSON conversion.
type ConversionResponse struct {
	Status    string             `json:"status"`
	Data      []Record           `json:"data"`
	Metadata  ConversionMetadata `json:"metadata"`
	Timestamp time.Time          `json:"timestamp"`
}

// ExcelMetadata accompanies a generated workbook.
type ExcelMetadata struct {
	RequestID         string            `json:"request_id"`
	Filename          string            `json:"filename"`
	SheetName         string            `json:"sheet_name"`
	Rows              int               `json:"rows"`
	Columns           int               `json:"columns"`
	FileSizeKB        float64           `json:"file_size_kb"`
	FormattingApplied bool              `json:"formatting_applied"`
	Optimization      ExcelOptimization `json:"ai_analysis"`
	AIUsage           UsageInfo         `json:"ai_usage"`
}

// ExcelFile is a generated workbook plus its metadata.
type ExcelFile struct {
	Content  []byte
	Filename string
	Metadata ExcelMetadata
}

// SQLStatements groups generated SQL text.
type SQLStatements struct {
	CreateTable     string   `json:"create_table,omitempty"`
	InsertTemplate  string   `json:"insert_template,omitempty"`
	UpdateTemplate  string   `json:"update_template,omitempty"`
	Statements      []string `json:"statements"`
	KeyColumns      []string `json:"key_columns,omitempty"`
	UpdateColumns   []string `json:"update_columns,omitempty"`
	TemplateFromAI  bool     `json:"template_from_ai"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// SQLGenerationResponse is the result of SQL generation.
type SQLGenerationResponse struct {
	Status     string         `json:"status"`
	SQLType    string         `json:"sql_type"`
	Statements SQLStatements  `json:"statements"`
	Analysis   AnalysisResult `json:"ai_analysis"`
	AIUsage    UsageInfo      `json:"ai_usage"`
	Metadata   map[string]any `json:"metadata"`
	Timestamp  time.Time      `json:"timestamp"`
}
