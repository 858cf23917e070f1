package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jotabap/web-conversor/pkg/apperrors"
	"github.com/jotabap/web-conversor/pkg/jsonutil"
	"github.com/jotabap/web-conversor/pkg/llm"
	"github.com/jotabap/web-conversor/pkg/logging"
	"github.com/jotabap/web-conversor/pkg/models"
	"github.com/jotabap/web-conversor/pkg/prompts"
	"github.com/jotabap/web-conversor/pkg/sql"
)

// Confidence reported when a completion arrived but could not be decoded.
const (
	parseFallbackConfidence = 75 // no JSON object in the response
	parseErrorConfidence    = 50 // a JSON object that failed to decode
)

// ProcessingError is returned when the remote completion itself failed
// (timeout, transport, circuit open, not configured). Callers convert it into
// a fallback result; it never reaches the end user.
type ProcessingError struct {
	Op  string
	Err error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("ai %s: %v", e.Op, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// Is matches apperrors.ErrAIProcessingFailed.
func (e *ProcessingError) Is(target error) bool {
	return target == apperrors.ErrAIProcessingFailed
}

// tagMessage renders err for embedding in a synthetic issue tag.
func tagMessage(err error) string {
	var pe *ProcessingError
	if errors.As(err, &pe) {
		err = pe.Err
	}
	return logging.TruncateString(logging.SanitizeError(err), logging.MaxTagMessageLength)
}

// Resolution confidences are percentages. Confidence.Set is false when the
// model omitted it, so callers apply their own default.

// IssueResolution is the model's advice for a flagged tabular file.
type IssueResolution struct {
	Confidence       jsonutil.FlexibleFloat
	AnalysisType     string
	DetectedPatterns []string
	Recommendations  []string
	CleaningSteps    []string
}

// ExcelResolution is the model's advice for writing JSON records to Excel.
type ExcelResolution struct {
	Confidence         jsonutil.FlexibleFloat
	OptimizationType   string
	Optimizations      []string
	Recommendations    []string
	ExcelCompatibility []string
	Plan               models.OptimizationPlan
}

// SQLResolution is the model's advice for SQL generation. Template is empty
// unless the model returned a single statement of the requested kind.
type SQLResolution struct {
	Confidence      jsonutil.FlexibleFloat
	SQLType         string
	Recommendations []string
	Optimizations   []string
	DataHandling    []string
	Template        string
}

// ResolutionClient asks the remote model how to resolve detected issues.
// A failed completion returns a *ProcessingError. A completion that cannot be
// parsed returns a low-confidence result and no error.
type ResolutionClient interface {
	// Available reports whether a completer is configured.
	Available() bool

	// Provider returns the configured provider name, or "" when unavailable.
	Provider() string

	ResolveTabular(ctx context.Context, summary prompts.DataSummary, issues []models.IssueTag) (*IssueResolution, error)
	ResolveExcel(ctx context.Context, summary prompts.JSONSummary, issues []models.IssueTag) (*ExcelResolution, error)
	ResolveSQL(ctx context.Context, sample prompts.SQLSample, sqlType string, issues []models.IssueTag) (*SQLResolution, error)
}

type resolutionClient struct {
	completer llm.Completer
	provider  string
	timeout   time.Duration
	logger    *zap.Logger
}

// NewResolutionClient wraps completer. A nil completer makes every Resolve
// call fail with a ProcessingError wrapping llm.ErrNotConfigured.
func NewResolutionClient(completer llm.Completer, provider string, timeout time.Duration, logger *zap.Logger) ResolutionClient {
	return &resolutionClient{
		completer: completer,
		provider:  provider,
		timeout:   timeout,
		logger:    logger.Named("ai-resolution"),
	}
}

var _ ResolutionClient = (*resolutionClient)(nil)

func (c *resolutionClient) Available() bool { return c.completer != nil }

func (c *resolutionClient) Provider() string {
	if c.completer == nil {
		return ""
	}
	return c.provider
}

type issueResolutionResponse struct {
	Confidence       jsonutil.FlexibleFloat   `json:"confidence"`
	AnalysisType     string                   `json:"analysis_type"`
	DetectedPatterns jsonutil.FlexibleStrings `json:"detected_patterns"`
	Recommendations  jsonutil.FlexibleStrings `json:"recommendations"`
	CleaningSteps    jsonutil.FlexibleStrings `json:"cleaning_steps"`
}

func (c *resolutionClient) ResolveTabular(ctx context.Context, summary prompts.DataSummary, issues []models.IssueTag) (*IssueResolution, error) {
	const op = "tabular analysis"

	response, err := c.complete(ctx, op, prompts.BuildIssueResolutionPrompt(summary, issues))
	if err != nil {
		return nil, err
	}

	parsed, err := llm.ParseJSONResponse[issueResolutionResponse](response)
	if err != nil {
		confidence, recs := c.parseFallback(op, response, err)
		return &IssueResolution{
			Confidence:       jsonutil.FlexibleFloat{Value: confidence, Set: true},
			AnalysisType:     "issue_resolution",
			DetectedPatterns: models.TagStrings(issues),
			Recommendations:  recs,
		}, nil
	}

	return &IssueResolution{
		Confidence:       parsed.Confidence,
		AnalysisType:     parsed.AnalysisType,
		DetectedPatterns: parsed.DetectedPatterns,
		Recommendations:  parsed.Recommendations,
		CleaningSteps:    parsed.CleaningSteps,
	}, nil
}

type excelResolutionResponse struct {
	Confidence         jsonutil.FlexibleFloat     `json:"confidence"`
	OptimizationType   string                     `json:"optimization_type"`
	Optimizations      jsonutil.FlexibleStrings   `json:"optimizations"`
	Recommendations    jsonutil.FlexibleStrings   `json:"recommendations"`
	ExcelCompatibility jsonutil.FlexibleStrings   `json:"excel_compatibility"`
	ColumnMapping      jsonutil.FlexibleStringMap `json:"column_mapping"`
	TypeConversions    jsonutil.FlexibleStringMap `json:"type_conversions"`
}

func (c *resolutionClient) ResolveExcel(ctx context.Context, summary prompts.JSONSummary, issues []models.IssueTag) (*ExcelResolution, error) {
	const op = "excel optimization"

	response, err := c.complete(ctx, op, prompts.BuildExcelOptimizationPrompt(summary, issues))
	if err != nil {
		return nil, err
	}

	parsed, err := llm.ParseJSONResponse[excelResolutionResponse](response)
	if err != nil {
		confidence, opts := c.parseFallback(op, response, err)
		optimizationType := "json_to_excel"
		if confidence == parseErrorConfidence {
			optimizationType = "error"
		}
		return &ExcelResolution{
			Confidence:       jsonutil.FlexibleFloat{Value: confidence, Set: true},
			OptimizationType: optimizationType,
			Optimizations:    opts,
		}, nil
	}

	return &ExcelResolution{
		Confidence:         parsed.Confidence,
		OptimizationType:   parsed.OptimizationType,
		Optimizations:      parsed.Optimizations,
		Recommendations:    parsed.Recommendations,
		ExcelCompatibility: parsed.ExcelCompatibility,
		Plan: models.OptimizationPlan{
			ColumnMapping:   parsed.ColumnMapping,
			TypeConversions: parsed.TypeConversions,
		},
	}, nil
}

type sqlResolutionResponse struct {
	Confidence      jsonutil.FlexibleFloat   `json:"confidence"`
	SQLType         string                   `json:"sql_type"`
	Recommendations jsonutil.FlexibleStrings `json:"recommendations"`
	Optimizations   jsonutil.FlexibleStrings `json:"optimizations"`
	DataHandling    jsonutil.FlexibleStrings `json:"data_handling"`
	InsertTemplate  string                   `json:"insert_template"`
	UpdateTemplate  string                   `json:"update_template"`
}

func (c *resolutionClient) ResolveSQL(ctx context.Context, sample prompts.SQLSample, sqlType string, issues []models.IssueTag) (*SQLResolution, error) {
	op := "sql " + strings.ToLower(sqlType) + " generation"

	response, err := c.complete(ctx, op, prompts.BuildSQLIssuePrompt(sample, sqlType, issues))
	if err != nil {
		return nil, err
	}

	parsed, err := llm.ParseJSONResponse[sqlResolutionResponse](response)
	if err != nil {
		confidence, recs := c.parseFallback(op, response, err)
		resolvedType := "UNKNOWN"
		if confidence == parseErrorConfidence {
			resolvedType = "ERROR"
		}
		return &SQLResolution{
			Confidence:      jsonutil.FlexibleFloat{Value: confidence, Set: true},
			SQLType:         resolvedType,
			Recommendations: recs,
		}, nil
	}

	result := &SQLResolution{
		Confidence:      parsed.Confidence,
		SQLType:         parsed.SQLType,
		Recommendations: parsed.Recommendations,
		Optimizations:   parsed.Optimizations,
		DataHandling:    parsed.DataHandling,
	}

	template := parsed.InsertTemplate
	if strings.EqualFold(sqlType, models.SQLTypeUpdate) {
		template = parsed.UpdateTemplate
	}
	if strings.TrimSpace(template) != "" {
		validated, err := sql.ValidateTemplate(template, sqlType)
		if err != nil {
			c.logger.Warn("Rejected AI SQL template",
				zap.String("sql_type", sqlType),
				zap.Error(err))
			result.Recommendations = append(result.Recommendations,
				fmt.Sprintf("AI template rejected: %v", err))
		} else {
			result.Template = validated
		}
	}
	return result, nil
}

// complete runs one bounded completion. Every failure is wrapped in a
// ProcessingError.
func (c *resolutionClient) complete(ctx context.Context, op, prompt string) (string, error) {
	if c.completer == nil {
		return "", &ProcessingError{Op: op, Err: llm.ErrNotConfigured}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	c.logger.Debug("Requesting AI resolution",
		zap.String("op", op),
		zap.String("model", c.completer.Model()),
		zap.String("prompt", logging.SanitizePrompt(prompt)))

	start := time.Now()
	response, err := c.completer.Complete(ctx, prompt)
	if err != nil {
		classified := llm.ClassifyError(err)
		msg := "AI resolution failed"
		if llm.IsTimeout(classified) {
			msg = "AI resolution timed out"
		}
		c.logger.Error(msg,
			zap.String("op", op),
			zap.String("error_type", string(classified.Type)),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("error", logging.SanitizeError(err)))
		return "", &ProcessingError{Op: op, Err: classified}
	}

	c.logger.Info("AI resolution completed",
		zap.String("op", op),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("response_length", len(response)))
	return response, nil
}

// parseFallback maps an unparsable response to a fixed confidence and
// message list.
func (c *resolutionClient) parseFallback(op, response string, err error) (float64, []string) {
	c.logger.Warn("Failed to parse AI response",
		zap.String("op", op),
		zap.String("response", logging.SanitizePrompt(response)),
		zap.Error(err))

	if errors.Is(err, llm.ErrNoJSON) {
		return parseFallbackConfidence, []string{"Check AI response format"}
	}
	return parseErrorConfidence, []string{"Parse error: " + logging.TruncateString(err.Error(), logging.MaxTagMessageLength)}
}
