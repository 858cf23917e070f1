package services

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/jotabap/web-conversor/pkg/config"
	"github.com/jotabap/web-conversor/pkg/logging"
	"github.com/jotabap/web-conversor/pkg/models"
	"github.com/jotabap/web-conversor/pkg/prompts"
)

// ExcelOptimizeOptions controls OptimizeForExcel.
type ExcelOptimizeOptions struct {
	UseAI          bool
	OptimizeLayout bool    // reorder columns by role; needs the AI path
	MinConfidence  float64 // in [0, 1]
	StructureType  string  // prompts.StructureArray or prompts.StructureObject
}

// SQLEnrichment is the AI advice attached to generated SQL.
type SQLEnrichment struct {
	Analysis      models.AnalysisResult
	Template      string // validated AI statement template, empty when none
	Optimizations []string
	DataHandling  []string
}

// AnalysisOrchestrator drives detection, the AI usage decision, resolution
// and optimization for every conversion. None of its methods fail: every
// error path ends in a structured fallback result.
type AnalysisOrchestrator interface {
	// Analyze inspects a tabular dataset before it is returned as JSON.
	Analyze(ctx context.Context, filename string, ds *models.Dataset, useAI bool, minConfidence float64) (models.AnalysisResult, models.UsageInfo)

	// OptimizeForExcel prepares decoded JSON records for a workbook.
	OptimizeForExcel(ctx context.Context, ds *models.Dataset, opts ExcelOptimizeOptions) (*models.Dataset, models.ExcelOptimization, models.UsageInfo)

	// EnrichSQL checks a dataset for SQL problems and asks for advice when
	// any are found.
	EnrichSQL(ctx context.Context, table string, ds *models.Dataset, sqlType string, keyColumns []string, useAI bool) (SQLEnrichment, models.UsageInfo)
}

type analysisOrchestrator struct {
	detector  IssueDetector
	optimizer Optimizer
	ai        ResolutionClient
	policy    config.PolicyConfig
	logger    *zap.Logger
}

// NewAnalysisOrchestrator creates the orchestrator.
func NewAnalysisOrchestrator(
	detector IssueDetector,
	optimizer Optimizer,
	ai ResolutionClient,
	policy config.PolicyConfig,
	logger *zap.Logger,
) AnalysisOrchestrator {
	return &analysisOrchestrator{
		detector:  detector,
		optimizer: optimizer,
		ai:        ai,
		policy:    policy,
		logger:    logger.Named("orchestrator"),
	}
}

var _ AnalysisOrchestrator = (*analysisOrchestrator)(nil)

func (o *analysisOrchestrator) aiAvailable(useAI bool) bool {
	return useAI && o.ai != nil && o.ai.Available()
}

func (o *analysisOrchestrator) aiAnalysisType() models.AnalysisType {
	if o.ai.Provider() == config.ProviderAzure {
		return models.AnalysisAzureOpenAI
	}
	return models.AnalysisAIAssisted
}

// belowMinimum returns a recommendation when an AI confidence percentage is
// below the caller's minimum ratio.
func belowMinimum(confidence, minConfidence float64) (string, bool) {
	if minConfidence <= 0 || confidence >= minConfidence*100 {
		return "", false
	}
	return fmt.Sprintf("AI confidence %.0f%% is below the requested minimum of %.0f%%; review the result manually",
		confidence, minConfidence*100), true
}

func withTag(issues []models.IssueTag, tag models.IssueTag) []models.IssueTag {
	out := make([]models.IssueTag, 0, len(issues)+1)
	out = append(out, issues...)
	return append(out, tag)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// safeColumnTypes classifies columns, returning an empty map if that fails.
func safeColumnTypes(ds *models.Dataset) (types map[string]models.SemanticType) {
	defer func() {
		if recover() != nil {
			types = map[string]models.SemanticType{}
		}
	}()
	return ClassifyColumns(ds)
}

func (o *analysisOrchestrator) Analyze(ctx context.Context, filename string, ds *models.Dataset, useAI bool, minConfidence float64) (result models.AnalysisResult, usage models.UsageInfo) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("Analysis failed, using basic analysis", zap.Any("panic", r))
			result, usage = o.analysisErrorFallback(ds, fmt.Sprint(r))
		}
	}()

	// An absorbed detection error arrives as an analysis_error_ tag with
	// HasIssues set and is routed like any other issue.
	detection := o.detector.Detect(ds)

	mode := DecideMode(detection.HasIssues, o.aiAvailable(useAI))
	o.logger.Info("Analysis mode decided",
		zap.String("filename", filename),
		zap.String("mode", string(mode)),
		zap.Int("issues", len(detection.Issues)))

	switch mode {
	case models.ModeDeterministic:
		return models.AnalysisResult{
			Confidence:       o.policy.CleanConfidence,
			AnalysisType:     models.AnalysisDeterministic,
			DetectedPatterns: []models.IssueTag{},
			ColumnTypes:      detection.ColumnTypes,
			Recommendations:  []string{"Data appears clean and well-structured"},
		}, NewUsageInfo(mode, false, nil, nil)

	case models.ModeFallbackOptimization:
		return o.analysisFallback(detection, nil), NewUsageInfo(mode, false, detection.Issues, nil)
	}

	resolution, err := o.ai.ResolveTabular(ctx, prompts.NewDataSummary(filename, ds), detection.Issues)
	if err != nil {
		o.logger.Warn("AI analysis failed, using deterministic fallback",
			zap.String("filename", filename),
			zap.String("error", tagMessage(err)))
		issues := withTag(detection.Issues, models.AIErrorIssue(tagMessage(err)))
		result := o.analysisFallback(detection, []string{"AI analysis unavailable: " + tagMessage(err)})
		return result, NewUsageInfo(models.ModeFallbackOptimization, false, issues, nil)
	}

	confidence := models.ClampConfidence(resolution.Confidence.Or(o.policy.AIAnalysisDefaultConfidence))
	recommendations := nonNil(slices.Concat(resolution.Recommendations, resolution.CleaningSteps))
	if rec, low := belowMinimum(confidence, minConfidence); low {
		recommendations = append(recommendations, rec)
	}

	return models.AnalysisResult{
		Confidence:       confidence,
		AnalysisType:     o.aiAnalysisType(),
		DetectedPatterns: detection.Issues,
		ColumnTypes:      detection.ColumnTypes,
		Recommendations:  recommendations,
	}, NewUsageInfo(models.ModeAIAssisted, true, detection.Issues, resolution.Recommendations)
}

func (o *analysisOrchestrator) analysisFallback(detection *DetectionResult, extra []string) models.AnalysisResult {
	recommendations := []string{
		"Data issues detected: " + strings.Join(models.TagStrings(detection.Issues), ", "),
		"Consider data cleaning before processing",
	}
	return models.AnalysisResult{
		Confidence:       o.policy.FallbackConfidence,
		AnalysisType:     models.AnalysisFallbackOptimization,
		DetectedPatterns: detection.Issues,
		ColumnTypes:      detection.ColumnTypes,
		Recommendations:  append(recommendations, extra...),
	}
}

func (o *analysisOrchestrator) analysisErrorFallback(ds *models.Dataset, message string) (models.AnalysisResult, models.UsageInfo) {
	tag := models.AnalysisErrorIssue(truncateTag(message))
	return models.AnalysisResult{
		Confidence:       o.policy.ErrorConfidence,
		AnalysisType:     models.AnalysisDeterministic,
		DetectedPatterns: []models.IssueTag{"basic_table_structure"},
		ColumnTypes:      safeColumnTypes(ds),
		Recommendations:  []string{"Consider enabling AI analysis for better insights"},
	}, NewUsageInfo(models.ModeErrorFallback, false, []models.IssueTag{tag}, nil)
}

func (o *analysisOrchestrator) OptimizeForExcel(ctx context.Context, ds *models.Dataset, opts ExcelOptimizeOptions) (out *models.Dataset, result models.ExcelOptimization, usage models.UsageInfo) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("Excel optimization failed, returning data unchanged", zap.Any("panic", r))
			tag := models.AnalysisErrorIssue(truncateTag(fmt.Sprint(r)))
			out = ds
			result = models.ExcelOptimization{
				Confidence:           o.policy.OptimizationErrorConfidence,
				AnalysisType:         models.AnalysisError,
				OptimizationsApplied: []string{},
				Recommendations:      []string{"Optimization failed; data written without changes"},
			}
			usage = NewUsageInfo(models.ModeErrorFallback, false, []models.IssueTag{tag}, nil)
		}
	}()

	issues := o.detector.DetectForExcel(ds)
	// A layout request is itself a reason to consult the AI.
	wantsAI := len(issues) > 0 || (opts.OptimizeLayout && opts.UseAI)
	mode := DecideMode(wantsAI, o.aiAvailable(opts.UseAI))

	o.logger.Info("Excel optimization mode decided",
		zap.String("mode", string(mode)),
		zap.Int("issues", len(issues)),
		zap.Bool("optimize_layout", opts.OptimizeLayout))

	switch mode {
	case models.ModeDeterministic:
		return ds, models.ExcelOptimization{
			Confidence:           o.policy.CleanConfidence,
			AnalysisType:         models.AnalysisDeterministic,
			OptimizationsApplied: []string{"no_optimization_needed"},
			Recommendations:      []string{"Data is ready for Excel export"},
		}, NewUsageInfo(mode, false, nil, nil)

	case models.ModeFallbackOptimization:
		out, report := o.optimizer.Optimize(ds, issues, models.OptimizeBasic, nil)
		// A caller that opted out of AI gets plain cleanup, not a degraded AI run.
		confidence := o.policy.BasicExcelConfidence
		recommendations := []string{"Basic optimizations applied, consider enabling AI for advanced optimizations"}
		if opts.UseAI {
			confidence = o.policy.FallbackConfidence
			recommendations = []string{"Basic optimizations applied, AI not available"}
		}
		if opts.OptimizeLayout {
			recommendations = append(recommendations, "Layout optimization skipped: AI not available")
		}
		return out, models.ExcelOptimization{
			Confidence:           confidence,
			AnalysisType:         models.AnalysisBasicOptimization,
			OptimizationsApplied: slices.Concat([]string{"basic_fixes_applied"}, report.OptimizationsApplied),
			ColumnOptimizations:  report.ColumnOptimizations,
			Recommendations:      slices.Concat(recommendations, report.Recommendations),
		}, NewUsageInfo(mode, false, issues, nil)
	}

	structure := opts.StructureType
	if structure == "" {
		structure = prompts.StructureArray
	}
	resolution, err := o.ai.ResolveExcel(ctx, prompts.NewJSONSummary(ds, structure), issues)
	if err != nil {
		o.logger.Warn("AI Excel optimization failed, applying basic fixes", zap.String("error", tagMessage(err)))
		out, report := o.optimizer.Optimize(ds, issues, models.OptimizeBasic, nil)
		failure := fmt.Sprintf("AI optimization failed: %s, applied basic fixes", tagMessage(err))
		result := models.ExcelOptimization{
			Confidence:           o.policy.OptimizationErrorConfidence,
			AnalysisType:         models.AnalysisFallbackOptimization,
			OptimizationsApplied: slices.Concat([]string{"ai_failed_basic_applied"}, report.OptimizationsApplied),
			ColumnOptimizations:  report.ColumnOptimizations,
			Recommendations:      slices.Concat([]string{failure}, report.Recommendations),
		}
		issues = withTag(issues, models.AIErrorIssue(tagMessage(err)))
		return out, result, NewUsageInfo(models.ModeFallbackOptimization, false, issues, nil)
	}

	plan := resolution.Plan
	plan.Reorder = opts.OptimizeLayout
	out, report := o.optimizer.Optimize(ds, issues, models.OptimizeAI, &plan)

	confidence := models.ClampConfidence(resolution.Confidence.Or(o.policy.AIOptimizeDefaultConfidence))
	recommendations := nonNil(slices.Concat(resolution.Recommendations, resolution.ExcelCompatibility, report.Recommendations))
	if rec, low := belowMinimum(confidence, opts.MinConfidence); low {
		recommendations = append(recommendations, rec)
	}

	return out, models.ExcelOptimization{
		Confidence:           confidence,
		AnalysisType:         models.AnalysisAIOptimization,
		OptimizationsApplied: nonNil(slices.Concat(resolution.Optimizations, report.OptimizationsApplied)),
		ColumnOptimizations:  report.ColumnOptimizations,
		Recommendations:      recommendations,
	}, NewUsageInfo(models.ModeAIAssisted, true, issues, resolution.Optimizations)
}

func (o *analysisOrchestrator) EnrichSQL(ctx context.Context, table string, ds *models.Dataset, sqlType string, keyColumns []string, useAI bool) (enrichment SQLEnrichment, usage models.UsageInfo) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("SQL analysis failed", zap.Any("panic", r))
			tag := models.AnalysisErrorIssue(truncateTag(fmt.Sprint(r)))
			enrichment = SQLEnrichment{Analysis: models.AnalysisResult{
				Confidence:       o.policy.ErrorConfidence,
				AnalysisType:     models.AnalysisDeterministic,
				DetectedPatterns: []models.IssueTag{},
				ColumnTypes:      safeColumnTypes(ds),
				Recommendations:  []string{"SQL generated without analysis"},
			}}
			usage = NewUsageInfo(models.ModeErrorFallback, false, []models.IssueTag{tag}, nil)
		}
	}()

	issues := o.detector.DetectForSQL(ds)
	columnTypes := ClassifyColumns(ds)
	mode := DecideMode(len(issues) > 0, o.aiAvailable(useAI))

	o.logger.Info("SQL analysis mode decided",
		zap.String("table", table),
		zap.String("sql_type", sqlType),
		zap.String("mode", string(mode)),
		zap.Int("issues", len(issues)))

	fallback := func(extra ...string) SQLEnrichment {
		return SQLEnrichment{
			Analysis: models.AnalysisResult{
				Confidence:       o.policy.SQLFallbackConfidence,
				AnalysisType:     models.AnalysisFallbackOptimization,
				DetectedPatterns: issues,
				ColumnTypes:      columnTypes,
				Recommendations: append([]string{
					"AI not available for SQL optimization",
					"Using deterministic generation with basic validation",
				}, extra...),
			},
			Optimizations: []string{"Consider manual review of generated SQL"},
			DataHandling:  []string{"Check data types and escaping manually"},
		}
	}

	switch mode {
	case models.ModeDeterministic:
		return SQLEnrichment{
			Analysis: models.AnalysisResult{
				Confidence:       o.policy.CleanConfidence,
				AnalysisType:     models.AnalysisDeterministic,
				DetectedPatterns: []models.IssueTag{},
				ColumnTypes:      columnTypes,
				Recommendations:  []string{"No SQL issues detected"},
			},
			Optimizations: []string{},
			DataHandling:  []string{},
		}, NewUsageInfo(mode, false, nil, nil)

	case models.ModeFallbackOptimization:
		return fallback(), NewUsageInfo(mode, false, issues, nil)
	}

	resolution, err := o.ai.ResolveSQL(ctx, prompts.NewSQLSample(table, ds, keyColumns), sqlType, issues)
	if err != nil {
		o.logger.Warn("AI SQL analysis failed, using deterministic SQL", zap.String("error", tagMessage(err)))
		return fallback("AI SQL optimization failed: " + tagMessage(err)),
			NewUsageInfo(models.ModeFallbackOptimization, false, withTag(issues, models.AIErrorIssue(tagMessage(err))), nil)
	}

	improvements := slices.Concat(resolution.Recommendations, resolution.Optimizations)
	return SQLEnrichment{
		Analysis: models.AnalysisResult{
			Confidence:       models.ClampConfidence(resolution.Confidence.Or(o.policy.AIOptimizeDefaultConfidence)),
			AnalysisType:     o.aiAnalysisType(),
			DetectedPatterns: issues,
			ColumnTypes:      columnTypes,
			Recommendations:  nonNil(resolution.Recommendations),
		},
		Template:      resolution.Template,
		Optimizations: nonNil(resolution.Optimizations),
		DataHandling:  nonNil(resolution.DataHandling),
	}, NewUsageInfo(models.ModeAIAssisted, true, issues, improvements)
}

func truncateTag(message string) string {
	return logging.TruncateString(logging.SanitizeText(message), logging.MaxTagMessageLength)
}
