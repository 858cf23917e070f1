package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jotabap/web-conversor/pkg/apperrors"
	"github.com/jotabap/web-conversor/pkg/config"
	"github.com/jotabap/web-conversor/pkg/models"
	"github.com/jotabap/web-conversor/pkg/prompts"
	"github.com/jotabap/web-conversor/pkg/sql"
	"github.com/jotabap/web-conversor/pkg/tabular"
)

// StatusSuccess is the status reported by every successful conversion.
const StatusSuccess = "SUCCESS"

// ConverterService runs the three conversions exposed by the API.
// Returned errors wrap the apperrors sentinels so handlers can map them to
// status codes; AI failures never surface as errors.
type ConverterService interface {
	// ConvertToJSON parses an uploaded Excel or CSV file into JSON records.
	ConvertToJSON(ctx context.Context, filename string, content []byte, req models.ConversionRequest) (*models.ConversionResponse, error)

	// ConvertJSONToExcel renders JSON records as an .xlsx workbook.
	ConvertJSONToExcel(ctx context.Context, req models.JSONToExcelRequest) (*models.ExcelFile, error)

	// GenerateSQL renders INSERT or UPDATE statements for an uploaded file.
	GenerateSQL(ctx context.Context, filename string, content []byte, req models.SQLGenerationRequest) (*models.SQLGenerationResponse, error)
}

type converterService struct {
	files        config.FilesConfig
	orchestrator AnalysisOrchestrator
	logger       *zap.Logger
	now          func() time.Time
}

// NewConverterService creates a converter bound to the upload limits in files.
func NewConverterService(files config.FilesConfig, orchestrator AnalysisOrchestrator, logger *zap.Logger) ConverterService {
	return &converterService{
		files:        files,
		orchestrator: orchestrator,
		logger:       logger.Named("converter"),
		now:          time.Now,
	}
}

var _ ConverterService = (*converterService)(nil)

// readUpload validates an uploaded file and parses it.
func (s *converterService) readUpload(ctx context.Context, filename string, content []byte, opts tabular.ReadOptions) (*tabular.Table, error) {
	if filename == "" {
		return nil, fmt.Errorf("%w: filename is required", apperrors.ErrInvalidRequest)
	}
	if !s.files.IsAllowed(filename) {
		return nil, fmt.Errorf("%w: %s (allowed: %v)", apperrors.ErrUnsupportedFormat, filename, s.files.AllowedExtensions)
	}
	if int64(len(content)) > s.files.MaxFileSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", apperrors.ErrFileTooLarge, len(content), s.files.MaxFileSize)
	}
	if len(content) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", apperrors.ErrEmptyInput, filename)
	}

	table, err := tabular.Read(ctx, filename, content, opts)
	if err != nil {
		return nil, err
	}
	if table.Dataset.IsEmpty() {
		return nil, fmt.Errorf("%w: %s has a header but no data rows", apperrors.ErrEmptyInput, filename)
	}
	return table, nil
}

func (s *converterService) ConvertToJSON(ctx context.Context, filename string, content []byte, req models.ConversionRequest) (*models.ConversionResponse, error) {
	start := s.now()
	requestID := uuid.New().String()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	table, err := s.readUpload(ctx, filename, content, tabular.ReadOptions{
		SheetName: req.SheetName,
		SkipRows:  req.SkipRows,
		MaxRows:   req.MaxRows,
	})
	if err != nil {
		return nil, err
	}
	ds := table.Dataset

	s.logger.Info("Converting file to JSON",
		zap.String("request_id", requestID),
		zap.String("filename", filename),
		zap.String("format", table.Format),
		zap.Int("rows", ds.Len()),
		zap.Int("columns", ds.Width()),
		zap.Bool("use_ai", req.UseAI))

	analysis, usage := s.orchestrator.Analyze(ctx, filename, ds, req.UseAI, req.MinConfidence)

	return &models.ConversionResponse{
		Status: StatusSuccess,
		Data:   ds.Records(),
		Metadata: models.ConversionMetadata{
			RequestID:      requestID,
			RecordCount:    ds.Len(),
			Columns:        ds.Columns(),
			AIAnalysis:     analysis,
			AIUsage:        usage,
			Confidence:     analysis.Confidence,
			ProcessingTime: processingTime(s.now().Sub(start)),
			FileInfo: &models.FileInfo{
				Filename:     filename,
				OriginalRows: ds.Len(),
				FileSizeMB:   roundTo(float64(len(content))/(1024*1024), 2),
				SheetName:    table.SheetName,
			},
		},
		Timestamp: s.now().UTC(),
	}, nil
}

func (s *converterService) ConvertJSONToExcel(ctx context.Context, req models.JSONToExcelRequest) (*models.ExcelFile, error) {
	requestID := uuid.New().String()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	ds, err := tabular.DecodeRecords(req.JSONData)
	if err != nil {
		return nil, err
	}
	if ds.IsEmpty() || ds.Width() == 0 {
		return nil, fmt.Errorf("%w: json_data has no records", apperrors.ErrEmptyInput)
	}

	structure := prompts.StructureArray
	if trimmed := bytes.TrimSpace(req.JSONData); len(trimmed) > 0 && trimmed[0] == '{' {
		structure = prompts.StructureObject
	}

	s.logger.Info("Converting JSON to Excel",
		zap.String("request_id", requestID),
		zap.Int("records", ds.Len()),
		zap.Int("columns", ds.Width()),
		zap.String("structure", structure),
		zap.Bool("use_ai", req.UseAI),
		zap.Bool("optimize_layout", req.OptimizeLayout))

	out, optimization, usage := s.orchestrator.OptimizeForExcel(ctx, ds, ExcelOptimizeOptions{
		UseAI:          req.UseAI,
		OptimizeLayout: req.OptimizeLayout,
		MinConfidence:  req.MinConfidence,
		StructureType:  structure,
	})

	sheet := tabular.SafeSheetName(req.SheetName)
	content, err := tabular.WriteExcel(ctx, out, tabular.WriteOptions{
		SheetName:  sheet,
		Formatting: req.ApplyFormatting,
	})
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	filename := fmt.Sprintf("converted_data_%s.xlsx", s.now().Format("20060102_150405"))
	return &models.ExcelFile{
		Content:  content,
		Filename: filename,
		Metadata: models.ExcelMetadata{
			RequestID:         requestID,
			Filename:          filename,
			SheetName:         sheet,
			Rows:              out.Len(),
			Columns:           out.Width(),
			FileSizeKB:        roundTo(float64(len(content))/1024, 2),
			FormattingApplied: req.ApplyFormatting,
			Optimization:      optimization,
			AIUsage:           usage,
		},
	}, nil
}

func (s *converterService) GenerateSQL(ctx context.Context, filename string, content []byte, req models.SQLGenerationRequest) (*models.SQLGenerationResponse, error) {
	start := s.now()
	requestID := uuid.New().String()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	dialect, err := sql.ParseDialect(req.Dialect)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidRequest, err)
	}

	table, err := s.readUpload(ctx, filename, content, tabular.ReadOptions{})
	if err != nil {
		return nil, err
	}
	ds := table.Dataset
	gen := sql.NewGenerator(dialect)

	keyColumns := req.KeyColumns
	if req.SQLType == models.SQLTypeUpdate && len(keyColumns) == 0 {
		keyColumns = sql.DetectKeyColumns(req.TableName, ds)
	}

	s.logger.Info("Generating SQL",
		zap.String("request_id", requestID),
		zap.String("filename", filename),
		zap.String("table", req.TableName),
		zap.String("sql_type", req.SQLType),
		zap.String("dialect", string(dialect)),
		zap.Int("rows", ds.Len()),
		zap.Strings("key_columns", keyColumns))

	statements := models.SQLStatements{}
	if req.IncludeCreateTable {
		statements.CreateTable = gen.CreateTable(req.TableName, ds)
	}

	switch req.SQLType {
	case models.SQLTypeUpdate:
		plan, err := gen.PlanUpdate(ds, keyColumns)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidRequest, err)
		}
		statements.KeyColumns = plan.KeyColumns
		statements.UpdateColumns = plan.UpdateColumns
		statements.UpdateTemplate = gen.UpdateTemplate(req.TableName, plan)
		statements.Statements = gen.UpdateStatements(req.TableName, ds, plan)
	default:
		statements.InsertTemplate = gen.InsertTemplate(req.TableName, ds)
		statements.Statements = gen.InsertStatements(req.TableName, ds, req.BatchSize)
	}
	if statements.Statements == nil {
		statements.Statements = []string{}
	}

	enrichment, usage := s.orchestrator.EnrichSQL(ctx, req.TableName, ds, req.SQLType, keyColumns, req.UseAI)
	if enrichment.Template != "" {
		statements.TemplateFromAI = true
		if req.SQLType == models.SQLTypeUpdate {
			statements.UpdateTemplate = enrichment.Template
		} else {
			statements.InsertTemplate = enrichment.Template
		}
	}
	statements.Recommendations = slices.Concat(enrichment.Optimizations, enrichment.DataHandling)
	if req.OptimizePerformance && req.SQLType == models.SQLTypeInsert && ds.Len() > req.BatchSize {
		statements.Recommendations = append(statements.Recommendations,
			fmt.Sprintf("Rows are grouped into %d multi-row INSERT statements of up to %d rows", len(statements.Statements), req.BatchSize))
	}

	return &models.SQLGenerationResponse{
		Status:     StatusSuccess,
		SQLType:    req.SQLType,
		Statements: statements,
		Analysis:   enrichment.Analysis,
		AIUsage:    usage,
		Metadata: map[string]any{
			"request_id":      requestID,
			"table_name":      req.TableName,
			"dialect":         string(dialect),
			"rows_processed":  ds.Len(),
			"columns":         gen.ColumnNames(ds),
			"batch_size":      req.BatchSize,
			"statement_count": len(statements.Statements),
			"processing_time": processingTime(s.now().Sub(start)),
			"file_info": models.FileInfo{
				Filename:     filename,
				OriginalRows: ds.Len(),
				FileSizeMB:   roundTo(float64(len(content))/(1024*1024), 2),
				SheetName:    table.SheetName,
			},
		},
		Timestamp: s.now().UTC(),
	}, nil
}

// IsClientError reports whether err was caused by the request rather than
// by the service.
func IsClientError(err error) bool {
	for _, target := range []error{
		apperrors.ErrInvalidRequest,
		apperrors.ErrAIRequired,
		apperrors.ErrUnsupportedFormat,
		apperrors.ErrFileTooLarge,
		apperrors.ErrEmptyInput,
		apperrors.ErrSheetNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func processingTime(d time.Duration) string {
	return fmt.Sprintf("%.2fs", d.Seconds())
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
