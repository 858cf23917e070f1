package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/jotabap/web-conversor/pkg/apperrors"
	"github.com/jotabap/web-conversor/pkg/config"
	"github.com/jotabap/web-conversor/pkg/logging"
	"github.com/jotabap/web-conversor/pkg/middleware"
	"github.com/jotabap/web-conversor/pkg/models"
	"github.com/jotabap/web-conversor/pkg/services"
	"github.com/jotabap/web-conversor/pkg/tabular"
)

const (
	// multipartMemory is the part of a multipart body kept in memory.
	multipartMemory = 32 << 20
	// multipartOverhead allows form fields and boundaries on top of the file.
	multipartOverhead = 1 << 20

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ============================================================================
// Request/Response Types
// ============================================================================

// JSONToExcelBody is the body of POST /api/convert/json-to-excel. Records
// may be sent as json_data or, for older clients, as data.
type JSONToExcelBody struct {
	models.JSONToExcelRequest
	Data json.RawMessage `json:"data,omitempty"`
}

// JSONToExcelResponse carries the generated workbook as base64.
type JSONToExcelResponse struct {
	Status      string               `json:"status"`
	Message     string               `json:"message"`
	Filename    string               `json:"filename"`
	ExcelBase64 string               `json:"excel_base64"`
	Metadata    models.ExcelMetadata `json:"metadata"`
}

// FormatsResponse is returned by GET /api/convert/formats.
type FormatsResponse struct {
	SupportedInputFormats  []string             `json:"supported_input_formats"`
	SupportedOutputFormats []string             `json:"supported_output_formats"`
	Readers                []tabular.FormatInfo `json:"readers"`
	MaxFileSizeMB          float64              `json:"max_file_size_mb"`
	Features               map[string]bool      `json:"features"`
}

// ============================================================================
// Handler
// ============================================================================

// ConvertHandler handles the conversion endpoints.
type ConvertHandler struct {
	converter     services.ConverterService
	files         config.FilesConfig
	ai            AIStatus
	// minConfidence is the default when a request omits min_confidence.
	minConfidence float64
	logger        *zap.Logger
}

// NewConvertHandler creates a new conversion handler.
func NewConvertHandler(
	converter services.ConverterService,
	files config.FilesConfig,
	ai AIStatus,
	minConfidence float64,
	logger *zap.Logger,
) *ConvertHandler {
	return &ConvertHandler{
		converter:     converter,
		files:         files,
		ai:            ai,
		minConfidence: minConfidence,
		logger:        logger.Named("convert-handler"),
	}
}

// RegisterRoutes registers the conversion routes on the given mux.
func (h *ConvertHandler) RegisterRoutes(mux *http.ServeMux) {
	base := "/api/convert"

	mux.HandleFunc("GET "+base+"/formats", h.Formats)
	mux.HandleFunc("POST "+base+"/excel-to-json", h.ExcelToJSON)
	mux.HandleFunc("POST "+base+"/json-to-excel", h.JSONToExcel)
	mux.HandleFunc("POST "+base+"/excel-to-sql", h.ExcelToSQL)
}

// Formats handles GET /api/convert/formats
func (h *ConvertHandler) Formats(w http.ResponseWriter, r *http.Request) {
	response := FormatsResponse{
		SupportedInputFormats:  h.files.AllowedExtensions,
		SupportedOutputFormats: []string{"json", "excel", "sql"},
		Readers:                tabular.RegisteredFormats(),
		MaxFileSizeMB:          float64(h.files.MaxFileSize) / (1024 * 1024),
		Features: map[string]bool{
			"ai_analysis":      h.ai != nil && h.ai.Available(),
			"batch_processing": false,
			"custom_sheets":    true,
		},
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ExcelToJSON handles POST /api/convert/excel-to-json
//
// Multipart form: file, plus optional use_ai, min_confidence, sheet_name,
// skip_rows and max_rows fields (also accepted as query parameters).
func (h *ConvertHandler) ExcelToJSON(w http.ResponseWriter, r *http.Request) {
	filename, content, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	req := models.DefaultConversionRequest(h.minConfidence)
	if req.UseAI, ok = ParseBoolParam(w, r, "use_ai", req.UseAI, h.logger); !ok {
		return
	}
	if req.MinConfidence, ok = ParseFloatParam(w, r, "min_confidence", req.MinConfidence, h.logger); !ok {
		return
	}
	if req.SkipRows, ok = ParseIntParam(w, r, "skip_rows", 0, h.logger); !ok {
		return
	}
	if req.MaxRows, ok = ParseIntParam(w, r, "max_rows", 0, h.logger); !ok {
		return
	}
	req.SheetName = ParseStringParam(r, "sheet_name", "")

	resp, err := h.converter.ConvertToJSON(r.Context(), filename, content, req)
	if err != nil {
		h.writeServiceError(w, r, err, "CONVERSION_ERROR", "Conversion failed")
		return
	}

	if err := WriteJSON(w, http.StatusOK, resp); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// JSONToExcel handles POST /api/convert/json-to-excel
//
// The body is a JSON object; see JSONToExcelBody. With ?download=true the
// workbook is returned as a binary attachment instead of base64 JSON.
func (h *ConvertHandler) JSONToExcel(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.files.MaxFileSize)

	body := JSONToExcelBody{JSONToExcelRequest: models.DefaultJSONToExcelRequest(h.minConfidence)}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE",
				fmt.Sprintf("Request body exceeds %d bytes", maxErr.Limit))
			return
		}
		h.writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON in request body")
		return
	}
	req := body.JSONToExcelRequest
	if len(req.JSONData) == 0 && len(body.Data) > 0 {
		req.JSONData = body.Data
	}
	if len(req.JSONData) == 0 {
		h.writeError(w, http.StatusBadRequest, "NO_DATA_PROVIDED", "No JSON data provided in request body")
		return
	}

	file, err := h.converter.ConvertJSONToExcel(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err, "JSON_TO_EXCEL_ERROR", "JSON to Excel conversion failed")
		return
	}

	if wantsDownload(r) {
		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, file.Filename))
		if _, err := w.Write(file.Content); err != nil {
			h.logger.Error("Failed to write workbook", zap.Error(err))
		}
		return
	}

	response := JSONToExcelResponse{
		Status:      services.StatusSuccess,
		Message:     "JSON converted to Excel successfully",
		Filename:    file.Filename,
		ExcelBase64: base64.StdEncoding.EncodeToString(file.Content),
		Metadata:    file.Metadata,
	}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ExcelToSQL handles POST /api/convert/excel-to-sql
//
// Multipart form: file, plus optional table_name, sql_type, use_ai,
// batch_size, key_columns (comma separated), include_create_table,
// optimize_performance and dialect fields. With ?download=true the
// statements are returned as a .sql attachment.
func (h *ConvertHandler) ExcelToSQL(w http.ResponseWriter, r *http.Request) {
	filename, content, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	req := models.DefaultSQLGenerationRequest()
	req.TableName = ParseStringParam(r, "table_name", req.TableName)
	req.SQLType = ParseStringParam(r, "sql_type", req.SQLType)
	req.Dialect = ParseStringParam(r, "dialect", "")
	req.KeyColumns = ParseListParam(r, "key_columns")
	if req.UseAI, ok = ParseBoolParam(w, r, "use_ai", req.UseAI, h.logger); !ok {
		return
	}
	if req.BatchSize, ok = ParseIntParam(w, r, "batch_size", req.BatchSize, h.logger); !ok {
		return
	}
	if req.IncludeCreateTable, ok = ParseBoolParam(w, r, "include_create_table", req.IncludeCreateTable, h.logger); !ok {
		return
	}
	if req.OptimizePerformance, ok = ParseBoolParam(w, r, "optimize_performance", req.OptimizePerformance, h.logger); !ok {
		return
	}

	resp, err := h.converter.GenerateSQL(r.Context(), filename, content, req)
	if err != nil {
		h.writeServiceError(w, r, err, "EXCEL_TO_SQL_ERROR", "Excel to SQL conversion failed")
		return
	}

	if wantsDownload(r) {
		w.Header().Set("Content-Type", "application/sql; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.sql"`, req.TableName))
		if _, err := io.WriteString(w, sqlScript(resp.Statements)); err != nil {
			h.logger.Error("Failed to write SQL script", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, resp); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// readUpload extracts the "file" part of a multipart request. The body is
// capped just above the configured file size; the converter enforces the
// exact limit.
func (h *ConvertHandler) readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.files.MaxFileSize+multipartOverhead)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE",
				fmt.Sprintf("Upload exceeds %d bytes", h.files.MaxFileSize))
			return "", nil, false
		}
		h.writeError(w, http.StatusBadRequest, "NO_FILE_PROVIDED", "No file provided")
		return "", nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "NO_FILE_PROVIDED", "No file provided")
		return "", nil, false
	}
	defer func() { _ = file.Close() }()

	content, err := io.ReadAll(io.LimitReader(file, h.files.MaxFileSize+1))
	if err != nil {
		h.logger.Error("Failed to read upload", zap.String("filename", header.Filename), zap.Error(err))
		h.writeError(w, http.StatusBadRequest, "UPLOAD_READ_ERROR", "Failed to read uploaded file")
		return "", nil, false
	}
	return header.Filename, content, true
}

// writeServiceError maps converter errors to status codes. Client errors keep
// their message; anything else is logged and reported under fallbackCode.
func (h *ConvertHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error, fallbackCode, fallbackMessage string) {
	status, code := statusForError(err)
	requestID := middleware.RequestIDFromContext(r.Context())

	if services.IsClientError(err) {
		h.logger.Info("Rejected conversion request",
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestID),
			zap.String("error_code", code),
			zap.String("error", logging.SanitizeError(err)))
		h.writeError(w, status, code, logging.SanitizeError(err))
		return
	}

	h.logger.Error("Conversion failed",
		zap.String("path", r.URL.Path),
		zap.String("request_id", requestID),
		zap.String("error", logging.SanitizeError(err)))
	h.writeError(w, http.StatusInternalServerError, fallbackCode,
		fmt.Sprintf("%s: %s", fallbackMessage, logging.SanitizeError(err)))
}

func (h *ConvertHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	if err := ErrorResponse(w, status, code, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}

// statusForError returns the HTTP status and error code for a converter error.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, apperrors.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE"
	case errors.Is(err, apperrors.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType, "UNSUPPORTED_FORMAT"
	case errors.Is(err, apperrors.ErrAIRequired):
		return http.StatusBadRequest, "AI_REQUIRED"
	case errors.Is(err, apperrors.ErrEmptyInput):
		return http.StatusBadRequest, "EMPTY_INPUT"
	case errors.Is(err, apperrors.ErrSheetNotFound):
		return http.StatusBadRequest, "SHEET_NOT_FOUND"
	case errors.Is(err, apperrors.ErrInvalidRequest):
		return http.StatusBadRequest, "INVALID_REQUEST"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

func wantsDownload(r *http.Request) bool {
	return strings.EqualFold(r.URL.Query().Get("download"), "true")
}

// sqlScript renders generated statements as one script.
func sqlScript(s models.SQLStatements) string {
	var b strings.Builder
	if s.CreateTable != "" {
		b.WriteString(s.CreateTable)
		b.WriteString("\n\n")
	}
	for _, stmt := range s.Statements {
		b.WriteString(stmt)
		b.WriteString("\n")
	}
	return b.String()
}
