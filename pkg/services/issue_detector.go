package services

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/jotabap/web-conversor/pkg/models"
	"github.com/jotabap/web-conversor/pkg/sql"
	"github.com/jotabap/web-conversor/pkg/tabular"
)

// Detection thresholds.
const (
	mixedTypeSample      = 100
	malformedSample      = 50
	malformedMaxPercent  = 10
	encodingSample       = 50
	highMissingPercent   = 50.0
	injectionSample      = 100
	maxExcelColumnName   = 255
	excelForbiddenInName = `/\*?[]`
)

// maxExcelDataRows leaves room for the header row.
const maxExcelDataRows = tabular.MaxExcelRows - 1

var malformedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\s*$`),
	regexp.MustCompile(`^#+$`),
	regexp.MustCompile(`^N/A$|^n/a$|^NULL$|^null$`),
	regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d+Z?$`),
}

// DetectionResult is the outcome of a deterministic dataset scan.
type DetectionResult struct {
	HasIssues         bool
	Issues            []models.IssueTag
	ColumnTypes       map[string]models.SemanticType
	Rows              int
	Columns           int
	MissingPercentage map[string]float64
	AnalysisType      models.AnalysisType
}

// IssueDetector runs cheap deterministic data-quality checks.
// None of its methods fail: internal errors become a synthetic issue tag.
type IssueDetector interface {
	// Detect runs the general checks used before any conversion.
	Detect(ds *models.Dataset) *DetectionResult

	// DetectForExcel returns the issues that block writing ds as a workbook.
	DetectForExcel(ds *models.Dataset) []models.IssueTag

	// DetectForSQL returns the issues that make generated SQL unsafe or invalid.
	DetectForSQL(ds *models.Dataset) []models.IssueTag
}

type issueDetector struct {
	logger *zap.Logger
}

// NewIssueDetector creates a new issue detector.
func NewIssueDetector(logger *zap.Logger) IssueDetector {
	return &issueDetector{logger: logger.Named("issue-detector")}
}

var _ IssueDetector = (*issueDetector)(nil)

func (d *issueDetector) Detect(ds *models.Dataset) (result *DetectionResult) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Deterministic analysis failed", zap.Any("panic", r))
			result = &DetectionResult{
				HasIssues:         true,
				Issues:            []models.IssueTag{models.AnalysisErrorIssue(fmt.Sprint(r))},
				ColumnTypes:       map[string]models.SemanticType{},
				MissingPercentage: map[string]float64{},
				AnalysisType:      models.AnalysisError,
			}
		}
	}()

	var issues []models.IssueTag

	if ds.IsEmpty() {
		issues = append(issues, models.IssueEmptyDataset)
	}

	for c, name := range ds.Columns() {
		if hasMixedTypes(ds, c) {
			issues = append(issues, models.MixedTypesIssue(name))
		}
	}

	missing := make(map[string]float64, ds.Width())
	var highMissing []string
	if !ds.IsEmpty() {
		for c, name := range ds.Columns() {
			pct := float64(ds.NullCount(c)) / float64(ds.Len()) * 100
			missing[name] = pct
			if pct > highMissingPercent {
				highMissing = append(highMissing, name)
			}
		}
	}
	if len(highMissing) > 0 {
		issues = append(issues, models.HighMissingIssue(highMissing))
	}

	if hasDuplicateNames(ds.Columns()) {
		issues = append(issues, models.IssueDuplicateColumnNames)
	}

	for c, name := range ds.Columns() {
		if ds.IsObjectColumn(c) && hasMalformedPatterns(ds, c) {
			issues = append(issues, models.MalformedIssue(name))
		}
	}

	if hasEncodingIssues(ds) {
		issues = append(issues, models.IssueEncoding)
	}

	d.logger.Info("Deterministic analysis complete",
		zap.Int("rows", ds.Len()),
		zap.Int("columns", ds.Width()),
		zap.Int("issues", len(issues)))

	return &DetectionResult{
		HasIssues:         len(issues) > 0,
		Issues:            issues,
		ColumnTypes:       ClassifyColumns(ds),
		Rows:              ds.Len(),
		Columns:           ds.Width(),
		MissingPercentage: missing,
		AnalysisType:      models.AnalysisDeterministic,
	}
}

func (d *issueDetector) DetectForExcel(ds *models.Dataset) (issues []models.IssueTag) {
	defer d.recoverInto(&issues, "excel")

	problematicNames := false
	for c, name := range ds.Columns() {
		if columnHasNested(ds, c) {
			issues = append(issues, models.NestedDataIssue(name))
		}
		if strings.ContainsAny(name, excelForbiddenInName) || utf8.RuneCountInString(name) > maxExcelColumnName {
			problematicNames = true
		}
		if columnHasLongText(ds, c) {
			issues = append(issues, models.LongTextIssue(name))
		}
		if hasMixedTypes(ds, c) {
			issues = append(issues, models.MixedTypesIssue(name))
		}
	}
	if problematicNames {
		issues = append(issues, models.IssueProblematicColumnNames)
	}
	if hasDuplicateNames(ds.Columns()) {
		issues = append(issues, models.IssueDuplicateColumnNames)
	}
	if ds.Len() > maxExcelDataRows {
		issues = append(issues, models.IssueExceedsExcelRowLimit)
	}
	if ds.Width() > tabular.MaxExcelColumns {
		issues = append(issues, models.IssueExceedsExcelColLimit)
	}
	return issues
}

func (d *issueDetector) DetectForSQL(ds *models.Dataset) (issues []models.IssueTag) {
	defer d.recoverInto(&issues, "sql")

	for c, name := range ds.Columns() {
		if !sql.IsValidIdentifier(name) {
			issues = append(issues, models.SQLIdentifierIssue(name))
		}
		if hits := sql.CheckColumnForInjection(ds, c, injectionSample); len(hits) > 0 {
			d.logger.Warn("Potential SQL injection in column values",
				zap.String("column", name),
				zap.Int("hits", len(hits)),
				zap.String("fingerprint", hits[0].Fingerprint))
			issues = append(issues, models.SQLInjectionIssue(name))
		}
		if hasMixedTypes(ds, c) {
			issues = append(issues, models.MixedTypesIssue(name))
		}
	}
	return issues
}

func (d *issueDetector) recoverInto(issues *[]models.IssueTag, target string) {
	if r := recover(); r != nil {
		d.logger.Error("Target issue detection failed", zap.String("target", target), zap.Any("panic", r))
		*issues = append(*issues, models.AnalysisErrorIssue(fmt.Sprint(r)))
	}
}

// hasMixedTypes reports whether the first non-null values of a free-text
// column mix numeric-looking and non-numeric values.
func hasMixedTypes(ds *models.Dataset, c int) bool {
	if !ds.IsObjectColumn(c) {
		return false
	}
	numeric, other := 0, 0
	for _, v := range ds.NonNull(c, mixedTypeSample) {
		if v.LooksNumeric() {
			numeric++
		} else {
			other++
		}
	}
	return numeric > 0 && other > 0
}

func hasDuplicateNames(columns []string) bool {
	seen := make(map[string]struct{}, len(columns))
	for _, name := range columns {
		if _, ok := seen[name]; ok {
			return true
		}
		seen[name] = struct{}{}
	}
	return false
}

// hasMalformedPatterns reports whether any malformed-marker pattern matches
// more than malformedMaxPercent of the sampled values.
func hasMalformedPatterns(ds *models.Dataset, c int) bool {
	sample := ds.NonNull(c, malformedSample)
	if len(sample) == 0 {
		return false
	}
	for _, pattern := range malformedPatterns {
		matches := 0
		for _, v := range sample {
			if pattern.MatchString(v.String()) {
				matches++
			}
		}
		if matches*100 > len(sample)*malformedMaxPercent {
			return true
		}
	}
	return false
}

func hasEncodingIssues(ds *models.Dataset) bool {
	for c := range ds.Columns() {
		if !ds.IsObjectColumn(c) {
			continue
		}
		for _, v := range ds.NonNull(c, encodingSample) {
			if strings.ContainsAny(v.String(), "\uFFFD\x00") {
				return true
			}
		}
	}
	return false
}

func columnHasNested(ds *models.Dataset, c int) bool {
	for _, v := range ds.ColumnValues(c) {
		if v.Kind() == models.KindNested {
			return true
		}
	}
	return false
}

func columnHasLongText(ds *models.Dataset, c int) bool {
	for _, v := range ds.ColumnValues(c) {
		if text, ok := v.TextValue(); ok && utf8.RuneCountInString(text) > tabular.MaxCellTextLength {
			return true
		}
	}
	return false
}
