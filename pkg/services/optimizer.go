package services

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/jotabap/web-conversor/pkg/models"
	"github.com/jotabap/web-conversor/pkg/tabular"
)

// Optimizer rewrites a dataset so it can be written to a spreadsheet.
//
// Basic mode is a pure function of the issue list: each tag triggers one
// idempotent transform. AI mode runs the same transforms and then applies
// the plan returned by the model. A step that fails is reverted and reported;
// Optimize never returns an error.
type Optimizer interface {
	Optimize(ds *models.Dataset, issues []models.IssueTag, mode models.OptimizationMode, plan *models.OptimizationPlan) (*models.Dataset, *models.OptimizationReport)
}

type optimizer struct {
	logger *zap.Logger
}

// NewOptimizer creates a new dataset optimizer.
func NewOptimizer(logger *zap.Logger) Optimizer {
	return &optimizer{logger: logger.Named("optimizer")}
}

var _ Optimizer = (*optimizer)(nil)

// optimizeRun carries one Optimize call: the current dataset and the report
// being filled.
type optimizeRun struct {
	ds     *models.Dataset
	report *models.OptimizationReport
	logger *zap.Logger
}

// step applies fn to the current dataset. A panic or error leaves the
// dataset as it was, records the failure and returns false.
func (r *optimizeRun) step(name string, fn func(ds *models.Dataset) (*models.Dataset, error)) bool {
	before := r.ds
	var (
		after *models.Dataset
		err   error
	)
	func() {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("%v", p)
			}
		}()
		after, err = fn(before)
	}()

	if err != nil {
		r.logger.Warn("Optimization step failed, reverted", zap.String("step", name), zap.Error(err))
		r.ds = before
		r.report.Failures = append(r.report.Failures, models.OptimizationErrorIssue(name+": "+err.Error()))
		r.report.Recommendations = append(r.report.Recommendations, fmt.Sprintf("Step %q failed and was skipped: %v", name, err))
		return false
	}
	r.ds = after
	return true
}

func (r *optimizeRun) applied(what string) {
	r.report.OptimizationsApplied = append(r.report.OptimizationsApplied, what)
}

func (r *optimizeRun) column(name, what string) {
	if r.report.ColumnOptimizations == nil {
		r.report.ColumnOptimizations = make(map[string]string)
	}
	if prev, ok := r.report.ColumnOptimizations[name]; ok {
		what = prev + "; " + what
	}
	r.report.ColumnOptimizations[name] = what
}

func (o *optimizer) Optimize(ds *models.Dataset, issues []models.IssueTag, mode models.OptimizationMode, plan *models.OptimizationPlan) (*models.Dataset, *models.OptimizationReport) {
	run := &optimizeRun{
		ds: ds,
		report: &models.OptimizationReport{
			Mode:                 mode,
			OptimizationsApplied: []string{},
			Recommendations:      []string{},
		},
		logger: o.logger,
	}

	o.applyBasic(run, issues)
	if mode == models.OptimizeAI && plan != nil {
		o.applyPlan(run, plan)
	}

	o.logger.Debug("Optimization complete",
		zap.String("mode", string(mode)),
		zap.Int("applied", len(run.report.OptimizationsApplied)),
		zap.Int("failures", len(run.report.Failures)))

	return run.ds, run.report
}

// applyBasic runs the per-tag transforms. Column tags refer to the original
// names, so per-column transforms run before any rename.
func (o *optimizer) applyBasic(run *optimizeRun, issues []models.IssueTag) {
	tags := make(map[models.IssueTag]struct{}, len(issues))
	for _, tag := range issues {
		tags[tag] = struct{}{}
	}
	has := func(tag models.IssueTag) bool {
		_, ok := tags[tag]
		return ok
	}

	for c, name := range run.ds.Columns() {
		if has(models.NestedDataIssue(name)) {
			if run.step("flatten_nested_"+name, func(ds *models.Dataset) (*models.Dataset, error) {
				return ds.MapColumn(c, flattenNested), nil
			}) {
				run.applied("Flattened nested values in column " + name)
				run.column(name, "nested values stored as JSON text")
			}
		}
		if has(models.LongTextIssue(name)) {
			if run.step("truncate_text_"+name, func(ds *models.Dataset) (*models.Dataset, error) {
				return ds.MapColumn(c, truncateCellText), nil
			}) {
				run.applied("Truncated long text in column " + name)
				run.column(name, fmt.Sprintf("text truncated to %d characters", tabular.MaxCellTextLength))
			}
		}
		if has(models.MixedTypesIssue(name)) {
			if run.step("unify_types_"+name, func(ds *models.Dataset) (*models.Dataset, error) {
				return ds.MapColumn(c, toText), nil
			}) {
				run.applied("Converted mixed-type column " + name + " to text")
				run.column(name, "converted to text")
			}
		}
	}

	// Duplicate names are reported, never renamed.
	if has(models.IssueDuplicateColumnNames) {
		run.report.Recommendations = append(run.report.Recommendations,
			"Duplicate column names left unchanged: "+strings.Join(duplicateNames(run.ds.Columns()), ", "))
	}

	if has(models.IssueProblematicColumnNames) {
		if run.step("sanitize_column_names", func(ds *models.Dataset) (*models.Dataset, error) {
			names := ds.Columns()
			for i, name := range names {
				names[i] = SafeColumnName(name)
			}
			return ds.WithColumns(names), nil
		}) {
			run.applied("Sanitized column names for Excel")
		}
	}

	if has(models.IssueExceedsExcelRowLimit) && run.ds.Len() > maxExcelDataRows {
		dropped := run.ds.Len() - maxExcelDataRows
		if run.step("truncate_rows", func(ds *models.Dataset) (*models.Dataset, error) {
			return ds.Head(maxExcelDataRows), nil
		}) {
			run.applied(fmt.Sprintf("Truncated to %d rows", maxExcelDataRows))
			run.report.Recommendations = append(run.report.Recommendations,
				fmt.Sprintf("%d rows exceeded the Excel row limit and were dropped", dropped))
		}
	}

	if has(models.IssueExceedsExcelColLimit) && run.ds.Width() > tabular.MaxExcelColumns {
		dropped := run.ds.Width() - tabular.MaxExcelColumns
		if run.step("truncate_columns", func(ds *models.Dataset) (*models.Dataset, error) {
			keep := make([]int, tabular.MaxExcelColumns)
			for i := range keep {
				keep[i] = i
			}
			return ds.SelectColumns(keep), nil
		}) {
			run.applied(fmt.Sprintf("Truncated to %d columns", tabular.MaxExcelColumns))
			run.report.Recommendations = append(run.report.Recommendations,
				fmt.Sprintf("%d columns exceeded the Excel column limit and were dropped", dropped))
		}
	}
}

// applyPlan applies the model's rename map, then type conversions, then the
// optional reorder. TypeConversions keys may use either the original or the
// renamed column name; original names win.
func (o *optimizer) applyPlan(run *optimizeRun, plan *models.OptimizationPlan) {
	// Renames keep positions, so an original name still locates its column.
	original := run.ds.Columns()

	if len(plan.ColumnMapping) > 0 {
		var renamed []string
		if run.step("rename_columns", func(ds *models.Dataset) (*models.Dataset, error) {
			renamed = nil
			names := ds.Columns()
			used := make(map[string]struct{}, len(names))
			for _, n := range names {
				used[n] = struct{}{}
			}
			for i, name := range names {
				target, ok := plan.ColumnMapping[name]
				target = SafeColumnName(strings.TrimSpace(target))
				if !ok || target == "" || target == name {
					continue
				}
				if _, taken := used[target]; taken {
					run.report.Recommendations = append(run.report.Recommendations,
						fmt.Sprintf("Skipped renaming %s to %s: name already used", name, target))
					continue
				}
				delete(used, name)
				used[target] = struct{}{}
				names[i] = target
				renamed = append(renamed, name, target)
			}
			return ds.WithColumns(names), nil
		}) && len(renamed) > 0 {
			for i := 0; i < len(renamed); i += 2 {
				run.column(renamed[i+1], "renamed from "+renamed[i])
			}
			run.applied("Applied AI column mapping")
		}
	}

	for _, column := range slices.Sorted(maps.Keys(plan.TypeConversions)) {
		target := plan.TypeConversions[column]
		c := slices.Index(original, column)
		if c < 0 {
			c = run.ds.ColumnIndex(column)
		}
		if c < 0 {
			run.report.Recommendations = append(run.report.Recommendations,
				fmt.Sprintf("Type conversion skipped: column %s not found", column))
			continue
		}
		column = run.ds.Columns()[c]
		convert, ok := typeConverters[strings.ToLower(strings.TrimSpace(target))]
		if !ok {
			run.report.Recommendations = append(run.report.Recommendations,
				fmt.Sprintf("Type conversion skipped: unknown type %q for column %s", target, column))
			continue
		}
		if run.step("convert_"+column, func(ds *models.Dataset) (*models.Dataset, error) {
			return convertColumn(ds, c, convert)
		}) {
			run.applied(fmt.Sprintf("Converted column %s to %s", column, target))
			run.column(column, "converted to "+target)
		}
	}

	if plan.Reorder {
		if run.step("reorder_columns", func(ds *models.Dataset) (*models.Dataset, error) {
			return ds.SelectColumns(ReorderColumns(ds)), nil
		}) {
			run.applied("Reordered columns by role")
		}
	}
}

type valueConverter func(models.Value) (models.Value, bool)

var typeConverters = map[string]valueConverter{
	models.ConvertToNumeric:  toNumeric,
	models.ConvertToDatetime: toDatetime,
	models.ConvertToText:     func(v models.Value) (models.Value, bool) { return toText(v), true },
}

// convertColumn converts every non-null cell of column c, failing when any
// cell cannot be converted.
func convertColumn(ds *models.Dataset, c int, convert valueConverter) (*models.Dataset, error) {
	for r := 0; r < ds.Len(); r++ {
		v := ds.Cell(r, c)
		if v.IsNull() {
			continue
		}
		if _, ok := convert(v); !ok {
			return nil, fmt.Errorf("row %d: cannot convert %q", r+1, logTruncate(v.String()))
		}
	}
	return ds.MapColumn(c, func(v models.Value) models.Value {
		if v.IsNull() {
			return v
		}
		out, _ := convert(v)
		return out
	}), nil
}

func toNumeric(v models.Value) (models.Value, bool) {
	if v.Kind() == models.KindNumber {
		return v, true
	}
	if !v.LooksNumeric() {
		return v, false
	}
	parsed := tabular.ParseCell(strings.TrimSpace(v.String()))
	if parsed.Kind() != models.KindNumber {
		return v, false
	}
	return parsed, true
}

func toDatetime(v models.Value) (models.Value, bool) {
	if v.Kind() == models.KindDate {
		return v, true
	}
	text, ok := v.TextValue()
	if !ok {
		return v, false
	}
	parsed := tabular.ParseCell(strings.TrimSpace(text))
	if parsed.Kind() != models.KindDate {
		return v, false
	}
	return parsed, true
}

func toText(v models.Value) models.Value {
	if v.IsNull() || v.Kind() == models.KindText {
		return v
	}
	return models.Text(v.String())
}

func flattenNested(v models.Value) models.Value {
	if v.Kind() != models.KindNested {
		return v
	}
	return models.Text(v.String())
}

func truncateCellText(v models.Value) models.Value {
	text, ok := v.TextValue()
	if !ok || utf8.RuneCountInString(text) <= tabular.MaxCellTextLength {
		return v
	}
	return models.Text(string([]rune(text)[:tabular.MaxCellTextLength]))
}

func logTruncate(s string) string {
	const limit = 40
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit]) + "..."
}

// SafeColumnName replaces characters Excel rejects in headers with "_" and
// cuts the name to 255 characters.
func SafeColumnName(name string) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(excelForbiddenInName, r) {
			return '_'
		}
		return r
	}, name)
	if utf8.RuneCountInString(name) > maxExcelColumnName {
		name = string([]rune(name)[:maxExcelColumnName])
	}
	return name
}

var (
	labelHints = []string{"name", "title", "label"}
	dateHints  = []string{"date", "time", "created", "updated"}
)

// ReorderColumns returns column indexes grouped by role: identifiers, then
// labels, then dates, then numeric columns, then the rest. Order within a
// group is preserved.
func ReorderColumns(ds *models.Dataset) []int {
	groups := make([][]int, 5)
	for c, name := range ds.Columns() {
		lower := strings.ToLower(name)
		switch {
		case strings.Contains(lower, "id"):
			groups[0] = append(groups[0], c)
		case containsAny(lower, labelHints):
			groups[1] = append(groups[1], c)
		case containsAny(lower, dateHints):
			groups[2] = append(groups[2], c)
		case ds.ColumnKind(c) == models.KindNumber:
			groups[3] = append(groups[3], c)
		default:
			groups[4] = append(groups[4], c)
		}
	}

	order := make([]int, 0, ds.Width())
	for _, g := range groups {
		order = append(order, g...)
	}
	return order
}

func containsAny(s string, hints []string) bool {
	for _, h := range hints {
		if strings.Contains(s, h) {
			return true
		}
	}
	return false
}

func duplicateNames(columns []string) []string {
	seen := make(map[string]int, len(columns))
	var dups []string
	for _, name := range columns {
		seen[name]++
		if seen[name] == 2 {
			dups = append(dups, name)
		}
	}
	return dups
}
