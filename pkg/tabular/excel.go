package tabular

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/jotabap/web-conversor/pkg/apperrors"
	"github.com/jotabap/web-conversor/pkg/models"
)

// Spreadsheet format ceilings.
const (
	MaxExcelRows       = 1048576
	MaxExcelColumns    = 16384
	MaxCellTextLength  = 32767
	MaxSheetNameLength = 31

	maxColumnWidth  = 50
	headerFillColor = "CCCCCC"
)

// ExcelReader parses .xlsx workbooks.
type ExcelReader struct{}

// Read implements Reader. The header is the first row after SkipRows.
func (ExcelReader) Read(ctx context.Context, content []byte, opts ReadOptions) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("%w: open workbook: %v", apperrors.ErrUnsupportedFormat, err)
	}
	defer func() { _ = f.Close() }()

	sheet, err := pickSheet(f, opts.SheetName)
	if err != nil {
		return nil, err
	}

	records, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	header, data, ok := window(records, opts)
	if !ok {
		return nil, fmt.Errorf("%w: sheet %q has no header row", apperrors.ErrEmptyInput, sheet)
	}

	typer := &excelCellTyper{f: f, sheet: sheet, dateStyles: make(map[int]bool)}
	firstDataRow := opts.SkipRows + 2 // 1-based, after the header

	rows := make([][]models.Value, len(data))
	for i, rec := range data {
		if i%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		row := make([]models.Value, len(rec))
		for c, raw := range rec {
			row[c] = typer.value(c+1, firstDataRow+i, raw)
		}
		rows[i] = row
	}

	return &Table{Dataset: buildDataset(header, rows), SheetName: sheet}, nil
}

func pickSheet(f *excelize.File, name string) (string, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", fmt.Errorf("%w: workbook has no sheets", apperrors.ErrEmptyInput)
	}
	if name == "" {
		return sheets[0], nil
	}
	for _, s := range sheets {
		if strings.EqualFold(s, name) {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q (available: %s)", apperrors.ErrSheetNotFound, name, strings.Join(sheets, ", "))
}

// excelCellTyper recovers cell kinds from raw values, cell types and number
// formats. Date styles are cached by style ID.
type excelCellTyper struct {
	f          *excelize.File
	sheet      string
	dateStyles map[int]bool
}

func (t *excelCellTyper) value(col, row int, raw string) models.Value {
	if raw == "" {
		return models.Null()
	}
	ref, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return ParseCell(raw)
	}

	cellType, _ := t.f.GetCellType(t.sheet, ref)
	switch cellType {
	case excelize.CellTypeBool:
		return models.Bool(raw == "1" || strings.EqualFold(raw, "true"))
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString,
		excelize.CellTypeError, excelize.CellTypeFormula:
		return models.Text(raw)
	case excelize.CellTypeDate:
		// Native date cells are real dates even with fractional seconds.
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			return models.Date(ts)
		}
		if ts, ok := parseISOTime(raw); ok {
			return models.Date(ts)
		}
		return models.Text(raw)
	}

	num, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return models.Text(raw)
	}
	if t.isDateCell(ref) {
		if ts, err := excelize.ExcelDateToTime(num, false); err == nil {
			return models.Date(ts)
		}
	}
	return models.Number(num)
}

func (t *excelCellTyper) isDateCell(ref string) bool {
	styleID, err := t.f.GetCellStyle(t.sheet, ref)
	if err != nil || styleID == 0 {
		return false
	}
	if isDate, ok := t.dateStyles[styleID]; ok {
		return isDate
	}

	isDate := false
	if style, err := t.f.GetStyle(styleID); err == nil && style != nil {
		isDate = isDateNumFmt(style.NumFmt) ||
			(style.CustomNumFmt != nil && isDateFormatCode(*style.CustomNumFmt))
	}
	t.dateStyles[styleID] = isDate
	return isDate
}

// isDateNumFmt reports whether a builtin number format ID renders a date.
func isDateNumFmt(id int) bool {
	return (id >= 14 && id <= 22) || (id >= 45 && id <= 47)
}

// isDateFormatCode reports whether a custom format code renders a date.
// Quoted literals and bracketed sections (colors, locales) are ignored.
func isDateFormatCode(code string) bool {
	var b strings.Builder
	inQuote, inBracket := false, false
	for _, r := range strings.ToLower(code) {
		switch {
		case r == '"':
			inQuote = !inQuote
		case inQuote:
		case r == '[':
			inBracket = true
		case r == ']':
			inBracket = false
		case inBracket:
		default:
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	return strings.ContainsAny(cleaned, "yd") || strings.Contains(cleaned, "mmm") || strings.Contains(cleaned, "h:mm")
}

// WriteOptions controls workbook generation.
type WriteOptions struct {
	SheetName  string
	Formatting bool // bold shaded header and fitted column widths
}

// WriteExcel renders ds as a single-sheet .xlsx workbook.
func WriteExcel(ctx context.Context, ds *models.Dataset, opts WriteOptions) ([]byte, error) {
	if ds.Len()+1 > MaxExcelRows || ds.Width() > MaxExcelColumns {
		return nil, fmt.Errorf("%w: %d rows x %d columns exceeds the spreadsheet limits",
			apperrors.ErrInvalidRequest, ds.Len(), ds.Width())
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := SafeSheetName(opts.SheetName)
	if sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			return nil, fmt.Errorf("name sheet: %w", err)
		}
	}

	columns := ds.Columns()
	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for r := 0; r < ds.Len(); r++ {
		if r%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		row := make([]any, ds.Width())
		for c := range row {
			row[c] = excelValue(ds.Cell(r, c))
		}
		ref, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, ref, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", r+1, err)
		}
	}

	if opts.Formatting && ds.Width() > 0 {
		if err := formatSheet(f, sheet, ds); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func excelValue(v models.Value) any {
	switch v.Kind() {
	case models.KindNull:
		return nil
	case models.KindNumber:
		f, _ := v.Float()
		return f
	case models.KindBool:
		b, _ := v.BoolValue()
		return b
	case models.KindDate:
		t, _ := v.Time()
		return t
	default:
		return v.String()
	}
}

func formatSheet(f *excelize.File, sheet string, ds *models.Dataset) error {
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{headerFillColor}},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	last, err := excelize.CoordinatesToCellName(ds.Width(), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for c, name := range ds.Columns() {
		width := utf8.RuneCountInString(name)
		for r := 0; r < ds.Len(); r++ {
			width = max(width, displayWidth(ds.Cell(r, c)))
		}
		col, err := excelize.ColumnNumberToName(c + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, float64(min(width+2, maxColumnWidth))); err != nil {
			return fmt.Errorf("size column %s: %w", col, err)
		}
	}
	return nil
}

func displayWidth(v models.Value) int {
	if t, ok := v.Time(); ok {
		// Rendered as m/d/yy h:mm by default
		if t.Hour() == 0 && t.Minute() == 0 {
			return len("01-02-06")
		}
		return len(t.Format(time.DateTime))
	}
	return utf8.RuneCountInString(v.String())
}

// SafeSheetName returns a name Excel accepts: forbidden characters replaced,
// at most 31 characters, "Sheet1" when blank.
func SafeSheetName(name string) string {
	name = strings.Trim(strings.TrimSpace(name), "'")
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return '_'
		}
		return r
	}, name)
	if utf8.RuneCountInString(name) > MaxSheetNameLength {
		name = strings.TrimRight(string([]rune(name)[:MaxSheetNameLength]), "'")
	}
	if name == "" {
		return "Sheet1"
	}
	return name
}
