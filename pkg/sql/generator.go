package sql

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jotabap/web-conversor/pkg/models"
)

// Dialect selects identifier quoting, literal syntax and column types.
type Dialect string

const (
	DialectMSSQL    Dialect = "mssql"
	DialectPostgres Dialect = "postgres"
)

var (
	// ErrNoUpdateColumns is returned when every column is a key column.
	ErrNoUpdateColumns = errors.New("no non-key columns to update")

	// ErrUnknownKeyColumn is returned when a key column is not in the dataset.
	ErrUnknownKeyColumn = errors.New("key column not found")

	// ErrUnknownDialect is returned by ParseDialect for unsupported names.
	ErrUnknownDialect = errors.New("unknown SQL dialect")
)

// ParseDialect maps a user supplied dialect name. Empty selects SQL Server.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "mssql", "sqlserver", "tsql":
		return DialectMSSQL, nil
	case "postgres", "postgresql", "pg":
		return DialectPostgres, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDialect, name)
	}
}

// Quote quotes an identifier for the dialect.
func (d Dialect) Quote(name string) string {
	if d == DialectPostgres {
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	}
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// Placeholder returns the n-th (1-based) bind parameter marker.
func (d Dialect) Placeholder(n int) string {
	if d == DialectPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return fmt.Sprintf("@p%d", n)
}

// Literal renders a cell as a SQL literal. asText forces non-null values into
// a string literal, used for columns that mix kinds.
func (d Dialect) Literal(v models.Value, asText bool) string {
	if v.IsNull() {
		return "NULL"
	}
	if asText {
		return d.stringLiteral(v.String())
	}

	switch v.Kind() {
	case models.KindNumber:
		return v.String()
	case models.KindBool:
		b, _ := v.BoolValue()
		if d == DialectPostgres {
			if b {
				return "TRUE"
			}
			return "FALSE"
		}
		if b {
			return "1"
		}
		return "0"
	case models.KindDate:
		t, _ := v.Time()
		if isMidnight(t) {
			return "'" + t.Format("2006-01-02") + "'"
		}
		return "'" + t.Format("2006-01-02 15:04:05") + "'"
	default:
		return d.stringLiteral(v.String())
	}
}

func (d Dialect) stringLiteral(s string) string {
	escaped := strings.ReplaceAll(s, "'", "''")
	if d == DialectMSSQL {
		return "N'" + escaped + "'"
	}
	return "'" + escaped + "'"
}

// column is the per-column SQL shape derived from a dataset.
type column struct {
	name     string // sanitized identifier
	sqlType  string
	nullable bool
	asText   bool
}

// Generator renders deterministic CREATE TABLE, INSERT and UPDATE text.
type Generator struct {
	dialect Dialect
}

// NewGenerator creates a generator for the dialect.
func NewGenerator(d Dialect) *Generator {
	if d == "" {
		d = DialectMSSQL
	}
	return &Generator{dialect: d}
}

// Dialect returns the generator's dialect.
func (g *Generator) Dialect() Dialect { return g.dialect }

// ColumnNames returns the sanitized identifiers used for ds's columns.
func (g *Generator) ColumnNames(ds *models.Dataset) []string {
	return SanitizeIdentifiers(ds.Columns())
}

func (g *Generator) columns(ds *models.Dataset) []column {
	names := g.ColumnNames(ds)
	out := make([]column, len(names))
	for c := range names {
		sqlType, asText := g.columnType(ds, c)
		out[c] = column{
			name:     names[c],
			sqlType:  sqlType,
			nullable: ds.Len() == 0 || ds.NullCount(c) > 0,
			asText:   asText,
		}
	}
	return out
}

// columnType infers the SQL type of column c.
func (g *Generator) columnType(ds *models.Dataset, c int) (string, bool) {
	pg := g.dialect == DialectPostgres
	switch ds.ColumnKind(c) {
	case models.KindNumber:
		integral, big := true, false
		for _, v := range ds.NonNull(c, 0) {
			f, _ := v.Float()
			if f != math.Trunc(f) {
				integral = false
				break
			}
			if math.Abs(f) > math.MaxInt32 {
				big = true
			}
		}
		switch {
		case !integral && pg:
			return "DOUBLE PRECISION", false
		case !integral:
			return "FLOAT", false
		case big:
			return "BIGINT", false
		case pg:
			return "INTEGER", false
		default:
			return "INT", false
		}
	case models.KindBool:
		if pg {
			return "BOOLEAN", false
		}
		return "BIT", false
	case models.KindDate:
		allDates := true
		for _, v := range ds.NonNull(c, 0) {
			if t, _ := v.Time(); !isMidnight(t) {
				allDates = false
				break
			}
		}
		switch {
		case allDates:
			return "DATE", false
		case pg:
			return "TIMESTAMP", false
		default:
			return "DATETIME2", false
		}
	}

	maxLen := 0
	for _, v := range ds.NonNull(c, 0) {
		if n := utf8.RuneCountInString(v.String()); n > maxLen {
			maxLen = n
		}
	}
	asText := ds.ColumnKind(c) == models.KindText
	switch {
	case maxLen <= 255 && pg:
		return "VARCHAR(255)", asText
	case maxLen <= 255:
		return "NVARCHAR(255)", asText
	case pg:
		return "TEXT", asText
	case maxLen <= 4000:
		return "NVARCHAR(4000)", asText
	default:
		return "NVARCHAR(MAX)", asText
	}
}

// CreateTable renders a CREATE TABLE statement for ds.
func (g *Generator) CreateTable(table string, ds *models.Dataset) string {
	cols := g.columns(ds)
	lines := make([]string, len(cols))
	for i, col := range cols {
		null := "NULL"
		if !col.nullable {
			null = "NOT NULL"
		}
		lines[i] = fmt.Sprintf("    %s %s %s", g.dialect.Quote(col.name), col.sqlType, null)
	}
	return fmt.Sprintf("CREATE TABLE %s (\n%s\n);", g.dialect.Quote(table), strings.Join(lines, ",\n"))
}

// InsertTemplate renders a parameterised single-row INSERT.
func (g *Generator) InsertTemplate(table string, ds *models.Dataset) string {
	names := g.ColumnNames(ds)
	quoted := make([]string, len(names))
	params := make([]string, len(names))
	for i, n := range names {
		quoted[i] = g.dialect.Quote(n)
		params[i] = g.dialect.Placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s);",
		g.dialect.Quote(table), strings.Join(quoted, ", "), strings.Join(params, ", "))
}

// InsertStatements renders multi-row INSERT statements, batchSize rows each.
func (g *Generator) InsertStatements(table string, ds *models.Dataset, batchSize int) []string {
	if ds.Len() == 0 {
		return nil
	}
	if batchSize < 1 {
		batchSize = 1
	}

	cols := g.columns(ds)
	quoted := make([]string, len(cols))
	for i, col := range cols {
		quoted[i] = g.dialect.Quote(col.name)
	}
	header := fmt.Sprintf("INSERT INTO %s (%s) VALUES\n", g.dialect.Quote(table), strings.Join(quoted, ", "))

	statements := make([]string, 0, (ds.Len()+batchSize-1)/batchSize)
	for start := 0; start < ds.Len(); start += batchSize {
		end := min(start+batchSize, ds.Len())
		rows := make([]string, 0, end-start)
		for r := start; r < end; r++ {
			values := make([]string, len(cols))
			for c, col := range cols {
				values[c] = g.dialect.Literal(ds.Cell(r, c), col.asText)
			}
			rows = append(rows, "    ("+strings.Join(values, ", ")+")")
		}
		statements = append(statements, header+strings.Join(rows, ",\n")+";")
	}
	return statements
}

// UpdatePlan is the column split for UPDATE generation, in sanitized names.
type UpdatePlan struct {
	KeyColumns    []string
	UpdateColumns []string
	keyIdx        []int
	setIdx        []int
}

// PlanUpdate resolves key columns (original header names) against ds.
func (g *Generator) PlanUpdate(ds *models.Dataset, keyColumns []string) (*UpdatePlan, error) {
	names := g.ColumnNames(ds)
	isKey := make(map[int]bool, len(keyColumns))
	plan := &UpdatePlan{}
	for _, key := range keyColumns {
		idx := ds.ColumnIndex(key)
		if idx < 0 {
			// Accept the sanitized spelling too
			for i, n := range names {
				if strings.EqualFold(n, key) {
					idx = i
					break
				}
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("%w: %s", ErrUnknownKeyColumn, key)
		}
		if isKey[idx] {
			continue
		}
		isKey[idx] = true
		plan.keyIdx = append(plan.keyIdx, idx)
		plan.KeyColumns = append(plan.KeyColumns, names[idx])
	}
	for i, n := range names {
		if !isKey[i] {
			plan.setIdx = append(plan.setIdx, i)
			plan.UpdateColumns = append(plan.UpdateColumns, n)
		}
	}
	if len(plan.setIdx) == 0 {
		return nil, ErrNoUpdateColumns
	}
	return plan, nil
}

// UpdateTemplate renders a parameterised UPDATE for the plan. SET parameters
// come first, then the key parameters.
func (g *Generator) UpdateTemplate(table string, plan *UpdatePlan) string {
	n := 0
	set := make([]string, len(plan.UpdateColumns))
	for i, col := range plan.UpdateColumns {
		n++
		set[i] = fmt.Sprintf("%s = %s", g.dialect.Quote(col), g.dialect.Placeholder(n))
	}
	where := make([]string, len(plan.KeyColumns))
	for i, col := range plan.KeyColumns {
		n++
		where[i] = fmt.Sprintf("%s = %s", g.dialect.Quote(col), g.dialect.Placeholder(n))
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE %s;",
		g.dialect.Quote(table), strings.Join(set, ", "), strings.Join(where, " AND "))
}

// UpdateStatements renders one UPDATE per row. Null keys compare with IS NULL.
func (g *Generator) UpdateStatements(table string, ds *models.Dataset, plan *UpdatePlan) []string {
	cols := g.columns(ds)
	statements := make([]string, 0, ds.Len())
	for r := 0; r < ds.Len(); r++ {
		set := make([]string, len(plan.setIdx))
		for i, c := range plan.setIdx {
			set[i] = fmt.Sprintf("%s = %s", g.dialect.Quote(cols[c].name), g.dialect.Literal(ds.Cell(r, c), cols[c].asText))
		}
		where := make([]string, len(plan.keyIdx))
		for i, c := range plan.keyIdx {
			v := ds.Cell(r, c)
			if v.IsNull() {
				where[i] = g.dialect.Quote(cols[c].name) + " IS NULL"
				continue
			}
			where[i] = fmt.Sprintf("%s = %s", g.dialect.Quote(cols[c].name), g.dialect.Literal(v, cols[c].asText))
		}
		statements = append(statements, fmt.Sprintf("UPDATE %s SET %s WHERE %s;",
			g.dialect.Quote(table), strings.Join(set, ", "), strings.Join(where, " AND ")))
	}
	return statements
}

func isMidnight(t time.Time) bool {
	return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
}
