// Package prompts builds the issue-resolution prompts sent to the completion
// model and the dataset summaries embedded in them.
package prompts

import (
	"encoding/json"

	"github.com/jotabap/web-conversor/pkg/models"
)

// sampleRows is how many records are embedded in a prompt.
const sampleRows = 3

// ColumnSummary describes one column of a dataset.
type ColumnSummary struct {
	Name    string
	Kind    string // storage kind: number, text, boolean, date, nested or null
	Missing int
}

// DataSummary describes a tabular dataset for an analysis prompt.
type DataSummary struct {
	Filename string
	Rows     int
	Columns  []ColumnSummary
	Sample   string // first records as indented JSON
}

// ColumnsOfKind returns the names of the columns stored as kind.
func (s DataSummary) ColumnsOfKind(kind models.ValueKind) []string {
	var out []string
	for _, c := range s.Columns {
		if c.Kind == kind.String() {
			out = append(out, c.Name)
		}
	}
	return out
}

// NewDataSummary summarizes ds for a prompt.
func NewDataSummary(filename string, ds *models.Dataset) DataSummary {
	cols := make([]ColumnSummary, ds.Width())
	for c, name := range ds.Columns() {
		cols[c] = ColumnSummary{
			Name:    name,
			Kind:    ds.ColumnKind(c).String(),
			Missing: ds.NullCount(c),
		}
	}
	return DataSummary{
		Filename: filename,
		Rows:     ds.Len(),
		Columns:  cols,
		Sample:   sampleJSON(ds),
	}
}

// JSON structure types.
const (
	StructureArray  = "array"
	StructureObject = "object"
)

// JSONSummary describes decoded JSON records for an Excel optimization prompt.
type JSONSummary struct {
	TotalRecords  int
	AllKeys       []string
	NestedKeys    []string
	StructureType string
	Sample        string
}

// NewJSONSummary summarizes records decoded from a JSON array or object.
func NewJSONSummary(ds *models.Dataset, structureType string) JSONSummary {
	var nested []string
	for c, name := range ds.Columns() {
		for _, v := range ds.ColumnValues(c) {
			if v.Kind() == models.KindNested {
				nested = append(nested, name)
				break
			}
		}
	}
	return JSONSummary{
		TotalRecords:  ds.Len(),
		AllKeys:       ds.Columns(),
		NestedKeys:    nested,
		StructureType: structureType,
		Sample:        sampleJSON(ds),
	}
}

// SQLSample describes a dataset for a SQL generation prompt.
type SQLSample struct {
	Table           string
	Columns         []ColumnSummary
	Sample          string
	TotalRows       int
	NullableColumns []string
	KeyColumns      []string
}

// NewSQLSample summarizes ds for a SQL prompt targeting table.
func NewSQLSample(table string, ds *models.Dataset, keyColumns []string) SQLSample {
	s := NewDataSummary("", ds)
	var nullable []string
	for _, c := range s.Columns {
		if c.Missing > 0 {
			nullable = append(nullable, c.Name)
		}
	}
	return SQLSample{
		Table:           table,
		Columns:         s.Columns,
		Sample:          s.Sample,
		TotalRows:       s.Rows,
		NullableColumns: nullable,
		KeyColumns:      keyColumns,
	}
}

func sampleJSON(ds *models.Dataset) string {
	raw, err := json.MarshalIndent(ds.Head(sampleRows).Records(), "", "  ")
	if err != nil {
		return "[]"
	}
	return string(raw)
}
