package sql

import (
	libinjection "github.com/corazawaf/libinjection-go"

	"github.com/jotabap/web-conversor/pkg/models"
)

// InjectionCheckResult contains the result of an injection check on a cell value.
type InjectionCheckResult struct {
	Column      string // Column the value came from
	Row         int    // Zero-based row index, -1 when checked outside a dataset
	Value       string // The text that was checked
	Fingerprint string // libinjection fingerprint of the detected pattern
}

// CheckValueForInjection uses libinjection to detect SQL injection patterns
// in a single cell.
//
// Only text cells are checked. Numbers, booleans, dates and nulls are rendered
// by the generator as literals and cannot carry a payload, so they return nil.
//
// Example:
//
//	result := CheckValueForInjection("comment", models.Text("'; DROP TABLE users--"))
//	// result.Fingerprint == "s&1c" (or similar)
func CheckValueForInjection(column string, value models.Value) *InjectionCheckResult {
	text, ok := value.TextValue()
	if !ok || text == "" {
		return nil
	}

	isSQLi, fingerprint := libinjection.IsSQLi(text)
	if !isSQLi {
		return nil
	}
	return &InjectionCheckResult{
		Column:      column,
		Row:         -1,
		Value:       text,
		Fingerprint: string(fingerprint),
	}
}

// CheckColumnForInjection scans up to limit non-null values of column c and
// returns every hit. A limit <= 0 scans the whole column.
func CheckColumnForInjection(ds *models.Dataset, c, limit int) []*InjectionCheckResult {
	name := ds.Columns()[c]
	var results []*InjectionCheckResult
	checked := 0
	for r := 0; r < ds.Len(); r++ {
		v := ds.Cell(r, c)
		if v.IsNull() {
			continue
		}
		if result := CheckValueForInjection(name, v); result != nil {
			result.Row = r
			results = append(results, result)
		}
		checked++
		if limit > 0 && checked >= limit {
			break
		}
	}
	return results
}
