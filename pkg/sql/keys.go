package sql

import (
	"strings"

	"github.com/jinzhu/inflection"

	"github.com/jotabap/web-conversor/pkg/models"
)

// maxDetectedKeys caps how many columns DetectKeyColumns returns.
const maxDetectedKeys = 2

// DetectKeyColumns picks the WHERE-clause columns for UPDATE generation when
// the caller did not supply any. Candidates, in priority order:
//
//  1. a column named "id"
//  2. the table's own foreign-key style name: "customer_id" for table
//     "customers" (singularised with inflection) or "customers_id"
//  3. any other column named like an identifier ("..._id", "...id")
//  4. when nothing above matched, the first column whose values are all
//     present and unique
//
// At most two columns are returned. When nothing matches, the first column
// is used.
func DetectKeyColumns(table string, ds *models.Dataset) []string {
	columns := ds.Columns()
	if len(columns) == 0 {
		return nil
	}

	singular := strings.ToLower(inflection.Singular(table))
	plural := strings.ToLower(table)
	ownKeys := map[string]bool{
		singular + "_id": true,
		singular + "id":  true,
		plural + "_id":   true,
	}

	var keys []string
	taken := make(map[int]bool)
	add := func(i int) bool {
		if taken[i] || len(keys) >= maxDetectedKeys {
			return len(keys) >= maxDetectedKeys
		}
		taken[i] = true
		keys = append(keys, columns[i])
		return len(keys) >= maxDetectedKeys
	}

	tiers := []func(i int, lower string) bool{
		func(_ int, lower string) bool { return lower == "id" },
		func(_ int, lower string) bool { return ownKeys[lower] },
		func(_ int, lower string) bool { return looksLikeIdentifier(lower) },
		func(i int, _ string) bool { return len(keys) == 0 && isUniqueColumn(ds, i) },
	}
	for _, match := range tiers {
		for i, col := range columns {
			if match(i, strings.ToLower(strings.TrimSpace(col))) && add(i) {
				return keys
			}
		}
	}

	if len(keys) == 0 {
		keys = []string{columns[0]}
	}
	return keys
}

func looksLikeIdentifier(lower string) bool {
	return strings.HasSuffix(lower, "_id") || strings.HasPrefix(lower, "id_")
}

// isUniqueColumn reports whether column c has no nulls and no repeated values.
func isUniqueColumn(ds *models.Dataset, c int) bool {
	if ds.Len() == 0 {
		return false
	}
	seen := make(map[string]struct{}, ds.Len())
	for r := 0; r < ds.Len(); r++ {
		v := ds.Cell(r, c)
		if v.IsNull() {
			return false
		}
		key := v.Kind().String() + ":" + v.String()
		if _, dup := seen[key]; dup {
			return false
		}
		seen[key] = struct{}{}
	}
	return true
}
