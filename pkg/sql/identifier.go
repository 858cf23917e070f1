package sql

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// reservedWords are keywords shared by SQL Server and PostgreSQL that break
// an unquoted column list.
var reservedWords = map[string]struct{}{
	"add": {}, "all": {}, "alter": {}, "and": {}, "any": {}, "as": {}, "asc": {},
	"between": {}, "by": {}, "case": {}, "check": {}, "column": {}, "constraint": {},
	"create": {}, "cross": {}, "current": {}, "default": {}, "delete": {}, "desc": {},
	"distinct": {}, "drop": {}, "else": {}, "end": {}, "exec": {}, "exists": {},
	"foreign": {}, "from": {}, "full": {}, "grant": {}, "group": {}, "having": {},
	"in": {}, "index": {}, "inner": {}, "insert": {}, "into": {}, "is": {}, "join": {},
	"key": {}, "left": {}, "like": {}, "not": {}, "null": {}, "of": {}, "on": {},
	"or": {}, "order": {}, "outer": {}, "primary": {}, "references": {}, "right": {},
	"select": {}, "set": {}, "table": {}, "then": {}, "to": {}, "truncate": {},
	"union": {}, "unique": {}, "update": {}, "user": {}, "values": {}, "view": {},
	"when": {}, "where": {}, "with": {},
}

// IsReservedWord reports whether name is a reserved SQL keyword.
func IsReservedWord(name string) bool {
	_, ok := reservedWords[strings.ToLower(name)]
	return ok
}

// IsValidIdentifier reports whether name can be used unquoted as a table or
// column name: letters, digits and underscores, not starting with a digit,
// and not a reserved word.
func IsValidIdentifier(name string) bool {
	return identifierPattern.MatchString(name) && !IsReservedWord(name)
}

// foldAccents strips combining marks so "Descripción" becomes "Descripcion".
// Transformers carry state, so a new chain is built per call.
func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// SanitizeIdentifier turns an arbitrary header into a safe identifier.
// Accents are folded, runs of unsupported characters become a single
// underscore, a leading digit gets an underscore prefix and reserved words
// get a "_col" suffix.
func SanitizeIdentifier(name string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range foldAccents(strings.TrimSpace(name)) {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastUnderscore = r == '_'
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}

	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "column"
	}
	if out[0] >= '0' && out[0] <= '9' {
		out = "_" + out
	}
	if IsReservedWord(out) {
		out += "_col"
	}
	return out
}

// SanitizeIdentifiers applies SanitizeIdentifier to every name and makes the
// results unique (case-insensitively) by appending _2, _3, ... to repeats.
func SanitizeIdentifiers(names []string) []string {
	out := make([]string, len(names))
	seen := make(map[string]bool, len(names))
	for i, name := range names {
		base := SanitizeIdentifier(name)
		candidate := base
		for n := 2; seen[strings.ToLower(candidate)]; n++ {
			candidate = base + "_" + strconv.Itoa(n)
		}
		seen[strings.ToLower(candidate)] = true
		out[i] = candidate
	}
	return out
}
