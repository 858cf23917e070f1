package sql

import (
	"errors"
	"testing"
)

func TestValidateAndNormalize_SingleStatements(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "insert without semicolon",
			input:    "INSERT INTO t (a) VALUES (1)",
			expected: "INSERT INTO t (a) VALUES (1)",
		},
		{
			name:     "insert with trailing semicolon and whitespace",
			input:    "INSERT INTO t (a) VALUES (1);  \n",
			expected: "INSERT INTO t (a) VALUES (1)",
		},
		{
			name:     "semicolon inside string literal",
			input:    "INSERT INTO t (note) VALUES ('a;b');",
			expected: "INSERT INTO t (note) VALUES ('a;b')",
		},
		{
			name:     "escaped quote keeps literal open",
			input:    "UPDATE t SET name = 'O''Brien;' WHERE id = 1;",
			expected: "UPDATE t SET name = 'O''Brien;' WHERE id = 1",
		},
		{
			name:     "semicolon inside bracket identifier",
			input:    "INSERT INTO [odd;table] ([a]) VALUES (@p1)",
			expected: "INSERT INTO [odd;table] ([a]) VALUES (@p1)",
		},
		{
			name:     "semicolon inside double quoted identifier",
			input:    `UPDATE "t;x" SET "a" = $1 WHERE "id" = $2;`,
			expected: `UPDATE "t;x" SET "a" = $1 WHERE "id" = $2`,
		},
		{
			name:     "multiline template",
			input:    "INSERT INTO t\n  (a, b)\nVALUES\n  (@p1, @p2);",
			expected: "INSERT INTO t\n  (a, b)\nVALUES\n  (@p1, @p2)",
		},
		{
			name:     "whitespace only",
			input:    "   ",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateAndNormalize(tt.input)
			if result.Error != nil {
				t.Errorf("unexpected error: %v", result.Error)
			}
			if result.NormalizedSQL != tt.expected {
				t.Errorf("got %q, want %q", result.NormalizedSQL, tt.expected)
			}
		})
	}
}

func TestValidateAndNormalize_MultipleStatements(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"two inserts", "INSERT INTO t VALUES (1); INSERT INTO t VALUES (2)"},
		{"insert then drop", "INSERT INTO t VALUES (1); DROP TABLE t;"},
		{"no space after semicolon", "UPDATE t SET a = 1;DELETE FROM t"},
		{"statement after closed literal", "INSERT INTO t VALUES ('x'); SELECT 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateAndNormalize(tt.input)
			if result.Error != ErrMultipleStatements {
				t.Errorf("expected ErrMultipleStatements, got %v", result.Error)
			}
		})
	}
}

func TestValidateTemplate(t *testing.T) {
	tests := []struct {
		name     string
		template string
		sqlType  string
		expected string
		wantErr  error
	}{
		{
			name:     "insert template",
			template: "INSERT INTO [sales] ([id], [amount]) VALUES (@p1, @p2)",
			sqlType:  "insert",
			expected: "INSERT INTO [sales] ([id], [amount]) VALUES (@p1, @p2);",
		},
		{
			name:     "update template is case insensitive",
			template: "update sales set amount = ? where id = ?;",
			sqlType:  "UPDATE",
			expected: "update sales set amount = ? where id = ?;",
		},
		{
			name:     "code fence stripped",
			template: "```sql\nINSERT INTO t (a) VALUES (?);\n```",
			sqlType:  "insert",
			expected: "INSERT INTO t (a) VALUES (?);",
		},
		{
			name:     "wrong verb",
			template: "DELETE FROM t WHERE id = ?",
			sqlType:  "update",
			wantErr:  ErrWrongStatementKind,
		},
		{
			name:     "stacked statements",
			template: "INSERT INTO t (a) VALUES (?); DROP TABLE t",
			sqlType:  "insert",
			wantErr:  ErrMultipleStatements,
		},
		{
			name:     "empty",
			template: "  ;  ",
			sqlType:  "insert",
			wantErr:  ErrEmptyStatement,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateTemplate(tt.template, tt.sqlType)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestHasSemicolonOutsideStrings(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"no semicolons", "INSERT INTO t VALUES (1)", false},
		{"bare semicolon", "SELECT 1; SELECT 2", true},
		{"inside single quotes", "VALUES ('a;b')", false},
		{"inside double quotes", `SET "a;b" = 1`, false},
		{"inside brackets", "INSERT INTO [a;b]", false},
		{"after bracket closes", "INSERT INTO [a]; SELECT 1", true},
		{"backslash escaped quote", `VALUES ('it\'s;fine')`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := hasSemicolonOutsideStrings(tt.input); got != tt.expected {
				t.Errorf("got %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestStripTrailingSemicolon(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"no semicolon", "UPDATE t SET a = 1", "UPDATE t SET a = 1"},
		{"trailing semicolon", "UPDATE t SET a = 1;", "UPDATE t SET a = 1"},
		{"whitespace before semicolon", "UPDATE t SET a = 1 ;", "UPDATE t SET a = 1"},
		{"only one semicolon stripped", "UPDATE t SET a = 1;;", "UPDATE t SET a = 1;"},
		{"tabs and newlines", "UPDATE t SET a = 1;\t\n", "UPDATE t SET a = 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripTrailingSemicolon(tt.input); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}
