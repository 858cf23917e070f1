package sql

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jotabap/web-conversor/pkg/models"
)

func salesDataset() *models.Dataset {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return models.NewDataset(
		[]string{"id", "Customer Name", "amount", "active", "sold_on"},
		[][]models.Value{
			{models.Number(1), models.Text("O'Brien"), models.Number(10.5), models.Bool(true), models.Date(day)},
			{models.Number(2), models.Text("Zoë"), models.Null(), models.Bool(false), models.Date(day.AddDate(0, 0, 1))},
			{models.Number(3), models.Null(), models.Number(7), models.Bool(true), models.Date(day.AddDate(0, 0, 2))},
		},
	)
}

func TestParseDialect(t *testing.T) {
	for _, name := range []string{"", "mssql", "SQLServer", "tsql"} {
		d, err := ParseDialect(name)
		require.NoError(t, err)
		assert.Equal(t, DialectMSSQL, d, name)
	}
	for _, name := range []string{"postgres", "PostgreSQL", "pg"} {
		d, err := ParseDialect(name)
		require.NoError(t, err)
		assert.Equal(t, DialectPostgres, d, name)
	}

	_, err := ParseDialect("oracle")
	assert.True(t, errors.Is(err, ErrUnknownDialect))
}

func TestDialect_Literal(t *testing.T) {
	midnight := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	stamp := time.Date(2024, 1, 15, 13, 4, 5, 0, time.UTC)

	tests := []struct {
		name    string
		dialect Dialect
		value   models.Value
		asText  bool
		want    string
	}{
		{"null", DialectMSSQL, models.Null(), false, "NULL"},
		{"null stays null as text", DialectMSSQL, models.Null(), true, "NULL"},
		{"integer", DialectMSSQL, models.Number(42), false, "42"},
		{"decimal", DialectPostgres, models.Number(3.25), false, "3.25"},
		{"unicode string mssql", DialectMSSQL, models.Text("O'Brien"), false, "N'O''Brien'"},
		{"string postgres", DialectPostgres, models.Text("O'Brien"), false, "'O''Brien'"},
		{"bool mssql", DialectMSSQL, models.Bool(true), false, "1"},
		{"bool postgres", DialectPostgres, models.Bool(false), false, "FALSE"},
		{"date", DialectMSSQL, models.Date(midnight), false, "'2024-01-15'"},
		{"timestamp", DialectPostgres, models.Date(stamp), false, "'2024-01-15 13:04:05'"},
		{"number forced to text", DialectMSSQL, models.Number(7), true, "N'7'"},
		{"nested", DialectPostgres, models.Nested(map[string]any{"a": 1.0}), false, `'{"a":1}'`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.dialect.Literal(tt.value, tt.asText))
		})
	}
}

func TestDialect_Quote(t *testing.T) {
	assert.Equal(t, "[a]]b]", DialectMSSQL.Quote("a]b"))
	assert.Equal(t, `"a""b"`, DialectPostgres.Quote(`a"b`))
}

func TestGenerator_CreateTable(t *testing.T) {
	got := NewGenerator(DialectMSSQL).CreateTable("sales", salesDataset())

	want := "CREATE TABLE [sales] (\n" +
		"    [id] INT NOT NULL,\n" +
		"    [Customer_Name] NVARCHAR(255) NULL,\n" +
		"    [amount] FLOAT NULL,\n" +
		"    [active] BIT NOT NULL,\n" +
		"    [sold_on] DATE NOT NULL\n" +
		");"
	assert.Equal(t, want, got)
}

func TestGenerator_CreateTablePostgres(t *testing.T) {
	long := strings.Repeat("x", 300)
	ds := models.NewDataset([]string{"big", "mixed", "note"}, [][]models.Value{
		{models.Number(5_000_000_000), models.Number(1), models.Text(long)},
		{models.Number(1), models.Text("two"), models.Null()},
	})

	got := NewGenerator(DialectPostgres).CreateTable("t", ds)

	assert.Contains(t, got, `"big" BIGINT NOT NULL`)
	assert.Contains(t, got, `"mixed" VARCHAR(255) NOT NULL`)
	assert.Contains(t, got, `"note" TEXT NULL`)
}

func TestGenerator_InsertStatements(t *testing.T) {
	g := NewGenerator(DialectMSSQL)

	statements := g.InsertStatements("sales", salesDataset(), 2)

	require.Len(t, statements, 2)
	assert.Equal(t,
		"INSERT INTO [sales] ([id], [Customer_Name], [amount], [active], [sold_on]) VALUES\n"+
			"    (1, N'O''Brien', 10.5, 1, '2024-03-01'),\n"+
			"    (2, N'Zoë', NULL, 0, '2024-03-02');",
		statements[0])
	assert.Equal(t,
		"INSERT INTO [sales] ([id], [Customer_Name], [amount], [active], [sold_on]) VALUES\n"+
			"    (3, NULL, 7, 1, '2024-03-03');",
		statements[1])

	for _, stmt := range statements {
		result := ValidateAndNormalize(stmt)
		assert.NoError(t, result.Error, "generated statement must be a single statement")
	}
}

func TestGenerator_InsertStatements_MixedColumnIsText(t *testing.T) {
	ds := models.NewDataset([]string{"code"}, [][]models.Value{
		{models.Number(10)},
		{models.Text("A-7")},
	})

	statements := NewGenerator(DialectPostgres).InsertStatements("codes", ds, 100)

	require.Len(t, statements, 1)
	assert.Contains(t, statements[0], "('10'),")
	assert.Contains(t, statements[0], "('A-7');")
}

func TestGenerator_InsertStatements_Empty(t *testing.T) {
	ds := models.NewDataset([]string{"a"}, nil)
	assert.Empty(t, NewGenerator("").InsertStatements("t", ds, 10))
}

func TestGenerator_InsertTemplate(t *testing.T) {
	ds := salesDataset()

	assert.Equal(t,
		"INSERT INTO [sales] ([id], [Customer_Name], [amount], [active], [sold_on]) VALUES (@p1, @p2, @p3, @p4, @p5);",
		NewGenerator(DialectMSSQL).InsertTemplate("sales", ds))
	assert.Equal(t,
		`INSERT INTO "sales" ("id", "Customer_Name", "amount", "active", "sold_on") VALUES ($1, $2, $3, $4, $5);`,
		NewGenerator(DialectPostgres).InsertTemplate("sales", ds))
}

func TestGenerator_Update(t *testing.T) {
	g := NewGenerator(DialectMSSQL)
	ds := salesDataset()

	plan, err := g.PlanUpdate(ds, []string{"id"})
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, plan.KeyColumns)
	assert.Equal(t, []string{"Customer_Name", "amount", "active", "sold_on"}, plan.UpdateColumns)

	assert.Equal(t,
		"UPDATE [sales] SET [Customer_Name] = @p1, [amount] = @p2, [active] = @p3, [sold_on] = @p4 WHERE [id] = @p5;",
		g.UpdateTemplate("sales", plan))

	statements := g.UpdateStatements("sales", ds, plan)
	require.Len(t, statements, 3)
	assert.Equal(t,
		"UPDATE [sales] SET [Customer_Name] = N'O''Brien', [amount] = 10.5, [active] = 1, [sold_on] = '2024-03-01' WHERE [id] = 1;",
		statements[0])
}

func TestGenerator_UpdateNullKeyUsesIsNull(t *testing.T) {
	g := NewGenerator(DialectPostgres)
	ds := models.NewDataset([]string{"Customer Name", "amount"}, [][]models.Value{
		{models.Null(), models.Number(1)},
	})

	// Sanitized spelling is accepted as a key name
	plan, err := g.PlanUpdate(ds, []string{"customer_name"})
	require.NoError(t, err)

	statements := g.UpdateStatements("t", ds, plan)
	require.Len(t, statements, 1)
	assert.Equal(t, `UPDATE "t" SET "amount" = 1 WHERE "Customer_Name" IS NULL;`, statements[0])
}

func TestGenerator_PlanUpdateErrors(t *testing.T) {
	g := NewGenerator(DialectMSSQL)
	ds := models.NewDataset([]string{"id"}, [][]models.Value{{models.Number(1)}})

	_, err := g.PlanUpdate(ds, []string{"missing"})
	assert.True(t, errors.Is(err, ErrUnknownKeyColumn))

	_, err = g.PlanUpdate(ds, []string{"id"})
	assert.True(t, errors.Is(err, ErrNoUpdateColumns))
}
