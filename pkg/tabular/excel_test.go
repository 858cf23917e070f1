package tabular

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/jotabap/web-conversor/pkg/apperrors"
	"github.com/jotabap/web-conversor/pkg/models"
)

func inventoryDataset() *models.Dataset {
	return models.NewDataset(
		[]string{"sku", "name", "price", "in_stock", "received"},
		[][]models.Value{
			{models.Number(1001), models.Text("Widget"), models.Number(9.5), models.Bool(true),
				models.Date(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))},
			{models.Number(1002), models.Text("Gadget"), models.Null(), models.Bool(false),
				models.Date(time.Date(2024, 3, 16, 14, 30, 5, 0, time.UTC))},
		},
	)
}

func TestWriteExcel_RoundTrip(t *testing.T) {
	ds := inventoryDataset()

	content, err := WriteExcel(context.Background(), ds, WriteOptions{SheetName: "Inventory"})
	require.NoError(t, err)

	table, err := ExcelReader{}.Read(context.Background(), content, ReadOptions{})
	require.NoError(t, err)

	assert.Equal(t, "Inventory", table.SheetName)
	got := table.Dataset
	assert.Equal(t, ds.Columns(), got.Columns())
	require.Equal(t, 2, got.Len())

	for r := 0; r < ds.Len(); r++ {
		for c := 0; c < ds.Width(); c++ {
			assert.True(t, ds.Cell(r, c).Equal(got.Cell(r, c)),
				"cell (%d,%d): want %v (%s), got %v (%s)",
				r, c, ds.Cell(r, c), ds.Cell(r, c).Kind(), got.Cell(r, c), got.Cell(r, c).Kind())
		}
	}
}

func TestWriteExcel_Formatting(t *testing.T) {
	content, err := WriteExcel(context.Background(), inventoryDataset(), WriteOptions{Formatting: true})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	styleID, err := f.GetCellStyle("Sheet1", "A1")
	require.NoError(t, err)
	style, err := f.GetStyle(styleID)
	require.NoError(t, err)
	require.NotNil(t, style.Font)
	assert.True(t, style.Font.Bold)
	assert.Equal(t, "pattern", style.Fill.Type)

	width, err := f.GetColWidth("Sheet1", "B")
	require.NoError(t, err)
	assert.Equal(t, float64(len("Widget")+2), width)
}

func TestWriteExcel_CapsColumnWidth(t *testing.T) {
	ds := models.NewDataset([]string{"notes"}, [][]models.Value{{models.Text(strings.Repeat("x", 200))}})

	content, err := WriteExcel(context.Background(), ds, WriteOptions{Formatting: true})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	width, err := f.GetColWidth("Sheet1", "A")
	require.NoError(t, err)
	assert.Equal(t, float64(maxColumnWidth), width)
}

func TestWriteExcel_TooManyColumns(t *testing.T) {
	cols := make([]string, MaxExcelColumns+1)
	for i := range cols {
		cols[i] = "c"
	}

	_, err := WriteExcel(context.Background(), models.NewDataset(cols, nil), WriteOptions{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)
}

func TestExcelReader_SheetSelection(t *testing.T) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "first"))
	_, err := f.NewSheet("Data")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Data", "A1", &[]any{"id", "label"}))
	require.NoError(t, f.SetSheetRow("Data", "A2", &[]any{1, "one"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	table, err := ExcelReader{}.Read(context.Background(), buf.Bytes(), ReadOptions{SheetName: "data"})
	require.NoError(t, err)
	assert.Equal(t, "Data", table.SheetName)
	assert.Equal(t, []string{"id", "label"}, table.Dataset.Columns())

	_, err = ExcelReader{}.Read(context.Background(), buf.Bytes(), ReadOptions{SheetName: "Missing"})
	assert.ErrorIs(t, err, apperrors.ErrSheetNotFound)
	assert.Contains(t, err.Error(), "Data")
}

func TestExcelReader_CustomDateFormat(t *testing.T) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "when"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", 45366.0))
	code := "dd/mm/yyyy"
	styleID, err := f.NewStyle(&excelize.Style{CustomNumFmt: &code})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle("Sheet1", "A2", "A2", styleID))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	table, err := ExcelReader{}.Read(context.Background(), buf.Bytes(), ReadOptions{})
	require.NoError(t, err)

	got, ok := table.Dataset.Cell(0, 0).Time()
	require.True(t, ok, "cell should be a date, got %s", table.Dataset.Cell(0, 0).Kind())
	assert.Equal(t, "2024-03-15", got.Format(time.DateOnly))
}

func TestExcelReader_SkipAndMaxRows(t *testing.T) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Quarterly report"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"id", "amount"}))
	for i := 0; i < 5; i++ {
		cell, _ := excelize.CoordinatesToCellName(1, i+3)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &[]any{i + 1, float64(i) * 10}))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	table, err := ExcelReader{}.Read(context.Background(), buf.Bytes(), ReadOptions{SkipRows: 1, MaxRows: 3})
	require.NoError(t, err)

	ds := table.Dataset
	assert.Equal(t, []string{"id", "amount"}, ds.Columns())
	require.Equal(t, 3, ds.Len())
	assert.True(t, models.Number(3).Equal(ds.Cell(2, 0)))
	assert.True(t, models.Number(20).Equal(ds.Cell(2, 1)))
}

func TestExcelReader_NotAWorkbook(t *testing.T) {
	_, err := ExcelReader{}.Read(context.Background(), []byte("id,name\n1,a\n"), ReadOptions{})
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedFormat)
}

func TestSafeSheetName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Sales", "Sales"},
		{"", "Sheet1"},
		{"   ", "Sheet1"},
		{"Q1/Q2: [draft]", "Q1_Q2_ _draft_"},
		{"'quoted'", "quoted"},
		{strings.Repeat("a", 40), strings.Repeat("a", 31)},
		{strings.Repeat("a", 30) + "'b", strings.Repeat("a", 30)},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SafeSheetName(tt.in))
		})
	}
}

func TestRead_DispatchesByExtension(t *testing.T) {
	table, err := Read(context.Background(), "data.CSV", []byte("a\n1\n"), ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "csv", table.Format)

	_, err = Read(context.Background(), "data.txt", []byte("a\n1\n"), ReadOptions{})
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedFormat)
}

func TestRegisteredFormats(t *testing.T) {
	names := make([]string, 0)
	for _, f := range RegisteredFormats() {
		names = append(names, f.Name)
	}
	assert.Contains(t, names, "csv")
	assert.Contains(t, names, "excel")
}
