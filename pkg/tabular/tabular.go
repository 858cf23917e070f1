// Package tabular reads CSV, Excel and JSON-records input into datasets and
// writes datasets back out as Excel workbooks.
package tabular

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/jotabap/web-conversor/pkg/apperrors"
	"github.com/jotabap/web-conversor/pkg/models"
)

// ReadOptions controls how a tabular file is turned into a dataset.
type ReadOptions struct {
	SheetName string // Excel only; empty selects the first sheet
	SkipRows  int    // rows skipped before the header row
	MaxRows   int    // data rows kept after the header; 0 keeps all
}

// Table is a parsed file.
type Table struct {
	Dataset   *models.Dataset
	SheetName string // sheet actually read, empty for CSV
	Format    string // registered format name, e.g. "csv" or "excel"
}

// Reader parses one file format.
type Reader interface {
	Read(ctx context.Context, content []byte, opts ReadOptions) (*Table, error)
}

// FormatInfo describes a registered reader.
type FormatInfo struct {
	Name       string   `json:"name"`
	Extensions []string `json:"extensions"`
}

type registration struct {
	info   FormatInfo
	reader Reader
}

var (
	registryMu sync.RWMutex
	byExt      = make(map[string]registration)
	formats    []FormatInfo
)

// Register adds a reader for the given extensions (with leading dot).
// Later registrations for the same extension replace earlier ones.
func Register(info FormatInfo, reader Reader) {
	registryMu.Lock()
	defer registryMu.Unlock()
	for _, ext := range info.Extensions {
		byExt[strings.ToLower(ext)] = registration{info: info, reader: reader}
	}
	formats = append(formats, info)
}

// RegisteredFormats lists the formats that can be read.
func RegisteredFormats() []FormatInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return append([]FormatInfo(nil), formats...)
}

func init() {
	Register(FormatInfo{Name: "csv", Extensions: []string{".csv"}}, CSVReader{})
	Register(FormatInfo{Name: "excel", Extensions: []string{".xlsx", ".xlsm", ".xls"}}, ExcelReader{})
}

// ReaderFor returns the reader registered for the file's extension.
func ReaderFor(filename string) (Reader, FormatInfo, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	registryMu.RLock()
	defer registryMu.RUnlock()
	reg, ok := byExt[ext]
	if !ok {
		return nil, FormatInfo{}, fmt.Errorf("%w: %q", apperrors.ErrUnsupportedFormat, ext)
	}
	return reg.reader, reg.info, nil
}

// Read parses content with the reader registered for filename.
func Read(ctx context.Context, filename string, content []byte, opts ReadOptions) (*Table, error) {
	reader, info, err := ReaderFor(filename)
	if err != nil {
		return nil, err
	}
	table, err := reader.Read(ctx, content, opts)
	if err != nil {
		return nil, err
	}
	table.Format = info.Name
	return table, nil
}

// buildDataset turns a header plus typed rows into a dataset. Rows wider
// than the header get generated column names, and blank header cells are
// named after their position.
func buildDataset(header []string, rows [][]models.Value) *models.Dataset {
	width := len(header)
	for _, row := range rows {
		width = max(width, len(row))
	}

	columns := make([]string, width)
	for i := range columns {
		name := ""
		if i < len(header) {
			name = strings.TrimSpace(header[i])
		}
		if name == "" {
			name = "column_" + strconv.Itoa(i+1)
		}
		columns[i] = name
	}
	return models.NewDataset(columns, rows)
}

// window applies skip/max options to a list of raw records and splits off
// the header. ok is false when nothing is left for a header.
func window(records [][]string, opts ReadOptions) (header []string, data [][]string, ok bool) {
	if opts.SkipRows >= len(records) {
		return nil, nil, false
	}
	records = records[opts.SkipRows:]
	header, data = records[0], records[1:]
	if opts.MaxRows > 0 && len(data) > opts.MaxRows {
		data = data[:opts.MaxRows]
	}
	return header, data, true
}
