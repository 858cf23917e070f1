package tabular

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jotabap/web-conversor/pkg/apperrors"
	"github.com/jotabap/web-conversor/pkg/models"
)

// ctxCheckEvery is how many records are parsed between cancellation checks.
const ctxCheckEvery = 1000

// CSVReader parses comma separated files with a header row.
type CSVReader struct {
	Comma rune // defaults to ','
}

// Read implements Reader.
func (r CSVReader) Read(ctx context.Context, content []byte, opts ReadOptions) (*Table, error) {
	cr := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))))
	if r.Comma != 0 {
		cr.Comma = r.Comma
	}
	cr.FieldsPerRecord = -1

	// Only the rows the window can use are kept
	limit := -1
	if opts.MaxRows > 0 {
		limit = opts.SkipRows + 1 + opts.MaxRows
	}

	var records [][]string
	for limit < 0 || len(records) < limit {
		if len(records)%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read csv: %v", apperrors.ErrInvalidRequest, err)
		}
		records = append(records, rec)
	}

	header, data, ok := window(records, opts)
	if !ok {
		return nil, fmt.Errorf("%w: csv has no header row", apperrors.ErrEmptyInput)
	}

	rows := make([][]models.Value, len(data))
	for i, rec := range data {
		row := make([]models.Value, len(rec))
		for c, raw := range rec {
			row[c] = ParseCell(raw)
		}
		rows[i] = row
	}

	for i, h := range header {
		header[i] = strings.ToValidUTF8(h, "\uFFFD")
	}
	return &Table{Dataset: buildDataset(header, rows)}, nil
}
