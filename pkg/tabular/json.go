package tabular

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/jotabap/web-conversor/pkg/apperrors"
	"github.com/jotabap/web-conversor/pkg/models"
)

// ErrNotRecords is returned when JSON input is neither an object nor an
// array of objects.
var ErrNotRecords = errors.New("json_data must be an object or an array of objects")

// DecodeRecords converts JSON records into a dataset. The root may be one
// object (a single row) or an array of objects. Columns follow the order in
// which keys are first seen. Nested objects and arrays are kept as nested
// cells; missing keys become nulls.
func DecodeRecords(raw []byte) (*models.Dataset, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidRequest, err)
	}

	b := &recordBuilder{index: make(map[string]int)}
	switch tok {
	case json.Delim('{'):
		if err := b.readObject(dec); err != nil {
			return nil, err
		}
	case json.Delim('['):
		for dec.More() {
			next, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidRequest, err)
			}
			if next != json.Delim('{') {
				return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidRequest, ErrNotRecords)
			}
			if err := b.readObject(dec); err != nil {
				return nil, err
			}
		}
		if _, err := dec.Token(); err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidRequest, err)
		}
	default:
		return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidRequest, ErrNotRecords)
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after JSON value", apperrors.ErrInvalidRequest)
	}
	return b.dataset(), nil
}

type recordBuilder struct {
	columns []string
	index   map[string]int
	rows    []map[int]models.Value
}

// readObject consumes one object whose opening brace was already read.
func (b *recordBuilder) readObject(dec *json.Decoder) error {
	row := make(map[int]models.Value)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("%w: %v", apperrors.ErrInvalidRequest, err)
		}
		key, _ := keyTok.(string)

		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("%w: value of %q: %v", apperrors.ErrInvalidRequest, key, err)
		}

		idx, ok := b.index[key]
		if !ok {
			idx = len(b.columns)
			b.index[key] = idx
			b.columns = append(b.columns, key)
		}
		row[idx] = models.ValueFromAny(value)
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrInvalidRequest, err)
	}
	b.rows = append(b.rows, row)
	return nil
}

func (b *recordBuilder) dataset() *models.Dataset {
	rows := make([][]models.Value, len(b.rows))
	for i, sparse := range b.rows {
		row := make([]models.Value, len(b.columns))
		for idx, v := range sparse {
			row[idx] = v
		}
		rows[i] = row
	}
	return models.NewDataset(b.columns, rows)
}
