package models

import (
	"bytes"
	"encoding/json"
)

// ============================================================================
// Dataset
// ============================================================================

// Dataset is an ordered table of cells. Column names keep their input order
// and may repeat (duplicate headers are a detectable issue, not an error).
//
// A Dataset is never mutated after construction: every transform returns a
// new value, so a dataset handed to one pipeline stage stays valid for any
// other reader.
type Dataset struct {
	columns []string
	rows    [][]Value
}

// NewDataset builds a dataset. Short rows are padded with nulls and long rows
// are cut to the header width. The inputs are copied.
func NewDataset(columns []string, rows [][]Value) *Dataset {
	cols := append([]string(nil), columns...)
	out := make([][]Value, len(rows))
	for i, row := range rows {
		r := make([]Value, len(cols))
		copy(r, row)
		out[i] = r
	}
	return &Dataset{columns: cols, rows: out}
}

// Columns returns a copy of the column names.
func (d *Dataset) Columns() []string {
	return append([]string(nil), d.columns...)
}

// Width returns the number of columns.
func (d *Dataset) Width() int { return len(d.columns) }

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.rows) }

// IsEmpty reports whether the dataset has no rows.
func (d *Dataset) IsEmpty() bool { return len(d.rows) == 0 }

// Cell returns the value at row r, column c.
func (d *Dataset) Cell(r, c int) Value { return d.rows[r][c] }

// Row returns a copy of row r.
func (d *Dataset) Row(r int) []Value {
	return append([]Value(nil), d.rows[r]...)
}

// ColumnIndex returns the first index of the named column or -1.
func (d *Dataset) ColumnIndex(name string) int {
	for i, c := range d.columns {
		if c == name {
			return i
		}
	}
	return -1
}

// ColumnValues returns every value of column c in row order.
func (d *Dataset) ColumnValues(c int) []Value {
	out := make([]Value, len(d.rows))
	for i, row := range d.rows {
		out[i] = row[c]
	}
	return out
}

// NonNull returns up to limit non-null values of column c in row order.
// A limit <= 0 returns all of them.
func (d *Dataset) NonNull(c, limit int) []Value {
	var out []Value
	for _, row := range d.rows {
		if row[c].IsNull() {
			continue
		}
		out = append(out, row[c])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// NullCount returns the number of null cells in column c.
func (d *Dataset) NullCount(c int) int {
	n := 0
	for _, row := range d.rows {
		if row[c].IsNull() {
			n++
		}
	}
	return n
}

// ColumnKind returns the storage kind of column c: the shared kind of its
// non-null values, KindNull when every value is null, or KindText when the
// column holds more than one kind (an "object" column).
func (d *Dataset) ColumnKind(c int) ValueKind {
	kind := KindNull
	for _, row := range d.rows {
		k := row[c].Kind()
		if k == KindNull {
			continue
		}
		if kind == KindNull {
			kind = k
			continue
		}
		if k != kind {
			return KindText
		}
	}
	return kind
}

// IsObjectColumn reports whether column c behaves like free text: not purely
// numeric, boolean or date.
func (d *Dataset) IsObjectColumn(c int) bool {
	switch d.ColumnKind(c) {
	case KindNumber, KindBool, KindDate:
		return false
	default:
		return true
	}
}

// Clone returns an independent copy.
func (d *Dataset) Clone() *Dataset {
	return NewDataset(d.columns, d.rows)
}

// WithColumns returns a copy with renamed columns. names must match Width.
func (d *Dataset) WithColumns(names []string) *Dataset {
	out := d.Clone()
	copy(out.columns, names)
	return out
}

// MapColumn returns a copy with fn applied to every value of column c.
func (d *Dataset) MapColumn(c int, fn func(Value) Value) *Dataset {
	out := d.Clone()
	for _, row := range out.rows {
		row[c] = fn(row[c])
	}
	return out
}

// Head returns a copy with at most n rows.
func (d *Dataset) Head(n int) *Dataset {
	if n >= len(d.rows) {
		return d.Clone()
	}
	if n < 0 {
		n = 0
	}
	return NewDataset(d.columns, d.rows[:n])
}

// SelectColumns returns a copy keeping the given column indexes in order.
func (d *Dataset) SelectColumns(idx []int) *Dataset {
	cols := make([]string, len(idx))
	for i, c := range idx {
		cols[i] = d.columns[c]
	}
	rows := make([][]Value, len(d.rows))
	for r, row := range d.rows {
		nr := make([]Value, len(idx))
		for i, c := range idx {
			nr[i] = row[c]
		}
		rows[r] = nr
	}
	return &Dataset{columns: cols, rows: rows}
}

// Equal reports whether both datasets have the same header and cells.
func (d *Dataset) Equal(o *Dataset) bool {
	if d == nil || o == nil {
		return d == o
	}
	if len(d.columns) != len(o.columns) || len(d.rows) != len(o.rows) {
		return false
	}
	for i := range d.columns {
		if d.columns[i] != o.columns[i] {
			return false
		}
	}
	for r := range d.rows {
		for c := range d.rows[r] {
			if !d.rows[r][c].Equal(o.rows[r][c]) {
				return false
			}
		}
	}
	return true
}

// Records converts the rows to ordered JSON objects. With duplicate column
// names the key keeps its first position and the last value wins.
func (d *Dataset) Records() []Record {
	out := make([]Record, len(d.rows))
	for r, row := range d.rows {
		rec := Record{values: make(map[string]Value, len(d.columns))}
		for c, name := range d.columns {
			if _, seen := rec.values[name]; !seen {
				rec.keys = append(rec.keys, name)
			}
			rec.values[name] = row[c]
		}
		out[r] = rec
	}
	return out
}

// Record is one row rendered as an ordered JSON object.
type Record struct {
	keys   []string
	values map[string]Value
}

// Keys returns the record keys in column order.
func (r Record) Keys() []string { return append([]string(nil), r.keys...) }

// Get returns the value stored under key.
func (r Record) Get(key string) (Value, bool) {
	v, ok := r.values[key]
	return v, ok
}

// MarshalJSON implements json.Marshaler, preserving column order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
