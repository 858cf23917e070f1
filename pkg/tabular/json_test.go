package tabular

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jotabap/web-conversor/pkg/apperrors"
	"github.com/jotabap/web-conversor/pkg/models"
)

func TestDecodeRecords_Array(t *testing.T) {
	raw := []byte(`[
		{"zeta": 1, "alpha": "a", "flag": true},
		{"alpha": "b", "extra": null, "zeta": 2.5}
	]`)

	ds, err := DecodeRecords(raw)
	require.NoError(t, err)

	assert.Equal(t, []string{"zeta", "alpha", "flag", "extra"}, ds.Columns())
	require.Equal(t, 2, ds.Len())
	assert.True(t, models.Number(1).Equal(ds.Cell(0, 0)))
	assert.True(t, models.Bool(true).Equal(ds.Cell(0, 2)))
	assert.True(t, ds.Cell(0, 3).IsNull(), "missing key becomes null")
	assert.True(t, ds.Cell(1, 2).IsNull())
	assert.True(t, models.Number(2.5).Equal(ds.Cell(1, 0)))
}

func TestDecodeRecords_SingleObject(t *testing.T) {
	ds, err := DecodeRecords([]byte(`{"name": "solo", "n": 3}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "n"}, ds.Columns())
	assert.Equal(t, 1, ds.Len())
}

func TestDecodeRecords_NestedValues(t *testing.T) {
	ds, err := DecodeRecords([]byte(`[{"id": 1, "tags": ["a", "b"], "meta": {"k": "v"}}]`))
	require.NoError(t, err)

	assert.Equal(t, models.KindNested, ds.Cell(0, 1).Kind())
	assert.Equal(t, models.KindNested, ds.Cell(0, 2).Kind())
	assert.True(t, ds.IsObjectColumn(2))
}

func TestDecodeRecords_EmptyArray(t *testing.T) {
	ds, err := DecodeRecords([]byte(`[]`))
	require.NoError(t, err)
	assert.True(t, ds.IsEmpty())
	assert.Equal(t, 0, ds.Width())
}

func TestDecodeRecords_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{not json`},
		{"scalar root", `42`},
		{"array of scalars", `[1, 2]`},
		{"mixed array", `[{"a": 1}, "x"]`},
		{"trailing data", `{"a": 1} {"b": 2}`},
		{"empty", ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeRecords([]byte(tt.raw))
			assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)
		})
	}
}
