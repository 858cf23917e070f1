package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestParseBoolParam(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		def      bool
		want     bool
		wantOK   bool
		wantCode int
	}{
		{"absent uses default", "", true, true, true, http.StatusOK},
		{"false", "?use_ai=false", true, false, true, http.StatusOK},
		{"upper case true", "?use_ai=TRUE", false, true, true, http.StatusOK},
		{"numeric", "?use_ai=1", false, true, true, http.StatusOK},
		{"invalid", "?use_ai=maybe", false, false, false, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/x"+tt.query, nil)

			got, ok := ParseBoolParam(rec, req, "use_ai", tt.def, zap.NewNop())

			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestParseIntParam(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x?skip_rows=3", nil)
	got, ok := ParseIntParam(rec, req, "skip_rows", 0, zap.NewNop())
	assert.True(t, ok)
	assert.Equal(t, 3, got)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	got, ok = ParseIntParam(rec, req, "batch_size", 100, zap.NewNop())
	assert.True(t, ok)
	assert.Equal(t, 100, got)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/x?batch_size=1.5", nil)
	_, ok = ParseIntParam(rec, req, "batch_size", 100, zap.NewNop())
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_PARAMETER")
}

func TestParseFloatParam(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x?min_confidence=0.65", nil)
	got, ok := ParseFloatParam(rec, req, "min_confidence", 0.8, zap.NewNop())
	assert.True(t, ok)
	assert.InDelta(t, 0.65, got, 1e-9)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/x?min_confidence=high", nil)
	_, ok = ParseFloatParam(rec, req, "min_confidence", 0.8, zap.NewNop())
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParseStringParam(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x?table_name=%20orders%20", nil)
	assert.Equal(t, "orders", ParseStringParam(req, "table_name", "data_table"))
	assert.Equal(t, "mssql", ParseStringParam(req, "dialect", "mssql"))
}

func TestParseListParam(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x?key_columns=id,%20tenant_id%20,,", nil)
	assert.Equal(t, []string{"id", "tenant_id"}, ParseListParam(req, "key_columns"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	assert.Nil(t, ParseListParam(req, "key_columns"))
}
