package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jotabap/web-conversor/pkg/apperrors"
	"github.com/jotabap/web-conversor/pkg/llm"
	"github.com/jotabap/web-conversor/pkg/models"
	"github.com/jotabap/web-conversor/pkg/prompts"
)

func newTestResolutionClient(completer llm.Completer) ResolutionClient {
	return NewResolutionClient(completer, "azure", time.Second, zap.NewNop())
}

func TestResolutionClient_Unavailable(t *testing.T) {
	client := NewResolutionClient(nil, "azure", time.Second, zap.NewNop())

	assert.False(t, client.Available())
	assert.Empty(t, client.Provider())

	_, err := client.ResolveTabular(context.Background(), prompts.NewDataSummary("a.csv", mixedDataset()), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrAIProcessingFailed)
	assert.ErrorIs(t, err, llm.ErrNotConfigured)
}

func TestResolutionClient_ResolveTabular(t *testing.T) {
	mock := llm.NewMockCompleter("Here you go:\n```json\n" + `{
  "confidence": "90%",
  "analysis_type": "issue_resolution",
  "detected_patterns": ["mixed_types_in_column_amount"],
  "recommendations": ["Convert amount to numeric", 42],
  "cleaning_steps": "Replace N/A with null"
}` + "\n```")
	client := newTestResolutionClient(mock)
	issues := []models.IssueTag{models.MixedTypesIssue("amount")}

	result, err := client.ResolveTabular(context.Background(), prompts.NewDataSummary("orders.csv", mixedDataset()), issues)

	require.NoError(t, err)
	assert.Equal(t, 90.0, result.Confidence.Or(0))
	assert.Equal(t, "issue_resolution", result.AnalysisType)
	assert.Equal(t, []string{"mixed_types_in_column_amount"}, result.DetectedPatterns)
	assert.Equal(t, []string{"Convert amount to numeric", "42"}, result.Recommendations)
	assert.Equal(t, []string{"Replace N/A with null"}, result.CleaningSteps)

	require.Equal(t, 1, mock.Calls())
	assert.Contains(t, mock.Prompts()[0], "mixed_types_in_column_amount")
	assert.Contains(t, mock.Prompts()[0], "orders.csv")
}

func TestResolutionClient_MissingConfidenceIsUnset(t *testing.T) {
	client := newTestResolutionClient(llm.NewMockCompleter(`{"recommendations": ["ok"]}`))

	result, err := client.ResolveTabular(context.Background(), prompts.NewDataSummary("a.csv", mixedDataset()), nil)

	require.NoError(t, err)
	assert.False(t, result.Confidence.Set)
	assert.Equal(t, 85.0, result.Confidence.Or(85))
}

func TestResolutionClient_ParseFallbacks(t *testing.T) {
	tests := []struct {
		name           string
		response       string
		wantConfidence float64
		wantRec        string
	}{
		{name: "no json", response: "I cannot help with that.", wantConfidence: 75, wantRec: "Check AI response format"},
		{name: "unbalanced", response: "{ not closed", wantConfidence: 75, wantRec: "Check AI response format"},
		{name: "broken json", response: `{"confidence": 80, "recommendations": [}`, wantConfidence: 50, wantRec: "Parse error: "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestResolutionClient(llm.NewMockCompleter(tt.response))
			issues := []models.IssueTag{models.IssueEncoding}

			result, err := client.ResolveTabular(context.Background(), prompts.NewDataSummary("a.csv", mixedDataset()), issues)

			require.NoError(t, err)
			assert.Equal(t, tt.wantConfidence, result.Confidence.Value)
			assert.True(t, result.Confidence.Set)
			require.Len(t, result.Recommendations, 1)
			assert.Contains(t, result.Recommendations[0], tt.wantRec)
			assert.Equal(t, []string{"encoding_issues"}, result.DetectedPatterns)
		})
	}
}

func TestResolutionClient_Timeout(t *testing.T) {
	client := NewResolutionClient(llm.NewBlockingCompleter(), "azure", 20*time.Millisecond, zap.NewNop())

	start := time.Now()
	_, err := client.ResolveTabular(context.Background(), prompts.NewDataSummary("a.csv", mixedDataset()), nil)

	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.ErrorIs(t, err, apperrors.ErrAIProcessingFailed)
	assert.True(t, llm.IsTimeout(err))
}

func TestResolutionClient_TransportError(t *testing.T) {
	client := newTestResolutionClient(llm.NewFailingCompleter(errors.New("dial tcp: connection refused")))

	_, err := client.ResolveExcel(context.Background(), prompts.JSONSummary{}, nil)

	var pe *ProcessingError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "excel optimization", pe.Op)
	assert.Equal(t, llm.ErrorTypeEndpoint, llm.GetErrorType(err))
	assert.Contains(t, tagMessage(err), "connection refused")
	assert.NotContains(t, tagMessage(err), "excel optimization")
}

func TestResolutionClient_ResolveExcel(t *testing.T) {
	client := newTestResolutionClient(llm.NewMockCompleter(`{
  "confidence": 88,
  "optimization_type": "json_to_excel",
  "optimizations": ["Flatten profile"],
  "recommendations": ["Freeze header row"],
  "excel_compatibility": ["Shorten long text"],
  "column_mapping": {"user/name": "user_name"},
  "type_conversions": {"age": "numeric"}
}`))

	result, err := client.ResolveExcel(context.Background(), prompts.JSONSummary{TotalRecords: 2}, nil)

	require.NoError(t, err)
	assert.Equal(t, 88.0, result.Confidence.Or(0))
	assert.Equal(t, []string{"Flatten profile"}, result.Optimizations)
	assert.Equal(t, []string{"Shorten long text"}, result.ExcelCompatibility)
	assert.Equal(t, map[string]string{"user/name": "user_name"}, result.Plan.ColumnMapping)
	assert.Equal(t, map[string]string{"age": "numeric"}, result.Plan.TypeConversions)
}

func TestResolutionClient_ResolveExcel_ParseFallback(t *testing.T) {
	client := newTestResolutionClient(llm.NewMockCompleter("{oops}"))

	result, err := client.ResolveExcel(context.Background(), prompts.JSONSummary{}, nil)

	require.NoError(t, err)
	assert.Equal(t, 50.0, result.Confidence.Value)
	assert.Equal(t, "error", result.OptimizationType)
	assert.Empty(t, result.Plan.ColumnMapping)
}

func TestResolutionClient_ResolveSQL(t *testing.T) {
	client := newTestResolutionClient(llm.NewMockCompleter(`{
  "confidence": 82,
  "sql_type": "INSERT",
  "recommendations": ["Quote the comment column"],
  "optimizations": ["Batch inserts"],
  "data_handling": ["Escape single quotes"],
  "insert_template": "INSERT INTO users (id, comment) VALUES (?, ?);"
}`))
	sample := prompts.NewSQLSample("users", cleanDataset(), nil)

	result, err := client.ResolveSQL(context.Background(), sample, models.SQLTypeInsert, []models.IssueTag{models.SQLInjectionIssue("comment")})

	require.NoError(t, err)
	assert.Equal(t, "INSERT", result.SQLType)
	assert.Equal(t, "INSERT INTO users (id, comment) VALUES (?, ?);", result.Template)
	assert.Equal(t, []string{"Batch inserts"}, result.Optimizations)
	assert.Equal(t, []string{"Escape single quotes"}, result.DataHandling)
}

func TestResolutionClient_ResolveSQL_RejectsUnsafeTemplate(t *testing.T) {
	client := newTestResolutionClient(llm.NewMockCompleter(`{
  "confidence": 82,
  "sql_type": "UPDATE",
  "recommendations": [],
  "update_template": "UPDATE users SET name = ? WHERE id = ?; DROP TABLE users"
}`))

	result, err := client.ResolveSQL(context.Background(), prompts.NewSQLSample("users", cleanDataset(), []string{"id"}), models.SQLTypeUpdate, nil)

	require.NoError(t, err)
	assert.Empty(t, result.Template)
	require.Len(t, result.Recommendations, 1)
	assert.Contains(t, result.Recommendations[0], "AI template rejected")
}

func TestResolutionClient_ResolveSQL_WrongKindTemplate(t *testing.T) {
	client := newTestResolutionClient(llm.NewMockCompleter(`{"insert_template": "DELETE FROM users"}`))

	result, err := client.ResolveSQL(context.Background(), prompts.NewSQLSample("users", cleanDataset(), nil), models.SQLTypeInsert, nil)

	require.NoError(t, err)
	assert.Empty(t, result.Template)
}

func TestResolutionClient_ResolveSQL_ParseFallback(t *testing.T) {
	client := newTestResolutionClient(llm.NewMockCompleter("no json here"))

	result, err := client.ResolveSQL(context.Background(), prompts.NewSQLSample("users", cleanDataset(), nil), models.SQLTypeInsert, nil)

	require.NoError(t, err)
	assert.Equal(t, 75.0, result.Confidence.Value)
	assert.Equal(t, "UNKNOWN", result.SQLType)
	assert.Equal(t, []string{"Check AI response format"}, result.Recommendations)
}
