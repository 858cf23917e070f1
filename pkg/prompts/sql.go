package prompts

import (
	"fmt"
	"strings"

	"github.com/jotabap/web-conversor/pkg/models"
)

// BuildSQLIssuePrompt creates the prompt asking the model how to fix the
// issues found while generating INSERT or UPDATE statements. sqlType is
// "INSERT" or "UPDATE". A template in the reply is only used after it passes
// single-statement validation.
func BuildSQLIssuePrompt(sample SQLSample, sqlType string, issues []models.IssueTag) string {
	sqlType = strings.ToUpper(sqlType)
	templateKey := strings.ToLower(sqlType) + "_template"

	var prompt strings.Builder

	prompt.WriteString(fmt.Sprintf("You are a SQL expert. The deterministic SQL %s generation encountered issues.\n\n", sqlType))

	prompt.WriteString("## Target\n\n")
	prompt.WriteString(fmt.Sprintf("- Table: %s\n", sample.Table))
	prompt.WriteString(fmt.Sprintf("- SQL type: %s\n", sqlType))
	prompt.WriteString(fmt.Sprintf("- Total rows: %d\n", sample.TotalRows))
	if len(sample.KeyColumns) > 0 {
		prompt.WriteString(fmt.Sprintf("- Key columns for WHERE clause: %s\n", strings.Join(sample.KeyColumns, ", ")))
	}
	if len(sample.NullableColumns) > 0 {
		prompt.WriteString(fmt.Sprintf("- Nullable columns: %s\n", strings.Join(sample.NullableColumns, ", ")))
	}
	prompt.WriteString("\n")

	prompt.WriteString("## Columns\n\n")
	for _, c := range sample.Columns {
		prompt.WriteString(fmt.Sprintf("- %s (%s)\n", c.Name, c.Kind))
	}
	prompt.WriteString("\n")

	prompt.WriteString("## Sample Data\n\n")
	prompt.WriteString("```json\n")
	prompt.WriteString(sample.Sample)
	prompt.WriteString("\n```\n\n")

	writeIssues(&prompt, issues)

	prompt.WriteString("## Task\n\n")
	prompt.WriteString("1. Explain how to handle each detected issue\n")
	prompt.WriteString(fmt.Sprintf("2. Give best practices for SQL %s generation\n", sqlType))
	prompt.WriteString("3. Suggest performance optimizations\n")
	prompt.WriteString("4. Recommend data type handling and escaping\n")
	prompt.WriteString(fmt.Sprintf("5. Optionally provide one parameterized %s statement as `%s`\n\n", sqlType, templateKey))
	prompt.WriteString("Focus ONLY on fixing the detected issues. Be practical and concise.\n\n")

	prompt.WriteString("## Output Format\n\n")
	prompt.WriteString("```json\n")
	prompt.WriteString(fmt.Sprintf(`{
  "confidence": 80,
  "sql_type": "%s",
  "recommendations": ["specific SQL fix recommendations"],
  "optimizations": ["performance improvements"],
  "data_handling": ["data type and escaping recommendations"],
  "%s": "single parameterized statement"
}
`, sqlType, templateKey))
	prompt.WriteString("```\n\n")
	prompt.WriteString("Return ONLY the JSON, no additional text.\n")

	return prompt.String()
}
