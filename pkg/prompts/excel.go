package prompts

import (
	"fmt"
	"strings"

	"github.com/jotabap/web-conversor/pkg/models"
)

// BuildExcelOptimizationPrompt creates the prompt asking the model how to
// fix the issues found while preparing JSON records for a workbook.
// Column mapping and type conversions in the reply are applied directly.
func BuildExcelOptimizationPrompt(summary JSONSummary, issues []models.IssueTag) string {
	var prompt strings.Builder

	prompt.WriteString("You are a data conversion expert. Converting the following JSON to Excel detected issues.\n\n")

	prompt.WriteString("## JSON Structure\n\n")
	prompt.WriteString(fmt.Sprintf("- Total records: %d\n", summary.TotalRecords))
	prompt.WriteString(fmt.Sprintf("- All keys: %s\n", strings.Join(summary.AllKeys, ", ")))
	if len(summary.NestedKeys) > 0 {
		prompt.WriteString(fmt.Sprintf("- Nested keys: %s\n", strings.Join(summary.NestedKeys, ", ")))
	} else {
		prompt.WriteString("- Nested keys: none\n")
	}
	prompt.WriteString(fmt.Sprintf("- Structure type: %s\n\n", summary.StructureType))

	prompt.WriteString("## Sample Data\n\n")
	prompt.WriteString("```json\n")
	prompt.WriteString(summary.Sample)
	prompt.WriteString("\n```\n\n")

	writeIssues(&prompt, issues)

	prompt.WriteString("## Task\n\n")
	prompt.WriteString("1. Explain how to handle each detected issue\n")
	prompt.WriteString("2. Recommend data transformations\n")
	prompt.WriteString("3. List Excel compatibility fixes\n")
	prompt.WriteString("4. Optionally rename columns (`column_mapping`, old name to new name)\n")
	prompt.WriteString("5. Optionally convert column types (`type_conversions`, column to one of \"numeric\", \"datetime\", \"text\")\n\n")
	prompt.WriteString("Focus ONLY on fixing the detected issues for Excel export. Be practical and concise.\n\n")

	prompt.WriteString("## Output Format\n\n")
	prompt.WriteString("```json\n")
	prompt.WriteString(`{
  "confidence": 80,
  "optimization_type": "json_to_excel",
  "optimizations": ["specific optimization steps"],
  "recommendations": ["conversion recommendations"],
  "excel_compatibility": ["Excel-specific fixes"],
  "column_mapping": {"old name": "new name"},
  "type_conversions": {"column": "numeric"}
}
`)
	prompt.WriteString("```\n\n")
	prompt.WriteString("Return ONLY the JSON, no additional text.\n")

	return prompt.String()
}
