package prompts

import (
	"fmt"
	"strings"

	"github.com/jotabap/web-conversor/pkg/models"
)

// BuildIssueResolutionPrompt creates the prompt asking the model how to fix
// the issues a deterministic scan found in a tabular file.
func BuildIssueResolutionPrompt(summary DataSummary, issues []models.IssueTag) string {
	var prompt strings.Builder

	prompt.WriteString("You are a data cleaning expert. A deterministic analysis found issues in this spreadsheet data.\n\n")

	prompt.WriteString("## File\n\n")
	prompt.WriteString(fmt.Sprintf("Filename: %s\n", summary.Filename))
	prompt.WriteString(fmt.Sprintf("Shape: %d rows x %d columns\n\n", summary.Rows, len(summary.Columns)))

	writeIssues(&prompt, issues)

	prompt.WriteString("## Sample Data\n\n")
	prompt.WriteString("```json\n")
	prompt.WriteString(summary.Sample)
	prompt.WriteString("\n```\n\n")

	prompt.WriteString("## Column Types\n\n")
	for _, kind := range []models.ValueKind{models.KindNumber, models.KindText, models.KindDate} {
		cols := summary.ColumnsOfKind(kind)
		if len(cols) == 0 {
			continue
		}
		prompt.WriteString(fmt.Sprintf("- %s: %s\n", kind, strings.Join(cols, ", ")))
	}
	prompt.WriteString("\n")

	prompt.WriteString("## Missing Values\n\n")
	for _, c := range summary.Columns {
		if c.Missing > 0 {
			prompt.WriteString(fmt.Sprintf("- %s: %d\n", c.Name, c.Missing))
		}
	}
	prompt.WriteString("\n")

	prompt.WriteString("## Task\n\n")
	prompt.WriteString("1. Give a specific recommendation to fix each detected issue\n")
	prompt.WriteString("2. List the data cleaning steps needed\n")
	prompt.WriteString("3. Estimate the confidence (0-100) of a successful conversion after the fixes\n")
	prompt.WriteString("4. Note any pattern that explains why these issues occurred\n\n")
	prompt.WriteString("Focus ONLY on practical solutions for the detected issues. Be concise and actionable.\n\n")

	prompt.WriteString("## Output Format\n\n")
	prompt.WriteString("```json\n")
	prompt.WriteString(`{
  "confidence": 85,
  "analysis_type": "issue_resolution",
  "detected_patterns": ["issues being addressed"],
  "recommendations": ["specific fix recommendations"],
  "cleaning_steps": ["data cleaning actions"]
}
`)
	prompt.WriteString("```\n\n")
	prompt.WriteString("Return ONLY the JSON, no additional text.\n")

	return prompt.String()
}

func writeIssues(prompt *strings.Builder, issues []models.IssueTag) {
	prompt.WriteString("## Detected Issues\n\n")
	if len(issues) == 0 {
		prompt.WriteString("- none reported\n\n")
		return
	}
	for _, issue := range issues {
		prompt.WriteString(fmt.Sprintf("- %s\n", issue))
	}
	prompt.WriteString("\n")
}
