package services

import (
	"fmt"

	"github.com/jotabap/web-conversor/pkg/models"
)

// DecideMode is the AI usage state machine. Clean data is always handled
// deterministically; flagged data goes to the AI when it is available and to
// the basic fixes otherwise. ModeErrorFallback is never returned here: it is
// the escape state entered by callers that recover from a failure.
func DecideMode(hasIssues, aiAvailable bool) models.ProcessingMode {
	switch {
	case !hasIssues:
		return models.ModeDeterministic
	case aiAvailable:
		return models.ModeAIAssisted
	default:
		return models.ModeFallbackOptimization
	}
}

// TriggerReasonFor categorises why AI was asked to help, in priority order.
// Synthetic failure tags count as issues but are never categorised, since
// their text is an arbitrary error message.
func TriggerReasonFor(issues []models.IssueTag) models.TriggerReason {
	if len(issues) == 0 {
		return models.TriggerOptimizationRequest
	}
	anyContains := func(keywords ...string) bool {
		for _, issue := range issues {
			if !issue.IsSynthetic() && issue.Contains(keywords...) {
				return true
			}
		}
		return false
	}
	switch {
	case anyContains("sql", "syntax", "injection"):
		return models.TriggerSQLGenerationErrors
	case anyContains("nested", "column_names", "excel_limit"):
		return models.TriggerDataStructureComplexity
	case anyContains("mixed_types", "encoding", "malformed"):
		return models.TriggerDataQualityIssues
	default:
		return models.TriggerGeneralOptimization
	}
}

const defaultIssueCategory = "formato de datos"

// issueCategories is matched in order. Per-column tags all contain
// "column", so the specific keywords come before it.
var issueCategories = []struct {
	keyword string
	label   string
}{
	{"mixed_types", "tipos de datos mixtos"},
	{"nested", "estructura anidada"},
	{"long_text", "texto muy largo"},
	{"sql", "generación SQL"},
	{"malformed", defaultIssueCategory},
	{"missing", defaultIssueCategory},
	{"column", "nombres de columnas"},
	{"encoding", "codificación de caracteres"},
	{"excel", "compatibilidad con Excel"},
}

// IssueCategory returns the user-facing label for a single issue tag.
func IssueCategory(issue models.IssueTag) string {
	for _, c := range issueCategories {
		if issue.Contains(c.keyword) {
			return c.label
		}
	}
	return defaultIssueCategory
}

// User-facing explanations, one per processing mode.
const (
	explainDeterministic = "Tu archivo se procesó perfectamente sin necesidad de asistencia de IA. " +
		"Los datos estaban bien estructurados y no requirieron optimizaciones."
	explainAIGeneric  = "Se usó IA para optimizar la conversión y asegurar la mejor calidad posible."
	explainAISingle   = "Se detectó un problema de %s en tus datos. La IA lo resolvió automáticamente para asegurar una conversión perfecta."
	explainAIMultiple = "Se detectaron %d problemas en tus datos (tipos mixtos, formato, etc.). " +
		"La IA los resolvió automáticamente para optimizar la conversión."
	explainFallback = "Se detectaron algunos problemas en los datos. " +
		"Se aplicaron correcciones básicas ya que la IA no estaba disponible."
	explainSpecialized = "Se aplicó procesamiento especializado para manejar la estructura de tus datos."
)

// Explanation renders the user-facing sentence for a processing mode.
func Explanation(mode models.ProcessingMode, issues []models.IssueTag) string {
	switch mode {
	case models.ModeDeterministic:
		return explainDeterministic
	case models.ModeAIAssisted:
		data := dataIssues(issues)
		switch len(data) {
		case 0:
			return explainAIGeneric
		case 1:
			return fmt.Sprintf(explainAISingle, IssueCategory(data[0]))
		default:
			return fmt.Sprintf(explainAIMultiple, len(data))
		}
	case models.ModeFallbackOptimization:
		return explainFallback
	default:
		return explainSpecialized
	}
}

// dataIssues drops synthetic failure tags.
func dataIssues(issues []models.IssueTag) []models.IssueTag {
	out := make([]models.IssueTag, 0, len(issues))
	for _, issue := range issues {
		if !issue.IsSynthetic() {
			out = append(out, issue)
		}
	}
	return out
}

// NewUsageInfo assembles the usage report. The trigger reason and technical
// details are only present when AI was actually used.
func NewUsageInfo(mode models.ProcessingMode, aiUsed bool, issues []models.IssueTag, improvements []string) models.UsageInfo {
	if issues == nil {
		issues = []models.IssueTag{}
	}
	if improvements == nil {
		improvements = []string{}
	}

	info := models.UsageInfo{
		AIUsed:                  aiUsed,
		ProcessingMode:          mode,
		IssuesDetected:          issues,
		AIImprovements:          improvements,
		UserFriendlyExplanation: Explanation(mode, issues),
	}
	if aiUsed {
		reason := TriggerReasonFor(issues)
		info.TriggerReason = &reason
		info.TechnicalDetails = map[string]any{
			"issues_count":       len(issues),
			"improvements_count": len(improvements),
			"mode":               string(mode),
		}
	}
	return info
}
