package logging

import (
	"regexp"
)

const (
	// MaxPromptLogLength is the maximum length of a prompt or AI response to log
	MaxPromptLogLength = 200
	// MaxTagMessageLength bounds error text embedded in issue tags
	MaxTagMessageLength = 120
	// RedactedText is the replacement text for sensitive data
	RedactedText = "[REDACTED]"
)

var (
	// Bearer tokens of any shape (JWTs, opaque provider tokens)
	bearerPattern = regexp.MustCompile(`Bearer\s+[A-Za-z0-9\-_\.=]+`)

	// Query-string or header style keys: api-key=xxx, api_key: xxx, key=xxx
	apiKeyPattern = regexp.MustCompile(`(?i)(api[_-]?key|apikey|key)(\s*[=:]\s*)[A-Za-z0-9\-_]{16,}`)

	// Provider secret keys embedded in free text (sk-..., sk-ant-...)
	secretKeyPattern = regexp.MustCompile(`\bsk-[A-Za-z0-9\-_]{16,}`)

	// Credentials in URLs (user:pass@host format)
	urlCredentialPattern = regexp.MustCompile(`://[^:/\s]+:[^@/\s]+@`)
)

// SanitizeError sanitizes error messages that might contain sensitive data.
// Use this before logging any error from an AI provider or embedding it in a response.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeText(err.Error())
}

// SanitizeText removes credentials from arbitrary text.
func SanitizeText(s string) string {
	if s == "" {
		return ""
	}

	sanitized := bearerPattern.ReplaceAllString(s, "Bearer "+RedactedText)
	sanitized = apiKeyPattern.ReplaceAllString(sanitized, "${1}${2}"+RedactedText)
	sanitized = secretKeyPattern.ReplaceAllString(sanitized, RedactedText)
	sanitized = urlCredentialPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@")

	return sanitized
}

// SanitizePrompt truncates and sanitizes a prompt or completion for debug logging.
func SanitizePrompt(prompt string) string {
	return SanitizeText(TruncateString(prompt, MaxPromptLogLength))
}

// TruncateString truncates a string to maxLen runes and adds ellipsis if needed
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen < 0 {
		maxLen = 0
	}
	return string(runes[:maxLen]) + "..."
}
