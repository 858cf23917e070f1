// Package llm provides the remote text-completion capability used for
// AI-assisted data analysis, with Azure OpenAI, OpenAI-compatible and
// Anthropic backends.
package llm

import (
	"context"
)

// Completer turns a single prompt into raw response text.
// Implementations must honour ctx cancellation; the caller owns the timeout.
// Use this interface for dependency injection to enable mocking in tests.
type Completer interface {
	// Complete sends prompt and returns the model's text reply.
	Complete(ctx context.Context, prompt string) (string, error)

	// Model returns the configured model or deployment name.
	Model() string
}

// Ensure clients implement Completer at compile time.
var (
	_ Completer = (*OpenAIClient)(nil)
	_ Completer = (*AnthropicClient)(nil)
	_ Completer = (*GuardedCompleter)(nil)
	_ Completer = (*MockCompleter)(nil)
)

// DefaultSystemMessage frames every completion request.
const DefaultSystemMessage = "You are an expert data analyst and SQL developer. Provide detailed, accurate analysis and generate clean, optimized SQL code."
