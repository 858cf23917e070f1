package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"

	"github.com/jotabap/web-conversor/pkg/logging"
)

const defaultAnthropicMaxTokens = 4000

// AnthropicClient sends completions to the Anthropic Messages API.
type AnthropicClient struct {
	client        *anthropic.Client
	endpoint      string
	model         string
	systemMessage string
	maxTokens     int
	logger        *zap.Logger
}

// NewAnthropicClient creates an Anthropic completion client. Endpoint is
// optional and overrides the public API base URL.
func NewAnthropicClient(cfg *Config, logger *zap.Logger) (*AnthropicClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	var opts []anthropic.ClientOption
	endpoint := strings.TrimSuffix(cfg.Endpoint, "/")
	if endpoint != "" {
		opts = append(opts, anthropic.WithBaseURL(endpoint))
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}
	systemMessage := cfg.SystemMessage
	if systemMessage == "" {
		systemMessage = DefaultSystemMessage
	}

	return &AnthropicClient{
		client:        anthropic.NewClient(cfg.APIKey, opts...),
		endpoint:      endpoint,
		model:         cfg.Model,
		systemMessage: systemMessage,
		maxTokens:     maxTokens,
		logger:        logger.Named("llm"),
	}, nil
}

// Complete sends prompt as a single user message and returns the first text block.
func (c *AnthropicClient) Complete(ctx context.Context, prompt string) (string, error) {
	c.logger.Debug("LLM request",
		zap.String("model", c.model),
		zap.Int("prompt_len", len(prompt)),
		zap.String("prompt", logging.SanitizePrompt(prompt)))

	start := time.Now()

	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		System:    c.systemMessage,
		Messages: []anthropic.Message{
			{Role: anthropic.RoleUser, Content: []anthropic.MessageContent{
				{Type: "text", Text: &prompt},
			}},
		},
	})
	if err != nil {
		c.logger.Error("LLM request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.String("error", logging.SanitizeError(err)))
		llmErr := ClassifyError(err)
		llmErr.Model = c.model
		llmErr.Endpoint = c.endpoint
		return "", llmErr
	}

	text := extractAnthropicText(resp)
	if text == "" {
		return "", NewErrorWithContext(ErrorTypeUnknown, "no text content in response", false, nil, c.model, c.endpoint, 0)
	}

	c.logger.Info("LLM request completed",
		zap.Int("prompt_tokens", resp.Usage.InputTokens),
		zap.Int("completion_tokens", resp.Usage.OutputTokens),
		zap.Duration("elapsed", time.Since(start)))

	return text, nil
}

// Model returns the configured model name.
func (c *AnthropicClient) Model() string {
	return c.model
}

func extractAnthropicText(resp anthropic.MessagesResponse) string {
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != nil {
			return *block.Text
		}
	}
	return ""
}
