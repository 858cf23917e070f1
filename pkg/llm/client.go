package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/jotabap/web-conversor/pkg/logging"
)

// OpenAIClient talks to Azure OpenAI deployments or any OpenAI-compatible endpoint.
type OpenAIClient struct {
	client        *openai.Client
	endpoint      string
	model         string
	systemMessage string
	maxTokens     int
	temperature   float32
	logger        *zap.Logger
}

// Config holds configuration for creating a completion client.
type Config struct {
	Endpoint      string  // Base URL, e.g. "https://myresource.openai.azure.com"
	APIKey        string  // Required for hosted providers
	APIVersion    string  // Azure only
	Model         string  // Model name sent with each request
	Deployment    string  // Azure deployment; defaults to Model
	SystemMessage string  // Defaults to DefaultSystemMessage
	MaxTokens     int     // 0 lets the provider decide
	Temperature   float64 // Sampling temperature
	Azure         bool    // Use Azure routing and api-key auth
}

// NewOpenAIClient creates a new Azure or OpenAI-compatible completion client.
func NewOpenAIClient(cfg *Config, logger *zap.Logger) (*OpenAIClient, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	endpoint := strings.TrimSuffix(cfg.Endpoint, "/")

	var clientConfig openai.ClientConfig
	if cfg.Azure {
		clientConfig = openai.DefaultAzureConfig(cfg.APIKey, endpoint)
		if cfg.APIVersion != "" {
			clientConfig.APIVersion = cfg.APIVersion
		}
		deployment := cfg.Deployment
		if deployment == "" {
			deployment = cfg.Model
		}
		clientConfig.AzureModelMapperFunc = func(string) string {
			return deployment
		}
	} else {
		clientConfig = openai.DefaultConfig(cfg.APIKey)
		clientConfig.BaseURL = endpoint
	}

	systemMessage := cfg.SystemMessage
	if systemMessage == "" {
		systemMessage = DefaultSystemMessage
	}

	return &OpenAIClient{
		client:        openai.NewClientWithConfig(clientConfig),
		endpoint:      endpoint,
		model:         cfg.Model,
		systemMessage: systemMessage,
		maxTokens:     cfg.MaxTokens,
		temperature:   float32(cfg.Temperature),
		logger:        logger.Named("llm"),
	}, nil
}

// Complete generates a chat completion for prompt.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: c.systemMessage},
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	}

	c.logger.Debug("LLM request",
		zap.String("model", c.model),
		zap.Int("prompt_len", len(prompt)),
		zap.String("prompt", logging.SanitizePrompt(prompt)))

	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		c.logger.Error("LLM request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.String("error", logging.SanitizeError(err)))
		return "", c.parseError(err)
	}

	if len(resp.Choices) == 0 {
		return "", NewErrorWithContext(ErrorTypeUnknown, "no choices in response", false, nil, c.model, c.endpoint, 0)
	}

	c.logger.Info("LLM request completed",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("elapsed", time.Since(start)))

	return resp.Choices[0].Message.Content, nil
}

// Model returns the configured model or deployment name.
func (c *OpenAIClient) Model() string {
	return c.model
}

// Endpoint returns the configured endpoint.
func (c *OpenAIClient) Endpoint() string {
	return c.endpoint
}

// parseError categorizes OpenAI API errors using the structured Error type.
func (c *OpenAIClient) parseError(err error) error {
	llmErr := ClassifyError(err)
	llmErr.Model = c.model
	llmErr.Endpoint = c.endpoint
	return llmErr
}
