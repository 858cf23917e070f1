package llm

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jotabap/web-conversor/pkg/config"
	"github.com/jotabap/web-conversor/pkg/retry"
)

// ErrNotConfigured is returned when endpoint, key or deployment is missing.
// Callers treat it like any other resolution failure: the AI path is disabled.
var ErrNotConfigured = errors.New("AI client is not configured")

// NewCompleter builds the guarded completer for the configured provider.
// Credentials are captured here once and never re-read.
func NewCompleter(cfg config.AIConfig, logger *zap.Logger) (Completer, error) {
	if !cfg.IsConfigured() {
		return nil, ErrNotConfigured
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = cfg.Deployment
	}

	clientCfg := &Config{
		Endpoint:    config.ResolveEndpointForDocker(cfg.Endpoint),
		APIKey:      cfg.APIKey,
		APIVersion:  cfg.APIVersion,
		Model:       model,
		Deployment:  cfg.Deployment,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}

	var (
		inner Completer
		err   error
	)
	switch cfg.Provider {
	case config.ProviderAzure, "":
		clientCfg.Azure = true
		inner, err = NewOpenAIClient(clientCfg, logger)
	case config.ProviderOpenAI:
		inner, err = NewOpenAIClient(clientCfg, logger)
	case config.ProviderAnthropic:
		inner, err = NewAnthropicClient(clientCfg, logger)
	default:
		return nil, fmt.Errorf("unsupported AI provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s client: %w", cfg.Provider, err)
	}

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxRetries = cfg.MaxRetries
	if retryCfg.MaxRetries < 0 {
		retryCfg.MaxRetries = 0
	}

	breakerCfg := DefaultCircuitBreakerConfig()
	if cfg.CircuitThreshold > 0 {
		breakerCfg.Threshold = cfg.CircuitThreshold
	}
	if cfg.CircuitReset > 0 {
		breakerCfg.ResetAfter = cfg.CircuitReset
	}

	logger.Info("AI completion client configured",
		zap.String("provider", cfg.Provider),
		zap.String("model", inner.Model()),
		zap.Int("max_retries", retryCfg.MaxRetries),
		zap.Int("circuit_threshold", breakerCfg.Threshold))

	return NewGuardedCompleter(inner, breakerCfg, retryCfg, logger), nil
}
