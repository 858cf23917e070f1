package llm

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jotabap/web-conversor/pkg/logging"
	"github.com/jotabap/web-conversor/pkg/retry"
)

// GuardedCompleter wraps a Completer with a circuit breaker and bounded
// retry of transient failures. All attempts share the caller's context, so
// retries never extend the request's AI deadline.
type GuardedCompleter struct {
	inner   Completer
	breaker *CircuitBreaker
	retry   *retry.Config
	logger  *zap.Logger
}

// NewGuardedCompleter creates a guarded completer. A nil retry config uses retry.DefaultConfig.
func NewGuardedCompleter(inner Completer, breakerCfg CircuitBreakerConfig, retryCfg *retry.Config, logger *zap.Logger) *GuardedCompleter {
	if retryCfg == nil {
		retryCfg = retry.DefaultConfig()
	}
	return &GuardedCompleter{
		inner:   inner,
		breaker: NewCircuitBreaker(breakerCfg),
		retry:   retryCfg,
		logger:  logger.Named("llm-guard"),
	}
}

// Complete implements Completer.
func (g *GuardedCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if allowed, err := g.breaker.Allow(); !allowed {
		g.logger.Warn("Completion rejected by circuit breaker",
			zap.String("model", g.inner.Model()),
			zap.Int("consecutive_failures", g.breaker.ConsecutiveFailures()))
		return "", NewErrorWithContext(ErrorTypeCircuit, "circuit open", false, err, g.inner.Model(), "", 0)
	}

	start := time.Now()
	attempts := 0
	var text string
	err := retry.DoIfRetryable(ctx, g.retry, func() error {
		attempts++
		out, err := g.inner.Complete(ctx, prompt)
		if err != nil {
			return ClassifyError(err)
		}
		text = out
		return nil
	})
	if err != nil {
		g.breaker.RecordFailure()
		g.logger.Warn("Completion failed",
			zap.Int("attempts", attempts),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("circuit", g.breaker.State().String()),
			zap.String("error", logging.SanitizeError(err)))
		return "", ClassifyError(err)
	}

	g.breaker.RecordSuccess()
	return text, nil
}

// Model implements Completer.
func (g *GuardedCompleter) Model() string {
	return g.inner.Model()
}

// CircuitState exposes the breaker state for health reporting.
func (g *GuardedCompleter) CircuitState() CircuitState {
	return g.breaker.State()
}
