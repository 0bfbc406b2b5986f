package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"xscraper/pkg/logger"
)

// Operation is a function that may need retrying.
type Operation func() error

// OperationWithResult is an operation that also produces a value.
type OperationWithResult[T any] func() (T, error)

// Config holds retry configuration.
type Config struct {
	// Name tags errors and log lines with the operation being retried.
	Name string
	// MaxAttempts bounds the number of invocations; must be positive.
	MaxAttempts int
	// Backoff computes inter-attempt delays.
	Backoff BackoffStrategy
	// RetryIf decides whether an error is worth another attempt.
	RetryIf func(error) bool
	// OnRetry is invoked before each re-attempt sleep.
	OnRetry func(attempt int, err error, delay time.Duration)
	// Context cancels waiting between attempts.
	Context context.Context
	// Logger records attempts; nil disables retry logging.
	Logger logger.Logger
}

// DefaultConfig returns a retry configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: 3,
		Backoff:     DefaultExponentialBackoff(),
		RetryIf:     DefaultRetryIf,
		Context:     context.Background(),
		Logger:      logger.GetLogger(),
	}
}

// DefaultRetryIf retries every failure except context cancellation. The
// transient-versus-permanent distinction belongs to the fallback chain,
// not this layer.
func DefaultRetryIf(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

// Do runs op up to cfg.MaxAttempts times. On exhaustion the last error
// is returned wrapped with the operation name and attempt count, so
// callers can tell "never worked" from a transient hiccup.
func Do(op Operation, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	ctx := cfg.Context
	if ctx == nil {
		ctx = context.Background()
	}
	retryIf := cfg.RetryIf
	if retryIf == nil {
		retryIf = DefaultRetryIf
	}

	var lastErr error
	for attempt := 1; ; attempt++ {
		if cfg.MaxAttempts > 0 && attempt > cfg.MaxAttempts {
			if cfg.Logger != nil {
				cfg.Logger.ErrorWithFields("retry attempts exhausted", map[string]interface{}{
					"operation":  cfg.Name,
					"attempts":   attempt - 1,
					"last_error": lastErr.Error(),
				})
			}
			return fmt.Errorf("%s: failed after %d attempts: %w", opName(cfg), cfg.MaxAttempts, lastErr)
		}

		err := op()
		if err == nil {
			if attempt > 1 && cfg.Logger != nil {
				cfg.Logger.DebugWithFields("operation succeeded after retry", map[string]interface{}{
					"operation": cfg.Name,
					"attempt":   attempt,
				})
			}
			return nil
		}
		lastErr = err

		if !retryIf(err) {
			return err
		}

		delay := cfg.Backoff.NextDelay(attempt)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, delay)
		}
		if cfg.Logger != nil {
			cfg.Logger.WarnWithFields("retrying operation", map[string]interface{}{
				"operation":    cfg.Name,
				"attempt":      attempt,
				"max_attempts": cfg.MaxAttempts,
				"error":        err.Error(),
				"delay_ms":     delay.Milliseconds(),
			})
		}

		if err := Wait(ctx, delay); err != nil {
			return fmt.Errorf("%s: retry cancelled: %w", opName(cfg), err)
		}
	}
}

// DoWithResult runs an operation that returns a value with retry logic.
func DoWithResult[T any](op OperationWithResult[T], cfg *Config) (T, error) {
	var result T
	err := Do(func() error {
		var opErr error
		result, opErr = op()
		return opErr
	}, cfg)
	return result, err
}

func opName(cfg *Config) string {
	if cfg.Name != "" {
		return cfg.Name
	}
	return "operation"
}
