package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iudanet/homekeeper/internal/client/api"
)

// MaxDelay caps the exponential backoff delay between attempts
const MaxDelay = 30 * time.Second

// DefaultInitialDelay is used when the caller passes a non-positive delay
const DefaultInitialDelay = 500 * time.Millisecond

// Engine executes operations with exponential backoff. Client errors
// (4xx except 408) are terminal and rethrown immediately; transient
// failures are retried until maxRetries is exhausted.
type Engine struct {
	logger *slog.Logger

	// sleep подменяется в тестах, чтобы не ждать реальные задержки
	sleep func(ctx context.Context, d time.Duration) error

	// maxDelay ограничивает экспоненциальный рост задержки
	maxDelay time.Duration
}

// New creates a new retry engine
func New(logger *slog.Logger) *Engine {
	return &Engine{
		logger:   logger,
		sleep:    sleepCtx,
		maxDelay: MaxDelay,
	}
}

// Do attempts op once and retries transient failures up to maxRetries
// times, sleeping min(initialDelay * 2^attempt, MaxDelay) between
// attempts. The last error is returned once retries are exhausted.
// opName identifies the operation in log entries.
func (e *Engine) Do(ctx context.Context, opName string, maxRetries int, initialDelay time.Duration, op func(ctx context.Context) error) error {
	if initialDelay <= 0 {
		initialDelay = DefaultInitialDelay
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		// Отмена вызывающей стороной не ретраится и не логируется как ошибка
		if errors.Is(lastErr, api.ErrAborted) || errors.Is(lastErr, context.Canceled) {
			return lastErr
		}

		// Клиентские ошибки терминальны: повтор не поможет
		if isTerminal(lastErr) {
			e.logger.Warn("Operation failed with terminal error",
				"operation", opName,
				"attempt", attempt+1,
				"error", lastErr)
			return lastErr
		}

		if attempt >= maxRetries {
			e.logger.Error("Operation failed after exhausting retries",
				"operation", opName,
				"attempts", attempt+1,
				"error", lastErr)
			return fmt.Errorf("%s failed after %d attempts: %w", opName, attempt+1, lastErr)
		}

		delay := backoffDelay(initialDelay, attempt, e.maxDelay)
		e.logger.Warn("Operation failed, retrying",
			"operation", opName,
			"attempt", attempt+1,
			"max_retries", maxRetries,
			"delay", delay,
			"error", lastErr)

		if err := e.sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// isTerminal reports whether the error must not be retried
func isTerminal(err error) bool {
	var httpErr *api.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Terminal()
	}
	return false
}

// backoffDelay вычисляет задержку перед попыткой attempt+2
func backoffDelay(initial time.Duration, attempt int, maxDelay time.Duration) time.Duration {
	delay := initial
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= maxDelay {
			return maxDelay
		}
	}
	if delay > maxDelay {
		return maxDelay
	}
	return delay
}

// sleepCtx ждёт d или отмену контекста
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
