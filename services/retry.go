package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	generationMaxTries   = 3
	generationMaxElapsed = 30 * time.Second
)

// retryGeneration retries a model call with exponential backoff. Wrap an
// error with backoff.Permanent to stop immediately.
func retryGeneration[T any](ctx context.Context, provider string, op func() (T, error)) (T, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = 10 * time.Second

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(generationMaxTries),
		backoff.WithMaxElapsedTime(generationMaxElapsed),
		backoff.WithNotify(func(err error, next time.Duration) {
			slog.Warn("Model call failed, retrying", "provider", provider, "error", err, "retry_in", next.String())
		}),
	)
}
