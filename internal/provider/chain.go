// Package provider holds the per-platform upstream adapters and the
// fallback chain that drives them.
package provider

import (
	"context"
	"fmt"
)

// Adapter wraps one upstream service's call convention for a platform.
type Adapter[T any] func(ctx context.Context, url string) (T, error)

// RunChain tries adapters strictly in order and returns the first success.
// There is no retry, delay or racing between adapters; each incoming
// request walks the full chain from the top. If every adapter fails the
// last error is surfaced, wrapped so callers can tell the chain was
// exhausted.
func RunChain[T any](ctx context.Context, url string, adapters ...Adapter[T]) (T, error) {
	var zero T
	var lastErr error

	for _, adapter := range adapters {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		result, err := adapter(ctx, url)
		if err == nil {
			return result, nil
		}
		lastErr = err
	}

	if lastErr == nil {
		return zero, fmt.Errorf("no adapters configured")
	}
	return zero, fmt.Errorf("all providers failed: %w", lastErr)
}
