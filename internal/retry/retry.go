// Package retry provides a bounded-attempt helper for remote calls that are
// worth repeating a fixed number of times and nothing more. There is no
// backoff: the single caller that needs it (authentication-store deletion)
// retries immediately, and every other remote call in the system is
// single-attempt.
package retry

import "context"

// Do invokes op up to maxAttempts times, stopping at the first success.
// It returns nil on success and the last error once attempts are exhausted.
// The context is checked between attempts; cancellation wins over a retry.
func Do(ctx context.Context, maxAttempts int, op func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if err != nil {
				return err
			}
			return ctxErr
		}
		if err = op(ctx); err == nil {
			return nil
		}
	}
	return err
}
