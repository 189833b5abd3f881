package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultAttempts is how many times an operation runs before a conflict is surfaced.
const DefaultAttempts = 3

const retryBackoff = 10 * time.Millisecond

// Retry runs fn until it succeeds, fails with something other than ErrConflict,
// or attempts are exhausted. fn must start from a fresh snapshot each time.
func Retry(ctx context.Context, attempts int, fn func(attempt int) error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = fn(attempt)
		if err == nil || !errors.Is(err, ErrConflict) {
			return err
		}
		log.Debug("Retrying after concurrent modification", "attempt", attempt, "error", err)
		if attempt < attempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * retryBackoff):
			}
		}
	}
	return fmt.Errorf("giving up after %d attempts: %w", attempts, err)
}
