package authstate

import (
	"context"
	"errors"
	"time"
)

// resolveProfile implements idempotent get-or-create for a user's profile.
//
// Absence (ErrProfileNotFound) is not an error: a default profile is inserted.
// Losing the insert race (ErrProfileExists) is recovered by re-fetching the
// winning row. Anything else is retried with backoff up to maxAttempts and
// then reported as a terminal ResolutionError; the caller still settles the
// published state, never leaving it pending.
func (c *Controller) resolveProfile(ctx context.Context, gen uint64, userID string) (*Profile, error) {
	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, &ResolutionError{UserID: userID, Err: ctx.Err()}
			case <-time.After(c.retryBackoff * time.Duration(1<<(attempt-2))):
			}
			if !c.stillCurrent(gen) {
				// superseded; the result would be discarded anyway
				return nil, &ResolutionError{UserID: userID, Err: context.Canceled}
			}
		}

		p, err := c.backend.FetchProfile(ctx, userID)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, ErrProfileNotFound) {
			lastErr = err
			continue
		}

		created := &Profile{
			ID:        userID,
			Role:      c.defaultRole,
			CreatedAt: time.Now(),
		}
		cerr := c.backend.CreateProfile(ctx, created)
		if cerr == nil {
			return created, nil
		}
		if errors.Is(cerr, ErrProfileExists) {
			// lost the race; the concurrently created row is authoritative
			existing, ferr := c.backend.FetchProfile(ctx, userID)
			if ferr == nil {
				return existing, nil
			}
			lastErr = ferr
			continue
		}
		lastErr = cerr
	}

	return nil, &ResolutionError{UserID: userID, Err: lastErr}
}
