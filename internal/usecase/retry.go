package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"masterclass-reconciler/internal/domain"
)

// maxWriteAttempts bounds how often a read-transform-write is replayed after
// losing a version race.
const maxWriteAttempts = 5

// retryOnConflict runs step until it succeeds, fails with anything other than
// domain.ErrVersionConflict, or attempts run out. step must do exactly one
// read, an in-memory transform and one conditional write.
func retryOnConflict(ctx context.Context, onRetry func(attempt int), step func() error) error {
	var err error
	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		err = step()
		if !errors.Is(err, domain.ErrVersionConflict) {
			return err
		}
		if onRetry != nil {
			onRetry(attempt)
		}
		if attempt == maxWriteAttempts {
			break
		}
		backoff := time.Duration(attempt*10+rand.Intn(15)) * time.Millisecond
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("%w: gave up after %d conflicting writes", domain.ErrOperationFailed, maxWriteAttempts)
}

// persistErr keeps domain errors callers branch on and folds everything else
// into ErrOperationFailed.
func persistErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrVersionConflict),
		errors.Is(err, domain.ErrOperationFailed):
		return err
	default:
		return fmt.Errorf("%w: %v", domain.ErrOperationFailed, err)
	}
}
