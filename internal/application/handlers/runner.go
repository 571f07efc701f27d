package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/ersonp/variantdb-core/internal/domain/entities"
)

// RetryPolicy bounds retries of transient store failures.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration // multiplied by the attempt number
}

// Runner executes use cases with retry and observation.
type Runner struct {
	retry    RetryPolicy
	observer UseCaseObserver
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewRunner creates a Runner. A policy with MaxAttempts below one runs once.
func NewRunner(retry RetryPolicy, observer UseCaseObserver) *Runner {
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}
	if observer == nil {
		observer = NoopObserver{}
	}
	return &Runner{retry: retry, observer: observer, sleep: sleepContext}
}

// Run executes fn, retrying it while it fails with ErrStoreTransient.
// Every attempt is a fresh transaction, so retrying never duplicates writes.
func (r *Runner) Run(ctx context.Context, name string, fields map[string]any, fn func(ctx context.Context) error) error {
	start := time.Now()
	attempt := 0
	var err error
	for {
		attempt++
		err = fn(ctx)
		if err == nil || !errors.Is(err, entities.ErrStoreTransient) || attempt >= r.retry.MaxAttempts {
			break
		}
		r.observer.ObserveRetry(ctx, name, attempt, err)
		if serr := r.sleep(ctx, time.Duration(attempt)*r.retry.Backoff); serr != nil {
			err = serr
			break
		}
	}

	r.observer.ObserveUseCase(ctx, UseCaseEvent{
		Name:     name,
		Duration: time.Since(start),
		Attempts: attempt,
		Outcome:  Outcome(err),
		Err:      err,
		Fields:   fields,
	})
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
