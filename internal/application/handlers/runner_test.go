package handlers

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/variantdb-core/internal/domain/entities"
	"github.com/ersonp/variantdb-core/internal/infrastructure/metrics"
)

func newTestRunner(policy RetryPolicy) (*Runner, *recordingObserver, *[]time.Duration) {
	obs := &recordingObserver{}
	r := NewRunner(policy, obs)
	var slept []time.Duration
	r.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return ctx.Err()
	}
	return r, obs, &slept
}

func TestRunner_RetriesTransient(t *testing.T) {
	r, obs, slept := newTestRunner(RetryPolicy{MaxAttempts: 3, Backoff: 10 * time.Millisecond})

	calls := 0
	err := r.Run(context.Background(), "events.append", map[string]any{"subject": "v1"}, func(context.Context) error {
		calls++
		if calls < 3 {
			return fmt.Errorf("appending: %w", entities.ErrStoreTransient)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, *slept)
	assert.Equal(t, []string{"events.append", "events.append"}, obs.retries)

	event := obs.last()
	assert.Equal(t, "events.append", event.Name)
	assert.Equal(t, 3, event.Attempts)
	assert.Equal(t, metrics.OutcomeOK, event.Outcome)
	assert.Equal(t, "v1", event.Fields["subject"])
}

func TestRunner_GivesUp(t *testing.T) {
	r, obs, _ := newTestRunner(RetryPolicy{MaxAttempts: 2})

	calls := 0
	err := r.Run(context.Background(), "x", nil, func(context.Context) error {
		calls++
		return entities.ErrStoreTransient
	})

	assert.ErrorIs(t, err, entities.ErrStoreTransient)
	assert.Equal(t, 2, calls)
	assert.Equal(t, metrics.OutcomeRetry, obs.last().Outcome)
}

func TestRunner_DoesNotRetryOtherErrors(t *testing.T) {
	r, obs, slept := newTestRunner(RetryPolicy{MaxAttempts: 5})

	calls := 0
	err := r.Run(context.Background(), "x", nil, func(context.Context) error {
		calls++
		return entities.ErrStateConflict
	})

	assert.ErrorIs(t, err, entities.ErrStateConflict)
	assert.Equal(t, 1, calls)
	assert.Empty(t, *slept)
	assert.Empty(t, obs.retries)
}

func TestRunner_StopsOnCancel(t *testing.T) {
	r, _, _ := newTestRunner(RetryPolicy{MaxAttempts: 5, Backoff: time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := r.Run(ctx, "x", nil, func(context.Context) error {
		calls++
		return entities.ErrStoreTransient
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestNewRunner_Defaults(t *testing.T) {
	r := NewRunner(RetryPolicy{}, nil)
	assert.Equal(t, 1, r.retry.MaxAttempts)
	assert.Equal(t, NoopObserver{}, r.observer)
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, sleepContext(context.Background(), 0))
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, metrics.OutcomeOK},
		{fmt.Errorf("x: %w", entities.ErrStateConflict), metrics.OutcomeConflict},
		{entities.ErrNotFound, metrics.OutcomeNotFound},
		{entities.ErrInvalidInput, metrics.OutcomeInvalid},
		{entities.ErrStoreTransient, metrics.OutcomeRetry},
		{entities.ErrInternalInconsistency, metrics.OutcomeCorrupt},
		{errors.New("boom"), metrics.OutcomeError},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Outcome(tt.err))
		})
	}
}
