package handlers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ersonp/variantdb-core/internal/infrastructure/logger"
	"github.com/ersonp/variantdb-core/internal/infrastructure/metrics"
)

func newObservedLogger() (*logger.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return &logger.Logger{SugaredLogger: zap.New(core).Sugar()}, logs
}

func TestLogObserver_Levels(t *testing.T) {
	tests := []struct {
		outcome string
		err     error
		level   zapcore.Level
	}{
		{metrics.OutcomeOK, nil, zapcore.DebugLevel},
		{metrics.OutcomeConflict, errors.New("conflict"), zapcore.WarnLevel},
		{metrics.OutcomeCorrupt, errors.New("branch"), zapcore.ErrorLevel},
		{metrics.OutcomeError, errors.New("boom"), zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(tt.outcome, func(t *testing.T) {
			log, logs := newObservedLogger()
			obs := NewLogObserver(log)

			obs.ObserveUseCase(context.Background(), UseCaseEvent{
				Name:     "actions.propose",
				Duration: 5 * time.Millisecond,
				Attempts: 1,
				Outcome:  tt.outcome,
				Err:      tt.err,
				Fields:   map[string]any{"user": "alice"},
			})

			require.Equal(t, 1, logs.Len())
			entry := logs.All()[0]
			assert.Equal(t, tt.level, entry.Level)
			assert.Equal(t, "use_case", entry.Message)
			fields := entry.ContextMap()
			assert.Equal(t, "actions.propose", fields["use_case"])
			assert.Equal(t, "alice", fields["user"])
			assert.Equal(t, tt.outcome, fields["outcome"])
		})
	}
}

func TestLogObserver_Retry(t *testing.T) {
	log, logs := newObservedLogger()

	NewLogObserver(log).ObserveRetry(context.Background(), "events.append", 1, errors.New("busy"))

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "use_case_retry", logs.All()[0].Message)
	assert.Equal(t, "busy", logs.All()[0].ContextMap()["error"])
}

func TestMetricsObserver(t *testing.T) {
	recorder := metrics.New()
	obs := NewMetricsObserver(recorder)

	obs.ObserveUseCase(context.Background(), UseCaseEvent{Name: "pending.list", Outcome: metrics.OutcomeOK, Duration: time.Millisecond})
	obs.ObserveRetry(context.Background(), "pending.list", 1, errors.New("busy"))

	count, err := testutil.GatherAndCount(recorder.Registry(), "vardb_use_case_total", "vardb_use_case_retries_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestObservers(t *testing.T) {
	assert.Equal(t, NoopObserver{}, Observers(nil, nil))
	assert.Equal(t, NoopObserver{}, NewLogObserver(nil))
	assert.Equal(t, NoopObserver{}, NewMetricsObserver(nil))

	single := &recordingObserver{}
	assert.Same(t, single, Observers(nil, single))

	a, b := &recordingObserver{}, &recordingObserver{}
	fan := Observers(a, b)
	fan.ObserveUseCase(context.Background(), UseCaseEvent{Name: "x"})
	fan.ObserveRetry(context.Background(), "x", 1, errors.New("busy"))
	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)
	assert.Len(t, b.retries, 1)
}
