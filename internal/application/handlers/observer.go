package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/ersonp/variantdb-core/internal/domain/entities"
	"github.com/ersonp/variantdb-core/internal/infrastructure/logger"
	"github.com/ersonp/variantdb-core/internal/infrastructure/metrics"
)

// UseCaseEvent captures one completed use case.
type UseCaseEvent struct {
	Name     string
	Duration time.Duration
	Attempts int
	Outcome  string
	Err      error
	Fields   map[string]any
}

// UseCaseObserver receives use case events.
type UseCaseObserver interface {
	ObserveUseCase(ctx context.Context, event UseCaseEvent)
	ObserveRetry(ctx context.Context, name string, attempt int, err error)
}

// NoopObserver ignores all events.
type NoopObserver struct{}

func (NoopObserver) ObserveUseCase(context.Context, UseCaseEvent)      {}
func (NoopObserver) ObserveRetry(context.Context, string, int, error) {}

type logObserver struct {
	log *logger.Logger
}

// NewLogObserver logs use cases. Successes go to debug, expected failures to
// warn, and inconsistencies or unclassified errors to error.
func NewLogObserver(log *logger.Logger) UseCaseObserver {
	if log == nil {
		return NoopObserver{}
	}
	return &logObserver{log: log}
}

func (o *logObserver) ObserveUseCase(_ context.Context, event UseCaseEvent) {
	kv := make([]any, 0, 8+len(event.Fields)*2)
	kv = append(kv,
		"use_case", event.Name,
		"duration_ms", event.Duration.Milliseconds(),
		"attempts", event.Attempts,
		"outcome", event.Outcome,
	)
	for k, v := range event.Fields {
		kv = append(kv, k, v)
	}

	switch event.Outcome {
	case metrics.OutcomeOK:
		o.log.Debug("use_case", kv...)
	case metrics.OutcomeCorrupt, metrics.OutcomeError:
		o.log.Error("use_case", append(kv, "error", event.Err.Error())...)
	default:
		o.log.Warn("use_case", append(kv, "error", event.Err.Error())...)
	}
}

func (o *logObserver) ObserveRetry(_ context.Context, name string, attempt int, err error) {
	o.log.Warn("use_case_retry", "use_case", name, "attempt", attempt, "error", err.Error())
}

type metricsObserver struct {
	recorder *metrics.Recorder
}

// NewMetricsObserver records use case counters and latencies.
func NewMetricsObserver(recorder *metrics.Recorder) UseCaseObserver {
	if recorder == nil {
		return NoopObserver{}
	}
	return &metricsObserver{recorder: recorder}
}

func (o *metricsObserver) ObserveUseCase(_ context.Context, event UseCaseEvent) {
	o.recorder.Observe(event.Name, event.Outcome, event.Duration)
}

func (o *metricsObserver) ObserveRetry(_ context.Context, name string, _ int, _ error) {
	o.recorder.Retried(name)
}

type multiObserver []UseCaseObserver

func (m multiObserver) ObserveUseCase(ctx context.Context, event UseCaseEvent) {
	for _, o := range m {
		o.ObserveUseCase(ctx, event)
	}
}

func (m multiObserver) ObserveRetry(ctx context.Context, name string, attempt int, err error) {
	for _, o := range m {
		o.ObserveRetry(ctx, name, attempt, err)
	}
}

// Observers fans events out to every non-nil observer.
func Observers(observers ...UseCaseObserver) UseCaseObserver {
	var out multiObserver
	for _, o := range observers {
		if o != nil {
			out = append(out, o)
		}
	}
	switch len(out) {
	case 0:
		return NoopObserver{}
	case 1:
		return out[0]
	default:
		return out
	}
}

// Outcome classifies err into a metrics outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, entities.ErrInternalInconsistency):
		return metrics.OutcomeCorrupt
	case errors.Is(err, entities.ErrStateConflict):
		return metrics.OutcomeConflict
	case errors.Is(err, entities.ErrNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, entities.ErrInvalidInput):
		return metrics.OutcomeInvalid
	case errors.Is(err, entities.ErrStoreTransient):
		return metrics.OutcomeRetry
	default:
		return metrics.OutcomeError
	}
}
