package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"humaneval/application/ports"
	"humaneval/domain/core/entities"
	pkgerrors "humaneval/pkg/errors"
	"humaneval/pkg/observability"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// RecorderConfig tunes how long an append may take and when the sink is
// considered down.
type RecorderConfig struct {
	Timeout time.Duration

	BreakerMaxRequests      uint32
	BreakerInterval         time.Duration
	BreakerTimeout          time.Duration
	BreakerFailureThreshold float64
	BreakerMinRequests      uint32
}

// DefaultRecorderConfig returns a default configuration for the recorder
func DefaultRecorderConfig() RecorderConfig {
	return RecorderConfig{
		Timeout:                 10 * time.Second,
		BreakerMaxRequests:      1,
		BreakerInterval:         30 * time.Second,
		BreakerTimeout:          15 * time.Second,
		BreakerFailureThreshold: 0.8,
		BreakerMinRequests:      5,
	}
}

// ResultRecorder appends ratings to the durable sink, one row per call.
// It never reads back, deduplicates or rewrites rows and never retries; a
// failed append is reported as SINK_UNAVAILABLE so the caller can resubmit.
type ResultRecorder struct {
	sink    ports.RatingSink
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration
	metrics *observability.Collector
	tracer  *observability.Tracer
	logger  *zap.Logger
}

// NewResultRecorder creates a recorder around sink
func NewResultRecorder(
	sink ports.RatingSink,
	cfg RecorderConfig,
	metrics *observability.Collector,
	tracer *observability.Tracer,
	logger *zap.Logger,
) *ResultRecorder {
	r := &ResultRecorder{
		sink:    sink,
		timeout: cfg.Timeout,
		metrics: metrics,
		tracer:  tracer,
		logger:  logger,
	}

	r.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "rating-sink-" + sink.Name(),
		MaxRequests: cfg.BreakerMaxRequests,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.BreakerMinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.BreakerFailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return r
}

// Record durably appends one rating. It blocks until the sink confirms the
// write, the timeout expires, or ctx is cancelled.
func (r *ResultRecorder) Record(ctx context.Context, rating *entities.Rating) error {
	if rating == nil {
		return pkgerrors.NewValidationError("rating cannot be nil")
	}

	start := time.Now()
	err := r.tracer.TraceFunction(ctx, "sink.append", func(ctx context.Context) error {
		r.tracer.AddAnnotation(ctx, "sink", r.sink.Name())
		r.tracer.AddAnnotation(ctx, "raterID", rating.RaterID().String())
		_, execErr := r.breaker.Execute(func() (interface{}, error) {
			return nil, r.appendWithTimeout(ctx, rating)
		})
		return execErr
	})
	r.metrics.ObserveAppend(r.sink.Name(), err, time.Since(start))

	if err != nil {
		r.logger.Error("Failed to record rating",
			zap.String("sink", r.sink.Name()),
			zap.String("raterID", rating.RaterID().String()),
			zap.String("itemID", rating.ItemID()),
			zap.String("ratingID", rating.ID()),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return pkgerrors.NewSinkUnavailableError(r.sink.Name(), classify(err))
	}

	r.logger.Debug("Rating recorded",
		zap.String("sink", r.sink.Name()),
		zap.String("raterID", rating.RaterID().String()),
		zap.String("itemID", rating.ItemID()),
		zap.String("ratingID", rating.ID()),
	)
	return nil
}

// appendWithTimeout bounds the append even for sinks that ignore ctx. A
// write that finishes after the deadline is still reported as a failure;
// the rater resubmits and at worst one duplicate row results.
func (r *ResultRecorder) appendWithTimeout(ctx context.Context, rating *entities.Rating) error {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		done <- r.sink.Append(ctx, rating)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func classify(err error) error {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return fmt.Errorf("circuit open after repeated failures: %w", err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("append timed out: %w", err)
	default:
		return err
	}
}
