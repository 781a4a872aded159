// Package sweeper completes confirmed appointments once they have ended.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/store"
)

type Transitioner interface {
	Transition(ctx context.Context, id int64, target model.Status, actor model.Actor, reason string) (booking.Result, error)
}

type Worker struct {
	store     store.Queries
	lifecycle Transitioner
	logger    *slog.Logger
	metrics   *metrics.BookingMetrics
	now       func() time.Time
	interval  time.Duration
	batchSize int
	grace     time.Duration
}

type WorkerConfig struct {
	Interval  time.Duration
	BatchSize int
	// Grace delays completion past the scheduled end.
	Grace   time.Duration
	Metrics *metrics.BookingMetrics
	Now     func() time.Time
}

func NewWorker(q store.Queries, lifecycle Transitioner, logger *slog.Logger, cfg WorkerConfig) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Worker{
		store:     q,
		lifecycle: lifecycle,
		logger:    logger,
		metrics:   cfg.Metrics,
		now:       cfg.Now,
		interval:  cfg.Interval,
		batchSize: cfg.BatchSize,
		grace:     cfg.Grace,
	}
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.SweepOnce(ctx); err != nil {
				w.logger.Error("lifecycle sweep failed", "err", err)
			}
		}
	}
}

// SweepOnce completes one batch of due appointments and returns how many it
// completed. Appointments that fail are logged and left for the next pass.
func (w *Worker) SweepOnce(ctx context.Context) (int, error) {
	ctx, span := otel.Tracer("sweeper").Start(ctx, "sweeper.sweep")
	defer span.End()

	due, err := w.store.ListDueCompletions(ctx, w.now().Add(-w.grace), w.batchSize)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	done := 0
	for _, a := range due {
		if ctx.Err() != nil {
			break
		}
		_, err := w.lifecycle.Transition(ctx, a.ID, model.StatusCompleted, model.SystemActor, "")
		if err != nil {
			w.metrics.ObserveSweep(string(model.KindOf(err)))
			w.logger.Warn("auto-complete failed", "appointment_id", a.ID, "err", err)
			continue
		}
		w.metrics.ObserveSweep("ok")
		done++
	}
	span.SetAttributes(attribute.Int("due", len(due)), attribute.Int("completed", done))
	if done > 0 {
		w.logger.Info("appointments auto-completed", "count", done)
	}
	return done, ctx.Err()
}
