package usecase

import (
	"context"
	"fmt"
	"time"

	"StockPulse/internal/domain/models"
	drepo "StockPulse/internal/domain/repository"
)

// TickRecorder routes accepted live ticks to the configured backend. It is
// the durable side-channel of the session: the live view never depends on it.
type TickRecorder struct {
	sink    drepo.TickSink
	metrics drepo.Metrics
	backend string
}

// NewTickRecorder creates a recorder for the given backend ("kafka",
// "clickhouse" or "none").
func NewTickRecorder(sink drepo.TickSink, metrics drepo.Metrics, backend string) *TickRecorder {
	return &TickRecorder{sink: sink, metrics: metrics, backend: backend}
}

// Record writes a single tick to the backend.
func (r *TickRecorder) Record(ctx context.Context, t *models.LiveTick) error {
	if t == nil {
		return fmt.Errorf("tick is nil")
	}
	if r.backend == "none" || r.backend == "" || r.sink == nil {
		return nil
	}

	start := time.Now()
	if err := r.sink.Write(ctx, t); err != nil {
		r.metrics.RecordError("record")
		return fmt.Errorf("record tick: %w", err)
	}
	r.metrics.RecordRecorded(r.backend, t.Symbol)
	r.metrics.RecordLatency("record", time.Since(start).Seconds())
	return nil
}

// RecordBatch writes multiple ticks in one backend call.
func (r *TickRecorder) RecordBatch(ctx context.Context, ticks []*models.LiveTick) error {
	if len(ticks) == 0 {
		return nil
	}
	if r.backend == "none" || r.backend == "" || r.sink == nil {
		return nil
	}

	start := time.Now()
	if err := r.sink.WriteBatch(ctx, ticks); err != nil {
		r.metrics.RecordError("record_batch")
		return fmt.Errorf("record batch: %w", err)
	}
	for _, t := range ticks {
		r.metrics.RecordRecorded(r.backend, t.Symbol)
	}
	r.metrics.RecordLatency("record_batch", time.Since(start).Seconds())
	return nil
}

// Close releases the backend sink.
func (r *TickRecorder) Close() {
	if r.sink != nil {
		_ = r.sink.Close()
	}
}
