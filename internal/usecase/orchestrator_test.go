package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"StockPulse/internal/domain/models"
	domsvc "StockPulse/internal/domain/service"
)

func TestOrchestratorPartialFailure(t *testing.T) {
	providers := []domsvc.ForecastProvider{
		&fakeProvider{model: models.ModelARIMA, fs: validForecast(models.ModelARIMA, 7)},
		&fakeProvider{model: models.ModelProphet, err: errors.New("service down")},
		&fakeProvider{model: models.ModelML, err: errors.New("timeout")},
	}
	o := NewPredictionOrchestrator(providers, time.Second, newFakeMetrics(), newTestLogger(t))
	sink := newCollectSink()

	o.Run(context.Background(), "AAPL", 7, 1, sink)

	select {
	case done := <-sink.done:
		if done.succeeded != 1 || done.failed != 2 {
			t.Fatalf("expected 1 ok / 2 failed, got %d/%d", done.succeeded, done.failed)
		}
		if done.gen != 1 {
			t.Fatalf("wrong generation %d", done.gen)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("fan-out did not complete")
	}

	results := sink.snapshot()
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	okSets := 0
	for _, r := range results {
		if r.err == nil {
			okSets++
			if r.fs == nil || r.fs.Model != models.ModelARIMA {
				t.Fatalf("unexpected success payload %+v", r.fs)
			}
		}
	}
	if okSets != 1 {
		t.Fatalf("expected exactly 1 successful set, got %d", okSets)
	}
}

func TestOrchestratorTimeoutIsolatesSlowProvider(t *testing.T) {
	providers := []domsvc.ForecastProvider{
		&fakeProvider{model: models.ModelARIMA, fs: validForecast(models.ModelARIMA, 5)},
		&fakeProvider{model: models.ModelProphet, fs: validForecast(models.ModelProphet, 5), delay: 5 * time.Second},
	}
	o := NewPredictionOrchestrator(providers, 50*time.Millisecond, newFakeMetrics(), newTestLogger(t))
	sink := newCollectSink()

	start := time.Now()
	o.Run(context.Background(), "AAPL", 5, 3, sink)

	select {
	case done := <-sink.done:
		if done.succeeded != 1 || done.failed != 1 {
			t.Fatalf("expected 1 ok / 1 failed, got %d/%d", done.succeeded, done.failed)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("fan-out did not complete")
	}
	if time.Since(start) > time.Second {
		t.Fatalf("slow provider blocked the fan-out: %v", time.Since(start))
	}
}

func TestOrchestratorContainsPanic(t *testing.T) {
	providers := []domsvc.ForecastProvider{
		&fakeProvider{model: models.ModelARIMA, panic: true},
		&fakeProvider{model: models.ModelProphet, fs: validForecast(models.ModelProphet, 5)},
	}
	o := NewPredictionOrchestrator(providers, time.Second, newFakeMetrics(), newTestLogger(t))
	sink := newCollectSink()

	o.Run(context.Background(), "TSLA", 5, 1, sink)

	select {
	case done := <-sink.done:
		if done.succeeded != 1 || done.failed != 1 {
			t.Fatalf("expected panic counted as failure, got %d/%d", done.succeeded, done.failed)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("fan-out did not complete")
	}
}

func TestOrchestratorRejectsInvalidShape(t *testing.T) {
	bad := validForecast(models.ModelARIMA, 5)
	bad.Lower = bad.Lower[:3] // ragged
	providers := []domsvc.ForecastProvider{
		&fakeProvider{model: models.ModelARIMA, fs: bad},
	}
	o := NewPredictionOrchestrator(providers, time.Second, newFakeMetrics(), newTestLogger(t))
	sink := newCollectSink()

	o.Run(context.Background(), "AAPL", 5, 1, sink)

	select {
	case done := <-sink.done:
		if done.succeeded != 0 || done.failed != 1 {
			t.Fatalf("expected shape validation failure, got %d/%d", done.succeeded, done.failed)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("fan-out did not complete")
	}
}

func TestOrchestratorRejectsMismatchedModel(t *testing.T) {
	wrong := validForecast(models.ModelML, 5)
	providers := []domsvc.ForecastProvider{
		&fakeProvider{model: models.ModelARIMA, fs: wrong},
	}
	o := NewPredictionOrchestrator(providers, time.Second, newFakeMetrics(), newTestLogger(t))
	sink := newCollectSink()

	o.Run(context.Background(), "AAPL", 5, 1, sink)

	done := <-sink.done
	if done.succeeded != 0 || done.failed != 1 {
		t.Fatalf("expected mismatched model rejected, got %d/%d", done.succeeded, done.failed)
	}
}
