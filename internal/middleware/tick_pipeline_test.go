package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"StockPulse/internal/domain/models"
)

type countingProc struct {
	mu    sync.Mutex
	got   []*models.LiveTick
	fails int
}

func (p *countingProc) Record(ctx context.Context, t *models.LiveTick) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fails > 0 {
		p.fails--
		return errors.New("downstream unavailable")
	}
	p.got = append(p.got, t)
	return nil
}

func (p *countingProc) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.got)
}

type nopMetrics struct{}

func (nopMetrics) RecordTick(string)                  {}
func (nopMetrics) RecordStaleDrop(string)             {}
func (nopMetrics) RecordProviderResult(string, bool)  {}
func (nopMetrics) RecordRecorded(string, string)      {}
func (nopMetrics) RecordError(string)                 {}
func (nopMetrics) RecordLastPrice(string, float64)    {}
func (nopMetrics) RecordLatency(string, float64)      {}

func TestPipelineOfferDelivers(t *testing.T) {
	proc := &countingProc{}
	p := NewTickPipeline(proc, nopMetrics{}, WithMaxRPS(1000), WithBufferSize(10))
	p.Start(context.Background())
	defer p.Stop()

	p.Offer(&models.LiveTick{Symbol: "AAPL", Timestamp: 100, Price: 1})

	deadline := time.Now().Add(2 * time.Second)
	for proc.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if proc.count() != 1 {
		t.Fatalf("expected 1 delivered tick, got %d", proc.count())
	}
}

func TestPipelineRetriesAfterDownstreamFailure(t *testing.T) {
	proc := &countingProc{fails: 2}
	p := NewTickPipeline(proc, nopMetrics{}, WithMaxRPS(1000), WithBufferSize(10))
	p.Start(context.Background())
	defer p.Stop()

	p.Offer(&models.LiveTick{Symbol: "AAPL", Timestamp: 100, Price: 1})

	deadline := time.Now().Add(3 * time.Second)
	for proc.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if proc.count() != 1 {
		t.Fatalf("tick lost after transient failures")
	}
}

func TestPipelineRejectsInvalidTicks(t *testing.T) {
	proc := &countingProc{}
	p := NewTickPipeline(proc, nopMetrics{}, WithBufferSize(10))
	p.Start(context.Background())
	defer p.Stop()

	p.Offer(nil)
	p.Offer(&models.LiveTick{Symbol: "", Timestamp: 100, Price: 1})
	p.Offer(&models.LiveTick{Symbol: "AAPL", Timestamp: 0, Price: 1})
	p.Offer(&models.LiveTick{Symbol: "AAPL", Timestamp: 100, Price: -5})

	time.Sleep(50 * time.Millisecond)
	if proc.count() != 0 {
		t.Fatalf("invalid ticks delivered: %d", proc.count())
	}
}

func TestPipelineThrottlesPerSymbol(t *testing.T) {
	proc := &countingProc{}
	p := NewTickPipeline(proc, nopMetrics{}, WithMaxRPS(1), WithBufferSize(100))
	p.Start(context.Background())
	defer p.Stop()

	for i := 0; i < 50; i++ {
		p.Offer(&models.LiveTick{Symbol: "AAPL", Timestamp: int64(100 + i), Price: 1})
	}

	time.Sleep(200 * time.Millisecond)
	if proc.count() > 2 {
		t.Fatalf("throttle ineffective: %d delivered", proc.count())
	}
}
