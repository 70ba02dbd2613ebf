package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"StockPulse/internal/domain/models"
	domsvc "StockPulse/internal/domain/service"
	applogger "StockPulse/pkg/logger"
)

func newTestLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

// fakeMetrics counts calls so tests can assert on drop/stale accounting.
type fakeMetrics struct {
	mu         sync.Mutex
	ticks      int
	staleDrops map[string]int
	provider   map[string]int
	errors     map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{
		staleDrops: make(map[string]int),
		provider:   make(map[string]int),
		errors:     make(map[string]int),
	}
}

func (m *fakeMetrics) RecordTick(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ticks++
}

func (m *fakeMetrics) RecordStaleDrop(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.staleDrops[kind]++
}

func (m *fakeMetrics) RecordProviderResult(model string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.provider[fmt.Sprintf("%s:%v", model, ok)]++
}

func (m *fakeMetrics) RecordRecorded(string, string) {}

func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}

func (m *fakeMetrics) RecordLastPrice(string, float64) {}
func (m *fakeMetrics) RecordLatency(string, float64)   {}

func (m *fakeMetrics) tickCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ticks
}

func (m *fakeMetrics) staleCount(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.staleDrops[kind]
}

// fakeProvider returns a canned forecast or error, optionally after a delay.
type fakeProvider struct {
	model models.ModelID
	fs    *models.ForecastSet
	err   error
	delay time.Duration
	panic bool
}

func (p *fakeProvider) ModelID() models.ModelID { return p.model }

func (p *fakeProvider) Predict(ctx context.Context, symbol string, horizonDays int) (*models.ForecastSet, error) {
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.panic {
		panic("model exploded")
	}
	if p.err != nil {
		return nil, p.err
	}
	return p.fs, nil
}

func validForecast(model models.ModelID, days int) *models.ForecastSet {
	start := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	fs := &models.ForecastSet{Model: model}
	for i := 0; i < days; i++ {
		fs.Dates = append(fs.Dates, start.AddDate(0, 0, i))
		fs.Predicted = append(fs.Predicted, 100+float64(i))
		fs.Lower = append(fs.Lower, 95+float64(i))
		fs.Upper = append(fs.Upper, 105+float64(i))
	}
	return fs
}

var _ domsvc.ForecastProvider = (*fakeProvider)(nil)

// collectSink gathers orchestrator callbacks for assertions.
type collectSink struct {
	mu      sync.Mutex
	results []providerResult
	done    chan providersDone
}

func newCollectSink() *collectSink {
	return &collectSink{done: make(chan providersDone, 1)}
}

func (s *collectSink) ProviderResult(gen uint64, model models.ModelID, fs *models.ForecastSet, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, providerResult{gen: gen, model: model, fs: fs, err: err})
}

func (s *collectSink) ProvidersDone(gen uint64, succeeded, failed int) {
	s.done <- providersDone{gen: gen, succeeded: succeeded, failed: failed}
}

func (s *collectSink) snapshot() []providerResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]providerResult, len(s.results))
	copy(out, s.results)
	return out
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}
