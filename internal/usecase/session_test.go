package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"StockPulse/internal/domain/models"
	drepo "StockPulse/internal/domain/repository"
	domsvc "StockPulse/internal/domain/service"
	"StockPulse/internal/service/directory"
)

// fakeFeed is a controllable LiveFeed: tests push ticks into its channel.
type fakeFeed struct {
	mu        sync.Mutex
	ticks     chan models.LiveTick
	errs      chan error
	connected bool
	subs      map[string]int
	unsubs    map[string]int
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{
		ticks:  make(chan models.LiveTick, 64),
		errs:   make(chan error, 1),
		subs:   make(map[string]int),
		unsubs: make(map[string]int),
	}
}

func (f *fakeFeed) Connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = true
	return nil
}

func (f *fakeFeed) Subscribe(ctx context.Context, symbol string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs[symbol]++
	return nil
}

func (f *fakeFeed) Unsubscribe(ctx context.Context, symbol string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsubs[symbol]++
	return nil
}

func (f *fakeFeed) Read(ctx context.Context) (<-chan models.LiveTick, <-chan error) {
	return f.ticks, f.errs
}

func (f *fakeFeed) Reconnect(ctx context.Context) error { return nil }

func (f *fakeFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	return nil
}

func (f *fakeFeed) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeFeed) subscribeCount(symbol string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subs[symbol]
}

// fakeHistory serves canned series, optionally gated so a test can hold a
// fetch open across a selection switch.
type fakeHistory struct {
	mu     sync.Mutex
	series map[string]models.HistoricalSeries
	errs   map[string]error
	gates  map[string]chan struct{}
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{
		series: make(map[string]models.HistoricalSeries),
		errs:   make(map[string]error),
		gates:  make(map[string]chan struct{}),
	}
}

func (h *fakeHistory) GetHistory(ctx context.Context, symbol, period, interval string) (models.HistoricalSeries, error) {
	h.mu.Lock()
	gate := h.gates[symbol]
	h.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.errs[symbol]; err != nil {
		return nil, err
	}
	return h.series[symbol], nil
}

var (
	_ drepo.LiveFeed        = (*fakeFeed)(nil)
	_ drepo.HistoryProvider = (*fakeHistory)(nil)
)

func testDirectory(t *testing.T) *directory.Static {
	t.Helper()
	dir, err := directory.NewStatic([]models.Instrument{
		{Symbol: "AAPL", DisplayName: "Apple Inc."},
		{Symbol: "MSFT", DisplayName: "Microsoft Corporation"},
	})
	if err != nil {
		t.Fatalf("directory: %v", err)
	}
	return dir
}

type sessionFixture struct {
	session *InstrumentSession
	feed    *fakeFeed
	history *fakeHistory
	metrics *fakeMetrics
	cancel  context.CancelFunc
}

func startSession(t *testing.T, providers []domsvc.ForecastProvider, history *fakeHistory) *sessionFixture {
	t.Helper()
	feed := newFakeFeed()
	metrics := newFakeMetrics()
	log := newTestLogger(t)
	orch := NewPredictionOrchestrator(providers, time.Second, metrics, log)
	s := NewInstrumentSession(feed, history, testDirectory(t), orch, nil, metrics, log, SessionOptions{
		BufferSize:  100,
		Period:      "1y",
		Interval:    "1d",
		HorizonDays: 7,
	})
	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Shutdown(context.Background())
		cancel()
	})
	return &sessionFixture{session: s, feed: feed, history: history, metrics: metrics, cancel: cancel}
}

func TestSessionSelectLoadsHistoryAndForecast(t *testing.T) {
	history := newFakeHistory()
	history.series["AAPL"] = dailySeries(252)
	providers := []domsvc.ForecastProvider{
		&fakeProvider{model: models.ModelARIMA, fs: forecastAfter(history.series["AAPL"], 7)},
	}
	fx := startSession(t, providers, history)
	ctx := context.Background()

	if err := fx.session.Select(ctx, "AAPL"); err != nil {
		t.Fatalf("select: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool {
		snap, _ := fx.session.Snapshot(ctx)
		return snap.Status == models.StatusReady && len(snap.Models) == 1
	})

	// live tail lands in the buffer and the view
	fx.feed.ticks <- models.LiveTick{Symbol: "AAPL", Timestamp: 1760000000, Price: 353.2}
	fx.feed.ticks <- models.LiveTick{Symbol: "AAPL", Timestamp: 1760000005, Price: 353.4}
	waitFor(t, 2*time.Second, func() bool {
		snap, _ := fx.session.Snapshot(ctx)
		return snap.BufferedTicks == 2
	})

	tl, status, _, err := fx.session.View(ctx, models.Lookback1Y, models.ModelARIMA)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if status != models.StatusReady {
		t.Fatalf("expected ready, got %s", status)
	}
	if len(tl.PrimaryDates) != 254 {
		t.Fatalf("expected 252 bars + 2 ticks, got %d", len(tl.PrimaryDates))
	}
	if len(tl.ForecastDates) != 7 {
		t.Fatalf("expected 7 forecast points, got %d", len(tl.ForecastDates))
	}
	if fx.feed.subscribeCount("AAPL") != 1 {
		t.Fatalf("expected one subscribe for AAPL")
	}
}

func TestSessionSwitchDropsStaleHistory(t *testing.T) {
	history := newFakeHistory()
	history.series["AAPL"] = dailySeries(252)
	history.series["MSFT"] = dailySeries(100)
	gate := make(chan struct{})
	history.gates["AAPL"] = gate

	providers := []domsvc.ForecastProvider{
		&fakeProvider{model: models.ModelARIMA, fs: validForecast(models.ModelARIMA, 7)},
	}
	fx := startSession(t, providers, history)
	ctx := context.Background()

	if err := fx.session.Select(ctx, "AAPL"); err != nil {
		t.Fatalf("select AAPL: %v", err)
	}
	if err := fx.session.Select(ctx, "MSFT"); err != nil {
		t.Fatalf("select MSFT: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool {
		snap, _ := fx.session.Snapshot(ctx)
		return snap.Status == models.StatusReady && snap.HistoricalPoints == 100
	})

	// the held AAPL fetch completes after the switch; it must be discarded
	close(gate)
	waitFor(t, 2*time.Second, func() bool {
		return fx.metrics.staleCount("history") >= 1
	})

	snap, _ := fx.session.Snapshot(ctx)
	if snap.Instrument.Symbol != "MSFT" || snap.HistoricalPoints != 100 {
		t.Fatalf("stale history overwrote current state: %+v", snap)
	}
	if snap.Generation != 2 {
		t.Fatalf("expected generation 2, got %d", snap.Generation)
	}
}

func TestSessionAllProvidersFailed(t *testing.T) {
	history := newFakeHistory()
	history.series["AAPL"] = dailySeries(30)
	providers := []domsvc.ForecastProvider{
		&fakeProvider{model: models.ModelARIMA, err: errors.New("down")},
		&fakeProvider{model: models.ModelProphet, err: errors.New("down")},
		&fakeProvider{model: models.ModelML, err: errors.New("down")},
	}
	fx := startSession(t, providers, history)
	ctx := context.Background()

	if err := fx.session.Select(ctx, "AAPL"); err != nil {
		t.Fatalf("select: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool {
		snap, _ := fx.session.Snapshot(ctx)
		return snap.Status == models.StatusError
	})

	snap, _ := fx.session.Snapshot(ctx)
	if snap.ErrorDetail != "no predictions available" {
		t.Fatalf("unexpected error detail %q", snap.ErrorDetail)
	}
	if snap.ProviderWarnings != 3 {
		t.Fatalf("expected 3 provider warnings, got %d", snap.ProviderWarnings)
	}
	// the view still serves history + ticks
	tl, _, _, err := fx.session.View(ctx, models.Lookback1Y, "")
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if len(tl.PrimaryDates) != 30 {
		t.Fatalf("history lost on provider failure: %d", len(tl.PrimaryDates))
	}
}

func TestSessionLateHistoryKeepsProviderExhaustion(t *testing.T) {
	history := newFakeHistory()
	history.series["AAPL"] = dailySeries(30)
	gate := make(chan struct{})
	history.gates["AAPL"] = gate

	providers := []domsvc.ForecastProvider{
		&fakeProvider{model: models.ModelARIMA, err: errors.New("down")},
		&fakeProvider{model: models.ModelProphet, err: errors.New("down")},
		&fakeProvider{model: models.ModelML, err: errors.New("down")},
	}
	fx := startSession(t, providers, history)
	ctx := context.Background()

	if err := fx.session.Select(ctx, "AAPL"); err != nil {
		t.Fatalf("select: %v", err)
	}

	// every provider fails while the history fetch is still held open
	waitFor(t, 2*time.Second, func() bool {
		snap, _ := fx.session.Snapshot(ctx)
		return snap.Status == models.StatusError && snap.ProviderWarnings == 3
	})

	// history completes afterwards; it must not flip the session to ready
	close(gate)
	waitFor(t, 2*time.Second, func() bool {
		snap, _ := fx.session.Snapshot(ctx)
		return snap.HistoricalPoints == 30
	})

	snap, _ := fx.session.Snapshot(ctx)
	if snap.Status != models.StatusError {
		t.Fatalf("late history promoted an exhausted session to %s", snap.Status)
	}
	if snap.ErrorDetail != "no predictions available" {
		t.Fatalf("unexpected error detail %q", snap.ErrorDetail)
	}
	if len(snap.Models) != 0 {
		t.Fatalf("expected no models, got %v", snap.Models)
	}
	// the loaded history is still served alongside the error
	tl, _, _, err := fx.session.View(ctx, models.Lookback1Y, "")
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if len(tl.PrimaryDates) != 30 {
		t.Fatalf("history lost: %d", len(tl.PrimaryDates))
	}
}

func TestSessionProviderFailureKeepsHistoryErrorDetail(t *testing.T) {
	history := newFakeHistory()
	history.errs["AAPL"] = errors.New("upstream 500")
	providers := []domsvc.ForecastProvider{
		&fakeProvider{model: models.ModelARIMA, err: errors.New("down"), delay: 50 * time.Millisecond},
	}
	fx := startSession(t, providers, history)
	ctx := context.Background()

	if err := fx.session.Select(ctx, "AAPL"); err != nil {
		t.Fatalf("select: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool {
		snap, _ := fx.session.Snapshot(ctx)
		return snap.Status == models.StatusError && snap.ProviderWarnings == 1
	})

	// the fan-out finishes after the history failure; the upstream detail
	// must survive
	deadline := time.Now().Add(300 * time.Millisecond)
	for time.Now().Before(deadline) {
		snap, _ := fx.session.Snapshot(ctx)
		if snap.ErrorDetail != "upstream 500" {
			t.Fatalf("history detail replaced with %q", snap.ErrorDetail)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSessionRefreshRecoversFromExhaustion(t *testing.T) {
	history := newFakeHistory()
	history.series["AAPL"] = dailySeries(30)
	flaky := &fakeProvider{model: models.ModelARIMA, err: errors.New("down")}
	fx := startSession(t, []domsvc.ForecastProvider{flaky}, history)
	ctx := context.Background()

	if err := fx.session.Select(ctx, "AAPL"); err != nil {
		t.Fatalf("select: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool {
		snap, _ := fx.session.Snapshot(ctx)
		return snap.Status == models.StatusError && snap.HistoricalPoints == 30
	})

	flaky.err = nil
	flaky.fs = validForecast(models.ModelARIMA, 7)
	if err := fx.session.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool {
		snap, _ := fx.session.Snapshot(ctx)
		return snap.Status == models.StatusReady && len(snap.Models) == 1
	})
}

func TestSessionHistoryFailureSetsError(t *testing.T) {
	history := newFakeHistory()
	history.errs["AAPL"] = errors.New("upstream 500")
	providers := []domsvc.ForecastProvider{
		&fakeProvider{model: models.ModelARIMA, fs: validForecast(models.ModelARIMA, 7)},
	}
	fx := startSession(t, providers, history)
	ctx := context.Background()

	if err := fx.session.Select(ctx, "AAPL"); err != nil {
		t.Fatalf("select: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool {
		snap, _ := fx.session.Snapshot(ctx)
		return snap.Status == models.StatusError
	})
}

func TestSessionDropsForeignAndStaleTicks(t *testing.T) {
	history := newFakeHistory()
	history.series["AAPL"] = dailySeries(10)
	fx := startSession(t, []domsvc.ForecastProvider{
		&fakeProvider{model: models.ModelARIMA, fs: validForecast(models.ModelARIMA, 7)},
	}, history)
	ctx := context.Background()

	if err := fx.session.Select(ctx, "AAPL"); err != nil {
		t.Fatalf("select: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool {
		snap, _ := fx.session.Snapshot(ctx)
		return snap.Status == models.StatusReady
	})

	// foreign symbol: filtered in the pump, never buffered
	fx.feed.ticks <- models.LiveTick{Symbol: "MSFT", Timestamp: 1760000000, Price: 500}
	// stale generation: posted directly with an old tag
	fx.session.postAsync(tickEvent{gen: 0, tick: models.LiveTick{Symbol: "AAPL", Timestamp: 1760000001, Price: 1}})

	waitFor(t, 2*time.Second, func() bool {
		return fx.metrics.staleCount("tick") >= 1
	})
	snap, _ := fx.session.Snapshot(ctx)
	if snap.BufferedTicks != 0 {
		t.Fatalf("dropped ticks leaked into buffer: %d", snap.BufferedTicks)
	}
}

func TestSessionSelectUnknownSymbol(t *testing.T) {
	history := newFakeHistory()
	fx := startSession(t, nil, history)
	err := fx.session.Select(context.Background(), "NOPE")
	if !errors.Is(err, ErrUnknownSymbol) {
		t.Fatalf("expected ErrUnknownSymbol, got %v", err)
	}
}

func TestSessionRefreshWithoutSelection(t *testing.T) {
	history := newFakeHistory()
	fx := startSession(t, nil, history)
	err := fx.session.Refresh(context.Background())
	if !errors.Is(err, ErrNoActiveInstrument) {
		t.Fatalf("expected ErrNoActiveInstrument, got %v", err)
	}
}

func TestSessionRefreshKeepsBufferAndGeneration(t *testing.T) {
	history := newFakeHistory()
	history.series["AAPL"] = dailySeries(40)
	fx := startSession(t, []domsvc.ForecastProvider{
		&fakeProvider{model: models.ModelARIMA, fs: validForecast(models.ModelARIMA, 7)},
	}, history)
	ctx := context.Background()

	if err := fx.session.Select(ctx, "AAPL"); err != nil {
		t.Fatalf("select: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool {
		snap, _ := fx.session.Snapshot(ctx)
		return snap.Status == models.StatusReady
	})
	fx.feed.ticks <- models.LiveTick{Symbol: "AAPL", Timestamp: 1760000000, Price: 1}
	waitFor(t, 2*time.Second, func() bool {
		snap, _ := fx.session.Snapshot(ctx)
		return snap.BufferedTicks == 1
	})

	if err := fx.session.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool {
		snap, _ := fx.session.Snapshot(ctx)
		return len(snap.Models) == 1
	})

	snap, _ := fx.session.Snapshot(ctx)
	if snap.Generation != 1 {
		t.Fatalf("refresh must not bump generation, got %d", snap.Generation)
	}
	if snap.BufferedTicks != 1 {
		t.Fatalf("refresh must keep the buffer, got %d ticks", snap.BufferedTicks)
	}
}
