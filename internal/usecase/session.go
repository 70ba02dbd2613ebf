package usecase

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"StockPulse/internal/domain/models"
	drepo "StockPulse/internal/domain/repository"
	mid "StockPulse/internal/middleware"
	"StockPulse/internal/service/directory"
	applogger "StockPulse/pkg/logger"
)

// ErrNoActiveInstrument is returned by queries before the first selection.
var ErrNoActiveInstrument = fmt.Errorf("no active instrument selected")

// ErrUnknownSymbol is returned when a selection names a symbol outside the
// configured universe.
var ErrUnknownSymbol = fmt.Errorf("unknown symbol")

// InstrumentSession owns the state of the single active instrument: its
// historical series, the live tick buffer, and the latest predictions.
//
// All state lives inside one goroutine fed by a mailbox. Every concurrent
// completion (history fetch, provider result, live tick) carries the
// generation it was started for; the loop discards anything tagged with an
// older generation. The generation counter is the sole arbiter of staleness.
type InstrumentSession struct {
	feed      drepo.LiveFeed
	history   drepo.HistoryProvider
	directory *directory.Static
	orch      *PredictionOrchestrator
	pipe      *mid.TickPipeline
	metrics   drepo.Metrics
	log       *applogger.Logger

	period      string
	interval    string
	horizonDays int

	mailbox chan message
	done    chan struct{}

	// Mirrors of loop state read by the feed pump to tag ticks without
	// crossing into the loop.
	liveGen    atomic.Uint64
	liveSymbol atomic.Value // string

	// Loop-owned state. Only the run goroutine touches these.
	instrument       models.Instrument
	generation       uint64
	status           models.Status
	errDetail        string
	series           models.HistoricalSeries
	buffer           *LiveUpdateBuffer
	predictions      models.PredictionMap
	providerWarnings int
	// forecastFailed records that the last completed fan-out for this
	// generation produced nothing. A history result landing afterwards must
	// not promote the session back to ready.
	forecastFailed bool
}

type message interface{ isMessage() }

type selectCmd struct {
	symbol string
	reply  chan error
}

type refreshCmd struct {
	reply chan error
}

type historyResult struct {
	gen    uint64
	series models.HistoricalSeries
	err    error
}

type providerResult struct {
	gen   uint64
	model models.ModelID
	fs    *models.ForecastSet
	err   error
}

type providersDone struct {
	gen       uint64
	succeeded int
	failed    int
}

type tickEvent struct {
	gen  uint64
	tick models.LiveTick
}

type viewAnswer struct {
	timeline  models.Timeline
	status    models.Status
	errDetail string
}

type viewQuery struct {
	lookback models.Lookback
	model    models.ModelID // empty means no overlay preference; first present model wins
	reply    chan viewAnswer
}

type snapshotQuery struct {
	reply chan models.SessionSnapshot
}

func (selectCmd) isMessage()     {}
func (refreshCmd) isMessage()    {}
func (historyResult) isMessage() {}
func (providerResult) isMessage() {}
func (providersDone) isMessage() {}
func (tickEvent) isMessage()     {}
func (viewQuery) isMessage()     {}
func (snapshotQuery) isMessage() {}

// SessionOptions carries the tunables of the session.
type SessionOptions struct {
	BufferSize  int
	MailboxSize int
	Period      string
	Interval    string
	HorizonDays int
}

// NewInstrumentSession wires the session actor. Call Start to launch it.
func NewInstrumentSession(
	feed drepo.LiveFeed,
	history drepo.HistoryProvider,
	dir *directory.Static,
	orch *PredictionOrchestrator,
	pipe *mid.TickPipeline,
	metrics drepo.Metrics,
	log *applogger.Logger,
	opts SessionOptions,
) *InstrumentSession {
	if opts.BufferSize <= 0 {
		opts.BufferSize = 100
	}
	if opts.MailboxSize <= 0 {
		opts.MailboxSize = 256
	}
	if opts.HorizonDays <= 0 {
		opts.HorizonDays = 7
	}
	s := &InstrumentSession{
		feed:        feed,
		history:     history,
		directory:   dir,
		orch:        orch,
		pipe:        pipe,
		metrics:     metrics,
		log:         log,
		period:      opts.Period,
		interval:    opts.Interval,
		horizonDays: opts.HorizonDays,
		mailbox:     make(chan message, opts.MailboxSize),
		done:        make(chan struct{}),
		status:      models.StatusIdle,
		buffer:      NewLiveUpdateBuffer(opts.BufferSize),
		predictions: make(models.PredictionMap),
	}
	s.liveSymbol.Store("")
	return s
}

// Start connects the feed, launches the pump and the state loop.
func (s *InstrumentSession) Start(ctx context.Context) error {
	if err := s.feed.Connect(ctx); err != nil {
		return err
	}
	if s.pipe != nil {
		s.pipe.Start(ctx)
	}
	ticks, errs := s.feed.Read(ctx)
	go s.pump(ctx, ticks, errs)
	go s.run(ctx)
	return nil
}

// Shutdown stops the loop and closes the feed.
func (s *InstrumentSession) Shutdown(ctx context.Context) error {
	close(s.done)
	if s.pipe != nil {
		s.pipe.Stop()
	}
	return s.feed.Close()
}

// Connected reports feed connectivity for health checks.
func (s *InstrumentSession) Connected() bool { return s.feed.IsConnected() }

// Select switches the session to a new instrument. It returns once the
// switch is accepted; loading continues asynchronously.
func (s *InstrumentSession) Select(ctx context.Context, symbol string) error {
	reply := make(chan error, 1)
	if err := s.post(ctx, selectCmd{symbol: symbol, reply: reply}); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Refresh re-runs the prediction fan-out for the current instrument without
// touching the buffer or the historical series.
func (s *InstrumentSession) Refresh(ctx context.Context) error {
	reply := make(chan error, 1)
	if err := s.post(ctx, refreshCmd{reply: reply}); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// View assembles the renderable timeline for the given lookback and model.
func (s *InstrumentSession) View(ctx context.Context, lookback models.Lookback, model models.ModelID) (models.Timeline, models.Status, string, error) {
	reply := make(chan viewAnswer, 1)
	if err := s.post(ctx, viewQuery{lookback: lookback, model: model, reply: reply}); err != nil {
		return models.Timeline{}, "", "", err
	}
	select {
	case a := <-reply:
		return a.timeline, a.status, a.errDetail, nil
	case <-ctx.Done():
		return models.Timeline{}, "", "", ctx.Err()
	}
}

// Snapshot returns the externally visible session state.
func (s *InstrumentSession) Snapshot(ctx context.Context) (models.SessionSnapshot, error) {
	reply := make(chan models.SessionSnapshot, 1)
	if err := s.post(ctx, snapshotQuery{reply: reply}); err != nil {
		return models.SessionSnapshot{}, err
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-ctx.Done():
		return models.SessionSnapshot{}, ctx.Err()
	}
}

func (s *InstrumentSession) post(ctx context.Context, m message) error {
	select {
	case s.mailbox <- m:
		return nil
	case <-s.done:
		return fmt.Errorf("session stopped")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// postAsync delivers completions from background goroutines. It blocks until
// the loop accepts, the session stops, or the context ends.
func (s *InstrumentSession) postAsync(m message) {
	select {
	case s.mailbox <- m:
	case <-s.done:
	}
}

// ProviderResult implements ProviderSink.
func (s *InstrumentSession) ProviderResult(gen uint64, model models.ModelID, fs *models.ForecastSet, err error) {
	s.postAsync(providerResult{gen: gen, model: model, fs: fs, err: err})
}

// ProvidersDone implements ProviderSink.
func (s *InstrumentSession) ProvidersDone(gen uint64, succeeded, failed int) {
	s.postAsync(providersDone{gen: gen, succeeded: succeeded, failed: failed})
}

// pump forwards feed ticks into the mailbox, tagging each with the
// generation current at arrival. Ticks for other symbols or with no active
// generation are dropped here, before they cost a mailbox slot.
func (s *InstrumentSession) pump(ctx context.Context, ticks <-chan models.LiveTick, errs <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case err, ok := <-errs:
			if !ok {
				return
			}
			if err != nil {
				s.metrics.RecordError("feed")
				s.log.Warn("feed error, reconnecting", applogger.Error(err))
				if rerr := s.feed.Reconnect(ctx); rerr != nil {
					s.log.Error("feed reconnect failed", applogger.Error(rerr))
					return
				}
				newTicks, newErrs := s.feed.Read(ctx)
				go s.pump(ctx, newTicks, newErrs)
				return
			}
		case t, ok := <-ticks:
			if !ok {
				return
			}
			if t.Symbol != s.liveSymbol.Load().(string) {
				continue
			}
			gen := s.liveGen.Load()
			if gen == 0 {
				continue
			}
			select {
			case s.mailbox <- tickEvent{gen: gen, tick: t}:
			default:
				// loop saturated; live view misses one tick
				s.metrics.RecordError("mailbox_full")
			}
		}
	}
}

// run is the state loop. It owns every field below the mailbox and is the
// only goroutine that reads or writes them.
func (s *InstrumentSession) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case m := <-s.mailbox:
			switch msg := m.(type) {
			case selectCmd:
				msg.reply <- s.handleSelect(ctx, msg.symbol)
			case refreshCmd:
				msg.reply <- s.handleRefresh(ctx)
			case historyResult:
				s.handleHistory(msg)
			case providerResult:
				s.handleProvider(msg)
			case providersDone:
				s.handleProvidersDone(msg)
			case tickEvent:
				s.handleTick(msg)
			case viewQuery:
				msg.reply <- s.answerView(msg)
			case snapshotQuery:
				msg.reply <- s.snapshot()
			}
		}
	}
}

func (s *InstrumentSession) handleSelect(ctx context.Context, symbol string) error {
	inst, ok := s.directory.Lookup(symbol)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}

	prev := s.instrument.Symbol
	s.generation++
	gen := s.generation
	s.instrument = inst
	s.status = models.StatusLoading
	s.errDetail = ""
	s.series = nil
	s.buffer.Clear()
	s.predictions = make(models.PredictionMap)
	s.providerWarnings = 0
	s.forecastFailed = false

	// Publish the new identity to the pump before any tick can race in.
	s.liveSymbol.Store(inst.Symbol)
	s.liveGen.Store(gen)

	s.log.Info("instrument selected",
		applogger.String("symbol", inst.Symbol),
		applogger.Uint64("generation", gen))

	// Feed plumbing off the loop: a slow unsubscribe must not stall state.
	go func() {
		if prev != "" && prev != inst.Symbol {
			if err := s.feed.Unsubscribe(ctx, prev); err != nil {
				s.log.Warn("unsubscribe failed", applogger.String("symbol", prev), applogger.Error(err))
			}
		}
		if err := s.feed.Subscribe(ctx, inst.Symbol); err != nil {
			s.log.Warn("subscribe failed", applogger.String("symbol", inst.Symbol), applogger.Error(err))
			s.metrics.RecordError("subscribe")
		}
	}()

	go func() {
		start := time.Now()
		series, err := s.history.GetHistory(ctx, inst.Symbol, s.period, s.interval)
		s.metrics.RecordLatency("history", time.Since(start).Seconds())
		s.postAsync(historyResult{gen: gen, series: series, err: err})
	}()

	s.orch.Run(ctx, inst.Symbol, s.horizonDays, gen, s)
	return nil
}

func (s *InstrumentSession) handleRefresh(ctx context.Context) error {
	if s.instrument.IsZero() {
		return ErrNoActiveInstrument
	}
	s.providerWarnings = 0
	s.orch.Run(ctx, s.instrument.Symbol, s.horizonDays, s.generation, s)
	s.log.Info("forecast refresh started",
		applogger.String("symbol", s.instrument.Symbol),
		applogger.Uint64("generation", s.generation))
	return nil
}

func (s *InstrumentSession) handleHistory(msg historyResult) {
	if msg.gen != s.generation {
		s.metrics.RecordStaleDrop("history")
		return
	}
	if msg.err != nil {
		s.status = models.StatusError
		s.errDetail = msg.err.Error()
		s.metrics.RecordError("history")
		s.log.Error("history load failed",
			applogger.String("symbol", s.instrument.Symbol),
			applogger.Error(msg.err))
		return
	}
	s.series = msg.series
	if s.forecastFailed {
		// the fan-out already exhausted every provider; history alone is
		// not a ready session
		s.status = models.StatusError
	} else {
		s.status = models.StatusReady
		s.errDetail = ""
	}
	s.log.Info("history loaded",
		applogger.String("symbol", s.instrument.Symbol),
		applogger.Int("bars", len(msg.series)))
}

func (s *InstrumentSession) handleProvider(msg providerResult) {
	if msg.gen != s.generation {
		s.metrics.RecordStaleDrop("provider")
		return
	}
	if msg.err != nil {
		s.providerWarnings++
		return
	}
	s.predictions.Merge(msg.fs)
}

func (s *InstrumentSession) handleProvidersDone(msg providersDone) {
	if msg.gen != s.generation {
		s.metrics.RecordStaleDrop("providers_done")
		return
	}
	if msg.succeeded == 0 && msg.failed > 0 && len(s.predictions) == 0 {
		s.forecastFailed = true
		// a history failure already carries a more specific detail; keep it
		if s.status != models.StatusError {
			s.status = models.StatusError
			s.errDetail = "no predictions available"
		}
		s.log.Error("all forecast providers failed",
			applogger.String("symbol", s.instrument.Symbol),
			applogger.Int("failed", msg.failed))
		return
	}
	wasExhausted := s.forecastFailed
	s.forecastFailed = false
	if wasExhausted && s.status == models.StatusError && len(s.series) > 0 {
		// a refresh recovered predictions after an exhausted fan-out
		s.status = models.StatusReady
		s.errDetail = ""
	}
	s.log.Info("forecast fan-out complete",
		applogger.String("symbol", s.instrument.Symbol),
		applogger.Int("succeeded", msg.succeeded),
		applogger.Int("failed", msg.failed))
}

func (s *InstrumentSession) handleTick(msg tickEvent) {
	if msg.gen != s.generation {
		s.metrics.RecordStaleDrop("tick")
		return
	}
	if msg.tick.Symbol != s.instrument.Symbol {
		s.metrics.RecordStaleDrop("tick")
		return
	}
	s.buffer.Append(msg.tick)
	s.metrics.RecordTick(msg.tick.Symbol)
	s.metrics.RecordLastPrice(msg.tick.Symbol, msg.tick.Price)
	if s.pipe != nil {
		t := msg.tick
		s.pipe.Offer(&t)
	}
}

func (s *InstrumentSession) answerView(q viewQuery) viewAnswer {
	fs := s.pickForecast(q.model)
	return viewAnswer{
		timeline:  AssembleTimeline(s.series, s.buffer.Snapshot(), fs, q.lookback),
		status:    s.status,
		errDetail: s.errDetail,
	}
}

// pickForecast returns the requested model's set, or the first present model
// in stable order when no preference is given.
func (s *InstrumentSession) pickForecast(model models.ModelID) *models.ForecastSet {
	if model != "" {
		return s.predictions[model]
	}
	for _, m := range s.predictions.Models() {
		return s.predictions[m]
	}
	return nil
}

func (s *InstrumentSession) snapshot() models.SessionSnapshot {
	return models.SessionSnapshot{
		Instrument:       s.instrument,
		Generation:       s.generation,
		Status:           s.status,
		ErrorDetail:      s.errDetail,
		ProviderWarnings: s.providerWarnings,
		Models:           s.predictions.Models(),
		HistoricalPoints: len(s.series),
		BufferedTicks:    s.buffer.Len(),
	}
}
