package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"StockPulse/internal/domain/models"
	drepo "StockPulse/internal/domain/repository"
	domsvc "StockPulse/internal/domain/service"
	applogger "StockPulse/pkg/logger"
)

// ProviderSink receives per-provider results and the final completion signal
// of one fan-out. Results are tagged with the generation they were requested
// for; the receiver decides whether they are still current.
type ProviderSink interface {
	ProviderResult(gen uint64, model models.ModelID, fs *models.ForecastSet, err error)
	ProvidersDone(gen uint64, succeeded, failed int)
}

// PredictionOrchestrator fans a forecast request out to every configured
// provider concurrently. Each provider runs under its own timeout and fails
// independently: one slow or broken model never blocks the others.
type PredictionOrchestrator struct {
	providers []domsvc.ForecastProvider
	timeout   time.Duration
	metrics   drepo.Metrics
	log       *applogger.Logger
}

// NewPredictionOrchestrator creates an orchestrator over the given providers.
func NewPredictionOrchestrator(providers []domsvc.ForecastProvider, timeout time.Duration, metrics drepo.Metrics, log *applogger.Logger) *PredictionOrchestrator {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &PredictionOrchestrator{
		providers: providers,
		timeout:   timeout,
		metrics:   metrics,
		log:       log,
	}
}

// Run launches the fan-out for one generation and returns immediately.
// Results stream into sink as each provider finishes; ProvidersDone fires
// exactly once after the last one.
func (o *PredictionOrchestrator) Run(ctx context.Context, symbol string, horizonDays int, gen uint64, sink ProviderSink) {
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, failed := 0, 0

	for _, p := range o.providers {
		wg.Add(1)
		go func(p domsvc.ForecastProvider) {
			defer wg.Done()
			fs, err := o.callOne(ctx, p, symbol, horizonDays)
			ok := err == nil
			o.metrics.RecordProviderResult(string(p.ModelID()), ok)
			mu.Lock()
			if ok {
				succeeded++
			} else {
				failed++
			}
			mu.Unlock()
			if err != nil {
				o.log.Warn("forecast provider failed",
					applogger.String("model", string(p.ModelID())),
					applogger.String("symbol", symbol),
					applogger.Uint64("generation", gen),
					applogger.Error(err))
			}
			sink.ProviderResult(gen, p.ModelID(), fs, err)
		}(p)
	}

	go func() {
		wg.Wait()
		sink.ProvidersDone(gen, succeeded, failed)
	}()
}

// callOne runs a single provider under the per-call timeout. A panicking
// provider is contained and reported as an error.
func (o *PredictionOrchestrator) callOne(ctx context.Context, p domsvc.ForecastProvider, symbol string, horizonDays int) (fs *models.ForecastSet, err error) {
	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			fs = nil
			err = fmt.Errorf("provider %s panicked: %v", p.ModelID(), r)
		}
	}()

	start := time.Now()
	fs, err = p.Predict(callCtx, symbol, horizonDays)
	o.metrics.RecordLatency("predict_"+string(p.ModelID()), time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	if err := fs.Validate(); err != nil {
		return nil, err
	}
	if fs.Model != p.ModelID() {
		return nil, fmt.Errorf("provider %s returned forecast for %s", p.ModelID(), fs.Model)
	}
	return fs, nil
}
