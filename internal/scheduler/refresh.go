package scheduler

import (
	"context"
	"time"

	"StockPulse/internal/usecase"
	applogger "StockPulse/pkg/logger"

	"github.com/robfig/cron/v3"
)

// ForecastRefresher periodically re-runs the prediction fan-out for the
// active instrument so overlays do not go stale during long sessions.
type ForecastRefresher struct {
	session *usecase.InstrumentSession
	cron    *cron.Cron
	spec    string
	log     *applogger.Logger
}

// New creates a refresher on the given cron spec. An empty spec disables it.
func New(session *usecase.InstrumentSession, spec string, log *applogger.Logger) *ForecastRefresher {
	return &ForecastRefresher{
		session: session,
		cron:    cron.New(cron.WithSeconds()),
		spec:    spec,
		log:     log,
	}
}

// Start registers and launches the schedule.
func (r *ForecastRefresher) Start() error {
	if r.spec == "" {
		r.log.Info("forecast refresh disabled")
		return nil
	}
	_, err := r.cron.AddFunc(r.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := r.session.Refresh(ctx); err != nil {
			if err == usecase.ErrNoActiveInstrument {
				return
			}
			r.log.Warn("scheduled refresh failed", applogger.Error(err))
		}
	})
	if err != nil {
		return err
	}
	r.cron.Start()
	r.log.Info("forecast refresh scheduled", applogger.String("spec", r.spec))
	return nil
}

// Stop halts the schedule and waits for a running job to finish.
func (r *ForecastRefresher) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}
