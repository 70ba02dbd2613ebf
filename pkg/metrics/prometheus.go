package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain repository.Metrics using Prometheus.
type Recorder struct {
	ticksTotal      *prometheus.CounterVec
	staleDrops      *prometheus.CounterVec
	providerResults *prometheus.CounterVec
	recordedTotal   *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	lastPrice       *prometheus.GaugeVec
	latency         *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		ticksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockpulse_ticks_total",
				Help: "Live ticks accepted into the session buffer",
			},
			[]string{"symbol"},
		),
		staleDrops: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockpulse_stale_drops_total",
				Help: "Asynchronous results discarded for carrying a stale generation",
			},
			[]string{"kind"},
		),
		providerResults: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockpulse_provider_results_total",
				Help: "Forecast provider call outcomes",
			},
			[]string{"model", "result"},
		),
		recordedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockpulse_ticks_recorded_total",
				Help: "Ticks delivered to the recording backend",
			},
			[]string{"backend", "symbol"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockpulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stockpulse_last_price",
				Help: "Last observed price for a symbol",
			},
			[]string{"symbol"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stockpulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordTick(symbol string) {
	r.ticksTotal.WithLabelValues(symbol).Inc()
}

func (r *Recorder) RecordStaleDrop(kind string) {
	r.staleDrops.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordProviderResult(model string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	r.providerResults.WithLabelValues(model, result).Inc()
}

func (r *Recorder) RecordRecorded(backend, symbol string) {
	r.recordedTotal.WithLabelValues(backend, symbol).Inc()
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
