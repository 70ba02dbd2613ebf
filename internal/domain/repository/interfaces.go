package repository

import (
	"context"

	"StockPulse/internal/domain/models"
)

// LiveFeed is the push channel delivering ticks for subscribed symbols.
// Delivery is at-least-once and order-preserving per symbol; the feed keeps
// its subscription set across reconnects.
type LiveFeed interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context, symbol string) error
	Unsubscribe(ctx context.Context, symbol string) error
	Read(ctx context.Context) (<-chan models.LiveTick, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// HistoryProvider fetches the historical OHLCV series for a symbol.
type HistoryProvider interface {
	GetHistory(ctx context.Context, symbol, period, interval string) (models.HistoricalSeries, error)
}

// InstrumentDirectory lists instruments available for selection.
type InstrumentDirectory interface {
	ListAvailable(ctx context.Context) ([]models.Instrument, error)
}

// TickSink receives accepted live ticks for downstream delivery (broker topic
// or column store).
type TickSink interface {
	Write(ctx context.Context, t *models.LiveTick) error
	WriteBatch(ctx context.Context, ticks []*models.LiveTick) error
	Close() error
}

// Metrics records operational counters for the session and its plumbing.
type Metrics interface {
	RecordTick(symbol string)
	RecordStaleDrop(kind string)
	RecordProviderResult(model string, ok bool)
	RecordRecorded(backend, symbol string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}
