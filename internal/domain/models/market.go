package models

import (
	"fmt"
	"time"
)

// Bar is one OHLCV entry of a historical series.
type Bar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// HistoricalSeries is an ordered OHLCV sequence, strictly increasing by date.
// It is replaced wholesale on each instrument selection.
type HistoricalSeries []Bar

// Validate checks ordering. Dates must strictly increase.
func (s HistoricalSeries) Validate() error {
	for i := 1; i < len(s); i++ {
		if !s[i].Date.After(s[i-1].Date) {
			return fmt.Errorf("series not strictly increasing at index %d (%s)", i, s[i].Date.Format(barDateLayout))
		}
	}
	return nil
}

// TrailingN returns the last n entries, or the full series when n <= 0
// or n exceeds the available length.
func (s HistoricalSeries) TrailingN(n int) HistoricalSeries {
	if n <= 0 || n >= len(s) {
		return s
	}
	return s[len(s)-n:]
}

// Last returns the final bar, if any.
func (s HistoricalSeries) Last() (Bar, bool) {
	if len(s) == 0 {
		return Bar{}, false
	}
	return s[len(s)-1], true
}

// LiveTick is one live price update for an instrument.
type LiveTick struct {
	Symbol    string  `json:"symbol"`
	Timestamp int64   `json:"timestamp"` // unix seconds
	Price     float64 `json:"price"`
	Change    float64 `json:"change"`
}

const (
	barDateLayout  = "2006-01-02"
	tickTimeLayout = "2006-01-02 15:04:05"
)

// BarDateLabel formats a bar date for timeline output.
func BarDateLabel(t time.Time) string { return t.UTC().Format(barDateLayout) }

// TickTimeLabel formats a tick timestamp for timeline output. The layout
// shares the bar date prefix so labels stay lexicographically ordered when
// ticks follow daily bars on one axis.
func TickTimeLabel(ts int64) string { return time.Unix(ts, 0).UTC().Format(tickTimeLayout) }
