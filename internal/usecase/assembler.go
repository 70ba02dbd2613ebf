package usecase

import (
	"StockPulse/internal/domain/models"
)

// AssembleTimeline merges the historical series, buffered live ticks, and an
// optional forecast into one renderable timeline. It is a pure function: it
// never mutates its inputs and the same inputs always yield the same output.
//
// The primary series is the trailing lookback slice of daily bars followed by
// every buffered tick. Forecast points at or before the last bar date are
// dropped so the overlay stays disjoint from realized history.
func AssembleTimeline(history models.HistoricalSeries, ticks []models.LiveTick, forecast *models.ForecastSet, lookback models.Lookback) models.Timeline {
	sliced := history.TrailingN(lookback.Entries())

	tl := models.Timeline{
		PrimaryDates:  make([]string, 0, len(sliced)+len(ticks)),
		PrimaryPrices: make([]float64, 0, len(sliced)+len(ticks)),
	}
	for _, b := range sliced {
		tl.PrimaryDates = append(tl.PrimaryDates, models.BarDateLabel(b.Date))
		tl.PrimaryPrices = append(tl.PrimaryPrices, b.Close)
	}
	for _, t := range ticks {
		tl.PrimaryDates = append(tl.PrimaryDates, models.TickTimeLabel(t.Timestamp))
		tl.PrimaryPrices = append(tl.PrimaryPrices, t.Price)
	}

	if forecast == nil || len(forecast.Dates) == 0 {
		return tl
	}

	// Cut against the full history, not the slice: a short lookback must not
	// resurrect forecast points that overlap realized bars.
	start := 0
	if last, ok := history.Last(); ok {
		for start < len(forecast.Dates) && !forecast.Dates[start].After(last.Date) {
			start++
		}
	}
	if start >= len(forecast.Dates) {
		return tl
	}

	n := len(forecast.Dates) - start
	tl.ForecastDates = make([]string, 0, n)
	tl.ForecastPrices = make([]float64, 0, n)
	tl.LowerBounds = make([]float64, 0, n)
	tl.UpperBounds = make([]float64, 0, n)
	for i := start; i < len(forecast.Dates); i++ {
		tl.ForecastDates = append(tl.ForecastDates, models.BarDateLabel(forecast.Dates[i]))
		tl.ForecastPrices = append(tl.ForecastPrices, forecast.Predicted[i])
		tl.LowerBounds = append(tl.LowerBounds, forecast.Lower[i])
		tl.UpperBounds = append(tl.UpperBounds, forecast.Upper[i])
	}
	return tl
}
