package usecase

import (
	"reflect"
	"testing"
	"time"

	"StockPulse/internal/domain/models"
)

func dailySeries(n int) models.HistoricalSeries {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := make(models.HistoricalSeries, n)
	for i := 0; i < n; i++ {
		d := start.AddDate(0, 0, i)
		s[i] = models.Bar{Date: d, Open: 100, High: 101, Low: 99, Close: 100 + float64(i), Volume: 1000}
	}
	return s
}

func forecastAfter(s models.HistoricalSeries, days int) *models.ForecastSet {
	last, _ := s.Last()
	fs := &models.ForecastSet{Model: models.ModelARIMA}
	for i := 1; i <= days; i++ {
		fs.Dates = append(fs.Dates, last.Date.AddDate(0, 0, i))
		fs.Predicted = append(fs.Predicted, 200+float64(i))
		fs.Lower = append(fs.Lower, 190+float64(i))
		fs.Upper = append(fs.Upper, 210+float64(i))
	}
	return fs
}

func TestAssembleFullYearWithForecast(t *testing.T) {
	hist := dailySeries(252)
	fs := forecastAfter(hist, 7)
	ticks := []models.LiveTick{
		{Symbol: "AAPL", Timestamp: time.Date(2025, 9, 10, 14, 30, 0, 0, time.UTC).Unix(), Price: 351},
		{Symbol: "AAPL", Timestamp: time.Date(2025, 9, 10, 14, 30, 5, 0, time.UTC).Unix(), Price: 352},
	}

	tl := AssembleTimeline(hist, ticks, fs, models.Lookback1Y)

	if len(tl.PrimaryDates) != 254 || len(tl.PrimaryPrices) != 254 {
		t.Fatalf("expected 254 primary points, got %d/%d", len(tl.PrimaryDates), len(tl.PrimaryPrices))
	}
	if tl.PrimaryDates[0] != "2025-01-01" {
		t.Fatalf("unexpected first label %s", tl.PrimaryDates[0])
	}
	if tl.PrimaryDates[252] != "2025-09-10 14:30:00" {
		t.Fatalf("unexpected tick label %s", tl.PrimaryDates[252])
	}
	if tl.PrimaryPrices[253] != 352 {
		t.Fatalf("unexpected live tail price %v", tl.PrimaryPrices[253])
	}
	if len(tl.ForecastDates) != 7 || len(tl.LowerBounds) != 7 || len(tl.UpperBounds) != 7 {
		t.Fatalf("expected 7 forecast points, got %d", len(tl.ForecastDates))
	}
	// forecast must start strictly after the last bar
	if tl.ForecastDates[0] <= tl.PrimaryDates[251] {
		t.Fatalf("forecast overlaps history: %s <= %s", tl.ForecastDates[0], tl.PrimaryDates[251])
	}
}

func TestAssembleLookbackSlicing(t *testing.T) {
	hist := dailySeries(252)

	for _, tc := range []struct {
		lb   models.Lookback
		want int
	}{
		{models.Lookback1M, 30},
		{models.Lookback3M, 90},
		{models.Lookback6M, 180},
		{models.Lookback1Y, 252},
	} {
		tl := AssembleTimeline(hist, nil, nil, tc.lb)
		if len(tl.PrimaryDates) != tc.want {
			t.Fatalf("lookback %s: expected %d points, got %d", tc.lb, tc.want, len(tl.PrimaryDates))
		}
		// slice keeps the tail of the series
		if tl.PrimaryPrices[len(tl.PrimaryPrices)-1] != 100+float64(251) {
			t.Fatalf("lookback %s: tail price wrong", tc.lb)
		}
	}
}

func TestAssembleLookbackLargerThanSeries(t *testing.T) {
	hist := dailySeries(20)
	tl := AssembleTimeline(hist, nil, nil, models.Lookback1M)
	if len(tl.PrimaryDates) != 20 {
		t.Fatalf("expected full short series, got %d", len(tl.PrimaryDates))
	}
}

func TestAssembleForecastCutUsesFullHistory(t *testing.T) {
	hist := dailySeries(252)
	last, _ := hist.Last()
	fs := &models.ForecastSet{
		Model:     models.ModelARIMA,
		Dates:     []time.Time{last.Date.AddDate(0, 0, -1), last.Date, last.Date.AddDate(0, 0, 1)},
		Predicted: []float64{1, 2, 3},
		Lower:     []float64{0, 1, 2},
		Upper:     []float64{2, 3, 4},
	}
	// 1m lookback hides most bars, but the cut must still honor the full series
	tl := AssembleTimeline(hist, nil, fs, models.Lookback1M)
	if len(tl.ForecastDates) != 1 {
		t.Fatalf("expected 1 surviving forecast point, got %d", len(tl.ForecastDates))
	}
	if tl.ForecastPrices[0] != 3 {
		t.Fatalf("wrong surviving point: %v", tl.ForecastPrices[0])
	}
}

func TestAssembleEmptyHistoryTicksOnly(t *testing.T) {
	ticks := []models.LiveTick{
		{Symbol: "TSLA", Timestamp: 1700000000, Price: 240.5},
	}
	tl := AssembleTimeline(nil, ticks, nil, models.Lookback1Y)
	if len(tl.PrimaryDates) != 1 || tl.PrimaryPrices[0] != 240.5 {
		t.Fatalf("expected tick-only timeline, got %+v", tl)
	}
	if tl.ForecastDates != nil {
		t.Fatalf("expected no forecast overlay")
	}
}

func TestAssembleIsPureAndIdempotent(t *testing.T) {
	hist := dailySeries(40)
	fs := forecastAfter(hist, 3)
	ticks := []models.LiveTick{{Symbol: "AAPL", Timestamp: 1700000000, Price: 1}}

	first := AssembleTimeline(hist, ticks, fs, models.Lookback1M)
	second := AssembleTimeline(hist, ticks, fs, models.Lookback1M)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("assembler not deterministic")
	}
	if err := hist.Validate(); err != nil {
		t.Fatalf("input mutated: %v", err)
	}
	if len(fs.Dates) != 3 {
		t.Fatalf("forecast input mutated")
	}
}
