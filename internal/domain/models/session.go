package models

// Status is the session state. Transitions per generation are monotonic:
// Loading resolves to Ready or Error exactly once; a later aggregate provider
// failure may still demote Ready to Error.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
)

// Lookback is the requested trailing slice of the historical series.
type Lookback string

const (
	Lookback1M Lookback = "1m"
	Lookback3M Lookback = "3m"
	Lookback6M Lookback = "6m"
	Lookback1Y Lookback = "1y"
)

// Entries maps a lookback window to the number of trailing entries.
// Zero means the full series.
func (l Lookback) Entries() int {
	switch l {
	case Lookback1M:
		return 30
	case Lookback3M:
		return 90
	case Lookback6M:
		return 180
	default:
		return 0
	}
}

// ParseLookback normalizes a wire value, defaulting to the full window.
func ParseLookback(s string) Lookback {
	switch Lookback(s) {
	case Lookback1M, Lookback3M, Lookback6M, Lookback1Y:
		return Lookback(s)
	}
	return Lookback1Y
}

// Timeline is the assembled, renderable view: a primary price series
// (sliced history plus the live tail) and an optional disjoint forecast
// overlay with confidence bounds.
type Timeline struct {
	PrimaryDates   []string  `json:"primary_dates"`
	PrimaryPrices  []float64 `json:"primary_prices"`
	ForecastDates  []string  `json:"forecast_dates,omitempty"`
	ForecastPrices []float64 `json:"forecast_prices,omitempty"`
	LowerBounds    []float64 `json:"lower_bounds,omitempty"`
	UpperBounds    []float64 `json:"upper_bounds,omitempty"`
}

// SessionSnapshot is the externally visible session state.
type SessionSnapshot struct {
	Instrument       Instrument `json:"instrument"`
	Generation       uint64     `json:"generation"`
	Status           Status     `json:"status"`
	ErrorDetail      string     `json:"error_detail,omitempty"`
	ProviderWarnings int        `json:"provider_warnings"`
	Models           []ModelID  `json:"models"`
	HistoricalPoints int        `json:"historical_points"`
	BufferedTicks    int        `json:"buffered_ticks"`
}
