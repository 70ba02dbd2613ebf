package models

// Requests for the dashboard HTTP endpoints. Defined in domain for consistency and reuse.

type SelectRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required,min=1,max=12"`
}

type ViewRequest struct {
	Lookback string `query:"lookback" json:"lookback" default:"1y" validate:"oneof=1m 3m 6m 1y"`
	Model    string `query:"model" json:"model" validate:"omitempty,oneof=arima prophet ml"`
}

type HistoryRequest struct {
	Symbol   string `query:"symbol" json:"symbol" validate:"required,min=1,max=12"`
	Period   string `query:"period" json:"period" default:"1y" validate:"oneof=1mo 3mo 6mo 1y 2y 5y max"`
	Interval string `query:"interval" json:"interval" default:"1d" validate:"oneof=1m 5m 15m 1h 1d 1wk"`
}

type PredictRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required,min=1,max=12"`
	Model  string `query:"model" json:"model" default:"arima" validate:"oneof=arima prophet ml"`
	Days   int    `query:"days" json:"days" default:"7" validate:"gte=1,lte=30"`
}

// HistoryResponse mirrors the columnar payload the chart layer consumes.
type HistoryResponse struct {
	Symbol string    `json:"symbol"`
	Dates  []string  `json:"dates"`
	Open   []float64 `json:"open"`
	High   []float64 `json:"high"`
	Low    []float64 `json:"low"`
	Close  []float64 `json:"close"`
	Volume []float64 `json:"volume"`
}

// NewHistoryResponse converts a series into columnar form.
func NewHistoryResponse(symbol string, s HistoricalSeries) *HistoryResponse {
	r := &HistoryResponse{
		Symbol: symbol,
		Dates:  make([]string, 0, len(s)),
		Open:   make([]float64, 0, len(s)),
		High:   make([]float64, 0, len(s)),
		Low:    make([]float64, 0, len(s)),
		Close:  make([]float64, 0, len(s)),
		Volume: make([]float64, 0, len(s)),
	}
	for _, b := range s {
		r.Dates = append(r.Dates, BarDateLabel(b.Date))
		r.Open = append(r.Open, b.Open)
		r.High = append(r.High, b.High)
		r.Low = append(r.Low, b.Low)
		r.Close = append(r.Close, b.Close)
		r.Volume = append(r.Volume, b.Volume)
	}
	return r
}

// ForecastResponse is the wire form of one model's forecast.
type ForecastResponse struct {
	Symbol          string    `json:"symbol"`
	Model           ModelID   `json:"model"`
	Dates           []string  `json:"dates"`
	PredictedPrices []float64 `json:"predicted_prices"`
	LowerBounds     []float64 `json:"lower_bounds"`
	UpperBounds     []float64 `json:"upper_bounds"`
}

// NewForecastResponse converts a ForecastSet into wire form.
func NewForecastResponse(symbol string, fs *ForecastSet) *ForecastResponse {
	r := &ForecastResponse{
		Symbol:          symbol,
		Model:           fs.Model,
		Dates:           make([]string, 0, len(fs.Dates)),
		PredictedPrices: fs.Predicted,
		LowerBounds:     fs.Lower,
		UpperBounds:     fs.Upper,
	}
	for _, d := range fs.Dates {
		r.Dates = append(r.Dates, BarDateLabel(d))
	}
	return r
}
