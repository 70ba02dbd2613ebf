package history

import (
	"context"
	"fmt"
	"sort"
	"time"

	"StockPulse/internal/domain/models"
	drepo "StockPulse/internal/domain/repository"
	xhttp "StockPulse/pkg/http"
	"StockPulse/pkg/util"
)

// Client fetches historical OHLCV series over HTTP.
type Client struct {
	baseURL string
	client  *xhttp.Client
}

// New creates a history client.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

type historyRow struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

type historyPayload struct {
	Symbol string       `json:"symbol"`
	Bars   []historyRow `json:"bars"`
}

// GetHistory fetches the series for a symbol. The result is sorted and
// validated: a provider returning unordered or duplicate dates is corrected
// by sorting, ragged rows fail the call.
func (c *Client) GetHistory(ctx context.Context, symbol, period, interval string) (models.HistoricalSeries, error) {
	var payload historyPayload
	err := c.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    fmt.Sprintf("%s/history/%s", c.baseURL, symbol),
		QueryParams: map[string][]string{
			"period":   {period},
			"interval": {interval},
		},
	}, &payload)
	if err != nil {
		return nil, fmt.Errorf("history %s: %w", symbol, err)
	}
	if len(payload.Bars) == 0 {
		return nil, fmt.Errorf("history %s: empty series", symbol)
	}

	series := make(models.HistoricalSeries, 0, len(payload.Bars))
	for _, r := range payload.Bars {
		t, ok := util.ParseTime(r.Date)
		if !ok {
			return nil, fmt.Errorf("history %s: bad date %q", symbol, r.Date)
		}
		series = append(series, models.Bar{
			Date:   t,
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: r.Volume,
		})
	}

	sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
	if err := series.Validate(); err != nil {
		return nil, fmt.Errorf("history %s: %w", symbol, err)
	}
	return series, nil
}

var _ drepo.HistoryProvider = (*Client)(nil)
