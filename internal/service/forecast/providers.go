package forecast

import (
	"context"
	"fmt"
	"time"

	"StockPulse/internal/domain/models"
	domsvc "StockPulse/internal/domain/service"
	"StockPulse/pkg/util"
)

// httpProvider calls one model endpoint of the forecast service. All three
// configured models share the wire shape and differ only in path.
type httpProvider struct {
	model models.ModelID
	base  *HTTPServiceBase
}

type predictRequest struct {
	Symbol string `json:"symbol"`
	Days   int    `json:"days"`
}

type predictResponse struct {
	Dates           []string  `json:"dates"`
	PredictedPrices []float64 `json:"predicted_prices"`
	LowerBounds     []float64 `json:"lower_bounds"`
	UpperBounds     []float64 `json:"upper_bounds"`
}

func (p *httpProvider) ModelID() models.ModelID { return p.model }

func (p *httpProvider) Predict(ctx context.Context, symbol string, horizonDays int) (*models.ForecastSet, error) {
	var rr predictResponse
	path := fmt.Sprintf("/predict/%s", p.model)
	err := p.base.PostJSON(ctx, path, predictRequest{Symbol: symbol, Days: horizonDays}, &rr)
	if err != nil {
		return nil, fmt.Errorf("predict %s: %w", p.model, err)
	}

	fs := &models.ForecastSet{
		Model:     p.model,
		Dates:     util.ParseDates(rr.Dates),
		Predicted: rr.PredictedPrices,
		Lower:     rr.LowerBounds,
		Upper:     rr.UpperBounds,
	}
	if len(fs.Dates) != len(rr.Dates) {
		return nil, fmt.Errorf("predict %s: unparseable dates in response", p.model)
	}
	if err := fs.Validate(); err != nil {
		return nil, err
	}
	return fs, nil
}

// NewProviders builds one provider per configured model against the shared
// forecast service.
func NewProviders(serviceURL string, timeout time.Duration) []domsvc.ForecastProvider {
	base := NewHTTPServiceBase(serviceURL, timeout)
	out := make([]domsvc.ForecastProvider, 0, len(models.AllModels()))
	for _, m := range models.AllModels() {
		out = append(out, &httpProvider{model: m, base: base})
	}
	return out
}

var _ domsvc.ForecastProvider = (*httpProvider)(nil)
