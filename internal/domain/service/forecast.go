package service

import (
	"context"

	"StockPulse/internal/domain/models"
)

// ForecastProvider is one external prediction model. Implementations must be
// safe for concurrent calls; each call is independent and may fail without
// affecting sibling providers.
type ForecastProvider interface {
	ModelID() models.ModelID
	Predict(ctx context.Context, symbol string, horizonDays int) (*models.ForecastSet, error)
}
