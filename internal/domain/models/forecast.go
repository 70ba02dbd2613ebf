package models

import (
	"fmt"
	"sort"
	"time"
)

// ModelID identifies a forecast model. Keys are enumerated, never free-form
// strings coming from transport.
type ModelID string

const (
	ModelARIMA   ModelID = "arima"
	ModelProphet ModelID = "prophet"
	ModelML      ModelID = "ml"
)

// AllModels lists the configured model identifiers in stable order.
func AllModels() []ModelID {
	return []ModelID{ModelARIMA, ModelProphet, ModelML}
}

// ParseModelID maps a wire string onto a known model.
func ParseModelID(s string) (ModelID, error) {
	switch ModelID(s) {
	case ModelARIMA, ModelProphet, ModelML:
		return ModelID(s), nil
	}
	return "", fmt.Errorf("unknown model %q", s)
}

// ForecastSet is the dated prediction sequence of one model, with per-point
// confidence bounds. All slices have equal length and dates strictly increase.
type ForecastSet struct {
	Model     ModelID
	Dates     []time.Time
	Predicted []float64
	Lower     []float64
	Upper     []float64
}

// Validate checks the shape invariants of a provider response.
func (f *ForecastSet) Validate() error {
	n := len(f.Dates)
	if n == 0 {
		return fmt.Errorf("forecast %s: empty", f.Model)
	}
	if len(f.Predicted) != n || len(f.Lower) != n || len(f.Upper) != n {
		return fmt.Errorf("forecast %s: ragged arrays (dates=%d predicted=%d lower=%d upper=%d)",
			f.Model, n, len(f.Predicted), len(f.Lower), len(f.Upper))
	}
	for i := 1; i < n; i++ {
		if !f.Dates[i].After(f.Dates[i-1]) {
			return fmt.Errorf("forecast %s: dates not strictly increasing at index %d", f.Model, i)
		}
	}
	return nil
}

// PredictionMap holds the latest successful ForecastSet per model. A model
// that has not succeeded yet is simply absent. Merging is commutative: each
// result overwrites only its own key.
type PredictionMap map[ModelID]*ForecastSet

// Merge stores the set under its model key.
func (m PredictionMap) Merge(fs *ForecastSet) {
	if fs != nil {
		m[fs.Model] = fs
	}
}

// Models returns present keys in stable order.
func (m PredictionMap) Models() []ModelID {
	out := make([]ModelID, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
