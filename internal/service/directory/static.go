package directory

import (
	"context"
	"fmt"

	"StockPulse/internal/domain/models"
	drepo "StockPulse/internal/domain/repository"
)

// Static is a config-driven instrument directory. The tradable universe is
// fixed at startup.
type Static struct {
	instruments []models.Instrument
}

// NewStatic builds a directory from configured symbol/name pairs.
func NewStatic(instruments []models.Instrument) (*Static, error) {
	if len(instruments) == 0 {
		return nil, fmt.Errorf("directory: no instruments configured")
	}
	seen := make(map[string]struct{}, len(instruments))
	for _, in := range instruments {
		if in.Symbol == "" {
			return nil, fmt.Errorf("directory: instrument with empty symbol")
		}
		if _, dup := seen[in.Symbol]; dup {
			return nil, fmt.Errorf("directory: duplicate symbol %s", in.Symbol)
		}
		seen[in.Symbol] = struct{}{}
	}
	cp := make([]models.Instrument, len(instruments))
	copy(cp, instruments)
	return &Static{instruments: cp}, nil
}

// ListAvailable returns the configured universe in config order.
func (s *Static) ListAvailable(ctx context.Context) ([]models.Instrument, error) {
	out := make([]models.Instrument, len(s.instruments))
	copy(out, s.instruments)
	return out, nil
}

// Lookup resolves a symbol to its instrument, if known.
func (s *Static) Lookup(symbol string) (models.Instrument, bool) {
	for _, in := range s.instruments {
		if in.Symbol == symbol {
			return in, true
		}
	}
	return models.Instrument{}, false
}

var _ drepo.InstrumentDirectory = (*Static)(nil)
