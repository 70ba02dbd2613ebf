package models

// Instrument is a tradable symbol plus its display name.
// Identity is the symbol; instances are immutable once created.
type Instrument struct {
	Symbol      string `json:"symbol"`
	DisplayName string `json:"name"`
}

// IsZero reports whether no instrument has been selected yet.
func (i Instrument) IsZero() bool { return i.Symbol == "" }
