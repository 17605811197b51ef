package model

import (
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultPipSize is used for symbols missing from the registry.
const DefaultPipSize = 0.0001

// Instrument holds the per-symbol metadata the engines need.
type Instrument struct {
	Symbol         string  `json:"symbol" yaml:"symbol"`
	PipSize        float64 `json:"pip_size" yaml:"pip_size"`
	PriceDecimals  int     `json:"price_decimals" yaml:"price_decimals"`
	ProviderSymbol string  `json:"provider_symbol,omitempty" yaml:"provider_symbol"` // e.g. EURUSD=X
}

// DefaultInstruments returns the built-in forex and metal symbols.
func DefaultInstruments() []Instrument {
	return []Instrument{
		{Symbol: "EURUSD", PipSize: 0.0001, PriceDecimals: 5, ProviderSymbol: "EURUSD=X"},
		{Symbol: "GBPUSD", PipSize: 0.0001, PriceDecimals: 5, ProviderSymbol: "GBPUSD=X"},
		{Symbol: "XAUUSD", PipSize: 0.01, PriceDecimals: 2, ProviderSymbol: "GC=F"},
	}
}

// Registry maps symbols to instrument metadata. It is immutable after
// construction and safe for concurrent use.
type Registry struct {
	instruments map[string]Instrument
}

// NewRegistry builds a registry. Later entries override earlier ones with
// the same symbol; zero PipSize/PriceDecimals fall back to defaults.
func NewRegistry(insts ...Instrument) *Registry {
	r := &Registry{instruments: make(map[string]Instrument, len(insts))}
	for _, in := range insts {
		in.Symbol = strings.ToUpper(strings.TrimSpace(in.Symbol))
		if in.Symbol == "" {
			continue
		}
		if in.PipSize <= 0 {
			in.PipSize = DefaultPipSize
		}
		if in.PriceDecimals <= 0 {
			in.PriceDecimals = decimalsFor(in.PipSize)
		}
		r.instruments[in.Symbol] = in
	}
	return r
}

// DefaultRegistry returns a registry of DefaultInstruments.
func DefaultRegistry() *Registry { return NewRegistry(DefaultInstruments()...) }

// Lookup returns the instrument for symbol.
func (r *Registry) Lookup(symbol string) (Instrument, bool) {
	in, ok := r.instruments[strings.ToUpper(symbol)]
	return in, ok
}

// Symbols returns the registered symbols, sorted.
func (r *Registry) Symbols() []string {
	out := make([]string, 0, len(r.instruments))
	for s := range r.instruments {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// PipSize returns the pip size for symbol, or DefaultPipSize when unknown.
func (r *Registry) PipSize(symbol string) float64 {
	if in, ok := r.Lookup(symbol); ok {
		return in.PipSize
	}
	return DefaultPipSize
}

// Pips converts a price distance into pips, rounded to 2 decimals.
// The sign of distance is kept.
func (r *Registry) Pips(symbol string, distance float64) float64 {
	pips := decimal.NewFromFloat(distance).Div(decimal.NewFromFloat(r.PipSize(symbol)))
	f, _ := pips.Round(2).Float64()
	return f
}

// PipsMoved returns the signed pip move from entry to exit for a position in
// direction dir: positive when the move is in the trade's favour.
func (r *Registry) PipsMoved(symbol string, entry, exit float64, dir Direction) float64 {
	return r.Pips(symbol, (exit-entry)*dir.Sign())
}

// FromPips converts pips into a price distance.
func (r *Registry) FromPips(symbol string, pips float64) float64 {
	return pips * r.PipSize(symbol)
}

// FormatPrice formats price with the symbol's decimals (5 when unknown).
func (r *Registry) FormatPrice(symbol string, price float64) string {
	decimals := 5
	if in, ok := r.Lookup(symbol); ok {
		decimals = in.PriceDecimals
	}
	return decimal.NewFromFloat(price).StringFixed(int32(decimals))
}

// decimalsFor derives display decimals from a pip size: one more than the
// pip's own decimal places (0.0001 -> 5), capped at 2 for pips >= 0.01.
func decimalsFor(pip float64) int {
	d := int(math.Round(-math.Log10(pip)))
	if d <= 2 {
		return 2
	}
	return d + 1
}
