// Package marketdata supplies quotes to the ledger. The ledger never fetches
// prices itself; a Source is polled by the service layer and the resulting
// quotes injected.
package marketdata

import "context"

// Quote is the latest known market state for one symbol.
type Quote struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"regularMarketPrice"`
	PreviousClose float64 `json:"previousClose"`
}

// Source produces quotes for a set of symbols. Implementations: a live HTTP
// client and a random-walk simulator.
type Source interface {
	// Quotes returns the best-effort quotes for the given symbols. Symbols
	// without an available quote are absent from the result; that is not an
	// error unless nothing could be fetched at all.
	Quotes(ctx context.Context, symbols []string) (map[string]Quote, error)

	// Nudge perturbs a symbol's price around a reference value after a fill,
	// emulating a market tick. Live sources treat this as a no-op.
	Nudge(symbol string, referencePrice float64)
}
