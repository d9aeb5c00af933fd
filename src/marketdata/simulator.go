package marketdata

import (
	"context"
	"math/rand"
	"sync"
)

// Simulator is a random-walk price source for running the dashboard without
// a market-data connection. Each refresh moves every known symbol by a
// uniform step in [-stepPct, +stepPct], floored at $0.01; the previous price
// becomes the quote's previous close.
type Simulator struct {
	mu      sync.Mutex
	prices  map[string]float64
	stepPct float64
	rng     *rand.Rand
}

// NewSimulator creates a simulator with the given maximum per-tick move
// (e.g. 0.05 for +/-5%).
func NewSimulator(stepPct float64, seed int64) *Simulator {
	return &Simulator{
		prices:  make(map[string]float64),
		stepPct: stepPct,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

// Seed registers the starting price for a symbol so the walk has somewhere
// to start. Called when a position is created or restored.
func (s *Simulator) Seed(symbol string, price float64) {
	if price <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, known := s.prices[symbol]; !known {
		s.prices[symbol] = price
	}
}

// Forget drops a symbol from the walk once nothing holds it.
func (s *Simulator) Forget(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.prices, symbol)
}

// Quotes advances the walk one tick for each requested symbol.
func (s *Simulator) Quotes(_ context.Context, symbols []string) (map[string]Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]Quote, len(symbols))
	for _, symbol := range symbols {
		prev, known := s.prices[symbol]
		if !known {
			continue
		}
		next := prev * (1 + (s.rng.Float64()*2-1)*s.stepPct)
		if next < 0.01 {
			next = 0.01
		}
		s.prices[symbol] = next
		out[symbol] = Quote{Symbol: symbol, Price: next, PreviousClose: prev}
	}
	return out, nil
}

// Nudge re-anchors a symbol's walk near the fill price, within the same step
// band. Mirrors the post-trade tick the dashboard used to fake.
func (s *Simulator) Nudge(symbol string, referencePrice float64) {
	if referencePrice <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next := referencePrice * (1 + (s.rng.Float64()*2-1)*s.stepPct)
	if next < 0.01 {
		next = 0.01
	}
	s.prices[symbol] = next
}
