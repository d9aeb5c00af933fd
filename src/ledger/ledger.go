// Package ledger implements the portfolio ledger: an in-memory collection of
// asset positions and their trade history, with weighted-average cost basis
// maintained across buys and partial sells. The ledger performs no I/O; the
// caller owns the instance, injects market prices, and serializes access.
package ledger

import (
	"fmt"
	"strings"
	"time"
)

// Ledger owns the position and trade collections. Positions are keyed by
// symbol (one live position per symbol); trades keep insertion order for
// history display. Operations run to completion atomically: a rejected
// operation never leaves a partially-updated collection behind.
type Ledger struct {
	positions []*Position
	trades    []*Trade

	nextPositionID int64
	nextTradeID    int64

	basisFallback BasisFallback

	now func() time.Time
}

// New returns an empty ledger using the wall clock.
func New() *Ledger {
	return NewWithClock(time.Now)
}

// NewWithClock returns an empty ledger with an injected clock, used by tests
// to pin trade timestamps.
func NewWithClock(now func() time.Time) *Ledger {
	return &Ledger{
		nextPositionID: 1,
		nextTradeID:    1,
		basisFallback:  FallbackTradePrice,
		now:            now,
	}
}

// SetBasisFallback selects the cost-basis policy applied by TaxEstimate for
// sell trades whose originating position no longer exists.
func (l *Ledger) SetBasisFallback(f BasisFallback) {
	l.basisFallback = f
}

// NormalizeSymbol uppercases and trims a ticker symbol; symbols are compared
// in this normalized form everywhere.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// FindPosition returns the live position with the given id, or nil.
func (l *Ledger) FindPosition(id int64) *Position {
	for _, p := range l.positions {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// FindPositionBySymbol returns the live position for a normalized symbol, or nil.
func (l *Ledger) FindPositionBySymbol(symbol string) *Position {
	symbol = NormalizeSymbol(symbol)
	for _, p := range l.positions {
		if p.Symbol == symbol {
			return p
		}
	}
	return nil
}

// Positions returns a copy of the live positions.
func (l *Ledger) Positions() []Position {
	out := make([]Position, len(l.positions))
	for i, p := range l.positions {
		out[i] = *p
	}
	return out
}

// Trades returns a copy of the trade history in insertion order.
func (l *Ledger) Trades() []Trade {
	out := make([]Trade, len(l.trades))
	for i, t := range l.trades {
		out[i] = *t
	}
	return out
}

// TradesForPosition returns the recorded trades referencing a position id,
// in insertion order.
func (l *Ledger) TradesForPosition(positionID int64) []Trade {
	var out []Trade
	for _, t := range l.trades {
		if t.PositionID == positionID {
			out = append(out, *t)
		}
	}
	return out
}

// UpsertPosition records a purchase. If a live position with the same symbol
// exists the purchase is merged into it at the weighted-average cost,
// otherwise a new position is created. The returned flag reports whether a
// new position was created, for user messaging.
func (l *Ledger) UpsertPosition(in PositionInput) (*Position, bool, error) {
	in.Symbol = NormalizeSymbol(in.Symbol)
	in.Name = strings.TrimSpace(in.Name)
	if err := validatePurchase(in); err != nil {
		return nil, false, err
	}

	now := l.now()
	if existing := l.FindPositionBySymbol(in.Symbol); existing != nil {
		mergeBuy(existing, in.Quantity, in.Price, now)
		return existing, false, nil
	}

	p := &Position{
		ID:            l.nextPositionID,
		Symbol:        in.Symbol,
		Name:          in.Name,
		AssetType:     in.AssetType,
		Quantity:      in.Quantity,
		AvgCost:       in.Price,
		TotalInvested: in.Quantity * in.Price,
		CurrentPrice:  in.Price,
		PreviousClose: in.Price,
		PurchaseDate:  in.PurchaseDate,
		LastUpdated:   now,
	}
	if p.AssetType == "" {
		p.AssetType = "stock"
	}
	l.nextPositionID++
	l.positions = append(l.positions, p)
	return p, true, nil
}

// RemovePosition deletes a position by id and cascades deletion of every
// trade record referencing it. The removed position is returned for
// confirmation messaging.
func (l *Ledger) RemovePosition(id int64) (*Position, error) {
	idx := -1
	for i, p := range l.positions {
		if p.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}

	removed := l.positions[idx]
	l.positions = append(l.positions[:idx], l.positions[idx+1:]...)

	kept := l.trades[:0]
	for _, t := range l.trades {
		if t.PositionID != id {
			kept = append(kept, t)
		}
	}
	l.trades = kept
	return removed, nil
}

// ExecuteTrade applies a buy or sell against an existing position and appends
// a trade record. A buy merges at the weighted-average cost; a sell removes
// cost basis at the position's average cost, so the realized gain
// (price - avgCost) * quantity is left for the tax step to derive. A sell
// that would exceed the held quantity is rejected outright. A sell that
// exhausts the position removes it, but its trade history is kept for
// reporting.
func (l *Ledger) ExecuteTrade(in TradeInput) (*Trade, *Position, error) {
	if err := validateTrade(in); err != nil {
		return nil, nil, err
	}
	pos := l.FindPosition(in.PositionID)
	if pos == nil {
		return nil, nil, fmt.Errorf("%w: id %d", ErrNotFound, in.PositionID)
	}
	if in.Direction == Sell && in.Quantity > pos.Quantity {
		return nil, nil, fmt.Errorf("%w: have %g, tried to sell %g %s",
			ErrInsufficientQuantity, pos.Quantity, in.Quantity, pos.Symbol)
	}

	now := l.now()
	trade := &Trade{
		ID:         l.nextTradeID,
		PositionID: pos.ID,
		Symbol:     pos.Symbol,
		Direction:  in.Direction,
		Quantity:   in.Quantity,
		Price:      in.Price,
		Total:      in.Quantity * in.Price,
		Notes:      in.Notes,
		Timestamp:  now,
	}
	l.nextTradeID++
	l.trades = append(l.trades, trade)

	if in.Direction == Buy {
		mergeBuy(pos, in.Quantity, in.Price, now)
		return trade, pos, nil
	}

	pos.Quantity -= in.Quantity
	if pos.Quantity == 0 {
		// Full exit: the position goes away, the trade history stays.
		for i, p := range l.positions {
			if p.ID == pos.ID {
				l.positions = append(l.positions[:i], l.positions[i+1:]...)
				break
			}
		}
		return trade, nil, nil
	}
	pos.TotalInvested = pos.AvgCost * pos.Quantity
	pos.LastUpdated = now
	return trade, pos, nil
}

// SetMarketPrice injects an externally-supplied quote for a symbol. Returns
// false when no live position holds that symbol.
func (l *Ledger) SetMarketPrice(symbol string, price, previousClose float64) bool {
	pos := l.FindPositionBySymbol(symbol)
	if pos == nil {
		return false
	}
	if price > 0 {
		pos.CurrentPrice = price
	}
	if previousClose > 0 {
		pos.PreviousClose = previousClose
	}
	pos.LastUpdated = l.now()
	return true
}

func mergeBuy(p *Position, quantity, price float64, now time.Time) {
	p.TotalInvested += quantity * price
	p.Quantity += quantity
	p.AvgCost = p.TotalInvested / p.Quantity
	p.LastUpdated = now
}

func validatePurchase(in PositionInput) error {
	if in.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", ErrValidation)
	}
	if in.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if in.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive, got %g", ErrValidation, in.Quantity)
	}
	if in.Price <= 0 {
		return fmt.Errorf("%w: price must be positive, got %g", ErrValidation, in.Price)
	}
	return nil
}

func validateTrade(in TradeInput) error {
	if in.Direction != Buy && in.Direction != Sell {
		return fmt.Errorf("%w: direction must be %q or %q", ErrValidation, Buy, Sell)
	}
	if in.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive, got %g", ErrValidation, in.Quantity)
	}
	if in.Price <= 0 {
		return fmt.Errorf("%w: price must be positive, got %g", ErrValidation, in.Price)
	}
	return nil
}
