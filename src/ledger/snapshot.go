package ledger

import "fmt"

// Snapshot is the full persistable state of a ledger: the live positions and
// the trade history in insertion order. Export followed by Restore must
// reproduce the collections exactly.
type Snapshot struct {
	Positions []Position `json:"assets"`
	Trades    []Trade    `json:"trades"`
}

// Snapshot returns a deep copy of the ledger state.
func (l *Ledger) Snapshot() Snapshot {
	return Snapshot{
		Positions: l.Positions(),
		Trades:    l.Trades(),
	}
}

// Restore replaces the ledger's state wholesale with the snapshot's. This is
// the only path that replaces trade records. Positions must carry unique
// symbols and positive quantities; a rejected snapshot leaves the prior
// state untouched.
func (l *Ledger) Restore(s Snapshot) error {
	seen := make(map[string]bool, len(s.Positions))
	for _, p := range s.Positions {
		sym := NormalizeSymbol(p.Symbol)
		if sym == "" {
			return fmt.Errorf("%w: snapshot position %d has no symbol", ErrValidation, p.ID)
		}
		if seen[sym] {
			return fmt.Errorf("%w: duplicate symbol %s in snapshot", ErrValidation, sym)
		}
		seen[sym] = true
		if p.Quantity <= 0 {
			return fmt.Errorf("%w: snapshot position %s has non-positive quantity %g", ErrValidation, sym, p.Quantity)
		}
	}

	positions := make([]*Position, len(s.Positions))
	maxPositionID := int64(0)
	for i, p := range s.Positions {
		cp := p
		cp.Symbol = NormalizeSymbol(cp.Symbol)
		positions[i] = &cp
		if cp.ID > maxPositionID {
			maxPositionID = cp.ID
		}
	}
	trades := make([]*Trade, len(s.Trades))
	maxTradeID := int64(0)
	for i, t := range s.Trades {
		cp := t
		trades[i] = &cp
		if cp.ID > maxTradeID {
			maxTradeID = cp.ID
		}
	}

	l.positions = positions
	l.trades = trades
	l.nextPositionID = maxPositionID + 1
	l.nextTradeID = maxTradeID + 1
	return nil
}
