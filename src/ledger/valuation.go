package ledger

// HoldingValuation is the per-position slice of a valuation summary.
type HoldingValuation struct {
	Position
	MarketValue          float64 `json:"marketValue"`
	UnrealizedPnL        float64 `json:"unrealizedPnL"`
	UnrealizedPnLPercent float64 `json:"unrealizedPnLPercent"`
	DayChange            float64 `json:"dayChange"`
	DayChangePercent     float64 `json:"dayChangePercent"`
}

// Summary aggregates the valuation of every live position.
type Summary struct {
	TotalValue    float64            `json:"totalValue"`
	TotalInvested float64            `json:"totalInvested"`
	TotalGainLoss float64            `json:"totalGainLoss"`
	DayChange     float64            `json:"dayChange"`
	PositionCount int                `json:"positionCount"`
	TradeCount    int                `json:"tradeCount"`
	Holdings      []HoldingValuation `json:"holdings"`
}

// ValuationSummary is a pure derived read over the live positions: market
// value, unrealized P&L and day change per holding, plus portfolio totals.
// An empty ledger yields a zero summary. Percentages are 0 when the divisor
// is 0.
func (l *Ledger) ValuationSummary() Summary {
	s := Summary{
		PositionCount: len(l.positions),
		TradeCount:    len(l.trades),
		Holdings:      make([]HoldingValuation, 0, len(l.positions)),
	}
	for _, p := range l.positions {
		h := HoldingValuation{Position: *p}
		h.MarketValue = p.Quantity * p.CurrentPrice
		h.UnrealizedPnL = h.MarketValue - p.TotalInvested
		if p.TotalInvested != 0 {
			h.UnrealizedPnLPercent = h.UnrealizedPnL / p.TotalInvested * 100
		}
		h.DayChange = (p.CurrentPrice - p.PreviousClose) * p.Quantity
		if p.PreviousClose != 0 {
			h.DayChangePercent = (p.CurrentPrice - p.PreviousClose) / p.PreviousClose * 100
		}

		s.TotalValue += h.MarketValue
		s.TotalInvested += p.TotalInvested
		s.DayChange += h.DayChange
		s.Holdings = append(s.Holdings, h)
	}
	s.TotalGainLoss = s.TotalValue - s.TotalInvested
	return s
}
