package ledger

import (
	"strconv"
	"time"
)

// BasisFallback selects the cost basis used for a sell trade whose position
// has since been removed (a fully-exited holding, or history imported without
// its position).
type BasisFallback string

const (
	// FallbackTradePrice uses the trade's own sale price as the basis,
	// yielding a zero gain for that trade. Matches the historical behavior
	// of the dashboard this service replaced.
	FallbackTradePrice BasisFallback = "trade-price"
	// FallbackSkip leaves such trades out of the estimate entirely.
	FallbackSkip BasisFallback = "skip"
)

// TaxReport is the result of a simplified capital-gains estimate. Negative
// bucket totals are reported as-is but contribute zero tax; losses do not
// offset tax owed in this model.
type TaxReport struct {
	ShortTermGains float64 `json:"shortTermGains"`
	LongTermGains  float64 `json:"longTermGains"`
	ShortTermTax   float64 `json:"shortTermTax"`
	LongTermTax    float64 `json:"longTermTax"`
	EstimatedTax   float64 `json:"estimatedTax"`
	Bracket        string  `json:"bracket"`
}

// ordinaryRates maps an income-bracket lower bound (as submitted by the
// bracket selector) to the marginal ordinary-income rate applied to
// short-term gains.
var ordinaryRates = map[string]float64{
	"0":      0.10,
	"10275":  0.12,
	"41775":  0.22,
	"89450":  0.24,
	"190750": 0.32,
}

const defaultOrdinaryRate = 0.32

// TaxEstimate classifies every sell trade as short-term (within 365 days of
// asOf) or long-term, computes the realized gain against the originating
// position's average cost, and applies the bracket-indexed rate tables.
func (l *Ledger) TaxEstimate(asOf time.Time, bracket string) TaxReport {
	report := TaxReport{Bracket: bracket}
	cutoff := asOf.AddDate(0, 0, -365)

	for _, t := range l.trades {
		if t.Direction != Sell {
			continue
		}
		basis, ok := l.sellBasis(t)
		if !ok {
			continue
		}
		gain := (t.Price - basis) * t.Quantity
		if t.Timestamp.After(cutoff) {
			report.ShortTermGains += gain
		} else {
			report.LongTermGains += gain
		}
	}

	shortRate := ordinaryRate(bracket)
	longRate := longTermRate(bracket)
	report.ShortTermTax = max(0, report.ShortTermGains*shortRate)
	report.LongTermTax = max(0, report.LongTermGains*longRate)
	report.EstimatedTax = report.ShortTermTax + report.LongTermTax
	return report
}

// sellBasis resolves the cost basis for a sell trade: the live position's
// average cost when it still exists, else the configured fallback.
func (l *Ledger) sellBasis(t *Trade) (float64, bool) {
	if pos := l.FindPosition(t.PositionID); pos != nil {
		return pos.AvgCost, true
	}
	switch l.basisFallback {
	case FallbackSkip:
		return 0, false
	default:
		return t.Price, true
	}
}

func ordinaryRate(bracket string) float64 {
	if rate, ok := ordinaryRates[bracket]; ok {
		return rate
	}
	return defaultOrdinaryRate
}

// longTermRate applies the three-tier 0%/15%/20% long-term capital-gains
// table keyed by the same bracket lower bound.
func longTermRate(bracket string) float64 {
	income, err := strconv.Atoi(bracket)
	if err != nil {
		return 0.20
	}
	switch {
	case income <= 41775:
		return 0.00
	case income <= 459750:
		return 0.15
	default:
		return 0.20
	}
}
