package models

import "github.com/username/folioboard/backend/src/ledger"

// TaxEstimateResponse is the body of GET /api/tax/estimate.
type TaxEstimateResponse struct {
	AsOf           string  `json:"asOf"`
	Bracket        string  `json:"bracket"`
	ShortTermGains float64 `json:"shortTermGains"`
	LongTermGains  float64 `json:"longTermGains"`
	ShortTermTax   float64 `json:"shortTermTax"`
	LongTermTax    float64 `json:"longTermTax"`
	EstimatedTax   float64 `json:"estimatedTax"`
}

// ExportEnvelope is the portfolio backup format. The field names match
// the file layout the dashboard has always produced, so old exports
// remain importable.
type ExportEnvelope struct {
	Assets        []ledger.Position `json:"assets"`
	Trades        []ledger.Trade    `json:"trades"`
	ExportDate    string            `json:"exportDate"`
	TotalValue    float64           `json:"totalValue"`
	TotalInvested float64           `json:"totalInvested"`
}
