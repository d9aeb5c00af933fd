package ledger

import "time"

// Direction of an executed trade.
type Direction string

const (
	Buy  Direction = "buy"
	Sell Direction = "sell"
)

// Position is the accumulated state of one holding. A position exists only
// while its quantity is greater than zero; totalInvested always equals
// avgCost * quantity after every ledger operation.
type Position struct {
	ID            int64     `json:"id"`
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name"`
	AssetType     string    `json:"type"`
	Quantity      float64   `json:"quantity"`
	AvgCost       float64   `json:"avgCost"`
	TotalInvested float64   `json:"totalInvested"`
	CurrentPrice  float64   `json:"currentPrice"`
	PreviousClose float64   `json:"previousClose"`
	PurchaseDate  string    `json:"purchaseDate"`
	LastUpdated   time.Time `json:"lastUpdated"`
}

// Trade is one executed buy or sell event. Records are append-only; they are
// never mutated after creation and only replaced wholesale by an import.
// PositionID is a weak reference: the position may be removed later while its
// historical trades remain, which is why Symbol is denormalized here.
type Trade struct {
	ID         int64     `json:"id"`
	PositionID int64     `json:"positionId"`
	Symbol     string    `json:"symbol"`
	Direction  Direction `json:"direction"`
	Quantity   float64   `json:"quantity"`
	Price      float64   `json:"price"`
	Total      float64   `json:"total"`
	Notes      string    `json:"notes,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// PositionInput is the validated form input for creating or topping up a holding.
type PositionInput struct {
	Symbol       string
	Name         string
	AssetType    string
	Quantity     float64
	Price        float64
	PurchaseDate string
}

// TradeInput is the validated form input for executing a trade against an
// existing position.
type TradeInput struct {
	PositionID int64
	Direction  Direction
	Quantity   float64
	Price      float64
	Notes      string
}
