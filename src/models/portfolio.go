package models

// HoldingView is one row of the holdings table: a live position enriched
// with its latest quote and derived performance numbers.
type HoldingView struct {
	ID                int64   `json:"id"`
	Symbol            string  `json:"symbol"`
	Name              string  `json:"name"`
	AssetType         string  `json:"type"`
	Quantity          float64 `json:"quantity"`
	AvgCost           float64 `json:"avgCost"`
	TotalInvested     float64 `json:"totalInvested"`
	CurrentPrice      float64 `json:"currentPrice"`
	PreviousClose     float64 `json:"previousClose"`
	MarketValue       float64 `json:"marketValue"`
	DayChange         float64 `json:"dayChange"`
	DayChangePercent  float64 `json:"dayChangePercent"`
	ProfitLoss        float64 `json:"profitLoss"`
	ProfitLossPercent float64 `json:"profitLossPercent"`
	PurchaseDate      string  `json:"purchaseDate,omitempty"`
	LastUpdated       string  `json:"lastUpdated"`
}

// PortfolioMetrics is the aggregate card data the dashboard polls.
type PortfolioMetrics struct {
	PortfolioValue float64 `json:"portfolioValue"`
	TotalInvested  float64 `json:"totalInvested"`
	ProfitLoss     float64 `json:"profitLoss"`
	DayChange      float64 `json:"dayChange"`
	PositionCount  int     `json:"positionCount"`
	TradeCount     int     `json:"tradeCount"`
}

// AllocationSlice feeds the investments pie chart: invested capital per asset.
type AllocationSlice struct {
	Name       string  `json:"name"`
	Symbol     string  `json:"symbol"`
	Investment float64 `json:"investment"`
}

// TradeView is one row of the trade history table.
type TradeView struct {
	ID       int64   `json:"id"`
	Type     string  `json:"type"`
	Symbol   string  `json:"symbol"`
	Name     string  `json:"name,omitempty"`
	Qty      float64 `json:"qty"`
	Price    float64 `json:"price"`
	Total    float64 `json:"total"`
	Notes    string  `json:"notes,omitempty"`
	DateTime string  `json:"datetime"`
}

// PerformancePoint is one point of the portfolio value line chart.
type PerformancePoint struct {
	Date           string  `json:"date"`
	PortfolioValue float64 `json:"portfolio_value"`
	TotalInvested  float64 `json:"total_invested"`
}

// AddAssetRequest is the body of POST /api/addasset.
type AddAssetRequest struct {
	Symbol   string  `json:"symbol"`
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Quantity float64 `json:"quantity"`
	BuyPrice float64 `json:"buyPrice"`
	BuyDate  string  `json:"buyDate"`
}

// TradeRequest is the body of POST /api/addtrade. Either PositionID or
// Symbol identifies the position being traded.
type TradeRequest struct {
	PositionID int64   `json:"positionId,omitempty"`
	Symbol     string  `json:"symbol,omitempty"`
	TradeType  string  `json:"tradeType"`
	Quantity   float64 `json:"quantity"`
	Price      float64 `json:"price"`
	Notes      string  `json:"notes,omitempty"`
}
