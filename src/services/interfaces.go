// backend/src/services/interfaces.go
package services

import (
	"context"
	"errors"
	"time"

	"github.com/username/folioboard/backend/src/ledger"
	"github.com/username/folioboard/backend/src/marketdata"
	"github.com/username/folioboard/backend/src/models"
)

// Define common service errors
var (
	ErrQuoteUnavailable = errors.New("no quote available")
)

// SnapshotStore persists the ledger state and the daily portfolio value
// history. Save replaces the stored snapshot wholesale; the ledger in memory
// stays authoritative, so a failed Save is logged and retried on the next
// mutation rather than failing the request.
type SnapshotStore interface {
	Load() (ledger.Snapshot, error)
	Save(snap ledger.Snapshot) error
	AppendHistory(date string, portfolioValue, totalInvested float64) error
	History(limit int) ([]models.PerformancePoint, error)
}

// PortfolioService is the surface the HTTP handlers talk to. All methods are
// safe for concurrent use; the implementation serializes ledger access.
type PortfolioService interface {
	Holdings(query, sortBy string) ([]models.HoldingView, error)
	AddAsset(req models.AddAssetRequest) (models.HoldingView, bool, error)
	ExecuteTrade(req models.TradeRequest) (models.TradeView, error)
	RemoveAsset(id int64) error
	Trades(symbol string) ([]models.TradeView, error)
	Metrics() (models.PortfolioMetrics, error)
	Allocation() ([]models.AllocationSlice, error)
	PerformanceHistory(limit int) ([]models.PerformancePoint, error)
	Quote(ctx context.Context, symbol string) (marketdata.Quote, error)
	TaxEstimate(asOf time.Time, bracket string) (models.TaxEstimateResponse, error)

	// RefreshPrices pulls quotes for every held symbol, injects them into the
	// ledger and appends a daily history point. Returns the number of
	// positions that received a fresh price.
	RefreshPrices(ctx context.Context) (int, error)

	Export() (models.ExportEnvelope, error)
	Import(env models.ExportEnvelope) error
}
