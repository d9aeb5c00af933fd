// backend/src/services/portfolio_service.go
package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/folioboard/backend/src/ledger"
	"github.com/username/folioboard/backend/src/logger"
	"github.com/username/folioboard/backend/src/marketdata"
	"github.com/username/folioboard/backend/src/models"
	"github.com/username/folioboard/backend/src/utils"
)

const (
	ckMetrics              = "agg_portfolio_metrics"
	ckAllocation           = "agg_allocation"
	ckTaxEstimate          = "rep_tax_estimate_%s_%s"
	DefaultCacheExpiration = 15 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute
)

// seeder is implemented by the simulated market-data source; a live source
// needs no seeding.
type seeder interface {
	Seed(symbol string, price float64)
	Forget(symbol string)
}

type portfolioServiceImpl struct {
	mu             sync.Mutex
	ledger         *ledger.Ledger
	store          SnapshotStore
	source         marketdata.Source
	reportCache    *cache.Cache
	nudgeAfterFill bool
	saveDisabled   bool
	now            func() time.Time
}

// NewPortfolioService loads the persisted snapshot into a fresh ledger and
// seeds the market-data source with the last known prices. A snapshot that
// cannot be loaded is not fatal: the service starts with an empty ledger and
// disables snapshot saving, so the unreadable data on disk is never
// overwritten by the empty state.
func NewPortfolioService(
	store SnapshotStore,
	source marketdata.Source,
	reportCache *cache.Cache,
	basisFallback ledger.BasisFallback,
	nudgeAfterFill bool,
) PortfolioService {
	l := ledger.New()
	l.SetBasisFallback(basisFallback)

	s := &portfolioServiceImpl{
		ledger:         l,
		store:          store,
		source:         source,
		reportCache:    reportCache,
		nudgeAfterFill: nudgeAfterFill,
		now:            time.Now,
	}

	snap, err := store.Load()
	if err == nil {
		err = l.Restore(snap)
	}
	if err != nil {
		logger.L.Warn("loading portfolio snapshot failed; continuing with an empty ledger. Durability is degraded: snapshot saving is disabled until restart", "error", err)
		s.saveDisabled = true
		return s
	}

	for _, p := range snap.Positions {
		s.seedSource(p.Symbol, p.CurrentPrice)
	}
	logger.L.Info("portfolio service initialized",
		"positions", len(snap.Positions), "trades", len(snap.Trades))
	return s
}

func (s *portfolioServiceImpl) seedSource(symbol string, price float64) {
	if sd, ok := s.source.(seeder); ok {
		sd.Seed(symbol, price)
	}
}

func (s *portfolioServiceImpl) forgetSource(symbol string) {
	if sd, ok := s.source.(seeder); ok {
		sd.Forget(symbol)
	}
}

// persist writes the current ledger state through to the store. A failed
// write is logged but never fails the request: the in-memory ledger is the
// source of truth and the next mutation retries the save. After a failed
// load the store still holds data the ledger never saw, so saving stays off.
func (s *portfolioServiceImpl) persist() {
	if s.saveDisabled {
		logger.L.Warn("snapshot saving disabled after failed load, change kept in memory only")
		return
	}
	if err := s.store.Save(s.ledger.Snapshot()); err != nil {
		logger.L.Warn("persisting portfolio snapshot failed, continuing with in-memory state", "error", err)
	}
}

func (s *portfolioServiceImpl) invalidateReports() {
	s.reportCache.Flush()
}

func (s *portfolioServiceImpl) Holdings(query, sortBy string) ([]models.HoldingView, error) {
	s.mu.Lock()
	summary := s.ledger.ValuationSummary()
	s.mu.Unlock()

	query = strings.ToLower(strings.TrimSpace(query))
	views := make([]models.HoldingView, 0, len(summary.Holdings))
	for _, h := range summary.Holdings {
		if query != "" &&
			!strings.Contains(strings.ToLower(h.Symbol), query) &&
			!strings.Contains(strings.ToLower(h.Name), query) {
			continue
		}
		views = append(views, toHoldingView(h))
	}
	sortHoldings(views, sortBy)
	return views, nil
}

func sortHoldings(views []models.HoldingView, sortBy string) {
	switch sortBy {
	case "value":
		sort.SliceStable(views, func(i, j int) bool { return views[i].MarketValue > views[j].MarketValue })
	case "performance":
		sort.SliceStable(views, func(i, j int) bool { return views[i].ProfitLossPercent > views[j].ProfitLossPercent })
	case "name":
		sort.SliceStable(views, func(i, j int) bool {
			return strings.ToLower(views[i].Name) < strings.ToLower(views[j].Name)
		})
	}
}

func (s *portfolioServiceImpl) AddAsset(req models.AddAssetRequest) (models.HoldingView, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, created, err := s.ledger.UpsertPosition(ledger.PositionInput{
		Symbol:       req.Symbol,
		Name:         req.Name,
		AssetType:    req.Type,
		Quantity:     req.Quantity,
		Price:        req.BuyPrice,
		PurchaseDate: req.BuyDate,
	})
	if err != nil {
		return models.HoldingView{}, false, err
	}

	s.seedSource(pos.Symbol, pos.CurrentPrice)
	if s.nudgeAfterFill {
		s.source.Nudge(pos.Symbol, req.BuyPrice)
	}
	s.persist()
	s.invalidateReports()
	logger.L.Info("asset recorded", "symbol", pos.Symbol, "quantity", pos.Quantity, "created", created)
	return s.viewForPosition(pos.ID), created, nil
}

func (s *portfolioServiceImpl) ExecuteTrade(req models.TradeRequest) (models.TradeView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	positionID := req.PositionID
	if positionID == 0 && req.Symbol != "" {
		pos := s.ledger.FindPositionBySymbol(req.Symbol)
		if pos == nil {
			return models.TradeView{}, fmt.Errorf("%w: symbol %s", ledger.ErrNotFound, ledger.NormalizeSymbol(req.Symbol))
		}
		positionID = pos.ID
	}

	trade, pos, err := s.ledger.ExecuteTrade(ledger.TradeInput{
		PositionID: positionID,
		Direction:  ledger.Direction(strings.ToLower(req.TradeType)),
		Quantity:   req.Quantity,
		Price:      req.Price,
		Notes:      req.Notes,
	})
	if err != nil {
		return models.TradeView{}, err
	}

	if pos == nil {
		// Sold to zero; nothing holds the symbol anymore.
		s.forgetSource(trade.Symbol)
	} else if s.nudgeAfterFill {
		s.source.Nudge(trade.Symbol, trade.Price)
	}
	s.persist()
	s.invalidateReports()
	logger.L.Info("trade executed",
		"symbol", trade.Symbol, "direction", trade.Direction, "quantity", trade.Quantity, "price", trade.Price)
	return s.toTradeView(*trade), nil
}

func (s *portfolioServiceImpl) RemoveAsset(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed, err := s.ledger.RemovePosition(id)
	if err != nil {
		return err
	}
	s.forgetSource(removed.Symbol)
	s.persist()
	s.invalidateReports()
	logger.L.Info("asset removed", "symbol", removed.Symbol, "id", id)
	return nil
}

// Trades returns the trade history newest first, optionally filtered to one
// symbol.
func (s *portfolioServiceImpl) Trades(symbol string) ([]models.TradeView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	symbol = ledger.NormalizeSymbol(symbol)
	all := s.ledger.Trades()
	views := make([]models.TradeView, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		if symbol != "" && all[i].Symbol != symbol {
			continue
		}
		views = append(views, s.toTradeView(all[i]))
	}
	return views, nil
}

func (s *portfolioServiceImpl) Metrics() (models.PortfolioMetrics, error) {
	if cached, found := s.reportCache.Get(ckMetrics); found {
		return cached.(models.PortfolioMetrics), nil
	}

	s.mu.Lock()
	summary := s.ledger.ValuationSummary()
	s.mu.Unlock()

	m := models.PortfolioMetrics{
		PortfolioValue: utils.RoundFloat(summary.TotalValue, 2),
		TotalInvested:  utils.RoundFloat(summary.TotalInvested, 2),
		ProfitLoss:     utils.RoundFloat(summary.TotalGainLoss, 2),
		DayChange:      utils.RoundFloat(summary.DayChange, 2),
		PositionCount:  summary.PositionCount,
		TradeCount:     summary.TradeCount,
	}
	s.reportCache.Set(ckMetrics, m, cache.DefaultExpiration)
	return m, nil
}

func (s *portfolioServiceImpl) Allocation() ([]models.AllocationSlice, error) {
	if cached, found := s.reportCache.Get(ckAllocation); found {
		return cached.([]models.AllocationSlice), nil
	}

	s.mu.Lock()
	positions := s.ledger.Positions()
	s.mu.Unlock()

	slices := make([]models.AllocationSlice, 0, len(positions))
	for _, p := range positions {
		slices = append(slices, models.AllocationSlice{
			Name:       p.Name,
			Symbol:     p.Symbol,
			Investment: utils.RoundFloat(p.TotalInvested, 2),
		})
	}
	s.reportCache.Set(ckAllocation, slices, cache.DefaultExpiration)
	return slices, nil
}

func (s *portfolioServiceImpl) PerformanceHistory(limit int) ([]models.PerformancePoint, error) {
	return s.store.History(limit)
}

func (s *portfolioServiceImpl) Quote(ctx context.Context, symbol string) (marketdata.Quote, error) {
	symbol = ledger.NormalizeSymbol(symbol)
	quotes, err := s.source.Quotes(ctx, []string{symbol})
	if err != nil {
		return marketdata.Quote{}, err
	}
	q, ok := quotes[symbol]
	if !ok {
		return marketdata.Quote{}, fmt.Errorf("%w: %s", ErrQuoteUnavailable, symbol)
	}
	return q, nil
}

func (s *portfolioServiceImpl) TaxEstimate(asOf time.Time, bracket string) (models.TaxEstimateResponse, error) {
	cacheKey := fmt.Sprintf(ckTaxEstimate, bracket, asOf.Format("2006-01-02"))
	if cached, found := s.reportCache.Get(cacheKey); found {
		return cached.(models.TaxEstimateResponse), nil
	}

	s.mu.Lock()
	report := s.ledger.TaxEstimate(asOf, bracket)
	s.mu.Unlock()

	resp := models.TaxEstimateResponse{
		AsOf:           asOf.Format("2006-01-02"),
		Bracket:        report.Bracket,
		ShortTermGains: utils.RoundFloat(report.ShortTermGains, 2),
		LongTermGains:  utils.RoundFloat(report.LongTermGains, 2),
		ShortTermTax:   utils.RoundFloat(report.ShortTermTax, 2),
		LongTermTax:    utils.RoundFloat(report.LongTermTax, 2),
		EstimatedTax:   utils.RoundFloat(report.EstimatedTax, 2),
	}
	s.reportCache.Set(cacheKey, resp, cache.DefaultExpiration)
	return resp, nil
}

func (s *portfolioServiceImpl) RefreshPrices(ctx context.Context) (int, error) {
	s.mu.Lock()
	positions := s.ledger.Positions()
	s.mu.Unlock()
	if len(positions) == 0 {
		return 0, nil
	}

	symbols := make([]string, len(positions))
	for i, p := range positions {
		symbols[i] = p.Symbol
	}

	// The fetch can block on the network; the ledger stays unlocked until
	// the quotes are in hand.
	quotes, err := s.source.Quotes(ctx, symbols)
	if err != nil {
		return 0, fmt.Errorf("fetching quotes: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	updated := 0
	for symbol, q := range quotes {
		if s.ledger.SetMarketPrice(symbol, q.Price, q.PreviousClose) {
			updated++
		}
	}
	summary := s.ledger.ValuationSummary()
	s.persist()
	if err := s.store.AppendHistory(s.now().Format("2006-01-02"), summary.TotalValue, summary.TotalInvested); err != nil {
		logger.L.Warn("appending portfolio history failed", "error", err)
	}
	s.invalidateReports()
	return updated, nil
}

func (s *portfolioServiceImpl) Export() (models.ExportEnvelope, error) {
	s.mu.Lock()
	snap := s.ledger.Snapshot()
	summary := s.ledger.ValuationSummary()
	s.mu.Unlock()

	return models.ExportEnvelope{
		Assets:        snap.Positions,
		Trades:        snap.Trades,
		ExportDate:    s.now().UTC().Format(time.RFC3339),
		TotalValue:    utils.RoundFloat(summary.TotalValue, 2),
		TotalInvested: utils.RoundFloat(summary.TotalInvested, 2),
	}, nil
}

func (s *portfolioServiceImpl) Import(env models.ExportEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ledger.Restore(ledger.Snapshot{Positions: env.Assets, Trades: env.Trades}); err != nil {
		return err
	}
	for _, p := range env.Assets {
		s.seedSource(ledger.NormalizeSymbol(p.Symbol), p.CurrentPrice)
	}
	s.persist()
	s.invalidateReports()
	logger.L.Info("portfolio imported", "positions", len(env.Assets), "trades", len(env.Trades))
	return nil
}

// viewForPosition is used right after a mutation, with the lock already held.
func (s *portfolioServiceImpl) viewForPosition(id int64) models.HoldingView {
	for _, h := range s.ledger.ValuationSummary().Holdings {
		if h.ID == id {
			return toHoldingView(h)
		}
	}
	return models.HoldingView{}
}

func (s *portfolioServiceImpl) toTradeView(t ledger.Trade) models.TradeView {
	name := ""
	if pos := s.ledger.FindPosition(t.PositionID); pos != nil {
		name = pos.Name
	}
	return models.TradeView{
		ID:       t.ID,
		Type:     string(t.Direction),
		Symbol:   t.Symbol,
		Name:     name,
		Qty:      t.Quantity,
		Price:    t.Price,
		Total:    utils.RoundFloat(t.Total, 2),
		Notes:    t.Notes,
		DateTime: t.Timestamp.UTC().Format(time.RFC3339),
	}
}

func toHoldingView(h ledger.HoldingValuation) models.HoldingView {
	return models.HoldingView{
		ID:                h.ID,
		Symbol:            h.Symbol,
		Name:              h.Name,
		AssetType:         h.AssetType,
		Quantity:          h.Quantity,
		AvgCost:           utils.RoundFloat(h.AvgCost, 4),
		TotalInvested:     utils.RoundFloat(h.TotalInvested, 2),
		CurrentPrice:      utils.RoundFloat(h.CurrentPrice, 4),
		PreviousClose:     utils.RoundFloat(h.PreviousClose, 4),
		MarketValue:       utils.RoundFloat(h.MarketValue, 2),
		DayChange:         utils.RoundFloat(h.DayChange, 2),
		DayChangePercent:  utils.RoundFloat(h.DayChangePercent, 2),
		ProfitLoss:        utils.RoundFloat(h.UnrealizedPnL, 2),
		ProfitLossPercent: utils.RoundFloat(h.UnrealizedPnLPercent, 2),
		PurchaseDate:      h.PurchaseDate,
		LastUpdated:       h.LastUpdated.UTC().Format(time.RFC3339),
	}
}
