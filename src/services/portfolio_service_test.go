// backend/src/services/portfolio_service_test.go
package services

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/folioboard/backend/src/ledger"
	"github.com/username/folioboard/backend/src/logger"
	"github.com/username/folioboard/backend/src/marketdata"
	"github.com/username/folioboard/backend/src/models"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

// memoryStore is a SnapshotStore for tests: it records saves and history
// appends without touching a database.
type memoryStore struct {
	mu       sync.Mutex
	snap     ledger.Snapshot
	saves    int
	failSave bool
	failLoad bool
	history  []models.PerformancePoint
}

func (s *memoryStore) Load() (ledger.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failLoad {
		return ledger.Snapshot{}, errors.New("database file unreadable")
	}
	return s.snap, nil
}

func (s *memoryStore) Save(snap ledger.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSave {
		return errors.New("disk full")
	}
	s.snap = snap
	s.saves++
	return nil
}

func (s *memoryStore) AppendHistory(date string, portfolioValue, totalInvested float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(s.history); n > 0 && s.history[n-1].Date == date {
		s.history[n-1] = models.PerformancePoint{Date: date, PortfolioValue: portfolioValue, TotalInvested: totalInvested}
		return nil
	}
	s.history = append(s.history, models.PerformancePoint{Date: date, PortfolioValue: portfolioValue, TotalInvested: totalInvested})
	return nil
}

func (s *memoryStore) History(limit int) ([]models.PerformancePoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.PerformancePoint, len(s.history))
	copy(out, s.history)
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func newTestService(t *testing.T, store *memoryStore) PortfolioService {
	t.Helper()
	if store == nil {
		store = &memoryStore{}
	}
	source := marketdata.NewSimulator(0.05, 1)
	reportCache := cache.New(time.Minute, time.Minute)
	return NewPortfolioService(store, source, reportCache, ledger.FallbackTradePrice, false)
}

func addAsset(t *testing.T, svc PortfolioService, symbol string, qty, price float64) models.HoldingView {
	t.Helper()
	view, _, err := svc.AddAsset(models.AddAssetRequest{
		Symbol: symbol, Name: symbol + " Inc", Quantity: qty, BuyPrice: price,
	})
	if err != nil {
		t.Fatalf("AddAsset(%s): %v", symbol, err)
	}
	return view
}

func TestAddAssetMergesAndPersists(t *testing.T) {
	store := &memoryStore{}
	svc := newTestService(t, store)

	first := addAsset(t, svc, "aapl", 10, 100)
	if first.Symbol != "AAPL" {
		t.Errorf("symbol not normalized: %q", first.Symbol)
	}

	second, created, err := svc.AddAsset(models.AddAssetRequest{
		Symbol: "AAPL", Name: "Apple", Quantity: 10, BuyPrice: 120,
	})
	if err != nil {
		t.Fatalf("second AddAsset: %v", err)
	}
	if created {
		t.Error("merge into existing position reported created=true")
	}
	if second.Quantity != 20 || second.AvgCost != 110 || second.TotalInvested != 2200 {
		t.Errorf("merged holding = qty %g avg %g invested %g, want 20/110/2200",
			second.Quantity, second.AvgCost, second.TotalInvested)
	}
	if store.saves != 2 {
		t.Errorf("saves = %d, want one per mutation (2)", store.saves)
	}
	if len(store.snap.Positions) != 1 {
		t.Errorf("persisted %d positions, want 1", len(store.snap.Positions))
	}
}

func TestPersistenceFailureDoesNotFailMutation(t *testing.T) {
	store := &memoryStore{failSave: true}
	svc := newTestService(t, store)

	addAsset(t, svc, "MSFT", 5, 300)

	holdings, err := svc.Holdings("", "")
	if err != nil {
		t.Fatalf("Holdings: %v", err)
	}
	if len(holdings) != 1 {
		t.Fatalf("in-memory state lost after failed save: %d holdings", len(holdings))
	}
}

func TestFailedLoadStartsEmptyAndDisablesSaving(t *testing.T) {
	store := &memoryStore{failLoad: true}
	svc := newTestService(t, store)

	holdings, err := svc.Holdings("", "")
	if err != nil {
		t.Fatalf("Holdings: %v", err)
	}
	if len(holdings) != 0 {
		t.Fatalf("service did not start empty after failed load: %d holdings", len(holdings))
	}

	addAsset(t, svc, "AAPL", 10, 100)
	holdings, _ = svc.Holdings("", "")
	if len(holdings) != 1 {
		t.Fatalf("mutation failed after degraded start: %d holdings", len(holdings))
	}
	if store.saves != 0 {
		t.Errorf("saves = %d after failed load; the unreadable snapshot must not be overwritten", store.saves)
	}
}

func TestFailedRestoreStartsEmptyAndDisablesSaving(t *testing.T) {
	store := &memoryStore{snap: ledger.Snapshot{
		Positions: []ledger.Position{{ID: 1, Symbol: "X", Quantity: -3}},
	}}
	svc := newTestService(t, store)

	holdings, _ := svc.Holdings("", "")
	if len(holdings) != 0 {
		t.Fatalf("invalid snapshot was restored: %d holdings", len(holdings))
	}

	addAsset(t, svc, "AAPL", 10, 100)
	if store.saves != 0 {
		t.Errorf("saves = %d; stored data the ledger never loaded must not be overwritten", store.saves)
	}
}

func TestExecuteTradeBySymbolAndFullExit(t *testing.T) {
	svc := newTestService(t, nil)
	addAsset(t, svc, "TSLA", 10, 200)

	trade, err := svc.ExecuteTrade(models.TradeRequest{
		Symbol: "tsla", TradeType: "sell", Quantity: 10, Price: 250,
	})
	if err != nil {
		t.Fatalf("ExecuteTrade: %v", err)
	}
	if trade.Total != 2500 {
		t.Errorf("trade total = %g, want 2500", trade.Total)
	}

	holdings, _ := svc.Holdings("", "")
	if len(holdings) != 0 {
		t.Errorf("position survived full exit: %d holdings", len(holdings))
	}
	trades, _ := svc.Trades("")
	if len(trades) != 1 {
		t.Errorf("trade history lost on full exit: %d trades", len(trades))
	}
}

func TestExecuteTradeUnknownSymbol(t *testing.T) {
	svc := newTestService(t, nil)
	_, err := svc.ExecuteTrade(models.TradeRequest{
		Symbol: "NOPE", TradeType: "buy", Quantity: 1, Price: 1,
	})
	if !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestTradesNewestFirstAndFiltered(t *testing.T) {
	svc := newTestService(t, nil)
	addAsset(t, svc, "AAPL", 10, 100)
	addAsset(t, svc, "MSFT", 5, 300)
	if _, err := svc.ExecuteTrade(models.TradeRequest{Symbol: "AAPL", TradeType: "buy", Quantity: 2, Price: 110}); err != nil {
		t.Fatalf("ExecuteTrade: %v", err)
	}

	trades, err := svc.Trades("")
	if err != nil {
		t.Fatalf("Trades: %v", err)
	}
	if len(trades) != 1 || trades[0].Symbol != "AAPL" {
		t.Fatalf("unexpected trade history: %+v", trades)
	}

	filtered, _ := svc.Trades("msft")
	if len(filtered) != 0 {
		t.Errorf("filter by symbol returned %d trades, want 0", len(filtered))
	}
}

func TestHoldingsSearchAndSort(t *testing.T) {
	svc := newTestService(t, nil)
	addAsset(t, svc, "AAPL", 10, 100)
	addAsset(t, svc, "MSFT", 1, 300)
	addAsset(t, svc, "GOOG", 2, 150)

	byName, err := svc.Holdings("", "name")
	if err != nil {
		t.Fatalf("Holdings: %v", err)
	}
	if byName[0].Symbol != "AAPL" || byName[2].Symbol != "MSFT" {
		t.Errorf("sort by name order: %s, %s, %s", byName[0].Symbol, byName[1].Symbol, byName[2].Symbol)
	}

	byValue, _ := svc.Holdings("", "value")
	if byValue[0].MarketValue < byValue[1].MarketValue || byValue[1].MarketValue < byValue[2].MarketValue {
		t.Error("sort by value is not descending")
	}

	matched, _ := svc.Holdings("goo", "")
	if len(matched) != 1 || matched[0].Symbol != "GOOG" {
		t.Errorf("search %q matched %+v", "goo", matched)
	}
}

func TestMetricsCachedAndInvalidated(t *testing.T) {
	svc := newTestService(t, nil)
	addAsset(t, svc, "AAPL", 10, 100)

	m1, err := svc.Metrics()
	if err != nil {
		t.Fatalf("Metrics: %v", err)
	}
	if m1.TotalInvested != 1000 || m1.PortfolioValue != 1000 {
		t.Errorf("metrics = %+v", m1)
	}

	addAsset(t, svc, "AAPL", 10, 120)
	m2, _ := svc.Metrics()
	if m2.TotalInvested != 2200 {
		t.Errorf("metrics served stale after mutation: invested %g, want 2200", m2.TotalInvested)
	}
}

func TestRefreshPricesUpdatesAndRecordsHistory(t *testing.T) {
	store := &memoryStore{}
	svc := newTestService(t, store)
	addAsset(t, svc, "AAPL", 10, 100)
	addAsset(t, svc, "MSFT", 5, 300)

	updated, err := svc.RefreshPrices(context.Background())
	if err != nil {
		t.Fatalf("RefreshPrices: %v", err)
	}
	if updated != 2 {
		t.Errorf("updated = %d, want 2", updated)
	}

	holdings, _ := svc.Holdings("", "")
	for _, h := range holdings {
		if h.CurrentPrice <= 0 {
			t.Errorf("%s price %g after refresh", h.Symbol, h.CurrentPrice)
		}
	}
	if len(store.history) != 1 {
		t.Fatalf("history points = %d, want 1", len(store.history))
	}
	if store.history[0].PortfolioValue <= 0 {
		t.Errorf("history value = %g", store.history[0].PortfolioValue)
	}
}

func TestRefreshPricesEmptyPortfolio(t *testing.T) {
	svc := newTestService(t, nil)
	updated, err := svc.RefreshPrices(context.Background())
	if err != nil || updated != 0 {
		t.Errorf("RefreshPrices on empty portfolio = (%d, %v), want (0, nil)", updated, err)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	svc := newTestService(t, nil)
	addAsset(t, svc, "AAPL", 10, 100)
	if _, err := svc.ExecuteTrade(models.TradeRequest{Symbol: "AAPL", TradeType: "sell", Quantity: 4, Price: 150}); err != nil {
		t.Fatalf("ExecuteTrade: %v", err)
	}

	env, err := svc.Export()
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if env.TotalInvested != 600 {
		t.Errorf("export totalInvested = %g, want 600", env.TotalInvested)
	}

	other := newTestService(t, &memoryStore{})
	if err := other.Import(env); err != nil {
		t.Fatalf("Import: %v", err)
	}
	holdings, _ := other.Holdings("", "")
	if len(holdings) != 1 || holdings[0].Quantity != 6 {
		t.Fatalf("imported holdings: %+v", holdings)
	}
	trades, _ := other.Trades("")
	if len(trades) != 2 {
		t.Errorf("imported %d trades, want 2", len(trades))
	}
}

func TestImportRejectsBadSnapshot(t *testing.T) {
	svc := newTestService(t, nil)
	addAsset(t, svc, "AAPL", 10, 100)

	err := svc.Import(models.ExportEnvelope{
		Assets: []ledger.Position{{ID: 1, Symbol: "X", Quantity: -3}},
	})
	if !errors.Is(err, ledger.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	holdings, _ := svc.Holdings("", "")
	if len(holdings) != 1 || holdings[0].Symbol != "AAPL" {
		t.Errorf("rejected import disturbed state: %+v", holdings)
	}
}

func TestQuoteForHeldAndUnknownSymbol(t *testing.T) {
	svc := newTestService(t, nil)
	addAsset(t, svc, "AAPL", 10, 100)

	q, err := svc.Quote(context.Background(), "aapl")
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if q.Price <= 0 {
		t.Errorf("quote price = %g", q.Price)
	}

	if _, err := svc.Quote(context.Background(), "ZZZZ"); !errors.Is(err, ErrQuoteUnavailable) {
		t.Errorf("err = %v, want ErrQuoteUnavailable", err)
	}
}

func TestTaxEstimateThroughService(t *testing.T) {
	svc := newTestService(t, nil)
	addAsset(t, svc, "AAPL", 10, 100)
	if _, err := svc.ExecuteTrade(models.TradeRequest{Symbol: "AAPL", TradeType: "sell", Quantity: 5, Price: 150}); err != nil {
		t.Fatalf("ExecuteTrade: %v", err)
	}

	resp, err := svc.TaxEstimate(time.Now(), "41775")
	if err != nil {
		t.Fatalf("TaxEstimate: %v", err)
	}
	if resp.ShortTermGains != 250 {
		t.Errorf("shortTermGains = %g, want 250", resp.ShortTermGains)
	}
	if resp.ShortTermTax != 55 {
		t.Errorf("shortTermTax = %g, want 55 (22%% of 250)", resp.ShortTermTax)
	}
	if resp.EstimatedTax != resp.ShortTermTax+resp.LongTermTax {
		t.Errorf("estimatedTax %g != %g + %g", resp.EstimatedTax, resp.ShortTermTax, resp.LongTermTax)
	}
}

func TestSchedulerRefreshesUntilCancelled(t *testing.T) {
	store := &memoryStore{}
	svc := newTestService(t, store)
	addAsset(t, svc, "AAPL", 10, 100)

	sched := NewScheduler(svc, 2*time.Millisecond, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sched.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run returned %v, want context.Canceled", err)
	}

	points, _ := store.History(0)
	if len(points) == 0 {
		t.Error("scheduler recorded no history points")
	}
}
