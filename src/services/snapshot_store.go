// backend/src/services/snapshot_store.go
package services

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/username/folioboard/backend/src/ledger"
	"github.com/username/folioboard/backend/src/models"
)

// sqliteSnapshotStore persists the ledger in three tables: positions, trades
// and portfolio_history. Save replaces positions and trades wholesale inside
// a transaction; the tables mirror the in-memory collections rather than
// being an event log of their own.
type sqliteSnapshotStore struct {
	db *sql.DB
}

// NewSnapshotStore wraps an open database handle. Migrations must already
// have run.
func NewSnapshotStore(db *sql.DB) SnapshotStore {
	return &sqliteSnapshotStore{db: db}
}

func (s *sqliteSnapshotStore) Load() (ledger.Snapshot, error) {
	var snap ledger.Snapshot

	rows, err := s.db.Query(`
		SELECT id, symbol, name, asset_type, quantity, avg_cost, total_invested,
		       current_price, previous_close, purchase_date, last_updated
		FROM positions ORDER BY id`)
	if err != nil {
		return snap, fmt.Errorf("querying positions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p ledger.Position
		var lastUpdated string
		if err := rows.Scan(&p.ID, &p.Symbol, &p.Name, &p.AssetType, &p.Quantity,
			&p.AvgCost, &p.TotalInvested, &p.CurrentPrice, &p.PreviousClose,
			&p.PurchaseDate, &lastUpdated); err != nil {
			return snap, fmt.Errorf("scanning position: %w", err)
		}
		if p.LastUpdated, err = time.Parse(time.RFC3339Nano, lastUpdated); err != nil {
			return snap, fmt.Errorf("position %s has corrupt last_updated %q: %w", p.Symbol, lastUpdated, err)
		}
		snap.Positions = append(snap.Positions, p)
	}
	if err := rows.Err(); err != nil {
		return snap, fmt.Errorf("iterating positions: %w", err)
	}

	tradeRows, err := s.db.Query(`
		SELECT id, position_id, symbol, direction, quantity, price, total, notes, timestamp
		FROM trades ORDER BY seq`)
	if err != nil {
		return snap, fmt.Errorf("querying trades: %w", err)
	}
	defer tradeRows.Close()
	for tradeRows.Next() {
		var t ledger.Trade
		var timestamp string
		if err := tradeRows.Scan(&t.ID, &t.PositionID, &t.Symbol, &t.Direction,
			&t.Quantity, &t.Price, &t.Total, &t.Notes, &timestamp); err != nil {
			return snap, fmt.Errorf("scanning trade: %w", err)
		}
		if t.Timestamp, err = time.Parse(time.RFC3339Nano, timestamp); err != nil {
			return snap, fmt.Errorf("trade %d has corrupt timestamp %q: %w", t.ID, timestamp, err)
		}
		snap.Trades = append(snap.Trades, t)
	}
	if err := tradeRows.Err(); err != nil {
		return snap, fmt.Errorf("iterating trades: %w", err)
	}
	return snap, nil
}

func (s *sqliteSnapshotStore) Save(snap ledger.Snapshot) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning snapshot save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM positions`); err != nil {
		return fmt.Errorf("clearing positions: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM trades`); err != nil {
		return fmt.Errorf("clearing trades: %w", err)
	}

	for _, p := range snap.Positions {
		if _, err := tx.Exec(`
			INSERT INTO positions (id, symbol, name, asset_type, quantity, avg_cost,
				total_invested, current_price, previous_close, purchase_date, last_updated)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.Symbol, p.Name, p.AssetType, p.Quantity, p.AvgCost,
			p.TotalInvested, p.CurrentPrice, p.PreviousClose, p.PurchaseDate,
			p.LastUpdated.UTC().Format(time.RFC3339Nano)); err != nil {
			return fmt.Errorf("inserting position %s: %w", p.Symbol, err)
		}
	}
	for seq, t := range snap.Trades {
		if _, err := tx.Exec(`
			INSERT INTO trades (id, position_id, symbol, direction, quantity, price,
				total, notes, timestamp, seq)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.PositionID, t.Symbol, string(t.Direction), t.Quantity, t.Price,
			t.Total, t.Notes, t.Timestamp.UTC().Format(time.RFC3339Nano), seq); err != nil {
			return fmt.Errorf("inserting trade %d: %w", t.ID, err)
		}
	}
	return tx.Commit()
}

// AppendHistory upserts the day's portfolio value, so repeated refreshes
// within one day keep a single point.
func (s *sqliteSnapshotStore) AppendHistory(date string, portfolioValue, totalInvested float64) error {
	_, err := s.db.Exec(`
		INSERT INTO portfolio_history (date, portfolio_value, total_invested)
		VALUES (?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			portfolio_value = excluded.portfolio_value,
			total_invested = excluded.total_invested`,
		date, portfolioValue, totalInvested)
	if err != nil {
		return fmt.Errorf("upserting history point: %w", err)
	}
	return nil
}

// History returns up to limit daily points, oldest first. A limit of 0 means
// no limit.
func (s *sqliteSnapshotStore) History(limit int) ([]models.PerformancePoint, error) {
	if limit <= 0 {
		limit = -1 // SQLite treats a negative LIMIT as unbounded
	}
	rows, err := s.db.Query(`
		SELECT date, portfolio_value, total_invested FROM (
			SELECT date, portfolio_value, total_invested
			FROM portfolio_history ORDER BY date DESC LIMIT ?
		) ORDER BY date ASC`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var points []models.PerformancePoint
	for rows.Next() {
		var p models.PerformancePoint
		if err := rows.Scan(&p.Date, &p.PortfolioValue, &p.TotalInvested); err != nil {
			return nil, fmt.Errorf("scanning history point: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}
