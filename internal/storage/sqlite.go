package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/eddiefleurent/stamford_condor/internal/models"
)

// SQLiteStorage persists the portfolio snapshot and trade log in sqlite.
// The snapshot is a single-row JSON document; trades are append-only rows.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens (or creates) the database and runs migrations.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating parent directory: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}
	s := &SQLiteStorage{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	return s, nil
}

func (s *SQLiteStorage) migrate() error {
	version := 0
	_ = s.db.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)

	if version < 1 {
		_, err := s.db.Exec(`
			CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL);
			CREATE TABLE IF NOT EXISTS portfolio (
				id INTEGER PRIMARY KEY CHECK (id = 1),
				updated_at TEXT NOT NULL,
				snapshot TEXT NOT NULL
			);
			CREATE TABLE IF NOT EXISTS trades (
				seq INTEGER PRIMARY KEY AUTOINCREMENT,
				position_id TEXT NOT NULL,
				symbol TEXT NOT NULL,
				exit_reason TEXT NOT NULL,
				exit_timestamp TEXT NOT NULL,
				realized_pnl REAL NOT NULL,
				record TEXT NOT NULL
			);
			INSERT INTO schema_version (version) VALUES (1);
		`)
		if err != nil {
			return err
		}
	}
	return nil
}

// SavePortfolio upserts the single snapshot row.
func (s *SQLiteStorage) SavePortfolio(ps *models.PortfolioState) error {
	blob, err := json.Marshal(ps)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO portfolio (id, updated_at, snapshot) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at, snapshot = excluded.snapshot
	`, time.Now().UTC().Format(time.RFC3339), string(blob))
	return err
}

// LoadPortfolio returns the persisted snapshot, or nil.
func (s *SQLiteStorage) LoadPortfolio() (*models.PortfolioState, error) {
	var blob string
	err := s.db.QueryRow("SELECT snapshot FROM portfolio WHERE id = 1").Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ps models.PortfolioState
	if err := json.Unmarshal([]byte(blob), &ps); err != nil {
		return nil, err
	}
	ps.Normalize()
	return &ps, nil
}

// AppendTrade inserts one trade row.
func (s *SQLiteStorage) AppendTrade(rec models.TradeRecord) error {
	blob, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO trades (position_id, symbol, exit_reason, exit_timestamp, realized_pnl, record)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.PositionID, rec.Symbol, string(rec.ExitReason),
		rec.ExitTimestamp.UTC().Format(time.RFC3339Nano), rec.RealizedPnL, string(blob))
	return err
}

// Trades returns the trade log in insertion order.
func (s *SQLiteStorage) Trades() ([]models.TradeRecord, error) {
	rows, err := s.db.Query("SELECT record FROM trades ORDER BY seq ASC")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.TradeRecord
	for rows.Next() {
		var blob string
		if err := rows.Scan(&blob); err != nil {
			return nil, err
		}
		var rec models.TradeRecord
		if err := json.Unmarshal([]byte(blob), &rec); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

var _ Interface = (*SQLiteStorage)(nil)
