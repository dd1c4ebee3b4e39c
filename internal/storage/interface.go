// Package storage persists portfolio snapshots and the append-only trade
// log. Two backends: a JSON snapshot file and sqlite.
package storage

import (
	"fmt"

	"github.com/eddiefleurent/stamford_condor/internal/models"
)

// Interface is the persistence contract the engine uses.
type Interface interface {
	// SavePortfolio atomically persists the full portfolio snapshot.
	SavePortfolio(ps *models.PortfolioState) error
	// LoadPortfolio returns the persisted snapshot, or nil when none exists.
	LoadPortfolio() (*models.PortfolioState, error)
	// AppendTrade records a closed trade in the append-only log.
	AppendTrade(rec models.TradeRecord) error
	// Trades returns the trade log, oldest first.
	Trades() ([]models.TradeRecord, error)
	// Close releases backend resources.
	Close() error
}

// Config selects and parameterizes the backend.
type Config struct {
	Driver     string // json | sqlite
	Path       string // JSON snapshot path
	SQLitePath string // sqlite database path
}

// New creates the configured storage backend.
func New(cfg Config) (Interface, error) {
	switch cfg.Driver {
	case "", "json":
		return NewJSONStorage(cfg.Path)
	case "sqlite":
		return NewSQLiteStorage(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
