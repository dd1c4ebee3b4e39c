package broker

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/eddiefleurent/stamford_condor/internal/models"
)

// ReplayAdapter serves recorded bars and chain snapshots deterministically.
// The replay scheduler advances its cursor; queries never see data past it.
// It is the only permitted non-live data source and is rejected in live mode.
type ReplayAdapter struct {
	mu sync.RWMutex

	symbol  string
	bars    []models.Bar           // ascending by timestamp
	chains  []*models.OptionsChain // ascending by timestamp
	cursor  time.Time
	balance float64

	orderSeq int
}

// NewReplayAdapter builds a replay adapter over recorded data. Bars and
// chains are sorted defensively; inputs are not mutated.
func NewReplayAdapter(symbol string, bars []models.Bar, chains []*models.OptionsChain, balance float64) *ReplayAdapter {
	sortedBars := make([]models.Bar, len(bars))
	copy(sortedBars, bars)
	sort.Slice(sortedBars, func(i, j int) bool {
		return sortedBars[i].Timestamp.Before(sortedBars[j].Timestamp)
	})
	sortedChains := make([]*models.OptionsChain, len(chains))
	copy(sortedChains, chains)
	sort.Slice(sortedChains, func(i, j int) bool {
		return sortedChains[i].Timestamp.Before(sortedChains[j].Timestamp)
	})
	return &ReplayAdapter{
		symbol:  symbol,
		bars:    sortedBars,
		chains:  sortedChains,
		balance: balance,
	}
}

// Advance moves the replay cursor to ts.
func (r *ReplayAdapter) Advance(ts time.Time) {
	r.mu.Lock()
	r.cursor = ts
	r.mu.Unlock()
}

// AllBars exposes the recorded bar sequence for the replay scheduler.
func (r *ReplayAdapter) AllBars() []models.Bar {
	return r.bars
}

// GetBars returns recorded bars within [start, end] at or before the cursor.
func (r *ReplayAdapter) GetBars(_ context.Context, symbol string, start, end time.Time, _ Timeframe) ([]models.Bar, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if symbol != r.symbol {
		return nil, fmt.Errorf("replay adapter only serves %s", r.symbol)
	}
	var out []models.Bar
	for _, b := range r.bars {
		if b.Timestamp.After(r.cursor) || b.Timestamp.Before(start) || b.Timestamp.After(end) {
			continue
		}
		out = append(out, b)
	}
	if len(out) == 0 {
		return nil, ErrNoData
	}
	return out, nil
}

// GetOptionsChain returns the latest snapshot at or before the cursor.
func (r *ReplayAdapter) GetOptionsChain(_ context.Context, symbol string, _ time.Time) (*models.OptionsChain, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if symbol != r.symbol {
		return nil, fmt.Errorf("replay adapter only serves %s", r.symbol)
	}
	var latest *models.OptionsChain
	for _, ch := range r.chains {
		if ch.Timestamp.After(r.cursor) {
			break
		}
		latest = ch
	}
	if latest == nil {
		return nil, ErrNoData
	}
	return latest, nil
}

// GetCurrentPrice returns the close of the bar at or before the cursor.
func (r *ReplayAdapter) GetCurrentPrice(_ context.Context, symbol string) (float64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if symbol != r.symbol {
		return 0, fmt.Errorf("replay adapter only serves %s", r.symbol)
	}
	var price float64
	for _, b := range r.bars {
		if b.Timestamp.After(r.cursor) {
			break
		}
		price = b.Close
	}
	if price <= 0 {
		return 0, ErrNoData
	}
	return price, nil
}

// GetAccount returns a static snapshot; replay P&L lives in PortfolioState.
func (r *ReplayAdapter) GetAccount(_ context.Context) (*Account, error) {
	return &Account{
		PortfolioValue: r.balance,
		BuyingPower:    r.balance,
		Cash:           r.balance,
		Equity:         r.balance,
	}, nil
}

// SubmitSpreadOrder accepts instantly with a deterministic order ID.
func (r *ReplayAdapter) SubmitSpreadOrder(_ context.Context, _ *models.SpreadDescriptor, _ int) (*OrderResult, error) {
	return r.nextOrder(), nil
}

// ClosePosition accepts instantly with a deterministic order ID.
func (r *ReplayAdapter) ClosePosition(_ context.Context, _ *models.Position) (*OrderResult, error) {
	return r.nextOrder(), nil
}

func (r *ReplayAdapter) nextOrder() *OrderResult {
	r.mu.Lock()
	r.orderSeq++
	seq := r.orderSeq
	r.mu.Unlock()
	return &OrderResult{
		OrderIDs: []string{fmt.Sprintf("replay-%06d", seq)},
		Status:   "filled",
	}
}

// TestConnection always succeeds for recorded data.
func (r *ReplayAdapter) TestConnection(context.Context) bool {
	return true
}

var _ Adapter = (*ReplayAdapter)(nil)
