package models

import (
	"fmt"
	"sort"
	"time"
)

// EquityPoint is one sample of the equity curve.
type EquityPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// PortfolioState owns every Position. All mutation goes through the position
// manager on the cycle task; everything else reads.
type PortfolioState struct {
	InitialBalance float64              `json:"initial_balance"`
	CashBalance    float64              `json:"cash_balance"`
	PeakBalance    float64              `json:"peak_balance"`
	OpenPositions  map[string]*Position `json:"open_positions"`
	ClosedTrades   []TradeRecord        `json:"closed_trades"`
	EquityCurve    []EquityPoint        `json:"equity_curve"`
	MaxDrawdown    float64              `json:"max_drawdown"`
	// DailyRealized tracks realized P&L keyed by YYYY-MM-DD for the daily
	// loss limit.
	DailyRealized map[string]float64 `json:"daily_realized"`
}

// NewPortfolioState creates a portfolio seeded with cash.
func NewPortfolioState(initialBalance float64) *PortfolioState {
	return &PortfolioState{
		InitialBalance: initialBalance,
		CashBalance:    initialBalance,
		PeakBalance:    initialBalance,
		OpenPositions:  make(map[string]*Position),
		DailyRealized:  make(map[string]float64),
	}
}

// Normalize repairs nil maps after JSON round-trips.
func (ps *PortfolioState) Normalize() {
	if ps.OpenPositions == nil {
		ps.OpenPositions = make(map[string]*Position)
	}
	if ps.DailyRealized == nil {
		ps.DailyRealized = make(map[string]float64)
	}
}

// UnrealizedPnL sums the open positions' marked P&L. Summation runs in entry
// order so replay equity curves are reproducible bit for bit.
func (ps *PortfolioState) UnrealizedPnL() float64 {
	open := make([]*Position, 0, len(ps.OpenPositions))
	for _, p := range ps.OpenPositions {
		open = append(open, p)
	}
	sort.Slice(open, func(i, j int) bool {
		return open[i].Entry.Timestamp.Before(open[j].Entry.Timestamp)
	})
	var total float64
	for _, p := range open {
		total += p.Current.PnL
	}
	return total
}

// Equity is cash plus unrealized P&L. Realized P&L is already in cash.
func (ps *PortfolioState) Equity() float64 {
	return ps.CashBalance + ps.UnrealizedPnL()
}

// RealizedPnL sums the closed trade log.
func (ps *PortfolioState) RealizedPnL() float64 {
	var total float64
	for _, t := range ps.ClosedTrades {
		total += t.RealizedPnL
	}
	return total
}

// DayRealized returns realized P&L for the calendar day of ts.
func (ps *PortfolioState) DayRealized(ts time.Time) float64 {
	return ps.DailyRealized[ts.UTC().Format("2006-01-02")]
}

// AddOpen registers a new position. The ID must be unused.
func (ps *PortfolioState) AddOpen(p *Position) error {
	if p == nil || p.ID == "" {
		return fmt.Errorf("position missing ID")
	}
	if _, exists := ps.OpenPositions[p.ID]; exists {
		return fmt.Errorf("position %s already open", p.ID)
	}
	ps.OpenPositions[p.ID] = p
	return nil
}

// SettleClose removes the position from the open set, credits cash with its
// realized P&L and appends the trade record.
func (ps *PortfolioState) SettleClose(p *Position, rec TradeRecord) error {
	if _, exists := ps.OpenPositions[p.ID]; !exists {
		return fmt.Errorf("position %s not open", p.ID)
	}
	delete(ps.OpenPositions, p.ID)
	ps.ClosedTrades = append(ps.ClosedTrades, rec)
	ps.CashBalance += rec.RealizedPnL
	day := rec.ExitTimestamp.UTC().Format("2006-01-02")
	ps.DailyRealized[day] += rec.RealizedPnL
	return nil
}

// MarkEquity appends an equity-curve sample and updates peak and drawdown.
func (ps *PortfolioState) MarkEquity(ts time.Time) {
	eq := ps.Equity()
	ps.EquityCurve = append(ps.EquityCurve, EquityPoint{Timestamp: ts, Value: eq})
	if eq > ps.PeakBalance {
		ps.PeakBalance = eq
	}
	if ps.PeakBalance > 0 {
		dd := (ps.PeakBalance - eq) / ps.PeakBalance
		if dd > ps.MaxDrawdown {
			ps.MaxDrawdown = dd
		}
	}
}
