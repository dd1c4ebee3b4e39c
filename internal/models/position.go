package models

import (
	"fmt"
	"time"
)

// PositionState is the lifecycle state of a position.
type PositionState string

const (
	// StateOpen means the position is live and monitored.
	StateOpen PositionState = "open"
	// StateClosing means a close has been decided but not yet completed.
	StateClosing PositionState = "closing"
	// StateClosed is terminal.
	StateClosed PositionState = "closed"
)

// ExitReason is the adjudicated cause of a position close.
type ExitReason string

const (
	// ExitNone means no exit rule fired.
	ExitNone ExitReason = "none"
	// ExitProfitTarget fires when unrealized P&L reaches the profit target.
	ExitProfitTarget ExitReason = "profit_target"
	// ExitStopLoss fires on max-loss or debit-multiple breach.
	ExitStopLoss ExitReason = "stop_loss"
	// ExitPriceBreach fires when the underlying crosses a short strike.
	ExitPriceBreach ExitReason = "price_breach"
	// ExitGreeks fires on delta expansion or per-position Greeks risk.
	ExitGreeks ExitReason = "greeks_exit"
	// ExitVolExpansion fires when chain IV expands past the entry multiple.
	ExitVolExpansion ExitReason = "vol_expansion"
	// ExitTimeLimit fires when the position exceeds its maximum holding days.
	ExitTimeLimit ExitReason = "time_limit"
	// ExitExpiration settles the position at expiration.
	ExitExpiration ExitReason = "expiration"
	// ExitEngineStopped closes positions during a close-at-mid shutdown.
	ExitEngineStopped ExitReason = "engine_stopped"
)

// StateTransition defines one legal edge of the position state machine.
type StateTransition struct {
	From      PositionState
	To        PositionState
	Condition string
}

// ValidTransitions enumerates the allowed position state transitions.
var ValidTransitions = []StateTransition{
	{StateOpen, StateClosing, "exit_signal"},
	{StateOpen, StateClosed, "close_filled"},
	{StateOpen, StateClosed, "settled"},
	{StateClosing, StateClosed, "close_filled"},
	{StateClosing, StateClosed, "settled"},
}

// transitionLookup gives O(1) legality checks: map[from][to][condition].
var transitionLookup map[PositionState]map[PositionState]map[string]bool

func init() {
	transitionLookup = make(map[PositionState]map[PositionState]map[string]bool)
	for _, t := range ValidTransitions {
		if transitionLookup[t.From] == nil {
			transitionLookup[t.From] = make(map[PositionState]map[string]bool)
		}
		if transitionLookup[t.From][t.To] == nil {
			transitionLookup[t.From][t.To] = make(map[string]bool)
		}
		transitionLookup[t.From][t.To][t.Condition] = true
	}
}

// EntryDetail is the immutable record of how a position was opened.
type EntryDetail struct {
	Timestamp  time.Time      `json:"timestamp"`
	Price      float64        `json:"price"` // realized net credit per spread
	Greeks     GreeksSnapshot `json:"greeks"`
	Fills      []Fill         `json:"fills"`
	TotalCosts float64        `json:"total_costs"`
	ChainIV    float64        `json:"chain_iv"`
}

// CurrentDetail is refreshed every monitoring cycle.
type CurrentDetail struct {
	Timestamp time.Time      `json:"timestamp"`
	Price     float64        `json:"price"` // closing debit per spread
	Greeks    GreeksSnapshot `json:"greeks"`
	PnL       float64        `json:"pnl"`
	MaxPnL    float64        `json:"max_pnl"`
	MinPnL    float64        `json:"min_pnl"`
}

// Position is a live spread position. Created and mutated only by the
// position manager; CLOSED positions are immutable.
type Position struct {
	ID           string           `json:"id"`
	Symbol       string           `json:"symbol"`
	Spread       SpreadDescriptor `json:"spread"`
	Quantity     int              `json:"quantity"`
	Entry        EntryDetail      `json:"entry"`
	Current      CurrentDetail    `json:"current"`
	MaxLoss      float64          `json:"max_loss"` // per spread, per share
	RiskScore    float64          `json:"risk_score"`
	State        PositionState    `json:"state"`
	ExitReason   ExitReason       `json:"exit_reason,omitempty"`
	CloseRetries int              `json:"close_retries,omitempty"`
}

// Transition moves the position to a new state if the edge is legal.
func (p *Position) Transition(to PositionState, condition string) error {
	if fromMap, ok := transitionLookup[p.State]; ok {
		if toMap, ok := fromMap[to]; ok && toMap[condition] {
			p.State = to
			return nil
		}
	}
	return fmt.Errorf("invalid position transition %s -> %s (%s)", p.State, to, condition)
}

// DaysHeld returns whole days between entry and now.
func (p *Position) DaysHeld(now time.Time) int {
	return int(now.Sub(p.Entry.Timestamp).Hours() / 24)
}

// EntryCreditTotal returns the dollars received at entry across contracts.
func (p *Position) EntryCreditTotal() float64 {
	return p.Entry.Price * float64(p.Quantity) * 100
}

// TradeRecord is the terminal snapshot appended to the trade log when a
// position closes.
type TradeRecord struct {
	PositionID    string           `json:"position_id"`
	Symbol        string           `json:"symbol"`
	Spread        SpreadDescriptor `json:"spread"`
	Quantity      int              `json:"quantity"`
	EntryTime     time.Time        `json:"entry_time"`
	EntryPrice    float64          `json:"entry_price"`
	ExitTimestamp time.Time        `json:"exit_timestamp"`
	ExitPrice     float64          `json:"exit_price"`
	ExitReason    ExitReason       `json:"exit_reason"`
	RealizedPnL   float64          `json:"realized_pnl"`
	PnLPct        float64          `json:"pnl_pct"`
}
