// Package costs simulates realistic executions: slippage against the quoted
// spread, per-contract commission and regulatory fees, and the resulting net
// credit or debit for multi-leg structures.
package costs

import (
	"fmt"
	"math"

	"github.com/eddiefleurent/stamford_condor/internal/models"
)

// MarketCondition scales slippage against the quoted spread.
type MarketCondition string

const (
	// Benign markets fill close to the quote.
	Benign MarketCondition = "benign"
	// Normal is the default fill assumption.
	Normal MarketCondition = "normal"
	// Stressed markets give up a quarter of the spread.
	Stressed MarketCondition = "stressed"
)

// slippageFraction is the share of the bid-ask spread given up per fill.
var slippageFraction = map[MarketCondition]float64{
	Benign:   0.05,
	Normal:   0.10,
	Stressed: 0.25,
}

// OrderSide is the direction of a simulated fill.
type OrderSide string

const (
	// Buy pays the ask plus slippage.
	Buy OrderSide = "buy"
	// Sell receives the bid minus slippage.
	Sell OrderSide = "sell"
)

// minExecutedPrice floors sell executions so fills never go non-positive.
const minExecutedPrice = 0.01

// Config holds the fee schedule and the entry-credit floor.
type Config struct {
	CommissionPerContract    float64
	RegulatoryFeePerContract float64 // charged on sells only
	MinNetCredit             float64 // per-spread floor after costs
}

// DefaultConfig is the standard retail fee schedule.
func DefaultConfig() Config {
	return Config{
		CommissionPerContract:    0.65,
		RegulatoryFeePerContract: 0.03,
		MinNetCredit:             0.05,
	}
}

// Engine simulates fills. Stateless apart from configuration.
type Engine struct {
	cfg Config
}

// NewEngine creates a cost engine.
func NewEngine(cfg Config) *Engine {
	if cfg.CommissionPerContract <= 0 {
		cfg.CommissionPerContract = 0.65
	}
	if cfg.MinNetCredit <= 0 {
		cfg.MinNetCredit = 0.05
	}
	return &Engine{cfg: cfg}
}

// MinNetCredit returns the configured per-spread entry credit floor.
func (e *Engine) MinNetCredit() float64 {
	return e.cfg.MinNetCredit
}

// SimulateFill models one leg execution against the quoted market.
func (e *Engine) SimulateFill(side OrderSide, c models.OptionContract, qty int, cond MarketCondition) models.Fill {
	frac, ok := slippageFraction[cond]
	if !ok {
		frac = slippageFraction[Normal]
	}
	mid := c.Mid()
	spread := c.Ask - c.Bid
	slip := frac * spread

	var requested, executed float64
	switch side {
	case Buy:
		requested = c.Ask
		executed = c.Ask + slip
	case Sell:
		requested = c.Bid
		executed = math.Max(minExecutedPrice, c.Bid-slip)
	}

	var slippageBps float64
	if mid > 0 {
		slippageBps = math.Abs(executed-mid) / mid * 10000
	}

	commission := e.cfg.CommissionPerContract * float64(qty)
	var regFees float64
	if side == Sell {
		regFees = e.cfg.RegulatoryFeePerContract * float64(qty)
	}

	return models.Fill{
		Symbol:         c.Symbol,
		Side:           string(side),
		Quantity:       qty,
		RequestedPrice: requested,
		ExecutedPrice:  executed,
		SlippageBps:    slippageBps,
		Commission:     commission,
		RegulatoryFees: regFees,
		Total:          commission + regFees,
	}
}

// SpreadCosts is the aggregate of a multi-leg execution.
type SpreadCosts struct {
	Fills       []models.Fill
	TotalCost   float64 // commissions + regulatory fees, dollars
	NetReceived float64 // sell credits minus buy debits minus costs, dollars
}

// OpenSpread simulates opening the spread: short legs sell, long legs buy.
func (e *Engine) OpenSpread(legs []models.SpreadLeg, qty int, cond MarketCondition) SpreadCosts {
	return e.fillLegs(legs, qty, cond, false)
}

// CloseSpread simulates closing: short legs buy back, long legs sell out.
func (e *Engine) CloseSpread(legs []models.SpreadLeg, qty int, cond MarketCondition) SpreadCosts {
	return e.fillLegs(legs, qty, cond, true)
}

func (e *Engine) fillLegs(legs []models.SpreadLeg, qty int, cond MarketCondition, closing bool) SpreadCosts {
	var out SpreadCosts
	for _, leg := range legs {
		side := Sell
		if (leg.Side == models.LegLong) != closing {
			side = Buy
		}
		fill := e.SimulateFill(side, leg.Contract, qty, cond)
		out.Fills = append(out.Fills, fill)
		out.TotalCost += fill.Total
		gross := fill.ExecutedPrice * float64(qty) * 100
		if side == Sell {
			out.NetReceived += gross
		} else {
			out.NetReceived -= gross
		}
	}
	out.NetReceived -= out.TotalCost
	return out
}

// RealizedCredit converts NetReceived to a per-spread, per-share credit.
func (sc SpreadCosts) RealizedCredit(qty int) float64 {
	if qty <= 0 {
		return 0
	}
	return sc.NetReceived / (float64(qty) * 100)
}

// CheckEntryCredit rejects spreads whose realistic entry credit falls below
// the configured floor.
func (e *Engine) CheckEntryCredit(sc SpreadCosts, qty int) error {
	credit := sc.RealizedCredit(qty)
	if credit < e.cfg.MinNetCredit {
		return fmt.Errorf("realistic entry credit %.2f below floor %.2f", credit, e.cfg.MinNetCredit)
	}
	return nil
}
