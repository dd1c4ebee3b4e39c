// Package strategy selects among the supported option structures: it runs the
// admission gates (regime confidence, volatility, liquidity), maps the regime
// to a strategy variant, and delegates to the spread builders.
package strategy

import (
	"time"

	"github.com/eddiefleurent/stamford_condor/internal/indicators"
	"github.com/eddiefleurent/stamford_condor/internal/models"
	"github.com/eddiefleurent/stamford_condor/internal/regime"
)

// Action is the selected strategy variant, or NoTrade.
type Action string

const (
	// ActionBullPut opens a put credit spread.
	ActionBullPut Action = "bull_put"
	// ActionBearCall opens a call credit spread.
	ActionBearCall Action = "bear_call"
	// ActionIronCondor opens an iron condor.
	ActionIronCondor Action = "iron_condor"
	// ActionNakedCall opens a long call (variant engine).
	ActionNakedCall Action = "naked_call"
	// ActionNakedPut opens a long put (variant engine).
	ActionNakedPut Action = "naked_put"
	// ActionNoTrade means a gate failed or no candidate cleared the floors.
	ActionNoTrade Action = "no_trade"
)

// TradeSignal is the selector's output for one cycle. Backtest and live modes
// emit the same shape.
type TradeSignal struct {
	Action     Action                 `json:"action"`
	Confidence float64                `json:"confidence"`
	Reason     string                 `json:"reason"`
	Indicators indicators.Indicators  `json:"indicators"`
	Regime     regime.MarketRegime    `json:"regime"`
	Timestamp  time.Time              `json:"timestamp"`
	Spread     *models.SpreadDescriptor `json:"spread,omitempty"`
}

// noTrade builds a NO_TRADE signal with the failing gate's reason.
func noTrade(reason string, reg regime.MarketRegime, ind indicators.Indicators, ts time.Time) TradeSignal {
	return TradeSignal{
		Action:     ActionNoTrade,
		Confidence: reg.Confidence,
		Reason:     reason,
		Indicators: ind,
		Regime:     reg,
		Timestamp:  ts,
	}
}
