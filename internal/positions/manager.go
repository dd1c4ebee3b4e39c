// Package positions owns the position lifecycle: admission-checked opens,
// per-cycle price/Greeks refresh, ordered exit adjudication, close execution
// and deterministic expiration settlement.
package positions

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/eddiefleurent/stamford_condor/internal/costs"
	"github.com/eddiefleurent/stamford_condor/internal/greeks"
	"github.com/eddiefleurent/stamford_condor/internal/models"
	"github.com/eddiefleurent/stamford_condor/internal/risk"
	"github.com/eddiefleurent/stamford_condor/internal/strategy"
)

// Config holds the manager's sizing and exit parameters.
type Config struct {
	MaxRiskPerTrade float64 // fraction of equity, e.g. 0.02

	ProfitTargetFraction   float64 // of entry credit, default 0.5
	CondorProfitFraction   float64 // default 0.3
	BearCallProfitFraction float64 // default 0.6

	StopLossMultiple     float64 // closing debit vs entry credit, default 2.0
	BearCallStopMultiple float64 // default 2.5

	TimeLimitDays         int // default 21
	BearCallTimeLimitDays int // default 18

	PriceBreachTolerance float64 // default 1.02
	DeltaExpansionLimit  float64 // default 0.3
	VolExpansionMultiple float64 // default 1.5

	MaxCloseRetries int // default 3

	MarketCondition costs.MarketCondition

	Exits ExitToggles
}

// ExitToggles enables individual exit rules. Expiration settlement cannot be
// disabled.
type ExitToggles struct {
	ProfitTarget bool
	StopLoss     bool
	PriceBreach  bool
	Greeks       bool
	VolExpansion bool
	TimeLimit    bool
}

// DefaultConfig returns the BALANCED manager settings with all exits on.
func DefaultConfig() Config {
	return Config{
		MaxRiskPerTrade:        0.02,
		ProfitTargetFraction:   0.5,
		CondorProfitFraction:   0.3,
		BearCallProfitFraction: 0.6,
		StopLossMultiple:       2.0,
		BearCallStopMultiple:   2.5,
		TimeLimitDays:          21,
		BearCallTimeLimitDays:  18,
		PriceBreachTolerance:   1.02,
		DeltaExpansionLimit:    0.3,
		VolExpansionMultiple:   1.5,
		MaxCloseRetries:        3,
		MarketCondition:        costs.Normal,
		Exits: ExitToggles{
			ProfitTarget: true,
			StopLoss:     true,
			PriceBreach:  true,
			Greeks:       true,
			VolExpansion: true,
			TimeLimit:    true,
		},
	}
}

// Manager is the sole mutator of PortfolioState positions.
type Manager struct {
	cfg      Config
	greeks   *greeks.Engine
	costs    *costs.Engine
	governor *risk.Governor
	logger   *logrus.Logger
	newID    func() string
}

// NewManager creates a position manager.
func NewManager(cfg Config, ge *greeks.Engine, ce *costs.Engine, gov *risk.Governor, logger *logrus.Logger) *Manager {
	if logger == nil {
		logger = logrus.New()
	}
	if cfg.MaxCloseRetries <= 0 {
		cfg.MaxCloseRetries = 3
	}
	return &Manager{
		cfg:      cfg,
		greeks:   ge,
		costs:    ce,
		governor: gov,
		logger:   logger,
		newID:    func() string { return uuid.New().String() },
	}
}

// AbortOpen removes a just-opened position whose broker order was rejected.
// No trade record is written; the portfolio returns to its prior state.
func (m *Manager) AbortOpen(ps *models.PortfolioState, p *models.Position) {
	delete(ps.OpenPositions, p.ID)
	m.logger.WithField("id", p.ID).Warn("entry aborted after broker rejection")
}

// SetIDGenerator overrides position ID generation (deterministic replays).
func (m *Manager) SetIDGenerator(gen func() string) {
	if gen != nil {
		m.newID = gen
	}
}

// Rejection records why a candidate was not admitted. Not an error.
type Rejection struct {
	Reason string
}

// OpenPosition sizes, admission-checks and opens a position for an actionable
// signal. Returns the opened position, or a Rejection.
func (m *Manager) OpenPosition(ps *models.PortfolioState, sig strategy.TradeSignal, underlying float64, now time.Time) (*models.Position, *Rejection, error) {
	spread := sig.Spread
	if spread == nil {
		return nil, &Rejection{Reason: "signal carries no spread"}, nil
	}
	if err := spread.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invariant violation in candidate spread: %w", err)
	}

	equity := ps.Equity()
	entryGreeks := m.greeks.SpreadGreeks(spread, underlying, now)
	tte := entryGreeks.TimeToExpiration

	qty, sizeReason := m.deriveQuantity(equity, spread, entryGreeks, tte)
	if qty < 1 {
		return nil, &Rejection{Reason: sizeReason}, nil
	}

	// Per-position Greeks risk.
	if check := m.greeks.RiskCheck(entryGreeks, qty); check.Risky {
		return nil, &Rejection{Reason: fmt.Sprintf("position greeks risk: %v", check.Warnings)}, nil
	}

	// Realistic entry economics.
	entrySC := m.costs.OpenSpread(spread.Legs(), qty, m.cfg.MarketCondition)
	var entryPrice float64
	if spread.IsCredit() {
		if err := m.costs.CheckEntryCredit(entrySC, qty); err != nil {
			return nil, &Rejection{Reason: err.Error()}, nil
		}
		entryPrice = entrySC.RealizedCredit(qty)
	} else {
		entryPrice = -entrySC.RealizedCredit(qty) // debit paid per spread
		if entryPrice <= 0 {
			return nil, &Rejection{Reason: "debit structure priced non-positive"}, nil
		}
	}

	// Portfolio-level admission subsumes the per-position check.
	cand := risk.CandidateExposure(entryGreeks, qty, entryPrice, underlying)
	decision := m.governor.CheckAdmission(ps, cand, underlying, now)
	if !decision.Allowed {
		return nil, &Rejection{Reason: decision.Reason}, nil
	}

	maxLoss := spread.MaxLoss
	pos := &models.Position{
		ID:       m.newID(),
		Symbol:   symbolOf(spread),
		Spread:   *spread,
		Quantity: qty,
		Entry: models.EntryDetail{
			Timestamp:  now,
			Price:      entryPrice,
			Greeks:     entryGreeks,
			Fills:      entrySC.Fills,
			TotalCosts: entrySC.TotalCost,
			ChainIV:    entryGreeks.IV,
		},
		Current: models.CurrentDetail{
			Timestamp: now,
			Greeks:    entryGreeks,
		},
		MaxLoss:   maxLoss,
		RiskScore: math.Abs(entryGreeks.Delta),
		State:     models.StateOpen,
	}

	if err := ps.AddOpen(pos); err != nil {
		return nil, nil, err
	}

	m.logger.WithFields(logrus.Fields{
		"id":     pos.ID,
		"kind":   spread.Kind,
		"qty":    qty,
		"credit": entryPrice,
	}).Info("position opened")
	return pos, nil, nil
}

func symbolOf(s *models.SpreadDescriptor) string {
	for _, l := range s.Legs() {
		if u := underlyingOf(l.Contract.Symbol); u != "" {
			return u
		}
	}
	return ""
}

// underlyingOf strips the OCC tail (YYMMDD + C/P + strike8) from an option
// symbol, returning the root.
func underlyingOf(occ string) string {
	const tail = 15
	if len(occ) <= tail {
		return occ
	}
	return occ[:len(occ)-tail]
}

// deriveQuantity applies the Kelly-lite base size and the Greeks multipliers.
// The final clamp guarantees at least one contract; the portfolio governor is
// what vetoes entries the account cannot carry.
func (m *Manager) deriveQuantity(equity float64, spread *models.SpreadDescriptor, g models.GreeksSnapshot, tte float64) (int, string) {
	maxLossDollars := spread.MaxLoss * 100
	if maxLossDollars <= 0 {
		return 0, "spread max loss non-positive"
	}
	size := math.Floor(equity * m.cfg.MaxRiskPerTrade / maxLossDollars)
	if math.Abs(g.Delta) > 0.5 {
		size *= 0.7
	}
	if g.Theta < -20 {
		size *= 0.8
	}
	if math.Abs(g.Vega*100) > 50 {
		size *= 0.9
	}
	if tte < 0.003 { // roughly one day
		size *= 0.5
	}
	qty := int(math.Floor(size))
	if qty < 1 {
		qty = 1
	}
	return qty, ""
}
