// Package risk implements the portfolio risk governor: aggregate Greeks,
// notional, concentration and daily-loss limits applied before any position
// is admitted.
package risk

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eddiefleurent/stamford_condor/internal/models"
)

// Limits configure the aggregate checks. Percentages are fractions of
// current equity.
type Limits struct {
	MaxDeltaDollarsPct  float64 // delta-dollar proxy cap, e.g. 0.02
	MaxGamma            float64 // absolute net gamma, e.g. 0.5
	MaxThetaPct         float64 // per-day decay cap, e.g. 0.01
	MaxVegaPct          float64 // per 1% vol cap, e.g. 0.05
	MaxNotionalMultiple float64 // notional vs equity, e.g. 5
	ConcentrationWarn   float64 // Herfindahl warning level, e.g. 0.4
	DiversificationWarn float64 // 1-Herfindahl floor with >=2 positions, e.g. 0.3
	DailyLossLimitPct   float64 // realized loss hard stop, e.g. 0.05
}

// DefaultLimits are the configured defaults from the risk section.
func DefaultLimits() Limits {
	return Limits{
		MaxDeltaDollarsPct:  0.02,
		MaxGamma:            0.5,
		MaxThetaPct:         0.01,
		MaxVegaPct:          0.05,
		MaxNotionalMultiple: 5,
		ConcentrationWarn:   0.4,
		DiversificationWarn: 0.3,
		DailyLossLimitPct:   0.05,
	}
}

// Decision is the governor's verdict on a candidate entry. Warnings do not
// block; a non-empty Reason does.
type Decision struct {
	Allowed  bool
	Reason   string
	Warnings []string
}

// Exposure is one position's contribution to the aggregate.
type Exposure struct {
	DeltaDollars float64
	Gamma        float64
	ThetaDollars float64
	VegaDollars  float64
	Notional     float64
	EntryValue   float64 // |entryPrice * qty * 100| for concentration
}

// PositionExposure derives a position's exposure from its current Greeks.
// Delta dollars use the delta-per-spread times spot times quantity proxy.
func PositionExposure(p *models.Position, underlying float64) Exposure {
	q := float64(p.Quantity)
	g := p.Current.Greeks
	if g.Timestamp.IsZero() {
		g = p.Entry.Greeks
	}
	return Exposure{
		DeltaDollars: g.Delta * underlying * q,
		Gamma:        g.Gamma * q,
		ThetaDollars: g.Theta * q * 100,
		VegaDollars:  g.Vega * q * 100,
		Notional:     underlying * 100 * q,
		EntryValue:   math.Abs(p.Entry.Price * q * 100),
	}
}

// CandidateExposure derives the hypothetical exposure a new entry would add.
func CandidateExposure(g models.GreeksSnapshot, qty int, entryPrice, underlying float64) Exposure {
	q := float64(qty)
	return Exposure{
		DeltaDollars: g.Delta * underlying * q,
		Gamma:        g.Gamma * q,
		ThetaDollars: g.Theta * q * 100,
		VegaDollars:  g.Vega * q * 100,
		Notional:     underlying * 100 * q,
		EntryValue:   math.Abs(entryPrice * q * 100),
	}
}

// Governor applies the limits. Engine-scoped; injected into the scheduler.
type Governor struct {
	limits Limits
	logger *logrus.Logger
}

// NewGovernor creates a risk governor.
func NewGovernor(limits Limits, logger *logrus.Logger) *Governor {
	if logger == nil {
		logger = logrus.New()
	}
	return &Governor{limits: limits, logger: logger}
}

// CheckAdmission evaluates the hypothetical post-entry aggregate. The first
// breached hard limit rejects; soft limits accumulate as warnings.
func (g *Governor) CheckAdmission(ps *models.PortfolioState, cand Exposure, underlying float64, now time.Time) Decision {
	equity := ps.Equity()
	if equity <= 0 {
		return Decision{Reason: "portfolio equity non-positive"}
	}

	// Daily loss hard stop suspends new entries for the session.
	if lim := g.limits.DailyLossLimitPct * equity; lim > 0 {
		if day := ps.DayRealized(now); day < 0 && -day >= lim {
			return Decision{Reason: fmt.Sprintf("daily loss limit reached: $%.0f >= $%.0f", -day, lim)}
		}
	}

	agg := cand
	values := []float64{cand.EntryValue}
	for _, p := range sortedOpen(ps) {
		e := PositionExposure(p, underlying)
		agg.add(e)
		values = append(values, e.EntryValue)
	}

	if reason := g.limitBreaches(agg, equity); len(reason) > 0 {
		return Decision{Reason: reason[0]}
	}

	decision := Decision{Allowed: true}
	decision.Warnings = g.softWarnings(values)
	for _, w := range decision.Warnings {
		g.logger.WithField("warning", w).Warn("portfolio risk warning")
	}
	return decision
}

// PortfolioWarnings reports standing risk over the open positions alone,
// with no hypothetical candidate: any aggregate limit currently breached
// plus the concentration and diversification soft checks. Status reporting
// only; it never blocks and never logs.
func (g *Governor) PortfolioWarnings(ps *models.PortfolioState, underlying float64, now time.Time) []string {
	if len(ps.OpenPositions) == 0 {
		return nil
	}
	equity := ps.Equity()
	if equity <= 0 {
		return []string{"portfolio equity non-positive"}
	}

	var agg Exposure
	var values []float64
	for _, p := range sortedOpen(ps) {
		e := PositionExposure(p, underlying)
		agg.add(e)
		values = append(values, e.EntryValue)
	}

	warnings := g.limitBreaches(agg, equity)
	if lim := g.limits.DailyLossLimitPct * equity; lim > 0 {
		if day := ps.DayRealized(now); day < 0 && -day >= lim {
			warnings = append(warnings,
				fmt.Sprintf("daily loss limit reached: $%.0f >= $%.0f", -day, lim))
		}
	}
	return append(warnings, g.softWarnings(values)...)
}

// add accumulates another exposure into the aggregate.
func (e *Exposure) add(o Exposure) {
	e.DeltaDollars += o.DeltaDollars
	e.Gamma += o.Gamma
	e.ThetaDollars += o.ThetaDollars
	e.VegaDollars += o.VegaDollars
	e.Notional += o.Notional
}

// sortedOpen returns the open positions in entry order so float summation is
// reproducible run to run.
func sortedOpen(ps *models.PortfolioState) []*models.Position {
	open := make([]*models.Position, 0, len(ps.OpenPositions))
	for _, p := range ps.OpenPositions {
		open = append(open, p)
	}
	sort.Slice(open, func(i, j int) bool {
		return open[i].Entry.Timestamp.Before(open[j].Entry.Timestamp)
	})
	return open
}

// limitBreaches describes every hard aggregate limit the exposure exceeds,
// in check order.
func (g *Governor) limitBreaches(agg Exposure, equity float64) []string {
	var out []string
	if lim := g.limits.MaxDeltaDollarsPct * equity; lim > 0 && math.Abs(agg.DeltaDollars) > lim {
		out = append(out, fmt.Sprintf("portfolio delta $%.0f exceeds limit $%.0f", agg.DeltaDollars, lim))
	}
	if g.limits.MaxGamma > 0 && math.Abs(agg.Gamma) > g.limits.MaxGamma {
		out = append(out, fmt.Sprintf("portfolio gamma %.2f exceeds limit %.2f", agg.Gamma, g.limits.MaxGamma))
	}
	if lim := g.limits.MaxThetaPct * equity; lim > 0 && math.Abs(agg.ThetaDollars) > lim {
		out = append(out, fmt.Sprintf("portfolio theta $%.0f/day exceeds limit $%.0f", agg.ThetaDollars, lim))
	}
	if lim := g.limits.MaxVegaPct * equity; lim > 0 && math.Abs(agg.VegaDollars) > lim {
		out = append(out, fmt.Sprintf("portfolio vega $%.0f exceeds limit $%.0f", agg.VegaDollars, lim))
	}
	if lim := g.limits.MaxNotionalMultiple * equity; lim > 0 && agg.Notional > lim {
		out = append(out, fmt.Sprintf("notional $%.0f exceeds %gx equity", agg.Notional, g.limits.MaxNotionalMultiple))
	}
	return out
}

// softWarnings runs the warn-only concentration and diversification checks.
func (g *Governor) softWarnings(values []float64) []string {
	var out []string
	h := herfindahl(values)
	if g.limits.ConcentrationWarn > 0 && h > g.limits.ConcentrationWarn {
		out = append(out, fmt.Sprintf("concentration %.2f above %.2f", h, g.limits.ConcentrationWarn))
	}
	if len(values) >= 2 && g.limits.DiversificationWarn > 0 {
		if div := 1 - h; div < g.limits.DiversificationWarn {
			out = append(out, fmt.Sprintf("diversification score %.2f below %.2f", div, g.limits.DiversificationWarn))
		}
	}
	return out
}

// herfindahl computes the concentration index over position entry values.
func herfindahl(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	if total <= 0 {
		return 0
	}
	var h float64
	for _, v := range values {
		share := v / total
		h += share * share
	}
	return h
}
