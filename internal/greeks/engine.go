// Package greeks evaluates per-leg Black-Scholes Greeks, aggregates them
// across a portfolio with sign, and applies the per-position risk predicates.
//
// The pricing model is a replaceable detail: consumers rely only on sign
// conventions (call delta in [0,1], put delta in [-1,0], short legs negate)
// and monotonicity in underlying and time.
package greeks

import (
	"fmt"
	"math"
	"time"

	"github.com/eddiefleurent/stamford_condor/internal/models"
)

// Thresholds configure the per-position risk predicates.
type Thresholds struct {
	MaxAbsDelta float64 // high-delta warning
	MaxAbsGamma float64 // extreme gamma warning
	MinTheta    float64 // per-day decay floor (negative)
	MaxAbsVega  float64 // per 1% vol
}

// DefaultThresholds are the standard risk predicate settings.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxAbsDelta: 0.7,
		MaxAbsGamma: 0.15,
		MinTheta:    -100,
		MaxAbsVega:  50,
	}
}

// Engine computes Greeks snapshots. Stateless apart from configuration.
type Engine struct {
	riskFreeRate float64
	thresholds   Thresholds
}

// NewEngine creates a Greeks engine with the given risk-free rate.
func NewEngine(riskFreeRate float64, thresholds Thresholds) *Engine {
	if riskFreeRate <= 0 {
		riskFreeRate = 0.05
	}
	return &Engine{riskFreeRate: riskFreeRate, thresholds: thresholds}
}

// PerLeg evaluates Black-Scholes Greeks for one contract. iv <= 0 falls back
// to the contract's own implied volatility, then to a floor so the formulas
// stay defined.
func (e *Engine) PerLeg(c models.OptionContract, underlying, tte, iv float64, now time.Time) models.GreeksSnapshot {
	if iv <= 0 {
		iv = c.IV
	}
	if iv <= 0 {
		iv = 0.15
	}
	snap := models.GreeksSnapshot{
		Timestamp:        now,
		UnderlyingPrice:  underlying,
		TimeToExpiration: tte,
		IV:               iv,
		RiskFreeRate:     e.riskFreeRate,
	}
	if underlying <= 0 || c.Strike <= 0 {
		return snap
	}
	if tte <= 0 {
		// At expiration only intrinsic delta remains.
		switch c.Side {
		case models.SideCall:
			if underlying > c.Strike {
				snap.Delta = 1
			}
		case models.SidePut:
			if underlying < c.Strike {
				snap.Delta = -1
			}
		}
		return snap
	}

	sqrtT := math.Sqrt(tte)
	d1 := (math.Log(underlying/c.Strike) + (e.riskFreeRate+0.5*iv*iv)*tte) / (iv * sqrtT)
	d2 := d1 - iv*sqrtT

	switch c.Side {
	case models.SideCall:
		snap.Delta = normCDF(d1)
		term1 := underlying * normPDF(d1) * iv / (2 * sqrtT)
		term2 := e.riskFreeRate * c.Strike * math.Exp(-e.riskFreeRate*tte) * normCDF(d2)
		snap.Theta = (-term1 - term2) / 365.0
		snap.Rho = c.Strike * tte * math.Exp(-e.riskFreeRate*tte) * normCDF(d2) / 100.0
	case models.SidePut:
		snap.Delta = normCDF(d1) - 1
		term1 := underlying * normPDF(d1) * iv / (2 * sqrtT)
		term2 := e.riskFreeRate * c.Strike * math.Exp(-e.riskFreeRate*tte) * normCDF(-d2)
		snap.Theta = (-term1 + term2) / 365.0
		snap.Rho = -c.Strike * tte * math.Exp(-e.riskFreeRate*tte) * normCDF(-d2) / 100.0
	}
	snap.Gamma = normPDF(d1) / (underlying * iv * sqrtT)
	snap.Vega = underlying * normPDF(d1) * sqrtT / 100.0
	return snap
}

// PortfolioLeg is one leg of an aggregate Greeks evaluation.
type PortfolioLeg struct {
	Contract models.OptionContract
	Quantity int
	Side     models.LegSide
}

// Portfolio sums per-leg Greeks with sign: short legs negate, quantity scales.
func (e *Engine) Portfolio(legs []PortfolioLeg, underlying, tte float64, now time.Time) models.GreeksSnapshot {
	agg := models.GreeksSnapshot{
		Timestamp:        now,
		UnderlyingPrice:  underlying,
		TimeToExpiration: tte,
		RiskFreeRate:     e.riskFreeRate,
	}
	var ivSum float64
	var ivN int
	for _, leg := range legs {
		snap := e.PerLeg(leg.Contract, underlying, tte, 0, now)
		sign := float64(leg.Quantity)
		if leg.Side == models.LegShort {
			sign = -sign
		}
		agg.Delta += sign * snap.Delta
		agg.Gamma += sign * snap.Gamma
		agg.Theta += sign * snap.Theta
		agg.Vega += sign * snap.Vega
		agg.Rho += sign * snap.Rho
		if snap.IV > 0 {
			ivSum += snap.IV
			ivN++
		}
	}
	if ivN > 0 {
		agg.IV = ivSum / float64(ivN)
	}
	return agg
}

// SpreadGreeks evaluates a spread's net Greeks for one contract of each leg.
func (e *Engine) SpreadGreeks(spread *models.SpreadDescriptor, underlying float64, now time.Time) models.GreeksSnapshot {
	legs := make([]PortfolioLeg, 0, 4)
	for _, l := range spread.Legs() {
		legs = append(legs, PortfolioLeg{Contract: l.Contract, Quantity: 1, Side: l.Side})
	}
	tte := YearsTo(now, spread.Expiration())
	return e.Portfolio(legs, underlying, tte, now)
}

// RiskAssessment reports the per-position Greeks predicates.
type RiskAssessment struct {
	Risky    bool
	Warnings []string
}

// RiskCheck applies the thresholds to a snapshot scaled by quantity.
// Theta and vega are dollar-scaled per contract (x100); delta and gamma are
// judged per-spread so the thresholds match quoted Greeks.
func (e *Engine) RiskCheck(snap models.GreeksSnapshot, qty int) RiskAssessment {
	var out RiskAssessment
	q := float64(qty)
	if q < 1 {
		q = 1
	}
	if math.Abs(snap.Delta) > e.thresholds.MaxAbsDelta {
		out.Warnings = append(out.Warnings,
			fmt.Sprintf("high delta exposure: |%.2f| > %.2f", snap.Delta, e.thresholds.MaxAbsDelta))
	}
	if math.Abs(snap.Gamma) > e.thresholds.MaxAbsGamma {
		out.Warnings = append(out.Warnings,
			fmt.Sprintf("extreme gamma: |%.3f| > %.3f", snap.Gamma, e.thresholds.MaxAbsGamma))
	}
	if snap.Theta*q*100 < e.thresholds.MinTheta {
		out.Warnings = append(out.Warnings,
			fmt.Sprintf("accelerating decay: theta $%.1f/day < $%.1f", snap.Theta*q*100, e.thresholds.MinTheta))
	}
	if math.Abs(snap.Vega*q*100) > e.thresholds.MaxAbsVega {
		out.Warnings = append(out.Warnings,
			fmt.Sprintf("vega explosion: |$%.1f| per 1%% vol > $%.1f", snap.Vega*q*100, e.thresholds.MaxAbsVega))
	}
	out.Risky = len(out.Warnings) > 0
	return out
}

// YearsTo converts a timestamp delta to year fractions, floored at zero.
func YearsTo(now, expiration time.Time) float64 {
	y := expiration.Sub(now).Hours() / (365.0 * 24.0)
	if y < 0 {
		return 0
	}
	return y
}

// normCDF is the cumulative standard normal distribution.
func normCDF(z float64) float64 {
	return 0.5 * (1 + math.Erf(z/math.Sqrt2))
}

// normPDF is the standard normal density.
func normPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi)
}
