package greeks

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eddiefleurent/stamford_condor/internal/models"
)

var testNow = time.Date(2025, 8, 1, 14, 30, 0, 0, time.UTC)

func callAt(strike float64) models.OptionContract {
	return models.OptionContract{
		Symbol: "SPY250801C00450000", Side: models.SideCall, Strike: strike,
		Expiration: testNow.Add(6 * time.Hour), IV: 0.15,
	}
}

func putAt(strike float64) models.OptionContract {
	return models.OptionContract{
		Symbol: "SPY250801P00450000", Side: models.SidePut, Strike: strike,
		Expiration: testNow.Add(6 * time.Hour), IV: 0.15,
	}
}

func TestPerLegSignConventions(t *testing.T) {
	e := NewEngine(0.05, DefaultThresholds())
	tte := 30.0 / 365.0

	call := e.PerLeg(callAt(450), 450, tte, 0.20, testNow)
	put := e.PerLeg(putAt(450), 450, tte, 0.20, testNow)

	assert.Greater(t, call.Delta, 0.0)
	assert.LessOrEqual(t, call.Delta, 1.0)
	assert.Less(t, put.Delta, 0.0)
	assert.GreaterOrEqual(t, put.Delta, -1.0)

	// ATM: call delta near 0.5, put delta near -0.5.
	assert.InDelta(t, 0.5, call.Delta, 0.1)
	assert.InDelta(t, -0.5, put.Delta, 0.1)

	// Long gamma and vega, negative theta for both sides.
	for _, snap := range []models.GreeksSnapshot{call, put} {
		assert.Positive(t, snap.Gamma)
		assert.Positive(t, snap.Vega)
		assert.Negative(t, snap.Theta)
	}
}

func TestPerLegMonotonicInUnderlying(t *testing.T) {
	e := NewEngine(0.05, DefaultThresholds())
	tte := 10.0 / 365.0

	low := e.PerLeg(callAt(450), 440, tte, 0.20, testNow)
	high := e.PerLeg(callAt(450), 460, tte, 0.20, testNow)
	assert.Greater(t, high.Delta, low.Delta, "call delta rises with the underlying")
}

func TestPerLegAtExpiration(t *testing.T) {
	e := NewEngine(0.05, DefaultThresholds())

	itm := e.PerLeg(callAt(450), 455, 0, 0.20, testNow)
	otm := e.PerLeg(callAt(450), 445, 0, 0.20, testNow)
	assert.Equal(t, 1.0, itm.Delta)
	assert.Zero(t, otm.Delta)
	assert.Zero(t, itm.Gamma)
}

func TestPortfolioShortNegates(t *testing.T) {
	e := NewEngine(0.05, DefaultThresholds())
	tte := 10.0 / 365.0

	long := e.Portfolio([]PortfolioLeg{
		{Contract: callAt(450), Quantity: 1, Side: models.LegLong},
	}, 450, tte, testNow)
	short := e.Portfolio([]PortfolioLeg{
		{Contract: callAt(450), Quantity: 1, Side: models.LegShort},
	}, 450, tte, testNow)

	assert.InDelta(t, -long.Delta, short.Delta, 1e-9)
	assert.InDelta(t, -long.Gamma, short.Gamma, 1e-9)
	assert.InDelta(t, -long.Vega, short.Vega, 1e-9)

	// A spread's net delta is the signed sum of its legs.
	spread := e.Portfolio([]PortfolioLeg{
		{Contract: putAt(445), Quantity: 1, Side: models.LegShort},
		{Contract: putAt(440), Quantity: 1, Side: models.LegLong},
	}, 450, tte, testNow)
	shortLeg := e.PerLeg(putAt(445), 450, tte, 0, testNow)
	longLeg := e.PerLeg(putAt(440), 450, tte, 0, testNow)
	assert.InDelta(t, -shortLeg.Delta+longLeg.Delta, spread.Delta, 1e-9)
}

func TestSpreadGreeksDefinedRisk(t *testing.T) {
	e := NewEngine(0.05, DefaultThresholds())
	sp := putAt(445)
	lp := putAt(440)
	spread := &models.SpreadDescriptor{
		Kind: models.SpreadBullPut, ShortPut: &sp, LongPut: &lp,
		NetCredit: 0.55, MaxProfit: 0.55, MaxLoss: 4.45,
	}
	snap := e.SpreadGreeks(spread, 450, testNow)

	// Short put spread: positive net delta, capped magnitude.
	assert.Positive(t, snap.Delta)
	assert.Less(t, math.Abs(snap.Delta), 1.0)
}

func TestRiskCheckThresholds(t *testing.T) {
	e := NewEngine(0.05, DefaultThresholds())

	clean := e.RiskCheck(models.GreeksSnapshot{Delta: 0.2, Gamma: 0.05, Theta: -0.3, Vega: 0.2}, 1)
	assert.False(t, clean.Risky)
	assert.Empty(t, clean.Warnings)

	tests := []struct {
		name string
		snap models.GreeksSnapshot
		qty  int
	}{
		{"high delta", models.GreeksSnapshot{Delta: 0.85}, 1},
		{"extreme gamma", models.GreeksSnapshot{Gamma: 0.2}, 1},
		{"accelerating decay", models.GreeksSnapshot{Theta: -1.5}, 1}, // -$150/day at qty 1
		{"vega explosion", models.GreeksSnapshot{Vega: 0.6}, 1},      // $60 per vol point
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := e.RiskCheck(tt.snap, tt.qty)
			require.True(t, out.Risky)
			assert.NotEmpty(t, out.Warnings)
		})
	}
}

func TestYearsTo(t *testing.T) {
	assert.InDelta(t, 1.0, YearsTo(testNow, testNow.AddDate(1, 0, 0)), 0.01)
	assert.Zero(t, YearsTo(testNow, testNow.Add(-time.Hour)), "past expirations floor at zero")
}
