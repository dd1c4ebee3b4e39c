package positions

import (
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eddiefleurent/stamford_condor/internal/costs"
	"github.com/eddiefleurent/stamford_condor/internal/greeks"
	"github.com/eddiefleurent/stamford_condor/internal/indicators"
	"github.com/eddiefleurent/stamford_condor/internal/models"
	"github.com/eddiefleurent/stamford_condor/internal/regime"
	"github.com/eddiefleurent/stamford_condor/internal/risk"
	"github.com/eddiefleurent/stamford_condor/internal/strategy"
)

var testNow = time.Date(2025, 8, 1, 14, 30, 0, 0, time.UTC)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func newTestManager(cfg Config) *Manager {
	ge := greeks.NewEngine(0.05, greeks.DefaultThresholds())
	ce := costs.NewEngine(costs.DefaultConfig())
	gov := risk.NewGovernor(risk.DefaultLimits(), testLogger())
	m := NewManager(cfg, ge, ce, gov, testLogger())
	seq := 0
	m.SetIDGenerator(func() string {
		seq++
		return fmt.Sprintf("pos-%04d", seq)
	})
	return m
}

func putContract(strike, bid, ask, delta float64, exp time.Time) models.OptionContract {
	return models.OptionContract{
		Symbol:     fmt.Sprintf("SPY250801P%08d", int(strike*1000)),
		Side:       models.SidePut,
		Strike:     strike,
		Expiration: exp,
		Bid:        bid, Ask: ask,
		IV:    0.15,
		Delta: delta,
	}
}

// bullPutSignal builds the canonical 445/440 put spread for ~0.55 credit.
func bullPutSignal(exp time.Time) strategy.TradeSignal {
	short := putContract(445, 1.20, 1.25, -0.30, exp)
	long := putContract(440, 0.60, 0.65, -0.18, exp)
	return strategy.TradeSignal{
		Action:     strategy.ActionBullPut,
		Confidence: 75,
		Timestamp:  testNow,
		Regime:     regime.MarketRegime{Regime: regime.Bullish, Confidence: 75},
		Indicators: indicators.Indicators{RSI: 65},
		Spread: &models.SpreadDescriptor{
			Kind:      models.SpreadBullPut,
			ShortPut:  &short,
			LongPut:   &long,
			NetCredit: 0.55,
			MaxProfit: 0.55,
			MaxLoss:   4.45,
			Breakeven: models.PriceZone{Lo: 444.45},
			PoP:       0.75,
		},
	}
}

// chainWithDebit marks the 445/440 spread at the given per-spread debit.
func chainWithDebit(debit float64, exp time.Time, ts time.Time) *models.OptionsChain {
	half := debit / 2
	return &models.OptionsChain{
		Underlying: "SPY",
		Timestamp:  ts,
		Contracts: []models.OptionContract{
			putContract(445, debit+half-0.02, debit+half+0.02, -0.20, exp),
			putContract(440, half-0.02, half+0.02, -0.10, exp),
		},
	}
}

func TestOpenPositionHappyPath(t *testing.T) {
	m := newTestManager(DefaultConfig())
	ps := models.NewPortfolioState(25000)
	exp := testNow.Add(6 * time.Hour)

	pos, rej, err := m.OpenPosition(ps, bullPutSignal(exp), 450, testNow)
	require.NoError(t, err)
	require.Nil(t, rej)
	require.NotNil(t, pos)

	assert.Equal(t, models.StateOpen, pos.State)
	assert.Equal(t, "SPY", pos.Symbol)
	assert.Equal(t, 1, pos.Quantity, "2% of 25k over $445 max loss sizes to one contract")
	assert.Len(t, ps.OpenPositions, 1)
	assert.Len(t, pos.Entry.Fills, 2)

	// Realized credit nets slippage and fees off the quoted 0.55.
	assert.Less(t, pos.Entry.Price, 0.55)
	assert.Greater(t, pos.Entry.Price, 0.45)
	assert.InDelta(t, 4.45, pos.MaxLoss, 1e-9)
}

func TestOpenPositionRejectsThinCredit(t *testing.T) {
	m := newTestManager(DefaultConfig())
	ps := models.NewPortfolioState(25000)
	exp := testNow.Add(6 * time.Hour)

	sig := bullPutSignal(exp)
	// Collapse the quotes so costs eat the whole credit.
	sig.Spread.ShortPut.Bid, sig.Spread.ShortPut.Ask = 0.66, 0.70
	sig.Spread.LongPut.Bid, sig.Spread.LongPut.Ask = 0.58, 0.62
	sig.Spread.NetCredit = 0.06
	sig.Spread.MaxProfit = 0.06
	sig.Spread.MaxLoss = 4.94

	pos, rej, err := m.OpenPosition(ps, sig, 450, testNow)
	require.NoError(t, err)
	require.Nil(t, pos)
	require.NotNil(t, rej)
	assert.Contains(t, rej.Reason, "below floor")
	assert.Empty(t, ps.OpenPositions)
}

func TestSizingFloorsAtOneContract(t *testing.T) {
	m := newTestManager(DefaultConfig())
	// 2% of 10k = $200 under-covers the $445 max loss; sizing still floors
	// to a single contract and the governor decides whether it can be carried.
	ps := models.NewPortfolioState(10000)
	exp := testNow.Add(6 * time.Hour)

	pos, rej, err := m.OpenPosition(ps, bullPutSignal(exp), 450, testNow)
	require.NoError(t, err)
	require.Nil(t, rej)
	require.NotNil(t, pos)
	assert.Equal(t, 1, pos.Quantity)
}

func TestInvalidSpreadIsInvariantViolation(t *testing.T) {
	m := newTestManager(DefaultConfig())
	ps := models.NewPortfolioState(25000)
	exp := testNow.Add(6 * time.Hour)

	sig := bullPutSignal(exp)
	sig.Spread.NetCredit = -1
	_, _, err := m.OpenPosition(ps, sig, 450, testNow)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invariant violation")
}

func TestProfitTargetExit(t *testing.T) {
	m := newTestManager(DefaultConfig())
	ps := models.NewPortfolioState(25000)
	exp := testNow.Add(30 * time.Hour)

	pos, _, err := m.OpenPosition(ps, bullPutSignal(exp), 450, testNow)
	require.NoError(t, err)

	// Next cycle: closing debit 0.25 against ~0.53 realized credit.
	later := testNow.Add(15 * time.Minute)
	chain := chainWithDebit(0.25, exp, later)
	require.True(t, m.Refresh(pos, chain, 452, later))

	assert.Positive(t, pos.Current.PnL)
	reason := m.Adjudicate(pos, 452, 0.15, true, later)
	assert.Equal(t, models.ExitProfitTarget, reason)

	rec, err := m.ClosePosition(ps, pos, chain, reason, later)
	require.NoError(t, err)
	assert.Equal(t, models.ExitProfitTarget, rec.ExitReason)
	assert.Positive(t, rec.RealizedPnL)
	assert.Less(t, rec.RealizedPnL, 0.55*100, "profit is bounded by the credit")
	assert.Empty(t, ps.OpenPositions)
	assert.Len(t, ps.ClosedTrades, 1)
	assert.Equal(t, models.StateClosed, pos.State)
}

func TestStopLossOnDebitMultiple(t *testing.T) {
	m := newTestManager(DefaultConfig())
	ps := models.NewPortfolioState(25000)
	exp := testNow.Add(30 * time.Hour)

	pos, _, err := m.OpenPosition(ps, bullPutSignal(exp), 450, testNow)
	require.NoError(t, err)

	later := testNow.Add(15 * time.Minute)
	// Closing debit 2.5x the entry credit.
	chain := chainWithDebit(pos.Entry.Price*2.5, exp, later)
	require.True(t, m.Refresh(pos, chain, 446, later))

	reason := m.Adjudicate(pos, 446, 0.15, true, later)
	assert.Equal(t, models.ExitStopLoss, reason)
}

func TestPriceBreachExits(t *testing.T) {
	m := newTestManager(DefaultConfig())
	ps := models.NewPortfolioState(25000)
	exp := testNow.Add(30 * time.Hour)

	pos, _, err := m.OpenPosition(ps, bullPutSignal(exp), 450, testNow)
	require.NoError(t, err)

	later := testNow.Add(15 * time.Minute)
	chain := chainWithDebit(pos.Entry.Price, exp, later) // flat mark: no P&L rules fire
	require.True(t, m.Refresh(pos, chain, 433, later))

	// Bull put breaches once the underlying crosses the short strike beyond
	// tolerance (445 / 1.02).
	reason := m.Adjudicate(pos, 433, 0.15, true, later)
	assert.Equal(t, models.ExitPriceBreach, reason)

	// Comfortably above breakeven: nothing fires.
	reason = m.Adjudicate(pos, 455, 0.15, true, later)
	assert.Equal(t, models.ExitNone, reason)
}

func TestVolExpansionExit(t *testing.T) {
	m := newTestManager(DefaultConfig())
	ps := models.NewPortfolioState(25000)
	exp := testNow.Add(30 * time.Hour)

	pos, _, err := m.OpenPosition(ps, bullPutSignal(exp), 450, testNow)
	require.NoError(t, err)

	later := testNow.Add(15 * time.Minute)
	chain := chainWithDebit(pos.Entry.Price, exp, later)
	require.True(t, m.Refresh(pos, chain, 450, later))

	reason := m.Adjudicate(pos, 450, pos.Entry.ChainIV*1.6, true, later)
	assert.Equal(t, models.ExitVolExpansion, reason)
}

func TestTimeBasedExitsWhenChainMissingLeg(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TimeLimitDays = 21
	m := newTestManager(cfg)
	ps := models.NewPortfolioState(25000)
	exp := testNow.Add(40 * 24 * time.Hour)

	pos, _, err := m.OpenPosition(ps, bullPutSignal(exp), 450, testNow)
	require.NoError(t, err)

	// Chain lost the long leg: only time-based rules may fire.
	sparse := &models.OptionsChain{
		Underlying: "SPY",
		Timestamp:  testNow,
		Contracts:  []models.OptionContract{putContract(445, 9, 9.1, -0.9, exp)},
	}
	marked := m.Refresh(pos, sparse, 400, testNow.Add(15*time.Minute))
	assert.False(t, marked)

	reason := m.Adjudicate(pos, 400, 0.9, marked, testNow.Add(15*time.Minute))
	assert.Equal(t, models.ExitNone, reason, "price rules are unavailable without marks")

	reason = m.Adjudicate(pos, 400, 0.9, marked, testNow.Add(22*24*time.Hour))
	assert.Equal(t, models.ExitTimeLimit, reason)
}

func TestExpirationSettlementBetweenStrikes(t *testing.T) {
	m := newTestManager(DefaultConfig())
	ps := models.NewPortfolioState(25000)
	exp := testNow.Add(6 * time.Hour)

	pos, _, err := m.OpenPosition(ps, bullPutSignal(exp), 450, testNow)
	require.NoError(t, err)
	entryCredit := pos.Entry.Price

	// SPY settles at 442: short 445 put is $3 ITM, long 440 put worthless.
	rec, err := m.SettleExpiration(ps, pos, 442, exp)
	require.NoError(t, err)

	assert.Equal(t, models.ExitExpiration, rec.ExitReason)
	assert.InDelta(t, (entryCredit-3.0)*100, rec.RealizedPnL, 1e-9)
	assert.Negative(t, rec.RealizedPnL)
	assert.Empty(t, ps.OpenPositions, "position disappears from OPEN")
	assert.Len(t, ps.ClosedTrades, 1)
}

func TestExpirationSettlementBoundaries(t *testing.T) {
	tests := []struct {
		name       string
		settle     float64
		wantPnLFor func(credit float64) float64
	}{
		{"above short strike keeps full credit", 452, func(c float64) float64 { return c * 100 }},
		{"below long strike loses width minus credit", 430, func(c float64) float64 { return (c - 5) * 100 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager(DefaultConfig())
			ps := models.NewPortfolioState(25000)
			exp := testNow.Add(6 * time.Hour)
			pos, _, err := m.OpenPosition(ps, bullPutSignal(exp), 450, testNow)
			require.NoError(t, err)

			rec, err := m.SettleExpiration(ps, pos, tt.settle, exp)
			require.NoError(t, err)
			assert.InDelta(t, tt.wantPnLFor(pos.Entry.Price), rec.RealizedPnL, 1e-9)
		})
	}
}

func TestClosingRetryAndOrphan(t *testing.T) {
	m := newTestManager(DefaultConfig())
	ps := models.NewPortfolioState(25000)
	exp := testNow.Add(30 * time.Hour)

	pos, _, err := m.OpenPosition(ps, bullPutSignal(exp), 450, testNow)
	require.NoError(t, err)

	require.NoError(t, m.MarkClosing(pos, models.ExitStopLoss))
	assert.Equal(t, models.StateClosing, pos.State)
	assert.False(t, m.Orphaned(pos))

	for i := 0; i < 3; i++ {
		require.NoError(t, m.MarkClosing(pos, models.ExitStopLoss))
	}
	assert.True(t, m.Orphaned(pos), "retries exhausted")

	// A CLOSING position can still settle at expiration.
	_, err = m.SettleExpiration(ps, pos, 452, exp)
	require.NoError(t, err)
	assert.Equal(t, models.StateClosed, pos.State)
}

func TestExitTogglesDisableRules(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Exits.ProfitTarget = false
	m := newTestManager(cfg)
	ps := models.NewPortfolioState(25000)
	exp := testNow.Add(30 * time.Hour)

	pos, _, err := m.OpenPosition(ps, bullPutSignal(exp), 450, testNow)
	require.NoError(t, err)

	later := testNow.Add(15 * time.Minute)
	chain := chainWithDebit(0.10, exp, later)
	require.True(t, m.Refresh(pos, chain, 452, later))

	reason := m.Adjudicate(pos, 452, 0.15, true, later)
	assert.Equal(t, models.ExitNone, reason, "disabled profit target never fires")
}
