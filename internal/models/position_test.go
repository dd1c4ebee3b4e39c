package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositionTransitions(t *testing.T) {
	tests := []struct {
		name      string
		from      PositionState
		to        PositionState
		condition string
		wantErr   bool
	}{
		{"open to closing on exit signal", StateOpen, StateClosing, "exit_signal", false},
		{"open settles directly", StateOpen, StateClosed, "settled", false},
		{"closing to closed on fill", StateClosing, StateClosed, "close_filled", false},
		{"closing settles at expiration", StateClosing, StateClosed, "settled", false},
		{"open cannot reopen", StateOpen, StateOpen, "exit_signal", true},
		{"closed is terminal", StateClosed, StateOpen, "settled", true},
		{"closed cannot close again", StateClosed, StateClosed, "close_filled", true},
		{"unknown condition rejected", StateOpen, StateClosing, "whatever", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Position{ID: "p1", State: tt.from}
			err := p.Transition(tt.to, tt.condition)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, tt.from, p.State, "state must not change on rejected transition")
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.to, p.State)
			}
		})
	}
}

func TestPortfolioAccounting(t *testing.T) {
	ps := NewPortfolioState(25000)
	assert.Equal(t, 25000.0, ps.Equity())

	pos := &Position{
		ID:       "p1",
		State:    StateOpen,
		Quantity: 1,
		Entry:    EntryDetail{Price: 0.55, Timestamp: time.Now()},
	}
	require.NoError(t, ps.AddOpen(pos))
	assert.Error(t, ps.AddOpen(pos), "duplicate IDs rejected")

	pos.Current.PnL = 30
	assert.InDelta(t, 25030.0, ps.Equity(), 1e-9)

	exitTS := time.Date(2025, 8, 1, 20, 0, 0, 0, time.UTC)
	rec := TradeRecord{
		PositionID:    "p1",
		ExitTimestamp: exitTS,
		ExitReason:    ExitProfitTarget,
		RealizedPnL:   28.5,
	}
	require.NoError(t, ps.SettleClose(pos, rec))
	assert.Empty(t, ps.OpenPositions)
	assert.Len(t, ps.ClosedTrades, 1)
	assert.InDelta(t, 25028.5, ps.CashBalance, 1e-9)
	assert.InDelta(t, 28.5, ps.DayRealized(exitTS), 1e-9)
	assert.InDelta(t, 28.5, ps.RealizedPnL(), 1e-9)

	// Cash + unrealized = equity after the close.
	assert.InDelta(t, ps.Equity(), ps.CashBalance+ps.UnrealizedPnL(), 1e-9)

	assert.Error(t, ps.SettleClose(pos, rec), "double close rejected")
}

func TestMarkEquityTracksDrawdown(t *testing.T) {
	ps := NewPortfolioState(10000)
	base := time.Date(2025, 8, 1, 14, 0, 0, 0, time.UTC)

	ps.MarkEquity(base)
	ps.CashBalance = 11000
	ps.MarkEquity(base.Add(time.Minute))
	ps.CashBalance = 9900
	ps.MarkEquity(base.Add(2 * time.Minute))

	assert.Len(t, ps.EquityCurve, 3)
	assert.Equal(t, 11000.0, ps.PeakBalance)
	assert.InDelta(t, (11000.0-9900.0)/11000.0, ps.MaxDrawdown, 1e-9)
}

func TestBarWindowRollingCap(t *testing.T) {
	w := NewBarWindow(3)
	base := time.Date(2025, 8, 1, 14, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, w.Append(Bar{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Open:      100, High: 101, Low: 99, Close: 100,
		}))
	}
	assert.Equal(t, 3, w.Len())
	last, ok := w.Last()
	require.True(t, ok)
	assert.Equal(t, base.Add(4*time.Minute), last.Timestamp)

	// Out-of-order timestamps are rejected.
	assert.Error(t, w.Append(Bar{Timestamp: base, Open: 100, High: 101, Low: 99, Close: 100}))

	// OHLC ordering enforced.
	assert.Error(t, w.Append(Bar{
		Timestamp: base.Add(10 * time.Minute),
		Open:      100, High: 99, Low: 99, Close: 100,
	}))
}

func TestChainSelectors(t *testing.T) {
	chain := &OptionsChain{
		Underlying: "SPY",
		Timestamp:  time.Date(2025, 8, 1, 14, 30, 0, 0, time.UTC),
		Contracts: []OptionContract{
			*testPut(445, 1.20, 1.25, -0.30),
			*testPut(440, 0.60, 0.65, -0.18),
			*testCall(455, 1.10, 1.15, 0.28),
			*testCall(500, 0.05, 0.10, 0.02),
		},
	}

	assert.Len(t, chain.Puts(), 2)
	assert.Len(t, chain.Calls(), 2)
	assert.Len(t, chain.NearTheMoney(450, 10), 3)

	c := chain.AtStrike(445, SidePut)
	require.NotNil(t, c)
	assert.InDelta(t, 1.225, c.Mid(), 1e-9)
	assert.Nil(t, chain.AtStrike(447, SidePut))

	// Staleness relative to the cycle interval.
	now := chain.Timestamp.Add(20 * time.Minute)
	assert.True(t, chain.IsStale(now, 15*time.Minute))
	assert.False(t, chain.IsStale(chain.Timestamp.Add(5*time.Minute), 15*time.Minute))
}
