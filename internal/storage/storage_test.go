package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eddiefleurent/stamford_condor/internal/models"
)

func samplePortfolio() *models.PortfolioState {
	ps := models.NewPortfolioState(25000)
	ps.CashBalance = 25130.50
	_ = ps.AddOpen(&models.Position{
		ID:       "pos-1",
		Symbol:   "SPY",
		State:    models.StateOpen,
		Quantity: 1,
		Spread: models.SpreadDescriptor{
			Kind:      models.SpreadBullPut,
			ShortPut:  &models.OptionContract{Symbol: "SPY250801P00445000", Side: models.SidePut, Strike: 445, Bid: 1.20, Ask: 1.25, Delta: -0.30},
			LongPut:   &models.OptionContract{Symbol: "SPY250801P00440000", Side: models.SidePut, Strike: 440, Bid: 0.60, Ask: 0.65, Delta: -0.18},
			NetCredit: 0.55, MaxProfit: 0.55, MaxLoss: 4.45,
		},
		Entry: models.EntryDetail{
			Timestamp: time.Date(2025, 8, 1, 14, 30, 0, 0, time.UTC),
			Price:     0.53,
		},
	})
	ps.MarkEquity(time.Date(2025, 8, 1, 14, 45, 0, 0, time.UTC))
	return ps
}

func sampleTrade(id string) models.TradeRecord {
	return models.TradeRecord{
		PositionID:    id,
		Symbol:        "SPY",
		Quantity:      1,
		EntryPrice:    0.53,
		ExitTimestamp: time.Date(2025, 8, 1, 19, 0, 0, 0, time.UTC),
		ExitPrice:     0.25,
		ExitReason:    models.ExitProfitTarget,
		RealizedPnL:   26.40,
		PnLPct:        49.8,
	}
}

func testBackends(t *testing.T) map[string]Interface {
	t.Helper()
	dir := t.TempDir()
	js, err := NewJSONStorage(filepath.Join(dir, "portfolio.json"))
	require.NoError(t, err)
	sq, err := NewSQLiteStorage(filepath.Join(dir, "trades.db"))
	require.NoError(t, err)
	return map[string]Interface{"json": js, "sqlite": sq}
}

func TestPortfolioRoundTrip(t *testing.T) {
	for name, store := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			ps := samplePortfolio()
			require.NoError(t, store.SavePortfolio(ps))

			loaded, err := store.LoadPortfolio()
			require.NoError(t, err)
			require.NotNil(t, loaded)

			assert.Equal(t, ps.InitialBalance, loaded.InitialBalance)
			assert.Equal(t, ps.CashBalance, loaded.CashBalance)
			require.Len(t, loaded.OpenPositions, 1)
			pos := loaded.OpenPositions["pos-1"]
			require.NotNil(t, pos)
			assert.Equal(t, models.SpreadBullPut, pos.Spread.Kind)
			assert.InDelta(t, 0.53, pos.Entry.Price, 1e-9)
			assert.Equal(t, len(ps.EquityCurve), len(loaded.EquityCurve))
			assert.InDelta(t, ps.Equity(), loaded.Equity(), 1e-9,
				"reloading and replaying zero cycles preserves equity")
		})
	}
}

func TestEmptyLoadReturnsNil(t *testing.T) {
	for name, store := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			ps, err := store.LoadPortfolio()
			require.NoError(t, err)
			assert.Nil(t, ps)
		})
	}
}

func TestTradeLogAppendOnly(t *testing.T) {
	for name, store := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.AppendTrade(sampleTrade("a")))
			require.NoError(t, store.AppendTrade(sampleTrade("b")))

			trades, err := store.Trades()
			require.NoError(t, err)
			require.Len(t, trades, 2)
			assert.Equal(t, "a", trades[0].PositionID)
			assert.Equal(t, "b", trades[1].PositionID)
			assert.Equal(t, models.ExitProfitTarget, trades[0].ExitReason)
			assert.InDelta(t, 26.40, trades[0].RealizedPnL, 1e-9)
		})
	}
}

func TestJSONStorageReopens(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "portfolio.json")

	first, err := NewJSONStorage(path)
	require.NoError(t, err)
	require.NoError(t, first.SavePortfolio(samplePortfolio()))
	require.NoError(t, first.AppendTrade(sampleTrade("a")))

	second, err := NewJSONStorage(path)
	require.NoError(t, err)
	loaded, err := second.LoadPortfolio()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	trades, err := second.Trades()
	require.NoError(t, err)
	assert.Len(t, trades, 1)
}

func TestNewSelectsDriver(t *testing.T) {
	dir := t.TempDir()
	js, err := New(Config{Driver: "json", Path: filepath.Join(dir, "p.json")})
	require.NoError(t, err)
	assert.IsType(t, &JSONStorage{}, js)

	sq, err := New(Config{Driver: "sqlite", SQLitePath: filepath.Join(dir, "t.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStorage{}, sq)

	_, err = New(Config{Driver: "bolt"})
	assert.Error(t, err)
}
