package costs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eddiefleurent/stamford_condor/internal/models"
)

func quoted(side models.OptionSide, strike, bid, ask float64) models.OptionContract {
	return models.OptionContract{
		Symbol: "SPY250801X00445000", Side: side, Strike: strike,
		Expiration: time.Date(2025, 8, 1, 20, 0, 0, 0, time.UTC),
		Bid:        bid, Ask: ask,
	}
}

func TestSimulateFillSlippageByCondition(t *testing.T) {
	e := NewEngine(DefaultConfig())
	c := quoted(models.SidePut, 445, 1.20, 1.30) // spread 0.10

	tests := []struct {
		cond     MarketCondition
		buyPx    float64
		sellPx   float64
	}{
		{Benign, 1.305, 1.195},
		{Normal, 1.31, 1.19},
		{Stressed, 1.325, 1.175},
	}
	for _, tt := range tests {
		t.Run(string(tt.cond), func(t *testing.T) {
			buy := e.SimulateFill(Buy, c, 1, tt.cond)
			sell := e.SimulateFill(Sell, c, 1, tt.cond)
			assert.InDelta(t, tt.buyPx, buy.ExecutedPrice, 1e-9)
			assert.InDelta(t, tt.sellPx, sell.ExecutedPrice, 1e-9)
		})
	}
}

func TestSimulateFillFees(t *testing.T) {
	e := NewEngine(DefaultConfig())
	c := quoted(models.SidePut, 445, 1.20, 1.30)

	sell := e.SimulateFill(Sell, c, 2, Normal)
	assert.InDelta(t, 1.30, sell.Commission, 1e-9, "0.65 x 2 contracts")
	assert.InDelta(t, 0.06, sell.RegulatoryFees, 1e-9, "regulatory fees on sells only")
	assert.InDelta(t, 1.36, sell.Total, 1e-9)

	buy := e.SimulateFill(Buy, c, 2, Normal)
	assert.Zero(t, buy.RegulatoryFees)
	assert.InDelta(t, 1.30, buy.Total, 1e-9)
}

func TestSellNeverFillsBelowFloor(t *testing.T) {
	e := NewEngine(DefaultConfig())
	junk := quoted(models.SidePut, 400, 0.01, 0.06)
	fill := e.SimulateFill(Sell, junk, 1, Stressed)
	assert.GreaterOrEqual(t, fill.ExecutedPrice, 0.01)
}

func TestOpenSpreadNetReceived(t *testing.T) {
	e := NewEngine(DefaultConfig())
	legs := []models.SpreadLeg{
		{Contract: quoted(models.SidePut, 445, 1.20, 1.25), Side: models.LegShort},
		{Contract: quoted(models.SidePut, 440, 0.60, 0.65), Side: models.LegLong},
	}
	sc := e.OpenSpread(legs, 1, Normal)
	require.Len(t, sc.Fills, 2)

	// Short leg sells at 1.20 - 0.005, long leg buys at 0.65 + 0.005.
	gross := (1.195 - 0.655) * 100
	fees := 0.65 + 0.03 + 0.65
	assert.InDelta(t, fees, sc.TotalCost, 1e-9)
	assert.InDelta(t, gross-fees, sc.NetReceived, 1e-9)
	assert.InDelta(t, (gross-fees)/100, sc.RealizedCredit(1), 1e-9)

	require.NoError(t, e.CheckEntryCredit(sc, 1))
}

func TestCloseSpreadReversesSides(t *testing.T) {
	e := NewEngine(DefaultConfig())
	legs := []models.SpreadLeg{
		{Contract: quoted(models.SidePut, 445, 0.20, 0.25), Side: models.LegShort},
		{Contract: quoted(models.SidePut, 440, 0.05, 0.10), Side: models.LegLong},
	}
	sc := e.CloseSpread(legs, 1, Normal)

	// Closing buys back the short and sells the long: net paid.
	assert.Negative(t, sc.NetReceived)
	assert.Equal(t, "buy", sc.Fills[0].Side)
	assert.Equal(t, "sell", sc.Fills[1].Side)
}

func TestEntryCreditFloorRejection(t *testing.T) {
	e := NewEngine(DefaultConfig())
	legs := []models.SpreadLeg{
		{Contract: quoted(models.SidePut, 445, 0.70, 0.75), Side: models.LegShort},
		{Contract: quoted(models.SidePut, 444, 0.62, 0.68), Side: models.LegLong},
	}
	sc := e.OpenSpread(legs, 1, Normal)
	err := e.CheckEntryCredit(sc, 1)
	require.Error(t, err, "costs eat the thin credit below the floor")
	assert.Contains(t, err.Error(), "below floor")
}
