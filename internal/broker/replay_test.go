package broker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eddiefleurent/stamford_condor/internal/models"
)

var replayBase = time.Date(2025, 8, 1, 13, 30, 0, 0, time.UTC)

func replayFixture() *ReplayAdapter {
	bars := []models.Bar{
		{Timestamp: replayBase, Open: 450, High: 451, Low: 449, Close: 450.5, Volume: 1000},
		{Timestamp: replayBase.Add(15 * time.Minute), Open: 450.5, High: 452, Low: 450, Close: 451.5, Volume: 1200},
		{Timestamp: replayBase.Add(30 * time.Minute), Open: 451.5, High: 452, Low: 450.5, Close: 451, Volume: 900},
	}
	chains := []*models.OptionsChain{
		{Underlying: "SPY", Timestamp: replayBase},
		{Underlying: "SPY", Timestamp: replayBase.Add(30 * time.Minute)},
	}
	return NewReplayAdapter("SPY", bars, chains, 25000)
}

func TestReplayCursorGatesData(t *testing.T) {
	r := replayFixture()
	ctx := context.Background()

	// Nothing visible before the cursor moves.
	_, err := r.GetCurrentPrice(ctx, "SPY")
	assert.ErrorIs(t, err, ErrNoData)

	r.Advance(replayBase.Add(16 * time.Minute))
	price, err := r.GetCurrentPrice(ctx, "SPY")
	require.NoError(t, err)
	assert.Equal(t, 451.5, price, "close of the latest bar at or before the cursor")

	bars, err := r.GetBars(ctx, "SPY", replayBase, replayBase.Add(time.Hour), Timeframe15Min)
	require.NoError(t, err)
	assert.Len(t, bars, 2, "the third bar is still in the future")
}

func TestReplayChainSelection(t *testing.T) {
	r := replayFixture()
	ctx := context.Background()

	r.Advance(replayBase.Add(5 * time.Minute))
	chain, err := r.GetOptionsChain(ctx, "SPY", replayBase)
	require.NoError(t, err)
	assert.Equal(t, replayBase, chain.Timestamp)

	r.Advance(replayBase.Add(45 * time.Minute))
	chain, err = r.GetOptionsChain(ctx, "SPY", replayBase)
	require.NoError(t, err)
	assert.Equal(t, replayBase.Add(30*time.Minute), chain.Timestamp, "latest snapshot wins")
}

func TestReplayRejectsOtherSymbols(t *testing.T) {
	r := replayFixture()
	r.Advance(replayBase.Add(time.Hour))
	_, err := r.GetCurrentPrice(context.Background(), "QQQ")
	assert.Error(t, err)
}

func TestReplayOrderIDsAreDeterministic(t *testing.T) {
	r := replayFixture()
	ctx := context.Background()

	first, err := r.SubmitSpreadOrder(ctx, &models.SpreadDescriptor{}, 1)
	require.NoError(t, err)
	second, err := r.ClosePosition(ctx, &models.Position{})
	require.NoError(t, err)

	assert.Equal(t, []string{"replay-000001"}, first.OrderIDs)
	assert.Equal(t, []string{"replay-000002"}, second.OrderIDs)
	assert.Equal(t, "filled", first.Status)
}

func TestTimeframeDurations(t *testing.T) {
	assert.Equal(t, time.Minute, Timeframe1Min.Duration())
	assert.Equal(t, 15*time.Minute, Timeframe15Min.Duration())
	assert.Equal(t, 24*time.Hour, Timeframe1Day.Duration())
	assert.True(t, Timeframe5Min.Valid())
	assert.False(t, Timeframe("3m").Valid())
}

func TestUnderlyingOf(t *testing.T) {
	assert.Equal(t, "SPY", underlyingOf("SPY250801P00445000"))
	assert.Equal(t, "QQQQ", underlyingOf("QQQQ250801C00380000"))
	assert.Equal(t, "SPY", underlyingOf("SPY"))
}
