package util

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundToTick(t *testing.T) {
	assert.InDelta(t, 1.23, RoundToTick(1.2345, 0.01), 1e-9)
	assert.InDelta(t, 1.25, RoundToTick(1.26, 0.05), 1e-9)
	assert.Equal(t, 1.23, RoundToTick(1.23, 0), "zero tick passes through")
}

func TestFloorAndCeilToTick(t *testing.T) {
	assert.InDelta(t, 1.23, FloorToTick(1.239, 0.01), 1e-9)
	assert.InDelta(t, 1.24, CeilToTick(1.231, 0.01), 1e-9)
	assert.InDelta(t, 0.55, FloorToTick(0.559, 0.05), 1e-9)
}

func TestNonFiniteInputsPassThrough(t *testing.T) {
	assert.True(t, math.IsNaN(RoundToTick(math.NaN(), 0.01)))
	assert.True(t, math.IsInf(FloorToTick(math.Inf(1), 0.01), 1))
	assert.Equal(t, 1.5, CeilToTick(1.5, math.NaN()))
}
