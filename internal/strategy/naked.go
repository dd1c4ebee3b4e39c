package strategy

import (
	"math"

	"github.com/eddiefleurent/stamford_condor/internal/models"
)

// nakedDeltaTarget picks contracts near 0.40 delta: enough directionality to
// pay off, enough premium structure to quote tightly.
const nakedDeltaTarget = 0.40

// BuildNakedCall selects a long call for the directional variant engine.
func BuildNakedCall(chain *models.OptionsChain, price float64, cfg Config) *models.SpreadDescriptor {
	best := pickNakedLeg(chain.Calls(), price)
	if best == nil {
		return nil
	}
	debit := best.Ask
	if debit <= 0 {
		return nil
	}
	return &models.SpreadDescriptor{
		Kind:      models.SpreadNakedCall,
		LongCall:  best,
		NetDebit:  debit,
		MaxLoss:   debit,
		Breakeven: models.PriceZone{Lo: best.Strike + debit},
		PoP:       clamp01(math.Abs(best.Delta), 0.05, 0.95),
	}
}

// BuildNakedPut selects a long put for the directional variant engine.
func BuildNakedPut(chain *models.OptionsChain, price float64, cfg Config) *models.SpreadDescriptor {
	best := pickNakedLeg(chain.Puts(), price)
	if best == nil {
		return nil
	}
	debit := best.Ask
	if debit <= 0 {
		return nil
	}
	return &models.SpreadDescriptor{
		Kind:      models.SpreadNakedPut,
		LongPut:   best,
		NetDebit:  debit,
		MaxLoss:   debit,
		Breakeven: models.PriceZone{Hi: best.Strike - debit},
		PoP:       clamp01(math.Abs(best.Delta), 0.05, 0.95),
	}
}

// pickNakedLeg returns a copy of the quotable contract closest to the target
// delta, or nil.
func pickNakedLeg(contracts []models.OptionContract, price float64) *models.OptionContract {
	var best *models.OptionContract
	bestDiff := math.MaxFloat64
	for i := range contracts {
		c := contracts[i]
		if !quotable(c) || c.Delta == 0 {
			continue
		}
		diff := math.Abs(math.Abs(c.Delta) - nakedDeltaTarget)
		if diff < bestDiff {
			bestDiff = diff
			cCopy := c
			best = &cCopy
		}
	}
	return best
}
