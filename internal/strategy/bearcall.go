package strategy

import (
	"github.com/eddiefleurent/stamford_condor/internal/indicators"
	"github.com/eddiefleurent/stamford_condor/internal/models"
)

// BuildBearCall constructs the best call credit spread above spot, or nil
// when no candidate clears the floors.
func BuildBearCall(chain *models.OptionsChain, price float64, ind indicators.Indicators, cfg Config) *models.SpreadDescriptor {
	calls := chain.Calls()

	var cands []candidate
	for i := range calls {
		short := calls[i]
		if short.Strike <= price || !quotable(short) || !shortLegOK(short) {
			continue
		}
		for j := range calls {
			long := calls[j]
			if !quotable(long) || long.Strike <= short.Strike {
				continue
			}
			width := long.Strike - short.Strike
			if width < cfg.VerticalWidthMin || width > cfg.VerticalWidthMax {
				continue
			}
			if abs(long.Delta) >= abs(short.Delta) {
				continue
			}
			credit := short.Bid - long.Ask
			if credit < cfg.MinNetCredit || credit <= 0 {
				continue
			}

			breakeven := short.Strike + credit
			// Bear call profits below breakeven.
			pop := 1 - probAbove(price, breakeven, short.IV, chainTTE(chain, short), ind, true)
			pop += momentumShaping(ind, false)
			pop = clamp01(pop, 0.05, 0.95)

			shortCopy, longCopy := short, long
			spread := &models.SpreadDescriptor{
				Kind:      models.SpreadBearCall,
				ShortCall: &shortCopy,
				LongCall:  &longCopy,
				NetCredit: credit,
				MaxProfit: credit,
				MaxLoss:   width - credit,
				Breakeven: models.PriceZone{Hi: breakeven},
				PoP:       pop,
			}
			cands = append(cands, candidate{
				spread: spread,
				score:  verticalScore(credit, width, short.Strike, price, pop),
				width:  width,
			})
		}
	}
	return pickBest(cands)
}
