package strategy

import (
	"github.com/eddiefleurent/stamford_condor/internal/indicators"
	"github.com/eddiefleurent/stamford_condor/internal/models"
)

// BuildBullPut constructs the best put credit spread below spot, or nil when
// no candidate clears the floors.
func BuildBullPut(chain *models.OptionsChain, price float64, ind indicators.Indicators, cfg Config) *models.SpreadDescriptor {
	puts := chain.Puts()

	var cands []candidate
	for i := range puts {
		short := puts[i]
		if short.Strike >= price || !quotable(short) || !shortLegOK(short) {
			continue
		}
		for j := range puts {
			long := puts[j]
			if !quotable(long) || long.Strike >= short.Strike {
				continue
			}
			width := short.Strike - long.Strike
			if width < cfg.VerticalWidthMin || width > cfg.VerticalWidthMax {
				continue
			}
			// Wings sit further out than the leg they protect.
			if abs(long.Delta) >= abs(short.Delta) {
				continue
			}
			credit := short.Bid - long.Ask
			if credit < cfg.MinNetCredit || credit <= 0 {
				continue
			}

			breakeven := short.Strike - credit
			pop := probAbove(price, breakeven, short.IV, chainTTE(chain, short), ind, true)

			shortCopy, longCopy := short, long
			spread := &models.SpreadDescriptor{
				Kind:      models.SpreadBullPut,
				ShortPut:  &shortCopy,
				LongPut:   &longCopy,
				NetCredit: credit,
				MaxProfit: credit,
				MaxLoss:   width - credit,
				Breakeven: models.PriceZone{Lo: breakeven},
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

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
