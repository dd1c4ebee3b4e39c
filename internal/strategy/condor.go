package strategy

import (
	"math"

	"github.com/eddiefleurent/stamford_condor/internal/indicators"
	"github.com/eddiefleurent/stamford_condor/internal/models"
)

// Condor ranking weights favor credit slightly over the verticals' weighting.
const (
	condorWeightCredit  = 0.40
	condorWeightQuality = 0.30
	condorWeightRR      = 0.20
	condorWeightPoP     = 0.10
)

// BuildIronCondor constructs the best balanced-wing iron condor around spot,
// or nil when no combination clears the floors.
func BuildIronCondor(chain *models.OptionsChain, price float64, ind indicators.Indicators, cfg Config) *models.SpreadDescriptor {
	puts := chain.Puts()
	calls := chain.Calls()
	widths := cfg.CondorWingWidths
	if len(widths) == 0 {
		widths = []float64{5, 10, 15}
	}

	var cands []candidate
	for pi := range puts {
		shortPut := puts[pi]
		if shortPut.Strike >= price || !quotable(shortPut) || !shortLegOK(shortPut) {
			continue
		}
		for ci := range calls {
			shortCall := calls[ci]
			if shortCall.Strike <= price || !quotable(shortCall) || !shortLegOK(shortCall) {
				continue
			}
			for _, width := range widths {
				longPut := chain.AtStrike(shortPut.Strike-width, models.SidePut)
				longCall := chain.AtStrike(shortCall.Strike+width, models.SideCall)
				if longPut == nil || longCall == nil || !quotable(*longPut) || !quotable(*longCall) {
					continue
				}
				if abs(longPut.Delta) >= abs(shortPut.Delta) || abs(longCall.Delta) >= abs(shortCall.Delta) {
					continue
				}
				putCredit := shortPut.Bid - longPut.Ask
				callCredit := shortCall.Bid - longCall.Ask
				credit := putCredit + callCredit
				if credit < cfg.MinNetCredit || credit <= 0 {
					continue
				}

				zone := models.PriceZone{Lo: shortPut.Strike, Hi: shortCall.Strike}
				pop := condorPoP(price, zone, credit, shortPut.IV, chainTTE(chain, shortPut), ind)

				spCopy, lpCopy, scCopy, lcCopy := shortPut, *longPut, shortCall, *longCall
				spread := &models.SpreadDescriptor{
					Kind:      models.SpreadIronCondor,
					ShortPut:  &spCopy,
					LongPut:   &lpCopy,
					ShortCall: &scCopy,
					LongCall:  &lcCopy,
					NetCredit: credit,
					MaxProfit: credit,
					MaxLoss:   width - credit,
					Breakeven: models.PriceZone{
						Lo: shortPut.Strike - credit,
						Hi: shortCall.Strike + credit,
					},
					ProfitZone: zone,
					PoP:        pop,
				}
				if spread.Validate() != nil {
					continue
				}

				creditScore := clamp01(credit/width/0.3, 0, 1)
				quality := clamp01((zone.Hi-zone.Lo)/price/0.05, 0, 1)
				rr := clamp01(credit/(width-credit)/0.3, 0, 1)
				score := condorWeightCredit*creditScore + condorWeightQuality*quality +
					condorWeightRR*rr + condorWeightPoP*pop
				cands = append(cands, candidate{spread: spread, score: score, width: width})
			}
		}
	}
	return pickBest(cands)
}

// condorPoP estimates the probability of settling inside the profit zone:
// zone width normalized to expected move, with low-vol and neutral-RSI
// bonuses, penalized when spot crowds a short strike.
func condorPoP(price float64, zone models.PriceZone, credit, iv, tte float64, ind indicators.Indicators) float64 {
	var p float64
	if iv > 0 && tte > 0 {
		// P(lo < S_T < hi) under a lognormal move, against the breakevens
		// (the credit pushes them past the short strikes).
		sigma := iv * math.Sqrt(tte)
		upper := normCDF(math.Log((zone.Hi+credit)/price) / sigma)
		lower := normCDF(math.Log((zone.Lo-credit)/price) / sigma)
		p = upper - lower
	} else {
		p = clamp01((zone.Hi-zone.Lo)/price/0.06, 0, 1) * 0.8
	}

	if iv > 0 && iv < 0.20 {
		p += 0.03
	}
	if ind.RSI > 40 && ind.RSI < 60 {
		p += 0.03
	}
	// Penalize short strikes hugging spot.
	nearest := math.Min(price-zone.Lo, zone.Hi-price)
	if nearest < 0.01*price {
		p -= 0.10
	}
	return clamp01(p, 0.05, 0.95)
}
