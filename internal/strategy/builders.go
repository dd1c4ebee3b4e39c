package strategy

import (
	"math"
	"sort"

	"github.com/eddiefleurent/stamford_condor/internal/indicators"
	"github.com/eddiefleurent/stamford_condor/internal/models"
)

// Short-leg delta bands. Wings must carry strictly smaller |delta| than their
// short leg.
const (
	shortLegDeltaMin = 0.05
	shortLegDeltaMax = 0.50
)

// Composite score weights for ranking surviving candidates.
const (
	weightCredit     = 0.35
	weightQuality    = 0.30
	weightRiskReward = 0.20
	weightPoP        = 0.15
)

// candidate pairs a built descriptor with its ranking score.
type candidate struct {
	spread *models.SpreadDescriptor
	score  float64
	width  float64
}

// pickBest ranks candidates by composite score; ties break to higher PoP,
// then tighter wings.
func pickBest(cands []candidate) *models.SpreadDescriptor {
	if len(cands) == 0 {
		return nil
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].score != cands[j].score {
			return cands[i].score > cands[j].score
		}
		if cands[i].spread.PoP != cands[j].spread.PoP {
			return cands[i].spread.PoP > cands[j].spread.PoP
		}
		return cands[i].width < cands[j].width
	})
	return cands[0].spread
}

// quotable requires strictly positive two-sided markets.
func quotable(c models.OptionContract) bool {
	return c.Bid > 0 && c.Ask > 0 && c.Ask >= c.Bid
}

// shortLegOK checks the short-leg delta band.
func shortLegOK(c models.OptionContract) bool {
	d := math.Abs(c.Delta)
	return d >= shortLegDeltaMin && d <= shortLegDeltaMax
}

// probAbove estimates P(S_T > level) from a lognormal move, shaped by
// indicator alignment. bullish=true adds the bonus when momentum agrees with
// staying above the level.
func probAbove(price, level, iv, tte float64, ind indicators.Indicators, bullish bool) float64 {
	if price <= 0 || level <= 0 {
		return 0
	}
	var p float64
	if iv > 0 && tte > 0 {
		d := math.Log(price/level) / (iv * math.Sqrt(tte))
		p = normCDF(d)
	} else {
		// Distance fallback when the chain carries no IV.
		p = 0.5 + (price-level)/price*2
	}
	p += momentumShaping(ind, bullish)
	return clamp01(p, 0.05, 0.95)
}

// momentumShaping nudges PoP when RSI/MACD agree with the trade direction.
func momentumShaping(ind indicators.Indicators, bullish bool) float64 {
	var bonus float64
	if bullish {
		if ind.RSI > 50 {
			bonus += 0.03
		}
		if ind.MACDHistogram > 0 {
			bonus += 0.02
		}
	} else {
		if ind.RSI < 50 {
			bonus += 0.03
		}
		if ind.MACDHistogram < 0 {
			bonus += 0.02
		}
	}
	return bonus
}

// verticalScore computes the composite ranking score for a credit vertical.
// credit richness is judged against width, geometric quality against the
// short strike's distance from spot.
func verticalScore(credit, width, shortStrike, price, pop float64) float64 {
	creditScore := clamp01(credit/width/0.5, 0, 1)
	quality := clamp01(math.Abs(price-shortStrike)/price/0.05, 0, 1)
	rr := 0.0
	if maxLoss := width - credit; maxLoss > 0 {
		rr = clamp01(credit/maxLoss/0.5, 0, 1)
	}
	return weightCredit*creditScore + weightQuality*quality + weightRiskReward*rr + weightPoP*pop
}

func clamp01(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// normCDF is the cumulative standard normal distribution.
func normCDF(z float64) float64 {
	return 0.5 * (1 + math.Erf(z/math.Sqrt2))
}

// chainTTE derives year-fraction time to expiration from the chain snapshot
// timestamp; same-day expirations get an intraday floor so the CDF stays
// informative.
func chainTTE(chain *models.OptionsChain, c models.OptionContract) float64 {
	tte := c.Expiration.Sub(chain.Timestamp).Hours() / (365.0 * 24.0)
	const intradayFloor = 1.0 / 365.0 / 6.5 // one trading hour
	if tte < intradayFloor {
		return intradayFloor
	}
	return tte
}
