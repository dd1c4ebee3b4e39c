package strategy

import (
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eddiefleurent/stamford_condor/internal/indicators"
	"github.com/eddiefleurent/stamford_condor/internal/models"
	"github.com/eddiefleurent/stamford_condor/internal/regime"
)

const (
	// ntmBandPct defines near-the-money as within 10% of spot.
	ntmBandPct = 0.10
	// minNTMContracts is the floor for a judgeable liquidity sample.
	minNTMContracts = 4
	// maxJunkQuotePct caps the share of sub-$0.05 bids / >$50 asks.
	maxJunkQuotePct = 0.30
	// minDeltaRange requires the NTM set to span real moneyness.
	minDeltaRange = 0.3
	// vixIVDivergence is the allowed gap between VIX/100 and mean chain IV.
	vixIVDivergence = 0.15
)

// Selector runs the admission gates and delegates to the spread builders.
type Selector struct {
	cfg      Config
	detector *regime.Detector
	logger   *logrus.Logger
}

// NewSelector creates a strategy selector.
func NewSelector(cfg Config, logger *logrus.Logger) *Selector {
	if logger == nil {
		logger = logrus.New()
	}
	return &Selector{
		cfg:      cfg,
		detector: regime.NewDetector(cfg.Indicators),
		logger:   logger,
	}
}

// Evaluate runs one selection pass. vix <= 0 means no VIX reading.
// Gates run in order; the first failure yields NO_TRADE with its reason.
func (s *Selector) Evaluate(bars []models.Bar, chain *models.OptionsChain, price, vix float64, now time.Time) TradeSignal {
	ind, haveInd := indicators.Compute(bars, s.cfg.Indicators)
	reg := s.detector.Detect(bars, vix)

	if !haveInd {
		return noTrade("insufficient bar history for indicators", reg, ind, now)
	}

	// Gate 1: regime confidence.
	if reg.Confidence < s.cfg.MinRegimeConfidence {
		return noTrade(fmt.Sprintf("regime confidence %.0f below %.0f",
			reg.Confidence, s.cfg.MinRegimeConfidence), reg, ind, now)
	}

	// Gate 2: volatility.
	if reason := s.volatilityGate(chain, vix); reason != "" {
		return noTrade(reason, reg, ind, now)
	}

	// Gate 3: liquidity on the near-the-money set.
	if reason := s.liquidityGate(chain, price); reason != "" {
		return noTrade(reason, reg, ind, now)
	}

	// Gate 4: strategy mapping, then delegate to the builder.
	action := s.mapRegime(reg, ind)
	spread := s.build(action, chain, price, ind, now)
	if spread == nil {
		return noTrade(fmt.Sprintf("no %s candidate cleared builder floors", action), reg, ind, now)
	}

	s.logger.WithFields(logrus.Fields{
		"action": action,
		"credit": spread.NetCredit,
		"pop":    spread.PoP,
	}).Debug("strategy selected")

	return TradeSignal{
		Action:     action,
		Confidence: reg.Confidence,
		Reason:     fmt.Sprintf("%s regime (%.0f): %s", reg.Regime, reg.Confidence, action),
		Indicators: ind,
		Regime:     reg,
		Timestamp:  now,
		Spread:     spread,
	}
}

// volatilityGate returns a rejection reason or "".
func (s *Selector) volatilityGate(chain *models.OptionsChain, vix float64) string {
	meanIV, n := chain.MeanIV()
	if n == 0 {
		return "chain carries no implied volatility"
	}
	if meanIV < s.cfg.MinIV {
		return fmt.Sprintf("IV too low: mean %.2f < %.2f", meanIV, s.cfg.MinIV)
	}
	if meanIV > s.cfg.MaxIV {
		return fmt.Sprintf("IV too high: mean %.2f > %.2f", meanIV, s.cfg.MaxIV)
	}
	if vix > 0 && s.cfg.VIXMax > 0 {
		if vix > s.cfg.VIXMax {
			return fmt.Sprintf("VIX %.1f above cap %.1f", vix, s.cfg.VIXMax)
		}
		if math.Abs(vix/100-meanIV) > vixIVDivergence {
			return fmt.Sprintf("VIX/chain IV divergence: |%.2f - %.2f| > %.2f",
				vix/100, meanIV, vixIVDivergence)
		}
	}
	return ""
}

// liquidityGate returns a rejection reason or "".
func (s *Selector) liquidityGate(chain *models.OptionsChain, price float64) string {
	ntm := chain.NearTheMoney(price, ntmBandPct*price)
	if len(ntm) < minNTMContracts {
		return fmt.Sprintf("only %d near-the-money contracts (need %d)", len(ntm), minNTMContracts)
	}

	var spreadSum float64
	var junk int
	var volSum, oiSum int64
	var volN int
	minDelta, maxDelta := math.MaxFloat64, -math.MaxFloat64
	for _, c := range ntm {
		spreadSum += c.SpreadPct()
		if c.Bid < 0.05 || c.Ask > 50 {
			junk++
		}
		if c.Volume > 0 || c.OpenInterest > 0 {
			volSum += c.Volume
			oiSum += c.OpenInterest
			volN++
		}
		d := math.Abs(c.Delta)
		if d < minDelta {
			minDelta = d
		}
		if d > maxDelta {
			maxDelta = d
		}
	}

	if avg := spreadSum / float64(len(ntm)); avg > s.cfg.MaxBidAskSpreadPct {
		return fmt.Sprintf("bid-ask spreads too wide: avg %.0f%% > %.0f%%",
			avg*100, s.cfg.MaxBidAskSpreadPct*100)
	}
	if pct := float64(junk) / float64(len(ntm)); pct > maxJunkQuotePct {
		return fmt.Sprintf("%.0f%% of NTM quotes unusable", pct*100)
	}
	if volN > 0 {
		if avgVol := float64(volSum) / float64(volN); avgVol < float64(s.cfg.MinVolume) {
			return fmt.Sprintf("average volume %.0f below %d", avgVol, s.cfg.MinVolume)
		}
		if avgOI := float64(oiSum) / float64(volN); avgOI < float64(s.cfg.MinOpenInterest) {
			return fmt.Sprintf("average open interest %.0f below %d", avgOI, s.cfg.MinOpenInterest)
		}
	}
	if maxDelta-minDelta < minDeltaRange {
		return fmt.Sprintf("NTM delta range %.2f too narrow", maxDelta-minDelta)
	}
	return ""
}

// mapRegime picks the strategy variant for the classified regime.
func (s *Selector) mapRegime(reg regime.MarketRegime, ind indicators.Indicators) Action {
	switch reg.Regime {
	case regime.Bullish:
		if s.cfg.UseNakedOptions {
			return ActionNakedCall
		}
		return ActionBullPut
	case regime.Bearish:
		if s.cfg.UseNakedOptions {
			return ActionNakedPut
		}
		return ActionBearCall
	default:
		if s.cfg.UseNakedOptions {
			if ind.RSI <= s.cfg.RSIOversold {
				return ActionNakedCall
			}
			if ind.RSI >= s.cfg.RSIOverbought {
				return ActionNakedPut
			}
		}
		return ActionIronCondor
	}
}

// build dispatches to the variant's builder.
func (s *Selector) build(action Action, chain *models.OptionsChain, price float64,
	ind indicators.Indicators, now time.Time) *models.SpreadDescriptor {
	switch action {
	case ActionBullPut:
		return BuildBullPut(chain, price, ind, s.cfg)
	case ActionBearCall:
		return BuildBearCall(chain, price, ind, s.cfg)
	case ActionIronCondor:
		return BuildIronCondor(chain, price, ind, s.cfg)
	case ActionNakedCall:
		return BuildNakedCall(chain, price, s.cfg)
	case ActionNakedPut:
		return BuildNakedPut(chain, price, s.cfg)
	default:
		return nil
	}
}
