// Package regime classifies the market as bullish, bearish or neutral with a
// confidence score, from the indicator kernel plus a 20-bar trend SMA.
package regime

import (
	"fmt"

	"github.com/eddiefleurent/stamford_condor/internal/indicators"
	"github.com/eddiefleurent/stamford_condor/internal/models"
)

// Kind is the coarse market classification.
type Kind string

const (
	// Bullish favors put-side credit structures.
	Bullish Kind = "bullish"
	// Bearish favors call-side credit structures.
	Bearish Kind = "bearish"
	// Neutral favors range-bound structures.
	Neutral Kind = "neutral"
)

// Signals carries the component readings behind a classification.
type Signals struct {
	Trend      float64 `json:"trend"`      // close minus SMA20
	Volatility float64 `json:"volatility"` // Bollinger band width over middle
	Momentum   float64 `json:"momentum"`   // RSI distance from 50
}

// MarketRegime is the detector's output.
type MarketRegime struct {
	Regime     Kind     `json:"regime"`
	Confidence float64  `json:"confidence"` // 0..100
	Signals    Signals  `json:"signals"`
	Reasoning  []string `json:"reasoning"`
}

const (
	minBarsForRegime = 50
	trendPeriod      = 20

	bullishRSI = 60.0
	bearishRSI = 40.0

	directionalConfidence  = 75.0
	neutralConfidence      = 65.0
	insufficientConfidence = 30.0
)

// Detector classifies bars into a MarketRegime. Stateless; safe to share.
type Detector struct {
	params indicators.Params
}

// NewDetector creates a detector using the given indicator params.
func NewDetector(params indicators.Params) *Detector {
	return &Detector{params: params}
}

// Detect classifies the bar window. vix <= 0 means no VIX reading available.
func (d *Detector) Detect(bars []models.Bar, vix float64) MarketRegime {
	if len(bars) < minBarsForRegime {
		return MarketRegime{
			Regime:     Neutral,
			Confidence: insufficientConfidence,
			Reasoning:  []string{"insufficient data"},
		}
	}

	ind, ok := indicators.Compute(bars, d.params)
	if !ok {
		return MarketRegime{
			Regime:     Neutral,
			Confidence: insufficientConfidence,
			Reasoning:  []string{"insufficient data"},
		}
	}

	sma := indicators.SMA(bars, trendPeriod)
	last := bars[len(bars)-1].Close

	sig := Signals{
		Trend:    last - sma,
		Momentum: ind.RSI - 50,
	}
	if ind.BBMiddle > 0 {
		sig.Volatility = (ind.BBUpper - ind.BBLower) / ind.BBMiddle
	}

	switch {
	case ind.RSI > bullishRSI && last > sma:
		return MarketRegime{
			Regime:     Bullish,
			Confidence: directionalConfidence,
			Signals:    sig,
			Reasoning: []string{
				fmt.Sprintf("RSI %.1f above %.0f", ind.RSI, bullishRSI),
				fmt.Sprintf("close %.2f above SMA%d %.2f", last, trendPeriod, sma),
			},
		}
	case ind.RSI < bearishRSI && last < sma:
		return MarketRegime{
			Regime:     Bearish,
			Confidence: directionalConfidence,
			Signals:    sig,
			Reasoning: []string{
				fmt.Sprintf("RSI %.1f below %.0f", ind.RSI, bearishRSI),
				fmt.Sprintf("close %.2f below SMA%d %.2f", last, trendPeriod, sma),
			},
		}
	default:
		reasons := []string{fmt.Sprintf("RSI %.1f with mixed trend", ind.RSI)}
		if vix > 0 {
			reasons = append(reasons, fmt.Sprintf("VIX %.1f", vix))
		}
		return MarketRegime{
			Regime:     Neutral,
			Confidence: neutralConfidence,
			Signals:    sig,
			Reasoning:  reasons,
		}
	}
}
