// Package indicators implements the technical indicators driving regime
// detection and strategy selection: RSI (Wilder smoothing), MACD, Bollinger
// Bands and SMA over a rolling bar window.
//
// Keep these fast and allocation-light; they run on every cycle.
package indicators

import (
	"math"

	"github.com/eddiefleurent/stamford_condor/internal/models"
)

// Params holds the indicator lookback configuration.
type Params struct {
	RSIPeriod  int
	MACDFast   int
	MACDSlow   int
	MACDSignal int
	BBPeriod   int
	BBStdDev   float64
}

// DefaultParams are the standard 14/12/26/9/20/2 settings.
func DefaultParams() Params {
	return Params{
		RSIPeriod:  14,
		MACDFast:   12,
		MACDSlow:   26,
		MACDSignal: 9,
		BBPeriod:   20,
		BBStdDev:   2.0,
	}
}

// MinBars returns the history required before Compute produces a value. The
// extra buffer lets the EMA chains settle.
func (p Params) MinBars() int {
	const buffer = 5
	need := p.RSIPeriod + 1
	if m := p.MACDSlow + p.MACDSignal; m > need {
		need = m
	}
	if p.BBPeriod > need {
		need = p.BBPeriod
	}
	return need + buffer
}

// Indicators is the last-bar-aligned snapshot of every computed series.
type Indicators struct {
	RSI           float64 `json:"rsi"`
	MACD          float64 `json:"macd"`
	MACDSignal    float64 `json:"macd_signal"`
	MACDHistogram float64 `json:"macd_histogram"`
	BBUpper       float64 `json:"bb_upper"`
	BBMiddle      float64 `json:"bb_middle"`
	BBLower       float64 `json:"bb_lower"`
}

// Compute derives the indicator snapshot for the latest bar. The second
// return is false when the window is too short.
func Compute(bars []models.Bar, p Params) (Indicators, bool) {
	if len(bars) < p.MinBars() {
		return Indicators{}, false
	}
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}

	macd, signal := macdSeries(closes, p.MACDFast, p.MACDSlow, p.MACDSignal)
	mid, upper, lower := bollinger(closes, p.BBPeriod, p.BBStdDev)

	return Indicators{
		RSI:           rsi(closes, p.RSIPeriod),
		MACD:          macd,
		MACDSignal:    signal,
		MACDHistogram: macd - signal,
		BBUpper:       upper,
		BBMiddle:      mid,
		BBLower:       lower,
	}, true
}

// rsi computes the Wilder-smoothed RSI for the last close.
func rsi(closes []float64, n int) float64 {
	if n <= 0 || len(closes) <= n {
		return 0
	}
	var gain, loss float64
	for i := 1; i <= n; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	gain /= float64(n)
	loss /= float64(n)
	for i := n + 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain = (gain*float64(n-1) + d) / float64(n)
			loss = (loss * float64(n-1)) / float64(n)
		} else {
			gain = (gain * float64(n-1)) / float64(n)
			loss = (loss*float64(n-1) - d) / float64(n)
		}
	}
	if loss == 0 {
		return 100
	}
	rs := gain / loss
	return 100 - (100 / (1 + rs))
}

// ema returns the full EMA series aligned to the input, seeded with the SMA
// of the first n values.
func ema(values []float64, n int) []float64 {
	out := make([]float64, len(values))
	if n <= 0 || len(values) < n {
		return out
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += values[i]
	}
	out[n-1] = sum / float64(n)
	k := 2.0 / float64(n+1)
	for i := n; i < len(values); i++ {
		out[i] = values[i]*k + out[i-1]*(1-k)
	}
	// Backfill the warmup region so downstream series stay aligned.
	for i := 0; i < n-1; i++ {
		out[i] = out[n-1]
	}
	return out
}

// macdSeries returns the last MACD and signal values.
func macdSeries(closes []float64, fast, slow, signalN int) (macd, signal float64) {
	fastEMA := ema(closes, fast)
	slowEMA := ema(closes, slow)
	diff := make([]float64, len(closes))
	for i := range closes {
		diff[i] = fastEMA[i] - slowEMA[i]
	}
	// The MACD line is only meaningful once the slow EMA is live.
	signalSeries := ema(diff[slow-1:], signalN)
	macd = diff[len(diff)-1]
	signal = signalSeries[len(signalSeries)-1]
	return macd, signal
}

// bollinger returns middle/upper/lower bands for the last close.
func bollinger(closes []float64, n int, stdDev float64) (mid, upper, lower float64) {
	if n <= 0 || len(closes) < n {
		return 0, 0, 0
	}
	window := closes[len(closes)-n:]
	var sum float64
	for _, c := range window {
		sum += c
	}
	mid = sum / float64(n)
	var variance float64
	for _, c := range window {
		variance += (c - mid) * (c - mid)
	}
	sigma := math.Sqrt(variance / float64(n))
	return mid, mid + stdDev*sigma, mid - stdDev*sigma
}

// SMA returns the n-period simple moving average of the last closes, or 0
// when there is not enough history.
func SMA(bars []models.Bar, n int) float64 {
	if n <= 0 || len(bars) < n {
		return 0
	}
	var sum float64
	for _, b := range bars[len(bars)-n:] {
		sum += b.Close
	}
	return sum / float64(n)
}
