package strategy

import "github.com/eddiefleurent/stamford_condor/internal/indicators"

// Config contains the strategy parameters. Passed by value into the selector
// and builders; nothing pokes fields at run time.
type Config struct {
	Symbol string

	Indicators indicators.Params

	// Entry/exit thresholds
	RSIOverbought       float64 // e.g. 70
	RSIOversold         float64 // e.g. 30
	MinRegimeConfidence float64 // gate 1, default 40

	// Volatility gate
	MinIV  float64 // e.g. 0.08
	MaxIV  float64 // e.g. 0.60
	VIXMax float64 // e.g. 35; 0 disables the VIX checks

	// Liquidity gate
	MaxBidAskSpreadPct float64 // e.g. 0.25
	MinVolume          int64   // e.g. 10
	MinOpenInterest    int64   // e.g. 100

	// Builder floors and widths
	MinNetCredit     float64   // e.g. 0.05 per spread
	VerticalWidthMin float64   // e.g. 1
	VerticalWidthMax float64   // e.g. 20
	CondorWingWidths []float64 // e.g. {5, 10, 15}

	// UseNakedOptions switches the variant engine that emits single long
	// options instead of defined-risk spreads.
	UseNakedOptions bool
}

// DefaultConfig is the BALANCED preset.
func DefaultConfig(symbol string) Config {
	return Config{
		Symbol:              symbol,
		Indicators:          indicators.DefaultParams(),
		RSIOverbought:       70,
		RSIOversold:         30,
		MinRegimeConfidence: 40,
		MinIV:               0.08,
		MaxIV:               0.60,
		VIXMax:              35,
		MaxBidAskSpreadPct:  0.25,
		MinVolume:           10,
		MinOpenInterest:     100,
		MinNetCredit:        0.05,
		VerticalWidthMin:    1,
		VerticalWidthMax:    20,
		CondorWingWidths:    []float64{5, 10, 15},
	}
}
