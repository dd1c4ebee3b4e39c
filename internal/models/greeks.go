package models

import "time"

// GreeksSnapshot captures first-order sensitivities at a point in time. For a
// portfolio snapshot the values are signed sums over legs (short legs negate).
type GreeksSnapshot struct {
	Timestamp        time.Time `json:"timestamp"`
	UnderlyingPrice  float64   `json:"underlying_price"`
	TimeToExpiration float64   `json:"time_to_expiration"` // years
	IV               float64   `json:"iv"`
	RiskFreeRate     float64   `json:"risk_free_rate"`
	Delta            float64   `json:"delta"`
	Gamma            float64   `json:"gamma"`
	Theta            float64   `json:"theta"` // per day
	Vega             float64   `json:"vega"`  // per 1% vol
	Rho              float64   `json:"rho"`
}

// Fill is the simulated execution of a single leg.
type Fill struct {
	Symbol         string  `json:"symbol"`
	Side           string  `json:"side"` // buy | sell
	Quantity       int     `json:"quantity"`
	RequestedPrice float64 `json:"requested_price"`
	ExecutedPrice  float64 `json:"executed_price"`
	SlippageBps    float64 `json:"slippage_bps"`
	Commission     float64 `json:"commission"`
	RegulatoryFees float64 `json:"regulatory_fees"`
	Total          float64 `json:"total"`
}
