package models

import (
	"fmt"
	"math"
	"time"
)

// OptionSide distinguishes calls from puts.
type OptionSide string

const (
	// SideCall is a call option.
	SideCall OptionSide = "call"
	// SidePut is a put option.
	SidePut OptionSide = "put"
)

// StrikeMatchEpsilon is the tolerance used when matching strike prices.
const StrikeMatchEpsilon = 1e-3

// OptionContract is an immutable snapshot of one contract in a chain.
type OptionContract struct {
	Symbol       string     `json:"symbol"`
	Side         OptionSide `json:"side"`
	Strike       float64    `json:"strike"`
	Expiration   time.Time  `json:"expiration"`
	Bid          float64    `json:"bid"`
	Ask          float64    `json:"ask"`
	Last         float64    `json:"last,omitempty"`
	IV           float64    `json:"iv,omitempty"`
	Delta        float64    `json:"delta,omitempty"`
	Gamma        float64    `json:"gamma,omitempty"`
	Theta        float64    `json:"theta,omitempty"`
	Vega         float64    `json:"vega,omitempty"`
	Rho          float64    `json:"rho,omitempty"`
	Volume       int64      `json:"volume,omitempty"`
	OpenInterest int64      `json:"open_interest,omitempty"`
}

// Mid returns the bid/ask midpoint.
func (c OptionContract) Mid() float64 {
	return (c.Bid + c.Ask) / 2
}

// SpreadPct returns the bid-ask spread as a fraction of the mid price.
func (c OptionContract) SpreadPct() float64 {
	mid := c.Mid()
	if mid <= 0 {
		return 0
	}
	return (c.Ask - c.Bid) / mid
}

// Validate checks quote ordering and delta sign conventions.
func (c OptionContract) Validate() error {
	if c.Bid < 0 || c.Ask < c.Bid {
		return fmt.Errorf("contract %s: invalid quote bid=%.2f ask=%.2f", c.Symbol, c.Bid, c.Ask)
	}
	switch c.Side {
	case SideCall:
		if c.Delta < 0 || c.Delta > 1 {
			return fmt.Errorf("contract %s: call delta %.3f outside [0,1]", c.Symbol, c.Delta)
		}
	case SidePut:
		if c.Delta < -1 || c.Delta > 0 {
			return fmt.Errorf("contract %s: put delta %.3f outside [-1,0]", c.Symbol, c.Delta)
		}
	default:
		return fmt.Errorf("contract %s: unknown side %q", c.Symbol, c.Side)
	}
	return nil
}

// OptionsChain is an ordered set of contracts for one underlying at one
// effective timestamp. Snapshot-immutable: selectors return copies or views,
// never mutate.
type OptionsChain struct {
	Underlying string           `json:"underlying"`
	Timestamp  time.Time        `json:"timestamp"`
	Contracts  []OptionContract `json:"contracts"`
}

// Calls returns the call contracts in chain order.
func (ch *OptionsChain) Calls() []OptionContract {
	return ch.bySide(SideCall)
}

// Puts returns the put contracts in chain order.
func (ch *OptionsChain) Puts() []OptionContract {
	return ch.bySide(SidePut)
}

func (ch *OptionsChain) bySide(side OptionSide) []OptionContract {
	var out []OptionContract
	for _, c := range ch.Contracts {
		if c.Side == side {
			out = append(out, c)
		}
	}
	return out
}

// NearTheMoney returns contracts with |strike - price| <= band.
func (ch *OptionsChain) NearTheMoney(price, band float64) []OptionContract {
	var out []OptionContract
	for _, c := range ch.Contracts {
		if math.Abs(c.Strike-price) <= band {
			out = append(out, c)
		}
	}
	return out
}

// AtStrike returns the contract at the given strike and side, or nil.
func (ch *OptionsChain) AtStrike(strike float64, side OptionSide) *OptionContract {
	for i := range ch.Contracts {
		c := &ch.Contracts[i]
		if c.Side == side && math.Abs(c.Strike-strike) < StrikeMatchEpsilon {
			return c
		}
	}
	return nil
}

// MeanIV returns the average implied volatility across contracts that carry
// one, and the number of contracts sampled.
func (ch *OptionsChain) MeanIV() (float64, int) {
	var sum float64
	var n int
	for _, c := range ch.Contracts {
		if c.IV > 0 {
			sum += c.IV
			n++
		}
	}
	if n == 0 {
		return 0, 0
	}
	return sum / float64(n), n
}

// IsStale reports whether the chain snapshot is older than one cycle interval
// relative to now. Same-day expirations need current quotes.
func (ch *OptionsChain) IsStale(now time.Time, interval time.Duration) bool {
	if ch.Timestamp.IsZero() {
		return true
	}
	age := now.Sub(ch.Timestamp)
	if age < 0 {
		age = -age
	}
	return age > interval
}
