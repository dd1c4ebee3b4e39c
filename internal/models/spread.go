package models

import (
	"fmt"
	"math"
	"time"
)

// SpreadKind tags the SpreadDescriptor variant. Consumers switch exhaustively
// on it; there is no untyped fallthrough shape.
type SpreadKind string

const (
	// SpreadNakedCall is a single long call (directional debit variant).
	SpreadNakedCall SpreadKind = "naked_call"
	// SpreadNakedPut is a single long put (directional debit variant).
	SpreadNakedPut SpreadKind = "naked_put"
	// SpreadBullPut is a put credit spread (short put above long put).
	SpreadBullPut SpreadKind = "bull_put"
	// SpreadBearCall is a call credit spread (short call below long call).
	SpreadBearCall SpreadKind = "bear_call"
	// SpreadIronCondor combines a bull put and a bear call.
	SpreadIronCondor SpreadKind = "iron_condor"
)

// LegSide is the direction of a single leg.
type LegSide string

const (
	// LegShort is a sold leg.
	LegShort LegSide = "short"
	// LegLong is a bought leg.
	LegLong LegSide = "long"
)

// SpreadLeg pairs a contract with its direction inside a spread.
type SpreadLeg struct {
	Contract OptionContract `json:"contract"`
	Side     LegSide        `json:"side"`
}

// PriceZone is an inclusive price interval.
type PriceZone struct {
	Lo float64 `json:"lo"`
	Hi float64 `json:"hi"`
}

// SpreadDescriptor is the tagged-variant description of a candidate or open
// structure. Exactly the legs implied by Kind are set; everything else is nil.
type SpreadDescriptor struct {
	Kind      SpreadKind      `json:"kind"`
	ShortPut  *OptionContract `json:"short_put,omitempty"`
	LongPut   *OptionContract `json:"long_put,omitempty"`
	ShortCall *OptionContract `json:"short_call,omitempty"`
	LongCall  *OptionContract `json:"long_call,omitempty"`

	// NetCredit is per-spread, per-share dollars (×100 for contract dollars).
	// Credit structures set NetCredit; the naked debit variants set NetDebit.
	NetCredit  float64   `json:"net_credit,omitempty"`
	NetDebit   float64   `json:"net_debit,omitempty"`
	MaxProfit  float64   `json:"max_profit"`
	MaxLoss    float64   `json:"max_loss"`
	Breakeven  PriceZone `json:"breakeven"`
	ProfitZone PriceZone `json:"profit_zone,omitempty"`
	PoP        float64   `json:"pop"`
}

// Legs returns the legs of the spread in put-then-call, short-then-long order.
func (s *SpreadDescriptor) Legs() []SpreadLeg {
	var legs []SpreadLeg
	if s.ShortPut != nil {
		legs = append(legs, SpreadLeg{Contract: *s.ShortPut, Side: LegShort})
	}
	if s.LongPut != nil {
		legs = append(legs, SpreadLeg{Contract: *s.LongPut, Side: LegLong})
	}
	if s.ShortCall != nil {
		legs = append(legs, SpreadLeg{Contract: *s.ShortCall, Side: LegShort})
	}
	if s.LongCall != nil {
		legs = append(legs, SpreadLeg{Contract: *s.LongCall, Side: LegLong})
	}
	return legs
}

// StrikeWidth returns the wing width for verticals, and the wider of the two
// wings for condors. Naked structures have no width.
func (s *SpreadDescriptor) StrikeWidth() float64 {
	switch s.Kind {
	case SpreadBullPut:
		return s.ShortPut.Strike - s.LongPut.Strike
	case SpreadBearCall:
		return s.LongCall.Strike - s.ShortCall.Strike
	case SpreadIronCondor:
		putWidth := s.ShortPut.Strike - s.LongPut.Strike
		callWidth := s.LongCall.Strike - s.ShortCall.Strike
		return math.Max(putWidth, callWidth)
	default:
		return 0
	}
}

// Validate enforces the per-kind leg shape and the credit-spread invariants:
// netCredit > 0, maxProfit = netCredit, maxLoss = width - netCredit.
func (s *SpreadDescriptor) Validate() error {
	const eps = 1e-6
	switch s.Kind {
	case SpreadNakedCall:
		if s.LongCall == nil || s.ShortPut != nil || s.LongPut != nil || s.ShortCall != nil {
			return fmt.Errorf("naked call must carry exactly one long call")
		}
		if s.NetDebit <= 0 || s.NetCredit != 0 {
			return fmt.Errorf("naked call must be a debit structure")
		}
		return nil
	case SpreadNakedPut:
		if s.LongPut == nil || s.ShortPut != nil || s.ShortCall != nil || s.LongCall != nil {
			return fmt.Errorf("naked put must carry exactly one long put")
		}
		if s.NetDebit <= 0 || s.NetCredit != 0 {
			return fmt.Errorf("naked put must be a debit structure")
		}
		return nil
	case SpreadBullPut:
		if s.ShortPut == nil || s.LongPut == nil || s.ShortCall != nil || s.LongCall != nil {
			return fmt.Errorf("bull put must carry short and long puts only")
		}
		if s.ShortPut.Strike <= s.LongPut.Strike {
			return fmt.Errorf("bull put strikes inverted: short %.2f <= long %.2f",
				s.ShortPut.Strike, s.LongPut.Strike)
		}
	case SpreadBearCall:
		if s.ShortCall == nil || s.LongCall == nil || s.ShortPut != nil || s.LongPut != nil {
			return fmt.Errorf("bear call must carry short and long calls only")
		}
		if s.ShortCall.Strike >= s.LongCall.Strike {
			return fmt.Errorf("bear call strikes inverted: short %.2f >= long %.2f",
				s.ShortCall.Strike, s.LongCall.Strike)
		}
	case SpreadIronCondor:
		if s.ShortPut == nil || s.LongPut == nil || s.ShortCall == nil || s.LongCall == nil {
			return fmt.Errorf("iron condor must carry all four legs")
		}
		if s.ShortPut.Strike <= s.LongPut.Strike || s.ShortCall.Strike >= s.LongCall.Strike ||
			s.ShortPut.Strike >= s.ShortCall.Strike {
			return fmt.Errorf("iron condor strikes out of order: %.2f/%.2f put, %.2f/%.2f call",
				s.LongPut.Strike, s.ShortPut.Strike, s.ShortCall.Strike, s.LongCall.Strike)
		}
	default:
		return fmt.Errorf("unknown spread kind %q", s.Kind)
	}

	if s.NetCredit <= 0 {
		return fmt.Errorf("%s: net credit %.2f must be positive", s.Kind, s.NetCredit)
	}
	if math.Abs(s.MaxProfit-s.NetCredit) > eps {
		return fmt.Errorf("%s: max profit %.2f != net credit %.2f", s.Kind, s.MaxProfit, s.NetCredit)
	}
	if w := s.StrikeWidth(); w > 0 && math.Abs(s.MaxLoss-(w-s.NetCredit)) > eps {
		return fmt.Errorf("%s: max loss %.2f != width %.2f - credit %.2f",
			s.Kind, s.MaxLoss, w, s.NetCredit)
	}
	return nil
}

// IsCredit reports whether the structure was opened for net premium received.
// The credit spreads report true; the naked variants are debit structures
// and report false.
func (s *SpreadDescriptor) IsCredit() bool {
	return s.NetCredit > 0
}

// Expiration returns the earliest leg expiration.
func (s *SpreadDescriptor) Expiration() (t time.Time) {
	for _, leg := range s.Legs() {
		if t.IsZero() || leg.Contract.Expiration.Before(t) {
			t = leg.Contract.Expiration
		}
	}
	return t
}
