package positions

import (
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eddiefleurent/stamford_condor/internal/models"
)

// Refresh marks the position against the current chain: closing price, net
// Greeks and unrealized P&L. Returns false when a leg is missing from the
// chain, in which case only time-based exits may be adjudicated.
func (m *Manager) Refresh(p *models.Position, chain *models.OptionsChain, underlying float64, now time.Time) bool {
	mark, ok := markPrice(p, chain)
	if !ok {
		return false
	}

	p.Current.Timestamp = now
	p.Current.Price = mark
	p.Current.Greeks = m.greeks.SpreadGreeks(&p.Spread, underlying, now)

	var pnl float64
	if p.Spread.IsCredit() {
		pnl = (p.Entry.Price - mark) * float64(p.Quantity) * 100
	} else {
		pnl = (mark - p.Entry.Price) * float64(p.Quantity) * 100
	}
	p.Current.PnL = pnl
	if pnl > p.Current.MaxPnL {
		p.Current.MaxPnL = pnl
	}
	if pnl < p.Current.MinPnL {
		p.Current.MinPnL = pnl
	}
	return true
}

// markPrice computes the per-spread mark: the debit to close a credit
// structure, or the liquidation value of a debit structure.
func markPrice(p *models.Position, chain *models.OptionsChain) (float64, bool) {
	var mark float64
	for _, leg := range p.Spread.Legs() {
		c := chain.AtStrike(leg.Contract.Strike, leg.Contract.Side)
		if c == nil {
			return 0, false
		}
		if leg.Side == models.LegShort {
			mark += c.Mid()
		} else {
			mark -= c.Mid()
		}
	}
	if !p.Spread.IsCredit() {
		// Long structures: mark is the value we would receive.
		mark = -mark
	}
	return mark, true
}

// Adjudicate walks the exit rules in priority order and returns the first
// hit. marked=false restricts adjudication to time-based rules (chain missing
// a leg). meanIV is the current chain IV for the vol-expansion rule.
func (m *Manager) Adjudicate(p *models.Position, underlying, meanIV float64, marked bool, now time.Time) models.ExitReason {
	if marked {
		if m.cfg.Exits.ProfitTarget && m.profitTargetHit(p) {
			return models.ExitProfitTarget
		}
		if m.cfg.Exits.StopLoss && m.stopLossHit(p) {
			return models.ExitStopLoss
		}
		if m.cfg.Exits.PriceBreach && m.priceBreached(p, underlying) {
			return models.ExitPriceBreach
		}
		if m.cfg.Exits.Greeks && m.greeksExit(p) {
			return models.ExitGreeks
		}
		if m.cfg.Exits.VolExpansion && m.volExpanded(p, meanIV) {
			return models.ExitVolExpansion
		}
	}
	if m.cfg.Exits.TimeLimit && p.DaysHeld(now) >= m.timeLimitDays(p) {
		return models.ExitTimeLimit
	}
	if !p.Spread.Expiration().After(now) {
		return models.ExitExpiration
	}
	return models.ExitNone
}

// profitTargetHit checks P&L against the strategy-specific fraction of the
// entry credit (or debit, for long structures).
func (m *Manager) profitTargetHit(p *models.Position) bool {
	frac := m.cfg.ProfitTargetFraction
	switch p.Spread.Kind {
	case models.SpreadIronCondor:
		frac = m.cfg.CondorProfitFraction
	case models.SpreadBearCall:
		frac = m.cfg.BearCallProfitFraction
	}
	basis := p.Entry.Price * float64(p.Quantity) * 100
	return basis > 0 && p.Current.PnL >= frac*basis
}

// stopLossHit checks the max-loss floor and the closing-debit multiple.
func (m *Manager) stopLossHit(p *models.Position) bool {
	maxLossDollars := p.MaxLoss * float64(p.Quantity) * 100
	if maxLossDollars > 0 && p.Current.PnL <= -maxLossDollars {
		return true
	}
	if p.Spread.IsCredit() {
		k := m.cfg.StopLossMultiple
		if p.Spread.Kind == models.SpreadBearCall {
			k = m.cfg.BearCallStopMultiple
		}
		return p.Entry.Price > 0 && p.Current.Price >= k*p.Entry.Price
	}
	return false
}

// priceBreached checks whether the underlying crossed a short strike beyond
// tolerance (verticals) or left the [shortPut, shortCall] range (condors, no
// tolerance).
func (m *Manager) priceBreached(p *models.Position, underlying float64) bool {
	tol := m.cfg.PriceBreachTolerance
	if tol <= 0 {
		tol = 1.02
	}
	switch p.Spread.Kind {
	case models.SpreadBearCall:
		return underlying >= p.Spread.ShortCall.Strike*tol
	case models.SpreadBullPut:
		return underlying <= p.Spread.ShortPut.Strike/tol
	case models.SpreadIronCondor:
		return underlying < p.Spread.ShortPut.Strike || underlying > p.Spread.ShortCall.Strike
	default:
		return false
	}
}

// greeksExit fires on delta expansion against entry, or per-position risk.
func (m *Manager) greeksExit(p *models.Position) bool {
	if math.Abs(p.Current.Greeks.Delta-p.Entry.Greeks.Delta) > m.cfg.DeltaExpansionLimit {
		return true
	}
	return m.greeks.RiskCheck(p.Current.Greeks, p.Quantity).Risky
}

// volExpanded fires when the chain's mean IV exceeds the entry multiple.
func (m *Manager) volExpanded(p *models.Position, meanIV float64) bool {
	return p.Entry.ChainIV > 0 && meanIV > m.cfg.VolExpansionMultiple*p.Entry.ChainIV
}

func (m *Manager) timeLimitDays(p *models.Position) int {
	if p.Spread.Kind == models.SpreadBearCall {
		return m.cfg.BearCallTimeLimitDays
	}
	return m.cfg.TimeLimitDays
}

// ClosePosition executes a simulated close against the chain, realizes P&L
// net of all costs and appends the trade record.
func (m *Manager) ClosePosition(ps *models.PortfolioState, p *models.Position, chain *models.OptionsChain, reason models.ExitReason, now time.Time) (*models.TradeRecord, error) {
	legs, ok := currentLegs(p, chain)
	if !ok {
		return nil, fmt.Errorf("chain missing legs for position %s", p.ID)
	}
	closeSC := m.costs.CloseSpread(legs, p.Quantity, m.cfg.MarketCondition)

	entryProceeds := p.Entry.Price * float64(p.Quantity) * 100
	if !p.Spread.IsCredit() {
		entryProceeds = -entryProceeds
	}
	realized := entryProceeds + closeSC.NetReceived

	exitPrice := math.Abs(closeSC.NetReceived) / (float64(p.Quantity) * 100)
	return m.finalize(ps, p, reason, exitPrice, realized, now)
}

// SettleExpiration realizes the deterministic payoff at the expiration price.
// Settlement happens exactly once; the position leaves the open set.
func (m *Manager) SettleExpiration(ps *models.PortfolioState, p *models.Position, expirationPrice float64, now time.Time) (*models.TradeRecord, error) {
	var settlement float64 // per-share value to the position holder
	for _, leg := range p.Spread.Legs() {
		intr := intrinsic(leg.Contract, expirationPrice)
		if leg.Side == models.LegShort {
			settlement -= intr
		} else {
			settlement += intr
		}
	}

	entryProceeds := p.Entry.Price * float64(p.Quantity) * 100
	if !p.Spread.IsCredit() {
		entryProceeds = -entryProceeds
	}
	realized := entryProceeds + settlement*float64(p.Quantity)*100

	return m.finalize(ps, p, models.ExitExpiration, math.Abs(settlement), realized, now)
}

// finalize transitions the position to CLOSED and settles it into the
// portfolio.
func (m *Manager) finalize(ps *models.PortfolioState, p *models.Position, reason models.ExitReason, exitPrice, realized float64, now time.Time) (*models.TradeRecord, error) {
	condition := "close_filled"
	if reason == models.ExitExpiration {
		condition = "settled"
	}
	if err := p.Transition(models.StateClosed, condition); err != nil {
		return nil, err
	}
	p.ExitReason = reason

	basis := p.Entry.Price * float64(p.Quantity) * 100
	var pnlPct float64
	if basis != 0 {
		pnlPct = realized / math.Abs(basis) * 100
	}
	rec := models.TradeRecord{
		PositionID:    p.ID,
		Symbol:        p.Symbol,
		Spread:        p.Spread,
		Quantity:      p.Quantity,
		EntryTime:     p.Entry.Timestamp,
		EntryPrice:    p.Entry.Price,
		ExitTimestamp: now,
		ExitPrice:     exitPrice,
		ExitReason:    reason,
		RealizedPnL:   realized,
		PnLPct:        pnlPct,
	}
	if err := ps.SettleClose(p, rec); err != nil {
		return nil, err
	}
	m.logger.WithFields(logrus.Fields{
		"id":     p.ID,
		"reason": reason,
		"pnl":    realized,
	}).Info("position closed")
	return &rec, nil
}

// MarkClosing transitions to CLOSING when a live close order is in flight.
func (m *Manager) MarkClosing(p *models.Position, reason models.ExitReason) error {
	if p.State == models.StateClosing {
		p.CloseRetries++
		return nil
	}
	if err := p.Transition(models.StateClosing, "exit_signal"); err != nil {
		return err
	}
	p.ExitReason = reason
	return nil
}

// Orphaned reports whether a CLOSING position has exhausted its retries.
func (m *Manager) Orphaned(p *models.Position) bool {
	return p.State == models.StateClosing && p.CloseRetries >= m.cfg.MaxCloseRetries
}

// currentLegs rebuilds the spread legs with current chain quotes.
func currentLegs(p *models.Position, chain *models.OptionsChain) ([]models.SpreadLeg, bool) {
	var legs []models.SpreadLeg
	for _, leg := range p.Spread.Legs() {
		c := chain.AtStrike(leg.Contract.Strike, leg.Contract.Side)
		if c == nil {
			return nil, false
		}
		legs = append(legs, models.SpreadLeg{Contract: *c, Side: leg.Side})
	}
	return legs, true
}

// intrinsic is the option payoff at the settlement price.
func intrinsic(c models.OptionContract, price float64) float64 {
	switch c.Side {
	case models.SideCall:
		return math.Max(0, price-c.Strike)
	case models.SidePut:
		return math.Max(0, c.Strike-price)
	default:
		return 0
	}
}
