package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eddiefleurent/stamford_condor/internal/broker"
	"github.com/eddiefleurent/stamford_condor/internal/models"
	"github.com/eddiefleurent/stamford_condor/internal/strategy"
)

// runCycle executes one trading cycle at the given logical time. Order is
// fixed: data refresh, monitor-and-exit, admit-new, bookkeeping. Bookkeeping
// always runs, even after recoverable errors.
func (e *Engine) runCycle(ctx context.Context, now time.Time, live bool) {
	dataOK := e.refreshData(ctx, now)

	e.monitorPositions(ctx, now, live)

	if dataOK {
		e.tryEntry(ctx, now, live)
	} else {
		e.logger.Debug("skipping entries: market data unavailable")
	}

	e.bookkeeping(now)
}

// refreshData updates price, bar window and chain, honoring the staleness
// policy. Returns false when this cycle must not admit new entries.
func (e *Engine) refreshData(ctx context.Context, now time.Time) bool {
	symbol := e.cfg.Strategy.Symbol
	interval := e.cfg.Timeframe().Duration()

	price, err := e.adapter.GetCurrentPrice(ctx, symbol)
	if err != nil {
		e.recordDataFailure(fmt.Errorf("price fetch: %w", err), now)
		return false
	}

	last, haveLast := e.window.Last()
	start := now.Add(-time.Duration(models.DefaultBarWindowCap) * interval)
	if haveLast {
		start = last.Timestamp.Add(interval)
	}
	if !haveLast || !start.After(now) {
		bars, err := e.adapter.GetBars(ctx, symbol, start, now, e.cfg.Timeframe())
		if err != nil && err != broker.ErrNoData {
			e.recordDataFailure(fmt.Errorf("bars fetch: %w", err), now)
			return false
		}
		for _, b := range bars {
			if haveLast && !b.Timestamp.After(last.Timestamp) {
				continue
			}
			if err := e.window.Append(b); err != nil {
				e.logger.WithError(err).Warn("dropping out-of-order bar")
			}
		}
	}

	e.mu.Lock()
	e.lastPrice = price
	chainStale := e.chain == nil || e.chain.IsStale(now, interval)
	e.mu.Unlock()

	if chainStale {
		chain, err := e.adapter.GetOptionsChain(ctx, symbol, now)
		if err != nil {
			e.recordDataFailure(fmt.Errorf("chain fetch: %w", err), now)
			return false
		}
		e.mu.Lock()
		e.chain = chain
		e.mu.Unlock()
	}

	e.mu.Lock()
	e.dataFailures = 0
	e.mu.Unlock()
	e.metrics.DataFailures.Set(0)
	return true
}

// recordDataFailure counts consecutive failures and surfaces an error event
// once the threshold is crossed. The engine never crashes on data loss.
func (e *Engine) recordDataFailure(err error, now time.Time) {
	e.mu.Lock()
	e.dataFailures++
	failures := e.dataFailures
	e.mu.Unlock()

	e.metrics.DataFailures.Set(float64(failures))
	e.logger.WithError(err).WithField("consecutive", failures).Warn("market data unavailable")
	if failures >= maxDataFailures {
		e.bus.Publish(Event{
			Type:      EventError,
			Timestamp: now,
			Payload:   fmt.Sprintf("market data unavailable for %d cycles: %v", failures, err),
		})
	}
}

// monitorPositions refreshes and adjudicates every open position, closing or
// settling the ones whose exit rules fire.
func (e *Engine) monitorPositions(ctx context.Context, now time.Time, live bool) {
	e.mu.RLock()
	chain := e.chain
	price := e.lastPrice
	open := make([]*models.Position, 0, len(e.portfolio.OpenPositions))
	for _, p := range e.portfolio.OpenPositions {
		open = append(open, p)
	}
	e.mu.RUnlock()

	// Deterministic monitoring order: entry time, never map order.
	sort.Slice(open, func(i, j int) bool {
		return open[i].Entry.Timestamp.Before(open[j].Entry.Timestamp)
	})

	var meanIV float64
	if chain != nil {
		meanIV, _ = chain.MeanIV()
	}

	for _, p := range open {
		// Expired positions settle deterministically, exactly once.
		if !p.Spread.Expiration().After(now) {
			e.settle(p, price, now)
			continue
		}

		marked := false
		if chain != nil {
			// Position mutation happens under the writer lock so status
			// readers never observe a torn snapshot.
			e.mu.Lock()
			marked = e.manager.Refresh(p, chain, price, now)
			e.mu.Unlock()
		}
		reason := e.manager.Adjudicate(p, price, meanIV, marked, now)
		if reason == models.ExitNone {
			continue
		}
		if reason == models.ExitExpiration {
			e.settle(p, price, now)
			continue
		}
		e.closePosition(ctx, p, chain, reason, now, live)
	}
}

// settle realizes the expiration payoff under the portfolio lock.
func (e *Engine) settle(p *models.Position, price float64, now time.Time) {
	e.mu.Lock()
	rec, err := e.manager.SettleExpiration(e.portfolio, p, price, now)
	e.mu.Unlock()
	if err != nil {
		e.logger.WithError(err).WithField("id", p.ID).Error("expiration settlement failed")
		return
	}
	e.afterClose(rec, now)
}

// closePosition executes the exit, via the broker in live mode first.
func (e *Engine) closePosition(ctx context.Context, p *models.Position, chain *models.OptionsChain,
	reason models.ExitReason, now time.Time, live bool) {
	if live {
		if _, err := e.adapter.ClosePosition(ctx, p); err != nil {
			if mErr := e.manager.MarkClosing(p, reason); mErr != nil {
				e.logger.WithError(mErr).WithField("id", p.ID).Error("close-state transition failed")
				return
			}
			e.logger.WithError(err).WithFields(logrus.Fields{
				"id": p.ID, "retries": p.CloseRetries,
			}).Warn("broker close failed; will retry")
			if e.manager.Orphaned(p) {
				e.bus.Publish(Event{Type: EventPositionOrphaned, Timestamp: now, Payload: p.ID})
			}
			return
		}
	}

	e.mu.Lock()
	rec, err := e.manager.ClosePosition(e.portfolio, p, chain, reason, now)
	e.mu.Unlock()
	if err != nil {
		e.logger.WithError(err).WithField("id", p.ID).Error("close execution failed")
		return
	}
	e.afterClose(rec, now)
}

func (e *Engine) afterClose(rec *models.TradeRecord, now time.Time) {
	e.metrics.Trades.WithLabelValues(string(rec.ExitReason)).Inc()
	if e.store != nil {
		if err := e.store.AppendTrade(*rec); err != nil {
			e.logger.WithError(err).Warn("failed to persist trade record")
		}
	}
	e.bus.Publish(Event{Type: EventPositionClosed, Timestamp: now, Payload: *rec})
}

// tryEntry runs the selector and admits at most one new position per cycle.
func (e *Engine) tryEntry(ctx context.Context, now time.Time, live bool) {
	e.mu.RLock()
	openCount := len(e.portfolio.OpenPositions)
	chain := e.chain
	price := e.lastPrice
	lastEntry := e.lastEntryTime
	e.mu.RUnlock()

	if openCount >= e.cfg.Risk.MaxConcurrentPositions {
		return
	}
	if cd := e.cfg.Schedule.Cooldown; cd > 0 && !lastEntry.IsZero() && now.Sub(lastEntry) < cd {
		return
	}
	if chain == nil || price <= 0 {
		return
	}

	sig := e.selector.Evaluate(e.window.Bars(), chain, price, 0, now)
	e.metrics.Signals.WithLabelValues(string(sig.Action)).Inc()
	if sig.Action == strategy.ActionNoTrade {
		e.logger.WithField("reason", sig.Reason).Debug("no trade this cycle")
		return
	}

	e.mu.Lock()
	pos, rejection, err := e.manager.OpenPosition(e.portfolio, sig, price, now)
	e.mu.Unlock()

	switch {
	case err != nil:
		// Invariant violations abort the engine.
		e.logger.WithError(err).Error("fatal admission error")
		e.bus.Publish(Event{Type: EventError, Timestamp: now, Payload: err.Error()})
		e.requestStop()
		return
	case rejection != nil:
		e.metrics.Rejections.Inc()
		e.logger.WithField("reason", rejection.Reason).Info("admission rejected")
		return
	}

	if live {
		if _, err := e.adapter.SubmitSpreadOrder(ctx, sig.Spread, pos.Quantity); err != nil {
			e.logger.WithError(err).Warn("broker rejected spread order; rolling back")
			e.mu.Lock()
			e.manager.AbortOpen(e.portfolio, pos)
			e.mu.Unlock()
			return
		}
	}

	e.mu.Lock()
	e.lastEntryTime = now
	e.mu.Unlock()
	e.metrics.Trades.WithLabelValues("opened").Inc()
	e.bus.Publish(Event{Type: EventTradeExecuted, Timestamp: now, Payload: *pos})
}

// bookkeeping updates the equity curve, persists the snapshot and emits the
// cycle events.
func (e *Engine) bookkeeping(now time.Time) {
	e.mu.Lock()
	e.portfolio.MarkEquity(now)
	equity := e.portfolio.Equity()
	openCount := len(e.portfolio.OpenPositions)
	stats := computePerformance(e.portfolio.ClosedTrades)
	e.mu.Unlock()

	e.metrics.Cycles.WithLabelValues(e.cfg.Environment.Mode).Inc()
	e.metrics.Equity.Set(equity)
	e.metrics.OpenPos.Set(float64(openCount))

	if e.store != nil {
		e.mu.RLock()
		err := e.store.SavePortfolio(e.portfolio)
		e.mu.RUnlock()
		if err != nil {
			e.logger.WithError(err).Warn("failed to persist portfolio")
		}
	}

	e.bus.Publish(Event{Type: EventPerformanceUpdate, Timestamp: now, Payload: map[string]interface{}{
		"equity":       equity,
		"total_trades": stats.totalTrades,
		"win_rate":     stats.winRate,
		"total_pnl":    stats.totalPnL,
	}})
	e.bus.Publish(Event{Type: EventCycleComplete, Timestamp: now})
}

// requestStop asks the scheduler to halt after the current cycle.
func (e *Engine) requestStop() {
	e.stopOnce.Do(func() { close(e.stop) })
}
