package engine

import (
	"context"
	"time"

	"github.com/eddiefleurent/stamford_condor/internal/config"
	"github.com/eddiefleurent/stamford_condor/internal/models"
)

// runLive ticks at the configured timeframe interval, skipping cycles
// outside market hours. A stop signal finishes the current cycle, then
// applies the configured stop policy.
func (e *Engine) runLive() {
	defer e.finishRun()

	interval := e.cfg.Timeframe().Duration()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.logger.WithField("interval", interval).Info("starting live scheduler")

	// Run immediately on start, then on each tick.
	e.liveCycle()

	for {
		e.mu.Lock()
		e.nextCheck = time.Now().Add(interval)
		e.mu.Unlock()

		select {
		case <-e.stop:
			e.applyStopPolicy()
			return
		case <-ticker.C:
			e.liveCycle()
		}
	}
}

// liveCycle guards one cycle with market hours and the request timeout.
func (e *Engine) liveCycle() {
	now := time.Now()
	open, err := e.cfg.IsWithinTradingHours(now)
	if err != nil {
		e.logger.WithError(err).Warn("could not determine trading hours; skipping cycle")
		return
	}
	if !open {
		e.logger.Debug("outside market hours, skipping cycle")
		return
	}

	// Each cycle's I/O shares one timeout; on expiry the cycle degrades to
	// monitoring only.
	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.Broker.RequestTimeout)
	defer cancel()
	e.runCycle(ctx, now, e.cfg.Environment.Mode == config.ModeLive)
}

// applyStopPolicy closes positions at mid when configured; the default holds
// them for the next session.
func (e *Engine) applyStopPolicy() {
	if e.cfg.Schedule.StopPolicy != config.StopPolicyCloseAtMid {
		e.logger.Info("stop policy hold: leaving open positions in place")
		return
	}

	now := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.Broker.RequestTimeout)
	defer cancel()

	e.mu.RLock()
	chain := e.chain
	open := make([]*models.Position, 0, len(e.portfolio.OpenPositions))
	for _, p := range e.portfolio.OpenPositions {
		open = append(open, p)
	}
	e.mu.RUnlock()

	if chain == nil {
		e.logger.Warn("no chain available at shutdown; holding positions")
		return
	}
	for _, p := range open {
		e.closePosition(ctx, p, chain, models.ExitEngineStopped, now, e.cfg.Environment.Mode == config.ModeLive)
	}
	e.bookkeeping(now)
}
