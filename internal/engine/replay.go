package engine

import (
	"context"
	"time"

	"github.com/eddiefleurent/stamford_condor/internal/models"
)

// ReplaySource is the extra surface the replay scheduler needs from its
// adapter: a cursor it can advance and the recorded bar sequence.
type ReplaySource interface {
	Advance(ts time.Time)
	AllBars() []models.Bar
}

// runReplay iterates the recorded bars in order. Each bar is one cycle with
// the cycle timestamp equal to the bar timestamp. Completion (or a stop
// signal, unless drain_on_stop is set) ends the run; remaining open
// positions settle at the final close when the data ends past expiration.
func (e *Engine) runReplay(src ReplaySource) {
	defer e.finishRun()

	ctx := context.Background()
	bars := src.AllBars()
	e.logger.WithField("bars", len(bars)).Info("starting historical replay")

	for _, bar := range bars {
		select {
		case <-e.stop:
			if !e.cfg.Replay.DrainOnStop {
				e.logger.Info("replay stopped before completion")
				return
			}
		default:
		}

		src.Advance(bar.Timestamp)
		if err := e.window.Append(bar); err != nil {
			e.logger.WithError(err).Warn("skipping malformed bar")
			continue
		}
		e.replayCycle(ctx, bar)
	}

	e.logger.Info("replay complete")
}

// replayCycle is the shared cycle flow minus the live-only order plumbing;
// bar data comes from the window the scheduler just appended to.
func (e *Engine) replayCycle(ctx context.Context, bar models.Bar) {
	now := bar.Timestamp

	// Data refresh reduces to price + chain staleness; bars arrive from the
	// iteration itself.
	dataOK := true
	price, err := e.adapter.GetCurrentPrice(ctx, e.cfg.Strategy.Symbol)
	if err != nil {
		e.recordDataFailure(err, now)
		dataOK = false
		price = bar.Close
	}

	e.mu.Lock()
	e.lastPrice = price
	chainStale := e.chain == nil || e.chain.IsStale(now, e.cfg.Timeframe().Duration())
	e.mu.Unlock()

	if chainStale {
		chain, err := e.adapter.GetOptionsChain(ctx, e.cfg.Strategy.Symbol, now)
		if err != nil {
			e.recordDataFailure(err, now)
			dataOK = false
		} else {
			e.mu.Lock()
			e.chain = chain
			e.mu.Unlock()
		}
	}
	if dataOK {
		e.mu.Lock()
		e.dataFailures = 0
		e.mu.Unlock()
		e.metrics.DataFailures.Set(0)
	}

	e.monitorPositions(ctx, now, false)
	if dataOK {
		e.tryEntry(ctx, now, false)
	}
	e.bookkeeping(now)
}

// finishRun marks the engine stopped and publishes the stopped event.
func (e *Engine) finishRun() {
	e.setRunning(false)
	e.bus.Publish(Event{Type: EventStopped, Timestamp: time.Now()})
	close(e.done)
}
