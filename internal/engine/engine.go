package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eddiefleurent/stamford_condor/internal/broker"
	"github.com/eddiefleurent/stamford_condor/internal/config"
	"github.com/eddiefleurent/stamford_condor/internal/costs"
	"github.com/eddiefleurent/stamford_condor/internal/greeks"
	"github.com/eddiefleurent/stamford_condor/internal/metrics"
	"github.com/eddiefleurent/stamford_condor/internal/models"
	"github.com/eddiefleurent/stamford_condor/internal/positions"
	"github.com/eddiefleurent/stamford_condor/internal/risk"
	"github.com/eddiefleurent/stamford_condor/internal/storage"
	"github.com/eddiefleurent/stamford_condor/internal/strategy"
)

// maxDataFailures is the consecutive-failure count that surfaces an error
// event. The engine keeps cycling regardless.
const maxDataFailures = 5

// Engine owns the lifetime of the adapter, selector, risk governor and
// position manager, and drives them from one of the two schedulers.
// The cycle goroutine is the sole writer of portfolio state.
type Engine struct {
	cfg      *config.Config
	adapter  broker.Adapter
	selector *strategy.Selector
	manager  *positions.Manager
	store    storage.Interface
	metrics  *metrics.Metrics
	logger   *logrus.Logger
	bus      *Bus
	greeks   *greeks.Engine
	governor *risk.Governor

	mu            sync.RWMutex
	portfolio     *models.PortfolioState
	window        *models.BarWindow
	chain         *models.OptionsChain
	lastPrice     float64
	running       bool
	startedAt     time.Time
	lastEntryTime time.Time
	nextCheck     time.Time
	dataFailures  int

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// New wires an engine from configuration and the injected collaborators.
// A nil metrics set is replaced by a fresh, unserved collector set.
func New(cfg *config.Config, adapter broker.Adapter, store storage.Interface, m *metrics.Metrics, logger *logrus.Logger) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if adapter == nil {
		return nil, fmt.Errorf("broker adapter is required")
	}
	if logger == nil {
		logger = logrus.New()
	}
	if m == nil {
		m = metrics.New()
	}

	ge := greeks.NewEngine(cfg.Risk.RiskFreeRate, greeks.DefaultThresholds())
	ce := costs.NewEngine(cfg.CostsConfig())
	gov := risk.NewGovernor(cfg.RiskLimits(), logger)
	mgr := positions.NewManager(cfg.ManagerConfig(), ge, ce, gov, logger)
	sel := strategy.NewSelector(cfg.StrategyConfig(), logger)

	e := &Engine{
		cfg:      cfg,
		adapter:  adapter,
		selector: sel,
		manager:  mgr,
		store:    store,
		metrics:  m,
		logger:   logger,
		bus:      NewBus(),
		greeks:   ge,
		governor: gov,
		window:   models.NewBarWindow(models.DefaultBarWindowCap),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	if err := e.restorePortfolio(); err != nil {
		return nil, err
	}
	return e, nil
}

// restorePortfolio loads the persisted snapshot, or seeds a fresh one.
func (e *Engine) restorePortfolio() error {
	if e.store != nil {
		ps, err := e.store.LoadPortfolio()
		if err != nil {
			return fmt.Errorf("loading portfolio: %w", err)
		}
		if ps != nil {
			ps.Normalize()
			e.portfolio = ps
			return nil
		}
	}
	balance := e.cfg.Replay.InitialBalance
	if e.cfg.Environment.Mode != config.ModeReplay {
		ctx, cancel := context.WithTimeout(context.Background(), e.cfg.Broker.RequestTimeout)
		defer cancel()
		if acct, err := e.adapter.GetAccount(ctx); err == nil && acct.Equity > 0 {
			balance = acct.Equity
		}
	}
	e.portfolio = models.NewPortfolioState(balance)
	return nil
}

// Events returns a subscription to the engine's event stream.
func (e *Engine) Events() <-chan Event {
	return e.bus.Subscribe()
}

// StartResult reports whether the engine launched.
type StartResult struct {
	OK  bool
	Msg string
}

// Start launches the configured scheduler. Replay completes on its own when
// the bars are exhausted; live runs until Stop.
func (e *Engine) Start() StartResult {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return StartResult{OK: false, Msg: "engine already running"}
	}
	e.running = true
	e.startedAt = time.Now()
	e.stop = make(chan struct{})
	e.stopOnce = sync.Once{}
	e.done = make(chan struct{})
	mode := e.cfg.Environment.Mode
	e.mu.Unlock()

	switch mode {
	case config.ModeReplay:
		src, ok := e.adapter.(ReplaySource)
		if !ok {
			e.setRunning(false)
			return StartResult{OK: false, Msg: "replay mode requires a replay adapter"}
		}
		go e.runReplay(src)
	case config.ModePaper, config.ModeLive:
		if _, isReplay := e.adapter.(ReplaySource); isReplay {
			e.setRunning(false)
			return StartResult{OK: false, Msg: "synthetic data adapters are forbidden outside replay mode"}
		}
		ctx, cancel := context.WithTimeout(context.Background(), e.cfg.Broker.RequestTimeout)
		connected := e.adapter.TestConnection(ctx)
		cancel()
		if !connected {
			e.setRunning(false)
			return StartResult{OK: false, Msg: "broker connection test failed"}
		}
		go e.runLive()
	default:
		e.setRunning(false)
		return StartResult{OK: false, Msg: fmt.Sprintf("unknown mode %q", mode)}
	}

	e.bus.Publish(Event{Type: EventStarted, Timestamp: time.Now()})
	return StartResult{OK: true, Msg: fmt.Sprintf("engine started in %s mode", mode)}
}

// Stop signals the scheduler to finish the current cycle and shut down, and
// waits for it.
func (e *Engine) Stop() {
	e.mu.RLock()
	running := e.running
	done := e.done
	e.mu.RUnlock()
	if !running {
		return
	}
	e.stopOnce.Do(func() { close(e.stop) })
	<-done
}

// ChangeTimeframe switches the bar interval. Only legal while stopped.
func (e *Engine) ChangeTimeframe(tf broker.Timeframe) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return fmt.Errorf("cannot change timeframe while running")
	}
	if !tf.Valid() {
		return fmt.Errorf("invalid timeframe %q", tf)
	}
	e.cfg.Schedule.Timeframe = string(tf)
	return nil
}

func (e *Engine) setRunning(v bool) {
	e.mu.Lock()
	e.running = v
	e.mu.Unlock()
}

// GetStatus returns the public engine snapshot.
func (e *Engine) GetStatus() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()

	ps := e.portfolio
	stats := computePerformance(ps.ClosedTrades)

	st := Status{
		IsRunning:      e.running,
		Mode:           e.cfg.Environment.Mode,
		Timeframe:      e.cfg.Schedule.Timeframe,
		TotalTrades:    stats.totalTrades,
		WinRate:        stats.winRate,
		TotalPnL:       stats.totalPnL,
		UnrealizedPnL:  ps.UnrealizedPnL(),
		CurrentBalance: ps.Equity(),
		MaxDrawdown:    ps.MaxDrawdown,
		NextCheckTime:  e.nextCheck,
	}
	if e.running {
		st.UptimeSeconds = time.Since(e.startedAt).Seconds()
	}

	interval := e.cfg.Timeframe().Duration()
	if interval > 0 {
		// 252 trading days of 6.5 market hours.
		cyclesPerYear := 252 * 6.5 * float64(time.Hour) / float64(interval)
		st.SharpeRatio = sharpeRatio(ps.EquityCurve, cyclesPerYear)
	}

	for _, p := range ps.OpenPositions {
		st.OpenPositions = append(st.OpenPositions, *p)
	}
	st.PortfolioGreeks = e.portfolioGreeksLocked()
	st.RiskWarnings = e.governor.PortfolioWarnings(ps, e.lastPrice, time.Now())

	st.EnabledFeatures = []string{"credit_spreads"}
	if e.cfg.Strategy.Spreads.UseNakedOptions {
		st.EnabledFeatures = append(st.EnabledFeatures, "naked_options")
	}
	if e.cfg.Dashboard.Enabled {
		st.EnabledFeatures = append(st.EnabledFeatures, "dashboard")
	}
	return st
}

// portfolioGreeksLocked aggregates net Greeks over open positions. Callers
// hold at least a read lock.
func (e *Engine) portfolioGreeksLocked() models.GreeksSnapshot {
	var agg models.GreeksSnapshot
	agg.UnderlyingPrice = e.lastPrice
	for _, p := range e.portfolio.OpenPositions {
		q := float64(p.Quantity)
		g := p.Current.Greeks
		agg.Delta += g.Delta * q
		agg.Gamma += g.Gamma * q
		agg.Theta += g.Theta * q
		agg.Vega += g.Vega * q
		agg.Rho += g.Rho * q
		agg.Timestamp = g.Timestamp
	}
	return agg
}

// Portfolio exposes the portfolio for inspection. Do not mutate.
func (e *Engine) Portfolio() *models.PortfolioState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.portfolio
}
