// Package main provides the entry point for the SPY 0-DTE spread engine.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/eddiefleurent/stamford_condor/internal/broker"
	"github.com/eddiefleurent/stamford_condor/internal/config"
	"github.com/eddiefleurent/stamford_condor/internal/dashboard"
	"github.com/eddiefleurent/stamford_condor/internal/engine"
	"github.com/eddiefleurent/stamford_condor/internal/metrics"
	"github.com/eddiefleurent/stamford_condor/internal/storage"
)

func main() {
	os.Exit(run())
}

func run() int {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "Path to configuration file")
	flag.Parse()

	// Broker credentials come from the environment; a local .env is optional.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: could not load .env: %v\n", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}

	logger := newLogger(cfg)
	logger.WithFields(logrus.Fields{
		"mode":      cfg.Environment.Mode,
		"symbol":    cfg.Strategy.Symbol,
		"timeframe": cfg.Schedule.Timeframe,
	}).Info("starting stamford condor")
	if cfg.Environment.Mode == config.ModeLive {
		logger.Warn("LIVE TRADING MODE - real money at risk")
		if os.Getenv("ENGINE_SKIP_LIVE_WAIT") != "1" {
			logger.Info("waiting 10 seconds to confirm (set ENGINE_SKIP_LIVE_WAIT=1 to skip)")
			time.Sleep(10 * time.Second)
		}
	}

	adapter, err := buildAdapter(cfg)
	if err != nil {
		logger.WithError(err).Error("failed to build broker adapter")
		return 1
	}

	store, err := storage.New(storage.Config{
		Driver:     cfg.Storage.Driver,
		Path:       cfg.Storage.Path,
		SQLitePath: cfg.Storage.SQLitePath,
	})
	if err != nil {
		logger.WithError(err).Error("failed to initialize storage")
		return 1
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.WithError(err).Warn("storage close failed")
		}
	}()

	m := metrics.New()
	eng, err := engine.New(cfg, adapter, store, m, logger)
	if err != nil {
		logger.WithError(err).Error("failed to build engine")
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	var dash *dashboard.Server
	if cfg.Dashboard.Enabled {
		dash = dashboard.NewServer(dashboard.Config{
			Port:      cfg.Dashboard.Port,
			AuthToken: cfg.Dashboard.AuthToken,
		}, eng, m, logger)
		g.Go(func() error {
			if err := dash.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("dashboard server: %w", err)
			}
			return nil
		})
	}

	// Log the event stream so a replay run leaves a readable trail.
	events := eng.Events()
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case ev, ok := <-events:
				if !ok {
					return nil
				}
				logger.WithFields(logrus.Fields{
					"event": ev.Type,
					"at":    ev.Timestamp.Format(time.RFC3339),
				}).Debug("engine event")
			}
		}
	})

	result := eng.Start()
	if !result.OK {
		logger.WithField("msg", result.Msg).Error("engine failed to start")
		cancel()
		_ = g.Wait()
		return 1
	}
	logger.Info(result.Msg)

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received, stopping engine")
		eng.Stop()
		if dash != nil {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := dash.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Warn("dashboard shutdown failed")
			}
		}
		return nil
	})

	// Replay completes on its own; live runs until signalled. Either way the
	// engine publishes stopped before Start's goroutine exits.
	if cfg.Environment.Mode == config.ModeReplay {
		waitForStop(eng)
		status := eng.GetStatus()
		logger.WithFields(logrus.Fields{
			"trades":       status.TotalTrades,
			"win_rate":     fmt.Sprintf("%.1f%%", status.WinRate),
			"total_pnl":    fmt.Sprintf("$%.2f", status.TotalPnL),
			"max_drawdown": fmt.Sprintf("%.2f%%", status.MaxDrawdown*100),
			"sharpe":       fmt.Sprintf("%.2f", status.SharpeRatio),
		}).Info("replay finished")
		cancel()
	}

	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("engine exited with error")
		return 1
	}
	logger.Info("engine stopped")
	return 0
}

// waitForStop polls until the scheduler reports not running.
func waitForStop(eng *engine.Engine) {
	for eng.GetStatus().IsRunning {
		time.Sleep(100 * time.Millisecond)
	}
}

func newLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	if cfg.Environment.Mode == config.ModeLive {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	if lvl, err := logrus.ParseLevel(cfg.Environment.LogLevel); err == nil {
		logger.SetLevel(lvl)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}
	return logger
}

// buildAdapter selects the data source for the configured mode. Synthetic
// data never reaches paper or live mode.
func buildAdapter(cfg *config.Config) (broker.Adapter, error) {
	if cfg.Environment.Mode == config.ModeReplay {
		data, err := broker.LoadReplayData(cfg.Replay.DataPath)
		if err != nil {
			return nil, err
		}
		return broker.NewReplayAdapter(data.Symbol, data.Bars, data.Chains, cfg.Replay.InitialBalance), nil
	}

	client := broker.NewTradierClient(
		cfg.Broker.APIKey,
		cfg.Broker.AccountID,
		cfg.Broker.Sandbox,
		cfg.Broker.RequestTimeout,
		cfg.Broker.RateLimitPerMin,
	)
	return broker.NewCircuitBreakerAdapter(client), nil
}
