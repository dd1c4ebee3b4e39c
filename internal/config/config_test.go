package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eddiefleurent/stamford_condor/internal/broker"
)

const validReplayYAML = `
environment:
  mode: replay
  log_level: info
schedule:
  timeframe: 15m
strategy:
  symbol: SPY
replay:
  data_path: testdata/replay.json
  initial_balance: 25000
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadValidReplayConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validReplayYAML))
	require.NoError(t, err)

	assert.Equal(t, ModeReplay, cfg.Environment.Mode)
	assert.Equal(t, broker.Timeframe15Min, cfg.Timeframe())
	assert.Equal(t, 25000.0, cfg.Replay.InitialBalance)

	// Normalize fills the BALANCED defaults.
	assert.Equal(t, 14, cfg.Strategy.Indicators.RSIPeriod)
	assert.Equal(t, 3, cfg.Risk.MaxConcurrentPositions)
	assert.Equal(t, 0.02, cfg.Risk.MaxRiskPerTrade)
	assert.Equal(t, 0.65, cfg.Costs.CommissionPerContract)
	assert.Equal(t, "json", cfg.Storage.Driver)
	assert.Equal(t, StopPolicyHold, cfg.Schedule.StopPolicy)
}

func TestEnvExpansion(t *testing.T) {
	t.Setenv("TEST_TRADIER_KEY", "secret-key")
	yaml := `
environment:
  mode: paper
broker:
  provider: tradier
  api_key: ${TEST_TRADIER_KEY}
  account_id: ACCT123
  sandbox: true
`
	cfg, err := Load(writeConfig(t, yaml))
	require.NoError(t, err)
	assert.Equal(t, "secret-key", cfg.Broker.APIKey)
}

func TestStrictDecodingRejectsUnknownKeys(t *testing.T) {
	_, err := Load(writeConfig(t, validReplayYAML+"\nbogus_section:\n  x: 1\n"))
	assert.Error(t, err)
}

func TestValidationFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad mode", func(c *Config) { c.Environment.Mode = "demo" }, "environment.mode"},
		{"bad log level", func(c *Config) { c.Environment.LogLevel = "verbose" }, "log_level"},
		{"bad timeframe", func(c *Config) { c.Schedule.Timeframe = "3m" }, "timeframe"},
		{"bad stop policy", func(c *Config) { c.Schedule.StopPolicy = "panic" }, "stop_policy"},
		{"inverted window", func(c *Config) { c.Schedule.TradingStart = "17:00" }, "trading window"},
		{"iv bounds", func(c *Config) { c.Strategy.Filters.MinIV = 0.7 }, "iv bounds"},
		{"rsi bounds", func(c *Config) { c.Strategy.Thresholds.RSIOversold = 80 }, "rsi_oversold"},
		{"profit target", func(c *Config) { c.Strategy.Spreads.ProfitTargetFraction = 1.5 }, "profit_target_fraction"},
		{"stop multiple", func(c *Config) { c.Strategy.Spreads.StopLossMultiple = 0.5 }, "stop_loss_multiple"},
		{"max positions", func(c *Config) { c.Risk.MaxConcurrentPositions = -1 }, "max_concurrent_positions"},
		{"market condition", func(c *Config) { c.Costs.MarketCondition = "chaotic" }, "market_condition"},
		{"storage driver", func(c *Config) { c.Storage.Driver = "bolt" }, "storage.driver"},
		{"replay data path", func(c *Config) { c.Replay.DataPath = "" }, "data_path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, validReplayYAML))
			require.NoError(t, err)
			tt.mutate(cfg)
			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestBrokerRequiredOutsideReplay(t *testing.T) {
	cfg, err := Load(writeConfig(t, validReplayYAML))
	require.NoError(t, err)
	cfg.Environment.Mode = ModePaper
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key")
}

func TestIsWithinTradingHours(t *testing.T) {
	cfg, err := Load(writeConfig(t, validReplayYAML))
	require.NoError(t, err)

	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"mid-session", time.Date(2025, 8, 1, 11, 0, 0, 0, ny), true}, // Friday
		{"open boundary inclusive", time.Date(2025, 8, 1, 9, 30, 0, 0, ny), true},
		{"close boundary exclusive", time.Date(2025, 8, 1, 16, 0, 0, 0, ny), false},
		{"pre-market", time.Date(2025, 8, 1, 8, 0, 0, 0, ny), false},
		{"saturday", time.Date(2025, 8, 2, 11, 0, 0, 0, ny), false},
		{"sunday", time.Date(2025, 8, 3, 11, 0, 0, 0, ny), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cfg.IsWithinTradingHours(tt.at)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfigMappers(t *testing.T) {
	cfg, err := Load(writeConfig(t, validReplayYAML))
	require.NoError(t, err)

	sc := cfg.StrategyConfig()
	assert.Equal(t, "SPY", sc.Symbol)
	assert.Equal(t, 0.60, sc.MaxIV)
	assert.Equal(t, []float64{5, 10, 15}, sc.CondorWingWidths)

	mc := cfg.ManagerConfig()
	assert.Equal(t, 0.02, mc.MaxRiskPerTrade)
	assert.Equal(t, 0.5, mc.ProfitTargetFraction)
	assert.True(t, mc.Exits.ProfitTarget)

	lim := cfg.RiskLimits()
	assert.Equal(t, 0.02, lim.MaxDeltaDollarsPct)
	assert.Equal(t, 0.05, lim.DailyLossLimitPct)
}

func TestExitTogglesApply(t *testing.T) {
	full := `
environment:
  mode: replay
strategy:
  symbol: SPY
  exits:
    vol_expansion: false
    greeks_exit: false
replay:
  data_path: testdata/replay.json
  initial_balance: 25000
`
	cfg, err := Load(writeConfig(t, full))
	require.NoError(t, err)

	mc := cfg.ManagerConfig()
	assert.False(t, mc.Exits.VolExpansion)
	assert.False(t, mc.Exits.Greeks)
	assert.True(t, mc.Exits.ProfitTarget, "unset toggles keep their defaults")
}
