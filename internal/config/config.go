// Package config provides configuration management for the trading engine.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/eddiefleurent/stamford_condor/internal/broker"
	"github.com/eddiefleurent/stamford_condor/internal/costs"
	"github.com/eddiefleurent/stamford_condor/internal/indicators"
	"github.com/eddiefleurent/stamford_condor/internal/positions"
	"github.com/eddiefleurent/stamford_condor/internal/risk"
	"github.com/eddiefleurent/stamford_condor/internal/strategy"
)

// Mode constants for environment.mode.
const (
	ModeReplay = "replay"
	ModePaper  = "paper"
	ModeLive   = "live"
)

// Stop policies for live shutdown.
const (
	StopPolicyHold       = "hold"
	StopPolicyCloseAtMid = "close-at-mid"
)

// Config represents the complete application configuration.
type Config struct {
	Environment EnvironmentConfig `yaml:"environment"`
	Broker      BrokerConfig      `yaml:"broker"`
	Schedule    ScheduleConfig    `yaml:"schedule"`
	Strategy    StrategyConfig    `yaml:"strategy"`
	Risk        RiskConfig        `yaml:"risk"`
	Costs       CostsConfig       `yaml:"costs"`
	Storage     StorageConfig     `yaml:"storage"`
	Dashboard   DashboardConfig   `yaml:"dashboard"`
	Replay      ReplayConfig      `yaml:"replay"`
}

// EnvironmentConfig defines the run mode and logging.
type EnvironmentConfig struct {
	Mode     string `yaml:"mode"`      // replay | paper | live
	LogLevel string `yaml:"log_level"` // debug | info | warn | error
}

// BrokerConfig defines broker API settings.
type BrokerConfig struct {
	Provider        string        `yaml:"provider"`
	APIKey          string        `yaml:"api_key"`
	AccountID       string        `yaml:"account_id"`
	Sandbox         bool          `yaml:"sandbox"`
	RateLimitPerMin int           `yaml:"rate_limit_per_min"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
}

// ScheduleConfig defines the cycle cadence and market hours.
type ScheduleConfig struct {
	Timeframe    string        `yaml:"timeframe"` // 1m | 5m | 15m | 1h | 1d
	Timezone     string        `yaml:"timezone"`
	TradingStart string        `yaml:"trading_start"` // "HH:MM"
	TradingEnd   string        `yaml:"trading_end"`   // "HH:MM"
	Cooldown     time.Duration `yaml:"cooldown"`
	StopPolicy   string        `yaml:"stop_policy"` // hold | close-at-mid
}

// StrategyConfig defines signal and spread-construction parameters.
type StrategyConfig struct {
	Symbol     string           `yaml:"symbol"`
	Indicators IndicatorConfig  `yaml:"indicators"`
	Thresholds ThresholdConfig  `yaml:"thresholds"`
	Filters    FilterConfig     `yaml:"filters"`
	Spreads    SpreadConfig     `yaml:"spreads"`
	Exits      ExitToggleConfig `yaml:"exits"`
}

// IndicatorConfig defines the indicator lookbacks.
type IndicatorConfig struct {
	RSIPeriod  int     `yaml:"rsi_period"`
	MACDFast   int     `yaml:"macd_fast"`
	MACDSlow   int     `yaml:"macd_slow"`
	MACDSignal int     `yaml:"macd_signal"`
	BBPeriod   int     `yaml:"bb_period"`
	BBStdDev   float64 `yaml:"bb_std_dev"`
}

// ThresholdConfig defines RSI and regime gates.
type ThresholdConfig struct {
	RSIOverbought       float64 `yaml:"rsi_overbought"`
	RSIOversold         float64 `yaml:"rsi_oversold"`
	MinRegimeConfidence float64 `yaml:"min_regime_confidence"`
}

// FilterConfig defines the volatility and liquidity gates.
type FilterConfig struct {
	MinIV              float64 `yaml:"min_iv"`
	MaxIV              float64 `yaml:"max_iv"`
	VIXMax             float64 `yaml:"vix_max"`
	MaxBidAskSpreadPct float64 `yaml:"max_bid_ask_spread_pct"`
	MinVolume          int64   `yaml:"min_volume"`
	MinOpenInterest    int64   `yaml:"min_open_interest"`
}

// SpreadConfig defines construction floors and exit parameters.
type SpreadConfig struct {
	MinNetCredit         float64   `yaml:"min_net_credit"`
	VerticalWidthMin     float64   `yaml:"vertical_width_min"`
	VerticalWidthMax     float64   `yaml:"vertical_width_max"`
	CondorWingWidths     []float64 `yaml:"condor_wing_widths"`
	ProfitTargetFraction float64   `yaml:"profit_target_fraction"`
	StopLossMultiple     float64   `yaml:"stop_loss_multiple"`
	TimeLimitDays        int       `yaml:"time_limit_days"`
	UseNakedOptions      bool      `yaml:"use_naked_options"`
}

// ExitToggleConfig enables individual exit rules.
type ExitToggleConfig struct {
	ProfitTarget *bool `yaml:"profit_target"`
	StopLoss     *bool `yaml:"stop_loss"`
	PriceBreach  *bool `yaml:"price_breach"`
	GreeksExit   *bool `yaml:"greeks_exit"`
	VolExpansion *bool `yaml:"vol_expansion"`
	TimeLimit    *bool `yaml:"time_limit"`
}

// RiskConfig defines portfolio risk limits.
type RiskConfig struct {
	MaxConcurrentPositions int              `yaml:"max_concurrent_positions"`
	MaxRiskPerTrade        float64          `yaml:"max_risk_per_trade"`
	DailyLossLimit         float64          `yaml:"daily_loss_limit"`
	RiskFreeRate           float64          `yaml:"risk_free_rate"`
	Greeks                 GreeksRiskConfig `yaml:"greeks"`
}

// GreeksRiskConfig defines aggregate Greeks caps.
type GreeksRiskConfig struct {
	MaxPortfolioDeltaPct float64 `yaml:"max_portfolio_delta_pct"`
	MaxPortfolioGamma    float64 `yaml:"max_portfolio_gamma"`
	MaxPortfolioThetaPct float64 `yaml:"max_portfolio_theta_pct"`
	MaxPortfolioVegaPct  float64 `yaml:"max_portfolio_vega_pct"`
	MaxNotionalMultiple  float64 `yaml:"max_notional_multiple"`
}

// CostsConfig defines the fill simulation parameters.
type CostsConfig struct {
	CommissionPerContract    float64 `yaml:"commission_per_contract"`
	RegulatoryFeePerContract float64 `yaml:"regulatory_fee_per_contract"`
	MarketCondition          string  `yaml:"market_condition"` // benign | normal | stressed
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Driver     string `yaml:"driver"` // json | sqlite
	Path       string `yaml:"path"`
	SQLitePath string `yaml:"sqlite_path"`
}

// DashboardConfig defines the status HTTP server.
type DashboardConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Port      int    `yaml:"port"`
	AuthToken string `yaml:"auth_token"`
}

// ReplayConfig defines backtest parameters.
type ReplayConfig struct {
	DataPath       string  `yaml:"data_path"` // recorded bars + chain snapshots
	InitialBalance float64 `yaml:"initial_balance"`
	DrainOnStop    bool    `yaml:"drain_on_stop"`
}

// Load reads, expands, normalizes and validates the configuration file.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}
	data, err := os.ReadFile(configPath) // #nosec G304 -- user-provided config path
	if err != nil {
		return nil, fmt.Errorf("reading config file %q: %w", configPath, err)
	}
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config %q: %w", configPath, err)
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Normalize sets defaults for unset fields.
func (c *Config) Normalize() {
	if strings.TrimSpace(c.Environment.Mode) == "" {
		c.Environment.Mode = ModeReplay
	}
	if strings.TrimSpace(c.Environment.LogLevel) == "" {
		c.Environment.LogLevel = "info"
	}
	if strings.TrimSpace(c.Strategy.Symbol) == "" {
		c.Strategy.Symbol = "SPY"
	}
	if c.Broker.RateLimitPerMin == 0 {
		c.Broker.RateLimitPerMin = 200
	}
	if c.Broker.RequestTimeout == 0 {
		c.Broker.RequestTimeout = 10 * time.Second
	}
	if strings.TrimSpace(c.Schedule.Timeframe) == "" {
		c.Schedule.Timeframe = string(broker.Timeframe15Min)
	}
	if strings.TrimSpace(c.Schedule.Timezone) == "" {
		c.Schedule.Timezone = "America/New_York"
	}
	if strings.TrimSpace(c.Schedule.TradingStart) == "" {
		c.Schedule.TradingStart = "09:30"
	}
	if strings.TrimSpace(c.Schedule.TradingEnd) == "" {
		c.Schedule.TradingEnd = "16:00"
	}
	if strings.TrimSpace(c.Schedule.StopPolicy) == "" {
		c.Schedule.StopPolicy = StopPolicyHold
	}

	def := strategy.DefaultConfig(c.Strategy.Symbol)
	if c.Strategy.Indicators.RSIPeriod == 0 {
		c.Strategy.Indicators.RSIPeriod = def.Indicators.RSIPeriod
	}
	if c.Strategy.Indicators.MACDFast == 0 {
		c.Strategy.Indicators.MACDFast = def.Indicators.MACDFast
	}
	if c.Strategy.Indicators.MACDSlow == 0 {
		c.Strategy.Indicators.MACDSlow = def.Indicators.MACDSlow
	}
	if c.Strategy.Indicators.MACDSignal == 0 {
		c.Strategy.Indicators.MACDSignal = def.Indicators.MACDSignal
	}
	if c.Strategy.Indicators.BBPeriod == 0 {
		c.Strategy.Indicators.BBPeriod = def.Indicators.BBPeriod
	}
	if c.Strategy.Indicators.BBStdDev == 0 {
		c.Strategy.Indicators.BBStdDev = def.Indicators.BBStdDev
	}
	if c.Strategy.Thresholds.RSIOverbought == 0 {
		c.Strategy.Thresholds.RSIOverbought = def.RSIOverbought
	}
	if c.Strategy.Thresholds.RSIOversold == 0 {
		c.Strategy.Thresholds.RSIOversold = def.RSIOversold
	}
	if c.Strategy.Thresholds.MinRegimeConfidence == 0 {
		c.Strategy.Thresholds.MinRegimeConfidence = def.MinRegimeConfidence
	}
	if c.Strategy.Filters.MinIV == 0 {
		c.Strategy.Filters.MinIV = def.MinIV
	}
	if c.Strategy.Filters.MaxIV == 0 {
		c.Strategy.Filters.MaxIV = def.MaxIV
	}
	if c.Strategy.Filters.VIXMax == 0 {
		c.Strategy.Filters.VIXMax = def.VIXMax
	}
	if c.Strategy.Filters.MaxBidAskSpreadPct == 0 {
		c.Strategy.Filters.MaxBidAskSpreadPct = def.MaxBidAskSpreadPct
	}
	if c.Strategy.Filters.MinVolume == 0 {
		c.Strategy.Filters.MinVolume = def.MinVolume
	}
	if c.Strategy.Filters.MinOpenInterest == 0 {
		c.Strategy.Filters.MinOpenInterest = def.MinOpenInterest
	}
	if c.Strategy.Spreads.MinNetCredit == 0 {
		c.Strategy.Spreads.MinNetCredit = def.MinNetCredit
	}
	if c.Strategy.Spreads.VerticalWidthMin == 0 {
		c.Strategy.Spreads.VerticalWidthMin = def.VerticalWidthMin
	}
	if c.Strategy.Spreads.VerticalWidthMax == 0 {
		c.Strategy.Spreads.VerticalWidthMax = def.VerticalWidthMax
	}
	if len(c.Strategy.Spreads.CondorWingWidths) == 0 {
		c.Strategy.Spreads.CondorWingWidths = def.CondorWingWidths
	}
	if c.Strategy.Spreads.ProfitTargetFraction == 0 {
		c.Strategy.Spreads.ProfitTargetFraction = 0.5
	}
	if c.Strategy.Spreads.StopLossMultiple == 0 {
		c.Strategy.Spreads.StopLossMultiple = 2.0
	}
	if c.Strategy.Spreads.TimeLimitDays == 0 {
		c.Strategy.Spreads.TimeLimitDays = 21
	}

	if c.Risk.MaxConcurrentPositions == 0 {
		c.Risk.MaxConcurrentPositions = 3
	}
	if c.Risk.MaxRiskPerTrade == 0 {
		c.Risk.MaxRiskPerTrade = 0.02
	}
	if c.Risk.DailyLossLimit == 0 {
		c.Risk.DailyLossLimit = 0.05
	}
	if c.Risk.RiskFreeRate == 0 {
		c.Risk.RiskFreeRate = 0.05
	}
	lim := risk.DefaultLimits()
	if c.Risk.Greeks.MaxPortfolioDeltaPct == 0 {
		c.Risk.Greeks.MaxPortfolioDeltaPct = lim.MaxDeltaDollarsPct
	}
	if c.Risk.Greeks.MaxPortfolioGamma == 0 {
		c.Risk.Greeks.MaxPortfolioGamma = lim.MaxGamma
	}
	if c.Risk.Greeks.MaxPortfolioThetaPct == 0 {
		c.Risk.Greeks.MaxPortfolioThetaPct = lim.MaxThetaPct
	}
	if c.Risk.Greeks.MaxPortfolioVegaPct == 0 {
		c.Risk.Greeks.MaxPortfolioVegaPct = lim.MaxVegaPct
	}
	if c.Risk.Greeks.MaxNotionalMultiple == 0 {
		c.Risk.Greeks.MaxNotionalMultiple = lim.MaxNotionalMultiple
	}

	if c.Costs.CommissionPerContract == 0 {
		c.Costs.CommissionPerContract = 0.65
	}
	if c.Costs.RegulatoryFeePerContract == 0 {
		c.Costs.RegulatoryFeePerContract = 0.03
	}
	if strings.TrimSpace(c.Costs.MarketCondition) == "" {
		c.Costs.MarketCondition = string(costs.Normal)
	}

	if strings.TrimSpace(c.Storage.Driver) == "" {
		c.Storage.Driver = "json"
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		c.Storage.Path = "data/portfolio.json"
	}
	if strings.TrimSpace(c.Storage.SQLitePath) == "" {
		c.Storage.SQLitePath = "data/trades.db"
	}
	if c.Dashboard.Port == 0 {
		c.Dashboard.Port = 9847
	}
	if c.Replay.InitialBalance == 0 {
		c.Replay.InitialBalance = 25000
	}
}

// Validate checks that the configuration is consistent.
func (c *Config) Validate() error {
	switch c.Environment.Mode {
	case ModeReplay, ModePaper, ModeLive:
	default:
		return fmt.Errorf("environment.mode must be one of: replay, paper, live")
	}
	switch strings.ToLower(c.Environment.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("environment.log_level must be one of: debug, info, warn, error")
	}

	if c.Environment.Mode != ModeReplay {
		if strings.TrimSpace(c.Broker.APIKey) == "" {
			return fmt.Errorf("broker.api_key is required outside replay mode")
		}
		if strings.TrimSpace(c.Broker.AccountID) == "" {
			return fmt.Errorf("broker.account_id is required outside replay mode")
		}
		switch strings.ToLower(c.Broker.Provider) {
		case "tradier":
		default:
			return fmt.Errorf("broker.provider must be 'tradier'")
		}
	}

	if !broker.Timeframe(c.Schedule.Timeframe).Valid() {
		return fmt.Errorf("schedule.timeframe must be one of: 1m, 5m, 15m, 1h, 1d")
	}
	if c.Schedule.StopPolicy != StopPolicyHold && c.Schedule.StopPolicy != StopPolicyCloseAtMid {
		return fmt.Errorf("schedule.stop_policy must be 'hold' or 'close-at-mid'")
	}
	loc, err := c.resolveLocation()
	if err != nil {
		return err
	}
	s, err1 := time.ParseInLocation("15:04", c.Schedule.TradingStart, loc)
	e, err2 := time.ParseInLocation("15:04", c.Schedule.TradingEnd, loc)
	if err1 != nil || err2 != nil || !s.Before(e) {
		return fmt.Errorf("schedule trading window invalid (start/end parse/order)")
	}
	if c.Schedule.Cooldown < 0 {
		return fmt.Errorf("schedule.cooldown must be >= 0")
	}

	if c.Strategy.Filters.MinIV < 0 || c.Strategy.Filters.MaxIV <= c.Strategy.Filters.MinIV {
		return fmt.Errorf("strategy.filters iv bounds invalid: [%.2f, %.2f]",
			c.Strategy.Filters.MinIV, c.Strategy.Filters.MaxIV)
	}
	if c.Strategy.Thresholds.RSIOversold >= c.Strategy.Thresholds.RSIOverbought {
		return fmt.Errorf("strategy.thresholds rsi_oversold must be < rsi_overbought")
	}
	if c.Strategy.Spreads.MinNetCredit <= 0 {
		return fmt.Errorf("strategy.spreads.min_net_credit must be > 0")
	}
	if c.Strategy.Spreads.VerticalWidthMin <= 0 ||
		c.Strategy.Spreads.VerticalWidthMax < c.Strategy.Spreads.VerticalWidthMin {
		return fmt.Errorf("strategy.spreads vertical width range invalid")
	}
	if pt := c.Strategy.Spreads.ProfitTargetFraction; pt <= 0 || pt >= 1 {
		return fmt.Errorf("strategy.spreads.profit_target_fraction must be in (0,1)")
	}
	if c.Strategy.Spreads.StopLossMultiple <= 1 {
		return fmt.Errorf("strategy.spreads.stop_loss_multiple must be > 1")
	}

	if c.Risk.MaxConcurrentPositions <= 0 {
		return fmt.Errorf("risk.max_concurrent_positions must be > 0")
	}
	if c.Risk.MaxRiskPerTrade <= 0 || c.Risk.MaxRiskPerTrade > 0.5 {
		return fmt.Errorf("risk.max_risk_per_trade must be in (0, 0.5]")
	}
	if c.Risk.DailyLossLimit <= 0 {
		return fmt.Errorf("risk.daily_loss_limit must be > 0")
	}

	switch costs.MarketCondition(c.Costs.MarketCondition) {
	case costs.Benign, costs.Normal, costs.Stressed:
	default:
		return fmt.Errorf("costs.market_condition must be one of: benign, normal, stressed")
	}

	switch c.Storage.Driver {
	case "json", "sqlite":
	default:
		return fmt.Errorf("storage.driver must be 'json' or 'sqlite'")
	}
	if c.Dashboard.Enabled && (c.Dashboard.Port <= 0 || c.Dashboard.Port > 65535) {
		return fmt.Errorf("dashboard.port must be between 1 and 65535")
	}
	if c.Environment.Mode == ModeReplay {
		if c.Replay.InitialBalance <= 0 {
			return fmt.Errorf("replay.initial_balance must be > 0")
		}
		if strings.TrimSpace(c.Replay.DataPath) == "" {
			return fmt.Errorf("replay.data_path is required in replay mode")
		}
	}
	return nil
}

func (c *Config) resolveLocation() (*time.Location, error) {
	tz := c.Schedule.Timezone
	if strings.TrimSpace(tz) == "" {
		tz = "America/New_York"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", tz, err)
	}
	return loc, nil
}

// Timeframe returns the configured bar interval.
func (c *Config) Timeframe() broker.Timeframe {
	return broker.Timeframe(c.Schedule.Timeframe)
}

// IsWithinTradingHours checks the configured window. Weekends never trade.
func (c *Config) IsWithinTradingHours(now time.Time) (bool, error) {
	loc, err := c.resolveLocation()
	if err != nil {
		return false, err
	}
	today := now.In(loc)
	if today.Weekday() == time.Saturday || today.Weekday() == time.Sunday {
		return false, nil
	}
	startClock, err1 := time.ParseInLocation("15:04", c.Schedule.TradingStart, loc)
	endClock, err2 := time.ParseInLocation("15:04", c.Schedule.TradingEnd, loc)
	if err1 != nil || err2 != nil {
		startClock = time.Date(0, 1, 1, 9, 30, 0, 0, loc)
		endClock = time.Date(0, 1, 1, 16, 0, 0, 0, loc)
	}
	start := time.Date(today.Year(), today.Month(), today.Day(),
		startClock.Hour(), startClock.Minute(), 0, 0, loc)
	end := time.Date(today.Year(), today.Month(), today.Day(),
		endClock.Hour(), endClock.Minute(), 0, 0, loc)
	return !today.Before(start) && today.Before(end), nil
}

// StrategyConfig maps the yaml to the selector's config value.
func (c *Config) StrategyConfig() strategy.Config {
	return strategy.Config{
		Symbol: c.Strategy.Symbol,
		Indicators: indicators.Params{
			RSIPeriod:  c.Strategy.Indicators.RSIPeriod,
			MACDFast:   c.Strategy.Indicators.MACDFast,
			MACDSlow:   c.Strategy.Indicators.MACDSlow,
			MACDSignal: c.Strategy.Indicators.MACDSignal,
			BBPeriod:   c.Strategy.Indicators.BBPeriod,
			BBStdDev:   c.Strategy.Indicators.BBStdDev,
		},
		RSIOverbought:       c.Strategy.Thresholds.RSIOverbought,
		RSIOversold:         c.Strategy.Thresholds.RSIOversold,
		MinRegimeConfidence: c.Strategy.Thresholds.MinRegimeConfidence,
		MinIV:               c.Strategy.Filters.MinIV,
		MaxIV:               c.Strategy.Filters.MaxIV,
		VIXMax:              c.Strategy.Filters.VIXMax,
		MaxBidAskSpreadPct:  c.Strategy.Filters.MaxBidAskSpreadPct,
		MinVolume:           c.Strategy.Filters.MinVolume,
		MinOpenInterest:     c.Strategy.Filters.MinOpenInterest,
		MinNetCredit:        c.Strategy.Spreads.MinNetCredit,
		VerticalWidthMin:    c.Strategy.Spreads.VerticalWidthMin,
		VerticalWidthMax:    c.Strategy.Spreads.VerticalWidthMax,
		CondorWingWidths:    c.Strategy.Spreads.CondorWingWidths,
		UseNakedOptions:     c.Strategy.Spreads.UseNakedOptions,
	}
}

// ManagerConfig maps the yaml to the position manager's config value.
func (c *Config) ManagerConfig() positions.Config {
	mc := positions.DefaultConfig()
	mc.MaxRiskPerTrade = c.Risk.MaxRiskPerTrade
	mc.ProfitTargetFraction = c.Strategy.Spreads.ProfitTargetFraction
	mc.StopLossMultiple = c.Strategy.Spreads.StopLossMultiple
	mc.TimeLimitDays = c.Strategy.Spreads.TimeLimitDays
	mc.MarketCondition = costs.MarketCondition(c.Costs.MarketCondition)
	t := c.Strategy.Exits
	apply := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	apply(&mc.Exits.ProfitTarget, t.ProfitTarget)
	apply(&mc.Exits.StopLoss, t.StopLoss)
	apply(&mc.Exits.PriceBreach, t.PriceBreach)
	apply(&mc.Exits.Greeks, t.GreeksExit)
	apply(&mc.Exits.VolExpansion, t.VolExpansion)
	apply(&mc.Exits.TimeLimit, t.TimeLimit)
	return mc
}

// RiskLimits maps the yaml to the governor's limits.
func (c *Config) RiskLimits() risk.Limits {
	lim := risk.DefaultLimits()
	lim.MaxDeltaDollarsPct = c.Risk.Greeks.MaxPortfolioDeltaPct
	lim.MaxGamma = c.Risk.Greeks.MaxPortfolioGamma
	lim.MaxThetaPct = c.Risk.Greeks.MaxPortfolioThetaPct
	lim.MaxVegaPct = c.Risk.Greeks.MaxPortfolioVegaPct
	lim.MaxNotionalMultiple = c.Risk.Greeks.MaxNotionalMultiple
	lim.DailyLossLimitPct = c.Risk.DailyLossLimit
	return lim
}

// CostsConfig maps the yaml to the cost engine's config value.
func (c *Config) CostsConfig() costs.Config {
	return costs.Config{
		CommissionPerContract:    c.Costs.CommissionPerContract,
		RegulatoryFeePerContract: c.Costs.RegulatoryFeePerContract,
		MinNetCredit:             c.Strategy.Spreads.MinNetCredit,
	}
}
