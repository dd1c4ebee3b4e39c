package engine

import (
	"math"
	"time"

	"github.com/eddiefleurent/stamford_condor/internal/models"
)

// Status is the engine's public snapshot, served by GetStatus and the
// dashboard.
type Status struct {
	IsRunning       bool                  `json:"is_running"`
	Mode            string                `json:"mode"`
	Timeframe       string                `json:"timeframe"`
	UptimeSeconds   float64               `json:"uptime_seconds"`
	TotalTrades     int                   `json:"total_trades"`
	WinRate         float64               `json:"win_rate"`
	TotalPnL        float64               `json:"total_pnl"`
	UnrealizedPnL   float64               `json:"unrealized_pnl"`
	CurrentBalance  float64               `json:"current_balance"`
	MaxDrawdown     float64               `json:"max_drawdown"`
	SharpeRatio     float64               `json:"sharpe_ratio"`
	OpenPositions   []models.Position     `json:"open_positions"`
	PortfolioGreeks models.GreeksSnapshot `json:"portfolio_greeks"`
	RiskWarnings    []string              `json:"risk_warnings,omitempty"`
	NextCheckTime   time.Time             `json:"next_check_time,omitempty"`
	EnabledFeatures []string              `json:"enabled_features"`
}

// performanceStats derives aggregate trade statistics.
type performanceStats struct {
	totalTrades int
	winRate     float64
	totalPnL    float64
}

func computePerformance(trades []models.TradeRecord) performanceStats {
	stats := performanceStats{totalTrades: len(trades)}
	if len(trades) == 0 {
		return stats
	}
	var wins int
	for _, t := range trades {
		stats.totalPnL += t.RealizedPnL
		if t.RealizedPnL > 0 {
			wins++
		}
	}
	stats.winRate = float64(wins) / float64(len(trades)) * 100
	return stats
}

// sharpeRatio computes the annualized Sharpe of per-cycle equity returns.
// cyclesPerYear scales the per-cycle moments; zero variance yields zero.
func sharpeRatio(curve []models.EquityPoint, cyclesPerYear float64) float64 {
	if len(curve) < 3 {
		return 0
	}
	rets := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Value
		if prev <= 0 {
			continue
		}
		rets = append(rets, (curve[i].Value-prev)/prev)
	}
	if len(rets) < 2 {
		return 0
	}
	var mean float64
	for _, r := range rets {
		mean += r
	}
	mean /= float64(len(rets))
	var variance float64
	for _, r := range rets {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(rets) - 1)
	if variance == 0 {
		return 0
	}
	return mean / math.Sqrt(variance) * math.Sqrt(cyclesPerYear)
}
