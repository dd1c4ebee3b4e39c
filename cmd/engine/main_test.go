package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eddiefleurent/stamford_condor/internal/broker"
	"github.com/eddiefleurent/stamford_condor/internal/config"
)

const replayDataJSON = `{
  "symbol": "SPY",
  "bars": [
    {"timestamp": "2025-08-01T13:30:00Z", "open": 450, "high": 451, "low": 449, "close": 450.5, "volume": 1000}
  ],
  "chains": []
}`

func TestBuildAdapterReplay(t *testing.T) {
	dataPath := filepath.Join(t.TempDir(), "replay.json")
	require.NoError(t, os.WriteFile(dataPath, []byte(replayDataJSON), 0o600))

	cfg := &config.Config{}
	cfg.Environment.Mode = config.ModeReplay
	cfg.Replay.DataPath = dataPath
	cfg.Normalize()

	adapter, err := buildAdapter(cfg)
	require.NoError(t, err)
	_, ok := adapter.(*broker.ReplayAdapter)
	assert.True(t, ok, "replay mode uses the recorded-data adapter")
}

func TestBuildAdapterReplayMissingData(t *testing.T) {
	cfg := &config.Config{}
	cfg.Environment.Mode = config.ModeReplay
	cfg.Replay.DataPath = filepath.Join(t.TempDir(), "missing.json")
	cfg.Normalize()

	_, err := buildAdapter(cfg)
	assert.Error(t, err)
}

func TestBuildAdapterPaperWrapsCircuitBreaker(t *testing.T) {
	cfg := &config.Config{}
	cfg.Environment.Mode = config.ModePaper
	cfg.Broker.Provider = "tradier"
	cfg.Broker.APIKey = "key"
	cfg.Broker.AccountID = "acct"
	cfg.Broker.Sandbox = true
	cfg.Normalize()

	adapter, err := buildAdapter(cfg)
	require.NoError(t, err)
	_, ok := adapter.(*broker.CircuitBreakerAdapter)
	assert.True(t, ok)
}

func TestNewLoggerLevels(t *testing.T) {
	cfg := &config.Config{}
	cfg.Environment.Mode = config.ModeReplay
	cfg.Environment.LogLevel = "debug"
	logger := newLogger(cfg)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	cfg.Environment.LogLevel = "nonsense"
	logger = newLogger(cfg)
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
}
