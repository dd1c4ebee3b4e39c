package broker

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/eddiefleurent/stamford_condor/internal/models"
)

// ReplayData is the on-disk format for recorded replay inputs.
type ReplayData struct {
	Symbol string                 `json:"symbol"`
	Bars   []models.Bar           `json:"bars"`
	Chains []*models.OptionsChain `json:"chains"`
}

// LoadReplayData reads a recorded dataset from a JSON file.
func LoadReplayData(path string) (*ReplayData, error) {
	raw, err := os.ReadFile(path) // #nosec G304 -- user-provided data path
	if err != nil {
		return nil, fmt.Errorf("reading replay data %q: %w", path, err)
	}
	var data ReplayData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parsing replay data %q: %w", path, err)
	}
	if data.Symbol == "" {
		return nil, fmt.Errorf("replay data %q missing symbol", path)
	}
	if len(data.Bars) == 0 {
		return nil, fmt.Errorf("replay data %q has no bars", path)
	}
	return &data, nil
}
