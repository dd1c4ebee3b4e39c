package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/eddiefleurent/stamford_condor/internal/models"
)

// JSONStorage persists everything to a single JSON file with atomic
// temp-file replacement.
type JSONStorage struct {
	mu       sync.RWMutex
	filepath string
	data     *jsonData
}

type jsonData struct {
	LastUpdated time.Time              `json:"last_updated"`
	Portfolio   *models.PortfolioState `json:"portfolio,omitempty"`
	Trades      []models.TradeRecord   `json:"trades"`
}

// NewJSONStorage opens (or creates) JSON-file storage at path.
func NewJSONStorage(path string) (*JSONStorage, error) {
	if path == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	s := &JSONStorage{
		filepath: path,
		data:     &jsonData{},
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating parent directory: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		if err := s.load(); err != nil {
			return nil, fmt.Errorf("loading storage: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("stat storage file: %w", err)
	}
	return s, nil
}

func (s *JSONStorage) load() error {
	raw, err := os.ReadFile(s.filepath)
	if err != nil {
		return err
	}
	var loaded jsonData
	if err := json.Unmarshal(raw, &loaded); err != nil {
		return err
	}
	if loaded.Portfolio != nil {
		loaded.Portfolio.Normalize()
	}
	s.data = &loaded
	return nil
}

// SavePortfolio persists the snapshot. The write goes through a temp file in
// the same directory and an atomic rename.
func (s *JSONStorage) SavePortfolio(ps *models.PortfolioState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Portfolio = ps
	return s.saveLocked()
}

func (s *JSONStorage) saveLocked() error {
	s.data.LastUpdated = time.Now().UTC()

	dir := filepath.Dir(s.filepath)
	f, err := os.CreateTemp(dir, ".storage-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() {
		_ = f.Close()
		_ = os.Remove(tmp)
	}()

	if err := f.Chmod(0o600); err != nil {
		return fmt.Errorf("setting temp file permissions: %w", err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.data); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, s.filepath)
}

// LoadPortfolio returns the persisted snapshot, or nil.
func (s *JSONStorage) LoadPortfolio() (*models.PortfolioState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Portfolio, nil
}

// AppendTrade records a closed trade and persists.
func (s *JSONStorage) AppendTrade(rec models.TradeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Trades = append(s.data.Trades, rec)
	return s.saveLocked()
}

// Trades returns a copy of the trade log.
func (s *JSONStorage) Trades() ([]models.TradeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.TradeRecord, len(s.data.Trades))
	copy(out, s.data.Trades)
	return out, nil
}

// Close is a no-op for file storage.
func (s *JSONStorage) Close() error {
	return nil
}

var _ Interface = (*JSONStorage)(nil)
