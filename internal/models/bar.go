// Package models provides the value types shared across the trading engine:
// bars, option chains, spreads, Greeks snapshots, positions and portfolio state.
package models

import (
	"fmt"
	"time"
)

// DefaultBarWindowCap bounds per-symbol bar history to keep memory flat.
const DefaultBarWindowCap = 1000

// Bar is a single OHLCV bar.
type Bar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
}

// Validate checks the OHLC ordering invariants.
func (b Bar) Validate() error {
	if b.Timestamp.IsZero() {
		return fmt.Errorf("bar has zero timestamp")
	}
	if b.Low > b.Open || b.Low > b.Close || b.High < b.Open || b.High < b.Close {
		return fmt.Errorf("bar OHLC out of order: o=%.2f h=%.2f l=%.2f c=%.2f",
			b.Open, b.High, b.Low, b.Close)
	}
	if b.Volume < 0 {
		return fmt.Errorf("bar has negative volume: %d", b.Volume)
	}
	return nil
}

// BarWindow is a rolling window of bars with strictly increasing timestamps.
// Appending past the cap drops the oldest bar.
type BarWindow struct {
	bars []Bar
	limit int
}

// NewBarWindow creates a rolling bar window. limit <= 0 uses DefaultBarWindowCap.
func NewBarWindow(limit int) *BarWindow {
	if limit <= 0 {
		limit = DefaultBarWindowCap
	}
	return &BarWindow{limit: limit}
}

// Append adds a bar, enforcing strictly increasing timestamps.
func (w *BarWindow) Append(b Bar) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if n := len(w.bars); n > 0 && !b.Timestamp.After(w.bars[n-1].Timestamp) {
		return fmt.Errorf("bar timestamp %s not after previous %s",
			b.Timestamp.Format(time.RFC3339), w.bars[n-1].Timestamp.Format(time.RFC3339))
	}
	w.bars = append(w.bars, b)
	if len(w.bars) > w.limit {
		// Shift instead of re-slicing so the backing array does not grow unbounded.
		copy(w.bars, w.bars[1:])
		w.bars = w.bars[:w.limit]
	}
	return nil
}

// Bars returns the window contents, oldest first. Callers must not mutate.
func (w *BarWindow) Bars() []Bar {
	return w.bars
}

// Closes returns the close series aligned with Bars.
func (w *BarWindow) Closes() []float64 {
	out := make([]float64, len(w.bars))
	for i, b := range w.bars {
		out[i] = b.Close
	}
	return out
}

// Last returns the most recent bar.
func (w *BarWindow) Last() (Bar, bool) {
	if len(w.bars) == 0 {
		return Bar{}, false
	}
	return w.bars[len(w.bars)-1], true
}

// Len returns the number of bars currently held.
func (w *BarWindow) Len() int {
	return len(w.bars)
}
