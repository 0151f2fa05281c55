package marketdata

import (
	"context"
	"fmt"
	"sync"

	"github.com/akshargrover/algo-trading-prototype/internal/model"
)

// MemorySource serves bars from memory. Fetch returns a copy, so callers
// may not alter the stored series.
type MemorySource struct {
	mu   sync.RWMutex
	bars map[string][]model.Bar
	errs map[string]error
}

// NewMemorySource creates an empty in-memory source.
func NewMemorySource() *MemorySource {
	return &MemorySource{
		bars: make(map[string][]model.Bar),
		errs: make(map[string]error),
	}
}

// Set stores the series for ticker.
func (m *MemorySource) Set(ticker string, bars []model.Bar) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bars[ticker] = append([]model.Bar(nil), bars...)
}

// SetError makes Fetch for ticker fail with err.
func (m *MemorySource) SetError(ticker string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[ticker] = err
}

// Fetch implements model.BarSource.
func (m *MemorySource) Fetch(ctx context.Context, ticker string) ([]model.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err, ok := m.errs[ticker]; ok {
		return nil, err
	}
	bars, ok := m.bars[ticker]
	if !ok {
		return nil, fmt.Errorf("memory %s: %w", ticker, model.ErrUnknownTicker)
	}
	return append(make([]model.Bar, 0, len(bars)), bars...), nil
}

// WriteBars implements model.BarWriter.
func (m *MemorySource) WriteBars(_ context.Context, ticker string, bars []model.Bar) error {
	m.Set(ticker, bars)
	return nil
}

// Close implements model.BarWriter.
func (m *MemorySource) Close() error { return nil }

var (
	_ model.BarSource = (*CSVSource)(nil)
	_ model.BarSource = (*MemorySource)(nil)
	_ model.BarWriter = (*MemorySource)(nil)
)
