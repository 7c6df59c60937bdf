package numerator

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Mock is an in-memory Generator for tests and wiring without a database.
type Mock struct {
	mu       sync.Mutex
	counters map[string]int64
}

// NewMock creates an in-memory generator.
func NewMock() *Mock {
	return &Mock{counters: make(map[string]int64)}
}

// Next returns sequential numbers per prefix/year key.
func (m *Mock) Next(_ context.Context, cfg Config, period time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := cfg.Prefix
	if cfg.IncludeYear {
		key = fmt.Sprintf("%s_%d", cfg.Prefix, period.Year())
	}
	m.counters[key]++

	pad := cfg.PadWidth
	if pad <= 0 {
		pad = 5
	}
	if cfg.IncludeYear {
		return fmt.Sprintf("%s-%d-%0*d", cfg.Prefix, period.Year(), pad, m.counters[key]), nil
	}
	return fmt.Sprintf("%s-%0*d", cfg.Prefix, pad, m.counters[key]), nil
}

var _ Generator = (*Mock)(nil)
