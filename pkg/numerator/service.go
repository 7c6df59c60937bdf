// Package numerator provides human-readable document auto-numbering
// (receipt numbers, SKUs) backed by a database sequence table.
package numerator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
)

// Generator produces the next number for a configured series.
type Generator interface {
	Next(ctx context.Context, cfg Config, period time.Time) (string, error)
}

// Strategy defines the numbering generation strategy.
type Strategy int

const (
	// StrategyStrict fetches every number with UPDATE ... RETURNING.
	// Guarantees sequential numbers without gaps; use for receipts.
	StrategyStrict Strategy = iota

	// StrategyCached allocates ranges of numbers in memory. Faster, but may
	// produce gaps on restart; fine for SKUs.
	StrategyCached
)

// Config holds numbering configuration.
type Config struct {
	// Prefix added to all numbers (e.g., "SALE", "ITM")
	Prefix string

	// IncludeYear adds the year to the number
	IncludeYear bool

	// PadWidth is the minimum number width (default 5)
	PadWidth int

	// Strategy selects strict or cached generation
	Strategy Strategy

	// RangeSize is the cached allocation size (default 50)
	RangeSize int64
}

// DefaultConfig returns sensible defaults (strict, yearly series).
func DefaultConfig(prefix string) Config {
	return Config{
		Prefix:      prefix,
		IncludeYear: true,
		PadWidth:    5,
		Strategy:    StrategyStrict,
	}
}

// Querier is the database access the numerator needs.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type cachedRange struct {
	current int64
	max     int64
}

// Service implements Generator on top of the sys_sequences table.
type Service struct {
	querier Querier

	cacheMu sync.Mutex
	ranges  map[string]*cachedRange
}

// New creates a numerator service.
func New(querier Querier) *Service {
	return &Service{
		querier: querier,
		ranges:  make(map[string]*cachedRange),
	}
}

// Next generates the next number in the series.
// Pattern: PREFIX-YEAR-XXXXX (e.g., SALE-2026-00001).
func (s *Service) Next(ctx context.Context, cfg Config, period time.Time) (string, error) {
	if s == nil {
		return "", fmt.Errorf("numerator service is not initialized")
	}

	key := s.buildKey(cfg, period)

	var num int64
	var err error
	switch cfg.Strategy {
	case StrategyCached:
		num, err = s.nextCached(ctx, key, cfg.RangeSize)
	default:
		num, err = s.nextStrict(ctx, key)
	}
	if err != nil {
		return "", err
	}

	return s.format(cfg, period, num), nil
}

// nextStrict fetches the next number directly from the database using
// UPSERT + RETURNING. current_val is the last value handed out.
func (s *Service) nextStrict(ctx context.Context, key string) (int64, error) {
	var num int64
	err := s.querier.QueryRow(ctx, `
        INSERT INTO sys_sequences (key, current_val)
        VALUES ($1, 1)
        ON CONFLICT (key) DO UPDATE SET current_val = sys_sequences.current_val + 1
        RETURNING current_val
	`, key).Scan(&num)
	if err != nil {
		return 0, fmt.Errorf("strict next: %w", err)
	}
	return num, nil
}

// nextCached serves numbers from an in-memory range, refilling from the
// database when exhausted. The reserved range is (newMax-size, newMax].
func (s *Service) nextCached(ctx context.Context, key string, size int64) (int64, error) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	rng, exists := s.ranges[key]
	if !exists {
		rng = &cachedRange{}
		s.ranges[key] = rng
	}

	if rng.current >= rng.max {
		if size <= 0 {
			size = 50
		}

		var newMax int64
		err := s.querier.QueryRow(ctx, `
            INSERT INTO sys_sequences (key, current_val)
            VALUES ($1, $2)
            ON CONFLICT (key) DO UPDATE SET current_val = sys_sequences.current_val + $2
            RETURNING current_val
		`, key, size).Scan(&newMax)
		if err != nil {
			return 0, fmt.Errorf("reserve range: %w", err)
		}

		rng.current = newMax - size
		rng.max = newMax
	}

	rng.current++
	return rng.current, nil
}

func (s *Service) buildKey(cfg Config, period time.Time) string {
	if cfg.IncludeYear {
		return fmt.Sprintf("%s_%d", cfg.Prefix, period.Year())
	}
	return cfg.Prefix
}

func (s *Service) format(cfg Config, period time.Time, num int64) string {
	pad := cfg.PadWidth
	if pad <= 0 {
		pad = 5
	}
	if cfg.IncludeYear {
		return fmt.Sprintf("%s-%d-%0*d", cfg.Prefix, period.Year(), pad, num)
	}
	return fmt.Sprintf("%s-%0*d", cfg.Prefix, pad, num)
}
