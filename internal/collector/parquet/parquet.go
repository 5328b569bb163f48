// Package parquet serves bars from Parquet files on disk, laid out as
// <DataDir>/<interval>/<SYMBOL>.parquet.
package parquet

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/newthinker/strata/internal/collector"
	"github.com/newthinker/strata/internal/core"
)

// Compile-time interface checks.
var (
	_ collector.Collector = (*Store)(nil)
	_ collector.Writer    = (*Store)(nil)
)

// BarRecord is the on-disk schema for one bar.
type BarRecord struct {
	Symbol    string  `parquet:"symbol"`
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Open      float64 `parquet:"open"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Close     float64 `parquet:"close"`
	Volume    int64   `parquet:"volume"`
}

// Store reads and writes bars as Parquet files.
type Store struct {
	DataDir string
}

// New creates a Store rooted at dataDir.
func New(dataDir string) *Store {
	return &Store{DataDir: dataDir}
}

func (s *Store) Name() string { return "parquet" }

func (s *Store) Init(cfg collector.Config) error {
	if cfg.DataDir != "" {
		s.DataDir = cfg.DataDir
	}
	if s.DataDir == "" {
		return fmt.Errorf("parquet collector: data_dir is required")
	}
	return nil
}

// FetchHistory returns stored bars for symbol within [start, end].
func (s *Store) FetchHistory(_ context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error) {
	path := s.path(symbol, interval)
	records, err := parquet.ReadFile[BarRecord](path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("no stored data for %s (%s)", symbol, interval)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	bars := make([]core.OHLCV, 0, len(records))
	for _, r := range records {
		ts := time.UnixMilli(r.Timestamp).UTC()
		if ts.Before(start) || ts.After(end) {
			continue
		}
		bars = append(bars, core.OHLCV{
			Symbol:   symbol,
			Interval: interval,
			Open:     r.Open,
			High:     r.High,
			Low:      r.Low,
			Close:    r.Close,
			Volume:   r.Volume,
			Time:     ts,
		})
	}
	return bars, nil
}

// WriteHistory merges bars into the symbol's file, replacing records with
// the same timestamp. Bars are grouped by symbol and interval.
func (s *Store) WriteHistory(_ context.Context, bars []core.OHLCV) error {
	type key struct {
		symbol   string
		interval string
	}
	groups := make(map[key][]BarRecord)
	for _, b := range bars {
		k := key{symbol: b.Symbol, interval: b.Interval}
		groups[k] = append(groups[k], BarRecord{
			Symbol:    b.Symbol,
			Timestamp: b.Time.UnixMilli(),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
		})
	}

	for k, records := range groups {
		path := s.path(k.symbol, k.interval)
		existing, _ := parquet.ReadFile[BarRecord](path)
		if err := writeFile(path, merge(existing, records)); err != nil {
			return fmt.Errorf("writing bars for %s: %w", k.symbol, err)
		}
	}
	return nil
}

func (s *Store) path(symbol, interval string) string {
	if interval == "" {
		interval = "1d"
	}
	return filepath.Join(s.DataDir, interval, strings.ToUpper(symbol)+".parquet")
}

func writeFile(path string, records []BarRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

// merge deduplicates records by timestamp, preferring incoming ones.
func merge(existing, incoming []BarRecord) []BarRecord {
	seen := make(map[int64]BarRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[r.Timestamp] = r
	}
	for _, r := range incoming {
		seen[r.Timestamp] = r
	}

	merged := make([]BarRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})
	return merged
}
