// Package dataset loads the scraped sales CSV into an immutable table.
package dataset

import (
	"context"
	"encoding/gob"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"marketplace-dashboard/internal/aggregator"
	"marketplace-dashboard/internal/metrics"
	"marketplace-dashboard/internal/models"
)

const snapshotVersion = "v1"

type Options struct {
	BatchSize       int
	Workers         int
	ShortNameLength int
	SnapshotEnabled bool
	SnapshotDir     string
}

type LoadStats struct {
	Path         string        `json:"path"`
	Rows         int           `json:"rows"`
	Skipped      int           `json:"skipped"`
	FromSnapshot bool          `json:"from_snapshot"`
	Duration     time.Duration `json:"duration"`
	LoadedAt     time.Time     `json:"loaded_at"`
}

// Source owns the table for one CSV path. The table is loaded on first use
// and then shared read-only by every caller; a failed load is retried on the
// next call.
type Source struct {
	path    string
	opts    Options
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu    sync.Mutex
	table *aggregator.Table
	stats LoadStats
}

func NewSource(path string, opts Options, logger *slog.Logger, m *metrics.Metrics) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{
		path:    path,
		opts:    opts,
		logger:  logger,
		metrics: m,
	}
}

// FromRecords builds a Source that is already loaded with records.
func FromRecords(records []models.Record, opts Options) *Source {
	s := NewSource("memory", opts, nil, nil)
	s.table = aggregator.NewTable(records, aggregator.WithShortNameLength(opts.ShortNameLength))
	s.stats = LoadStats{Path: s.path, Rows: len(records), LoadedAt: time.Now()}
	return s
}

// Table returns the loaded table, loading it first if needed.
func (s *Source) Table(ctx context.Context) (*aggregator.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.table != nil {
		return s.table, nil
	}

	records, stats, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	s.table = aggregator.NewTable(records, aggregator.WithShortNameLength(s.opts.ShortNameLength))
	s.stats = stats
	return s.table, nil
}

// Stats reports the last successful load. Zero before the first load.
func (s *Source) Stats() LoadStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *Source) load(ctx context.Context) ([]models.Record, LoadStats, error) {
	start := time.Now()
	stats := LoadStats{Path: s.path}

	if s.opts.SnapshotEnabled {
		if snap, err := s.loadSnapshot(); err == nil {
			stats.Rows = len(snap.Records)
			stats.Skipped = snap.Skipped
			stats.FromSnapshot = true
			stats.Duration = time.Since(start)
			stats.LoadedAt = time.Now()
			s.logger.Info("loaded from snapshot", "path", s.path, "records", stats.Rows)
			return snap.Records, stats, nil
		}
	}

	s.logger.Info("processing CSV file", "filename", s.path)

	file, err := os.Open(s.path)
	if err != nil {
		return nil, stats, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	records, skipped, err := Parse(ctx, file, s.opts.BatchSize, s.opts.Workers)
	if err != nil {
		return nil, stats, fmt.Errorf("process csv: %w", err)
	}

	stats.Rows = len(records)
	stats.Skipped = skipped
	stats.Duration = time.Since(start)
	stats.LoadedAt = time.Now()
	s.metrics.AddLoaded(stats.Rows, stats.Skipped)

	if s.opts.SnapshotEnabled {
		if err := s.saveSnapshot(records, skipped); err != nil {
			s.logger.Warn("failed to save snapshot", "error", err)
		}
	}

	s.logger.Info("csv processing complete",
		"records", stats.Rows,
		"skipped", stats.Skipped,
		"duration", stats.Duration,
		"rate", fmt.Sprintf("%.0f records/sec", float64(stats.Rows)/stats.Duration.Seconds()))

	return records, stats, nil
}

type snapshot struct {
	Version   string
	CreatedAt time.Time
	Skipped   int
	Records   []models.Record
}

func (s *Source) snapshotFilename() string {
	dir := s.opts.SnapshotDir
	if dir == "" {
		dir = ".cache"
	}
	name := strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(s.path)
	return filepath.Join(dir, fmt.Sprintf("%s_%s.gob", name, snapshotVersion))
}

func (s *Source) saveSnapshot(records []models.Record, skipped int) error {
	filename := s.snapshotFilename()
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return err
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return gob.NewEncoder(file).Encode(snapshot{
		Version:   snapshotVersion,
		CreatedAt: time.Now(),
		Skipped:   skipped,
		Records:   records,
	})
}

// loadSnapshot returns the stored records if the snapshot is newer than the CSV.
func (s *Source) loadSnapshot() (*snapshot, error) {
	csvInfo, err := os.Stat(s.path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(s.snapshotFilename())
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var snap snapshot
	if err := gob.NewDecoder(file).Decode(&snap); err != nil {
		return nil, err
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("snapshot version %q, want %q", snap.Version, snapshotVersion)
	}
	if !csvInfo.ModTime().Before(snap.CreatedAt) {
		return nil, fmt.Errorf("snapshot older than %s", s.path)
	}
	return &snap, nil
}
