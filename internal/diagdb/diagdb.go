// Package diagdb persists periodic point cloud pipeline counters to SQLite
// so that admission behaviour can be inspected after the fact.
package diagdb

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// DB wraps the diagnostics database.
type DB struct {
	*sql.DB
	runID string
}

// Open opens (creating if needed) the database at path and migrates it to
// the latest schema. Each Open starts a new run id.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	if err := applyPragmas(sqlDB); err != nil {
		sqlDB.Close()
		return nil, err
	}

	db := &DB{DB: sqlDB, runID: uuid.NewString()}
	if err := db.MigrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

func applyPragmas(db *sql.DB) error {
	for _, p := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}
	return nil
}

// RunID identifies the process that wrote a row.
func (db *DB) RunID() string {
	return db.runID
}

// Snapshot is one row of pipeline counters.
type Snapshot struct {
	RunID            string    `json:"run_id"`
	RecordedAt       time.Time `json:"recorded_at"`
	State            string    `json:"state"`
	Enabled          bool      `json:"enabled"`
	Accepted         uint64    `json:"accepted"`
	Published        uint64    `json:"published"`
	DroppedBusy      uint64    `json:"dropped_busy"`
	DroppedDisabled  uint64    `json:"dropped_disabled"`
	Rejected         uint64    `json:"rejected"`
	Truncated        uint64    `json:"truncated"`
	ColorDefaulted   uint64    `json:"color_defaulted"`
	LastPoints       int       `json:"last_points"`
	Datagrams        uint64    `json:"datagrams"`
	InvalidDatagrams uint64    `json:"invalid_datagrams"`
}

// RecordStats inserts s. A zero RecordedAt is stamped with the current time.
func (db *DB) RecordStats(ctx context.Context, s Snapshot) error {
	if s.RecordedAt.IsZero() {
		s.RecordedAt = time.Now()
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO pipeline_stats (
			run_id, recorded_at_ms, state, enabled, accepted, published,
			dropped_busy, dropped_disabled, rejected, truncated,
			color_defaulted, last_points, datagrams, invalid_datagrams
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		db.runID, s.RecordedAt.UnixMilli(), s.State, s.Enabled,
		int64(s.Accepted), int64(s.Published), int64(s.DroppedBusy), int64(s.DroppedDisabled),
		int64(s.Rejected), int64(s.Truncated), int64(s.ColorDefaulted), s.LastPoints,
		int64(s.Datagrams), int64(s.InvalidDatagrams),
	)
	if err != nil {
		return fmt.Errorf("failed to record stats: %w", err)
	}
	return nil
}

// RecentStats returns up to limit snapshots, newest first.
func (db *DB) RecentStats(ctx context.Context, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.QueryContext(ctx,
		`SELECT run_id, recorded_at_ms, state, enabled, accepted, published,
			dropped_busy, dropped_disabled, rejected, truncated,
			color_defaulted, last_points, datagrams, invalid_datagrams
		FROM pipeline_stats
		ORDER BY recorded_at_ms DESC, stats_id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var (
			s          Snapshot
			recordedMs int64
			counters   [9]int64
		)
		if err := rows.Scan(&s.RunID, &recordedMs, &s.State, &s.Enabled,
			&counters[0], &counters[1], &counters[2], &counters[3], &counters[4],
			&counters[5], &counters[6], &s.LastPoints, &counters[7], &counters[8]); err != nil {
			return nil, fmt.Errorf("failed to scan stats row: %w", err)
		}
		s.RecordedAt = time.UnixMilli(recordedMs)
		s.Accepted = uint64(counters[0])
		s.Published = uint64(counters[1])
		s.DroppedBusy = uint64(counters[2])
		s.DroppedDisabled = uint64(counters[3])
		s.Rejected = uint64(counters[4])
		s.Truncated = uint64(counters[5])
		s.ColorDefaulted = uint64(counters[6])
		s.Datagrams = uint64(counters[7])
		s.InvalidDatagrams = uint64(counters[8])
		out = append(out, s)
	}
	return out, rows.Err()
}

// PruneBefore deletes rows recorded before cutoff and returns how many went.
func (db *DB) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM pipeline_stats WHERE recorded_at_ms < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to prune stats: %w", err)
	}
	return res.RowsAffected()
}

// DefaultRecordInterval is used by RunRecorder when no positive interval is
// configured.
const DefaultRecordInterval = 10 * time.Second

// RecorderConfig controls RunRecorder.
type RecorderConfig struct {
	// Interval between snapshots. Non-positive values use DefaultRecordInterval.
	Interval time.Duration

	// Retention is how long rows are kept. Older rows are pruned after each
	// write. Zero keeps everything.
	Retention time.Duration
}

// RunRecorder writes snapshot() every interval until ctx is cancelled.
// Write failures are logged and do not stop the recorder.
func (db *DB) RunRecorder(ctx context.Context, cfg RecorderConfig, snapshot func() Snapshot) {
	interval := cfg.Interval
	if interval <= 0 {
		log.Printf("[diagdb] record interval %v is not positive, using %v", interval, DefaultRecordInterval)
		interval = DefaultRecordInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if err := db.recordAndPrune(ctx, snapshot(), now, cfg.Retention); err != nil && ctx.Err() == nil {
				log.Printf("[diagdb] %v", err)
			}
		}
	}
}

func (db *DB) recordAndPrune(ctx context.Context, s Snapshot, now time.Time, retention time.Duration) error {
	if err := db.RecordStats(ctx, s); err != nil {
		return err
	}
	if retention <= 0 {
		return nil
	}
	n, err := db.PruneBefore(ctx, now.Add(-retention))
	if err != nil {
		return err
	}
	if n > 0 {
		log.Printf("[diagdb] pruned %d rows older than %v", n, retention)
	}
	return nil
}
