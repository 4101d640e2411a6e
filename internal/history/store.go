// Package history keeps fetched objects log records in DuckDB so the reports
// view can aggregate over past days.
package history

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/marcboeker/go-duckdb"
	"github.com/rs/zerolog"
	"github.com/smart-distancing/dashboard/internal/logger"
	"github.com/smart-distancing/dashboard/internal/models"
)

// Options tunes the DuckDB connection.
type Options struct {
	MemoryLimit string // e.g. "512MB"
	Threads     int
}

// Store is a DuckDB-backed record history.
type Store struct {
	db     *sql.DB
	dbPath string
	log    zerolog.Logger

	// ingestMu serializes replace-day writes so a day is never half-replaced.
	ingestMu sync.Mutex

	// Semaphore to limit concurrent report queries
	querySem chan struct{}
}

// Open opens (or creates) the history database at dbPath. An empty path
// opens an in-memory database.
func Open(dbPath string, opts Options) (*Store, error) {
	l := logger.For("history")

	if opts.MemoryLimit == "" {
		opts.MemoryLimit = "512MB"
	}
	if opts.Threads <= 0 {
		opts.Threads = 2
	}

	connector, err := duckdb.NewConnector(dbPath, func(execer driver.ExecerContext) error {
		pragmas := []string{
			fmt.Sprintf("PRAGMA memory_limit='%s'", opts.MemoryLimit),
			fmt.Sprintf("PRAGMA threads=%d", opts.Threads),
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				return fmt.Errorf("%s: %w", pragma, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS records (
			camera_id VARCHAR NOT NULL,
			day       VARCHAR NOT NULL,
			seq       INTEGER NOT NULL,
			ts        VARCHAR NOT NULL,
			detected  DOUBLE,
			violating DOUBLE,
			score     DOUBLE
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	l.Info().Str("path", dbPath).Msg("history store opened")

	return &Store{
		db:       db,
		dbPath:   dbPath,
		log:      l,
		querySem: make(chan struct{}, 3),
	}, nil
}

// Ingest replaces everything stored for (cameraID, day) with records.
func (s *Store) Ingest(ctx context.Context, cameraID, day string, records []models.LogRecord) error {
	if cameraID == "" || day == "" {
		return errors.New("camera id and day are required")
	}

	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()

	start := time.Now()

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to get connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "DELETE FROM records WHERE camera_id = ? AND day = ?", cameraID, day); err != nil {
		return fmt.Errorf("clearing day: %w", err)
	}

	if len(records) > 0 {
		// The Appender is much faster than row INSERTs for a full day.
		err = conn.Raw(func(driverConn interface{}) error {
			dConn, ok := driverConn.(*duckdb.Conn)
			if !ok {
				return fmt.Errorf("failed to cast to duckdb.Conn")
			}

			appender, err := duckdb.NewAppenderFromConn(dConn, "", "records")
			if err != nil {
				return fmt.Errorf("failed to create appender: %w", err)
			}
			defer appender.Close()

			for i, r := range records {
				err := appender.AppendRow(
					cameraID,
					day,
					int32(i),
					r.Timestamp,
					nullable(r.DetectedObjects),
					nullable(r.ViolatingObjects),
					nullable(r.EnvironmentScore),
				)
				if err != nil {
					return fmt.Errorf("failed to append row %d: %w", i, err)
				}
			}
			return appender.Flush()
		})
		if err != nil {
			return fmt.Errorf("appender error: %w", err)
		}
	}

	s.log.Debug().
		Str("camera_id", cameraID).
		Str("day", day).
		Int("records", len(records)).
		Dur("elapsed", time.Since(start)).
		Msg("day ingested")
	return nil
}

// DailySummaries aggregates each stored day in [from, to] (inclusive,
// YYYY-MM-DD) for a camera, oldest first. Empty bounds are open.
func (s *Store) DailySummaries(ctx context.Context, cameraID, from, to string) ([]models.DailySummary, error) {
	select {
	case s.querySem <- struct{}{}:
		defer func() { <-s.querySem }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if from == "" {
		from = "0000-00-00"
	}
	if to == "" {
		to = "9999-99-99"
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT day,
		       COUNT(*),
		       AVG(detected), MAX(detected),
		       AVG(violating), MAX(violating),
		       AVG(score), COUNT(score)
		FROM records
		WHERE camera_id = ? AND day >= ? AND day <= ?
		GROUP BY day
		ORDER BY day
	`, cameraID, from, to)
	if err != nil {
		return nil, fmt.Errorf("summary query failed: %w", err)
	}
	defer rows.Close()

	summaries := make([]models.DailySummary, 0)
	for rows.Next() {
		var (
			day              string
			samples, scored  int64
			avgDet, maxDet   sql.NullFloat64
			avgViol, maxViol sql.NullFloat64
			avgScore         sql.NullFloat64
		)
		if err := rows.Scan(&day, &samples, &avgDet, &maxDet, &avgViol, &maxViol, &avgScore, &scored); err != nil {
			return nil, fmt.Errorf("scanning summary: %w", err)
		}
		summaries = append(summaries, models.DailySummary{
			CameraID:            cameraID,
			Day:                 day,
			Samples:             int(samples),
			AvgDetected:         avgDet.Float64,
			MaxDetected:         maxDet.Float64,
			AvgViolating:        avgViol.Float64,
			MaxViolating:        maxViol.Float64,
			AvgEnvironmentScore: avgScore.Float64,
			ScoredSamples:       int(scored),
		})
	}
	return summaries, rows.Err()
}

// Records returns the stored records of one camera day in file order.
func (s *Store) Records(ctx context.Context, cameraID, day string) ([]models.LogRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ts, detected, violating, score
		FROM records
		WHERE camera_id = ? AND day = ?
		ORDER BY seq
	`, cameraID, day)
	if err != nil {
		return nil, fmt.Errorf("records query failed: %w", err)
	}
	defer rows.Close()

	records := make([]models.LogRecord, 0)
	for rows.Next() {
		var (
			r                models.LogRecord
			det, viol, score sql.NullFloat64
		)
		if err := rows.Scan(&r.Timestamp, &det, &viol, &score); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		r.DetectedObjects = fromNull(det)
		r.ViolatingObjects = fromNull(viol)
		r.EnvironmentScore = fromNull(score)
		records = append(records, r)
	}
	return records, rows.Err()
}

// Close closes the database. The file is kept; history is persistent.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func nullable(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func fromNull(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
