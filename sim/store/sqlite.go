package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver
)

// Schema is applied on open; it is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS simulation_runs (
	run_id         TEXT PRIMARY KEY,
	created_at     TEXT NOT NULL,
	seed           INTEGER NOT NULL,
	n_simulations  INTEGER NOT NULL,
	forecast_start TEXT NOT NULL,
	forecast_days  INTEGER NOT NULL,
	region_wkt     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS simulated_events (
	run_id        TEXT NOT NULL REFERENCES simulation_runs(run_id),
	catalog_id    INTEGER NOT NULL,
	event_id      INTEGER NOT NULL,
	latitude      REAL NOT NULL,
	longitude     REAL NOT NULL,
	time          TEXT NOT NULL,
	magnitude     REAL NOT NULL,
	is_background INTEGER NOT NULL,
	PRIMARY KEY (run_id, catalog_id, event_id)
);

CREATE INDEX IF NOT EXISTS idx_simulated_events_time ON simulated_events(run_id, time);
`

// RunMetadata describes one batch of simulations.
type RunMetadata struct {
	Seed          int64
	NSimulations  int
	ForecastStart time.Time
	ForecastDays  int
	RegionWKT     string
}

// SQLiteSink stores every batch of a run in a SQLite database. Each sink
// registers a fresh run id, so several runs can share one file.
type SQLiteSink struct {
	db    *sql.DB
	runID string
	mu    sync.Mutex
}

// OpenSQLite opens (or creates) the database at dsn and registers a run.
func OpenSQLite(ctx context.Context, dsn string, meta RunMetadata) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening %s: %w", dsn, err)
	}
	// One writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{"PRAGMA busy_timeout = 5000", "PRAGMA foreign_keys=ON"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: creating schema: %w", err)
	}

	runID := uuid.NewString()
	_, err = db.ExecContext(ctx,
		`INSERT INTO simulation_runs (run_id, created_at, seed, n_simulations, forecast_start, forecast_days, region_wkt)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, time.Now().UTC().Format(time.RFC3339), meta.Seed, meta.NSimulations,
		meta.ForecastStart.UTC().Format(TimeLayout), meta.ForecastDays, meta.RegionWKT)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: registering run: %w", err)
	}
	return &SQLiteSink{db: db, runID: runID}, nil
}

// RunID returns the id under which this sink's rows are stored.
func (s *SQLiteSink) RunID() string {
	return s.runID
}

// WriteBatch inserts rows in one transaction.
func (s *SQLiteSink) WriteBatch(rows []Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := context.Background()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO simulated_events (run_id, catalog_id, event_id, latitude, longitude, time, magnitude, is_background)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("sqlite: prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := range rows {
		r := &rows[i]
		bg := 0
		if r.IsBackground {
			bg = 1
		}
		if _, err := stmt.ExecContext(ctx, s.runID, r.CatalogID, r.ID, r.Latitude, r.Longitude,
			r.Time.UTC().Format(TimeLayout), r.Magnitude, bg); err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite: insert row %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

// Rows reads back every row of this sink's run, ordered by catalog and time.
func (s *SQLiteSink) Rows(ctx context.Context) ([]Row, error) {
	rs, err := s.db.QueryContext(ctx,
		`SELECT catalog_id, event_id, latitude, longitude, time, magnitude, is_background
		 FROM simulated_events WHERE run_id = ? ORDER BY catalog_id, time, event_id`, s.runID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query rows: %w", err)
	}
	defer rs.Close()

	var out []Row
	for rs.Next() {
		var r Row
		var ts string
		var bg int
		if err := rs.Scan(&r.CatalogID, &r.ID, &r.Latitude, &r.Longitude, &ts, &r.Magnitude, &bg); err != nil {
			return nil, fmt.Errorf("sqlite: scan: %w", err)
		}
		if r.Time, err = time.Parse(TimeLayout, ts); err != nil {
			return nil, fmt.Errorf("sqlite: parse time %q: %w", ts, err)
		}
		r.IsBackground = bg == 1
		out = append(out, r)
	}
	return out, rs.Err()
}

// Close releases the database handle.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
