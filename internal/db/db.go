// Package db stores the history of detection and calibration runs in SQLite.
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/parking.report/internal/detector"
	"github.com/banshee-data/parking.report/internal/monitoring"
)

// ErrRunNotFound is returned when a run id is not in the database.
var ErrRunNotFound = errors.New("run not found")

// Run modes.
const (
	ModeDetect    = "detect"
	ModeCalibrate = "calibrate"
)

type DB struct {
	*sql.DB
}

// OpenDB opens the database without touching the schema.
func OpenDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// sqlite allows a single writer; one connection keeps :memory: databases shared.
	sqlDB.SetMaxOpenConns(1)

	if _, err := sqlDB.Exec(`PRAGMA foreign_keys = ON; PRAGMA busy_timeout = 5000;`); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	return &DB{sqlDB}, nil
}

// NewDB opens the database and migrates it to the latest schema.
func NewDB(path string) (*DB, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	if err := db.MigrateUp(MigrationsFS()); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Run is one invocation of the sensor in calibrate or detect mode.
type Run struct {
	ID          string
	Mode        string
	SensorID    int
	StartRange  float64
	LengthRange float64
	Threshold   float64
	StartedAt   time.Time
	FinishedAt  time.Time
	Outcome     string
	Error       string
}

// Finished reports whether FinishRun was called for the run.
func (r Run) Finished() bool { return !r.FinishedAt.IsZero() }

// StartRun inserts a new run and returns its generated id.
func (db *DB) StartRun(r Run) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	_, err := db.Exec(
		`INSERT INTO runs (run_id, mode, sensor_id, start_range, length_range, threshold, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Mode, r.SensorID, r.StartRange, r.LengthRange, r.Threshold, r.StartedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return r.ID, nil
}

// FinishRun records the outcome of a run. A non-nil runErr is stored as text.
func (db *DB) FinishRun(id, outcome string, finishedAt time.Time, runErr error) error {
	var errText sql.NullString
	if runErr != nil {
		errText = sql.NullString{String: runErr.Error(), Valid: true}
	}
	res, err := db.Exec(
		`UPDATE runs SET finished_at = ?, outcome = ?, error = ? WHERE run_id = ?`,
		finishedAt.UTC().Format(time.RFC3339Nano), outcome, errText, id,
	)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: %w", id, ErrRunNotFound)
	}
	return nil
}

// RecordDecision appends one decision to a run.
func (db *DB) RecordDecision(runID string, d detector.Decision) error {
	_, err := db.Exec(
		`INSERT INTO decisions (run_id, seq, result, peak_distance, peak_amplitude, threshold, decided_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, d.Seq, d.Result.String(), d.Peak.Distance, d.Peak.Amplitude, d.Threshold,
		d.At.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert decision %d for run %s: %w", d.Seq, runID, err)
	}
	return nil
}

// Recorder returns an observer that stores every decision under runID.
func (db *DB) Recorder(runID string) detector.Observer {
	return detector.ObserverFunc(func(d detector.Decision) error {
		return db.RecordDecision(runID, d)
	})
}

// GetRun loads a run by id.
func (db *DB) GetRun(id string) (Run, error) {
	row := db.QueryRow(
		`SELECT run_id, mode, sensor_id, start_range, length_range, threshold, started_at,
			finished_at, outcome, error
		FROM runs WHERE run_id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %s: %w", id, ErrRunNotFound)
	}
	return r, err
}

// RecentRuns returns up to limit runs, most recent first.
func (db *DB) RecentRuns(limit int) ([]Run, error) {
	rows, err := db.Query(
		`SELECT run_id, mode, sensor_id, start_range, length_range, threshold, started_at,
			finished_at, outcome, error
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

// Decisions returns the decisions of a run in sequence order.
func (db *DB) Decisions(runID string) ([]detector.Decision, error) {
	rows, err := db.Query(
		`SELECT seq, result, peak_distance, peak_amplitude, threshold, decided_at
		FROM decisions WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var decisions []detector.Decision
	for rows.Next() {
		var (
			d       detector.Decision
			result  string
			decided string
		)
		if err := rows.Scan(&d.Seq, &result, &d.Peak.Distance, &d.Peak.Amplitude, &d.Threshold, &decided); err != nil {
			return nil, err
		}
		if result == detector.Present.String() {
			d.Result = detector.Present
		}
		if d.At, err = parseTime(decided); err != nil {
			return nil, err
		}
		decisions = append(decisions, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return decisions, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var (
		r         Run
		threshold sql.NullFloat64
		started   string
		finished  sql.NullString
		outcome   sql.NullString
		errText   sql.NullString
	)
	if err := s.Scan(&r.ID, &r.Mode, &r.SensorID, &r.StartRange, &r.LengthRange, &threshold,
		&started, &finished, &outcome, &errText); err != nil {
		return Run{}, err
	}
	r.Threshold = threshold.Float64
	r.Outcome = outcome.String
	r.Error = errText.String

	var err error
	if r.StartedAt, err = parseTime(started); err != nil {
		return Run{}, err
	}
	if finished.Valid {
		if r.FinishedAt, err = parseTime(finished.String); err != nil {
			return Run{}, err
		}
	}
	return r, nil
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		monitoring.Logf("db: unparseable timestamp %q: %v", s, err)
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
