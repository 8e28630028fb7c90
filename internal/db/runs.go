package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/device-tools/internal/protocol"
)

// ErrRunNotFound is returned when a run id has no row.
var ErrRunNotFound = errors.New("run not found")

// Kind names the tool that produced a run.
type Kind string

const (
	KindProvision Kind = "provision"
	KindHWTest    Kind = "hwtest"
	KindEnvLog    Kind = "envlog"
	KindCalibrate Kind = "calibrate"
)

// Run is one invocation of a tool against a device.
type Run struct {
	ID       string     `json:"run_id"`
	Kind     Kind       `json:"kind"`
	Port     string     `json:"port"`
	Started  time.Time  `json:"started"`
	Finished *time.Time `json:"finished,omitempty"`
	// Passed is nil while the run is in progress.
	Passed *bool `json:"passed,omitempty"`
}

// Result is one named check recorded against a run.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// Calibration is the outcome of a temperature calibration run.
type Calibration struct {
	Reference float64 `json:"reference"`
	Average   float64 `json:"average"`
	Offset    float64 `json:"offset"`
	Samples   int     `json:"samples"`
	Applied   bool    `json:"applied"`
}

func toUnix(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func fromUnix(f float64) time.Time {
	sec := int64(f)
	nsec := int64((f - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// StartRun inserts a new run and returns its id.
func (db *DB) StartRun(kind Kind, port string, started time.Time) (string, error) {
	id := uuid.NewString()
	_, err := db.Exec(
		`INSERT INTO runs (run_id, kind, port, started_unix) VALUES (?, ?, ?, ?)`,
		id, string(kind), port, toUnix(started),
	)
	if err != nil {
		return "", fmt.Errorf("failed to start run: %w", err)
	}
	return id, nil
}

// FinishRun stamps the end time and overall verdict.
func (db *DB) FinishRun(runID string, finished time.Time, passed bool) error {
	res, err := db.Exec(
		`UPDATE runs SET finished_unix = ?, passed = ? WHERE run_id = ?`,
		toUnix(finished), boolInt(passed), runID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

// RecordResult appends a check result. Results keep insertion order.
func (db *DB) RecordResult(runID string, r Result) error {
	_, err := db.Exec(
		`INSERT INTO run_results (run_id, seq, name, passed, detail)
		 VALUES (?, (SELECT COUNT(*) FROM run_results WHERE run_id = ?), ?, ?, ?)`,
		runID, runID, r.Name, boolInt(r.Passed), r.Detail,
	)
	if err != nil {
		return fmt.Errorf("failed to record result %s: %w", r.Name, err)
	}
	return nil
}

// Results returns the checks recorded for runID in order.
func (db *DB) Results(runID string) ([]Result, error) {
	rows, err := db.Query(
		`SELECT name, passed, detail FROM run_results WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.Name, &r.Passed, &r.Detail); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RecordReading stores one environmental reading against runID.
func (db *DB) RecordReading(runID string, r protocol.Reading) error {
	_, err := db.Exec(
		`INSERT INTO readings (run_id, ts_unix, temperature, humidity) VALUES (?, ?, ?, ?)`,
		runID, toUnix(r.Time), r.Temperature, r.Humidity,
	)
	if err != nil {
		return fmt.Errorf("failed to record reading: %w", err)
	}
	return nil
}

// Readings returns the readings for runID, oldest first.
func (db *DB) Readings(runID string) ([]protocol.Reading, error) {
	rows, err := db.Query(
		`SELECT ts_unix, temperature, humidity FROM readings
		 WHERE run_id = ? ORDER BY ts_unix, rowid`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []protocol.Reading
	for rows.Next() {
		var (
			ts float64
			r  protocol.Reading
		)
		if err := rows.Scan(&ts, &r.Temperature, &r.Humidity); err != nil {
			return nil, err
		}
		r.Time = fromUnix(ts)
		out = append(out, r)
	}
	return out, rows.Err()
}

// RecordCalibration stores the calibration outcome for runID.
func (db *DB) RecordCalibration(runID string, c Calibration) error {
	_, err := db.Exec(
		`INSERT OR REPLACE INTO calibrations (run_id, reference, average, offset_c, samples, applied)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		runID, c.Reference, c.Average, c.Offset, c.Samples, boolInt(c.Applied),
	)
	if err != nil {
		return fmt.Errorf("failed to record calibration: %w", err)
	}
	return nil
}

// Calibration returns the stored calibration for runID.
func (db *DB) Calibration(runID string) (Calibration, error) {
	var c Calibration
	err := db.QueryRow(
		`SELECT reference, average, offset_c, samples, applied FROM calibrations WHERE run_id = ?`, runID,
	).Scan(&c.Reference, &c.Average, &c.Offset, &c.Samples, &c.Applied)
	if errors.Is(err, sql.ErrNoRows) {
		return c, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return c, err
}

const runColumns = `run_id, kind, port, started_unix, finished_unix, passed`

func scanRun(sc interface{ Scan(...any) error }) (Run, error) {
	var (
		r        Run
		kind     string
		started  float64
		finished sql.NullFloat64
		passed   sql.NullBool
	)
	if err := sc.Scan(&r.ID, &kind, &r.Port, &started, &finished, &passed); err != nil {
		return r, err
	}
	r.Kind = Kind(kind)
	r.Started = fromUnix(started)
	if finished.Valid {
		t := fromUnix(finished.Float64)
		r.Finished = &t
	}
	if passed.Valid {
		p := passed.Bool
		r.Passed = &p
	}
	return r, nil
}

// Run returns a single run by id.
func (db *DB) Run(runID string) (Run, error) {
	r, err := scanRun(db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return r, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return r, err
}

// Runs lists the most recent runs first. A limit of zero or less returns
// every run.
func (db *DB) Runs(limit int) ([]Run, error) {
	q := `SELECT ` + runColumns + ` FROM runs ORDER BY started_unix DESC, rowid DESC`
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RunSink stores envlog readings against a single run.
type RunSink struct {
	DB    *DB
	RunID string
}

// RecordReading implements envlog.Sink.
func (s RunSink) RecordReading(r protocol.Reading) error {
	return s.DB.RecordReading(s.RunID, r)
}
