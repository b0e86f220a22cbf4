// Package sqlite persists pipeline run results so adjustment history can be
// compared across observing sessions.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/aperture.report/internal/pipeline"
)

type DB struct {
	*sql.DB
}

// Open opens (creating if needed) the result database at path and ensures
// the baseline schema exists. Schema upgrades beyond the baseline are
// handled by the migrate commands.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			run_id            TEXT PRIMARY KEY,
			telescope         TEXT,
			started_at        TIMESTAMP,
			finished_at       TIMESTAMP,
			units_succeeded   BIGINT,
			units_failed      BIGINT
		);
		CREATE TABLE IF NOT EXISTS unit_results (
			run_id            TEXT,
			antenna           TEXT,
			scan              TEXT,
			frequency         DOUBLE,
			rms_before        DOUBLE,
			rms_after         DOUBLE,
			gain_before       DOUBLE,
			gain_after        DOUBLE,
			gain_theoretical  DOUBLE,
			PRIMARY KEY(run_id, antenna, scan, frequency),
			FOREIGN KEY(run_id) REFERENCES runs(run_id)
		);
		CREATE TABLE IF NOT EXISTS unit_failures (
			run_id            TEXT,
			antenna           TEXT,
			scan              TEXT,
			frequency         DOUBLE,
			error             TEXT,
			FOREIGN KEY(run_id) REFERENCES runs(run_id)
		);
		CREATE TABLE IF NOT EXISTS panel_fits (
			run_id            TEXT,
			antenna           TEXT,
			scan              TEXT,
			panel             TEXT,
			ring              BIGINT,
			ring_index        BIGINT,
			model             TEXT,
			params            TEXT,
			rms               DOUBLE,
			samples           BIGINT,
			valid             BOOLEAN,
			reason            TEXT,
			FOREIGN KEY(run_id) REFERENCES runs(run_id)
		);
		CREATE TABLE IF NOT EXISTS screw_adjustments (
			run_id            TEXT,
			antenna           TEXT,
			scan              TEXT,
			panel             TEXT,
			screw             TEXT,
			pos_x             DOUBLE,
			pos_y             DOUBLE,
			delta             DOUBLE,
			valid             BOOLEAN,
			FOREIGN KEY(run_id) REFERENCES runs(run_id)
		);
	`)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &DB{db}, nil
}

// SaveReport writes a complete run report in one transaction. It satisfies
// the pipeline's persistence sink.
func (db *DB) SaveReport(report *pipeline.Report) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO runs
		(run_id, telescope, started_at, finished_at, units_succeeded, units_failed)
		VALUES (?, ?, ?, ?, ?, ?)`,
		report.RunID, report.Telescope, report.StartedAt, report.FinishedAt,
		report.Succeeded(), report.Failed())
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for _, key := range sortedResultKeys(report) {
		res := report.Results[key]
		_, err = tx.Exec(`INSERT INTO unit_results
			(run_id, antenna, scan, frequency,
			 rms_before, rms_after, gain_before, gain_after, gain_theoretical)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			report.RunID, key.Antenna, key.Scan, key.Frequency,
			res.RMSBefore, res.RMSAfter, res.GainBefore, res.GainAfter, res.GainTheoretical)
		if err != nil {
			return fmt.Errorf("failed to insert unit result: %w", err)
		}

		for _, fit := range res.Fits {
			params, err := json.Marshal(fit.Params)
			if err != nil {
				return fmt.Errorf("failed to encode fit params: %w", err)
			}
			_, err = tx.Exec(`INSERT INTO panel_fits
				(run_id, antenna, scan, panel, ring, ring_index,
				 model, params, rms, samples, valid, reason)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				report.RunID, key.Antenna, key.Scan, fit.Panel, fit.Ring, fit.Index,
				string(fit.Model), string(params), fit.RMS, fit.Samples, fit.Valid, fit.Reason)
			if err != nil {
				return fmt.Errorf("failed to insert panel fit: %w", err)
			}
		}

		for _, adj := range res.Screws {
			_, err = tx.Exec(`INSERT INTO screw_adjustments
				(run_id, antenna, scan, panel, screw, pos_x, pos_y, delta, valid)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				report.RunID, key.Antenna, key.Scan, adj.Panel, adj.Screw,
				adj.Pos.X, adj.Pos.Y, adj.Delta, adj.Valid)
			if err != nil {
				return fmt.Errorf("failed to insert screw adjustment: %w", err)
			}
		}
	}

	for _, key := range report.SortedFailureKeys() {
		_, err = tx.Exec(`INSERT INTO unit_failures
			(run_id, antenna, scan, frequency, error)
			VALUES (?, ?, ?, ?, ?)`,
			report.RunID, key.Antenna, key.Scan, key.Frequency,
			report.Failures[key].Error())
		if err != nil {
			return fmt.Errorf("failed to insert unit failure: %w", err)
		}
	}

	return tx.Commit()
}

// RunSummary is one row of the runs table.
type RunSummary struct {
	RunID      string
	Telescope  string
	StartedAt  time.Time
	FinishedAt time.Time
	Succeeded  int
	Failed     int
}

// Runs returns stored run summaries, newest first.
func (db *DB) Runs() ([]RunSummary, error) {
	rows, err := db.Query(`SELECT run_id, telescope, started_at, finished_at,
		units_succeeded, units_failed
		FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.RunID, &r.Telescope, &r.StartedAt, &r.FinishedAt,
			&r.Succeeded, &r.Failed); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// UnitRow is one stored unit result.
type UnitRow struct {
	Antenna         string
	Scan            string
	Frequency       float64
	RMSBefore       float64
	RMSAfter        float64
	GainBefore      float64
	GainAfter       float64
	GainTheoretical float64
}

// UnitResults returns the unit results of one run in antenna/scan order.
func (db *DB) UnitResults(runID string) ([]UnitRow, error) {
	rows, err := db.Query(`SELECT antenna, scan, frequency,
		rms_before, rms_after, gain_before, gain_after, gain_theoretical
		FROM unit_results WHERE run_id = ? ORDER BY antenna, scan, frequency`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var units []UnitRow
	for rows.Next() {
		var u UnitRow
		if err := rows.Scan(&u.Antenna, &u.Scan, &u.Frequency,
			&u.RMSBefore, &u.RMSAfter, &u.GainBefore, &u.GainAfter, &u.GainTheoretical); err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

// FitRow is one stored panel fit.
type FitRow struct {
	Antenna string
	Scan    string
	Panel   string
	Ring    int
	Index   int
	Model   string
	Params  []float64
	RMS     float64
	Samples int
	Valid   bool
	Reason  string
}

// PanelFits returns the panel fits of one run in antenna/scan/panel order.
func (db *DB) PanelFits(runID string) ([]FitRow, error) {
	rows, err := db.Query(`SELECT antenna, scan, panel, ring, ring_index,
		model, params, rms, samples, valid, reason
		FROM panel_fits WHERE run_id = ? ORDER BY antenna, scan, panel`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fits []FitRow
	for rows.Next() {
		var f FitRow
		var params string
		if err := rows.Scan(&f.Antenna, &f.Scan, &f.Panel, &f.Ring, &f.Index,
			&f.Model, &params, &f.RMS, &f.Samples, &f.Valid, &f.Reason); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(params), &f.Params); err != nil {
			return nil, fmt.Errorf("failed to decode fit params: %w", err)
		}
		fits = append(fits, f)
	}
	return fits, rows.Err()
}

// ScrewRow is one stored screw adjustment.
type ScrewRow struct {
	Panel string
	Screw string
	PosX  float64
	PosY  float64
	Delta float64
	Valid bool
}

// ScrewAdjustments returns the screw adjustments for one unit of a run.
func (db *DB) ScrewAdjustments(runID, antenna, scan string) ([]ScrewRow, error) {
	rows, err := db.Query(`SELECT panel, screw, pos_x, pos_y, delta, valid
		FROM screw_adjustments
		WHERE run_id = ? AND antenna = ? AND scan = ?
		ORDER BY panel, screw`, runID, antenna, scan)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var screws []ScrewRow
	for rows.Next() {
		var s ScrewRow
		if err := rows.Scan(&s.Panel, &s.Screw, &s.PosX, &s.PosY, &s.Delta, &s.Valid); err != nil {
			return nil, err
		}
		screws = append(screws, s)
	}
	return screws, rows.Err()
}

func sortedResultKeys(report *pipeline.Report) []pipeline.UnitKey {
	keys := make([]pipeline.UnitKey, 0, len(report.Results))
	for k := range report.Results {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Antenna != keys[j].Antenna {
			return keys[i].Antenna < keys[j].Antenna
		}
		if keys[i].Scan != keys[j].Scan {
			return keys[i].Scan < keys[j].Scan
		}
		return keys[i].Frequency < keys[j].Frequency
	})
	return keys
}
