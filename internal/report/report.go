// Package report persists kernel.Result/study output in the formats a
// researcher actually wants to pull into a spreadsheet or a notebook:
// JSON for the full fidelity record, CSV for the per-run summary table,
// and SQLite for studies too large to hold as flat files at all.
package report

import (
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "modernc.org/sqlite"

	"github.com/contactkeval/oilsim/internal/kernel"
)

// WriteJSON writes the full-fidelity result (event log plus summary) for
// a single run.
func WriteJSON(res *kernel.Result, outdir string) error {
	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("report: marshal result: %w", err)
	}
	return os.WriteFile(filepath.Join(outdir, "result.json"), b, 0644)
}

// WriteCSV writes one row per run summarizing a Monte Carlo study: seed,
// fingerprint, and the accounting totals, for quick loading into a
// spreadsheet.
func WriteCSV(results []kernel.Result, outdir string) error {
	f, err := os.Create(filepath.Join(outdir, "study.csv"))
	if err != nil {
		return fmt.Errorf("report: create study.csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	headers := []string{"seed", "fingerprint", "realized_pnl", "commissions", "net_pnl", "opens", "closes", "rolls", "rejections", "wins", "max_drawdown"}
	if err := w.Write(headers); err != nil {
		return fmt.Errorf("report: write header: %w", err)
	}
	for _, r := range results {
		s := r.Summary
		row := []string{
			strconv.FormatUint(r.Seed, 10),
			string(r.Fingerprint),
			strconv.FormatFloat(s.RealizedPnL, 'f', 4, 64),
			strconv.FormatFloat(s.Commissions, 'f', 4, 64),
			strconv.FormatFloat(s.NetPnL, 'f', 4, 64),
			strconv.Itoa(s.Opens),
			strconv.Itoa(s.Closes),
			strconv.Itoa(s.Rolls),
			strconv.Itoa(s.Rejections),
			strconv.Itoa(s.Wins),
			strconv.FormatFloat(s.MaxDrawdown, 'f', 4, 64),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("report: write row: %w", err)
		}
	}
	return nil
}

// WriteSQLite persists an entire study's results (summary table plus the
// full event log per run) to a single SQLite file, for studies large
// enough that a flat CSV/JSON pair is unwieldy to load back in.
func WriteSQLite(results []kernel.Result, path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("report: open sqlite %q: %w", path, err)
	}
	defer db.Close()

	const schema = `
CREATE TABLE IF NOT EXISTS runs (
	seed        INTEGER PRIMARY KEY,
	fingerprint TEXT NOT NULL,
	realized_pnl REAL NOT NULL,
	commissions  REAL NOT NULL,
	net_pnl      REAL NOT NULL,
	opens        INTEGER NOT NULL,
	closes       INTEGER NOT NULL,
	rolls        INTEGER NOT NULL,
	rejections   INTEGER NOT NULL,
	wins         INTEGER NOT NULL,
	max_drawdown REAL NOT NULL,
	events       BLOB NOT NULL
);
`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("report: create schema: %w", err)
	}

	stmt, err := db.Prepare(`INSERT OR REPLACE INTO runs
		(seed, fingerprint, realized_pnl, commissions, net_pnl, opens, closes, rolls, rejections, wins, max_drawdown, events)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("report: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range results {
		s := r.Summary
		events, err := json.Marshal(r.Events)
		if err != nil {
			return fmt.Errorf("report: marshal events for seed %d: %w", r.Seed, err)
		}
		if _, err := stmt.Exec(r.Seed, string(r.Fingerprint), s.RealizedPnL, s.Commissions, s.NetPnL,
			s.Opens, s.Closes, s.Rolls, s.Rejections, s.Wins, s.MaxDrawdown, events); err != nil {
			return fmt.Errorf("report: insert seed %d: %w", r.Seed, err)
		}
	}
	return nil
}
