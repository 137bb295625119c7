// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report persists citation reports and renders them for export.
// The pipeline itself defines no persisted state; this store is the
// collaborator that keeps past runs queryable from the CLI.
package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/citation-decoder/pkg/types"
)

const dbFile = "citations.db"

// Store manages the report SQLite database.
type Store struct {
	db  *sql.DB
	dir string
}

// NewStore opens or creates the report database at dir/citations.db,
// creating the schema when absent.
func NewStore(cfg types.ReportStoreConfig) (*Store, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = "reports"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating report directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, dir: dir}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			paper_title TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS refs (
			run_id INTEGER NOT NULL REFERENCES runs(id),
			key TEXT NOT NULL,
			title TEXT,
			authors TEXT,
			year INTEGER,
			raw_text TEXT,
			PRIMARY KEY (run_id, key)
		)`,
		`CREATE TABLE IF NOT EXISTS citations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id INTEGER NOT NULL REFERENCES runs(id),
			ref_key TEXT NOT NULL,
			candidate_key TEXT,
			marker_text TEXT NOT NULL,
			start_offset INTEGER NOT NULL,
			context TEXT,
			resolution TEXT,
			status TEXT,
			purpose TEXT,
			stance TEXT,
			contribution TEXT,
			confidence REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_citations_run ON citations(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_citations_key ON citations(run_id, ref_key)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Save persists a report as a new run and returns the run ID.
func (s *Store) Save(ctx context.Context, report *types.CitationReport) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (paper_title, created_at) VALUES (?, ?)`,
		report.PaperTitle, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading run ID: %w", err)
	}

	for key, ref := range report.References {
		authors, _ := json.Marshal(ref.Authors)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO refs (run_id, key, title, authors, year, raw_text) VALUES (?, ?, ?, ?, ?, ?)`,
			runID, key, ref.Title, string(authors), ref.Year, ref.RawText); err != nil {
			return 0, fmt.Errorf("inserting reference %s: %w", key, err)
		}
	}

	for key, occs := range report.Citations {
		for _, occ := range occs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO citations
					(run_id, ref_key, candidate_key, marker_text, start_offset, context, resolution, status, purpose, stance, contribution, confidence)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				runID, key, occ.Key, occ.MarkerText, occ.StartOffset, occ.Context,
				string(occ.Resolution), string(occ.Status),
				string(occ.Analysis.Purpose), string(occ.Analysis.Stance),
				occ.Analysis.Contribution, occ.Analysis.Confidence); err != nil {
				return 0, fmt.Errorf("inserting citation under %s: %w", key, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing run: %w", err)
	}
	return runID, nil
}

// RunInfo summarizes one stored run.
type RunInfo struct {
	ID         int64  `json:"id"`
	PaperTitle string `json:"paper_title"`
	CreatedAt  string `json:"created_at"`
	Citations  int    `json:"citations"`
}

// List returns stored runs, newest first.
func (s *Store) List(ctx context.Context) ([]RunInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.paper_title, r.created_at, COUNT(c.id)
		FROM runs r LEFT JOIN citations c ON c.run_id = r.id
		GROUP BY r.id ORDER BY r.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		var info RunInfo
		if err := rows.Scan(&info.ID, &info.PaperTitle, &info.CreatedAt, &info.Citations); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, info)
	}
	return runs, rows.Err()
}

// Load reconstructs the report for a stored run.
func (s *Store) Load(ctx context.Context, runID int64) (*types.CitationReport, error) {
	report := &types.CitationReport{
		Citations:  make(map[string][]types.CitationOccurrence),
		References: make(map[string]types.ReferenceEntry),
		Summary: types.ReportSummary{
			ByPurpose: make(map[types.CitationPurpose]int),
			ByStance:  make(map[types.CitationStance]int),
		},
	}

	err := s.db.QueryRowContext(ctx,
		`SELECT paper_title FROM runs WHERE id = ?`, runID).Scan(&report.PaperTitle)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %d not found", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("querying run %d: %w", runID, err)
	}

	refRows, err := s.db.QueryContext(ctx,
		`SELECT key, title, authors, year, raw_text FROM refs WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying references: %w", err)
	}
	defer refRows.Close()

	for refRows.Next() {
		var ref types.ReferenceEntry
		var authorsJSON string
		if err := refRows.Scan(&ref.Key, &ref.Title, &authorsJSON, &ref.Year, &ref.RawText); err != nil {
			return nil, fmt.Errorf("scanning reference: %w", err)
		}
		json.Unmarshal([]byte(authorsJSON), &ref.Authors)
		report.References[ref.Key] = ref
	}
	if err := refRows.Err(); err != nil {
		return nil, err
	}

	citRows, err := s.db.QueryContext(ctx, `
		SELECT ref_key, candidate_key, marker_text, start_offset, context, resolution, status, purpose, stance, contribution, confidence
		FROM citations WHERE run_id = ? ORDER BY ref_key, start_offset`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying citations: %w", err)
	}
	defer citRows.Close()

	for citRows.Next() {
		var key string
		var occ types.CitationOccurrence
		var resolution, status, purpose, stance string
		if err := citRows.Scan(&key, &occ.Key, &occ.MarkerText, &occ.StartOffset, &occ.Context,
			&resolution, &status, &purpose, &stance,
			&occ.Analysis.Contribution, &occ.Analysis.Confidence); err != nil {
			return nil, fmt.Errorf("scanning citation: %w", err)
		}
		occ.Resolution = types.ResolutionConfidence(resolution)
		occ.Status = types.AnalysisStatus(status)
		occ.Analysis.Purpose = types.CitationPurpose(purpose)
		occ.Analysis.Stance = types.CitationStance(stance)

		report.Citations[key] = append(report.Citations[key], occ)

		report.Summary.Total++
		if key == types.UnresolvedKey {
			report.Summary.Unresolved++
		} else {
			report.Summary.Resolved++
		}
		if occ.Status == types.AnalysisFailed {
			report.Summary.Failed++
		}
		report.Summary.ByPurpose[occ.Analysis.Purpose]++
		report.Summary.ByStance[occ.Analysis.Stance]++
	}
	return report, citRows.Err()
}
