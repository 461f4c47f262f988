package database

import (
	"database/sql"
	"fmt"
	"time"
)

const timeLayout = time.RFC3339Nano

// Run is one batch or watch session.
type Run struct {
	ID         int64
	InputDir   string
	OutputDir  string
	DryRun     bool
	Backend    string
	StartedAt  time.Time
	FinishedAt time.Time // zero while the run is in progress
	Succeeded  int
	Failed     int
}

// FileRecord is the outcome of processing one file within a run.
type FileRecord struct {
	ID          int64
	RunID       int64
	Name        string
	Stage       string
	Success     bool
	CaptureDate string
	TargetPath  string
	Backend     string
	Bytes       int64
	Error       string
	ProcessedAt time.Time
}

// BeginRun inserts a run and returns its id.
func (h *HistoryDB) BeginRun(run Run) (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	res, err := h.db.Exec(`
		INSERT INTO runs (input_dir, output_dir, dry_run, backend, started_at)
		VALUES (?, ?, ?, ?, ?)
	`, run.InputDir, run.OutputDir, run.DryRun, run.Backend, run.StartedAt.Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	return res.LastInsertId()
}

// FinishRun stores the final counts of a run.
func (h *HistoryDB) FinishRun(id int64, succeeded, failed int, finishedAt time.Time) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	res, err := h.db.Exec(`
		UPDATE runs SET finished_at = ?, succeeded = ?, failed = ?
		WHERE id = ?
	`, finishedAt.Format(timeLayout), succeeded, failed, id)
	if err != nil {
		return fmt.Errorf("finish run %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run %d: %w", id, sql.ErrNoRows)
	}
	return nil
}

// RecordFile appends a file outcome to its run.
func (h *HistoryDB) RecordFile(rec FileRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if rec.ProcessedAt.IsZero() {
		rec.ProcessedAt = time.Now()
	}

	_, err := h.db.Exec(`
		INSERT INTO files (
			run_id, name, stage, success, capture_date, target_path,
			backend, bytes, error, processed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.RunID, rec.Name, rec.Stage, rec.Success, nullIfEmpty(rec.CaptureDate),
		nullIfEmpty(rec.TargetPath), nullIfEmpty(rec.Backend), rec.Bytes,
		nullIfEmpty(rec.Error), rec.ProcessedAt.Format(timeLayout))
	if err != nil {
		return fmt.Errorf("record %s: %w", rec.Name, err)
	}
	return nil
}

// GetRun returns one run, or nil if it doesn't exist.
func (h *HistoryDB) GetRun(id int64) (*Run, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	row := h.db.QueryRow(`
		SELECT id, input_dir, output_dir, dry_run, backend, started_at,
		       COALESCE(finished_at, ''), succeeded, failed
		FROM runs WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return run, err
}

// RecentRuns returns the most recent runs, newest first.
func (h *HistoryDB) RecentRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	rows, err := h.db.Query(`
		SELECT id, input_dir, output_dir, dry_run, backend, started_at,
		       COALESCE(finished_at, ''), succeeded, failed
		FROM runs
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// RunFiles returns the files of a run in processing order.
func (h *HistoryDB) RunFiles(runID int64) ([]FileRecord, error) {
	return h.queryFiles(`WHERE run_id = ? ORDER BY id`, runID)
}

// FileHistory returns every recorded outcome for a file name, newest first.
func (h *HistoryDB) FileHistory(name string) ([]FileRecord, error) {
	return h.queryFiles(`WHERE name = ? ORDER BY id DESC`, name)
}

func (h *HistoryDB) queryFiles(where string, arg interface{}) ([]FileRecord, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rows, err := h.db.Query(`
		SELECT id, run_id, name, stage, success, COALESCE(capture_date, ''),
		       COALESCE(target_path, ''), COALESCE(backend, ''), COALESCE(bytes, 0),
		       COALESCE(error, ''), processed_at
		FROM files `+where, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []FileRecord
	for rows.Next() {
		var f FileRecord
		var processed string
		if err := rows.Scan(&f.ID, &f.RunID, &f.Name, &f.Stage, &f.Success, &f.CaptureDate,
			&f.TargetPath, &f.Backend, &f.Bytes, &f.Error, &processed); err != nil {
			return nil, err
		}
		f.ProcessedAt, _ = time.Parse(timeLayout, processed)
		files = append(files, f)
	}
	return files, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (*Run, error) {
	var run Run
	var started, finished string
	if err := s.Scan(&run.ID, &run.InputDir, &run.OutputDir, &run.DryRun, &run.Backend,
		&started, &finished, &run.Succeeded, &run.Failed); err != nil {
		return nil, err
	}
	run.StartedAt, _ = time.Parse(timeLayout, started)
	if finished != "" {
		run.FinishedAt, _ = time.Parse(timeLayout, finished)
	}
	return &run, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
