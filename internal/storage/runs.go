package storage

import (
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

// Run statuses.
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// Run records one index run.
type Run struct {
	ID              string
	RootDir         string
	Backend         string
	StartedAt       time.Time
	FinishedAt      time.Time // zero while running
	Status          string
	Error           string // set when Status is RunFailed
	FilesDiscovered int
	FilesExtracted  int
	FilesFailed     int
	FilesCached     int
	FilesRemoved    int
	SymbolCount     int
	TruncatedCount  int
}

// StartRun inserts a new run with a fresh UUID.
func StartRun(db *sql.DB, rootDir, backend string) (*Run, error) {
	run := &Run{
		ID:        uuid.New().String(),
		RootDir:   rootDir,
		Backend:   backend,
		StartedAt: time.Now().UTC(),
		Status:    RunRunning,
	}

	_, err := sq.Insert("runs").
		Columns("run_id", "root_dir", "backend", "started_at", "status").
		Values(run.ID, run.RootDir, run.Backend, run.StartedAt.Format(time.RFC3339), run.Status).
		RunWith(db).
		Exec()
	if err != nil {
		return nil, fmt.Errorf("failed to start run: %w", err)
	}
	return run, nil
}

// FinishRun marks the run completed, stores its counters and completion time
// and updates the last_indexed metadata key.
func FinishRun(db *sql.DB, run *Run) error {
	run.Status = RunCompleted
	run.Error = ""
	if err := updateRun(db, run); err != nil {
		return err
	}
	return SetMetadata(db, "last_indexed", run.FinishedAt.UTC().Format(time.RFC3339))
}

// FailRun marks the run failed with cause. Counters gathered so far are
// kept and last_indexed is left alone.
func FailRun(db *sql.DB, run *Run, cause error) error {
	run.Status = RunFailed
	run.Error = cause.Error()
	return updateRun(db, run)
}

func updateRun(db *sql.DB, run *Run) error {
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now().UTC()
	}
	finished := run.FinishedAt.UTC().Format(time.RFC3339)

	_, err := sq.Update("runs").
		SetMap(map[string]any{
			"finished_at":      finished,
			"status":           run.Status,
			"error":            run.Error,
			"files_discovered": run.FilesDiscovered,
			"files_extracted":  run.FilesExtracted,
			"files_failed":     run.FilesFailed,
			"files_cached":     run.FilesCached,
			"files_removed":    run.FilesRemoved,
			"symbol_count":     run.SymbolCount,
			"truncated_count":  run.TruncatedCount,
		}).
		Where(sq.Eq{"run_id": run.ID}).
		RunWith(db).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", run.ID, err)
	}
	return nil
}

// LatestRun returns the most recently started run, or (nil, nil) when the
// database has none.
func LatestRun(db *sql.DB) (*Run, error) {
	run := &Run{}
	var startedAt string
	var finishedAt sql.NullString

	err := sq.Select(
		"run_id", "root_dir", "backend", "started_at", "finished_at", "status", "error",
		"files_discovered", "files_extracted", "files_failed", "files_cached",
		"files_removed", "symbol_count", "truncated_count",
	).
		From("runs").
		OrderBy("started_at DESC", "rowid DESC").
		Limit(1).
		RunWith(db).
		QueryRow().
		Scan(
			&run.ID,
			&run.RootDir,
			&run.Backend,
			&startedAt,
			&finishedAt,
			&run.Status,
			&run.Error,
			&run.FilesDiscovered,
			&run.FilesExtracted,
			&run.FilesFailed,
			&run.FilesCached,
			&run.FilesRemoved,
			&run.SymbolCount,
			&run.TruncatedCount,
		)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest run: %w", err)
	}

	run.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
	if finishedAt.Valid {
		run.FinishedAt, _ = time.Parse(time.RFC3339, finishedAt.String)
	}
	return run, nil
}
