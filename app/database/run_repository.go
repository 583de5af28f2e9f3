package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// runRepository handles database operations for pipeline runs
type runRepository struct {
	db *DB
}

func NewRunRepository(db *DB) RunRepository {
	return &runRepository{db: db}
}

// CreateRun stores a run together with its skip reasons
func (r *runRepository) CreateRun(run Run) (int64, error) {
	outputs, err := json.Marshal(nonNil(run.Outputs))
	if err != nil {
		return 0, fmt.Errorf("failed to encode outputs: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		INSERT INTO runs (
			started_at, status, source, origin, profile, total, kept, skipped,
			pages, unresolved_placeholders, outputs, duration_ms, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.StartedAt.UTC(), run.Status, run.Source, run.Origin, run.Profile, run.Total, run.Kept, run.Skipped,
		run.Pages, run.UnresolvedPlaceholders, string(outputs), run.DurationMs, run.Error)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}

	for _, skip := range run.Skips {
		_, err := tx.Exec(`
			INSERT INTO run_skips (run_id, entry_index, product_id, reason)
			VALUES (?, ?, ?, ?)
		`, id, skip.EntryIndex, skip.ProductID, skip.Reason)
		if err != nil {
			return 0, fmt.Errorf("failed to insert skip reason: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}

	return id, nil
}

// GetRun returns a run with its skip reasons, or nil when it does not exist
func (r *runRepository) GetRun(id int64) (*Run, error) {
	row := r.db.QueryRow(`
		SELECT id, started_at, status, source, origin, profile, total, kept, skipped,
			pages, unresolved_placeholders, outputs, duration_ms, error
		FROM runs WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	skips, err := r.getSkips(run.ID)
	if err != nil {
		return nil, err
	}
	run.Skips = skips

	return run, nil
}

// GetLatestRun returns the most recent run, or nil when none was recorded
func (r *runRepository) GetLatestRun() (*Run, error) {
	var id int64
	err := r.db.QueryRow(`SELECT id FROM runs ORDER BY started_at DESC, id DESC LIMIT 1`).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}

	return r.GetRun(id)
}

// ListRuns returns the most recent runs first, without skip reasons
func (r *runRepository) ListRuns(limit int) ([]Run, error) {
	rows, err := r.db.Query(`
		SELECT id, started_at, status, source, origin, profile, total, kept, skipped,
			pages, unresolved_placeholders, outputs, duration_ms, error
		FROM runs ORDER BY started_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	return runs, nil
}

func (r *runRepository) getSkips(runID int64) ([]RunSkip, error) {
	rows, err := r.db.Query(`
		SELECT entry_index, product_id, reason
		FROM run_skips WHERE run_id = ? ORDER BY entry_index
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get skip reasons: %w", err)
	}
	defer rows.Close()

	var skips []RunSkip
	for rows.Next() {
		var skip RunSkip
		if err := rows.Scan(&skip.EntryIndex, &skip.ProductID, &skip.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan skip reason: %w", err)
		}
		skips = append(skips, skip)
	}

	return skips, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var run Run
	var startedAt time.Time
	var outputs string

	err := row.Scan(&run.ID, &startedAt, &run.Status, &run.Source, &run.Origin, &run.Profile,
		&run.Total, &run.Kept, &run.Skipped, &run.Pages, &run.UnresolvedPlaceholders,
		&outputs, &run.DurationMs, &run.Error)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(outputs), &run.Outputs); err != nil {
		return nil, fmt.Errorf("failed to decode outputs: %w", err)
	}
	run.StartedAt = startedAt.UTC()

	return &run, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
