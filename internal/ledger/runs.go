package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound reports a run id with no ledger row.
var ErrNotFound = errors.New("run not found")

// timestampLayout keeps a fixed width so started_at sorts as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

const runColumns = `id, batch_id, site, year, input_path, output_path, format, crs,
    min_score, min_detections, min_consec, detections, targets, nests,
    status, error, started_at, finished_at`

// Record inserts run, assigning an id and timestamps when missing.
func (s *Store) Record(ctx context.Context, run *Run) error {
	if run == nil {
		return errors.New("record run: nil run")
	}
	if run.ID == "" {
		run.ID = NewID()
	}
	if run.BatchID == "" {
		run.BatchID = run.ID
	}
	now := time.Now().UTC()
	if run.StartedAt.IsZero() {
		run.StartedAt = now
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = now
	}
	if run.Status == "" {
		run.Status = StatusSucceeded
	}

	_, err := s.exec(ctx,
		`INSERT INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.BatchID,
		run.Site,
		run.Year,
		run.InputPath,
		nullableString(run.OutputPath),
		nullableString(run.Format),
		nullableString(run.CRS),
		run.MinScore,
		run.MinDetections,
		run.MinConsec,
		run.Detections,
		run.Targets,
		run.Nests,
		string(run.Status),
		nullableString(run.Error),
		run.StartedAt.UTC().Format(timestampLayout),
		run.FinishedAt.UTC().Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Get fetches one run by id.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// List returns runs newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Run, error) {
	ctx = ensureContext(ctx)

	var (
		where []string
		args  []any
	)
	if opts.Site != "" {
		where = append(where, "site = ?")
		args = append(args, opts.Site)
	}
	if opts.Year != "" {
		where = append(where, "year = ?")
		args = append(args, opts.Year)
	}
	if opts.BatchID != "" {
		where = append(where, "batch_id = ?")
		args = append(args, opts.BatchID)
	}
	if opts.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(opts.Status))
	}

	query := `SELECT ` + runColumns + ` FROM runs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY started_at DESC, rowid DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
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
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Clear removes every run and reports how many were deleted.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.exec(ctx, "DELETE FROM runs")
	if err != nil {
		return 0, fmt.Errorf("clear runs: %w", err)
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var (
		run                             Run
		output, format, crs, errMessage sql.NullString
		status, started, finished       string
	)
	err := sc.Scan(
		&run.ID,
		&run.BatchID,
		&run.Site,
		&run.Year,
		&run.InputPath,
		&output,
		&format,
		&crs,
		&run.MinScore,
		&run.MinDetections,
		&run.MinConsec,
		&run.Detections,
		&run.Targets,
		&run.Nests,
		&status,
		&errMessage,
		&started,
		&finished,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}
	run.OutputPath = output.String
	run.Format = format.String
	run.CRS = crs.String
	run.Error = errMessage.String
	run.Status = Status(status)
	run.StartedAt = parseTimestamp(started)
	run.FinishedAt = parseTimestamp(finished)
	return &run, nil
}

func parseTimestamp(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
