package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/revisa/internal/history"
	"github.com/MrWong99/revisa/internal/revision"
)

// Compile-time interface check.
var _ history.Store = (*Store)(nil)

var correctionColumns = []string{
	"run_id", "position", "seq", "location", "page", "error", "correction",
	"category", "subcategory", "source", "original_text", "corrected_text",
	"applied", "strategy", "reason", "hint",
}

// Store is a PostgreSQL-backed [history.Store]. All methods are safe for
// concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to dsn, pings the server and runs [Migrate].
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("history postgres: parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("history postgres: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("history postgres: ping: %w", err)
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Append inserts the run and its records in one transaction.
func (s *Store) Append(ctx context.Context, r history.Run) error {
	const q = `
		INSERT INTO revision_runs
		    (id, mode, input, revised, output, report, started_at, duration_ns,
		     units, batches, errors_found, corrections, applied, failed,
		     auto_detected, unresolved, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("history postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, q,
		r.ID, string(r.Mode), r.Input, r.Revised, r.Output, r.Report,
		r.StartedAt, r.Duration.Nanoseconds(),
		r.Units, r.Batches, r.ErrorsFound, r.Corrections, r.Applied, r.Failed,
		r.AutoDetected, r.Unresolved, r.Error,
	); err != nil {
		return fmt.Errorf("history postgres: insert run: %w", err)
	}

	if len(r.Records) > 0 {
		_, err := tx.CopyFrom(ctx, pgx.Identifier{"revision_corrections"}, correctionColumns,
			pgx.CopyFromSlice(len(r.Records), func(i int) ([]any, error) {
				c := r.Records[i]
				return []any{
					r.ID, i, c.Seq, c.Location, c.Page, c.Error, c.Correction,
					c.Category, c.Subcategory, string(c.Source), c.Original, c.Corrected,
					c.Applied, c.Strategy, c.Reason, c.Hint,
				}, nil
			}))
		if err != nil {
			return fmt.Errorf("history postgres: copy corrections: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("history postgres: commit: %w", err)
	}
	return nil
}

// Recent returns up to limit runs, newest first, without their records.
func (s *Store) Recent(ctx context.Context, limit int) ([]history.Run, error) {
	q := `
		SELECT id, mode, input, revised, output, report, started_at, duration_ns,
		       units, batches, errors_found, corrections, applied, failed,
		       auto_detected, unresolved, error
		FROM   revision_runs
		ORDER  BY started_at DESC`
	var args []any
	if limit > 0 {
		q += "\nLIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("history postgres: recent: %w", err)
	}
	runs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (history.Run, error) {
		var (
			r          history.Run
			mode       string
			durationNS int64
		)
		if err := row.Scan(
			&r.ID, &mode, &r.Input, &r.Revised, &r.Output, &r.Report, &r.StartedAt, &durationNS,
			&r.Units, &r.Batches, &r.ErrorsFound, &r.Corrections, &r.Applied, &r.Failed,
			&r.AutoDetected, &r.Unresolved, &r.Error,
		); err != nil {
			return history.Run{}, err
		}
		r.Mode = history.Mode(mode)
		r.Duration = time.Duration(durationNS)
		return r, nil
	})
	if err != nil {
		return nil, fmt.Errorf("history postgres: scan runs: %w", err)
	}
	if runs == nil {
		runs = []history.Run{}
	}
	return runs, nil
}

// Records returns the correction records of one run in discovery order.
func (s *Store) Records(ctx context.Context, runID string) ([]revision.Record, error) {
	const q = `
		SELECT seq, location, page, error, correction, category, subcategory, source,
		       original_text, corrected_text, applied, strategy, reason, hint
		FROM   revision_corrections
		WHERE  run_id = $1
		ORDER  BY position`

	rows, err := s.pool.Query(ctx, q, runID)
	if err != nil {
		return nil, fmt.Errorf("history postgres: records: %w", err)
	}
	recs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (revision.Record, error) {
		var (
			c      revision.Record
			source string
		)
		if err := row.Scan(
			&c.Seq, &c.Location, &c.Page, &c.Error, &c.Correction, &c.Category, &c.Subcategory, &source,
			&c.Original, &c.Corrected, &c.Applied, &c.Strategy, &c.Reason, &c.Hint,
		); err != nil {
			return revision.Record{}, err
		}
		c.Source = revision.Source(source)
		return c, nil
	})
	if err != nil {
		return nil, fmt.Errorf("history postgres: scan records: %w", err)
	}
	return recs, nil
}

// Ping checks the database connection. It backs the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases all pooled connections.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
