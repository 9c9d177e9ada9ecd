// Package postgres stores run history in PostgreSQL.
//
// A run is one row of revision_runs; its correction records are rows of
// revision_corrections, written in the same transaction.
//
// Usage:
//
//	store, err := postgres.NewStore(ctx, dsn)
//	if err != nil { … }
//	defer store.Close()
//	_ = store.Append(ctx, run)
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlRuns = `
CREATE TABLE IF NOT EXISTS revision_runs (
    id            TEXT         PRIMARY KEY,
    mode          TEXT         NOT NULL,
    input         TEXT         NOT NULL,
    revised       TEXT         NOT NULL DEFAULT '',
    output        TEXT         NOT NULL DEFAULT '',
    report        TEXT         NOT NULL DEFAULT '',
    started_at    TIMESTAMPTZ  NOT NULL DEFAULT now(),
    duration_ns   BIGINT       NOT NULL DEFAULT 0,
    units         INTEGER      NOT NULL DEFAULT 0,
    batches       INTEGER      NOT NULL DEFAULT 0,
    errors_found  INTEGER      NOT NULL DEFAULT 0,
    corrections   INTEGER      NOT NULL DEFAULT 0,
    applied       INTEGER      NOT NULL DEFAULT 0,
    failed        INTEGER      NOT NULL DEFAULT 0,
    auto_detected INTEGER      NOT NULL DEFAULT 0,
    unresolved    INTEGER      NOT NULL DEFAULT 0,
    error         TEXT         NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_revision_runs_started_at
    ON revision_runs (started_at);
`

const ddlCorrections = `
CREATE TABLE IF NOT EXISTS revision_corrections (
    run_id         TEXT     NOT NULL REFERENCES revision_runs (id) ON DELETE CASCADE,
    position       INTEGER  NOT NULL,
    seq            INTEGER  NOT NULL,
    location       TEXT     NOT NULL DEFAULT '',
    page           INTEGER  NOT NULL DEFAULT 0,
    error          TEXT     NOT NULL,
    correction     TEXT     NOT NULL,
    category       TEXT     NOT NULL,
    subcategory    TEXT     NOT NULL DEFAULT '',
    source         TEXT     NOT NULL,
    original_text  TEXT     NOT NULL DEFAULT '',
    corrected_text TEXT     NOT NULL DEFAULT '',
    applied        BOOLEAN  NOT NULL,
    strategy       TEXT     NOT NULL DEFAULT '',
    reason         TEXT     NOT NULL DEFAULT '',
    hint           TEXT     NOT NULL DEFAULT '',
    PRIMARY KEY (run_id, position)
);

CREATE INDEX IF NOT EXISTS idx_revision_corrections_category
    ON revision_corrections (category);
`

// Migrate creates the history tables. It is idempotent and safe to call on
// every start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range []string{ddlRuns, ddlCorrections} {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("history postgres: migrate: %w", err)
		}
	}
	return nil
}
