// Package history records one entry per document run.
//
// Records go to an append-only JSON lines file ([FileStore]) and, when a DSN
// is configured, to PostgreSQL (package history/postgres). [Multi] fans a
// run out to several stores.
package history

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/MrWong99/revisa/internal/revision"
)

// Mode is the kind of run.
type Mode string

const (
	ModeRevise  Mode = "revise"
	ModeCompare Mode = "compare"
)

// Run is the record of one document run.
type Run struct {
	ID        string        `json:"run_id"`
	Mode      Mode          `json:"mode"`
	Input     string        `json:"input"`
	Revised   string        `json:"revised,omitempty"` // compare mode: the second input
	Output    string        `json:"output,omitempty"`
	Report    string        `json:"report,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`

	Units        int `json:"units"`
	Batches      int `json:"batches"`
	ErrorsFound  int `json:"errors_found"`
	Corrections  int `json:"corrections"`
	Applied      int `json:"applied"`
	Failed       int `json:"failed"`
	AutoDetected int `json:"auto_detected"`
	Unresolved   int `json:"unresolved"`

	// Error is the message of a fatal failure; empty for a completed run.
	Error string `json:"error,omitempty"`

	// Records are the run's correction records. The file store keeps only
	// the counts; the PostgreSQL store persists them row by row.
	Records []revision.Record `json:"-"`
}

// Succeeded reports whether the run completed.
func (r Run) Succeeded() bool { return r.Error == "" }

// NewRunID returns a fresh random run identifier.
func NewRunID() string { return uuid.NewString() }

// Store persists runs.
type Store interface {
	// Append stores r.
	Append(ctx context.Context, r Run) error

	// Recent returns up to limit runs, newest first. limit <= 0 means all.
	Recent(ctx context.Context, limit int) ([]Run, error)

	Close() error
}

// Multi returns a Store that appends to every store and reads from the first.
func Multi(stores ...Store) Store {
	return multi(stores)
}

type multi []Store

func (m multi) Append(ctx context.Context, r Run) error {
	var errs []error
	for _, s := range m {
		if err := s.Append(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m multi) Recent(ctx context.Context, limit int) ([]Run, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return m[0].Recent(ctx, limit)
}

func (m multi) Close() error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}
