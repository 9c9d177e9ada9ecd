package history_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/revisa/internal/history"
	"github.com/MrWong99/revisa/internal/revision"
)

func sampleRun(id string, started time.Time) history.Run {
	return history.Run{
		ID:          id,
		Mode:        history.ModeRevise,
		Input:       "in/" + id + ".docx",
		Output:      "output/revised/" + id + "_revised.docx",
		StartedAt:   started,
		Duration:    1500 * time.Millisecond,
		Corrections: 2,
		Applied:     1,
		Failed:      1,
		Records: []revision.Record{
			{Seq: 3, Error: "teh", Correction: "the", Category: "spelling", Source: revision.SourceModel, Applied: true},
		},
	}
}

func TestFileStore_AppendAndRecent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "history.jsonl")
	fs := history.NewFileStore(path)

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		if err := fs.Append(ctx, sampleRun(id, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("Append(%s): %v", id, err)
		}
	}

	runs, err := fs.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].ID != "c" || runs[1].ID != "b" {
		t.Errorf("got=%q,%q, want c,b", runs[0].ID, runs[1].ID)
	}
	if runs[0].Duration != 1500*time.Millisecond {
		t.Errorf("duration: got %s, want 1.5s", runs[0].Duration)
	}
	if runs[0].Records != nil {
		t.Error("records should not be persisted in the file store")
	}

	all, err := fs.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent(0): %v", err)
	}
	if len(all) != 3 {
		t.Errorf("got %d runs, want 3", len(all))
	}
}

func TestFileStore_MissingFileIsEmpty(t *testing.T) {
	t.Parallel()
	fs := history.NewFileStore(filepath.Join(t.TempDir(), "none.jsonl"))
	runs, err := fs.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("got %d runs, want 0", len(runs))
	}
}

func TestFileStore_SkipsMalformedLines(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.jsonl")
	fs := history.NewFileStore(path)
	if err := fs.Append(ctx, sampleRun("ok", time.Now())); err != nil {
		t.Fatal(err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString("{not json\n\n"); err != nil {
		t.Fatal(err)
	}
	f.Close()

	runs, err := fs.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "ok" {
		t.Errorf("got %+v, want one run \"ok\"", runs)
	}
}

func TestFileStore_LineFormat(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "history.jsonl")
	fs := history.NewFileStore(path)
	r := sampleRun("x", time.Now())
	r.Error = "document: structural mismatch"
	if err := fs.Append(context.Background(), r); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	line := string(data)
	for _, want := range []string{`"run_id":"x"`, `"mode":"revise"`, `"duration_ns":1500000000`, `"error":"document: structural mismatch"`} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q does not contain %s", line, want)
		}
	}
	if strings.Count(line, "\n") != 1 {
		t.Errorf("expected exactly one line, got %q", line)
	}
}

func TestRun_Succeeded(t *testing.T) {
	t.Parallel()
	if !(history.Run{}).Succeeded() {
		t.Error("run without error should succeed")
	}
	if (history.Run{Error: "boom"}).Succeeded() {
		t.Error("run with error should not succeed")
	}
}

func TestNewRunID_Unique(t *testing.T) {
	t.Parallel()
	a, b := history.NewRunID(), history.NewRunID()
	if a == b || len(a) != 36 {
		t.Errorf("got %q and %q, want two distinct UUIDs", a, b)
	}
}

type failingStore struct {
	history.Store
	err error
}

func (f failingStore) Append(context.Context, history.Run) error { return f.err }

func TestMulti(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()
	first := history.NewFileStore(filepath.Join(dir, "a.jsonl"))
	second := history.NewFileStore(filepath.Join(dir, "b.jsonl"))
	boom := errors.New("boom")

	m := history.Multi(first, failingStore{Store: second, err: boom}, second)
	err := m.Append(ctx, sampleRun("r1", time.Now()))
	if !errors.Is(err, boom) {
		t.Errorf("got err=%v, want boom", err)
	}

	for _, s := range []*history.FileStore{first, second} {
		runs, err := s.Recent(ctx, 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(runs) != 1 {
			t.Errorf("%s: got %d runs, want 1", s.Path(), len(runs))
		}
	}

	runs, err := m.Recent(ctx, 5)
	if err != nil || len(runs) != 1 {
		t.Errorf("Multi.Recent: got %d runs, err=%v", len(runs), err)
	}
	if err := m.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
