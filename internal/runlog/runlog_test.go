package runlog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/justinforbes/Microsoft-365-Extractor-Suite/internal/ual"
)

func TestStore_RecordAndCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	sum := ual.NewRunSummary("incident-42")
	sum.SearchID = "q-1"
	sum.TotalRecords = 123
	sum.PageCount = 3
	sum.OutputPath = "Output/UnifiedAuditLog/x.json"
	sum.Finalize(sum.StartedAt.Add(90 * time.Second))

	if err := store.Record(context.Background(), sum); err != nil {
		t.Fatalf("record: %v", err)
	}

	n, err := store.Runs(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 run, got %d", n)
	}
}

func TestStore_ReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	store, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.Record(context.Background(), ual.NewRunSummary("first")); err != nil {
		t.Fatalf("record: %v", err)
	}
	store.Close()

	store, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer store.Close()
	if err := store.Record(context.Background(), ual.NewRunSummary("second")); err != nil {
		t.Fatalf("record: %v", err)
	}
	n, err := store.Runs(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 runs, got %d", n)
	}
}

func TestStore_DuplicateRunIDRejected(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	sum := ual.NewRunSummary("dup")
	if err := store.Record(context.Background(), sum); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := store.Record(context.Background(), sum); err == nil {
		t.Fatal("expected primary key violation")
	}
}
