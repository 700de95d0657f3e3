package ual

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// RunSummary accumulates counters over one extraction run. The Exporter
// mutates the record counts incrementally; Finalize closes it out. It lives
// only as long as the run: printed, logged, and recorded in the run log,
// never consulted again.
type RunSummary struct {
	RunID         string
	SearchID      string
	SearchName    string
	StartedAt     time.Time
	Duration      time.Duration
	TotalRecords  int
	PageCount     int
	ExportedFiles int
	OutputPath    string
}

// NewRunSummary starts the clock for a run and assigns it a local id,
// distinct from the server-assigned search id.
func NewRunSummary(searchName string) *RunSummary {
	return &RunSummary{
		RunID:      uuid.NewString(),
		SearchName: searchName,
		StartedAt:  time.Now(),
	}
}

// Finalize computes the wall-clock processing duration. Idempotent enough
// for the error paths that call it with partial counts.
func (s *RunSummary) Finalize(completedAt time.Time) {
	s.Duration = completedAt.Sub(s.StartedAt).Round(time.Millisecond)
}

// NoResults reports the distinct zero-records outcome. Zero is a valid,
// successful result, not a failure.
func (s *RunSummary) NoResults() bool {
	return s.TotalRecords == 0
}

// LogValue lets the summary be emitted as structured fields.
func (s *RunSummary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("run_id", s.RunID),
		slog.String("search_id", s.SearchID),
		slog.String("search_name", s.SearchName),
		slog.Time("started_at", s.StartedAt),
		slog.Duration("duration", s.Duration),
		slog.Int("total_records", s.TotalRecords),
		slog.Int("pages", s.PageCount),
		slog.Int("files", s.ExportedFiles),
		slog.String("output", s.OutputPath),
	)
}
