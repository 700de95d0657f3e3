package ual

import "fmt"

// The three remote failure kinds are fatal at the point of occurrence.
// Nothing here is retried at the pipeline level; transient 429/5xx handling
// lives inside the graph client, and the caller reruns the whole extraction
// on anything else. Zero results is not an error and is reported through
// RunSummary, never through these types.

// SubmissionError means the server rejected the query creation request.
// Not retried: a malformed filter will not succeed on a second attempt.
type SubmissionError struct {
	Cause error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submit audit query: %v", e.Cause)
}

func (e *SubmissionError) Unwrap() error { return e.Cause }

// PollingError means a status check failed or the job reached a
// non-success terminal state (failed, cancelled, or max wait exceeded).
type PollingError struct {
	JobID string
	Cause error
}

func (e *PollingError) Error() string {
	return fmt.Sprintf("poll audit query %s: %v", e.JobID, e.Cause)
}

func (e *PollingError) Unwrap() error { return e.Cause }

// ExportError means a record page fetch or write failed mid-pagination.
// Partial output stays on disk; the run guarantees at-least-partial
// progress, not atomic export.
type ExportError struct {
	JobID string
	Page  int
	Cause error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export audit query %s (page %d): %v", e.JobID, e.Page, e.Cause)
}

func (e *ExportError) Unwrap() error { return e.Cause }
