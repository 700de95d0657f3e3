// Package ual implements the unified audit log extraction pipeline:
// submit an asynchronous search, poll it to completion, paginate the
// result set, and stream records to disk.
package ual

import (
	"context"
	"log/slog"
	"time"

	"github.com/justinforbes/Microsoft-365-Extractor-Suite/internal/graph"
	"github.com/justinforbes/Microsoft-365-Extractor-Suite/internal/output"
	"github.com/justinforbes/Microsoft-365-Extractor-Suite/internal/window"
)

// Status is the server-reported state of an audit query job.
type Status string

const (
	StatusNotStarted Status = "notStarted"
	StatusRunning    Status = "running"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// QueryFilter describes one audit log search. Built once per run, sent
// once, immutable. Empty fields mean no restriction on that dimension.
type QueryFilter struct {
	DisplayName        string
	Window             window.TimeWindow
	Keyword            string
	Service            string
	RecordTypes        []string
	Operations         []string
	UserPrincipalNames []string
	IPAddresses        []string
	ObjectIDs          []string
}

func (f QueryFilter) request() graph.AuditLogQueryRequest {
	return graph.AuditLogQueryRequest{
		DisplayName:              f.DisplayName,
		FilterStartDateTime:      f.Window.Start,
		FilterEndDateTime:        f.Window.End,
		KeywordFilter:            f.Keyword,
		ServiceFilter:            f.Service,
		RecordTypeFilters:        f.RecordTypes,
		OperationFilters:         f.Operations,
		UserPrincipalNameFilters: f.UserPrincipalNames,
		IPAddressFilters:         f.IPAddresses,
		ObjectIDFilters:          f.ObjectIDs,
	}
}

// Job is an asynchronous search accepted by the server. The id is assigned
// at submission; Status is only ever mutated by successive poll responses.
type Job struct {
	ID     string
	Status Status
}

// Submit creates the search job. Any non-success response is a fatal
// *SubmissionError wrapping the remote message.
func Submit(ctx context.Context, gc *graph.Client, filter QueryFilter) (*Job, error) {
	var created graph.AuditLogQuery
	if err := gc.PostJSON(ctx, graph.QueriesPath(), filter.request(), &created); err != nil {
		return nil, &SubmissionError{Cause: err}
	}
	slog.Info("audit query submitted", "id", created.ID, "name", filter.DisplayName,
		"start", filter.Window.Start, "end", filter.Window.End)
	return &Job{ID: created.ID, Status: StatusNotStarted}, nil
}

// Run executes the full pipeline for one search: submit, wait, export.
// On a failed submission no summary is produced. On a failed export the
// partial summary is returned alongside the error, matching what is left
// on disk.
func Run(ctx context.Context, gc *graph.Client, filter QueryFilter, w output.Writer, poll Poller) (*RunSummary, error) {
	sum := NewRunSummary(filter.DisplayName)

	job, err := Submit(ctx, gc, filter)
	if err != nil {
		return nil, err
	}
	sum.SearchID = job.ID

	poll.Graph = gc
	if err := poll.Wait(ctx, job); err != nil {
		sum.Finalize(time.Now())
		return sum, err
	}

	exp := Exporter{Graph: gc, Writer: w}
	err = exp.Export(ctx, job.ID, sum)
	sum.Finalize(time.Now())
	if err != nil {
		return sum, err
	}
	slog.Info("extraction finished", "summary", sum)
	return sum, nil
}
