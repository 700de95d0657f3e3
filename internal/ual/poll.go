package ual

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/justinforbes/Microsoft-365-Extractor-Suite/internal/graph"
)

// Poll timing defaults. The settle wait avoids racing server-side job
// creation; the max wait keeps an unbounded remote job from hanging the
// client forever.
const (
	DefaultSettleInterval = 10 * time.Second
	DefaultPollInterval   = 5 * time.Second
	DefaultMaxWait        = time.Hour
)

// Poller drives a submitted job to completion by checking its status on a
// fixed interval. The zero value uses the defaults above; tests shrink the
// intervals.
type Poller struct {
	Graph          *graph.Client
	SettleInterval time.Duration
	PollInterval   time.Duration
	MaxWait        time.Duration

	// OnStatus, when set, is invoked on every status transition.
	OnStatus func(Status)
}

// Wait blocks until the job succeeds, updating job.Status as polls come
// back. Status strings other than running/succeeded/failed/cancelled are
// treated as not yet started, which covers any transient "not ready"
// value the server emits. Logs only on transitions. Returns a
// *PollingError on a status-check failure, a failed or cancelled job,
// context cancellation, or MaxWait expiry.
func (p *Poller) Wait(ctx context.Context, job *Job) error {
	settle := p.SettleInterval
	if settle == 0 {
		settle = DefaultSettleInterval
	}
	interval := p.PollInterval
	if interval == 0 {
		interval = DefaultPollInterval
	}
	maxWait := p.MaxWait
	if maxWait == 0 {
		maxWait = DefaultMaxWait
	}
	deadline := time.Now().Add(maxWait)

	if err := sleep(ctx, settle); err != nil {
		return &PollingError{JobID: job.ID, Cause: err}
	}

	for {
		var q graph.AuditLogQuery
		if err := p.Graph.GetJSON(ctx, graph.QueryPath(job.ID), nil, &q); err != nil {
			return &PollingError{JobID: job.ID, Cause: err}
		}

		status := normalize(q.Status)
		if status != job.Status {
			slog.Info("audit query status changed", "id", job.ID, "from", job.Status, "to", status)
			job.Status = status
			if p.OnStatus != nil {
				p.OnStatus(status)
			}
		}

		switch status {
		case StatusSucceeded:
			return nil
		case StatusFailed, StatusCancelled:
			return &PollingError{JobID: job.ID, Cause: fmt.Errorf("job ended with status %q", status)}
		}

		if time.Now().After(deadline) {
			return &PollingError{JobID: job.ID, Cause: fmt.Errorf("job still %q after %s", status, maxWait)}
		}
		if err := sleep(ctx, interval); err != nil {
			return &PollingError{JobID: job.ID, Cause: err}
		}
	}
}

func normalize(s string) Status {
	switch Status(s) {
	case StatusRunning, StatusSucceeded, StatusFailed, StatusCancelled:
		return Status(s)
	}
	return StatusNotStarted
}

// sleep waits for d or until ctx is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	select {
	case <-ctx.Done():
		t.Stop()
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
