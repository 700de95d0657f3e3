package ual

import (
	"context"
	"log/slog"

	"github.com/justinforbes/Microsoft-365-Extractor-Suite/internal/graph"
	"github.com/justinforbes/Microsoft-365-Extractor-Suite/internal/output"
)

// Exporter drains a completed job's record pages into the output writer.
type Exporter struct {
	Graph  *graph.Client
	Writer output.Writer
}

// Export fetches pages following @odata.nextLink continuation links until
// none remains, appending each page to the writer immediately so memory
// stays bounded to one page. An empty first page with no continuation is
// the "no results" outcome, logged and reported through the summary, not
// an error. Any fetch or write failure is a fatal *ExportError; whatever
// was already appended stays on disk.
func (e *Exporter) Export(ctx context.Context, jobID string, sum *RunSummary) error {
	next := graph.RecordsPath(jobID)
	page := 0

	for {
		var rp graph.RecordPage
		if err := e.Graph.GetJSON(ctx, next, nil, &rp); err != nil {
			return &ExportError{JobID: jobID, Page: page + 1, Cause: err}
		}
		page++

		if page == 1 && len(rp.Records) == 0 && rp.NextLink == "" {
			slog.Info("audit query returned no records", "id", jobID)
			sum.PageCount = 1
			return nil
		}

		if len(rp.Records) > 0 {
			if err := e.Writer.WritePage(rp.Records); err != nil {
				return &ExportError{JobID: jobID, Page: page, Cause: err}
			}
			sum.TotalRecords += len(rp.Records)
		}
		sum.PageCount++
		sum.ExportedFiles = e.Writer.Files()

		slog.Debug("fetched record page", "id", jobID, "page", page,
			"records", len(rp.Records), "total", sum.TotalRecords)

		if rp.NextLink == "" {
			return nil
		}
		next = rp.NextLink
	}
}
