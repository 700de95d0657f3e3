package ual

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/justinforbes/Microsoft-365-Extractor-Suite/internal/graph"
)

// memWriter collects pages in memory, standing in for a file artifact.
type memWriter struct {
	pages  [][]json.RawMessage
	failOn int // 1-based page write to fail on; 0 = never
	closed bool
}

func (m *memWriter) WritePage(records []json.RawMessage) error {
	if m.failOn > 0 && len(m.pages)+1 == m.failOn {
		return errors.New("disk full")
	}
	m.pages = append(m.pages, records)
	return nil
}

func (m *memWriter) Files() int {
	if len(m.pages) > 0 {
		return 1
	}
	return 0
}

func (m *memWriter) Close() error {
	m.closed = true
	return nil
}

// pagedServer serves len(counts) record pages, each with a continuation
// link except the last.
func pagedServer(t *testing.T, fetches *atomic.Int32, counts ...int) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(fetches.Add(1))
		if n > len(counts) {
			t.Errorf("fetch %d beyond the last page", n)
			http.Error(w, "no such page", http.StatusNotFound)
			return
		}
		records := make([]string, counts[n-1])
		for i := range records {
			records[i] = fmt.Sprintf(`{"id":"rec-%d-%d","operation":"UserLoggedIn"}`, n, i)
		}
		page := map[string]any{"value": json.RawMessage("[" + join(records) + "]")}
		if n < len(counts) {
			page["@odata.nextLink"] = fmt.Sprintf("%s/page/%d", srv.URL, n+1)
		}
		json.NewEncoder(w).Encode(page)
	}))
	return srv
}

func join(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ","
		}
		out += p
	}
	return out
}

func TestExporter_FollowsContinuationLinks(t *testing.T) {
	var fetches atomic.Int32
	srv := pagedServer(t, &fetches, 3, 2, 1)
	defer srv.Close()

	w := &memWriter{}
	exp := Exporter{Graph: graph.New(srv.URL, graph.StaticToken("tok")), Writer: w}
	sum := NewRunSummary("paging")
	if err := exp.Export(context.Background(), "job-1", sum); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fetches.Load() != 3 {
		t.Fatalf("expected exactly 3 fetches, got %d", fetches.Load())
	}
	if sum.TotalRecords != 6 {
		t.Fatalf("expected 6 total records, got %d", sum.TotalRecords)
	}
	if sum.PageCount != 3 {
		t.Fatalf("expected 3 pages, got %d", sum.PageCount)
	}
	if sum.ExportedFiles != 1 {
		t.Fatalf("expected 1 exported file, got %d", sum.ExportedFiles)
	}
	if len(w.pages) != 3 || len(w.pages[0]) != 3 || len(w.pages[2]) != 1 {
		t.Fatalf("unexpected pages written: %d", len(w.pages))
	}
}

func TestExporter_NoResults(t *testing.T) {
	var fetches atomic.Int32
	srv := pagedServer(t, &fetches, 0)
	defer srv.Close()

	w := &memWriter{}
	exp := Exporter{Graph: graph.New(srv.URL, graph.StaticToken("tok")), Writer: w}
	sum := NewRunSummary("empty")
	if err := exp.Export(context.Background(), "job-1", sum); err != nil {
		t.Fatalf("no results must not be an error, got: %v", err)
	}
	if !sum.NoResults() {
		t.Fatal("expected the no-results condition")
	}
	if sum.TotalRecords != 0 {
		t.Fatalf("expected 0 records, got %d", sum.TotalRecords)
	}
	if sum.ExportedFiles != 0 {
		t.Fatalf("expected no files for an empty run, got %d", sum.ExportedFiles)
	}
	if len(w.pages) != 0 {
		t.Fatalf("expected no pages written, got %d", len(w.pages))
	}
}

func TestExporter_FetchErrorIsFatal(t *testing.T) {
	var fetches atomic.Int32
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fetches.Add(1) == 1 {
			fmt.Fprintf(w, `{"value":[{"id":"rec-1"}],"@odata.nextLink":"%s/page/2"}`, srv.URL)
			return
		}
		http.Error(w, `{"error":{"message":"gone"}}`, http.StatusGone)
	}))
	defer srv.Close()

	w := &memWriter{}
	exp := Exporter{Graph: graph.New(srv.URL, graph.StaticToken("tok")), Writer: w}
	sum := NewRunSummary("partial")
	err := exp.Export(context.Background(), "job-1", sum)
	var expErr *ExportError
	if !errors.As(err, &expErr) {
		t.Fatalf("expected *ExportError, got %T: %v", err, err)
	}
	if expErr.Page != 2 {
		t.Fatalf("expected failure on page 2, got %d", expErr.Page)
	}
	// Partial progress stays: page 1 was written and counted.
	if sum.TotalRecords != 1 || len(w.pages) != 1 {
		t.Fatalf("expected partial progress preserved, got %d records, %d pages", sum.TotalRecords, len(w.pages))
	}
}

func TestExporter_WriteErrorIsFatal(t *testing.T) {
	var fetches atomic.Int32
	srv := pagedServer(t, &fetches, 2, 2)
	defer srv.Close()

	w := &memWriter{failOn: 2}
	exp := Exporter{Graph: graph.New(srv.URL, graph.StaticToken("tok")), Writer: w}
	sum := NewRunSummary("write-fail")
	err := exp.Export(context.Background(), "job-1", sum)
	var expErr *ExportError
	if !errors.As(err, &expErr) {
		t.Fatalf("expected *ExportError, got %T: %v", err, err)
	}
	if sum.TotalRecords != 2 {
		t.Fatalf("expected 2 records counted before the failure, got %d", sum.TotalRecords)
	}
}
