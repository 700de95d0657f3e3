// Package output writes audit record pages to disk incrementally.
//
// Writers create their file lazily on the first page so a run with zero
// results leaves no artifact behind, and guarantee a flushed, closed file
// on every exit path once something has been written.
package output

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Format selects the output artifact layout.
type Format string

const (
	// FormatJSON writes all pages as one valid JSON array document.
	FormatJSON Format = "json"
	// FormatJSONL writes one record per line (line-delimited JSON).
	FormatJSONL Format = "jsonl"
	// FormatCSV writes a flat table with a single shared header.
	FormatCSV Format = "csv"
)

// ParseFormat validates a format selector string.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatJSONL, "ndjson":
		return FormatJSONL, nil
	case FormatCSV:
		return FormatCSV, nil
	}
	return "", fmt.Errorf("unknown output format %q (want json, jsonl or csv)", s)
}

// Ext returns the file extension for the format, without the dot.
func (f Format) Ext() string {
	if f == FormatJSONL {
		return "jsonl"
	}
	return string(f)
}

// Writer is the destination for fetched record pages.
type Writer interface {
	// WritePage appends one page of records to the artifact.
	WritePage(records []json.RawMessage) error
	// Files reports how many files have been created so far (0 or 1).
	Files() int
	// Close flushes and closes the artifact. Safe when nothing was written.
	Close() error
}

// Filename builds the run's output path:
// <dir>/<yyyyMMddHHmmss>-<searchName>-UnifiedAuditLog.<ext>[.gz]
// Embedding the timestamp and search name keeps concurrent runs from
// colliding on the same path.
func Filename(dir, searchName string, ts time.Time, format Format, gzipped bool) string {
	name := fmt.Sprintf("%s-%s-UnifiedAuditLog.%s", ts.Format("20060102150405"), searchName, format.Ext())
	if gzipped {
		name += ".gz"
	}
	return filepath.Join(dir, name)
}

// New creates a Writer for the given path and format.
func New(path string, format Format, opts ...Option) (Writer, error) {
	s, err := newSink(path, opts...)
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatJSON:
		return &jsonWriter{sink: s}, nil
	case FormatJSONL:
		return &jsonlWriter{sink: s}, nil
	case FormatCSV:
		return &csvWriter{sink: s}, nil
	}
	return nil, fmt.Errorf("unknown output format %q", format)
}
