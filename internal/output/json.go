package output

import (
	"encoding/json"
	"fmt"
)

// jsonWriter streams all pages into one valid JSON array document. Only the
// array open/comma/close bookkeeping is tracked; records pass through as
// received, so memory stays bounded to one page.
type jsonWriter struct {
	sink   *sink
	count  int
	closed bool
}

func (w *jsonWriter) WritePage(records []json.RawMessage) error {
	for _, rec := range records {
		var prefix string
		switch {
		case w.count == 0:
			prefix = "[\n"
		default:
			prefix = ",\n"
		}
		if _, err := w.sink.Write([]byte(prefix)); err != nil {
			return err
		}
		if _, err := w.sink.Write(rec); err != nil {
			return fmt.Errorf("output: write record: %w", err)
		}
		w.count++
	}
	return nil
}

func (w *jsonWriter) Files() int { return w.sink.Files() }

func (w *jsonWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if w.count > 0 {
		if _, err := w.sink.Write([]byte("\n]\n")); err != nil {
			w.sink.Close()
			return err
		}
	}
	return w.sink.Close()
}

// jsonlWriter writes one record per line. Each page's append is
// self-contained, so the file is valid at any point during the run.
type jsonlWriter struct {
	sink *sink
}

func (w *jsonlWriter) WritePage(records []json.RawMessage) error {
	for _, rec := range records {
		if _, err := w.sink.Write(rec); err != nil {
			return fmt.Errorf("output: write record: %w", err)
		}
		if _, err := w.sink.Write([]byte("\n")); err != nil {
			return err
		}
	}
	return nil
}

func (w *jsonlWriter) Files() int { return w.sink.Files() }

func (w *jsonlWriter) Close() error { return w.sink.Close() }
