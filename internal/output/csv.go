package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
)

// csvWriter flattens records into a table. The first page establishes the
// header as the sorted union of its records' top-level fields; later pages
// are reconciled against it — fields missing from a record stay empty,
// fields absent from the header are dropped.
type csvWriter struct {
	sink   *sink
	cw     *csv.Writer
	header []string
	closed bool
}

func (w *csvWriter) WritePage(records []json.RawMessage) error {
	if len(records) == 0 {
		return nil
	}

	decoded := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		m, err := decodeRecord(rec)
		if err != nil {
			return fmt.Errorf("output: decode record: %w", err)
		}
		decoded = append(decoded, m)
	}

	if w.header == nil {
		w.header = fieldUnion(decoded)
		w.cw = csv.NewWriter(w.sink)
		if err := w.cw.Write(w.header); err != nil {
			return fmt.Errorf("output: write header: %w", err)
		}
	}

	row := make([]string, len(w.header))
	for _, m := range decoded {
		for i, col := range w.header {
			row[i] = stringify(m[col])
		}
		if err := w.cw.Write(row); err != nil {
			return fmt.Errorf("output: write row: %w", err)
		}
	}
	w.cw.Flush()
	return w.cw.Error()
}

func (w *csvWriter) Files() int { return w.sink.Files() }

func (w *csvWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if w.cw != nil {
		w.cw.Flush()
		if err := w.cw.Error(); err != nil {
			w.sink.Close()
			return err
		}
	}
	return w.sink.Close()
}

func decodeRecord(rec json.RawMessage) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(rec))
	dec.UseNumber() // keep timestamps and ids out of float formatting
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	return m, nil
}

func fieldUnion(records []map[string]any) []string {
	seen := map[string]bool{}
	for _, m := range records {
		for k := range m {
			seen[k] = true
		}
	}
	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// stringify renders a decoded JSON value as a CSV cell. Nested structures
// are kept as compact JSON so nothing is lost in the flat form.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
