package output

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const defaultBufSize = 64 * 1024 // 64KB

// Option configures the file sink underneath a Writer.
type Option func(*sink) error

// WithEncoding sets the output character encoding. Supported: utf-8
// (default), utf-8-bom, utf-16le, latin1.
func WithEncoding(name string) Option {
	return func(s *sink) error {
		enc, err := lookupEncoding(name)
		if err != nil {
			return err
		}
		s.enc = enc
		return nil
	}
}

// WithGzip compresses the artifact with gzip.
func WithGzip() Option {
	return func(s *sink) error {
		s.gzip = true
		return nil
	}
}

// WithBufSize sets the bufio.Writer buffer size. Default: 64KB.
func WithBufSize(bytes int) Option {
	return func(s *sink) error {
		s.bufSize = bytes
		return nil
	}
}

// sink is a lazily-opened buffered file, optionally wrapped in a character
// encoder and gzip. Write chain, top to bottom:
// bufio -> encoder -> gzip -> file.
type sink struct {
	path    string
	enc     encoding.Encoding // nil = plain UTF-8
	gzip    bool
	bufSize int

	f      *os.File
	gz     *gzip.Writer
	tw     io.WriteCloser // transform writer; nil when enc is nil
	w      *bufio.Writer
	opened bool
	closed bool
}

func newSink(path string, opts ...Option) (*sink, error) {
	s := &sink{path: path, bufSize: defaultBufSize}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Write opens the file on first use and writes through the chain.
func (s *sink) Write(p []byte) (int, error) {
	if !s.opened {
		if err := s.open(); err != nil {
			return 0, err
		}
	}
	return s.w.Write(p)
}

func (s *sink) open() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("output: create directory: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("output: open %s: %w", s.path, err)
	}
	s.f = f

	var w io.Writer = f
	if s.gzip {
		s.gz = gzip.NewWriter(w)
		w = s.gz
	}
	if s.enc != nil {
		s.tw = transform.NewWriter(w, s.enc.NewEncoder())
		w = s.tw
	}
	s.w = bufio.NewWriterSize(w, s.bufSize)
	s.opened = true
	return nil
}

// Files reports whether the artifact exists on disk yet.
func (s *sink) Files() int {
	if s.opened {
		return 1
	}
	return 0
}

// Close flushes every layer of the chain and closes the file. Idempotent;
// a sink that never opened has nothing to do.
func (s *sink) Close() error {
	if !s.opened || s.closed {
		return nil
	}
	s.closed = true
	if err := s.w.Flush(); err != nil {
		s.f.Close()
		return fmt.Errorf("output: flush: %w", err)
	}
	if s.tw != nil {
		if err := s.tw.Close(); err != nil {
			s.f.Close()
			return fmt.Errorf("output: encoder: %w", err)
		}
	}
	if s.gz != nil {
		if err := s.gz.Close(); err != nil {
			s.f.Close()
			return fmt.Errorf("output: gzip: %w", err)
		}
	}
	return s.f.Close()
}

func lookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(name) {
	case "", "utf8", "utf-8":
		return nil, nil
	case "utf8bom", "utf-8-bom":
		return unicode.UTF8BOM, nil
	case "utf16", "utf-16", "utf16le", "utf-16le":
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM), nil
	case "latin1", "iso-8859-1":
		return charmap.ISO8859_1, nil
	}
	return nil, fmt.Errorf("unknown encoding %q (want utf-8, utf-8-bom, utf-16le or latin1)", name)
}
