package sink

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/roach88/catsim/internal/ir"
)

// TextSink writes a catalog as text: a "# col, col" header line followed by
// one comma-separated line per row.
//
// Floats are written with 10 significant digits; integers and strings
// verbatim. The header is written with the first chunk, so a catalog with
// no rows produces a header-only file only after Close.
type TextSink struct {
	w       *bufio.Writer
	closers []io.Closer
	idName  string
	header  bool
	closed  bool
}

// TextOption configures a TextSink.
type TextOption func(*TextSink)

// WithIDColumn prepends the row's unique identifier to every line,
// under the given header name.
func WithIDColumn(name string) TextOption {
	return func(s *TextSink) {
		s.idName = name
	}
}

// NewTextSink writes to w. Close flushes but does not close w.
func NewTextSink(w io.Writer, opts ...TextOption) *TextSink {
	s := &TextSink{w: bufio.NewWriter(w)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateTextFile creates path and returns a sink writing to it. When
// compress is set the stream is zstd-compressed. Close closes the file.
func CreateTextFile(path string, compress bool, opts ...TextOption) (*TextSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create catalog file: %w", err)
	}
	if !compress {
		s := NewTextSink(f, opts...)
		s.closers = []io.Closer{f}
		return s, nil
	}

	enc, err := zstd.NewWriter(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create zstd writer: %w", err)
	}
	s := NewTextSink(enc, opts...)
	s.closers = []io.Closer{enc, f}
	return s, nil
}

// Append implements Sink.
func (s *TextSink) Append(ctx context.Context, chunk *ir.ResolvedChunk) error {
	if s.closed {
		return errors.New("text sink is closed")
	}
	if !s.header {
		if err := s.writeHeader(chunk.Names); err != nil {
			return err
		}
	}

	fields := make([]string, 0, len(chunk.Columns)+1)
	for i := range chunk.Len() {
		fields = fields[:0]
		if s.idName != "" {
			fields = append(fields, strconv.FormatInt(chunk.IDs[i], 10))
		}
		for _, col := range chunk.Columns {
			fields = append(fields, formatValue(col.Value(i)))
		}
		if _, err := s.w.WriteString(strings.Join(fields, ", ")); err != nil {
			return err
		}
		if err := s.w.WriteByte('\n'); err != nil {
			return err
		}
	}
	return nil
}

// WriteHeader writes the header line if it has not been written yet.
// Callers use it to produce a header for catalogs that yield no rows.
func (s *TextSink) WriteHeader(names []string) error {
	if s.header {
		return nil
	}
	return s.writeHeader(names)
}

func (s *TextSink) writeHeader(names []string) error {
	cols := names
	if s.idName != "" {
		cols = append([]string{s.idName}, names...)
	}
	s.header = true
	_, err := fmt.Fprintf(s.w, "# %s\n", strings.Join(cols, ", "))
	return err
}

// Close flushes buffered output and closes any owned writers.
// Safe to call more than once.
func (s *TextSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	errs := []error{s.w.Flush()}
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func formatValue(v any) string {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) {
			return "nan"
		}
		return strconv.FormatFloat(x, 'g', 10, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case string:
		return x
	default:
		return fmt.Sprint(v)
	}
}
