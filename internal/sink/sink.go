package sink

import (
	"bufio"
	"errors"
	"fmt"
	"os"

	"volley/internal/rules"
)

// OutputError means one output target could not be opened or written. It is
// fatal for that target only; other targets and the run continue.
type OutputError struct {
	Path string
	Err  error
}

func (e *OutputError) Error() string { return fmt.Sprintf("output %s: %v", e.Path, e.Err) }
func (e *OutputError) Unwrap() error { return e.Err }

type handle struct {
	file *os.File
	buf  *bufio.Writer
}

// Sink owns the output files of one run. A handle is opened lazily on the
// first write to a path and cached for the rest of the run, so overwrite mode
// truncates exactly once and later writes always append to the same handle.
type Sink struct {
	appendMode bool
	handles    map[string]*handle
	broken     map[string]error
}

func New(appendMode bool) *Sink {
	return &Sink{
		appendMode: appendMode,
		handles:    make(map[string]*handle),
		broken:     make(map[string]error),
	}
}

// Write appends one record entry to the file at path.
func (s *Sink) Write(path string, rec rules.Record) error {
	if err, ok := s.broken[path]; ok {
		return err
	}

	h, ok := s.handles[path]
	if !ok {
		var err error
		h, err = s.open(path)
		if err != nil {
			outErr := &OutputError{Path: path, Err: err}
			s.broken[path] = outErr
			return outErr
		}
		s.handles[path] = h
	}

	if _, err := h.buf.WriteString(formatEntry(rec)); err != nil {
		return &OutputError{Path: path, Err: err}
	}
	return nil
}

func (s *Sink) open(path string) (*handle, error) {
	flags := os.O_CREATE | os.O_WRONLY
	if s.appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, err
	}
	return &handle{file: f, buf: bufio.NewWriter(f)}, nil
}

// CloseAll flushes and releases every open handle. It always attempts every
// handle and joins whatever went wrong.
func (s *Sink) CloseAll() error {
	var errs []error
	for path, h := range s.handles {
		if err := h.buf.Flush(); err != nil {
			errs = append(errs, &OutputError{Path: path, Err: err})
		}
		if err := h.file.Close(); err != nil {
			errs = append(errs, &OutputError{Path: path, Err: err})
		}
	}
	s.handles = make(map[string]*handle)
	return errors.Join(errs...)
}

// Entries are header-then-body, one per request attempt, in iteration order:
//
//	=== <seq> <METHOD> <URL> [<status>]
//	<response body>
//	<blank line>
func formatEntry(rec rules.Record) string {
	return fmt.Sprintf("=== %d %s %s [%d]\n%s\n\n", rec.Seq, rec.Method, rec.URL, rec.Status, rec.Body)
}
