// Package report renders a repository traversal into a document.  Each
// format is a repo.Sink; Open picks one by name and points it at
// stdout or a file that is rewritten on every traversal.
package report

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"xm2m/internal/repo"
)

// TimeLayout formats record and report timestamps.
const TimeLayout = "2006-01-02 15:04:05"

// Info is the run context printed in a report header.
type Info struct {
	Version         string
	TransactionPort int
	Now             func() time.Time // defaults to time.Now
}

func (i Info) now() time.Time {
	if i.Now != nil {
		return i.Now()
	}
	return time.Now()
}

type factory func(w io.Writer, info Info) repo.Sink

var formats = map[string]factory{
	"html": func(w io.Writer, info Info) repo.Sink { return NewHTML(w, info) },
	"text": func(w io.Writer, info Info) repo.Sink { return NewText(w, info) },
	"yaml": func(w io.Writer, info Info) repo.Sink { return NewYAML(w, info) },
}

// Formats lists the supported format names.
func Formats() []string {
	out := make([]string, 0, len(formats))
	for name := range formats {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Supported reports whether name is a known format.
func Supported(name string) bool {
	_, ok := formats[strings.ToLower(name)]
	return ok
}

// New returns a sink of the named format writing to w.
func New(format string, w io.Writer, info Info) (repo.Sink, error) {
	f, ok := formats[strings.ToLower(format)]
	if !ok {
		return nil, fmt.Errorf("unknown report format %q (want one of %s)",
			format, strings.Join(Formats(), ", "))
	}
	return f(w, info), nil
}

// Open returns a sink for format.  An empty path writes to stdout;
// otherwise the file is truncated at Begin and closed at End.
func Open(format, path string, info Info) (repo.Sink, error) {
	if path == "" {
		return New(format, os.Stdout, info)
	}
	if !Supported(format) {
		return New(format, nil, info)
	}
	return &fileSink{format: format, path: path, info: info}, nil
}

// fileSink opens its file on Begin so each traversal produces a fresh
// document.
type fileSink struct {
	format string
	path   string
	info   Info

	f     *os.File
	inner repo.Sink
}

func (s *fileSink) Begin() error {
	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("open report file: %w", err)
	}
	inner, err := New(s.format, f, s.info)
	if err != nil {
		f.Close()
		return err
	}
	s.f, s.inner = f, inner
	if err := s.inner.Begin(); err != nil {
		s.close()
		return err
	}
	return nil
}

func (s *fileSink) WriteRecord(rec repo.Record) error {
	if s.inner == nil {
		return fmt.Errorf("report file %s is not open", s.path)
	}
	if err := s.inner.WriteRecord(rec); err != nil {
		s.close()
		return err
	}
	return nil
}

func (s *fileSink) End() error {
	if s.inner == nil {
		return fmt.Errorf("report file %s is not open", s.path)
	}
	err := s.inner.End()
	if cerr := s.close(); err == nil {
		err = cerr
	}
	return err
}

func (s *fileSink) close() error {
	s.inner = nil
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}

// recordTime renders a record start time with millisecond precision.
func recordTime(t time.Time) string {
	return t.Local().Format(TimeLayout + ".000")
}
