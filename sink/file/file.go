// Package file implements the simplest report sink: one JSON file per
// session, written atomically. Grounded on the teacher's daemon.go
// incident-snapshot writer (os.MkdirAll + os.WriteFile at 0600).
package file

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ftahirops/hpcsentry/report"
)

// Sink writes report.Session documents to a fixed path on disk.
type Sink struct {
	path string
}

// New returns a Sink writing to path.
func New(path string) *Sink {
	return &Sink{path: path}
}

// Write marshals session through the pinned report schema and writes
// it to the sink's path, via a temp file plus rename so a reader never
// observes a partially-written report.
func (s *Sink) Write(session report.Session) error {
	data, err := report.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("finalize report: %w", err)
	}
	return nil
}

// Close is a no-op; the sink holds no open resources between writes.
func (s *Sink) Close() error { return nil }
