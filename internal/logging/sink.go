package logging

import (
	"fmt"
	"os"
	"sync"
)

// DefaultLogFile is the sink used when none is configured.
const DefaultLogFile = "dbxupload.log"

// Sink is an append-only log file.
type Sink struct {
	path string
	mu   sync.Mutex
	file *os.File
}

// OpenSink opens path for appending, creating it if needed.
func OpenSink(path string) (*Sink, error) {
	if path == "" {
		path = DefaultLogFile
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	return &Sink{path: path, file: file}, nil
}

// Path returns the file the sink appends to.
func (s *Sink) Path() string {
	return s.path
}

// Closed reports whether the sink has been closed.
func (s *Sink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file == nil
}

// Write implements io.Writer.
func (s *Sink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return 0, os.ErrClosed
	}
	return s.file.Write(p)
}

// Close flushes and closes the file. Closing twice is a no-op.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}

	syncErr := s.file.Sync()
	closeErr := s.file.Close()
	s.file = nil

	if syncErr != nil {
		return fmt.Errorf("failed to flush log file %s: %w", s.path, syncErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close log file %s: %w", s.path, closeErr)
	}
	return nil
}
