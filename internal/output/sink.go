package output

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// Sink is the persistence target of an encoded recording. The caller picks
// the destination; the recorder only writes to it.
type Sink interface {
	// Open starts a new artifact. Exactly one of Commit or Abort must follow.
	Open() (Artifact, error)

	// Name identifies the destination (a path for files)
	Name() string
}

// Artifact is an in-progress encoded stream.
type Artifact interface {
	io.Writer
	// Commit makes the written bytes visible at the destination
	Commit() error
	// Abort discards everything written so far
	Abort() error
}

// FileSink writes to a temporary file next to Path and renames it into
// place on commit, so a failed encode never leaves a truncated file behind.
type FileSink struct {
	Path string
}

// NewFileSink creates a sink for path
func NewFileSink(path string) *FileSink {
	return &FileSink{Path: path}
}

func (s *FileSink) Name() string {
	return s.Path
}

func (s *FileSink) Open() (Artifact, error) {
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(s.Path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	return &fileArtifact{f: f, path: s.Path}, nil
}

type fileArtifact struct {
	f    *os.File
	path string
	done bool
}

func (a *fileArtifact) Write(p []byte) (int, error) {
	return a.f.Write(p)
}

func (a *fileArtifact) Commit() error {
	if a.done {
		return errors.New("artifact already finished")
	}
	a.done = true
	if err := a.f.Close(); err != nil {
		os.Remove(a.f.Name())
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(a.f.Name(), 0644); err != nil {
		os.Remove(a.f.Name())
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(a.f.Name(), a.path); err != nil {
		os.Remove(a.f.Name())
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	return nil
}

func (a *fileArtifact) Abort() error {
	if a.done {
		return nil
	}
	a.done = true
	a.f.Close()
	return os.Remove(a.f.Name())
}

// MemorySink keeps the last committed artifact in memory.
type MemorySink struct {
	name string

	mu      sync.Mutex
	data    []byte
	commits int
	aborts  int
}

// NewMemorySink creates an in-memory sink identified by name
func NewMemorySink(name string) *MemorySink {
	return &MemorySink{name: name}
}

func (s *MemorySink) Name() string {
	return s.name
}

func (s *MemorySink) Open() (Artifact, error) {
	return &memoryArtifact{sink: s}, nil
}

// Bytes returns a copy of the last committed artifact
func (s *MemorySink) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.data...)
}

// Counts returns how many artifacts were committed and aborted
func (s *MemorySink) Counts() (commits, aborts int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commits, s.aborts
}

type memoryArtifact struct {
	sink *MemorySink
	buf  bytes.Buffer
}

func (a *memoryArtifact) Write(p []byte) (int, error) {
	return a.buf.Write(p)
}

func (a *memoryArtifact) Commit() error {
	a.sink.mu.Lock()
	defer a.sink.mu.Unlock()
	a.sink.data = a.buf.Bytes()
	a.sink.commits++
	return nil
}

func (a *memoryArtifact) Abort() error {
	a.sink.mu.Lock()
	defer a.sink.mu.Unlock()
	a.sink.aborts++
	return nil
}
