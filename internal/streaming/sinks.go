package streaming

import (
	"fmt"
	"io"
	"sync"
)

// WriterSink writes progress to an io.Writer. Chunks are written raw;
// a Line following streamed chunks is preceded by a newline so the two
// forms never collide on one terminal row.
type WriterSink struct {
	mu        sync.Mutex
	w         io.Writer
	midStream bool
}

// NewWriterSink creates a WriterSink.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Line(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.midStream {
		fmt.Fprintln(s.w)
		s.midStream = false
	}
	fmt.Fprintln(s.w, text)
}

func (s *WriterSink) Chunk(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprint(s.w, text)
	s.midStream = true
}

// NopSink discards all progress output.
type NopSink struct{}

func (NopSink) Line(string)  {}
func (NopSink) Chunk(string) {}

// MemorySink records progress lines for tests.
type MemorySink struct {
	mu     sync.Mutex
	lines  []string
	chunks []string
}

func (s *MemorySink) Line(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, text)
}

func (s *MemorySink) Chunk(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = append(s.chunks, text)
}

// Lines returns the recorded progress lines.
func (s *MemorySink) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

// Chunks returns the recorded stream fragments.
func (s *MemorySink) Chunks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.chunks...)
}
