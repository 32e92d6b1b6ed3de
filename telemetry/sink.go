package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Sink is an append-only destination for LogEvents. Append must be safe for
// concurrent use and write each record atomically.
type Sink interface {
	Append(ctx context.Context, ev LogEvent) error
}

// NopSink discards every event.
type NopSink struct{}

// Append implements Sink.
func (NopSink) Append(context.Context, LogEvent) error { return nil }

// FileSink appends events as JSON lines to a file. Each record is encoded
// into one buffer and written with a single Write call under a mutex.
type FileSink struct {
	mu   sync.Mutex
	f    *os.File
	path string
}

// NewFileSink opens (creating parent directories as needed) path for appending.
func NewFileSink(path string) (*FileSink, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create telemetry dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open telemetry file: %w", err)
	}
	return &FileSink{f: f, path: path}, nil
}

// Path returns the file location.
func (s *FileSink) Path() string { return s.path }

// Append implements Sink.
func (s *FileSink) Append(_ context.Context, ev LogEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode log event: %w", err)
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f == nil {
		return errors.New("telemetry sink closed")
	}
	if _, err := s.f.Write(data); err != nil {
		return fmt.Errorf("write log event: %w", err)
	}
	return nil
}

// Close flushes and closes the file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}

// MemorySink keeps events in memory; useful for tests.
type MemorySink struct {
	mu     sync.Mutex
	events []LogEvent
}

// NewMemorySink creates an empty MemorySink.
func NewMemorySink() *MemorySink { return &MemorySink{} }

// Append implements Sink.
func (s *MemorySink) Append(_ context.Context, ev LogEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

// Events returns a copy of the recorded events.
func (s *MemorySink) Events() []LogEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]LogEvent, len(s.events))
	copy(out, s.events)
	return out
}

// ByType returns the recorded events of one type.
func (s *MemorySink) ByType(typ EventType) []LogEvent {
	var out []LogEvent
	for _, ev := range s.Events() {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

// MultiSink fans every event out to several sinks and joins their errors.
type MultiSink []Sink

// Append implements Sink.
func (m MultiSink) Append(ctx context.Context, ev LogEvent) error {
	var errs []error
	for _, s := range m {
		if err := s.Append(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Router sends tool and agent events to separate sinks, mirroring the
// tool_logs.jsonl / agent_logs.jsonl split.
type Router struct {
	Tool  Sink
	Agent Sink
}

// Append implements Sink.
func (r Router) Append(ctx context.Context, ev LogEvent) error {
	target := r.Agent
	if ev.Type == EventTool {
		target = r.Tool
	}
	if target == nil {
		return nil
	}
	return target.Append(ctx, ev)
}
