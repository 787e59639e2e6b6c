// Package telemetry provides a minimal, nil-safe stage-event sink for the
// engine's pipeline phases (Task construction, tree-decomposition build,
// upward pass, downward pass). It generalizes a hook shape (OnVisit/
// OnEnqueue-style callbacks invoked at well-defined traversal points) from
// per-vertex hooks into per-phase stage events, and deliberately stays
// stdlib-only: see DESIGN.md for why no third-party structured-logging
// library is pulled in.
package telemetry

import (
	"fmt"
	"log"
	"os"
	"sort"
)

// Sink receives one Stage call per pipeline phase transition. fields is
// shallow and safe to retain (implementations must not mutate it).
type Sink interface {
	Stage(event string, fields map[string]any)
}

// NopSink discards every event. It is the default used whenever a caller
// passes a nil Sink, so every method stays usable without instrumentation.
type NopSink struct{}

// Stage implements Sink by doing nothing.
func (NopSink) Stage(string, map[string]any) {}

// orDefault returns s, or NopSink{} if s is nil — callers should route every
// Sink parameter through this before invoking Stage.
func orDefault(s Sink) Sink {
	if s == nil {
		return NopSink{}
	}
	return s
}

// Stage is a nil-safe helper: Stage(sink, event, fields) is equivalent to
// orDefault(sink).Stage(event, fields) but reads better at call sites that
// receive a possibly-nil Sink parameter directly.
func Stage(s Sink, event string, fields map[string]any) {
	orDefault(s).Stage(event, fields)
}

// StdSink writes one formatted line per event via a stdlib *log.Logger.
// Fields are rendered key=value, sorted by key for deterministic output.
type StdSink struct {
	logger *log.Logger
}

// NewStdSink wraps logger. If logger is nil, a default logger writing to
// os.Stderr with the standard flags is used.
func NewStdSink(logger *log.Logger) *StdSink {
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	return &StdSink{logger: logger}
}

// Stage implements Sink.
func (s *StdSink) Stage(event string, fields map[string]any) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	line := event
	for _, k := range keys {
		line += fmt.Sprintf(" %s=%v", k, fields[k])
	}
	s.logger.Print(line)
}
