package log

import (
	"fmt"
	"os"
)

// Sink is the platform system log collaborator. Implementations are assumed
// non-blocking and failure-opaque: Write never surfaces errors to the
// pipeline, and a broken sink must never abort the host application.
type Sink interface {
	// Write emits one message to the platform log. severity uses the
	// platform's own enumeration (see Level.PlatformSeverity), tag is the
	// pipeline's tag prefix concatenated with the producing worker's tag.
	Write(severity int, tag string, message string)
}

// severityMarks maps platform severities back to their single-character form
// for human-readable console output.
var severityMarks = map[int]byte{2: 'V', 3: 'D', 4: 'I', 5: 'W', 6: 'E'}

// StderrSink writes logcat-style lines to standard error. It is the default
// platform sink on hosts without a native system log, convenient for
// development and containerized environments.
type StderrSink struct{}

// NewStderrSink creates a stateless stderr sink, safe for concurrent use.
func NewStderrSink() *StderrSink {
	return &StderrSink{}
}

// Write emits "<severity>/<tag>: <message>" to stderr. Write errors are
// swallowed per the sink contract.
func (s *StderrSink) Write(severity int, tag string, message string) {
	mark, ok := severityMarks[severity]
	if !ok {
		mark = '?'
	}
	_, _ = fmt.Fprintf(os.Stderr, "%c/%s: %s\n", mark, tag, message)
}

// DiscardSink drops every message. Used by benchmarks and tests that measure
// pipeline overhead without console I/O interference.
type DiscardSink struct{}

// NewDiscardSink creates a sink that drops everything.
func NewDiscardSink() *DiscardSink {
	return &DiscardSink{}
}

// Write discards the message.
func (s *DiscardSink) Write(int, string, string) {}
