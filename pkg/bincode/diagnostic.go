package bincode

import (
	"fmt"
	"sync"
)

// Severity grades a diagnostic
type Severity int8

const (
	SeverityInfo Severity = iota
	SeverityWarn
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarn:
		return "warn"
	case SeverityError:
		return "error"
	default:
		return fmt.Sprintf("severity(%d)", int8(s))
	}
}

// Kind classifies what went wrong
type Kind string

const (
	KindBufferExhausted Kind = "buffer_exhausted"
	KindSchemaViolation Kind = "schema_violation"
	KindRecordSkipped   Kind = "record_skipped"
	KindString          Kind = "string"
	KindFieldDefaulted  Kind = "field_defaulted"
	KindInvalidBool     Kind = "invalid_bool"
	KindCountClamped    Kind = "count_clamped"
	KindReasonRejected  Kind = "reason_rejected"
	KindDuplicateKey    Kind = "duplicate_key"
)

// Diagnostic describes one recoverable or fatal decode problem
type Diagnostic struct {
	Kind      Kind
	Severity  Severity
	Offset    int
	Field     string
	Validator string
	Message   string
	Err       error
}

func (d Diagnostic) String() string {
	s := fmt.Sprintf("%s [%s] offset=%d field=%q", d.Severity, d.Kind, d.Offset, d.Field)
	if d.Validator != "" {
		s += " validator=" + d.Validator
	}
	s += ": " + d.Message
	if d.Err != nil {
		s += ": " + d.Err.Error()
	}
	return s
}

// Sink receives diagnostics
type Sink interface {
	Report(Diagnostic)
}

// SinkFunc adapts a function to the Sink interface
type SinkFunc func(Diagnostic)

// Report calls f(d)
func (f SinkFunc) Report(d Diagnostic) { f(d) }

// Discard drops every diagnostic
var Discard Sink = SinkFunc(func(Diagnostic) {})

// Tee fans a diagnostic out to several sinks
func Tee(sinks ...Sink) Sink {
	return SinkFunc(func(d Diagnostic) {
		for _, s := range sinks {
			if s != nil {
				s.Report(d)
			}
		}
	})
}

// Collector keeps every diagnostic it receives. It is safe for concurrent use.
type Collector struct {
	mu    sync.Mutex
	items []Diagnostic
}

// NewCollector creates an empty Collector
func NewCollector() *Collector {
	return &Collector{}
}

// Report stores d
func (c *Collector) Report(d Diagnostic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, d)
}

// Diagnostics returns a copy of everything collected so far
func (c *Collector) Diagnostics() []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Diagnostic, len(c.items))
	copy(out, c.items)
	return out
}

// Count returns how many diagnostics of the given kind were collected
func (c *Collector) Count(kind Kind) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, d := range c.items {
		if d.Kind == kind {
			n++
		}
	}
	return n
}

// Len returns the number of collected diagnostics
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
