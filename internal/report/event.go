// Package report carries the ordered, coded event stream produced while a battle
// resolves. Sinks receive events in emission order and can never influence resolution.
package report

import (
	"strconv"
	"sync"
)

// ArgKind types a single event argument.
type ArgKind string

const (
	ArgText   ArgKind = "text"
	ArgNumber ArgKind = "number"
	ArgReport ArgKind = "report"
)

// Arg is one typed template argument.
type Arg struct {
	Kind   ArgKind `json:"kind"`
	Text   string  `json:"text,omitempty"`
	Number int     `json:"number,omitempty"`
}

// String renders the argument for template substitution.
func (a Arg) String() string {
	if a.Kind == ArgNumber {
		return strconv.Itoa(a.Number)
	}
	return a.Text
}

// Event is one coded report step.
type Event struct {
	Code      int   `json:"code"`
	Indent    int   `json:"indent,omitempty"`
	Args      []Arg `json:"args,omitempty"`
	NoNewline bool  `json:"no_newline,omitempty"`
}

// NewEvent starts an event for code.
func NewEvent(code int) Event {
	return Event{Code: code}
}

// Text appends a text argument.
func (e Event) Text(value string) Event {
	e.Args = append(e.cloneArgs(), Arg{Kind: ArgText, Text: value})
	return e
}

// Number appends a numeric argument.
func (e Event) Number(value int) Event {
	e.Args = append(e.cloneArgs(), Arg{Kind: ArgNumber, Number: value})
	return e
}

// Sub appends another event, pre-rendered, as an argument.
func (e Event) Sub(inner Event) Event {
	e.Args = append(e.cloneArgs(), Arg{Kind: ArgReport, Text: RenderLine(inner)})
	return e
}

// Indented sets the nesting depth.
func (e Event) Indented(depth int) Event {
	e.Indent = depth
	return e
}

// NoNL marks that the next event continues this line.
func (e Event) NoNL() Event {
	e.NoNewline = true
	return e
}

// Clone deep-copies the argument list.
func (e Event) Clone() Event {
	e.Args = e.cloneArgs()
	return e
}

func (e Event) cloneArgs() []Arg {
	if len(e.Args) == 0 {
		return nil
	}
	return append(make([]Arg, 0, len(e.Args)+1), e.Args...)
}

// Sink accepts events in emission order. Implementations must not panic and must not
// return errors to the caller.
type Sink interface {
	Report(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

// Report calls f.
func (f SinkFunc) Report(ev Event) {
	if f != nil {
		f(ev)
	}
}

// Discard drops every event.
var Discard Sink = discard{}

type discard struct{}

func (discard) Report(Event) {}

// Multi fans each event out to every sink in order.
func Multi(sinks ...Sink) Sink {
	filtered := make([]Sink, 0, len(sinks))
	for _, sink := range sinks {
		if sink != nil {
			filtered = append(filtered, sink)
		}
	}
	return multiSink(filtered)
}

type multiSink []Sink

func (m multiSink) Report(ev Event) {
	for _, sink := range m {
		sink.Report(ev.Clone())
	}
}

// Log is an append-only in-memory sink.
type Log struct {
	mu     sync.Mutex
	events []Event
}

// NewLog returns an empty log.
func NewLog() *Log {
	return &Log{}
}

// Report appends a copy of the event.
func (l *Log) Report(ev Event) {
	l.mu.Lock()
	l.events = append(l.events, ev.Clone())
	l.mu.Unlock()
}

// Events returns a copy of everything recorded so far.
func (l *Log) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.events))
	for i, ev := range l.events {
		out[i] = ev.Clone()
	}
	return out
}

// Codes lists recorded codes in order.
func (l *Log) Codes() []int {
	l.mu.Lock()
	defer l.mu.Unlock()
	codes := make([]int, len(l.events))
	for i, ev := range l.events {
		codes[i] = ev.Code
	}
	return codes
}

// Len reports the number of recorded events.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}
