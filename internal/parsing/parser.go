// Package parsing turns raw game log lines into typed events. Each parser
// watches for its own line shapes; most are single-line regex matches, a few
// are small state machines spanning multiple lines. Parsers never touch the
// bus directly, they emit into a channel the registry drains.
package parsing

import "github.com/GeorgeTG/oracle/internal/events"

// Parser consumes log lines one at a time. FeedLine is always called from a
// single goroutine, so parsers keep state without locking.
type Parser interface {
	Name() string
	FeedLine(line string)
	Events() <-chan events.Event
}

const emitBuffer = 64

// emitter is the common output side of a parser. The buffer absorbs bursts;
// the registry drains continuously so Emit should never block for long.
type emitter struct {
	out chan events.Event
}

func newEmitter() emitter {
	return emitter{out: make(chan events.Event, emitBuffer)}
}

func (e *emitter) Emit(event events.Event) {
	e.out <- event
}

// Events returns the parser's output stream.
func (e *emitter) Events() <-chan events.Event {
	return e.out
}
