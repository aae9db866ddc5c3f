package parsing

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/GeorgeTG/oracle/internal/events"
)

const routerQueueSize = 1000

// Router feeds log lines to every parser and forwards their events to the
// bus. Each parser gets its own drain goroutine; all events funnel through
// one bounded queue, so a slow bus handler backpressures the tailer instead
// of growing memory without bound.
type Router struct {
	parsers []Parser
	queue   chan events.Event
	bus     *events.Bus
	log     *logrus.Entry

	eventLog *lumberjack.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewRouter wires parsers to the bus. When eventLogPath is non-empty every
// forwarded event is also appended to a rotating JSON log for replay
// debugging.
func NewRouter(bus *events.Bus, parsers []Parser, log *logrus.Entry, eventLogPath string) *Router {
	r := &Router{
		parsers: parsers,
		queue:   make(chan events.Event, routerQueueSize),
		bus:     bus,
		log:     log,
	}

	if eventLogPath != "" {
		r.eventLog = &lumberjack.Logger{
			Filename:   eventLogPath,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
		}
		log.Info("Parser event logging enabled")
	}

	for _, p := range parsers {
		log.WithField("parser", p.Name()).Debug("Parser registered")
	}
	log.WithField("count", len(parsers)).Info("Parsers loaded")

	return r
}

// Start launches the drain and publish goroutines. They stop when the
// context is cancelled.
func (r *Router) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)

	for _, p := range r.parsers {
		r.wg.Add(1)
		go func(p Parser) {
			defer r.wg.Done()
			r.drainParser(ctx, p)
		}(p)
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.publishEvents(ctx)
	}()
}

// FeedLine hands one log line to every parser. A panicking parser is
// isolated from its siblings.
func (r *Router) FeedLine(line string) {
	for _, p := range r.parsers {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					r.log.WithFields(logrus.Fields{
						"parser": p.Name(),
						"panic":  fmt.Sprintf("%v", rec),
					}).Error("Parser panicked on line")
				}
			}()
			p.FeedLine(line)
		}()
	}
}

func (r *Router) drainParser(ctx context.Context, p Parser) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-p.Events():
			select {
			case r.queue <- event:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (r *Router) publishEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-r.queue:
			if r.eventLog != nil {
				r.writeEventLog(event)
			}
			r.bus.Publish(event)
		}
	}
}

func (r *Router) writeEventLog(event events.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	line := fmt.Sprintf("[%s] [%s] %s\n",
		time.Now().Format("2006-01-02 15:04:05.000"), event.EventType(), payload)
	if _, err := r.eventLog.Write([]byte(line)); err != nil {
		r.log.WithError(err).Warn("Failed to write parser event log")
	}
}

// Close stops the background goroutines and closes the event log.
func (r *Router) Close() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
	if r.eventLog != nil {
		r.eventLog.Close()
	}
}
