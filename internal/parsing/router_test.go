package parsing

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/GeorgeTG/oracle/internal/events"
	"github.com/GeorgeTG/oracle/internal/parsing/maps"
	"github.com/GeorgeTG/oracle/internal/refdata"
)

func TestRouterForwardsParserEventsToBus(t *testing.T) {
	// Arrange
	bus := events.NewBus(testLog())
	var got atomic.Value
	done := make(chan struct{})
	bus.Subscribe(events.TypePing, "test", func(ev events.Event) {
		got.Store(ev)
		close(done)
	})

	router := NewRouter(bus, []Parser{NewPingParser()}, testLog(), "")
	router.Start(context.Background())
	defer router.Close()

	// Act
	router.FeedLine("[2025.11.26-20.02.54:023][713]GameLog: Display: [Game] TCP Ping Result: 31")

	// Assert
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("event never reached the bus")
	}
	assert.Equal(t, 31, got.Load().(events.PingEvent).Ping)
}

type panickyParser struct {
	emitter
}

func (panickyParser) Name() string         { return "panicky" }
func (panickyParser) FeedLine(line string) { panic("bad line") }

func TestRouterIsolatesPanickingParser(t *testing.T) {
	// Arrange
	bus := events.NewBus(testLog())
	done := make(chan struct{})
	bus.Subscribe(events.TypePing, "test", func(events.Event) { close(done) })

	router := NewRouter(bus, []Parser{
		&panickyParser{emitter: newEmitter()},
		NewPingParser(),
	}, testLog(), "")
	router.Start(context.Background())
	defer router.Close()

	// Act
	assert.NotPanics(t, func() {
		router.FeedLine("[2025.11.26-20.02.54:023][713]GameLog: Display: [Game] TCP Ping Result: 17")
	})

	// Assert: the healthy parser still got the line.
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("healthy parser was starved by its panicking sibling")
	}
}

func TestDefaultParsersAreAllRegistered(t *testing.T) {
	parsers := DefaultParsers(refdata.NewItemTable(nil), maps.NewTable(nil), testLog())

	seen := make(map[string]bool)
	for _, p := range parsers {
		seen[p.Name()] = true
	}
	assert.Len(t, parsers, 16)
	assert.True(t, seen["item_change"])
	assert.True(t, seen["enter_level"])
	assert.True(t, seen["stage_affix"])
}
