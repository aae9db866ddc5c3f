package services

import (
	"sync"

	"github.com/GeorgeTG/oracle/internal/events"
)

// tracker follows the current player name and session id from session
// lifecycle events. Services embed it so every handler can answer "who is
// playing" without its own bookkeeping.
type tracker struct {
	mu            sync.Mutex
	currentPlayer string
	sessionID     uint
}

// attach subscribes the tracking handlers. Call once from the service
// constructor.
func (t *tracker) attach(bus *events.Bus, name string) {
	bus.Subscribe(events.TypeSessionStarted, name, func(event events.Event) {
		started, ok := event.(events.SessionStartedEvent)
		if !ok {
			return
		}
		t.mu.Lock()
		t.sessionID = started.SessionID
		t.currentPlayer = started.PlayerName
		t.mu.Unlock()
	})
	bus.Subscribe(events.TypeSessionFinished, name, func(event events.Event) {
		if _, ok := event.(events.SessionFinishedEvent); !ok {
			return
		}
		t.mu.Lock()
		t.sessionID = 0
		t.mu.Unlock()
	})
	bus.Subscribe(events.TypeSessionRestore, name, func(event events.Event) {
		restored, ok := event.(events.SessionRestoreEvent)
		if !ok {
			return
		}
		t.mu.Lock()
		t.sessionID = restored.SessionID
		t.currentPlayer = restored.PlayerName
		t.mu.Unlock()
	})
}

// playerName returns the tracked player, empty before the first session.
func (t *tracker) playerName() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.currentPlayer
}

// setPlayerName updates the tracked player directly (player join handling).
func (t *tracker) setPlayerName(name string) {
	t.mu.Lock()
	t.currentPlayer = name
	t.mu.Unlock()
}

// currentSessionID returns the tracked session id, zero when none is active.
func (t *tracker) currentSessionID() uint {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessionID
}
