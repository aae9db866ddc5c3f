package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/GeorgeTG/oracle/internal/adapters/persistence"
	"github.com/GeorgeTG/oracle/internal/events"
)

func newSessionService(t *testing.T, bus *events.Bus, db *gorm.DB) *SessionService {
	t.Helper()
	return NewSessionService(bus,
		persistence.NewGormPlayerRepository(db),
		persistence.NewGormSessionRepository(db),
		testLog())
}

func activeSessions(t *testing.T, db *gorm.DB) []persistence.SessionModel {
	t.Helper()
	active, err := persistence.NewGormSessionRepository(db).FindActive(context.Background())
	require.NoError(t, err)
	return active
}

func TestSessionService_StartAndClose(t *testing.T) {
	// Arrange
	bus := events.NewBus(testLog())
	db := newTestDB(t)
	newSessionService(t, bus, db)
	started := record(bus, events.TypeSessionStarted)
	finished := record(bus, events.TypeSessionFinished)

	// Act
	bus.Publish(events.SessionControlEvent{Action: events.SessionStart, PlayerName: "Eryndor#7291"})

	// Assert
	require.Equal(t, 1, started.count())
	event := started.last().(events.SessionStartedEvent)
	assert.Equal(t, "Eryndor#7291", event.PlayerName)
	require.Len(t, activeSessions(t, db), 1)

	bus.Publish(events.SessionControlEvent{Action: events.SessionClose})

	require.Equal(t, 1, finished.count())
	assert.Empty(t, activeSessions(t, db))
}

func TestSessionService_NextRotatesWithSingleActiveSession(t *testing.T) {
	bus := events.NewBus(testLog())
	db := newTestDB(t)
	newSessionService(t, bus, db)
	started := record(bus, events.TypeSessionStarted)

	bus.Publish(events.SessionControlEvent{Action: events.SessionStart, PlayerName: "Eryndor#7291"})
	first := started.last().(events.SessionStartedEvent).SessionID

	bus.Publish(events.SessionControlEvent{Action: events.SessionNext, PlayerName: "Eryndor#7291"})

	active := activeSessions(t, db)
	require.Len(t, active, 1)
	assert.NotEqual(t, first, active[0].ID)
}

func TestSessionService_StartWithoutPlayerIsIgnored(t *testing.T) {
	bus := events.NewBus(testLog())
	db := newTestDB(t)
	newSessionService(t, bus, db)

	bus.Publish(events.SessionControlEvent{Action: events.SessionStart})

	assert.Empty(t, activeSessions(t, db))
}

func TestSessionService_AutoStartsOnStatsAndMirrorsCounters(t *testing.T) {
	// Arrange: stats begin flowing with a known player but no session.
	bus := events.NewBus(testLog())
	db := newTestDB(t)
	svc := newSessionService(t, bus, db)
	svc.setPlayerName("Eryndor#7291")

	// Act
	bus.Publish(events.StatsUpdateEvent{
		Timestamp:       time.Now(),
		TotalMaps:       3,
		TotalTime:       540,
		CurrencyPerMap:  2.5,
		CurrencyPerHour: 50,
		CurrencyTotal:   7.5,
		ExpGainedTotal:  1200,
		ExpLostTotal:    200,
	})

	// Assert: a session exists and carries the mirrored counters.
	active := activeSessions(t, db)
	require.Len(t, active, 1)
	session := active[0]
	assert.Equal(t, 3, session.TotalMaps)
	assert.Equal(t, 7.5, session.TotalCurrencyDelta) // per-map rate times map count
	assert.Equal(t, 2.5, session.CurrencyPerMap)
	assert.Equal(t, 540.0, session.TotalTime)
	assert.Equal(t, 1000.0, session.ExpTotal) // gains net of losses
}

func TestSessionService_AutoStartWithoutPlayerDoesNothing(t *testing.T) {
	bus := events.NewBus(testLog())
	db := newTestDB(t)
	newSessionService(t, bus, db)

	bus.Publish(events.StatsUpdateEvent{Timestamp: time.Now(), TotalMaps: 1})

	assert.Empty(t, activeSessions(t, db))
}

func TestSessionService_PostStartupRestoresActiveSession(t *testing.T) {
	// Arrange: a previous run left an active session with 7 maps behind.
	bus := events.NewBus(testLog())
	db := newTestDB(t)
	players := persistence.NewGormPlayerRepository(db)
	sessions := persistence.NewGormSessionRepository(db)

	player, err := players.GetOrCreate(context.Background(), "Eryndor#7291")
	require.NoError(t, err)
	name := "Eryndor#7291"
	require.NoError(t, sessions.Create(context.Background(), &persistence.SessionModel{
		PlayerID:   &player.ID,
		PlayerName: &name,
		IsActive:   true,
		StartedAt:  time.Now().Add(-time.Hour),
		TotalMaps:  7,
	}))

	svc := newSessionService(t, bus, db)
	restored := record(bus, events.TypeSessionRestore)

	// Act
	require.NoError(t, svc.PostStartup(context.Background()))

	// Assert
	require.Equal(t, 1, restored.count())
	event := restored.last().(events.SessionRestoreEvent)
	assert.Equal(t, "Eryndor#7291", event.PlayerName)
	assert.Equal(t, 7, event.TotalMaps)
}

func TestSessionService_ShutdownPreservesActiveSession(t *testing.T) {
	bus := events.NewBus(testLog())
	db := newTestDB(t)
	svc := newSessionService(t, bus, db)
	bus.Publish(events.SessionControlEvent{Action: events.SessionStart, PlayerName: "Eryndor#7291"})

	require.NoError(t, svc.Shutdown(context.Background()))

	assert.Len(t, activeSessions(t, db), 1)
}

func TestSessionService_SnapshotRequest(t *testing.T) {
	bus := events.NewBus(testLog())
	db := newTestDB(t)
	newSessionService(t, bus, db)

	// No session yet: the snapshot reports inactive.
	reply, ok := events.RequestAndWait[events.SessionSnapshotEvent](
		bus, events.RequestSessionEvent{Timestamp: time.Now()},
		events.TypeSessionSnapshot, events.DefaultRequestTimeout)
	require.True(t, ok)
	assert.False(t, reply.Active)

	bus.Publish(events.SessionControlEvent{Action: events.SessionStart, PlayerName: "Eryndor#7291"})

	reply, ok = events.RequestAndWait[events.SessionSnapshotEvent](
		bus, events.RequestSessionEvent{Timestamp: time.Now()},
		events.TypeSessionSnapshot, events.DefaultRequestTimeout)
	require.True(t, ok)
	assert.True(t, reply.Active)
	assert.NotZero(t, reply.SessionID)
}

func TestSessionService_PlayerJoinAdoptsStoredSession(t *testing.T) {
	// Arrange: storage holds an active session for the joining player.
	bus := events.NewBus(testLog())
	db := newTestDB(t)
	players := persistence.NewGormPlayerRepository(db)
	sessions := persistence.NewGormSessionRepository(db)

	player, err := players.GetOrCreate(context.Background(), "Maelis#5541")
	require.NoError(t, err)
	name := "Maelis#5541"
	require.NoError(t, sessions.Create(context.Background(), &persistence.SessionModel{
		PlayerID:   &player.ID,
		PlayerName: &name,
		IsActive:   true,
		StartedAt:  time.Now().Add(-time.Minute),
	}))

	newSessionService(t, bus, db)
	changed := record(bus, events.TypePlayerChanged)
	restored := record(bus, events.TypeSessionRestore)

	// Act
	bus.Publish(events.PlayerJoinEvent{Timestamp: time.Now(), PlayerName: "Maelis#5541"})

	// Assert: the switch is announced and the stored session adopted.
	require.Equal(t, 1, changed.count())
	assert.Equal(t, "Maelis#5541", changed.last().(events.PlayerChangedEvent).NewPlayer)
	require.Equal(t, 1, restored.count())
}

func TestSessionService_PlayerSwitchRotatesSession(t *testing.T) {
	// Arrange: a running session for the first player.
	bus := events.NewBus(testLog())
	db := newTestDB(t)
	newSessionService(t, bus, db)
	bus.Publish(events.PlayerJoinEvent{Timestamp: time.Now(), PlayerName: "Eryndor#7291"})
	bus.Publish(events.SessionControlEvent{Action: events.SessionStart, PlayerName: "Eryndor#7291"})
	finished := record(bus, events.TypeSessionFinished)

	// Act: a different player joins.
	bus.Publish(events.PlayerJoinEvent{Timestamp: time.Now(), PlayerName: "Maelis#5541"})

	// Assert: the old session closed, exactly one new session is active.
	require.Equal(t, 1, finished.count())
	assert.Equal(t, "Eryndor#7291", finished.last().(events.SessionFinishedEvent).PlayerName)
	active := activeSessions(t, db)
	require.Len(t, active, 1)
	require.NotNil(t, active[0].PlayerName)
	assert.Equal(t, "Maelis#5541", *active[0].PlayerName)
}

func TestSessionService_LoginScreenWarnsAboutActiveSession(t *testing.T) {
	bus := events.NewBus(testLog())
	db := newTestDB(t)
	sessions := persistence.NewGormSessionRepository(db)
	name := "Eryndor#7291"
	require.NoError(t, sessions.Create(context.Background(), &persistence.SessionModel{
		PlayerName: &name,
		IsActive:   true,
		StartedAt:  time.Now().Add(-time.Hour),
	}))

	newSessionService(t, bus, db)
	notifications := record(bus, events.TypeNotification)

	bus.Publish(events.GameViewEvent{Timestamp: time.Now(), View: "Game.UI.LoginCtrl"})

	require.Equal(t, 1, notifications.count())
	note := notifications.last().(events.NotificationEvent)
	assert.Equal(t, events.SeverityWarning, note.Severity)
	assert.Contains(t, note.Content, "Eryndor#7291")
}
