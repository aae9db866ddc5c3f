package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/GeorgeTG/oracle/internal/adapters/persistence"
	"github.com/GeorgeTG/oracle/internal/events"
)

// SessionService owns the farming session lifecycle. At most one session is
// active at a time; an active session survives a daemon restart and is
// rehydrated through SESSION_RESTORE at post-startup.
type SessionService struct {
	tracker

	bus      *events.Bus
	players  *persistence.GormPlayerRepository
	sessions *persistence.GormSessionRepository
	log      *logrus.Entry

	mu      sync.Mutex
	current *persistence.SessionModel

	now func() time.Time
}

// SessionServiceDescriptor names the service for container registration.
var SessionServiceDescriptor = Descriptor{
	Name:    "SessionService",
	Version: "0.1.0",
}

// NewSessionService builds the service and subscribes its handlers.
func NewSessionService(bus *events.Bus, players *persistence.GormPlayerRepository, sessions *persistence.GormSessionRepository, log *logrus.Entry) *SessionService {
	s := &SessionService{
		bus:      bus,
		players:  players,
		sessions: sessions,
		log:      log,
		now:      time.Now,
	}
	s.attach(bus, SessionServiceDescriptor.Name)

	bus.Subscribe(events.TypeSessionControl, SessionServiceDescriptor.Name, s.onSessionControl)
	bus.Subscribe(events.TypeStatsUpdate, SessionServiceDescriptor.Name, s.onStatsUpdate)
	bus.Subscribe(events.TypeRequestSession, SessionServiceDescriptor.Name, s.onRequestSession)
	bus.Subscribe(events.TypePlayerJoin, SessionServiceDescriptor.Name, s.onPlayerJoin)
	bus.Subscribe(events.TypePlayerChanged, SessionServiceDescriptor.Name, s.onPlayerChanged)
	bus.Subscribe(events.TypeGameView, SessionServiceDescriptor.Name, s.onGameView)
	return s
}

func (s *SessionService) Descriptor() Descriptor { return SessionServiceDescriptor }

func (s *SessionService) Startup(ctx context.Context) error { return nil }

// PostStartup restores a persisted active session, if one exists, now that
// every other service has its handlers subscribed.
func (s *SessionService) PostStartup(ctx context.Context) error {
	active, err := s.sessions.FindActive(ctx)
	if err != nil {
		return err
	}
	if len(active) == 0 {
		s.log.Info("No active session found, ready to start a new one")
		return nil
	}

	session := active[0]
	s.mu.Lock()
	s.current = &session
	s.mu.Unlock()

	s.log.WithField("session_id", session.ID).Info("Found active session, restoring")
	s.publishRestore(&session)
	return nil
}

// Shutdown deliberately leaves an active session open so the next startup
// can restore it.
func (s *SessionService) Shutdown(ctx context.Context) error {
	s.log.Info("Preserving active session for restore")
	return nil
}

func (s *SessionService) onSessionControl(event events.Event) {
	control, ok := event.(events.SessionControlEvent)
	if !ok {
		return
	}
	ctx := context.Background()
	s.log.WithField("action", control.Action).Info("Session control")

	playerName := control.PlayerName
	if playerName == "" {
		playerName = s.playerName()
	}

	switch control.Action {
	case events.SessionStart:
		s.startSession(ctx, playerName)
	case events.SessionClose:
		s.closeSession(ctx)
	case events.SessionNext:
		s.closeSession(ctx)
		s.startSession(ctx, playerName)
	}
}

// onStatsUpdate mirrors the stats counters into the active session row,
// auto-starting a session when stats begin flowing with none active.
func (s *SessionService) onStatsUpdate(event events.Event) {
	stats, ok := event.(events.StatsUpdateEvent)
	if !ok {
		return
	}
	ctx := context.Background()

	s.mu.Lock()
	current := s.current
	s.mu.Unlock()

	if current == nil {
		playerName := s.playerName()
		if playerName == "" {
			s.log.Debug("Skipping session auto-start, no player name yet")
			return
		}
		s.startSession(ctx, playerName)

		s.mu.Lock()
		current = s.current
		s.mu.Unlock()
		if current == nil {
			return
		}
	}

	current.TotalMaps = stats.TotalMaps
	current.TotalCurrencyDelta = stats.CurrencyPerMap * float64(stats.TotalMaps)
	current.CurrencyPerHour = stats.CurrencyPerHour
	current.CurrencyPerMap = stats.CurrencyPerMap
	current.CurrencyTotal = stats.CurrencyTotal
	current.TotalTime = stats.TotalTime
	current.ExpTotal = stats.ExpGainedTotal - stats.ExpLostTotal
	current.ExpPerHour = stats.ExpPerHour

	if err := s.sessions.Save(ctx, current); err != nil {
		s.log.WithError(err).Warn("Failed to save session stats")
	}
}

func (s *SessionService) onRequestSession(event events.Event) {
	if _, ok := event.(events.RequestSessionEvent); !ok {
		return
	}

	s.mu.Lock()
	current := s.current
	s.mu.Unlock()

	snapshot := events.SessionSnapshotEvent{
		Timestamp:  s.now(),
		PlayerName: s.playerName(),
	}
	if current != nil {
		snapshot.SessionID = current.ID
		snapshot.StartedAt = current.StartedAt
		snapshot.Active = true
	}
	s.bus.Publish(snapshot)
}

// onPlayerJoin announces player switches and adopts an active session that
// storage already holds for the joining player.
func (s *SessionService) onPlayerJoin(event events.Event) {
	join, ok := event.(events.PlayerJoinEvent)
	if !ok {
		return
	}
	ctx := context.Background()

	if previous := s.playerName(); previous != join.PlayerName {
		s.bus.Publish(events.PlayerChangedEvent{
			Timestamp: s.now(),
			OldPlayer: previous,
			NewPlayer: join.PlayerName,
		})
	}
	s.setPlayerName(join.PlayerName)

	active, err := s.sessions.FindActiveForPlayer(ctx, join.PlayerName)
	if err != nil {
		s.log.WithError(err).Warn("Failed to look up active session")
		return
	}
	if active == nil {
		return
	}

	s.mu.Lock()
	alreadyLoaded := s.current != nil && s.current.ID == active.ID
	if !alreadyLoaded {
		s.current = active
	}
	s.mu.Unlock()

	if alreadyLoaded {
		s.log.WithField("session_id", active.ID).Debug("Active session already loaded")
		return
	}

	s.log.WithField("session_id", active.ID).Info("Adopting active session from storage")
	s.publishRestore(active)
}

// onPlayerChanged rotates sessions on a switch between two known players.
// The first player seen is not a switch: any stored session is adopted by
// the join handler, and stats flow auto-starts a fresh one otherwise.
func (s *SessionService) onPlayerChanged(event events.Event) {
	changed, ok := event.(events.PlayerChangedEvent)
	if !ok || changed.OldPlayer == "" {
		return
	}
	ctx := context.Background()
	s.log.WithFields(logrus.Fields{"old": changed.OldPlayer, "new": changed.NewPlayer}).Info("Player changed")

	s.mu.Lock()
	hasCurrent := s.current != nil
	s.mu.Unlock()

	if hasCurrent {
		s.closeSession(ctx)
	}
	s.startSession(ctx, changed.NewPlayer)
}

// onGameView warns connected UIs when the login screen appears while an
// active session is still on record.
func (s *SessionService) onGameView(event events.Event) {
	view, ok := event.(events.GameViewEvent)
	if !ok || !strings.Contains(view.View, "Login") {
		return
	}

	active, err := s.sessions.FindActive(context.Background())
	if err != nil || len(active) == 0 {
		return
	}

	name := "Unknown"
	if active[0].PlayerName != nil {
		name = *active[0].PlayerName
	}
	s.bus.Publish(events.NotificationEvent{
		Timestamp:  s.now(),
		Severity:   events.SeverityWarning,
		Title:      "Active Session Found",
		Content:    fmt.Sprintf("There is an active session for player: %s", name),
		DurationMS: 8000,
	})
}

func (s *SessionService) startSession(ctx context.Context, playerName string) {
	if playerName == "" {
		s.log.Info("No player name available, not starting a session")
		return
	}

	s.mu.Lock()
	hasCurrent := s.current != nil
	s.mu.Unlock()
	if hasCurrent {
		s.closeSession(ctx)
	}

	player, err := s.players.GetOrCreate(ctx, playerName)
	if err != nil {
		s.log.WithError(err).Warn("Failed to resolve player for session")
		return
	}

	session := &persistence.SessionModel{
		PlayerID:   &player.ID,
		PlayerName: &playerName,
		IsActive:   true,
		StartedAt:  s.now(),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		s.log.WithError(err).Error("Failed to create session")
		return
	}

	s.mu.Lock()
	s.current = session
	s.mu.Unlock()

	s.bus.Publish(events.SessionStartedEvent{
		Timestamp:  s.now(),
		SessionID:  session.ID,
		PlayerName: playerName,
		StartedAt:  session.StartedAt,
	})
	s.log.WithFields(logrus.Fields{"session_id": session.ID, "player": playerName}).Info("Started session")
}

func (s *SessionService) closeSession(ctx context.Context) {
	s.mu.Lock()
	current := s.current
	s.current = nil
	s.mu.Unlock()

	if current == nil {
		s.log.Warn("No active session to close")
		return
	}

	endedAt := s.now()
	if err := s.sessions.Close(ctx, current.ID, endedAt); err != nil {
		s.log.WithError(err).Error("Failed to close session")
		return
	}

	playerName := ""
	if current.PlayerName != nil {
		playerName = *current.PlayerName
	}
	s.bus.Publish(events.SessionFinishedEvent{
		Timestamp:          s.now(),
		SessionID:          current.ID,
		PlayerName:         playerName,
		StartedAt:          current.StartedAt,
		EndedAt:            endedAt,
		TotalMaps:          current.TotalMaps,
		TotalCurrencyDelta: current.TotalCurrencyDelta,
		CurrencyPerHour:    current.CurrencyPerHour,
		CurrencyPerMap:     current.CurrencyPerMap,
	})
	s.log.WithFields(logrus.Fields{
		"session_id": current.ID,
		"maps":       current.TotalMaps,
		"currency":   current.TotalCurrencyDelta,
	}).Info("Closed session")
}

func (s *SessionService) publishRestore(session *persistence.SessionModel) {
	playerName := "Unknown"
	if session.PlayerName != nil {
		playerName = *session.PlayerName
	}
	s.bus.Publish(events.SessionRestoreEvent{
		Timestamp:       s.now(),
		SessionID:       session.ID,
		PlayerName:      playerName,
		StartedAt:       session.StartedAt,
		TotalMaps:       session.TotalMaps,
		TotalTime:       session.TotalTime,
		CurrencyTotal:   session.CurrencyTotal,
		CurrencyPerHour: session.CurrencyPerHour,
		CurrencyPerMap:  session.CurrencyPerMap,
		ExpTotal:        session.ExpTotal,
		ExpPerHour:      session.ExpPerHour,
	})
}
