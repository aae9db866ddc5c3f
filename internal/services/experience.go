package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/GeorgeTG/oracle/internal/adapters/persistence"
	"github.com/GeorgeTG/oracle/internal/events"
)

// ExperienceService tracks character level and experience. Each update is
// translated into progress toward the next level using the per-level
// experience table and persisted on the player row.
type ExperienceService struct {
	tracker

	bus     *events.Bus
	players *persistence.GormPlayerRepository
	log     *logrus.Entry

	tablePath string

	mu           sync.Mutex
	expTable     map[int]int
	currentLevel int
	currentExp   int

	now func() time.Time
}

// ExperienceServiceDescriptor names the service for container registration.
var ExperienceServiceDescriptor = Descriptor{
	Name:    "ExperienceService",
	Version: "0.1.0",
}

// NewExperienceService builds the service and subscribes its handlers. The
// experience table is loaded lazily at startup.
func NewExperienceService(bus *events.Bus, players *persistence.GormPlayerRepository, tablePath string, log *logrus.Entry) *ExperienceService {
	s := &ExperienceService{
		bus:          bus,
		players:      players,
		log:          log,
		tablePath:    tablePath,
		expTable:     make(map[int]int),
		currentLevel: 1,
		now:          time.Now,
	}
	s.attach(bus, ExperienceServiceDescriptor.Name)

	bus.Subscribe(events.TypeExpUpdate, ExperienceServiceDescriptor.Name, s.onExpUpdate)
	bus.Subscribe(events.TypePlayerJoin, ExperienceServiceDescriptor.Name, s.onPlayerJoin)
	return s
}

func (s *ExperienceService) Descriptor() Descriptor { return ExperienceServiceDescriptor }

// Startup loads the experience table. A missing table is fatal for the
// service: without it no progress can be computed.
func (s *ExperienceService) Startup(ctx context.Context) error {
	table, err := loadExperienceTable(s.tablePath)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.expTable = table
	s.mu.Unlock()

	s.log.WithField("levels", len(table)).Info("Loaded experience table")
	return nil
}

func (s *ExperienceService) PostStartup(ctx context.Context) error { return nil }

func (s *ExperienceService) Shutdown(ctx context.Context) error { return nil }

// experienceTableFile mirrors the game's exported level table: a list of
// level groups, each entry naming the level id and the experience required
// to complete it.
type experienceTableFile struct {
	Levels [][]struct {
		ID  int `json:"Id"`
		Exp int `json:"Exp"`
	} `json:"levels"`
}

func loadExperienceTable(path string) (map[int]int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read experience table: %w", err)
	}

	var file experienceTableFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse experience table: %w", err)
	}
	if len(file.Levels) == 0 {
		return nil, fmt.Errorf("experience table %s has no levels", path)
	}

	table := make(map[int]int, len(file.Levels[0]))
	for _, level := range file.Levels[0] {
		table[level.ID] = level.Exp
	}
	return table, nil
}

// progressFor computes level progress, or false when the level is unknown.
func (s *ExperienceService) progressFor(level, experience int) (events.LevelProgressEvent, bool) {
	s.mu.Lock()
	levelTotal, known := s.expTable[level]
	s.mu.Unlock()
	if !known {
		s.log.WithField("level", level).Warn("Level not in experience table")
		return events.LevelProgressEvent{}, false
	}

	percentage := 0.0
	if levelTotal > 0 {
		percentage = float64(experience) / float64(levelTotal) * 100.0
	}
	return events.LevelProgressEvent{
		Timestamp:  s.now(),
		Level:      level,
		Current:    experience,
		Remaining:  max(0, levelTotal-experience),
		LevelTotal: levelTotal,
		Percentage: percentage,
	}, true
}

func (s *ExperienceService) onExpUpdate(event events.Event) {
	update, ok := event.(events.ExpUpdateEvent)
	if !ok {
		return
	}
	ctx := context.Background()

	s.mu.Lock()
	prevLevel := s.currentLevel
	s.currentLevel = update.Level
	s.currentExp = update.Experience
	s.mu.Unlock()

	if prevLevel > 0 && prevLevel != update.Level {
		s.log.WithFields(logrus.Fields{"from": prevLevel, "to": update.Level}).Info("Level changed")
	}

	progress, ok := s.progressFor(update.Level, update.Experience)
	if !ok {
		return
	}
	s.bus.Publish(progress)

	playerName := s.playerName()
	if playerName == "" {
		return
	}
	player, err := s.players.GetOrCreate(ctx, playerName)
	if err != nil {
		s.log.WithError(err).Warn("Failed to resolve player for experience update")
		return
	}
	if err := s.players.UpdateExperience(ctx, player.ID, update.Level, update.Experience); err != nil {
		s.log.WithError(err).Warn("Failed to persist experience")
	}
}

// onPlayerJoin loads the stored level state for the joining player and
// announces initial progress.
func (s *ExperienceService) onPlayerJoin(event events.Event) {
	join, ok := event.(events.PlayerJoinEvent)
	if !ok || join.PlayerName == "" {
		return
	}
	ctx := context.Background()

	player, err := s.players.GetOrCreate(ctx, join.PlayerName)
	if err != nil {
		s.log.WithError(err).Warn("Failed to resolve joining player")
		return
	}
	s.setPlayerName(join.PlayerName)

	s.mu.Lock()
	s.currentLevel = player.Level
	s.currentExp = player.Experience
	s.mu.Unlock()

	progress, ok := s.progressFor(player.Level, player.Experience)
	if !ok {
		return
	}
	s.bus.Publish(progress)
	s.log.WithFields(logrus.Fields{
		"player": player.Name, "level": player.Level, "experience": player.Experience,
	}).Info("Loaded player level state")
}
