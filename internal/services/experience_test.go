package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/GeorgeTG/oracle/internal/adapters/persistence"
	"github.com/GeorgeTG/oracle/internal/events"
)

const expTableJSON = `{"levels": [[
	{"Id": 1, "Exp": 1000},
	{"Id": 2, "Exp": 2400},
	{"Id": 3, "Exp": 5100}
]]}`

func writeExpTable(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "experience.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newExperienceService(t *testing.T, bus *events.Bus, db *gorm.DB) *ExperienceService {
	t.Helper()
	svc := NewExperienceService(bus,
		persistence.NewGormPlayerRepository(db),
		writeExpTable(t, expTableJSON), testLog())
	require.NoError(t, svc.Startup(context.Background()))
	return svc
}

func TestExperienceService_StartupFailsWithoutTable(t *testing.T) {
	bus := events.NewBus(testLog())
	db := newTestDB(t)
	svc := NewExperienceService(bus,
		persistence.NewGormPlayerRepository(db),
		filepath.Join(t.TempDir(), "absent.json"), testLog())

	err := svc.Startup(context.Background())

	assert.Error(t, err)
}

func TestExperienceService_StartupRejectsEmptyTable(t *testing.T) {
	bus := events.NewBus(testLog())
	db := newTestDB(t)
	svc := NewExperienceService(bus,
		persistence.NewGormPlayerRepository(db),
		writeExpTable(t, `{"levels": []}`), testLog())

	err := svc.Startup(context.Background())

	assert.Error(t, err)
}

func TestExperienceService_PlayerJoinPublishesInitialProgress(t *testing.T) {
	// Arrange
	bus := events.NewBus(testLog())
	db := newTestDB(t)
	newExperienceService(t, bus, db)
	progress := record(bus, events.TypeLevelProgress)

	// Act: a fresh player starts at level 1 with no experience.
	bus.Publish(events.PlayerJoinEvent{Timestamp: time.Now(), PlayerName: "Eryndor#7291"})

	// Assert
	require.Equal(t, 1, progress.count())
	event := progress.last().(events.LevelProgressEvent)
	assert.Equal(t, 1, event.Level)
	assert.Equal(t, 0, event.Current)
	assert.Equal(t, 1000, event.LevelTotal)
	assert.Equal(t, 1000, event.Remaining)
	assert.Equal(t, 0.0, event.Percentage)
}

func TestExperienceService_ExpUpdateComputesProgressAndPersists(t *testing.T) {
	// Arrange
	bus := events.NewBus(testLog())
	db := newTestDB(t)
	newExperienceService(t, bus, db)
	bus.Publish(events.PlayerJoinEvent{Timestamp: time.Now(), PlayerName: "Eryndor#7291"})
	progress := record(bus, events.TypeLevelProgress)

	// Act
	bus.Publish(events.ExpUpdateEvent{Timestamp: time.Now(), Experience: 600, Level: 2})

	// Assert
	require.Equal(t, 1, progress.count())
	event := progress.last().(events.LevelProgressEvent)
	assert.Equal(t, 2, event.Level)
	assert.Equal(t, 600, event.Current)
	assert.Equal(t, 2400, event.LevelTotal)
	assert.Equal(t, 1800, event.Remaining)
	assert.InDelta(t, 25.0, event.Percentage, 0.001)

	player, err := persistence.NewGormPlayerRepository(db).
		FindByName(context.Background(), "Eryndor#7291")
	require.NoError(t, err)
	assert.Equal(t, 2, player.Level)
	assert.Equal(t, 600, player.Experience)
}

func TestExperienceService_UnknownLevelPublishesNothing(t *testing.T) {
	bus := events.NewBus(testLog())
	db := newTestDB(t)
	newExperienceService(t, bus, db)
	progress := record(bus, events.TypeLevelProgress)

	bus.Publish(events.ExpUpdateEvent{Timestamp: time.Now(), Experience: 100, Level: 99})

	assert.Equal(t, 0, progress.count())
}

func TestExperienceService_OverflowingExperienceClampsRemaining(t *testing.T) {
	bus := events.NewBus(testLog())
	db := newTestDB(t)
	newExperienceService(t, bus, db)
	progress := record(bus, events.TypeLevelProgress)

	// More experience than the level needs, as happens right before the
	// level-up line is parsed.
	bus.Publish(events.ExpUpdateEvent{Timestamp: time.Now(), Experience: 1200, Level: 1})

	event := progress.last().(events.LevelProgressEvent)
	assert.Equal(t, 0, event.Remaining)
	assert.Greater(t, event.Percentage, 100.0)
}
