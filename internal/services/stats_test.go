package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GeorgeTG/oracle/internal/events"
	"github.com/GeorgeTG/oracle/internal/inventory"
)

func newStatsRig(t *testing.T) (*events.Bus, *StatsService) {
	t.Helper()
	bus := events.NewBus(testLog())
	db := newTestDB(t)
	book := loadedBook(t, db, map[int]float64{5028: 2.0, 900115: 10.0})
	return bus, NewStatsService(bus, book, testLog())
}

func snapshotWith(totals map[int]int) events.InventorySnapshotEvent {
	inv := inventory.New()
	slot := 1
	for itemID, qty := range totals {
		inv.ChangeItem(100, slot, itemID, qty, "", "")
		slot++
	}
	return events.InventorySnapshotEvent{Timestamp: time.Now(), Snapshot: inventory.SnapshotOf(inv)}
}

func TestStatsService_FirstSnapshotsOnlyEstablishBaseline(t *testing.T) {
	// Arrange: combat view, so snapshots would normally be counted.
	bus, _ := newStatsRig(t)
	bus.Publish(events.GameViewEvent{Timestamp: time.Now(), View: "Game.UI.FightCtrl"})
	updates := record(bus, events.TypeStatsUpdate)

	// Act: the first two snapshots must not book anything; counting them
	// would treat the whole stored inventory as fresh drops.
	bus.Publish(snapshotWith(map[int]int{5028: 100}))
	bus.Publish(snapshotWith(map[int]int{5028: 100}))
	require.Equal(t, 0, updates.count())

	bus.Publish(snapshotWith(map[int]int{5028: 105}))

	// Assert: only the +5 since the settled baseline counts.
	require.Equal(t, 1, updates.count())
	stats := updates.last().(events.StatsUpdateEvent)
	assert.Equal(t, 10.0, stats.CurrencyTotal) // 5 dust at 2.0
}

func TestStatsService_NonCombatSnapshotsRebaselineSilently(t *testing.T) {
	bus, _ := newStatsRig(t)
	updates := record(bus, events.TypeStatsUpdate)

	bus.Publish(snapshotWith(map[int]int{5028: 100}))
	bus.Publish(snapshotWith(map[int]int{5028: 100}))

	// A stash dump outside combat moves many items; none of it is loot.
	bus.Publish(events.GameViewEvent{Timestamp: time.Now(), View: "Game.UI.StashCtrl"})
	bus.Publish(snapshotWith(map[int]int{5028: 500}))
	require.Equal(t, 0, updates.count())

	// Back in combat the inflated totals are the new baseline.
	bus.Publish(events.GameViewEvent{Timestamp: time.Now(), View: "Game.UI.FightCtrl"})
	bus.Publish(snapshotWith(map[int]int{5028: 501}))

	stats := updates.last().(events.StatsUpdateEvent)
	assert.Equal(t, 2.0, stats.CurrencyTotal)
}

func TestStatsService_InventoryLoadResetsBaseline(t *testing.T) {
	bus, _ := newStatsRig(t)
	bus.Publish(events.GameViewEvent{Timestamp: time.Now(), View: "Game.UI.FightCtrl"})
	updates := record(bus, events.TypeStatsUpdate)

	// A database load announces the full bag; it becomes the baseline
	// directly, without the two-snapshot settling dance.
	loaded := inventory.New()
	loaded.ChangeItem(100, 1, 5028, 300, "Glimmering Dust", "currency")
	bus.Publish(events.InventoryUpdateEvent{Timestamp: time.Now(), Inventory: loaded})

	bus.Publish(snapshotWith(map[int]int{5028: 304}))

	require.Equal(t, 1, updates.count())
	stats := updates.last().(events.StatsUpdateEvent)
	assert.Equal(t, 8.0, stats.CurrencyTotal)
}

func TestStatsService_MapFlowBooksEntryCostAndSummary(t *testing.T) {
	// Arrange: an inventory responder so the final map snapshot resolves.
	bus, svc := newStatsRig(t)
	answerInventory(bus, inventory.New())
	summaries := record(bus, events.TypeMapStats)

	bus.Publish(events.ExpUpdateEvent{Timestamp: time.Now(), Experience: 1000, Level: 10})

	// Act: one shard spent to enter, ten dust looted inside.
	bus.Publish(events.MapStartedEvent{
		Timestamp: time.Now(),
		LevelID:   5302,
		ConsumedItems: []inventory.Item{
			{ItemID: 900115, Quantity: 1, Name: "Beacon Shard"},
		},
	})
	bus.Publish(events.ExpUpdateEvent{Timestamp: time.Now(), Experience: 1600, Level: 10})
	bus.Publish(events.MapFinishedEvent{
		Timestamp: time.Now(),
		LevelID:   5302,
		Duration:  61.5,
		Changes:   map[int]int{5028: 10},
	})

	// Assert
	assert.Equal(t, 1, svc.TotalMaps())
	require.Equal(t, 1, summaries.count())
	summary := summaries.last().(events.MapStatsEvent)
	assert.Equal(t, 61.5, summary.Duration)
	assert.Equal(t, 10.0, summary.CurrencyGained) // 10 dust at 2.0 minus one shard at 10.0
	assert.Equal(t, 600.0, summary.ExpGained)
	assert.Equal(t, map[int]int{5028: 10}, summary.Changes)
}

func TestStatsService_LevelUpCreditsNewLevelExperience(t *testing.T) {
	bus, _ := newStatsRig(t)
	answerInventory(bus, inventory.New())
	summaries := record(bus, events.TypeMapStats)

	bus.Publish(events.ExpUpdateEvent{Timestamp: time.Now(), Experience: 900, Level: 10})
	bus.Publish(events.MapStartedEvent{Timestamp: time.Now(), LevelID: 5302})
	bus.Publish(events.ExpUpdateEvent{Timestamp: time.Now(), Experience: 150, Level: 11})
	bus.Publish(events.MapFinishedEvent{Timestamp: time.Now(), LevelID: 5302, Duration: 30})

	summary := summaries.last().(events.MapStatsEvent)
	assert.Equal(t, 150.0, summary.ExpGained)
}

func TestStatsService_ExperienceLossIsBookedSeparately(t *testing.T) {
	bus, svc := newStatsRig(t)

	bus.Publish(events.ExpUpdateEvent{Timestamp: time.Now(), Experience: 1000, Level: 10})
	bus.Publish(events.ExpUpdateEvent{Timestamp: time.Now(), Experience: 500, Level: 10})

	assert.Equal(t, 500.0, svc.ExpLostTotal())
}

func TestStatsService_FirstExpUpdateIsNotALoss(t *testing.T) {
	bus, svc := newStatsRig(t)

	bus.Publish(events.ExpUpdateEvent{Timestamp: time.Now(), Experience: 123456, Level: 42})

	assert.Zero(t, svc.ExpLostTotal())
}

func TestStatsService_ItemChangesThrottleSnapshotRequests(t *testing.T) {
	bus, _ := newStatsRig(t)
	requests := record(bus, events.TypeRequestInventory)

	// A burst of pickups within the throttle window asks only once.
	bus.Publish(events.ItemChangeEvent{Timestamp: time.Now(), ItemID: 5028, Amount: 1})
	bus.Publish(events.ItemChangeEvent{Timestamp: time.Now(), ItemID: 5028, Amount: 2})
	bus.Publish(events.ItemChangeEvent{Timestamp: time.Now(), ItemID: 5028, Amount: 3})

	assert.Equal(t, 1, requests.count())
}

func TestStatsService_RestartClearsCountersAndNotifies(t *testing.T) {
	// Arrange: counters loaded from a restored session.
	bus, svc := newStatsRig(t)
	bus.Publish(events.SessionRestoreEvent{
		Timestamp: time.Now(), SessionID: 9, PlayerName: "Eryndor#7291",
		TotalMaps: 7, CurrencyTotal: 123.4, StartedAt: time.Now().Add(-time.Hour),
	})
	require.Equal(t, 7, svc.TotalMaps())
	notifications := record(bus, events.TypeNotification)
	updates := record(bus, events.TypeStatsUpdate)

	// Act
	bus.Publish(events.StatsControlEvent{Timestamp: time.Now(), Action: events.StatsRestart})

	// Assert
	assert.Zero(t, svc.TotalMaps())
	require.Equal(t, 1, notifications.count())
	assert.Equal(t, events.SeverityInfo, notifications.last().(events.NotificationEvent).Severity)
	require.Equal(t, 1, updates.count())
	stats := updates.last().(events.StatsUpdateEvent)
	assert.Zero(t, stats.TotalMaps)
	assert.Zero(t, stats.CurrencyTotal)
}

func TestStatsService_SessionRestoreLoadsCounters(t *testing.T) {
	bus, svc := newStatsRig(t)
	updates := record(bus, events.TypeStatsUpdate)

	bus.Publish(events.SessionRestoreEvent{
		Timestamp:     time.Now(),
		SessionID:     9,
		PlayerName:    "Eryndor#7291",
		StartedAt:     time.Now().Add(-time.Hour),
		TotalMaps:     7,
		TotalTime:     1800,
		CurrencyTotal: 123.4,
		ExpTotal:      5000,
	})

	assert.Equal(t, 7, svc.TotalMaps())
	require.Equal(t, 1, updates.count())
	stats := updates.last().(events.StatsUpdateEvent)
	assert.Equal(t, 7, stats.TotalMaps)
	assert.Equal(t, 123.4, stats.CurrencyTotal)
	assert.Equal(t, 5000.0, stats.ExpGainedTotal)
}

func TestStatsService_SessionStartResetsCounters(t *testing.T) {
	bus, svc := newStatsRig(t)
	bus.Publish(events.SessionRestoreEvent{
		Timestamp: time.Now(), SessionID: 9, TotalMaps: 7, StartedAt: time.Now(),
	})
	require.Equal(t, 7, svc.TotalMaps())

	bus.Publish(events.SessionStartedEvent{
		Timestamp: time.Now(), SessionID: 10, PlayerName: "Eryndor#7291", StartedAt: time.Now(),
	})

	assert.Zero(t, svc.TotalMaps())
}
