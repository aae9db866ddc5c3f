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
	"github.com/GeorgeTG/oracle/internal/inventory"
)

func newMarketRig(t *testing.T) (*events.Bus, *gorm.DB, *inventory.Inventory) {
	t.Helper()
	bus := events.NewBus(testLog())
	db := newTestDB(t)

	bag := inventory.New()
	bag.ChangeItem(100, 1, 5028, 50, "Glimmering Dust", "currency")
	answerInventory(bus, bag)

	NewMarketService(bus,
		persistence.NewGormItemRepository(db),
		persistence.NewGormMarketTransactionRepository(db),
		testLog())
	return bus, db, bag
}

func marketRows(t *testing.T, db *gorm.DB) []persistence.MarketTransactionModel {
	t.Helper()
	rows, _, err := persistence.NewGormMarketTransactionRepository(db).
		List(context.Background(), nil, 0, 0)
	require.NoError(t, err)
	return rows
}

func TestMarketService_OpenAndCloseAnnounced(t *testing.T) {
	bus, _, _ := newMarketRig(t)
	actions := record(bus, events.TypeMarketAction)

	bus.Publish(events.GameViewEvent{Timestamp: time.Now(), View: "Game.UI.AuctionHouseCtrl"})
	bus.Publish(events.GameViewEvent{Timestamp: time.Now(), View: "Game.UI.TownCtrl"})

	require.Equal(t, 2, actions.count())
	assert.Equal(t, events.MarketOpen, actions.at(0).(events.MarketActionEvent).Action)
	assert.Equal(t, events.MarketClose, actions.at(1).(events.MarketActionEvent).Action)
}

func TestMarketService_BatchesSalesUntilItemChanges(t *testing.T) {
	// Arrange: market open over a bag with 50 dust.
	bus, db, _ := newMarketRig(t)
	transactions := record(bus, events.TypeMarketTransaction)
	bus.Publish(events.GameViewEvent{Timestamp: time.Now(), View: "Game.UI.AuctionHouseCtrl"})

	// Act: selling 10 dust arrives as two slot rewrites; then a different
	// item moves, settling the dust batch.
	bus.Publish(events.ItemChangeEvent{Timestamp: time.Now(), ItemID: 5028, Amount: 45, Page: 100, Slot: 1, Name: "Glimmering Dust"})
	bus.Publish(events.ItemChangeEvent{Timestamp: time.Now(), ItemID: 5028, Amount: 40, Page: 100, Slot: 1, Name: "Glimmering Dust"})
	require.Equal(t, 0, transactions.count())

	bus.Publish(events.ItemChangeEvent{Timestamp: time.Now(), ItemID: 900115, Amount: 1, Page: 100, Slot: 2, Name: "Beacon Shard"})

	// Assert: one settled transaction for the whole dust sale.
	require.Equal(t, 1, transactions.count())
	tx := transactions.last().(events.MarketTransactionEvent)
	assert.Equal(t, 5028, tx.ItemID)
	assert.Equal(t, 10, tx.Quantity)
	assert.Equal(t, persistence.MarketActionLost, tx.Action)

	rows := marketRows(t, db)
	require.Len(t, rows, 1)
	assert.Equal(t, 10, rows[0].Quantity)
	assert.Equal(t, persistence.MarketActionLost, rows[0].Action)
}

func TestMarketService_CloseFlushesPendingBatch(t *testing.T) {
	bus, db, _ := newMarketRig(t)
	transactions := record(bus, events.TypeMarketTransaction)
	bus.Publish(events.GameViewEvent{Timestamp: time.Now(), View: "Game.UI.AuctionHouseCtrl"})

	bus.Publish(events.ItemChangeEvent{Timestamp: time.Now(), ItemID: 900115, Amount: 2, Page: 100, Slot: 2, Name: "Beacon Shard"})
	bus.Publish(events.GameViewEvent{Timestamp: time.Now(), View: "Game.UI.TownCtrl"})

	require.Equal(t, 1, transactions.count())
	tx := transactions.last().(events.MarketTransactionEvent)
	assert.Equal(t, 900115, tx.ItemID)
	assert.Equal(t, 2, tx.Quantity)
	assert.Equal(t, persistence.MarketActionGained, tx.Action)
	assert.Len(t, marketRows(t, db), 1)
}

func TestMarketService_StaleBatchFlushedOnNextViewEvent(t *testing.T) {
	bus, db, _ := newMarketRig(t)
	bus.Publish(events.GameViewEvent{Timestamp: time.Now(), View: "Game.UI.AuctionHouseCtrl"})

	// The change is stamped in the past, so it is already past the batch
	// window when the next auction house view event arrives.
	bus.Publish(events.ItemChangeEvent{Timestamp: time.Now().Add(-2 * time.Second), ItemID: 5028, Amount: 45, Page: 100, Slot: 1, Name: "Glimmering Dust"})
	bus.Publish(events.GameViewEvent{Timestamp: time.Now(), View: "Game.UI.AuctionHouseCtrl"})

	rows := marketRows(t, db)
	require.Len(t, rows, 1)
	assert.Equal(t, 5, rows[0].Quantity)
	assert.Equal(t, persistence.MarketActionLost, rows[0].Action)
}

func TestMarketService_SlotMoveIsNotATransaction(t *testing.T) {
	bus, db, _ := newMarketRig(t)
	bus.Publish(events.GameViewEvent{Timestamp: time.Now(), View: "Game.UI.AuctionHouseCtrl"})

	// The stack moves to another slot: total quantity is unchanged.
	bus.Publish(events.ItemChangeEvent{Timestamp: time.Now(), ItemID: 5028, Amount: 0, Page: 100, Slot: 1})
	bus.Publish(events.ItemChangeEvent{Timestamp: time.Now(), ItemID: 5028, Amount: 50, Page: 100, Slot: 3, Name: "Glimmering Dust"})
	bus.Publish(events.GameViewEvent{Timestamp: time.Now(), View: "Game.UI.TownCtrl"})

	assert.Empty(t, marketRows(t, db))
}

func TestMarketService_ConfirmDialogKeepsMarketOpen(t *testing.T) {
	bus, db, _ := newMarketRig(t)
	actions := record(bus, events.TypeMarketAction)
	bus.Publish(events.GameViewEvent{Timestamp: time.Now(), View: "Game.UI.AuctionHouseCtrl"})

	bus.Publish(events.GameViewEvent{Timestamp: time.Now(), View: "Game.UI.ConfirmCtrl"})
	bus.Publish(events.ItemChangeEvent{Timestamp: time.Now(), ItemID: 5028, Amount: 40, Page: 100, Slot: 1, Name: "Glimmering Dust"})
	bus.Publish(events.GameViewEvent{Timestamp: time.Now(), View: "Game.UI.TownCtrl"})

	// Only open and close were announced; the sale inside still settled.
	assert.Equal(t, 2, actions.count())
	assert.Len(t, marketRows(t, db), 1)
}

func TestMarketService_ChangesOutsideMarketAreIgnored(t *testing.T) {
	bus, db, _ := newMarketRig(t)

	bus.Publish(events.ItemChangeEvent{Timestamp: time.Now(), ItemID: 5028, Amount: 40, Page: 100, Slot: 1})

	assert.Empty(t, marketRows(t, db))
}
