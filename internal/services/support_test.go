package services

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/GeorgeTG/oracle/internal/adapters/persistence"
	"github.com/GeorgeTG/oracle/internal/events"
	"github.com/GeorgeTG/oracle/internal/infrastructure/config"
	"github.com/GeorgeTG/oracle/internal/infrastructure/database"
	"github.com/GeorgeTG/oracle/internal/inventory"
	"github.com/GeorgeTG/oracle/internal/pricebook"
	"github.com/GeorgeTG/oracle/internal/refdata"
)

func testLog() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewTestConnection()
	require.NoError(t, err)
	return db
}

// recorder collects every event of one type published on a bus. Publish
// blocks until handlers return, so recorded events are visible as soon as
// the publishing call comes back.
type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func record(bus *events.Bus, t events.Type) *recorder {
	r := &recorder{}
	bus.Subscribe(t, "test_recorder", func(event events.Event) {
		r.mu.Lock()
		r.events = append(r.events, event)
		r.mu.Unlock()
	})
	return r
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func (r *recorder) last() events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return nil
	}
	return r.events[len(r.events)-1]
}

func (r *recorder) at(i int) events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[i]
}

// answerInventory replies to every inventory request with a snapshot of the
// given bag, standing in for the inventory service.
func answerInventory(bus *events.Bus, inv *inventory.Inventory) {
	bus.Subscribe(events.TypeRequestInventory, "test_inventory", func(events.Event) {
		bus.Publish(events.InventorySnapshotEvent{
			Timestamp: time.Now(),
			Snapshot:  inventory.SnapshotOf(inv),
		})
	})
}

// answerNoSession replies to session requests with "no active session" so
// callers do not block on the request timeout.
func answerNoSession(bus *events.Bus) {
	bus.Subscribe(events.TypeRequestSession, "test_session", func(events.Event) {
		bus.Publish(events.SessionSnapshotEvent{Timestamp: time.Now()})
	})
}

// loadedBook builds a price book preloaded from a generated local table.
func loadedBook(t *testing.T, db *gorm.DB, prices map[int]float64) *pricebook.Book {
	t.Helper()

	table := make(map[string]map[string]float64, len(prices))
	for itemID, price := range prices {
		table[strconv.Itoa(itemID)] = map[string]float64{"price": price}
	}
	raw, err := json.Marshal(table)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "price_table.json")
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	book := pricebook.New(&config.PriceDBConfig{LocalPath: path},
		persistence.NewGormItemRepository(db),
		persistence.NewGormPriceRevisionRepository(db),
		refdata.NewItemTable(nil), testLog())
	require.NoError(t, book.Refresh(context.Background()))
	return book
}
