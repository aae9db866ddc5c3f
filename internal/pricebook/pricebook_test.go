package pricebook_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/GeorgeTG/oracle/internal/adapters/persistence"
	"github.com/GeorgeTG/oracle/internal/events"
	"github.com/GeorgeTG/oracle/internal/infrastructure/config"
	"github.com/GeorgeTG/oracle/internal/infrastructure/database"
	"github.com/GeorgeTG/oracle/internal/pricebook"
	"github.com/GeorgeTG/oracle/internal/refdata"
)

func testLog() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

func testBook(t *testing.T, cfg *config.PriceDBConfig) (*pricebook.Book, *gorm.DB) {
	t.Helper()
	db, err := database.NewTestConnection()
	require.NoError(t, err)

	table := refdata.NewItemTable(map[int]refdata.ItemInfo{
		5028: {Name: "Glimmering Dust", Category: "currency"},
	})
	book := pricebook.New(cfg,
		persistence.NewGormItemRepository(db),
		persistence.NewGormPriceRevisionRepository(db),
		table, testLog())
	return book, db
}

func writePriceTable(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "price_table.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func revisionCount(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&persistence.PriceRevisionModel{}).Count(&count).Error)
	return count
}

func TestBook_RefreshFromRemote(t *testing.T) {
	// Arrange
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"5028": {"name": "Glimmering Dust", "type": "currency", "price": 1.5}}`))
	}))
	defer server.Close()
	book, db := testBook(t, &config.PriceDBConfig{URL: server.URL})

	// Act
	err := book.Refresh(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1.5, book.GetPrice(5028))

	revisions := persistence.NewGormPriceRevisionRepository(db)
	latest, err := revisions.LatestBySource(context.Background(), persistence.PriceSourceRemote)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, 1, latest.ItemCount)
}

func TestBook_RemoteFailureFallsBackToLocal(t *testing.T) {
	// Arrange
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()
	path := writePriceTable(t, `{"5028": {"name": "Glimmering Dust", "type": "currency", "price": 2.25}}`)
	book, db := testBook(t, &config.PriceDBConfig{URL: server.URL, LocalPath: path})

	// Act
	err := book.Refresh(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 2.25, book.GetPrice(5028))

	// The load also writes through to the item catalogue.
	items := persistence.NewGormItemRepository(db)
	item, err := items.FindByItemID(context.Background(), 5028)
	require.NoError(t, err)
	assert.Equal(t, 2.25, item.Price)
	require.NotNil(t, item.Name)
	assert.Equal(t, "Glimmering Dust", *item.Name)

	latest, err := persistence.NewGormPriceRevisionRepository(db).
		LatestBySource(context.Background(), persistence.PriceSourceLocal)
	require.NoError(t, err)
	require.NotNil(t, latest)
}

func TestBook_UnchangedLocalFileHydratesFromDatabase(t *testing.T) {
	// Arrange: first refresh reads the file and records a LOCAL revision.
	path := writePriceTable(t, `{"5028": {"price": 3.0}}`)
	book, db := testBook(t, &config.PriceDBConfig{LocalPath: path})
	require.NoError(t, book.Refresh(context.Background()))
	require.Equal(t, int64(1), revisionCount(t, db))

	// Act: the file is untouched, so the second refresh loads the catalogue.
	err := book.Refresh(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 3.0, book.GetPrice(5028))
	assert.Equal(t, int64(1), revisionCount(t, db))
}

func TestBook_ModifiedLocalFileReloads(t *testing.T) {
	// Arrange
	path := writePriceTable(t, `{"5028": {"price": 3.0}}`)
	book, db := testBook(t, &config.PriceDBConfig{LocalPath: path})
	require.NoError(t, book.Refresh(context.Background()))

	require.NoError(t, os.WriteFile(path, []byte(`{"5028": {"price": 4.5}}`), 0o644))
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, future, future))

	// Act
	err := book.Refresh(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 4.5, book.GetPrice(5028))
	assert.Equal(t, int64(2), revisionCount(t, db))
}

func TestBook_MissingLocalFileIsAnError(t *testing.T) {
	book, _ := testBook(t, &config.PriceDBConfig{LocalPath: filepath.Join(t.TempDir(), "absent.json")})

	err := book.Refresh(context.Background())

	assert.Error(t, err)
	assert.False(t, book.Loaded())
}

func TestBook_UnknownItemPricesAtZero(t *testing.T) {
	path := writePriceTable(t, `{"5028": {"price": 3.0}}`)
	book, _ := testBook(t, &config.PriceDBConfig{LocalPath: path})

	assert.Equal(t, 0.0, book.GetPrice(5028)) // not loaded yet

	require.NoError(t, book.Refresh(context.Background()))
	assert.Equal(t, 0.0, book.GetPrice(999999))
}

func TestBook_ItemDataChangedPatchesCache(t *testing.T) {
	// Arrange
	path := writePriceTable(t, `{"5028": {"price": 3.0}}`)
	book, _ := testBook(t, &config.PriceDBConfig{LocalPath: path})
	require.NoError(t, book.Refresh(context.Background()))

	bus := events.NewBus(testLog())
	book.AttachBus(bus)

	// Act: an edit updates the cached price, a negative price removes it.
	bus.Publish(events.ItemDataChangedEvent{Timestamp: time.Now(), ItemID: 5028, Price: 9.5})
	assert.Equal(t, 9.5, book.GetPrice(5028))

	bus.Publish(events.ItemDataChangedEvent{Timestamp: time.Now(), ItemID: 5028, Price: -1})

	// Assert
	assert.Equal(t, 0.0, book.GetPrice(5028))
}
