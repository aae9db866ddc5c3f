// Package pricebook maintains the in-memory item price cache backing map
// profit and session statistics. Prices come from a remote endpoint when one
// is configured, falling back to the local price_table.json; every refresh is
// recorded as a revision row so local file reloads can be skipped when the
// file has not changed.
package pricebook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/GeorgeTG/oracle/internal/adapters/persistence"
	"github.com/GeorgeTG/oracle/internal/events"
	"github.com/GeorgeTG/oracle/internal/infrastructure/config"
	"github.com/GeorgeTG/oracle/internal/refdata"
)

const (
	remoteTimeout = 10 * time.Second

	// Remote fetches are rate limited so repeated Refresh calls cannot
	// hammer the endpoint; a throttled refresh falls back to local data.
	remoteRefreshInterval = time.Minute
)

// priceEntry is one value in the price table JSON, keyed by item id string.
type priceEntry struct {
	Name     string  `json:"name"`
	Category string  `json:"type"`
	Price    float64 `json:"price"`
}

// Book caches item prices for lookup on the hot event path. All reads go
// through the RWMutex; an unknown item always prices at zero.
type Book struct {
	mu     sync.RWMutex
	prices map[int]float64
	loaded bool

	items     *persistence.GormItemRepository
	revisions *persistence.GormPriceRevisionRepository
	table     *refdata.ItemTable
	client    *resty.Client
	limiter   *rate.Limiter
	url       string
	localPath string
	log       *logrus.Entry
}

// New creates a price book. Call Refresh before serving lookups.
func New(cfg *config.PriceDBConfig, items *persistence.GormItemRepository, revisions *persistence.GormPriceRevisionRepository, table *refdata.ItemTable, log *logrus.Entry) *Book {
	return &Book{
		prices:    make(map[int]float64),
		items:     items,
		revisions: revisions,
		table:     table,
		client:    resty.New().SetTimeout(remoteTimeout),
		limiter:   rate.NewLimiter(rate.Every(remoteRefreshInterval), 1),
		url:       cfg.URL,
		localPath: cfg.LocalPath,
		log:       log,
	}
}

// Refresh loads prices from the remote endpoint when configured, falling back
// to the local price table. A refresh that changes the cache records a
// revision row with its source.
func (b *Book) Refresh(ctx context.Context) error {
	if b.url != "" && b.limiter.Allow() {
		if err := b.loadRemote(ctx); err != nil {
			b.log.WithError(err).Warn("Remote price fetch failed, falling back to local")
		} else {
			b.recordRevision(ctx, persistence.PriceSourceRemote)
			return nil
		}
	}

	fromFile, err := b.loadLocal(ctx)
	if err != nil {
		return err
	}
	if fromFile {
		b.recordRevision(ctx, persistence.PriceSourceLocal)
	}
	return nil
}

func (b *Book) loadRemote(ctx context.Context) error {
	resp, err := b.client.R().SetContext(ctx).Get(b.url)
	if err != nil {
		return fmt.Errorf("failed to fetch remote prices: %w", err)
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("remote price fetch returned status %d", resp.StatusCode())
	}

	var raw map[string]priceEntry
	if err := json.Unmarshal(resp.Body(), &raw); err != nil {
		return fmt.Errorf("failed to parse remote prices: %w", err)
	}

	prices := decodePrices(raw, b.log)
	b.replace(prices)
	b.log.WithField("items", len(prices)).Info("Loaded item prices from remote")
	return nil
}

// loadLocal reads the local price table. When the file has not changed since
// the last LOCAL revision the cache is hydrated from the item catalogue
// instead and no new revision is recorded; the bool reports whether the file
// itself was read.
func (b *Book) loadLocal(ctx context.Context) (bool, error) {
	info, err := os.Stat(b.localPath)
	if errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("price table not found at %s", b.localPath)
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat price table: %w", err)
	}

	latest, err := b.revisions.LatestBySource(ctx, persistence.PriceSourceLocal)
	if err != nil {
		return false, err
	}
	if latest != nil && !info.ModTime().After(latest.Timestamp) {
		b.log.WithField("revision", latest.Timestamp).Info("Local price file unchanged since last load")
		return false, b.loadFromCatalogue(ctx)
	}

	data, err := os.ReadFile(b.localPath)
	if err != nil {
		return false, fmt.Errorf("failed to read price table: %w", err)
	}
	var raw map[string]priceEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return false, fmt.Errorf("failed to parse price table: %w", err)
	}

	prices := decodePrices(raw, b.log)
	for itemID, price := range prices {
		name, category := b.table.Lookup(itemID)
		if _, err := b.items.UpsertPrice(ctx, itemID, name, category, price); err != nil {
			b.log.WithError(err).WithField("item_id", itemID).Warn("Failed to persist item price")
		}
	}

	b.replace(prices)
	b.log.WithFields(logrus.Fields{"items": len(prices), "modified": info.ModTime()}).
		Info("Loaded item prices from local file")
	return true, nil
}

func (b *Book) loadFromCatalogue(ctx context.Context) error {
	stored, err := b.items.LoadPrices(ctx)
	if err != nil {
		return err
	}

	prices := make(map[int]float64, len(stored))
	for itemID, price := range stored {
		if price > 0 {
			prices[itemID] = price
		}
	}

	b.replace(prices)
	b.log.WithField("items", len(prices)).Info("Loaded item prices from database")
	return nil
}

func (b *Book) replace(prices map[int]float64) {
	b.mu.Lock()
	b.prices = prices
	b.loaded = true
	b.mu.Unlock()
}

func (b *Book) recordRevision(ctx context.Context, source string) {
	b.mu.RLock()
	count := len(b.prices)
	b.mu.RUnlock()

	if err := b.revisions.Record(ctx, source, count); err != nil {
		b.log.WithError(err).Error("Failed to record price revision")
	}
}

// GetPrice returns the price for an item id, or zero when unknown or the book
// has not been loaded yet.
func (b *Book) GetPrice(itemID int) float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.loaded {
		return 0.0
	}
	return b.prices[itemID]
}

// Loaded reports whether any refresh has completed.
func (b *Book) Loaded() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.loaded
}

// AttachBus patches the cache whenever an item is edited through the API. A
// negative price removes the cached entry.
func (b *Book) AttachBus(bus *events.Bus) {
	bus.Subscribe(events.TypeItemDataChanged, "PriceBook", func(event events.Event) {
		changed, ok := event.(events.ItemDataChangedEvent)
		if !ok {
			return
		}

		b.mu.Lock()
		defer b.mu.Unlock()
		if changed.Price >= 0 {
			b.prices[changed.ItemID] = changed.Price
			b.log.WithFields(logrus.Fields{"item_id": changed.ItemID, "price": changed.Price}).
				Info("Updated cached price")
		} else if _, exists := b.prices[changed.ItemID]; exists {
			delete(b.prices, changed.ItemID)
			b.log.WithField("item_id", changed.ItemID).Info("Removed cached price")
		}
	})
}

func decodePrices(raw map[string]priceEntry, log *logrus.Entry) map[int]float64 {
	prices := make(map[int]float64, len(raw))
	for idStr, entry := range raw {
		itemID, err := strconv.Atoi(idStr)
		if err != nil {
			log.WithField("item_id", idStr).Warn("Invalid item id in price table")
			continue
		}
		prices[itemID] = entry.Price
	}
	return prices
}
