package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/GeorgeTG/oracle/internal/adapters/persistence"
	"github.com/GeorgeTG/oracle/internal/events"
	"github.com/GeorgeTG/oracle/internal/inventory"
)

// marketBatchWindow is how long a pending transaction may sit before a
// later game view change flushes it.
const marketBatchWindow = time.Second

// MarketService watches for the auction house view and turns inventory
// deltas observed while it is open into market transactions. Consecutive
// changes of the same item batch into one transaction; the batch settles
// when a different item moves, the batch goes stale, or the market closes.
type MarketService struct {
	tracker

	bus    *events.Bus
	items  *persistence.GormItemRepository
	market *persistence.GormMarketTransactionRepository
	log    *logrus.Entry

	mu         sync.Mutex
	marketOpen bool
	live       *inventory.Inventory
	pendingQty int
	lastChange *events.ItemChangeEvent

	now func() time.Time
}

// MarketServiceDescriptor names the service for container registration.
var MarketServiceDescriptor = Descriptor{
	Name:    "MarketService",
	Version: "0.1.0",
	Requires: map[string]string{
		"InventoryService": ">=0.1.0",
	},
}

// NewMarketService builds the service and subscribes its handlers.
func NewMarketService(bus *events.Bus, items *persistence.GormItemRepository, market *persistence.GormMarketTransactionRepository, log *logrus.Entry) *MarketService {
	s := &MarketService{
		bus:    bus,
		items:  items,
		market: market,
		log:    log,
		now:    time.Now,
	}
	s.attach(bus, MarketServiceDescriptor.Name)

	bus.Subscribe(events.TypeGameView, MarketServiceDescriptor.Name, s.onGameView)
	bus.Subscribe(events.TypeItemChange, MarketServiceDescriptor.Name, s.onItemChange)
	return s
}

func (s *MarketService) Descriptor() Descriptor { return MarketServiceDescriptor }

func (s *MarketService) Startup(ctx context.Context) error { return nil }

func (s *MarketService) PostStartup(ctx context.Context) error { return nil }

func (s *MarketService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.marketOpen = false
	s.mu.Unlock()
	return nil
}

func (s *MarketService) onGameView(event events.Event) {
	view, ok := event.(events.GameViewEvent)
	if !ok {
		return
	}
	// Confirmation dialogs overlay the market without closing it.
	if strings.Contains(view.View, "Confirm") {
		return
	}
	ctx := context.Background()

	if strings.Contains(view.View, "AuctionHouse") {
		s.mu.Lock()
		open := s.marketOpen
		s.mu.Unlock()

		if !open {
			s.openMarket(ctx)
			return
		}

		// Still in the market; settle a batch that has gone stale.
		s.mu.Lock()
		last := s.lastChange
		qty := s.pendingQty
		stale := last != nil && qty != 0 && s.now().Sub(last.Timestamp) > marketBatchWindow
		if stale {
			s.pendingQty = 0
		}
		s.mu.Unlock()

		if stale {
			s.saveTransaction(ctx, last, qty)
		}
		return
	}

	s.mu.Lock()
	wasOpen := s.marketOpen
	s.mu.Unlock()
	if wasOpen {
		s.closeMarket(ctx)
	}
}

func (s *MarketService) openMarket(ctx context.Context) {
	snapshot, ok := events.RequestAndWait[events.InventorySnapshotEvent](
		s.bus,
		events.RequestInventoryEvent{Timestamp: s.now()},
		events.TypeInventorySnapshot,
		events.DefaultRequestTimeout,
	)
	if !ok {
		s.log.Warn("No inventory snapshot, cannot track market activity")
		return
	}

	s.mu.Lock()
	s.marketOpen = true
	s.live = snapshot.Snapshot.Data.Copy()
	s.pendingQty = 0
	s.lastChange = nil
	s.mu.Unlock()

	s.log.Info("Market opened")
	s.bus.Publish(events.MarketActionEvent{Timestamp: s.now(), Action: events.MarketOpen})
}

func (s *MarketService) closeMarket(ctx context.Context) {
	s.mu.Lock()
	last := s.lastChange
	qty := s.pendingQty
	s.marketOpen = false
	s.live = nil
	s.pendingQty = 0
	s.lastChange = nil
	s.mu.Unlock()

	if last != nil && qty != 0 {
		s.saveTransaction(ctx, last, qty)
	}

	s.log.Info("Market closed")
	s.bus.Publish(events.MarketActionEvent{Timestamp: s.now(), Action: events.MarketClose})
}

// onItemChange folds inventory deltas observed while the market is open
// into the current batch.
func (s *MarketService) onItemChange(event events.Event) {
	change, ok := event.(events.ItemChangeEvent)
	if !ok {
		return
	}
	ctx := context.Background()

	s.mu.Lock()
	if !s.marketOpen || s.live == nil {
		s.mu.Unlock()
		return
	}

	// The delta is per item id, not per slot: moving a stack between
	// slots nets to zero and is skipped.
	delta := s.live.ChangeItem(change.Page, change.Slot, change.ItemID, change.Amount, change.Name, change.Category)
	if delta == 0 {
		s.mu.Unlock()
		s.log.WithField("item_id", change.ItemID).Debug("No quantity change, skipping")
		return
	}

	var flushLast *events.ItemChangeEvent
	var flushQty int
	if s.lastChange != nil && s.lastChange.ItemID == change.ItemID {
		s.pendingQty += delta
	} else {
		if s.lastChange != nil && s.pendingQty != 0 {
			flushLast = s.lastChange
			flushQty = s.pendingQty
		}
		s.pendingQty = delta
	}
	s.lastChange = &change
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"item_id": change.ItemID, "name": change.Name, "delta": delta,
	}).Info("Market activity")

	if flushLast != nil {
		s.saveTransaction(ctx, flushLast, flushQty)
	}
}

// saveTransaction persists one settled batch and announces it.
func (s *MarketService) saveTransaction(ctx context.Context, change *events.ItemChangeEvent, quantity int) {
	action := persistence.MarketActionGained
	if quantity < 0 {
		action = persistence.MarketActionLost
		quantity = -quantity
	}

	item, err := s.items.GetOrCreate(ctx, change.ItemID, change.Name, change.Category)
	if err != nil {
		s.log.WithError(err).WithField("item_id", change.ItemID).Error("Failed to resolve item for transaction")
		return
	}

	var sessionID *uint
	if id := s.currentSessionID(); id != 0 {
		sessionID = &id
	}

	tx := &persistence.MarketTransactionModel{
		SessionID: sessionID,
		Timestamp: s.now(),
		ItemID:    item.ID,
		Quantity:  quantity,
		Action:    action,
	}
	if err := s.market.Create(ctx, tx); err != nil {
		s.log.WithError(err).Error("Failed to save market transaction")
		return
	}

	s.bus.Publish(events.MarketTransactionEvent{
		Timestamp:     s.now(),
		ItemID:        change.ItemID,
		Name:          change.Name,
		Quantity:      quantity,
		Action:        action,
		TransactionID: tx.ID,
		SessionID:     sessionID,
	})
	s.log.WithFields(logrus.Fields{
		"transaction_id": tx.ID, "action": action, "quantity": quantity,
	}).Debug("Saved market transaction")
}
