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

// InventoryService maintains the live in-memory bag and persists it to
// storage. Slot changes are flushed in batches: a dirty set accumulates
// between flushes, gated by the configured update interval.
type InventoryService struct {
	tracker

	bus     *events.Bus
	players *persistence.GormPlayerRepository
	items   *persistence.GormItemRepository
	slots   *persistence.GormInventoryRepository
	log     *logrus.Entry

	mu        sync.Mutex
	inv       *inventory.Inventory
	dirty     map[inventory.SlotKey]struct{}
	lastFlush time.Time

	interval time.Duration
	now      func() time.Time
}

// InventoryServiceDescriptor names the service for container registration.
var InventoryServiceDescriptor = Descriptor{
	Name:    "InventoryService",
	Version: "0.1.0",
}

// NewInventoryService builds the service and subscribes its handlers.
func NewInventoryService(bus *events.Bus, players *persistence.GormPlayerRepository, items *persistence.GormItemRepository, slots *persistence.GormInventoryRepository, interval time.Duration, log *logrus.Entry) *InventoryService {
	s := &InventoryService{
		bus:      bus,
		players:  players,
		items:    items,
		slots:    slots,
		log:      log,
		inv:      inventory.New(),
		dirty:    make(map[inventory.SlotKey]struct{}),
		interval: interval,
		now:      time.Now,
	}
	s.attach(bus, InventoryServiceDescriptor.Name)
	s.lastFlush = s.now()

	bus.Subscribe(events.TypeItemChange, InventoryServiceDescriptor.Name, s.onItemChange)
	bus.Subscribe(events.TypeBagModify, InventoryServiceDescriptor.Name, s.onBagModify)
	bus.Subscribe(events.TypeGameView, InventoryServiceDescriptor.Name, s.onGameView)
	bus.Subscribe(events.TypeRequestInventory, InventoryServiceDescriptor.Name, s.onRequestInventory)
	bus.Subscribe(events.TypePlayerChanged, InventoryServiceDescriptor.Name, s.onPlayerChanged)
	bus.Subscribe(events.TypeSessionRestore, InventoryServiceDescriptor.Name, s.onSessionRestore)
	return s
}

func (s *InventoryService) Descriptor() Descriptor { return InventoryServiceDescriptor }

func (s *InventoryService) Startup(ctx context.Context) error { return nil }

func (s *InventoryService) PostStartup(ctx context.Context) error { return nil }

// Shutdown flushes whatever is still dirty so no slot change is lost.
func (s *InventoryService) Shutdown(ctx context.Context) error {
	s.Flush(ctx)
	return nil
}

func (s *InventoryService) onItemChange(event events.Event) {
	change, ok := event.(events.ItemChangeEvent)
	if !ok {
		return
	}
	s.applyChange(change.Page, change.Slot, change.ItemID, change.Amount, change.Name, change.Category)
}

func (s *InventoryService) onBagModify(event events.Event) {
	modify, ok := event.(events.BagModifyEvent)
	if !ok {
		return
	}
	s.applyChange(modify.Page, modify.Slot, modify.ItemID, modify.Quantity, modify.Name, modify.Category)
}

func (s *InventoryService) applyChange(page, slot, itemID, quantity int, name, category string) {
	s.mu.Lock()
	s.inv.ChangeItem(page, slot, itemID, quantity, name, category)
	s.dirty[inventory.SlotKey{Page: page, Slot: slot}] = struct{}{}
	due := s.now().Sub(s.lastFlush) >= s.interval
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"page": page, "slot": slot, "item_id": itemID, "quantity": quantity,
	}).Debug("Updated inventory slot")

	if due {
		s.Flush(context.Background())
	}
}

// onGameView forces a flush when combat starts: menus are closed and the bag
// has settled.
func (s *InventoryService) onGameView(event events.Event) {
	view, ok := event.(events.GameViewEvent)
	if !ok {
		return
	}
	if strings.Contains(view.View, "FightCtrl") {
		s.Flush(context.Background())
	}
}

func (s *InventoryService) onRequestInventory(event events.Event) {
	if _, ok := event.(events.RequestInventoryEvent); !ok {
		return
	}

	s.mu.Lock()
	snapshot := inventory.SnapshotOf(s.inv)
	s.mu.Unlock()

	s.bus.Publish(events.InventorySnapshotEvent{
		Timestamp: s.now(),
		Snapshot:  snapshot,
	})
}

func (s *InventoryService) onPlayerChanged(event events.Event) {
	changed, ok := event.(events.PlayerChangedEvent)
	if !ok {
		return
	}
	s.log.WithField("player", changed.NewPlayer).Info("Player changed, loading inventory")
	s.loadAndAnnounce(context.Background(), changed.NewPlayer)
}

func (s *InventoryService) onSessionRestore(event events.Event) {
	restored, ok := event.(events.SessionRestoreEvent)
	if !ok {
		return
	}
	s.log.WithField("player", restored.PlayerName).Info("Session restored, loading inventory")
	s.loadAndAnnounce(context.Background(), restored.PlayerName)
}

func (s *InventoryService) loadAndAnnounce(ctx context.Context, playerName string) {
	if err := s.Load(ctx, playerName); err != nil {
		s.log.WithError(err).WithField("player", playerName).Warn("Failed to load inventory")
		return
	}

	s.mu.Lock()
	full := s.inv.Copy()
	s.mu.Unlock()

	s.bus.Publish(events.InventoryUpdateEvent{
		Timestamp: s.now(),
		Inventory: full,
	})
}

// Load replaces the in-memory bag with the player's persisted inventory.
func (s *InventoryService) Load(ctx context.Context, playerName string) error {
	player, err := s.players.GetOrCreate(ctx, playerName)
	if err != nil {
		return err
	}

	rows, err := s.slots.LoadForPlayer(ctx, player.ID)
	if err != nil {
		return err
	}

	loaded := inventory.New()
	for _, row := range rows {
		if row.Item == nil {
			continue
		}
		name, category := "", ""
		if row.Item.Name != nil {
			name = *row.Item.Name
		}
		if row.Item.Category != nil {
			category = *row.Item.Category
		}
		loaded.ChangeItem(row.Page, row.Slot, row.Item.ItemID, row.Quantity, name, category)
	}

	s.mu.Lock()
	s.inv = loaded
	s.dirty = make(map[inventory.SlotKey]struct{})
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{"player": playerName, "slots": loaded.Len()}).Info("Loaded inventory")
	return nil
}

// Flush writes every dirty slot to storage. The dirty set is copied and
// cleared atomically; a slot absent from the bag deletes its row.
func (s *InventoryService) Flush(ctx context.Context) {
	playerName := s.playerName()
	if playerName == "" {
		s.log.Debug("Skipping inventory flush, no tracked player")
		return
	}

	player, err := s.players.GetOrCreate(ctx, playerName)
	if err != nil {
		s.log.WithError(err).Warn("Cannot flush inventory")
		return
	}

	s.mu.Lock()
	if len(s.dirty) == 0 {
		s.lastFlush = s.now()
		s.mu.Unlock()
		return
	}
	dirty := make(map[inventory.SlotKey]*inventory.Item, len(s.dirty))
	for key := range s.dirty {
		if item, occupied := s.inv.Slots[key]; occupied {
			dirty[key] = &item
		} else {
			dirty[key] = nil
		}
	}
	s.dirty = make(map[inventory.SlotKey]struct{})
	s.lastFlush = s.now()
	s.mu.Unlock()

	for key, item := range dirty {
		if item == nil {
			if err := s.slots.DeleteSlot(ctx, player.ID, key.Page, key.Slot); err != nil {
				s.log.WithError(err).Warn("Failed to delete inventory slot")
			}
			continue
		}

		catalogue, err := s.items.GetOrCreate(ctx, item.ItemID, item.Name, item.Category)
		if err != nil {
			s.log.WithError(err).WithField("item_id", item.ItemID).Warn("Failed to resolve item")
			continue
		}
		if err := s.slots.UpsertSlot(ctx, player.ID, catalogue.ID, key.Page, key.Slot, item.Quantity); err != nil {
			s.log.WithError(err).Warn("Failed to persist inventory slot")
		}
	}

	s.log.WithField("slots", len(dirty)).Debug("Flushed inventory changes")
}
