package services

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/GeorgeTG/oracle/internal/adapters/persistence"
	"github.com/GeorgeTG/oracle/internal/events"
	"github.com/GeorgeTG/oracle/internal/inventory"
	"github.com/GeorgeTG/oracle/internal/parsing/maps"
	"github.com/GeorgeTG/oracle/internal/pricebook"
	"github.com/GeorgeTG/oracle/internal/refdata"
)

// MapState is the map service FSM state.
type MapState string

const (
	MapIdle    MapState = "idle"
	MapFarming MapState = "farming"
	// MapPaused is reserved: no current parser drives a transition into it.
	MapPaused MapState = "paused"
)

// Real maps have level ids of at least 1000; lower ids are hubs and towns.
const hubLevelThreshold = 1000

var htmlTagRe = regexp.MustCompile(`<[^>]+>`)

// MapService follows the player in and out of maps. A run starts on an
// enter-level into a real map and ends on exit or on returning to a hub; the
// service measures duration, entry costs and per-item loot deltas, and
// persists the completed run when the stats service reports its summary.
type MapService struct {
	tracker

	bus         *events.Bus
	mapTable    *maps.Table
	itemTable   *refdata.ItemTable
	prices      *pricebook.Book
	players     *persistence.GormPlayerRepository
	items       *persistence.GormItemRepository
	completions *persistence.GormMapCompletionRepository
	affixRepo   *persistence.GormAffixRepository
	log         *logrus.Entry

	mu            sync.Mutex
	state         MapState
	currentMapID  int
	finishedMapID int
	currentMap    *maps.MapData
	startTime     time.Time
	startSnap     *inventory.Snapshot
	preEnter      *inventory.Snapshot
	consumed      []inventory.Item
	affixes       []events.Affix
	affixesSet    bool

	now func() time.Time
}

// MapServiceDescriptor names the service and its dependency on the
// inventory service for container registration.
var MapServiceDescriptor = Descriptor{
	Name:    "MapService",
	Version: "0.1.0",
	Requires: map[string]string{
		"InventoryService": ">=0.1.0",
	},
}

// NewMapService builds the service and subscribes its handlers.
func NewMapService(bus *events.Bus, mapTable *maps.Table, itemTable *refdata.ItemTable, prices *pricebook.Book, players *persistence.GormPlayerRepository, items *persistence.GormItemRepository, completions *persistence.GormMapCompletionRepository, affixRepo *persistence.GormAffixRepository, log *logrus.Entry) *MapService {
	s := &MapService{
		bus:         bus,
		mapTable:    mapTable,
		itemTable:   itemTable,
		prices:      prices,
		players:     players,
		items:       items,
		completions: completions,
		affixRepo:   affixRepo,
		log:         log,
		state:       MapIdle,
		now:         time.Now,
	}
	s.attach(bus, MapServiceDescriptor.Name)

	bus.Subscribe(events.TypeEnterLevel, MapServiceDescriptor.Name, s.onEnterLevel)
	bus.Subscribe(events.TypeExitLevel, MapServiceDescriptor.Name, s.onExitLevel)
	bus.Subscribe(events.TypeGameView, MapServiceDescriptor.Name, s.onGameView)
	bus.Subscribe(events.TypeStageAffix, MapServiceDescriptor.Name, s.onStageAffix)
	bus.Subscribe(events.TypeInventoryUpdate, MapServiceDescriptor.Name, s.onInventoryUpdate)
	bus.Subscribe(events.TypeMapStats, MapServiceDescriptor.Name, s.onMapStats)
	return s
}

func (s *MapService) Descriptor() Descriptor { return MapServiceDescriptor }

func (s *MapService) Startup(ctx context.Context) error { return nil }

func (s *MapService) PostStartup(ctx context.Context) error { return nil }

func (s *MapService) Shutdown(ctx context.Context) error { return nil }

// State reports the FSM state; exposed for the status endpoint.
func (s *MapService) State() MapState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// onEnterLevel applies the hub/zone guardrails: real maps start a run, hub
// levels end one, and a re-entered level is noise.
func (s *MapService) onEnterLevel(event events.Event) {
	enter, ok := event.(events.EnterLevelEvent)
	if !ok {
		return
	}

	s.mu.Lock()
	currentID := s.currentMapID
	s.mu.Unlock()

	switch {
	case currentID == 0, currentID < hubLevelThreshold && enter.LevelID >= hubLevelThreshold:
		s.startMap(enter)
	case currentID == enter.LevelID:
		s.log.WithField("level_id", enter.LevelID).Debug("Re-entered current level")
	case enter.LevelID < hubLevelThreshold:
		s.endMap()
	}
}

func (s *MapService) onExitLevel(event events.Event) {
	if _, ok := event.(events.ExitLevelEvent); !ok {
		return
	}

	s.mu.Lock()
	farming := s.state == MapFarming
	s.mu.Unlock()
	if farming {
		s.endMap()
	}
}

// onGameView captures the pre-entry inventory baseline when the map device
// UI opens; the next map start measures entry costs against it.
func (s *MapService) onGameView(event events.Event) {
	view, ok := event.(events.GameViewEvent)
	if !ok || !strings.HasSuffix(view.View, "MysteryAreaCtrl") {
		return
	}

	snapshot := s.requestSnapshot()
	s.mu.Lock()
	s.preEnter = snapshot
	s.mu.Unlock()
	if snapshot != nil {
		s.log.WithField("slots", snapshot.Data.Len()).Debug("Captured pre-enter inventory snapshot")
	}
}

// onStageAffix keeps the first affix batch of a run; repeats are duplicates
// from area reloads.
func (s *MapService) onStageAffix(event events.Event) {
	affix, ok := event.(events.StageAffixEvent)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.affixesSet {
		s.log.Debug("Ignoring repeated affix batch")
		return
	}
	s.affixes = affix.Affixes
	s.affixesSet = true
	s.log.WithField("count", len(affix.Affixes)).Info("Captured map affixes")
}

// onInventoryUpdate adopts a database-loaded inventory as the run baseline.
func (s *MapService) onInventoryUpdate(event events.Event) {
	update, ok := event.(events.InventoryUpdateEvent)
	if !ok || update.Inventory == nil {
		return
	}

	s.mu.Lock()
	s.startSnap = inventory.SnapshotOf(update.Inventory)
	s.mu.Unlock()
}

func (s *MapService) startMap(enter events.EnterLevelEvent) {
	mapData := enter.Map
	if mapData == nil {
		mapData = s.mapTable.Lookup(enter.LevelID)
	}

	snapshot := s.requestSnapshot()

	s.mu.Lock()
	s.state = MapFarming
	s.currentMapID = enter.LevelID
	s.currentMap = mapData
	s.startTime = s.now()
	s.affixes = nil
	s.affixesSet = false
	if snapshot != nil {
		s.startSnap = snapshot
	}
	s.consumed = s.consumedSinceLocked()
	started := events.MapStartedEvent{
		Timestamp:     s.startTime,
		LevelID:       enter.LevelID,
		Map:           mapData,
		ConsumedItems: s.consumed,
	}
	s.mu.Unlock()

	s.bus.Publish(started)
	s.log.WithField("level_id", enter.LevelID).Info("Map started")
}

func (s *MapService) endMap() {
	snapshot := s.requestSnapshot()

	s.mu.Lock()
	endTime := s.now()
	duration := 0.0
	if !s.startTime.IsZero() {
		duration = endTime.Sub(s.startTime).Seconds()
	}

	changes := map[int]int{}
	if snapshot != nil && s.startSnap != nil {
		changes = snapshot.CompareWith(s.startSnap)
	}

	finished := events.MapFinishedEvent{
		Timestamp: endTime,
		LevelID:   s.currentMapID,
		Map:       s.currentMap,
		Duration:  duration,
		Changes:   changes,
		Affixes:   s.affixes,
	}

	s.state = MapIdle
	s.finishedMapID = s.currentMapID
	s.currentMapID = 0
	s.preEnter = nil
	s.mu.Unlock()

	s.bus.Publish(finished)
	s.log.WithField("duration", duration).Info("Map finished")
}

// consumedSinceLocked diffs the pre-entry snapshot against the map-start
// snapshot; items that disappeared in between were spent to open the map.
// Caller holds s.mu.
func (s *MapService) consumedSinceLocked() []inventory.Item {
	if s.preEnter == nil || s.startSnap == nil {
		return nil
	}

	var consumed []inventory.Item
	for itemID, delta := range s.startSnap.CompareWith(s.preEnter) {
		if delta >= 0 {
			continue
		}
		name, category := s.itemTable.Lookup(itemID)
		consumed = append(consumed, inventory.Item{
			ItemID:   itemID,
			Quantity: -delta,
			Name:     name,
			Category: category,
		})
	}
	return consumed
}

// onMapStats persists the priced run summary: the completion row, one item
// row per non-zero delta, consumed entry items, and the affix links.
func (s *MapService) onMapStats(event events.Event) {
	stats, ok := event.(events.MapStatsEvent)
	if !ok {
		return
	}
	ctx := context.Background()

	playerName := s.playerName()
	if playerName == "" {
		s.log.Debug("Ignoring map stats, no player")
		return
	}
	player, err := s.players.GetOrCreate(ctx, playerName)
	if err != nil {
		s.log.WithError(err).Warn("Failed to resolve player for map completion")
		return
	}

	sessionID := s.activeSessionID()

	s.mu.Lock()
	mapData := s.currentMap
	mapID := s.finishedMapID
	startTime := s.startTime
	consumed := s.consumed
	affixes := s.affixes
	s.currentMap = nil
	s.finishedMapID = 0
	s.startTime = time.Time{}
	s.consumed = nil
	s.affixes = nil
	s.affixesSet = false
	s.mu.Unlock()

	itemsGained := 0
	for _, delta := range stats.Changes {
		if delta > 0 {
			itemsGained++
		}
	}

	completion := &persistence.MapCompletionModel{
		PlayerID:       player.ID,
		SessionID:      sessionID,
		MapID:          mapID,
		StartedAt:      startTime,
		CompletedAt:    stats.Timestamp,
		Duration:       stats.Duration,
		CurrencyGained: stats.CurrencyGained,
		ExpGained:      stats.ExpGained,
		ItemsGained:    itemsGained,
	}
	if startTime.IsZero() {
		completion.StartedAt = s.now()
	}
	if mapData != nil {
		completion.MapName = &mapData.Name
		difficulty := string(mapData.Difficulty)
		completion.MapDifficulty = &difficulty
	}

	if err := s.completions.Create(ctx, completion); err != nil {
		s.log.WithError(err).Error("Failed to save map completion")
		return
	}

	s.saveAffixes(ctx, completion.ID, affixes)
	s.saveItemChanges(ctx, completion.ID, stats.Changes, false)

	if len(consumed) > 0 {
		spent := make(map[int]int, len(consumed))
		for _, item := range consumed {
			spent[item.ItemID] = -item.Quantity
		}
		s.saveItemChanges(ctx, completion.ID, spent, true)
	}

	record := events.MapRecord{
		ID:             completion.ID,
		PlayerName:     player.Name,
		SessionID:      sessionID,
		MapID:          completion.MapID,
		StartedAt:      completion.StartedAt,
		CompletedAt:    completion.CompletedAt,
		Duration:       completion.Duration,
		CurrencyGained: completion.CurrencyGained,
		ExpGained:      completion.ExpGained,
		ItemsGained:    completion.ItemsGained,
	}
	if completion.MapName != nil {
		record.MapName = *completion.MapName
	}
	if completion.MapDifficulty != nil {
		record.MapDifficulty = *completion.MapDifficulty
	}
	s.bus.Publish(events.MapRecordEvent{Timestamp: s.now(), Record: record})

	s.log.WithFields(logrus.Fields{
		"map_id":   completion.MapID,
		"duration": completion.Duration,
		"currency": completion.CurrencyGained,
		"items":    itemsGained,
	}).Info("Saved map completion")
}

func (s *MapService) saveAffixes(ctx context.Context, completionID uint, affixes []events.Affix) {
	for _, affix := range affixes {
		description := htmlTagRe.ReplaceAllString(affix.Description, "")
		row, err := s.affixRepo.Upsert(ctx, affix.AffixID, description)
		if err != nil {
			s.log.WithError(err).WithField("affix_id", affix.AffixID).Warn("Failed to save affix")
			continue
		}
		if err := s.affixRepo.Link(ctx, completionID, row.ID); err != nil {
			s.log.WithError(err).WithField("affix_id", affix.AffixID).Warn("Failed to link affix")
		}
	}
}

func (s *MapService) saveItemChanges(ctx context.Context, completionID uint, changes map[int]int, consumed bool) {
	for itemID, delta := range changes {
		if delta == 0 {
			continue
		}

		name, category := s.itemTable.Lookup(itemID)
		item, err := s.items.GetOrCreate(ctx, itemID, name, category)
		if err != nil {
			s.log.WithError(err).WithField("item_id", itemID).Warn("Failed to resolve item")
			continue
		}

		row := &persistence.MapCompletionItemModel{
			MapCompletionID: completionID,
			ItemID:          item.ID,
			Delta:           delta,
			TotalPrice:      s.prices.GetPrice(itemID) * float64(delta),
			Consumed:        consumed,
		}
		if err := s.completions.AddItem(ctx, row); err != nil {
			s.log.WithError(err).WithField("item_id", itemID).Warn("Failed to save completion item")
		}
	}
}

// requestSnapshot fetches the live inventory over the bus, nil on timeout.
func (s *MapService) requestSnapshot() *inventory.Snapshot {
	reply, ok := events.RequestAndWait[events.InventorySnapshotEvent](
		s.bus,
		events.RequestInventoryEvent{Timestamp: s.now()},
		events.TypeInventorySnapshot,
		events.DefaultRequestTimeout,
	)
	if !ok {
		return nil
	}
	return reply.Snapshot
}

// activeSessionID asks the session service for the active session, nil when
// none is active or the request times out.
func (s *MapService) activeSessionID() *uint {
	reply, ok := events.RequestAndWait[events.SessionSnapshotEvent](
		s.bus,
		events.RequestSessionEvent{Timestamp: s.now()},
		events.TypeSessionSnapshot,
		events.DefaultRequestTimeout,
	)
	if !ok || !reply.Active || reply.SessionID == 0 {
		return nil
	}
	id := reply.SessionID
	return &id
}
