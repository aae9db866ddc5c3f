package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/GeorgeTG/oracle/internal/events"
	"github.com/GeorgeTG/oracle/internal/inventory"
	"github.com/GeorgeTG/oracle/internal/pricebook"
)

const snapshotInterval = time.Second

// StatsService tracks farming rates over a session: items and currency per
// hour, per-map currency, and experience gains and losses. It prices
// inventory deltas with the price book and republishes the rolled-up
// counters as STATS_UPDATE events.
type StatsService struct {
	tracker

	bus    *events.Bus
	prices *pricebook.Book
	log    *logrus.Entry

	mu sync.Mutex

	lastSnapshot *inventory.Snapshot
	baselineSet  bool

	itemsTotal   map[int]float64
	itemsPerHour map[int]float64

	currencyTotal          float64
	currencyPerMap         float64
	currencyPerHour        float64
	currencyCurrentPerHour float64
	currencyCurrentRaw     float64
	mapEntryCost           float64

	expGainedTotal float64
	expLostTotal   float64
	expPerHour     float64
	lastExp        int
	lastLevel      int
	expSeen        bool

	mapStartExp   int
	mapStartLevel int
	mapExpGained  float64

	sessionStart time.Time
	mapStart     time.Time
	totalMaps    int
	totalTime    float64

	lastSnapshotAt time.Time
	currentView    string

	now func() time.Time
}

// StatsServiceDescriptor names the service and its dependencies for
// container registration.
var StatsServiceDescriptor = Descriptor{
	Name:    "StatsService",
	Version: "0.1.0",
	Requires: map[string]string{
		"InventoryService": ">=0.1.0",
		"MapService":       ">=0.1.0",
		"SessionService":   ">=0.1.0",
	},
}

// NewStatsService builds the service and subscribes its handlers.
func NewStatsService(bus *events.Bus, prices *pricebook.Book, log *logrus.Entry) *StatsService {
	s := &StatsService{
		bus:          bus,
		prices:       prices,
		log:          log,
		itemsTotal:   make(map[int]float64),
		itemsPerHour: make(map[int]float64),
		now:          time.Now,
	}
	s.attach(bus, StatsServiceDescriptor.Name)
	s.sessionStart = s.now()
	s.mapStart = s.now()

	bus.Subscribe(events.TypeMapStarted, StatsServiceDescriptor.Name, s.onMapStarted)
	bus.Subscribe(events.TypeMapFinished, StatsServiceDescriptor.Name, s.onMapFinished)
	bus.Subscribe(events.TypeGameView, StatsServiceDescriptor.Name, s.onGameView)
	bus.Subscribe(events.TypeItemChange, StatsServiceDescriptor.Name, s.onItemChange)
	bus.Subscribe(events.TypeInventorySnapshot, StatsServiceDescriptor.Name, s.onInventorySnapshot)
	bus.Subscribe(events.TypeInventoryUpdate, StatsServiceDescriptor.Name, s.onInventoryUpdate)
	bus.Subscribe(events.TypeExpUpdate, StatsServiceDescriptor.Name, s.onExpUpdate)
	bus.Subscribe(events.TypeStatsControl, StatsServiceDescriptor.Name, s.onStatsControl)
	bus.Subscribe(events.TypeSessionStarted, StatsServiceDescriptor.Name, s.onSessionStarted)
	bus.Subscribe(events.TypeSessionRestore, StatsServiceDescriptor.Name, s.onSessionRestore)
	return s
}

func (s *StatsService) Descriptor() Descriptor { return StatsServiceDescriptor }

func (s *StatsService) Startup(ctx context.Context) error { return nil }

func (s *StatsService) PostStartup(ctx context.Context) error { return nil }

func (s *StatsService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log.WithFields(logrus.Fields{"maps": s.totalMaps, "time": s.totalTime}).Info("Final session stats")
	return nil
}

// TotalMaps reports the map counter; exposed for the status endpoint.
func (s *StatsService) TotalMaps() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalMaps
}

// ExpLostTotal reports accumulated experience loss from level-down deaths.
func (s *StatsService) ExpLostTotal() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expLostTotal
}

// onMapStarted prices the consumed entry items and charges them against the
// session currency before any drops arrive.
func (s *StatsService) onMapStarted(event events.Event) {
	started, ok := event.(events.MapStartedEvent)
	if !ok {
		return
	}

	entryCost := 0.0
	for _, item := range started.ConsumedItems {
		cost := s.prices.GetPrice(item.ItemID) * float64(item.Quantity)
		entryCost += cost
		s.log.WithFields(logrus.Fields{
			"item_id": item.ItemID, "quantity": item.Quantity, "cost": cost,
		}).Info("Consumed entry item")
	}

	s.mu.Lock()
	s.mapStart = started.Timestamp
	s.mapStartExp = s.lastExp
	s.mapStartLevel = s.lastLevel
	s.mapExpGained = 0
	s.mapEntryCost = entryCost
	s.currencyTotal -= entryCost
	s.currencyCurrentRaw = -entryCost
	s.mu.Unlock()
}

// onMapFinished counts the map, derives its priced summary and publishes it
// as MAP_STATS for the map service to persist.
func (s *StatsService) onMapFinished(event events.Event) {
	finished, ok := event.(events.MapFinishedEvent)
	if !ok {
		return
	}

	// One last snapshot so trailing pickups are not lost to the throttle.
	events.RequestAndWait[events.InventorySnapshotEvent](
		s.bus,
		events.RequestInventoryEvent{Timestamp: s.now()},
		events.TypeInventorySnapshot,
		events.DefaultRequestTimeout,
	)

	s.mu.Lock()
	s.totalMaps++
	s.totalTime += finished.Duration

	switch {
	case s.lastLevel == s.mapStartLevel:
		s.mapExpGained = float64(max(0, s.lastExp-s.mapStartExp))
	case s.lastLevel > s.mapStartLevel:
		s.mapExpGained = float64(s.lastExp)
	default:
		s.mapExpGained = 0
	}

	drops := 0.0
	for itemID, delta := range finished.Changes {
		drops += s.prices.GetPrice(itemID) * float64(delta)
	}
	currencyGained := drops - s.mapEntryCost
	expGained := s.mapExpGained
	s.mu.Unlock()

	s.bus.Publish(events.MapStatsEvent{
		Timestamp:      s.now(),
		Duration:       finished.Duration,
		Changes:        finished.Changes,
		CurrencyGained: currencyGained,
		ExpGained:      expGained,
		Affixes:        finished.Affixes,
	})
	s.publishStats()
}

func (s *StatsService) onGameView(event events.Event) {
	view, ok := event.(events.GameViewEvent)
	if !ok {
		return
	}
	s.mu.Lock()
	s.currentView = view.View
	s.mu.Unlock()
}

// onItemChange requests an inventory snapshot, throttled to one per second.
func (s *StatsService) onItemChange(event events.Event) {
	if _, ok := event.(events.ItemChangeEvent); !ok {
		return
	}

	s.mu.Lock()
	due := s.lastSnapshotAt.IsZero() || s.now().Sub(s.lastSnapshotAt) >= snapshotInterval
	if due {
		s.lastSnapshotAt = s.now()
	}
	s.mu.Unlock()

	if due {
		s.bus.Publish(events.RequestInventoryEvent{Timestamp: s.now()})
	}
}

// onInventorySnapshot diffs consecutive snapshots into priced rates. The
// first snapshot after a database load is baseline only; counting it would
// book every stored item as a drop.
func (s *StatsService) onInventorySnapshot(event events.Event) {
	snap, ok := event.(events.InventorySnapshotEvent)
	if !ok || snap.Snapshot == nil {
		return
	}

	s.mu.Lock()
	if s.lastSnapshot == nil {
		s.lastSnapshot = snap.Snapshot
		s.mu.Unlock()
		return
	}
	if !s.baselineSet {
		s.baselineSet = true
		s.lastSnapshot = snap.Snapshot
		s.mu.Unlock()
		return
	}
	if !strings.Contains(s.currentView, "FightCtrl") {
		s.lastSnapshot = snap.Snapshot
		s.mu.Unlock()
		return
	}

	changes := snap.Snapshot.CompareWith(s.lastSnapshot)
	s.lastSnapshot = snap.Snapshot
	if len(changes) == 0 {
		s.mu.Unlock()
		return
	}

	gained := 0.0
	for itemID, delta := range changes {
		s.itemsTotal[itemID] += float64(delta)
		gained += s.prices.GetPrice(itemID) * float64(delta)
	}
	s.currencyTotal += gained
	s.currencyCurrentRaw += gained

	hours := s.now().Sub(s.sessionStart).Hours()
	if hours > 0 {
		for itemID, total := range s.itemsTotal {
			s.itemsPerHour[itemID] = total / hours
		}
		s.currencyPerHour = s.currencyTotal / hours
	}
	if s.totalMaps > 0 {
		s.currencyPerMap = s.currencyTotal / float64(s.totalMaps)
	}
	s.mu.Unlock()

	s.publishStats()
}

// onInventoryUpdate re-baselines after a database load.
func (s *StatsService) onInventoryUpdate(event events.Event) {
	update, ok := event.(events.InventoryUpdateEvent)
	if !ok || update.Inventory == nil {
		return
	}

	s.mu.Lock()
	s.lastSnapshot = inventory.SnapshotOf(update.Inventory)
	s.baselineSet = true
	s.mu.Unlock()
	s.log.WithField("slots", update.Inventory.Len()).Info("Inventory loaded, new stats baseline")
}

// onExpUpdate books experience movement, splitting gains from losses; a
// level decrease is a death penalty, not a rollover.
func (s *StatsService) onExpUpdate(event events.Event) {
	update, ok := event.(events.ExpUpdateEvent)
	if !ok {
		return
	}

	s.mu.Lock()
	if s.expSeen {
		change := 0
		switch {
		case update.Level > s.lastLevel:
			change = update.Experience
		case update.Level == s.lastLevel:
			change = update.Experience - s.lastExp
		default:
			change = -(s.lastExp - update.Experience)
		}

		if change > 0 {
			s.expGainedTotal += float64(change)
		} else if change < 0 {
			s.expLostTotal += float64(-change)
			s.log.WithField("loss", -change).Warn("Experience lost")
		}

		if hours := s.now().Sub(s.sessionStart).Hours(); hours > 0 {
			s.expPerHour = (s.expGainedTotal - s.expLostTotal) / hours
		}
	}
	s.lastExp = update.Experience
	s.lastLevel = update.Level
	s.expSeen = true
	s.mu.Unlock()
}

func (s *StatsService) onStatsControl(event events.Event) {
	control, ok := event.(events.StatsControlEvent)
	if !ok {
		return
	}
	if control.Action == events.StatsRestart {
		s.restart()
	}
}

// onSessionStarted resets counters so every session begins from zero.
func (s *StatsService) onSessionStarted(event events.Event) {
	if _, ok := event.(events.SessionStartedEvent); !ok {
		return
	}
	s.restart()
}

// onSessionRestore reloads the counters a previous run persisted on its
// session row.
func (s *StatsService) onSessionRestore(event events.Event) {
	restored, ok := event.(events.SessionRestoreEvent)
	if !ok {
		return
	}

	s.mu.Lock()
	s.totalMaps = restored.TotalMaps
	s.totalTime = restored.TotalTime
	s.currencyTotal = restored.CurrencyTotal
	s.currencyPerHour = restored.CurrencyPerHour
	s.currencyPerMap = restored.CurrencyPerMap
	s.expPerHour = restored.ExpPerHour
	s.expGainedTotal = restored.ExpTotal
	s.expLostTotal = 0
	s.sessionStart = restored.StartedAt
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"session_id": restored.SessionID,
		"maps":       restored.TotalMaps,
	}).Info("Restored stats from session")
	s.publishStats()
}

func (s *StatsService) restart() {
	s.mu.Lock()
	s.lastSnapshot = nil
	s.baselineSet = false
	s.lastSnapshotAt = time.Time{}
	s.itemsTotal = make(map[int]float64)
	s.itemsPerHour = make(map[int]float64)
	s.currencyTotal = 0
	s.currencyPerMap = 0
	s.currencyPerHour = 0
	s.currencyCurrentPerHour = 0
	s.currencyCurrentRaw = 0
	s.mapEntryCost = 0
	s.expGainedTotal = 0
	s.expLostTotal = 0
	s.expPerHour = 0
	s.expSeen = false
	s.sessionStart = s.now()
	s.totalMaps = 0
	s.totalTime = 0
	s.mu.Unlock()
	s.log.Info("Stats tracking restarted")

	s.bus.Publish(events.NotificationEvent{
		Timestamp:  s.now(),
		Severity:   events.SeverityInfo,
		Title:      "Stats Reset",
		Content:    "All statistics have been reset. Starting fresh tracking.",
		DurationMS: 3000,
	})
	s.publishStats()
}

func (s *StatsService) publishStats() {
	s.mu.Lock()
	mapDuration := s.now().Sub(s.mapStart).Seconds()
	currentPerHour := 0.0
	if mapDuration > 0 {
		currentPerHour = s.currencyCurrentRaw / (mapDuration / 3600.0)
	}
	s.currencyCurrentPerHour = currentPerHour

	perHour := make(map[int]float64, len(s.itemsPerHour))
	for itemID, rate := range s.itemsPerHour {
		perHour[itemID] = rate
	}

	update := events.StatsUpdateEvent{
		Timestamp:              s.now(),
		TotalMaps:              s.totalMaps,
		TotalTime:              s.totalTime,
		SessionDuration:        s.now().Sub(s.sessionStart).Seconds(),
		ItemsPerHour:           perHour,
		ExpPerHour:             s.expPerHour,
		ExpGainedTotal:         s.expGainedTotal,
		ExpLostTotal:           s.expLostTotal,
		CurrencyPerMap:         s.currencyPerMap,
		CurrencyPerHour:        s.currencyPerHour,
		CurrencyTotal:          s.currencyTotal,
		CurrencyCurrentPerHour: currentPerHour,
		CurrencyCurrentRaw:     s.currencyCurrentRaw,
		MapTimer:               mapDuration,
	}
	s.mu.Unlock()

	s.bus.Publish(update)
}
