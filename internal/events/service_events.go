package events

import (
	"time"

	"github.com/GeorgeTG/oracle/internal/inventory"
	"github.com/GeorgeTG/oracle/internal/parsing/maps"
)

// RequestInventoryEvent asks the inventory service for a snapshot. The reply
// arrives as an InventorySnapshotEvent on the bus.
type RequestInventoryEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

func (RequestInventoryEvent) EventType() Type { return TypeRequestInventory }

// InventorySnapshotEvent carries a point-in-time copy of the bag.
type InventorySnapshotEvent struct {
	Timestamp time.Time           `json:"timestamp"`
	Snapshot  *inventory.Snapshot `json:"snapshot"`
}

func (InventorySnapshotEvent) EventType() Type { return TypeInventorySnapshot }

// InventoryUpdateEvent announces that the live bag state changed. It carries
// the full slot map so UI consumers can re-render without a round trip.
type InventoryUpdateEvent struct {
	Timestamp time.Time            `json:"timestamp"`
	Inventory *inventory.Inventory `json:"inventory"`
}

func (InventoryUpdateEvent) EventType() Type { return TypeInventoryUpdate }

// MapStartedEvent announces a real map run beginning. ConsumedItems are the
// items that left the bag between the pre-entry snapshot and the map start.
type MapStartedEvent struct {
	Timestamp     time.Time        `json:"timestamp"`
	LevelID       int              `json:"level_id"`
	Map           *maps.MapData    `json:"map,omitempty"`
	Affixes       []Affix          `json:"affixes,omitempty"`
	ConsumedItems []inventory.Item `json:"consumed_items,omitempty"`
}

func (MapStartedEvent) EventType() Type { return TypeMapStarted }

// MapFinishedEvent announces a map run ending, with its duration, the
// per-item total deltas accumulated while inside, and any captured affixes.
type MapFinishedEvent struct {
	Timestamp time.Time     `json:"timestamp"`
	LevelID   int           `json:"level_id"`
	Map       *maps.MapData `json:"map,omitempty"`
	Duration  float64       `json:"duration"`
	Changes   map[int]int   `json:"inventory_changes,omitempty"`
	Affixes   []Affix       `json:"affixes,omitempty"`
}

func (MapFinishedEvent) EventType() Type { return TypeMapFinished }

// MapStatsEvent is the priced completion summary the stats service derives
// from a finished map. The map service persists it.
type MapStatsEvent struct {
	Timestamp      time.Time   `json:"timestamp"`
	Duration       float64     `json:"duration"`
	Changes        map[int]int `json:"item_changes,omitempty"`
	CurrencyGained float64     `json:"currency_gained"`
	ExpGained      float64     `json:"exp_gained"`
	Affixes        []Affix     `json:"affixes,omitempty"`
}

func (MapStatsEvent) EventType() Type { return TypeMapStats }

// MapRecord is the serialised view of a stored map completion, shaped like
// the REST representation so UI clients can render it directly.
type MapRecord struct {
	ID             uint      `json:"id"`
	PlayerName     string    `json:"player_name"`
	SessionID      *uint     `json:"session_id"`
	MapID          int       `json:"map_id"`
	MapName        string    `json:"map_name,omitempty"`
	MapDifficulty  string    `json:"map_difficulty,omitempty"`
	StartedAt      time.Time `json:"started_at"`
	CompletedAt    time.Time `json:"completed_at"`
	Duration       float64   `json:"duration"`
	CurrencyGained float64   `json:"currency_gained"`
	ExpGained      float64   `json:"exp_gained"`
	ItemsGained    int       `json:"items_gained"`
}

// MapRecordEvent announces a newly persisted map completion.
type MapRecordEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Record    MapRecord `json:"map_record"`
}

func (MapRecordEvent) EventType() Type { return TypeMapRecord }

// MarketActionKind marks the market window opening or closing.
type MarketActionKind string

const (
	MarketOpen  MarketActionKind = "open"
	MarketClose MarketActionKind = "close"
)

// MarketActionEvent reports the player opening or closing the market view.
type MarketActionEvent struct {
	Timestamp time.Time        `json:"timestamp"`
	Action    MarketActionKind `json:"action"`
}

func (MarketActionEvent) EventType() Type { return TypeMarketAction }

// MarketTransactionEvent is one settled market buy or sell. Quantity is the
// absolute batched amount; Action carries the direction.
type MarketTransactionEvent struct {
	Timestamp     time.Time `json:"timestamp"`
	ItemID        int       `json:"item_id"`
	Name          string    `json:"name,omitempty"`
	Quantity      int       `json:"quantity"`
	Action        string    `json:"action"`
	TransactionID uint      `json:"transaction_id"`
	SessionID     *uint     `json:"session_id"`
}

func (MarketTransactionEvent) EventType() Type { return TypeMarketTransaction }

// StatsUpdateEvent carries the rolling session counters and rates.
type StatsUpdateEvent struct {
	Timestamp              time.Time       `json:"timestamp"`
	TotalMaps              int             `json:"total_maps"`
	TotalTime              float64         `json:"total_time"`
	SessionDuration        float64         `json:"session_duration"`
	ItemsPerHour           map[int]float64 `json:"items_per_hour"`
	ExpPerHour             float64         `json:"exp_per_hour"`
	ExpGainedTotal         float64         `json:"exp_gained_total"`
	ExpLostTotal           float64         `json:"exp_lost_total"`
	CurrencyPerMap         float64         `json:"currency_per_map"`
	CurrencyPerHour        float64         `json:"currency_per_hour"`
	CurrencyTotal          float64         `json:"currency_total"`
	CurrencyCurrentPerHour float64         `json:"currency_current_per_hour"`
	CurrencyCurrentRaw     float64         `json:"currency_current_raw"`
	MapTimer               float64         `json:"map_timer"`
}

func (StatsUpdateEvent) EventType() Type { return TypeStatsUpdate }

// StatsControlAction selects a stats service control operation.
type StatsControlAction string

const StatsRestart StatsControlAction = "restart"

// StatsControlEvent drives the stats service from the HTTP surface.
type StatsControlEvent struct {
	Timestamp time.Time          `json:"timestamp"`
	Action    StatsControlAction `json:"action"`
}

func (StatsControlEvent) EventType() Type { return TypeStatsControl }

// SessionControlAction selects a session lifecycle operation.
type SessionControlAction string

const (
	SessionStart SessionControlAction = "start"
	SessionClose SessionControlAction = "close"
	SessionNext  SessionControlAction = "next"
)

// SessionControlEvent drives the session service. PlayerName, when set,
// overrides the tracked player for START and NEXT.
type SessionControlEvent struct {
	Timestamp  time.Time            `json:"timestamp"`
	Action     SessionControlAction `json:"action"`
	PlayerName string               `json:"player_name,omitempty"`
}

func (SessionControlEvent) EventType() Type { return TypeSessionControl }

// SessionStartedEvent announces a new active session.
type SessionStartedEvent struct {
	Timestamp  time.Time `json:"timestamp"`
	SessionID  uint      `json:"session_id"`
	PlayerName string    `json:"player_name"`
	StartedAt  time.Time `json:"started_at"`
}

func (SessionStartedEvent) EventType() Type { return TypeSessionStarted }

// SessionFinishedEvent announces a session closing with its final counters.
type SessionFinishedEvent struct {
	Timestamp          time.Time `json:"timestamp"`
	SessionID          uint      `json:"session_id"`
	PlayerName         string    `json:"player_name"`
	StartedAt          time.Time `json:"started_at"`
	EndedAt            time.Time `json:"ended_at"`
	TotalMaps          int       `json:"total_maps"`
	TotalCurrencyDelta float64   `json:"total_currency_delta"`
	CurrencyPerHour    float64   `json:"currency_per_hour"`
	CurrencyPerMap     float64   `json:"currency_per_map"`
}

func (SessionFinishedEvent) EventType() Type { return TypeSessionFinished }

// SessionRestoreEvent replays a persisted active session's counters into the
// other services after a daemon restart.
type SessionRestoreEvent struct {
	Timestamp       time.Time `json:"timestamp"`
	SessionID       uint      `json:"session_id"`
	PlayerName      string    `json:"player_name"`
	StartedAt       time.Time `json:"started_at"`
	TotalMaps       int       `json:"total_maps"`
	TotalTime       float64   `json:"total_time"`
	CurrencyTotal   float64   `json:"currency_total"`
	CurrencyPerHour float64   `json:"currency_per_hour"`
	CurrencyPerMap  float64   `json:"currency_per_map"`
	ExpTotal        float64   `json:"exp_total"`
	ExpPerHour      float64   `json:"exp_per_hour"`
}

func (SessionRestoreEvent) EventType() Type { return TypeSessionRestore }

// RequestSessionEvent asks the session service for the active session.
type RequestSessionEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

func (RequestSessionEvent) EventType() Type { return TypeRequestSession }

// SessionSnapshotEvent is the reply to RequestSessionEvent. SessionID zero
// means no session is active.
type SessionSnapshotEvent struct {
	Timestamp  time.Time `json:"timestamp"`
	SessionID  uint      `json:"session_id"`
	PlayerName string    `json:"player_name,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	Active     bool      `json:"is_active"`
}

func (SessionSnapshotEvent) EventType() Type { return TypeSessionSnapshot }

// PlayerChangedEvent announces the tracked player identity changing.
// OldPlayer is empty for the first player seen.
type PlayerChangedEvent struct {
	Timestamp time.Time `json:"timestamp"`
	OldPlayer string    `json:"old_player,omitempty"`
	NewPlayer string    `json:"new_player"`
}

func (PlayerChangedEvent) EventType() Type { return TypePlayerChanged }

// NotificationSeverity grades a user-facing notification.
type NotificationSeverity string

const (
	SeverityInfo    NotificationSeverity = "INFO"
	SeveritySuccess NotificationSeverity = "SUCCESS"
	SeverityWarning NotificationSeverity = "WARNING"
	SeverityError   NotificationSeverity = "ERROR"
)

// NotificationEvent is a human-readable message for connected UIs.
// DurationMS hints how long the client should display it.
type NotificationEvent struct {
	Timestamp  time.Time            `json:"timestamp"`
	Severity   NotificationSeverity `json:"severity"`
	Title      string               `json:"title"`
	Content    string               `json:"content"`
	DurationMS int                  `json:"duration,omitempty"`
}

func (NotificationEvent) EventType() Type { return TypeNotification }

// ItemDataChangedEvent announces an administrative edit to one catalogue
// item. A negative price means the price was removed.
type ItemDataChangedEvent struct {
	Timestamp time.Time `json:"timestamp"`
	ItemID    int       `json:"item_id"`
	Name      string    `json:"name,omitempty"`
	Category  string    `json:"category,omitempty"`
	Price     float64   `json:"price"`
}

func (ItemDataChangedEvent) EventType() Type { return TypeItemDataChanged }

// LevelProgressEvent reports experience progress toward the next level.
type LevelProgressEvent struct {
	Timestamp  time.Time `json:"timestamp"`
	Level      int       `json:"level"`
	Current    int       `json:"current"`
	Remaining  int       `json:"remaining"`
	LevelTotal int       `json:"level_total"`
	Percentage float64   `json:"percentage"`
}

func (LevelProgressEvent) EventType() Type { return TypeLevelProgress }

// WebSocketConnectedEvent announces a UI client attaching to /ws.
type WebSocketConnectedEvent struct {
	Timestamp time.Time `json:"timestamp"`
	ClientID  string    `json:"client_id"`
}

func (WebSocketConnectedEvent) EventType() Type { return TypeWebSocketConnected }

// WebSocketDisconnectedEvent announces a UI client detaching.
type WebSocketDisconnectedEvent struct {
	Timestamp time.Time `json:"timestamp"`
	ClientID  string    `json:"client_id"`
}

func (WebSocketDisconnectedEvent) EventType() Type { return TypeWebSocketDisconnected }
