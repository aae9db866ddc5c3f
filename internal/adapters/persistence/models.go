package persistence

import (
	"time"
)

// Price revision sources.
const (
	PriceSourceLocal  = "LOCAL"
	PriceSourceRemote = "REMOTE"
)

// Market transaction actions.
const (
	MarketActionGained = "gained"
	MarketActionLost   = "lost"
)

// PlayerModel represents the players table. One row per distinct character
// name seen in the log.
type PlayerModel struct {
	ID         uint      `gorm:"column:id;primaryKey;autoIncrement"`
	Name       string    `gorm:"column:name;unique;not null"`
	Level      int       `gorm:"column:level;default:1"`
	Experience int       `gorm:"column:experience;default:0"`
	LastSeen   time.Time `gorm:"column:last_seen"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

func (PlayerModel) TableName() string {
	return "players"
}

// ItemModel represents the items catalogue. Rows are created on first sight
// and never deleted; prices move with price book refreshes.
type ItemModel struct {
	ID        uint      `gorm:"column:id;primaryKey;autoIncrement"`
	ItemID    int       `gorm:"column:item_id;unique;not null"`
	Name      *string   `gorm:"column:name"`
	Category  *string   `gorm:"column:category"`
	Rarity    *string   `gorm:"column:rarity"`
	Price     float64   `gorm:"column:price;default:0"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (ItemModel) TableName() string {
	return "items"
}

// InventoryItemModel represents the inventory_items table: the persisted bag,
// one row per occupied (player, page, slot).
type InventoryItemModel struct {
	ID       uint      `gorm:"column:id;primaryKey;autoIncrement"`
	PlayerID uint      `gorm:"column:player_id;not null;uniqueIndex:idx_inventory_slot"`
	ItemID   uint      `gorm:"column:item_id;not null"`
	Page     int       `gorm:"column:page;not null;uniqueIndex:idx_inventory_slot"`
	Slot     int       `gorm:"column:slot;not null;uniqueIndex:idx_inventory_slot"`
	Quantity int       `gorm:"column:quantity;default:1"`
	UpdatedAt time.Time `gorm:"column:updated_at"`

	Player *PlayerModel `gorm:"foreignKey:PlayerID;references:ID"`
	Item   *ItemModel   `gorm:"belongsTo;foreignKey:ItemID;references:ID"`
}

func (InventoryItemModel) TableName() string {
	return "inventory_items"
}

// SessionModel represents the sessions table: one contiguous farming period
// for a player. At most one row per player is active at a time.
type SessionModel struct {
	ID         uint    `gorm:"column:id;primaryKey;autoIncrement"`
	PlayerID   *uint   `gorm:"column:player_id"`
	PlayerName *string `gorm:"column:player_name"`

	IsActive bool `gorm:"column:is_active;default:false"`

	StartedAt time.Time  `gorm:"column:started_at"`
	EndedAt   *time.Time `gorm:"column:ended_at"`

	TotalMaps          int     `gorm:"column:total_maps;default:0"`
	TotalCurrencyDelta float64 `gorm:"column:total_currency_delta;default:0"`
	CurrencyPerHour    float64 `gorm:"column:currency_per_hour;default:0"`
	CurrencyPerMap     float64 `gorm:"column:currency_per_map;default:0"`

	// Stats service state, persisted so a restart can restore the session
	TotalTime     float64 `gorm:"column:total_time;default:0"`
	ExpTotal      float64 `gorm:"column:exp_total;default:0"`
	ExpPerHour    float64 `gorm:"column:exp_per_hour;default:0"`
	CurrencyTotal float64 `gorm:"column:currency_total;default:0"`

	Title       *string `gorm:"column:title"`
	Description *string `gorm:"column:description"`

	Player *PlayerModel `gorm:"foreignKey:PlayerID;references:ID"`
}

func (SessionModel) TableName() string {
	return "sessions"
}

// MapCompletionModel represents the map_completions table: one row per
// finished map run.
type MapCompletionModel struct {
	ID        uint  `gorm:"column:id;primaryKey;autoIncrement"`
	PlayerID  uint  `gorm:"column:player_id;not null"`
	SessionID *uint `gorm:"column:session_id"`

	MapID         int     `gorm:"column:map_id;not null"`
	MapName       *string `gorm:"column:map_name"`
	MapDifficulty *string `gorm:"column:map_difficulty"`

	StartedAt   time.Time `gorm:"column:started_at"`
	CompletedAt time.Time `gorm:"column:completed_at"`
	Duration    float64   `gorm:"column:duration"` // seconds

	CurrencyGained float64 `gorm:"column:currency_gained;default:0"`
	ExpGained      float64 `gorm:"column:exp_gained;default:0"`
	ItemsGained    int     `gorm:"column:items_gained;default:0"`

	Description *string `gorm:"column:description"`

	Player  *PlayerModel  `gorm:"foreignKey:PlayerID;references:ID"`
	Session *SessionModel `gorm:"foreignKey:SessionID;references:ID"`
}

func (MapCompletionModel) TableName() string {
	return "map_completions"
}

// MapCompletionItemModel represents the map_completion_items table: per-item
// total deltas for one run. Consumed marks entry costs paid before the run.
type MapCompletionItemModel struct {
	ID              uint    `gorm:"column:id;primaryKey;autoIncrement"`
	MapCompletionID uint    `gorm:"column:map_completion_id;not null"`
	ItemID          uint    `gorm:"column:item_id;not null"`
	Delta           int     `gorm:"column:delta;not null"`
	TotalPrice      float64 `gorm:"column:total_price;default:0"`
	Consumed        bool    `gorm:"column:consumed;default:false"`

	MapCompletion *MapCompletionModel `gorm:"foreignKey:MapCompletionID;references:ID"`
	Item          *ItemModel          `gorm:"belongsTo;foreignKey:ItemID;references:ID"`
}

func (MapCompletionItemModel) TableName() string {
	return "map_completion_items"
}

// AffixModel represents the affixes table of unique map modifiers.
type AffixModel struct {
	ID          uint    `gorm:"column:id;primaryKey;autoIncrement"`
	AffixID     int     `gorm:"column:affix_id;unique;not null"`
	Description *string `gorm:"column:description"`
}

func (AffixModel) TableName() string {
	return "affixes"
}

// MapAffixModel links map completions to affixes, at most once per pair.
type MapAffixModel struct {
	ID              uint `gorm:"column:id;primaryKey;autoIncrement"`
	MapCompletionID uint `gorm:"column:map_completion_id;not null;uniqueIndex:idx_map_affix"`
	AffixID         uint `gorm:"column:affix_id;not null;uniqueIndex:idx_map_affix"`

	MapCompletion *MapCompletionModel `gorm:"foreignKey:MapCompletionID;references:ID"`
	Affix         *AffixModel         `gorm:"belongsTo;foreignKey:AffixID;references:ID"`
}

func (MapAffixModel) TableName() string {
	return "map_affixes"
}

// MarketTransactionModel represents the market_transactions table: settled
// buys and sells detected while the market UI was open.
type MarketTransactionModel struct {
	ID        uint  `gorm:"column:id;primaryKey;autoIncrement"`
	SessionID *uint `gorm:"column:session_id"`
	PlayerID  *uint `gorm:"column:player_id"`

	Timestamp time.Time `gorm:"column:timestamp"`
	ItemID    uint      `gorm:"column:item_id;not null"`
	Quantity  int       `gorm:"column:quantity;not null"`
	Action    string    `gorm:"column:action;not null"` // gained or lost

	Session *SessionModel `gorm:"foreignKey:SessionID;references:ID"`
	Player  *PlayerModel  `gorm:"foreignKey:PlayerID;references:ID"`
	Item    *ItemModel    `gorm:"belongsTo;foreignKey:ItemID;references:ID"`
}

func (MarketTransactionModel) TableName() string {
	return "market_transactions"
}

// PriceRevisionModel represents the price_db_revisions audit table.
type PriceRevisionModel struct {
	ID        uint      `gorm:"column:id;primaryKey;autoIncrement"`
	Timestamp time.Time `gorm:"column:timestamp"`
	Source    string    `gorm:"column:source;not null"` // LOCAL or REMOTE
	ItemCount int       `gorm:"column:item_count;default:0"`
}

func (PriceRevisionModel) TableName() string {
	return "price_db_revisions"
}
