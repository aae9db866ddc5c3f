package events

import (
	"time"

	"github.com/GeorgeTG/oracle/internal/parsing/maps"
)

// ItemAction is the kind of change reported by an ItemChange log line.
type ItemAction string

const (
	ItemAdd    ItemAction = "Add"
	ItemUpdate ItemAction = "Update"
	ItemDelete ItemAction = "Delete"
)

// ItemChangeEvent reports a single bag slot changing via ItemChange@ lines.
// A Delete carries Amount zero.
type ItemChangeEvent struct {
	Timestamp time.Time  `json:"timestamp"`
	ItemID    int        `json:"item_id"`
	Action    ItemAction `json:"action"`
	Amount    int        `json:"amount"`
	Page      int        `json:"page"`
	Slot      int        `json:"slot"`
	Name      string     `json:"name,omitempty"`
	Category  string     `json:"category,omitempty"`
}

func (ItemChangeEvent) EventType() Type { return TypeItemChange }

// BagModifyEvent reports a slot change via BagMgr@ lines. Same shape as
// ItemChangeEvent but the quantity is always explicit.
type BagModifyEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Page      int       `json:"page"`
	Slot      int       `json:"slot"`
	ItemID    int       `json:"item_id"`
	Quantity  int       `json:"quantity"`
	Name      string    `json:"name,omitempty"`
	Category  string    `json:"category,omitempty"`
}

func (BagModifyEvent) EventType() Type { return TypeBagModify }

// GameViewEvent reports the UI view on top of the page stack changing.
type GameViewEvent struct {
	Timestamp time.Time `json:"timestamp"`
	View      string    `json:"view"`
}

func (GameViewEvent) EventType() Type { return TypeGameView }

// PingEvent carries a TCP ping measurement in milliseconds.
type PingEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Ping      int       `json:"ping"`
}

func (PingEvent) EventType() Type { return TypePing }

// LoadingProgressEvent reports loading screen progress.
type LoadingProgressEvent struct {
	Timestamp         time.Time `json:"timestamp"`
	Primary           int       `json:"primary"`
	SecondaryType     string    `json:"secondary_type"`
	SecondaryProgress int       `json:"secondary_progress"`
}

func (LoadingProgressEvent) EventType() Type { return TypeLoadingProgress }

// EnterLevelEvent is emitted once per complete three-line enter-level
// sequence. Map is the decorated reference entry, nil when unknown.
type EnterLevelEvent struct {
	Timestamp time.Time     `json:"timestamp"`
	LevelID   int           `json:"level_id"`
	LevelUID  int           `json:"level_uid"`
	LevelType int           `json:"level_type"`
	Map       *maps.MapData `json:"map,omitempty"`
}

func (EnterLevelEvent) EventType() Type { return TypeEnterLevel }

// ExitLevelEvent reports the game leaving the current level.
type ExitLevelEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

func (ExitLevelEvent) EventType() Type { return TypeExitLevel }

// Affix is one map modifier from a stage-affix block.
type Affix struct {
	AffixID     int    `json:"affix_id"`
	Description string `json:"description"`
}

// StageAffixEvent carries all affixes collected for one level entry.
type StageAffixEvent struct {
	Timestamp time.Time `json:"timestamp"`
	LevelID   int       `json:"level_id"`
	Affixes   []Affix   `json:"affixes"`
}

func (StageAffixEvent) EventType() Type { return TypeStageAffix }

// MapLoadedEvent reports a main world map finishing its load.
type MapLoadedEvent struct {
	Timestamp time.Time `json:"timestamp"`
	MapPath   string    `json:"map_path"`
}

func (MapLoadedEvent) EventType() Type { return TypeMapLoaded }

// WorldTransitionEvent reports a sub-world/main-world switch step.
type WorldTransitionEvent struct {
	Timestamp   time.Time `json:"timestamp"`
	BackFlow    int       `json:"back_flow_step"`
	ToMainWorld bool      `json:"is_switching_to_main_world"`
}

func (WorldTransitionEvent) EventType() Type { return TypeWorldTransition }

// GamePauseEvent reports the UI pausing or resuming the game.
type GamePauseEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Paused    bool      `json:"is_paused"`
}

func (GamePauseEvent) EventType() Type { return TypeGamePause }

// ExpUpdateEvent reports the character's absolute experience and level.
type ExpUpdateEvent struct {
	Timestamp  time.Time `json:"timestamp"`
	Experience int       `json:"experience"`
	Level      int       `json:"level"`
}

func (ExpUpdateEvent) EventType() Type { return TypeExpUpdate }

// GameMessageEvent carries an in-game system message.
type GameMessageEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

func (GameMessageEvent) EventType() Type { return TypeGameMessage }

// S12GameplayEvent reports a seasonal BGM layer change. The layer is parsed
// and forwarded but no service keeps it as state.
type S12GameplayEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Layer     int       `json:"layer"`
}

func (S12GameplayEvent) EventType() Type { return TypeS12Gameplay }

// TransitionStyleEvent reports a screen transition style.
type TransitionStyleEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Style     string    `json:"transition_style"`
}

func (TransitionStyleEvent) EventType() Type { return TypeTransitionStyle }

// PlayerJoinEvent reports the player entering a battle area.
type PlayerJoinEvent struct {
	Timestamp  time.Time `json:"timestamp"`
	PlayerName string    `json:"player_name"`
	Mode       int       `json:"mode"`
}

func (PlayerJoinEvent) EventType() Type { return TypePlayerJoin }
