// Package events defines the in-process event bus, the event-type tokens and
// every event that crosses a service boundary. Parser events originate from
// the log parsing fabric; service events are produced and consumed by the
// domain services. Both share one token space so the bus has a single
// subscriber index.
package events

// Type is the token events are published and subscribed under.
type Type string

// Parser event types.
const (
	TypeItemChange      Type = "item_change"
	TypeBagModify       Type = "bag_modify"
	TypeGameView        Type = "game_view"
	TypePing            Type = "ping"
	TypeLoadingProgress Type = "loading_progress"
	TypeEnterLevel      Type = "enter_level"
	TypeExitLevel       Type = "exit_level"
	TypeStageAffix      Type = "stage_affix"
	TypeMapLoaded       Type = "map_loaded"
	TypeWorldTransition Type = "world_transition"
	TypeGamePause       Type = "game_pause"
	TypeExpUpdate       Type = "exp_update"
	TypeGameMessage     Type = "game_message"
	TypeS12Gameplay     Type = "s12_gameplay"
	TypeTransitionStyle Type = "transition_style"
	TypePlayerJoin      Type = "player_join"
)

// Service event types.
const (
	TypeRequestInventory      Type = "request_inventory"
	TypeInventorySnapshot     Type = "inventory_snapshot"
	TypeInventoryUpdate       Type = "inventory_update"
	TypeMapStarted            Type = "map_started"
	TypeMapFinished           Type = "map_finished"
	TypeMapStats              Type = "map_stats"
	TypeMapRecord             Type = "map_record"
	TypeMarketAction          Type = "market_action"
	TypeMarketTransaction     Type = "market_transaction"
	TypeStatsUpdate           Type = "stats_update"
	TypeStatsControl          Type = "stats_control"
	TypeSessionControl        Type = "session_control"
	TypeSessionStarted        Type = "session_started"
	TypeSessionFinished       Type = "session_finished"
	TypeSessionRestore        Type = "session_restore"
	TypeRequestSession        Type = "request_session"
	TypeSessionSnapshot       Type = "session_snapshot"
	TypePlayerChanged         Type = "player_changed"
	TypeNotification          Type = "notification"
	TypeItemDataChanged       Type = "item_data_changed"
	TypeLevelProgress         Type = "level_progress"
	TypeWebSocketConnected    Type = "websocket_connected"
	TypeWebSocketDisconnected Type = "websocket_disconnected"
)

func (t Type) String() string {
	return string(t)
}

// Event is anything the bus can carry.
type Event interface {
	EventType() Type
}
