package parsing

import (
	"regexp"

	"github.com/GeorgeTG/oracle/internal/events"
)

var gamePauseRe = regexp.MustCompile(
	`\[(\d{4}\.\d{2}\.\d{2}-\d{2}\.\d{2}\.\d{2}):\d+\]\[\d+\]` +
		`GameLog: Display: \[Game\] UGameMgr::(AddGamePausedForUI|RemovePausedForUI)\(\)`)

// GamePauseParser reports the UI pausing and resuming the game.
type GamePauseParser struct {
	emitter
}

func NewGamePauseParser() *GamePauseParser {
	return &GamePauseParser{emitter: newEmitter()}
}

func (p *GamePauseParser) Name() string { return "game_pause" }

func (p *GamePauseParser) FeedLine(line string) {
	m := gamePauseRe.FindStringSubmatch(line)
	if m == nil {
		return
	}

	p.Emit(events.GamePauseEvent{
		Timestamp: parseTimestamp(m[1]),
		Paused:    m[2] == "AddGamePausedForUI",
	})
}
