package parsing

import (
	"regexp"
	"strings"

	"github.com/GeorgeTG/oracle/internal/events"
)

var gameMessageRe = regexp.MustCompile(
	`\[(\d{4}\.\d{2}\.\d{2}-\d{2}\.\d{2}\.\d{2}):\d+\]\[\d+\]` +
		`GameLog: Display: \[Game\] MsgMgr@:Show MsgValue = (.+)`)

// GameMessageParser reports in-game system messages shown to the player.
type GameMessageParser struct {
	emitter
}

func NewGameMessageParser() *GameMessageParser {
	return &GameMessageParser{emitter: newEmitter()}
}

func (p *GameMessageParser) Name() string { return "game_message" }

func (p *GameMessageParser) FeedLine(line string) {
	m := gameMessageRe.FindStringSubmatch(line)
	if m == nil {
		return
	}

	p.Emit(events.GameMessageEvent{
		Timestamp: parseTimestamp(m[1]),
		Message:   strings.TrimSpace(m[2]),
	})
}
