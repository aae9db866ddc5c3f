package parsing

import (
	"regexp"
	"strconv"

	"github.com/GeorgeTG/oracle/internal/events"
)

// Example: SwitchBattleAreaUtil:_JoinFight Eryndor#7291:1100
var playerJoinRe = regexp.MustCompile(
	`\[(\d{4}\.\d{2}\.\d{2}-\d{2}\.\d{2}\.\d{2}):\d+\]\[\s*\d+\]\s*` +
		`GameLog: Display: \[Game\]\s+SwitchBattleAreaUtil:_JoinFight\s+([^:]+):(\d+)`)

// PlayerJoinParser reports the player entering a battle area, which carries
// the character name and game mode.
type PlayerJoinParser struct {
	emitter
}

func NewPlayerJoinParser() *PlayerJoinParser {
	return &PlayerJoinParser{emitter: newEmitter()}
}

func (p *PlayerJoinParser) Name() string { return "player_join" }

func (p *PlayerJoinParser) FeedLine(line string) {
	m := playerJoinRe.FindStringSubmatch(line)
	if m == nil {
		return
	}

	mode, _ := strconv.Atoi(m[3])
	p.Emit(events.PlayerJoinEvent{
		Timestamp:  parseTimestamp(m[1]),
		PlayerName: m[2],
		Mode:       mode,
	})
}
