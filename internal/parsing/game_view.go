package parsing

import (
	"regexp"
	"time"

	"github.com/GeorgeTG/oracle/internal/events"
)

// Matches both spellings the UI logs:
//
//	PageStack@ CurRunView = 3216_SettingCtrl
//	PageStack@ CurRunView == 1321_FightCtrl Calling OnLeaveHide!
var gameViewRe = regexp.MustCompile(`CurRunView\s*=?=?\s*(\w+)`)

// GameViewParser reports the active UI view. Consecutive duplicates are
// suppressed; the market service relies on seeing only actual transitions.
type GameViewParser struct {
	emitter
	lastView string
}

func NewGameViewParser() *GameViewParser {
	return &GameViewParser{emitter: newEmitter()}
}

func (p *GameViewParser) Name() string { return "game_view" }

func (p *GameViewParser) FeedLine(line string) {
	m := gameViewRe.FindStringSubmatch(line)
	if m == nil {
		return
	}

	view := m[1]
	if view == p.lastView {
		return
	}
	p.lastView = view

	ts, ok := lineTimestamp(line)
	if !ok {
		ts = time.Now().UTC()
	}

	p.Emit(events.GameViewEvent{Timestamp: ts, View: view})
}
