package parsing

import (
	"regexp"

	"github.com/GeorgeTG/oracle/internal/events"
)

var exitLevelRe = regexp.MustCompile(`UGameMgr::ExitLevel\(\)`)

// ExitLevelParser reports the game leaving the current level.
type ExitLevelParser struct {
	emitter
}

func NewExitLevelParser() *ExitLevelParser {
	return &ExitLevelParser{emitter: newEmitter()}
}

func (p *ExitLevelParser) Name() string { return "exit_level" }

func (p *ExitLevelParser) FeedLine(line string) {
	if !exitLevelRe.MatchString(line) {
		return
	}

	ts, ok := lineTimestamp(line)
	if !ok {
		return
	}

	p.Emit(events.ExitLevelEvent{Timestamp: ts})
}
