package parsing

import (
	"regexp"
	"strconv"

	"github.com/GeorgeTG/oracle/internal/events"
)

var worldTransitionRe = regexp.MustCompile(
	`\[(\d{4}\.\d{2}\.\d{2}-\d{2}\.\d{2}\.\d{2}):\d+\]\[\d+\]` +
		`GameLog: Display: \[Game\] PageApplyBase@ BackFlow(\d+) IsSwitchingSubWorldToMainWorld = (true|false)`)

// WorldTransitionParser reports the staged switch between sub world and main
// world.
type WorldTransitionParser struct {
	emitter
}

func NewWorldTransitionParser() *WorldTransitionParser {
	return &WorldTransitionParser{emitter: newEmitter()}
}

func (p *WorldTransitionParser) Name() string { return "world_transition" }

func (p *WorldTransitionParser) FeedLine(line string) {
	m := worldTransitionRe.FindStringSubmatch(line)
	if m == nil {
		return
	}

	step, _ := strconv.Atoi(m[2])
	p.Emit(events.WorldTransitionEvent{
		Timestamp:   parseTimestamp(m[1]),
		BackFlow:    step,
		ToMainWorld: m[3] == "true",
	})
}
