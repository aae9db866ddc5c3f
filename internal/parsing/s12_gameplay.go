package parsing

import (
	"regexp"
	"strconv"

	"github.com/GeorgeTG/oracle/internal/events"
)

var s12GameplayRe = regexp.MustCompile(
	`\[(\d{4}\.\d{2}\.\d{2}-\d{2}\.\d{2}\.\d{2}):\d+\]\[\s*\d+\]` +
		`GameLog: Display: \[Game\] UGamePlayMgr::PlayS12GamePlayBGM layer=(\d+)`)

// S12GameplayParser reports seasonal BGM layer changes.
type S12GameplayParser struct {
	emitter
}

func NewS12GameplayParser() *S12GameplayParser {
	return &S12GameplayParser{emitter: newEmitter()}
}

func (p *S12GameplayParser) Name() string { return "s12_gameplay" }

func (p *S12GameplayParser) FeedLine(line string) {
	m := s12GameplayRe.FindStringSubmatch(line)
	if m == nil {
		return
	}

	layer, _ := strconv.Atoi(m[2])
	p.Emit(events.S12GameplayEvent{Timestamp: parseTimestamp(m[1]), Layer: layer})
}
