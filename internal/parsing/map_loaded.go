package parsing

import (
	"regexp"
	"strings"

	"github.com/GeorgeTG/oracle/internal/events"
)

var mapLoadedRe = regexp.MustCompile(
	`\[(\d{4}\.\d{2}\.\d{2}-\d{2}\.\d{2}\.\d{2}):\d+\]\[\d+\]` +
		`GameLog: Display: \[Game\] SceneLevelMgr@ OpenMainWorld END! InMainLevelPath = (.+)`)

// MapLoadedParser reports a main world map finishing its load.
type MapLoadedParser struct {
	emitter
}

func NewMapLoadedParser() *MapLoadedParser {
	return &MapLoadedParser{emitter: newEmitter()}
}

func (p *MapLoadedParser) Name() string { return "map_loaded" }

func (p *MapLoadedParser) FeedLine(line string) {
	m := mapLoadedRe.FindStringSubmatch(line)
	if m == nil {
		return
	}

	p.Emit(events.MapLoadedEvent{
		Timestamp: parseTimestamp(m[1]),
		MapPath:   strings.TrimSpace(m[2]),
	})
}
