package parsing

import (
	"regexp"
	"strconv"

	"github.com/GeorgeTG/oracle/internal/events"
)

// Example: Loading@ P=80,S=Mesh 45%
var loadingRe = regexp.MustCompile(`Loading@\s+P=(\d+),S=([A-Za-z]+)\s+(\d+)%`)

// LoadingProgressParser reports loading screen progress.
type LoadingProgressParser struct {
	emitter
}

func NewLoadingProgressParser() *LoadingProgressParser {
	return &LoadingProgressParser{emitter: newEmitter()}
}

func (p *LoadingProgressParser) Name() string { return "loading_progress" }

func (p *LoadingProgressParser) FeedLine(line string) {
	ts, ok := lineTimestamp(line)
	m := loadingRe.FindStringSubmatch(line)
	if m == nil || !ok {
		return
	}

	primary, _ := strconv.Atoi(m[1])
	secondary, _ := strconv.Atoi(m[3])

	p.Emit(events.LoadingProgressEvent{
		Timestamp:         ts,
		Primary:           primary,
		SecondaryType:     m[2],
		SecondaryProgress: secondary,
	})
}
