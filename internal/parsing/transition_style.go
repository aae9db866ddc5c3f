package parsing

import (
	"regexp"

	"github.com/GeorgeTG/oracle/internal/events"
)

var transitionStyleRe = regexp.MustCompile(
	`\[(\d{4}\.\d{2}\.\d{2}-\d{2}\.\d{2}\.\d{2}):\d+\]\[\s*\d+\]` +
		`GameLog: Display: \[Game\] TransitionMgr@ShowTransition TransitionStyle = (\S+)`)

// TransitionStyleParser reports screen transition styles.
type TransitionStyleParser struct {
	emitter
}

func NewTransitionStyleParser() *TransitionStyleParser {
	return &TransitionStyleParser{emitter: newEmitter()}
}

func (p *TransitionStyleParser) Name() string { return "transition_style" }

func (p *TransitionStyleParser) FeedLine(line string) {
	m := transitionStyleRe.FindStringSubmatch(line)
	if m == nil {
		return
	}

	p.Emit(events.TransitionStyleEvent{
		Timestamp: parseTimestamp(m[1]),
		Style:     m[2],
	})
}
