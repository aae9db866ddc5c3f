package parsing

import (
	"regexp"
	"strconv"

	"github.com/GeorgeTG/oracle/internal/events"
)

// Example: ExpMgr@UpdateExp Percent:10272028 97. Despite the label the first
// number is absolute experience, the second the character level.
var expUpdateRe = regexp.MustCompile(
	`\[(\d{4}\.\d{2}\.\d{2}-\d{2}\.\d{2}\.\d{2}):\d+\]\[\d+\]` +
		`GameLog: Display: \[Game\] ExpMgr@UpdateExp Percent:(\d+) (\d+)`)

// ExpUpdateParser reports character experience changes.
type ExpUpdateParser struct {
	emitter
}

func NewExpUpdateParser() *ExpUpdateParser {
	return &ExpUpdateParser{emitter: newEmitter()}
}

func (p *ExpUpdateParser) Name() string { return "exp_update" }

func (p *ExpUpdateParser) FeedLine(line string) {
	m := expUpdateRe.FindStringSubmatch(line)
	if m == nil {
		return
	}

	exp, _ := strconv.Atoi(m[2])
	level, _ := strconv.Atoi(m[3])

	p.Emit(events.ExpUpdateEvent{
		Timestamp:  parseTimestamp(m[1]),
		Experience: exp,
		Level:      level,
	})
}
