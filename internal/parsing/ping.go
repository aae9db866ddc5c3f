package parsing

import (
	"regexp"
	"strconv"

	"github.com/GeorgeTG/oracle/internal/events"
)

var pingRe = regexp.MustCompile(
	`\[(\d{4}\.\d{2}\.\d{2}-\d{2}\.\d{2}\.\d{2}):\d+\]\[\d+\]GameLog: Display: \[Game\] TCP Ping Result: (\d+)`)

// PingParser reports network latency samples.
type PingParser struct {
	emitter
}

func NewPingParser() *PingParser {
	return &PingParser{emitter: newEmitter()}
}

func (p *PingParser) Name() string { return "ping" }

func (p *PingParser) FeedLine(line string) {
	m := pingRe.FindStringSubmatch(line)
	if m == nil {
		return
	}

	ping, _ := strconv.Atoi(m[2])
	p.Emit(events.PingEvent{Timestamp: parseTimestamp(m[1]), Ping: ping})
}
