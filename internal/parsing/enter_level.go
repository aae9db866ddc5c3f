package parsing

import (
	"regexp"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/GeorgeTG/oracle/internal/events"
	"github.com/GeorgeTG/oracle/internal/parsing/maps"
)

// Entering a level logs a fixed three-line sequence:
//
//	[..] LevelMgr@ EnterLevel
//	[..] LevelMgr@ LevelUid, LevelType, LevelId = 1121002 3 5302
//	[..] LevelMgr@:LevelPath, Model = <path> <model>
//
// The middle line sometimes arrives in an alternate spelling
// ("LeevelLinkData： 1121102 3 5314", game typo included).
var (
	enterLevelRe = regexp.MustCompile(
		`\[(\d{4}\.\d{2}\.\d{2})-(\d{2}\.\d{2}\.\d{2}):(\d{3})\].*GameLog: Display: \[Game\] LevelMgr@ EnterLevel$`)
	levelInfoRe = regexp.MustCompile(
		`GameLog: Display: \[Game\] LevelMgr@ LevelUid, LevelType, LevelId = (\d+) (\d+) (\d+)`)
	levelInfoAltRe = regexp.MustCompile(
		`GameLog: Display: \[Game\] LeevelLinkData[：:]\s*(\d+)\s+(\d+)\s+(\d+)`)
	levelPathRe = regexp.MustCompile(
		`GameLog: Display: \[Game\] LevelMgr@:LevelPath, Model = (.+)`)
)

type enterLevelState int

const (
	enterIdle enterLevelState = iota
	enterGotEnter
	enterGotLevelInfo
)

const (
	enterLevelTimeout  = 2 * time.Second
	enterLevelMaxLines = 6
)

// EnterLevelParser is a three-line state machine. A sequence that stalls for
// more than two seconds of wall time or six log lines is abandoned, so a torn
// sequence can never poison the next one.
type EnterLevelParser struct {
	emitter
	mapTable *maps.Table
	log      *logrus.Entry
	now      func() time.Time

	state          enterLevelState
	timestamp      time.Time
	levelUID       int
	levelType      int
	levelID        int
	nonIdleCounter int
	stateEnteredAt time.Time
}

func NewEnterLevelParser(mapTable *maps.Table, log *logrus.Entry) *EnterLevelParser {
	return &EnterLevelParser{
		emitter:  newEmitter(),
		mapTable: mapTable,
		log:      log,
		now:      time.Now,
	}
}

func (p *EnterLevelParser) Name() string { return "enter_level" }

func (p *EnterLevelParser) reset() {
	p.state = enterIdle
	p.timestamp = time.Time{}
	p.levelUID = 0
	p.levelType = 0
	p.levelID = 0
	p.nonIdleCounter = 0
	p.stateEnteredAt = time.Time{}
}

func (p *EnterLevelParser) FeedLine(line string) {
	if p.state != enterIdle && !p.stateEnteredAt.IsZero() {
		if elapsed := p.now().Sub(p.stateEnteredAt); elapsed > enterLevelTimeout {
			p.log.WithField("elapsed", elapsed.Seconds()).Warn("Level entry sequence timed out, resetting")
			p.reset()
		}
	}

	if p.state != enterIdle {
		p.nonIdleCounter++
		if p.nonIdleCounter >= enterLevelMaxLines {
			p.reset()
			return
		}
	}

	switch p.state {
	case enterIdle:
		m := enterLevelRe.FindStringSubmatch(line)
		if m == nil {
			return
		}
		ts, err := time.Parse(milliLayout, m[1]+" "+m[2]+"."+m[3])
		if err != nil {
			return
		}
		p.timestamp = ts
		p.state = enterGotEnter
		p.nonIdleCounter = 0
		p.stateEnteredAt = p.now()

	case enterGotEnter:
		m := levelInfoRe.FindStringSubmatch(line)
		if m == nil {
			m = levelInfoAltRe.FindStringSubmatch(line)
		}
		if m == nil {
			return
		}
		p.levelUID, _ = strconv.Atoi(m[1])
		p.levelType, _ = strconv.Atoi(m[2])
		p.levelID, _ = strconv.Atoi(m[3])
		p.state = enterGotLevelInfo

	case enterGotLevelInfo:
		if !levelPathRe.MatchString(line) {
			return
		}
		p.Emit(events.EnterLevelEvent{
			Timestamp: p.timestamp,
			LevelID:   p.levelID,
			LevelUID:  p.levelUID,
			LevelType: p.levelType,
			Map:       p.mapTable.Lookup(p.levelID),
		})
		p.reset()
	}
}
