package parsing

import (
	"regexp"
	"strconv"
	"time"

	"github.com/GeorgeTG/oracle/internal/events"
)

// An affix block looks like:
//
//	EnterLevel(5302)
//	...
//	AffixInfos
//	+DangerNumbers
//	+Id [40123]
//	+Description [Monsters deal extra lightning damage]
//	+DangerNumbers
//	...
//	OnEnterAreaEnd()
var (
	affixEnterLevelRe = regexp.MustCompile(`EnterLevel\((\d+)\)`)
	affixListStartRe  = regexp.MustCompile(`AffixInfos`)
	affixDangerRe     = regexp.MustCompile(`\+DangerNumbers`)
	affixIDRe         = regexp.MustCompile(`\+Id\s*\[(\d+)\]`)
	affixDescRe       = regexp.MustCompile(`\+Description\s*\[(.*?)\]`)
	affixListEndRe    = regexp.MustCompile(`OnEnterAreaEnd\(\)`)
)

// StageAffixParser collects the multi-line affix block logged when entering a
// level and emits one StageAffixEvent per complete block. The level id comes
// from the most recent EnterLevel(N) marker, which may precede the block by
// many lines.
type StageAffixParser struct {
	emitter

	pending        []events.Affix
	currentLevelID int
	collecting     bool
	blockTimestamp time.Time
	affixID        int
	hasAffixID     bool
	description    string
}

func NewStageAffixParser() *StageAffixParser {
	return &StageAffixParser{emitter: newEmitter()}
}

func (p *StageAffixParser) Name() string { return "stage_affix" }

func (p *StageAffixParser) flushCurrent() {
	if p.hasAffixID {
		p.pending = append(p.pending, events.Affix{
			AffixID:     p.affixID,
			Description: p.description,
		})
	}
	p.affixID = 0
	p.hasAffixID = false
	p.description = ""
}

func (p *StageAffixParser) FeedLine(line string) {
	if m := affixEnterLevelRe.FindStringSubmatch(line); m != nil {
		p.currentLevelID, _ = strconv.Atoi(m[1])
	}

	ts, hasTS := lineTimestamp(line)

	if affixListStartRe.MatchString(line) {
		p.collecting = true
		p.pending = nil
		if hasTS {
			p.blockTimestamp = ts
		} else {
			p.blockTimestamp = time.Time{}
		}
		p.affixID = 0
		p.hasAffixID = false
		p.description = ""
		return
	}

	if affixListEndRe.MatchString(line) {
		if p.collecting {
			p.flushCurrent()
			if len(p.pending) > 0 && p.currentLevelID != 0 && !p.blockTimestamp.IsZero() {
				affixes := make([]events.Affix, len(p.pending))
				copy(affixes, p.pending)
				p.Emit(events.StageAffixEvent{
					Timestamp: p.blockTimestamp,
					LevelID:   p.currentLevelID,
					Affixes:   affixes,
				})
			}
			p.collecting = false
			p.pending = nil
			p.blockTimestamp = time.Time{}
		}
		return
	}

	if !p.collecting {
		return
	}

	if affixDangerRe.MatchString(line) {
		p.flushCurrent()
		return
	}

	if m := affixDescRe.FindStringSubmatch(line); m != nil {
		p.description = m[1]
		return
	}

	if m := affixIDRe.FindStringSubmatch(line); m != nil {
		p.affixID, _ = strconv.Atoi(m[1])
		p.hasAffixID = true
	}
}
