package parsing

import (
	"regexp"
	"strconv"

	"github.com/GeorgeTG/oracle/internal/events"
	"github.com/GeorgeTG/oracle/internal/refdata"
)

var bagModifyRe = regexp.MustCompile(
	`\[(\d{4}\.\d{2}\.\d{2}-\d{2}\.\d{2}\.\d{2}):\d+]\[\d+]` +
		`GameLog: Display: \[Game] BagMgr@:Modfy BagItem ` +
		`PageId = (\d+) SlotId = (\d+) ConfigBaseId = (\d+) Num = (\d+)`)

// BagModifyParser reports direct bag slot writes. Unlike ItemChange lines the
// quantity here is the absolute slot count, never a delta.
type BagModifyParser struct {
	emitter
	items *refdata.ItemTable
}

func NewBagModifyParser(items *refdata.ItemTable) *BagModifyParser {
	return &BagModifyParser{emitter: newEmitter(), items: items}
}

func (p *BagModifyParser) Name() string { return "bag_modify" }

func (p *BagModifyParser) FeedLine(line string) {
	m := bagModifyRe.FindStringSubmatch(line)
	if m == nil {
		return
	}

	page, _ := strconv.Atoi(m[2])
	slot, _ := strconv.Atoi(m[3])
	itemID, _ := strconv.Atoi(m[4])
	quantity, _ := strconv.Atoi(m[5])

	name, category := p.items.Lookup(itemID)

	p.Emit(events.BagModifyEvent{
		Timestamp: parseTimestamp(m[1]),
		Page:      page,
		Slot:      slot,
		ItemID:    itemID,
		Quantity:  quantity,
		Name:      name,
		Category:  category,
	})
}
