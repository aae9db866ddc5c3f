package parsing

import (
	"regexp"
	"strconv"

	"github.com/GeorgeTG/oracle/internal/events"
	"github.com/GeorgeTG/oracle/internal/refdata"
)

// Example lines:
//
//	[2025.11.26-20.02.54:023][713]GameLog: Display: [Game] ItemChange@ Update Id=5028_50acee19-... BagNum=796 in PageId=102 SlotId=21
//	[2025.11.27-01.03.01:952][ 97]GameLog: Display: [Game] ItemChange@ Delete Id=261005_3dc0c281-... in PageId=100 SlotId=9
//
// BagNum is absent on Delete lines.
var itemChangeRe = regexp.MustCompile(
	`\[(\d{4}\.\d{2}\.\d{2}-\d{2}\.\d{2}\.\d{2}):\d+\]\[\s*\d+\]GameLog:\s*Display:\s*\[Game\]\s*ItemChange@\s+(Add|Update|Delete)\s+Id=(\d+)_\S+(?:\s+BagNum=(\d+))?\s+in\s+PageId=(\d+)\s+SlotId=(\d+)`)

// ItemChangeParser reports item quantity and slot state changes, decorated
// with name and category from the item table.
type ItemChangeParser struct {
	emitter
	items *refdata.ItemTable
}

func NewItemChangeParser(items *refdata.ItemTable) *ItemChangeParser {
	return &ItemChangeParser{emitter: newEmitter(), items: items}
}

func (p *ItemChangeParser) Name() string { return "item_change" }

func (p *ItemChangeParser) FeedLine(line string) {
	m := itemChangeRe.FindStringSubmatch(line)
	if m == nil {
		return
	}

	itemID, _ := strconv.Atoi(m[3])
	amount := 0
	if m[4] != "" {
		amount, _ = strconv.Atoi(m[4])
	}
	page, _ := strconv.Atoi(m[5])
	slot, _ := strconv.Atoi(m[6])

	name, category := p.items.Lookup(itemID)

	p.Emit(events.ItemChangeEvent{
		Timestamp: parseTimestamp(m[1]),
		ItemID:    itemID,
		Action:    events.ItemAction(m[2]),
		Amount:    amount,
		Page:      page,
		Slot:      slot,
		Name:      name,
		Category:  category,
	})
}
