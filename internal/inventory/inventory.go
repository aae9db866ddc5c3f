// Package inventory holds the live in-memory projection of the player's bag.
// It is mutated only by the inventory service; every other consumer works on
// snapshots obtained over the event bus.
package inventory

import "time"

// SlotKey addresses one bag slot.
type SlotKey struct {
	Page int
	Slot int
}

// Item is the content of a single occupied slot.
type Item struct {
	ItemID   int    `json:"item_id"`
	Quantity int    `json:"quantity"`
	Name     string `json:"name,omitempty"`
	Category string `json:"category,omitempty"`
}

// Inventory is the current in-game bag state keyed by (page, slot).
// A slot is present iff its quantity is at least one.
type Inventory struct {
	Slots map[SlotKey]Item
}

// New returns an empty inventory.
func New() *Inventory {
	return &Inventory{Slots: make(map[SlotKey]Item)}
}

// Len reports the number of occupied slots.
func (inv *Inventory) Len() int {
	return len(inv.Slots)
}

// totalFor sums the quantity of an item id across every slot.
func (inv *Inventory) totalFor(itemID int) int {
	total := 0
	for _, item := range inv.Slots {
		if item.ItemID == itemID {
			total += item.Quantity
		}
	}
	return total
}

// ChangeItem updates one slot and returns the change in total quantity of the
// item id across all slots. A zero return means the item merely moved between
// slots; market tracking relies on exactly this distinction. Quantity zero or
// below clears the slot.
func (inv *Inventory) ChangeItem(page, slot, itemID, quantity int, name, category string) int {
	key := SlotKey{Page: page, Slot: slot}
	before := inv.totalFor(itemID)

	if quantity <= 0 {
		delete(inv.Slots, key)
	} else {
		inv.Slots[key] = Item{
			ItemID:   itemID,
			Quantity: quantity,
			Name:     name,
			Category: category,
		}
	}

	return inv.totalFor(itemID) - before
}

// Copy returns a deep copy suitable for snapshotting.
func (inv *Inventory) Copy() *Inventory {
	dup := &Inventory{Slots: make(map[SlotKey]Item, len(inv.Slots))}
	for key, item := range inv.Slots {
		dup.Slots[key] = item
	}
	return dup
}

// Totals folds the inventory into item_id -> total quantity.
func (inv *Inventory) Totals() map[int]int {
	totals := make(map[int]int)
	for _, item := range inv.Slots {
		totals[item.ItemID] += item.Quantity
	}
	return totals
}

// Snapshot is an immutable copy of inventory state at a point in time.
type Snapshot struct {
	Timestamp time.Time
	Data      *Inventory
}

// SnapshotOf deep-copies the inventory into a snapshot stamped now.
func SnapshotOf(inv *Inventory) *Snapshot {
	return &Snapshot{Timestamp: time.Now(), Data: inv.Copy()}
}

// CompareWith returns per-item total-quantity deltas of this snapshot relative
// to an older one: item_id -> (new - old). Unchanged items are omitted.
func (s *Snapshot) CompareWith(older *Snapshot) map[int]int {
	diff := make(map[int]int)

	oldTotals := older.Data.Totals()
	newTotals := s.Data.Totals()

	for itemID, qty := range newTotals {
		if delta := qty - oldTotals[itemID]; delta != 0 {
			diff[itemID] = delta
		}
	}
	for itemID, qty := range oldTotals {
		if _, seen := newTotals[itemID]; !seen {
			diff[itemID] = -qty
		}
	}

	return diff
}
