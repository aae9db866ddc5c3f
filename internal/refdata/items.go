// Package refdata loads read-only item reference data shipped next to the
// binary. Names and categories come from the same price_table.json the price
// book reads; the table is a plain lookup with no refresh cycle.
package refdata

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// ItemInfo is the static metadata known for a catalogue item.
type ItemInfo struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

// ItemTable maps game item ids to their reference metadata.
type ItemTable struct {
	items map[int]ItemInfo
}

// LoadItemTable reads price_table.json. A missing file yields an empty table;
// parsers then emit events without name/category, which downstream treats as
// unknown metadata rather than an error.
func LoadItemTable(path string) (*ItemTable, error) {
	t := &ItemTable{items: make(map[int]ItemInfo)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return t, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read item table: %w", err)
	}

	var raw map[string]ItemInfo
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse item table: %w", err)
	}

	for idStr, info := range raw {
		id, err := strconv.Atoi(idStr)
		if err != nil {
			continue
		}
		t.items[id] = info
	}

	return t, nil
}

// NewItemTable builds a table from decoded entries. Used by tests.
func NewItemTable(items map[int]ItemInfo) *ItemTable {
	if items == nil {
		items = make(map[int]ItemInfo)
	}
	return &ItemTable{items: items}
}

// Lookup returns name and category for an item id; empty strings when unknown.
func (t *ItemTable) Lookup(itemID int) (name, category string) {
	info, ok := t.items[itemID]
	if !ok {
		return "", ""
	}
	return info.Name, info.Category
}

// Len reports the number of known items.
func (t *ItemTable) Len() int {
	return len(t.items)
}
