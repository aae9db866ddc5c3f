package maps

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"
)

// MapData describes one map entry from the reference table.
type MapData struct {
	MapID      string     `json:"map_id"`
	Name       string     `json:"name"`
	Asset      string     `json:"asset"`
	Area       string     `json:"area"`
	Difficulty Difficulty `json:"difficulty"`
}

type rawMapEntry struct {
	Name       string     `json:"name"`
	Asset      string     `json:"asset"`
	Area       string     `json:"area"`
	Difficulty Difficulty `json:"difficulty"`
}

// Table is the map reference database loaded from en_id_map_table.json.
// Lookups for unknown ids derive a tier from the nearest known map and
// memoise the synthesised entry, so the table grows under its own lock.
type Table struct {
	mu      sync.Mutex
	entries map[string]*MapData
}

// LoadTable reads the map reference file. A missing file yields an empty
// table rather than an error: map decoration is best-effort.
func LoadTable(path string) (*Table, error) {
	t := &Table{entries: make(map[string]*MapData)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return t, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read map table: %w", err)
	}

	var raw map[string]rawMapEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse map table: %w", err)
	}

	for id, entry := range raw {
		difficulty := entry.Difficulty
		if difficulty == "" {
			difficulty = T8Plus
		}
		t.entries[id] = &MapData{
			MapID:      id,
			Name:       entry.Name,
			Asset:      entry.Asset,
			Area:       entry.Area,
			Difficulty: difficulty,
		}
	}

	return t, nil
}

// NewTable builds a table from already-decoded entries. Used by tests.
func NewTable(entries []MapData) *Table {
	t := &Table{entries: make(map[string]*MapData, len(entries))}
	for i := range entries {
		e := entries[i]
		t.entries[e.MapID] = &e
	}
	return t
}

// Lookup returns the map entry for an id, or nil if nothing can be derived.
//
// When the exact id is unknown, the tier is inferred by searching upwards in
// +100 steps: sibling maps share a base id and each +100 step is one tier
// easier, so finding a known sibling at offset n places the unknown map n-1
// tiers above it in the ordered list.
func (t *Table) Lookup(mapID int) *MapData {
	key := strconv.Itoa(mapID)

	t.mu.Lock()
	defer t.mu.Unlock()

	if entry, ok := t.entries[key]; ok {
		return entry
	}

	tiers := Tiers()
	searchID := mapID
	for offset := 0; offset < len(tiers); offset++ {
		searchKey := strconv.Itoa(searchID)
		if ref, ok := t.entries[searchKey]; ok && searchID != mapID {
			derived := &MapData{
				MapID:      key,
				Name:       ref.Name,
				Asset:      ref.Asset,
				Area:       ref.Area,
				Difficulty: tiers[offset-1],
			}
			t.entries[key] = derived
			return derived
		}
		searchID += 100
	}

	return nil
}
