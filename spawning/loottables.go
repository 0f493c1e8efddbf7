// Package spawning handles procedural generation of loot: weighted loot
// tables, the rarity governor (floor/pity/acceleration), and the
// context-seeded generation pipeline that assembles item instances.
package spawning

import (
	"bufio"
	"os"
	"strings"

	"github.com/pkg/errors"

	"rogue_core/config"
	"rogue_core/gamelog"
	"rogue_core/loot"
	"rogue_core/randgen"
)

// LootEntry is one weighted row of a loot table. RarityMin of -1 means the
// drop uses the definition's own rarity instead of sampling a sub-range.
type LootEntry struct {
	ItemDefIndex int
	Weight       int
	QtyMin       int
	QtyMax       int
	RarityMin    int
	RarityMax    int
}

// LootTableDef is a named table of weighted entries rolled RollsMin..RollsMax
// times per drop event.
type LootTableDef struct {
	ID       string
	RollsMin int
	RollsMax int
	Entries  []LootEntry
}

// LootTables is the loaded table registry.
type LootTables struct {
	tables []LootTableDef
	defs   *loot.DefRegistry
	rarity *RarityState
}

// NewLootTables binds a registry to the item definitions and rarity state
// used during rolls.
func NewLootTables(defs *loot.DefRegistry, rarity *RarityState) *LootTables {
	return &LootTables{
		tables: make([]LootTableDef, 0, config.MaxLootTables),
		defs:   defs,
		rarity: rarity,
	}
}

// Count returns the number of loaded tables.
func (t *LootTables) Count() int { return len(t.tables) }

// At returns the table at index, or nil.
func (t *LootTables) At(index int) *LootTableDef {
	if index < 0 || index >= len(t.tables) {
		return nil
	}
	return &t.tables[index]
}

// IndexOf returns the table index for an id, or -1.
func (t *LootTables) IndexOf(id string) int {
	for i := range t.tables {
		if t.tables[i].ID == id {
			return i
		}
	}
	return -1
}

// Add appends a table, enforcing capacity and rolls_max >= rolls_min.
func (t *LootTables) Add(def LootTableDef) (int, error) {
	if len(t.tables) >= config.MaxLootTables {
		return -1, errors.Errorf("loot table capacity %d exceeded (id=%s)", config.MaxLootTables, def.ID)
	}
	if def.RollsMax < def.RollsMin {
		def.RollsMax = def.RollsMin
	}
	t.tables = append(t.tables, def)
	return len(t.tables) - 1, nil
}

// parseTableLine parses `id,rolls_min,rolls_max,entry;entry;...` where each
// entry is `item_id,weight,qmin,qmax[,rmin[,rmax]]`.
func (t *LootTables) parseTableLine(line string) (LootTableDef, bool) {
	var def LootTableDef
	line = strings.TrimRight(line, "\r\n")
	if line == "" || strings.HasPrefix(line, "#") {
		return def, false
	}
	head := strings.SplitN(line, ",", 4)
	if len(head) < 4 {
		return def, false
	}
	def.ID = strings.TrimSpace(head[0])
	def.RollsMin = atoi(head[1])
	def.RollsMax = atoi(head[2])
	for _, raw := range strings.Split(head[3], ";") {
		fields := strings.Split(raw, ",")
		if len(fields) < 4 {
			continue
		}
		di := t.defs.IndexOf(strings.TrimSpace(fields[0]))
		if di < 0 {
			gamelog.Warn("loot table entry references unknown item", "table", def.ID, "item", fields[0])
			continue
		}
		e := LootEntry{
			ItemDefIndex: di,
			Weight:       atoi(fields[1]),
			QtyMin:       atoi(fields[2]),
			QtyMax:       atoi(fields[3]),
			RarityMin:    -1,
			RarityMax:    -1,
		}
		if e.Weight <= 0 {
			continue
		}
		if len(fields) > 4 {
			e.RarityMin = atoi(fields[4])
			e.RarityMax = e.RarityMin
		}
		if len(fields) > 5 {
			e.RarityMax = atoi(fields[5])
		}
		def.Entries = append(def.Entries, e)
	}
	return def, len(def.Entries) > 0
}

func atoi(s string) int {
	v := 0
	neg := false
	s = strings.TrimSpace(s)
	for i, c := range s {
		if i == 0 && c == '-' {
			neg = true
			continue
		}
		if c < '0' || c > '9' {
			break
		}
		v = v*10 + int(c-'0')
	}
	if neg {
		return -v
	}
	return v
}

// LoadFile appends tables from a CSV file, skipping malformed lines.
func (t *LootTables) LoadFile(path string) (int, error) {
	f, err := os.Open(loot.FindAssetPath(path))
	if err != nil {
		return 0, errors.Wrapf(err, "open loot tables %s", path)
	}
	defer f.Close()
	added := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		def, ok := t.parseTableLine(sc.Text())
		if !ok {
			continue
		}
		if _, err := t.Add(def); err != nil {
			break
		}
		added++
	}
	return added, sc.Err()
}

// Drop is one produced roll: the chosen definition, quantity, and sampled
// rarity (-1 when the entry defers to the definition's rarity).
type Drop struct {
	DefIndex int
	Quantity int
	Rarity   int
}

// Roll performs the table's rolls on the LCG stream and returns up to
// maxOut drops. Entry selection, quantity, and rarity sampling all advance
// the caller's stream so repeated rolls stay deterministic.
func (t *LootTables) Roll(tableIndex int, rng *uint32, maxOut int) []Drop {
	def := t.At(tableIndex)
	if def == nil || rng == nil || maxOut <= 0 {
		return nil
	}
	rolls := def.RollsMin
	if span := def.RollsMax - def.RollsMin + 1; span > 0 {
		rolls = def.RollsMin + randgen.LCGRange(rng, span)
	}
	var out []Drop
	for r := 0; r < rolls; r++ {
		totalW := 0
		for i := range def.Entries {
			totalW += def.Entries[i].Weight
		}
		if totalW <= 0 {
			break
		}
		pick := randgen.LCGRange(rng, totalW)
		var chosen *LootEntry
		acc := 0
		for i := range def.Entries {
			acc += def.Entries[i].Weight
			if pick < acc {
				chosen = &def.Entries[i]
				break
			}
		}
		if chosen == nil {
			continue
		}
		qty := chosen.QtyMin
		if span := chosen.QtyMax - chosen.QtyMin + 1; span > 0 {
			qty = chosen.QtyMin + randgen.LCGRange(rng, span)
		}
		rarity := -1
		if chosen.RarityMin >= 0 {
			rarity = t.rarity.Sample(rng, chosen.RarityMin, chosen.RarityMax)
		}
		if len(out) < maxOut {
			out = append(out, Drop{DefIndex: chosen.ItemDefIndex, Quantity: qty, Rarity: rarity})
		}
	}
	return out
}
