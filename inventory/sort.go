package inventory

import (
	"sort"
	"strings"

	"rogue_core/randgen"
)

type sortKey int

const (
	keyRarity sortKey = iota
	keyQty
	keyName
	keyCategory
)

func parseSortKey(k string) (sortKey, bool) {
	switch k {
	case "rarity":
		return keyRarity, true
	case "qty", "quantity":
		return keyQty, true
	case "name":
		return keyName, true
	case "category":
		return keyCategory, true
	}
	return 0, false
}

type sortDecor struct {
	defIndex int
	keys     [4]int
	name     string
	nameHash uint32
}

// Sort orders def indices by up to four comma-separated keys; a leading '-'
// means descending. Name keys compare case-insensitively with a stable
// hash as the numeric decoration. Equal tuples tie-break on ascending def
// index, keeping the sort stable. Returns false on an unknown key.
func (q *Query) Sort(defIndices []int, keys string) bool {
	if len(defIndices) <= 1 || keys == "" {
		return true
	}
	type parsedKey struct {
		key  sortKey
		desc bool
	}
	var parsed []parsedKey
	for _, raw := range strings.Split(keys, ",") {
		raw = strings.ToLower(strings.TrimSpace(raw))
		if raw == "" {
			continue
		}
		desc := false
		if raw[0] == '-' {
			desc = true
			raw = raw[1:]
		}
		k, ok := parseSortKey(raw)
		if !ok {
			return false
		}
		parsed = append(parsed, parsedKey{k, desc})
		if len(parsed) == 4 {
			break
		}
	}
	if len(parsed) == 0 {
		return true
	}
	deco := make([]sortDecor, len(defIndices))
	for i, di := range defIndices {
		deco[i].defIndex = di
		d := q.defs.At(di)
		for k, pk := range parsed {
			switch pk.key {
			case keyRarity:
				if d != nil {
					deco[i].keys[k] = d.Rarity
				}
			case keyQty:
				qty := q.entries.Quantity(di)
				if qty > 0x7fffffff {
					qty = 0x7fffffff
				}
				deco[i].keys[k] = int(qty)
			case keyName:
				if d != nil {
					deco[i].nameHash = randgen.HashStringCI(d.Name)
					deco[i].name = strings.ToLower(d.Name)
				}
			case keyCategory:
				if d != nil {
					deco[i].keys[k] = int(d.Category)
				}
			}
		}
	}
	sort.SliceStable(deco, func(a, b int) bool {
		for k, pk := range parsed {
			var cmp int
			if pk.key == keyName {
				cmp = strings.Compare(deco[a].name, deco[b].name)
				if cmp == 0 && deco[a].nameHash != deco[b].nameHash {
					if deco[a].nameHash < deco[b].nameHash {
						cmp = -1
					} else {
						cmp = 1
					}
				}
			} else {
				switch {
				case deco[a].keys[k] < deco[b].keys[k]:
					cmp = -1
				case deco[a].keys[k] > deco[b].keys[k]:
					cmp = 1
				}
			}
			if cmp == 0 {
				continue
			}
			if pk.desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return deco[a].defIndex < deco[b].defIndex
	})
	for i := range deco {
		defIndices[i] = deco[i].defIndex
	}
	return true
}
