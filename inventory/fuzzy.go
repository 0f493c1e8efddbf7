package inventory

import "rogue_core/config"

// trigramHash packs three bytes into the bucket/bit addressing used by the
// 64-bucket bitset rows.
func trigramHash(a, b, c byte) uint32 {
	return uint32(a)<<16 ^ uint32(b)<<8 ^ uint32(c)
}

// lowerAlpha keeps lowercase letters and spaces from a name; everything
// else is dropped before trigram extraction.
func lowerAlpha(s string, keepSpace bool) []byte {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		if c >= 'a' && c <= 'z' {
			out = append(out, c)
		} else if keepSpace && c == ' ' {
			out = append(out, ' ')
		}
	}
	return out
}

func addTrigrams(row *[64]uint32, name []byte) {
	if len(name) < 3 {
		return
	}
	for i := 0; i+2 < len(name); i++ {
		if name[i] == ' ' || name[i+1] == ' ' || name[i+2] == ' ' {
			continue
		}
		h := trigramHash(name[i], name[i+1], name[i+2])
		bucket := (h >> 26) & 63
		row[bucket] |= 1 << (h & 31)
	}
}

func (q *Query) buildDefRow(defIndex int) {
	d := q.defs.At(defIndex)
	if d == nil || d.Name == "" {
		delete(q.trigram, defIndex)
		return
	}
	var row [64]uint32
	addTrigrams(&row, lowerAlpha(d.Name, true))
	q.trigram[defIndex] = &row
}

// RebuildFuzzyIndex recomputes trigram rows for every held definition.
func (q *Query) RebuildFuzzyIndex() {
	q.trigram = make(map[int]*[64]uint32)
	q.trigramDirty = make(map[int]bool)
	for di := 0; di < config.InvMaxEntries; di++ {
		if q.entries.Quantity(di) > 0 {
			q.buildDefRow(di)
		}
	}
	q.trigramBuilt = true
}

// FuzzySearch returns held definitions whose name trigram set is a
// superset of the query's trigrams. Dirty rows rebuild lazily here so
// mutations never pause the frame.
func (q *Query) FuzzySearch(text string, cap int) []int {
	if text == "" || cap <= 0 {
		return nil
	}
	if !q.trigramBuilt {
		q.RebuildFuzzyIndex()
	}
	needle := lowerAlpha(text, false)
	if len(needle) < 3 {
		return nil
	}
	var queryBits [64]uint32
	for i := 0; i+2 < len(needle); i++ {
		h := trigramHash(needle[i], needle[i+1], needle[i+2])
		queryBits[(h>>26)&63] |= 1 << (h & 31)
	}
	for di := range q.trigramDirty {
		if q.trigramDirty[di] {
			if q.entries.Quantity(di) > 0 {
				q.buildDefRow(di)
			} else {
				delete(q.trigram, di)
			}
			delete(q.trigramDirty, di)
		}
	}
	var out []int
	for di := 0; di < config.InvMaxEntries && len(out) < cap; di++ {
		if q.entries.Quantity(di) == 0 {
			continue
		}
		row := q.trigram[di]
		if row == nil {
			continue
		}
		match := true
		for b := 0; b < 64; b++ {
			if queryBits[b]&row[b] != queryBits[b] {
				match = false
				break
			}
		}
		if match {
			out = append(out, di)
		}
	}
	return out
}
