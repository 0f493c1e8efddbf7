package savesystem

import (
	"io"
	"sort"

	"rogue_core/inventory"
	"rogue_core/loot"
	"rogue_core/playerstate"
)

// CoreState bundles the registries the core component set serializes.
type CoreState struct {
	Pool    *loot.Pool
	Entries *inventory.Entries
	Tags    *inventory.Tags
	Rules   *inventory.TagRules
	Query   *inventory.Query
	State   *playerstate.State
}

// invRecord is the persisted per-instance tuple. The reader detects the
// historical 7- and 9-int layouts by remaining size so older files load.
type invRecord struct {
	DefIndex      int32
	Quantity      int32
	Rarity        int32
	PrefixIndex   int32
	PrefixValue   int32
	SuffixIndex   int32
	SuffixValue   int32
	DurabilityCur int32
	DurabilityMax int32
	EnchantLevel  int32
}

const invRecordInts = 10

// RegisterCoreComponents registers the standard component set over the
// session registries, in id order. Registration order matters: inventory
// loads before player so equipment def indices resolve against live slots.
func RegisterCoreComponents(m *Manager, cs CoreState) {
	_ = m.Register(Component{ID: CompWorldMeta, Name: "world_meta",
		Write: func(w io.Writer) error { return writeWorldMeta(w, cs.State) },
		Read:  func(r io.Reader, size int) error { return readWorldMeta(r, cs.State) },
	})
	_ = m.Register(Component{ID: CompInventory, Name: "inventory",
		Write: func(w io.Writer) error { return m.writeInventory(w, cs.Pool) },
		Read:  func(r io.Reader, size int) error { return m.readInventory(r, size, cs.Pool) },
	})
	_ = m.Register(Component{ID: CompInvEntries, Name: "inv_entries",
		Write: func(w io.Writer) error { return writeInvEntries(w, cs.Entries) },
		Read:  func(r io.Reader, size int) error { return readInvEntries(r, cs.Entries) },
	})
	_ = m.Register(Component{ID: CompInvTags, Name: "inv_tags",
		Write: func(w io.Writer) error { return writeInvTags(w, cs.Tags) },
		Read:  func(r io.Reader, size int) error { return readInvTags(r, cs.Tags) },
	})
	_ = m.Register(Component{ID: CompInvTagRules, Name: "inv_tag_rules",
		Write: func(w io.Writer) error { return writeInvTagRules(w, cs.Rules) },
		Read:  func(r io.Reader, size int) error { return readInvTagRules(r, cs.Rules) },
	})
	_ = m.Register(Component{ID: CompInvSavedSearches, Name: "inv_saved_searches",
		Write: func(w io.Writer) error { return writeSavedSearches(w, cs.Query) },
		Read:  func(r io.Reader, size int) error { return readSavedSearches(r, cs.Query) },
	})
	_ = m.Register(Component{ID: CompPlayer, Name: "player",
		Write: func(w io.Writer) error { return writePlayer(w, &cs.State.Player) },
		Read:  func(r io.Reader, size int) error { return readPlayer(r, &cs.State.Player) },
	})
	_ = m.Register(Component{ID: CompSkills, Name: "skills",
		Write: func(w io.Writer) error { return writeSkills(w, cs.State) },
		Read:  func(r io.Reader, size int) error { return readSkills(r, cs.State) },
	})
	_ = m.Register(Component{ID: CompBuffs, Name: "buffs",
		Write: func(w io.Writer) error { return writeBuffs(w, cs.State) },
		Read:  func(r io.Reader, size int) error { return readBuffs(r, cs.State) },
	})
	_ = m.Register(Component{ID: CompVendor, Name: "vendor",
		Write: func(w io.Writer) error { return writeVendor(w, cs.State) },
		Read:  func(r io.Reader, size int) error { return readVendor(r, cs.State) },
	})
	_ = m.Register(Component{ID: CompStrings, Name: "strings",
		Write: m.writeStrings,
		Read:  func(r io.Reader, size int) error { return m.readStrings(r) },
	})
	_ = m.Register(Component{ID: CompReplay, Name: "replay",
		Write: m.writeReplayComponent,
		Read:  m.readReplayComponent,
	})
}

// ---- inventory (item instances) ----

func (m *Manager) writeInventory(w io.Writer, pool *loot.Pool) error {
	var cur []invRecord
	for i := 0; i < pool.Cap(); i++ {
		it := pool.At(i)
		if it == nil {
			continue
		}
		cur = append(cur, invRecord{
			DefIndex:      int32(it.DefIndex),
			Quantity:      int32(it.Quantity),
			Rarity:        int32(it.Rarity),
			PrefixIndex:   int32(it.PrefixIndex),
			PrefixValue:   int32(it.PrefixValue),
			SuffixIndex:   int32(it.SuffixIndex),
			SuffixValue:   int32(it.SuffixValue),
			DurabilityCur: int32(it.DurabilityCur),
			DurabilityMax: int32(it.DurabilityMax),
			EnchantLevel:  int32(it.EnchantLevel),
		})
	}
	if m.activeWriteVersion >= versionVaruintCounts {
		if err := WriteVaruint(w, uint32(len(cur))); err != nil {
			return err
		}
	} else if err := writeI32(w, int32(len(cur))); err != nil {
		return err
	}
	m.invDiffReused, m.invDiffRewritten = 0, 0
	if m.incrementalEnabled && len(m.invPrevRecords) == len(cur) {
		for i := range cur {
			if m.invPrevRecords[i] == cur[i] {
				m.invDiffReused++
			} else {
				m.invDiffRewritten++
			}
		}
	} else {
		m.invDiffRewritten = uint(len(cur))
	}
	for i := range cur {
		r := &cur[i]
		for _, v := range []int32{r.DefIndex, r.Quantity, r.Rarity, r.PrefixIndex, r.PrefixValue,
			r.SuffixIndex, r.SuffixValue, r.DurabilityCur, r.DurabilityMax, r.EnchantLevel} {
			if err := writeI32(w, v); err != nil {
				return err
			}
		}
	}
	m.invPrevRecords = cur
	return nil
}

func (m *Manager) readInventory(r io.Reader, size int, pool *loot.Pool) error {
	var count int
	countBytes := 0
	if m.activeReadVersion >= versionVaruintCounts {
		c, err := ReadVaruint(r)
		if err != nil {
			return err
		}
		count = int(c)
		v := c
		countBytes = 1
		for v >= 0x80 {
			v >>= 7
			countBytes++
		}
	} else {
		c, err := readI32(r)
		if err != nil {
			return err
		}
		count = int(c)
		countBytes = 4
	}
	if count < 0 {
		return ErrComponentRead
	}
	if count == 0 {
		return nil
	}
	remaining := size - countBytes
	recInts := 0
	switch {
	case remaining >= count*4*10:
		recInts = 10
	case remaining >= count*4*9:
		recInts = 9
	case remaining >= count*4*7:
		recInts = 7
	default:
		return ErrComponentRead
	}
	for i := 0; i < count; i++ {
		vals := make([]int32, recInts)
		for k := 0; k < recInts; k++ {
			v, err := readI32(r)
			if err != nil {
				return err
			}
			vals[k] = v
		}
		slot, err := pool.Spawn(int(vals[0]), int(vals[1]), 0, 0)
		if err != nil {
			continue
		}
		_ = pool.ApplyAffixes(slot, int(vals[2]), int(vals[3]), int(vals[4]), int(vals[5]), int(vals[6]))
		it := pool.At(slot)
		if it == nil {
			continue
		}
		if recInts >= 9 && vals[8] > 0 {
			it.DurabilityMax = int(vals[8])
			it.DurabilityCur = int(vals[7])
			it.Fractured = it.DurabilityMax > 0 && it.DurabilityCur == 0
		}
		if recInts >= 10 && vals[9] > 0 {
			it.EnchantLevel = int(vals[9])
		}
	}
	return nil
}

// ---- inventory entries aggregate ----

func writeInvEntries(w io.Writer, e *inventory.Entries) error {
	type pair struct {
		def    int
		qty    uint64
		labels uint32
	}
	var pairs []pair
	e.ForEach(func(def int, qty uint64, labels uint32) {
		pairs = append(pairs, pair{def, qty, labels})
	})
	sort.Slice(pairs, func(a, b int) bool { return pairs[a].def < pairs[b].def })
	if err := WriteVaruint(w, uint32(len(pairs))); err != nil {
		return err
	}
	for _, p := range pairs {
		if err := writeI32(w, int32(p.def)); err != nil {
			return err
		}
		if err := writeU64(w, p.qty); err != nil {
			return err
		}
		if err := writeU32(w, p.labels); err != nil {
			return err
		}
	}
	return nil
}

func readInvEntries(r io.Reader, e *inventory.Entries) error {
	count, err := ReadVaruint(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		def, err := readI32(r)
		if err != nil {
			return err
		}
		qty, err := readU64(r)
		if err != nil {
			return err
		}
		labels, err := readU32(r)
		if err != nil {
			return err
		}
		if err := e.RegisterPickup(int(def), qty); err != nil {
			continue
		}
		if labels != 0 {
			_ = e.SetLabels(int(def), labels)
		}
	}
	e.ClearDirty()
	return nil
}

// ---- tags ----

func writeInvTags(w io.Writer, t *inventory.Tags) error {
	type rec struct {
		def   int
		flags uint32
		tags  []string
	}
	var recs []rec
	t.ForEach(func(def int, flags uint32, tags []string) {
		recs = append(recs, rec{def, flags, tags})
	})
	sort.Slice(recs, func(a, b int) bool { return recs[a].def < recs[b].def })
	if err := WriteVaruint(w, uint32(len(recs))); err != nil {
		return err
	}
	for _, rc := range recs {
		if err := writeI32(w, int32(rc.def)); err != nil {
			return err
		}
		if err := writeU32(w, rc.flags); err != nil {
			return err
		}
		if _, err := w.Write([]byte{byte(len(rc.tags))}); err != nil {
			return err
		}
		for _, tag := range rc.tags {
			if err := writeShortString(w, tag); err != nil {
				return err
			}
		}
	}
	return nil
}

func readInvTags(r io.Reader, t *inventory.Tags) error {
	t.Reset()
	count, err := ReadVaruint(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		def, err := readI32(r)
		if err != nil {
			return err
		}
		flags, err := readU32(r)
		if err != nil {
			return err
		}
		var n [1]byte
		if _, err := io.ReadFull(r, n[:]); err != nil {
			return err
		}
		if flags != 0 {
			t.SetFlags(int(def), flags)
		}
		for k := byte(0); k < n[0]; k++ {
			tag, err := readShortString(r)
			if err != nil {
				return err
			}
			t.AddTag(int(def), tag)
		}
	}
	return nil
}

// ---- tag rules ----

func writeInvTagRules(w io.Writer, rules *inventory.TagRules) error {
	if err := writeU16(w, uint16(rules.Count())); err != nil {
		return err
	}
	for i := 0; i < rules.Count(); i++ {
		rule := rules.Get(i)
		if _, err := w.Write([]byte{rule.MinRarity, rule.MaxRarity}); err != nil {
			return err
		}
		if err := writeU32(w, rule.CategoryMask); err != nil {
			return err
		}
		if err := writeU32(w, rule.AccentColor); err != nil {
			return err
		}
		if err := writeShortString(w, rule.Tag); err != nil {
			return err
		}
	}
	return nil
}

func readInvTagRules(r io.Reader, rules *inventory.TagRules) error {
	count, err := readU16(r)
	if err != nil {
		return err
	}
	var loaded []inventory.TagRule
	for i := uint16(0); i < count; i++ {
		var rarities [2]byte
		if _, err := io.ReadFull(r, rarities[:]); err != nil {
			return err
		}
		mask, err := readU32(r)
		if err != nil {
			return err
		}
		accent, err := readU32(r)
		if err != nil {
			return err
		}
		tag, err := readShortString(r)
		if err != nil {
			return err
		}
		loaded = append(loaded, inventory.TagRule{
			MinRarity: rarities[0], MaxRarity: rarities[1],
			CategoryMask: mask, AccentColor: accent, Tag: tag,
		})
	}
	rules.Replace(loaded)
	return nil
}

// ---- saved searches ----

func writeSavedSearches(w io.Writer, q *inventory.Query) error {
	if err := writeU32(w, uint32(q.SavedSearchCount())); err != nil {
		return err
	}
	for i := 0; i < q.SavedSearchCount(); i++ {
		s, _ := q.SavedSearchAt(i)
		if err := writeShortString(w, s.Name); err != nil {
			return err
		}
		if err := writeShortString(w, s.Query); err != nil {
			return err
		}
		if err := writeShortString(w, s.SortKeys); err != nil {
			return err
		}
	}
	return nil
}

func readSavedSearches(r io.Reader, q *inventory.Query) error {
	count, err := readU32(r)
	if err != nil {
		return err
	}
	var loaded []inventory.SavedSearch
	for i := uint32(0); i < count; i++ {
		name, err := readShortString(r)
		if err != nil {
			return err
		}
		query, err := readShortString(r)
		if err != nil {
			return err
		}
		sortKeys, err := readShortString(r)
		if err != nil {
			return err
		}
		loaded = append(loaded, inventory.SavedSearch{Name: name, Query: query, SortKeys: sortKeys})
	}
	q.ReplaceSavedSearches(loaded)
	return nil
}

// ---- player / skills / buffs / vendor / world meta / strings ----

func writePlayer(w io.Writer, p *playerstate.Player) error {
	for _, v := range []int32{p.Level, p.XP, p.XPToNext, p.Health, p.Mana, p.ActionPoints,
		p.Strength, p.Dexterity, p.Vitality, p.Intelligence, p.EquipWeapon, p.EquipArmor} {
		if err := writeI32(w, v); err != nil {
			return err
		}
	}
	if err := writeI64(w, p.XPTotalAccum); err != nil {
		return err
	}
	return writeI64(w, p.Gold)
}

func readPlayer(r io.Reader, p *playerstate.Player) error {
	dst := []*int32{&p.Level, &p.XP, &p.XPToNext, &p.Health, &p.Mana, &p.ActionPoints,
		&p.Strength, &p.Dexterity, &p.Vitality, &p.Intelligence, &p.EquipWeapon, &p.EquipArmor}
	for _, d := range dst {
		v, err := readI32(r)
		if err != nil {
			return err
		}
		*d = v
	}
	var err error
	if p.XPTotalAccum, err = readI64(r); err != nil {
		return err
	}
	p.Gold, err = readI64(r)
	return err
}

func writeSkills(w io.Writer, s *playerstate.State) error {
	if err := WriteVaruint(w, uint32(len(s.Skills))); err != nil {
		return err
	}
	for _, sk := range s.Skills {
		for _, v := range []int32{sk.ID, sk.Rank, sk.Charges} {
			if err := writeI32(w, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func readSkills(r io.Reader, s *playerstate.State) error {
	count, err := ReadVaruint(r)
	if err != nil {
		return err
	}
	s.Skills = s.Skills[:0]
	for i := uint32(0); i < count; i++ {
		var sk playerstate.Skill
		if sk.ID, err = readI32(r); err != nil {
			return err
		}
		if sk.Rank, err = readI32(r); err != nil {
			return err
		}
		if sk.Charges, err = readI32(r); err != nil {
			return err
		}
		s.Skills = append(s.Skills, sk)
	}
	return nil
}

func writeBuffs(w io.Writer, s *playerstate.State) error {
	if err := WriteVaruint(w, uint32(len(s.Buffs))); err != nil {
		return err
	}
	for _, b := range s.Buffs {
		for _, v := range []int32{b.ID, b.Magnitude, b.RemainingMs} {
			if err := writeI32(w, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func readBuffs(r io.Reader, s *playerstate.State) error {
	count, err := ReadVaruint(r)
	if err != nil {
		return err
	}
	s.Buffs = s.Buffs[:0]
	for i := uint32(0); i < count; i++ {
		var b playerstate.Buff
		if b.ID, err = readI32(r); err != nil {
			return err
		}
		if b.Magnitude, err = readI32(r); err != nil {
			return err
		}
		if b.RemainingMs, err = readI32(r); err != nil {
			return err
		}
		s.Buffs = append(s.Buffs, b)
	}
	return nil
}

func writeVendor(w io.Writer, s *playerstate.State) error {
	if err := WriteVaruint(w, uint32(len(s.Vendor))); err != nil {
		return err
	}
	for _, v := range s.Vendor {
		for _, f := range []int32{v.DefIndex, v.Quantity, v.Price} {
			if err := writeI32(w, f); err != nil {
				return err
			}
		}
	}
	return nil
}

func readVendor(r io.Reader, s *playerstate.State) error {
	count, err := ReadVaruint(r)
	if err != nil {
		return err
	}
	s.Vendor = s.Vendor[:0]
	for i := uint32(0); i < count; i++ {
		var v playerstate.VendorItem
		if v.DefIndex, err = readI32(r); err != nil {
			return err
		}
		if v.Quantity, err = readI32(r); err != nil {
			return err
		}
		if v.Price, err = readI32(r); err != nil {
			return err
		}
		s.Vendor = append(s.Vendor, v)
	}
	return nil
}

func writeWorldMeta(w io.Writer, s *playerstate.State) error {
	if err := writeU32(w, s.World.WorldSeed); err != nil {
		return err
	}
	if err := writeI32(w, s.World.RegionID); err != nil {
		return err
	}
	if err := writeU64(w, s.World.PlayTimeMs); err != nil {
		return err
	}
	return writeU32(w, s.World.GenVersion)
}

func readWorldMeta(r io.Reader, s *playerstate.State) error {
	var err error
	if s.World.WorldSeed, err = readU32(r); err != nil {
		return err
	}
	if s.World.RegionID, err = readI32(r); err != nil {
		return err
	}
	if s.World.PlayTimeMs, err = readU64(r); err != nil {
		return err
	}
	s.World.GenVersion, err = readU32(r)
	return err
}

func (m *Manager) writeStrings(w io.Writer) error {
	if err := WriteVaruint(w, uint32(len(m.internStrings))); err != nil {
		return err
	}
	for _, s := range m.internStrings {
		if err := WriteVaruint(w, uint32(len(s))); err != nil {
			return err
		}
		if _, err := io.WriteString(w, s); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) readStrings(r io.Reader) error {
	count, err := ReadVaruint(r)
	if err != nil {
		return err
	}
	m.internStrings = m.internStrings[:0]
	for i := uint32(0); i < count; i++ {
		n, err := ReadVaruint(r)
		if err != nil {
			return err
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			return err
		}
		m.internStrings = append(m.internStrings, string(buf))
	}
	return nil
}
