package loot

import (
	"errors"
	"testing"
)

func testDefs(t *testing.T) *DefRegistry {
	t.Helper()
	r := NewDefRegistry()
	defs := []ItemDef{
		{ID: "long_sword", Name: "Long Sword", Category: CategoryWeapon, StackMax: 1,
			BaseValue: 50, BaseDamageMin: 6, BaseDamageMax: 11, SocketMin: 0, SocketMax: 2},
		{ID: "iron_sword", Name: "Iron Sword", Category: CategoryWeapon, StackMax: 1,
			BaseValue: 30, BaseDamageMin: 4, BaseDamageMax: 8},
		{ID: "arcane_dust", Name: "Arcane Dust", Category: CategoryMaterial, StackMax: 50, BaseValue: 2},
		{ID: "ruby", Name: "Ruby", Category: CategoryGem, StackMax: 10, BaseValue: 40},
		{ID: "leather_vest", Name: "Leather Vest", Category: CategoryArmor, StackMax: 1,
			BaseArmor: 5, SocketMin: 1, SocketMax: 3},
	}
	for _, d := range defs {
		if _, err := r.Add(d); err != nil {
			t.Fatalf("add def %s: %v", d.ID, err)
		}
	}
	r.BuildIndex()
	return r
}

func testAffixes(t *testing.T) *AffixRegistry {
	t.Helper()
	r := NewAffixRegistry()
	affixes := []AffixDef{
		{ID: "sharp", Type: AffixPrefix, Stat: StatDamageFlat, MinValue: 1, MaxValue: 5,
			WeightPerRarity: [5]int{10, 10, 10, 10, 10}},
		{ID: "brutal", Type: AffixPrefix, Stat: StatDamageFlat, MinValue: 3, MaxValue: 9,
			WeightPerRarity: [5]int{0, 0, 5, 10, 10}},
		{ID: "of_agility", Type: AffixSuffix, Stat: StatAgilityFlat, MinValue: 1, MaxValue: 4,
			WeightPerRarity: [5]int{10, 10, 10, 10, 10}},
		{ID: "of_power", Type: AffixSuffix, Stat: StatDamageFlat, MinValue: 2, MaxValue: 6,
			WeightPerRarity: [5]int{0, 5, 10, 10, 10}},
	}
	for _, a := range affixes {
		if _, err := r.Add(a); err != nil {
			t.Fatalf("add affix %s: %v", a.ID, err)
		}
	}
	return r
}

func newTestPool(t *testing.T) *Pool {
	t.Helper()
	return NewPool(testDefs(t), testAffixes(t))
}

func TestSpawnInitializesInstance(t *testing.T) {
	p := newTestPool(t)
	slot, err := p.Spawn(0, 1, 3, 4)
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	it := p.At(slot)
	if it == nil {
		t.Fatal("At returned nil for active slot")
	}
	if it.ItemLevel != 1 {
		t.Errorf("item_level = %d, want 1", it.ItemLevel)
	}
	if it.PrefixIndex != -1 || it.SuffixIndex != -1 {
		t.Errorf("fresh item has affixes: %d/%d", it.PrefixIndex, it.SuffixIndex)
	}
	if it.GUID == 0 {
		t.Error("guid not derived")
	}
	// Weapons get baseline durability 50 + 25*rarity.
	if it.DurabilityMax != 50 || it.DurabilityCur != 50 {
		t.Errorf("durability = %d/%d, want 50/50", it.DurabilityCur, it.DurabilityMax)
	}
	if it.SocketCount < 0 || it.SocketCount > 2 {
		t.Errorf("socket count %d outside def range [0,2]", it.SocketCount)
	}
}

func TestSpawnDeterministicGUIDAndSockets(t *testing.T) {
	p1 := newTestPool(t)
	p2 := newTestPool(t)
	s1, _ := p1.Spawn(0, 1, 3, 4)
	s2, _ := p2.Spawn(0, 1, 3, 4)
	a, b := p1.At(s1), p2.At(s2)
	if a.GUID != b.GUID {
		t.Errorf("guid differs across identical spawns: %d vs %d", a.GUID, b.GUID)
	}
	if a.SocketCount != b.SocketCount {
		t.Errorf("socket count differs: %d vs %d", a.SocketCount, b.SocketCount)
	}
}

func TestGUIDChangesOnSlotReuse(t *testing.T) {
	p := newTestPool(t)
	slot, _ := p.Spawn(0, 1, 0, 0)
	guid1 := p.At(slot).GUID
	if err := p.Despawn(slot); err != nil {
		t.Fatalf("despawn: %v", err)
	}
	slot2, _ := p.Spawn(2, 3, 0, 0)
	if slot2 != slot {
		t.Fatalf("expected slot reuse, got %d then %d", slot, slot2)
	}
	if p.At(slot2).GUID == guid1 {
		t.Error("reused slot kept the old guid")
	}
}

func TestSpawnPoolFull(t *testing.T) {
	p := newTestPool(t)
	for {
		_, err := p.Spawn(2, 1, 0, 0)
		if err != nil {
			if !errors.Is(err, ErrPoolFull) {
				t.Fatalf("expected ErrPoolFull, got %v", err)
			}
			break
		}
	}
	if p.ActiveCount() != p.Cap() {
		t.Errorf("active = %d, want cap %d", p.ActiveCount(), p.Cap())
	}
}

func TestBudgetMax(t *testing.T) {
	cases := []struct {
		level, rarity, want int
	}{
		{1, 0, 25},
		{1, 3, 115},
		{10, 4, 230},
		{0, -1, 25}, // clamped to level 1 rarity 0
	}
	for _, c := range cases {
		if got := BudgetMax(c.level, c.rarity); got != c.want {
			t.Errorf("BudgetMax(%d,%d) = %d, want %d", c.level, c.rarity, got, c.want)
		}
	}
}

func TestGenerateAffixesRarityRule(t *testing.T) {
	p := newTestPool(t)

	// Rarity 3+: both slots roll.
	slot, _ := p.Spawn(0, 1, 0, 0)
	rng := uint32(777)
	if err := p.GenerateAffixes(slot, &rng, 3); err != nil {
		t.Fatalf("generate: %v", err)
	}
	it := p.At(slot)
	if it.PrefixIndex < 0 || it.SuffixIndex < 0 {
		t.Errorf("rarity 3 should fill both slots: %d/%d", it.PrefixIndex, it.SuffixIndex)
	}

	// Rarity 1: no affixes.
	slot2, _ := p.Spawn(1, 1, 0, 0)
	rng2 := uint32(42)
	_ = p.GenerateAffixes(slot2, &rng2, 1)
	it2 := p.At(slot2)
	if it2.PrefixIndex != -1 || it2.SuffixIndex != -1 {
		t.Errorf("rarity 1 rolled affixes: %d/%d", it2.PrefixIndex, it2.SuffixIndex)
	}

	// Rarity 2: exactly one slot.
	slot3, _ := p.Spawn(0, 1, 0, 0)
	rng3 := uint32(99)
	_ = p.GenerateAffixes(slot3, &rng3, 2)
	it3 := p.At(slot3)
	have := 0
	if it3.PrefixIndex >= 0 {
		have++
	}
	if it3.SuffixIndex >= 0 {
		have++
	}
	if have != 1 {
		t.Errorf("rarity 2 should fill exactly one slot, filled %d", have)
	}
}

func TestGenerateAffixesDeterministic(t *testing.T) {
	p1 := newTestPool(t)
	p2 := newTestPool(t)
	s1, _ := p1.Spawn(0, 1, 0, 0)
	s2, _ := p2.Spawn(0, 1, 0, 0)
	r1, r2 := uint32(777), uint32(777)
	_ = p1.GenerateAffixes(s1, &r1, 3)
	_ = p2.GenerateAffixes(s2, &r2, 3)
	a, b := p1.At(s1), p2.At(s2)
	if a.PrefixIndex != b.PrefixIndex || a.PrefixValue != b.PrefixValue ||
		a.SuffixIndex != b.SuffixIndex || a.SuffixValue != b.SuffixValue {
		t.Errorf("affix roll not deterministic: (%d,%d,%d,%d) vs (%d,%d,%d,%d)",
			a.PrefixIndex, a.PrefixValue, a.SuffixIndex, a.SuffixValue,
			b.PrefixIndex, b.PrefixValue, b.SuffixIndex, b.SuffixValue)
	}
	if r1 != r2 {
		t.Errorf("rng state diverged: %d vs %d", r1, r2)
	}
}

func TestBudgetClampReducesLargerFirst(t *testing.T) {
	p := newTestPool(t)
	slot, _ := p.Spawn(0, 1, 0, 0)
	it := p.At(slot)
	it.Rarity = 0 // budget = 25
	_ = p.ApplyAffixes(slot, 0, 0, 20, 2, 15)
	p.clampBudget(it)
	if total := p.TotalAffixWeight(slot); total > BudgetMax(1, 0) {
		t.Errorf("clamp left total %d over budget %d", total, BudgetMax(1, 0))
	}
	if it.PrefixValue < it.SuffixValue-1 {
		t.Errorf("larger value should be reduced first: prefix=%d suffix=%d", it.PrefixValue, it.SuffixValue)
	}
}

func TestUpgradeLevelLiftsAffixes(t *testing.T) {
	p := newTestPool(t)
	slot, _ := p.Spawn(0, 1, 0, 0)
	_ = p.ApplyAffixes(slot, 0, 0, 10, 2, 10)
	rng := uint32(5)
	if err := p.UpgradeLevel(slot, 3, &rng); err != nil {
		t.Fatalf("upgrade: %v", err)
	}
	it := p.At(slot)
	if it.ItemLevel != 4 {
		t.Errorf("item_level = %d, want 4", it.ItemLevel)
	}
	total := p.TotalAffixWeight(slot)
	if total != BudgetMax(4, 0) {
		t.Errorf("upgrade walk stopped at %d, want budget %d", total, BudgetMax(4, 0))
	}
}

func TestUpgradeLevelCap(t *testing.T) {
	p := newTestPool(t)
	slot, _ := p.Spawn(0, 1, 0, 0)
	rng := uint32(1)
	_ = p.UpgradeLevel(slot, 5000, &rng)
	if got := p.At(slot).ItemLevel; got != 999 {
		t.Errorf("item_level = %d, want 999 cap", got)
	}
}

func TestDurabilityFracture(t *testing.T) {
	p := newTestPool(t)
	slot, _ := p.Spawn(0, 1, 0, 0)
	cur, err := p.DamageDurability(slot, 49)
	if err != nil || cur != 1 {
		t.Fatalf("damage: cur=%d err=%v, want 1", cur, err)
	}
	if p.At(slot).Fractured {
		t.Error("fractured before reaching zero")
	}
	cur, _ = p.DamageDurability(slot, 10)
	if cur != 0 || !p.At(slot).Fractured {
		t.Errorf("cur=%d fractured=%v, want 0/true", cur, p.At(slot).Fractured)
	}
	cur, _ = p.RepairFull(slot)
	if cur != 50 || p.At(slot).Fractured {
		t.Errorf("repair: cur=%d fractured=%v, want 50/false", cur, p.At(slot).Fractured)
	}
}

func TestFracturedDamagePenalty(t *testing.T) {
	p := newTestPool(t)
	slot, _ := p.Spawn(0, 1, 0, 0)
	full := p.DamageMin(slot)
	_, _ = p.DamageDurability(slot, 100)
	reduced := p.DamageMin(slot)
	if reduced >= full {
		t.Errorf("fractured damage %d not below full %d", reduced, full)
	}
}

func TestQualityClampAndScale(t *testing.T) {
	p := newTestPool(t)
	slot, _ := p.Spawn(0, 1, 0, 0)
	if q, _ := p.SetQuality(slot, 35); q != 20 {
		t.Errorf("SetQuality(35) = %d, want 20", q)
	}
	if q, _ := p.ImproveQuality(slot, -50); q != 0 {
		t.Errorf("ImproveQuality floor = %d, want 0", q)
	}
	_, _ = p.SetQuality(slot, 20)
	if got, base := p.DamageMin(slot), 6; got <= base {
		t.Errorf("quality 20 damage %d should exceed base %d", got, base)
	}
}

func TestSocketInsertRemove(t *testing.T) {
	p := newTestPool(t)
	// leather_vest: socket range [1,3], so count >= 1.
	slot, _ := p.Spawn(4, 1, 0, 0)
	if p.SocketCount(slot) < 1 {
		t.Fatalf("socket count %d, want >= 1", p.SocketCount(slot))
	}
	if err := p.SocketInsert(slot, 0, 3); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := p.SocketInsert(slot, 0, 3); !errors.Is(err, ErrSlotOccupied) {
		t.Errorf("double insert = %v, want ErrSlotOccupied", err)
	}
	if err := p.SocketInsert(slot, 0, -1); !errors.Is(err, ErrInvalidSlot) {
		t.Errorf("negative gem = %v, want ErrInvalidSlot", err)
	}
	if gem, _ := p.GetSocket(slot, 0); gem != 3 {
		t.Errorf("socket 0 = %d, want 3", gem)
	}
	if err := p.SocketRemove(slot, 0); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := p.SocketRemove(slot, 0); !errors.Is(err, ErrSlotEmpty) {
		t.Errorf("double remove = %v, want ErrSlotEmpty", err)
	}
}

func TestUpdateDespawnAndMerge(t *testing.T) {
	p := newTestPool(t)
	// Two dust stacks at the same spot merge up to stack_max.
	a, _ := p.Spawn(2, 30, 1, 1)
	b, _ := p.Spawn(2, 30, 1, 1)
	p.Update(1)
	if got := p.At(a).Quantity; got != 50 {
		t.Errorf("merged quantity = %d, want 50 (stack_max)", got)
	}
	if it := p.At(b); it == nil {
		t.Error("partial donor should stay active with remainder")
	} else if it.Quantity != 10 {
		t.Errorf("donor remainder = %d, want 10", it.Quantity)
	}

	// Despawn after the default lifetime.
	p.Update(1e9)
	if p.ActiveCount() != 0 {
		t.Errorf("items survived despawn sweep: %d", p.ActiveCount())
	}
}

func TestReapplyFilter(t *testing.T) {
	p := newTestPool(t)
	slot, _ := p.Spawn(0, 1, 0, 0)
	p.SetHooks(PoolHooks{FilterMatch: func(def *ItemDef) bool { return def.Category != CategoryWeapon }})
	p.ReapplyFilter()
	if !p.At(slot).HiddenFilter {
		t.Error("weapon should be hidden by filter")
	}
	if p.VisibleCount() != 0 {
		t.Errorf("visible = %d, want 0", p.VisibleCount())
	}
}

func TestEquipChainAdvances(t *testing.T) {
	p := newTestPool(t)
	slot, _ := p.Spawn(0, 1, 0, 0)
	_ = p.UpdateEquipChain(slot, 1)
	h1 := p.At(slot).EquipHashChain
	_ = p.UpdateEquipChain(slot, 2)
	if p.At(slot).EquipHashChain == h1 || h1 == 0 {
		t.Error("equip chain should advance on each transition")
	}
}
