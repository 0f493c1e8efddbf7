package inventory

import (
	"testing"

	"rogue_core/loot"
)

func TestFlagsAndSalvage(t *testing.T) {
	tags := NewTags()
	if !tags.CanSalvage(1) {
		t.Error("untagged def should be salvageable")
	}
	tags.SetFlags(1, FlagFavorite)
	if tags.CanSalvage(1) {
		t.Error("favorite blocks salvage")
	}
	tags.SetFlags(1, FlagLocked)
	if tags.CanSalvage(1) {
		t.Error("locked blocks salvage")
	}
	tags.SetFlags(1, 0)
	if !tags.CanSalvage(1) {
		t.Error("cleared flags should allow salvage")
	}
}

func TestTagLimitAndTruncation(t *testing.T) {
	tags := NewTags()
	for i, tag := range []string{"a", "b", "c", "d"} {
		if !tags.AddTag(7, tag) {
			t.Fatalf("tag %d rejected", i)
		}
	}
	if tags.AddTag(7, "e") {
		t.Error("fifth tag should be rejected")
	}
	if !tags.AddTag(7, "a") {
		t.Error("duplicate tag should be accepted as a no-op")
	}
	long := "this-tag-is-much-longer-than-the-short-limit"
	tags.AddTag(8, long)
	list := tags.List(8)
	if len(list) != 1 || len(list[0]) != 23 {
		t.Errorf("long tag not truncated: %q", list)
	}
}

func TestHasSubstring(t *testing.T) {
	tags := NewTags()
	tags.AddTag(2, "CraftingMat")
	if !tags.HasSubstring(2, "craft") {
		t.Error("case-insensitive substring should match")
	}
	if tags.HasSubstring(2, "weapon") {
		t.Error("unrelated substring matched")
	}
}

func TestAutoTagRules(t *testing.T) {
	defs := loot.NewDefRegistry()
	_, _ = defs.Add(loot.ItemDef{ID: "rare_sword", Name: "Rare Sword", Category: loot.CategoryWeapon, Rarity: 3, StackMax: 1})
	_, _ = defs.Add(loot.ItemDef{ID: "dust", Name: "Dust", Category: loot.CategoryMaterial, Rarity: 0, StackMax: 50})
	defs.BuildIndex()
	tags := NewTags()
	rules := NewTagRules(defs, tags)

	if !rules.Add(TagRule{MinRarity: 3, CategoryMask: 1 << uint(loot.CategoryWeapon), Tag: "keep", AccentColor: 0xFF0000FF}) {
		t.Fatal("rule add failed")
	}
	if !rules.Add(TagRule{MinRarity: 0, Tag: "seen", AccentColor: 0x00FF00FF}) {
		t.Fatal("second rule add failed")
	}

	rules.ApplyDef(0)
	rules.ApplyDef(1)

	if !tags.Has(0, "keep") || !tags.Has(0, "seen") {
		t.Errorf("sword tags = %v", tags.List(0))
	}
	if tags.Has(1, "keep") {
		t.Error("material matched the weapon rule")
	}
	// First rule contributing a non-zero color wins.
	if got := rules.AccentColor(0); got != 0xFF0000FF {
		t.Errorf("sword accent = %#x, want first rule's color", got)
	}
	if got := rules.AccentColor(1); got != 0x00FF00FF {
		t.Errorf("dust accent = %#x, want second rule's color", got)
	}
}

func TestRuleRarityRange(t *testing.T) {
	defs := loot.NewDefRegistry()
	_, _ = defs.Add(loot.ItemDef{ID: "epic", Name: "Epic", Rarity: 3, StackMax: 1})
	defs.BuildIndex()
	tags := NewTags()
	rules := NewTagRules(defs, tags)
	// MaxRarity 2 excludes rarity 3; MaxRarity 0 opens the upper bound.
	rules.Add(TagRule{MinRarity: 0, MaxRarity: 2, Tag: "low"})
	rules.Add(TagRule{MinRarity: 0, MaxRarity: 0, Tag: "any"})
	rules.ApplyDef(0)
	if tags.Has(0, "low") {
		t.Error("rarity 3 matched a max-rarity-2 rule")
	}
	if !tags.Has(0, "any") {
		t.Error("open upper bound rule should match")
	}
}
