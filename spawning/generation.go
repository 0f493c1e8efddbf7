package spawning

import (
	"rogue_core/loot"
	"rogue_core/randgen"
)

// GenerationContext folds the drop circumstances into the RNG stream so the
// same kill in the same place produces the same item.
type GenerationContext struct {
	EnemyLevel     int
	BiomeID        int
	EnemyArchetype int
	PlayerLuck     int
}

// GeneratedItem reports the outcome of one pipeline run.
type GeneratedItem struct {
	DefIndex  int
	Rarity    int
	InstIndex int
}

// Generator is the loot generation pipeline: context seed mixing, table
// roll, rarity floors, instance spawn, and gated affix generation.
type Generator struct {
	Tables *LootTables
	Rarity *RarityState
	Pool   *loot.Pool

	qualityScalarMin float32
	qualityScalarMax float32
}

// NewGenerator wires a pipeline over the given registries.
func NewGenerator(tables *LootTables, rarity *RarityState, pool *loot.Pool) *Generator {
	return &Generator{Tables: tables, Rarity: rarity, Pool: pool, qualityScalarMin: 1, qualityScalarMax: 1}
}

// SetQualityScalar configures the global quality scaling window consumed by
// scaled value rolls.
func (g *Generator) SetQualityScalar(min, max float32) {
	if min < 0.1 {
		min = 0.1
	}
	if max < min {
		max = min
	}
	g.qualityScalarMin = min
	g.qualityScalarMax = max
}

// QualityScalar returns the configured (min, max) window.
func (g *Generator) QualityScalar() (float32, float32) {
	return g.qualityScalarMin, g.qualityScalarMax
}

// MixSeed folds the generation context into the base seed. The constants
// are load-bearing: saved seeds reproduce drops only while this exact
// sequence is preserved.
func MixSeed(ctx *GenerationContext, baseSeed uint32) uint32 {
	h := baseSeed*636413622 + 1442695043
	if ctx != nil {
		h ^= uint32(ctx.EnemyLevel*97) + 0x9e3779b9
		h = h*1664525 + 1013904223
		h ^= uint32(ctx.BiomeID*131) + 0x85ebca6b
		h = h*22695477 + 1
		h ^= uint32(ctx.EnemyArchetype*181) + 0xc2b2ae35
		h ^= uint32(ctx.PlayerLuck*211) + 0x27d4eb2f
	}
	return h
}

// GatedAffixRoll performs the generation-time affix pick: candidates are
// filtered by the base item's category (damage_flat only on weapons,
// agility_flat on weapon/armor/gem, stat-less affixes always pass), by the
// other slot's chosen index to keep prefix != suffix, and by a positive
// weight at the rarity. Returns -1 when nothing survives; callers treat
// that as an empty slot, not a failure.
func GatedAffixRoll(affixes *loot.AffixRegistry, t loot.AffixType, rarity int, rng *uint32,
	baseDef *loot.ItemDef, existingPrefix, existingSuffix int) int {
	if rng == nil || rarity < 0 || rarity > 4 {
		return -1
	}
	var indices []int
	var weights []int
	total := 0
	for i := 0; i < affixes.Count(); i++ {
		a := affixes.At(i)
		if a.Type != t {
			continue
		}
		allowed := false
		if baseDef != nil {
			switch a.Stat {
			case loot.StatDamageFlat:
				allowed = baseDef.Category == loot.CategoryWeapon
			case loot.StatAgilityFlat:
				allowed = baseDef.Category == loot.CategoryWeapon ||
					baseDef.Category == loot.CategoryArmor ||
					baseDef.Category == loot.CategoryGem
			case loot.StatNone:
				allowed = true
			}
		}
		if !allowed {
			continue
		}
		if i == existingPrefix || i == existingSuffix {
			continue
		}
		w := a.WeightPerRarity[rarity]
		if w <= 0 {
			continue
		}
		indices = append(indices, i)
		weights = append(weights, w)
		total += w
	}
	if total <= 0 || len(indices) == 0 {
		return -1
	}
	pick := randgen.LCGRange(rng, total)
	acc := 0
	for k := range indices {
		acc += weights[k]
		if pick < acc {
			return indices[k]
		}
	}
	return indices[len(indices)-1]
}

// GenerateItem runs the full pipeline for one drop: mix the context into
// the caller's rng state, roll the table, apply the enemy-level and global
// rarity floors, spawn the instance, and roll gated deduplicated affixes.
// The mixed seed replaces *rng on return so subsequent calls observe it.
func (g *Generator) GenerateItem(tableIndex int, ctx *GenerationContext, rng *uint32, x, y float32) (GeneratedItem, error) {
	out := GeneratedItem{DefIndex: -1, Rarity: -1, InstIndex: -1}
	if rng == nil || tableIndex < 0 {
		return out, loot.ErrInvalidSlot
	}
	local := MixSeed(ctx, *rng)
	drops := g.Tables.Roll(tableIndex, &local, 4)
	if len(drops) == 0 {
		*rng = local
		return out, loot.ErrSlotEmpty
	}
	out.DefIndex = drops[0].DefIndex
	rarity := drops[0].Rarity
	if rarity < 0 {
		if d := g.Pool.Defs().At(out.DefIndex); d != nil {
			rarity = d.Rarity
		} else {
			rarity = 0
		}
	}
	if ctx != nil {
		levelFloor := ctx.EnemyLevel / 10
		if levelFloor > 2 {
			levelFloor = 2
		}
		if levelFloor > 0 && rarity < levelFloor {
			rarity = levelFloor
		}
	}
	if floor := g.Rarity.MinFloor(); floor >= 0 && rarity < floor {
		rarity = floor
	}
	out.Rarity = rarity

	inst, err := g.Pool.Spawn(out.DefIndex, drops[0].Quantity, x, y)
	if err == nil {
		out.InstIndex = inst
		affixSeed := local ^ 0xA5A5A5A5
		g.generateGatedAffixes(inst, &affixSeed, rarity)
	}
	*rng = local
	return out, nil
}

// generateGatedAffixes mirrors the pool's rarity rule but uses the gated,
// dedup-aware roll for each slot.
func (g *Generator) generateGatedAffixes(slot int, rng *uint32, rarity int) {
	it := g.Pool.At(slot)
	if it == nil {
		return
	}
	baseDef := g.Pool.Defs().At(it.DefIndex)
	affixes := g.Pool.Affixes()
	wantPrefix, wantSuffix := false, false
	if rarity >= 2 {
		if rarity >= 3 {
			wantPrefix, wantSuffix = true, true
		} else {
			wantPrefix = (*rng)&1 == 0
			wantSuffix = !wantPrefix
		}
	}
	pidx, pval, sidx, sval := -1, 0, -1, 0
	if wantPrefix {
		if pi := GatedAffixRoll(affixes, loot.AffixPrefix, rarity, rng, baseDef, -1, -1); pi >= 0 {
			pidx = pi
			pval = affixes.RollValue(pi, rng)
		}
	}
	if wantSuffix {
		if si := GatedAffixRoll(affixes, loot.AffixSuffix, rarity, rng, baseDef, pidx, -1); si >= 0 {
			sidx = si
			sval = affixes.RollValue(si, rng)
		}
	}
	_ = g.Pool.ApplyAffixes(slot, rarity, pidx, pval, sidx, sval)
	// Clamp through the pool's budget rule by re-validating; the apply path
	// trusts values, so run the same reduction the generator guarantees.
	if g.Pool.ValidateBudget(slot) != nil {
		itm := g.Pool.At(slot)
		clampGenerated(itm)
	}
}

func clampGenerated(it *loot.ItemInstance) {
	if it == nil {
		return
	}
	cap := loot.BudgetMax(it.ItemLevel, it.Rarity)
	total := 0
	if it.PrefixIndex >= 0 {
		total += it.PrefixValue
	}
	if it.SuffixIndex >= 0 {
		total += it.SuffixValue
	}
	for total > cap {
		reducePrefix := false
		switch {
		case it.PrefixIndex >= 0 && it.SuffixIndex >= 0:
			reducePrefix = it.PrefixValue >= it.SuffixValue
		case it.PrefixIndex >= 0:
			reducePrefix = true
		}
		if reducePrefix && it.PrefixIndex >= 0 && it.PrefixValue > 0 {
			it.PrefixValue--
			total--
		} else if it.SuffixIndex >= 0 && it.SuffixValue > 0 {
			it.SuffixValue--
			total--
		} else {
			break
		}
	}
}
