package gear

import (
	"rogue_core/loot"
)

// enchantCost is the gold cost formula shared by enchant and reforge.
func enchantCost(itemLevel, rarity, sockets int) int {
	if itemLevel < 1 {
		itemLevel = 1
	}
	if rarity < 0 {
		rarity = 0
	}
	if rarity > 4 {
		rarity = 4
	}
	if sockets < 0 {
		sockets = 0
	}
	return 50 + itemLevel*5 + rarity*rarity*25 + 10*sockets
}

func reforgeCost(itemLevel, rarity, sockets int) int {
	return enchantCost(itemLevel, rarity, sockets) * 2
}

func (e *Engine) rerollAffix(idx, val *int, t loot.AffixType, rarity int, rng *uint32) {
	*idx, *val = -1, 0
	affixes := e.Pool.Affixes()
	if i := affixes.Roll(t, rarity, rng); i >= 0 {
		*idx = i
		*val = affixes.RollValue(i, rng)
	}
}

// Enchant rerolls the selected existing affixes. Cost is deducted up front;
// rerolling both slots additionally consumes one enchant_orb. The stream is
// derived from the slot and item level so the result is reproducible.
func (e *Engine) Enchant(slot int, rerollPrefix, rerollSuffix bool) (cost int, err error) {
	it := e.Pool.At(slot)
	if it == nil {
		return 0, loot.ErrInactiveSlot
	}
	if !rerollPrefix && !rerollSuffix {
		return 0, ErrNothingToDo
	}
	hasPrefix := it.PrefixIndex >= 0
	hasSuffix := it.SuffixIndex >= 0
	if (!rerollPrefix || !hasPrefix) && (!rerollSuffix || !hasSuffix) {
		return 0, ErrNothingToDo
	}
	rng := uint32(slot)*2654435761 ^ uint32(it.ItemLevel) ^ 0xBEEF1234
	cost = enchantCost(it.ItemLevel, it.Rarity, it.SocketCount)
	e.resolveMaterials()
	needMat := rerollPrefix && rerollSuffix
	if e.gold() < cost {
		return 0, ErrInsufficientGold
	}
	if needMat {
		if e.enchantOrbDef < 0 || e.Economy == nil || e.Economy.GetCount(e.enchantOrbDef) <= 0 {
			return 0, ErrMissingCatalyst
		}
	}
	e.Economy.AddGold(-cost)
	if needMat {
		e.Economy.Consume(e.enchantOrbDef, 1)
	}
	if rerollPrefix && hasPrefix {
		e.rerollAffix(&it.PrefixIndex, &it.PrefixValue, loot.AffixPrefix, it.Rarity, &rng)
	}
	if rerollSuffix && hasSuffix {
		e.rerollAffix(&it.SuffixIndex, &it.SuffixValue, loot.AffixSuffix, it.Rarity, &rng)
	}
	if err := e.Pool.ValidateBudget(slot); err != nil {
		clampToBudget(it)
	}
	e.markStatsDirty()
	return cost, nil
}

// Reforge wipes both affixes and rerolls per the generation rarity rule,
// clearing inserted gems but preserving socket count and quality. Costs
// twice the enchant formula and consumes one reforge_hammer.
func (e *Engine) Reforge(slot int) (cost int, err error) {
	it := e.Pool.At(slot)
	if it == nil {
		return 0, loot.ErrInactiveSlot
	}
	rng := uint32(slot)*0x7F4A7C15 ^ uint32(it.ItemLevel) ^ 0xC0FFEE
	e.resolveMaterials()
	cost = reforgeCost(it.ItemLevel, it.Rarity, it.SocketCount)
	if e.gold() < cost {
		return 0, ErrInsufficientGold
	}
	if e.reforgeHammerDef < 0 || e.Economy == nil || e.Economy.GetCount(e.reforgeHammerDef) <= 0 {
		return 0, ErrMissingCatalyst
	}
	e.Economy.AddGold(-cost)
	e.Economy.Consume(e.reforgeHammerDef, 1)

	it.PrefixIndex, it.PrefixValue = -1, 0
	it.SuffixIndex, it.SuffixValue = -1, 0
	rarity := it.Rarity
	if rarity >= 2 {
		if rarity >= 3 {
			e.rerollAffix(&it.PrefixIndex, &it.PrefixValue, loot.AffixPrefix, rarity, &rng)
			e.rerollAffix(&it.SuffixIndex, &it.SuffixValue, loot.AffixSuffix, rarity, &rng)
		} else if rng&1 == 0 {
			e.rerollAffix(&it.PrefixIndex, &it.PrefixValue, loot.AffixPrefix, rarity, &rng)
		} else {
			e.rerollAffix(&it.SuffixIndex, &it.SuffixValue, loot.AffixSuffix, rarity, &rng)
		}
	}
	for s := 0; s < it.SocketCount && s < 6; s++ {
		it.Sockets[s] = -1
	}
	if err := e.Pool.ValidateBudget(slot); err != nil {
		clampToBudget(it)
	}
	e.markStatsDirty()
	return cost, nil
}

// clampToBudget reduces the larger affix first until the total fits.
func clampToBudget(it *loot.ItemInstance) {
	cap := loot.BudgetMax(it.ItemLevel, it.Rarity)
	total := 0
	if it.PrefixIndex >= 0 {
		total += it.PrefixValue
	}
	if it.SuffixIndex >= 0 {
		total += it.SuffixValue
	}
	for total > cap {
		if it.PrefixIndex >= 0 && (it.SuffixIndex < 0 || it.PrefixValue >= it.SuffixValue) && it.PrefixValue > 0 {
			it.PrefixValue--
		} else if it.SuffixIndex >= 0 && it.SuffixValue > 0 {
			it.SuffixValue--
		} else {
			break
		}
		total--
	}
}
