package gear

import "rogue_core/loot"

// ExtractAffix moves one affix from the source item into an orb item's
// storage. The orb must be empty and distinct from the source.
func (e *Engine) ExtractAffix(sourceSlot int, isPrefix bool, orbSlot int) error {
	if sourceSlot == orbSlot {
		return ErrSameSlot
	}
	src := e.Pool.At(sourceSlot)
	orb := e.Pool.At(orbSlot)
	if src == nil || orb == nil {
		return loot.ErrInactiveSlot
	}
	if orb.StoredAffixIndex >= 0 {
		return ErrOrbOccupied
	}
	idx, val := &src.SuffixIndex, &src.SuffixValue
	if isPrefix {
		idx, val = &src.PrefixIndex, &src.PrefixValue
	}
	if *idx < 0 {
		return ErrNothingToExtract
	}
	orb.StoredAffixIndex = *idx
	orb.StoredAffixValue = *val
	orb.StoredAffixUsed = false
	*idx, *val = -1, 0
	e.markStatsDirty()
	return nil
}

// ApplyOrb applies the orb's stored affix to the target. The affix goes to
// its type-matching slot; when that slot is occupied it falls back to the
// vacant alternate slot. The value is clamped to the target's remaining
// budget and the orb becomes used (one-shot).
func (e *Engine) ApplyOrb(orbSlot, targetSlot int) error {
	if orbSlot == targetSlot {
		return ErrSameSlot
	}
	orb := e.Pool.At(orbSlot)
	tgt := e.Pool.At(targetSlot)
	if orb == nil || tgt == nil {
		return loot.ErrInactiveSlot
	}
	if orb.StoredAffixIndex < 0 {
		return ErrNoStoredAffix
	}
	if orb.StoredAffixUsed {
		return ErrOrbUsed
	}
	a := e.Pool.Affixes().At(orb.StoredAffixIndex)
	if a == nil {
		return ErrNoStoredAffix
	}
	slotIdx, slotVal := &tgt.SuffixIndex, &tgt.SuffixValue
	altIdx, altVal := &tgt.PrefixIndex, &tgt.PrefixValue
	if a.Type == loot.AffixPrefix {
		slotIdx, slotVal, altIdx, altVal = &tgt.PrefixIndex, &tgt.PrefixValue, &tgt.SuffixIndex, &tgt.SuffixValue
	}
	allowed := loot.BudgetMax(tgt.ItemLevel, tgt.Rarity) - e.Pool.TotalAffixWeight(targetSlot)
	if *slotIdx >= 0 {
		if *altIdx >= 0 {
			return ErrBothSlotsOccupied
		}
		if allowed <= 0 {
			return ErrNoBudgetHeadroom
		}
		v := orb.StoredAffixValue
		if v > allowed {
			v = allowed
		}
		*altIdx, *altVal = orb.StoredAffixIndex, v
	} else {
		if allowed <= 0 {
			return ErrNoBudgetHeadroom
		}
		v := orb.StoredAffixValue
		if v > allowed {
			v = allowed
		}
		*slotIdx, *slotVal = orb.StoredAffixIndex, v
	}
	orb.StoredAffixUsed = true
	e.markStatsDirty()
	return nil
}

// Fusion transfers the highest-value affix from the sacrifice that fits a
// vacant matching slot on the target, clamped to budget headroom. The
// sacrifice is deactivated on success.
func (e *Engine) Fusion(targetSlot, sacrificeSlot int) error {
	if targetSlot == sacrificeSlot {
		return ErrSameSlot
	}
	tgt := e.Pool.At(targetSlot)
	if tgt == nil {
		return loot.ErrInactiveSlot
	}
	sac := e.Pool.At(sacrificeSlot)
	if sac == nil {
		return ErrInactiveSacrifice
	}
	type cand struct {
		idx, val int
		isPrefix bool
	}
	var cands []cand
	if sac.PrefixIndex >= 0 {
		cands = append(cands, cand{sac.PrefixIndex, sac.PrefixValue, true})
	}
	if sac.SuffixIndex >= 0 {
		cands = append(cands, cand{sac.SuffixIndex, sac.SuffixValue, false})
	}
	if len(cands) == 0 {
		return ErrNothingToTransfer
	}
	allowed := loot.BudgetMax(tgt.ItemLevel, tgt.Rarity) - e.Pool.TotalAffixWeight(targetSlot)
	if allowed <= 0 {
		return ErrNoBudgetHeadroom
	}
	best := -1
	for i, c := range cands {
		occupied := tgt.SuffixIndex >= 0
		if c.isPrefix {
			occupied = tgt.PrefixIndex >= 0
		}
		if occupied {
			continue
		}
		if best < 0 || c.val > cands[best].val {
			best = i
		}
	}
	if best < 0 {
		return ErrBothSlotsOccupied
	}
	v := cands[best].val
	if v > allowed {
		v = allowed
	}
	if v <= 0 {
		return ErrNoBudgetHeadroom
	}
	if cands[best].isPrefix {
		tgt.PrefixIndex, tgt.PrefixValue = cands[best].idx, v
	} else {
		tgt.SuffixIndex, tgt.SuffixValue = cands[best].idx, v
	}
	sac.Active = false
	e.markStatsDirty()
	return nil
}

// UpgradeStone raises the item level by tiers through the pool's upgrade
// walk, advancing the engine's sequential stream.
func (e *Engine) UpgradeStone(slot, tiers int) error {
	if tiers <= 0 {
		return nil
	}
	if err := e.Pool.UpgradeLevel(slot, tiers, &e.rng); err != nil {
		return err
	}
	e.markStatsDirty()
	return nil
}
