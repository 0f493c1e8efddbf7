package gear

import (
	"rogue_core/loot"
	"rogue_core/randgen"
)

// Imbue rolls a new affix into an empty slot, honoring the remaining
// budget. When a catalyst definition is configured, one unit is consumed;
// an empty inventory fails the operation before any mutation.
func (e *Engine) Imbue(slot int, isPrefix bool) (affixIndex, affixValue int, err error) {
	it := e.Pool.At(slot)
	if it == nil {
		return -1, 0, loot.ErrInactiveSlot
	}
	if isPrefix && it.PrefixIndex >= 0 || !isPrefix && it.SuffixIndex >= 0 {
		return -1, 0, ErrSlotOccupied
	}
	cap := loot.BudgetMax(it.ItemLevel, it.Rarity)
	remaining := cap - e.Pool.TotalAffixWeight(slot)
	if remaining <= 0 {
		return -1, 0, ErrNoBudget
	}
	if e.CatalystDef >= 0 {
		if e.Economy == nil || e.Economy.GetCount(e.CatalystDef) <= 0 {
			return -1, 0, ErrMissingCatalyst
		}
	}
	t := loot.AffixSuffix
	if isPrefix {
		t = loot.AffixPrefix
	}
	affixes := e.Pool.Affixes()
	idx := affixes.Roll(t, it.Rarity, &e.rng)
	if idx < 0 {
		return -1, 0, ErrRollFailed
	}
	val := affixes.RollValue(idx, &e.rng)
	if val > remaining {
		val = remaining
	}
	if val <= 0 {
		return -1, 0, ErrNoBudget
	}
	if e.CatalystDef >= 0 {
		e.Economy.Consume(e.CatalystDef, 1)
	}
	if isPrefix {
		it.PrefixIndex, it.PrefixValue = idx, val
	} else {
		it.SuffixIndex, it.SuffixValue = idx, val
	}
	e.markStatsDirty()
	return idx, val, nil
}

// TemperResult reports what a temper attempt did.
type TemperResult struct {
	NewValue int
	Failed   bool
	AtCap    bool
}

// Temper tries to raise an existing affix value by up to intensity within
// the remaining budget. Success chance is 80%; a failed attempt applies
// 5+intensity durability damage. Already-capped affixes are a no-op.
func (e *Engine) Temper(slot int, isPrefix bool, intensity int) (TemperResult, error) {
	var res TemperResult
	if intensity < 1 {
		return res, ErrInvalidIntensity
	}
	it := e.Pool.At(slot)
	if it == nil {
		return res, loot.ErrInactiveSlot
	}
	idx := it.SuffixIndex
	if isPrefix {
		idx = it.PrefixIndex
	}
	if idx < 0 {
		return res, ErrNothingToDo
	}
	cap := loot.BudgetMax(it.ItemLevel, it.Rarity)
	remaining := cap - e.Pool.TotalAffixWeight(slot)
	if isPrefix {
		res.NewValue = it.PrefixValue
	} else {
		res.NewValue = it.SuffixValue
	}
	if remaining <= 0 {
		res.AtCap = true
		return res, nil
	}
	if randgen.LCGRange(&e.rng, 100) >= 80 {
		res.Failed = true
		_, _ = e.Pool.DamageDurability(slot, 5+intensity)
		return res, nil
	}
	gain := intensity
	if gain > remaining {
		gain = remaining
	}
	if isPrefix {
		it.PrefixValue += gain
		res.NewValue = it.PrefixValue
	} else {
		it.SuffixValue += gain
		res.NewValue = it.SuffixValue
	}
	e.markStatsDirty()
	return res, nil
}

// AddSocket adds one socket when below the definition's socket_max.
// Returns the new count; AtCap is signalled by an unchanged count.
func (e *Engine) AddSocket(slot int) (int, error) {
	it := e.Pool.At(slot)
	if it == nil {
		return -1, loot.ErrInactiveSlot
	}
	d := e.Pool.Defs().At(it.DefIndex)
	if d == nil || d.SocketMax <= 0 {
		return -1, loot.ErrOutOfRange
	}
	max := d.SocketMax
	if max > 6 {
		max = 6
	}
	if it.SocketCount >= max {
		return it.SocketCount, nil
	}
	it.SocketCount++
	e.markStatsDirty()
	return it.SocketCount, nil
}

// RerollSockets samples a fresh socket count in [socket_min, socket_max]
// and clears every inserted gem.
func (e *Engine) RerollSockets(slot int) (int, error) {
	it := e.Pool.At(slot)
	if it == nil {
		return -1, loot.ErrInactiveSlot
	}
	d := e.Pool.Defs().At(it.DefIndex)
	if d == nil || d.SocketMax <= 0 || d.SocketMax < d.SocketMin {
		return -1, loot.ErrOutOfRange
	}
	max := d.SocketMax
	if max > 6 {
		max = 6
	}
	min := d.SocketMin
	if min < 0 {
		min = 0
	}
	it.SocketCount = min + randgen.LCGRange(&e.rng, max-min+1)
	if it.SocketCount > 6 {
		it.SocketCount = 6
	}
	for s := range it.Sockets {
		it.Sockets[s] = -1
	}
	e.markStatsDirty()
	return it.SocketCount, nil
}
