package loot

import "rogue_core/config"

// Update advances ground-item lifetimes, despawning entries past the
// per-rarity override (or the default), then runs the stack merge sweep:
// identical (def, rarity) pairs within the merge radius combine up to
// stack_max. The sweep is a plain O(n^2) pass; the cap keeps it cheap.
func (p *Pool) Update(dtMs float32) {
	for i := range p.instances {
		it := &p.instances[i]
		if !it.Active {
			continue
		}
		it.LifeMs += dtMs
		limit := config.ItemDespawnMs
		if p.DespawnOverrideMs != nil {
			if ms := p.DespawnOverrideMs(it.Rarity); ms > 0 {
				limit = ms
			}
		}
		if it.LifeMs >= float32(limit) {
			it.Active = false
			if p.hooks.VFXOnDespawn != nil {
				p.hooks.VFXOnDespawn(i)
			}
			p.notifyMutation(i)
		}
	}
	const r2 = config.ItemStackMergeRadius * config.ItemStackMergeRadius
	for i := range p.instances {
		a := &p.instances[i]
		if !a.Active {
			continue
		}
		for j := i + 1; j < len(p.instances); j++ {
			b := &p.instances[j]
			if !b.Active {
				continue
			}
			if a.DefIndex != b.DefIndex || a.Rarity != b.Rarity {
				continue
			}
			dx := a.X - b.X
			dy := a.Y - b.Y
			if dx*dx+dy*dy > r2 {
				continue
			}
			stackMax := 999999
			if d := p.defs.At(a.DefIndex); d != nil {
				stackMax = d.StackMax
			}
			space := stackMax - a.Quantity
			if space <= 0 {
				continue
			}
			move := b.Quantity
			if move > space {
				move = space
			}
			a.Quantity += move
			b.Quantity -= move
			if b.Quantity <= 0 {
				b.Active = false
				p.notifyMutation(j)
			}
		}
	}
}

// ReapplyFilter recomputes every active item's hidden flag from the loot
// filter hook. With no hook installed every active item is shown.
func (p *Pool) ReapplyFilter() {
	for i := range p.instances {
		it := &p.instances[i]
		if !it.Active {
			continue
		}
		if p.hooks.FilterMatch == nil {
			it.HiddenFilter = false
			continue
		}
		it.HiddenFilter = !p.hooks.FilterMatch(p.defs.At(it.DefIndex))
	}
}
