package loot

import "math"

// applyQualityScale adds the quality bonus to a base stat. Quality is
// linear 0..20 worth up to +12%, computed with a ceil and a tiny epsilon so
// exact boundaries still round up.
func applyQualityScale(base, quality int) int {
	if quality <= 0 {
		return base
	}
	if quality > 20 {
		quality = 20
	}
	delta := int(math.Ceil(float64(base)*float64(quality)*0.006 + 1e-6))
	if delta < 0 {
		delta = 0
	}
	return base + delta
}

func (p *Pool) affixDamageBonus(it *ItemInstance) int {
	bonus := 0
	if it.PrefixIndex >= 0 {
		if a := p.affixes.At(it.PrefixIndex); a != nil && a.Stat == StatDamageFlat {
			bonus += it.PrefixValue
		}
	}
	if it.SuffixIndex >= 0 {
		if a := p.affixes.At(it.SuffixIndex); a != nil && a.Stat == StatDamageFlat {
			bonus += it.SuffixValue
		}
	}
	return bonus
}

func (p *Pool) damageStat(slot int, base func(*ItemDef) int) int {
	it := p.At(slot)
	if it == nil {
		return 0
	}
	b := 0
	if d := p.defs.At(it.DefIndex); d != nil {
		b = base(d)
	}
	b = applyQualityScale(b, it.Quality)
	val := b + p.affixDamageBonus(it)
	if it.Fractured {
		val = int(float32(val) * 0.6)
	}
	return val
}

// DamageMin returns the effective minimum damage including quality scaling,
// flat damage affixes, and the fractured penalty.
func (p *Pool) DamageMin(slot int) int {
	return p.damageStat(slot, func(d *ItemDef) int { return d.BaseDamageMin })
}

// DamageMax returns the effective maximum damage.
func (p *Pool) DamageMax(slot int) int {
	return p.damageStat(slot, func(d *ItemDef) int { return d.BaseDamageMax })
}

// Durability returns (cur, max) for the slot.
func (p *Pool) Durability(slot int) (int, int, error) {
	it := p.At(slot)
	if it == nil {
		return 0, 0, ErrInactiveSlot
	}
	return it.DurabilityCur, it.DurabilityMax, nil
}

// DamageDurability subtracts durability, clamping at zero and setting the
// fractured flag when it lands there. Returns the remaining durability.
func (p *Pool) DamageDurability(slot, amount int) (int, error) {
	it := p.mut(slot)
	if it == nil {
		return 0, ErrInactiveSlot
	}
	if amount <= 0 || it.DurabilityMax <= 0 {
		return it.DurabilityCur, nil
	}
	it.DurabilityCur -= amount
	if it.DurabilityCur < 0 {
		it.DurabilityCur = 0
	}
	if it.DurabilityCur == 0 {
		it.Fractured = true
	}
	p.notifyMutation(slot)
	return it.DurabilityCur, nil
}

// RepairFull restores durability and clears the fractured flag.
func (p *Pool) RepairFull(slot int) (int, error) {
	it := p.mut(slot)
	if it == nil {
		return 0, ErrInactiveSlot
	}
	if it.DurabilityMax <= 0 {
		return 0, nil
	}
	it.DurabilityCur = it.DurabilityMax
	it.Fractured = false
	p.notifyMutation(slot)
	return it.DurabilityCur, nil
}

// GetQuality returns the slot's quality, or -1 when inactive.
func (p *Pool) GetQuality(slot int) int {
	it := p.At(slot)
	if it == nil {
		return -1
	}
	return it.Quality
}

// SetQuality clamps into [0,20] and returns the stored value.
func (p *Pool) SetQuality(slot, quality int) (int, error) {
	it := p.mut(slot)
	if it == nil {
		return -1, ErrInactiveSlot
	}
	if quality < 0 {
		quality = 0
	}
	if quality > 20 {
		quality = 20
	}
	it.Quality = quality
	p.notifyMutation(slot)
	return it.Quality, nil
}

// ImproveQuality adjusts quality by delta, clamped into [0,20].
func (p *Pool) ImproveQuality(slot, delta int) (int, error) {
	it := p.mut(slot)
	if it == nil {
		return -1, ErrInactiveSlot
	}
	q := it.Quality + delta
	if q < 0 {
		q = 0
	}
	if q > 20 {
		q = 20
	}
	it.Quality = q
	p.notifyMutation(slot)
	return it.Quality, nil
}

// SocketCount returns the rolled socket count, or -1 when inactive.
func (p *Pool) SocketCount(slot int) int {
	it := p.At(slot)
	if it == nil {
		return -1
	}
	return it.SocketCount
}

// GetSocket returns the gem def index in a socket, -1 when empty.
func (p *Pool) GetSocket(slot, socket int) (int, error) {
	it := p.At(slot)
	if it == nil {
		return -1, ErrInactiveSlot
	}
	if socket < 0 || socket >= it.SocketCount || socket >= 6 {
		return -1, ErrOutOfRange
	}
	return it.Sockets[socket], nil
}

// SocketInsert places a gem def into an empty socket.
func (p *Pool) SocketInsert(slot, socket, gemDefIndex int) error {
	if gemDefIndex < 0 {
		return ErrInvalidSlot
	}
	it := p.mut(slot)
	if it == nil {
		return ErrInactiveSlot
	}
	if socket < 0 || socket >= it.SocketCount || socket >= 6 {
		return ErrOutOfRange
	}
	if it.Sockets[socket] >= 0 {
		return ErrSlotOccupied
	}
	it.Sockets[socket] = gemDefIndex
	p.notifyMutation(slot)
	return nil
}

// SocketRemove clears a filled socket.
func (p *Pool) SocketRemove(slot, socket int) error {
	it := p.mut(slot)
	if it == nil {
		return ErrInactiveSlot
	}
	if socket < 0 || socket >= it.SocketCount || socket >= 6 {
		return ErrOutOfRange
	}
	if it.Sockets[socket] < 0 {
		return ErrSlotEmpty
	}
	it.Sockets[socket] = -1
	p.notifyMutation(slot)
	return nil
}
