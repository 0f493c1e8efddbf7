package loot

import (
	"rogue_core/config"
	"rogue_core/gamelog"
	"rogue_core/randgen"
)

// ItemInstance is one mutable runtime item owned by the pool. Affix slots
// hold -1 when absent; sockets hold gem def indices or -1.
type ItemInstance struct {
	Active   bool
	DefIndex int
	GUID     uint64
	// EquipHashChain folds every equip transition so replay verification can
	// detect divergent gear timelines.
	EquipHashChain uint64

	X, Y         float32
	LifeMs       float32
	HiddenFilter bool

	Quantity     int
	Rarity       int
	ItemLevel    int
	Quality      int
	EnchantLevel int

	PrefixIndex, PrefixValue int
	SuffixIndex, SuffixValue int

	SocketCount int
	Sockets     [6]int

	DurabilityCur, DurabilityMax int
	Fractured                    bool

	StoredAffixIndex int
	StoredAffixValue int
	StoredAffixUsed  bool
}

// PoolHooks are the collaborator callbacks fired by pool lifecycle events.
// Nil members are skipped.
type PoolHooks struct {
	MinimapPing  func(x, y float32, rarity int)
	VFXOnSpawn   func(slot, rarity int)
	VFXOnDespawn func(slot int)
	// FilterMatch returns whether the loot filter shows this definition.
	FilterMatch func(def *ItemDef) bool
	// OnMutation fires after any mutation that can change query results.
	OnMutation func(slot int)
}

// Pool is the fixed-capacity item instance arena. Allocation is a
// first-free scan; deactivation only clears Active so slot contents stay
// inspectable until reuse.
type Pool struct {
	instances []ItemInstance
	defs      *DefRegistry
	affixes   *AffixRegistry
	hooks     PoolHooks

	// DespawnOverrideMs returns the per-rarity ground lifetime override in
	// milliseconds, or 0 to use the default. Wired to the rarity governor.
	DespawnOverrideMs func(rarity int) int
}

// NewPool allocates a pool bound to the given registries.
func NewPool(defs *DefRegistry, affixes *AffixRegistry) *Pool {
	return &Pool{
		instances: make([]ItemInstance, config.ItemInstanceCap),
		defs:      defs,
		affixes:   affixes,
	}
}

// SetHooks installs the collaborator callbacks.
func (p *Pool) SetHooks(h PoolHooks) { p.hooks = h }

// Cap returns the fixed slot capacity.
func (p *Pool) Cap() int { return len(p.instances) }

// At returns the active instance in slot, or nil. Mutation must go through
// pool methods so hooks and invariants stay consistent.
func (p *Pool) At(slot int) *ItemInstance {
	if slot < 0 || slot >= len(p.instances) {
		return nil
	}
	if !p.instances[slot].Active {
		return nil
	}
	return &p.instances[slot]
}

func (p *Pool) mut(slot int) *ItemInstance { return p.At(slot) }

func (p *Pool) notifyMutation(slot int) {
	if p.hooks.OnMutation != nil {
		p.hooks.OnMutation(slot)
	}
}

// BudgetMax is the affix value cap for an item level and rarity.
func BudgetMax(itemLevel, rarity int) int {
	if itemLevel < 1 {
		itemLevel = 1
	}
	if rarity < 0 {
		rarity = 0
	}
	if rarity > 4 {
		rarity = 4
	}
	return 20 + itemLevel*5 + rarity*rarity*10
}

// Spawn activates the first free slot for the definition and initializes
// every field: deterministic GUID, socket count rolled from a slot/def/
// position-derived LCG, and baseline durability for weapons and armor.
func (p *Pool) Spawn(defIndex, quantity int, x, y float32) (int, error) {
	if defIndex < 0 || quantity <= 0 {
		gamelog.Debug("loot spawn rejected", "def", defIndex, "qty", quantity)
		return -1, ErrInvalidSlot
	}
	for i := range p.instances {
		if p.instances[i].Active {
			continue
		}
		def := p.defs.At(defIndex)
		rarity := 0
		if def != nil {
			rarity = def.Rarity
		}
		it := &p.instances[i]
		*it = ItemInstance{
			Active:           true,
			DefIndex:         defIndex,
			Quantity:         quantity,
			X:                x,
			Y:                y,
			Rarity:           rarity,
			ItemLevel:        1,
			PrefixIndex:      -1,
			SuffixIndex:      -1,
			StoredAffixIndex: -1,
		}
		for s := range it.Sockets {
			it.Sockets[s] = -1
		}
		it.GUID = uint64(defIndex)<<32 ^
			uint64(i+1)*0x9E3779B185EBCA87 ^
			uint64(quantity)*0xC2B2AE3D27D4EB4F
		if def != nil {
			min, max := def.SocketMin, def.SocketMax
			if max > 6 {
				max = 6
			}
			if min < 0 {
				min = 0
			}
			if max >= min && max > 0 {
				seed := uint32(i)*2654435761 ^ uint32(defIndex) ^
					uint32(int32(x))*73856093 ^ uint32(int32(y))*19349663
				randgen.LCG(&seed)
				it.SocketCount = min + int(seed%uint32(max-min+1))
				if it.SocketCount > 6 {
					it.SocketCount = 6
				}
			}
		}
		if def != nil && (def.Category == CategoryWeapon || def.Category == CategoryArmor) {
			base := 50 + rarity*25
			it.DurabilityMax = base
			it.DurabilityCur = base
		}
		if p.hooks.MinimapPing != nil {
			p.hooks.MinimapPing(x, y, rarity)
		}
		if p.hooks.VFXOnSpawn != nil {
			p.hooks.VFXOnSpawn(i, rarity)
		}
		gamelog.Debug("loot spawn", "def", defIndex, "qty", quantity, "slot", i)
		p.notifyMutation(i)
		return i, nil
	}
	gamelog.Warn("loot spawn: pool full", "cap", len(p.instances), "def", defIndex)
	return -1, ErrPoolFull
}

// Despawn deactivates a slot explicitly.
func (p *Pool) Despawn(slot int) error {
	it := p.mut(slot)
	if it == nil {
		return ErrInactiveSlot
	}
	it.Active = false
	if p.hooks.VFXOnDespawn != nil {
		p.hooks.VFXOnDespawn(slot)
	}
	p.notifyMutation(slot)
	return nil
}

// ApplyAffixes overwrites the affix state without budget enforcement.
// Used by the save loader, which trusts persisted values.
func (p *Pool) ApplyAffixes(slot, rarity, prefixIndex, prefixValue, suffixIndex, suffixValue int) error {
	it := p.mut(slot)
	if it == nil {
		return ErrInactiveSlot
	}
	if rarity >= 0 && rarity <= 4 {
		it.Rarity = rarity
	}
	it.PrefixIndex = prefixIndex
	it.PrefixValue = prefixValue
	it.SuffixIndex = suffixIndex
	it.SuffixValue = suffixValue
	p.notifyMutation(slot)
	return nil
}

// GenerateAffixes rolls affixes per the rarity rule: rarity>=3 rolls both
// slots, rarity==2 rolls one chosen on rng parity, lower rarities roll
// nothing. Over-budget totals are clamped by decrementing the larger value
// (prefix on ties) until within BudgetMax.
func (p *Pool) GenerateAffixes(slot int, rng *uint32, rarity int) error {
	it := p.mut(slot)
	if it == nil || rng == nil {
		return ErrInactiveSlot
	}
	wantPrefix, wantSuffix := false, false
	if rarity >= 2 {
		if rarity >= 3 {
			wantPrefix, wantSuffix = true, true
		} else {
			wantPrefix = (*rng)&1 == 0
			wantSuffix = !wantPrefix
		}
	}
	if wantPrefix {
		if pi := p.affixes.Roll(AffixPrefix, rarity, rng); pi >= 0 {
			it.PrefixIndex = pi
			it.PrefixValue = p.affixes.RollValue(pi, rng)
		}
	}
	if wantSuffix {
		if si := p.affixes.Roll(AffixSuffix, rarity, rng); si >= 0 {
			it.SuffixIndex = si
			it.SuffixValue = p.affixes.RollValue(si, rng)
		}
	}
	p.clampBudget(it)
	p.notifyMutation(slot)
	return nil
}

func (p *Pool) clampBudget(it *ItemInstance) {
	cap := BudgetMax(it.ItemLevel, it.Rarity)
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

// TotalAffixWeight returns the summed affix values, or -1 for an inactive
// slot.
func (p *Pool) TotalAffixWeight(slot int) int {
	it := p.At(slot)
	if it == nil {
		return -1
	}
	total := 0
	if it.PrefixIndex >= 0 {
		total += it.PrefixValue
	}
	if it.SuffixIndex >= 0 {
		total += it.SuffixValue
	}
	return total
}

// ValidateBudget reports whether the slot satisfies the budget invariant.
func (p *Pool) ValidateBudget(slot int) error {
	it := p.At(slot)
	if it == nil {
		return ErrInactiveSlot
	}
	if p.TotalAffixWeight(slot) > BudgetMax(it.ItemLevel, it.Rarity) {
		return ErrBudgetExceeded
	}
	return nil
}

// UpgradeLevel raises item level (capped at 999) then walks existing affix
// values toward the new budget with an rng-parity coin flip per step.
func (p *Pool) UpgradeLevel(slot, levels int, rng *uint32) error {
	if levels <= 0 {
		return nil
	}
	it := p.mut(slot)
	if it == nil {
		return ErrInactiveSlot
	}
	it.ItemLevel += levels
	if it.ItemLevel > 999 {
		it.ItemLevel = 999
	}
	cap := BudgetMax(it.ItemLevel, it.Rarity)
	total := p.TotalAffixWeight(slot)
	for total < cap && (it.PrefixIndex >= 0 || it.SuffixIndex >= 0) {
		if rng != nil {
			randgen.LCG(rng)
		}
		choosePrefix := it.SuffixIndex < 0
		if it.PrefixIndex >= 0 && it.SuffixIndex >= 0 && rng != nil {
			choosePrefix = (*rng)&1 == 1
		}
		if choosePrefix && it.PrefixIndex >= 0 && it.PrefixValue < cap {
			it.PrefixValue++
			total++
		} else if it.SuffixIndex >= 0 && it.SuffixValue < cap {
			it.SuffixValue++
			total++
		} else {
			break
		}
	}
	p.notifyMutation(slot)
	return nil
}

// UpdateEquipChain folds an equip transition event into the instance's
// rolling hash chain.
func (p *Pool) UpdateEquipChain(slot int, eventCode int32) error {
	it := p.mut(slot)
	if it == nil {
		return ErrInactiveSlot
	}
	h := it.EquipHashChain
	if h == 0 {
		h = randgen.FNVOffset64
	}
	var guidBytes [8]byte
	for b := 0; b < 8; b++ {
		guidBytes[b] = byte(it.GUID >> (8 * b))
	}
	h = randgen.FNV1a64(guidBytes[:], h)
	it.EquipHashChain = randgen.FNV1a64Int(eventCode, h)
	return nil
}

// ActiveCount returns the number of live instances.
func (p *Pool) ActiveCount() int {
	c := 0
	for i := range p.instances {
		if p.instances[i].Active {
			c++
		}
	}
	return c
}

// VisibleCount returns live instances not hidden by the loot filter.
func (p *Pool) VisibleCount() int {
	c := 0
	for i := range p.instances {
		if p.instances[i].Active && !p.instances[i].HiddenFilter {
			c++
		}
	}
	return c
}

// Defs exposes the bound definition registry.
func (p *Pool) Defs() *DefRegistry { return p.defs }

// Affixes exposes the bound affix registry.
func (p *Pool) Affixes() *AffixRegistry { return p.affixes }
