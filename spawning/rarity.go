package spawning

import "rogue_core/randgen"

const rarityCount = 5

// RarityState is the rarity governor: global floor, pity counters with
// optional threshold acceleration, per-rarity despawn overrides, and the
// collaborator-facing spawn/pickup sound ids.
type RarityState struct {
	floor              int
	pityCounter        int
	epicThreshold      int
	legendaryThreshold int
	accelEnabled       bool

	spawnSounds  [rarityCount]string
	pickupSounds [rarityCount]string
	despawnMs    [rarityCount]int

	// DynApply lets an external drop-rate system transform the weight
	// vector before a rarity pick. Nil leaves weights untouched.
	DynApply func(weights *[5]int)
}

// NewRarityState returns governor state with the floor disabled, pity off,
// and acceleration enabled.
func NewRarityState() *RarityState {
	return &RarityState{floor: -1, accelEnabled: true}
}

// SetMinFloor sets the global rarity floor; negative disables.
func (s *RarityState) SetMinFloor(floor int) {
	if floor < 0 {
		s.floor = -1
	} else if floor >= rarityCount {
		s.floor = rarityCount - 1
	} else {
		s.floor = floor
	}
}

// MinFloor returns the global floor, -1 when disabled.
func (s *RarityState) MinFloor() int { return s.floor }

// SetPityThresholds configures the epic and legendary pity triggers.
// Zero disables a trigger.
func (s *RarityState) SetPityThresholds(epic, legendary int) {
	s.epicThreshold = epic
	s.legendaryThreshold = legendary
}

// ResetPity zeroes the pity counter.
func (s *RarityState) ResetPity() { s.pityCounter = 0 }

// PityCounter returns the accumulated sub-epic roll count.
func (s *RarityState) PityCounter() int { return s.pityCounter }

// SetAcceleration toggles dynamic threshold reduction.
func (s *RarityState) SetAcceleration(enabled bool) { s.accelEnabled = enabled }

// effectiveThreshold lowers the threshold to 75% of the base (at least 1)
// once the counter passes half the base threshold.
func (s *RarityState) effectiveThreshold(base int) int {
	if base <= 0 || !s.accelEnabled {
		return base
	}
	if s.pityCounter > base/2 {
		reduced := base * 3 / 4
		if reduced < 1 {
			reduced = 1
		}
		return reduced
	}
	return base
}

// EffectiveEpicThreshold returns the current epic trigger.
func (s *RarityState) EffectiveEpicThreshold() int { return s.effectiveThreshold(s.epicThreshold) }

// EffectiveLegendaryThreshold returns the current legendary trigger.
func (s *RarityState) EffectiveLegendaryThreshold() int {
	return s.effectiveThreshold(s.legendaryThreshold)
}

// ApplyFloor raises a rolled rarity to the floor when the floor lies inside
// the requested range.
func (s *RarityState) ApplyFloor(rolled, rmin, rmax int) int {
	if s.floor >= 0 && rolled < s.floor && s.floor >= rmin && s.floor <= rmax {
		return s.floor
	}
	return rolled
}

// ApplyPity counts sub-epic rolls and upgrades the result to legendary or
// epic when a threshold is met, resetting the counter on trigger.
func (s *RarityState) ApplyPity(rolled, rmin, rmax int) int {
	if rolled < 3 {
		s.pityCounter++
	} else {
		s.pityCounter = 0
	}
	target := rolled
	effLeg := s.EffectiveLegendaryThreshold()
	effEpic := s.EffectiveEpicThreshold()
	switch {
	case effLeg > 0 && s.pityCounter >= effLeg && rmax >= 4:
		target = 4
		s.pityCounter = 0
	case effEpic > 0 && s.pityCounter >= effEpic && rmax >= 3:
		target = 3
		s.pityCounter = 0
	}
	if target < rmin {
		target = rmin
	}
	if target > rmax {
		target = rmax
	}
	return target
}

// Sample rolls a rarity in [rmin,rmax]: unit weights transformed by the
// dynamic hook, weighted pick on the LCG stream, then floor and pity.
func (s *RarityState) Sample(rng *uint32, rmin, rmax int) int {
	if rmin < 0 {
		return -1
	}
	if rmax < rmin {
		rmax = rmin
	}
	var weights [5]int
	for r := rmin; r <= rmax && r < rarityCount; r++ {
		weights[r] = 1
	}
	if s.DynApply != nil {
		s.DynApply(&weights)
	}
	total := 0
	for r := rmin; r <= rmax && r < rarityCount; r++ {
		total += weights[r]
	}
	if total <= 0 {
		return rmin
	}
	pick := randgen.LCGRange(rng, total)
	rolled := rmin
	acc := 0
	for r := rmin; r <= rmax && r < rarityCount; r++ {
		acc += weights[r]
		if pick < acc {
			rolled = r
			break
		}
	}
	rolled = s.ApplyFloor(rolled, rmin, rmax)
	return s.ApplyPity(rolled, rmin, rmax)
}

// SetSpawnSound records the spawn sound id for a rarity.
func (s *RarityState) SetSpawnSound(rarity int, id string) {
	if rarity >= 0 && rarity < rarityCount {
		s.spawnSounds[rarity] = id
	}
}

// SpawnSound returns the spawn sound id, "" when unset.
func (s *RarityState) SpawnSound(rarity int) string {
	if rarity < 0 || rarity >= rarityCount {
		return ""
	}
	return s.spawnSounds[rarity]
}

// SetPickupSound records the pickup sound id for a rarity.
func (s *RarityState) SetPickupSound(rarity int, id string) {
	if rarity >= 0 && rarity < rarityCount {
		s.pickupSounds[rarity] = id
	}
}

// PickupSound returns the pickup sound id, "" when unset.
func (s *RarityState) PickupSound(rarity int) string {
	if rarity < 0 || rarity >= rarityCount {
		return ""
	}
	return s.pickupSounds[rarity]
}

// SetDespawnMs overrides the ground lifetime for a rarity; <=0 restores the
// default.
func (s *RarityState) SetDespawnMs(rarity, ms int) {
	if rarity < 0 || rarity >= rarityCount {
		return
	}
	if ms <= 0 {
		ms = 0
	}
	s.despawnMs[rarity] = ms
}

// DespawnMs returns the override in milliseconds, 0 for the default.
func (s *RarityState) DespawnMs(rarity int) int {
	if rarity < 0 || rarity >= rarityCount {
		return 0
	}
	return s.despawnMs[rarity]
}
