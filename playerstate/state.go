// Package playerstate holds the player-facing progression state serialized
// by the save manager: the player block, skills, buffs, vendor inventory,
// and world metadata, plus the ReplayEvent record type. The replay event
// log itself is kept by the save manager.
package playerstate

// Player is the persisted character block.
type Player struct {
	Level        int32
	XP           int32
	XPToNext     int32
	XPTotalAccum int64
	Health       int32
	Mana         int32
	ActionPoints int32
	Strength     int32
	Dexterity    int32
	Vitality     int32
	Intelligence int32
	Gold         int64
	EquipWeapon  int32 // item def index, -1 when empty
	EquipArmor   int32
}

// NewPlayer returns a level-1 character with empty equipment.
func NewPlayer() Player {
	return Player{Level: 1, Health: 50, Mana: 10, EquipWeapon: -1, EquipArmor: -1}
}

// Skill is one learned skill rank.
type Skill struct {
	ID      int32
	Rank    int32
	Charges int32
}

// Buff is one active timed buff.
type Buff struct {
	ID          int32
	Magnitude   int32
	RemainingMs int32
}

// VendorItem is one vendor stock line.
type VendorItem struct {
	DefIndex int32
	Quantity int32
	Price    int32
}

// WorldMeta is the persisted world header: seed and clock.
type WorldMeta struct {
	WorldSeed  uint32
	RegionID   int32
	PlayTimeMs uint64
	GenVersion uint32
}

// ReplayEvent is one recorded input event for replay verification.
type ReplayEvent struct {
	Frame      uint32
	ActionCode uint32
	Value      int32
}

// State aggregates everything the save manager persists outside the
// loot/inventory registries.
type State struct {
	Player Player
	Skills []Skill
	Buffs  []Buff
	Vendor []VendorItem
	World  WorldMeta
}

// NewState returns a fresh state with a level-1 player.
func NewState() *State {
	return &State{Player: NewPlayer()}
}
