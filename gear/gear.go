// Package gear implements the item enhancement engine: imbue, temper,
// socket crafting, enchant, reforge, affix transfer orbs, fusion, and
// upgrade stones. Every operation preserves the affix budget invariant and
// reports failures as typed errors the UI can distinguish.
package gear

import (
	"errors"

	"rogue_core/loot"
)

// Failure kinds for enhancement operations.
var (
	ErrSlotOccupied      = errors.New("gear: affix slot occupied")
	ErrNoBudget          = errors.New("gear: no affix budget remaining")
	ErrRollFailed        = errors.New("gear: no eligible affix to roll")
	ErrMissingCatalyst   = errors.New("gear: catalyst material missing")
	ErrInsufficientGold  = errors.New("gear: insufficient gold")
	ErrNothingToDo       = errors.New("gear: nothing to reroll")
	ErrSameSlot          = errors.New("gear: source and target are the same slot")
	ErrOrbOccupied       = errors.New("gear: orb already holds an affix")
	ErrOrbUsed           = errors.New("gear: orb already used")
	ErrNoStoredAffix     = errors.New("gear: orb holds no affix")
	ErrNothingToExtract  = errors.New("gear: nothing to extract")
	ErrInactiveSacrifice = errors.New("gear: sacrifice item inactive")
	ErrNothingToTransfer = errors.New("gear: sacrifice has no affixes")
	ErrNoBudgetHeadroom  = errors.New("gear: no budget headroom on target")
	ErrBothSlotsOccupied = errors.New("gear: both affix slots occupied")
	ErrInvalidIntensity  = errors.New("gear: temper intensity must be >= 1")
)

// EconomyHooks is the inventory/economy collaborator consumed by the
// engine. Implementations live outside the core.
type EconomyHooks interface {
	GetCount(defIndex int) int
	Add(defIndex, qty int)
	Consume(defIndex, qty int) bool
	Gold() int
	AddGold(delta int)
}

// StatCache marks derived player stats dirty after mutations.
type StatCache interface {
	MarkDirty()
}

// Engine mutates items in the bound pool. Operation order is deterministic:
// imbue and temper advance a local LCG stream, enchant and reforge derive
// their streams from the slot and item level.
type Engine struct {
	Pool    *loot.Pool
	Economy EconomyHooks
	Stats   StatCache

	// CatalystDef gates imbue when >= 0: one unit is consumed per imbue.
	CatalystDef int

	enchantOrbDef    int
	reforgeHammerDef int

	rng uint32
}

// NewEngine binds an engine to a pool. Material ids resolve lazily from the
// pool's definitions.
func NewEngine(pool *loot.Pool) *Engine {
	return &Engine{Pool: pool, CatalystDef: -1, enchantOrbDef: -1, reforgeHammerDef: -1, rng: 0x1A2B3C4D}
}

// SeedRNG resets the sequential enhancement stream.
func (e *Engine) SeedRNG(seed uint32) { e.rng = seed }

func (e *Engine) resolveMaterials() {
	defs := e.Pool.Defs()
	if e.enchantOrbDef < 0 {
		e.enchantOrbDef = defs.IndexOf("enchant_orb")
	}
	if e.reforgeHammerDef < 0 {
		e.reforgeHammerDef = defs.IndexOf("reforge_hammer")
	}
}

func (e *Engine) markStatsDirty() {
	if e.Stats != nil {
		e.Stats.MarkDirty()
	}
}

func (e *Engine) gold() int {
	if e.Economy == nil {
		return 0
	}
	return e.Economy.Gold()
}
