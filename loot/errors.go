package loot

import "errors"

// Failure kinds surfaced by the instance pool and registries. Callers in the
// enhancement engine distinguish these to drive UI messages.
var (
	ErrInvalidSlot    = errors.New("loot: invalid slot index")
	ErrInactiveSlot   = errors.New("loot: slot not active")
	ErrSlotOccupied   = errors.New("loot: slot already occupied")
	ErrSlotEmpty      = errors.New("loot: slot empty")
	ErrOutOfRange     = errors.New("loot: index out of range")
	ErrPoolFull       = errors.New("loot: instance pool full")
	ErrBudgetExceeded = errors.New("loot: affix budget exceeded")
)
