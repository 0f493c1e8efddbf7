// Package inventory provides the aggregate def->quantity view of owned
// items, user tags with auto-tag rules, and the query engine used by the
// inventory UI.
package inventory

import (
	"errors"
	"math"

	"rogue_core/config"
)

// Compartment labels. Pure metadata for UI grouping, not storage
// separation.
const (
	LabelMaterial uint32 = 0x1
	LabelQuest    uint32 = 0x2
	LabelGear     uint32 = 0x4
)

// Failure kinds for pickup governance.
var (
	ErrUniqueCap = errors.New("inventory: unique definition cap reached")
	ErrOverflow  = errors.New("inventory: quantity overflow")
	ErrNoEntry   = errors.New("inventory: no such entry")
)

// CapHandler is called when a pickup would exceed the unique-def cap.
// Returning true means mitigation happened (salvage, drop) and the pickup
// is retried once.
type CapHandler func(defIndex int, addQty uint64) bool

type entry struct {
	present  bool
	quantity uint64
	labels   uint32
	dirty    bool
}

// Entries is the sparse def->quantity aggregate with a configurable
// unique-def cap and dirty-since-snapshot tracking.
type Entries struct {
	table      map[int]*entry
	uniqueCap  uint32
	capHandler CapHandler
}

// NewEntries returns an empty aggregate with no cap.
func NewEntries() *Entries {
	return &Entries{table: make(map[int]*entry)}
}

// SetUniqueCap sets the soft cap on distinct definitions; 0 disables.
func (e *Entries) SetUniqueCap(cap uint32) { e.uniqueCap = cap }

// UniqueCap returns the configured cap.
func (e *Entries) UniqueCap() uint32 { return e.uniqueCap }

// SetCapHandler installs the optional cap mitigation handler.
func (e *Entries) SetCapHandler(fn CapHandler) { e.capHandler = fn }

// UniqueCount returns the number of distinct definitions held.
func (e *Entries) UniqueCount() uint32 {
	n := uint32(0)
	for _, en := range e.table {
		if en.present {
			n++
		}
	}
	return n
}

// Quantity returns the held quantity for a definition, 0 when absent.
func (e *Entries) Quantity(defIndex int) uint64 {
	if en, ok := e.table[defIndex]; ok && en.present {
		return en.quantity
	}
	return 0
}

// Pressure is unique_count/cap as a float, 0 when no cap is set.
func (e *Entries) Pressure() float64 {
	if e.uniqueCap == 0 {
		return 0
	}
	return float64(e.UniqueCount()) / float64(e.uniqueCap)
}

// CanAccept reports whether a pickup would be accepted.
func (e *Entries) CanAccept(defIndex int, addQty uint64) error {
	if defIndex < 0 || defIndex >= config.InvMaxEntries {
		return ErrNoEntry
	}
	if en, ok := e.table[defIndex]; ok && en.present {
		if en.quantity > math.MaxUint64-addQty {
			return ErrOverflow
		}
		return nil
	}
	if e.uniqueCap > 0 && e.UniqueCount() >= e.uniqueCap {
		return ErrUniqueCap
	}
	return nil
}

// RegisterPickup adds quantity for a definition, enforcing overflow and the
// unique cap. A configured cap handler gets one chance to mitigate before
// the pickup fails.
func (e *Entries) RegisterPickup(defIndex int, addQty uint64) error {
	if addQty == 0 {
		return nil
	}
	err := e.CanAccept(defIndex, addQty)
	if errors.Is(err, ErrUniqueCap) && e.capHandler != nil {
		if e.capHandler(defIndex, addQty) {
			err = e.CanAccept(defIndex, addQty)
		}
	}
	if err != nil {
		return err
	}
	en, ok := e.table[defIndex]
	if !ok {
		en = &entry{}
		e.table[defIndex] = en
	}
	en.present = true
	en.quantity += addQty
	en.dirty = true
	return nil
}

// RegisterRemove saturating-subtracts quantity; the entry and its labels
// clear when it reaches zero.
func (e *Entries) RegisterRemove(defIndex int, removeQty uint64) error {
	en, ok := e.table[defIndex]
	if !ok || !en.present {
		return ErrNoEntry
	}
	if removeQty >= en.quantity {
		en.quantity = 0
		en.present = false
		en.labels = 0
	} else {
		en.quantity -= removeQty
	}
	en.dirty = true
	return nil
}

// SetLabels sets the label bitmask for an existing entry.
func (e *Entries) SetLabels(defIndex int, labels uint32) error {
	en, ok := e.table[defIndex]
	if !ok || !en.present {
		return ErrNoEntry
	}
	en.labels = labels
	en.dirty = true
	return nil
}

// Labels returns the label bitmask, 0 when absent.
func (e *Entries) Labels(defIndex int) uint32 {
	if en, ok := e.table[defIndex]; ok && en.present {
		return en.labels
	}
	return 0
}

// DirtyPair is one changed entry since the last snapshot. Quantity 0 means
// the entry was removed.
type DirtyPair struct {
	DefIndex int
	Quantity uint64
}

// DirtyPairs returns entries changed since the last snapshot, up to max
// (0 = unbounded), and resets the baseline. Call with max<0 to reset
// tracking without enumeration.
func (e *Entries) DirtyPairs(max int) []DirtyPair {
	var out []DirtyPair
	for di, en := range e.table {
		if !en.dirty {
			continue
		}
		if max >= 0 && (max == 0 || len(out) < max) {
			out = append(out, DirtyPair{DefIndex: di, Quantity: en.quantity})
		}
		en.dirty = false
	}
	return out
}

// ClearDirty treats the current state as the baseline.
func (e *Entries) ClearDirty() {
	for _, en := range e.table {
		en.dirty = false
	}
}

// ForEach visits every present entry in unspecified order.
func (e *Entries) ForEach(fn func(defIndex int, qty uint64, labels uint32)) {
	for di, en := range e.table {
		if en.present {
			fn(di, en.quantity, en.labels)
		}
	}
}
