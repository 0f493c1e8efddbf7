package enemy

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"rogue_core/config"
	"rogue_core/randgen"
)

// ModifierDef is one enemy augmentation. Tier and incompat masks use bit i
// for id/tier i; a zero tier mask means all tiers.
type ModifierDef struct {
	ID           int
	Name         string
	Weight       float32
	Tiers        uint32
	DPSCost      float32
	ControlCost  float32
	MobilityCost float32
	IncompatMask uint32
	Telegraph    string
}

// Modifiers is the loaded modifier registry plus the budget-capped roller.
type Modifiers struct {
	defs []ModifierDef
}

// NewModifiers returns an empty registry.
func NewModifiers() *Modifiers {
	return &Modifiers{defs: make([]ModifierDef, 0, config.MaxEnemyModifiers)}
}

// Count returns the number of loaded modifiers.
func (m *Modifiers) Count() int { return len(m.defs) }

// At returns the modifier at array index, or nil.
func (m *Modifiers) At(index int) *ModifierDef {
	if index < 0 || index >= len(m.defs) {
		return nil
	}
	return &m.defs[index]
}

// ByID returns the modifier with the given id, or nil.
func (m *Modifiers) ByID(id int) *ModifierDef {
	for i := range m.defs {
		if m.defs[i].ID == id {
			return &m.defs[i]
		}
	}
	return nil
}

// Telegraph returns the telegraph string for a modifier id, "" if unknown.
func (m *Modifiers) Telegraph(id int) string {
	if d := m.ByID(id); d != nil {
		return d.Telegraph
	}
	return ""
}

// Add appends a definition after normalization: non-positive weights become
// 1 and a zero tier mask opens to all tiers.
func (m *Modifiers) Add(d ModifierDef) (int, error) {
	if len(m.defs) >= config.MaxEnemyModifiers {
		return -1, errors.Errorf("modifier capacity %d exceeded", config.MaxEnemyModifiers)
	}
	if d.Weight <= 0 {
		d.Weight = 1
	}
	if d.Tiers == 0 {
		d.Tiers = 0xFFFFFFFF
	}
	m.defs = append(m.defs, d)
	return len(m.defs) - 1, nil
}

// parseDigitMask folds each decimal digit of the value into a bitmask.
func parseDigitMask(v string) uint32 {
	var mask uint32
	for _, c := range v {
		if c >= '0' && c <= '9' {
			mask |= 1 << uint(c-'0')
		}
	}
	return mask
}

// LoadFile replaces the registry with modifiers parsed from key=value
// blocks separated by blank lines. Returns the modifier count.
func (m *Modifiers) LoadFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrapf(err, "open modifiers %s", path)
	}
	defer f.Close()
	m.defs = m.defs[:0]
	var cur ModifierDef
	commit := func() {
		if cur.Name != "" {
			_, _ = m.Add(cur)
		}
		cur = ModifierDef{}
	}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			commit()
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)
		switch key {
		case "id":
			cur.ID, _ = strconv.Atoi(val)
		case "name":
			cur.Name = val
		case "weight":
			w, _ := strconv.ParseFloat(val, 32)
			cur.Weight = float32(w)
		case "tiers":
			cur.Tiers = parseDigitMask(val)
		case "dps":
			v, _ := strconv.ParseFloat(val, 32)
			cur.DPSCost = float32(v)
		case "control":
			v, _ := strconv.ParseFloat(val, 32)
			cur.ControlCost = float32(v)
		case "mobility":
			v, _ := strconv.ParseFloat(val, 32)
			cur.MobilityCost = float32(v)
		case "incompat":
			cur.IncompatMask = parseDigitMask(val)
		case "telegraph":
			cur.Telegraph = val
		}
	}
	commit()
	return len(m.defs), sc.Err()
}

// ModifierSet is one rolled selection with accumulated costs and the
// applied index mask.
type ModifierSet struct {
	Defs              []*ModifierDef
	TotalDPSCost      float32
	TotalControlCost  float32
	TotalMobilityCost float32
	AppliedMask       uint32
}

// Count returns the number of selected modifiers.
func (s *ModifierSet) Count() int { return len(s.Defs) }

// Roll selects modifiers for a tier under per-dimension budget caps with
// incompatibility masking. Candidates are weighted-picked on a xorshift
// stream (0xA5F4321 fallback seed) until the active cap is reached or no
// candidate fits.
func (m *Modifiers) Roll(seed uint32, tierID int, maxFraction float32) *ModifierSet {
	out := &ModifierSet{}
	if maxFraction <= 0 {
		maxFraction = 0.6
	}
	state := seed
	if state == 0 {
		state = 0xA5F4321
	}
	eligible := func(i int) bool {
		d := &m.defs[i]
		if d.Tiers&(1<<uint(tierID)) == 0 {
			return false
		}
		if out.AppliedMask&(1<<uint(i)) != 0 {
			return false
		}
		if d.IncompatMask&out.AppliedMask != 0 {
			return false
		}
		if out.TotalDPSCost+d.DPSCost > maxFraction ||
			out.TotalControlCost+d.ControlCost > maxFraction ||
			out.TotalMobilityCost+d.MobilityCost > maxFraction {
			return false
		}
		return true
	}
	for iter := 0; iter < config.MaxActiveModifiers*4; iter++ {
		totalW := float32(0)
		for i := range m.defs {
			if eligible(i) {
				totalW += m.defs[i].Weight
			}
		}
		if totalW <= 0 {
			break
		}
		r := float32(randgen.Xorshift32(&state)&0xFFFFFF) / float32(0xFFFFFF) * totalW
		chosen := -1
		for i := range m.defs {
			if !eligible(i) {
				continue
			}
			r -= m.defs[i].Weight
			if r <= 0 {
				chosen = i
				break
			}
		}
		if chosen < 0 {
			break
		}
		d := &m.defs[chosen]
		out.Defs = append(out.Defs, d)
		out.TotalDPSCost += d.DPSCost
		out.TotalControlCost += d.ControlCost
		out.TotalMobilityCost += d.MobilityCost
		out.AppliedMask |= 1 << uint(chosen)
		if len(out.Defs) >= config.MaxActiveModifiers {
			break
		}
	}
	return out
}
