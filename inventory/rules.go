package inventory

import "rogue_core/loot"

const maxTagRules = 32

// TagRule auto-applies a tag (and optionally an accent color) to picked-up
// definitions matching a rarity range and category mask. MaxRarity 0xFF
// leaves the upper bound open.
type TagRule struct {
	MinRarity    uint8
	MaxRarity    uint8
	CategoryMask uint32
	Tag          string
	AccentColor  uint32 // RGBA; 0 = none
}

// TagRules stores rules in declaration order plus the per-def accent color
// cache. The first rule contributing a non-zero color wins.
type TagRules struct {
	rules  []TagRule
	accent map[int]uint32
	defs   *loot.DefRegistry
	tags   *Tags
}

// NewTagRules binds a rule set to the definitions and tag store it writes.
func NewTagRules(defs *loot.DefRegistry, tags *Tags) *TagRules {
	return &TagRules{accent: make(map[int]uint32), defs: defs, tags: tags}
}

// Add appends a rule. MaxRarity 0 is treated as an open upper bound.
// Returns false when the rule table is full or the tag is empty.
func (r *TagRules) Add(rule TagRule) bool {
	if len(r.rules) >= maxTagRules || rule.Tag == "" {
		return false
	}
	if rule.MaxRarity == 0 {
		rule.MaxRarity = 0xFF
	}
	if len(rule.Tag) > tagShortLen {
		rule.Tag = rule.Tag[:tagShortLen]
	}
	r.rules = append(r.rules, rule)
	return true
}

// Count returns the number of rules.
func (r *TagRules) Count() int { return len(r.rules) }

// Get returns the rule at index, or nil.
func (r *TagRules) Get(index int) *TagRule {
	if index < 0 || index >= len(r.rules) {
		return nil
	}
	return &r.rules[index]
}

// Clear removes every rule; accent caches stay until re-applied.
func (r *TagRules) Clear() { r.rules = r.rules[:0] }

// Replace swaps in a loaded rule set (save restore path).
func (r *TagRules) Replace(rules []TagRule) {
	r.rules = rules
	r.accent = make(map[int]uint32)
}

// ApplyDef evaluates the rules in declaration order against a definition,
// adding matching tags and caching the first non-zero accent color.
func (r *TagRules) ApplyDef(defIndex int) {
	d := r.defs.At(defIndex)
	if d == nil {
		return
	}
	for i := range r.rules {
		rule := &r.rules[i]
		if d.Rarity < int(rule.MinRarity) {
			continue
		}
		if rule.MaxRarity != 0xFF && d.Rarity > int(rule.MaxRarity) {
			continue
		}
		if rule.CategoryMask != 0 && rule.CategoryMask&(1<<uint(d.Category)) == 0 {
			continue
		}
		if rule.Tag != "" {
			r.tags.AddTag(defIndex, rule.Tag)
		}
		if rule.AccentColor != 0 {
			if _, ok := r.accent[defIndex]; !ok {
				r.accent[defIndex] = rule.AccentColor
			}
		}
	}
}

// AccentColor returns the cached accent color for a definition, 0 if none.
func (r *TagRules) AccentColor(defIndex int) uint32 { return r.accent[defIndex] }
