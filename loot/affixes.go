package loot

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"rogue_core/config"
	"rogue_core/randgen"
)

// AffixType selects the slot an affix occupies on an item.
type AffixType int

const (
	AffixPrefix AffixType = iota
	AffixSuffix
)

// AffixStat enumerates the stats an affix can target. Unknown stat names in
// data files map to StatNone and the line is retained.
type AffixStat int

const (
	StatNone AffixStat = iota
	StatDamageFlat
	StatAgilityFlat
	StatStrengthFlat
	StatDexterityFlat
	StatVitalityFlat
	StatIntelligenceFlat
	StatArmorFlat
	StatResistPhysical
	StatResistFire
	StatResistCold
	StatResistLightning
	StatResistPoison
	StatResistStatus
	StatBlockChance
	StatBlockValue
	StatPhysConvFirePct
	StatPhysConvFrostPct
	StatPhysConvArcanePct
	StatGuardRecoveryPct
	StatThornsPercent
	StatThornsCap
)

var affixStatNames = map[string]AffixStat{
	"damage_flat":          StatDamageFlat,
	"agility_flat":         StatAgilityFlat,
	"strength_flat":        StatStrengthFlat,
	"dexterity_flat":       StatDexterityFlat,
	"vitality_flat":        StatVitalityFlat,
	"intelligence_flat":    StatIntelligenceFlat,
	"armor_flat":           StatArmorFlat,
	"resist_physical":      StatResistPhysical,
	"resist_fire":          StatResistFire,
	"resist_cold":          StatResistCold,
	"resist_lightning":     StatResistLightning,
	"resist_poison":        StatResistPoison,
	"resist_status":        StatResistStatus,
	"block_chance":         StatBlockChance,
	"block_value":          StatBlockValue,
	"phys_conv_fire_pct":   StatPhysConvFirePct,
	"phys_conv_frost_pct":  StatPhysConvFrostPct,
	"phys_conv_arcane_pct": StatPhysConvArcanePct,
	"guard_recovery_pct":   StatGuardRecoveryPct,
	"thorns_percent":       StatThornsPercent,
	"thorns_cap":           StatThornsCap,
}

// AffixDef is an immutable affix definition with a per-rarity weight vector.
// A zero weight disables the affix at that rarity.
type AffixDef struct {
	ID              string
	Type            AffixType
	Stat            AffixStat
	MinValue        int
	MaxValue        int
	WeightPerRarity [5]int
}

// AffixRegistry holds the loaded affix definitions.
type AffixRegistry struct {
	affixes []AffixDef
}

// NewAffixRegistry returns an empty registry.
func NewAffixRegistry() *AffixRegistry {
	return &AffixRegistry{affixes: make([]AffixDef, 0, config.MaxAffixes)}
}

// Count returns the number of loaded affixes.
func (r *AffixRegistry) Count() int { return len(r.affixes) }

// At returns the affix at index, or nil when out of range.
func (r *AffixRegistry) At(index int) *AffixDef {
	if index < 0 || index >= len(r.affixes) {
		return nil
	}
	return &r.affixes[index]
}

// IndexOf returns the affix index for an id string, or -1.
func (r *AffixRegistry) IndexOf(id string) int {
	for i := range r.affixes {
		if r.affixes[i].ID == id {
			return i
		}
	}
	return -1
}

// Add appends a definition, enforcing capacity and max>=min.
func (r *AffixRegistry) Add(d AffixDef) (int, error) {
	if len(r.affixes) >= config.MaxAffixes {
		return -1, errors.Errorf("affix capacity %d exceeded (id=%s)", config.MaxAffixes, d.ID)
	}
	if d.MaxValue < d.MinValue {
		d.MaxValue = d.MinValue
	}
	r.affixes = append(r.affixes, d)
	return len(r.affixes) - 1, nil
}

// parseAffixLine accepts both accepted layouts, detected on the first field:
//
//	TYPE,id,stat,min,max,w0,w1,w2,w3,w4
//	id,0|1,stat,min,max,w0,w1,w2,w3,w4
func parseAffixLine(line string) (AffixDef, bool) {
	var d AffixDef
	line = strings.TrimRight(line, "\r\n")
	if line == "" || strings.HasPrefix(line, "#") {
		return d, false
	}
	fields := strings.Split(line, ",")
	if len(fields) < 10 {
		return d, false
	}
	first := strings.TrimSpace(fields[0])
	if first == "PREFIX" || first == "SUFFIX" {
		if first == "PREFIX" {
			d.Type = AffixPrefix
		} else {
			d.Type = AffixSuffix
		}
		d.ID = strings.TrimSpace(fields[1])
	} else {
		d.ID = first
		if t, err := strconv.Atoi(strings.TrimSpace(fields[1])); err == nil && t == 1 {
			d.Type = AffixSuffix
		} else {
			d.Type = AffixPrefix
		}
	}
	d.Stat = affixStatNames[strings.TrimSpace(fields[2])] // unknown -> StatNone
	d.MinValue = atoiField(fields, 3)
	d.MaxValue = atoiField(fields, 4)
	for i := 0; i < 5; i++ {
		d.WeightPerRarity[i] = atoiField(fields, 5+i)
	}
	return d, true
}

// LoadFile appends affixes from a CSV file, skipping malformed lines.
// The path runs through FindAssetPath so tests can load the canonical file
// from nested working directories.
func (r *AffixRegistry) LoadFile(path string) (int, error) {
	f, err := os.Open(FindAssetPath(path))
	if err != nil {
		return 0, errors.Wrapf(err, "open affixes %s", path)
	}
	defer f.Close()
	added := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		d, ok := parseAffixLine(sc.Text())
		if !ok {
			continue
		}
		if _, err := r.Add(d); err != nil {
			break
		}
		added++
	}
	return added, sc.Err()
}

// Roll picks an affix of the given type whose weight at the rarity is
// positive, weighted by that weight. Returns -1 when nothing is eligible.
// Advances the LCG stream exactly once when a pick is attempted.
func (r *AffixRegistry) Roll(t AffixType, rarity int, rng *uint32) int {
	if rarity < 0 || rarity > 4 || rng == nil {
		return -1
	}
	total := 0
	for i := range r.affixes {
		if r.affixes[i].Type != t {
			continue
		}
		if w := r.affixes[i].WeightPerRarity[rarity]; w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return -1
	}
	pick := int(randgen.LCG(rng) % uint32(total))
	acc := 0
	for i := range r.affixes {
		if r.affixes[i].Type != t {
			continue
		}
		w := r.affixes[i].WeightPerRarity[rarity]
		if w <= 0 {
			continue
		}
		acc += w
		if pick < acc {
			return i
		}
	}
	return -1
}

// RollValue rolls a uniform value in [min,max].
func (r *AffixRegistry) RollValue(affixIndex int, rng *uint32) int {
	if rng == nil {
		return -1
	}
	d := r.At(affixIndex)
	if d == nil {
		return -1
	}
	span := d.MaxValue - d.MinValue + 1
	if span <= 0 {
		return d.MinValue
	}
	return d.MinValue + int(randgen.LCG(rng)%uint32(span))
}

// RollValueScaled rolls a value biased toward the ceiling when
// qualityScalar exceeds 1. The bias uses the polynomial approximation
// y = u*(1+(1-exp)*(1-u)) of u^exp with exp = 1/qualityScalar, which keeps
// the roll on the integer LCG stream.
func (r *AffixRegistry) RollValueScaled(affixIndex int, rng *uint32, qualityScalar float32) int {
	if rng == nil {
		return -1
	}
	d := r.At(affixIndex)
	if d == nil {
		return -1
	}
	if qualityScalar < 0 {
		qualityScalar = 0
	}
	span := d.MaxValue - d.MinValue + 1
	if span <= 0 {
		return d.MinValue
	}
	exp := float32(1.0)
	if qualityScalar > 1 {
		exp = 1.0 / qualityScalar
	}
	u := randgen.Unit24(rng)
	y := u * (1 + (1-exp)*(1-u))
	offset := int(y * float32(span))
	if offset >= span {
		offset = span - 1
	}
	return d.MinValue + offset
}
