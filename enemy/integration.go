package enemy

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"rogue_core/config"
	"rogue_core/randgen"
)

// TypeMapping binds a spawnable enemy type to its taxonomy row.
type TypeMapping struct {
	TypeIndex       int
	ID              int
	Name            string
	Archetype       Archetype
	TierID          int
	BaseLevelOffset int
}

// Enemy is the runtime stat block assembled by the integration layer.
type Enemy struct {
	TypeIndex       int
	TierID          int
	BaseLevelOffset int
	Level           int

	EliteFlag   bool
	BossFlag    bool
	SupportFlag bool

	FinalHP      float32
	FinalDamage  float32
	FinalDefense float32
	MaxHealth    int
	Health       int

	ModifierCount int
	ModifierIDs   [config.MaxActiveModifiers]int

	EncounterID        int
	ReplayHashFragment uint32
}

// RoomEncounterInfo carries the room context an encounter spawns into.
type RoomEncounterInfo struct {
	RoomID        int
	DepthLevel    int
	EncounterSeed uint32
}

// Integration bridges content data into live enemies.
type Integration struct {
	Templates  *EncounterTemplates
	Modifiers  *Modifiers
	Difficulty *Difficulty

	debugRing  [32]debugRec
	debugHead  int
	debugCount int
}

type debugRec struct {
	seed       uint32
	hash       uint64
	templateID int
	unitCount  int
}

// NewIntegration wires the integration layer over its registries.
func NewIntegration(templates *EncounterTemplates, modifiers *Modifiers, difficulty *Difficulty) *Integration {
	return &Integration{Templates: templates, Modifiers: modifiers, Difficulty: difficulty}
}

// ValidateUniqueMappings rejects duplicate type or taxonomy ids.
func ValidateUniqueMappings(mappings []TypeMapping) error {
	for i := range mappings {
		for j := i + 1; j < len(mappings); j++ {
			if mappings[i].TypeIndex == mappings[j].TypeIndex || mappings[i].ID == mappings[j].ID {
				return errors.Errorf("duplicate enemy type mapping at %d/%d", i, j)
			}
		}
	}
	return nil
}

// FindMapping returns the mapping for a type index, or nil.
func FindMapping(typeIndex int, mappings []TypeMapping) *TypeMapping {
	for i := range mappings {
		if mappings[i].TypeIndex == typeIndex {
			return &mappings[i]
		}
	}
	return nil
}

// EncounterSeed derives the deterministic seed for one room encounter.
func EncounterSeed(worldSeed uint32, regionID, roomID, encounterIndex int) uint32 {
	return worldSeed ^ uint32(regionID) ^ uint32(roomID) ^ uint32(encounterIndex)
}

// ChooseTemplate selects an encounter template by room depth with weighted
// rolls: boss rooms at depth>=8 (30%), champion packs at depth>=5 (25%),
// mixed patrols at depth>=3 (40%), else the swarm template. Returns the
// template id and whether a template was found.
func (ii *Integration) ChooseTemplate(roomDepth, biomeID int, seed uint32) (int, bool) {
	_ = biomeID
	if ii.Templates.Count() <= 0 {
		return -1, false
	}
	state := seed
	if roomDepth >= 8 && randgen.XorshiftRange(&state, 100) < 30 {
		if ii.Templates.ByID(3) != nil {
			return 3, true
		}
	}
	if roomDepth >= 5 && randgen.XorshiftRange(&state, 100) < 25 {
		if ii.Templates.ByID(2) != nil {
			return 2, true
		}
	}
	if roomDepth >= 3 && randgen.XorshiftRange(&state, 100) < 40 {
		if ii.Templates.ByID(1) != nil {
			return 1, true
		}
	}
	if ii.Templates.ByID(0) != nil {
		return 0, true
	}
	if t := ii.Templates.At(0); t != nil {
		return t.ID, true
	}
	return -1, false
}

// ComputeRoomDifficulty maps room depth and geometry onto a difficulty
// rating used as the baseline unit level.
func (ii *Integration) ComputeRoomDifficulty(roomDepth, roomArea, roomTags int) int {
	rating := roomDepth
	if rating < 1 {
		rating = 1
	}
	if roomArea >= 49 {
		rating++
	}
	if roomTags != 0 {
		rating++
	}
	return rating
}

// ValidateTemplatePlacement checks a template fits the room: bosses need a
// 6x6, large swarms a 5x5, and any encounter a 3x3.
func (ii *Integration) ValidateTemplatePlacement(templateID, roomW, roomH int) bool {
	t := ii.Templates.ByID(templateID)
	if t == nil {
		return false
	}
	area := roomW * roomH
	if t.Boss && area < 36 {
		return false
	}
	if t.MaxCount >= 8 && area < 25 {
		return false
	}
	return area >= 9
}

// ApplyUnitStats fills an enemy's scaled stats from a composed unit,
// applying the elite multipliers (hp 1.5x, damage 1.2x, defense 1.1x) on
// top of the tier/relative/adaptive pipeline.
func (ii *Integration) ApplyUnitStats(e *Enemy, unit *EncounterUnit, playerLevel int, mapping *TypeMapping) error {
	if e == nil || unit == nil || mapping == nil {
		return errors.New("nil enemy, unit, or mapping")
	}
	e.Level = unit.Level
	e.TierID = mapping.TierID
	e.BaseLevelOffset = mapping.BaseLevelOffset
	e.EliteFlag = unit.IsElite
	stats, err := ii.Difficulty.ComputeFinalStats(playerLevel, unit.Level, mapping.TierID)
	if err != nil {
		return err
	}
	if unit.IsElite {
		stats.HP *= 1.5
		stats.Damage *= 1.2
		stats.Defense *= 1.1
	}
	e.FinalHP = stats.HP
	e.FinalDamage = stats.Damage
	e.FinalDefense = stats.Defense
	e.MaxHealth = int(stats.HP + 0.5)
	if e.MaxHealth < 1 {
		e.MaxHealth = 1
	}
	e.Health = e.MaxHealth
	return nil
}

// ApplyUnitModifiers rolls modifiers onto the enemy under type-dependent
// eligibility (boss always, elite 75%, normal 20%) and budget caps (boss
// 1.0, elite 0.8, else 0.6).
func (ii *Integration) ApplyUnitModifiers(e *Enemy, modifierSeed uint32, isElite, isBoss bool) {
	e.ModifierCount = 0
	for i := range e.ModifierIDs {
		e.ModifierIDs[i] = 0
	}
	apply := false
	switch {
	case isBoss:
		apply = true
	case isElite:
		apply = modifierSeed%100 < 75
	default:
		apply = modifierSeed%100 < 20
	}
	if !apply {
		return
	}
	budgetCap := float32(0.6)
	if isBoss {
		budgetCap = 1.0
	} else if isElite {
		budgetCap = 0.8
	}
	set := ii.Modifiers.Roll(modifierSeed, e.TierID, budgetCap)
	n := set.Count()
	if n > config.MaxActiveModifiers {
		n = config.MaxActiveModifiers
	}
	e.ModifierCount = n
	for i := 0; i < n; i++ {
		e.ModifierIDs[i] = set.Defs[i].ID
	}
}

// FinalizeSpawn assembles an enemy from a composed unit: encounter
// metadata, scaled stats, a modifier roll seeded from the encounter, and
// final invariant validation.
func (ii *Integration) FinalizeSpawn(e *Enemy, unit *EncounterUnit, info *RoomEncounterInfo, playerLevel int, mapping *TypeMapping) error {
	if e == nil || unit == nil || info == nil || mapping == nil {
		return errors.New("nil enemy, unit, info, or mapping")
	}
	e.EncounterID = info.RoomID
	e.ReplayHashFragment = info.EncounterSeed
	if err := ii.ApplyUnitStats(e, unit, playerLevel, mapping); err != nil {
		return err
	}
	modifierSeed := info.EncounterSeed ^ uint32(unit.EnemyTypeID) ^ 0xDEADBEEF
	ii.ApplyUnitModifiers(e, modifierSeed, unit.IsElite, e.BossFlag)
	if err := ValidateFinalStats(e); err != nil {
		return err
	}
	return nil
}

// ValidateFinalStats enforces the spawn invariants: positive hp,
// non-negative damage/defense, consistent health, level >= 1, and the
// modifier cap.
func ValidateFinalStats(e *Enemy) error {
	if e == nil {
		return errors.New("nil enemy")
	}
	if e.FinalHP < 0.1 {
		return errors.New("enemy hp must be positive")
	}
	if e.FinalDamage < 0 || e.FinalDefense < 0 {
		return errors.New("enemy damage/defense must be non-negative")
	}
	if e.MaxHealth <= 0 || e.Health <= 0 || e.Health > e.MaxHealth {
		return errors.New("enemy health out of range")
	}
	if e.Level <= 0 {
		return errors.New("enemy level must be >= 1")
	}
	if e.ModifierCount > config.MaxActiveModifiers {
		return errors.New("too many modifiers")
	}
	return nil
}

// ReplayHash folds the composition into an FNV-1a 64 digest: template id,
// unit levels, modifier count, then modifier ids.
func ReplayHash(templateID int, unitLevels []int, modifierIDs []int) uint64 {
	h := randgen.FNVOffset64
	h = randgen.FNV1a64Int(int32(templateID), h)
	for _, l := range unitLevels {
		h = randgen.FNV1a64Int(int32(l), h)
	}
	h = randgen.FNV1a64Int(int32(len(modifierIDs)), h)
	for _, id := range modifierIDs {
		h = randgen.FNV1a64Int(int32(id), h)
	}
	return h
}

// DebugRecord appends one composed encounter to the debug ring.
func (ii *Integration) DebugRecord(seed uint32, hash uint64, templateID, unitCount int) {
	ii.debugRing[ii.debugHead] = debugRec{seed: seed, hash: hash, templateID: templateID, unitCount: unitCount}
	ii.debugHead = (ii.debugHead + 1) % len(ii.debugRing)
	if ii.debugCount < len(ii.debugRing) {
		ii.debugCount++
	}
}

// DebugDump renders the ring newest-first for diagnostics.
func (ii *Integration) DebugDump() string {
	var b strings.Builder
	for i := 0; i < ii.debugCount; i++ {
		idx := ii.debugHead - 1 - i
		if idx < 0 {
			idx += len(ii.debugRing)
		}
		r := &ii.debugRing[idx]
		fmt.Fprintf(&b, "%d seed=%d hash=%d tmpl=%d units=%d\n", i, r.seed, r.hash, r.templateID, r.unitCount)
	}
	return b.String()
}
