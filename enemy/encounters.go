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

// EncounterType classifies a template's composition shape.
type EncounterType int

const (
	EncounterSwarm EncounterType = iota
	EncounterMixed
	EncounterChampionPack
	EncounterBossRoom
)

func encounterTypeFromString(s string) EncounterType {
	switch s {
	case "mixed":
		return EncounterMixed
	case "champion_pack":
		return EncounterChampionPack
	case "boss_room":
		return EncounterBossRoom
	}
	return EncounterSwarm
}

// EncounterTemplate describes one composable encounter shape, parsed from
// key=value blocks separated by blank lines.
type EncounterTemplate struct {
	ID           int
	Name         string
	Type         EncounterType
	MinCount     int
	MaxCount     int
	Boss         bool
	SupportMin   int
	SupportMax   int
	EliteSpacing int
	EliteChance  float32
}

// EncounterTemplates is the loaded template registry.
type EncounterTemplates struct {
	templates []EncounterTemplate
}

// NewEncounterTemplates returns an empty registry.
func NewEncounterTemplates() *EncounterTemplates {
	return &EncounterTemplates{templates: make([]EncounterTemplate, 0, config.MaxEncounterTemplates)}
}

func defaultTemplate() EncounterTemplate {
	return EncounterTemplate{EliteSpacing: 3, EliteChance: 0.15}
}

// Add appends a template, enforcing capacity.
func (r *EncounterTemplates) Add(t EncounterTemplate) (int, error) {
	if len(r.templates) >= config.MaxEncounterTemplates {
		return -1, errors.Errorf("encounter template capacity %d exceeded", config.MaxEncounterTemplates)
	}
	r.templates = append(r.templates, t)
	return len(r.templates) - 1, nil
}

// Count returns the number of loaded templates.
func (r *EncounterTemplates) Count() int { return len(r.templates) }

// At returns the template at array index, or nil.
func (r *EncounterTemplates) At(index int) *EncounterTemplate {
	if index < 0 || index >= len(r.templates) {
		return nil
	}
	return &r.templates[index]
}

// ByID returns the template with the given id, or nil.
func (r *EncounterTemplates) ByID(id int) *EncounterTemplate {
	for i := range r.templates {
		if r.templates[i].ID == id {
			return &r.templates[i]
		}
	}
	return nil
}

// LoadFile replaces the registry with templates parsed from the file.
// Returns the template count.
func (r *EncounterTemplates) LoadFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrapf(err, "open encounters %s", path)
	}
	defer f.Close()
	r.templates = r.templates[:0]
	cur := defaultTemplate()
	commit := func() {
		if cur.Name != "" {
			_, _ = r.Add(cur)
		}
		cur = defaultTemplate()
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
		case "type":
			cur.Type = encounterTypeFromString(val)
		case "min":
			cur.MinCount, _ = strconv.Atoi(val)
		case "max":
			cur.MaxCount, _ = strconv.Atoi(val)
		case "boss":
			b, _ := strconv.Atoi(val)
			cur.Boss = b != 0
		case "support_min":
			cur.SupportMin, _ = strconv.Atoi(val)
		case "support_max":
			cur.SupportMax, _ = strconv.Atoi(val)
		case "elite_spacing":
			cur.EliteSpacing, _ = strconv.Atoi(val)
		case "elite_chance":
			c, _ := strconv.ParseFloat(val, 32)
			cur.EliteChance = float32(c)
		}
	}
	commit()
	return len(r.templates), sc.Err()
}

// EncounterUnit is one composed unit prior to enemy type resolution.
type EncounterUnit struct {
	EnemyTypeID int
	Level       int
	IsElite     bool
}

// Composition is the deterministic output of composing a template.
type Composition struct {
	TemplateID   int
	Units        []EncounterUnit
	UnitCount    int
	EliteCount   int
	SupportCount int
	BossPresent  bool
}

const maxCompositionUnits = 64

// Compose deterministically builds a unit list from a template: unit count
// sampled in [min,max], boss occupying slot 0 when flagged, elites placed
// at spaced slots gated by elite_chance, and support units appended for
// boss templates. The xorshift stream is seeded by seed (0xA53 fallback).
func (r *EncounterTemplates) Compose(templateID, playerLevel, difficultyRating, biomeID int, seed uint32) (*Composition, error) {
	_ = playerLevel
	_ = biomeID
	t := r.ByID(templateID)
	if t == nil {
		return nil, errors.Errorf("unknown encounter template id %d", templateID)
	}
	out := &Composition{TemplateID: templateID}
	state := seed
	if state == 0 {
		state = 0xA53
	}
	span := 1
	if t.MaxCount > t.MinCount {
		span = t.MaxCount - t.MinCount + 1
	}
	count := t.MinCount + randgen.XorshiftRange(&state, span)
	if count < t.MinCount {
		count = t.MinCount
	}
	if count > t.MaxCount {
		count = t.MaxCount
	}
	spacing := t.EliteSpacing
	if spacing <= 0 {
		spacing = 3
	}
	nextEliteSlot := spacing
	for i := 0; i < count && i < maxCompositionUnits; i++ {
		u := EncounterUnit{Level: difficultyRating}
		if t.Boss && i == 0 {
			u.IsElite = true
			out.BossPresent = true
		} else if i == nextEliteSlot {
			if randgen.XorshiftFloat(&state) < t.EliteChance {
				u.IsElite = true
				out.EliteCount++
				nextEliteSlot = i + spacing
			} else {
				nextEliteSlot = i + 1
			}
		}
		out.Units = append(out.Units, u)
		out.UnitCount++
	}
	if t.Boss && t.SupportMax > 0 {
		supSpan := 1
		if t.SupportMax > t.SupportMin {
			supSpan = t.SupportMax - t.SupportMin + 1
		}
		sup := t.SupportMin + randgen.XorshiftRange(&state, supSpan)
		for s := 0; s < sup && out.UnitCount < maxCompositionUnits; s++ {
			out.Units = append(out.Units, EncounterUnit{Level: difficultyRating})
			out.UnitCount++
			out.SupportCount++
		}
	}
	return out, nil
}
