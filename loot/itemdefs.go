// Package loot owns the static item/affix data and the runtime item
// instance pool. Definitions are immutable once loaded; instances live in a
// fixed-capacity arena addressed by slot index.
package loot

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"rogue_core/config"
	"rogue_core/gamelog"
)

// ItemCategory matches the integer category column of the item def file.
type ItemCategory int

const (
	CategoryMisc ItemCategory = iota
	CategoryConsumable
	CategoryWeapon
	CategoryArmor
	CategoryGem
	CategoryMaterial
	categoryCount
)

// CategoryFromString maps a lowercase category name to its enum value.
// Returns -1 for unknown names.
func CategoryFromString(s string) ItemCategory {
	switch s {
	case "misc":
		return CategoryMisc
	case "consumable":
		return CategoryConsumable
	case "weapon":
		return CategoryWeapon
	case "armor":
		return CategoryArmor
	case "gem":
		return CategoryGem
	case "material":
		return CategoryMaterial
	}
	return -1
}

// StatBlock is the implicit stat contribution carried by a definition.
type StatBlock struct {
	Strength     int `json:"strength"`
	Dexterity    int `json:"dexterity"`
	Vitality     int `json:"vitality"`
	Intelligence int `json:"intelligence"`
	ArmorFlat    int `json:"armor_flat"`
	ResistPhys   int `json:"resist_physical"`
	ResistFire   int `json:"resist_fire"`
	ResistCold   int `json:"resist_cold"`
	ResistLight  int `json:"resist_lightning"`
	ResistPoison int `json:"resist_poison"`
	ResistStatus int `json:"resist_status"`
}

// SpriteMeta is the sheet placement consumed by the renderer. Kept as plain
// data; rendering itself lives outside the core.
type SpriteMeta struct {
	Sheet string `json:"sheet"`
	TX    int    `json:"tx"`
	TY    int    `json:"ty"`
	TW    int    `json:"tw"`
	TH    int    `json:"th"`
}

// ItemDef is an immutable item template.
type ItemDef struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Category      ItemCategory `json:"category"`
	LevelReq      int          `json:"level_req"`
	StackMax      int          `json:"stack_max"`
	BaseValue     int          `json:"base_value"`
	BaseDamageMin int          `json:"base_damage_min"`
	BaseDamageMax int          `json:"base_damage_max"`
	BaseArmor     int          `json:"base_armor"`
	Sprite        SpriteMeta   `json:"sprite"`
	Rarity        int          `json:"rarity"`
	Flags         uint32       `json:"flags"`
	Implicit      StatBlock    `json:"implicit"`
	SetID         int          `json:"set_id"`
	SocketMin     int          `json:"socket_min"`
	SocketMax     int          `json:"socket_max"`
}

// DefRegistry holds the loaded item definitions plus an id index.
type DefRegistry struct {
	defs  []ItemDef
	index map[string]int
}

// NewDefRegistry returns an empty registry with the configured capacity.
func NewDefRegistry() *DefRegistry {
	return &DefRegistry{defs: make([]ItemDef, 0, config.ItemDefCap)}
}

// Count returns the number of loaded definitions.
func (r *DefRegistry) Count() int { return len(r.defs) }

// At returns the definition at index, or nil when out of range.
func (r *DefRegistry) At(index int) *ItemDef {
	if index < 0 || index >= len(r.defs) {
		return nil
	}
	return &r.defs[index]
}

// IndexOf returns the def index for a stable string id, or -1.
func (r *DefRegistry) IndexOf(id string) int {
	if r.index != nil {
		if i, ok := r.index[id]; ok {
			return i
		}
		return -1
	}
	for i := range r.defs {
		if r.defs[i].ID == id {
			return i
		}
	}
	return -1
}

// BuildIndex (re)builds the id lookup index. Call after loading.
func (r *DefRegistry) BuildIndex() {
	r.index = make(map[string]int, len(r.defs)*2)
	for i := range r.defs {
		r.index[r.defs[i].ID] = i
	}
}

// Add appends a definition, enforcing capacity and invariants.
func (r *DefRegistry) Add(d ItemDef) (int, error) {
	if len(r.defs) >= config.ItemDefCap {
		return -1, errors.Errorf("item def capacity %d exceeded (id=%s)", config.ItemDefCap, d.ID)
	}
	if d.StackMax < 1 {
		d.StackMax = 1
	}
	if d.SocketMax < d.SocketMin {
		d.SocketMax = d.SocketMin
	}
	if d.SocketMin < 0 {
		d.SocketMin = 0
	}
	if d.SocketMax > 6 {
		d.SocketMax = 6
	}
	if d.BaseDamageMax < d.BaseDamageMin {
		d.BaseDamageMax = d.BaseDamageMin
	}
	r.defs = append(r.defs, d)
	if r.index != nil {
		r.index[d.ID] = len(r.defs) - 1
	}
	return len(r.defs) - 1, nil
}

func atoiField(fields []string, i int) int {
	if i >= len(fields) {
		return 0
	}
	v, _ := strconv.Atoi(strings.TrimSpace(fields[i]))
	return v
}

// parseDefLine parses one CSV item def line. Layout:
//
//	id,name,category,level_req,stack_max,base_value,dmg_min,dmg_max,armor,
//	sheet,tx,ty,tw,th[,rarity[,flags[,impl...x11,set_id,socket_min,socket_max]]]
func parseDefLine(line string) (ItemDef, bool) {
	var d ItemDef
	line = strings.TrimRight(line, "\r\n")
	if line == "" || strings.HasPrefix(line, "#") {
		return d, false
	}
	fields := strings.Split(line, ",")
	if len(fields) < 14 {
		return d, false
	}
	d.ID = strings.TrimSpace(fields[0])
	d.Name = strings.TrimSpace(fields[1])
	d.Category = ItemCategory(atoiField(fields, 2))
	if d.Category < 0 || d.Category >= categoryCount {
		d.Category = CategoryMisc
	}
	d.LevelReq = atoiField(fields, 3)
	d.StackMax = atoiField(fields, 4)
	d.BaseValue = atoiField(fields, 5)
	d.BaseDamageMin = atoiField(fields, 6)
	d.BaseDamageMax = atoiField(fields, 7)
	d.BaseArmor = atoiField(fields, 8)
	d.Sprite.Sheet = strings.TrimSpace(fields[9])
	d.Sprite.TX = atoiField(fields, 10)
	d.Sprite.TY = atoiField(fields, 11)
	d.Sprite.TW = atoiField(fields, 12)
	d.Sprite.TH = atoiField(fields, 13)
	if len(fields) > 14 {
		d.Rarity = atoiField(fields, 14)
		if d.Rarity < 0 {
			d.Rarity = 0
		}
		if d.Rarity > 4 {
			d.Rarity = 4
		}
	}
	if len(fields) > 15 {
		d.Flags = uint32(atoiField(fields, 15))
	}
	if len(fields) > 26 {
		d.Implicit = StatBlock{
			Strength:     atoiField(fields, 16),
			Dexterity:    atoiField(fields, 17),
			Vitality:     atoiField(fields, 18),
			Intelligence: atoiField(fields, 19),
			ArmorFlat:    atoiField(fields, 20),
			ResistPhys:   atoiField(fields, 21),
			ResistFire:   atoiField(fields, 22),
			ResistCold:   atoiField(fields, 23),
			ResistLight:  atoiField(fields, 24),
			ResistPoison: atoiField(fields, 25),
			ResistStatus: atoiField(fields, 26),
		}
	}
	if len(fields) > 27 {
		d.SetID = atoiField(fields, 27)
	}
	if len(fields) > 29 {
		d.SocketMin = atoiField(fields, 28)
		d.SocketMax = atoiField(fields, 29)
	}
	return d, true
}

// LoadFile appends definitions from a CSV file, skipping malformed lines.
// Returns the number added.
func (r *DefRegistry) LoadFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrapf(err, "open item defs %s", path)
	}
	defer f.Close()
	added := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		d, ok := parseDefLine(sc.Text())
		if !ok {
			continue
		}
		if _, err := r.Add(d); err != nil {
			gamelog.Warn("item def capacity reached, line skipped", "id", d.ID)
			break
		}
		added++
	}
	if err := sc.Err(); err != nil {
		return added, errors.Wrapf(err, "read item defs %s", path)
	}
	r.BuildIndex()
	return added, nil
}

// FindAssetPath resolves a data file by trying the path as given, then
// walking up to eight parent directories, then relative to the executable.
// Returns the first path that exists, or the input unchanged.
func FindAssetPath(rel string) string {
	if _, err := os.Stat(rel); err == nil {
		return rel
	}
	prefix := ""
	for i := 0; i < 8; i++ {
		prefix = filepath.Join("..", prefix)
		cand := filepath.Join(prefix, rel)
		if _, err := os.Stat(cand); err == nil {
			return cand
		}
	}
	if exe, err := os.Executable(); err == nil {
		cand := filepath.Join(filepath.Dir(exe), rel)
		if _, err := os.Stat(cand); err == nil {
			return cand
		}
	}
	return rel
}
