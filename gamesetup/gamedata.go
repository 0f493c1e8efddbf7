package gamesetup

import (
	"path/filepath"

	"github.com/pkg/errors"

	"rogue_core/loot"
)

// Data file names under the gamedata directory.
const (
	gamedataDir    = "assets/gamedata"
	itemsFile      = "items.cfg"
	affixesFile    = "affixes.cfg"
	lootTablesFile = "loot_tables.cfg"
	encountersFile = "encounters.cfg"
	modifiersFile  = "enemy_modifiers.cfg"
	diffParamsFile = "difficulty_params.cfg"
)

// LoadGameData populates every registry from the canonical data directory.
// Paths resolve through the upward scan so tests and tools can run from
// nested working directories.
func (s *Session) LoadGameData() error {
	resolve := func(name string) string {
		return loot.FindAssetPath(filepath.Join(gamedataDir, name))
	}
	if _, err := s.Defs.LoadFile(resolve(itemsFile)); err != nil {
		return errors.Wrap(err, "load item defs")
	}
	if _, err := s.Affixes.LoadFile(resolve(affixesFile)); err != nil {
		return errors.Wrap(err, "load affixes")
	}
	if _, err := s.Tables.LoadFile(resolve(lootTablesFile)); err != nil {
		return errors.Wrap(err, "load loot tables")
	}
	if _, err := s.Encounters.LoadFile(resolve(encountersFile)); err != nil {
		return errors.Wrap(err, "load encounter templates")
	}
	if _, err := s.Modifiers.LoadFile(resolve(modifiersFile)); err != nil {
		return errors.Wrap(err, "load enemy modifiers")
	}
	if err := s.Difficulty.LoadParamsFile(resolve(diffParamsFile)); err != nil {
		return errors.Wrap(err, "load difficulty params")
	}
	return nil
}
