// Package gamesetup wires every registry into one Session object. Nothing
// in the core keeps package-level mutable state; a Session owns all of it
// and operations hang off the registries it exposes.
package gamesetup

import (
	"rogue_core/common"
	"rogue_core/config"
	"rogue_core/enemy"
	"rogue_core/gear"
	"rogue_core/inventory"
	"rogue_core/loot"
	"rogue_core/playerstate"
	"rogue_core/savesystem"
	"rogue_core/spawning"
)

// Session owns every registry and the wiring between them.
type Session struct {
	Defs    *loot.DefRegistry
	Affixes *loot.AffixRegistry
	Pool    *loot.Pool

	Rarity    *spawning.RarityState
	Tables    *spawning.LootTables
	Generator *spawning.Generator

	Enhance *gear.Engine

	Entries *inventory.Entries
	Tags    *inventory.Tags
	Rules   *inventory.TagRules
	Query   *inventory.Query

	Difficulty  *enemy.Difficulty
	Encounters  *enemy.EncounterTemplates
	Modifiers   *enemy.Modifiers
	Integration *enemy.Integration
	ECS         *common.EntityManager
	Enemies     *enemy.Registry

	Player *playerstate.State
	Save   *savesystem.Manager
}

// NewSession builds a fully wired session. Save files land under
// config.SaveDir(); pass data file paths to the Load* helpers afterwards.
func NewSession() *Session {
	s := &Session{}
	s.Defs = loot.NewDefRegistry()
	s.Affixes = loot.NewAffixRegistry()
	s.Pool = loot.NewPool(s.Defs, s.Affixes)

	s.Rarity = spawning.NewRarityState()
	s.Tables = spawning.NewLootTables(s.Defs, s.Rarity)
	s.Generator = spawning.NewGenerator(s.Tables, s.Rarity, s.Pool)
	s.Pool.DespawnOverrideMs = s.Rarity.DespawnMs

	s.Enhance = gear.NewEngine(s.Pool)

	s.Entries = inventory.NewEntries()
	s.Entries.SetUniqueCap(uint32(config.InvMaxEntries))
	s.Tags = inventory.NewTags()
	s.Rules = inventory.NewTagRules(s.Defs, s.Tags)
	s.Query = inventory.NewQuery(s.Entries, s.Tags, s.Defs, s.Pool)

	s.Difficulty = enemy.NewDifficulty()
	s.Encounters = enemy.NewEncounterTemplates()
	s.Modifiers = enemy.NewModifiers()
	s.Integration = enemy.NewIntegration(s.Encounters, s.Modifiers, s.Difficulty)
	s.ECS = common.NewEntityManager()
	s.Enemies = enemy.NewRegistry(s.ECS)

	s.Player = playerstate.NewState()
	s.Save = savesystem.NewManager(config.SaveDir())
	s.Save.RegisterCoreMigrations()
	savesystem.RegisterCoreComponents(s.Save, savesystem.CoreState{
		Pool:    s.Pool,
		Entries: s.Entries,
		Tags:    s.Tags,
		Rules:   s.Rules,
		Query:   s.Query,
		State:   s.Player,
	})

	s.Pool.SetHooks(loot.PoolHooks{
		OnMutation: func(slot int) {
			s.Query.OnInstanceMutation(slot)
			_ = s.Save.MarkComponentDirty(savesystem.CompInventory)
		},
	})
	s.Query.OnSavedChange = func() {
		_ = s.Save.MarkComponentDirty(savesystem.CompInvSavedSearches)
	}
	return s
}

// RegisterPickup records a picked-up item in the aggregate and runs the
// auto-tag rules for its definition.
func (s *Session) RegisterPickup(defIndex int, qty uint64) error {
	if err := s.Entries.RegisterPickup(defIndex, qty); err != nil {
		return err
	}
	s.Rules.ApplyDef(defIndex)
	_ = s.Save.MarkComponentDirty(savesystem.CompInvEntries)
	return nil
}
