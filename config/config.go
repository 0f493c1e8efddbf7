// Package config holds the core tuning constants and the environment
// bootstrap shared by every subsystem.
package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Capacity limits for the preallocated registries.
const (
	// ItemDefCap bounds the item definition registry.
	ItemDefCap = 512

	// MaxAffixes bounds the affix registry.
	MaxAffixes = 256

	// ItemInstanceCap is the fixed size of the item instance pool.
	ItemInstanceCap = 4096

	// MaxLootTables bounds the loot table registry.
	MaxLootTables = 128

	// InvMaxEntries bounds the def->quantity aggregate.
	InvMaxEntries = 4096

	// MaxEncounterTemplates bounds the encounter template registry.
	MaxEncounterTemplates = 32

	// MaxEnemyModifiers bounds the modifier registry (ids 0..31 share a mask).
	MaxEnemyModifiers = 32

	// MaxActiveModifiers caps modifiers applied to a single enemy.
	MaxActiveModifiers = 8

	// EnemyRegistryCap is the fixed size of the live enemy registry.
	EnemyRegistryCap = 256
)

// Item lifetime defaults
const (
	// ItemDespawnMs is the ground lifetime before despawn when no
	// per-rarity override is configured.
	ItemDespawnMs = 60000

	// ItemStackMergeRadius is the world-space distance inside which
	// identical (def, rarity) stacks merge during the update sweep.
	ItemStackMergeRadius = 0.75
)

// Save system defaults
const (
	SaveSlotCount = 8 // numbered slot files
	AutosaveRing  = 4 // autosave ring size
	MaxBackups    = 3 // default backup rotation depth
)

// Environment variable names recognized by the core.
const (
	EnvSaveDir  = "ROGUE_TEST_SAVE_DIR"
	EnvLogLevel = "ROGUE_LOG_LEVEL"
)

// LoadEnv reads an optional .env file into the process environment.
// Missing files are fine; tests and tools set the variables directly.
func LoadEnv() {
	_ = godotenv.Load()
}

// SaveDir returns the directory prefix for save files, or "." when the
// override is unset.
func SaveDir() string {
	if d := os.Getenv(EnvSaveDir); d != "" {
		return d
	}
	return "."
}
