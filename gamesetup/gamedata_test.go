package gamesetup

import (
	"testing"

	"rogue_core/loot"
)

func TestLoadGameDataFromAssets(t *testing.T) {
	t.Setenv("ROGUE_TEST_SAVE_DIR", t.TempDir())
	s := NewSession()
	if err := s.LoadGameData(); err != nil {
		t.Fatalf("load game data: %v", err)
	}
	if s.Defs.Count() < 10 {
		t.Errorf("item defs = %d, want the full canonical set", s.Defs.Count())
	}
	if s.Defs.IndexOf("long_sword") < 0 || s.Defs.IndexOf("reforge_hammer") < 0 {
		t.Error("canonical item ids missing")
	}
	if s.Affixes.Count() != 8 {
		t.Errorf("affixes = %d, want 8", s.Affixes.Count())
	}
	if s.Tables.IndexOf("weapons_basic") < 0 || s.Tables.IndexOf("scraps") < 0 {
		t.Error("canonical loot tables missing")
	}
	if s.Encounters.Count() != 4 || s.Encounters.ByID(3) == nil {
		t.Errorf("encounter templates = %d, want 4 with a boss room", s.Encounters.Count())
	}
	if s.Modifiers.Count() != 5 {
		t.Errorf("modifiers = %d, want 5", s.Modifiers.Count())
	}
	// A canonical end-to-end drop works against loaded data.
	rng := uint32(777)
	out, err := s.Generator.GenerateItem(s.Tables.IndexOf("weapons_basic"), nil, &rng, 0, 0)
	if err != nil {
		t.Fatalf("generate from loaded tables: %v", err)
	}
	if s.Pool.At(out.InstIndex) == nil {
		t.Error("generated instance not active")
	}
	if s.Defs.At(out.DefIndex).Category != loot.CategoryWeapon {
		t.Error("weapons table produced a non-weapon")
	}
}
