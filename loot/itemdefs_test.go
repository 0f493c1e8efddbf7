package loot

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseDefLineMinimal(t *testing.T) {
	d, ok := parseDefLine("long_sword,Long Sword,2,1,1,50,6,11,0,sheet,0,0,16,16")
	if !ok {
		t.Fatal("minimal line rejected")
	}
	if d.ID != "long_sword" || d.Category != CategoryWeapon {
		t.Errorf("parsed id=%s cat=%d", d.ID, d.Category)
	}
	if d.BaseDamageMin != 6 || d.BaseDamageMax != 11 {
		t.Errorf("damage = %d/%d, want 6/11", d.BaseDamageMin, d.BaseDamageMax)
	}
	if d.Sprite.Sheet != "sheet" || d.Sprite.TW != 16 {
		t.Errorf("sprite = %+v", d.Sprite)
	}
}

func TestParseDefLineExtended(t *testing.T) {
	line := "helm,Iron Helm,3,5,1,80,0,0,12,sheet,1,2,16,16,2,0," +
		"1,2,3,4,5,6,7,8,9,10,11,7,1,3"
	d, ok := parseDefLine(line)
	if !ok {
		t.Fatal("extended line rejected")
	}
	if d.Rarity != 2 {
		t.Errorf("rarity = %d, want 2", d.Rarity)
	}
	if d.Implicit.Strength != 1 || d.Implicit.ResistStatus != 11 {
		t.Errorf("implicit block = %+v", d.Implicit)
	}
	if d.SetID != 7 || d.SocketMin != 1 || d.SocketMax != 3 {
		t.Errorf("set/sockets = %d/%d/%d", d.SetID, d.SocketMin, d.SocketMax)
	}
}

func TestParseDefLineRejectsMalformed(t *testing.T) {
	for _, line := range []string{"", "# comment", "too,few,fields"} {
		if _, ok := parseDefLine(line); ok {
			t.Errorf("line %q should be rejected", line)
		}
	}
}

func TestLoadFileSkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "items.cfg")
	content := "# items\n" +
		"long_sword,Long Sword,2,1,1,50,6,11,0,sheet,0,0,16,16\n" +
		"broken line\n" +
		"arcane_dust,Arcane Dust,5,1,50,2,0,0,0,sheet,3,0,16,16\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	r := NewDefRegistry()
	added, err := r.LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if added != 2 {
		t.Errorf("added = %d, want 2", added)
	}
	if r.IndexOf("arcane_dust") != 1 {
		t.Errorf("index of arcane_dust = %d, want 1", r.IndexOf("arcane_dust"))
	}
	if r.IndexOf("missing") != -1 {
		t.Error("unknown id should return -1")
	}
}

func TestDefInvariantsNormalized(t *testing.T) {
	r := NewDefRegistry()
	idx, err := r.Add(ItemDef{ID: "x", StackMax: 0, SocketMin: 4, SocketMax: 2, BaseDamageMin: 9, BaseDamageMax: 3})
	if err != nil {
		t.Fatal(err)
	}
	d := r.At(idx)
	if d.StackMax < 1 {
		t.Error("stack_max must normalize to >= 1")
	}
	if d.SocketMax < d.SocketMin {
		t.Error("socket_max must normalize to >= socket_min")
	}
	if d.BaseDamageMax < d.BaseDamageMin {
		t.Error("damage_max must normalize to >= damage_min")
	}
}

func TestExportImportJSONRoundTrip(t *testing.T) {
	r := testDefs(t)
	data, err := r.ExportJSON()
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	r2 := NewDefRegistry()
	added, err := r2.ImportJSON(data)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if added != r.Count() {
		t.Fatalf("imported %d, want %d", added, r.Count())
	}
	for i := 0; i < r.Count(); i++ {
		a, b := r.At(i), r2.At(i)
		if *a != *b {
			t.Errorf("def %d differs after round trip: %+v vs %+v", i, a, b)
		}
	}
}
