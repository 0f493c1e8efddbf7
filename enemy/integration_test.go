package enemy

import (
	"strings"
	"testing"

	"rogue_core/common"
)

func testIntegration(t *testing.T) *Integration {
	t.Helper()
	return NewIntegration(testTemplates(t), testModifiers(t), NewDifficulty())
}

func TestEncounterSeedXOR(t *testing.T) {
	if got := EncounterSeed(0xF0F0, 0x0F, 0xF0, 0x3); got != 0xF0F0^0x0F^0xF0^0x3 {
		t.Errorf("seed = %#x", got)
	}
}

func TestValidateUniqueMappings(t *testing.T) {
	good := []TypeMapping{
		{TypeIndex: 0, ID: 10, Name: "goblin", Archetype: ArchetypeMelee, TierID: TierNormal},
		{TypeIndex: 1, ID: 11, Name: "archer", Archetype: ArchetypeRanged, TierID: TierVeteran},
	}
	if err := ValidateUniqueMappings(good); err != nil {
		t.Errorf("unique mappings rejected: %v", err)
	}
	dup := append(good, TypeMapping{TypeIndex: 0, ID: 12})
	if err := ValidateUniqueMappings(dup); err == nil {
		t.Error("duplicate type index accepted")
	}
	if FindMapping(1, good) == nil || FindMapping(9, good) != nil {
		t.Error("FindMapping lookup broken")
	}
}

func TestChooseTemplateByDepth(t *testing.T) {
	ii := testIntegration(t)
	// Shallow rooms always get the swarm template.
	id, ok := ii.ChooseTemplate(1, 0, 42)
	if !ok || id != 0 {
		t.Errorf("shallow choice = %d ok=%v, want swarm 0", id, ok)
	}
	// Deep rooms eventually roll a boss room across seeds.
	sawBoss := false
	for seed := uint32(1); seed < 100 && !sawBoss; seed++ {
		if id, ok := ii.ChooseTemplate(9, 0, seed); ok && id == 3 {
			sawBoss = true
		}
	}
	if !sawBoss {
		t.Error("depth 9 never selected the boss room in 100 seeds")
	}
}

func TestValidateTemplatePlacement(t *testing.T) {
	ii := testIntegration(t)
	if ii.ValidateTemplatePlacement(3, 5, 5) {
		t.Error("boss room in 25 tiles should be rejected (needs 36)")
	}
	if !ii.ValidateTemplatePlacement(3, 6, 6) {
		t.Error("boss room in 36 tiles should fit")
	}
	if ii.ValidateTemplatePlacement(0, 4, 6) {
		t.Error("max_count 9 swarm in 24 tiles should be rejected (needs 25)")
	}
	if ii.ValidateTemplatePlacement(2, 2, 2) {
		t.Error("any encounter needs at least 9 tiles")
	}
}

func TestFinalizeSpawnValidEnemy(t *testing.T) {
	ii := testIntegration(t)
	mapping := &TypeMapping{TypeIndex: 0, ID: 10, Name: "goblin", Archetype: ArchetypeMelee, TierID: TierElite}
	unit := &EncounterUnit{EnemyTypeID: 0, Level: 8, IsElite: true}
	info := &RoomEncounterInfo{RoomID: 3, DepthLevel: 4, EncounterSeed: 0xBEEF}
	var e Enemy
	if err := ii.FinalizeSpawn(&e, unit, info, 10, mapping); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if e.Level != 8 || e.TierID != TierElite || !e.EliteFlag {
		t.Errorf("enemy = %+v", e)
	}
	if e.EncounterID != 3 || e.ReplayHashFragment != 0xBEEF {
		t.Errorf("encounter metadata = %d/%#x", e.EncounterID, e.ReplayHashFragment)
	}
	if e.Health != e.MaxHealth || e.MaxHealth < 1 {
		t.Errorf("health = %d/%d", e.Health, e.MaxHealth)
	}
	if err := ValidateFinalStats(&e); err != nil {
		t.Errorf("validation: %v", err)
	}
}

func TestEliteMultipliers(t *testing.T) {
	ii := testIntegration(t)
	mapping := &TypeMapping{TypeIndex: 0, ID: 10, TierID: TierNormal}
	var plain, elite Enemy
	if err := ii.ApplyUnitStats(&plain, &EncounterUnit{Level: 10}, 10, mapping); err != nil {
		t.Fatal(err)
	}
	if err := ii.ApplyUnitStats(&elite, &EncounterUnit{Level: 10, IsElite: true}, 10, mapping); err != nil {
		t.Fatal(err)
	}
	if elite.FinalHP <= plain.FinalHP*1.4 || elite.FinalHP >= plain.FinalHP*1.6 {
		t.Errorf("elite hp %f vs plain %f, want 1.5x", elite.FinalHP, plain.FinalHP)
	}
	if elite.FinalDamage <= plain.FinalDamage*1.1 {
		t.Errorf("elite damage %f vs plain %f, want 1.2x", elite.FinalDamage, plain.FinalDamage)
	}
}

func TestModifierEligibility(t *testing.T) {
	ii := testIntegration(t)
	var e Enemy
	e.TierID = TierBoss
	// Bosses always roll; seed chosen so the roll lands something.
	ii.ApplyUnitModifiers(&e, 50, false, true)
	if e.ModifierCount == 0 {
		t.Error("boss should always receive modifiers")
	}
	// seed%100 = 99 skips both elites (75) and normals (20).
	var e2 Enemy
	e2.TierID = TierNormal
	ii.ApplyUnitModifiers(&e2, 199, true, false)
	if e2.ModifierCount != 0 {
		t.Error("seed 199 should skip elite modifiers (99 >= 75)")
	}
	ii.ApplyUnitModifiers(&e2, 199, false, false)
	if e2.ModifierCount != 0 {
		t.Error("seed 199 should skip normal modifiers")
	}
}

func TestValidateFinalStatsRejectsBadEnemies(t *testing.T) {
	good := Enemy{FinalHP: 10, MaxHealth: 10, Health: 10, Level: 1}
	if err := ValidateFinalStats(&good); err != nil {
		t.Fatalf("good enemy rejected: %v", err)
	}
	cases := []func(e *Enemy){
		func(e *Enemy) { e.FinalHP = 0 },
		func(e *Enemy) { e.FinalDamage = -1 },
		func(e *Enemy) { e.Health = e.MaxHealth + 1 },
		func(e *Enemy) { e.Level = 0 },
		func(e *Enemy) { e.ModifierCount = 9 },
	}
	for i, mutate := range cases {
		e := good
		mutate(&e)
		if err := ValidateFinalStats(&e); err == nil {
			t.Errorf("case %d accepted invalid enemy", i)
		}
	}
}

func TestReplayHashStability(t *testing.T) {
	levels := []int{5, 5, 6}
	mods := []int{1, 4}
	h1 := ReplayHash(2, levels, mods)
	h2 := ReplayHash(2, levels, mods)
	if h1 != h2 {
		t.Error("replay hash not stable")
	}
	if ReplayHash(3, levels, mods) == h1 {
		t.Error("template id must fold into the hash")
	}
	if ReplayHash(2, levels, []int{4, 1}) == h1 {
		t.Error("modifier order must fold into the hash")
	}
}

func TestDebugRingNewestFirst(t *testing.T) {
	ii := testIntegration(t)
	for i := 0; i < 40; i++ {
		ii.DebugRecord(uint32(i), uint64(i), i, i)
	}
	dump := ii.DebugDump()
	lines := strings.Split(strings.TrimSpace(dump), "\n")
	if len(lines) != 32 {
		t.Fatalf("ring dump lines = %d, want 32", len(lines))
	}
	if !strings.Contains(lines[0], "seed=39") {
		t.Errorf("newest entry first, got %q", lines[0])
	}
}

func TestSpawnSolverPlacement(t *testing.T) {
	info := &RoomEncounterInfo{RoomID: 1, DepthLevel: 6, EncounterSeed: 77}
	dims := &RoomDimensions{MinX: 0, MinY: 0, MaxX: 20, MaxY: 20}
	sol := SolveSpawnPositions(info, dims, 5, nil, 1234)
	if !sol.Success {
		t.Fatalf("solver failed: %+v", sol)
	}
	// Depth >= 5 anchors a boss at room center.
	if sol.Positions[0] != [2]float32{10, 10} {
		t.Errorf("boss not centered: %v", sol.Positions[0])
	}
	minD2 := sol.MinDistance * sol.MinDistance
	for i := range sol.Positions {
		for j := i + 1; j < len(sol.Positions); j++ {
			dx := sol.Positions[i][0] - sol.Positions[j][0]
			dy := sol.Positions[i][1] - sol.Positions[j][1]
			if dx*dx+dy*dy < minD2 {
				t.Errorf("units %d/%d too close", i, j)
			}
		}
	}
}

func TestSpawnSolverAvoidsObstacles(t *testing.T) {
	info := &RoomEncounterInfo{RoomID: 1, DepthLevel: 1, EncounterSeed: 9}
	dims := &RoomDimensions{MinX: 0, MinY: 0, MaxX: 12, MaxY: 12}
	obstacles := []ObstacleZone{{X: 6, Y: 6, Radius: 2}}
	sol := SolveSpawnPositions(info, dims, 3, obstacles, 555)
	for _, p := range sol.Positions {
		dx := p[0] - 6
		dy := p[1] - 6
		if dx*dx+dy*dy < 4 {
			t.Errorf("position %v inside obstacle", p)
		}
	}
}

func TestRegistryLifecycle(t *testing.T) {
	em := common.NewEntityManager()
	r := NewRegistry(em)
	e := Enemy{FinalHP: 100, FinalDamage: 10, FinalDefense: 100, MaxHealth: 100, Health: 100, Level: 5}
	id1 := r.Register(1, &e, 2, 2)
	id2 := r.Register(1, &e, 8, 8)
	if id1 < 0 || id2 < 0 || id1 == id2 {
		t.Fatalf("ids = %d/%d", id1, id2)
	}
	if got := r.FindNearest(0, 0); got != id1 {
		t.Errorf("nearest = %d, want %d", got, id1)
	}
	r.UpdatePosition(id1, 20, 20)
	if got := r.FindNearest(0, 0); got != id2 {
		t.Errorf("nearest after move = %d, want %d", got, id2)
	}
	if got := r.FindAtPosition(8, 8, 0.5); got != id2 {
		t.Errorf("at position = %d, want %d", got, id2)
	}
	if got := r.FindAtPosition(50, 50, 0.5); got != -1 {
		t.Errorf("empty position = %d, want -1", got)
	}
}

func TestRegistryDamageAndCleanup(t *testing.T) {
	em := common.NewEntityManager()
	r := NewRegistry(em)
	e := Enemy{FinalHP: 100, FinalDefense: 100, MaxHealth: 100, Health: 100, Level: 5}
	id := r.Register(1, &e, 0, 0)

	// Physical damage is reduced by DR = 100/(100+100) = 50%.
	res := r.ApplyDamage(id, 40, DamagePhysical)
	if res != DamageApplied {
		t.Fatalf("result = %d", res)
	}
	if got := r.Runtime(id).Stats.Health; got != 80 {
		t.Errorf("health = %d, want 80 after 50%% DR", got)
	}

	// Elemental damage honors the stored resistance.
	rt := r.Runtime(id)
	rt.Attributes.ElemResist = 0.5
	r.ApplyDamage(id, 40, DamageFire)
	if got := rt.Stats.Health; got != 60 {
		t.Errorf("health = %d, want 60 after fire resist", got)
	}

	if res := r.ApplyDamage(id, 1000, DamagePhysical); res != DamageKilled {
		t.Errorf("overkill result = %d, want killed", res)
	}
	if r.Alive(id) {
		t.Error("dead enemy still alive")
	}
	if res := r.ApplyDamage(id, 5, DamagePhysical); res != DamageNotFound {
		t.Errorf("damage to dead = %d, want not found", res)
	}
	r.Cleanup()
	if r.Count() != 0 {
		t.Errorf("count after cleanup = %d, want 0", r.Count())
	}
}
