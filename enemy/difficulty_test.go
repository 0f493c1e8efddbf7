package enemy

import (
	"math"
	"testing"
)

func TestTierTableInvariants(t *testing.T) {
	if !validateTierIDs() {
		t.Error("tier ids must be unique")
	}
	if !validateTierMonotonic() {
		t.Error("hp strictly increasing, dps at most one dip")
	}
}

func TestBaseBudgetsElite(t *testing.T) {
	b, ok := BaseBudgets(TierElite)
	if !ok {
		t.Fatal("elite tier missing")
	}
	want := TierBudgets{1.85, 1.60, 1.40, 1.40}
	if b != want {
		t.Errorf("elite budgets = %+v, want %+v", b, want)
	}
}

func TestArchetypeNames(t *testing.T) {
	if got := ArchetypeName(ArchetypeEliteSupport); got != "EliteSupport" {
		t.Errorf("name = %q", got)
	}
	if got := ArchetypeName(Archetype(99)); got != "" {
		t.Errorf("out of range name = %q", got)
	}
}

func TestRelativeMultipliersGrid(t *testing.T) {
	d := NewDifficulty()

	hp, dmg, err := d.RelativeMultipliers(20, 20)
	if err != nil || hp != 1.0 || dmg != 1.0 {
		t.Errorf("equal levels: hp=%f dmg=%f err=%v, want 1/1", hp, dmg, err)
	}

	hp, dmg, _ = d.RelativeMultipliers(30, 20)
	if hp > 1.0 || dmg > 1.0 {
		t.Errorf("over-leveled player should shrink enemies: hp=%f dmg=%f", hp, dmg)
	}
	if hp < 0.05 || dmg < 0.05 {
		t.Errorf("multipliers below floor: hp=%f dmg=%f", hp, dmg)
	}

	hp, dmg, _ = d.RelativeMultipliers(20, 30)
	if hp < 1.0 || dmg < 1.0 {
		t.Errorf("under-leveled player should face buffs: hp=%f dmg=%f", hp, dmg)
	}

	if _, _, err := d.RelativeMultipliers(0, 5); err == nil {
		t.Error("level 0 should error")
	}
}

func TestRelativeMultiplierCaps(t *testing.T) {
	d := NewDifficulty()
	hp, dmg, _ := d.RelativeMultipliers(200, 1)
	p := d.Params()
	if hp != 1-p.CapDef {
		t.Errorf("hp reduction uncapped: %f", hp)
	}
	if dmg != 1-p.CapDmg {
		t.Errorf("dmg reduction uncapped: %f", dmg)
	}
	hp, dmg, _ = d.RelativeMultipliers(1, 200)
	if hp != 1+p.UCapDef || dmg != 1+p.UCapDmg {
		t.Errorf("under-level buffs uncapped: hp=%f dmg=%f", hp, dmg)
	}
}

func TestComputeFinalStatsAppliesTier(t *testing.T) {
	d := NewDifficulty()
	normal, err := d.ComputeFinalStats(10, 10, TierNormal)
	if err != nil {
		t.Fatalf("normal: %v", err)
	}
	boss, err := d.ComputeFinalStats(10, 10, TierBoss)
	if err != nil {
		t.Fatalf("boss: %v", err)
	}
	if boss.HP <= normal.HP*7 {
		t.Errorf("boss hp %f should be ~8x normal %f", boss.HP, normal.HP)
	}
	if _, err := d.ComputeFinalStats(10, 10, 999); err == nil {
		t.Error("unknown tier should error")
	}
}

func TestBaseCurves(t *testing.T) {
	if got, want := BaseHP(1), float32(100); got != want {
		t.Errorf("BaseHP(1) = %f, want %f", got, want)
	}
	if BaseHP(10) <= BaseHP(5) || BaseDamage(10) <= BaseDamage(5) || BaseDefense(10) <= BaseDefense(5) {
		t.Error("base curves must increase with level")
	}
	// Growth stays well below L^1.5: hp(20)/hp(10) < 2^1.5.
	ratio := BaseHP(20) / BaseHP(10)
	if ratio >= float32(math.Pow(2, 1.5)) {
		t.Errorf("hp growth too steep: %f", ratio)
	}
}

func TestRewardScalar(t *testing.T) {
	d := NewDifficulty()
	if got := d.RewardScalar(10, 10); got != 1 {
		t.Errorf("equal level reward = %f, want 1", got)
	}
	if got := d.RewardScalar(5, 20); got != 1 {
		t.Errorf("under-leveled reward = %f, want 1", got)
	}
	if got := d.RewardScalar(30, 10); got != 0.15 {
		t.Errorf("trivial reward = %f, want 0.15", got)
	}
	mid := d.RewardScalar(20, 10) // dL=10, between thresholds 8 and 12
	if mid <= 0.15 || mid >= 1 {
		t.Errorf("mid reward = %f, want strictly between", mid)
	}
}

func TestClassifyDelta(t *testing.T) {
	d := NewDifficulty()
	cases := []struct {
		player, enemy int
		want          DeltaSeverity
	}{
		{10, 10, DeltaEqual},
		{12, 10, DeltaMinor},
		{16, 10, DeltaMajor},
		{19, 10, DeltaDominance},
		{30, 10, DeltaTrivial},
		{10, 13, DeltaMinor},
		{10, 15, DeltaModerate},
		{10, 20, DeltaMajor},
	}
	for _, c := range cases {
		if got := d.ClassifyDelta(c.player, c.enemy); got != c.want {
			t.Errorf("ClassifyDelta(%d,%d) = %d, want %d", c.player, c.enemy, got, c.want)
		}
	}
}

func TestDerivedAttributeCaps(t *testing.T) {
	d := NewDifficulty()
	attrs, err := d.ComputeAttributes(500, TierBoss)
	if err != nil {
		t.Fatalf("attributes: %v", err)
	}
	if attrs.CritChance > 0.30 || attrs.PhysResist > 0.60 || attrs.ElemResist > 0.55 {
		t.Errorf("caps exceeded: %+v", attrs)
	}
	low, _ := d.ComputeAttributes(1, TierNormal)
	if low.CritChance >= attrs.CritChance {
		t.Error("crit should grow with level")
	}
}

func TestEstimateTTK(t *testing.T) {
	d := NewDifficulty()
	ttk, err := d.EstimateTTKSeconds(10, 10, TierNormal, -1, 100)
	if err != nil {
		t.Fatalf("ttk: %v", err)
	}
	fs, _ := d.ComputeFinalStats(10, 10, TierNormal)
	want := fs.HP * (1 + fs.Defense/500) / 100
	if ttk != want {
		t.Errorf("ttk = %f, want %f", ttk, want)
	}
	if _, err := d.EstimateTTKSeconds(10, 10, TierNormal, -1, 0); err == nil {
		t.Error("zero dps should error")
	}
}

func TestLoadParamsFile(t *testing.T) {
	d := NewDifficulty()
	dir := t.TempDir()
	path := dir + "/params.cfg"
	content := "# tuning\nd_def=0.10\ntrivial_threshold=20\nunknown_key=5\n"
	if err := writeFile(path, content); err != nil {
		t.Fatal(err)
	}
	if err := d.LoadParamsFile(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	p := d.Params()
	if p.DDef != 0.10 || p.TrivialThreshold != 20 {
		t.Errorf("params = %+v", p)
	}
	// Untouched keys keep defaults.
	if p.DDmg != 0.04 {
		t.Errorf("d_dmg = %f, want default 0.04", p.DDmg)
	}
	d.ResetParams()
	if d.Params().DDef != 0.05 {
		t.Error("reset should restore defaults")
	}
}

func TestBiomeOverrides(t *testing.T) {
	d := NewDifficulty()
	custom := DefaultDifficultyParams()
	custom.DDef = 0.2
	if err := d.RegisterBiomeParams(4, custom); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := d.RegisterBiomeParams(-1, custom); err == nil {
		t.Error("negative biome should error")
	}
	if got := d.ParamsForBiome(4); got.DDef != 0.2 {
		t.Errorf("biome params = %+v", got)
	}
	if got := d.ParamsForBiome(9); got.DDef != 0.05 {
		t.Error("unknown biome should fall back to globals")
	}
}
