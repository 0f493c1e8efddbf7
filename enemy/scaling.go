package enemy

import (
	"bufio"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// DifficultyParams is the tunable parameter set for relative-level scaling
// and reward falloff. Values load from a key=value file; unknown keys are
// ignored.
type DifficultyParams struct {
	DDef                float32 // per-level hp reduction when over-leveled
	DDmg                float32
	CapDef              float32 // reduction caps
	CapDmg              float32
	UDef                float32 // per-level buff when under-leveled
	UDmg                float32
	UCapDef             float32
	UCapDmg             float32
	RampSoft            float32 // soft ramp subtracted before under-level buffs
	DominanceThreshold  int
	TrivialThreshold    int
	RewardTrivialScalar float32
}

// DefaultDifficultyParams returns the tuned defaults.
func DefaultDifficultyParams() DifficultyParams {
	return DifficultyParams{
		DDef: 0.05, DDmg: 0.04,
		CapDef: 0.60, CapDmg: 0.55,
		UDef: 0.06, UDmg: 0.05,
		UCapDef: 2.50, UCapDmg: 2.20,
		RampSoft:            0.30,
		DominanceThreshold:  8,
		TrivialThreshold:    12,
		RewardTrivialScalar: 0.15,
	}
}

// Difficulty owns the global parameter set, per-biome overrides, and the
// adaptive scalar consulted by final stat computation.
type Difficulty struct {
	params   DifficultyParams
	biomes   map[int]DifficultyParams
	Adaptive *Adaptive
}

// NewDifficulty returns difficulty state with defaults and a fresh adaptive
// tracker.
func NewDifficulty() *Difficulty {
	return &Difficulty{
		params:   DefaultDifficultyParams(),
		biomes:   make(map[int]DifficultyParams),
		Adaptive: NewAdaptive(),
	}
}

// Params returns the current global parameter set.
func (d *Difficulty) Params() DifficultyParams { return d.params }

// ResetParams restores the defaults.
func (d *Difficulty) ResetParams() { d.params = DefaultDifficultyParams() }

// RegisterBiomeParams installs a per-biome override set.
func (d *Difficulty) RegisterBiomeParams(biomeID int, p DifficultyParams) error {
	if biomeID < 0 {
		return errors.New("biome id must be >= 0")
	}
	d.biomes[biomeID] = p
	return nil
}

// ParamsForBiome returns the biome override or the globals.
func (d *Difficulty) ParamsForBiome(biomeID int) DifficultyParams {
	if p, ok := d.biomes[biomeID]; ok && biomeID >= 0 {
		return p
	}
	return d.params
}

// LoadParamsFile reads a key=value parameter file. Lines starting with '#'
// and unknown keys are skipped.
func (d *Difficulty) LoadParamsFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open difficulty params %s", path)
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		fv, err := strconv.ParseFloat(strings.TrimSpace(val), 32)
		if err != nil {
			continue
		}
		v := float32(fv)
		switch strings.TrimSpace(key) {
		case "d_def":
			d.params.DDef = v
		case "d_dmg":
			d.params.DDmg = v
		case "cap_def":
			d.params.CapDef = v
		case "cap_dmg":
			d.params.CapDmg = v
		case "u_def":
			d.params.UDef = v
		case "u_dmg":
			d.params.UDmg = v
		case "u_cap_def":
			d.params.UCapDef = v
		case "u_cap_dmg":
			d.params.UCapDmg = v
		case "ramp_soft":
			d.params.RampSoft = v
		case "dominance_threshold":
			d.params.DominanceThreshold = int(v)
		case "trivial_threshold":
			d.params.TrivialThreshold = int(v)
		case "reward_trivial_scalar":
			d.params.RewardTrivialScalar = v
		}
	}
	return sc.Err()
}

// Power-law base curves with exponents just above 1. Chosen simple forms;
// tiers and relative multipliers stack on top.

// BaseHP is 100 * L^1.15.
func BaseHP(level int) float32 {
	if level < 1 {
		level = 1
	}
	return 100 * float32(math.Pow(float64(level), 1.15))
}

// BaseDamage is 12 * L^1.08.
func BaseDamage(level int) float32 {
	if level < 1 {
		level = 1
	}
	return 12 * float32(math.Pow(float64(level), 1.08))
}

// BaseDefense is 8 * L^1.05.
func BaseDefense(level int) float32 {
	if level < 1 {
		level = 1
	}
	return 8 * float32(math.Pow(float64(level), 1.05))
}

// BaseStats bundles the three base curves for a level.
type BaseStats struct {
	HP      float32
	Damage  float32
	Defense float32
}

// BaseStatsFor evaluates every base curve at the level.
func BaseStatsFor(level int) BaseStats {
	return BaseStats{HP: BaseHP(level), Damage: BaseDamage(level), Defense: BaseDefense(level)}
}

// RelativeMultipliers computes the ΔL hp/damage multipliers. Over-leveled
// players shrink enemies down to a floor of 0.05; under-leveled players
// face buffs soft-ramped by RampSoft and capped.
func (d *Difficulty) RelativeMultipliers(playerLevel, enemyLevel int) (hpMult, dmgMult float32, err error) {
	if playerLevel < 1 || enemyLevel < 1 {
		return 0, 0, errors.New("levels must be >= 1")
	}
	p := &d.params
	hpMult, dmgMult = 1, 1
	dL := playerLevel - enemyLevel
	switch {
	case dL == 0:
	case dL > 0:
		downHP := float32(dL) * p.DDef
		downDmg := float32(dL) * p.DDmg
		if downHP > p.CapDef {
			downHP = p.CapDef
		}
		if downDmg > p.CapDmg {
			downDmg = p.CapDmg
		}
		hpMult = 1 - downHP
		if hpMult < 0.05 {
			hpMult = 0.05
		}
		dmgMult = 1 - downDmg
		if dmgMult < 0.05 {
			dmgMult = 0.05
		}
	default:
		adL := float32(-dL)
		upHP := adL*p.UDef - p.RampSoft
		if upHP < 0 {
			upHP = 0
		}
		if upHP > p.UCapDef {
			upHP = p.UCapDef
		}
		upDmg := adL*p.UDmg - p.RampSoft
		if upDmg < 0 {
			upDmg = 0
		}
		if upDmg > p.UCapDmg {
			upDmg = p.UCapDmg
		}
		hpMult = 1 + upHP
		dmgMult = 1 + upDmg
	}
	return hpMult, dmgMult, nil
}

// FinalStats is the fully scaled stat block for one enemy.
type FinalStats struct {
	HP      float32
	Damage  float32
	Defense float32
	HPMult  float32
	DmgMult float32
	DefMult float32
}

// ComputeFinalStats applies tier budgets, then relative multipliers, then
// the adaptive scalar (clamped to at least 0.01). Defense rides the hp path
// as a survivability tie.
func (d *Difficulty) ComputeFinalStats(playerLevel, enemyLevel, tierID int) (FinalStats, error) {
	return d.ComputeFinalStatsBiome(playerLevel, enemyLevel, tierID, -1)
}

// ComputeFinalStatsBiome is ComputeFinalStats with a biome parameter hook.
// Biome overrides currently carry no additional math but the selection seam
// exists for future per-biome adjustments.
func (d *Difficulty) ComputeFinalStatsBiome(playerLevel, enemyLevel, tierID, biomeID int) (FinalStats, error) {
	var out FinalStats
	tier := TierByID(tierID)
	if tier == nil {
		return out, errors.Errorf("unknown tier id %d", tierID)
	}
	relHP, relDmg, err := d.RelativeMultipliers(playerLevel, enemyLevel)
	if err != nil {
		return out, err
	}
	_ = d.ParamsForBiome(biomeID)
	base := BaseStatsFor(enemyLevel)
	adapt := d.Adaptive.Scalar()
	if adapt < 0.01 {
		adapt = 0.01
	}
	out.HP = base.HP * tier.Mult.HP * relHP * adapt
	out.Damage = base.Damage * tier.Mult.DPS * relDmg * adapt
	out.Defense = base.Defense * tier.Mult.HP * relHP * adapt
	out.HPMult = relHP * tier.Mult.HP
	out.DmgMult = relDmg * tier.Mult.DPS
	out.DefMult = relHP * tier.Mult.HP
	return out, nil
}

// RewardScalar falls from 1.0 at the dominance threshold to the trivial
// scalar at the trivial threshold; under-leveled play keeps full rewards.
func (d *Difficulty) RewardScalar(playerLevel, enemyLevel int) float32 {
	p := &d.params
	dL := playerLevel - enemyLevel
	if dL >= p.TrivialThreshold {
		return p.RewardTrivialScalar
	}
	if dL <= 0 || dL <= p.DominanceThreshold {
		return 1
	}
	span := float32(p.TrivialThreshold - p.DominanceThreshold)
	if span <= 0 {
		return 1
	}
	t := float32(dL-p.DominanceThreshold) / span
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	return 1 - t*(1-p.RewardTrivialScalar)
}

// DeltaSeverity classifies the ΔL relationship.
type DeltaSeverity int

const (
	DeltaEqual DeltaSeverity = iota
	DeltaMinor
	DeltaModerate
	DeltaMajor
	DeltaDominance
	DeltaTrivial
)

// ClassifyDelta maps ΔL onto a severity bucket per the tuning heuristics.
func (d *Difficulty) ClassifyDelta(playerLevel, enemyLevel int) DeltaSeverity {
	p := &d.params
	dL := playerLevel - enemyLevel
	if dL == 0 {
		return DeltaEqual
	}
	if dL > 0 {
		switch {
		case dL >= p.TrivialThreshold:
			return DeltaTrivial
		case dL >= p.DominanceThreshold:
			return DeltaDominance
		case dL >= 5:
			return DeltaMajor
		default:
			return DeltaMinor
		}
	}
	switch {
	case -dL >= 8:
		return DeltaMajor
	case -dL >= 4:
		return DeltaModerate
	default:
		return DeltaMinor
	}
}

// DerivedAttributes are the lightweight attribute proxies: crit grows
// log-slow capped at 30%, physical resist as L^0.6 capped at 60%, elemental
// slightly below physical capped at 55%.
type DerivedAttributes struct {
	CritChance float32
	PhysResist float32
	ElemResist float32
}

// ComputeAttributes evaluates the derived attribute curves for a tier.
func (d *Difficulty) ComputeAttributes(enemyLevel, tierID int) (DerivedAttributes, error) {
	var out DerivedAttributes
	tier := TierByID(tierID)
	if tier == nil {
		return out, errors.Errorf("unknown tier id %d", tierID)
	}
	if enemyLevel < 1 {
		enemyLevel = 1
	}
	L := float64(enemyLevel)
	crit := 0.02 + 0.12*(math.Log(L+1)/math.Log(101))*(0.5+0.5*float64(tier.Mult.DPS))
	if crit > 0.30 {
		crit = 0.30
	}
	phys := 0.05 + 0.65*math.Pow(L, 0.60)/math.Pow(100, 0.60)*(0.4+0.6*float64(tier.Mult.HP))
	if phys > 0.60 {
		phys = 0.60
	}
	elem := phys * 0.92
	if elem > 0.55 {
		elem = 0.55
	}
	out.CritChance = float32(crit)
	out.PhysResist = float32(phys)
	out.ElemResist = float32(elem)
	return out, nil
}

// EstimateTTKSeconds estimates time-to-kill as effective HP over player
// DPS, with defense contributing a diminishing 1 + def/500 factor.
func (d *Difficulty) EstimateTTKSeconds(playerLevel, enemyLevel, tierID, biomeID int, playerDPS float32) (float32, error) {
	if playerDPS <= 0 {
		return 0, errors.New("player dps must be > 0")
	}
	fs, err := d.ComputeFinalStatsBiome(playerLevel, enemyLevel, tierID, biomeID)
	if err != nil {
		return 0, err
	}
	ehp := fs.HP * (1 + fs.Defense/500)
	return ehp / playerDPS, nil
}
