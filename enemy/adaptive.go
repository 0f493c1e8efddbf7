package enemy

import "math"

// Adaptive scalar bounds.
const (
	AdaptiveMinScalar = 0.88
	AdaptiveMaxScalar = 1.12
)

const adaptiveTargetTTK = 6.0

// Adaptive tracks recent combat KPIs and derives a bounded difficulty
// scalar. KPIs: avg TTK (EMA alpha 0.20), damage intake per second (alpha
// 0.10), potion uses per minute and deaths per hour (event counters decayed
// each tick), plus a short-window kill pressure decaying over ~5s.
type Adaptive struct {
	avgTTK             float32
	hasTTK             bool
	dmgIntakeRate      float32
	potionRate         float32
	deathRate          float32
	scalar             float32
	enabled            bool
	timeSinceLastKill  float32
	recentKillPressure float32
	killEvent          bool
}

// NewAdaptive returns neutral adaptive state (scalar 1.0, enabled).
func NewAdaptive() *Adaptive {
	a := &Adaptive{}
	a.Reset()
	return a
}

// Reset restores neutral defaults with adjustments enabled.
func (a *Adaptive) Reset() {
	*a = Adaptive{scalar: 1.0, enabled: true, timeSinceLastKill: 1000}
}

// SetEnabled toggles adjustments. Disabling snaps the scalar back to 1.0.
func (a *Adaptive) SetEnabled(enabled bool) {
	a.enabled = enabled
	if !enabled {
		a.scalar = 1.0
	}
}

// Enabled reports whether adjustments are active.
func (a *Adaptive) Enabled() bool { return a.enabled }

func ema(prev, sample, alpha float32, hasPrev bool) float32 {
	if !hasPrev {
		return sample
	}
	return prev + alpha*(sample-prev)
}

// SubmitKill folds an observed time-to-kill into the EMA and bumps the
// short-window pressure.
func (a *Adaptive) SubmitKill(ttkSeconds float32) {
	if ttkSeconds <= 0 {
		return
	}
	a.avgTTK = ema(a.avgTTK, ttkSeconds, 0.20, a.hasTTK)
	a.hasTTK = true
	a.timeSinceLastKill = 0
	a.recentKillPressure++
	a.killEvent = true
}

// SubmitPlayerDamage updates the intake rate from damage taken over an
// interval.
func (a *Adaptive) SubmitPlayerDamage(dmg, intervalSeconds float32) {
	if dmg < 0 || intervalSeconds <= 0 {
		return
	}
	a.dmgIntakeRate = ema(a.dmgIntakeRate, dmg/intervalSeconds, 0.10, true)
}

// SubmitPotionUsed records one potion event; ticks decay it into a
// per-minute rate.
func (a *Adaptive) SubmitPotionUsed() { a.potionRate++ }

// SubmitPlayerDeath records one death event.
func (a *Adaptive) SubmitPlayerDeath() { a.deathRate++ }

// AvgTTK returns the current TTK EMA.
func (a *Adaptive) AvgTTK() float32 { return a.avgTTK }

// Tick decays counters, derives increase/decrease pressure from KPI
// thresholds inside the active kill window, and moves the scalar toward the
// target with a 5% step plus a stronger neutral pull toward 1.0.
func (a *Adaptive) Tick(dtSeconds float32) {
	if dtSeconds <= 0 {
		return
	}
	if !a.enabled {
		a.scalar = 1.0
		return
	}
	a.timeSinceLastKill += dtSeconds

	potAlpha := dtSeconds / 60
	if potAlpha > 1 {
		potAlpha = 1
	}
	a.potionRate = ema(a.potionRate, 0, potAlpha, true)
	deathAlpha := dtSeconds / 3600
	if deathAlpha > 1 {
		deathAlpha = 1
	}
	a.deathRate = ema(a.deathRate, 0, deathAlpha, true)
	if a.recentKillPressure > 0 {
		decay := dtSeconds / 5
		if decay > 1 {
			decay = 1
		}
		a.recentKillPressure -= decay
		if a.recentKillPressure < 0 {
			a.recentKillPressure = 0
		}
	}

	increase, decrease := false, false
	activeWindow := a.timeSinceLastKill < 5
	killEvent := a.killEvent
	a.killEvent = false
	if activeWindow && killEvent {
		if a.hasTTK {
			if a.avgTTK < adaptiveTargetTTK*0.60 && a.dmgIntakeRate < 3 && a.potionRate < 0.2 {
				increase = true
			}
			if a.avgTTK > adaptiveTargetTTK*1.60 || a.dmgIntakeRate > 12 ||
				a.potionRate > 1.2 || a.deathRate > 0.15 {
				decrease = true
			}
		}
	} else if a.hasTTK {
		// Idle: relax avg TTK toward target so stale fast-kill pressure
		// does not linger.
		relax := a.timeSinceLastKill / 30
		if relax > 1 {
			relax = 1
		}
		relax *= 0.15
		a.avgTTK += (adaptiveTargetTTK - a.avgTTK) * relax
	}

	target := float32(1.0)
	if increase {
		target = AdaptiveMaxScalar
	} else if decrease {
		target = AdaptiveMinScalar
	}
	a.scalar += (target - a.scalar) * 0.05
	if !increase && !decrease {
		a.scalar += (1.0 - a.scalar) * 0.30
		if math.Abs(float64(a.scalar-1.0)) < 0.002 {
			a.scalar = 1.0
		}
	}
	if a.scalar < AdaptiveMinScalar {
		a.scalar = AdaptiveMinScalar
	}
	if a.scalar > AdaptiveMaxScalar {
		a.scalar = AdaptiveMaxScalar
	}
}

// Scalar returns the applied scalar; disabled state always reads 1.0.
func (a *Adaptive) Scalar() float32 {
	if !a.enabled {
		return 1.0
	}
	return a.scalar
}
