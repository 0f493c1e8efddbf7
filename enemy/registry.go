package enemy

import (
	"github.com/bytearena/ecs"

	"rogue_core/common"
	"rogue_core/config"
)

// Runtime is the per-enemy component stored on registry entities.
type Runtime struct {
	Stats      Enemy
	Attributes DerivedAttributes
	RoomID     int
}

// DamageType selects the mitigation path for ApplyDamage.
const (
	DamagePhysical = iota
	DamageFire
	DamageCold
	DamageLightning
	DamagePoison
)

// DamageResult reports what ApplyDamage did.
type DamageResult int

const (
	DamageNotFound DamageResult = iota
	DamageApplied
	DamageKilled
)

type registryEntry struct {
	enemyID int
	alive   bool
	entity  *ecs.Entity
}

// Registry tracks live enemies as ECS entities. Slots are fixed-capacity;
// enemy ids are generational (a fresh id per registration) so stale ids
// fail lookups instead of hitting reused slots.
type Registry struct {
	em          *common.EntityManager
	entries     []registryEntry
	count       int
	nextEnemyID int
}

// NewRegistry binds a registry to an entity manager.
func NewRegistry(em *common.EntityManager) *Registry {
	return &Registry{
		em:          em,
		entries:     make([]registryEntry, 0, config.EnemyRegistryCap),
		nextEnemyID: 1,
	}
}

// Count returns the number of tracked entries (including dead ones awaiting
// cleanup).
func (r *Registry) Count() int { return len(r.entries) }

// Register inserts a finalized enemy at a position and returns its id, or
// -1 when the registry is full.
func (r *Registry) Register(roomID int, e *Enemy, x, y float32) int {
	if e == nil || len(r.entries) >= config.EnemyRegistryCap {
		return -1
	}
	rt := &Runtime{Stats: *e, RoomID: roomID}
	entity := r.em.World.NewEntity().
		AddComponent(r.em.PositionComponent, &common.Position{X: x, Y: y}).
		AddComponent(r.em.EnemyComponent, rt)
	id := r.nextEnemyID
	r.nextEnemyID++
	r.entries = append(r.entries, registryEntry{enemyID: id, alive: true, entity: entity})
	return id
}

func (r *Registry) find(enemyID int) *registryEntry {
	for i := range r.entries {
		if r.entries[i].enemyID == enemyID {
			return &r.entries[i]
		}
	}
	return nil
}

// Runtime returns the runtime component for an enemy id, nil if unknown.
func (r *Registry) Runtime(enemyID int) *Runtime {
	en := r.find(enemyID)
	if en == nil {
		return nil
	}
	return common.GetComponentType[*Runtime](en.entity, r.em.EnemyComponent)
}

// Position returns the position component for an enemy id, nil if unknown.
func (r *Registry) Position(enemyID int) *common.Position {
	en := r.find(enemyID)
	if en == nil {
		return nil
	}
	return common.GetComponentType[*common.Position](en.entity, r.em.PositionComponent)
}

// Alive reports whether the enemy id is tracked and alive.
func (r *Registry) Alive(enemyID int) bool {
	en := r.find(enemyID)
	return en != nil && en.alive
}

// UpdatePosition moves a live enemy.
func (r *Registry) UpdatePosition(enemyID int, x, y float32) {
	en := r.find(enemyID)
	if en == nil || !en.alive {
		return
	}
	if pos := common.GetComponentType[*common.Position](en.entity, r.em.PositionComponent); pos != nil {
		pos.X = x
		pos.Y = y
	}
}

// FindNearest returns the nearest living enemy id to a point, -1 when the
// registry holds none. Linear scan over the fixed capacity.
func (r *Registry) FindNearest(x, y float32) int {
	best := -1
	var bestD2 float32
	from := common.Position{X: x, Y: y}
	for i := range r.entries {
		en := &r.entries[i]
		if !en.alive {
			continue
		}
		pos := common.GetComponentType[*common.Position](en.entity, r.em.PositionComponent)
		if pos == nil {
			continue
		}
		d2 := pos.DistanceSq(&from)
		if best < 0 || d2 < bestD2 {
			best = en.enemyID
			bestD2 = d2
		}
	}
	return best
}

// FindAtPosition returns a living enemy id within tolerance of the point,
// -1 when none match.
func (r *Registry) FindAtPosition(x, y, tolerance float32) int {
	from := common.Position{X: x, Y: y}
	t2 := tolerance * tolerance
	for i := range r.entries {
		en := &r.entries[i]
		if !en.alive {
			continue
		}
		pos := common.GetComponentType[*common.Position](en.entity, r.em.PositionComponent)
		if pos == nil {
			continue
		}
		if pos.DistanceSq(&from) <= t2 {
			return en.enemyID
		}
	}
	return -1
}

// ApplyDamage routes damage through mitigation: physical damage is reduced
// by DR = armor/(armor+100); elemental types use the enemy's derived
// resistances. Reaching zero health marks the enemy dead.
func (r *Registry) ApplyDamage(enemyID int, damage float32, damageType int) DamageResult {
	if damage < 0 {
		return DamageNotFound
	}
	en := r.find(enemyID)
	if en == nil || !en.alive {
		return DamageNotFound
	}
	rt := common.GetComponentType[*Runtime](en.entity, r.em.EnemyComponent)
	if rt == nil {
		return DamageNotFound
	}
	effective := damage
	switch damageType {
	case DamagePhysical:
		armor := rt.Stats.FinalDefense
		effective *= 1 - armor/(armor+100)
	case DamageFire, DamageCold, DamageLightning, DamagePoison:
		effective *= 1 - rt.Attributes.ElemResist
	}
	rt.Stats.Health -= int(effective + 0.5)
	if rt.Stats.Health <= 0 {
		rt.Stats.Health = 0
		r.MarkDead(enemyID)
		return DamageKilled
	}
	return DamageApplied
}

// MarkDead flags an enemy dead; the entity survives until Cleanup.
func (r *Registry) MarkDead(enemyID int) {
	if en := r.find(enemyID); en != nil {
		en.alive = false
	}
}

// Cleanup disposes dead entities and compacts living entries forward.
func (r *Registry) Cleanup() {
	write := 0
	for read := 0; read < len(r.entries); read++ {
		if r.entries[read].alive {
			r.entries[write] = r.entries[read]
			write++
		} else {
			r.em.World.DisposeEntities(r.entries[read].entity)
		}
	}
	r.entries = r.entries[:write]
}
