// Package common provides the ECS utilities and shared components used by
// the enemy runtime layer: the EntityManager wrapper, the Position and
// Name components, and type-safe component access helpers.
package common

import (
	"math"

	"github.com/bytearena/ecs"
)

// Position is a world-space location component.
type Position struct {
	X float32
	Y float32
}

// DistanceSq returns squared distance to another position.
func (p *Position) DistanceSq(other *Position) float32 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return dx*dx + dy*dy
}

// Distance returns euclidean distance to another position.
func (p *Position) Distance(other *Position) float32 {
	return float32(math.Sqrt(float64(p.DistanceSq(other))))
}

// Name is a display-name component.
type Name struct {
	NameStr string
}

// EntityManager wraps the ECS manager and provides centralized entity and
// tag management. Components are registered once at construction.
type EntityManager struct {
	World     *ecs.Manager
	WorldTags map[string]ecs.Tag

	PositionComponent *ecs.Component
	NameComponent     *ecs.Component
	EnemyComponent    *ecs.Component
}

// NewEntityManager builds a manager with the core components registered and
// an "enemies" tag for registry queries.
func NewEntityManager() *EntityManager {
	em := &EntityManager{
		World:     ecs.NewManager(),
		WorldTags: make(map[string]ecs.Tag),
	}
	em.PositionComponent = em.World.NewComponent()
	em.NameComponent = em.World.NewComponent()
	em.EnemyComponent = em.World.NewComponent()
	em.WorldTags["enemies"] = ecs.BuildTag(em.EnemyComponent, em.PositionComponent)
	return em
}

// EnemiesTag returns the tag matching every registered enemy entity.
func (em *EntityManager) EnemiesTag() ecs.Tag { return em.WorldTags["enemies"] }

// GetComponentType retrieves a component of type T from an entity pointer.
// Returns the zero value when the component is absent.
func GetComponentType[T any](entity *ecs.Entity, component *ecs.Component) T {
	if c, ok := entity.GetComponentData(component); ok {
		return c.(T)
	}
	var zero T
	return zero
}
