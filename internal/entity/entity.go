// Package entity defines the minimal entity contract the broad-phase index
// consumes: a stable UUID identity, an active flag, an optional world-space
// AABB and a small set of kind-tagged components.
package entity

import (
	"github.com/google/uuid"

	"broadphase/internal/geom"
)

// ComponentKind tags a component with its collision role.
type ComponentKind int

const (
	KindCollider ComponentKind = iota
	KindMap
)

// Component is a kind-tagged capability attached to an entity.
// MapInteraction is only meaningful on collider components and marks
// colliders that should be tested against map geometry.
type Component struct {
	Kind           ComponentKind
	Active         bool
	MapInteraction bool
}

// Entity is a world object as seen by the broad-phase index.
//
// ID is a UUID string; its lexicographic order is the total order used to
// canonicalize and deduplicate candidate pairs. Bounds may be nil, in which
// case the entity is invisible to the index.
type Entity struct {
	ID         string
	Active     bool
	Bounds     *geom.Rect
	Components []Component
}

// NewCollider creates an active entity with a single active collider
// component at the given bounds.
func NewCollider(bounds geom.Rect, mapInteraction bool) *Entity {
	return &Entity{
		ID:     uuid.NewString(),
		Active: true,
		Bounds: &bounds,
		Components: []Component{
			{Kind: KindCollider, Active: true, MapInteraction: mapInteraction},
		},
	}
}

// NewMapTile creates an active entity with a single active map component.
func NewMapTile(bounds geom.Rect) *Entity {
	return &Entity{
		ID:     uuid.NewString(),
		Active: true,
		Bounds: &bounds,
		Components: []Component{
			{Kind: KindMap, Active: true},
		},
	}
}

// ActiveCollider reports whether the entity carries an active collider
// component and, if so, whether that collider interacts with map geometry.
func (e *Entity) ActiveCollider() (ok, mapInteraction bool) {
	for _, c := range e.Components {
		if c.Kind == KindCollider && c.Active {
			return true, c.MapInteraction
		}
	}
	return false, false
}

// HasActiveMap reports whether the entity carries an active map component.
func (e *Entity) HasActiveMap() bool {
	for _, c := range e.Components {
		if c.Kind == KindMap && c.Active {
			return true
		}
	}
	return false
}
