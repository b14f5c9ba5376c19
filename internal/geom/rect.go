// Package geom provides the axis-aligned rectangle primitive used by the
// broad-phase index. All overlap reasoning in the engine core happens on
// these AABBs; rotated shapes are narrow-phase territory.
package geom

import "math"

// Rect is a world-space axis-aligned bounding box.
type Rect struct {
	X      float64 // min corner
	Y      float64
	Width  float64
	Height float64
}

// NewRect constructs a rect from its min corner and extents.
func NewRect(x, y, w, h float64) Rect {
	return Rect{X: x, Y: y, Width: w, Height: h}
}

// MaxX returns the exclusive right edge.
func (r Rect) MaxX() float64 { return r.X + r.Width }

// MaxY returns the exclusive bottom edge.
func (r Rect) MaxY() float64 { return r.Y + r.Height }

// Intersects reports whether a and b overlap with positive area.
// Edge-adjacent rects (touching but not overlapping) do not intersect.
func Intersects(a, b Rect) bool {
	return a.X < b.MaxX() && b.X < a.MaxX() &&
		a.Y < b.MaxY() && b.Y < a.MaxY()
}

// Union returns the smallest rect containing both a and b.
func Union(a, b Rect) Rect {
	minX := math.Min(a.X, b.X)
	minY := math.Min(a.Y, b.Y)
	maxX := math.Max(a.MaxX(), b.MaxX())
	maxY := math.Max(a.MaxY(), b.MaxY())
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// Diagonal returns the length of the rect's diagonal.
// The auto-tuner uses this as a size proxy for cell sizing.
func (r Rect) Diagonal() float64 {
	return math.Sqrt(r.Width*r.Width + r.Height*r.Height)
}
