package broadphase

import "math"

// Cell keys pack two signed 32-bit cell coordinates into one uint64.
// The packed value is deterministic and totally ordered, which the pair
// query relies on for neighbor tie-breaking and densification order.

// packKey derives the map key for cell (cx, cy).
func packKey(cx, cy int32) uint64 {
	return uint64(uint32(cx))<<32 | uint64(uint32(cy))
}

// unpackKey recovers the cell coordinates from a packed key.
func unpackKey(key uint64) (cx, cy int32) {
	return int32(key >> 32), int32(key)
}

// cellCoord maps a world coordinate to a cell coordinate at the given size.
func cellCoord(v, cellSize float64) int32 {
	return int32(math.Floor(v / cellSize))
}
