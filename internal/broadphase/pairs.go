package broadphase

import (
	"sort"

	"broadphase/internal/entity"
	"broadphase/internal/geom"
)

// Pairs returns the deduplicated candidate pair set for the current index
// contents. The call first converts dense cells into DBVH regions, then
// queries each region (internally and against its outer ring), then the
// remaining grid bins and their neighbors.
//
// The returned slice is the index's reused output buffer; it is valid until
// the next Clear or Pairs call.
func (ix *Index) Pairs() []Pair {
	ix.pairs = ix.pairs[:0]
	clear(ix.seen)

	ix.densify()

	// Regions in key order so repeated runs scan deterministically.
	regionKeys := make([]uint64, 0, len(ix.regions))
	for key := range ix.regions {
		regionKeys = append(regionKeys, key)
	}
	sort.Slice(regionKeys, func(i, j int) bool { return regionKeys[i] < regionKeys[j] })

	for _, key := range regionKeys {
		ix.queryRegion(ix.regions[key])
	}

	binKeys := make([]uint64, 0, len(ix.bins))
	for key := range ix.bins {
		binKeys = append(binKeys, key)
	}
	sort.Slice(binKeys, func(i, j int) bool { return binKeys[i] < binKeys[j] })

	for _, key := range binKeys {
		ix.queryBin(key)
	}

	return ix.pairs
}

// densify promotes every bin above the density threshold into a DBVH
// region. Candidates are processed in ascending key order; a conversion
// consumes the whole 3x3 block, so later candidates inside a fresh block
// simply fail the precondition and stay as bins.
func (ix *Index) densify() {
	var dense []uint64
	for key, list := range ix.bins {
		if len(list) > ix.cfg.DensityThreshold {
			dense = append(dense, key)
		}
	}
	sort.Slice(dense, func(i, j int) bool { return dense[i] < dense[j] })

	for _, key := range dense {
		ix.convertRegion(key)
	}
}

// convertRegion attempts to replace the 3x3 block centered on the given
// cell with a DBVH. Conversion requires all 9 cells to currently exist as
// ordinary bins; otherwise the block is left untouched this call.
func (ix *Index) convertRegion(center uint64) bool {
	cx, cy := unpackKey(center)

	var keys [9]uint64
	i := 0
	for dy := int32(-1); dy <= 1; dy++ {
		for dx := int32(-1); dx <= 1; dx++ {
			key := packKey(cx+dx, cy+dy)
			if _, ok := ix.bins[key]; !ok {
				return false
			}
			keys[i] = key
			i++
		}
	}

	// Entities spanning several cells of the block appear multiple times
	// here; pair emission dedups, the tree does not.
	ix.scratch = ix.scratch[:0]
	for _, key := range keys {
		ix.scratch = append(ix.scratch, ix.bins[key]...)
	}

	root := buildRegion(ix.scratch, center)
	for _, key := range keys {
		delete(ix.bins, key)
	}
	ix.regions[center] = root
	ix.conversions++
	return true
}

// queryRegion emits pairs among the region's own entities, then tests them
// against the 16-cell ring surrounding the region's 3x3 block (the 5x5
// block minus the inner 9), skipping ring cells owned by other regions.
func (ix *Index) queryRegion(root *node) {
	ix.scratch = root.collect(ix.scratch[:0])
	ents := ix.scratch

	for i := 0; i < len(ents); i++ {
		for j := i + 1; j < len(ents); j++ {
			ix.emit(ents[i], ents[j])
		}
	}

	cx, cy := unpackKey(root.centerKey)
	for dy := int32(-2); dy <= 2; dy++ {
		for dx := int32(-2); dx <= 2; dx++ {
			if dx >= -1 && dx <= 1 && dy >= -1 && dy <= 1 {
				continue
			}
			if ix.regionOwned(cx+dx, cy+dy) {
				continue
			}
			ring, ok := ix.bins[packKey(cx+dx, cy+dy)]
			if !ok {
				continue
			}
			for _, a := range ents {
				for _, b := range ring {
					ix.emit(a, b)
				}
			}
		}
	}
}

// queryBin emits pairs within an ordinary bin, then tests the bin against
// each of its 8 neighbor bins with a strictly greater cell key so each
// cross-bin pair is scanned from one side only.
func (ix *Index) queryBin(key uint64) {
	list := ix.bins[key]

	if len(list) >= 2 {
		for i := 0; i < len(list); i++ {
			for j := i + 1; j < len(list); j++ {
				ix.emit(list[i], list[j])
			}
		}
	}

	cx, cy := unpackKey(key)
	for dy := int32(-1); dy <= 1; dy++ {
		for dx := int32(-1); dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			nk := packKey(cx+dx, cy+dy)
			if nk <= key {
				continue
			}
			neighbor, ok := ix.bins[nk]
			if !ok {
				continue
			}
			for _, a := range list {
				for _, b := range neighbor {
					ix.emit(a, b)
				}
			}
		}
	}
}

// emit appends (a, b) to the pair buffer if the pair survives the component
// prefilter, the AABB test and dedup. Pairs are canonicalized with the
// lesser UUID first.
func (ix *Index) emit(a, b *entity.Entity) {
	if a == b || a.ID == b.ID {
		return
	}
	if !canCollide(a, b) {
		return
	}
	if !geom.Intersects(*a.Bounds, *b.Bounds) {
		return
	}

	if a.ID > b.ID {
		a, b = b, a
	}
	key := pairKey{a: a.ID, b: b.ID}
	if _, dup := ix.seen[key]; dup {
		return
	}
	ix.seen[key] = struct{}{}
	ix.pairs = append(ix.pairs, Pair{A: a, B: b})
}

// canCollide is the component-kind prefilter: two active colliders always
// qualify; a collider with map interaction qualifies against an active map
// component in either order. Everything else is filtered out regardless of
// geometry.
func canCollide(a, b *entity.Entity) bool {
	aCol, aInteract := a.ActiveCollider()
	bCol, bInteract := b.ActiveCollider()

	if aCol && bCol {
		return true
	}
	if aCol && aInteract && b.HasActiveMap() {
		return true
	}
	if bCol && bInteract && a.HasActiveMap() {
		return true
	}
	return false
}
