// Package broadphase implements the engine's broad-phase spatial index: a
// uniform hash grid that promotes dense 3x3 cell blocks to small dynamic
// bounding volume hierarchies (DBVH), plus a self-tuning heuristic for the
// grid cell size.
//
// The index is rebuilt every simulation tick (Clear, repeated Insert, then
// Pairs) and is strictly single-threaded: callers must serialize all
// operations on one instance. The Pair values it emits are plain immutable
// data and may be consumed from another goroutine after handoff.
package broadphase

import (
	"time"

	"broadphase/internal/config"
	"broadphase/internal/entity"
)

// Pair is a candidate collision pair. A's identity is always strictly less
// than B's under UUID string order.
type Pair struct {
	A *entity.Entity
	B *entity.Entity
}

// pairKey canonically identifies an unordered pair for per-call dedup.
type pairKey struct {
	a, b string
}

// Index is the broad-phase spatial index.
//
// bins maps packed cell keys to the entities overlapping that cell; an
// entity spanning several cells is referenced from each of them so neighbor
// scans can find it from either side. regions maps the center key of a
// converted 3x3 block to its DBVH root. A cell key is present in at most
// one of the two maps at any time.
type Index struct {
	cfg      config.IndexConfig
	cellSize float64

	bins    map[uint64][]*entity.Entity
	regions map[uint64]*node

	pairs []Pair              // reused output buffer, valid until next Clear/Pairs
	seen  map[pairKey]struct{}

	lastAutoTune time.Time

	scratch []*entity.Entity // reused region entity buffer

	autoTuneRuns uint64
	conversions  uint64
}

// New creates an index with the given configuration.
func New(cfg config.IndexConfig) *Index {
	return &Index{
		cfg:      cfg,
		cellSize: cfg.DefaultCellSize,
		bins:     make(map[uint64][]*entity.Entity),
		regions:  make(map[uint64]*node),
		seen:     make(map[pairKey]struct{}),
	}
}

// Clear empties the grid, all DBVH regions and the pair buffer without
// shrinking capacity. Called at the start of every tick.
func (ix *Index) Clear() {
	clear(ix.bins)
	clear(ix.regions)
	clear(ix.seen)
	ix.pairs = ix.pairs[:0]
}

// Insert registers an entity with every grid cell its AABB overlaps.
// Inactive entities and entities without bounds are silently skipped.
// Cells currently owned by a DBVH region are left alone.
//
// Each insert also gives the auto-tuner a chance to run (cooldown and
// occupancy permitting).
func (ix *Index) Insert(e *entity.Entity) {
	if e == nil || !e.Active || e.Bounds == nil {
		return
	}

	b := *e.Bounds
	minCX := cellCoord(b.X, ix.cellSize)
	maxCX := cellCoord(b.MaxX(), ix.cellSize)
	minCY := cellCoord(b.Y, ix.cellSize)
	maxCY := cellCoord(b.MaxY(), ix.cellSize)

	for cy := minCY; cy <= maxCY; cy++ {
		for cx := minCX; cx <= maxCX; cx++ {
			if ix.regionOwned(cx, cy) {
				continue
			}
			key := packKey(cx, cy)
			ix.bins[key] = append(ix.bins[key], e)
		}
	}

	ix.maybeAutoTune()
}

// regionOwned reports whether cell (cx, cy) lies inside any active region's
// 3x3 block. Regions are keyed by their center, so the owning center (if
// any) is within one cell in each axis.
func (ix *Index) regionOwned(cx, cy int32) bool {
	for dy := int32(-1); dy <= 1; dy++ {
		for dx := int32(-1); dx <= 1; dx++ {
			if _, ok := ix.regions[packKey(cx+dx, cy+dy)]; ok {
				return true
			}
		}
	}
	return false
}

// maybeAutoTune runs the tuner when the cooldown has elapsed and the
// average non-empty-bin occupancy exceeds the configured target.
func (ix *Index) maybeAutoTune() {
	if time.Since(ix.lastAutoTune) < ix.cfg.AutoTuneCooldown {
		return
	}
	if ix.averageOccupancy() > ix.cfg.OccupancyTarget {
		ix.AutoTune()
	}
}

// averageOccupancy returns the mean entity count over non-empty bins.
// Bins are created lazily and deleted on region conversion, so every bin
// in the map is non-empty.
func (ix *Index) averageOccupancy() float64 {
	if len(ix.bins) == 0 {
		return 0
	}
	total := 0
	for _, list := range ix.bins {
		total += len(list)
	}
	return float64(total) / float64(len(ix.bins))
}

// AutoTune recomputes the grid cell size from the average AABB diagonal of
// sampled entities (the first entity of every non-empty bin). The new size
// is clamped to the configured minimum; with nothing to sample the size
// resets to the default. Normally invoked from Insert behind the cooldown,
// but safe to call directly.
//
// This is a coarse occupancy heuristic, not an optimal partition. Bins
// already populated this tick keep their old cell assignment; the new size
// takes full effect on the next rebuild.
func (ix *Index) AutoTune() {
	var sum float64
	samples := 0
	for _, list := range ix.bins {
		if len(list) == 0 {
			continue
		}
		if b := list[0].Bounds; b != nil {
			sum += b.Diagonal()
			samples++
		}
	}

	if samples == 0 {
		ix.cellSize = ix.cfg.DefaultCellSize
	} else {
		size := 2 * (sum / float64(samples))
		if size < ix.cfg.MinCellSize {
			size = ix.cfg.MinCellSize
		}
		ix.cellSize = size
	}

	ix.lastAutoTune = time.Now()
	ix.autoTuneRuns++
}

// CellSize returns the current grid cell size.
func (ix *Index) CellSize() float64 {
	return ix.cellSize
}

// Stats contains index statistics for debugging and monitoring.
type Stats struct {
	CellSize        float64
	Bins            int
	Regions         int
	TotalRefs       int // entity references across bins and regions (duplicates counted)
	MaxBinOccupancy int
	AvgPerNonEmpty  float64
	LastPairCount   int
	AutoTuneRuns    uint64
	Conversions     uint64
}

// Stats returns a snapshot of the index's current shape.
func (ix *Index) Stats() Stats {
	total, maxBin := 0, 0
	for _, list := range ix.bins {
		total += len(list)
		if len(list) > maxBin {
			maxBin = len(list)
		}
	}
	avg := 0.0
	if len(ix.bins) > 0 {
		avg = float64(total) / float64(len(ix.bins))
	}
	for _, root := range ix.regions {
		total += root.leafCount()
	}

	return Stats{
		CellSize:        ix.cellSize,
		Bins:            len(ix.bins),
		Regions:         len(ix.regions),
		TotalRefs:       total,
		MaxBinOccupancy: maxBin,
		AvgPerNonEmpty:  avg,
		LastPairCount:   len(ix.pairs),
		AutoTuneRuns:    ix.autoTuneRuns,
		Conversions:     ix.conversions,
	}
}

// CellLoad describes one occupied cell for debug visualizations.
// Region cells report the leaf count of the region's tree.
type CellLoad struct {
	CX, CY int32
	Count  int
	Region bool
}

// CellLoads returns the occupancy of every bin and region center.
func (ix *Index) CellLoads() []CellLoad {
	loads := make([]CellLoad, 0, len(ix.bins)+len(ix.regions))
	for key, list := range ix.bins {
		cx, cy := unpackKey(key)
		loads = append(loads, CellLoad{CX: cx, CY: cy, Count: len(list)})
	}
	for key, root := range ix.regions {
		cx, cy := unpackKey(key)
		loads = append(loads, CellLoad{CX: cx, CY: cy, Count: root.leafCount(), Region: true})
	}
	return loads
}
