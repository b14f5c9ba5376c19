// Package sim hosts the demo simulation loop: a population of moving
// colliders and static map tiles driven through the broad-phase index once
// per tick, exactly as the host engine's collision phase would.
package sim

import (
	"log"
	"math/rand"
	"sync"
	"time"

	"broadphase/internal/broadphase"
	"broadphase/internal/config"
	"broadphase/internal/entity"
	"broadphase/internal/geom"
)

// Body is a simulated entity plus its velocity. Map tiles have zero
// velocity and never move.
type Body struct {
	Ent *entity.Entity
	VX  float64
	VY  float64
}

// Engine owns the entity population, the broad-phase index and the tick
// loop. All index operations happen on the tick goroutine; the index itself
// is never shared.
type Engine struct {
	mu     sync.RWMutex
	bodies []*Body

	index *broadphase.Index

	world  config.WorldConfig
	limits config.ResourceLimits

	running  bool
	ticker   *time.Ticker
	stopChan chan struct{}

	tickCount uint64
	snapshot  TickSnapshot

	// onPairs consumes the candidate pair set each tick. The slice is the
	// index's reused buffer and is only valid for the duration of the call.
	onPairs func([]broadphase.Pair)

	// onTick receives a copy of the tick snapshot after each tick
	// (metrics, stats recording, websocket feed).
	onTick func(TickSnapshot)

	rng *rand.Rand
}

// NewEngine creates an engine with a fresh index.
func NewEngine(world config.WorldConfig, indexCfg config.IndexConfig, limits config.ResourceLimits) *Engine {
	return &Engine{
		index:    broadphase.New(indexCfg),
		world:    world,
		limits:   limits,
		stopChan: make(chan struct{}),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetPairConsumer sets the narrow-phase handoff callback.
func (e *Engine) SetPairConsumer(fn func([]broadphase.Pair)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onPairs = fn
}

// SetTickCallback sets the per-tick snapshot callback.
func (e *Engine) SetTickCallback(fn func(TickSnapshot)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onTick = fn
}

// Start begins the tick loop.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.mu.Unlock()

	e.ticker = time.NewTicker(time.Second / time.Duration(e.world.TickRate))

	go func() {
		for {
			select {
			case <-e.ticker.C:
				e.Tick()
			case <-e.stopChan:
				return
			}
		}
	}()

	log.Printf("engine started at %d TPS (%gx%g world)", e.world.TickRate, e.world.Width, e.world.Height)
}

// Stop stops the tick loop.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return
	}
	e.running = false
	if e.ticker != nil {
		e.ticker.Stop()
	}
	close(e.stopChan)
	log.Println("engine stopped")
}

// Tick advances the simulation by one step: integrate motion, rebuild the
// index, query candidate pairs and hand them to the consumer. Exported so
// headless drivers and tests can step without the ticker.
func (e *Engine) Tick() {
	e.mu.Lock()

	start := time.Now()
	e.tickCount++
	dt := 1.0 / float64(e.world.TickRate)

	for _, b := range e.bodies {
		e.integrate(b, dt)
	}

	// Per-tick rebuild: clear, insert everything, query.
	e.index.Clear()
	for _, b := range e.bodies {
		e.index.Insert(b.Ent)
	}
	pairs := e.index.Pairs()

	if e.onPairs != nil {
		e.onPairs(pairs)
	}

	stats := e.index.Stats()
	elapsed := time.Since(start)
	e.snapshot = TickSnapshot{
		Tick:       e.tickCount,
		Entities:   len(e.bodies),
		Pairs:      len(pairs),
		Bins:       stats.Bins,
		Regions:    stats.Regions,
		CellSize:   stats.CellSize,
		MaxBin:     stats.MaxBinOccupancy,
		TickMicros: elapsed.Microseconds(),
	}
	snap := e.snapshot
	onTick := e.onTick

	e.mu.Unlock()

	if onTick != nil {
		onTick(snap)
	}
}

// integrate moves a body and bounces it off the world edges.
func (e *Engine) integrate(b *Body, dt float64) {
	if b.VX == 0 && b.VY == 0 {
		return
	}
	r := b.Ent.Bounds
	if r == nil {
		return
	}

	r.X += b.VX * dt
	r.Y += b.VY * dt

	if r.X < 0 {
		r.X = 0
		b.VX = -b.VX
	} else if r.MaxX() > e.world.Width {
		r.X = e.world.Width - r.Width
		b.VX = -b.VX
	}
	if r.Y < 0 {
		r.Y = 0
		b.VY = -b.VY
	} else if r.MaxY() > e.world.Height {
		r.Y = e.world.Height - r.Height
		b.VY = -b.VY
	}
}

// AddCollider adds a moving collider entity. Returns nil when the entity
// cap is reached.
func (e *Engine) AddCollider(bounds geom.Rect, vx, vy float64, mapInteraction bool) *entity.Entity {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.bodies) >= e.limits.MaxEntities {
		log.Printf("entity limit reached (%d), rejecting spawn", e.limits.MaxEntities)
		return nil
	}

	ent := entity.NewCollider(bounds, mapInteraction)
	e.bodies = append(e.bodies, &Body{Ent: ent, VX: vx, VY: vy})
	return ent
}

// AddMapTile adds a static map tile entity. Returns nil when the entity cap
// is reached.
func (e *Engine) AddMapTile(bounds geom.Rect) *entity.Entity {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.bodies) >= e.limits.MaxEntities {
		log.Printf("entity limit reached (%d), rejecting spawn", e.limits.MaxEntities)
		return nil
	}

	ent := entity.NewMapTile(bounds)
	e.bodies = append(e.bodies, &Body{Ent: ent})
	return ent
}

// SpawnRandom populates the world with n moving colliders (one in ten with
// map interaction) and returns how many were actually spawned.
func (e *Engine) SpawnRandom(n int) int {
	spawned := 0
	for i := 0; i < n; i++ {
		w := e.rng.Float64()*48 + 16
		h := e.rng.Float64()*48 + 16
		x := e.rng.Float64() * (e.world.Width - w)
		y := e.rng.Float64() * (e.world.Height - h)
		vx := (e.rng.Float64() - 0.5) * 200
		vy := (e.rng.Float64() - 0.5) * 200

		if e.AddCollider(geom.NewRect(x, y, w, h), vx, vy, i%10 == 0) == nil {
			break
		}
		spawned++
	}
	return spawned
}

// EntityCount returns the current population size.
func (e *Engine) EntityCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.bodies)
}

// Snapshot returns the most recent tick snapshot.
func (e *Engine) Snapshot() TickSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshot
}

// CellLoads returns the index's current cell occupancy together with the
// cell size, for the debug heatmap.
func (e *Engine) CellLoads() ([]broadphase.CellLoad, float64) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.index.CellLoads(), e.index.CellSize()
}

// WorldBounds returns the configured world extents.
func (e *Engine) WorldBounds() (w, h float64) {
	return e.world.Width, e.world.Height
}
